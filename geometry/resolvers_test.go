package geometry

import "testing"

// floorGrid 构造 w×h 全地板、无内墙的网格
func floorGrid(w, h int) Grid {
	g := make(Grid, h)
	for z := range g {
		g[z] = make([]Tile, w)
		for x := range g[z] {
			g[z][x].HasFloor = true
		}
	}
	return g
}

func TestFloorlessTileNeedsNothing(t *testing.T) {
	g := floorGrid(3, 3)
	g[1][1] = Tile{EdgeWalls: [4]bool{true, true, true, true}}
	g[0][1].EdgeWalls = [4]bool{true, true, true, true}
	g[1][2].EdgeWalls = [4]bool{true, true, true, true}
	g[2][1].EdgeWalls = [4]bool{true, true, true, true}
	g[1][0].EdgeWalls = [4]bool{true, true, true, true}

	p := Pos{X: 1, Z: 1}
	if c := CornersAt(g, p); c != [4]bool{} {
		t.Fatalf("expected no corners, got %v", c)
	}
	if e := ExternalWallsAt(g, p); e != [4]bool{} {
		t.Fatalf("expected no external walls, got %v", e)
	}
	if n := NotchAt(g, p); n != (Notch{}) {
		t.Fatalf("expected no notch, got %+v", n)
	}
}

func TestOutOfBoundsNeighbourIsAbsent(t *testing.T) {
	g := floorGrid(1, 1)
	if got := g.At(Pos{X: -1, Z: 0}); got != (Tile{}) {
		t.Fatalf("expected absent tile, got %+v", got)
	}
	if got := g.At(Pos{X: 0, Z: 1}); got != (Tile{}) {
		t.Fatalf("expected absent tile, got %+v", got)
	}
}

func TestIsolatedTile(t *testing.T) {
	g := floorGrid(1, 1)
	p := Pos{}
	if e := ExternalWallsAt(g, p); e != [4]bool{true, true, true, true} {
		t.Fatalf("expected external walls on all sides, got %v", e)
	}
	if c := CornersAt(g, p); c != [4]bool{} {
		t.Fatalf("expected no corners, got %v", c)
	}
	if n := NotchAt(g, p); n != (Notch{}) {
		t.Fatalf("expected no notch, got %+v", n)
	}
}

func TestExternalWallsFollowFloorNotEdgeWalls(t *testing.T) {
	g := floorGrid(3, 1)
	g[0][1].EdgeWalls = [4]bool{false, true, false, true}
	g[0][2].HasFloor = false

	got := ExternalWallsAt(g, Pos{X: 1, Z: 0})
	want := [4]bool{true, true, true, false}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCornersWhereNeighbourWallsMeet(t *testing.T) {
	tests := []struct {
		name  string
		setup func(g Grid)
		want  [4]bool
	}{
		{
			name: "top right",
			setup: func(g Grid) {
				g[0][1].EdgeWalls[East] = true
				g[1][2].EdgeWalls[North] = true
			},
			want: [4]bool{true, false, false, false},
		},
		{
			name: "bottom right",
			setup: func(g Grid) {
				g[1][2].EdgeWalls[South] = true
				g[2][1].EdgeWalls[East] = true
			},
			want: [4]bool{false, true, false, false},
		},
		{
			name: "bottom left",
			setup: func(g Grid) {
				g[2][1].EdgeWalls[West] = true
				g[1][0].EdgeWalls[South] = true
			},
			want: [4]bool{false, false, true, false},
		},
		{
			name: "top left",
			setup: func(g Grid) {
				g[0][1].EdgeWalls[West] = true
				g[1][0].EdgeWalls[North] = true
			},
			want: [4]bool{false, false, false, true},
		},
		{
			name: "own wall closes the junction",
			setup: func(g Grid) {
				g[0][1].EdgeWalls[East] = true
				g[1][2].EdgeWalls[North] = true
				g[1][1].EdgeWalls[North] = true
			},
			want: [4]bool{},
		},
		{
			name: "single neighbour wall",
			setup: func(g Grid) {
				g[0][1].EdgeWalls[East] = true
			},
			want: [4]bool{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := floorGrid(3, 3)
			tt.setup(g)
			got := CornersAt(g, Pos{X: 1, Z: 1})
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNotchOnCorridorEnds(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		pos  Pos
		want Notch
	}{
		{"horizontal left end", 3, 1, Pos{X: 0, Z: 0}, Notch{Rotation: 1.57079}},
		{"horizontal middle", 3, 1, Pos{X: 1, Z: 0}, Notch{}},
		{"horizontal right end", 3, 1, Pos{X: 2, Z: 0}, Notch{Rotation: -1.57079}},
		{"vertical top end", 1, 3, Pos{X: 0, Z: 0}, Notch{Rotation: 0}},
		{"vertical bottom end", 1, 3, Pos{X: 0, Z: 2}, Notch{Rotation: 3.14159}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NotchAt(floorGrid(tt.w, tt.h), tt.pos)
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestNotchSidesBorderOpenSpace(t *testing.T) {
	// . # .
	// . # .
	g := floorGrid(3, 2)
	for z := range g {
		g[z][0].HasFloor = false
		g[z][2].HasFloor = false
	}

	top := NotchAt(g, Pos{X: 1, Z: 0})
	if top != (Notch{Left: true, Right: true, Rotation: 0}) {
		t.Fatalf("unexpected top notch %+v", top)
	}
	bottom := NotchAt(g, Pos{X: 1, Z: 1})
	if bottom != (Notch{Left: true, Right: true, Rotation: 3.14159}) {
		t.Fatalf("unexpected bottom notch %+v", bottom)
	}

	// 右侧检查格有地板时只需要左缺口
	g[1][2].HasFloor = true
	top = NotchAt(g, Pos{X: 1, Z: 0})
	if !top.Left || top.Right {
		t.Fatalf("expected left notch only, got %+v", top)
	}
}

func TestNotchNeedsExactlyOneConnection(t *testing.T) {
	g := floorGrid(3, 3)
	if n := NotchAt(g, Pos{X: 1, Z: 1}); n != (Notch{}) {
		t.Fatalf("expected no notch for 4 connections, got %+v", n)
	}
	if n := NotchAt(g, Pos{X: 0, Z: 0}); n != (Notch{}) {
		t.Fatalf("expected no notch for 2 connections, got %+v", n)
	}
}
