package geometry

import "fmt"

// Plan 一次生成的完整结果
type Plan struct {
	Width      int              `json:"width"`
	Height     int              `json:"height"`
	Directives []Directive      `json:"directives"`
	Obstacles  []PlacedObstacle `json:"obstacles"`
	Debris     []PlacedObstacle `json:"debris"`
	Warnings   []string         `json:"warnings,omitempty"`
}

// Counts 按类别统计指令数
func (p *Plan) Counts() map[string]int {
	out := make(map[string]int)
	for _, d := range p.Directives {
		out[d.Category()]++
	}
	return out
}

// specials 特殊格优先级：checkpoint → trap → goal → swamp，只放第一个命中的
var specials = []struct {
	asset Asset
	is    func(Tile) bool
}{
	{CheckpointTile, func(t Tile) bool { return t.IsCheckpoint }},
	{TrapTile, func(t Tile) bool { return t.IsTrap }},
	{GoalTile, func(t Tile) bool { return t.IsGoal }},
	{SwampTile, func(t Tile) bool { return t.IsSwamp }},
}

// compiler 单次推导的状态，每次调用新建
type compiler struct {
	grid  Grid
	frame Frame
	seq   map[string]int
	out   []Directive
}

func (c *compiler) emit(d Directive) {
	cat := d.Category()
	d.Seq = c.seq[cat]
	c.seq[cat]++
	c.out = append(c.out, d)
}

// Derive 按列优先顺序（外层 x，内层 z）生成放置指令；顺序是对外契约
func Derive(g Grid) ([]Directive, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	w, h := g.Width(), g.Height()
	c := &compiler{
		grid:  g,
		frame: NewFrame(w, h),
		seq:   make(map[string]int),
		out:   make([]Directive, 0, w*h*2),
	}
	tile := 0
	for x := 0; x < w; x++ {
		for z := 0; z < h; z++ {
			c.compileTile(Pos{X: x, Z: z}, tile)
			tile++
		}
	}
	return c.out, nil
}

func (c *compiler) compileTile(pos Pos, tile int) {
	t := c.grid.At(pos)
	base := c.frame.Base(pos)
	corners := CornersAt(c.grid, pos)
	externals := ExternalWallsAt(c.grid, pos)
	notch := NotchAt(c.grid, pos)

	piece := func(kind Kind, asset Asset, off Vec3, rot float64) {
		c.emit(Directive{
			Kind:            kind,
			Asset:           asset,
			Cell:            pos,
			Tile:            tile,
			Position:        base.Add(off),
			Rotation:        rot,
			KeepAssetHeight: true,
		})
	}

	// 1. 网格中显式给出的内墙
	for _, s := range Sides {
		if t.EdgeWalls[s] {
			piece(WallSegment, wallAssets[s], sideOffsets[s], 0)
		}
	}

	// 2./3. 特殊格或普通地板，二者只放其一
	special := false
	for _, sp := range specials {
		if !sp.is(t) {
			continue
		}
		piece(SpecialTile, sp.asset, Vec3{}, 0)
		if sp.asset == GoalTile {
			piece(Agent, Robot, Vec3{}, 0)
			c.emit(Directive{
				Kind:     Manager,
				Asset:    GameManager,
				Cell:     pos,
				Tile:     tile,
				Position: managerPosition,
			})
		}
		special = true
		break
	}
	if !special {
		piece(FloorTile, WhiteTile, Vec3{}, 0)
	}

	// 4. 填角件
	for corner, need := range corners {
		if need {
			piece(CornerFiller, cornerAssets[corner], cornerOffsets[corner], 0)
		}
	}

	// 5. 外墙
	for _, s := range Sides {
		if externals[s] {
			piece(ExternalWall, externalAssets[s], sideOffsets[s], 0)
		}
	}

	// 6. 缺口件
	if notch.Left {
		piece(NotchPiece, LeftNotch, Vec3{}, notch.Rotation)
	}
	if notch.Right {
		piece(NotchPiece, RightNotch, Vec3{}, notch.Rotation)
	}
}

// Compile 推导指令、划分障碍物，并给出校验警告
func Compile(g Grid, obstacles []Obstacle) (*Plan, error) {
	directives, err := Derive(g)
	if err != nil {
		return nil, err
	}
	obs, debris := PartitionObstacles(obstacles)
	plan := &Plan{
		Width:      g.Width(),
		Height:     g.Height(),
		Directives: directives,
		Obstacles:  obs,
		Debris:     debris,
	}
	if n := g.GoalCount(); n > 1 {
		plan.Warnings = append(plan.Warnings,
			fmt.Sprintf("at most one goal tile expected, found %d: game manager will be placed %d times", n, n))
	}
	return plan, nil
}
