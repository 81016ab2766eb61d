package geometry

// 朝向连通邻格的缺口件旋转（弧度），按 北/东/南/西 索引；与资源局部坐标绑定，保持原值
var notchRotations = [4]float64{3.14159, 1.57079, 0, -1.57079}

// notchChecks 单连通方向对应的 左/右 检查格偏移
var notchChecks = [4][2]Pos{
	North: {{X: 1, Z: -1}, {X: -1, Z: -1}},
	East:  {{X: 1, Z: 1}, {X: 1, Z: -1}},
	South: {{X: -1, Z: 1}, {X: 1, Z: 1}},
	West:  {{X: -1, Z: -1}, {X: -1, Z: 1}},
}

// Notch 缺口需求
type Notch struct {
	Left     bool
	Right    bool
	Rotation float64
}

// CornersAt 判断当前格四个角（右上、右下、左下、左上）是否需要填角件。
// 两侧邻格的墙在此角汇合，且当前格自身在这两侧都没有墙时才需要。
func CornersAt(g Grid, pos Pos) [4]bool {
	var corners [4]bool
	this := g.At(pos)
	if !this.HasFloor {
		return corners
	}
	var around [4]Tile
	for _, s := range Sides {
		around[s] = g.At(pos.Move(s))
	}
	for c, pair := range cornerSides {
		a, b := pair[0], pair[1]
		corners[c] = around[a].EdgeWalls[b] && around[b].EdgeWalls[a] &&
			!this.EdgeWalls[a] && !this.EdgeWalls[b]
	}
	return corners
}

// ExternalWallsAt 邻格缺失或无地板的一侧需要外墙
func ExternalWallsAt(g Grid, pos Pos) [4]bool {
	var walls [4]bool
	if !g.At(pos).HasFloor {
		return walls
	}
	for _, s := range Sides {
		walls[s] = !g.At(pos.Move(s)).HasFloor
	}
	return walls
}

// NotchAt 死胡同格（恰好一个有地板的邻格）两侧是否需要缺口件
func NotchAt(g Grid, pos Pos) Notch {
	if !g.At(pos).HasFloor {
		return Notch{}
	}

	surround := 0
	dir := Side(-1)
	for _, s := range Sides {
		if g.At(pos.Move(s)).HasFloor {
			surround++
			dir = s
		}
	}
	if surround != 1 {
		return Notch{}
	}

	open := func(off Pos) bool {
		p := Pos{X: pos.X + off.X, Z: pos.Z + off.Z}
		return g.InBounds(p) && !g.At(p).HasFloor
	}
	return Notch{
		Left:     open(notchChecks[dir][0]),
		Right:    open(notchChecks[dir][1]),
		Rotation: notchRotations[dir],
	}
}
