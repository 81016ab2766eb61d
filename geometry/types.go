package geometry

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrRaggedGrid 表示网格各行长度不一致（配置错误，拒绝推导）
	ErrRaggedGrid = errors.New("grid rows have unequal length")
	// ErrEdgeWalls edgeWalls 不是恰好四个元素
	ErrEdgeWalls = errors.New("edgeWalls must have exactly 4 entries")
)

// Side 方向，固定顺序：北(上)、东(右)、南(下)、西(左)
type Side int

const (
	North Side = iota
	East
	South
	West
)

// Sides 按枚举顺序遍历四个方向
var Sides = [4]Side{North, East, South, West}

func (s Side) String() string {
	switch s {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	}
	return "unknown"
}

// Offset 返回该方向相邻格的坐标偏移
func (s Side) Offset() (dx, dz int) {
	switch s {
	case North:
		return 0, -1
	case East:
		return 1, 0
	case South:
		return 0, 1
	case West:
		return -1, 0
	}
	return 0, 0
}

// Corner 角的顺序：右上、右下、左下、左上
type Corner int

const (
	TopRight Corner = iota
	BottomRight
	BottomLeft
	TopLeft
)

// cornerSides 每个角由两个相邻方向夹成
var cornerSides = [4][2]Side{
	TopRight:    {North, East},
	BottomRight: {East, South},
	BottomLeft:  {South, West},
	TopLeft:     {West, North},
}

// Walls 四面内墙，按 北/东/南/西
type Walls [4]bool

// UnmarshalJSON 只接受长度为 4 的数组；null 视为无墙
func (w *Walls) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*w = Walls{}
		return nil
	}
	var list []bool
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	if len(list) != len(w) {
		return fmt.Errorf("%w, got %d", ErrEdgeWalls, len(list))
	}
	copy(w[:], list)
	return nil
}

// Tile 网格中的一个单元
type Tile struct {
	HasFloor     bool  `json:"hasFloor"`
	EdgeWalls    Walls `json:"edgeWalls"`
	IsCheckpoint bool  `json:"isCheckpoint"`
	IsTrap       bool  `json:"isTrap"`
	IsGoal       bool  `json:"isGoal"`
	IsSwamp      bool  `json:"isSwamp"`
}

// Pos 网格坐标
type Pos struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// Move 返回沿 side 方向的相邻坐标
func (p Pos) Move(s Side) Pos {
	dx, dz := s.Offset()
	return Pos{X: p.X + dx, Z: p.Z + dz}
}

// Vec3 世界坐标
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Grid 行主序二维网格：Grid[z][x]
type Grid [][]Tile

func (g Grid) Width() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

func (g Grid) Height() int { return len(g) }

// Validate 检查每一行长度一致
func (g Grid) Validate() error {
	w := g.Width()
	for z, row := range g {
		if len(row) != w {
			return fmt.Errorf("%w: row %d has %d tiles, expected %d", ErrRaggedGrid, z, len(row), w)
		}
	}
	return nil
}

func (g Grid) InBounds(p Pos) bool {
	return p.X >= 0 && p.X < g.Width() && p.Z >= 0 && p.Z < g.Height()
}

// At 越界时返回缺省格（无地板、无墙、无标记）
func (g Grid) At(p Pos) Tile {
	if !g.InBounds(p) {
		return Tile{}
	}
	return g[p.Z][p.X]
}

// GoalCount 统计终点格数量
func (g Grid) GoalCount() int {
	n := 0
	for _, row := range g {
		for _, t := range row {
			if t.IsGoal {
				n++
			}
		}
	}
	return n
}
