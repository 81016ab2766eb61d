package geometry

// TileSize 单格世界尺寸
const TileSize = 0.25

// Kind 放置指令类别
type Kind string

const (
	WallSegment  Kind = "wall_segment"
	ExternalWall Kind = "external_wall"
	CornerFiller Kind = "corner_filler"
	NotchPiece   Kind = "notch"
	SpecialTile  Kind = "special_tile"
	FloorTile    Kind = "floor_tile"
	Agent        Kind = "agent"
	Manager      Kind = "manager"
)

// Asset 具体资源变体（朝向由变体区分，缺口件额外带旋转）
type Asset string

const (
	TopWall    Asset = "top_wall"
	RightWall  Asset = "right_wall"
	BottomWall Asset = "bottom_wall"
	LeftWall   Asset = "left_wall"

	TopExternal    Asset = "top_external"
	RightExternal  Asset = "right_external"
	BottomExternal Asset = "bottom_external"
	LeftExternal   Asset = "left_external"

	TopRightCorner    Asset = "top_right_corner"
	BottomRightCorner Asset = "bottom_right_corner"
	BottomLeftCorner  Asset = "bottom_left_corner"
	TopLeftCorner     Asset = "top_left_corner"

	LeftNotch  Asset = "left_notch"
	RightNotch Asset = "right_notch"

	CheckpointTile Asset = "checkpoint_tile"
	TrapTile       Asset = "trap_tile"
	GoalTile       Asset = "goal_tile"
	SwampTile      Asset = "swamp_tile"
	WhiteTile      Asset = "white_tile"

	Robot       Asset = "robot"
	GameManager Asset = "game_manager"
)

// Assets 全部资源变体
var Assets = []Asset{
	TopWall, RightWall, BottomWall, LeftWall,
	TopExternal, RightExternal, BottomExternal, LeftExternal,
	TopRightCorner, BottomRightCorner, BottomLeftCorner, TopLeftCorner,
	LeftNotch, RightNotch,
	CheckpointTile, TrapTile, GoalTile, SwampTile, WhiteTile,
	Robot, GameManager,
}

var (
	wallAssets     = [4]Asset{TopWall, RightWall, BottomWall, LeftWall}
	externalAssets = [4]Asset{TopExternal, RightExternal, BottomExternal, LeftExternal}
	cornerAssets   = [4]Asset{TopRightCorner, BottomRightCorner, BottomLeftCorner, TopLeftCorner}
)

// 以下偏移是资源局部原点的标定常量，不要按几何关系重新推导
var (
	// 墙段（内墙与外墙共用）按 上/右/下/左
	sideOffsets = [4]Vec3{
		North: {X: 0, Y: 0.125},
		East:  {X: 0.25, Y: 0.125},
		South: {X: 0.125, Y: -0.25},
		West:  {X: 0, Y: 0.125},
	}
	// 填角件按 右上/右下/左下/左上
	cornerOffsets = [4]Vec3{
		TopRight:    {X: 0.125, Y: 0.125},
		BottomRight: {X: 0.125, Y: -0.125},
		BottomLeft:  {X: -0.125, Y: -0.125},
		TopLeft:     {X: -0.125, Y: 0.125},
	}
	// 游戏管理器是全局单例，固定放在场景外
	managerPosition = Vec3{X: 20, Y: 20, Z: 0}
)

// Directive 一条放置指令
type Directive struct {
	Kind     Kind    `json:"kind"`
	Asset    Asset   `json:"asset"`
	Cell     Pos     `json:"cell"`
	Tile     int     `json:"tile"` // 遍历序号
	Seq      int     `json:"seq"`  // 类别内序号
	Position Vec3    `json:"position"`
	Rotation float64 `json:"rotation"`
	// 为 true 时只设置 X/Y，高度沿用资源自身的 Z
	KeepAssetHeight bool `json:"keepAssetHeight"`
}

// Category 序号分组：特殊格按资源区分（checkpoint/trap/goal/swamp 各自计数），其余按类别
func (d Directive) Category() string {
	if d.Kind == SpecialTile {
		return string(d.Asset)
	}
	return string(d.Kind)
}

// Frame 网格到世界坐标的变换，使迷宫居中于原点
type Frame struct {
	StartX float64
	StartZ float64
}

func NewFrame(width, height int) Frame {
	return Frame{
		StartX: -(float64(width) * TileSize / 2.0),
		StartZ: -(float64(height) * TileSize / 2.0),
	}
}

// Base 返回格子的基准世界坐标
func (f Frame) Base(p Pos) Vec3 {
	return Vec3{
		X: float64(p.X)*TileSize + f.StartX,
		Y: -(float64(p.Z)*TileSize + f.StartZ),
	}
}
