package scene

import (
	"context"
	"errors"
	"fmt"

	"mazeworld/geometry"
)

// ErrClosed 会话未打开或已关闭
var ErrClosed = errors.New("scene session is closed")

// Handle 仿真器返回的对象句柄，调用方不解释其含义
type Handle int64

// Placement 一次实例化请求
type Placement struct {
	Asset      geometry.Asset `json:"asset"`
	Position   geometry.Vec3  `json:"position"`
	Rotation   float64        `json:"rotation"`
	KeepHeight bool           `json:"keepHeight"`
}

// PlacementOf 由放置指令构造请求
func PlacementOf(d geometry.Directive) Placement {
	return Placement{
		Asset:      d.Asset,
		Position:   d.Position,
		Rotation:   d.Rotation,
		KeepHeight: d.KeepAssetHeight,
	}
}

// Session 场景实例化服务。实现必须串行处理请求：调用方一次只提交一个。
type Session interface {
	Open(ctx context.Context) error
	Close() error
	Instantiate(ctx context.Context, p Placement) (Handle, error)
}

// FloorRemover 可选能力：移除仿真器自带的默认地板（尽力而为的初始化步骤）
type FloorRemover interface {
	RemoveDefaultFloor(ctx context.Context) error
}

// Catalog 资源到模型文件路径的映射，启动时解析一次
type Catalog interface {
	ModelPath(asset geometry.Asset) (string, error)
}

// Error 仿真器侧失败
type Error struct {
	Op    string
	Asset geometry.Asset
	Msg   string
}

func (e *Error) Error() string {
	if e.Asset != "" {
		return fmt.Sprintf("scene %s %s: %s", e.Op, e.Asset, e.Msg)
	}
	return fmt.Sprintf("scene %s: %s", e.Op, e.Msg)
}
