package server

import "mazeworld/geometry"

// GenerateRequest 生成请求：世界描述 + 可选失败策略
// 示例：{"tiles":[[{"hasFloor":true,"edgeWalls":[false,false,false,false]}]],"obstacles":[],"policy":"skip"}
type GenerateRequest struct {
	geometry.World
	Policy string `json:"policy,omitempty"`
}

// PlacementEvent 观察流：一条指令的提交结果
type PlacementEvent struct {
	Type      string             `json:"type"`
	Run       string             `json:"run"`
	Index     int                `json:"index"`
	Directive geometry.Directive `json:"directive"`
	Handle    int64              `json:"handle,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// StatusEvent 观察流：运行状态变化
type StatusEvent struct {
	Type     string    `json:"type"`
	Run      string    `json:"run"`
	Status   RunStatus `json:"status"`
	Error    string    `json:"error,omitempty"`
	Progress int       `json:"progress"`
	Total    int       `json:"total"`
}

// AdminConfig 运行期可热更新的配置
type AdminConfig struct {
	FailurePolicy *string `json:"failurePolicy,omitempty"`
}
