package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mazeworld/geometry"
)

// handlers 绑定到 RunManager 的 HTTP 接口
type handlers struct {
	m *RunManager
}

func (h *handlers) bindWorld(c *gin.Context) (*GenerateRequest, bool) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return nil, false
	}
	return &req, true
}

func worldError(c *gin.Context, err error) {
	if errors.Is(err, geometry.ErrRaggedGrid) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	Log.Errorw("derive plan", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// CreatePlan POST /plans 只推导，返回完整计划
func (h *handlers) CreatePlan(c *gin.Context) {
	req, ok := h.bindWorld(c)
	if !ok {
		return
	}
	plan, cached, err := h.m.Plan(&req.World)
	if err != nil {
		worldError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan, "cached": cached, "counts": plan.Counts()})
}

// CreateRun POST /runs 推导并排队派发到仿真器
func (h *handlers) CreateRun(c *gin.Context) {
	req, ok := h.bindWorld(c)
	if !ok {
		return
	}
	var policy FailurePolicy
	if req.Policy != "" {
		p, err := ParsePolicy(req.Policy)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		policy = p
	}
	r, err := h.m.Submit(&req.World, policy)
	if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrShutdown) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		worldError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, r.Snapshot())
}

// ListRuns GET /runs
func (h *handlers) ListRuns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"runs": h.m.List()})
}

// GetRun GET /runs/:id
func (h *handlers) GetRun(c *gin.Context) {
	r, err := h.m.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, r.Snapshot())
}

// CancelRun DELETE /runs/:id 停止提交后续指令，已放置的对象保留
func (h *handlers) CancelRun(c *gin.Context) {
	r, err := h.m.Cancel(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	Log.Infow("run cancel requested", "run", r.ID)
	c.JSON(http.StatusAccepted, r.Snapshot())
}

// GetConfig GET /admin/config 返回可热更新的配置
func (h *handlers) GetConfig(c *gin.Context) {
	p := string(h.m.Policy())
	c.JSON(http.StatusOK, AdminConfig{FailurePolicy: &p})
}

// UpdateConfig POST /admin/config 以 JSON 载荷更新部分字段（目前只有失败策略）
func (h *handlers) UpdateConfig(c *gin.Context) {
	var body AdminConfig
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.FailurePolicy != nil {
		p, err := ParsePolicy(*body.FailurePolicy)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.m.SetPolicy(p)
	}
	Log.Infof("config updated: failurePolicy=%s", h.m.Policy())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// HandleMetrics 输出全局派发指标
// GET /metrics
func (h *handlers) HandleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"metrics":  h.m.Metrics().Snapshot(),
		"watchers": h.m.Hub().Count(),
	})
}
