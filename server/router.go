package server

import (
	"time"

	"github.com/gin-gonic/gin"
)

// requestLogger 用 zap 记录每个请求
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		Log.Infow("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}

// NewRouter 注册生成、运行、监控与观察流接口
func NewRouter(m *RunManager) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(requestLogger(), gin.Recovery())

	h := &handlers{m: m}
	e.POST("/plans", h.CreatePlan)

	runs := e.Group("/runs")
	runs.POST("", h.CreateRun)
	runs.GET("", h.ListRuns)
	runs.GET("/:id", h.GetRun)
	runs.DELETE("/:id", h.CancelRun)

	admin := e.Group("/admin")
	admin.GET("/config", h.GetConfig)
	admin.POST("/config", h.UpdateConfig)

	e.GET("/metrics", h.HandleMetrics)
	e.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })
	e.GET("/ws", gin.WrapF(HandleWatch(m.Hub())))
	return e
}
