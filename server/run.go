package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"mazeworld/geometry"
	"mazeworld/scene"
)

// RunStatus 一次生成运行的状态
type RunStatus string

const (
	StatusQueued    RunStatus = "queued"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

func (s RunStatus) Finished() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Run 一次把计划派发到场景的运行；状态只由派发 goroutine 推进
type Run struct {
	ID        string
	CreatedAt time.Time
	Plan      *geometry.Plan
	Policy    FailurePolicy

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	metrics *RunMetrics

	mu         sync.RWMutex
	status     RunStatus
	err        string
	progress   int
	result     DispatchResult
	startedAt  time.Time
	finishedAt time.Time
}

// RunState 广播与 HTTP 输出用的只读快照
type RunState struct {
	ID         string         `json:"id"`
	Status     RunStatus      `json:"status"`
	Error      string         `json:"error,omitempty"`
	Progress   int            `json:"progress"`
	Total      int            `json:"total"`
	Warnings   []string       `json:"warnings,omitempty"`
	Result     DispatchResult `json:"result"`
	CreatedAt  time.Time      `json:"createdAt"`
	StartedAt  *time.Time     `json:"startedAt,omitempty"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
	Metrics    map[string]any `json:"metrics"`
}

// NewRun 创建运行，初始为排队状态
func NewRun(plan *geometry.Plan, policy FailurePolicy) *Run {
	ctx, cancel := context.WithCancel(context.Background())
	return &Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Plan:      plan,
		Policy:    policy,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		metrics:   &RunMetrics{},
		status:    StatusQueued,
	}
}

// Cancel 请求停止：不再提交新的指令
func (r *Run) Cancel() { r.cancel() }

// Done 运行结束（任意终态）时关闭
func (r *Run) Done() <-chan struct{} { return r.done }

func (r *Run) Status() RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func (r *Run) Snapshot() RunState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := RunState{
		ID:        r.ID,
		Status:    r.status,
		Error:     r.err,
		Progress:  r.progress,
		Total:     len(r.Plan.Directives),
		Warnings:  r.Plan.Warnings,
		Result:    r.result,
		CreatedAt: r.CreatedAt,
		Metrics:   r.metrics.Snapshot(),
	}
	if !r.startedAt.IsZero() {
		t := r.startedAt
		st.StartedAt = &t
	}
	if !r.finishedAt.IsZero() {
		t := r.finishedAt
		st.FinishedAt = &t
	}
	return st
}

func (r *Run) setRunning() {
	r.mu.Lock()
	r.status = StatusRunning
	r.startedAt = time.Now()
	r.mu.Unlock()
}

func (r *Run) advance(i int) {
	r.mu.Lock()
	r.progress = i + 1
	r.mu.Unlock()
}

func (r *Run) finish(res DispatchResult, err error) {
	r.mu.Lock()
	r.result = res
	r.finishedAt = time.Now()
	switch {
	case errors.Is(err, context.Canceled) || (err != nil && r.ctx.Err() != nil):
		r.status = StatusCancelled
	case err != nil:
		r.status = StatusFailed
		r.err = err.Error()
	default:
		r.status = StatusCompleted
	}
	r.mu.Unlock()
}

// execute 在派发 goroutine 中执行：打开会话 → 逐条提交 → 关闭会话
func (r *Run) execute(sess scene.Session, global *RunMetrics, hub *Hub) {
	defer close(r.done)
	defer r.cancel()
	if r.ctx.Err() != nil {
		// 排队期间已被取消，不打开会话
		r.finish(DispatchResult{}, r.ctx.Err())
		multiMetrics{r.metrics, global}.each(func(m *RunMetrics) { m.IncCancelled() })
		hub.PublishStatus(r.Snapshot())
		return
	}

	r.setRunning()
	mm := multiMetrics{r.metrics, global}
	mm.each(func(m *RunMetrics) { m.IncStarted() })
	hub.PublishStatus(r.Snapshot())
	Log.Infow("run started", "run", r.ID, "directives", len(r.Plan.Directives), "policy", r.Policy)

	start := time.Now()
	res, err := Dispatch(r.ctx, sess, r.Plan, DispatchOptions{
		Policy:  r.Policy,
		metrics: mm,
		Observe: func(i int, d geometry.Directive, h scene.Handle, err error) {
			r.advance(i)
			hub.PublishPlacement(r.ID, i, d, h, err)
		},
	})
	elapsed := time.Since(start).Nanoseconds()
	mm.each(func(m *RunMetrics) { m.AddRunTime(elapsed) })

	r.finish(res, err)
	switch r.Status() {
	case StatusCompleted:
		mm.each(func(m *RunMetrics) { m.IncCompleted() })
		Log.Infow("run completed", "run", r.ID, "submitted", res.Submitted, "skipped", res.Skipped)
	case StatusCancelled:
		mm.each(func(m *RunMetrics) { m.IncCancelled() })
		Log.Infow("run cancelled", "run", r.ID, "submitted", res.Submitted)
	default:
		mm.each(func(m *RunMetrics) { m.IncFailed() })
		Log.Errorw("run failed", "run", r.ID, "error", err)
	}
	hub.PublishStatus(r.Snapshot())
}
