package server

import (
	"errors"
	"sort"
	"sync"

	"mazeworld/geometry"
	"mazeworld/plancache"
	"mazeworld/scene"
)

var (
	ErrRunNotFound = errors.New("run not found")
	ErrQueueFull   = errors.New("run queue is full")
	ErrShutdown    = errors.New("run manager is shutting down")
)

// ManagerOptions RunManager 依赖
type ManagerOptions struct {
	// NewSession 每次运行新建一个场景会话（仿真器只有一个，运行之间串行）
	NewSession func() scene.Session
	Cache      *plancache.Cache
	Policy     FailurePolicy
	QueueSize  int
}

// RunManager 管理生成运行的生命周期；所有派发在同一个 worker 中串行执行
type RunManager struct {
	mu     sync.RWMutex
	runs   map[string]*Run
	policy FailurePolicy

	queue      chan *Run
	newSession func() scene.Session
	cache      *plancache.Cache
	metrics    RunMetrics
	hub        *Hub

	workerStarted bool
	stop          chan struct{}
	stopOnce      sync.Once
	workerDone    chan struct{}
}

var (
	defaultManager *RunManager
	once           sync.Once
)

// InitRunManager 创建单例管理器并启动 worker；重复调用返回同一个实例
func InitRunManager(opts ManagerOptions) *RunManager {
	once.Do(func() {
		defaultManager = NewRunManager(opts)
		defaultManager.StartWorker()
	})
	return defaultManager
}

func NewRunManager(opts ManagerOptions) *RunManager {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	if opts.Policy == "" {
		opts.Policy = PolicyAbort
	}
	if opts.NewSession == nil {
		// 未接仿真器时只在内存中记录
		opts.NewSession = func() scene.Session { return scene.NewRecorder() }
	}
	return &RunManager{
		runs:       make(map[string]*Run),
		policy:     opts.Policy,
		queue:      make(chan *Run, opts.QueueSize),
		newSession: opts.NewSession,
		cache:      opts.Cache,
		hub:        NewHub(),
		stop:       make(chan struct{}),
		workerDone: make(chan struct{}),
	}
}

func (m *RunManager) Hub() *Hub            { return m.hub }
func (m *RunManager) Metrics() *RunMetrics { return &m.metrics }

func (m *RunManager) Policy() FailurePolicy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.policy
}

func (m *RunManager) SetPolicy(p FailurePolicy) {
	m.mu.Lock()
	m.policy = p
	m.mu.Unlock()
}

// Plan 只推导不派发；有缓存时复用
func (m *RunManager) Plan(w *geometry.World) (plan *geometry.Plan, cached bool, err error) {
	if m.cache != nil {
		return m.cache.Compile(w)
	}
	plan, err = geometry.Compile(w.Tiles, w.Obstacles)
	return plan, false, err
}

// Submit 推导计划并排队派发；policy 为空时使用当前默认策略
func (m *RunManager) Submit(w *geometry.World, policy FailurePolicy) (*Run, error) {
	select {
	case <-m.stop:
		return nil, ErrShutdown
	default:
	}
	plan, _, err := m.Plan(w)
	if err != nil {
		return nil, err
	}
	if policy == "" {
		policy = m.Policy()
	}
	for _, warn := range plan.Warnings {
		Log.Warnw("plan warning", "warning", warn)
	}

	r := NewRun(plan, policy)
	m.mu.Lock()
	m.runs[r.ID] = r
	m.mu.Unlock()

	select {
	case m.queue <- r:
	default:
		m.mu.Lock()
		delete(m.runs, r.ID)
		m.mu.Unlock()
		return nil, ErrQueueFull
	}
	m.hub.PublishStatus(r.Snapshot())
	return r, nil
}

func (m *RunManager) Get(id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return r, nil
}

// Cancel 取消排队中或运行中的运行；已结束的运行不受影响
func (m *RunManager) Cancel(id string) (*Run, error) {
	r, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	r.Cancel()
	return r, nil
}

// List 按创建时间排序的运行快照
func (m *RunManager) List() []RunState {
	m.mu.RLock()
	out := make([]RunState, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r.Snapshot())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
