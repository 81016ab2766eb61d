package server

import (
	"sync/atomic"
)

// RunMetrics 记录派发过程的关键指标（单次运行与全局汇总共用）
type RunMetrics struct {
	RunsStarted   int64 // 开始派发的运行数
	RunsCompleted int64 // 全部指令提交完成
	RunsFailed    int64 // 因错误中止
	RunsCancelled int64 // 被调用方取消
	Submitted     int64 // 成功实例化的指令数
	Failed        int64 // 实例化失败的指令数
	Skipped       int64 // 失败后按 skip 策略跳过的指令数
	SetupFailures int64 // 尽力而为的初始化步骤失败次数
	TotalRunNs    int64 // 派发累计耗时（纳秒）
}

func (m *RunMetrics) IncStarted()       { atomic.AddInt64(&m.RunsStarted, 1) }
func (m *RunMetrics) IncCompleted()     { atomic.AddInt64(&m.RunsCompleted, 1) }
func (m *RunMetrics) IncFailed()        { atomic.AddInt64(&m.RunsFailed, 1) }
func (m *RunMetrics) IncCancelled()     { atomic.AddInt64(&m.RunsCancelled, 1) }
func (m *RunMetrics) IncSubmitted()     { atomic.AddInt64(&m.Submitted, 1) }
func (m *RunMetrics) IncFailedPlace()   { atomic.AddInt64(&m.Failed, 1) }
func (m *RunMetrics) IncSkipped()       { atomic.AddInt64(&m.Skipped, 1) }
func (m *RunMetrics) IncSetupFailures() { atomic.AddInt64(&m.SetupFailures, 1) }
func (m *RunMetrics) AddRunTime(ns int64) {
	atomic.AddInt64(&m.TotalRunNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RunMetrics) Snapshot() map[string]any {
	runs := atomic.LoadInt64(&m.RunsStarted)
	total := atomic.LoadInt64(&m.TotalRunNs)
	var avgMs float64
	if runs > 0 {
		avgMs = float64(total) / float64(runs) / 1e6
	}
	return map[string]any{
		"runs_started":   runs,
		"runs_completed": atomic.LoadInt64(&m.RunsCompleted),
		"runs_failed":    atomic.LoadInt64(&m.RunsFailed),
		"runs_cancelled": atomic.LoadInt64(&m.RunsCancelled),
		"submitted":      atomic.LoadInt64(&m.Submitted),
		"failed":         atomic.LoadInt64(&m.Failed),
		"skipped":        atomic.LoadInt64(&m.Skipped),
		"setup_failures": atomic.LoadInt64(&m.SetupFailures),
		"avg_run_ms":     avgMs,
	}
}

// multiMetrics 同时更新多份指标（单次运行 + 全局）
type multiMetrics []*RunMetrics

func (mm multiMetrics) each(f func(m *RunMetrics)) {
	for _, m := range mm {
		if m != nil {
			f(m)
		}
	}
}
