package server

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"mazeworld/geometry"
	"mazeworld/scene"
)

// FailurePolicy 实例化失败时的处理方式（由调用方决定，推导层不做重试）
type FailurePolicy string

const (
	PolicyAbort FailurePolicy = "abort" // 停止整次运行
	PolicySkip  FailurePolicy = "skip"  // 仿真器拒绝时记录并继续下一条
)

func ParsePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case PolicyAbort, PolicySkip:
		return FailurePolicy(s), nil
	}
	return "", fmt.Errorf("unknown failure policy %q", s)
}

// SetupResult 尽力而为的初始化步骤结果：失败只记录，不中断
type SetupResult struct {
	Step string `json:"step"`
	Err  string `json:"error,omitempty"`
}

func (r SetupResult) OK() bool { return r.Err == "" }

func bestEffort(step string, err error) SetupResult {
	res := SetupResult{Step: step}
	if err != nil {
		res.Err = err.Error()
		Log.Warnw("setup step failed, continuing", "step", step, "error", err)
	}
	return res
}

// Observer 每条指令提交后回调（成功时 err 为 nil）
type Observer func(index int, d geometry.Directive, h scene.Handle, err error)

type DispatchOptions struct {
	Policy  FailurePolicy
	Observe Observer
	metrics multiMetrics
}

// DispatchResult 派发统计
type DispatchResult struct {
	Submitted int           `json:"submitted"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Setup     []SetupResult `json:"setup"`
}

// Dispatch 打开会话，按计划顺序逐条提交，每条等待确认后才提交下一条。
// ctx 取消后不再提交新指令，已提交的不回滚。
func Dispatch(ctx context.Context, sess scene.Session, plan *geometry.Plan, opts DispatchOptions) (res DispatchResult, err error) {
	if opts.Policy == "" {
		opts.Policy = PolicyAbort
	}
	if err := sess.Open(ctx); err != nil {
		return res, fmt.Errorf("open scene session: %w", err)
	}
	defer func() {
		err = multierr.Append(err, sess.Close())
	}()

	if fr, ok := sess.(scene.FloorRemover); ok {
		r := bestEffort("remove default floor", fr.RemoveDefaultFloor(ctx))
		if !r.OK() {
			opts.metrics.each(func(m *RunMetrics) { m.IncSetupFailures() })
		}
		res.Setup = append(res.Setup, r)
	}

	for i, d := range plan.Directives {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		Log.Debugw("add piece", "kind", d.Kind, "asset", d.Asset, "x", d.Cell.X, "z", d.Cell.Z, "seq", d.Seq)
		h, placeErr := sess.Instantiate(ctx, scene.PlacementOf(d))
		if opts.Observe != nil {
			opts.Observe(i, d, h, placeErr)
		}
		if placeErr == nil {
			res.Submitted++
			opts.metrics.each(func(m *RunMetrics) { m.IncSubmitted() })
			continue
		}

		res.Failed++
		opts.metrics.each(func(m *RunMetrics) { m.IncFailedPlace() })
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(placeErr, ctxErr) {
			return res, ctxErr
		}
		// 只有仿真器明确拒绝的件可以跳过；连接失败后会话不可用，任何策略都中止
		if opts.Policy == PolicySkip && scene.IsSceneError(placeErr) {
			res.Skipped++
			opts.metrics.each(func(m *RunMetrics) { m.IncSkipped() })
			Log.Warnw("placement failed, skipping", "index", i, "asset", d.Asset, "x", d.Cell.X, "z", d.Cell.Z, "error", placeErr)
			continue
		}
		return res, fmt.Errorf("directive %d (%s at %d,%d): %w", i, d.Asset, d.Cell.X, d.Cell.Z, placeErr)
	}

	if n := len(plan.Obstacles) + len(plan.Debris); n > 0 {
		Log.Infow("obstacles classified", "obstacles", len(plan.Obstacles), "debris", len(plan.Debris))
	}
	return res, nil
}
