package scene

import (
	"context"
	"sync"
)

// Recorder 内存会话：按顺序记录实例化请求，用于 dry-run 与测试
type Recorder struct {
	mu sync.Mutex

	// FailOn 返回非 nil 时该次实例化失败
	FailOn func(p Placement) error
	// FloorErr 为 RemoveDefaultFloor 的返回值
	FloorErr error

	open       bool
	next       Handle
	placements []Placement
	opened     int
	closed     int
	floorCalls int
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = true
	r.opened++
	return ctx.Err()
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = false
	r.closed++
	return nil
}

func (r *Recorder) RemoveDefaultFloor(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.floorCalls++
	return r.FloorErr
}

func (r *Recorder) Instantiate(ctx context.Context, p Placement) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if r.FailOn != nil {
		if err := r.FailOn(p); err != nil {
			return 0, err
		}
	}
	r.next++
	r.placements = append(r.placements, p)
	return r.next, nil
}

// Placements 返回已成功实例化的请求副本
func (r *Recorder) Placements() []Placement {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Placement, len(r.placements))
	copy(out, r.placements)
	return out
}

// Lifecycle 返回 Open/Close/RemoveDefaultFloor 的调用次数
func (r *Recorder) Lifecycle() (opened, closed, floorCalls int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened, r.closed, r.floorCalls
}
