package server

import (
	"errors"
	"testing"
	"time"

	"mazeworld/geometry"
	"mazeworld/plancache"
	"mazeworld/scene"
)

func singleTileWorld() *geometry.World {
	return &geometry.World{Tiles: geometry.Grid{{{HasFloor: true}}}}
}

func waitDone(t *testing.T, r *Run) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("run %s did not finish, status %s", r.ID, r.Status())
	}
}

func newTestManager(t *testing.T, rec *scene.Recorder, queue int) *RunManager {
	t.Helper()
	m := NewRunManager(ManagerOptions{
		NewSession: func() scene.Session { return rec },
		QueueSize:  queue,
	})
	t.Cleanup(m.Shutdown)
	return m
}

func TestRunManagerCompletesRun(t *testing.T) {
	rec := scene.NewRecorder()
	m := newTestManager(t, rec, 4)
	m.StartWorker()

	r, err := m.Submit(singleTileWorld(), "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitDone(t, r)

	st := r.Snapshot()
	if st.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", st.Status, st.Error)
	}
	if st.Progress != 5 || st.Total != 5 {
		t.Fatalf("expected progress 5/5, got %d/%d", st.Progress, st.Total)
	}
	if len(rec.Placements()) != 5 {
		t.Fatalf("expected 5 placements, got %d", len(rec.Placements()))
	}
	if got := m.Metrics().Snapshot()["runs_completed"]; got != int64(1) {
		t.Fatalf("expected runs_completed 1, got %v", got)
	}
}

func TestRunManagerRunsSequentially(t *testing.T) {
	rec := scene.NewRecorder()
	m := newTestManager(t, rec, 4)
	m.StartWorker()

	var runs []*Run
	for i := 0; i < 3; i++ {
		r, err := m.Submit(singleTileWorld(), "")
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		runs = append(runs, r)
	}
	for _, r := range runs {
		waitDone(t, r)
	}
	if len(rec.Placements()) != 15 {
		t.Fatalf("expected 15 placements, got %d", len(rec.Placements()))
	}
	if list := m.List(); len(list) != 3 || list[0].ID != runs[0].ID {
		t.Fatalf("expected runs listed in creation order, got %+v", list)
	}
}

func TestRunManagerCancelQueuedRun(t *testing.T) {
	rec := scene.NewRecorder()
	m := newTestManager(t, rec, 4)

	r, err := m.Submit(singleTileWorld(), "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := m.Cancel(r.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	m.StartWorker()
	waitDone(t, r)

	if r.Status() != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", r.Status())
	}
	if opened, _, _ := rec.Lifecycle(); opened != 0 {
		t.Fatalf("expected session never opened, got %d", opened)
	}
}

func TestRunManagerFailedRun(t *testing.T) {
	rec := scene.NewRecorder()
	rec.FailOn = failOn(geometry.WhiteTile)
	m := newTestManager(t, rec, 4)
	m.StartWorker()

	r, err := m.Submit(singleTileWorld(), PolicyAbort)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitDone(t, r)
	st := r.Snapshot()
	if st.Status != StatusFailed || st.Error == "" {
		t.Fatalf("expected failed with error, got %s %q", st.Status, st.Error)
	}
}

func TestRunManagerQueueFull(t *testing.T) {
	m := newTestManager(t, scene.NewRecorder(), 1)

	if _, err := m.Submit(singleTileWorld(), ""); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := m.Submit(singleTileWorld(), ""); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if n := len(m.List()); n != 1 {
		t.Fatalf("expected rejected run to be forgotten, got %d runs", n)
	}
}

func TestRunManagerShutdownCancelsQueued(t *testing.T) {
	rec := scene.NewRecorder()
	m := NewRunManager(ManagerOptions{NewSession: func() scene.Session { return rec }})

	r, err := m.Submit(singleTileWorld(), "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	m.Shutdown()
	waitDone(t, r)
	if r.Status() != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", r.Status())
	}
}

func TestRunManagerRejectsRaggedGrid(t *testing.T) {
	m := newTestManager(t, scene.NewRecorder(), 1)
	w := &geometry.World{Tiles: geometry.Grid{{{}, {}}, {{}}}}
	if _, err := m.Submit(w, ""); !errors.Is(err, geometry.ErrRaggedGrid) {
		t.Fatalf("expected ErrRaggedGrid, got %v", err)
	}
}

func TestRunManagerPlanUsesCache(t *testing.T) {
	cache, err := plancache.New(1000)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	defer cache.Close()
	m := NewRunManager(ManagerOptions{Cache: cache})

	if _, hit, err := m.Plan(singleTileWorld()); err != nil || hit {
		t.Fatalf("expected miss, got hit=%v err=%v", hit, err)
	}
	if _, hit, err := m.Plan(singleTileWorld()); err != nil || !hit {
		t.Fatalf("expected hit, got hit=%v err=%v", hit, err)
	}
}

func TestRunManagerRejectsSubmitAfterShutdown(t *testing.T) {
	m := NewRunManager(ManagerOptions{})
	m.Shutdown()
	if _, err := m.Submit(singleTileWorld(), ""); !errors.Is(err, ErrShutdown) {
		t.Fatalf("expected ErrShutdown, got %v", err)
	}
}

func TestRunManagerShutdownCancelsUntrackedQueuedRun(t *testing.T) {
	rec := scene.NewRecorder()
	m := NewRunManager(ManagerOptions{NewSession: func() scene.Session { return rec }})
	plan, err := geometry.Compile(singleTileWorld().Tiles, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	// 绕过 Submit 直接入队：模拟扫描取消之后才到达的运行
	r := NewRun(plan, PolicyAbort)
	m.queue <- r

	m.Shutdown()
	waitDone(t, r)
	if r.Status() != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", r.Status())
	}
	if opened, _, _ := rec.Lifecycle(); opened != 0 {
		t.Fatalf("expected session never opened, got %d", opened)
	}
}
