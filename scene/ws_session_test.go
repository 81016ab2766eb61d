package scene

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"mazeworld/geometry"
)

type mapCatalog map[geometry.Asset]string

func (m mapCatalog) ModelPath(a geometry.Asset) (string, error) {
	p, ok := m[a]
	if !ok {
		return "", fmt.Errorf("no model for %s", a)
	}
	return p, nil
}

// fakeBridge 模拟仿真器桥：记录请求，model 为 "broken.ttm" 时拒绝
type fakeBridge struct {
	mu       sync.Mutex
	requests []Request
}

func (b *fakeBridge) handler(t *testing.T) http.HandlerFunc {
	up := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer ws.Close()
		for {
			var req Request
			if err := ws.ReadJSON(&req); err != nil {
				return
			}
			b.mu.Lock()
			b.requests = append(b.requests, req)
			n := len(b.requests)
			b.mu.Unlock()

			resp := Response{ID: req.ID, OK: true, Handle: int64(100 + n)}
			if req.Model == "broken.ttm" {
				resp = Response{ID: req.ID, OK: false, Error: "model load failed"}
			}
			if err := ws.WriteJSON(resp); err != nil {
				return
			}
		}
	}
}

func (b *fakeBridge) seen() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Request, len(b.requests))
	copy(out, b.requests)
	return out
}

func newBridge(t *testing.T) (*fakeBridge, string) {
	b := &fakeBridge{}
	srv := httptest.NewServer(b.handler(t))
	t.Cleanup(srv.Close)
	return b, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSSessionRoundTrip(t *testing.T) {
	bridge, url := newBridge(t)
	catalog := mapCatalog{
		geometry.TopWall:     "/models/walls/top_wall.ttm",
		geometry.GameManager: "/models/game_manager.ttm",
	}
	s := NewWSSession(WSConfig{URL: url, DefaultFloor: "ResizableFloor_5_25", AckTimeout: 2 * time.Second}, catalog, nil)

	ctx := context.Background()
	if err := s.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if err := s.RemoveDefaultFloor(ctx); err != nil {
		t.Fatalf("remove floor: %v", err)
	}
	h, err := s.Instantiate(ctx, Placement{
		Asset:      geometry.TopWall,
		Position:   geometry.Vec3{X: -0.25, Y: 0.375},
		KeepHeight: true,
	})
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if h != 102 {
		t.Fatalf("expected handle 102, got %d", h)
	}
	if _, err := s.Instantiate(ctx, Placement{Asset: geometry.GameManager, Position: geometry.Vec3{X: 20, Y: 20}}); err != nil {
		t.Fatalf("instantiate manager: %v", err)
	}

	reqs := bridge.seen()
	if len(reqs) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(reqs))
	}
	if reqs[0].Op != OpRemoveObject || reqs[0].Name != "ResizableFloor_5_25" {
		t.Fatalf("unexpected floor request %+v", reqs[0])
	}
	if reqs[1].Model != "/models/walls/top_wall.ttm" || !reqs[1].KeepHeight || reqs[1].Position != [3]float64{-0.25, 0.375, 0} {
		t.Fatalf("unexpected wall request %+v", reqs[1])
	}
	if reqs[2].KeepHeight {
		t.Fatalf("expected manager with absolute height, got %+v", reqs[2])
	}
	for i, r := range reqs {
		if r.ID != uint64(i+1) {
			t.Fatalf("request %d: expected id %d, got %d", i, i+1, r.ID)
		}
	}
}

func TestWSSessionSceneError(t *testing.T) {
	_, url := newBridge(t)
	s := NewWSSession(WSConfig{URL: url}, mapCatalog{geometry.TrapTile: "broken.ttm"}, nil)
	ctx := context.Background()
	if err := s.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	_, err := s.Instantiate(ctx, Placement{Asset: geometry.TrapTile})
	if !IsSceneError(err) {
		t.Fatalf("expected scene error, got %v", err)
	}
	// 拒绝后连接仍可用
	_, err = s.Instantiate(ctx, Placement{Asset: geometry.Robot})
	var se *Error
	if !errors.As(err, &se) || se.Asset != geometry.Robot {
		t.Fatalf("expected catalog error for robot, got %v", err)
	}
}

func TestWSSessionClosed(t *testing.T) {
	s := NewWSSession(WSConfig{URL: "ws://127.0.0.1:1/scene"}, mapCatalog{geometry.TopWall: "x"}, nil)
	if _, err := s.Instantiate(context.Background(), Placement{Asset: geometry.TopWall}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestWSSessionConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	s := NewWSSession(WSConfig{URL: url, ConnectRetries: 1, RetryDelay: 10 * time.Millisecond, ConnectTimeout: time.Second}, mapCatalog{}, nil)
	if err := s.Open(context.Background()); err == nil {
		t.Fatal("expected connect error")
	}
}

func TestRecorderFailures(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()
	if _, err := r.Instantiate(ctx, Placement{Asset: geometry.WhiteTile}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed before open, got %v", err)
	}
	_ = r.Open(ctx)
	r.FailOn = func(p Placement) error {
		if p.Asset == geometry.TrapTile {
			return &Error{Op: OpLoadModel, Asset: p.Asset, Msg: "boom"}
		}
		return nil
	}
	if _, err := r.Instantiate(ctx, Placement{Asset: geometry.TrapTile}); !IsSceneError(err) {
		t.Fatalf("expected scene error, got %v", err)
	}
	if h, err := r.Instantiate(ctx, Placement{Asset: geometry.WhiteTile}); err != nil || h != 1 {
		t.Fatalf("expected handle 1, got %d %v", h, err)
	}
	if n := len(r.Placements()); n != 1 {
		t.Fatalf("expected 1 placement, got %d", n)
	}
}
