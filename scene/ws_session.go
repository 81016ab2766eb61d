package scene

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mazeworld/geometry"
)

const (
	OpLoadModel    = "load_model"
	OpRemoveObject = "remove_object"
)

// Request 发往仿真器桥的请求
type Request struct {
	ID         uint64     `json:"id"`
	Op         string     `json:"op"`
	Model      string     `json:"model,omitempty"`
	Name       string     `json:"name,omitempty"`
	Position   [3]float64 `json:"position"`
	KeepHeight bool       `json:"keepHeight"`
	Rotation   float64    `json:"rotation"`
}

// Response 仿真器桥的应答
type Response struct {
	ID     uint64 `json:"id"`
	OK     bool   `json:"ok"`
	Handle int64  `json:"handle"`
	Error  string `json:"error,omitempty"`
}

// WSConfig 仿真器桥连接参数
type WSConfig struct {
	URL            string
	ConnectTimeout time.Duration
	ConnectRetries int
	RetryDelay     time.Duration
	AckTimeout     time.Duration
	DefaultFloor   string
}

// WSSession 通过 WebSocket 连接仿真器桥；同一时刻只有一个请求在途
type WSSession struct {
	cfg     WSConfig
	catalog Catalog
	log     *zap.Logger
	dialer  *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID uint64
}

func NewWSSession(cfg WSConfig, catalog Catalog, log *zap.Logger) *WSSession {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = 10 * time.Second
	}
	if cfg.ConnectRetries < 0 {
		cfg.ConnectRetries = 0
	}
	return &WSSession{
		cfg:     cfg,
		catalog: catalog,
		log:     log.Named("scene"),
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.ConnectTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
	}
}

// Open 先关闭残留连接，再按重试次数建立连接
func (s *WSSession) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.log.Info("closing stale simulator connection")
		_ = s.conn.Close()
		s.conn = nil
	}

	var lastErr error
	for attempt := 0; attempt <= s.cfg.ConnectRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.RetryDelay):
			}
		}
		dialCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
		conn, _, err := s.dialer.DialContext(dialCtx, s.cfg.URL, nil)
		cancel()
		if err == nil {
			s.conn = conn
			s.log.Info("connected to simulator", zap.String("url", s.cfg.URL), zap.Int("attempt", attempt+1))
			return nil
		}
		lastErr = err
		s.log.Warn("simulator connect failed", zap.String("url", s.cfg.URL), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return fmt.Errorf("connect simulator %s: %w", s.cfg.URL, lastErr)
}

// Close 发送关闭帧并释放连接
func (s *WSSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	err := s.conn.Close()
	s.conn = nil
	return err
}

// RemoveDefaultFloor 删除仿真器默认地板对象
func (s *WSSession) RemoveDefaultFloor(ctx context.Context) error {
	if s.cfg.DefaultFloor == "" {
		return nil
	}
	_, err := s.roundTrip(ctx, Request{Op: OpRemoveObject, Name: s.cfg.DefaultFloor}, "")
	return err
}

func (s *WSSession) Instantiate(ctx context.Context, p Placement) (Handle, error) {
	model, err := s.catalog.ModelPath(p.Asset)
	if err != nil {
		return 0, &Error{Op: OpLoadModel, Asset: p.Asset, Msg: err.Error()}
	}
	req := Request{
		Op:         OpLoadModel,
		Model:      model,
		Position:   [3]float64{p.Position.X, p.Position.Y, p.Position.Z},
		KeepHeight: p.KeepHeight,
		Rotation:   p.Rotation,
	}
	h, err := s.roundTrip(ctx, req, p.Asset)
	if err != nil {
		return 0, err
	}
	s.log.Debug("placed", zap.String("asset", string(p.Asset)), zap.Int64("handle", int64(h)))
	return h, nil
}

// roundTrip 发送一个请求并等待对应 id 的应答
func (s *WSSession) roundTrip(ctx context.Context, req Request, asset geometry.Asset) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.nextID++
	req.ID = s.nextID
	deadline := time.Now().Add(s.cfg.AckTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	_ = s.conn.SetWriteDeadline(deadline)
	if err := s.conn.WriteJSON(req); err != nil {
		s.drop()
		return 0, fmt.Errorf("send %s: %w", req.Op, err)
	}
	_ = s.conn.SetReadDeadline(deadline)
	for {
		var resp Response
		if err := s.conn.ReadJSON(&resp); err != nil {
			s.drop()
			return 0, fmt.Errorf("await %s ack: %w", req.Op, err)
		}
		if resp.ID != req.ID {
			// 之前超时请求的迟到应答
			s.log.Debug("discarding stale ack", zap.Uint64("id", resp.ID), zap.Uint64("want", req.ID))
			continue
		}
		if !resp.OK {
			return 0, &Error{Op: req.Op, Asset: asset, Msg: resp.Error}
		}
		return Handle(resp.Handle), nil
	}
}

// drop 连接出错后不可复用，直接丢弃
func (s *WSSession) drop() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

// IsSceneError 判断是否仿真器侧拒绝（连接仍可用）
func IsSceneError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}
