package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mazeworld/geometry"
	"mazeworld/scene"
)

// ClientConn 观察者连接：只负责把事件写给客户端
type ClientConn struct {
	ws    *websocket.Conn
	send  chan []byte
	runID string // 为空表示订阅全部运行
}

func NewClientConn(ws *websocket.Conn, runID string) *ClientConn {
	return &ClientConn{
		ws:    ws,
		send:  make(chan []byte, 64),
		runID: runID,
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) {
	select {
	case c.send <- b:
	default:
		// 观察者太慢时丢弃，不能拖慢派发
	}
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *ClientConn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump 只读取控制帧；读失败即视为断开
func (c *ClientConn) readPump(h *Hub) {
	defer h.Remove(c)
	c.ws.SetReadLimit(1 << 10)
	c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	}
}

// Hub 观察者集合；Publish 与 Remove 在同一把锁下，避免向已关闭的通道发送
type Hub struct {
	mu      sync.Mutex
	clients map[*ClientConn]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*ClientConn]struct{})}
}

func (h *Hub) Add(c *ClientConn) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Remove(c *ClientConn) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) Count() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) publish(runID string, v any) {
	if h == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		Log.Errorw("encode watch event", "error", err)
		return
	}
	h.mu.Lock()
	for c := range h.clients {
		if c.runID == "" || c.runID == runID {
			c.Enqueue(b)
		}
	}
	h.mu.Unlock()
}

// PublishPlacement 广播单条指令的提交结果
func (h *Hub) PublishPlacement(runID string, index int, d geometry.Directive, handle scene.Handle, err error) {
	ev := PlacementEvent{Type: "placement", Run: runID, Index: index, Directive: d, Handle: int64(handle)}
	if err != nil {
		ev.Error = err.Error()
	}
	h.publish(runID, ev)
}

// PublishStatus 广播运行状态变化
func (h *Hub) PublishStatus(st RunState) {
	h.publish(st.ID, StatusEvent{Type: "status", Run: st.ID, Status: st.Status, Error: st.Error, Progress: st.Progress, Total: st.Total})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 观察流只读，允许所有来源
		return true
	},
}

// HandleWatch WebSocket 观察接入：/ws?run=<id>，不带 run 则接收全部
func HandleWatch(h *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			Log.Warnw("upgrade error", "error", err)
			return
		}
		client := NewClientConn(ws, r.URL.Query().Get("run"))
		h.Add(client)
		Log.Debugw("watcher joined", "run", client.runID, "remote", r.RemoteAddr)

		go client.writePump()
		go client.readPump(h)
	}
}
