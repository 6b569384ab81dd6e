package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mj1618/page-tracker/internal/model"
	"go.uber.org/zap"
)

const (
	sendBuffer = 64
	writeWait  = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	// The API binds to localhost; any local page may watch.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans recorded events out to websocket clients, one JSON event per
// message. A client that falls behind by more than sendBuffer events is
// disconnected.
type Hub struct {
	log *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	detach  func()
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (cl *client) stop() { cl.once.Do(func() { close(cl.send) }) }

func NewHub(log *zap.Logger) *Hub {
	return &Hub{log: log, clients: make(map[*client]struct{})}
}

func (h *Hub) attach(ctrl Controller) {
	h.detach = ctrl.Observe(h.Broadcast)
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues ev for every client without blocking.
func (h *Hub) Broadcast(ev model.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn("encoding event for stream", zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- data:
		default:
			h.log.Warn("stream client too slow, disconnecting", zap.String("remote", cl.conn.RemoteAddr().String()))
			delete(h.clients, cl)
			cl.stop()
		}
	}
}

// Serve upgrades the request and streams events until the client leaves.
func (h *Hub) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("stream client connected", zap.String("remote", conn.RemoteAddr().String()))

	go h.writeLoop(cl)

	// Reads only detect the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(cl)
}

func (h *Hub) writeLoop(cl *client) {
	defer cl.conn.Close()
	for data := range cl.send {
		cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(cl)
			return
		}
	}
	cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
	cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	delete(h.clients, cl)
	h.mu.Unlock()
	cl.stop()
}

// Close detaches from the tracker and disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	detach := h.detach
	h.mu.Unlock()

	if detach != nil {
		detach()
	}
	for cl := range clients {
		cl.stop()
	}
}
