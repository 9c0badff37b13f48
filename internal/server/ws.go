package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"thumbcode/internal/logging"
	"thumbcode/internal/orchestrator"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 45 * time.Second
	wsSendBufferSize = 32
)

// Hub fans orchestrator events out to connected WebSocket clients.
type Hub struct {
	upgrader websocket.Upgrader
	logger   logging.Logger

	mu          sync.RWMutex
	connections map[string]*wsConnection
	closed      bool
	unsubscribe func()
}

type wsConnection struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// NewHub builds an empty hub.
func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The server binds to localhost; cross-origin pages cannot
			// reach it, so origin checks stay permissive.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:      logging.OrNop(logger),
		connections: make(map[string]*wsConnection),
	}
}

// Attach subscribes the hub to manager events.
func (h *Hub) Attach(manager *orchestrator.Manager) {
	h.unsubscribe = manager.Subscribe(func(event orchestrator.Event) {
		h.Broadcast(event)
	})
}

// Broadcast sends an event to every connected client. Slow clients that
// cannot drain their buffer are disconnected rather than blocking the rest.
func (h *Hub) Broadcast(event orchestrator.Event) {
	payload, err := wsMarshal(event)
	if err != nil {
		h.logger.Error("marshal event: %v", err)
		return
	}

	h.mu.RLock()
	stale := make([]string, 0)
	for id, conn := range h.connections {
		select {
		case conn.send <- payload:
		default:
			stale = append(stale, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range stale {
		h.logger.Warn("disconnecting slow websocket client %s", id)
		h.remove(id)
	}
}

// HandleConnection upgrades the request and serves it until the client
// disconnects.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed: %v", err)
		return
	}

	wc := &wsConnection{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, wsSendBufferSize),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.connections[wc.id] = wc
	h.mu.Unlock()

	h.logger.Debug("websocket client %s connected", wc.id)
	go h.writePump(wc)
	h.readPump(wc)
}

func (h *Hub) writePump(wc *wsConnection) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-wc.send:
			_ = wc.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = wc.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := wc.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = wc.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := wc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages; the socket is one-way. It exists to
// notice disconnects and answer pings.
func (h *Hub) readPump(wc *wsConnection) {
	defer h.remove(wc.id)

	wc.conn.SetReadLimit(4096)
	_ = wc.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	wc.conn.SetPongHandler(func(string) error {
		return wc.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := wc.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	wc, ok := h.connections[id]
	if ok {
		delete(h.connections, id)
		// Broadcast sends under the read lock, so closing here cannot
		// race a send on the same channel.
		close(wc.send)
	}
	h.mu.Unlock()

	if ok {
		_ = wc.conn.Close()
		h.logger.Debug("websocket client %s disconnected", id)
	}
}

func wsMarshal(event orchestrator.Event) ([]byte, error) {
	return json.Marshal(event)
}

// ConnectionCount reports the number of live clients.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Close disconnects every client and stops accepting new ones.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}

	h.mu.Lock()
	h.closed = true
	connections := h.connections
	h.connections = make(map[string]*wsConnection)
	for _, wc := range connections {
		close(wc.send)
	}
	h.mu.Unlock()

	for _, wc := range connections {
		_ = wc.conn.Close()
	}
}
