package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"linerelay/internal/core/relay"
	"linerelay/internal/shared/logger"
	"linerelay/internal/shared/types"
)

const hubBufferSize = 256

// PeerEvent is pushed when a peer joins or leaves the relay.
type PeerEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	TraceID     string    `json:"trace_id"`
	Addr        string    `json:"addr"`
	ActivePeers int       `json:"active_peers"`
}

// RelayLogEntry describes one completed fan-out. Message bodies are not
// forwarded to watchers, only their size.
type RelayLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"trace_id"`
	Addr      string    `json:"addr"`
	Bytes     int       `json:"bytes"`
	Delivered int       `json:"delivered"`
	Failed    int       `json:"failed"`
}

// WebSocketMessage 定义了 WebSocket 消息的通用格式
type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of active watchers and broadcasts relay events to
// them. It never writes into the relay itself.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mu         sync.Mutex
}

var _ relay.Observer = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, hubBufferSize),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		clients:    make(map[*websocket.Conn]bool),
	}
}

// Run pumps events to watchers until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()
			logger.Info().Str("remote_addr", conn.RemoteAddr().String()).Msg("WebSocket watcher registered.")
		case conn := <-h.unregister:
			h.drop(conn)
		case message := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					logger.Warn().Err(err).Str("remote_addr", conn.RemoteAddr().String()).Msg("Error writing to websocket watcher.")
					delete(h.clients, conn)
					conn.Close()
				}
			}
			h.mu.Unlock()
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
		logger.Info().Str("remote_addr", conn.RemoteAddr().String()).Msg("WebSocket watcher unregistered.")
	}
}

// Len returns the number of connected watchers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// publish queues an event. A full queue drops it so relay goroutines never
// wait on the monitor.
func (h *Hub) publish(kind string, data interface{}) {
	jsonMsg, err := json.Marshal(WebSocketMessage{Type: kind, Data: data})
	if err != nil {
		logger.Error().Err(err).Str("type", kind).Msg("Hub: Failed to marshal event")
		return
	}
	select {
	case h.broadcast <- jsonMsg:
	default:
		// Do not log warning for full channel here to avoid log spam
	}
}

// OnJoin implements relay.Observer.
func (h *Hub) OnJoin(p *relay.Peer, active int) {
	h.publish("peer_joined", &PeerEvent{Timestamp: time.Now(), TraceID: p.ID, Addr: p.Addr, ActivePeers: active})
}

// OnLeave implements relay.Observer.
func (h *Hub) OnLeave(p *relay.Peer, active int) {
	h.publish("peer_left", &PeerEvent{Timestamp: time.Now(), TraceID: p.ID, Addr: p.Addr, ActivePeers: active})
}

// OnRelay implements relay.Observer.
func (h *Hub) OnRelay(from *relay.Peer, msg string, res relay.Result) {
	entry := &RelayLogEntry{
		Timestamp: time.Now(),
		Bytes:     len(msg),
		Delivered: res.Delivered,
		Failed:    res.Failed,
	}
	if from != nil {
		entry.TraceID = from.ID
		entry.Addr = from.Addr
	}
	h.publish("relay", entry)
}

// BroadcastDashboardUpdate 广播仪表盘的实时统计数据
func (h *Hub) BroadcastDashboardUpdate(stats *types.DashboardStats) {
	h.publish("dashboard_update", stats)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // Allow all origins
}

// ServeWs handles websocket requests from the peer.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to upgrade websocket")
		return
	}
	select {
	case hub.register <- conn:
	case <-hub.done:
		conn.Close()
		return
	}

	// This is a read pump. It's needed to detect when a watcher closes the connection.
	go func() {
		defer func() {
			select {
			case hub.unregister <- conn:
			case <-hub.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Warn().Err(err).Msg("Unexpected websocket close error")
				}
				break
			}
		}
	}()
}
