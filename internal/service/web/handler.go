package web

import (
	"encoding/json"
	"net/http"
	"time"

	"linerelay/internal/shared/types"
)

// StatusProvider is what the monitor needs from the AppServer.
// This decouples the web package from the app package.
type StatusProvider interface {
	GetListenerInfo() *types.ListenerInfo
	GetPeers() []types.PeerInfo
	GetTrafficTotals() (uplink, downlink uint64)
	Uptime() time.Duration
}

// Handler serves the read-only JSON API.
type Handler struct {
	provider StatusProvider
	version  string
}

func NewHandler(provider StatusProvider, version string) *Handler {
	return &Handler{provider: provider, version: version}
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Version       string              `json:"version"`
	Listener      *types.ListenerInfo `json:"listener"`
	ActivePeers   int                 `json:"active_peers"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	Uplink        uint64              `json:"uplink"`
	Downlink      uint64              `json:"downlink"`
}

// HandleStatus 处理 GET /api/status 请求
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	up, down := h.provider.GetTrafficTotals()
	response := StatusResponse{
		Version:       h.version,
		Listener:      h.provider.GetListenerInfo(),
		ActivePeers:   len(h.provider.GetPeers()),
		UptimeSeconds: int64(h.provider.Uptime() / time.Second),
		Uplink:        up,
		Downlink:      down,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// HandleGetPeers 处理 GET /api/peers 请求，返回当前注册的连接列表。
func (h *Handler) HandleGetPeers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	peers := h.provider.GetPeers()
	if peers == nil {
		peers = []types.PeerInfo{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(peers)
}
