package types

import "time"

// ListenerInfo holds the runtime listening info of the relay gateway.
type ListenerInfo struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
}

// DashboardStats 定义了监控面板所需的实时统计数据
type DashboardStats struct {
	Timestamp    time.Time `json:"timestamp"`
	ActivePeers  int       `json:"active_peers"`
	UplinkRate   uint64    `json:"uplink_rate"`   // bytes per second written to peers
	DownlinkRate uint64    `json:"downlink_rate"` // bytes per second read from peers
}

// PeerInfo describes one registered peer for the monitor API.
type PeerInfo struct {
	TraceID     string    `json:"trace_id"`
	Addr        string    `json:"addr"`
	ConnectedAt time.Time `json:"connected_at"`
}
