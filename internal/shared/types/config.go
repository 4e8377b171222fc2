package types

// Framing modes for splitting an inbound byte stream into messages.
const (
	FramingLine  = "line"
	FramingChunk = "chunk"
)

// RelayConf holds the listener and per-connection read settings.
type RelayConf struct {
	BindAddress    string `ini:"bind_address"`
	Port           int    `ini:"port"`
	Framing        string `ini:"framing"`          // line | chunk
	ReadBufferSize int    `ini:"read_buffer_size"` // bytes per read call
	MaxConnections int    `ini:"max_connections"`  // 0 = unlimited
	ReusePort      bool   `ini:"reuse_port"`       // SO_REUSEPORT, Linux only
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level"`
}

// WebConf configures the read-only monitor. WebPort 0 disables it.
type WebConf struct {
	WebPort       int    `ini:"web_port"`
	WebUser       string `ini:"web_user"`
	WebPassword   string `ini:"web_password"`
	StatsInterval int    `ini:"stats_interval"` // seconds
}

// Config 是relay项目的统一配置结构体
type Config struct {
	RelayConf `ini:"relay"`
	LogConf   `ini:"log"`
	WebConf   `ini:"web"`
}
