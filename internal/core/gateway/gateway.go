package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"

	"linerelay/internal/core/relay"
	"linerelay/internal/metrics"
	"linerelay/internal/shared"
	"linerelay/internal/shared/logger"
	"linerelay/internal/shared/types"
	"linerelay/internal/sys/sockopt"
)

// Disconnect reasons, also used as metric labels.
const (
	reasonEOF    = "eof"
	reasonReset  = "reset"
	reasonClosed = "closed"
	reasonError  = "error"
)

const (
	defaultReadBufferSize = 1024
	maxAcceptDelay        = time.Second
)

// ErrNotInitialized is returned by Serve when no listener is bound yet.
var ErrNotInitialized = errors.New("gateway: Serve called before InitializeListener")

// Gateway accepts TCP connections and runs one handler goroutine per peer.
type Gateway struct {
	cfg          types.RelayConf
	registry     *relay.Registry
	traffic      *shared.Traffic
	listener     net.Listener
	listenerInfo atomic.Pointer[types.ListenerInfo]
	log          zerolog.Logger
	closing      atomic.Bool
	closeOnce    sync.Once
	waitGroup    sync.WaitGroup
}

// Option configures a Gateway.
type Option func(g *Gateway)

// WithTraffic counts bytes of every accepted connection into t.
func WithTraffic(t *shared.Traffic) Option {
	return func(g *Gateway) {
		g.traffic = t
	}
}

// New creates a Gateway that registers peers into registry.
func New(cfg types.RelayConf, registry *relay.Registry, opts ...Option) *Gateway {
	if cfg.ReadBufferSize < 16 {
		cfg.ReadBufferSize = defaultReadBufferSize
	}
	if cfg.Framing == "" {
		cfg.Framing = types.FramingLine
	}
	g := &Gateway{
		cfg:      cfg,
		registry: registry,
		log:      logger.WithComponent("gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// InitializeListener binds the configured address without blocking.
// Port 0 picks an ephemeral port; the bound address is returned.
func (g *Gateway) InitializeListener() (*types.ListenerInfo, error) {
	listenAddr := net.JoinHostPort(g.cfg.BindAddress, strconv.Itoa(g.cfg.Port))
	lc := sockopt.ListenConfig(g.cfg.ReusePort)
	listener, err := lc.Listen(context.Background(), "tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("gateway failed to listen on %s: %w", listenAddr, err)
	}
	tcpAddr := listener.Addr().(*net.TCPAddr)
	if g.cfg.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, g.cfg.MaxConnections)
	}
	g.listener = listener
	info := &types.ListenerInfo{
		Address: tcpAddr.IP.String(),
		Port:    tcpAddr.Port,
	}
	g.listenerInfo.Store(info)
	g.log.Info().
		Str("listen_addr", tcpAddr.String()).
		Str("framing", g.cfg.Framing).
		Int("max_connections", g.cfg.MaxConnections).
		Msg("Relay is listening")
	return info, nil
}

// GetListenerInfo returns the bound address, or nil before InitializeListener.
// Safe to call from any goroutine.
func (g *Gateway) GetListenerInfo() *types.ListenerInfo {
	return g.listenerInfo.Load()
}

// Serve runs the blocking accept loop until Close is called.
func (g *Gateway) Serve() error {
	if g.listener == nil {
		return ErrNotInitialized
	}
	if g.closing.Load() {
		return nil
	}
	g.waitGroup.Add(1)
	defer g.waitGroup.Done()
	return g.acceptLoop()
}

func (g *Gateway) acceptLoop() error {
	var delay time.Duration
	for {
		conn, err := g.listener.Accept()
		if err != nil {
			if g.closing.Load() || errors.Is(err, net.ErrClosed) {
				g.log.Info().Msg("Relay listener is closing")
				return nil
			}
			metrics.AcceptErrors.Inc()
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay *= 2
			}
			if delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			g.log.Warn().Err(err).Dur("retry_in", delay).Msg("Relay failed to accept connection")
			time.Sleep(delay)
			continue
		}
		delay = 0
		g.waitGroup.Add(1)
		go g.handleConnection(conn)
	}
}

// handleConnection owns one peer from registration to deregistration.
func (g *Gateway) handleConnection(conn net.Conn) {
	defer g.waitGroup.Done()
	metrics.ConnectionsTotal.Inc()

	peer := relay.NewPeer(shared.NewCountedConn(conn, g.traffic))
	l := g.log.With().Str("trace_id", peer.ID).Str("peer", peer.Addr).Logger()

	g.registry.Register(peer)
	l.Info().Msg("Peer connected")
	if g.closing.Load() {
		// Close may have snapshotted the registry before this peer joined.
		peer.Close()
	}

	reason, err := g.readLoop(peer, l)

	g.registry.Deregister(peer)
	peer.Close()
	metrics.Disconnects.WithLabelValues(reason).Inc()

	ev := l.Info()
	if reason == reasonError {
		ev = l.Warn().Err(err)
	}
	ev.Str("reason", reason).Dur("duration", time.Since(peer.ConnectedAt)).Msg("Peer disconnected")
}

// readLoop relays every non-blank message until the stream ends and returns
// why it ended.
func (g *Gateway) readLoop(peer *relay.Peer, l zerolog.Logger) (string, error) {
	frames := NewFrameReader(g.cfg.Framing, peer.Conn(), g.cfg.ReadBufferSize)
	for {
		msg, err := frames.Next()
		if err != nil {
			return disconnectReason(err), err
		}
		if isBlank(msg) {
			metrics.MessagesDiscarded.Inc()
			continue
		}
		metrics.MessagesReceived.Inc()
		l.Debug().Str("message", msg).Msg("Received")
		g.registry.Broadcast(msg, peer)
	}
}

func disconnectReason(err error) string {
	switch {
	case errors.Is(err, io.EOF):
		return reasonEOF
	case sockopt.IsConnReset(err):
		return reasonReset
	case errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe):
		return reasonClosed
	default:
		return reasonError
	}
}

// Close stops accepting, closes every live peer and waits for handlers.
func (g *Gateway) Close() {
	g.closeOnce.Do(func() {
		g.closing.Store(true)
		if g.listener != nil {
			g.listener.Close()
		}
		for _, p := range g.registry.Peers() {
			p.Close()
		}
		g.waitGroup.Wait()
		g.log.Info().Msg("Relay has been shut down")
	})
}
