package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"linerelay/internal/shared/logger"
	"linerelay/internal/shared/types"
)

// loggingListener logs accepted monitor connections at debug level.
type loggingListener struct {
	net.Listener
}

func (l loggingListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err == nil {
		logger.Debug().Str("remote_addr", conn.RemoteAddr().String()).Msg("[WebServer] Connection accepted")
	}
	return conn, err
}

// basicAuthMiddleware 检查 web_user 和 web_password 是否已配置。
// 如果配置了，它将强制执行 HTTP Basic Authentication。
func basicAuthMiddleware(next http.Handler, user, pass string) http.Handler {
	if user == "" || pass == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Unauthorized.\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Server is the optional monitor HTTP server.
type Server struct {
	cfg     types.WebConf
	handler http.Handler
}

// NewServer builds the monitor routes.
func NewServer(cfg types.WebConf, provider StatusProvider, hub *Hub, version string) *Server {
	handler := NewHandler(provider, version)
	mux := http.NewServeMux()

	webUser := cfg.WebUser
	webPassword := cfg.WebPassword

	mux.Handle("/api/status", basicAuthMiddleware(http.HandlerFunc(handler.HandleStatus), webUser, webPassword))
	mux.Handle("/api/peers", basicAuthMiddleware(http.HandlerFunc(handler.HandleGetPeers), webUser, webPassword))
	mux.Handle("/metrics", basicAuthMiddleware(promhttp.Handler(), webUser, webPassword))

	// --- WebSocket Endpoint (公开，无需认证) ---
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	})

	return &Server{cfg: cfg, handler: mux}
}

// Handler exposes the routes, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until ctx is done. It returns nil when the monitor
// is disabled or after a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.cfg.WebPort <= 0 {
		logger.Info().Msg("[WebServer] Monitor is disabled (web_port is 0 or not set).")
		return nil
	}

	addr := fmt.Sprintf("0.0.0.0:%d", s.cfg.WebPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start monitor on %s: %w", addr, err)
	}
	logger.Info().Msgf("Monitor is listening on http://%s", addr)

	srv := &http.Server{Handler: s.handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(loggingListener{Listener: listener}); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("monitor server error: %w", err)
	}
	logger.Info().Msg("[WebServer] Monitor stopped.")
	return nil
}
