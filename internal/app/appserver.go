package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"linerelay/internal/core/gateway"
	"linerelay/internal/core/relay"
	"linerelay/internal/service/web"
	"linerelay/internal/shared"
	"linerelay/internal/shared/logger"
	"linerelay/internal/shared/types"
)

// AppServer is the application's main struct.
type AppServer struct {
	cfg     *types.Config
	version string

	registry *relay.Registry
	gateway  *gateway.Gateway
	hub      *web.Hub
	web      *web.Server
	traffic  *shared.Traffic

	startedAt time.Time
	stop      chan struct{}
	stopOnce  sync.Once
}

// AppServer must implement the monitor's StatusProvider.
var _ web.StatusProvider = (*AppServer)(nil)

// New wires the registry, gateway and monitor from cfg.
func New(cfg *types.Config, version string) *AppServer {
	s := &AppServer{
		cfg:       cfg,
		version:   version,
		hub:       web.NewHub(),
		traffic:   &shared.Traffic{},
		startedAt: time.Now(),
		stop:      make(chan struct{}),
	}

	var opts []relay.Option
	if s.monitorEnabled() {
		opts = append(opts, relay.WithObserver(s.hub))
	}
	s.registry = relay.NewRegistry(opts...)
	s.gateway = gateway.New(cfg.RelayConf, s.registry, gateway.WithTraffic(s.traffic))
	s.web = web.NewServer(cfg.WebConf, s, s.hub, version)
	return s
}

func (s *AppServer) monitorEnabled() bool {
	return s.cfg.WebPort > 0
}

// Run binds the relay and serves until ctx is done or Stop is called.
// A bind failure is returned before anything else starts.
func (s *AppServer) Run(ctx context.Context) error {
	logger.Info().Str("version", s.version).Msg("Starting relay...")

	if _, err := s.gateway.InitializeListener(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.gateway.Serve)
	g.Go(func() error {
		<-gctx.Done()
		s.gateway.Close()
		return nil
	})

	if s.monitorEnabled() {
		g.Go(func() error {
			s.hub.Run(gctx)
			return nil
		})
		g.Go(func() error {
			// The monitor is auxiliary; its failure must not take the relay down.
			if err := s.web.ListenAndServe(gctx); err != nil {
				logger.Error().Err(err).Msg("Monitor failed")
			}
			return nil
		})
		g.Go(func() error {
			s.statsLoop(gctx)
			return nil
		})
	} else {
		logger.Info().Msg("Monitor is disabled.")
	}

	return g.Wait()
}

// Stop asks Run to shut down. Safe to call more than once.
func (s *AppServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// GetListenerInfo implements web.StatusProvider.
func (s *AppServer) GetListenerInfo() *types.ListenerInfo {
	return s.gateway.GetListenerInfo()
}

// GetPeers implements web.StatusProvider, oldest connection first.
func (s *AppServer) GetPeers() []types.PeerInfo {
	peers := s.registry.Peers()
	infos := make([]types.PeerInfo, 0, len(peers))
	for _, p := range peers {
		infos = append(infos, types.PeerInfo{TraceID: p.ID, Addr: p.Addr, ConnectedAt: p.ConnectedAt})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ConnectedAt.Before(infos[j].ConnectedAt)
	})
	return infos
}

// GetTrafficTotals implements web.StatusProvider.
func (s *AppServer) GetTrafficTotals() (uint64, uint64) {
	return s.traffic.Totals()
}

// Uptime implements web.StatusProvider.
func (s *AppServer) Uptime() time.Duration {
	return time.Since(s.startedAt)
}

func (s *AppServer) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(s.cfg.StatsInterval) * time.Second)
	defer ticker.Stop()

	var lastUplink, lastDownlink uint64
	var lastTimestamp time.Time

	for {
		select {
		case <-ticker.C:
			s.hub.BroadcastDashboardUpdate(s.collectStats(&lastUplink, &lastDownlink, &lastTimestamp))
		case <-ctx.Done():
			return
		}
	}
}

// collectStats computes byte rates since the previous call and advances
// the given cursors.
func (s *AppServer) collectStats(lastUplink, lastDownlink *uint64, lastTimestamp *time.Time) *types.DashboardStats {
	currentUplink, currentDownlink := s.traffic.Totals()
	now := time.Now()

	var upRate, downRate uint64
	if !lastTimestamp.IsZero() {
		if elapsed := now.Sub(*lastTimestamp).Seconds(); elapsed > 0 {
			upRate = uint64(float64(currentUplink-*lastUplink) / elapsed)
			downRate = uint64(float64(currentDownlink-*lastDownlink) / elapsed)
		}
	}
	*lastUplink, *lastDownlink, *lastTimestamp = currentUplink, currentDownlink, now

	return &types.DashboardStats{
		Timestamp:    now,
		ActivePeers:  s.registry.Len(),
		UplinkRate:   upRate,
		DownlinkRate: downRate,
	}
}
