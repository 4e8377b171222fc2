package relay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"linerelay/internal/metrics"
	"linerelay/internal/shared/logger"
)

// Result summarises one fan-out. It is informational only: a failed
// recipient is never reported back to the sender as an error.
type Result struct {
	Delivered int
	Failed    int
}

// Observer is notified of membership changes and completed fan-outs.
// Callbacks run on the caller's goroutine and must not block.
type Observer interface {
	OnJoin(p *Peer, active int)
	OnLeave(p *Peer, active int)
	OnRelay(from *Peer, msg string, res Result)
}

// Registry is the set of live peers plus the fan-out operation.
type Registry struct {
	mu       sync.RWMutex
	peers    map[*Peer]struct{}
	observer Observer
	log      zerolog.Logger
}

// Option configures a Registry.
type Option func(r *Registry)

// WithObserver attaches an Observer.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) {
		r.log = l
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		peers: make(map[*Peer]struct{}),
		log:   logger.WithComponent("relay"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register adds p. Registering a peer that is already present is a no-op.
func (r *Registry) Register(p *Peer) {
	r.mu.Lock()
	if _, ok := r.peers[p]; ok {
		r.mu.Unlock()
		return
	}
	r.peers[p] = struct{}{}
	active := len(r.peers)
	r.mu.Unlock()

	metrics.ConnectionsCurrent.Inc()
	if r.observer != nil {
		r.observer.OnJoin(p, active)
	}
}

// Deregister removes p if present and reports whether it was.
func (r *Registry) Deregister(p *Peer) bool {
	r.mu.Lock()
	if _, ok := r.peers[p]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.peers, p)
	active := len(r.peers)
	r.mu.Unlock()

	metrics.ConnectionsCurrent.Dec()
	if r.observer != nil {
		r.observer.OnLeave(p, active)
	}
	return true
}

// Len returns the number of registered peers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// Peers returns a snapshot of the registered peers.
func (r *Registry) Peers() []*Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*Peer, 0, len(r.peers))
	for p := range r.peers {
		list = append(list, p)
	}
	return list
}

// Broadcast sends msg to every registered peer except exclude and waits
// until each send has finished. Recipients are written concurrently; a
// failing recipient is logged and skipped.
func (r *Registry) Broadcast(msg string, exclude *Peer) Result {
	start := time.Now()

	r.mu.RLock()
	targets := make([]*Peer, 0, len(r.peers))
	for p := range r.peers {
		if p != exclude {
			targets = append(targets, p)
		}
	}
	r.mu.RUnlock()

	var delivered, failed atomic.Int64
	send := func(p *Peer) {
		if err := p.Send(msg); err != nil {
			failed.Add(1)
			metrics.Deliveries.WithLabelValues("failed").Inc()
			r.log.Warn().Err(err).Str("peer", p.Addr).Str("trace_id", p.ID).Msg("Could not deliver message to peer")
			return
		}
		delivered.Add(1)
		metrics.Deliveries.WithLabelValues("ok").Inc()
	}

	if len(targets) == 1 {
		send(targets[0])
	} else {
		var wg sync.WaitGroup
		for _, p := range targets {
			wg.Add(1)
			go func(p *Peer) {
				defer wg.Done()
				send(p)
			}(p)
		}
		wg.Wait()
	}

	res := Result{Delivered: int(delivered.Load()), Failed: int(failed.Load())}
	metrics.FanoutDuration.Observe(time.Since(start).Seconds())
	if r.observer != nil {
		r.observer.OnRelay(exclude, msg, res)
	}
	return res
}
