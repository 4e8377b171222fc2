package relay

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrPeerClosed is returned by Send once the peer has been closed.
var ErrPeerClosed = errors.New("relay: peer closed")

// Peer is one accepted connection. Its handler owns it; the Registry only
// references it while registered.
type Peer struct {
	ID          string
	Addr        string
	ConnectedAt time.Time

	conn    net.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

// NewPeer wraps conn with a fresh trace id.
func NewPeer(conn net.Conn) *Peer {
	addr := ""
	if ra := conn.RemoteAddr(); ra != nil {
		addr = ra.String()
	}
	return &Peer{
		ID:          uuid.NewString(),
		Addr:        addr,
		ConnectedAt: time.Now(),
		conn:        conn,
	}
}

// Conn returns the transport. Only the owning handler reads from it.
func (p *Peer) Conn() net.Conn {
	return p.conn
}

// Send writes msg followed by a newline. Writes from concurrent
// broadcasters are serialized so messages never interleave on the wire.
func (p *Peer) Send(msg string) error {
	if p.closed.Load() {
		return ErrPeerClosed
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.closed.Load() {
		return ErrPeerClosed
	}
	if _, err := io.WriteString(p.conn, msg+"\n"); err != nil {
		return fmt.Errorf("send to %s: %w", p.Addr, err)
	}
	return nil
}

// Close marks the peer closed and closes its transport. Closing the
// transport also unblocks a Send stuck on a slow reader. Safe to call more
// than once; only the first call closes.
func (p *Peer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.conn.Close()
}

// Closed reports whether Close has been called.
func (p *Peer) Closed() bool {
	return p.closed.Load()
}

func (p *Peer) String() string {
	id := p.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return p.Addr + "/" + id
}
