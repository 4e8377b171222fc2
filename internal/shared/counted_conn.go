package shared

import (
	"net"
	"sync/atomic"
)

// Traffic accumulates bytes relayed through every CountedConn sharing it.
type Traffic struct {
	uplink   atomic.Uint64 // written to peers
	downlink atomic.Uint64 // read from peers
}

// Totals returns the running byte counts.
func (t *Traffic) Totals() (uplink, downlink uint64) {
	return t.uplink.Load(), t.downlink.Load()
}

// CountedConn is a net.Conn that reports its traffic into a shared Traffic.
type CountedConn struct {
	net.Conn
	traffic *Traffic
}

// NewCountedConn wraps conn. A nil traffic disables counting.
func NewCountedConn(conn net.Conn, traffic *Traffic) net.Conn {
	if traffic == nil {
		return conn
	}
	return &CountedConn{Conn: conn, traffic: traffic}
}

// Read reads from the underlying connection and adds to the downlink count.
func (c *CountedConn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	if n > 0 {
		c.traffic.downlink.Add(uint64(n))
	}
	return n, err
}

// Write writes to the underlying connection and adds to the uplink count.
func (c *CountedConn) Write(b []byte) (int, error) {
	n, err := c.Conn.Write(b)
	if n > 0 {
		c.traffic.uplink.Add(uint64(n))
	}
	return n, err
}
