//go:build !linux

package sockopt

import (
	"errors"
	"net"
	"syscall"
)

// ListenConfig 在非Linux系统上的存根实现; reusePort is ignored.
func ListenConfig(reusePort bool) net.ListenConfig {
	return net.ListenConfig{}
}

// IsConnReset reports whether err means the peer dropped the connection
// abruptly rather than closing it.
func IsConnReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNABORTED)
}
