//go:build linux

package sockopt

import (
	"errors"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// ListenConfig returns a ListenConfig that sets SO_REUSEPORT on the
// listening socket when reusePort is true.
func ListenConfig(reusePort bool) net.ListenConfig {
	if !reusePort {
		return net.ListenConfig{}
	}
	return net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			if err := c.Control(func(fd uintptr) {
				sockErr = setReusePort(fd)
			}); err != nil {
				return err
			}
			return sockErr
		},
	}
}

// IsConnReset reports whether err means the peer dropped the connection
// abruptly rather than closing it.
func IsConnReset(err error) bool {
	return errors.Is(err, unix.ECONNRESET) ||
		errors.Is(err, unix.EPIPE) ||
		errors.Is(err, unix.ECONNABORTED) ||
		errors.Is(err, unix.ETIMEDOUT)
}

func setReusePort(fd uintptr) error {
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		return fmt.Errorf("failed to set SO_REUSEPORT: %w", err)
	}
	return nil
}
