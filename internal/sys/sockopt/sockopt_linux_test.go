//go:build linux

package sockopt

import (
	"context"
	"fmt"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestListenConfig_ReusePortAllowsSecondBind(t *testing.T) {
	lc := ListenConfig(true)
	first, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer first.Close()

	second, err := lc.Listen(context.Background(), "tcp", first.Addr().String())
	require.NoError(t, err)
	second.Close()
}

func TestListenConfig_WithoutReusePortRejectsSecondBind(t *testing.T) {
	lc := ListenConfig(false)
	first, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer first.Close()

	_, err = lc.Listen(context.Background(), "tcp", first.Addr().String())
	assert.Error(t, err)
}

func TestIsConnReset(t *testing.T) {
	wrapped := &net.OpError{Op: "read", Net: "tcp", Err: os.NewSyscallError("read", unix.ECONNRESET)}
	assert.True(t, IsConnReset(wrapped))
	assert.True(t, IsConnReset(fmt.Errorf("send: %w", unix.EPIPE)))
	assert.False(t, IsConnReset(net.ErrClosed))
	assert.False(t, IsConnReset(nil))
}
