package shared

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountedConn(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	traffic := &Traffic{}
	counted := NewCountedConn(server, traffic)

	go func() {
		_, _ = client.Write([]byte("hello"))
		buf := make([]byte, 3)
		_, _ = io.ReadFull(client, buf)
	}()

	buf := make([]byte, 5)
	_, err := io.ReadFull(counted, buf)
	require.NoError(t, err)
	_, err = counted.Write([]byte("hi\n"))
	require.NoError(t, err)

	up, down := traffic.Totals()
	assert.EqualValues(t, 3, up)
	assert.EqualValues(t, 5, down)
}

func TestNewCountedConn_NilTraffic(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	assert.Same(t, server, NewCountedConn(server, nil))
}
