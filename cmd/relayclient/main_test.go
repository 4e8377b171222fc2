package main

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a strings.Builder safe for the reader goroutine and the test.
type syncBuffer struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}

// idleInput is a stdin stand-in that never delivers a line until closed.
func idleInput(t *testing.T) (*io.PipeReader, *io.PipeWriter) {
	t.Helper()
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	return pr, pw
}

// acceptOne runs handle on the first accepted connection.
func acceptOne(t *testing.T, handle func(conn net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}()
	return ln.Addr().String()
}

func waitRun(t *testing.T, done <-chan error, what string) {
	t.Helper()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("run still blocked 2s after %s", what)
	}
}

func TestRunSendsAndPrints(t *testing.T) {
	received := make(chan string, 1)
	addr := acceptOne(t, func(conn net.Conn) {
		line, _ := bufio.NewReader(conn).ReadString('\n')
		received <- line
		conn.Write([]byte("from relay\n"))
	})

	in, inWriter := idleInput(t)
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- run(context.Background(), addr, in, out) }()

	go inWriter.Write([]byte("hi there\n"))
	select {
	case line := <-received:
		assert.Equal(t, "hi there\n", line)
	case <-time.After(2 * time.Second):
		t.Fatal("relay side received nothing")
	}

	waitRun(t, done, "the relay closed the connection")
	assert.Equal(t, "from relay\n", out.String())
}

func TestRunReturnsWhenRelayClosesWhileInputIdle(t *testing.T) {
	addr := acceptOne(t, func(conn net.Conn) {
		time.Sleep(50 * time.Millisecond)
	})

	in, _ := idleInput(t)
	done := make(chan error, 1)
	go func() { done <- run(context.Background(), addr, in, &syncBuffer{}) }()

	waitRun(t, done, "the relay closed the connection")
}

func TestRunReturnsOnCancelWhileInputIdle(t *testing.T) {
	addr := acceptOne(t, func(conn net.Conn) {
		io.Copy(io.Discard, conn)
	})

	in, _ := idleInput(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, addr, in, &syncBuffer{}) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	waitRun(t, done, "cancel")
}

func TestRunEndsOnInputEOF(t *testing.T) {
	addr := acceptOne(t, func(conn net.Conn) {
		io.Copy(io.Discard, conn)
	})

	done := make(chan error, 1)
	go func() { done <- run(context.Background(), addr, strings.NewReader(""), &syncBuffer{}) }()

	waitRun(t, done, "input ended")
}

func TestRunDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	err = run(context.Background(), addr, strings.NewReader(""), &syncBuffer{})
	assert.Error(t, err)
}
