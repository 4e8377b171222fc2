// relayclient is a small interactive client for manual relay testing.
// Lines typed on stdin are sent to the relay and every line received from
// it is printed to stdout.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"linerelay/internal/shared/logger"
	"linerelay/internal/shared/types"
)

func main() {
	address := flag.String("addr", "127.0.0.1:4509", "Relay address")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	if err := logger.Init(types.LogConf{Level: *logLevel}); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *address, os.Stdin, os.Stdout); err != nil {
		logger.Error().Err(err).Msg("Client exited with error")
		os.Exit(1)
	}
}

// run relays in → conn and conn → out. It returns once the relay closes the
// connection, in ends, or ctx is done.
func run(ctx context.Context, address string, in io.Reader, out io.Writer) error {
	conn, err := net.DialTimeout("tcp", address, 5*time.Second)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", address, err)
	}
	logger.Info().Str("relay", conn.RemoteAddr().String()).Msg("Connected")

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A blocked read on in cannot be interrupted, so the input pump stays
	// outside the group and is abandoned when the session ends.
	sendErr := make(chan error, 1)
	go func() {
		defer cancel()
		sendErr <- pumpInput(conn, in)
	}()

	g, gctx := errgroup.WithContext(sessionCtx)
	g.Go(func() error {
		<-gctx.Done()
		return conn.Close()
	})
	g.Go(func() error {
		defer cancel()
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			fmt.Fprintln(out, scanner.Text())
		}
		if ctx.Err() == nil {
			logger.Info().Msg("Relay closed the connection")
		}
		return nil
	})
	g.Wait()

	select {
	case err := <-sendErr:
		if err != nil && ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
	default:
	}
	return nil
}

func pumpInput(conn net.Conn, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if _, err := fmt.Fprintf(conn, "%s\n", scanner.Text()); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}
	return scanner.Err()
}
