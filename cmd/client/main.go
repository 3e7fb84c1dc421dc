package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/linechat-server/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		addr     string
		timeout  time.Duration
		logLevel string
	)

	cmd := &cobra.Command{
		Use:          "linechat",
		Short:        "Terminal client for a linechat server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.NewWithWriter(logLevel, os.Stderr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dialer := net.Dialer{Timeout: timeout}
			conn, err := dialer.DialContext(ctx, "tcp", addr)
			if err != nil {
				return fmt.Errorf("connect %s: %w", addr, err)
			}
			defer conn.Close()
			logger.Debug().Str("addr", addr).Msg("connected")

			return run(ctx, conn, os.Stdin, os.Stdout)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&addr, "addr", "localhost:3333", "server address")
	flags.DurationVar(&timeout, "timeout", 5*time.Second, "dial timeout")
	flags.StringVar(&logLevel, "log-level", "warn", "log level for client diagnostics")

	cmd.SetContext(context.Background())
	return cmd
}

// run relays in to conn and conn to out. It returns when the server hangs up
// or ctx is cancelled; the end of in only stops sending.
func run(ctx context.Context, conn net.Conn, in io.Reader, out io.Writer) error {
	recvErr := make(chan error, 1)
	go func() {
		_, err := io.Copy(out, conn)
		recvErr <- err
	}()
	go func() {
		_, _ = io.Copy(conn, in)
	}()

	select {
	case err := <-recvErr:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("read from server: %w", err)
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}
