package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/config"
	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/proto"
	"github.com/vovakirdan/linechat-server/internal/transport/ratelimit"
	"github.com/vovakirdan/linechat-server/internal/utils"
)

const writeTimeout = 10 * time.Second

// Server accepts line-oriented TCP clients and bridges them to the hub.
type Server struct {
	hub    *core.Hub
	cfg    config.Config
	policy core.OverflowPolicy
	log    *zerolog.Logger

	wg sync.WaitGroup
}

// NewServer builds a TCP server for the given hub.
func NewServer(hub *core.Hub, cfg config.Config, logger *zerolog.Logger) (*Server, error) {
	policy, err := core.ParseOverflowPolicy(cfg.OverflowPolicy)
	if err != nil {
		return nil, fmt.Errorf("tcp server: %w", err)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Server{hub: hub, cfg: cfg, policy: policy, log: logger}, nil
}

// ListenAndServe listens on the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen tcp %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or ln is closed.
// It waits for every connection handler to return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info().Str("addr", ln.Addr().String()).Msg("tcp listener started")

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
		case <-stop:
		}
	}()

	defer s.wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			s.log.Warn().Err(err).Msg("accept failed")
			time.Sleep(50 * time.Millisecond)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	session := core.NewSession(utils.NewID(), s.cfg.OutboundBuffer, s.policy)
	session.Remote = conn.RemoteAddr().String()
	log := s.log.With().Str("session_id", session.ID).Str("remote", session.Remote).Logger()
	log.Info().Msg("tcp client connected")

	s.hub.RegisterClient(session)
	defer s.hub.UnregisterClient(session)

	limiter := ratelimit.New(s.cfg.MessagesPerMinute)
	limiterStop := make(chan struct{})
	defer close(limiterStop)
	limiter.Start(limiterStop)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.readLoop(conn, session, limiter)
	}()
	go func() {
		errCh <- s.writeLoop(ctx, conn, session)
	}()

	err := <-errCh
	cancel()
	// Unblocks a reader still waiting for input.
	_ = conn.Close()
	<-errCh

	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, context.Canceled), errors.Is(err, net.ErrClosed):
		log.Info().Str("user", session.Name()).Msg("tcp client disconnected")
	default:
		log.Warn().Err(err).Str("user", session.Name()).Msg("tcp connection closed with error")
	}
}

func (s *Server) readLoop(conn net.Conn, session *core.Session, limiter *ratelimit.Limiter) error {
	scanner := bufio.NewScanner(conn)
	// The larger of cap and max bounds a line, so cap must not exceed max.
	scanner.Buffer(make([]byte, 0, min(1024, s.cfg.MaxLineBytes)), s.cfg.MaxLineBytes)

	for scanner.Scan() {
		if !limiter.Allow() {
			s.hub.Reject(session, core.RateLimitedError())
			continue
		}
		s.hub.Submit(session, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read line: %w", err)
	}
	return io.EOF
}

func (s *Server) writeLoop(ctx context.Context, conn net.Conn, session *core.Session) error {
	for {
		select {
		case ev := <-session.Events:
			if err := s.write(conn, ev); err != nil {
				return err
			}
		case <-session.Done():
			return s.flush(conn, session)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// flush writes whatever is still queued once the session has been closed, so
// the goodbye line reaches the client.
func (s *Server) flush(conn net.Conn, session *core.Session) error {
	for {
		select {
		case ev := <-session.Events:
			if err := s.write(conn, ev); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (s *Server) write(conn net.Conn, ev *core.Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := io.WriteString(conn, proto.Encode(ev)); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}
