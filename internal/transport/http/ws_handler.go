package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/proto"
	"github.com/vovakirdan/linechat-server/internal/transport/ratelimit"
	"github.com/vovakirdan/linechat-server/internal/utils"
)

// WSHandler upgrades HTTP connections and bridges them to the hub. Each text
// frame from the client is one line; each event is written as one frame.
type WSHandler struct {
	hub          *core.Hub
	buffer       int
	policy       core.OverflowPolicy
	maxLineBytes int
	perMinute    int
	log          *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, opts WSOptions, logger *zerolog.Logger) *WSHandler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &WSHandler{
		hub:          hub,
		buffer:       opts.OutboundBuffer,
		policy:       opts.Overflow,
		maxLineBytes: opts.MaxLineBytes,
		perMinute:    opts.MessagesPerMinute,
		log:          logger,
	}
}

// WSOptions are the per-connection limits of the WebSocket bridge.
type WSOptions struct {
	OutboundBuffer    int
	Overflow          core.OverflowPolicy
	MaxLineBytes      int
	MessagesPerMinute int
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	if h.maxLineBytes > 0 {
		conn.SetReadLimit(int64(h.maxLineBytes))
	}

	session := core.NewSession(utils.NewID(), h.buffer, h.policy)
	session.Remote = r.RemoteAddr
	h.log.Info().Str("session_id", session.ID).Str("remote", session.Remote).Msg("ws client connected")
	h.hub.RegisterClient(session)
	defer h.hub.UnregisterClient(session)

	limiter := ratelimit.New(h.perMinute)
	stop := make(chan struct{})
	defer close(stop)
	limiter.Start(stop)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session, limiter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("session_id", session.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session, limiter *ratelimit.Limiter) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			h.log.Debug().Str("session_id", session.ID).Msg("ignoring binary frame")
			continue
		}

		// A frame may carry several newline separated lines.
		for _, line := range strings.Split(proto.TrimLine(string(data)), "\n") {
			if !limiter.Allow() {
				h.hub.Reject(session, core.RateLimitedError())
				continue
			}
			h.hub.Submit(session, proto.TrimLine(line))
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		select {
		case ev := <-session.Events:
			if err := h.write(ctx, conn, session, ev); err != nil {
				return err
			}
		case <-session.Done():
			for {
				select {
				case ev := <-session.Events:
					if err := h.write(ctx, conn, session, ev); err != nil {
						return err
					}
				default:
					return nil
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) write(ctx context.Context, conn *websocket.Conn, session *core.Session, ev *core.Event) error {
	if err := conn.Write(ctx, websocket.MessageText, []byte(proto.Encode(ev))); err != nil {
		h.log.Error().Err(err).Str("session_id", session.ID).Msg("write ws event")
		return err
	}
	return nil
}
