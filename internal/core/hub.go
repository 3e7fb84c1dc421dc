package core

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

type inboundLine struct {
	session *Session
	line    string
}

// Hub serializes every state change on one goroutine: sessions connect,
// disconnect and submit lines through channels, and the hub dispatches them
// in arrival order.
type Hub struct {
	dispatcher *Dispatcher
	directory  *Directory
	rooms      *Rooms
	log        *zerolog.Logger

	register   chan *Session
	unregister chan *Session
	inbound    chan inboundLine
	done       chan struct{}

	sessions map[*Session]struct{}
}

// NewHub creates a hub around an already wired dispatcher.
func NewHub(d *Dispatcher, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		dispatcher: d,
		directory:  d.directory,
		rooms:      d.rooms,
		log:        logger,
		register:   make(chan *Session),
		unregister: make(chan *Session),
		inbound:    make(chan inboundLine),
		done:       make(chan struct{}),
		sessions:   make(map[*Session]struct{}),
	}
}

// Run processes hub events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for s := range h.sessions {
			s.Close()
		}
	}()

	for {
		select {
		case s := <-h.register:
			h.handleRegister(s)
		case s := <-h.unregister:
			h.handleUnregister(ctx, s)
		case in := <-h.inbound:
			h.handleInbound(ctx, in.session, in.line)
		case <-ctx.Done():
			h.log.Info().Int("sessions", len(h.sessions)).Msg("hub stopped")
			return
		}
	}
}

// RegisterClient attaches a new connection and sends it the landing page.
func (h *Hub) RegisterClient(s *Session) {
	select {
	case h.register <- s:
	case <-h.done:
		s.Close()
	}
}

// UnregisterClient runs disconnect cleanup. Safe to call more than once.
func (h *Hub) UnregisterClient(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

// Submit hands one inbound line to the hub.
func (h *Hub) Submit(s *Session, line string) {
	select {
	case h.inbound <- inboundLine{session: s, line: line}:
	case <-h.done:
	}
}

// Reject sends an error straight to a session without dispatching anything.
func (h *Hub) Reject(s *Session, cerr *CoreError) {
	s.Deliver(&Event{Kind: EventError, Error: cerr})
}

func (h *Hub) handleRegister(s *Session) {
	h.sessions[s] = struct{}{}
	h.log.Debug().Str("session_id", s.ID).Str("remote", s.Remote).Msg("session connected")
	h.execute(h.dispatcher.Connect(s))
}

func (h *Hub) handleUnregister(ctx context.Context, s *Session) {
	if _, ok := h.sessions[s]; !ok {
		return
	}
	delete(h.sessions, s)
	h.execute(h.dispatcher.Disconnect(ctx, s))
	s.Close()
}

func (h *Hub) handleInbound(ctx context.Context, s *Session, line string) {
	if _, ok := h.sessions[s]; !ok {
		return
	}

	cmd := Parse(line, s.Registered(), s.Pending())
	h.log.Debug().Str("session_id", s.ID).Str("user", s.Name()).Stringer("command", cmd.Kind).Msg("dispatch")

	res := h.dispatcher.Dispatch(ctx, s, cmd)
	h.execute(res)
	if res.Close {
		s.Close()
	}
}

func (h *Hub) execute(res Result) {
	for _, d := range res.Deliveries {
		if d.Session != nil {
			if !d.Session.Deliver(d.Event) {
				h.log.Warn().Str("session_id", d.Session.ID).Str("user", d.Session.Name()).Msg("outbox full, event dropped")
			}
			continue
		}

		n, err := h.rooms.Broadcast(d.Room, d.Event, h.directory)
		if err != nil {
			if errors.Is(err, ErrRoomEmpty) {
				h.log.Debug().Str("room", d.Room).Msg("broadcast to empty room skipped")
				continue
			}
			h.log.Warn().Err(err).Str("room", d.Room).Msg("broadcast failed")
			continue
		}
		h.log.Debug().Str("room", d.Room).Int("delivered", n).Msg("broadcast")
	}
}
