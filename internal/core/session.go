package core

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// PendingMode records which multi-step prompt a session is answering.
type PendingMode int

const (
	PendingNone PendingMode = iota
	PendingSearch
	PendingFriend
	PendingRoom
)

func (m PendingMode) String() string {
	switch m {
	case PendingSearch:
		return "awaiting-search"
	case PendingFriend:
		return "awaiting-friend"
	case PendingRoom:
		return "awaiting-room"
	default:
		return "idle"
	}
}

// OverflowPolicy decides what happens when a session's outbox is full.
type OverflowPolicy string

const (
	// OverflowDrop discards the event for the slow session.
	OverflowDrop OverflowPolicy = "drop"
	// OverflowDisconnect closes the slow session.
	OverflowDisconnect OverflowPolicy = "disconnect"
)

// ParseOverflowPolicy validates a policy name from configuration.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch OverflowPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", OverflowDrop:
		return OverflowDrop, nil
	case OverflowDisconnect:
		return OverflowDisconnect, nil
	default:
		return "", fmt.Errorf("unknown overflow policy %q", s)
	}
}

// Session is one connected, possibly registered client as seen by the core layer.
// Name, room and pending mode are written only by the hub goroutine.
type Session struct {
	ID          string
	Remote      string
	ConnectedAt time.Time
	Events      chan *Event

	policy OverflowPolicy

	mu      sync.RWMutex
	name    string
	room    string
	pending PendingMode

	dropped   atomic.Int64
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession constructs a session with a bounded outbox.
func NewSession(id string, buffer int, policy OverflowPolicy) *Session {
	if buffer <= 0 {
		buffer = 1
	}
	if policy == "" {
		policy = OverflowDrop
	}
	return &Session{
		ID:          id,
		ConnectedAt: time.Now(),
		Events:      make(chan *Event, buffer),
		policy:      policy,
		done:        make(chan struct{}),
	}
}

// Name returns the registered username, or "" before registration.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// Room returns the room the session currently belongs to.
func (s *Session) Room() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room
}

// Pending returns the prompt the session is answering.
func (s *Session) Pending() PendingMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

// Registered reports whether the session has claimed a username.
func (s *Session) Registered() bool {
	return s.Name() != ""
}

func (s *Session) setName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

func (s *Session) setRoom(room string) {
	s.mu.Lock()
	s.room = room
	s.mu.Unlock()
}

func (s *Session) setPending(mode PendingMode) {
	s.mu.Lock()
	s.pending = mode
	s.mu.Unlock()
}

// Deliver queues an event without blocking. It returns false if the event was
// not queued, applying the overflow policy when the outbox is full.
func (s *Session) Deliver(ev *Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.Events <- ev:
		return true
	default:
		s.dropped.Add(1)
		if s.policy == OverflowDisconnect {
			s.Close()
		}
		return false
	}
}

// Dropped returns how many events were discarded because the outbox was full.
func (s *Session) Dropped() int64 {
	return s.dropped.Load()
}

// Close signals the transport to tear the connection down. Safe to call repeatedly.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Done is closed once the session has been asked to close.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
