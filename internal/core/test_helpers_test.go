package core

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vovakirdan/linechat-server/internal/service/friends"
	"github.com/vovakirdan/linechat-server/internal/service/history"
	"github.com/vovakirdan/linechat-server/internal/store/memory"
)

type testEnv struct {
	directory  *Directory
	rooms      *Rooms
	history    *history.Service
	dispatcher *Dispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := memory.New()
	t.Cleanup(func() { st.Close() })

	rooms := NewRooms()
	dir := NewDirectory(rooms, st)
	hist := history.New(st)
	d := NewDispatcher(dir, rooms, friends.New(st, dir), hist, DispatcherConfig{
		DefaultRoom:  "general",
		HistoryLimit: 50,
	}, nil)

	return &testEnv{directory: dir, rooms: rooms, history: hist, dispatcher: d}
}

func startTestHub(t *testing.T) (*Hub, *testEnv) {
	t.Helper()

	env := newTestEnv(t)
	hub := NewHub(env.dispatcher, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return hub, env
}

var sessionSeq atomic.Int64

func newTestSession() *Session {
	return NewSession(fmt.Sprintf("s%d", sessionSeq.Add(1)), 64, OverflowDrop)
}

// connectAs attaches a session to the hub, registers name and waits for the
// welcome reply. Events up to the welcome are discarded.
func connectAs(t *testing.T, hub *Hub, name string) *Session {
	t.Helper()

	s := newTestSession()
	hub.RegisterClient(s)
	hub.Submit(s, name)
	ev := mustEvent(t, s.Events, EventNotice)
	if !strings.HasPrefix(ev.Text, "Welcome, "+name) {
		t.Fatalf("expected welcome for %s, got %+v", name, ev)
	}
	return s
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustError(t *testing.T, ch <-chan *Event, code string) *Event {
	t.Helper()

	ev := mustEvent(t, ch, EventError)
	if ev.Error == nil || ev.Error.Code != code {
		t.Fatalf("expected %s error, got %+v", code, ev)
	}
	return ev
}

// drain returns every event currently queued without waiting.
func drain(ch <-chan *Event) []*Event {
	var out []*Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// roundTrip round-trips a /status through the hub so that every delivery queued
// before it has landed in the outboxes. The /status reply is consumed; events
// before it are returned.
func roundTrip(t *testing.T, hub *Hub, s *Session) []*Event {
	t.Helper()

	hub.Submit(s, "/status")
	var before []*Event
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-s.Events:
			if ev.Kind == EventNotice && strings.HasSuffix(ev.Text, " is online") && ev.User == s.Name() {
				return before
			}
			before = append(before, ev)
		case <-deadline:
			t.Fatalf("round trip for %s timed out", s.Name())
			return nil
		}
	}
}

func countKind(events []*Event, kind EventKind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
