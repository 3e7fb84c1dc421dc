package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/vovakirdan/linechat-server/internal/service/friends"
	"github.com/vovakirdan/linechat-server/internal/service/history"
	"github.com/vovakirdan/linechat-server/internal/store/memory"
)

// send parses line against the session state and dispatches it.
func (e *testEnv) send(s *Session, line string) Result {
	return e.dispatcher.Dispatch(context.Background(), s, Parse(line, s.Registered(), s.Pending()))
}

func (e *testEnv) registered(t *testing.T, name string) *Session {
	t.Helper()
	s := newTestSession()
	e.dispatcher.Connect(s)
	res := e.send(s, name)
	if len(res.Deliveries) == 0 || res.Deliveries[0].Event.Kind != EventNotice {
		t.Fatalf("registration of %s failed: %+v", name, res)
	}
	return s
}

func replyTo(t *testing.T, res Result, s *Session) *Event {
	t.Helper()
	for _, d := range res.Deliveries {
		if d.Session == s {
			return d.Event
		}
	}
	t.Fatalf("no reply to session %s in %+v", s.ID, res.Deliveries)
	return nil
}

func TestDispatchPromptStateMachine(t *testing.T) {
	env := newTestEnv(t)
	alice := env.registered(t, "alice")
	env.registered(t, "alex")
	env.registered(t, "bob")

	tests := []struct {
		line    string
		pending PendingMode
		kind    EventKind
		text    string
	}{
		{line: "search", pending: PendingSearch, kind: EventPrompt, text: "Enter the username to search:"},
		{line: "al", pending: PendingNone, kind: EventUserList, text: "Users found: alice, alex"},
		{line: "search", pending: PendingSearch, kind: EventPrompt},
		{line: "zed", pending: PendingNone, kind: EventError},
		{line: "add friend", pending: PendingFriend, kind: EventPrompt},
		{line: "bob", pending: PendingNone, kind: EventNotice, text: "bob added to your friends. Type 'friends' to see your friends."},
		{line: "friends", pending: PendingNone, kind: EventUserList, text: "Your friends: bob"},
		{line: "switch room", pending: PendingRoom, kind: EventPrompt},
		{line: "general", pending: PendingNone, kind: EventNotice, text: "You are already in chat room general."},
		{line: "list", pending: PendingNone, kind: EventUserList, text: "Users in the chat: alex, bob"},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("%d_%s", i, tt.line), func(t *testing.T) {
			ev := replyTo(t, env.send(alice, tt.line), alice)
			if ev.Kind != tt.kind {
				t.Fatalf("expected kind %v, got %+v", tt.kind, ev)
			}
			if tt.text != "" && ev.Text != tt.text {
				t.Fatalf("expected text %q, got %q", tt.text, ev.Text)
			}
			if got := alice.Pending(); got != tt.pending {
				t.Fatalf("expected state %s, got %s", tt.pending, got)
			}
		})
	}
}

func TestDispatchChatCommitsHistoryBeforeBroadcast(t *testing.T) {
	env := newTestEnv(t)
	alice := env.registered(t, "alice")
	ctx := context.Background()

	for i := range 3 {
		res := env.send(alice, fmt.Sprintf("message %d", i))
		if len(res.Deliveries) != 1 || res.Deliveries[0].Room != "general" {
			t.Fatalf("expected one room delivery, got %+v", res.Deliveries)
		}
		// By the time the broadcast exists the entry is already stored.
		n, err := env.history.RoomCount(ctx, "general")
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != i+1 {
			t.Fatalf("expected %d entries, got %d", i+1, n)
		}
	}

	// Commands and blank lines are not chat and do not grow the transcript.
	env.send(alice, "help")
	env.send(alice, "   ")
	n, err := env.history.RoomCount(ctx, "general")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 entries, got %d", n)
	}
}

// Room chat is stored under the room name. Looking /history up by username
// would never find it and always answer "no history available", so /history
// reads the room transcript by room name and the private log by username.
func TestDispatchHistoryReadsRoomTranscript(t *testing.T) {
	env := newTestEnv(t)
	alice := env.registered(t, "alice")
	bob := env.registered(t, "bob")

	empty := replyTo(t, env.send(alice, "/history"), alice)
	if empty.Kind != EventHistory || empty.Text != "No history available." {
		t.Fatalf("unexpected empty history: %+v", empty)
	}

	env.send(bob, "hi alice")
	env.send(bob, "/msg alice psst")

	ev := replyTo(t, env.send(alice, "/history"), alice)
	if ev.Text != "History for chat room general:" {
		t.Fatalf("unexpected history header: %q", ev.Text)
	}
	joined := strings.Join(ev.Lines, "\n")
	if !strings.Contains(joined, "bob: hi alice") {
		t.Fatalf("room chat missing from history: %v", ev.Lines)
	}
	if !strings.Contains(joined, "Private messages:") || !strings.Contains(joined, "[private] bob -> alice: psst") {
		t.Fatalf("private log missing from history: %v", ev.Lines)
	}

	// History of another room does not include general.
	env.send(alice, "switch room")
	env.send(alice, "dev")
	dev := replyTo(t, env.send(alice, "/history"), alice)
	if strings.Contains(strings.Join(dev.Lines, "\n"), "hi alice") {
		t.Fatalf("dev history leaked general chat: %v", dev.Lines)
	}
}

func TestDispatchSwitchRoomIsExclusive(t *testing.T) {
	env := newTestEnv(t)
	alice := env.registered(t, "alice")

	env.send(alice, "switch room")
	res := env.send(alice, "dev")

	var rooms []string
	for _, d := range res.Deliveries {
		if d.Room != "" {
			rooms = append(rooms, fmt.Sprintf("%s:%v", d.Room, d.Event.Kind == EventUserJoined))
		}
	}
	if strings.Join(rooms, ",") != "general:false,dev:true" {
		t.Fatalf("expected leave general then join dev, got %v", rooms)
	}
	if alice.Room() != "dev" {
		t.Fatalf("session room not updated: %s", alice.Room())
	}
	if got := env.rooms.RoomsOf("alice"); len(got) != 1 || got[0] != "dev" {
		t.Fatalf("alice should be in exactly one room, got %v", got)
	}

	env.send(alice, "switch room")
	bad := replyTo(t, env.send(alice, ""), alice)
	if bad.Kind != EventError || bad.Error.Code != ErrCodeMalformedCommand {
		t.Fatalf("expected malformed error for empty room, got %+v", bad)
	}
	if alice.Pending() != PendingNone {
		t.Fatal("failed prompt must return to idle")
	}
}

func TestDispatchStatusAndProfile(t *testing.T) {
	env := newTestEnv(t)
	alice := env.registered(t, "alice")
	bob := env.registered(t, "bob")

	if ev := replyTo(t, env.send(alice, "/status bob"), alice); ev.Text != "bob is online" {
		t.Fatalf("unexpected status: %+v", ev)
	}

	env.dispatcher.Disconnect(context.Background(), bob)

	// Status survives the user leaving.
	if ev := replyTo(t, env.send(alice, "/status bob"), alice); ev.Text != "bob is offline" {
		t.Fatalf("unexpected status: %+v", ev)
	}
	if ev := replyTo(t, env.send(alice, "/status nobody"), alice); ev.Kind != EventError || ev.Error.Code != ErrCodeUserNotFound {
		t.Fatalf("expected user_not_found, got %+v", ev)
	}

	profile := replyTo(t, env.send(alice, "/profile"), alice)
	joined := strings.Join(profile.Lines, "\n")
	for _, want := range []string{"Username: alice", "Room: general", "Status: online", "Friends: 0"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("profile missing %q: %v", want, profile.Lines)
		}
	}

	if ev := replyTo(t, env.send(alice, "/clear"), alice); ev.Kind != EventClear {
		t.Fatalf("expected clear event, got %+v", ev)
	}
}

func TestDispatchDisconnectIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	alice := env.registered(t, "alice")
	env.registered(t, "bob")
	ctx := context.Background()

	first := env.dispatcher.Disconnect(ctx, alice)
	if len(first.Deliveries) != 1 || first.Deliveries[0].Event.Kind != EventUserLeft {
		t.Fatalf("expected one leave notice, got %+v", first.Deliveries)
	}
	second := env.dispatcher.Disconnect(ctx, alice)
	if len(second.Deliveries) != 0 {
		t.Fatalf("second disconnect must be a no-op, got %+v", second.Deliveries)
	}

	if env.directory.Exists("alice") {
		t.Fatal("alice still in directory")
	}
	if got := env.rooms.Members("general"); len(got) != 1 || got[0] != "bob" {
		t.Fatalf("unexpected members: %v", got)
	}

	// A stale session cannot evict the new owner of a reused name.
	again := env.registered(t, "alice")
	env.dispatcher.Disconnect(ctx, alice)
	if owner, ok := env.directory.Lookup("alice"); !ok || owner != again {
		t.Fatal("new alice must survive a stale disconnect")
	}

	// Unregistered sessions have nothing to clean up.
	if res := env.dispatcher.Disconnect(ctx, newTestSession()); len(res.Deliveries) != 0 {
		t.Fatalf("unexpected deliveries: %+v", res.Deliveries)
	}
}

func TestDispatchEmptyFriendTarget(t *testing.T) {
	env := newTestEnv(t)
	alice := env.registered(t, "alice")

	env.send(alice, "add friend")
	ev := replyTo(t, env.send(alice, "   "), alice)
	if ev.Kind != EventError || !errors.Is(ev.Error, ErrMalformedCommand) {
		t.Fatalf("expected malformed error, got %+v", ev)
	}
	if alice.Pending() != PendingNone {
		t.Fatal("failed prompt must return to idle")
	}
}

func TestDispatchStatusStoreFailureIsInternal(t *testing.T) {
	st := memory.New()
	rooms := NewRooms()
	dir := NewDirectory(rooms, st)
	d := NewDispatcher(dir, rooms, friends.New(st, dir), history.New(st), DispatcherConfig{
		DefaultRoom:  "general",
		HistoryLimit: 50,
	}, nil)
	env := &testEnv{directory: dir, rooms: rooms, dispatcher: d}
	alice := env.registered(t, "alice")

	st.Close()
	ev := replyTo(t, env.send(alice, "/status bob"), alice)
	if ev.Kind != EventError || ev.Error.Code != ErrCodeInternal {
		t.Fatalf("expected internal error, got %+v", ev)
	}
}

func TestDispatchEmptyUsername(t *testing.T) {
	env := newTestEnv(t)
	s := newTestSession()

	ev := replyTo(t, env.send(s, "  "), s)
	if ev.Kind != EventError || ev.Error.Code != ErrCodeMalformedCommand {
		t.Fatalf("expected malformed error, got %+v", ev)
	}
	if s.Registered() {
		t.Fatal("session must stay unregistered")
	}
}

func TestDispatchExitRequestsClose(t *testing.T) {
	env := newTestEnv(t)
	alice := env.registered(t, "alice")

	res := env.send(alice, "exit")
	if !res.Close {
		t.Fatal("exit must request close")
	}
	if ev := replyTo(t, res, alice); ev.Kind != EventGoodbye {
		t.Fatalf("expected goodbye, got %+v", ev)
	}
}
