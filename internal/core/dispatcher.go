package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/service/friends"
	"github.com/vovakirdan/linechat-server/internal/service/history"
)

const commandHint = "Type 'help' for available commands."

var helpLines = []string{
	"- help: Display this help message",
	"- list: List all users",
	"- search: Search for a user",
	"- add friend: Add a user as a friend",
	"- friends: List your friends",
	"- switch room: Switch chat room",
	"- /msg <user> <text>: Send a private message",
	"- /history: Show recent messages",
	"- /status [user]: Show online status",
	"- /profile: Show your profile",
	"- /clear: Clear the screen",
	"- exit: Leave the chat",
}

// Delivery is one outbound event. Exactly one of Session or Room is set; room
// deliveries are resolved against membership when the hub executes them.
type Delivery struct {
	Session *Session
	Room    string
	Event   *Event
}

// Result is what a command produced. State changes are already committed.
type Result struct {
	Deliveries []Delivery
	Close      bool
}

func (r *Result) reply(s *Session, ev *Event) {
	r.Deliveries = append(r.Deliveries, Delivery{Session: s, Event: ev})
}

func (r *Result) toRoom(room string, ev *Event) {
	r.Deliveries = append(r.Deliveries, Delivery{Room: room, Event: ev})
}

// DispatcherConfig holds behavior knobs for the dispatcher.
type DispatcherConfig struct {
	DefaultRoom  string
	HistoryLimit int
}

// Dispatcher turns parsed commands into state changes and deliveries.
type Dispatcher struct {
	directory *Directory
	rooms     *Rooms
	friends   *friends.Service
	history   *history.Service
	cfg       DispatcherConfig
	log       *zerolog.Logger
}

// NewDispatcher wires the registries into a dispatcher.
func NewDispatcher(dir *Directory, rooms *Rooms, fr *friends.Service, hist *history.Service, cfg DispatcherConfig, logger *zerolog.Logger) *Dispatcher {
	if cfg.DefaultRoom == "" {
		cfg.DefaultRoom = "general"
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Dispatcher{
		directory: dir,
		rooms:     rooms,
		friends:   fr,
		history:   hist,
		cfg:       cfg,
		log:       logger,
	}
}

// Connect produces the landing page for a new session.
func (d *Dispatcher) Connect(s *Session) Result {
	var res Result
	s.setRoom(d.cfg.DefaultRoom)
	res.reply(s, &Event{Kind: EventBanner, Text: "Server active\nWelcome to the Messenger Server!"})
	res.reply(s, &Event{Kind: EventPrompt, Text: "Please enter your username:"})
	return res
}

// Disconnect releases everything the session holds. Calling it again, or for
// a session that never registered, produces nothing.
func (d *Dispatcher) Disconnect(ctx context.Context, s *Session) Result {
	var res Result
	s.setPending(PendingNone)

	name := s.Name()
	if name == "" {
		return res
	}
	room := s.Room()

	removed, err := d.directory.Remove(ctx, name, s)
	if err != nil {
		d.log.Warn().Err(err).Str("user", name).Msg("disconnect cleanup")
	}
	if !removed {
		return res
	}

	d.log.Info().Str("user", name).Str("room", room).Msg("user disconnected")
	res.toRoom(room, &Event{
		Kind: EventUserLeft,
		Room: room,
		User: name,
		Text: fmt.Sprintf("%s has left the chat room %s", name, room),
	})
	return res
}

// Dispatch applies cmd on behalf of s.
func (d *Dispatcher) Dispatch(ctx context.Context, s *Session, cmd Command) Result {
	var res Result

	switch cmd.Kind {
	case CommandRegister:
		d.register(ctx, s, cmd.Arg, &res)
	case CommandHelp:
		res.reply(s, &Event{Kind: EventNotice, Text: "Available Commands:", Lines: helpLines})
	case CommandList:
		d.list(s, &res)
	case CommandSearch:
		s.setPending(PendingSearch)
		res.reply(s, &Event{Kind: EventPrompt, Text: "Enter the username to search:"})
	case CommandSearchTarget:
		d.search(s, cmd.Arg, &res)
	case CommandAddFriend:
		s.setPending(PendingFriend)
		res.reply(s, &Event{Kind: EventPrompt, Text: "Enter the username to add as a friend:"})
	case CommandFriendTarget:
		d.addFriend(ctx, s, cmd.Arg, &res)
	case CommandFriends:
		d.listFriends(ctx, s, &res)
	case CommandSwitchRoom:
		s.setPending(PendingRoom)
		res.reply(s, &Event{Kind: EventPrompt, Text: "Enter the chat room to switch:"})
	case CommandRoomTarget:
		d.switchRoom(s, cmd.Arg, &res)
	case CommandExit:
		res.reply(s, &Event{Kind: EventGoodbye, Text: fmt.Sprintf("Goodbye, %s!", s.Name())})
		res.Close = true
	case CommandPrivateMessage:
		d.privateMessage(ctx, s, cmd.Arg, cmd.Text, &res)
	case CommandHistory:
		d.showHistory(ctx, s, &res)
	case CommandStatus:
		d.status(ctx, s, cmd.Arg, &res)
	case CommandProfile:
		d.profile(ctx, s, &res)
	case CommandClear:
		res.reply(s, &Event{Kind: EventClear})
	case CommandChat:
		d.chat(ctx, s, cmd.Text, &res)
	case CommandEmpty:
	case CommandMalformed:
		res.reply(s, errorEvent(ErrCodeMalformedCommand, cmd.Err))
	default:
		res.reply(s, errorEvent(ErrCodeMalformedCommand, "Unknown command. "+commandHint))
	}

	return res
}

func (d *Dispatcher) internalError(s *Session, err error, res *Result) {
	d.log.Error().Err(err).Str("session_id", s.ID).Str("user", s.Name()).Msg("command failed")
	res.reply(s, errorEvent(ErrCodeInternal, "Something went wrong, please try again."))
}

func (d *Dispatcher) register(ctx context.Context, s *Session, name string, res *Result) {
	if name == "" {
		res.reply(s, errorEvent(ErrCodeMalformedCommand, "Username cannot be empty. Please enter your username:"))
		return
	}

	if err := d.directory.Register(ctx, name, s); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			res.reply(s, errorEvent(ErrCodeUsernameTaken, "Username already exists. Please log in or choose another."))
			return
		}
		d.internalError(s, err, res)
		return
	}

	room := d.cfg.DefaultRoom
	s.setName(name)
	s.setRoom(room)
	d.rooms.Join(name, room)

	d.log.Info().Str("session_id", s.ID).Str("user", name).Str("room", room).Msg("user registered")

	res.reply(s, notice(fmt.Sprintf("Welcome, %s! %s", name, commandHint)))
	res.toRoom(room, &Event{
		Kind: EventUserJoined,
		Room: room,
		User: name,
		Text: fmt.Sprintf("%s has joined the chat room %s", name, room),
	})
}

func (d *Dispatcher) list(s *Session, res *Result) {
	users := d.directory.List(s.Name())
	if len(users) == 0 {
		res.reply(s, notice("No other users online."))
		return
	}
	res.reply(s, &Event{Kind: EventUserList, Text: "Users in the chat: " + strings.Join(users, ", ")})
}

func (d *Dispatcher) search(s *Session, query string, res *Result) {
	s.setPending(PendingNone)

	if query == "" {
		res.reply(s, errorEvent(ErrCodeMalformedCommand, "Search term cannot be empty. Type 'search' to try again."))
		return
	}

	found := d.directory.Search(query)
	if len(found) == 0 {
		res.reply(s, errorEvent(ErrCodeUserNotFound,
			fmt.Sprintf("No users found with the username '%s'. Type 'search' to try again.", query)))
		return
	}
	res.reply(s, &Event{
		Kind:  EventUserList,
		Text:  "Users found: " + strings.Join(found, ", "),
		Lines: []string{"Type 'add friend' to add a user as a friend."},
	})
}

func (d *Dispatcher) addFriend(ctx context.Context, s *Session, friend string, res *Result) {
	s.setPending(PendingNone)

	if friend == "" {
		res.reply(s, errorEvent(ErrCodeMalformedCommand, "Username cannot be empty. Type 'add friend' to try again."))
		return
	}

	if err := d.friends.Add(ctx, s.Name(), friend); err != nil {
		if errors.Is(err, friends.ErrUserNotFound) {
			res.reply(s, errorEvent(ErrCodeUserNotFound, fmt.Sprintf("%s not found. Type 'search' to find a user.", friend)))
			return
		}
		d.internalError(s, err, res)
		return
	}
	res.reply(s, notice(fmt.Sprintf("%s added to your friends. Type 'friends' to see your friends.", friend)))
}

func (d *Dispatcher) listFriends(ctx context.Context, s *Session, res *Result) {
	list, err := d.friends.List(ctx, s.Name())
	if err != nil {
		d.internalError(s, err, res)
		return
	}
	if len(list) == 0 {
		res.reply(s, notice("You have no friends yet. Type 'add friend' to add one."))
		return
	}
	res.reply(s, &Event{Kind: EventUserList, Text: "Your friends: " + strings.Join(list, ", ")})
}

// switchRoom keeps membership exclusive: the user leaves the old room before
// joining the new one.
func (d *Dispatcher) switchRoom(s *Session, room string, res *Result) {
	s.setPending(PendingNone)
	name := s.Name()
	old := s.Room()

	switch {
	case room == "":
		res.reply(s, errorEvent(ErrCodeMalformedCommand, "Room name cannot be empty. Type 'switch room' to try again."))
		return
	case room == old:
		res.reply(s, notice(fmt.Sprintf("You are already in chat room %s.", room)))
		return
	}

	d.rooms.Leave(name, old)
	s.setRoom(room)
	d.rooms.Join(name, room)

	d.log.Debug().Str("user", name).Str("from", old).Str("to", room).Msg("room switched")

	res.toRoom(old, &Event{
		Kind: EventUserLeft,
		Room: old,
		User: name,
		Text: fmt.Sprintf("%s has left the chat room %s", name, old),
	})
	res.reply(s, notice(fmt.Sprintf("Switched to chat room %s. %s", room, commandHint)))
	res.toRoom(room, &Event{
		Kind: EventUserJoined,
		Room: room,
		User: name,
		Text: fmt.Sprintf("%s has joined the chat room %s", name, room),
	})
}

func (d *Dispatcher) privateMessage(ctx context.Context, s *Session, to, text string, res *Result) {
	recipient, ok := d.directory.Lookup(to)
	if !ok {
		res.reply(s, errorEvent(ErrCodeUserNotFound, fmt.Sprintf("User '%s' not found.", to)))
		return
	}

	from := s.Name()
	line, err := d.history.RecordPrivate(ctx, from, to, text)
	if err != nil {
		d.internalError(s, err, res)
		return
	}

	if recipient != s {
		res.reply(recipient, &Event{Kind: EventPrivateMessage, User: from, Text: line})
	}
	res.reply(s, &Event{Kind: EventPrivateSent, User: to, Text: line})
}

// showHistory reads the room transcript by room name and the private log by
// username.
func (d *Dispatcher) showHistory(ctx context.Context, s *Session, res *Result) {
	room := s.Room()

	transcript, err := d.history.RoomTranscript(ctx, room, d.cfg.HistoryLimit)
	if err != nil {
		d.internalError(s, err, res)
		return
	}
	private, err := d.history.PrivateLog(ctx, s.Name(), d.cfg.HistoryLimit)
	if err != nil {
		d.internalError(s, err, res)
		return
	}

	if len(transcript) == 0 && len(private) == 0 {
		res.reply(s, &Event{Kind: EventHistory, Room: room, Text: "No history available."})
		return
	}

	ev := &Event{Kind: EventHistory, Room: room, Text: fmt.Sprintf("History for chat room %s:", room)}
	if len(transcript) == 0 {
		ev.Lines = append(ev.Lines, "No history available.")
	}
	ev.Lines = append(ev.Lines, transcript...)
	if len(private) > 0 {
		ev.Lines = append(ev.Lines, "Private messages:")
		ev.Lines = append(ev.Lines, private...)
	}
	res.reply(s, ev)
}

func (d *Dispatcher) status(ctx context.Context, s *Session, target string, res *Result) {
	if target == "" {
		target = s.Name()
	}
	p, err := d.directory.Status(ctx, target)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			res.reply(s, errorEvent(ErrCodeUserNotFound, fmt.Sprintf("User '%s' not found.", target)))
			return
		}
		d.internalError(s, err, res)
		return
	}
	res.reply(s, &Event{Kind: EventNotice, User: target, Text: fmt.Sprintf("%s is %s", target, p)})
}

func (d *Dispatcher) profile(ctx context.Context, s *Session, res *Result) {
	name := s.Name()
	list, err := d.friends.List(ctx, name)
	if err != nil {
		d.internalError(s, err, res)
		return
	}
	p, err := d.directory.Status(ctx, name)
	if err != nil {
		d.internalError(s, err, res)
		return
	}

	res.reply(s, &Event{
		Kind: EventNotice,
		User: name,
		Text: "Your profile:",
		Lines: []string{
			"Username: " + name,
			"Room: " + s.Room(),
			"Status: " + string(p),
			fmt.Sprintf("Friends: %d", len(list)),
			"Connected since: " + s.ConnectedAt.Format("2006-01-02 15:04:05"),
		},
	})
}

// chat commits the history entry before the broadcast is queued.
func (d *Dispatcher) chat(ctx context.Context, s *Session, text string, res *Result) {
	name := s.Name()
	room := s.Room()

	if _, err := d.history.RecordRoom(ctx, room, name, text); err != nil {
		d.internalError(s, err, res)
		return
	}

	res.toRoom(room, &Event{
		Kind: EventRoomMessage,
		Room: room,
		User: name,
		Text: fmt.Sprintf("%s: %s", name, text),
	})
}
