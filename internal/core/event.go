package core

// EventKind is a notification the core emits to sessions.
type EventKind int

const (
	// EventBanner is the landing page sent once on connect. It carries no prompt.
	EventBanner EventKind = iota
	// EventNotice is a plain server reply to the session that issued a command.
	EventNotice
	// EventPrompt asks the session for the target of a multi-step command.
	EventPrompt
	// EventRoomMessage notifies sessions about a chat message in a room.
	EventRoomMessage
	// EventUserJoined notifies sessions about a user joining a room.
	EventUserJoined
	// EventUserLeft notifies sessions about a user leaving a room.
	EventUserLeft
	// EventPrivateMessage delivers a private line to its recipient.
	EventPrivateMessage
	// EventPrivateSent echoes a private line back to its sender.
	EventPrivateSent
	// EventHistory delivers transcript lines.
	EventHistory
	// EventUserList delivers the result of list, search or friends.
	EventUserList
	// EventClear asks the terminal to clear the screen.
	EventClear
	// EventGoodbye is the last event before the session is closed.
	EventGoodbye
	// EventError notifies the session about a domain error.
	EventError
)

// Event is sent to sessions to describe what happened in the system.
type Event struct {
	Kind  EventKind
	Room  string
	User  string
	Text  string
	Lines []string // extra body lines, rendered after Text
	Error *CoreError
}

func notice(text string) *Event {
	return &Event{Kind: EventNotice, Text: text}
}

func errorEvent(code, msg string) *Event {
	return &Event{Kind: EventError, Error: coreError(code, msg)}
}
