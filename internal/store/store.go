package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Presence is the last known online status of a username.
type Presence string

const (
	PresenceOnline  Presence = "online"
	PresenceOffline Presence = "offline"
)

// Visibility separates room chat from private messages.
type Visibility string

const (
	VisibilityRoom    Visibility = "room"
	VisibilityPrivate Visibility = "private"
)

// HistoryEntry is one appended line of chat.
// Key is the room name for room entries and the owning username for private ones.
type HistoryEntry struct {
	ID         string
	At         time.Time
	Key        string
	Author     string
	Recipient  string // private entries only
	Text       string
	Visibility Visibility
}

// PresenceStore tracks online/offline status. Entries outlive the session.
type PresenceStore interface {
	// SetPresence records the status of a username.
	SetPresence(ctx context.Context, username string, p Presence) error

	// GetPresence returns the last recorded status, or ErrNotFound.
	GetPresence(ctx context.Context, username string) (Presence, error)
}

// FriendStore handles directed friend edges.
type FriendStore interface {
	// AddFriend inserts the edge owner -> friend. Returns false if it already existed.
	AddFriend(ctx context.Context, owner, friend string) (bool, error)

	// ListFriends returns friends of owner in insertion order.
	ListFriends(ctx context.Context, owner string) ([]string, error)
}

// HistoryStore handles append-only message logs.
type HistoryStore interface {
	// AppendEntry stores the entry and assigns its ID.
	AppendEntry(ctx context.Context, entry *HistoryEntry) error

	// ListEntries returns the newest limit entries for a key in insertion order.
	// A limit <= 0 returns everything.
	ListEntries(ctx context.Context, vis Visibility, key string, limit int) ([]*HistoryEntry, error)

	// CountEntries returns how many entries exist for a key.
	CountEntries(ctx context.Context, vis Visibility, key string) (int, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	PresenceStore
	FriendStore
	HistoryStore

	// Close releases resources held by the store.
	Close() error
}
