package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/vovakirdan/linechat-server/internal/store"
)

// Directory maps live usernames to their sessions and keeps presence current.
type Directory struct {
	mu       sync.RWMutex
	entries  map[string]*Session
	order    []string
	rooms    *Rooms
	presence store.PresenceStore
}

// NewDirectory creates a directory that drops removed users from rooms and
// records presence in the given store.
func NewDirectory(rooms *Rooms, presence store.PresenceStore) *Directory {
	return &Directory{
		entries:  make(map[string]*Session),
		rooms:    rooms,
		presence: presence,
	}
}

// Register claims name for s. The check and the insert happen under one lock,
// so exactly one of several concurrent claims for a name succeeds.
func (d *Directory) Register(ctx context.Context, name string, s *Session) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, taken := d.entries[name]; taken {
		return ErrUsernameTaken
	}
	if err := d.presence.SetPresence(ctx, name, store.PresenceOnline); err != nil {
		return fmt.Errorf("mark online: %w", err)
	}

	d.entries[name] = s
	d.order = append(d.order, name)
	return nil
}

// Remove releases name if it is still owned by s (any owner when s is nil),
// drops the user from all rooms and marks it offline. Removing twice is a no-op.
func (d *Directory) Remove(ctx context.Context, name string, s *Session) (bool, error) {
	d.mu.Lock()
	owner, ok := d.entries[name]
	if !ok || (s != nil && owner != s) {
		d.mu.Unlock()
		return false, nil
	}
	delete(d.entries, name)
	if i := slices.Index(d.order, name); i >= 0 {
		d.order = slices.Delete(d.order, i, i+1)
	}
	d.mu.Unlock()

	d.rooms.LeaveAll(name)

	if err := d.presence.SetPresence(ctx, name, store.PresenceOffline); err != nil {
		return true, fmt.Errorf("mark offline: %w", err)
	}
	return true, nil
}

// Exists reports whether name is currently claimed.
func (d *Directory) Exists(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.entries[name]
	return ok
}

// Lookup returns the session that owns name.
func (d *Directory) Lookup(name string) (*Session, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.entries[name]
	return s, ok
}

// List returns every claimed name except excluding, in registration order.
func (d *Directory) List(excluding string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, 0, len(d.order))
	for _, name := range d.order {
		if name != excluding {
			out = append(out, name)
		}
	}
	return out
}

// Search returns claimed names containing substr (case-sensitive), in
// registration order.
func (d *Directory) Search(substr string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []string
	for _, name := range d.order {
		if strings.Contains(name, substr) {
			out = append(out, name)
		}
	}
	return out
}

// Status returns the last known presence of name, including users who left.
// Names never seen yield ErrUserNotFound.
func (d *Directory) Status(ctx context.Context, name string) (store.Presence, error) {
	p, err := d.presence.GetPresence(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("presence of %s: %w", name, err)
	}
	return p, nil
}
