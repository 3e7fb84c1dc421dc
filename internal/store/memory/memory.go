package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/linechat-server/internal/store"
)

type logKey struct {
	vis store.Visibility
	key string
}

// MemoryStore implements store.Store in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	presence map[string]store.Presence
	friends  map[string][]string
	logs     map[logKey][]*store.HistoryEntry
	closed   bool
}

// New creates an empty in-memory store.
func New() *MemoryStore {
	return &MemoryStore{
		presence: make(map[string]store.Presence),
		friends:  make(map[string][]string),
		logs:     make(map[logKey][]*store.HistoryEntry),
	}
}

// Close marks the store closed. Subsequent calls fail.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemoryStore) checkOpen() error {
	if s.closed {
		return fmt.Errorf("memory store: closed")
	}
	return nil
}

// ==== PresenceStore implementation ====

// SetPresence records the status of a username.
func (s *MemoryStore) SetPresence(_ context.Context, username string, p store.Presence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.presence[username] = p
	return nil
}

// GetPresence returns the last recorded status.
func (s *MemoryStore) GetPresence(_ context.Context, username string) (store.Presence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return "", err
	}
	p, ok := s.presence[username]
	if !ok {
		return "", fmt.Errorf("presence of %q: %w", username, store.ErrNotFound)
	}
	return p, nil
}

// ==== FriendStore implementation ====

// AddFriend inserts owner -> friend unless the edge already exists.
func (s *MemoryStore) AddFriend(_ context.Context, owner, friend string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	for _, existing := range s.friends[owner] {
		if existing == friend {
			return false, nil
		}
	}
	s.friends[owner] = append(s.friends[owner], friend)
	return true, nil
}

// ListFriends returns a copy of owner's friends in insertion order.
func (s *MemoryStore) ListFriends(_ context.Context, owner string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	out := make([]string, len(s.friends[owner]))
	copy(out, s.friends[owner])
	return out, nil
}

// ==== HistoryStore implementation ====

// AppendEntry stores a copy of the entry and assigns its ID.
func (s *MemoryStore) AppendEntry(_ context.Context, entry *store.HistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("append entry: nil entry")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	entry.ID = uuid.NewString()
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	stored := *entry
	k := logKey{vis: entry.Visibility, key: entry.Key}
	s.logs[k] = append(s.logs[k], &stored)
	return nil
}

// ListEntries returns the newest limit entries for a key, oldest first.
func (s *MemoryStore) ListEntries(_ context.Context, vis store.Visibility, key string, limit int) ([]*store.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	log := s.logs[logKey{vis: vis, key: key}]
	start := 0
	if limit > 0 && len(log) > limit {
		start = len(log) - limit
	}

	out := make([]*store.HistoryEntry, 0, len(log)-start)
	for _, e := range log[start:] {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

// CountEntries returns how many entries exist for a key.
func (s *MemoryStore) CountEntries(_ context.Context, vis store.Visibility, key string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	return len(s.logs[logKey{vis: vis, key: key}]), nil
}
