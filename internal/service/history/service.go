package history

import (
	"context"
	"fmt"
	"time"

	"github.com/vovakirdan/linechat-server/internal/store"
)

const timeLayout = "15:04:05"

// Service records and renders room transcripts and private logs.
type Service struct {
	store store.HistoryStore
	now   func() time.Time
}

// New creates a history Service backed by st.
func New(st store.HistoryStore) *Service {
	return &Service{store: st, now: time.Now}
}

// FormatPrivate renders the line shown to both ends of a private message.
func FormatPrivate(sender, recipient, text string) string {
	return fmt.Sprintf("[private] %s -> %s: %s", sender, recipient, text)
}

// RecordRoom appends a room chat line.
func (s *Service) RecordRoom(ctx context.Context, room, author, text string) (*store.HistoryEntry, error) {
	entry := &store.HistoryEntry{
		At:         s.now(),
		Key:        room,
		Author:     author,
		Text:       text,
		Visibility: store.VisibilityRoom,
	}
	if err := s.store.AppendEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("record room message: %w", err)
	}
	return entry, nil
}

// RecordPrivate appends a private message under the recipient's and the
// sender's keys and returns the delivery line for both of them.
func (s *Service) RecordPrivate(ctx context.Context, sender, recipient, text string) (string, error) {
	at := s.now()
	keys := []string{recipient}
	if sender != recipient {
		keys = append(keys, sender)
	}

	for _, key := range keys {
		entry := &store.HistoryEntry{
			At:         at,
			Key:        key,
			Author:     sender,
			Recipient:  recipient,
			Text:       text,
			Visibility: store.VisibilityPrivate,
		}
		if err := s.store.AppendEntry(ctx, entry); err != nil {
			return "", fmt.Errorf("record private message: %w", err)
		}
	}

	return FormatPrivate(sender, recipient, text), nil
}

// RoomTranscript returns the newest limit lines of a room, oldest first.
func (s *Service) RoomTranscript(ctx context.Context, room string, limit int) ([]string, error) {
	entries, err := s.store.ListEntries(ctx, store.VisibilityRoom, room, limit)
	if err != nil {
		return nil, fmt.Errorf("room transcript: %w", err)
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", e.At.Format(timeLayout), e.Author, e.Text))
	}
	return lines, nil
}

// PrivateLog returns the newest limit private lines sent or received by user.
func (s *Service) PrivateLog(ctx context.Context, user string, limit int) ([]string, error) {
	entries, err := s.store.ListEntries(ctx, store.VisibilityPrivate, user, limit)
	if err != nil {
		return nil, fmt.Errorf("private log: %w", err)
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("[%s] %s", e.At.Format(timeLayout), FormatPrivate(e.Author, e.Recipient, e.Text)))
	}
	return lines, nil
}

// RoomCount returns how many chat lines were recorded for a room.
func (s *Service) RoomCount(ctx context.Context, room string) (int, error) {
	n, err := s.store.CountEntries(ctx, store.VisibilityRoom, room)
	if err != nil {
		return 0, fmt.Errorf("room count: %w", err)
	}
	return n, nil
}
