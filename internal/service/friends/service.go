package friends

import (
	"context"
	"errors"
	"fmt"

	"github.com/vovakirdan/linechat-server/internal/store"
)

// ErrUserNotFound is returned when the friend is not currently connected.
var ErrUserNotFound = errors.New("user not found")

// UserDirectory reports which usernames are currently claimed.
type UserDirectory interface {
	Exists(name string) bool
}

// Service provides friend management business logic.
type Service struct {
	store store.FriendStore
	users UserDirectory
}

// New creates a new friend Service.
func New(st store.FriendStore, users UserDirectory) *Service {
	return &Service{
		store: st,
		users: users,
	}
}

// Add records that owner befriended friend. The friend must be online.
// Adding an existing friend again succeeds without a second edge.
func (s *Service) Add(ctx context.Context, owner, friend string) error {
	if friend == "" || !s.users.Exists(friend) {
		return ErrUserNotFound
	}

	if _, err := s.store.AddFriend(ctx, owner, friend); err != nil {
		return fmt.Errorf("add friend: %w", err)
	}
	return nil
}

// List returns owner's friends in the order they were added.
func (s *Service) List(ctx context.Context, owner string) ([]string, error) {
	friends, err := s.store.ListFriends(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return friends, nil
}
