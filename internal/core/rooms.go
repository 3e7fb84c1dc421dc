package core

import (
	"sort"
	"sync"
)

// SessionLookup resolves a username to its live session.
type SessionLookup interface {
	Lookup(name string) (*Session, bool)
}

// Room groups usernames that receive each other's chat.
type Room struct {
	Name    string
	members map[string]struct{}
}

// NewRoom constructs a room with no members.
func NewRoom(name string) *Room {
	return &Room{
		Name:    name,
		members: make(map[string]struct{}),
	}
}

// Add inserts a member. Returns true if newly added.
func (r *Room) Add(user string) bool {
	if _, exists := r.members[user]; exists {
		return false
	}
	r.members[user] = struct{}{}
	return true
}

// Remove deletes a member. Returns true if removed.
func (r *Room) Remove(user string) bool {
	if _, exists := r.members[user]; !exists {
		return false
	}
	delete(r.members, user)
	return true
}

// Has reports whether user is a member.
func (r *Room) Has(user string) bool {
	_, ok := r.members[user]
	return ok
}

func (r *Room) sortedMembers() []string {
	out := make([]string, 0, len(r.members))
	for m := range r.members {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Rooms is the registry of room name to member set.
type Rooms struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRooms creates an empty room registry.
func NewRooms() *Rooms {
	return &Rooms{rooms: make(map[string]*Room)}
}

// Join adds user to room, creating the room if needed. It does not remove the
// user from any other room.
func (r *Rooms) Join(user, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[room]
	if !ok {
		rm = NewRoom(room)
		r.rooms[room] = rm
	}
	return rm.Add(user)
}

// Leave removes user from room. No-op if absent.
func (r *Rooms) Leave(user, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[room]
	if !ok {
		return false
	}
	return rm.Remove(user)
}

// LeaveAll removes user from every room and returns the rooms it was in.
func (r *Rooms) LeaveAll(user string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var left []string
	for name, rm := range r.rooms {
		if rm.Remove(user) {
			left = append(left, name)
		}
	}
	sort.Strings(left)
	return left
}

// Exists reports whether the room was ever created.
func (r *Rooms) Exists(room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[room]
	return ok
}

// Members returns a sorted snapshot of the room's members.
func (r *Rooms) Members(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[room]
	if !ok {
		return nil
	}
	return rm.sortedMembers()
}

// RoomsOf returns the rooms that list user as a member.
func (r *Rooms) RoomsOf(user string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for name, rm := range r.rooms {
		if rm.Has(user) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Snapshot returns every room with its sorted members.
func (r *Rooms) Snapshot() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.rooms))
	for name, rm := range r.rooms {
		out[name] = rm.sortedMembers()
	}
	return out
}

// Broadcast delivers ev to every current member of room, the sender included.
// It works on a snapshot of the member set and never changes membership.
// Returns ErrRoomEmpty when there is nobody to deliver to.
func (r *Rooms) Broadcast(room string, ev *Event, sessions SessionLookup) (int, error) {
	members := r.Members(room)
	if len(members) == 0 {
		return 0, ErrRoomEmpty
	}

	delivered := 0
	for _, name := range members {
		s, ok := sessions.Lookup(name)
		if !ok {
			continue
		}
		if s.Deliver(ev) {
			delivered++
		}
	}
	return delivered, nil
}
