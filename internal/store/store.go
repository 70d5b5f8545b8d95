// Package store holds the locally owned entities: users and the messages they
// post. It is the only component allowed to write them.
package store

import (
	"context"
	"strconv"
	"sync"

	eventbus "github.com/hanpama/feedgraph/internal/eventbus"
	events "github.com/hanpama/feedgraph/internal/events"
)

type User struct {
	ID        string `yaml:"id" validate:"required"`
	FirstName string `yaml:"firstName" validate:"required"`
	LastName  string `yaml:"lastName" validate:"required"`
}

// FullName joins the first and last name with a single space.
func (u User) FullName() string { return u.FirstName + " " + u.LastName }

// Property exposes the stored fields by their GraphQL names.
func (u User) Property(name string) (any, bool) {
	switch name {
	case "id":
		return u.ID, true
	case "firstName":
		return u.FirstName, true
	case "lastName":
		return u.LastName, true
	}
	return nil, false
}

// Message is a short text posted by a user. UserID is a weak reference: the
// user it names may not exist.
type Message struct {
	ID     string `yaml:"id" validate:"required"`
	Text   string `yaml:"text"`
	UserID string `yaml:"userId" validate:"required"`
}

func (m Message) Property(name string) (any, bool) {
	switch name {
	case "id":
		return m.ID, true
	case "text":
		return m.Text, true
	case "userId":
		return m.UserID, true
	}
	return nil, false
}

// Store is an in-memory entity store. All methods are safe for concurrent use
// and return copies, never references into the collections.
type Store struct {
	mu       sync.RWMutex
	users    []User
	messages []Message
	// lastID is the most recently issued message id. Ids are never reused.
	lastID uint64
}

// New creates a store holding the entities of seed.
func New(seed Seed) (*Store, error) {
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	s := &Store{
		users:    append([]User(nil), seed.Users...),
		messages: append([]Message(nil), seed.Messages...),
	}
	for _, m := range s.messages {
		if n, err := strconv.ParseUint(m.ID, 10, 64); err == nil && n > s.lastID {
			s.lastID = n
		}
	}
	return s, nil
}

// ListMessages returns every message in insertion order.
func (s *Store) ListMessages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message(nil), s.messages...)
}

// GetMessage returns the message with id, if any.
func (s *Store) GetMessage(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// ListUsers returns every user in insertion order.
func (s *Store) ListUsers() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]User(nil), s.users...)
}

// GetUser returns the user with id, if any.
func (s *Store) GetUser(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// CreateMessage appends a message with a fresh id. userID is not checked
// against the known users.
func (s *Store) CreateMessage(ctx context.Context, text, userID string) Message {
	s.mu.Lock()
	s.lastID++
	m := Message{ID: strconv.FormatUint(s.lastID, 10), Text: text, UserID: userID}
	s.messages = append(s.messages, m)
	s.mu.Unlock()

	eventbus.Publish(ctx, events.MessagePosted{ID: m.ID, UserID: m.UserID})
	return m
}

// DeleteMessage removes the message with id. It reports false, leaving the
// collection untouched, when no such message exists.
func (s *Store) DeleteMessage(ctx context.Context, id string) bool {
	s.mu.Lock()
	idx := -1
	for i, m := range s.messages {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.messages = append(s.messages[:idx:idx], s.messages[idx+1:]...)
	s.mu.Unlock()

	eventbus.Publish(ctx, events.MessageDeleted{ID: id})
	return true
}
