package wizard

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("wizard session not found")

// Sessions keeps in-progress wizards in memory. A session untouched for
// longer than ttl is discarded on the next access.
type Sessions[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	factory func() *Wizard[T]
	entries map[string]*session[T]
}

type session[T any] struct {
	wizard   *Wizard[T]
	lastSeen time.Time
}

func NewSessions[T any](ttl time.Duration, factory func() *Wizard[T]) *Sessions[T] {
	return &Sessions[T]{
		ttl:     ttl,
		now:     time.Now,
		factory: factory,
		entries: make(map[string]*session[T]),
	}
}

// Start creates a fresh wizard and returns its session ID.
func (s *Sessions[T]) Start() (string, *Wizard[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	id := uuid.NewString()
	w := s.factory()
	s.entries[id] = &session[T]{wizard: w, lastSeen: s.now()}
	return id, w
}

func (s *Sessions[T]) Get(id string) (*Wizard[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = s.now()
	return e.wizard, nil
}

// Remove discards a session, e.g. after submit or when the dialog is abandoned.
func (s *Sessions[T]) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

func (s *Sessions[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Sessions[T]) sweep() {
	cutoff := s.now().Add(-s.ttl)
	for id, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, id)
		}
	}
}
