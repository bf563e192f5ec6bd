// Package session provides in-memory session state management.
//
// Sessions live for the process lifetime unless ended explicitly or evicted
// by the idle sweeper. All access goes through the store so the per-session
// serialization rule (at most one turn in flight per session) holds while
// turns on different sessions proceed in parallel.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skamata/mensetsu-coach/internal/domain"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session not found")

// Store defines the session lifecycle operations used by the interview
// service and the TTL sweeper.
type Store interface {
	// Create validates the track, builds the two seed messages (system
	// persona, opening question) and registers a new session.
	Create(track domain.Track, field, target string) (*domain.Session, error)

	// Get retrieves a session by id.
	Get(id string) (*domain.Session, error)

	// Append pushes one message onto a session's log.
	Append(id string, role domain.Role, content string) error

	// Messages returns a copy of the session's message log.
	Messages(id string) ([]domain.Message, error)

	// AcquireTurn blocks until the caller holds the session's turn lock.
	// The returned release function must be called exactly once.
	AcquireTurn(id string) (release func(), err error)

	// Remove deletes a session. Removing an unknown id is a no-op.
	Remove(id string)

	// EvictIdle removes sessions whose last activity is before cutoff and
	// returns their ids.
	EvictIdle(cutoff time.Time) []string

	// Len reports the number of live sessions.
	Len() int
}

type entry struct {
	sess *domain.Session

	// turnMu serializes turns on this session. It is separate from the
	// store's own mutex so a long pipeline run never blocks other sessions.
	turnMu sync.Mutex
}

// MemoryStore is the process-wide Store implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*entry),
	}
}

// Create implements Store.
func (s *MemoryStore) Create(track domain.Track, field, target string) (*domain.Session, error) {
	if _, err := domain.ParseTrack(string(track)); err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &domain.Session{
		ID:         uuid.NewString(),
		Track:      track,
		Field:      field,
		Target:     target,
		CreatedAt:  now,
		LastActive: now,
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: domain.SystemPrompt(track, field, target)},
			{Role: domain.RoleAssistant, Content: domain.OpeningQuestion(track, field, target)},
		},
	}

	s.mu.Lock()
	s.sessions[sess.ID] = &entry{sess: sess}
	s.mu.Unlock()

	return sess, nil
}

// Get implements Store.
func (s *MemoryStore) Get(id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.sess, nil
}

// Append implements Store.
func (s *MemoryStore) Append(id string, role domain.Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	e.sess.Messages = append(e.sess.Messages, domain.Message{Role: role, Content: content})
	e.sess.LastActive = time.Now()
	return nil
}

// Messages implements Store.
func (s *MemoryStore) Messages(id string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	msgs := make([]domain.Message, len(e.sess.Messages))
	copy(msgs, e.sess.Messages)
	return msgs, nil
}

// AcquireTurn implements Store. The turn lock is looked up under the store
// mutex but held across the whole pipeline run, so concurrent turns on the
// same session queue up while other sessions are untouched.
func (s *MemoryStore) AcquireTurn(id string) (func(), error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	e.turnMu.Lock()

	s.mu.Lock()
	e.sess.LastActive = time.Now()
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(e.turnMu.Unlock)
	}, nil
}

// Remove implements Store.
func (s *MemoryStore) Remove(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// EvictIdle implements Store.
func (s *MemoryStore) EvictIdle(cutoff time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []string
	for id, e := range s.sessions {
		if e.sess.LastActive.Before(cutoff) {
			delete(s.sessions, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// Len implements Store.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
