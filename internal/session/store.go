// Package session keeps bounded per-session conversation history in memory.
// History does not survive restarts; the id is the only handle a caller
// keeps across requests.
package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Exchange is one completed (user query, assistant answer) pair.
type Exchange struct {
	UserMessage      string
	AssistantMessage string
}

type Store struct {
	mu         sync.RWMutex
	sessions   map[string][]Exchange
	maxHistory int
}

func NewStore(maxHistory int) *Store {
	return &Store{
		sessions:   make(map[string][]Exchange),
		maxHistory: maxHistory,
	}
}

// GetOrCreate returns the id and current history, minting a fresh opaque id
// when none is supplied. The caller reuses the returned id on later queries.
func (s *Store) GetOrCreate(id string) (string, []Exchange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = uuid.New().String()
	}
	if _, ok := s.sessions[id]; !ok {
		s.sessions[id] = nil
	}
	return id, append([]Exchange(nil), s.sessions[id]...)
}

// Append records a completed exchange, evicting the oldest entries beyond
// the configured cap. Appending under an unknown id creates the session;
// last-write-wins under concurrent appends to the same id.
func (s *Store) Append(id string, ex Exchange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.sessions[id], ex)
	if len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}
	s.sessions[id] = history
}

// Clear discards a session's history but keeps the id live, so subsequent
// queries with it start from an empty history. Clearing an id that was
// never seen is ErrNotFound; clearing twice is not.
func (s *Store) Clear(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	s.sessions[id] = nil
	return nil
}
