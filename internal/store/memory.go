package store

import (
	"context"
	"sync"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/model/chat"
)

// MemoryStore implements TranscriptStore with in-memory slices,
// suitable for tests and local runs without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]chat.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string][]chat.Message)}
}

// Append records a message. Timestamps are clamped so they never
// decrease within a session.
func (s *MemoryStore) Append(_ context.Context, msg chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.messages[msg.SessionID]
	if n := len(log); n > 0 && msg.Timestamp < log[n-1].Timestamp {
		msg.Timestamp = log[n-1].Timestamp
	}
	s.messages[msg.SessionID] = append(log, msg)
	return nil
}

func (s *MemoryStore) History(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.messages[sessionID]
	copied := make([]chat.Message, len(log))
	copy(copied, log)
	return copied, nil
}

func (s *MemoryStore) Latest(_ context.Context, sessionID string) (*chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.messages[sessionID]
	if len(log) == 0 {
		return nil, nil
	}
	msg := log[len(log)-1]
	return &msg, nil
}
