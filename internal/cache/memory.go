package cache

import (
	"sync"

	"NovaCS/entity"
)

// MemoryStore is a process-local Store for tests and hosts that opt out
// of persistence.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]entity.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]entity.Message)}
}

func (s *MemoryStore) Get(conversationID string) ([]entity.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs, ok := s.entries[conversationID]
	if !ok {
		return nil, false
	}
	out := make([]entity.Message, len(msgs))
	copy(out, msgs)
	return out, true
}

func (s *MemoryStore) Put(conversationID string, msgs []entity.Message) error {
	stored := make([]entity.Message, len(msgs))
	copy(stored, msgs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[conversationID] = stored
	return nil
}

func (s *MemoryStore) Delete(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, conversationID)
	return nil
}
