package attributes

import (
	"context"
	"encoding/json"
	"sync"
)

// InMemoryStore is a Store for tests and local runs.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows map[string]map[Key]json.RawMessage
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{rows: make(map[string]map[Key]json.RawMessage)}
}

func (s *InMemoryStore) Get(_ context.Context, listingID string) (Attributes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Attributes{}
	for k, v := range s.rows[listingID] {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out, nil
}

func (s *InMemoryStore) Upsert(_ context.Context, listingID string, values map[Key]json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[listingID]
	if !ok {
		row = make(map[Key]json.RawMessage)
		s.rows[listingID] = row
	}
	for k, v := range values {
		row[k] = append(json.RawMessage(nil), v...)
	}
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, listingID string, keys []Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(keys) == 0 {
		delete(s.rows, listingID)
		return nil
	}
	for _, k := range keys {
		delete(s.rows[listingID], k)
	}
	return nil
}

// Count returns the number of stored rows for a listing.
func (s *InMemoryStore) Count(listingID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows[listingID])
}
