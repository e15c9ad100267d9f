package communications

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// InMemoryRepository is a Repository for tests and local runs.
type InMemoryRepository struct {
	mu   sync.RWMutex
	rows []Communication
}

// NewInMemoryRepository creates an empty log.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

func (r *InMemoryRepository) Create(_ context.Context, c *Communication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uuid.NewString()
	r.rows = append(r.rows, *c)
	return nil
}

func (r *InMemoryRepository) matching(profileID string, keep func(Communication) bool) []Communication {
	out := []Communication{}
	for _, m := range r.rows {
		if m.ProfileID == profileID && keep(m) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	return out
}

func (r *InMemoryRepository) ListForClient(_ context.Context, profileID, clientID string) ([]Communication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.matching(profileID, func(m Communication) bool { return m.ClientID == clientID }), nil
}

func (r *InMemoryRepository) List(_ context.Context, profileID string, filter Filter) ([]Communication, int, error) {
	filter = filter.normalized()
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.matching(profileID, func(m Communication) bool {
		switch {
		case filter.ClientID != "" && m.ClientID != filter.ClientID:
			return false
		case filter.TemplateSlug != "" && m.TemplateSlug != filter.TemplateSlug:
			return false
		case filter.From != nil && m.SentAt.Before(*filter.From):
			return false
		case filter.To != nil && m.SentAt.After(*filter.To):
			return false
		}
		return true
	})
	start := filter.offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + filter.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

// All returns every logged row, for tests.
func (r *InMemoryRepository) All() []Communication {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Communication(nil), r.rows...)
}
