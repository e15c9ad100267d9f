package notifications

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository is a Repository for tests and local runs.
type InMemoryRepository struct {
	mu   sync.RWMutex
	rows []*Notification
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

func (r *InMemoryRepository) Create(_ context.Context, n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	stored := *n
	r.rows = append(r.rows, &stored)
	return nil
}

func (r *InMemoryRepository) List(_ context.Context, profileID string, filter Filter) ([]Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []Notification
	for _, n := range r.rows {
		if n.ProfileID != profileID {
			continue
		}
		if filter.Type != "" && n.Type != filter.Type {
			continue
		}
		if filter.IsRead != nil && n.IsRead != *filter.IsRead {
			continue
		}
		matched = append(matched, *n)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	out := []Notification{}
	for i := filter.Offset; i < len(matched) && len(out) < filter.limit(); i++ {
		out = append(out, matched[i])
	}
	return out, nil
}

func (r *InMemoryRepository) UnreadCount(ctx context.Context, profileID string) (int, error) {
	counts, _ := r.UnreadCountsByType(ctx, profileID)
	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

func (r *InMemoryRepository) UnreadCountsByType(_ context.Context, profileID string) (map[Type]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[Type]int{}
	for _, n := range r.rows {
		if n.ProfileID == profileID && !n.IsRead {
			out[n.Type]++
		}
	}
	return out, nil
}

func (r *InMemoryRepository) MarkRead(_ context.Context, profileID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.rows {
		if n.ID == id && n.ProfileID == profileID {
			if !n.IsRead {
				now := time.Now().UTC()
				n.IsRead, n.ReadAt = true, &now
			}
			return nil
		}
	}
	return ErrNotFound
}

func (r *InMemoryRepository) MarkAllRead(_ context.Context, profileID string, typ Type) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var changed int64
	now := time.Now().UTC()
	for _, n := range r.rows {
		if n.ProfileID == profileID && !n.IsRead && (typ == "" || n.Type == typ) {
			n.IsRead, n.ReadAt = true, &now
			changed++
		}
	}
	return changed, nil
}

// All returns a copy of every stored notification.
func (r *InMemoryRepository) All() []Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Notification, 0, len(r.rows))
	for _, n := range r.rows {
		out = append(out, *n)
	}
	return out
}
