package inquiries

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
	rows map[string]*Inquiry
	// Locations resolves location summaries for List and Get.
	Locations map[string]LocationSummary
	now       func() time.Time
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		rows:      make(map[string]*Inquiry),
		Locations: make(map[string]LocationSummary),
		now:       time.Now,
	}
}

// Create implements Repository.
func (r *InMemoryRepository) Create(_ context.Context, in *Inquiry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in.ID = uuid.NewString()
	// Strictly increasing timestamps keep ordering deterministic in tests.
	in.CreatedAt = r.now().UTC().Add(time.Duration(len(r.rows)) * time.Microsecond)
	in.Status = StatusUnread
	stored := *in
	r.rows[in.ID] = &stored
	return nil
}

func (r *InMemoryRepository) withLocation(in Inquiry) Inquiry {
	if loc, ok := r.Locations[in.LocationID]; ok && in.LocationID != "" {
		loc.ID = in.LocationID
		in.Location = &loc
	}
	return in
}

// Get implements Repository.
func (r *InMemoryRepository) Get(_ context.Context, listingID, id string) (*Inquiry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	in, ok := r.rows[id]
	if !ok || in.ListingID != listingID {
		return nil, ErrNotFound
	}
	out := r.withLocation(*in)
	return &out, nil
}

// List implements Repository.
func (r *InMemoryRepository) List(_ context.Context, listingID string, filter Filter) ([]Inquiry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wanted := make(map[string]bool, len(filter.LocationIDs))
	for _, id := range filter.LocationIDs {
		wanted[id] = true
	}
	out := []Inquiry{}
	for _, in := range r.rows {
		if in.ListingID != listingID {
			continue
		}
		if filter.Status == "" && in.Status == StatusArchived {
			continue
		}
		if filter.Status != "" && in.Status != filter.Status {
			continue
		}
		if len(wanted) > 0 && in.LocationID != "" && !wanted[in.LocationID] {
			continue
		}
		out = append(out, r.withLocation(*in))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UnreadCount implements Repository.
func (r *InMemoryRepository) UnreadCount(_ context.Context, listingID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, in := range r.rows {
		if in.ListingID == listingID && in.Status == StatusUnread {
			n++
		}
	}
	return n, nil
}

// Transition implements Repository.
func (r *InMemoryRepository) Transition(_ context.Context, listingID, id string, from, to Status, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.rows[id]
	if !ok || in.ListingID != listingID || in.Status != from {
		return ErrInvalidTransition
	}
	in.Status = to
	switch to {
	case StatusRead:
		in.ReadAt = &at
	case StatusReplied:
		if in.ReadAt == nil {
			in.ReadAt = &at
		}
		in.RepliedAt = &at
	case StatusArchived:
		in.ArchivedAt = &at
	}
	return nil
}

// Count returns the number of stored inquiries, archived included.
func (r *InMemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}
