package clients

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryTask struct {
	Task
	reminded bool
	deleted  bool
}

// InMemoryRepository is a Repository for tests and local runs.
type InMemoryRepository struct {
	mu      sync.RWMutex
	clients map[string]*Client
	tasks   []*memoryTask
	seq     int
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{clients: map[string]*Client{}}
}

func (r *InMemoryRepository) Create(_ context.Context, c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.InquiryID != "" {
		for _, existing := range r.clients {
			if existing.InquiryID == c.InquiryID {
				return ErrAlreadyConverted
			}
		}
	}
	r.seq++
	c.ID = uuid.NewString()
	// Monotonic timestamps keep "newest first" well defined in fast tests.
	c.CreatedAt = time.Unix(0, 0).UTC().Add(time.Duration(r.seq) * time.Second)
	c.UpdatedAt = c.CreatedAt
	stored := *c
	r.clients[c.ID] = &stored
	return nil
}

func (r *InMemoryRepository) Get(_ context.Context, profileID, id string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	if !ok || c.ProfileID != profileID {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (r *InMemoryRepository) List(_ context.Context, profileID string, status Status) ([]Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Client{}
	for _, c := range r.clients {
		if c.ProfileID == profileID && (status == "" || c.Status == status) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) Update(_ context.Context, c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.clients[c.ID]
	if !ok || stored.ProfileID != c.ProfileID {
		return ErrNotFound
	}
	listing, inquiry, created := stored.ListingID, stored.InquiryID, stored.CreatedAt
	*stored = *c
	stored.ListingID, stored.InquiryID, stored.CreatedAt = listing, inquiry, created
	stored.UpdatedAt = time.Now().UTC()
	c.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *InMemoryRepository) CreateTask(_ context.Context, t *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	t.ID = uuid.NewString()
	t.Status = TaskPending
	t.CreatedAt = time.Unix(0, 0).UTC().Add(time.Duration(r.seq) * time.Second)
	r.tasks = append(r.tasks, &memoryTask{Task: *t})
	return nil
}

func (r *InMemoryRepository) ListTasks(_ context.Context, profileID string, filter TaskFilter) ([]Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Task{}
	for _, t := range r.tasks {
		if t.deleted || t.ProfileID != profileID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.ClientID != "" && t.ClientID != filter.ClientID {
			continue
		}
		task := t.Task
		if c, ok := r.clients[task.ClientID]; ok {
			task.ClientName = c.ChildName()
		}
		out = append(out, task)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DueDate, out[j].DueDate
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *InMemoryRepository) findTask(profileID, id string) *memoryTask {
	for _, t := range r.tasks {
		if t.ID == id && t.ProfileID == profileID && !t.deleted {
			return t
		}
	}
	return nil
}

func (r *InMemoryRepository) CompleteTask(_ context.Context, profileID, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.findTask(profileID, id)
	if t == nil {
		return ErrTaskNotFound
	}
	t.Status = TaskCompleted
	if t.CompletedAt == nil {
		t.CompletedAt = &at
	}
	return nil
}

func (r *InMemoryRepository) DeleteTask(_ context.Context, profileID, id string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.findTask(profileID, id)
	if t == nil {
		return ErrTaskNotFound
	}
	t.deleted = true
	return nil
}

func (r *InMemoryRepository) ClaimOverdue(_ context.Context, now time.Time, limit int) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*memoryTask
	for _, t := range r.tasks {
		if !t.deleted && !t.reminded && t.Overdue(now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].DueDate.Before(*due[j].DueDate) })
	out := []Task{}
	for _, t := range due {
		if len(out) == limit {
			break
		}
		t.reminded = true
		out = append(out, t.Task)
	}
	return out, nil
}
