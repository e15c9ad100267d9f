package jobs

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository is a Repository for tests and local runs.
type InMemoryRepository struct {
	mu           sync.RWMutex
	postings     map[string]*Posting
	applications map[string]*Application
	seq          int
	// CreateApplicationErr, when set, fails the next application insert.
	CreateApplicationErr error
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		postings:     make(map[string]*Posting),
		applications: make(map[string]*Application),
	}
}

// tick returns strictly increasing timestamps so ordering is stable.
func (r *InMemoryRepository) tick() time.Time {
	r.seq++
	return time.Unix(1700000000, 0).UTC().Add(time.Duration(r.seq) * time.Second)
}

// CreatePosting implements Repository.
func (r *InMemoryRepository) CreatePosting(_ context.Context, p *Posting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.postings {
		if existing.Slug == p.Slug {
			return ErrSlugTaken
		}
	}
	p.ID = uuid.NewString()
	p.CreatedAt = r.tick()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	r.postings[p.ID] = &stored
	return nil
}

// SlugExists implements Repository.
func (r *InMemoryRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.postings {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

// CountPostings implements Repository.
func (r *InMemoryRepository) CountPostings(_ context.Context, profileID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.postings {
		if p.ProfileID == profileID {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) withCount(p Posting) Posting {
	p.ApplicationCount = 0
	for _, a := range r.applications {
		if a.JobPostingID == p.ID {
			p.ApplicationCount++
		}
	}
	return p
}

// GetPosting implements Repository.
func (r *InMemoryRepository) GetPosting(_ context.Context, profileID, id string) (*Posting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.postings[id]
	if !ok || p.ProfileID != profileID {
		return nil, ErrPostingNotFound
	}
	out := r.withCount(*p)
	return &out, nil
}

// GetPublishedPosting implements Repository.
func (r *InMemoryRepository) GetPublishedPosting(_ context.Context, id string) (*Posting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.postings[id]
	if !ok || p.Status != PostingPublished {
		return nil, ErrPostingNotFound
	}
	out := r.withCount(*p)
	return &out, nil
}

// ListPostings implements Repository.
func (r *InMemoryRepository) ListPostings(_ context.Context, profileID string) ([]Posting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Posting{}
	for _, p := range r.postings {
		if p.ProfileID == profileID {
			out = append(out, r.withCount(*p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdatePosting implements Repository.
func (r *InMemoryRepository) UpdatePosting(_ context.Context, p *Posting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.postings[p.ID]
	if !ok || existing.ProfileID != p.ProfileID {
		return ErrPostingNotFound
	}
	updated := *p
	updated.Slug = existing.Slug
	updated.Status = existing.Status
	updated.PublishedAt = existing.PublishedAt
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = r.tick()
	r.postings[p.ID] = &updated
	return nil
}

// SetPostingStatus implements Repository.
func (r *InMemoryRepository) SetPostingStatus(_ context.Context, profileID, id string, status PostingStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.postings[id]
	if !ok || p.ProfileID != profileID {
		return ErrPostingNotFound
	}
	p.Status = status
	if status == PostingPublished && p.PublishedAt == nil {
		p.PublishedAt = &at
	}
	p.UpdatedAt = r.tick()
	return nil
}

// DeletePosting implements Repository.
func (r *InMemoryRepository) DeletePosting(_ context.Context, profileID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.postings[id]
	if !ok || p.ProfileID != profileID {
		return ErrPostingNotFound
	}
	delete(r.postings, id)
	for appID, a := range r.applications {
		if a.JobPostingID == id {
			delete(r.applications, appID)
		}
	}
	return nil
}

// ApplicationExists implements Repository.
func (r *InMemoryRepository) ApplicationExists(_ context.Context, jobID, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.applicationExists(jobID, email), nil
}

func (r *InMemoryRepository) applicationExists(jobID, email string) bool {
	for _, a := range r.applications {
		if a.JobPostingID == jobID && strings.EqualFold(a.ApplicantEmail, email) {
			return true
		}
	}
	return false
}

// CreateApplication implements Repository.
func (r *InMemoryRepository) CreateApplication(_ context.Context, a *Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.CreateApplicationErr; err != nil {
		r.CreateApplicationErr = nil
		return err
	}
	if r.applicationExists(a.JobPostingID, a.ApplicantEmail) {
		return ErrDuplicate
	}
	a.ID = uuid.NewString()
	a.Status = ApplicationNew
	a.CreatedAt = r.tick()
	stored := *a
	r.applications[a.ID] = &stored
	return nil
}

func (r *InMemoryRepository) ownedApplication(profileID, id string) (*Application, bool) {
	a, ok := r.applications[id]
	if !ok {
		return nil, false
	}
	p, ok := r.postings[a.JobPostingID]
	if !ok || p.ProfileID != profileID {
		return nil, false
	}
	return a, true
}

func (r *InMemoryRepository) withTitle(a Application) Application {
	if p, ok := r.postings[a.JobPostingID]; ok {
		a.JobTitle = p.Title
	}
	return a
}

// GetApplication implements Repository.
func (r *InMemoryRepository) GetApplication(_ context.Context, profileID, id string) (*Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.ownedApplication(profileID, id)
	if !ok {
		return nil, ErrApplicationNotFound
	}
	out := r.withTitle(*a)
	return &out, nil
}

// ListApplications implements Repository.
func (r *InMemoryRepository) ListApplications(_ context.Context, profileID string, filter ApplicationFilter) ([]Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Application{}
	for id := range r.applications {
		a, ok := r.ownedApplication(profileID, id)
		if !ok {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.JobID != "" && a.JobPostingID != filter.JobID {
			continue
		}
		out = append(out, r.withTitle(*a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// NewApplicationCount implements Repository.
func (r *InMemoryRepository) NewApplicationCount(_ context.Context, profileID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for id := range r.applications {
		if a, ok := r.ownedApplication(profileID, id); ok && a.Status == ApplicationNew {
			n++
		}
	}
	return n, nil
}

// SetApplicationStatus implements Repository.
func (r *InMemoryRepository) SetApplicationStatus(_ context.Context, profileID, id string, status ApplicationStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.ownedApplication(profileID, id)
	if !ok {
		return ErrApplicationNotFound
	}
	if a.Status == ApplicationNew && status != ApplicationNew {
		a.ReviewedAt = &at
	}
	a.Status = status
	return nil
}

// UpdateApplicationDetails implements Repository.
func (r *InMemoryRepository) UpdateApplicationDetails(_ context.Context, profileID, id string, u DetailsUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.ownedApplication(profileID, id)
	if !ok {
		return ErrApplicationNotFound
	}
	if u.Notes != nil {
		a.Notes = *u.Notes
	}
	switch {
	case u.ClearRating:
		a.Rating = nil
	case u.Rating != nil:
		v := *u.Rating
		a.Rating = &v
	}
	return nil
}

// ApplicationCount returns the number of stored applications.
func (r *InMemoryRepository) ApplicationCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.applications)
}
