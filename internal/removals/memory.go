package removals

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository is a Repository for tests and local runs.
type InMemoryRepository struct {
	mu       sync.Mutex
	requests map[string]*Request
	targets  map[string]*DirectoryListing
	profiles map[string]Requester
	listings map[string]ListingRef
	seq      int
	// HideErr, when set, fails hiding the directory listing on approval.
	HideErr error
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		requests: make(map[string]*Request),
		targets:  make(map[string]*DirectoryListing),
		profiles: make(map[string]Requester),
		listings: make(map[string]ListingRef),
	}
}

// PutDirectoryListing seeds a directory listing. An empty status is active.
func (r *InMemoryRepository) PutDirectoryListing(d DirectoryListing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.Status == "" {
		d.Status = "active"
	}
	r.targets[d.ID] = &d
}

// DirectoryListing returns a seeded directory listing.
func (r *InMemoryRepository) DirectoryListing(id string) (DirectoryListing, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.targets[id]
	if !ok {
		return DirectoryListing{}, false
	}
	return *d, true
}

// PutRequester seeds the profile and listing shown next to requests.
func (r *InMemoryRepository) PutRequester(p Requester, l ListingRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.ID] = p
	r.listings[l.ID] = l
}

func (r *InMemoryRepository) tick() time.Time {
	r.seq++
	return time.Unix(1700000000, 0).UTC().Add(time.Duration(r.seq) * time.Second)
}

// Create implements Repository.
func (r *InMemoryRepository) Create(_ context.Context, req NewRequest) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.targets[req.DirectoryListingID]
	if !ok {
		return "", ErrTargetNotFound
	}
	if r.pendingExists(req.ProfileID, req.DirectoryListingID) {
		return "", ErrPendingExists
	}
	profile := r.profiles[req.ProfileID]
	profile.ID = req.ProfileID
	listing := r.listings[req.ListingID]
	listing.ID = req.ListingID
	stored := &Request{
		ID:               uuid.NewString(),
		Reason:           req.Reason,
		Status:           StatusPending,
		CreatedAt:        r.tick(),
		DirectoryListing: *target,
		Profile:          profile,
		Listing:          listing,
	}
	r.requests[stored.ID] = stored
	return stored.ID, nil
}

func (r *InMemoryRepository) pendingExists(profileID, targetID string) bool {
	for _, req := range r.requests {
		if req.Profile.ID == profileID && req.DirectoryListing.ID == targetID && req.Status == StatusPending {
			return true
		}
	}
	return false
}

// PendingExists implements Repository.
func (r *InMemoryRepository) PendingExists(_ context.Context, profileID, directoryListingID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingExists(profileID, directoryListingID), nil
}

func (r *InMemoryRepository) view(req *Request) Request {
	out := *req
	if d, ok := r.targets[req.DirectoryListing.ID]; ok {
		out.DirectoryListing = *d
	}
	return out
}

func (r *InMemoryRepository) sorted() []*Request {
	out := make([]*Request, 0, len(r.requests))
	for _, req := range r.requests {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Get implements Repository.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := r.view(req)
	return &out, nil
}

// Latest implements Repository.
func (r *InMemoryRepository) Latest(_ context.Context, profileID, directoryListingID string) (*Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.sorted() {
		if req.Profile.ID == profileID && req.DirectoryListing.ID == directoryListingID {
			out := r.view(req)
			return &out, nil
		}
	}
	return nil, nil
}

// List implements Repository.
func (r *InMemoryRepository) List(_ context.Context, f Filter) (*Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	page := &Page{Requests: []Request{}}
	for _, req := range r.sorted() {
		if f.Status != "" && req.Status != f.Status {
			continue
		}
		if page.Total >= f.offset() && len(page.Requests) < f.Limit {
			page.Requests = append(page.Requests, r.view(req))
		}
		page.Total++
	}
	return page, nil
}

// Decide implements Repository.
func (r *InMemoryRepository) Decide(_ context.Context, id string, d Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return ErrNotFound
	}
	if req.Status != StatusPending {
		return ErrAlreadyProcessed
	}
	if d.Status == StatusApproved {
		if r.HideErr != nil {
			return r.HideErr
		}
		target, ok := r.targets[req.DirectoryListing.ID]
		if !ok {
			return ErrTargetNotFound
		}
		target.Status = "removed"
	}
	at := d.ReviewedAt
	req.Status = d.Status
	req.AdminNotes = d.AdminNotes
	req.ReviewedBy = d.ReviewedBy
	req.ReviewedAt = &at
	return nil
}

// Stats implements Repository.
func (r *InMemoryRepository) Stats(context.Context) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s Stats
	for _, d := range r.targets {
		s.TotalDirectoryListings++
		switch d.Status {
		case "active":
			s.ActiveDirectoryListings++
		case "removed":
			s.RemovedDirectoryListings++
		}
	}
	for _, req := range r.requests {
		s.TotalRequests++
		if req.Status == StatusPending {
			s.PendingRequests++
		}
	}
	return s, nil
}

var (
	_ Repository = (*InMemoryRepository)(nil)
	_ Repository = (*PostgresRepository)(nil)
)
