package listings

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/aba-directory/internal/geo"
	"github.com/wolfman30/aba-directory/internal/plans"
)

type memoryOwner struct {
	agencyName string
	plan       plans.PlanState
}

// InMemoryRepository is a Repository for tests and local runs. It enforces
// the same primary-location rules as the Postgres repository.
type InMemoryRepository struct {
	mu        sync.RWMutex
	listings  map[string]*Listing
	locations map[string]*Location
	owners    map[string]memoryOwner
	seq       int
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		listings:  make(map[string]*Listing),
		locations: make(map[string]*Location),
		owners:    make(map[string]memoryOwner),
	}
}

// PutListing stores or replaces a listing.
func (r *InMemoryRepository) PutListing(l Listing) *Listing {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = StatusDraft
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	l.UpdatedAt = l.CreatedAt
	stored := l
	r.listings[l.ID] = &stored
	out := stored
	return &out
}

// SetOwner records the agency name and plan state used by search.
func (r *InMemoryRepository) SetOwner(profileID, agencyName string, plan plans.PlanState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	plan.ProfileID = profileID
	r.owners[profileID] = memoryOwner{agencyName: agencyName, plan: plan}
}

func (r *InMemoryRepository) find(match func(*Listing) bool) (*Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.listings {
		if match(l) {
			out := *l
			out.ServiceModes = append([]ServiceMode(nil), l.ServiceModes...)
			return &out, nil
		}
	}
	return nil, ErrListingNotFound
}

func (r *InMemoryRepository) GetByProfile(_ context.Context, profileID string) (*Listing, error) {
	return r.find(func(l *Listing) bool { return l.ProfileID == profileID })
}

func (r *InMemoryRepository) GetByID(_ context.Context, listingID string) (*Listing, error) {
	return r.find(func(l *Listing) bool { return l.ID == listingID })
}

func (r *InMemoryRepository) GetBySlug(_ context.Context, slug string) (*Listing, error) {
	return r.find(func(l *Listing) bool { return l.Slug == slug && l.Published() })
}

func (r *InMemoryRepository) Update(_ context.Context, listingID string, u ListingUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[listingID]
	if !ok {
		return ErrListingNotFound
	}
	if u.Headline != nil {
		l.Headline = *u.Headline
	}
	if u.Description != nil {
		l.Description = *u.Description
	}
	if u.Summary != nil {
		l.Summary = *u.Summary
	}
	if u.ServiceModes != nil {
		l.ServiceModes = append([]ServiceMode(nil), (*u.ServiceModes)...)
	}
	if u.IsAcceptingClients != nil {
		l.IsAcceptingClients = *u.IsAcceptingClients
	}
	if u.LogoURL != nil {
		l.LogoURL = *u.LogoURL
	}
	l.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryRepository) SetSlug(_ context.Context, listingID, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[listingID]
	if !ok {
		return ErrListingNotFound
	}
	if l.SlugLocked() {
		return ErrSlugLocked
	}
	for id, other := range r.listings {
		if id != listingID && other.Slug == slug {
			return ErrSlugTaken
		}
	}
	l.Slug = slug
	return nil
}

func (r *InMemoryRepository) SetStatus(_ context.Context, listingID string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[listingID]
	if !ok {
		return ErrListingNotFound
	}
	l.Status = status
	if status == StatusPublished && l.PublishedAt == nil {
		now := time.Now().UTC()
		l.PublishedAt = &now
	}
	return nil
}

// locationsOf returns the listing's locations oldest first. Caller holds mu.
func (r *InMemoryRepository) locationsOf(listingID string) []*Location {
	var out []*Location
	for _, loc := range r.locations {
		if loc.ListingID == listingID {
			out = append(out, loc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *InMemoryRepository) ListLocations(_ context.Context, listingID string) ([]Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	locs := r.locationsOf(listingID)
	out := make([]Location, 0, len(locs))
	for _, loc := range locs {
		out = append(out, *loc)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].IsPrimary && !out[j].IsPrimary })
	return out, nil
}

func (r *InMemoryRepository) GetLocation(_ context.Context, listingID, locationID string) (*Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loc, ok := r.locations[locationID]
	if !ok || loc.ListingID != listingID {
		return nil, ErrLocationNotFound
	}
	out := *loc
	return &out, nil
}

func (r *InMemoryRepository) CountLocations(_ context.Context, listingID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.locationsOf(listingID)), nil
}

func (r *InMemoryRepository) AddLocation(_ context.Context, loc *Location, limit int, makePrimary bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listings[loc.ListingID]; !ok {
		return ErrListingNotFound
	}
	existing := r.locationsOf(loc.ListingID)
	if len(existing) >= limit {
		return ErrLocationLimit
	}
	loc.IsPrimary = len(existing) == 0 || makePrimary
	if loc.IsPrimary {
		for _, other := range existing {
			other.IsPrimary = false
		}
	}
	if loc.ServiceRadiusMiles <= 0 {
		loc.ServiceRadiusMiles = DefaultServiceRadiusMiles
	}
	r.seq++
	loc.ID = fmt.Sprintf("loc-%04d", r.seq)
	// Monotonic timestamps keep "oldest" well defined in fast tests.
	loc.CreatedAt = time.Unix(0, 0).UTC().Add(time.Duration(r.seq) * time.Second)
	stored := *loc
	r.locations[loc.ID] = &stored
	return nil
}

func (r *InMemoryRepository) UpdateLocation(_ context.Context, loc *Location, makePrimary bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.locations[loc.ID]
	if !ok || stored.ListingID != loc.ListingID {
		return ErrLocationNotFound
	}
	primary, featured, created := stored.IsPrimary, stored.IsFeatured, stored.CreatedAt
	*stored = *loc
	stored.IsPrimary, stored.IsFeatured, stored.CreatedAt = primary, featured, created
	if makePrimary {
		for _, other := range r.locationsOf(loc.ListingID) {
			other.IsPrimary = other.ID == loc.ID
		}
		loc.IsPrimary = true
	}
	return nil
}

func (r *InMemoryRepository) DeleteLocation(_ context.Context, listingID, locationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.locations[locationID]
	if !ok || loc.ListingID != listingID {
		return ErrLocationNotFound
	}
	if len(r.locationsOf(listingID)) <= 1 {
		return ErrOnlyLocation
	}
	delete(r.locations, locationID)
	if loc.IsPrimary {
		r.locationsOf(listingID)[0].IsPrimary = true
	}
	return nil
}

func (r *InMemoryRepository) SetPrimary(_ context.Context, listingID, locationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.locations[locationID]
	if !ok || target.ListingID != listingID {
		return ErrLocationNotFound
	}
	for _, loc := range r.locationsOf(listingID) {
		loc.IsPrimary = loc.ID == locationID
	}
	return nil
}

func (r *InMemoryRepository) SearchCandidates(_ context.Context, box geo.Box, filter SearchFilter) ([]Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Candidate
	for _, loc := range r.locations {
		l := r.listings[loc.ListingID]
		if l == nil || !l.Published() {
			continue
		}
		p, ok := loc.Point()
		if !ok || !box.Contains(p) {
			continue
		}
		if filter.AcceptingOnly && !l.IsAcceptingClients {
			continue
		}
		if filter.ServiceMode != "" && !hasMode(l.ServiceModes, filter.ServiceMode) {
			continue
		}
		owner := r.owners[l.ProfileID]
		out = append(out, Candidate{
			ListingID:          l.ID,
			Slug:               l.Slug,
			Headline:           l.Headline,
			AgencyName:         owner.agencyName,
			ServiceModes:       append([]ServiceMode(nil), l.ServiceModes...),
			IsAcceptingClients: l.IsAcceptingClients,
			Plan:               owner.plan,
			Location:           *loc,
		})
	}
	return out, nil
}

func hasMode(modes []ServiceMode, want ServiceMode) bool {
	for _, m := range modes {
		if m == want {
			return true
		}
	}
	return false
}

// PrimaryCount returns how many locations of the listing are primary.
func (r *InMemoryRepository) PrimaryCount(listingID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, loc := range r.locationsOf(listingID) {
		if loc.IsPrimary {
			n++
		}
	}
	return n
}
