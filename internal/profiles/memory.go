package profiles

import (
	"context"
	"sync"

	"github.com/wolfman30/aba-directory/internal/plans"
)

// InMemoryRepository keeps profiles in a map. Used by tests and local runs.
type InMemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository(seed ...*Profile) *InMemoryRepository {
	r := &InMemoryRepository{profiles: make(map[string]*Profile)}
	for _, p := range seed {
		r.Put(p)
	}
	return r
}

// Put inserts or replaces a profile.
func (r *InMemoryRepository) Put(p *Profile) {
	cp := *p
	r.mu.Lock()
	r.profiles[p.ID] = &cp
	r.mu.Unlock()
}

// Get implements Repository.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// GetByStripeCustomer implements Repository.
func (r *InMemoryRepository) GetByStripeCustomer(_ context.Context, customerID string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.profiles {
		if customerID != "" && p.StripeCustomerID == customerID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// LoadPlanState implements plans.StateLoader.
func (r *InMemoryRepository) LoadPlanState(ctx context.Context, id string) (plans.PlanState, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return plans.PlanState{}, plans.ErrProfileNotFound
	}
	return p.PlanState(), nil
}

// ApplySubscription implements Repository.
func (r *InMemoryRepository) ApplySubscription(_ context.Context, u SubscriptionUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.StripeCustomerID != "" && p.StripeCustomerID == u.StripeCustomerID {
			p.PlanTier = u.PlanTier
			if !p.PlanTier.Valid() {
				p.PlanTier = plans.TierFree
			}
			p.SubscriptionStatus = u.Status
			p.BillingInterval = u.BillingInterval
			return nil
		}
	}
	return ErrNotFound
}
