package plans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("aba.internal.plans")

// ErrProfileNotFound is returned by loaders when the profile does not exist.
var ErrProfileNotFound = errors.New("plans: profile not found")

// PlanState is the billing state stored on a profile.
type PlanState struct {
	ProfileID             string
	StoredTier            Tier
	Status                SubscriptionStatus
	OnboardingCompletedAt *time.Time
}

// Onboarding reports whether the profile has not finished onboarding.
func (s PlanState) Onboarding() bool {
	return s.OnboardingCompletedAt == nil
}

// StateLoader reads the current plan state of a profile. Implementations
// must hit the source of truth; billing webhooks update it asynchronously.
type StateLoader interface {
	LoadPlanState(ctx context.Context, profileID string) (PlanState, error)
}

// GateObserver records gate decisions.
type GateObserver interface {
	ObserveGate(feature string, allowed bool)
}

// Resolution is the per-request view of what a profile may do.
type Resolution struct {
	State    PlanState `json:"-"`
	Tier     Tier      `json:"effectiveTier"`
	Features Features  `json:"features"`
}

// ProfileTier is the tier used for the listing's premium profile fields.
// While onboarding the selected tier is honoured so those fields can be
// filled before checkout; afterwards it is the effective tier.
func (r Resolution) ProfileTier() Tier {
	if r.State.Onboarding() && r.State.StoredTier.Valid() {
		return r.State.StoredTier
	}
	return r.Tier
}

// Resolve builds a Resolution from an explicit state.
func Resolve(state PlanState) Resolution {
	tier := EffectiveTier(state.StoredTier, state.Status)
	return Resolution{State: state, Tier: tier, Features: FeaturesFor(tier)}
}

// Resolver loads plan state on every call. It holds no cache.
type Resolver struct {
	loader   StateLoader
	observer GateObserver
}

// NewResolver wires a loader and an optional observer.
func NewResolver(loader StateLoader, observer GateObserver) *Resolver {
	if loader == nil {
		panic("plans: state loader required")
	}
	return &Resolver{loader: loader, observer: observer}
}

// Resolve loads the profile's state and computes its effective tier.
func (r *Resolver) Resolve(ctx context.Context, profileID string) (Resolution, error) {
	ctx, span := tracer.Start(ctx, "plans.resolve")
	defer span.End()

	state, err := r.loader.LoadPlanState(ctx, profileID)
	if err != nil {
		span.RecordError(err)
		return Resolution{}, fmt.Errorf("plans: load state: %w", err)
	}
	res := Resolve(state)
	span.SetAttributes(
		attribute.String("aba.plan.stored_tier", string(state.StoredTier)),
		attribute.String("aba.plan.effective_tier", string(res.Tier)),
	)
	return res, nil
}

// Check resolves the profile and evaluates a single boolean feature.
func (r *Resolver) Check(ctx context.Context, profileID string, feature Feature) (Decision, Resolution, error) {
	res, err := r.Resolve(ctx, profileID)
	if err != nil {
		return Decision{}, Resolution{}, err
	}
	decision := GuardFeature(res.Tier, feature)
	r.Observe(feature, decision)
	return decision, res, nil
}

// Observe reports a decision made outside Check.
func (r *Resolver) Observe(feature Feature, d Decision) {
	if r == nil || r.observer == nil {
		return
	}
	r.observer.ObserveGate(string(feature), d.Allowed)
}

// StaticLoader serves fixed states, for tests and local tooling.
type StaticLoader map[string]PlanState

// LoadPlanState implements StateLoader.
func (s StaticLoader) LoadPlanState(_ context.Context, profileID string) (PlanState, error) {
	state, ok := s[profileID]
	if !ok {
		return PlanState{}, ErrProfileNotFound
	}
	state.ProfileID = profileID
	return state, nil
}
