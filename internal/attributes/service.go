package attributes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/aba-directory/internal/inputval"
	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

var tracer = otel.Tracer("aba.internal.attributes")

// OwnerLookup resolves which profile owns a listing.
type OwnerLookup interface {
	ListingOwner(ctx context.Context, listingID string) (string, error)
}

// PlanResolver is the slice of plans.Resolver the service needs.
type PlanResolver interface {
	Resolve(ctx context.Context, profileID string) (plans.Resolution, error)
	Observe(feature plans.Feature, d plans.Decision)
}

// Service applies ownership, validation and plan gating around a Store.
type Service struct {
	store  Store
	owners OwnerLookup
	plans  PlanResolver
	logger *logging.Logger
}

// NewService wires the attribute service.
func NewService(store Store, owners OwnerLookup, resolver PlanResolver, logger *logging.Logger) *Service {
	if store == nil || owners == nil || resolver == nil {
		panic("attributes: store, owner lookup and resolver required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, owners: owners, plans: resolver, logger: logger}
}

func (s *Service) authorize(ctx context.Context, profileID, listingID string) error {
	owner, err := s.owners.ListingOwner(ctx, listingID)
	if err != nil {
		if errors.Is(err, ErrListingNotFound) {
			return ErrListingNotFound
		}
		return fmt.Errorf("attributes: owner lookup: %w", err)
	}
	if owner != profileID {
		return ErrListingNotFound
	}
	return nil
}

// Get returns the listing's attributes.
func (s *Service) Get(ctx context.Context, profileID, listingID string) (Attributes, error) {
	if err := s.authorize(ctx, profileID, listingID); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, listingID)
}

// Update validates every supplied key, checks plan gates and upserts them
// together. Keys not supplied are left untouched. Any failure rejects the
// whole call.
func (s *Service) Update(ctx context.Context, profileID, listingID string, raw map[string]json.RawMessage) (Attributes, error) {
	ctx, span := tracer.Start(ctx, "attributes.update")
	defer span.End()
	span.SetAttributes(attribute.String("aba.listing_id", listingID), attribute.Int("aba.attribute_count", len(raw)))

	if err := s.authorize(ctx, profileID, listingID); err != nil {
		return nil, err
	}

	values := make(map[Key]json.RawMessage, len(raw))
	for name, value := range raw {
		key, ok := ParseKey(name)
		if !ok {
			return nil, inputval.Field(name, "Unknown attribute %q", name)
		}
		normalized, err := Validate(key, value)
		if err != nil {
			return nil, err
		}
		values[key] = normalized
	}

	res, err := s.plans.Resolve(ctx, profileID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("attributes: resolve plan: %w", err)
	}
	tier := res.ProfileTier()
	for _, key := range sortedKeys(values) {
		feature, gated := requiredFeature(key, values[key])
		if !gated {
			continue
		}
		decision := plans.GuardFeature(tier, feature)
		s.plans.Observe(feature, decision)
		if err := plans.Denied(feature, decision); err != nil {
			return nil, err
		}
	}

	if err := s.store.Upsert(ctx, listingID, values); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("listing attributes updated", "listing_id", listingID, "keys", len(values))
	return s.store.Get(ctx, listingID)
}

// Clear deletes the named keys, or every key when none are given.
func (s *Service) Clear(ctx context.Context, profileID, listingID string, names []string) error {
	if err := s.authorize(ctx, profileID, listingID); err != nil {
		return err
	}
	keys := make([]Key, 0, len(names))
	for _, name := range names {
		key, ok := ParseKey(name)
		if !ok {
			return inputval.Field(name, "Unknown attribute %q", name)
		}
		keys = append(keys, key)
	}
	return s.store.Delete(ctx, listingID, keys)
}
