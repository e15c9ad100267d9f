package listings

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/aba-directory/internal/attributes"
	"github.com/wolfman30/aba-directory/internal/geo"
	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/internal/profiles"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

var tracer = otel.Tracer("aba.internal.listings")

// PlanResolver is the slice of plans.Resolver the service needs.
type PlanResolver interface {
	Resolve(ctx context.Context, profileID string) (plans.Resolution, error)
	Observe(feature plans.Feature, d plans.Decision)
}

// AttributeReader loads listing attributes for the public view.
type AttributeReader interface {
	Get(ctx context.Context, listingID string) (attributes.Attributes, error)
}

// ProfileReader loads the owning agency for the public view.
type ProfileReader interface {
	Get(ctx context.Context, id string) (*profiles.Profile, error)
}

// Service owns listing and location rules. Every dashboard method is scoped
// to the caller's own listing.
type Service struct {
	repo     Repository
	plans    PlanResolver
	geocoder geo.Geocoder
	attrs    AttributeReader
	profiles ProfileReader
	logger   *logging.Logger
}

// NewService wires the listing service. A nil geocoder disables geocoding.
func NewService(repo Repository, resolver PlanResolver, geocoder geo.Geocoder, attrs AttributeReader, profiles ProfileReader, logger *logging.Logger) *Service {
	if repo == nil || resolver == nil {
		panic("listings: repository and resolver required")
	}
	if geocoder == nil {
		geocoder = geo.NoopGeocoder{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, plans: resolver, geocoder: geocoder, attrs: attrs, profiles: profiles, logger: logger}
}

// GetForProfile returns the caller's listing.
func (s *Service) GetForProfile(ctx context.Context, profileID string) (*Listing, error) {
	return s.repo.GetByProfile(ctx, profileID)
}

// Update edits the caller's listing.
func (s *Service) Update(ctx context.Context, profileID string, update ListingUpdate) (*Listing, error) {
	update, err := normalizeUpdate(update)
	if err != nil {
		return nil, err
	}
	listing, err := s.repo.GetByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, listing.ID, update); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, listing.ID)
}

// ChangeSlug renames the listing URL. Rejected once the listing has been
// published.
func (s *Service) ChangeSlug(ctx context.Context, profileID, raw string) (*Listing, error) {
	slug, err := normalizeSlug(raw)
	if err != nil {
		return nil, err
	}
	listing, err := s.repo.GetByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if listing.SlugLocked() {
		return nil, ErrSlugLocked
	}
	if listing.Slug == slug {
		return listing, nil
	}
	if err := s.repo.SetSlug(ctx, listing.ID, slug); err != nil {
		return nil, err
	}
	listing.Slug = slug
	return listing, nil
}

// Publish makes the listing visible to families.
func (s *Service) Publish(ctx context.Context, profileID string) error {
	return s.setStatus(ctx, profileID, StatusPublished)
}

// Unpublish hides the listing. The slug stays reserved.
func (s *Service) Unpublish(ctx context.Context, profileID string) error {
	return s.setStatus(ctx, profileID, StatusDraft)
}

func (s *Service) setStatus(ctx context.Context, profileID string, status Status) error {
	listing, err := s.repo.GetByProfile(ctx, profileID)
	if err != nil {
		return err
	}
	if err := s.repo.SetStatus(ctx, listing.ID, status); err != nil {
		return err
	}
	s.logger.Info("listing status changed", "listing_id", listing.ID, "status", status)
	return nil
}

// ListLocations returns the caller's locations, primary first.
func (s *Service) ListLocations(ctx context.Context, profileID string) ([]Location, error) {
	listing, err := s.repo.GetByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListLocations(ctx, listing.ID)
}

// AddLocation adds a location within the plan's location quota. Geocoding
// failures leave coordinates empty but the location is still saved.
func (s *Service) AddLocation(ctx context.Context, profileID string, in LocationInput) (*Location, bool, error) {
	ctx, span := tracer.Start(ctx, "listings.add_location")
	defer span.End()

	in, err := normalizeLocation(in)
	if err != nil {
		return nil, false, err
	}
	listing, err := s.repo.GetByProfile(ctx, profileID)
	if err != nil {
		return nil, false, err
	}
	res, err := s.plans.Resolve(ctx, profileID)
	if err != nil {
		return nil, false, fmt.Errorf("listings: resolve plan: %w", err)
	}
	count, err := s.repo.CountLocations(ctx, listing.ID)
	if err != nil {
		return nil, false, err
	}
	decision := plans.GuardAddLocation(res.Tier, count)
	s.plans.Observe(plans.FeatureLocations, decision)
	if err := plans.Denied(plans.FeatureLocations, decision); err != nil {
		return nil, false, err
	}

	loc := &Location{
		ListingID:          listing.ID,
		Label:              in.Label,
		Street:             in.Street,
		City:               in.City,
		State:              in.State,
		PostalCode:         in.PostalCode,
		Latitude:           in.Latitude,
		Longitude:          in.Longitude,
		ServiceRadiusMiles: in.ServiceRadiusMiles,
	}
	geocoded := loc.Latitude != nil
	if !geocoded {
		loc.Latitude, loc.Longitude, geocoded = s.geocode(ctx, loc.Address())
	}

	limit := res.Features.MaxLocations
	if err := s.repo.AddLocation(ctx, loc, limit, in.IsPrimary); err != nil {
		if errors.Is(err, ErrLocationLimit) {
			return nil, false, plans.Denied(plans.FeatureLocations, plans.GuardAddLocation(res.Tier, limit))
		}
		span.RecordError(err)
		return nil, false, err
	}
	span.SetAttributes(attribute.Bool("aba.location.geocoded", geocoded), attribute.Bool("aba.location.primary", loc.IsPrimary))
	return loc, geocoded, nil
}

// UpdateLocation edits a location and re-geocodes when the address changed.
func (s *Service) UpdateLocation(ctx context.Context, profileID, locationID string, in LocationInput) (*Location, bool, error) {
	in, err := normalizeLocation(in)
	if err != nil {
		return nil, false, err
	}
	listing, err := s.repo.GetByProfile(ctx, profileID)
	if err != nil {
		return nil, false, err
	}
	existing, err := s.repo.GetLocation(ctx, listing.ID, locationID)
	if err != nil {
		return nil, false, err
	}

	addressChanged := existing.Street != in.Street || existing.City != in.City ||
		existing.State != in.State || existing.PostalCode != in.PostalCode

	updated := *existing
	updated.Label = in.Label
	updated.Street = in.Street
	updated.City = in.City
	updated.State = in.State
	updated.PostalCode = in.PostalCode
	updated.ServiceRadiusMiles = in.ServiceRadiusMiles

	switch {
	case in.Latitude != nil:
		updated.Latitude, updated.Longitude = in.Latitude, in.Longitude
	case addressChanged:
		updated.Latitude, updated.Longitude, _ = s.geocode(ctx, updated.Address())
	}
	if err := s.repo.UpdateLocation(ctx, &updated, in.IsPrimary && !existing.IsPrimary); err != nil {
		return nil, false, err
	}
	_, geocoded := updated.Point()
	return &updated, geocoded, nil
}

// DeleteLocation removes one of the caller's locations.
func (s *Service) DeleteLocation(ctx context.Context, profileID, locationID string) error {
	listing, err := s.repo.GetByProfile(ctx, profileID)
	if err != nil {
		return err
	}
	return s.repo.DeleteLocation(ctx, listing.ID, locationID)
}

// SetPrimary makes locationID the listing's primary location.
func (s *Service) SetPrimary(ctx context.Context, profileID, locationID string) error {
	listing, err := s.repo.GetByProfile(ctx, profileID)
	if err != nil {
		return err
	}
	return s.repo.SetPrimary(ctx, listing.ID, locationID)
}

func (s *Service) geocode(ctx context.Context, address string) (*float64, *float64, bool) {
	if address == "" {
		return nil, nil, false
	}
	res, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		if !errors.Is(err, geo.ErrNoResult) {
			s.logger.Warn("geocoding failed", "error", err)
		}
		return nil, nil, false
	}
	lat, lng := res.Latitude, res.Longitude
	return &lat, &lng, true
}

// PublicListing is the family-facing view of a published listing.
type PublicListing struct {
	*Listing
	AgencyName         string                `json:"agencyName"`
	ContactEmail       string                `json:"contactEmail,omitempty"`
	ContactPhone       string                `json:"contactPhone,omitempty"`
	Website            string                `json:"website,omitempty"`
	Locations          []Location            `json:"locations"`
	Attributes         attributes.Attributes `json:"attributes"`
	ContactFormEnabled bool                  `json:"contactFormEnabled"`
	VideoURL           string                `json:"videoUrl,omitempty"`
	VerifiedBadge      bool                  `json:"verifiedBadge"`
}

// GetPublic loads a published listing by slug with its locations and the
// attributes the owner's effective tier allows to be shown.
func (s *Service) GetPublic(ctx context.Context, slug string) (*PublicListing, error) {
	listing, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	locations, err := s.repo.ListLocations(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	res, err := s.plans.Resolve(ctx, listing.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("listings: resolve plan: %w", err)
	}

	out := &PublicListing{Listing: listing, Locations: locations, Attributes: attributes.Attributes{}}
	if s.profiles != nil {
		p, err := s.profiles.Get(ctx, listing.ProfileID)
		if err != nil {
			return nil, fmt.Errorf("listings: load profile: %w", err)
		}
		out.AgencyName, out.ContactEmail, out.ContactPhone, out.Website = p.AgencyName, p.ContactEmail, p.ContactPhone, p.Website
	}
	if s.attrs != nil {
		attrs, err := s.attrs.Get(ctx, listing.ID)
		if err != nil {
			return nil, err
		}
		out.Attributes = attrs
	}
	out.ContactFormEnabled = res.Features.HasContactForm && out.Attributes.ContactFormEnabled()
	if res.Features.HasVideoEmbed {
		out.VideoURL = out.Attributes.VideoURL()
	}
	out.VerifiedBadge = res.Features.HasVerifiedBadge
	return out, nil
}

// AttributeOwners adapts a Repository to the attribute service's ownership
// lookups.
type AttributeOwners struct {
	Repo Repository
}

// ListingOwner implements attributes.OwnerLookup.
func (a AttributeOwners) ListingOwner(ctx context.Context, listingID string) (string, error) {
	l, err := a.Repo.GetByID(ctx, listingID)
	if errors.Is(err, ErrListingNotFound) {
		return "", attributes.ErrListingNotFound
	}
	if err != nil {
		return "", err
	}
	return l.ProfileID, nil
}

// ListingIDForProfile implements attributes.ListingLookup.
func (a AttributeOwners) ListingIDForProfile(ctx context.Context, profileID string) (string, error) {
	l, err := a.Repo.GetByProfile(ctx, profileID)
	if err != nil {
		return "", err
	}
	return l.ID, nil
}
