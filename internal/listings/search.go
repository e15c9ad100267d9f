package listings

import (
	"context"
	"errors"
	"sort"

	"github.com/wolfman30/aba-directory/internal/geo"
	"github.com/wolfman30/aba-directory/internal/inputval"
	"github.com/wolfman30/aba-directory/internal/plans"
)

const (
	DefaultSearchRadiusMiles = 25
	MaxSearchRadiusMiles     = 200
	defaultSearchLimit       = 50
	maxSearchLimit           = 100
)

// SearchFilter narrows the candidate query.
type SearchFilter struct {
	ServiceMode   ServiceMode
	AcceptingOnly bool
}

// SearchQuery is a nearby search. Either Center or Address must be set.
type SearchQuery struct {
	Center      *geo.Point
	Address     string
	RadiusMiles float64
	Limit       int
	SearchFilter
}

// Section groups results on the results page.
type Section string

const (
	SectionFeatured Section = "featured"
	SectionNearby   Section = "nearby"
)

// SearchResult is one location within the search radius.
type SearchResult struct {
	ListingID     string               `json:"listingId"`
	Slug          string               `json:"slug"`
	Headline      string               `json:"headline"`
	AgencyName    string               `json:"agencyName"`
	Location      Location             `json:"location"`
	DistanceMiles float64              `json:"distanceMiles"`
	Priority      plans.SearchPriority `json:"searchPriority"`
	Section       Section              `json:"section"`
}

// SearchResponse wraps results with the resolved center.
type SearchResponse struct {
	Center        geo.Point      `json:"center"`
	RadiusMiles   float64        `json:"radiusMiles"`
	Results       []SearchResult `json:"results"`
	FeaturedCount int            `json:"featuredCount"`
}

// SearchNearby prefilters by bounding box, keeps locations within the exact
// radius and ranks them: featured first, then paid search priority, then
// distance.
func (s *Service) SearchNearby(ctx context.Context, q SearchQuery) (*SearchResponse, error) {
	ctx, span := tracer.Start(ctx, "listings.search_nearby")
	defer span.End()

	if q.ServiceMode != "" && !q.ServiceMode.Valid() {
		return nil, inputval.Field("serviceMode", "Unknown service mode %q", q.ServiceMode)
	}
	radius := q.RadiusMiles
	if radius <= 0 {
		radius = DefaultSearchRadiusMiles
	}
	if radius > MaxSearchRadiusMiles {
		radius = MaxSearchRadiusMiles
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	var center geo.Point
	switch {
	case q.Center != nil:
		if !q.Center.Valid() {
			return nil, inputval.Field("lat", "Coordinates are out of range")
		}
		center = *q.Center
	case q.Address != "":
		res, err := s.geocoder.Geocode(ctx, geo.Address(q.Address))
		if err != nil {
			if !errors.Is(err, geo.ErrNoResult) {
				span.RecordError(err)
				s.logger.Warn("search geocoding failed", "error", err)
			}
			return nil, inputval.Field("location", "We couldn't find that location")
		}
		center = res.Point
	default:
		return nil, inputval.Field("location", "Enter a city, ZIP code or address")
	}

	candidates, err := s.repo.SearchCandidates(ctx, geo.BoundingBox(center, radius), q.SearchFilter)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	results := Rank(center, radius, candidates)
	featured := 0
	for _, r := range results {
		if r.Section == SectionFeatured {
			featured++
		}
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return &SearchResponse{Center: center, RadiusMiles: radius, Results: results, FeaturedCount: featured}, nil
}

// Rank filters candidates to the radius and orders them. Tier and featured
// status come from the owner's effective tier, so a lapsed subscription
// loses its boost immediately.
func Rank(center geo.Point, radiusMiles float64, candidates []Candidate) []SearchResult {
	out := make([]SearchResult, 0, len(candidates))
	for _, c := range candidates {
		p, ok := c.Location.Point()
		if !ok {
			continue
		}
		d := geo.Distance(center, p)
		if d > radiusMiles {
			continue
		}
		features := plans.Resolve(c.Plan).Features
		section := SectionNearby
		if c.Location.IsFeatured && features.HasFeaturedAddon {
			section = SectionFeatured
		}
		out = append(out, SearchResult{
			ListingID:     c.ListingID,
			Slug:          c.Slug,
			Headline:      c.Headline,
			AgencyName:    c.AgencyName,
			Location:      c.Location,
			DistanceMiles: d,
			Priority:      features.SearchPriority,
			Section:       section,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.Section == SectionFeatured) != (b.Section == SectionFeatured) {
			return a.Section == SectionFeatured
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.DistanceMiles != b.DistanceMiles {
			return a.DistanceMiles < b.DistanceMiles
		}
		return a.Location.ID < b.Location.ID
	})
	return out
}
