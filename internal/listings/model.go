package listings

import (
	"errors"
	"time"

	"github.com/wolfman30/aba-directory/internal/geo"
)

var (
	ErrListingNotFound  = errors.New("listings: listing not found")
	ErrLocationNotFound = errors.New("listings: location not found")
	ErrSlugTaken        = errors.New("listings: slug already in use")
	ErrSlugLocked       = errors.New("listings: slug cannot change after publishing")
	ErrOnlyLocation     = errors.New("listings: cannot delete the only location")
	ErrLocationLimit    = errors.New("listings: location limit reached")
)

// Status is the publication state of a listing.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// ServiceMode is how therapy is delivered.
type ServiceMode string

const (
	ModeInHome     ServiceMode = "in_home"
	ModeInCenter   ServiceMode = "in_center"
	ModeTelehealth ServiceMode = "telehealth"
	ModeHybrid     ServiceMode = "hybrid"
)

// ServiceModes lists every accepted mode.
var ServiceModes = []ServiceMode{ModeInHome, ModeInCenter, ModeTelehealth, ModeHybrid}

// Valid reports whether m is a known mode.
func (m ServiceMode) Valid() bool {
	for _, known := range ServiceModes {
		if m == known {
			return true
		}
	}
	return false
}

// Listing is a provider's public directory entry. One per profile.
type Listing struct {
	ID                 string        `json:"id"`
	ProfileID          string        `json:"profileId"`
	Slug               string        `json:"slug"`
	Headline           string        `json:"headline"`
	Description        string        `json:"description"`
	Summary            string        `json:"summary"`
	ServiceModes       []ServiceMode `json:"serviceModes"`
	Status             Status        `json:"status"`
	IsAcceptingClients bool          `json:"isAcceptingClients"`
	LogoURL            string        `json:"logoUrl,omitempty"`
	PublishedAt        *time.Time    `json:"publishedAt,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// Published reports whether families can see the listing.
func (l *Listing) Published() bool {
	return l.Status == StatusPublished
}

// SlugLocked reports whether the slug is frozen. Once a listing has been
// published its URL is considered public.
func (l *Listing) SlugLocked() bool {
	return l.PublishedAt != nil
}

// ListingUpdate carries the editable listing fields. Nil fields are left
// unchanged.
type ListingUpdate struct {
	Headline           *string        `json:"headline,omitempty"`
	Description        *string        `json:"description,omitempty"`
	Summary            *string        `json:"summary,omitempty"`
	ServiceModes       *[]ServiceMode `json:"serviceModes,omitempty"`
	IsAcceptingClients *bool          `json:"isAcceptingClients,omitempty"`
	LogoURL            *string        `json:"logoUrl,omitempty"`
}

// DefaultServiceRadiusMiles applies when a location omits its radius.
const DefaultServiceRadiusMiles = 25

// Location is a physical or service-area site of a listing.
type Location struct {
	ID                 string    `json:"id"`
	ListingID          string    `json:"listingId"`
	Label              string    `json:"label,omitempty"`
	Street             string    `json:"street,omitempty"`
	City               string    `json:"city"`
	State              string    `json:"state"`
	PostalCode         string    `json:"postalCode,omitempty"`
	Latitude           *float64  `json:"latitude"`
	Longitude          *float64  `json:"longitude"`
	ServiceRadiusMiles int       `json:"serviceRadiusMiles"`
	IsPrimary          bool      `json:"isPrimary"`
	IsFeatured         bool      `json:"isFeatured"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Point returns the coordinates when both are set.
func (l *Location) Point() (geo.Point, bool) {
	if l.Latitude == nil || l.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Latitude: *l.Latitude, Longitude: *l.Longitude}, true
}

// Address is the geocoding string for the location.
func (l *Location) Address() string {
	return geo.Address(l.Street, l.City, l.State, l.PostalCode)
}

// LocationInput is the editable part of a location.
type LocationInput struct {
	Label              string   `json:"label"`
	Street             string   `json:"street"`
	City               string   `json:"city"`
	State              string   `json:"state"`
	PostalCode         string   `json:"postalCode"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	ServiceRadiusMiles int      `json:"serviceRadiusMiles"`
	IsPrimary          bool     `json:"isPrimary"`
}
