// Package removals lets a provider ask for an imported directory listing of
// their business to be hidden, and lets admins decide those requests.
package removals

import (
	"errors"
	"time"
)

var (
	ErrNoPublishedListing = errors.New("removals: caller has no published listing")
	ErrPendingExists      = errors.New("removals: pending request exists")
	ErrNotFound           = errors.New("removals: request not found")
	ErrAlreadyProcessed   = errors.New("removals: request already processed")
	ErrTargetNotFound     = errors.New("removals: directory listing not found")
	ErrForbidden          = errors.New("removals: admin role required")
)

// Status is the lifecycle state of a request. Only pending requests can be
// decided and a decision is final.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// ParseStatus accepts the wire form of a status.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusDenied:
		return st, true
	}
	return "", false
}

// DirectoryListing is an imported business listing that a provider can ask
// to have removed.
type DirectoryListing struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	City   string `json:"city"`
	State  string `json:"state"`
	Status string `json:"status"`
}

// Requester is the agency behind a request.
type Requester struct {
	ID           string `json:"id"`
	AgencyName   string `json:"agencyName"`
	ContactEmail string `json:"contactEmail"`
}

// ListingRef identifies the requester's own listing.
type ListingRef struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Headline string `json:"headline,omitempty"`
}

// Request is a removal request with the records an admin needs to decide it.
type Request struct {
	ID               string           `json:"id"`
	Reason           string           `json:"reason,omitempty"`
	Status           Status           `json:"status"`
	AdminNotes       string           `json:"adminNotes,omitempty"`
	ReviewedBy       string           `json:"reviewedBy,omitempty"`
	ReviewedAt       *time.Time       `json:"reviewedAt,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	DirectoryListing DirectoryListing `json:"directoryListing"`
	Profile          Requester        `json:"profile"`
	Listing          ListingRef       `json:"listing"`
}

// NewRequest is the row written for a provider's request.
type NewRequest struct {
	ProfileID          string
	ListingID          string
	DirectoryListingID string
	Reason             string
}

// Filter selects a page of requests for the admin queue.
type Filter struct {
	Status Status
	Page   int
	Limit  int
}

// DefaultPageSize is the admin queue page size.
const DefaultPageSize = 20

const maxPageSize = 100

func (f Filter) normalized() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	return f
}

func (f Filter) offset() int {
	return (f.Page - 1) * f.Limit
}

// Page is one page of the admin queue.
type Page struct {
	Requests []Request `json:"requests"`
	Total    int       `json:"total"`
}

// Decision is what an admin records on a pending request.
type Decision struct {
	Status     Status
	AdminNotes string
	ReviewedBy string
	ReviewedAt time.Time
}

// Stats are the admin dashboard counters.
type Stats struct {
	TotalDirectoryListings   int `json:"totalGooglePlacesListings"`
	ActiveDirectoryListings  int `json:"activeGooglePlacesListings"`
	RemovedDirectoryListings int `json:"removedGooglePlacesListings"`
	PendingRequests          int `json:"pendingRemovalRequests"`
	TotalRequests            int `json:"totalRemovalRequests"`
}

// Eligibility tells the provider UI whether a request can be filed.
type Eligibility struct {
	HasPublishedListing bool     `json:"hasPublishedListing"`
	ListingSlug         string   `json:"listingSlug,omitempty"`
	Existing            *Request `json:"existingRequest,omitempty"`
}
