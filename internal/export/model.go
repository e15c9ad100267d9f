// Package export serves the admin customer list and the CSV downloads
// offered on the admin and provider dashboards.
package export

import (
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/aba-directory/internal/plans"
)

var (
	ErrForbidden   = errors.New("export: admin only")
	ErrUnknownKind = errors.New("export: unknown export kind")
)

// Kind names a CSV export.
type Kind string

const (
	KindCustomerList Kind = "customer_list"
	KindCustomers    Kind = "customers"
	KindStates       Kind = "states"
	KindInquiries    Kind = "inquiries"
)

// ParseKind accepts the export names used in download URLs.
func ParseKind(raw string) (Kind, bool) {
	k := Kind(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), ".csv"))
	switch k {
	case KindCustomerList, KindCustomers, KindStates, KindInquiries:
		return k, true
	}
	return "", false
}

func (k Kind) adminOnly() bool { return k != KindInquiries }

// SortField orders the customer list.
type SortField string

const (
	SortCreatedAt     SortField = "created_at"
	SortAgencyName    SortField = "agency_name"
	SortPlanTier      SortField = "plan_tier"
	SortLocationCount SortField = "location_count"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// CustomerFilter selects one page of the customer list.
type CustomerFilter struct {
	Page      int
	PageSize  int
	SortBy    SortField
	SortOrder string
	Tier      plans.Tier
	Search    string
}

func (f CustomerFilter) normalized() CustomerFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	switch f.SortBy {
	case SortCreatedAt, SortAgencyName, SortPlanTier, SortLocationCount:
	default:
		f.SortBy = SortCreatedAt
	}
	f.SortOrder = strings.ToLower(f.SortOrder)
	if f.SortOrder != "asc" && f.SortOrder != "desc" {
		f.SortOrder = "desc"
		if f.SortBy == SortAgencyName {
			f.SortOrder = "asc"
		}
	}
	if !f.Tier.Valid() {
		f.Tier = ""
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

func (f CustomerFilter) offset() int { return (f.Page - 1) * f.PageSize }

// Customer is one provider account as shown to admins.
type Customer struct {
	ID                    string                   `json:"id"`
	AgencyName            string                   `json:"agencyName"`
	ContactEmail          string                   `json:"contactEmail"`
	PlanTier              plans.Tier               `json:"planTier"`
	SubscriptionStatus    plans.SubscriptionStatus `json:"subscriptionStatus"`
	EffectiveTier         plans.Tier               `json:"effectiveTier"`
	ListingCount          int                      `json:"listingCount"`
	LocationCount         int                      `json:"locationCount"`
	States                []string                 `json:"states"`
	HasPublishedListing   bool                     `json:"hasPublishedListing"`
	HasFeaturedAddon      bool                     `json:"hasFeaturedAddon"`
	OnboardingCompletedAt *time.Time               `json:"onboardingCompletedAt,omitempty"`
	CreatedAt             time.Time                `json:"createdAt"`
	DaysSinceSignup       int                      `json:"daysSinceSignup"`
}

// CustomerPage is one page of customers plus the filtered total.
type CustomerPage struct {
	Customers  []Customer `json:"customers"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	TotalPages int        `json:"totalPages"`
}

// TierCount summarizes customers on one plan tier.
type TierCount struct {
	Tier   plans.Tier
	Total  int
	Active int
}

// StateCount summarizes published providers in one state.
type StateCount struct {
	State     string
	Providers int
	Locations int
}

// InquiryRow is one inquiry in the provider's export.
type InquiryRow struct {
	CreatedAt      time.Time
	FamilyName     string
	FamilyEmail    string
	FamilyPhone    string
	ChildAge       string
	Location       string
	Status         string
	ReferralSource string
	Message        string
}

// File is a rendered download.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}
