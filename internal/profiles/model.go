package profiles

import (
	"errors"
	"time"

	"github.com/wolfman30/aba-directory/internal/plans"
)

// ErrNotFound is returned when a profile does not exist.
var ErrNotFound = errors.New("profiles: not found")

// Profile is a provider agency account. Profiles are never hard-deleted.
type Profile struct {
	ID                    string                   `json:"id"`
	AgencyName            string                   `json:"agency_name"`
	ContactEmail          string                   `json:"contact_email"`
	ContactPhone          string                   `json:"contact_phone,omitempty"`
	Website               string                   `json:"website,omitempty"`
	LogoURL               string                   `json:"logo_url,omitempty"`
	BrandColor            string                   `json:"brand_color"`
	PlanTier              plans.Tier               `json:"plan_tier"`
	SubscriptionStatus    plans.SubscriptionStatus `json:"subscription_status"`
	BillingInterval       string                   `json:"billing_interval,omitempty"`
	StripeCustomerID      string                   `json:"-"`
	OnboardingCompletedAt *time.Time               `json:"onboarding_completed_at,omitempty"`
	IsAdmin               bool                     `json:"is_admin"`
	CreatedAt             time.Time                `json:"created_at"`
}

// PlanState projects the billing fields used by the feature gate.
func (p *Profile) PlanState() plans.PlanState {
	return plans.PlanState{
		ProfileID:             p.ID,
		StoredTier:            p.PlanTier,
		Status:                p.SubscriptionStatus,
		OnboardingCompletedAt: p.OnboardingCompletedAt,
	}
}

// SubscriptionUpdate is applied when the billing provider reports a change.
type SubscriptionUpdate struct {
	StripeCustomerID     string
	StripeSubscriptionID string
	PlanTier             plans.Tier
	Status               plans.SubscriptionStatus
	BillingInterval      string
}
