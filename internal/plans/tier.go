package plans

import "strings"

// Tier is a subscription plan tier. Tiers are totally ordered:
// free < pro < enterprise.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Tiers lists every tier in ascending order.
var Tiers = []Tier{TierFree, TierPro, TierEnterprise}

// ParseTier normalizes a stored plan_tier value. Unknown values are free.
func ParseTier(raw string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(raw))) {
	case TierPro:
		return TierPro
	case TierEnterprise:
		return TierEnterprise
	default:
		return TierFree
	}
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	return t == TierFree || t == TierPro || t == TierEnterprise
}

func (t Tier) rank() int {
	switch t {
	case TierPro:
		return 1
	case TierEnterprise:
		return 2
	default:
		return 0
	}
}

// DisplayName is the customer facing tier name.
func (t Tier) DisplayName() string {
	switch t {
	case TierPro:
		return "Pro"
	case TierEnterprise:
		return "Enterprise"
	default:
		return "Free"
	}
}

// IsPaid reports whether the tier requires a subscription.
func (t Tier) IsPaid() bool {
	return t.rank() > 0
}

// AtLeast reports whether t meets the minimum tier.
func (t Tier) AtLeast(minimum Tier) bool {
	return t.rank() >= minimum.rank()
}

// CompareTiers returns -1, 0 or 1 as a is below, equal to or above b.
func CompareTiers(a, b Tier) int {
	switch ra, rb := a.rank(), b.rank(); {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	default:
		return 0
	}
}

// NextUpgrade returns the tier directly above t, or false at the top.
func NextUpgrade(t Tier) (Tier, bool) {
	switch t.rank() {
	case 0:
		return TierPro, true
	case 1:
		return TierEnterprise, true
	default:
		return "", false
	}
}

// SubscriptionStatus mirrors the billing provider's subscription state.
type SubscriptionStatus string

const (
	StatusActive     SubscriptionStatus = "active"
	StatusTrialing   SubscriptionStatus = "trialing"
	StatusPastDue    SubscriptionStatus = "past_due"
	StatusCanceled   SubscriptionStatus = "canceled"
	StatusIncomplete SubscriptionStatus = "incomplete"
	StatusNone       SubscriptionStatus = "none"
)

// Statuses lists every known subscription status.
var Statuses = []SubscriptionStatus{StatusActive, StatusTrialing, StatusPastDue, StatusCanceled, StatusIncomplete, StatusNone}

// ParseSubscriptionStatus normalizes a stored status. Empty or unknown
// values become none, which is non-active.
func ParseSubscriptionStatus(raw string) SubscriptionStatus {
	s := SubscriptionStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusActive, StatusTrialing, StatusPastDue, StatusCanceled, StatusIncomplete:
		return s
	case "cancelled":
		return StatusCanceled
	case "unpaid", "incomplete_expired", "paused":
		// Stripe states that never grant paid access.
		return StatusPastDue
	default:
		return StatusNone
	}
}

// IsActive reports whether the status grants the stored tier.
func (s SubscriptionStatus) IsActive() bool {
	return s == StatusActive || s == StatusTrialing
}

// EffectiveTier is the tier used for every gating decision: the stored
// tier while the subscription is active or trialing, free otherwise.
func EffectiveTier(stored Tier, status SubscriptionStatus) Tier {
	if !status.IsActive() {
		return TierFree
	}
	if !stored.Valid() {
		return TierFree
	}
	return stored
}
