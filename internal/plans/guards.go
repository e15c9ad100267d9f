package plans

import "fmt"

// Decision is the outcome of a guard. RequiredTier is set only when the
// action is denied.
type Decision struct {
	Allowed      bool   `json:"allowed"`
	Reason       string `json:"reason,omitempty"`
	RequiredTier Tier   `json:"requiredPlan,omitempty"`
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string, required Tier) Decision {
	return Decision{Allowed: false, Reason: reason, RequiredTier: required}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func nextOrTop(t Tier) Tier {
	if next, ok := NextUpgrade(t); ok {
		return next
	}
	return t
}

// GuardAddLocation checks the location quota for the effective tier.
func GuardAddLocation(t Tier, current int) Decision {
	limit := FeaturesFor(t).MaxLocations
	if current >= limit {
		return deny(fmt.Sprintf("Your plan allows a maximum of %s. Upgrade to add more.", plural(limit, "location")), nextOrTop(t))
	}
	return allow()
}

// GuardAddJobPosting checks the job posting quota for the effective tier.
func GuardAddJobPosting(t Tier, current int) Decision {
	limit := FeaturesFor(t).MaxJobPostings
	if current >= limit {
		return deny(fmt.Sprintf("You've reached the maximum of %s for your plan. Please upgrade to post more jobs.", plural(limit, "job posting")), nextOrTop(t))
	}
	return allow()
}

// GuardUploadPhoto checks gallery access and the photo quota.
func GuardUploadPhoto(t Tier, current int) Decision {
	f := FeaturesFor(t)
	if !f.HasPhotoGallery {
		return deny("Photo gallery is a Pro feature", TierPro)
	}
	if current >= f.MaxPhotos {
		return deny(fmt.Sprintf("Your %s plan allows up to %d photos", t, f.MaxPhotos), TierEnterprise)
	}
	return allow()
}

// GuardFeature checks a boolean capability and names the lowest tier that
// grants it when denied.
func GuardFeature(t Tier, feature Feature) Decision {
	if FeaturesFor(t).Has(feature) {
		return allow()
	}
	required, ok := MinimumTier(feature)
	if !ok {
		required = TierEnterprise
	}
	return deny(fmt.Sprintf("%s requires the %s plan", Info(feature).Name, required.DisplayName()), required)
}

// GuardContactForm checks whether families can message the provider.
func GuardContactForm(t Tier) Decision { return GuardFeature(t, FeatureContactForm) }

// GuardVideoEmbed checks whether a video may be shown on the listing.
func GuardVideoEmbed(t Tier) Decision { return GuardFeature(t, FeatureVideoEmbed) }

// GuardAnalytics checks access to the analytics dashboard.
func GuardAnalytics(t Tier) Decision { return GuardFeature(t, FeatureAnalytics) }

// GuardFeaturedAddon checks eligibility for the featured add-on.
func GuardFeaturedAddon(t Tier) Decision {
	if !FeaturesFor(t).HasFeaturedAddon {
		return deny("Featured add-on requires a Pro or Enterprise plan", TierPro)
	}
	return allow()
}

// GuardMinimumTier checks a plain tier floor.
func GuardMinimumTier(t, minimum Tier) Decision {
	if !t.AtLeast(minimum) {
		return deny(fmt.Sprintf("This feature requires a %s plan", minimum), minimum)
	}
	return allow()
}

// DeniedError carries a failed guard through service layers so handlers can
// render the upgrade hint.
type DeniedError struct {
	Feature  Feature
	Decision Decision
}

func (e *DeniedError) Error() string {
	return e.Decision.Reason
}

// Denied wraps a failed decision. It returns nil when d allows the action.
func Denied(feature Feature, d Decision) error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Feature: feature, Decision: d}
}
