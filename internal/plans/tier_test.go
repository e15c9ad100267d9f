package plans

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveTierCollapsesWithoutActiveSubscription(t *testing.T) {
	for _, stored := range []Tier{TierPro, TierEnterprise} {
		for _, status := range Statuses {
			got := EffectiveTier(stored, status)
			if status.IsActive() {
				assert.Equal(t, stored, got, "%s/%s", stored, status)
			} else {
				assert.Equal(t, TierFree, got, "%s/%s", stored, status)
			}
		}
	}
}

func TestEffectiveTierEnterprisePastDue(t *testing.T) {
	assert.Equal(t, TierFree, EffectiveTier(TierEnterprise, StatusPastDue))
}

func TestEffectiveTierMissingStatusIsInactive(t *testing.T) {
	assert.Equal(t, TierFree, EffectiveTier(ParseTier("pro"), ParseSubscriptionStatus("")))
	assert.Equal(t, TierFree, EffectiveTier(Tier("gold"), StatusActive))
	assert.Equal(t, TierFree, EffectiveTier(TierFree, StatusActive))
}

func TestParseTier(t *testing.T) {
	assert.Equal(t, TierPro, ParseTier(" PRO "))
	assert.Equal(t, TierEnterprise, ParseTier("enterprise"))
	assert.Equal(t, TierFree, ParseTier(""))
	assert.Equal(t, TierFree, ParseTier("premium"))
}

func TestParseSubscriptionStatus(t *testing.T) {
	assert.Equal(t, StatusTrialing, ParseSubscriptionStatus("trialing"))
	assert.Equal(t, StatusCanceled, ParseSubscriptionStatus("cancelled"))
	assert.Equal(t, StatusPastDue, ParseSubscriptionStatus("unpaid"))
	assert.Equal(t, StatusNone, ParseSubscriptionStatus("???"))
	assert.False(t, StatusNone.IsActive())
}

func TestTierOrdering(t *testing.T) {
	assert.Equal(t, -1, CompareTiers(TierFree, TierPro))
	assert.Equal(t, 1, CompareTiers(TierEnterprise, TierPro))
	assert.Equal(t, 0, CompareTiers(TierPro, TierPro))
	assert.True(t, TierEnterprise.AtLeast(TierPro))
	assert.False(t, TierFree.AtLeast(TierPro))
	assert.False(t, TierFree.IsPaid())

	next, ok := NextUpgrade(TierFree)
	assert.True(t, ok)
	assert.Equal(t, TierPro, next)
	next, ok = NextUpgrade(TierPro)
	assert.True(t, ok)
	assert.Equal(t, TierEnterprise, next)
	_, ok = NextUpgrade(TierEnterprise)
	assert.False(t, ok)
}

func TestGuards(t *testing.T) {
	d := GuardAddLocation(TierFree, 1)
	assert.False(t, d.Allowed)
	assert.Equal(t, TierPro, d.RequiredTier)
	assert.Equal(t, "Your plan allows a maximum of 1 location. Upgrade to add more.", d.Reason)
	assert.True(t, GuardAddLocation(TierPro, 4).Allowed)
	assert.Equal(t, TierEnterprise, GuardAddLocation(TierPro, 5).RequiredTier)

	d = GuardAddJobPosting(TierFree, 1)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "1 job posting for your plan")

	d = GuardUploadPhoto(TierFree, 0)
	assert.False(t, d.Allowed)
	assert.Equal(t, TierPro, d.RequiredTier)
	d = GuardUploadPhoto(TierPro, 10)
	assert.False(t, d.Allowed)
	assert.Equal(t, TierEnterprise, d.RequiredTier)

	assert.False(t, GuardContactForm(TierFree).Allowed)
	assert.True(t, GuardContactForm(TierPro).Allowed)
	assert.False(t, GuardVideoEmbed(TierFree).Allowed)
	assert.True(t, GuardAnalytics(TierEnterprise).Allowed)
	assert.False(t, GuardFeaturedAddon(TierFree).Allowed)

	d = GuardFeature(TierPro, FeatureHomepagePlacement)
	assert.False(t, d.Allowed)
	assert.Equal(t, TierEnterprise, d.RequiredTier)
	assert.Equal(t, "Homepage Placement requires the Enterprise plan", d.Reason)

	d = GuardMinimumTier(TierPro, TierEnterprise)
	assert.False(t, d.Allowed)
	assert.Equal(t, TierEnterprise, d.RequiredTier)
}

type recordingObserver struct {
	calls []string
}

func (o *recordingObserver) ObserveGate(feature string, allowed bool) {
	if allowed {
		o.calls = append(o.calls, feature+":allow")
		return
	}
	o.calls = append(o.calls, feature+":deny")
}

func TestResolverReloadsStateEveryCall(t *testing.T) {
	completed := time.Now()
	loader := StaticLoader{
		"p1": {StoredTier: TierPro, Status: StatusActive, OnboardingCompletedAt: &completed},
	}
	observer := &recordingObserver{}
	r := NewResolver(loader, observer)

	res, err := r.Resolve(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, TierPro, res.Tier)
	assert.True(t, res.Features.HasContactInbox)

	// Billing webhook flips the status; the next request must see it.
	loader["p1"] = PlanState{StoredTier: TierPro, Status: StatusCanceled, OnboardingCompletedAt: &completed}
	decision, res, err := r.Check(context.Background(), "p1", FeatureContactInbox)
	require.NoError(t, err)
	assert.Equal(t, TierFree, res.Tier)
	assert.False(t, decision.Allowed)
	assert.Equal(t, []string{"hasContactInbox:deny"}, observer.calls)
}

func TestResolverMissingProfile(t *testing.T) {
	r := NewResolver(StaticLoader{}, nil)
	_, err := r.Resolve(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProfileNotFound))
}

func TestProfileTierDuringOnboarding(t *testing.T) {
	res := Resolve(PlanState{StoredTier: TierPro, Status: StatusNone})
	assert.Equal(t, TierFree, res.Tier)
	assert.Equal(t, TierPro, res.ProfileTier())

	completed := time.Now()
	res = Resolve(PlanState{StoredTier: TierPro, Status: StatusNone, OnboardingCompletedAt: &completed})
	assert.Equal(t, TierFree, res.ProfileTier())
}

func TestNewResolverPanicsWithoutLoader(t *testing.T) {
	assert.Panics(t, func() { NewResolver(nil, nil) })
}

func TestDeniedError(t *testing.T) {
	assert.NoError(t, Denied(FeatureContactForm, GuardContactForm(TierPro)))

	err := Denied(FeatureContactForm, GuardContactForm(TierFree))
	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, TierPro, denied.Decision.RequiredTier)
	assert.Equal(t, "Contact Form requires the Pro plan", err.Error())
}
