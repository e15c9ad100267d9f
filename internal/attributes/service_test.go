package attributes

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/aba-directory/internal/inputval"
	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

type staticOwners map[string]string

func (o staticOwners) ListingOwner(_ context.Context, listingID string) (string, error) {
	owner, ok := o[listingID]
	if !ok {
		return "", ErrListingNotFound
	}
	return owner, nil
}

func newTestService(t *testing.T, state plans.PlanState) (*Service, *InMemoryStore) {
	t.Helper()
	store := NewInMemoryStore()
	resolver := plans.NewResolver(plans.StaticLoader{"p1": state, "p2": state}, nil)
	svc := NewService(store, staticOwners{"l1": "p1"}, resolver, logging.Discard())
	return svc, store
}

func activePro() plans.PlanState {
	done := time.Now()
	return plans.PlanState{StoredTier: plans.TierPro, Status: plans.StatusActive, OnboardingCompletedAt: &done}
}

func TestUpdateIsIdempotent(t *testing.T) {
	svc, store := newTestService(t, activePro())
	ctx := context.Background()
	body := map[string]json.RawMessage{"insurances": json.RawMessage(`["Aetna"]`)}

	_, err := svc.Update(ctx, "p1", "l1", body)
	require.NoError(t, err)
	attrs, err := svc.Update(ctx, "p1", "l1", body)
	require.NoError(t, err)

	assert.Equal(t, 1, store.Count("l1"))
	assert.Equal(t, []string{"Aetna"}, attrs.Insurances())
}

func TestUpdateLeavesOtherKeysAlone(t *testing.T) {
	svc, _ := newTestService(t, activePro())
	ctx := context.Background()

	_, err := svc.Update(ctx, "p1", "l1", map[string]json.RawMessage{
		"languages": json.RawMessage(`["English"]`),
		"diagnoses": json.RawMessage(`["Autism"]`),
	})
	require.NoError(t, err)

	attrs, err := svc.Update(ctx, "p1", "l1", map[string]json.RawMessage{
		"languages": json.RawMessage(`["English","Spanish"]`),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"English", "Spanish"}, attrs.Languages())
	assert.Equal(t, []string{"Autism"}, attrs.Diagnoses())
}

func TestUpdateKeepsPunctuationLiteral(t *testing.T) {
	svc, _ := newTestService(t, activePro())
	ctx := context.Background()

	_, err := svc.Update(ctx, "p1", "l1", map[string]json.RawMessage{
		"insurances": json.RawMessage(`["Blue Cross & Blue Shield","Children's Health","<b>Aetna</b>"]`),
	})
	require.NoError(t, err)

	attrs, err := svc.Get(ctx, "p1", "l1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Blue Cross & Blue Shield", "Children's Health", "Aetna"}, attrs.Insurances())
}

func TestUpdateRejectsWholeCallOnInvalidKey(t *testing.T) {
	svc, store := newTestService(t, activePro())
	_, err := svc.Update(context.Background(), "p1", "l1", map[string]json.RawMessage{
		"insurances":  json.RawMessage(`["Aetna"]`),
		"ages_served": json.RawMessage(`{"min":12,"max":3}`),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, inputval.ErrInvalid))
	assert.Zero(t, store.Count("l1"))

	_, err = svc.Update(context.Background(), "p1", "l1", map[string]json.RawMessage{
		"favorite_color": json.RawMessage(`"blue"`),
	})
	assert.True(t, errors.Is(err, inputval.ErrInvalid))
}

func TestUpdateHidesForeignListings(t *testing.T) {
	svc, store := newTestService(t, activePro())
	_, err := svc.Update(context.Background(), "p2", "l1", map[string]json.RawMessage{
		"insurances": json.RawMessage(`["Aetna"]`),
	})
	assert.ErrorIs(t, err, ErrListingNotFound)
	assert.Zero(t, store.Count("l1"))

	_, err = svc.Get(context.Background(), "p1", "missing")
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestUpdateGatesPremiumFieldsOnFreePlan(t *testing.T) {
	done := time.Now()
	svc, store := newTestService(t, plans.PlanState{StoredTier: plans.TierPro, Status: plans.StatusCanceled, OnboardingCompletedAt: &done})

	_, err := svc.Update(context.Background(), "p1", "l1", map[string]json.RawMessage{
		"insurances": json.RawMessage(`["Aetna"]`),
		"languages":  json.RawMessage(`["Spanish"]`),
	})
	var denied *plans.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, plans.FeatureLanguages, denied.Feature)
	assert.Equal(t, plans.TierPro, denied.Decision.RequiredTier)
	assert.Zero(t, store.Count("l1"))

	attrs, err := svc.Update(context.Background(), "p1", "l1", map[string]json.RawMessage{
		"insurances":           json.RawMessage(`["Aetna"]`),
		"contact_form_enabled": json.RawMessage(`false`),
	})
	require.NoError(t, err)
	assert.False(t, attrs.ContactFormEnabled())
}

func TestUpdateAllowsSelectedTierDuringOnboarding(t *testing.T) {
	svc, _ := newTestService(t, plans.PlanState{StoredTier: plans.TierPro, Status: plans.StatusNone})
	attrs, err := svc.Update(context.Background(), "p1", "l1", map[string]json.RawMessage{
		"ages_served": json.RawMessage(`{"min":2,"max":18}`),
	})
	require.NoError(t, err)
	assert.Equal(t, AgeRange{Min: 2, Max: 18}, attrs.AgesServed())
}

func TestClear(t *testing.T) {
	svc, store := newTestService(t, activePro())
	ctx := context.Background()
	_, err := svc.Update(ctx, "p1", "l1", map[string]json.RawMessage{
		"insurances": json.RawMessage(`["Aetna"]`),
		"languages":  json.RawMessage(`["English"]`),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, "p1", "l1", []string{"languages"}))
	assert.Equal(t, 1, store.Count("l1"))
	require.NoError(t, svc.Clear(ctx, "p1", "l1", nil))
	assert.Zero(t, store.Count("l1"))
}
