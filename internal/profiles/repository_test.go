package profiles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/aba-directory/internal/plans"
)

func TestPostgresRepository_LoadPlanState(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newRepositoryWithDB(mock)
	completed := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT plan_tier").
		WithArgs("prof-1").
		WillReturnRows(pgxmock.NewRows([]string{"plan_tier", "subscription_status", "onboarding_completed_at"}).
			AddRow("enterprise", "past_due", &completed))

	state, err := repo.LoadPlanState(context.Background(), "prof-1")
	require.NoError(t, err)
	assert.Equal(t, plans.TierEnterprise, state.StoredTier)
	assert.Equal(t, plans.StatusPastDue, state.Status)
	assert.Equal(t, plans.TierFree, plans.Resolve(state).Tier)

	mock.ExpectQuery("SELECT plan_tier").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)
	_, err = repo.LoadPlanState(context.Background(), "ghost")
	assert.True(t, errors.Is(err, plans.ErrProfileNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newRepositoryWithDB(mock)
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, agency_name").
		WithArgs("prof-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "agency_name", "contact_email", "contact_phone", "website", "logo_url", "brand_color",
			"plan_tier", "subscription_status", "billing_interval", "stripe_customer_id",
			"onboarding_completed_at", "is_admin", "created_at",
		}).AddRow("prof-1", "Bright Steps ABA", "team@brightsteps.example", "", "brightsteps.example", "", "#5788FF",
			"pro", "", "", "cus_1", (*time.Time)(nil), false, created))

	p, err := repo.Get(context.Background(), "prof-1")
	require.NoError(t, err)
	assert.Equal(t, "Bright Steps ABA", p.AgencyName)
	assert.Equal(t, plans.TierPro, p.PlanTier)
	assert.Equal(t, plans.StatusNone, p.SubscriptionStatus)
	assert.True(t, p.PlanState().Onboarding())

	mock.ExpectQuery("SELECT id, agency_name").WithArgs("ghost").WillReturnError(pgx.ErrNoRows)
	_, err = repo.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(`WHERE stripe_customer_id = \$1`).WithArgs("cus_missing").WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByStripeCustomer(context.Background(), "cus_missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetByStripeCustomer(context.Background(), " ")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ApplySubscription(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newRepositoryWithDB(mock)

	mock.ExpectExec("UPDATE profiles").
		WithArgs("cus_1", "pro", "active", "sub_1", "month").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.ApplySubscription(context.Background(), SubscriptionUpdate{
		StripeCustomerID:     "cus_1",
		StripeSubscriptionID: "sub_1",
		PlanTier:             plans.TierPro,
		Status:               plans.StatusActive,
		BillingInterval:      "month",
	}))

	mock.ExpectExec("UPDATE profiles").
		WithArgs("cus_missing", "free", "canceled", "", "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err = repo.ApplySubscription(context.Background(), SubscriptionUpdate{
		StripeCustomerID: "cus_missing",
		PlanTier:         plans.Tier("bogus"),
		Status:           plans.StatusCanceled,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, repo.ApplySubscription(context.Background(), SubscriptionUpdate{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInMemoryRepository(t *testing.T) {
	repo := NewInMemoryRepository(&Profile{ID: "p1", PlanTier: plans.TierPro, SubscriptionStatus: plans.StatusActive, StripeCustomerID: "cus_1"})

	state, err := repo.LoadPlanState(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, plans.TierPro, plans.Resolve(state).Tier)

	byCustomer, err := repo.GetByStripeCustomer(context.Background(), "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "p1", byCustomer.ID)
	_, err = repo.GetByStripeCustomer(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.ApplySubscription(context.Background(), SubscriptionUpdate{
		StripeCustomerID: "cus_1",
		PlanTier:         plans.TierPro,
		Status:           plans.StatusCanceled,
	}))
	state, err = repo.LoadPlanState(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, plans.TierFree, plans.Resolve(state).Tier)

	_, err = repo.LoadPlanState(context.Background(), "nope")
	assert.ErrorIs(t, err, plans.ErrProfileNotFound)
	assert.ErrorIs(t, repo.ApplySubscription(context.Background(), SubscriptionUpdate{StripeCustomerID: "cus_2"}), ErrNotFound)
}
