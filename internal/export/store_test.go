package export

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/aba-directory/internal/plans"
)

var customerColumns = []string{
	"id", "agency_name", "contact_email", "plan_tier", "subscription_status",
	"onboarding_completed_at", "created_at", "listing_count", "location_count",
	"has_published", "has_featured", "states",
}

func TestStore_ListCustomersPaged(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewStore(db)
	created := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	onboarded := created.Add(48 * time.Hour)

	mock.ExpectQuery(`ORDER BY COUNT\(DISTINCT loc.id\) ASC, p.id LIMIT \$3 OFFSET \$4`).
		WithArgs("pro", "bright", 25, 25).
		WillReturnRows(sqlmock.NewRows(customerColumns).
			AddRow("p-1", "Bright ABA", "owner@bright.example", "pro", "past_due",
				onboarded, created, 1, 3, true, false, "{TX,OK}").
			AddRow("p-2", "Bright Futures", "hello@futures.example", "pro", "active",
				nil, created, 0, 0, false, false, "{}"))

	f := CustomerFilter{Page: 2, SortBy: SortLocationCount, SortOrder: "asc", Tier: plans.TierPro, Search: " bright "}.normalized()
	customers, err := store.ListCustomers(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, customers, 2)

	first := customers[0]
	assert.Equal(t, plans.TierPro, first.PlanTier)
	assert.Equal(t, plans.StatusPastDue, first.SubscriptionStatus)
	assert.Equal(t, plans.TierFree, first.EffectiveTier)
	assert.Equal(t, []string{"TX", "OK"}, first.States)
	assert.Equal(t, 3, first.LocationCount)
	assert.True(t, first.HasPublishedListing)
	require.NotNil(t, first.OnboardingCompletedAt)

	assert.Equal(t, plans.TierPro, customers[1].EffectiveTier)
	assert.Empty(t, customers[1].States)
	assert.Nil(t, customers[1].OnboardingCompletedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListCustomersUnpaged(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewStore(db)

	mock.ExpectQuery(`ORDER BY p.created_at DESC, p.id$`).
		WithArgs("", "").
		WillReturnRows(sqlmock.NewRows(customerColumns))

	customers, err := store.ListCustomers(context.Background(), CustomerFilter{SortBy: SortCreatedAt, SortOrder: "desc"})
	require.NoError(t, err)
	assert.NotNil(t, customers)
	assert.Empty(t, customers)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CountCustomers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewStore(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM profiles p`).
		WithArgs("enterprise", "").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	total, err := store.CountCustomers(context.Background(), CustomerFilter{Tier: plans.TierEnterprise})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_TierCountsFillsEveryTier(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewStore(db)

	mock.ExpectQuery("GROUP BY plan_tier").
		WillReturnRows(sqlmock.NewRows([]string{"plan_tier", "total", "active"}).
			AddRow("pro", 12, 10).
			AddRow("free", 40, 0))

	counts, err := store.TierCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []TierCount{
		{Tier: plans.TierFree, Total: 40},
		{Tier: plans.TierPro, Total: 12, Active: 10},
		{Tier: plans.TierEnterprise},
	}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_StateCountsAndInquiries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewStore(db)
	received := time.Date(2026, 2, 1, 14, 30, 0, 0, time.UTC)

	mock.ExpectQuery("GROUP BY loc.state").
		WillReturnRows(sqlmock.NewRows([]string{"state", "providers", "locations"}).
			AddRow("TX", 9, 14).
			AddRow("CA", 4, 4))
	states, err := store.StateCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []StateCount{{State: "TX", Providers: 9, Locations: 14}, {State: "CA", Providers: 4, Locations: 4}}, states)

	mock.ExpectQuery(`WHERE l.profile_id = \$1`).
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "family_name", "family_email", "family_phone",
			"child_age", "location", "status", "referral_source", "message"}).
			AddRow(received, "Jordan Lee", "jordan@example.com", "", "4", "Austin", "unread", "google", "Looking for in-home ABA"))
	inquiries, err := store.ProviderInquiries(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, inquiries, 1)
	assert.Equal(t, received, inquiries[0].CreatedAt)
	assert.Equal(t, "Austin", inquiries[0].Location)

	require.NoError(t, mock.ExpectationsWereMet())
}
