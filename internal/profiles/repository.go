package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/aba-directory/internal/plans"
)

// Repository reads and updates provider profiles.
type Repository interface {
	Get(ctx context.Context, id string) (*Profile, error)
	GetByStripeCustomer(ctx context.Context, customerID string) (*Profile, error)
	LoadPlanState(ctx context.Context, id string) (plans.PlanState, error)
	ApplySubscription(ctx context.Context, update SubscriptionUpdate) error
}

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores profiles in Postgres.
type PostgresRepository struct {
	db rowQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("profiles: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newRepositoryWithDB(db rowQuerier) *PostgresRepository {
	if db == nil {
		panic("profiles: db required")
	}
	return &PostgresRepository{db: db}
}

const selectProfile = `
	SELECT id, agency_name, contact_email, COALESCE(contact_phone, ''), COALESCE(website, ''),
		COALESCE(logo_url, ''), brand_color, plan_tier, COALESCE(subscription_status, ''),
		COALESCE(billing_interval, ''), COALESCE(stripe_customer_id, ''), onboarding_completed_at,
		is_admin, created_at
	FROM profiles
`

func (r *PostgresRepository) getWhere(ctx context.Context, where string, arg any) (*Profile, error) {
	var (
		p              Profile
		tier, status   string
		onboardingDone *time.Time
	)
	err := r.db.QueryRow(ctx, selectProfile+where, arg).Scan(
		&p.ID, &p.AgencyName, &p.ContactEmail, &p.ContactPhone, &p.Website,
		&p.LogoURL, &p.BrandColor, &tier, &status,
		&p.BillingInterval, &p.StripeCustomerID, &onboardingDone,
		&p.IsAdmin, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("profiles: get: %w", err)
	}
	p.PlanTier = plans.ParseTier(tier)
	p.SubscriptionStatus = plans.ParseSubscriptionStatus(status)
	p.OnboardingCompletedAt = onboardingDone
	return &p, nil
}

// Get fetches a profile by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Profile, error) {
	return r.getWhere(ctx, ` WHERE id = $1`, id)
}

// GetByStripeCustomer fetches the profile billed under a Stripe customer.
func (r *PostgresRepository) GetByStripeCustomer(ctx context.Context, customerID string) (*Profile, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, ErrNotFound
	}
	return r.getWhere(ctx, ` WHERE stripe_customer_id = $1`, customerID)
}

// LoadPlanState reads only the billing columns. It is called once per gated
// request and is intentionally uncached.
func (r *PostgresRepository) LoadPlanState(ctx context.Context, id string) (plans.PlanState, error) {
	var (
		tier, status   string
		onboardingDone *time.Time
	)
	err := r.db.QueryRow(ctx, `
		SELECT plan_tier, COALESCE(subscription_status, ''), onboarding_completed_at
		FROM profiles WHERE id = $1
	`, id).Scan(&tier, &status, &onboardingDone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return plans.PlanState{}, plans.ErrProfileNotFound
		}
		return plans.PlanState{}, fmt.Errorf("profiles: load plan state: %w", err)
	}
	return plans.PlanState{
		ProfileID:             id,
		StoredTier:            plans.ParseTier(tier),
		Status:                plans.ParseSubscriptionStatus(status),
		OnboardingCompletedAt: onboardingDone,
	}, nil
}

// ApplySubscription writes the billing provider's view of a subscription
// onto the profile that owns the customer id.
func (r *PostgresRepository) ApplySubscription(ctx context.Context, u SubscriptionUpdate) error {
	if strings.TrimSpace(u.StripeCustomerID) == "" {
		return fmt.Errorf("profiles: apply subscription: customer id required")
	}
	tier := u.PlanTier
	if !tier.Valid() {
		tier = plans.TierFree
	}
	ct, err := r.db.Exec(ctx, `
		UPDATE profiles
		SET plan_tier = $2,
			subscription_status = $3,
			stripe_subscription_id = NULLIF($4, ''),
			billing_interval = NULLIF($5, ''),
			updated_at = NOW()
		WHERE stripe_customer_id = $1
	`, u.StripeCustomerID, string(tier), string(u.Status), u.StripeSubscriptionID, u.BillingInterval)
	if err != nil {
		return fmt.Errorf("profiles: apply subscription: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
