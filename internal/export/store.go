package export

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/wolfman30/aba-directory/internal/plans"
)

// Reader is the read side the exports are built from.
type Reader interface {
	CountCustomers(ctx context.Context, f CustomerFilter) (int, error)
	// ListCustomers returns customers in filter order. A zero PageSize
	// returns every match.
	ListCustomers(ctx context.Context, f CustomerFilter) ([]Customer, error)
	TierCounts(ctx context.Context) ([]TierCount, error)
	StateCounts(ctx context.Context) ([]StateCount, error)
	ProviderInquiries(ctx context.Context, profileID string) ([]InquiryRow, error)
}

// Store runs the reporting queries over database/sql.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		panic("export: sql db required")
	}
	return &Store{db: db}
}

const customerWhere = `
	WHERE p.is_admin = FALSE
		AND ($1::text = '' OR p.plan_tier = $1::text)
		AND ($2::text = '' OR p.agency_name ILIKE '%' || $2::text || '%' OR p.contact_email ILIKE '%' || $2::text || '%')
`

var sortExpressions = map[SortField]string{
	SortCreatedAt:     "p.created_at",
	SortAgencyName:    "LOWER(p.agency_name)",
	SortPlanTier:      "CASE p.plan_tier WHEN 'enterprise' THEN 3 WHEN 'pro' THEN 2 ELSE 1 END",
	SortLocationCount: "COUNT(DISTINCT loc.id)",
}

// CountCustomers implements Reader.
func (s *Store) CountCustomers(ctx context.Context, f CustomerFilter) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles p`+customerWhere,
		string(f.Tier), f.Search).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("export: count customers: %w", err)
	}
	return total, nil
}

// ListCustomers implements Reader.
func (s *Store) ListCustomers(ctx context.Context, f CustomerFilter) ([]Customer, error) {
	order, ok := sortExpressions[f.SortBy]
	if !ok {
		order = sortExpressions[SortCreatedAt]
	}
	direction := "DESC"
	if f.SortOrder == "asc" {
		direction = "ASC"
	}
	query := `
		SELECT p.id, p.agency_name, p.contact_email, p.plan_tier,
			COALESCE(p.subscription_status, ''), p.onboarding_completed_at, p.created_at,
			COUNT(DISTINCT l.id), COUNT(DISTINCT loc.id),
			COALESCE(BOOL_OR(l.status = 'published'), FALSE),
			COALESCE(BOOL_OR(loc.is_featured), FALSE),
			COALESCE(ARRAY_REMOVE(ARRAY_AGG(DISTINCT loc.state), NULL), '{}')
		FROM profiles p
		LEFT JOIN listings l ON l.profile_id = p.id
		LEFT JOIN locations loc ON loc.listing_id = l.id
	` + customerWhere + `
		GROUP BY p.id
		ORDER BY ` + order + ` ` + direction + `, p.id`
	args := []any{string(f.Tier), f.Search}
	if f.PageSize > 0 {
		query += ` LIMIT $3 OFFSET $4`
		args = append(args, f.PageSize, f.offset())
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("export: list customers: %w", err)
	}
	defer rows.Close()

	customers := []Customer{}
	for rows.Next() {
		var (
			c          Customer
			tier       string
			status     string
			onboarding sql.NullTime
			states     pq.StringArray
		)
		if err := rows.Scan(&c.ID, &c.AgencyName, &c.ContactEmail, &tier, &status, &onboarding, &c.CreatedAt,
			&c.ListingCount, &c.LocationCount, &c.HasPublishedListing, &c.HasFeaturedAddon, &states); err != nil {
			return nil, fmt.Errorf("export: scan customer: %w", err)
		}
		c.PlanTier = plans.ParseTier(tier)
		c.SubscriptionStatus = plans.ParseSubscriptionStatus(status)
		c.EffectiveTier = plans.EffectiveTier(c.PlanTier, c.SubscriptionStatus)
		c.States = []string(states)
		if c.States == nil {
			c.States = []string{}
		}
		if onboarding.Valid {
			at := onboarding.Time
			c.OnboardingCompletedAt = &at
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("export: list customers: %w", err)
	}
	return customers, nil
}

// TierCounts implements Reader. Every tier is reported, empty ones as zero.
func (s *Store) TierCounts(ctx context.Context) ([]TierCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT plan_tier, COUNT(*),
			COUNT(*) FILTER (WHERE subscription_status IN ('active', 'trialing'))
		FROM profiles
		WHERE is_admin = FALSE
		GROUP BY plan_tier
	`)
	if err != nil {
		return nil, fmt.Errorf("export: tier counts: %w", err)
	}
	defer rows.Close()

	byTier := map[plans.Tier]TierCount{}
	for rows.Next() {
		var (
			tier          string
			total, active int
		)
		if err := rows.Scan(&tier, &total, &active); err != nil {
			return nil, fmt.Errorf("export: scan tier count: %w", err)
		}
		t := plans.ParseTier(tier)
		c := byTier[t]
		c.Total += total
		c.Active += active
		byTier[t] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("export: tier counts: %w", err)
	}

	out := make([]TierCount, 0, len(plans.Tiers))
	for _, t := range plans.Tiers {
		c := byTier[t]
		c.Tier = t
		out = append(out, c)
	}
	return out, nil
}

// StateCounts implements Reader.
func (s *Store) StateCounts(ctx context.Context) ([]StateCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT loc.state, COUNT(DISTINCT l.profile_id), COUNT(loc.id)
		FROM locations loc
		JOIN listings l ON l.id = loc.listing_id
		WHERE l.status = 'published'
		GROUP BY loc.state
		ORDER BY COUNT(DISTINCT l.profile_id) DESC, loc.state
	`)
	if err != nil {
		return nil, fmt.Errorf("export: state counts: %w", err)
	}
	defer rows.Close()

	var out []StateCount
	for rows.Next() {
		var c StateCount
		if err := rows.Scan(&c.State, &c.Providers, &c.Locations); err != nil {
			return nil, fmt.Errorf("export: scan state count: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("export: state counts: %w", err)
	}
	return out, nil
}

// ProviderInquiries implements Reader.
func (s *Store) ProviderInquiries(ctx context.Context, profileID string) ([]InquiryRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.created_at, i.family_name, i.family_email, COALESCE(i.family_phone, ''),
			COALESCE(i.child_age, ''), COALESCE(loc.label, loc.city, ''), i.status,
			COALESCE(NULLIF(i.referral_source_other, ''), i.referral_source, ''), i.message
		FROM inquiries i
		JOIN listings l ON l.id = i.listing_id
		LEFT JOIN locations loc ON loc.id = i.location_id
		WHERE l.profile_id = $1
		ORDER BY i.created_at DESC
	`, profileID)
	if err != nil {
		return nil, fmt.Errorf("export: inquiries: %w", err)
	}
	defer rows.Close()

	var out []InquiryRow
	for rows.Next() {
		var row InquiryRow
		if err := rows.Scan(&row.CreatedAt, &row.FamilyName, &row.FamilyEmail, &row.FamilyPhone,
			&row.ChildAge, &row.Location, &row.Status, &row.ReferralSource, &row.Message); err != nil {
			return nil, fmt.Errorf("export: scan inquiry: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("export: inquiries: %w", err)
	}
	return out, nil
}

var _ Reader = (*Store)(nil)
