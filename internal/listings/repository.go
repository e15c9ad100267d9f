package listings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/aba-directory/internal/geo"
	"github.com/wolfman30/aba-directory/internal/plans"
)

// Repository persists listings and their locations. Location writes that
// touch is_primary run in one transaction so the single-primary invariant
// never shows a gap.
type Repository interface {
	GetByProfile(ctx context.Context, profileID string) (*Listing, error)
	GetByID(ctx context.Context, listingID string) (*Listing, error)
	GetBySlug(ctx context.Context, slug string) (*Listing, error)
	Update(ctx context.Context, listingID string, update ListingUpdate) error
	SetSlug(ctx context.Context, listingID, slug string) error
	SetStatus(ctx context.Context, listingID string, status Status) error

	ListLocations(ctx context.Context, listingID string) ([]Location, error)
	GetLocation(ctx context.Context, listingID, locationID string) (*Location, error)
	CountLocations(ctx context.Context, listingID string) (int, error)
	AddLocation(ctx context.Context, loc *Location, limit int, makePrimary bool) error
	UpdateLocation(ctx context.Context, loc *Location, makePrimary bool) error
	DeleteLocation(ctx context.Context, listingID, locationID string) error
	SetPrimary(ctx context.Context, listingID, locationID string) error

	SearchCandidates(ctx context.Context, box geo.Box, filter SearchFilter) ([]Candidate, error)
}

// Candidate is a published location inside a search box, joined with the
// owner's billing state so the caller can rank it.
type Candidate struct {
	ListingID          string
	Slug               string
	Headline           string
	AgencyName         string
	ServiceModes       []ServiceMode
	IsAcceptingClients bool
	Plan               plans.PlanState
	Location           Location
}

type querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores listings in Postgres.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("listings: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newRepositoryWithDB(db querier) *PostgresRepository {
	if db == nil {
		panic("listings: db required")
	}
	return &PostgresRepository{db: db}
}

const selectListing = `
	SELECT id, profile_id, slug, COALESCE(headline, ''), COALESCE(description, ''),
		COALESCE(summary, ''), service_modes, status, is_accepting_clients,
		COALESCE(logo_url, ''), published_at, created_at, updated_at
	FROM listings
`

func scanListing(row pgx.Row) (*Listing, error) {
	var (
		l     Listing
		modes []string
		st    string
	)
	err := row.Scan(&l.ID, &l.ProfileID, &l.Slug, &l.Headline, &l.Description, &l.Summary,
		&modes, &st, &l.IsAcceptingClients, &l.LogoURL, &l.PublishedAt, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	l.Status = Status(st)
	l.ServiceModes = toModes(modes)
	return &l, nil
}

func toModes(raw []string) []ServiceMode {
	out := make([]ServiceMode, 0, len(raw))
	for _, m := range raw {
		out = append(out, ServiceMode(m))
	}
	return out
}

func fromModes(modes []ServiceMode) []string {
	out := make([]string, 0, len(modes))
	for _, m := range modes {
		out = append(out, string(m))
	}
	return out
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*Listing, error) {
	l, err := scanListing(r.db.QueryRow(ctx, selectListing+where, arg))
	if err != nil && !errors.Is(err, ErrListingNotFound) {
		return nil, fmt.Errorf("listings: get: %w", err)
	}
	return l, err
}

// GetByProfile returns the profile's listing in any status.
func (r *PostgresRepository) GetByProfile(ctx context.Context, profileID string) (*Listing, error) {
	return r.getOne(ctx, `WHERE profile_id = $1`, profileID)
}

// GetByID returns a listing in any status.
func (r *PostgresRepository) GetByID(ctx context.Context, listingID string) (*Listing, error) {
	return r.getOne(ctx, `WHERE id = $1`, listingID)
}

// GetBySlug returns a published listing only.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*Listing, error) {
	return r.getOne(ctx, `WHERE slug = $1 AND status = 'published'`, slug)
}

func nullableModes(p *[]ServiceMode) any {
	if p == nil {
		return nil
	}
	return fromModes(*p)
}

// Update applies the non-nil fields of update.
func (r *PostgresRepository) Update(ctx context.Context, listingID string, update ListingUpdate) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE listings SET
			headline = COALESCE($2, headline),
			description = COALESCE($3, description),
			summary = COALESCE($4, summary),
			service_modes = COALESCE($5, service_modes),
			is_accepting_clients = COALESCE($6, is_accepting_clients),
			logo_url = COALESCE($7, logo_url),
			updated_at = NOW()
		WHERE id = $1
	`, listingID, update.Headline, update.Description, update.Summary,
		nullableModes(update.ServiceModes), update.IsAcceptingClients, update.LogoURL)
	if err != nil {
		return fmt.Errorf("listings: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrListingNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// SetSlug changes the slug of a listing that has never been published.
func (r *PostgresRepository) SetSlug(ctx context.Context, listingID, slug string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE listings SET slug = $2, updated_at = NOW()
		WHERE id = $1 AND published_at IS NULL
	`, listingID, slug)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("listings: set slug: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlugLocked
	}
	return nil
}

// SetStatus publishes or unpublishes. published_at records the first
// publication and is never cleared.
func (r *PostgresRepository) SetStatus(ctx context.Context, listingID string, status Status) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE listings SET
			status = $2,
			published_at = CASE WHEN $2 = 'published' THEN COALESCE(published_at, NOW()) ELSE published_at END,
			updated_at = NOW()
		WHERE id = $1
	`, listingID, string(status))
	if err != nil {
		return fmt.Errorf("listings: set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrListingNotFound
	}
	return nil
}

const locationColumns = `
	id, listing_id, COALESCE(label, ''), COALESCE(street, ''), city, state,
	COALESCE(postal_code, ''), latitude, longitude, service_radius_miles,
	is_primary, is_featured, created_at
`

type scanner interface {
	Scan(dest ...any) error
}

func scanLocation(row scanner, loc *Location) error {
	return row.Scan(&loc.ID, &loc.ListingID, &loc.Label, &loc.Street, &loc.City, &loc.State,
		&loc.PostalCode, &loc.Latitude, &loc.Longitude, &loc.ServiceRadiusMiles,
		&loc.IsPrimary, &loc.IsFeatured, &loc.CreatedAt)
}

// ListLocations returns the primary first, then oldest first.
func (r *PostgresRepository) ListLocations(ctx context.Context, listingID string) ([]Location, error) {
	rows, err := r.db.Query(ctx, `SELECT `+locationColumns+`
		FROM locations
		WHERE listing_id = $1
		ORDER BY is_primary DESC, created_at ASC, id ASC
	`, listingID)
	if err != nil {
		return nil, fmt.Errorf("listings: list locations: %w", err)
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var loc Location
		if err := scanLocation(rows, &loc); err != nil {
			return nil, fmt.Errorf("listings: scan location: %w", err)
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

// GetLocation fetches a location scoped to its listing.
func (r *PostgresRepository) GetLocation(ctx context.Context, listingID, locationID string) (*Location, error) {
	var loc Location
	err := scanLocation(r.db.QueryRow(ctx, `SELECT `+locationColumns+`
		FROM locations WHERE id = $1 AND listing_id = $2
	`, locationID, listingID), &loc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLocationNotFound
		}
		return nil, fmt.Errorf("listings: get location: %w", err)
	}
	return &loc, nil
}

// CountLocations counts a listing's locations.
func (r *PostgresRepository) CountLocations(ctx context.Context, listingID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM locations WHERE listing_id = $1`, listingID).Scan(&n); err != nil {
		return 0, fmt.Errorf("listings: count locations: %w", err)
	}
	return n, nil
}

// lockListing serializes location writes for one listing.
func lockListing(ctx context.Context, tx pgx.Tx, listingID string) error {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM listings WHERE id = $1 FOR UPDATE`, listingID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrListingNotFound
	}
	return err
}

// AddLocation inserts loc. The first location of a listing is always
// primary; makePrimary demotes the current primary in the same transaction.
// limit is re-checked under the listing lock.
func (r *PostgresRepository) AddLocation(ctx context.Context, loc *Location, limit int, makePrimary bool) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("listings: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockListing(ctx, tx, loc.ListingID); err != nil {
		return err
	}
	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM locations WHERE listing_id = $1`, loc.ListingID).Scan(&count); err != nil {
		return fmt.Errorf("listings: count locations: %w", err)
	}
	if count >= limit {
		return ErrLocationLimit
	}

	loc.IsPrimary = count == 0 || makePrimary
	if loc.IsPrimary && count > 0 {
		if _, err := tx.Exec(ctx, `UPDATE locations SET is_primary = FALSE WHERE listing_id = $1 AND is_primary`, loc.ListingID); err != nil {
			return fmt.Errorf("listings: demote primary: %w", err)
		}
	}
	if loc.ServiceRadiusMiles <= 0 {
		loc.ServiceRadiusMiles = DefaultServiceRadiusMiles
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO locations (listing_id, label, street, city, state, postal_code,
			latitude, longitude, service_radius_miles, is_primary)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, NULLIF($6, ''), $7, $8, $9, $10)
		RETURNING id, created_at
	`, loc.ListingID, loc.Label, loc.Street, loc.City, loc.State, loc.PostalCode,
		loc.Latitude, loc.Longitude, loc.ServiceRadiusMiles, loc.IsPrimary).Scan(&loc.ID, &loc.CreatedAt)
	if err != nil {
		return fmt.Errorf("listings: insert location: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("listings: commit: %w", err)
	}
	return nil
}

// UpdateLocation replaces the editable fields and, when makePrimary is set,
// promotes the location in the same transaction.
func (r *PostgresRepository) UpdateLocation(ctx context.Context, loc *Location, makePrimary bool) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("listings: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE locations SET
			label = NULLIF($3, ''), street = NULLIF($4, ''), city = $5, state = $6,
			postal_code = NULLIF($7, ''), latitude = $8, longitude = $9, service_radius_miles = $10
		WHERE id = $1 AND listing_id = $2
	`, loc.ID, loc.ListingID, loc.Label, loc.Street, loc.City, loc.State, loc.PostalCode,
		loc.Latitude, loc.Longitude, loc.ServiceRadiusMiles)
	if err != nil {
		return fmt.Errorf("listings: update location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLocationNotFound
	}
	if makePrimary {
		if err := promotePrimary(ctx, tx, loc.ListingID, loc.ID); err != nil {
			return err
		}
		loc.IsPrimary = true
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("listings: commit: %w", err)
	}
	return nil
}

// DeleteLocation removes a location. Deleting the primary promotes the
// oldest remaining one; the last location cannot be deleted.
func (r *PostgresRepository) DeleteLocation(ctx context.Context, listingID, locationID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("listings: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockListing(ctx, tx, listingID); err != nil {
		return err
	}
	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM locations WHERE listing_id = $1`, listingID).Scan(&count); err != nil {
		return fmt.Errorf("listings: count locations: %w", err)
	}

	var wasPrimary bool
	err = tx.QueryRow(ctx, `
		DELETE FROM locations WHERE id = $1 AND listing_id = $2 RETURNING is_primary
	`, locationID, listingID).Scan(&wasPrimary)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrLocationNotFound
	}
	if err != nil {
		return fmt.Errorf("listings: delete location: %w", err)
	}
	// Checked after the delete so a foreign id reports not found; returning
	// here rolls the delete back.
	if count <= 1 {
		return ErrOnlyLocation
	}

	if wasPrimary {
		if _, err := tx.Exec(ctx, `
			UPDATE locations SET is_primary = TRUE
			WHERE id = (
				SELECT id FROM locations WHERE listing_id = $1
				ORDER BY created_at ASC, id ASC LIMIT 1
			)
		`, listingID); err != nil {
			return fmt.Errorf("listings: promote primary: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("listings: commit: %w", err)
	}
	return nil
}

// SetPrimary demotes the current primary and promotes locationID.
func (r *PostgresRepository) SetPrimary(ctx context.Context, listingID, locationID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("listings: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := promotePrimary(ctx, tx, listingID, locationID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("listings: commit: %w", err)
	}
	return nil
}

func promotePrimary(ctx context.Context, tx pgx.Tx, listingID, locationID string) error {
	if _, err := tx.Exec(ctx, `
		UPDATE locations SET is_primary = FALSE
		WHERE listing_id = $1 AND is_primary AND id <> $2
	`, listingID, locationID); err != nil {
		return fmt.Errorf("listings: demote primary: %w", err)
	}
	tag, err := tx.Exec(ctx, `
		UPDATE locations SET is_primary = TRUE WHERE id = $1 AND listing_id = $2
	`, locationID, listingID)
	if err != nil {
		return fmt.Errorf("listings: promote primary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLocationNotFound
	}
	return nil
}

// maxCandidates bounds the bounding-box prefilter.
const maxCandidates = 500

// SearchCandidates returns published locations inside box.
func (r *PostgresRepository) SearchCandidates(ctx context.Context, box geo.Box, filter SearchFilter) ([]Candidate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT l.id, l.slug, COALESCE(l.headline, ''), p.agency_name, l.service_modes,
			l.is_accepting_clients, p.id, p.plan_tier, COALESCE(p.subscription_status, ''),
			p.onboarding_completed_at,
			loc.id, loc.listing_id, COALESCE(loc.label, ''), COALESCE(loc.street, ''), loc.city, loc.state,
			COALESCE(loc.postal_code, ''), loc.latitude, loc.longitude, loc.service_radius_miles,
			loc.is_primary, loc.is_featured, loc.created_at
		FROM locations loc
		JOIN listings l ON l.id = loc.listing_id
		JOIN profiles p ON p.id = l.profile_id
		WHERE l.status = 'published'
			AND loc.latitude BETWEEN $1 AND $2
			AND loc.longitude BETWEEN $3 AND $4
			AND ($5 = '' OR $5 = ANY(l.service_modes))
			AND (NOT $6 OR l.is_accepting_clients)
		LIMIT $7
	`, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng, string(filter.ServiceMode), filter.AcceptingOnly, maxCandidates)
	if err != nil {
		return nil, fmt.Errorf("listings: search: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var (
			c         Candidate
			modes     []string
			tier      string
			status    string
			onboarded *time.Time
		)
		loc := &c.Location
		if err := rows.Scan(&c.ListingID, &c.Slug, &c.Headline, &c.AgencyName, &modes,
			&c.IsAcceptingClients, &c.Plan.ProfileID, &tier, &status, &onboarded,
			&loc.ID, &loc.ListingID, &loc.Label, &loc.Street, &loc.City, &loc.State,
			&loc.PostalCode, &loc.Latitude, &loc.Longitude, &loc.ServiceRadiusMiles,
			&loc.IsPrimary, &loc.IsFeatured, &loc.CreatedAt); err != nil {
			return nil, fmt.Errorf("listings: scan candidate: %w", err)
		}
		c.ServiceModes = toModes(modes)
		c.Plan.StoredTier = plans.ParseTier(tier)
		c.Plan.Status = plans.ParseSubscriptionStatus(status)
		c.Plan.OnboardingCompletedAt = onboarded
		out = append(out, c)
	}
	return out, rows.Err()
}
