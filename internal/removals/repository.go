package removals

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists removal requests and the directory listings they
// target.
type Repository interface {
	Create(ctx context.Context, r NewRequest) (string, error)
	PendingExists(ctx context.Context, profileID, directoryListingID string) (bool, error)
	Get(ctx context.Context, id string) (*Request, error)
	Latest(ctx context.Context, profileID, directoryListingID string) (*Request, error)
	List(ctx context.Context, f Filter) (*Page, error)
	// Decide records d on a pending request. Approval hides the directory
	// listing in the same transaction; if hiding fails nothing is written.
	Decide(ctx context.Context, id string, d Decision) error
	Stats(ctx context.Context) (Stats, error)
}

type querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores requests in Postgres.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("removals: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newRepositoryWithDB(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// Create inserts a pending request.
func (r *PostgresRepository) Create(ctx context.Context, req NewRequest) (string, error) {
	var id string
	err := r.db.QueryRow(ctx, `
		INSERT INTO removal_requests (profile_id, listing_id, google_places_listing_id, reason)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING id
	`, req.ProfileID, req.ListingID, req.DirectoryListingID, req.Reason).Scan(&id)
	if err != nil {
		switch pgCode(err) {
		case "23505":
			return "", ErrPendingExists
		case "23503":
			return "", ErrTargetNotFound
		}
		return "", fmt.Errorf("removals: insert: %w", err)
	}
	return id, nil
}

// PendingExists reports whether the profile already waits on a decision for
// the directory listing.
func (r *PostgresRepository) PendingExists(ctx context.Context, profileID, directoryListingID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM removal_requests
			WHERE profile_id = $1 AND google_places_listing_id = $2 AND status = 'pending'
		)
	`, profileID, directoryListingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("removals: pending exists: %w", err)
	}
	return exists, nil
}

const selectRequest = `
	SELECT r.id, COALESCE(r.reason, ''), r.status, COALESCE(r.admin_notes, ''),
		COALESCE(r.reviewed_by::text, ''), r.reviewed_at, r.created_at,
		g.id, g.name, g.slug, g.city, g.state, g.status,
		p.id, p.agency_name, p.contact_email,
		l.id, l.slug, COALESCE(l.headline, '')
	FROM removal_requests r
	JOIN google_places_listings g ON g.id = r.google_places_listing_id
	JOIN profiles p ON p.id = r.profile_id
	JOIN listings l ON l.id = r.listing_id
`

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*Request, error) {
	var (
		req    Request
		status string
	)
	if err := row.Scan(
		&req.ID, &req.Reason, &status, &req.AdminNotes,
		&req.ReviewedBy, &req.ReviewedAt, &req.CreatedAt,
		&req.DirectoryListing.ID, &req.DirectoryListing.Name, &req.DirectoryListing.Slug,
		&req.DirectoryListing.City, &req.DirectoryListing.State, &req.DirectoryListing.Status,
		&req.Profile.ID, &req.Profile.AgencyName, &req.Profile.ContactEmail,
		&req.Listing.ID, &req.Listing.Slug, &req.Listing.Headline,
	); err != nil {
		return nil, err
	}
	req.Status = Status(status)
	return &req, nil
}

// Get fetches one request.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Request, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, selectRequest+`WHERE r.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("removals: get: %w", err)
	}
	return req, nil
}

// Latest returns the profile's most recent request for the directory
// listing, or nil when there is none.
func (r *PostgresRepository) Latest(ctx context.Context, profileID, directoryListingID string) (*Request, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, selectRequest+`
		WHERE r.profile_id = $1 AND r.google_places_listing_id = $2
		ORDER BY r.created_at DESC
		LIMIT 1
	`, profileID, directoryListingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("removals: latest: %w", err)
	}
	return req, nil
}

// List returns one page of requests, newest first, with the filtered total.
func (r *PostgresRepository) List(ctx context.Context, f Filter) (*Page, error) {
	page := &Page{Requests: []Request{}}
	if err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM removal_requests WHERE ($1::text = '' OR status = $1::text)
	`, string(f.Status)).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("removals: count: %w", err)
	}

	rows, err := r.db.Query(ctx, selectRequest+`
		WHERE ($1::text = '' OR r.status = $1::text)
		ORDER BY r.created_at DESC
		LIMIT $2 OFFSET $3
	`, string(f.Status), f.Limit, f.offset())
	if err != nil {
		return nil, fmt.Errorf("removals: list: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("removals: scan: %w", err)
		}
		page.Requests = append(page.Requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("removals: list: %w", err)
	}
	return page, nil
}

// Decide implements Repository.
func (r *PostgresRepository) Decide(ctx context.Context, id string, d Decision) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("removals: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var status, targetID string
	err = tx.QueryRow(ctx, `
		SELECT status, google_places_listing_id
		FROM removal_requests
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&status, &targetID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("removals: lock request: %w", err)
	}
	if Status(status) != StatusPending {
		return ErrAlreadyProcessed
	}

	if d.Status == StatusApproved {
		tag, err := tx.Exec(ctx, `
			UPDATE google_places_listings SET status = 'removed', updated_at = NOW() WHERE id = $1
		`, targetID)
		if err != nil {
			return fmt.Errorf("removals: hide directory listing: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrTargetNotFound
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE removal_requests
		SET status = $2, admin_notes = NULLIF($3, ''), reviewed_by = NULLIF($4, '')::uuid,
			reviewed_at = $5, updated_at = NOW()
		WHERE id = $1
	`, id, string(d.Status), d.AdminNotes, d.ReviewedBy, d.ReviewedAt); err != nil {
		return fmt.Errorf("removals: record decision: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("removals: commit: %w", err)
	}
	return nil
}

// Stats counts directory listings and requests.
func (r *PostgresRepository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM google_places_listings),
			(SELECT COUNT(*) FROM google_places_listings WHERE status = 'active'),
			(SELECT COUNT(*) FROM google_places_listings WHERE status = 'removed'),
			(SELECT COUNT(*) FROM removal_requests WHERE status = 'pending'),
			(SELECT COUNT(*) FROM removal_requests)
	`).Scan(&s.TotalDirectoryListings, &s.ActiveDirectoryListings, &s.RemovedDirectoryListings,
		&s.PendingRequests, &s.TotalRequests)
	if err != nil {
		return Stats{}, fmt.Errorf("removals: stats: %w", err)
	}
	return s, nil
}
