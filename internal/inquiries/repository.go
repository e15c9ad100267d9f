package inquiries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists inquiries. Every read and write is scoped to a listing.
type Repository interface {
	Create(ctx context.Context, in *Inquiry) error
	Get(ctx context.Context, listingID, id string) (*Inquiry, error)
	List(ctx context.Context, listingID string, filter Filter) ([]Inquiry, error)
	UnreadCount(ctx context.Context, listingID string) (int, error)
	// Transition moves an inquiry from one status to another, stamping the
	// matching timestamp. It returns ErrInvalidTransition when the row is no
	// longer in the from status.
	Transition(ctx context.Context, listingID, id string, from, to Status, at time.Time) error
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores inquiries in Postgres.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("inquiries: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newRepositoryWithDB(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new unread inquiry and fills its id and timestamp.
func (r *PostgresRepository) Create(ctx context.Context, in *Inquiry) error {
	id := uuid.New()
	err := r.db.QueryRow(ctx, `
		INSERT INTO inquiries (
			id, listing_id, location_id, family_name, family_email, family_phone, child_age,
			message, referral_source, referral_source_other, source, status
		)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, NULLIF($6, ''), NULLIF($7, ''),
			$8, NULLIF($9, ''), NULLIF($10, ''), $11, 'unread')
		RETURNING created_at
	`, id, in.ListingID, in.LocationID, in.FamilyName, in.FamilyEmail, in.FamilyPhone, in.ChildAge,
		in.Message, in.ReferralSource, in.ReferralSourceOther, string(in.Source)).Scan(&in.CreatedAt)
	if err != nil {
		return fmt.Errorf("inquiries: insert: %w", err)
	}
	in.ID = id.String()
	in.Status = StatusUnread
	return nil
}

const selectInquiry = `
	SELECT i.id, i.listing_id, COALESCE(i.location_id::text, ''), i.family_name, i.family_email,
		COALESCE(i.family_phone, ''), COALESCE(i.child_age, ''), i.message,
		COALESCE(i.referral_source, ''), COALESCE(i.referral_source_other, ''),
		i.source, i.status, i.created_at, i.read_at, i.replied_at, i.archived_at,
		COALESCE(l.label, ''), COALESCE(l.city, ''), COALESCE(l.state, '')
	FROM inquiries i
	LEFT JOIN locations l ON l.id = i.location_id
`

type scanner interface {
	Scan(dest ...any) error
}

func scanInquiry(row scanner) (*Inquiry, error) {
	var (
		in                 Inquiry
		source, status     string
		label, city, state string
	)
	if err := row.Scan(
		&in.ID, &in.ListingID, &in.LocationID, &in.FamilyName, &in.FamilyEmail,
		&in.FamilyPhone, &in.ChildAge, &in.Message,
		&in.ReferralSource, &in.ReferralSourceOther,
		&source, &status, &in.CreatedAt, &in.ReadAt, &in.RepliedAt, &in.ArchivedAt,
		&label, &city, &state,
	); err != nil {
		return nil, err
	}
	in.Source = Source(source)
	in.Status = Status(status)
	if in.LocationID != "" {
		in.Location = &LocationSummary{ID: in.LocationID, Label: label, City: city, State: state}
	}
	return &in, nil
}

// Get fetches one inquiry of the listing.
func (r *PostgresRepository) Get(ctx context.Context, listingID, id string) (*Inquiry, error) {
	in, err := scanInquiry(r.db.QueryRow(ctx, selectInquiry+`
		WHERE i.id = $1 AND i.listing_id = $2
	`, id, listingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("inquiries: get: %w", err)
	}
	return in, nil
}

// List returns newest first.
func (r *PostgresRepository) List(ctx context.Context, listingID string, filter Filter) ([]Inquiry, error) {
	locationIDs := filter.LocationIDs
	if locationIDs == nil {
		locationIDs = []string{}
	}
	rows, err := r.db.Query(ctx, selectInquiry+`
		WHERE i.listing_id = $1
			AND (($2::text = '' AND i.status <> 'archived') OR i.status = $2::text)
			AND (cardinality($3::text[]) = 0 OR i.location_id IS NULL OR i.location_id::text = ANY($3::text[]))
		ORDER BY i.created_at DESC
	`, listingID, string(filter.Status), locationIDs)
	if err != nil {
		return nil, fmt.Errorf("inquiries: list: %w", err)
	}
	defer rows.Close()

	out := []Inquiry{}
	for rows.Next() {
		in, err := scanInquiry(rows)
		if err != nil {
			return nil, fmt.Errorf("inquiries: scan: %w", err)
		}
		out = append(out, *in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inquiries: list: %w", err)
	}
	return out, nil
}

// UnreadCount counts unread inquiries of the listing.
func (r *PostgresRepository) UnreadCount(ctx context.Context, listingID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM inquiries WHERE listing_id = $1 AND status = 'unread'
	`, listingID).Scan(&n); err != nil {
		return 0, fmt.Errorf("inquiries: unread count: %w", err)
	}
	return n, nil
}

// Transition implements Repository. The status predicate makes concurrent
// transitions from the same state mutually exclusive.
func (r *PostgresRepository) Transition(ctx context.Context, listingID, id string, from, to Status, at time.Time) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE inquiries
		SET status = $4::text,
			read_at = CASE WHEN $4::text IN ('read', 'replied') THEN COALESCE(read_at, $5) ELSE read_at END,
			replied_at = CASE WHEN $4::text = 'replied' THEN $5 ELSE replied_at END,
			archived_at = CASE WHEN $4::text = 'archived' THEN $5 ELSE archived_at END
		WHERE id = $1 AND listing_id = $2 AND status = $3
	`, id, listingID, string(from), string(to), at)
	if err != nil {
		return fmt.Errorf("inquiries: transition: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}
