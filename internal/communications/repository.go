package communications

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the communication log. Reads are scoped to the
// owning profile.
type Repository interface {
	Create(ctx context.Context, c *Communication) error
	ListForClient(ctx context.Context, profileID, clientID string) ([]Communication, error)
	List(ctx context.Context, profileID string, filter Filter) ([]Communication, int, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores communications in client_communications.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("communications: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newRepositoryWithDB(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create logs c and fills its id.
func (r *PostgresRepository) Create(ctx context.Context, c *Communication) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO client_communications (
			client_id, profile_id, template_slug, subject, body,
			recipient_email, recipient_name, status, sent_at, sent_by
		)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, NULLIF($7, ''), $8, $9, NULLIF($10, '')::uuid)
		RETURNING id
	`, c.ClientID, c.ProfileID, c.TemplateSlug, c.Subject, c.Body,
		c.RecipientEmail, c.RecipientName, string(c.Status), c.SentAt, c.SentBy,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("communications: insert: %w", err)
	}
	return nil
}

const communicationColumns = `
	m.id, m.client_id, m.profile_id, COALESCE(m.template_slug, ''), m.subject, m.body,
	m.recipient_email, COALESCE(m.recipient_name, ''), m.status, m.sent_at,
	COALESCE(m.sent_by::text, ''),
	COALESCE(NULLIF(TRIM(COALESCE(c.child_first_name, '') || ' ' || COALESCE(c.child_last_name, '')), ''), 'Unknown')`

func scanCommunication(row pgx.Row, m *Communication, extra ...any) error {
	var status string
	dest := []any{&m.ID, &m.ClientID, &m.ProfileID, &m.TemplateSlug, &m.Subject, &m.Body,
		&m.RecipientEmail, &m.RecipientName, &status, &m.SentAt, &m.SentBy, &m.ClientName}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	m.Status = Status(status)
	return nil
}

// ListForClient returns one client's history, newest first.
func (r *PostgresRepository) ListForClient(ctx context.Context, profileID, clientID string) ([]Communication, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+communicationColumns+`
		FROM client_communications m
		JOIN clients c ON c.id = m.client_id
		WHERE m.profile_id = $1 AND m.client_id = $2
		ORDER BY m.sent_at DESC
	`, profileID, clientID)
	if err != nil {
		return nil, fmt.Errorf("communications: list for client: %w", err)
	}
	defer rows.Close()

	out := []Communication{}
	for rows.Next() {
		var m Communication
		if err := scanCommunication(rows, &m); err != nil {
			return nil, fmt.Errorf("communications: scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// List returns one page of the agency's log, newest first, and the total
// matching the filter.
func (r *PostgresRepository) List(ctx context.Context, profileID string, filter Filter) ([]Communication, int, error) {
	filter = filter.normalized()
	rows, err := r.db.Query(ctx, `
		SELECT `+communicationColumns+`, COUNT(*) OVER ()
		FROM client_communications m
		JOIN clients c ON c.id = m.client_id
		WHERE m.profile_id = $1
			AND ($2 = '' OR m.client_id::text = $2)
			AND ($3 = '' OR m.template_slug = $3)
			AND ($4::timestamptz IS NULL OR m.sent_at >= $4)
			AND ($5::timestamptz IS NULL OR m.sent_at <= $5)
		ORDER BY m.sent_at DESC
		LIMIT $6 OFFSET $7
	`, profileID, filter.ClientID, filter.TemplateSlug, filter.From, filter.To, filter.PageSize, filter.offset())
	if err != nil {
		return nil, 0, fmt.Errorf("communications: list: %w", err)
	}
	defer rows.Close()

	out := []Communication{}
	total := 0
	for rows.Next() {
		var m Communication
		if err := scanCommunication(rows, &m, &total); err != nil {
			return nil, 0, fmt.Errorf("communications: scan: %w", err)
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}
