package notifications

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists notifications. Every read and write is scoped to a
// profile.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	List(ctx context.Context, profileID string, filter Filter) ([]Notification, error)
	UnreadCount(ctx context.Context, profileID string) (int, error)
	UnreadCountsByType(ctx context.Context, profileID string) (map[Type]int, error)
	MarkRead(ctx context.Context, profileID, id string) error
	MarkAllRead(ctx context.Context, profileID string, typ Type) (int64, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores notifications in Postgres.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("notifications: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newRepositoryWithDB(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts n and fills its id and timestamp.
func (r *PostgresRepository) Create(ctx context.Context, n *Notification) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO notifications (profile_id, type, title, body, link, entity_id, entity_type)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''))
		RETURNING id, created_at
	`, n.ProfileID, string(n.Type), n.Title, n.Body, n.Link, n.EntityID, n.EntityType).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("notifications: insert: %w", err)
	}
	return nil
}

// List returns newest first.
func (r *PostgresRepository) List(ctx context.Context, profileID string, filter Filter) ([]Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, profile_id, type, title, COALESCE(body, ''), COALESCE(link, ''),
			COALESCE(entity_id, ''), COALESCE(entity_type, ''), is_read, read_at, created_at
		FROM notifications
		WHERE profile_id = $1
			AND ($2 = '' OR type = $2)
			AND ($3::boolean IS NULL OR is_read = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, profileID, string(filter.Type), filter.IsRead, filter.limit(), filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("notifications: list: %w", err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var (
			n   Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.ProfileID, &typ, &n.Title, &n.Body, &n.Link,
			&n.EntityID, &n.EntityType, &n.IsRead, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("notifications: scan: %w", err)
		}
		n.Type = Type(typ)
		out = append(out, n)
	}
	return out, rows.Err()
}

// UnreadCount counts unread notifications.
func (r *PostgresRepository) UnreadCount(ctx context.Context, profileID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE profile_id = $1 AND NOT is_read
	`, profileID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("notifications: unread count: %w", err)
	}
	return n, nil
}

// UnreadCountsByType groups unread notifications by type.
func (r *PostgresRepository) UnreadCountsByType(ctx context.Context, profileID string) (map[Type]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT type, COUNT(*) FROM notifications
		WHERE profile_id = $1 AND NOT is_read
		GROUP BY type
	`, profileID)
	if err != nil {
		return nil, fmt.Errorf("notifications: counts by type: %w", err)
	}
	defer rows.Close()

	out := map[Type]int{}
	for rows.Next() {
		var (
			typ string
			n   int
		)
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("notifications: scan count: %w", err)
		}
		out[Type(typ)] = n
	}
	return out, rows.Err()
}

// MarkRead marks one notification read. Already-read rows are left as is.
func (r *PostgresRepository) MarkRead(ctx context.Context, profileID, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND profile_id = $2
	`, id, profileID)
	if err != nil {
		return fmt.Errorf("notifications: mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification, optionally of one type.
func (r *PostgresRepository) MarkAllRead(ctx context.Context, profileID string, typ Type) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = NOW()
		WHERE profile_id = $1 AND NOT is_read AND ($2 = '' OR type = $2)
	`, profileID, string(typ))
	if err != nil {
		return 0, fmt.Errorf("notifications: mark all read: %w", err)
	}
	return tag.RowsAffected(), nil
}
