package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists clients and their tasks. Every read and write is
// scoped to the owning profile except ClaimOverdue, which runs for the
// reminder sweep.
type Repository interface {
	Create(ctx context.Context, c *Client) error
	Get(ctx context.Context, profileID, id string) (*Client, error)
	List(ctx context.Context, profileID string, status Status) ([]Client, error)
	Update(ctx context.Context, c *Client) error

	CreateTask(ctx context.Context, t *Task) error
	ListTasks(ctx context.Context, profileID string, filter TaskFilter) ([]Task, error)
	CompleteTask(ctx context.Context, profileID, id string, at time.Time) error
	DeleteTask(ctx context.Context, profileID, id string, at time.Time) error
	ClaimOverdue(ctx context.Context, now time.Time, limit int) ([]Task, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores clients in Postgres.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("clients: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newRepositoryWithDB(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const clientColumns = `
	id, profile_id, COALESCE(listing_id::text, ''), COALESCE(inquiry_id::text, ''), status,
	COALESCE(child_first_name, ''), COALESCE(child_last_name, ''),
	COALESCE(parent_first_name, ''), COALESCE(parent_last_name, ''),
	COALESCE(parent_email, ''), COALESCE(parent_phone, ''),
	COALESCE(insurance_name, ''), COALESCE(notes, ''), created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanClient(row scanner, c *Client) error {
	var status string
	if err := row.Scan(&c.ID, &c.ProfileID, &c.ListingID, &c.InquiryID, &status,
		&c.ChildFirstName, &c.ChildLastName, &c.ParentFirstName, &c.ParentLastName,
		&c.ParentEmail, &c.ParentPhone, &c.InsuranceName, &c.Notes,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return err
	}
	c.Status = Status(status)
	return nil
}

// Create inserts c. A second client for the same inquiry is rejected.
func (r *PostgresRepository) Create(ctx context.Context, c *Client) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO clients (
			profile_id, listing_id, inquiry_id, status, child_first_name, child_last_name,
			parent_first_name, parent_last_name, parent_email, parent_phone, insurance_name, notes
		)
		VALUES ($1, NULLIF($2, '')::uuid, NULLIF($3, '')::uuid, $4, NULLIF($5, ''), NULLIF($6, ''),
			NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''))
		RETURNING id, created_at, updated_at
	`, c.ProfileID, c.ListingID, c.InquiryID, string(c.Status), c.ChildFirstName, c.ChildLastName,
		c.ParentFirstName, c.ParentLastName, c.ParentEmail, c.ParentPhone, c.InsuranceName, c.Notes,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyConverted
		}
		return fmt.Errorf("clients: insert: %w", err)
	}
	return nil
}

// Get returns one of the profile's clients.
func (r *PostgresRepository) Get(ctx context.Context, profileID, id string) (*Client, error) {
	var c Client
	err := scanClient(r.db.QueryRow(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE id = $1 AND profile_id = $2 AND deleted_at IS NULL
	`, id, profileID), &c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("clients: get: %w", err)
	}
	return &c, nil
}

// List returns the profile's clients, newest first, optionally of one status.
func (r *PostgresRepository) List(ctx context.Context, profileID string, status Status) ([]Client, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE profile_id = $1 AND deleted_at IS NULL AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
	`, profileID, string(status))
	if err != nil {
		return nil, fmt.Errorf("clients: list: %w", err)
	}
	defer rows.Close()

	out := []Client{}
	for rows.Next() {
		var c Client
		if err := scanClient(rows, &c); err != nil {
			return nil, fmt.Errorf("clients: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update replaces the editable fields.
func (r *PostgresRepository) Update(ctx context.Context, c *Client) error {
	err := r.db.QueryRow(ctx, `
		UPDATE clients SET
			status = $3, child_first_name = NULLIF($4, ''), child_last_name = NULLIF($5, ''),
			parent_first_name = NULLIF($6, ''), parent_last_name = NULLIF($7, ''),
			parent_email = NULLIF($8, ''), parent_phone = NULLIF($9, ''),
			insurance_name = NULLIF($10, ''), notes = NULLIF($11, ''), updated_at = NOW()
		WHERE id = $1 AND profile_id = $2 AND deleted_at IS NULL
		RETURNING updated_at
	`, c.ID, c.ProfileID, string(c.Status), c.ChildFirstName, c.ChildLastName,
		c.ParentFirstName, c.ParentLastName, c.ParentEmail, c.ParentPhone,
		c.InsuranceName, c.Notes).Scan(&c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("clients: update: %w", err)
	}
	return nil
}

// CreateTask inserts t as pending.
func (r *PostgresRepository) CreateTask(ctx context.Context, t *Task) error {
	t.Status = TaskPending
	err := r.db.QueryRow(ctx, `
		INSERT INTO client_tasks (profile_id, client_id, title, content, status, due_date)
		VALUES ($1, NULLIF($2, '')::uuid, $3, NULLIF($4, ''), 'pending', $5)
		RETURNING id, created_at
	`, t.ProfileID, t.ClientID, t.Title, t.Content, t.DueDate).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("clients: insert task: %w", err)
	}
	return nil
}

// ListTasks returns live tasks ordered by due date, undated last.
func (r *PostgresRepository) ListTasks(ctx context.Context, profileID string, filter TaskFilter) ([]Task, error) {
	rows, err := r.db.Query(ctx, `
		SELECT t.id, t.profile_id, COALESCE(t.client_id::text, ''),
			TRIM(COALESCE(c.child_first_name, '') || ' ' || COALESCE(c.child_last_name, '')),
			t.title, COALESCE(t.content, ''), t.status, t.due_date, t.completed_at, t.created_at
		FROM client_tasks t
		LEFT JOIN clients c ON c.id = t.client_id
		WHERE t.profile_id = $1 AND t.deleted_at IS NULL
			AND ($2 = '' OR t.status = $2)
			AND ($3 = '' OR t.client_id::text = $3)
		ORDER BY t.due_date ASC NULLS LAST, t.created_at DESC
	`, profileID, string(filter.Status), filter.ClientID)
	if err != nil {
		return nil, fmt.Errorf("clients: list tasks: %w", err)
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		var (
			t      Task
			status string
		)
		if err := rows.Scan(&t.ID, &t.ProfileID, &t.ClientID, &t.ClientName, &t.Title, &t.Content,
			&status, &t.DueDate, &t.CompletedAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("clients: scan task: %w", err)
		}
		t.Status = TaskStatus(status)
		out = append(out, t)
	}
	return out, rows.Err()
}

// CompleteTask marks a task completed. Completing twice keeps the first
// completion time.
func (r *PostgresRepository) CompleteTask(ctx context.Context, profileID, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE client_tasks SET status = 'completed', completed_at = COALESCE(completed_at, $3)
		WHERE id = $1 AND profile_id = $2 AND deleted_at IS NULL
	`, id, profileID, at)
	if err != nil {
		return fmt.Errorf("clients: complete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// DeleteTask soft deletes a task.
func (r *PostgresRepository) DeleteTask(ctx context.Context, profileID, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE client_tasks SET deleted_at = $3
		WHERE id = $1 AND profile_id = $2 AND deleted_at IS NULL
	`, id, profileID, at)
	if err != nil {
		return fmt.Errorf("clients: delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// ClaimOverdue stamps up to limit overdue, unreminded tasks and returns
// them. Concurrent sweeps skip each other's rows.
func (r *PostgresRepository) ClaimOverdue(ctx context.Context, now time.Time, limit int) ([]Task, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE client_tasks SET overdue_notified_at = $1
		WHERE id IN (
			SELECT id FROM client_tasks
			WHERE status = 'pending' AND deleted_at IS NULL
				AND due_date < $1 AND overdue_notified_at IS NULL
			ORDER BY due_date ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, profile_id, COALESCE(client_id::text, ''), title, due_date
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("clients: claim overdue: %w", err)
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		t := Task{Status: TaskPending}
		if err := rows.Scan(&t.ID, &t.ProfileID, &t.ClientID, &t.Title, &t.DueDate); err != nil {
			return nil, fmt.Errorf("clients: scan overdue: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
