package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists postings and applications. Provider reads and writes
// are scoped by the owning profile; applications are owned through their
// posting.
type Repository interface {
	CreatePosting(ctx context.Context, p *Posting) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	CountPostings(ctx context.Context, profileID string) (int, error)
	GetPosting(ctx context.Context, profileID, id string) (*Posting, error)
	GetPublishedPosting(ctx context.Context, id string) (*Posting, error)
	ListPostings(ctx context.Context, profileID string) ([]Posting, error)
	UpdatePosting(ctx context.Context, p *Posting) error
	SetPostingStatus(ctx context.Context, profileID, id string, status PostingStatus, at time.Time) error
	DeletePosting(ctx context.Context, profileID, id string) error

	ApplicationExists(ctx context.Context, jobID, email string) (bool, error)
	CreateApplication(ctx context.Context, a *Application) error
	GetApplication(ctx context.Context, profileID, id string) (*Application, error)
	ListApplications(ctx context.Context, profileID string, filter ApplicationFilter) ([]Application, error)
	NewApplicationCount(ctx context.Context, profileID string) (int, error)
	// SetApplicationStatus stamps reviewed_at when the application leaves new.
	SetApplicationStatus(ctx context.Context, profileID, id string, status ApplicationStatus, at time.Time) error
	UpdateApplicationDetails(ctx context.Context, profileID, id string, u DetailsUpdate) error
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores the job board in Postgres.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("jobs: pgx pool required")
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

// CreatePosting inserts a posting and fills its id and timestamps.
func (r *PostgresRepository) CreatePosting(ctx context.Context, p *Posting) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO job_postings (
			profile_id, location_id, title, slug, description, requirements, benefits,
			position_type, employment_types, remote_option, salary_min, salary_max, salary_type,
			status, published_at
		)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, NULLIF($6, ''), $7,
			$8, $9, $10, $11, $12, NULLIF($13, ''), $14, $15)
		RETURNING id, created_at, updated_at
	`, p.ProfileID, p.LocationID, p.Title, p.Slug, p.Description, p.Requirements, p.Benefits,
		p.PositionType, p.EmploymentTypes, p.RemoteOption, p.SalaryMin, p.SalaryMax, p.SalaryType,
		string(p.Status), p.PublishedAt).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("jobs: insert posting: %w", err)
	}
	return nil
}

// SlugExists reports whether any posting uses slug.
func (r *PostgresRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM job_postings WHERE slug = $1)`, slug).Scan(&exists); err != nil {
		return false, fmt.Errorf("jobs: slug exists: %w", err)
	}
	return exists, nil
}

// CountPostings counts every posting of the profile, whatever its status.
func (r *PostgresRepository) CountPostings(ctx context.Context, profileID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM job_postings WHERE profile_id = $1`, profileID).Scan(&n); err != nil {
		return 0, fmt.Errorf("jobs: count postings: %w", err)
	}
	return n, nil
}

const selectPosting = `
	SELECT p.id, p.profile_id, COALESCE(p.location_id::text, ''), p.title, p.slug, p.description,
		COALESCE(p.requirements, ''), p.benefits, p.position_type, p.employment_types, p.remote_option,
		p.salary_min, p.salary_max, COALESCE(p.salary_type, ''), p.status, p.published_at,
		p.created_at, p.updated_at,
		(SELECT COUNT(*) FROM job_applications a WHERE a.job_posting_id = p.id)
	FROM job_postings p
`

type scanner interface {
	Scan(dest ...any) error
}

func scanPosting(row scanner) (*Posting, error) {
	var (
		p      Posting
		status string
	)
	if err := row.Scan(
		&p.ID, &p.ProfileID, &p.LocationID, &p.Title, &p.Slug, &p.Description,
		&p.Requirements, &p.Benefits, &p.PositionType, &p.EmploymentTypes, &p.RemoteOption,
		&p.SalaryMin, &p.SalaryMax, &p.SalaryType, &status, &p.PublishedAt,
		&p.CreatedAt, &p.UpdatedAt, &p.ApplicationCount,
	); err != nil {
		return nil, err
	}
	p.Status = PostingStatus(status)
	return &p, nil
}

func (r *PostgresRepository) getPosting(ctx context.Context, where string, args ...any) (*Posting, error) {
	p, err := scanPosting(r.db.QueryRow(ctx, selectPosting+where, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostingNotFound
		}
		return nil, fmt.Errorf("jobs: get posting: %w", err)
	}
	return p, nil
}

// GetPosting fetches a posting owned by the profile.
func (r *PostgresRepository) GetPosting(ctx context.Context, profileID, id string) (*Posting, error) {
	return r.getPosting(ctx, `WHERE p.id = $1 AND p.profile_id = $2`, id, profileID)
}

// GetPublishedPosting fetches a posting that accepts applications.
func (r *PostgresRepository) GetPublishedPosting(ctx context.Context, id string) (*Posting, error) {
	return r.getPosting(ctx, `WHERE p.id = $1 AND p.status = 'published'`, id)
}

// ListPostings returns the profile's postings, newest first.
func (r *PostgresRepository) ListPostings(ctx context.Context, profileID string) ([]Posting, error) {
	rows, err := r.db.Query(ctx, selectPosting+`
		WHERE p.profile_id = $1
		ORDER BY p.created_at DESC
	`, profileID)
	if err != nil {
		return nil, fmt.Errorf("jobs: list postings: %w", err)
	}
	defer rows.Close()

	out := []Posting{}
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, fmt.Errorf("jobs: scan posting: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("jobs: list postings: %w", err)
	}
	return out, nil
}

// UpdatePosting saves the editable fields of a posting.
func (r *PostgresRepository) UpdatePosting(ctx context.Context, p *Posting) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE job_postings
		SET location_id = NULLIF($3, '')::uuid, title = $4, description = $5,
			requirements = NULLIF($6, ''), benefits = $7, position_type = $8, employment_types = $9,
			remote_option = $10, salary_min = $11, salary_max = $12, salary_type = NULLIF($13, ''),
			updated_at = NOW()
		WHERE id = $1 AND profile_id = $2
	`, p.ID, p.ProfileID, p.LocationID, p.Title, p.Description,
		p.Requirements, p.Benefits, p.PositionType, p.EmploymentTypes,
		p.RemoteOption, p.SalaryMin, p.SalaryMax, p.SalaryType)
	if err != nil {
		return fmt.Errorf("jobs: update posting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPostingNotFound
	}
	return nil
}

// SetPostingStatus changes the status. published_at is stamped the first
// time a posting is published and kept afterwards.
func (r *PostgresRepository) SetPostingStatus(ctx context.Context, profileID, id string, status PostingStatus, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE job_postings
		SET status = $3::text,
			published_at = CASE WHEN $3::text = 'published' THEN COALESCE(published_at, $4) ELSE published_at END,
			updated_at = NOW()
		WHERE id = $1 AND profile_id = $2
	`, id, profileID, string(status), at)
	if err != nil {
		return fmt.Errorf("jobs: set posting status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPostingNotFound
	}
	return nil
}

// DeletePosting removes a posting and, by cascade, its applications.
func (r *PostgresRepository) DeletePosting(ctx context.Context, profileID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM job_postings WHERE id = $1 AND profile_id = $2`, id, profileID)
	if err != nil {
		return fmt.Errorf("jobs: delete posting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPostingNotFound
	}
	return nil
}
