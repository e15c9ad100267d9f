package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ApplicationExists reports whether email already applied to the posting.
func (r *PostgresRepository) ApplicationExists(ctx context.Context, jobID, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM job_applications WHERE job_posting_id = $1 AND lower(applicant_email) = lower($2)
		)
	`, jobID, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("jobs: application exists: %w", err)
	}
	return exists, nil
}

// CreateApplication inserts a new application. A unique violation on
// (job, lower(email)) is reported as ErrDuplicate.
func (r *PostgresRepository) CreateApplication(ctx context.Context, a *Application) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO job_applications (
			job_posting_id, applicant_name, applicant_email, applicant_phone, linkedin_url,
			resume_path, cover_letter, source, status
		)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, 'new')
		RETURNING id, created_at
	`, a.JobPostingID, a.ApplicantName, a.ApplicantEmail, a.ApplicantPhone, a.LinkedInURL,
		a.ResumePath, a.CoverLetter, a.Source).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("jobs: insert application: %w", err)
	}
	a.Status = ApplicationNew
	return nil
}

const selectApplication = `
	SELECT a.id, a.job_posting_id, p.title, a.applicant_name, a.applicant_email,
		COALESCE(a.applicant_phone, ''), COALESCE(a.linkedin_url, ''), COALESCE(a.resume_path, ''),
		COALESCE(a.cover_letter, ''), a.source, a.status, a.rating, COALESCE(a.notes, ''),
		a.reviewed_at, a.created_at
	FROM job_applications a
	JOIN job_postings p ON p.id = a.job_posting_id
`

func scanApplication(row scanner) (*Application, error) {
	var (
		a      Application
		status string
		rating *int16
	)
	if err := row.Scan(
		&a.ID, &a.JobPostingID, &a.JobTitle, &a.ApplicantName, &a.ApplicantEmail,
		&a.ApplicantPhone, &a.LinkedInURL, &a.ResumePath,
		&a.CoverLetter, &a.Source, &status, &rating, &a.Notes,
		&a.ReviewedAt, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	a.Status = ApplicationStatus(status)
	if rating != nil {
		v := int(*rating)
		a.Rating = &v
	}
	return &a, nil
}

// GetApplication fetches an application to one of the profile's postings.
func (r *PostgresRepository) GetApplication(ctx context.Context, profileID, id string) (*Application, error) {
	a, err := scanApplication(r.db.QueryRow(ctx, selectApplication+`
		WHERE a.id = $1 AND p.profile_id = $2
	`, id, profileID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("jobs: get application: %w", err)
	}
	return a, nil
}

// ListApplications returns the profile's applicants, newest first.
func (r *PostgresRepository) ListApplications(ctx context.Context, profileID string, filter ApplicationFilter) ([]Application, error) {
	rows, err := r.db.Query(ctx, selectApplication+`
		WHERE p.profile_id = $1
			AND ($2::text = '' OR a.status = $2::text)
			AND ($3::text = '' OR a.job_posting_id::text = $3::text)
		ORDER BY a.created_at DESC
	`, profileID, string(filter.Status), filter.JobID)
	if err != nil {
		return nil, fmt.Errorf("jobs: list applications: %w", err)
	}
	defer rows.Close()

	out := []Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("jobs: scan application: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("jobs: list applications: %w", err)
	}
	return out, nil
}

// NewApplicationCount counts applications still in new.
func (r *PostgresRepository) NewApplicationCount(ctx context.Context, profileID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM job_applications a
		JOIN job_postings p ON p.id = a.job_posting_id
		WHERE p.profile_id = $1 AND a.status = 'new'
	`, profileID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("jobs: new application count: %w", err)
	}
	return n, nil
}

// SetApplicationStatus implements Repository.
func (r *PostgresRepository) SetApplicationStatus(ctx context.Context, profileID, id string, status ApplicationStatus, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE job_applications a
		SET status = $3::text,
			reviewed_at = CASE WHEN a.status = 'new' AND $3::text <> 'new' THEN $4 ELSE a.reviewed_at END,
			updated_at = NOW()
		FROM job_postings p
		WHERE a.id = $1 AND p.id = a.job_posting_id AND p.profile_id = $2
	`, id, profileID, string(status), at)
	if err != nil {
		return fmt.Errorf("jobs: set application status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrApplicationNotFound
	}
	return nil
}

// UpdateApplicationDetails writes notes and rating. Absent fields keep their
// stored value.
func (r *PostgresRepository) UpdateApplicationDetails(ctx context.Context, profileID, id string, u DetailsUpdate) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE job_applications a
		SET notes = CASE WHEN $3::boolean THEN NULLIF($4, '') ELSE a.notes END,
			rating = CASE WHEN $5::boolean THEN NULL WHEN $6::smallint IS NOT NULL THEN $6::smallint ELSE a.rating END,
			updated_at = NOW()
		FROM job_postings p
		WHERE a.id = $1 AND p.id = a.job_posting_id AND p.profile_id = $2
	`, id, profileID, u.Notes != nil, derefString(u.Notes), u.ClearRating, u.Rating)
	if err != nil {
		return fmt.Errorf("jobs: update application details: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrApplicationNotFound
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
