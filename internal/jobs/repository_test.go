package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var postingColumns = []string{
	"id", "profile_id", "location_id", "title", "slug", "description",
	"requirements", "benefits", "position_type", "employment_types", "remote_option",
	"salary_min", "salary_max", "salary_type", "status", "published_at",
	"created_at", "updated_at", "application_count",
}

var applicationColumns = []string{
	"id", "job_posting_id", "title", "applicant_name", "applicant_email",
	"applicant_phone", "linkedin_url", "resume_path",
	"cover_letter", "source", "status", "rating", "notes",
	"reviewed_at", "created_at",
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestPostgresRepository_CreatePosting(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newRepositoryWithDB(mock)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Posting{
		ProfileID:       "owner-1",
		Title:           "Registered Behavior Technician",
		Slug:            "registered-behavior-technician-bright-aba",
		Description:     "Work one on one with learners in a clinic setting.",
		PositionType:    "rbt",
		EmploymentTypes: []string{"part_time"},
		Benefits:        []string{},
		Status:          PostingDraft,
	}

	mock.ExpectQuery("INSERT INTO job_postings").
		WithArgs("owner-1", "", p.Title, p.Slug, p.Description, "", []string{},
			"rbt", []string{"part_time"}, false, pgxmock.AnyArg(), pgxmock.AnyArg(), "",
			"draft", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("job-1", created, created))

	require.NoError(t, repo.CreatePosting(context.Background(), p))
	assert.Equal(t, "job-1", p.ID)
	assert.Equal(t, created, p.CreatedAt)

	mock.ExpectQuery("INSERT INTO job_postings").
		WithArgs(anyArgs(15)...).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	assert.ErrorIs(t, repo.CreatePosting(context.Background(), p), ErrSlugTaken)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetPosting(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newRepositoryWithDB(mock)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	minPay := 30

	mock.ExpectQuery(`WHERE p.id = \$1 AND p.profile_id = \$2`).
		WithArgs("job-1", "owner-1").
		WillReturnRows(pgxmock.NewRows(postingColumns).AddRow(
			"job-1", "owner-1", "", "Registered Behavior Technician", "rbt-bright-aba", "Clinic role",
			"", []string{"pto"}, "rbt", []string{"part_time"}, true,
			&minPay, (*int)(nil), "hourly", "published", &created,
			created, created, 3))

	p, err := repo.GetPosting(context.Background(), "owner-1", "job-1")
	require.NoError(t, err)
	assert.Equal(t, PostingPublished, p.Status)
	assert.Equal(t, 3, p.ApplicationCount)
	require.NotNil(t, p.SalaryMin)
	assert.Equal(t, 30, *p.SalaryMin)

	mock.ExpectQuery(`p.status = 'published'`).
		WithArgs("job-2").
		WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetPublishedPosting(context.Background(), "job-2")
	assert.True(t, errors.Is(err, ErrPostingNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SetPostingStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newRepositoryWithDB(mock)
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE job_postings").
		WithArgs("job-1", "owner-1", "published", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.SetPostingStatus(context.Background(), "owner-1", "job-1", PostingPublished, at))

	mock.ExpectExec("UPDATE job_postings").
		WithArgs("job-1", "owner-2", "closed", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.SetPostingStatus(context.Background(), "owner-2", "job-1", PostingClosed, at), ErrPostingNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_DeletePosting(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newRepositoryWithDB(mock)
	mock.ExpectExec("DELETE FROM job_postings").
		WithArgs("job-1", "owner-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, repo.DeletePosting(context.Background(), "owner-1", "job-1"), ErrPostingNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateApplication(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newRepositoryWithDB(mock)
	created := time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC)
	a := &Application{
		JobPostingID:   "job-1",
		ApplicantName:  "Riley Chen",
		ApplicantEmail: "riley@example.com",
		ResumePath:     "resumes/job-1/abc-cv.pdf",
		Source:         "direct",
	}

	mock.ExpectQuery(`lower\(applicant_email\) = lower\(\$2\)`).
		WithArgs("job-1", "riley@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	exists, err := repo.ApplicationExists(context.Background(), "job-1", "riley@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	mock.ExpectQuery("INSERT INTO job_applications").
		WithArgs("job-1", "Riley Chen", "riley@example.com", "", "", "resumes/job-1/abc-cv.pdf", "", "direct").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("app-1", created))
	require.NoError(t, repo.CreateApplication(context.Background(), a))
	assert.Equal(t, "app-1", a.ID)
	assert.Equal(t, ApplicationNew, a.Status)

	mock.ExpectQuery("INSERT INTO job_applications").
		WithArgs(anyArgs(8)...).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	assert.ErrorIs(t, repo.CreateApplication(context.Background(), a), ErrDuplicate)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetApplication(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newRepositoryWithDB(mock)
	created := time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC)
	rating := int16(4)

	mock.ExpectQuery("JOIN job_postings p").
		WithArgs("app-1", "owner-1").
		WillReturnRows(pgxmock.NewRows(applicationColumns).AddRow(
			"app-1", "job-1", "RBT", "Riley Chen", "riley@example.com",
			"", "", "", "", "direct", "interview", &rating, "Great fit",
			&created, created))

	a, err := repo.GetApplication(context.Background(), "owner-1", "app-1")
	require.NoError(t, err)
	assert.Equal(t, ApplicationInterview, a.Status)
	assert.Equal(t, "RBT", a.JobTitle)
	require.NotNil(t, a.Rating)
	assert.Equal(t, 4, *a.Rating)

	mock.ExpectQuery("JOIN job_postings p").
		WithArgs("app-9", "owner-1").
		WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetApplication(context.Background(), "owner-1", "app-9")
	assert.ErrorIs(t, err, ErrApplicationNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListApplicationsPassesFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newRepositoryWithDB(mock)
	created := time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC)

	mock.ExpectQuery("ORDER BY a.created_at DESC").
		WithArgs("owner-1", "new", "job-1").
		WillReturnRows(pgxmock.NewRows(applicationColumns).AddRow(
			"app-1", "job-1", "RBT", "Riley Chen", "riley@example.com",
			"", "", "", "", "direct", "new", (*int16)(nil), "",
			(*time.Time)(nil), created))

	apps, err := repo.ListApplications(context.Background(), "owner-1", ApplicationFilter{Status: ApplicationNew, JobID: "job-1"})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Nil(t, apps[0].Rating)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ApplicationUpdates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newRepositoryWithDB(mock)
	at := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE job_applications a").
		WithArgs("app-1", "owner-1", "reviewed", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.SetApplicationStatus(context.Background(), "owner-1", "app-1", ApplicationReviewed, at))

	notes := "Call back Monday"
	mock.ExpectExec("UPDATE job_applications a").
		WithArgs("app-1", "owner-2", true, "Call back Monday", false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err = repo.UpdateApplicationDetails(context.Background(), "owner-2", "app-1", DetailsUpdate{Notes: &notes})
	assert.ErrorIs(t, err, ErrApplicationNotFound)

	mock.ExpectQuery("a.status = 'new'").
		WithArgs("owner-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	n, err := repo.NewApplicationCount(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, mock.ExpectationsWereMet())
}
