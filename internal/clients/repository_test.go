package clients

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

var clientRowColumns = []string{
	"id", "profile_id", "listing_id", "inquiry_id", "status",
	"child_first_name", "child_last_name", "parent_first_name", "parent_last_name",
	"parent_email", "parent_phone", "insurance_name", "notes", "created_at", "updated_at",
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestPostgresRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := newRepositoryWithDB(mock)
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	c := &Client{ProfileID: "owner-1", InquiryID: "inq-1", Status: StatusIntakePending, ParentFirstName: "Maria"}
	mock.ExpectQuery("INSERT INTO clients").
		WithArgs("owner-1", "", "inq-1", "intake_pending", "", "", "Maria", "", "", "", "", "").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("client-1", now, now))
	require.NoError(t, repo.Create(context.Background(), c))
	assert.Equal(t, "client-1", c.ID)
	assert.Equal(t, now, c.CreatedAt)

	mock.ExpectQuery("INSERT INTO clients").
		WithArgs(anyArgs(12)...).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	assert.ErrorIs(t, repo.Create(context.Background(), &Client{ProfileID: "owner-1", InquiryID: "inq-1"}), ErrAlreadyConverted)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetScopedToProfile(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := newRepositoryWithDB(mock)
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM clients\s+WHERE id = \$1 AND profile_id = \$2`).
		WithArgs("client-1", "owner-1").
		WillReturnRows(pgxmock.NewRows(clientRowColumns).AddRow(
			"client-1", "owner-1", "listing-1", "inq-1", "waitlist",
			"Leo", "Cruz", "Maria", "de la Cruz", "maria@example.com", "", "Aetna", "", now, now,
		))
	c, err := repo.Get(context.Background(), "owner-1", "client-1")
	require.NoError(t, err)
	assert.Equal(t, StatusWaitlist, c.Status)
	assert.Equal(t, "Leo Cruz", c.ChildName())
	assert.Equal(t, "Aetna", c.InsuranceName)

	mock.ExpectQuery(`FROM clients`).
		WithArgs("client-1", "other").
		WillReturnError(pgx.ErrNoRows)
	_, err = repo.Get(context.Background(), "other", "client-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CompleteAndDeleteTask(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := newRepositoryWithDB(mock)
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE client_tasks SET status = 'completed'").
		WithArgs("task-1", "owner-1", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.CompleteTask(context.Background(), "owner-1", "task-1", at))

	mock.ExpectExec("UPDATE client_tasks SET deleted_at").
		WithArgs("task-1", "other", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.DeleteTask(context.Background(), "other", "task-1", at), ErrTaskNotFound)

	mock.ExpectExec("UPDATE client_tasks SET status").
		WithArgs(anyArgs(3)...).
		WillReturnError(errors.New("connection reset"))
	err = repo.CompleteTask(context.Background(), "owner-1", "task-1", at)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "complete task")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ClaimOverdue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := newRepositoryWithDB(mock)
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour)

	mock.ExpectQuery(`UPDATE client_tasks SET overdue_notified_at = \$1`).
		WithArgs(now, 100).
		WillReturnRows(pgxmock.NewRows([]string{"id", "profile_id", "client_id", "title", "due_date"}).
			AddRow("task-1", "owner-1", "", "Send intake packet", &due))
	tasks, err := repo.ClaimOverdue(context.Background(), now, 100)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskPending, tasks[0].Status)
	assert.Equal(t, "Send intake packet", tasks[0].Title)
	require.NotNil(t, tasks[0].DueDate)
	assert.True(t, tasks[0].DueDate.Equal(due))

	require.NoError(t, mock.ExpectationsWereMet())
}
