package communications

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logColumns = []string{
	"id", "client_id", "profile_id", "template_slug", "subject", "body",
	"recipient_email", "recipient_name", "status", "sent_at", "sent_by", "client_name",
}

func TestPostgresRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := newRepositoryWithDB(mock)
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	m := &Communication{
		ClientID: "client-1", ProfileID: "owner-1", Subject: "Hi", Body: "Hello",
		RecipientEmail: "maria@example.com", Status: StatusFailed, SentAt: at, SentBy: "owner-1",
	}
	mock.ExpectQuery("INSERT INTO client_communications").
		WithArgs("client-1", "owner-1", "", "Hi", "Hello", "maria@example.com", "", "failed", at, "owner-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("comm-1"))
	require.NoError(t, repo.Create(context.Background(), m))
	assert.Equal(t, "comm-1", m.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListPagesWithTotal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := newRepositoryWithDB(mock)
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`COUNT\(\*\) OVER \(\)`).
		WithArgs("owner-1", "", "general", pgxmock.AnyArg(), pgxmock.AnyArg(), 10, 10).
		WillReturnRows(pgxmock.NewRows(append(logColumns, "total")).
			AddRow("comm-3", "client-1", "owner-1", "general", "Hi", "Hello",
				"maria@example.com", "Maria Cruz", "sent", at, "owner-1", "Leo Cruz", 13))
	rows, total, err := repo.List(context.Background(), "owner-1", Filter{TemplateSlug: "general", Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 13, total)
	require.Len(t, rows, 1)
	assert.Equal(t, StatusSent, rows[0].Status)
	assert.Equal(t, "Leo Cruz", rows[0].ClientName)

	mock.ExpectQuery(`WHERE m.profile_id = \$1 AND m.client_id = \$2`).
		WithArgs("owner-1", "client-1").
		WillReturnRows(pgxmock.NewRows(logColumns))
	history, err := repo.ListForClient(context.Background(), "owner-1", "client-1")
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, mock.ExpectationsWereMet())
}
