package events

import (
	"context"
	"errors"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessedStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newProcessedStoreWithDB(mock)
	ctx := context.Background()

	mock.ExpectQuery("SELECT 1 FROM processed_events").WithArgs("stripe", "evt_1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(1))
	processed, err := store.AlreadyProcessed(ctx, "stripe", "evt_1")
	require.NoError(t, err)
	assert.True(t, processed)

	mock.ExpectQuery("SELECT 1 FROM processed_events").WithArgs("stripe", "evt_2").WillReturnError(pgx.ErrNoRows)
	processed, err = store.AlreadyProcessed(ctx, "stripe", "evt_2")
	require.NoError(t, err)
	assert.False(t, processed)

	mock.ExpectQuery("SELECT 1 FROM processed_events").WithArgs("stripe", "evt_3").WillReturnError(errors.New("conn reset"))
	_, err = store.AlreadyProcessed(ctx, "stripe", "evt_3")
	assert.ErrorContains(t, err, "events: check processed")

	mock.ExpectExec("INSERT INTO processed_events").WithArgs("stripe", "evt_2").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	ok, err := store.MarkProcessed(ctx, "stripe", "evt_2")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec("INSERT INTO processed_events").WithArgs("stripe", "evt_2").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	ok, err = store.MarkProcessed(ctx, "stripe", "evt_2")
	require.NoError(t, err)
	assert.False(t, ok)

	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM processed_events").WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))
	n, err := store.Purge(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	processed, _ := store.AlreadyProcessed(ctx, "stripe", "evt_1")
	assert.False(t, processed)

	ok, _ := store.MarkProcessed(ctx, "stripe", "evt_1")
	assert.True(t, ok)
	ok, _ = store.MarkProcessed(ctx, "stripe", "evt_1")
	assert.False(t, ok)

	processed, _ = store.AlreadyProcessed(ctx, "stripe", "evt_1")
	assert.True(t, processed)
	processed, _ = store.AlreadyProcessed(ctx, "other", "evt_1")
	assert.False(t, processed)

	n, _ := store.Purge(ctx, now.Add(time.Hour))
	assert.Equal(t, int64(1), n)
	processed, _ = store.AlreadyProcessed(ctx, "stripe", "evt_1")
	assert.False(t, processed)
}
