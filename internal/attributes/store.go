package attributes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists attribute rows keyed by (listing_id, attribute_key).
type Store interface {
	Get(ctx context.Context, listingID string) (Attributes, error)
	Upsert(ctx context.Context, listingID string, values map[Key]json.RawMessage) error
	Delete(ctx context.Context, listingID string, keys []Key) error
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore writes to listing_attribute_values.
type PostgresStore struct {
	db txBeginner
}

// NewPostgresStore creates a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("attributes: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newStoreWithDB(db txBeginner) *PostgresStore {
	if db == nil {
		panic("attributes: db required")
	}
	return &PostgresStore{db: db}
}

// Get collapses every row for the listing into one map.
func (s *PostgresStore) Get(ctx context.Context, listingID string) (Attributes, error) {
	rows, err := s.db.Query(ctx, `
		SELECT attribute_key, value
		FROM listing_attribute_values
		WHERE listing_id = $1
	`, listingID)
	if err != nil {
		return nil, fmt.Errorf("attributes: query: %w", err)
	}
	defer rows.Close()

	out := Attributes{}
	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("attributes: scan: %w", err)
		}
		if k, ok := ParseKey(key); ok {
			out[k] = json.RawMessage(value)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("attributes: rows: %w", err)
	}
	return out, nil
}

// Upsert writes every key in one transaction. Keys are written in sorted
// order so concurrent writers lock rows in the same sequence.
func (s *PostgresStore) Upsert(ctx context.Context, listingID string, values map[Key]json.RawMessage) error {
	if len(values) == 0 {
		return nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("attributes: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, key := range sortedKeys(values) {
		if _, err := tx.Exec(ctx, `
			INSERT INTO listing_attribute_values (listing_id, attribute_key, value, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (listing_id, attribute_key)
			DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		`, listingID, string(key), []byte(values[key])); err != nil {
			return fmt.Errorf("attributes: upsert %s: %w", key, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("attributes: commit: %w", err)
	}
	return nil
}

// Delete removes the given keys, or every key when none are named.
func (s *PostgresStore) Delete(ctx context.Context, listingID string, keys []Key) error {
	var err error
	if len(keys) == 0 {
		_, err = s.db.Exec(ctx, `DELETE FROM listing_attribute_values WHERE listing_id = $1`, listingID)
	} else {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = string(k)
		}
		_, err = s.db.Exec(ctx, `
			DELETE FROM listing_attribute_values
			WHERE listing_id = $1 AND attribute_key = ANY($2)
		`, listingID, names)
	}
	if err != nil {
		return fmt.Errorf("attributes: delete: %w", err)
	}
	return nil
}
