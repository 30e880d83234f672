// Package pgstore is a PostgreSQL agenda store for deployments that share
// one database between several revise servers.
package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lazypower/revise/internal/agenda"
	"github.com/lazypower/revise/internal/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS agenda_items (
    id          BIGSERIAL PRIMARY KEY,
    user_id     TEXT NOT NULL,
    topic       TEXT NOT NULL CHECK (length(btrim(topic)) > 0),
    review_date TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_agenda_user ON agenda_items(user_id, id);
CREATE INDEX IF NOT EXISTS idx_agenda_date ON agenda_items(review_date, user_id);
`

// Store implements agenda.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ agenda.Store = (*Store)(nil)

// Open connects to dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func observe(ctx context.Context, operation string) func() {
	start := time.Now()
	return func() {
		metrics.ObserveStore(ctx, "postgres", operation, start)
	}
}

func (s *Store) ReadAll(ctx context.Context, userID string) ([]agenda.Item, error) {
	defer observe(ctx, "read_all")()

	rows, err := s.pool.Query(ctx, `
		SELECT topic, review_date FROM agenda_items
		WHERE user_id = $1 ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query agenda: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (agenda.Item, error) {
		var it agenda.Item
		err := row.Scan(&it.Topic, &it.Date)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan agenda: %w", err)
	}
	if items == nil {
		items = []agenda.Item{}
	}
	return items, nil
}

func (s *Store) Append(ctx context.Context, userID string, items []agenda.Item) error {
	defer observe(ctx, "append")()

	if len(items) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return insertItems(ctx, tx, userID, items)
	})
}

func (s *Store) ClearAll(ctx context.Context, userID string) error {
	defer observe(ctx, "clear_all")()

	if _, err := s.pool.Exec(ctx, `DELETE FROM agenda_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear agenda: %w", err)
	}
	return nil
}

func (s *Store) Replace(ctx context.Context, userID string, items []agenda.Item) error {
	defer observe(ctx, "replace")()

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM agenda_items WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("clear agenda: %w", err)
		}
		return insertItems(ctx, tx, userID, items)
	})
}

// DueUsers returns the distinct users with at least one item dated day.
func (s *Store) DueUsers(ctx context.Context, day string) ([]string, error) {
	defer observe(ctx, "due_users")()

	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT user_id FROM agenda_items
		WHERE review_date = $1 ORDER BY user_id
	`, day)
	if err != nil {
		return nil, fmt.Errorf("query due users: %w", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan due users: %w", err)
	}
	return users, nil
}

// Healthy reports whether the pool answers a ping.
func (s *Store) Healthy(ctx context.Context) bool {
	return s.pool.Ping(ctx) == nil
}

func insertItems(ctx context.Context, tx pgx.Tx, userID string, items []agenda.Item) error {
	if len(items) == 0 {
		return nil
	}
	// Rows are inserted one by one so BIGSERIAL ids follow slice order.
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`INSERT INTO agenda_items (user_id, topic, review_date) VALUES ($1, $2, $3)`,
			userID, it.Topic, it.Date)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert agenda items: %w", err)
	}
	return nil
}
