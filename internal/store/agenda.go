package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lazypower/revise/internal/agenda"
	"github.com/lazypower/revise/internal/metrics"
)

var _ agenda.Store = (*DB)(nil)

func observe(ctx context.Context, operation string) func() {
	start := time.Now()
	return func() {
		metrics.ObserveStore(ctx, "sqlite", operation, start)
	}
}

// ReadAll returns every item for userID in insertion order. An unknown user
// yields an empty slice.
func (db *DB) ReadAll(ctx context.Context, userID string) ([]agenda.Item, error) {
	defer observe(ctx, "read_all")()

	rows, err := db.QueryContext(ctx, `
		SELECT topic, review_date FROM agenda_items
		WHERE user_id = ? ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query agenda: %w", err)
	}
	defer rows.Close()

	items := []agenda.Item{}
	for rows.Next() {
		var it agenda.Item
		if err := rows.Scan(&it.Topic, &it.Date); err != nil {
			return nil, fmt.Errorf("scan agenda item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Append adds items to the end of the user's agenda. Duplicates are kept.
func (db *DB) Append(ctx context.Context, userID string, items []agenda.Item) error {
	defer observe(ctx, "append")()

	if len(items) == 0 {
		return nil
	}
	return db.inTx(ctx, func(tx *sql.Tx) error {
		return insertItems(ctx, tx, userID, items)
	})
}

// ClearAll removes every item for the user.
func (db *DB) ClearAll(ctx context.Context, userID string) error {
	defer observe(ctx, "clear_all")()

	if _, err := db.ExecContext(ctx, `DELETE FROM agenda_items WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear agenda: %w", err)
	}
	return nil
}

// Replace swaps the user's agenda for items in a single transaction.
func (db *DB) Replace(ctx context.Context, userID string, items []agenda.Item) error {
	defer observe(ctx, "replace")()

	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM agenda_items WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("clear agenda: %w", err)
		}
		return insertItems(ctx, tx, userID, items)
	})
}

// DueUsers returns the distinct users with at least one item dated day.
func (db *DB) DueUsers(ctx context.Context, day string) ([]string, error) {
	defer observe(ctx, "due_users")()

	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM agenda_items
		WHERE review_date = ? ORDER BY user_id
	`, day)
	if err != nil {
		return nil, fmt.Errorf("query due users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan due user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Healthy reports whether the database answers a ping.
func (db *DB) Healthy(ctx context.Context) bool {
	return db.PingContext(ctx) == nil
}

func (db *DB) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertItems(ctx context.Context, tx *sql.Tx, userID string, items []agenda.Item) error {
	if len(items) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO agenda_items (user_id, topic, review_date, created_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, userID, it.Topic, it.Date, now); err != nil {
			return fmt.Errorf("insert agenda item: %w", err)
		}
	}
	return nil
}
