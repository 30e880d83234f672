// Package agenda holds per-user review agendas: the item type, the storage
// contract, and the filtered views handed to the presentation layers.
package agenda

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/lazypower/revise/internal/schedule"
)

// Item is one scheduled review of a topic. Two items with the same topic and
// date are indistinguishable.
type Item struct {
	Topic string `json:"topic"`
	Date  string `json:"date"`
}

// Store persists insertion-ordered item sequences keyed by user ID.
// ReadAll returns an empty result for an unknown user, never an error.
type Store interface {
	ReadAll(ctx context.Context, userID string) ([]Item, error)
	Append(ctx context.Context, userID string, items []Item) error
	ClearAll(ctx context.Context, userID string) error
	// Replace swaps the user's whole sequence in one atomic write.
	Replace(ctx context.Context, userID string, items []Item) error
}

// Remove deletes every item matching target on (topic, date) and writes the
// retained items back with a single Replace. It returns how many were removed.
func Remove(ctx context.Context, s Store, userID string, target Item) (int, error) {
	items, err := s.ReadAll(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("read agenda: %w", err)
	}

	kept := make([]Item, 0, len(items))
	for _, it := range items {
		if it == target {
			continue
		}
		kept = append(kept, it)
	}
	removed := len(items) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if err := s.Replace(ctx, userID, kept); err != nil {
		return 0, fmt.Errorf("replace agenda: %w", err)
	}
	return removed, nil
}

// FutureAgenda returns the items dated on or after now's UTC calendar day,
// earliest first. Equal dates keep their input order. Items whose date does
// not parse are dropped. raw is not modified.
func FutureAgenda(raw []Item, now time.Time) []Item {
	today := schedule.Midnight(now)

	type dated struct {
		item Item
		at   time.Time
	}
	keep := make([]dated, 0, len(raw))
	for _, it := range raw {
		at, err := time.Parse(schedule.DateLayout, it.Date)
		if err != nil || at.Before(today) {
			continue
		}
		keep = append(keep, dated{it, at})
	}

	slices.SortStableFunc(keep, func(a, b dated) int {
		return a.at.Compare(b.at)
	})

	out := make([]Item, len(keep))
	for i, d := range keep {
		out[i] = d.item
	}
	return out
}

// DueOn returns the items dated exactly on day's UTC calendar date, in input
// order.
func DueOn(raw []Item, day time.Time) []Item {
	want := schedule.FormatDate(day)
	var out []Item
	for _, it := range raw {
		if it.Date == want {
			out = append(out, it)
		}
	}
	return out
}
