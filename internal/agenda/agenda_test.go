package agenda

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a map-backed Store that counts mutating calls.
type memStore struct {
	data     map[string][]Item
	replaces int
	clears   int
	failRead error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]Item{}}
}

func (m *memStore) ReadAll(_ context.Context, userID string) ([]Item, error) {
	if m.failRead != nil {
		return nil, m.failRead
	}
	return slices.Clone(m.data[userID]), nil
}

func (m *memStore) Append(_ context.Context, userID string, items []Item) error {
	m.data[userID] = append(m.data[userID], items...)
	return nil
}

func (m *memStore) ClearAll(_ context.Context, userID string) error {
	m.clears++
	delete(m.data, userID)
	return nil
}

func (m *memStore) Replace(_ context.Context, userID string, items []Item) error {
	m.replaces++
	if len(items) == 0 {
		delete(m.data, userID)
		return nil
	}
	m.data[userID] = slices.Clone(items)
	return nil
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestFutureAgendaFiltersAndSorts(t *testing.T) {
	raw := []Item{
		{"c", "2026-12-01"},
		{"past", "2026-10-16"},
		{"today", "2026-10-17"},
		{"a", "2026-11-01"},
		{"long-past", "2025-01-01"},
		{"b", "2026-10-20"},
	}
	orig := slices.Clone(raw)

	got := FutureAgenda(raw, time.Date(2026, 10, 17, 22, 15, 0, 0, time.UTC))
	assert.Equal(t, []Item{
		{"today", "2026-10-17"},
		{"b", "2026-10-20"},
		{"a", "2026-11-01"},
		{"c", "2026-12-01"},
	}, got)
	assert.Equal(t, orig, raw, "input must not be mutated")
}

func TestFutureAgendaStableTies(t *testing.T) {
	raw := []Item{
		{"z", "2026-11-01"},
		{"y", "2026-10-30"},
		{"a", "2026-11-01"},
		{"m", "2026-11-01"},
	}
	got := FutureAgenda(raw, day("2026-10-17"))
	assert.Equal(t, []Item{
		{"y", "2026-10-30"},
		{"z", "2026-11-01"},
		{"a", "2026-11-01"},
		{"m", "2026-11-01"},
	}, got)
}

func TestFutureAgendaEmptyAndMalformed(t *testing.T) {
	now := day("2026-10-17")

	got := FutureAgenda(nil, now)
	require.NotNil(t, got)
	assert.Empty(t, got)

	got = FutureAgenda([]Item{{"bad", "NaN-NaN-NaN"}, {"ok", "2027-01-01"}, {"blank", ""}}, now)
	assert.Equal(t, []Item{{"ok", "2027-01-01"}}, got)
}

func TestFutureAgendaUsesUTCDay(t *testing.T) {
	// 2026-10-18 01:00 in UTC+5 is still 2026-10-17 in UTC.
	now := time.Date(2026, 10, 18, 1, 0, 0, 0, time.FixedZone("UTC+5", 5*3600))
	got := FutureAgenda([]Item{{"t", "2026-10-17"}}, now)
	assert.Len(t, got, 1)
}

func TestRemoveKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	a, b, c := Item{"A", "2026-11-01"}, Item{"B", "2026-11-02"}, Item{"C", "2026-11-03"}
	require.NoError(t, s.Append(ctx, "1", []Item{a, b, c}))

	n, err := Remove(ctx, s, "1", b)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := s.ReadAll(ctx, "1")
	assert.Equal(t, []Item{a, c}, got)
	assert.Equal(t, 1, s.replaces)
	assert.Zero(t, s.clears, "removal must not go through ClearAll")
}

func TestRemoveDropsAllDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	dup := Item{"A", "2026-11-01"}
	other := Item{"A", "2026-12-01"}
	require.NoError(t, s.Append(ctx, "1", []Item{dup, other, dup}))

	n, err := Remove(ctx, s, "1", dup)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, _ := s.ReadAll(ctx, "1")
	assert.Equal(t, []Item{other}, got)
}

func TestRemoveLastItemEmptiesAgenda(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	it := Item{"A", "2026-11-01"}
	require.NoError(t, s.Append(ctx, "1", []Item{it}))

	n, err := Remove(ctx, s, "1", it)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := s.ReadAll(ctx, "1")
	assert.Empty(t, got)
}

func TestRemoveNoMatchIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	require.NoError(t, s.Append(ctx, "1", []Item{{"A", "2026-11-01"}}))

	n, err := Remove(ctx, s, "1", Item{"A", "2026-11-02"})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, s.replaces)
}

func TestRemoveReadError(t *testing.T) {
	s := newMemStore()
	s.failRead = errors.New("disk on fire")

	_, err := Remove(context.Background(), s, "1", Item{"A", "2026-11-01"})
	assert.ErrorIs(t, err, s.failRead)
}

func TestDueOn(t *testing.T) {
	raw := []Item{{"a", "2026-10-17"}, {"b", "2026-10-18"}, {"c", "2026-10-17"}}
	assert.Equal(t, []Item{{"a", "2026-10-17"}, {"c", "2026-10-17"}}, DueOn(raw, day("2026-10-17")))
	assert.Empty(t, DueOn(raw, day("2026-10-19")))
}
