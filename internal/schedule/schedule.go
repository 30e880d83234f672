// Package schedule computes spaced-repetition review dates.
//
// Every offset is applied to the original start date, never to the result of
// a previous offset. Days are added first, then months (clamped to month end),
// then years (not clamped: Feb 29 + 1 year lands on Mar 1).
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical date format for stored and returned dates.
const DateLayout = time.DateOnly

// ErrInvalidDate is returned when a start date cannot be parsed.
var ErrInvalidDate = errors.New("invalid date")

// Offset is one step of the review schedule.
type Offset struct {
	Days   int
	Months int
	Years  int
}

func (o Offset) String() string {
	switch {
	case o.Days != 0:
		return fmt.Sprintf("+%dd", o.Days)
	case o.Months != 0:
		return fmt.Sprintf("+%dm", o.Months)
	case o.Years != 0:
		return fmt.Sprintf("+%dy", o.Years)
	}
	return "+0"
}

var offsets = [...]Offset{
	{Days: 7},
	{Months: 1},
	{Months: 3},
	{Months: 6},
	{Years: 1},
}

// Offsets returns a copy of the fixed review schedule.
func Offsets() []Offset {
	out := make([]Offset, len(offsets))
	copy(out, offsets[:])
	return out
}

// Len is the number of review dates produced for every start date.
const Len = len(offsets)

// ParseDate parses a YYYY-MM-DD date at UTC midnight. RFC 3339 timestamps are
// also accepted and truncated to their UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Midnight(t), nil
}

// FormatDate formats the UTC calendar date of t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Midnight returns UTC midnight of t's UTC calendar date.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Apply applies a single offset to start.
func Apply(start time.Time, o Offset) time.Time {
	d := Midnight(start).AddDate(0, 0, o.Days)

	day := d.Day()
	d = time.Date(d.Year(), d.Month()+time.Month(o.Months), day, 0, 0, 0, 0, time.UTC)
	if d.Day() < day {
		// Overflowed into the following month; day 0 is the last day of the
		// month we meant to land in.
		d = time.Date(d.Year(), d.Month(), 0, 0, 0, 0, 0, time.UTC)
	}

	return time.Date(d.Year()+o.Years, d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// Dates returns the review dates for start, in schedule order.
func Dates(start time.Time) []time.Time {
	out := make([]time.Time, 0, len(offsets))
	for _, o := range offsets {
		out = append(out, Apply(start, o))
	}
	return out
}

// Compute parses start and returns its review dates formatted as YYYY-MM-DD.
func Compute(start string) ([]string, error) {
	t, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	dates := Dates(t)
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = FormatDate(d)
	}
	return out, nil
}
