// Package reminder periodically reports the reviews due today.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lazypower/revise/internal/agenda"
	"github.com/lazypower/revise/internal/metrics"
	"github.com/lazypower/revise/internal/schedule"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DueLister finds users with reviews on a given YYYY-MM-DD day. Both store
// backends implement it.
type DueLister interface {
	DueUsers(ctx context.Context, day string) ([]string, error)
}

// Notifier is called once per user with that user's due items.
type Notifier func(ctx context.Context, userID string, due []agenda.Item) error

// Reminder runs a sweep on a cron schedule.
type Reminder struct {
	svc    *agenda.Service
	lister DueLister
	notify Notifier
	log    zerolog.Logger
	cron   *cron.Cron
	now    func() time.Time
}

// New creates a Reminder. A nil notify logs each due item.
func New(svc *agenda.Service, lister DueLister, notify Notifier, log zerolog.Logger) *Reminder {
	r := &Reminder{
		svc:    svc,
		lister: lister,
		log:    log.With().Str("component", "reminder").Logger(),
		now:    time.Now,
	}
	if notify == nil {
		notify = r.logDue
	}
	r.notify = notify
	return r
}

// Sweep collects the items due on day for every candidate user and hands them
// to the notifier. It returns the due items keyed by user. A user whose agenda
// cannot be read is logged and skipped; the joined read errors are returned
// after every other user has been handled.
func (r *Reminder) Sweep(ctx context.Context, day time.Time) (map[string][]agenda.Item, error) {
	users, err := r.candidates(ctx, day)
	if err != nil {
		return nil, err
	}

	out := map[string][]agenda.Item{}
	var errs []error
	for _, u := range users {
		due, err := r.svc.DueOn(ctx, u, day)
		if err != nil {
			r.log.Error().Stack().Err(err).Str("user", u).Msg("read due items failed")
			errs = append(errs, fmt.Errorf("due items for %s: %w", u, err))
			continue
		}
		if len(due) == 0 {
			continue
		}
		out[u] = due
		metrics.RemindersDue(len(due))
		if err := r.notify(ctx, u, due); err != nil {
			r.log.Error().Stack().Err(err).Str("user", u).Msg("notify failed")
		}
	}
	return out, errors.Join(errs...)
}

// candidates returns the configured users, or every user with something due
// when no fixed set is configured.
func (r *Reminder) candidates(ctx context.Context, day time.Time) ([]string, error) {
	if users := r.svc.Users(); len(users) > 0 {
		return users, nil
	}
	if r.lister == nil {
		return nil, nil
	}
	users, err := r.lister.DueUsers(ctx, schedule.FormatDate(day))
	if err != nil {
		return nil, fmt.Errorf("list due users: %w", err)
	}
	sort.Strings(users)
	return users, nil
}

// Start schedules Sweep on spec (5-field cron, UTC) until ctx is done.
func (r *Reminder) Start(ctx context.Context, spec string) error {
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(spec, func() {
		day := r.now()
		due, err := r.Sweep(ctx, day)
		if err != nil {
			r.log.Error().Stack().Err(err).Msg("reminder sweep failed")
		}
		r.log.Info().Str("day", schedule.FormatDate(day)).Int("users", len(due)).Msg("reminder sweep")
	})
	if err != nil {
		return fmt.Errorf("parse reminder cron %q: %w", spec, err)
	}
	r.cron = c
	c.Start()

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (r *Reminder) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

func (r *Reminder) logDue(_ context.Context, userID string, due []agenda.Item) error {
	for _, it := range due {
		r.log.Info().Str("user", userID).Str("topic", it.Topic).Str("date", it.Date).Msg("review due")
	}
	return nil
}
