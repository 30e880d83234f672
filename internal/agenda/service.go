package agenda

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lazypower/revise/internal/schedule"
)

var (
	ErrEmptyTopic     = errors.New("topic is required")
	ErrEmptyStartDate = errors.New("start date is required")
	ErrUnknownUser    = errors.New("unknown user")
)

// Service maps each user action onto one call against a Store.
type Service struct {
	store Store
	users []string
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used to decide what "today" is.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithUsers restricts the service to a fixed set of user IDs. With no users
// configured every ID is accepted.
func WithUsers(ids []string) Option {
	return func(s *Service) { s.users = slices.Clone(ids) }
}

// NewService creates a Service backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Users returns the configured user IDs.
func (s *Service) Users() []string {
	return slices.Clone(s.users)
}

// CheckUser returns ErrUnknownUser when a user set is configured and userID is
// not part of it.
func (s *Service) CheckUser(userID string) error {
	if userID == "" {
		return ErrUnknownUser
	}
	if len(s.users) == 0 || slices.Contains(s.users, userID) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownUser, userID)
}

// Today returns UTC midnight of the service clock.
func (s *Service) Today() time.Time {
	return schedule.Midnight(s.now())
}

// Plan computes the review items for topic without storing them.
func Plan(topic, start string) ([]Item, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	if strings.TrimSpace(start) == "" {
		return nil, ErrEmptyStartDate
	}
	dates, err := schedule.Compute(start)
	if err != nil {
		return nil, err
	}
	items := make([]Item, len(dates))
	for i, d := range dates {
		items[i] = Item{Topic: topic, Date: d}
	}
	return items, nil
}

// AddTopic schedules topic from start and appends the review items to the
// user's agenda. The stored items are returned.
func (s *Service) AddTopic(ctx context.Context, userID, topic, start string) ([]Item, error) {
	if err := s.CheckUser(userID); err != nil {
		return nil, err
	}
	items, err := Plan(topic, start)
	if err != nil {
		return nil, err
	}
	if err := s.store.Append(ctx, userID, items); err != nil {
		return nil, fmt.Errorf("append items: %w", err)
	}
	return items, nil
}

// All returns the user's raw agenda in insertion order.
func (s *Service) All(ctx context.Context, userID string) ([]Item, error) {
	if err := s.CheckUser(userID); err != nil {
		return nil, err
	}
	items, err := s.store.ReadAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read agenda: %w", err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// Agenda returns the user's upcoming items, earliest first.
func (s *Service) Agenda(ctx context.Context, userID string) ([]Item, error) {
	items, err := s.All(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FutureAgenda(items, s.now()), nil
}

// DueOn returns the user's items dated exactly day.
func (s *Service) DueOn(ctx context.Context, userID string, day time.Time) ([]Item, error) {
	items, err := s.All(ctx, userID)
	if err != nil {
		return nil, err
	}
	return DueOn(items, day), nil
}

// Remove deletes every item matching (topic, date) for the user.
func (s *Service) Remove(ctx context.Context, userID string, item Item) (int, error) {
	if err := s.CheckUser(userID); err != nil {
		return 0, err
	}
	item.Topic = strings.TrimSpace(item.Topic)
	return Remove(ctx, s.store, userID, item)
}

// Clear removes every item for the user.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := s.CheckUser(userID); err != nil {
		return err
	}
	if err := s.store.ClearAll(ctx, userID); err != nil {
		return fmt.Errorf("clear agenda: %w", err)
	}
	return nil
}
