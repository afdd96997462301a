// Package entries answers "what did this user eat today / ever" and "how much protein today".
//
// The Service loads a user's entry collection from the Store and applies the pure
// day-window filters in aggregate.go. "Today" is always an explicit reference instant
// resolved from the client-supplied time (see ResolveReference).
package entries

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"icarus/internal/apperror"
	"icarus/internal/models"
)

const (
	DefaultHistoryDays = 7
	MaxHistoryDays     = 31
	maxImportEntries   = 500
)

type Store interface {
	GetUser(ctx context.Context, id int) (*models.User, error)
	UpdateGoal(ctx context.Context, id int, goal string) (*models.User, error)
	ListEntries(ctx context.Context, userID int) ([]models.Entry, error)
	InsertEntries(ctx context.Context, list []models.Entry) error
	DeleteEntry(ctx context.Context, userID int, entryID string) (bool, error)
}

// SumCache memoizes today's sum per user and day. Invalidate is called after every mutation.
// Get returns the cache version it read; Set must be given that version so a sum computed
// across a concurrent mutation is never served.
type SumCache interface {
	Get(ctx context.Context, userID int, dayStart time.Time) (sum float64, ver int64, ok bool, err error)
	Set(ctx context.Context, userID int, ver int64, dayStart time.Time, sum float64) error
	Invalidate(ctx context.Context, userID int) error
}

type Service struct {
	store  Store
	cache  SumCache
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Service)

func WithCache(c SumCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, loc *time.Location, logger *zap.Logger, opts ...Option) *Service {
	if loc == nil {
		loc = time.Local
	}
	s := &Service{
		store:  store,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddInput is a new entry as received from a client; all fields are raw text.
type AddInput struct {
	MealName      string
	ProteinAmount string
	Time          string
}

// Reference resolves the client "time" parameter against the service clock and zone.
func (s *Service) Reference(raw string) (time.Time, error) {
	return ResolveReference(raw, s.loc, s.now())
}

func (s *Service) ListToday(ctx context.Context, userID int, ref time.Time) ([]models.Entry, error) {
	all, err := s.store.ListEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("entries: list today for user %d: %w", userID, err)
	}
	return FilterDay(all, ref), nil
}

func (s *Service) SumToday(ctx context.Context, userID int, ref time.Time) (float64, error) {
	dayStart, _ := DayWindow(ref)
	var ver int64
	useCache := s.cache != nil
	if useCache {
		sum, v, ok, err := s.cache.Get(ctx, userID, dayStart)
		switch {
		case err != nil:
			s.logger.Warn("sum cache read failed", zap.Int("user_id", userID), zap.Error(err))
			useCache = false
		case ok:
			return sum, nil
		}
		ver = v
	}

	today, err := s.ListToday(ctx, userID, ref)
	if err != nil {
		return 0, err
	}
	sum := SumProtein(today)

	if useCache {
		if err := s.cache.Set(ctx, userID, ver, dayStart, sum); err != nil {
			s.logger.Warn("sum cache write failed", zap.Int("user_id", userID), zap.Error(err))
		}
	}
	return sum, nil
}

func (s *Service) ListAllUpTo(ctx context.Context, userID int, ref time.Time) ([]models.Entry, error) {
	all, err := s.store.ListEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("entries: list past for user %d: %w", userID, err)
	}
	return FilterUpTo(all, ref), nil
}

// DailyTotals returns one total per local day for the days ending at ref, oldest first.
func (s *Service) DailyTotals(ctx context.Context, userID int, ref time.Time, days int) ([]DayTotal, error) {
	if days < 1 || days > MaxHistoryDays {
		return nil, apperror.ValidationFailed("days", fmt.Sprintf("days must be between 1 and %d", MaxHistoryDays))
	}
	all, err := s.store.ListEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("entries: daily totals for user %d: %w", userID, err)
	}
	return DailyTotals(all, ref, days), nil
}

func (s *Service) Add(ctx context.Context, userID int, in AddInput) (*models.Entry, error) {
	e, err := s.build(userID, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertEntries(ctx, []models.Entry{*e}); err != nil {
		return nil, fmt.Errorf("entries: add for user %d: %w", userID, err)
	}
	s.invalidate(ctx, userID)
	return e, nil
}

// Import validates every item before inserting any, then stores them in one transaction.
func (s *Service) Import(ctx context.Context, userID int, items []AddInput) ([]models.Entry, error) {
	if len(items) == 0 {
		return nil, apperror.ValidationFailed("entries", "no entries provided")
	}
	if len(items) > maxImportEntries {
		return nil, apperror.ValidationFailed("entries", fmt.Sprintf("at most %d entries per import", maxImportEntries))
	}
	list := make([]models.Entry, 0, len(items))
	for i, in := range items {
		e, err := s.build(userID, in)
		if err != nil {
			return nil, apperror.ValidationFailed("entries", fmt.Sprintf("entry %d: %s", i, err.Error()))
		}
		list = append(list, *e)
	}
	if err := s.store.InsertEntries(ctx, list); err != nil {
		return nil, fmt.Errorf("entries: import for user %d: %w", userID, err)
	}
	s.invalidate(ctx, userID)
	return list, nil
}

func (s *Service) Delete(ctx context.Context, userID int, entryID string) error {
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return apperror.ValidationFailed("entryId", "Missing information")
	}
	deleted, err := s.store.DeleteEntry(ctx, userID, entryID)
	if err != nil {
		return fmt.Errorf("entries: delete %s for user %d: %w", entryID, userID, err)
	}
	if !deleted {
		return apperror.NotFound("entry", entryID)
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) GetGoal(ctx context.Context, userID int) (string, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("entries: get goal for user %d: %w", userID, err)
	}
	return u.ProteinGoal, nil
}

func (s *Service) SetGoal(ctx context.Context, userID int, goal string) (*models.User, error) {
	normalized, err := ParseGoal(goal)
	if err != nil {
		return nil, err
	}
	u, err := s.store.UpdateGoal(ctx, userID, normalized)
	if err != nil {
		return nil, fmt.Errorf("entries: set goal for user %d: %w", userID, err)
	}
	return u, nil
}

func (s *Service) build(userID int, in AddInput) (*models.Entry, error) {
	meal := strings.TrimSpace(in.MealName)
	if meal == "" {
		return nil, apperror.ValidationFailed("mealName", "meal name is required")
	}
	amount, err := ParseAmount(in.ProteinAmount)
	if err != nil {
		return nil, err
	}
	created, err := ResolveTimestamp(in.Time, s.loc, s.now())
	if err != nil {
		return nil, err
	}
	return &models.Entry{
		ID:            uuid.NewString(),
		UserID:        userID,
		MealName:      meal,
		ProteinAmount: amount,
		CreatedAt:     created,
	}, nil
}

func (s *Service) invalidate(ctx context.Context, userID int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("sum cache invalidation failed", zap.Int("user_id", userID), zap.Error(err))
	}
}
