package client

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"icarus/internal/entries"
)

// API is the subset of Client the Aggregator refreshes from.
type API interface {
	GetGoal(ctx context.Context) (string, error)
	TodaySum(ctx context.Context) (float64, error)
	TodayEntries(ctx context.Context) ([]Entry, error)
	PastEntries(ctx context.Context) ([]Entry, error)
}

// View is what a screen renders. Goal and TodaySum are display strings.
type View struct {
	Goal         string
	TodaySum     string
	TodayEntries []Entry
	PastEntries  []Entry
}

// Aggregator keeps View in sync with the server. Refresh failures are logged and never
// surfaced: the goal and lists keep their previous value, the sum falls back to "0".
type Aggregator struct {
	api    API
	loc    *time.Location
	logger *zap.Logger

	mu   sync.RWMutex
	view View
}

func NewAggregator(api API, loc *time.Location, logger *zap.Logger) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{
		api:    api,
		loc:    loc,
		logger: logger,
		view:   View{Goal: "0", TodaySum: "0", TodayEntries: []Entry{}, PastEntries: []Entry{}},
	}
}

// View returns a copy of the current state.
func (a *Aggregator) View() View {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v := a.view
	v.TodayEntries = cloneEntries(a.view.TodayEntries)
	v.PastEntries = cloneEntries(a.view.PastEntries)
	return v
}

// cloneEntries copies list; an empty list stays an empty, non-nil slice.
func cloneEntries(list []Entry) []Entry {
	out := make([]Entry, len(list))
	copy(out, list)
	return out
}

func (a *Aggregator) RefreshGoal(ctx context.Context) {
	goal, err := a.api.GetGoal(ctx)
	if err != nil {
		a.logger.Warn("refresh goal failed", zap.Error(err))
		return
	}
	a.mu.Lock()
	a.view.Goal = goal
	a.mu.Unlock()
}

func (a *Aggregator) RefreshTodaySum(ctx context.Context) {
	sum := "0"
	if v, err := a.api.TodaySum(ctx); err != nil {
		a.logger.Warn("refresh today sum failed", zap.Error(err))
	} else {
		sum = formatGrams(v)
	}
	a.mu.Lock()
	a.view.TodaySum = sum
	a.mu.Unlock()
}

func (a *Aggregator) RefreshTodayEntries(ctx context.Context) {
	list, err := a.api.TodayEntries(ctx)
	if err != nil {
		a.logger.Warn("refresh today entries failed", zap.Error(err))
		return
	}
	if list == nil {
		list = []Entry{}
	}
	a.mu.Lock()
	a.view.TodayEntries = list
	a.mu.Unlock()
}

func (a *Aggregator) RefreshPastEntries(ctx context.Context) {
	list, err := a.api.PastEntries(ctx)
	if err != nil {
		a.logger.Warn("refresh past entries failed", zap.Error(err))
		return
	}
	if list == nil {
		list = []Entry{}
	}
	a.mu.Lock()
	a.view.PastEntries = list
	a.mu.Unlock()
}

// RefreshAll loads every part of the view, as a screen does when it opens.
func (a *Aggregator) RefreshAll(ctx context.Context) {
	a.RefreshGoal(ctx)
	a.refreshEntries(ctx)
}

// OnEntryAdded re-fetches everything an added entry can change.
func (a *Aggregator) OnEntryAdded(ctx context.Context) {
	a.refreshEntries(ctx)
}

// OnEntryDeleted re-fetches everything a deleted entry can change.
func (a *Aggregator) OnEntryDeleted(ctx context.Context) {
	a.refreshEntries(ctx)
}

func (a *Aggregator) refreshEntries(ctx context.Context) {
	a.RefreshTodayEntries(ctx)
	a.RefreshTodaySum(ctx)
	a.RefreshPastEntries(ctx)
}

// ForSelectedDate filters the cached past entries to date (YYYY-MM-DD, local).
func (a *Aggregator) ForSelectedDate(date string) ([]Entry, float64) {
	a.mu.RLock()
	past := a.view.PastEntries
	a.mu.RUnlock()
	return RecomputeForSelectedDate(past, date, a.loc)
}

// RecomputeForSelectedDate keeps the entries whose local calendar date in loc is date and
// sums them; amounts that are not numbers count as 0.
func RecomputeForSelectedDate(list []Entry, date string, loc *time.Location) ([]Entry, float64) {
	filtered := []Entry{}
	var sum float64
	for _, e := range list {
		if entries.DateKey(e.CreatedAt, loc) != date {
			continue
		}
		filtered = append(filtered, e)
		sum += e.Amount()
	}
	return filtered, sum
}

// Amount reads ProteinAmount leniently.
func (e Entry) Amount() float64 {
	return entries.CoerceAmount(e.ProteinAmount)
}

func formatGrams(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
