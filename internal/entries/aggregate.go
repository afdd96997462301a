package entries

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"icarus/internal/apperror"
	"icarus/internal/models"
)

// FilterDay keeps the entries created during ref's calendar day, in storage order.
func FilterDay(all []models.Entry, ref time.Time) []models.Entry {
	start, end := DayWindow(ref)
	out := make([]models.Entry, 0, len(all))
	for _, e := range all {
		if !e.CreatedAt.Before(start) && !e.CreatedAt.After(end) {
			out = append(out, e)
		}
	}
	return out
}

// FilterUpTo keeps the entries created no later than the end of ref's calendar day.
func FilterUpTo(all []models.Entry, ref time.Time) []models.Entry {
	_, end := DayWindow(ref)
	out := make([]models.Entry, 0, len(all))
	for _, e := range all {
		if !e.CreatedAt.After(end) {
			out = append(out, e)
		}
	}
	return out
}

// FilterByDate keeps the entries whose local calendar date in loc equals date (YYYY-MM-DD).
func FilterByDate(all []models.Entry, date string, loc *time.Location) []models.Entry {
	out := make([]models.Entry, 0, len(all))
	for _, e := range all {
		if DateKey(e.CreatedAt, loc) == date {
			out = append(out, e)
		}
	}
	return out
}

func SumProtein(list []models.Entry) float64 {
	var sum float64
	for _, e := range list {
		sum += e.ProteinAmount
	}
	return sum
}

type DayTotal struct {
	Date         string  `json:"date"`
	TotalProtein float64 `json:"totalProtein"`
	Entries      int     `json:"entries"`
}

// DailyTotals buckets entries into the `days` calendar days ending at ref's day, oldest first.
// Days without entries are present with a zero total.
func DailyTotals(all []models.Entry, ref time.Time, days int) []DayTotal {
	loc := ref.Location()
	start, _ := DayWindow(ref)

	out := make([]DayTotal, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		key := start.AddDate(0, 0, i-days+1).Format(dateLayout)
		out[i] = DayTotal{Date: key}
		index[key] = i
	}
	for _, e := range all {
		if i, ok := index[DateKey(e.CreatedAt, loc)]; ok {
			out[i].TotalProtein += e.ProteinAmount
			out[i].Entries++
		}
	}
	return out
}

// ParseAmount is the strict parser used at the input boundary: the value must be a finite,
// non-negative number.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, apperror.ValidationFailed("proteinAmount", "protein amount is required")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperror.ValidationFailed("proteinAmount", "protein amount must be a number")
	}
	if v < 0 {
		return 0, apperror.ValidationFailed("proteinAmount", "protein amount must not be negative")
	}
	return v, nil
}

// CoerceAmount is the lenient reading used for display sums: anything unusable counts as 0.
func CoerceAmount(v any) float64 {
	var s string
	switch x := v.(type) {
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		s = strconv.Itoa(x)
	case json.Number:
		s = x.String()
	case string:
		s = x
	default:
		return 0
	}
	n, err := ParseAmount(s)
	if err != nil {
		return 0
	}
	return n
}

// ParseGoal accepts a non-negative integer, as text.
func ParseGoal(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperror.ValidationFailed("proteinGoal", "You must provide a protein goal.")
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return "", apperror.ValidationFailed("proteinGoal", "protein goal must be a whole number of grams")
	}
	return strconv.Itoa(n), nil
}
