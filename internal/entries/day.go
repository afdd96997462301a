package entries

import (
	"strings"
	"time"

	"icarus/internal/apperror"
)

const dateLayout = "2006-01-02"

// DayWindow returns the first and last instant of ref's calendar day in ref's location.
func DayWindow(ref time.Time) (start, end time.Time) {
	y, m, d := ref.Date()
	loc := ref.Location()
	start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	end = time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), loc)
	return start, end
}

// DateKey formats t as YYYY-MM-DD in loc.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// ResolveReference turns the optional client "time" value into the instant whose calendar day is "today".
//
//   - ""            now, in loc
//   - "YYYY-MM-DD"  midnight of that date in loc
//   - RFC 3339      that instant, kept in the offset it carries
func ResolveReference(raw string, loc *time.Location, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.In(loc), nil
	}
	if len(raw) == len(dateLayout) {
		d, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			return time.Time{}, apperror.ValidationFailed("time", "invalid time; expected YYYY-MM-DD or RFC 3339")
		}
		return d, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, apperror.ValidationFailed("time", "invalid time; expected YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}

// ResolveTimestamp turns the optional "time" of a new entry into its creation instant.
// A bare date lands at noon of that date in loc so it stays on the same day for nearby offsets.
func ResolveTimestamp(raw string, loc *time.Location, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now, nil
	}
	t, err := ResolveReference(raw, loc, now)
	if err != nil {
		return time.Time{}, err
	}
	if len(raw) == len(dateLayout) {
		return t.Add(12 * time.Hour), nil
	}
	return t, nil
}
