package entries

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icarus/internal/apperror"
)

func TestDayWindow(t *testing.T) {
	start, end := DayWindow(at(16, 13, 45))

	assert.Equal(t, time.Date(2026, time.October, 16, 0, 0, 0, 0, testLoc), start)
	assert.Equal(t, time.Date(2026, time.October, 16, 23, 59, 59, 999_999_999, testLoc), end)
}

func TestResolveReference(t *testing.T) {
	now := time.Date(2026, time.October, 16, 3, 0, 0, 0, time.UTC)

	t.Run("empty uses now in zone", func(t *testing.T) {
		got, err := ResolveReference("", testLoc, now)
		require.NoError(t, err)
		assert.Equal(t, "2026-10-15", got.Format("2006-01-02"))
		assert.Equal(t, testLoc, got.Location())
	})

	t.Run("date is midnight in zone", func(t *testing.T) {
		got, err := ResolveReference("2026-10-01", testLoc, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, time.October, 1, 0, 0, 0, 0, testLoc), got)
	})

	t.Run("rfc3339 keeps its offset", func(t *testing.T) {
		got, err := ResolveReference("2026-10-16T23:30:00+09:00", testLoc, now)
		require.NoError(t, err)
		start, _ := DayWindow(got)
		assert.Equal(t, "2026-10-16", start.Format("2006-01-02"))
		_, offset := got.Zone()
		assert.Equal(t, 9*60*60, offset)
	})

	t.Run("fractional seconds", func(t *testing.T) {
		_, err := ResolveReference("2026-10-16T12:00:00.000Z", testLoc, now)
		assert.NoError(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		for _, raw := range []string{"yesterday", "2026-13-01", "16/10/2026"} {
			_, err := ResolveReference(raw, testLoc, now)
			assert.True(t, errors.Is(err, apperror.ErrValidation), raw)
		}
	})
}

func TestResolveTimestamp(t *testing.T) {
	now := time.Date(2026, time.October, 16, 3, 0, 0, 0, time.UTC)

	got, err := ResolveTimestamp("", testLoc, now)
	require.NoError(t, err)
	assert.True(t, got.Equal(now))

	got, err = ResolveTimestamp("2026-10-10", testLoc, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 10, 12, 0, 0, 0, testLoc), got)

	got, err = ResolveTimestamp("2026-10-10T08:15:00-04:00", testLoc, now)
	require.NoError(t, err)
	assert.True(t, got.Equal(at(10, 8, 15)))
}
