package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimezone(t *testing.T) {
	loc, err := ParseTimezone("Asia/Taipei")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Taipei", loc.String())

	loc, err = ParseTimezone("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = ParseTimezone("Not/AZone")
	assert.Error(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestResolveOrDefault(t *testing.T) {
	assert.Equal(t, "Asia/Taipei", ResolveOrDefault("Asia/Taipei", "UTC").String())
	// Invalid stored zone silently falls back to the configured default.
	assert.Equal(t, "America/New_York", ResolveOrDefault("garbage", "America/New_York").String())
	// Both invalid: package default.
	assert.Equal(t, "Asia/Taipei", ResolveOrDefault("garbage", "also-garbage").String())
	assert.Equal(t, "Asia/Taipei", ResolveOrDefault("", "").String())
}

func TestLocalDayRange(t *testing.T) {
	taipei := ResolveOrDefault("Asia/Taipei", "")

	// 2026-03-10 01:30 UTC is 09:30 local in Taipei.
	now := time.Date(2026, 3, 10, 1, 30, 0, 0, time.UTC)
	start, end := LocalDayRange(now, taipei)

	// Local midnight 2026-03-10 is 2026-03-09 16:00 UTC.
	assert.Equal(t, time.Date(2026, 3, 9, 16, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC), end)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}

func TestLocalWeekRange(t *testing.T) {
	taipei := ResolveOrDefault("Asia/Taipei", "")
	now := time.Date(2026, 3, 10, 1, 30, 0, 0, time.UTC)

	start, end := LocalWeekRange(now, taipei)
	assert.Equal(t, 7*24*time.Hour, end.Sub(start))
	assert.Equal(t, time.Date(2026, 3, 9, 16, 0, 0, 0, time.UTC), start)
}

func TestFormatLocal(t *testing.T) {
	taipei := ResolveOrDefault("Asia/Taipei", "")
	ts := time.Date(2026, 9, 21, 7, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-09-21 15:00", FormatLocal(ts, taipei))
	assert.Equal(t, "2026-09-21 07:00", FormatLocal(ts, nil))
}
