// Package timezone provides timezone utilities for the companion server.
//
// All reminder instants are persisted in UTC; this package is the single
// place where user-local rendering, parsing, and day/week range math
// happen.
package timezone

import (
	"fmt"
	"time"
)

// DefaultTimezone is the zone substituted when a user has no stored
// timezone or an invalid one.
const DefaultTimezone = "Asia/Taipei"

// ParseTimezone parses an IANA timezone identifier (e.g., "Asia/Taipei").
// If the timezone is invalid, returns UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	return loc, nil
}

// ResolveOrDefault resolves a stored timezone string, silently falling
// back to the given default (and finally to DefaultTimezone) when the
// value is empty or invalid. A user's request is never rejected over a
// bad timezone.
func ResolveOrDefault(tz string, defaultTz string) *time.Location {
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	if defaultTz != "" {
		if loc, err := time.LoadLocation(defaultTz); err == nil {
			return loc
		}
	}
	loc, _ := time.LoadLocation(DefaultTimezone)
	return loc
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	if tz == "" || tz == "UTC" {
		return true
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// StartOfDay returns the start of the day (00:00:00) in the given timezone.
func StartOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = time.UTC
	}
	lt := t.In(tz)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, tz)
}

// LocalDayRange returns the UTC bounds [start, end) of the local calendar
// day containing t in the given timezone.
func LocalDayRange(t time.Time, tz *time.Location) (time.Time, time.Time) {
	start := StartOfDay(t, tz)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// LocalWeekRange returns the UTC bounds [start, end) of the 7-day window
// beginning at the local midnight of the day containing t.
func LocalWeekRange(t time.Time, tz *time.Location) (time.Time, time.Time) {
	start := StartOfDay(t, tz)
	return start.UTC(), start.AddDate(0, 0, 7).UTC()
}

// FormatLocal renders a UTC instant as "2006-01-02 15:04" in the user's
// timezone. This is the only display format reminders use.
func FormatLocal(t time.Time, tz *time.Location) string {
	if tz == nil {
		tz = time.UTC
	}
	return t.In(tz).Format("2006-01-02 15:04")
}

// NowInTimezone returns the current time in the given timezone.
func NowInTimezone(tz *time.Location) time.Time {
	if tz == nil {
		tz = time.UTC
	}
	return time.Now().In(tz)
}
