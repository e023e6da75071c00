package utils

import (
	"fmt"
	"time"
)

// DayLayout is the canonical calendar-day format used across the service.
// All day arithmetic happens on these strings in a single fixed location so
// daylight-saving shifts and client timezones can never split or merge days.
const DayLayout = "2006-01-02"

// dayLocation pins calendar-day boundaries. UTC keeps string comparison,
// DATE columns and server clocks in agreement.
var dayLocation = time.UTC

// Today returns the current calendar day as YYYY-MM-DD.
func Today() string {
	return time.Now().In(dayLocation).Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD string into a time anchored at midnight.
func ParseDay(day string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, day, dayLocation)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", day, err)
	}
	return t, nil
}

// IsValidDay reports whether day is a well-formed YYYY-MM-DD string.
func IsValidDay(day string) bool {
	_, err := ParseDay(day)
	return err == nil
}

// FormatDay renders t as a calendar day in the fixed location.
func FormatDay(t time.Time) string {
	return t.In(dayLocation).Format(DayLayout)
}

// AddDays returns day shifted by n calendar days (n may be negative).
func AddDays(day string, n int) (string, error) {
	t, err := ParseDay(day)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DayLayout), nil
}

// MustAddDays is AddDays for callers that already validated the input.
func MustAddDays(day string, n int) string {
	out, err := AddDays(day, n)
	if err != nil {
		panic(err)
	}
	return out
}

// DaysBetween returns the whole calendar days from a to b (b - a).
// Negative when b precedes a.
func DaysBetween(a, b string) (int, error) {
	ta, err := ParseDay(a)
	if err != nil {
		return 0, err
	}
	tb, err := ParseDay(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}

// IsConsecutiveDay reports whether next is exactly the day after prev.
func IsConsecutiveDay(prev, next string) bool {
	d, err := DaysBetween(prev, next)
	return err == nil && d == 1
}

// DayIsOnOrAfter reports a >= b. YYYY-MM-DD strings order chronologically,
// so plain string comparison is correct for well-formed inputs.
func DayIsOnOrAfter(a, b string) bool {
	return a >= b
}

// MaxDay returns the later of two days.
func MaxDay(a, b string) string {
	if a >= b {
		return a
	}
	return b
}
