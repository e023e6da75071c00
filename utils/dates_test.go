package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDayRoundTrip(t *testing.T) {
	day, err := ParseDay("2026-08-29")
	assert.NoError(t, err)
	assert.Equal(t, "2026-08-29", FormatDay(day))
}

func TestIsValidDay(t *testing.T) {
	assert.True(t, IsValidDay("2026-01-31"))
	assert.False(t, IsValidDay("2026-02-30"))
	assert.False(t, IsValidDay("2026-1-5"))
	assert.False(t, IsValidDay("20260105"))
	assert.False(t, IsValidDay(""))
}

func TestAddDaysCrossesMonthAndYear(t *testing.T) {
	got, err := AddDays("2026-12-30", 3)
	assert.NoError(t, err)
	assert.Equal(t, "2027-01-02", got)

	got, err = AddDays("2026-03-01", -1)
	assert.NoError(t, err)
	assert.Equal(t, "2026-02-28", got)

	_, err = AddDays("junk", 1)
	assert.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	d, err := DaysBetween("2026-08-01", "2026-08-08")
	assert.NoError(t, err)
	assert.Equal(t, 7, d)

	d, err = DaysBetween("2026-08-08", "2026-08-01")
	assert.NoError(t, err)
	assert.Equal(t, -7, d)

	// Day arithmetic is pinned to a fixed location, so DST transitions in
	// any wall-clock timezone cannot produce off-by-one gaps.
	d, err = DaysBetween("2026-03-28", "2026-03-30")
	assert.NoError(t, err)
	assert.Equal(t, 2, d)
}

func TestIsConsecutiveDay(t *testing.T) {
	assert.True(t, IsConsecutiveDay("2026-08-31", "2026-09-01"))
	assert.False(t, IsConsecutiveDay("2026-08-30", "2026-09-01"))
	assert.False(t, IsConsecutiveDay("2026-09-01", "2026-08-31"))
	assert.False(t, IsConsecutiveDay("bad", "2026-09-01"))
}

func TestMaxDay(t *testing.T) {
	assert.Equal(t, "2026-09-01", MaxDay("2026-08-31", "2026-09-01"))
	assert.Equal(t, "2026-09-01", MaxDay("2026-09-01", "2026-08-31"))
}

func TestMustAddDaysPanicsOnBadInput(t *testing.T) {
	assert.Panics(t, func() { MustAddDays("junk", 1) })
}
