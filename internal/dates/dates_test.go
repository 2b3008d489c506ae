package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func TestWeekRangeMidweek(t *testing.T) {
	// 2025-06-11 is a Wednesday
	start, end := WeekRange(mustDate(t, "2025-06-11"))
	assert.Equal(t, "2025-06-09", start)
	assert.Equal(t, "2025-06-15", end)
}

func TestWeekRangeSundayIsWeekEnd(t *testing.T) {
	// 2025-06-15 is a Sunday: the window must end on that same date,
	// not start a new week
	start, end := WeekRange(mustDate(t, "2025-06-15"))
	assert.Equal(t, "2025-06-09", start)
	assert.Equal(t, "2025-06-15", end)
}

func TestWeekRangeMonday(t *testing.T) {
	start, end := WeekRange(mustDate(t, "2025-06-09"))
	assert.Equal(t, "2025-06-09", start)
	assert.Equal(t, "2025-06-15", end)
}

func TestWeekRangeAcrossMonthBoundary(t *testing.T) {
	// 2025-07-01 is a Tuesday, its week starts in June
	start, end := WeekRange(mustDate(t, "2025-07-01"))
	assert.Equal(t, "2025-06-30", start)
	assert.Equal(t, "2025-07-06", end)
}

func TestMonthRange31DayMonth(t *testing.T) {
	start, end := MonthRange(mustDate(t, "2025-07-19"))
	assert.Equal(t, "2025-07-01", start)
	assert.Equal(t, "2025-07-31", end)
}

func TestMonthRangeFebruaryNonLeap(t *testing.T) {
	start, end := MonthRange(mustDate(t, "2025-02-10"))
	assert.Equal(t, "2025-02-01", start)
	assert.Equal(t, "2025-02-28", end)
}

func TestMonthRangeFebruaryLeap(t *testing.T) {
	start, end := MonthRange(mustDate(t, "2024-02-10"))
	assert.Equal(t, "2024-02-01", start)
	assert.Equal(t, "2024-02-29", end)
}

func TestWeekdayToken(t *testing.T) {
	assert.Equal(t, "mon", WeekdayToken(mustDate(t, "2025-06-09")))
	assert.Equal(t, "wed", WeekdayToken(mustDate(t, "2025-06-11")))
	assert.Equal(t, "sun", WeekdayToken(mustDate(t, "2025-06-15")))
}

func TestWeekdayIndex(t *testing.T) {
	idx, ok := WeekdayIndex("mon")
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = WeekdayIndex("sun")
	require.True(t, ok)
	assert.Equal(t, 6, idx)

	_, ok = WeekdayIndex("monday")
	assert.False(t, ok)
}

func TestClockUsesReferenceTimezone(t *testing.T) {
	// 2025-06-12 01:30 UTC is still 2025-06-11 in Sao Paulo (UTC-3)
	at := time.Date(2025, 6, 12, 1, 30, 0, 0, time.UTC)
	clock, err := NewClockAt("America/Sao_Paulo", at)
	require.NoError(t, err)

	assert.Equal(t, "2025-06-11", clock.Today())
	assert.Equal(t, "wed", WeekdayToken(clock.Now()))
}

func TestNewClockRejectsUnknownTimezone(t *testing.T) {
	_, err := NewClock("Not/AZone")
	assert.Error(t, err)
}

func TestIsValidDate(t *testing.T) {
	assert.True(t, IsValidDate("2025-01-31"))
	assert.False(t, IsValidDate("2025-1-31"))
	assert.False(t, IsValidDate("2025-02-30"))
	assert.False(t, IsValidDate("not-a-date"))
}
