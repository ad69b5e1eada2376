package timeclock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timeclock-engine/timeclock"
)

// =============================================================================
// CLOCK TIME PARSING
// =============================================================================

func TestParseClockTime(t *testing.T) {
	c, err := timeclock.ParseClockTime("08:30")
	require.NoError(t, err)
	assert.Equal(t, 8, c.Hour())
	assert.Equal(t, 30, c.Minute())
	assert.Equal(t, "08:30", c.String())
}

func TestParseClockTime_Invalid(t *testing.T) {
	for _, s := range []string{"24:00", "12:60", "banana", "-1:00", ""} {
		_, err := timeclock.ParseClockTime(s)
		assert.Error(t, err, "input %q", s)
		assert.True(t, timeclock.IsClientError(err), "input %q", s)
	}
}

func TestClockTime_MinutesUntil(t *testing.T) {
	assert.Equal(t, 90, timeclock.NewClockTime(8, 0).MinutesUntil(timeclock.NewClockTime(9, 30)))
	assert.Equal(t, -60, timeclock.NewClockTime(10, 0).MinutesUntil(timeclock.NewClockTime(9, 0)))
}

// =============================================================================
// NIGHT WINDOW
// =============================================================================

func TestNightWindow_ContainsWrapsMidnight(t *testing.T) {
	w := timeclock.DefaultNightWindow() // 22:00-05:00

	assert.True(t, w.Contains(timeclock.NewClockTime(23, 0)))
	assert.True(t, w.Contains(timeclock.NewClockTime(0, 30)))
	assert.True(t, w.Contains(timeclock.NewClockTime(4, 59)))
	assert.False(t, w.Contains(timeclock.NewClockTime(5, 0)))
	assert.False(t, w.Contains(timeclock.NewClockTime(12, 0)))
	assert.True(t, w.Contains(timeclock.NewClockTime(22, 0)))
	assert.False(t, w.Contains(timeclock.NewClockTime(21, 59)))
}

func TestNightWindow_OverlapMinutes(t *testing.T) {
	w := timeclock.DefaultNightWindow()

	cases := []struct {
		name string
		from timeclock.ClockTime
		to   timeclock.ClockTime
		want int
	}{
		{"entirely before the window", timeclock.NewClockTime(9, 0), timeclock.NewClockTime(17, 0), 0},
		{"ends at window start", timeclock.NewClockTime(20, 0), timeclock.NewClockTime(22, 0), 0},
		{"straddles window start", timeclock.NewClockTime(21, 0), timeclock.NewClockTime(23, 0), 60},
		{"entirely inside the evening half", timeclock.NewClockTime(22, 30), timeclock.NewClockTime(23, 30), 60},
		{"inside the morning half", timeclock.NewClockTime(1, 0), timeclock.NewClockTime(3, 0), 120},
		{"straddles window end", timeclock.NewClockTime(4, 0), timeclock.NewClockTime(6, 0), 60},
		{"empty interval", timeclock.NewClockTime(23, 0), timeclock.NewClockTime(23, 0), 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, w.OverlapMinutes(tc.from, tc.to))
		})
	}
}

func TestNightWindow_NonWrappingWindow(t *testing.T) {
	// GIVEN: A window entirely within one day
	w := timeclock.NightWindow{
		Start: timeclock.NewClockTime(20, 0),
		End:   timeclock.NewClockTime(23, 0),
	}

	assert.Equal(t, 60, w.OverlapMinutes(timeclock.NewClockTime(19, 0), timeclock.NewClockTime(21, 0)))
	assert.Equal(t, 0, w.OverlapMinutes(timeclock.NewClockTime(23, 0), timeclock.NewClockTime(23, 59)))
}

// =============================================================================
// DATES AND PERIODS
// =============================================================================

func TestParseDate(t *testing.T) {
	d, err := timeclock.ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 10, d.Day())

	_, err = timeclock.ParseDate("10/03/2025")
	assert.Error(t, err)
}

func TestDate_IsWeekend(t *testing.T) {
	assert.False(t, timeclock.NewDate(2025, time.March, 10).IsWeekend()) // Monday
	assert.True(t, timeclock.NewDate(2025, time.March, 15).IsWeekend()) // Saturday
	assert.True(t, timeclock.NewDate(2025, time.March, 16).IsWeekend()) // Sunday
}

func TestMonthOf(t *testing.T) {
	p := timeclock.MonthOf(timeclock.NewDate(2025, time.February, 14))

	assert.Equal(t, "2025-02-01", p.Start.String())
	assert.Equal(t, "2025-02-28", p.End.String())
	assert.True(t, p.Contains(timeclock.NewDate(2025, time.February, 28)))
	assert.False(t, p.Contains(timeclock.NewDate(2025, time.March, 1)))
}

func TestMonthOf_LeapFebruary(t *testing.T) {
	p := timeclock.MonthOf(timeclock.NewDate(2024, time.February, 1))
	assert.Equal(t, "2024-02-29", p.End.String())
}

func TestNewPeriod_EndBeforeStartRejected(t *testing.T) {
	_, err := timeclock.NewPeriod(
		timeclock.NewDate(2025, time.March, 10),
		timeclock.NewDate(2025, time.March, 1))
	assert.Error(t, err)
	assert.True(t, timeclock.IsClientError(err))
}
