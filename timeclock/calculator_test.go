package timeclock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timeclock-engine/timeclock"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func clock(h, m int) timeclock.ClockTime { return timeclock.NewClockTime(h, m) }

func clockPtr(h, m int) *timeclock.ClockTime {
	c := clock(h, m)
	return &c
}

// monday is an ordinary weekday, saturday a weekend day.
var (
	monday   = timeclock.NewDate(2025, time.March, 10)
	saturday = timeclock.NewDate(2025, time.March, 15)
)

func alice() timeclock.CollaboratorInfo {
	return timeclock.CollaboratorInfo{
		ID:              "alice",
		Name:            "Alice",
		Department:      "logistics",
		ContractedHours: timeclock.HoursFromInt(8),
		ScheduledEntry:  clock(9, 0),
	}
}

func punch(entry timeclock.ClockTime, exit *timeclock.ClockTime) timeclock.PunchRecord {
	return timeclock.PunchRecord{
		ID:             "p-1",
		CollaboratorID: "alice",
		Date:           monday,
		Entry:          entry,
		Exit:           exit,
	}
}

func night() timeclock.NightWindow { return timeclock.DefaultNightWindow() }

// =============================================================================
// WORKED HOURS
// =============================================================================

func TestCompute_RegularDayNoOvertime(t *testing.T) {
	// GIVEN: 09:00-18:00 with a one-hour lunch break, 8h contracted
	p := punch(clock(9, 0), clockPtr(18, 0))
	p.BreakStart = clockPtr(12, 0)
	p.BreakEnd = clockPtr(13, 0)

	// WHEN: Computing the day
	calc, err := timeclock.Compute(p, alice(), false, night())
	require.NoError(t, err)

	// THEN: Exactly the contracted load, no overtime, no lateness
	assert.True(t, calc.WorkedHours.Equal(timeclock.HoursFromInt(8)), "worked %s", calc.WorkedHours)
	assert.True(t, calc.Overtime.Total.IsZero())
	assert.Equal(t, 0, calc.LatenessMinutes)
	assert.False(t, calc.Absent)
}

func TestCompute_BreakDeductedFromWorkedHours(t *testing.T) {
	// GIVEN: A 10-hour span with a 90-minute break
	p := punch(clock(8, 0), clockPtr(18, 0))
	p.BreakStart = clockPtr(12, 0)
	p.BreakEnd = clockPtr(13, 30)

	calc, err := timeclock.Compute(p, alice(), false, night())
	require.NoError(t, err)

	// THEN: worked = span - break = 8.5h
	assert.True(t, calc.WorkedHours.Equal(timeclock.HoursOf(8.5)), "worked %s", calc.WorkedHours)
}

// =============================================================================
// OVERTIME CLASSIFICATION
// =============================================================================

func TestCompute_DiurnalOvertime(t *testing.T) {
	// GIVEN: 08:00-18:00 with a one-hour break, 8h contracted.
	// The one-hour overtime tail runs 17:00-18:00, outside the night window.
	p := punch(clock(8, 0), clockPtr(18, 0))
	p.BreakStart = clockPtr(12, 0)
	p.BreakEnd = clockPtr(13, 0)

	calc, err := timeclock.Compute(p, alice(), false, night())
	require.NoError(t, err)

	// THEN: One hour of overtime, all diurnal
	assert.True(t, calc.Overtime.Total.Equal(timeclock.HoursFromInt(1)))
	assert.True(t, calc.Overtime.Diurnal.Equal(timeclock.HoursFromInt(1)))
	assert.True(t, calc.Overtime.Nocturnal.IsZero())
	assert.True(t, calc.Overtime.Holiday.IsZero())
}

func TestCompute_NocturnalOvertime(t *testing.T) {
	// GIVEN: 13:00-23:00 with a one-hour break, 8h contracted.
	// The overtime tail runs 22:00-23:00, inside the 22:00-05:00 window.
	p := punch(clock(13, 0), clockPtr(23, 0))
	p.BreakStart = clockPtr(18, 0)
	p.BreakEnd = clockPtr(19, 0)

	calc, err := timeclock.Compute(p, alice(), false, night())
	require.NoError(t, err)

	// THEN: One hour of overtime, all nocturnal
	assert.True(t, calc.Overtime.Total.Equal(timeclock.HoursFromInt(1)))
	assert.True(t, calc.Overtime.Nocturnal.Equal(timeclock.HoursFromInt(1)))
	assert.True(t, calc.Overtime.Diurnal.IsZero())
}

func TestCompute_OvertimeTailStraddlesNightWindow(t *testing.T) {
	// GIVEN: The overtime tail runs 21:30-22:30, half inside the window
	p := punch(clock(12, 30), clockPtr(22, 30))
	p.BreakStart = clockPtr(17, 0)
	p.BreakEnd = clockPtr(18, 0)

	calc, err := timeclock.Compute(p, alice(), false, night())
	require.NoError(t, err)

	// THEN: 30 minutes nocturnal, 30 minutes diurnal
	assert.True(t, calc.Overtime.Nocturnal.Equal(timeclock.HoursOf(0.5)), "nocturnal %s", calc.Overtime.Nocturnal)
	assert.True(t, calc.Overtime.Diurnal.Equal(timeclock.HoursOf(0.5)), "diurnal %s", calc.Overtime.Diurnal)
	assert.True(t, calc.Overtime.Total.Equal(timeclock.HoursFromInt(1)))
}

func TestCompute_HolidayTakesAllOvertime(t *testing.T) {
	// GIVEN: Overtime ending at 23:00 on a holiday
	p := punch(clock(13, 0), clockPtr(23, 0))
	p.BreakStart = clockPtr(18, 0)
	p.BreakEnd = clockPtr(19, 0)

	// WHEN: The calendar flags the date as a holiday
	calc, err := timeclock.Compute(p, alice(), true, night())
	require.NoError(t, err)

	// THEN: The holiday bucket wins even inside the night window
	assert.True(t, calc.IsHoliday)
	assert.True(t, calc.Overtime.Holiday.Equal(timeclock.HoursFromInt(1)))
	assert.True(t, calc.Overtime.Nocturnal.IsZero())
	assert.True(t, calc.Overtime.Diurnal.IsZero())
}

func TestCompute_BucketSumInvariant(t *testing.T) {
	// GIVEN: A spread of shifts ending at different clock times
	exits := []timeclock.ClockTime{
		clock(17, 0), clock(18, 30), clock(22, 0), clock(22, 45), clock(23, 59),
	}
	for _, exit := range exits {
		for _, holiday := range []bool{false, true} {
			e := exit
			p := punch(clock(8, 0), &e)

			calc, err := timeclock.Compute(p, alice(), holiday, night())
			require.NoError(t, err)

			// THEN: Total always equals the sum of the three buckets
			sum := calc.Overtime.Diurnal.Add(calc.Overtime.Nocturnal).Add(calc.Overtime.Holiday)
			assert.True(t, calc.Overtime.Total.Equal(sum),
				"exit %s holiday=%v: total %s != sum %s", e, holiday, calc.Overtime.Total, sum)
		}
	}
}

// =============================================================================
// ABSENCE AND LATENESS
// =============================================================================

func TestCompute_MissingExitIsAbsence(t *testing.T) {
	// GIVEN: An entry punch with no exit
	p := punch(clock(9, 0), nil)

	calc, err := timeclock.Compute(p, alice(), false, night())
	require.NoError(t, err)

	// THEN: The day is absent with zero worked hours and zero lateness
	assert.True(t, calc.Absent)
	assert.True(t, calc.WorkedHours.IsZero())
	assert.True(t, calc.Overtime.Total.IsZero())
	assert.Equal(t, 0, calc.LatenessMinutes)
}

func TestCompute_Lateness(t *testing.T) {
	// GIVEN: Scheduled entry 09:00, actual entry 09:15
	p := punch(clock(9, 15), clockPtr(18, 0))

	calc, err := timeclock.Compute(p, alice(), false, night())
	require.NoError(t, err)

	assert.Equal(t, 15, calc.LatenessMinutes)
}

func TestCompute_EarlyEntryIsNotLate(t *testing.T) {
	p := punch(clock(8, 30), clockPtr(17, 0))

	calc, err := timeclock.Compute(p, alice(), false, night())
	require.NoError(t, err)

	assert.Equal(t, 0, calc.LatenessMinutes)
}

func TestCompute_WeekendFlag(t *testing.T) {
	p := punch(clock(9, 0), clockPtr(13, 0))
	p.Date = saturday

	calc, err := timeclock.Compute(p, alice(), false, night())
	require.NoError(t, err)

	assert.True(t, calc.IsWeekend)
}

// =============================================================================
// MALFORMED PUNCHES
// =============================================================================

func TestCompute_EntryAfterExitRejected(t *testing.T) {
	// GIVEN: An exit earlier than the entry
	p := punch(clock(18, 0), clockPtr(9, 0))

	_, err := timeclock.Compute(p, alice(), false, night())

	// THEN: A validation error, typed for 400 mapping
	require.Error(t, err)
	assert.True(t, timeclock.IsClientError(err))
}

func TestCompute_HalfBreakPairRejected(t *testing.T) {
	p := punch(clock(9, 0), clockPtr(18, 0))
	p.BreakStart = clockPtr(12, 0)

	_, err := timeclock.Compute(p, alice(), false, night())
	require.Error(t, err)
	assert.True(t, timeclock.IsClientError(err))
}

func TestCompute_BreakOutsideShiftRejected(t *testing.T) {
	p := punch(clock(9, 0), clockPtr(18, 0))
	p.BreakStart = clockPtr(8, 0)
	p.BreakEnd = clockPtr(8, 30)

	_, err := timeclock.Compute(p, alice(), false, night())
	require.Error(t, err)
	assert.True(t, timeclock.IsClientError(err))
}

// =============================================================================
// DETERMINISM
// =============================================================================

func TestCompute_Deterministic(t *testing.T) {
	// GIVEN: The same punch computed twice
	p := punch(clock(8, 0), clockPtr(19, 45))
	p.BreakStart = clockPtr(12, 0)
	p.BreakEnd = clockPtr(13, 0)

	first, err := timeclock.Compute(p, alice(), false, night())
	require.NoError(t, err)
	second, err := timeclock.Compute(p, alice(), false, night())
	require.NoError(t, err)

	// THEN: Identical results, bit for bit
	assert.Equal(t, first, second)
}
