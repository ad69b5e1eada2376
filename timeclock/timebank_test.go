package timeclock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timeclock-engine/timeclock"
)

func march2025() timeclock.Period {
	return timeclock.MonthOf(timeclock.NewDate(2025, time.March, 1))
}

func dayCalc(day int, worked float64) timeclock.HoursCalculation {
	return timeclock.HoursCalculation{
		CollaboratorID:  "alice",
		Department:      "logistics",
		Date:            timeclock.NewDate(2025, time.March, day),
		WorkedHours:     timeclock.HoursOf(worked),
		ContractedHours: timeclock.HoursFromInt(8),
	}
}

func absentCalc(day int) timeclock.HoursCalculation {
	c := dayCalc(day, 0)
	c.Absent = true
	return c
}

// =============================================================================
// AGGREGATION
// =============================================================================

func TestAggregateTimeBank_CreditAndDebit(t *testing.T) {
	// GIVEN: One 2h-surplus day, one 1h-deficit day, one even day
	calcs := []timeclock.HoursCalculation{
		dayCalc(10, 10), // +2
		dayCalc(11, 7),  // -1
		dayCalc(12, 8),  // 0
	}

	// WHEN: Aggregating the month
	snap := timeclock.AggregateTimeBank("alice", calcs, march2025(), timeclock.NoExcuses{})

	// THEN: positivo 2, negativo 1, saldo 1
	assert.True(t, snap.Credit.Equal(timeclock.HoursFromInt(2)), "credit %s", snap.Credit)
	assert.True(t, snap.Debit.Equal(timeclock.HoursFromInt(1)), "debit %s", snap.Debit)
	assert.True(t, snap.Balance.Equal(timeclock.HoursFromInt(1)), "balance %s", snap.Balance)
}

func TestAggregateTimeBank_AbsenceChargesContractedHours(t *testing.T) {
	// GIVEN: A surplus day followed by an unexcused absence
	calcs := []timeclock.HoursCalculation{
		dayCalc(10, 9), // +1
		absentCalc(11), // -8
	}

	snap := timeclock.AggregateTimeBank("alice", calcs, march2025(), timeclock.NoExcuses{})

	// THEN: The full contracted load lands on the debit side
	assert.True(t, snap.Debit.Equal(timeclock.HoursFromInt(8)), "debit %s", snap.Debit)
	assert.True(t, snap.Balance.Equal(timeclock.HoursFromInt(-7)), "balance %s", snap.Balance)
}

type excusedDays map[string]bool

func (e excusedDays) IsExcused(id timeclock.CollaboratorID, d timeclock.Date) bool {
	return e[string(id)+"@"+d.String()]
}

func TestAggregateTimeBank_ExcusedAbsenceSkipped(t *testing.T) {
	// GIVEN: Two absences, one excused
	calcs := []timeclock.HoursCalculation{
		absentCalc(11),
		absentCalc(12),
	}
	excused := excusedDays{"alice@2025-03-11": true}

	snap := timeclock.AggregateTimeBank("alice", calcs, march2025(), excused)

	// THEN: Only the unexcused absence charges the bank
	assert.True(t, snap.Debit.Equal(timeclock.HoursFromInt(8)), "debit %s", snap.Debit)
}

func TestAggregateTimeBank_PeriodFiltering(t *testing.T) {
	// GIVEN: A surplus day inside the period and one outside it
	outside := dayCalc(10, 12)
	outside.Date = timeclock.NewDate(2025, time.April, 2)
	calcs := []timeclock.HoursCalculation{
		dayCalc(10, 9), // +1, in period
		outside,        // +4, out of period
	}

	snap := timeclock.AggregateTimeBank("alice", calcs, march2025(), timeclock.NoExcuses{})

	assert.True(t, snap.Credit.Equal(timeclock.HoursFromInt(1)), "credit %s", snap.Credit)
}

func TestAggregateTimeBank_OtherCollaboratorsIgnored(t *testing.T) {
	other := dayCalc(10, 12)
	other.CollaboratorID = "bob"

	snap := timeclock.AggregateTimeBank("alice", []timeclock.HoursCalculation{other}, march2025(), timeclock.NoExcuses{})

	assert.True(t, snap.Credit.IsZero())
	assert.True(t, snap.Debit.IsZero())
	assert.True(t, snap.Balance.IsZero())
}

func TestAggregateTimeBank_RecomputeIsIdempotent(t *testing.T) {
	// GIVEN: The same series aggregated twice
	calcs := []timeclock.HoursCalculation{dayCalc(10, 10), absentCalc(11), dayCalc(12, 6)}

	first := timeclock.AggregateTimeBank("alice", calcs, march2025(), timeclock.NoExcuses{})
	second := timeclock.AggregateTimeBank("alice", calcs, march2025(), timeclock.NoExcuses{})

	assert.Equal(t, first, second)
}

// =============================================================================
// MONTHLY OVERTIME
// =============================================================================

func TestMonthlyOvertime_SumsOnlyTheMonth(t *testing.T) {
	inMonth := dayCalc(10, 10)
	inMonth.Overtime.Total = timeclock.HoursFromInt(2)
	alsoInMonth := dayCalc(20, 9)
	alsoInMonth.Overtime.Total = timeclock.HoursOf(1.5)
	nextMonth := dayCalc(10, 10)
	nextMonth.Date = timeclock.NewDate(2025, time.April, 10)
	nextMonth.Overtime.Total = timeclock.HoursFromInt(5)

	total := timeclock.MonthlyOvertime(
		[]timeclock.HoursCalculation{inMonth, alsoInMonth, nextMonth},
		timeclock.NewDate(2025, time.March, 25))

	require.True(t, total.Equal(timeclock.HoursOf(3.5)), "total %s", total)
}
