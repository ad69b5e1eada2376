/*
timebank.go - Time-bank aggregation

PURPOSE:
  Folds a collaborator's HoursCalculation series into the cumulative
  balance figures for a period: positive overtime contributions, undertime
  deficits, and their difference.

NOT A LEDGER:
  The snapshot is recomputed from the calculation series on every call.
  Keeping a running balance would drift the moment a punch or a limit is
  edited retroactively; recomputing from scratch makes consistency free.
*/
package timeclock

// AggregateTimeBank folds calculations into a TimeBankSnapshot for the
// period. Calculations outside the period are ignored, so callers can
// pass a collaborator's full series unsliced.
//
// Each day's worked-minus-contracted delta contributes to Credit when
// positive and to Debit (as absolute value) when negative. An absent day
// charges the full contracted hours to Debit unless the absence is
// excused by the justification collaborator.
func AggregateTimeBank(collaborator CollaboratorID, calcs []HoursCalculation, period Period, excused AbsenceJustifier) TimeBankSnapshot {
	snap := TimeBankSnapshot{
		CollaboratorID: collaborator,
		Period:         period,
		Credit:         ZeroHours(),
		Debit:          ZeroHours(),
	}

	for _, calc := range calcs {
		if calc.CollaboratorID != collaborator || !period.Contains(calc.Date) {
			continue
		}
		if calc.Absent && excused != nil && excused.IsExcused(collaborator, calc.Date) {
			continue
		}
		delta := calc.Delta()
		switch {
		case delta.IsPositive():
			snap.Credit = snap.Credit.Add(delta)
		case delta.IsNegative():
			snap.Debit = snap.Debit.Add(delta.Abs())
		}
	}

	snap.Balance = snap.Credit.Sub(snap.Debit)
	return snap
}

// MonthlyOvertime sums total overtime over the calendar month containing
// day. Used to evaluate the monthly limit bound.
func MonthlyOvertime(calcs []HoursCalculation, day Date) Hours {
	month := MonthOf(day)
	total := ZeroHours()
	for _, calc := range calcs {
		if month.Contains(calc.Date) {
			total = total.Add(calc.Overtime.Total)
		}
	}
	return total
}
