/*
calculator.go - Punches in, HoursCalculation out

PURPOSE:
  Turns one collaborator-day's raw punches plus directory and calendar
  reference data into a fully classified HoursCalculation.

KEY RULES:
  workedHours = max(0, (exit - entry) - breakDuration)
  overtime    = max(0, workedHours - contractedHours)

  Classification is mutually exclusive and exhaustive:
  - On a holiday every overtime minute is holiday overtime.
  - Otherwise the overtime tail of the shift (the last overtime minutes
    before exit) is split against the night window: minutes inside the
    window are nocturnal, the remainder diurnal.

  latenessMinutes = max(0, entry - scheduledEntry), zero on absence.
  A punch with no exit is an absence: zero worked hours, zero overtime.

PURITY:
  Compute has no clock, no store, no randomness. Identical inputs always
  produce an identical calculation, which is what makes wholesale
  recomputation after retroactive edits safe and idempotent.
*/
package timeclock

// Compute derives the HoursCalculation for one punch record.
//
// Malformed punches (entry not before exit, break outside the shift)
// return a ValidationError so callers can report the record and keep
// processing the rest of a batch.
func Compute(punch PunchRecord, info CollaboratorInfo, isHoliday bool, night NightWindow) (HoursCalculation, error) {
	calc := HoursCalculation{
		CollaboratorID:  punch.CollaboratorID,
		Department:      info.Department,
		Date:            punch.Date,
		ContractedHours: info.ContractedHours,
		IsHoliday:       isHoliday,
		IsWeekend:       punch.Date.IsWeekend(),
		WorkedHours:     ZeroHours(),
		Overtime: OvertimeBreakdown{
			Total:     ZeroHours(),
			Diurnal:   ZeroHours(),
			Nocturnal: ZeroHours(),
			Holiday:   ZeroHours(),
		},
	}

	if !punch.Entry.Valid() {
		return HoursCalculation{}, &ValidationError{Field: "entry", Reason: "entry time out of range"}
	}

	// No exit punch: the day is an absence. Zero worked hours, zero
	// lateness; the time-bank aggregator charges the contracted deficit.
	if punch.Exit == nil {
		calc.Absent = true
		return calc, nil
	}

	exit := *punch.Exit
	if !exit.Valid() {
		return HoursCalculation{}, &ValidationError{Field: "exit", Reason: "exit time out of range"}
	}
	if punch.Entry.MinutesUntil(exit) <= 0 {
		return HoursCalculation{}, &ValidationError{
			Field:  "punch",
			Reason: "entry " + punch.Entry.String() + " must be before exit " + exit.String(),
		}
	}

	breakMinutes, err := breakDuration(punch, exit)
	if err != nil {
		return HoursCalculation{}, err
	}

	workedMinutes := punch.Entry.MinutesUntil(exit) - breakMinutes
	if workedMinutes < 0 {
		workedMinutes = 0
	}
	calc.WorkedHours = HoursFromMinutes(workedMinutes)

	overtimeMinutes := workedMinutes - info.ContractedHours.Minutes()
	if overtimeMinutes < 0 {
		overtimeMinutes = 0
	}
	calc.Overtime = classifyOvertime(overtimeMinutes, exit, isHoliday, night)

	if late := info.ScheduledEntry.MinutesUntil(punch.Entry); late > 0 {
		calc.LatenessMinutes = late
	}

	return calc, nil
}

// classifyOvertime splits raw overtime minutes into exactly one or two
// buckets. The overtime portion of the shift is its wall-clock tail:
// the last overtimeMinutes before exit, which is where hours beyond the
// contracted load were worked.
func classifyOvertime(overtimeMinutes int, exit ClockTime, isHoliday bool, night NightWindow) OvertimeBreakdown {
	total := HoursFromMinutes(overtimeMinutes)
	ot := OvertimeBreakdown{
		Total:     total,
		Diurnal:   ZeroHours(),
		Nocturnal: ZeroHours(),
		Holiday:   ZeroHours(),
	}
	if overtimeMinutes == 0 {
		return ot
	}

	if isHoliday {
		ot.Holiday = total
		return ot
	}

	tailStart := ClockTime(int(exit) - overtimeMinutes)
	nocturnalMinutes := night.OverlapMinutes(tailStart, exit)
	ot.Nocturnal = HoursFromMinutes(nocturnalMinutes)
	ot.Diurnal = HoursFromMinutes(overtimeMinutes - nocturnalMinutes)
	return ot
}

func breakDuration(punch PunchRecord, exit ClockTime) (int, error) {
	if punch.BreakStart == nil && punch.BreakEnd == nil {
		return 0, nil
	}
	if punch.BreakStart == nil || punch.BreakEnd == nil {
		return 0, &ValidationError{Field: "break", Reason: "break start and end must both be present"}
	}
	start, end := *punch.BreakStart, *punch.BreakEnd
	if !start.Valid() || !end.Valid() {
		return 0, &ValidationError{Field: "break", Reason: "break time out of range"}
	}
	if start.MinutesUntil(end) <= 0 {
		return 0, &ValidationError{Field: "break", Reason: "break start must be before break end"}
	}
	if start < punch.Entry || end > exit {
		return 0, &ValidationError{Field: "break", Reason: "break must fall within the shift"}
	}
	return start.MinutesUntil(end), nil
}
