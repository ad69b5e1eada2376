package timeclock

import "time"

// =============================================================================
// PERIOD - Time boundary for time-bank aggregation and recalculation scope
// =============================================================================

// Period is an inclusive date range. Time-bank balances are always
// computed for a period, never "as of" a single instant, so retroactive
// corrections inside the period are fully reflected on the next read.
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

func NewPeriod(start, end Date) (Period, error) {
	if end.Before(start) {
		return Period{}, &ValidationError{Field: "period", Reason: "end before start"}
	}
	return Period{Start: start, End: end}, nil
}

// MonthOf returns the calendar-month period containing the date.
func MonthOf(d Date) Period {
	start := NewDate(d.Year(), d.Month(), 1)
	end := start.AddDays(daysInMonth(d.Year(), d.Month()) - 1)
	return Period{Start: start, End: end}
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1).Day()
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns every date in the period.
func (p Period) Days() []Date {
	var days []Date
	for cur := p.Start; cur.BeforeOrEqual(p.End); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}

func (p Period) IsZero() bool { return p.Start.IsZero() && p.End.IsZero() }

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
