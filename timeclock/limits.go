/*
limits.go - Overtime limits and their evaluation

PURPOSE:
  The OvertimeLimit type, its validation bounds, the factory defaults,
  and the pure evaluation of daily/monthly overtime against a limit.

EVALUATION:
  Each bound is evaluated independently and the worse status wins.
  A bound is exceeded only when its value is STRICTLY above the limit;
  a value at or above 80% of the limit (the limit itself included) is
  near. Exceeding a limit flags the calculation, it never clamps
  overtime and never blocks the correction that caused it.
*/
package timeclock

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// OVERTIME LIMIT - Per-department daily/monthly ceiling
// =============================================================================

// Factory defaults, restored by a reset.
const (
	DefaultDailyLimitHours   = 2
	DefaultMonthlyLimitHours = 40
)

// Validation bounds.
const (
	MaxDailyLimitHours   = 24
	MaxMonthlyLimitHours = 720
)

// nearRatio is the fraction of a limit at which a bound reports near.
var nearRatio = decimal.NewFromFloat(0.8)

type OvertimeLimit struct {
	Department        string
	DailyLimitHours   Hours
	MonthlyLimitHours Hours
	UpdatedAt         time.Time
	UpdatedBy         string
}

// DefaultLimit returns the factory limit for a department.
func DefaultLimit(department string) OvertimeLimit {
	return OvertimeLimit{
		Department:        department,
		DailyLimitHours:   HoursFromInt(DefaultDailyLimitHours),
		MonthlyLimitHours: HoursFromInt(DefaultMonthlyLimitHours),
	}
}

// Validate checks the configured bounds: daily in [0, 24], monthly in
// [0, 720], and a non-empty department.
func (l OvertimeLimit) Validate() error {
	if l.Department == "" {
		return &ValidationError{Field: "department", Reason: "department is required"}
	}
	if l.DailyLimitHours.IsNegative() || l.DailyLimitHours.GreaterThan(HoursFromInt(MaxDailyLimitHours)) {
		return &ValidationError{
			Field:  "dailyLimitHours",
			Reason: fmt.Sprintf("must be between 0 and %d, got %s", MaxDailyLimitHours, l.DailyLimitHours),
		}
	}
	if l.MonthlyLimitHours.IsNegative() || l.MonthlyLimitHours.GreaterThan(HoursFromInt(MaxMonthlyLimitHours)) {
		return &ValidationError{
			Field:  "monthlyLimitHours",
			Reason: fmt.Sprintf("must be between 0 and %d, got %s", MaxMonthlyLimitHours, l.MonthlyLimitHours),
		}
	}
	return nil
}

// =============================================================================
// LIMIT STATUS
// =============================================================================

type LimitStatus string

const (
	StatusOK       LimitStatus = "ok"
	StatusNear     LimitStatus = "near"
	StatusExceeded LimitStatus = "exceeded"
)

var statusRank = map[LimitStatus]int{StatusOK: 0, StatusNear: 1, StatusExceeded: 2}

// WorseStatus returns whichever status is more severe.
func WorseStatus(a, b LimitStatus) LimitStatus {
	if statusRank[b] > statusRank[a] {
		return b
	}
	return a
}

// EvaluateLimit classifies daily and monthly overtime against a limit.
// The daily and monthly bounds are evaluated independently; the worse of
// the two statuses is surfaced.
func EvaluateLimit(dailyOvertime, monthlyOvertime Hours, limit OvertimeLimit) LimitStatus {
	daily := evaluateBound(dailyOvertime, limit.DailyLimitHours)
	monthly := evaluateBound(monthlyOvertime, limit.MonthlyLimitHours)
	return WorseStatus(daily, monthly)
}

func evaluateBound(value, limit Hours) LimitStatus {
	if value.GreaterThan(limit) {
		return StatusExceeded
	}
	if value.IsZero() {
		return StatusOK
	}
	threshold := Hours{Value: limit.Value.Mul(nearRatio)}
	if value.GreaterThan(threshold) || value.Equal(threshold) {
		return StatusNear
	}
	return StatusOK
}
