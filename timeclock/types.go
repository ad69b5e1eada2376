/*
Package timeclock provides the core time-accounting engine.

PURPOSE:
  This package contains the domain types and pure algorithms for turning raw
  clock-in/clock-out records into worked hours, classified overtime
  (diurnal/nocturnal/holiday), compensatory time-bank balances, and
  per-department overtime limit evaluations.

KEY CONCEPTS IN THIS FILE (types.go):
  - Hours: A decimal quantity of hours (avoids floating-point drift)
  - PunchRecord: One collaborator-day of raw clock punches
  - HoursCalculation: The derived record, one per collaborator per date
  - TimeBankSnapshot: Cumulative positive/negative overtime balance
  - OvertimeLimit: Per-department daily/monthly overtime ceiling

DESIGN PRINCIPLES:
  1. Determinism: Compute is a pure function; identical inputs always
     produce identical calculations
  2. Precision: Uses decimal.Decimal so overtime buckets sum exactly
  3. Full recompute: Calculations are always rebuilt from punches, never
     patched incrementally, so retroactive edits cannot leave stale state
  4. Auditability: Every mutation pairs with an AuditEntry (see store.go)

SEE ALSO:
  - clock.go: ClockTime, Date, and the configurable night window
  - calculator.go: Punches -> HoursCalculation
  - timebank.go: HoursCalculation series -> TimeBankSnapshot
  - limits.go: Overtime limit validation and status evaluation
*/
package timeclock

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS - Decimal quantity of hours
// =============================================================================

// Hours is a quantity of hours backed by decimal arithmetic.
// The overtime bucket invariant (total == diurnal + nocturnal + holiday)
// holds exactly, not within a floating tolerance.
type Hours struct {
	Value decimal.Decimal
}

func HoursOf(value float64) Hours {
	return Hours{Value: decimal.NewFromFloat(value)}
}

func HoursFromInt(value int) Hours {
	return Hours{Value: decimal.NewFromInt(int64(value))}
}

// HoursFromMinutes converts whole minutes to hours (e.g. 90 -> 1.5).
func HoursFromMinutes(minutes int) Hours {
	return Hours{Value: decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60))}
}

func ZeroHours() Hours { return Hours{Value: decimal.Zero} }

func (h Hours) Add(o Hours) Hours        { return Hours{Value: h.Value.Add(o.Value)} }
func (h Hours) Sub(o Hours) Hours        { return Hours{Value: h.Value.Sub(o.Value)} }
func (h Hours) Neg() Hours               { return Hours{Value: h.Value.Neg()} }
func (h Hours) Abs() Hours               { return Hours{Value: h.Value.Abs()} }
func (h Hours) IsZero() bool             { return h.Value.IsZero() }
func (h Hours) IsNegative() bool         { return h.Value.IsNegative() }
func (h Hours) IsPositive() bool         { return h.Value.IsPositive() }
func (h Hours) Equal(o Hours) bool       { return h.Value.Equal(o.Value) }
func (h Hours) GreaterThan(o Hours) bool { return h.Value.GreaterThan(o.Value) }
func (h Hours) LessThan(o Hours) bool    { return h.Value.LessThan(o.Value) }
func (h Hours) Float64() float64         { f, _ := h.Value.Float64(); return f }
func (h Hours) String() string           { return h.Value.String() }

// Minutes returns the quantity in whole minutes, truncated toward zero.
func (h Hours) Minutes() int {
	return int(h.Value.Mul(decimal.NewFromInt(60)).IntPart())
}

// Hours serializes as a bare decimal number, not a wrapper object.
func (h Hours) MarshalJSON() ([]byte, error) { return h.Value.MarshalJSON() }

func (h *Hours) UnmarshalJSON(data []byte) error { return h.Value.UnmarshalJSON(data) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CollaboratorID string
type PunchID string

// Actor identifies who performed a mutation, for the audit trail.
type Actor struct {
	ID   string
	Name string
}

// =============================================================================
// PUNCH RECORD - Raw clock-in/clock-out data for one collaborator-day
// =============================================================================

// PunchRecord is one collaborator-day of raw punches as delivered by a
// time-clock terminal or a manual correction.
//
// A missing Exit means the collaborator never clocked out; the calculator
// treats the day as absent. Break times are optional but must come as a
// pair. Punches are mutated only through the correction orchestrator;
// once an audit entry references a punch as a "before" snapshot that
// snapshot is immutable (the live record gets replaced, the snapshot not).
type PunchRecord struct {
	ID             PunchID
	CollaboratorID CollaboratorID
	Date           Date
	Entry          ClockTime
	Exit           *ClockTime
	BreakStart     *ClockTime
	BreakEnd       *ClockTime
	Corrected      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Key returns the (collaborator, date) identity used to serialize
// recomputation. One key, at most one in-flight recompute.
func (p PunchRecord) Key() string {
	return string(p.CollaboratorID) + "@" + p.Date.String()
}

// =============================================================================
// COLLABORATOR INFO - Reference data from the directory
// =============================================================================

// CollaboratorInfo is the directory record the calculator needs:
// contracted hours, department, and the scheduled shift entry.
type CollaboratorInfo struct {
	ID              CollaboratorID
	Name            string
	Department      string
	ContractedHours Hours
	ScheduledEntry  ClockTime
	Region          string
}

// =============================================================================
// HOURS CALCULATION - Derived record, one per collaborator per date
// =============================================================================

// OvertimeBreakdown buckets overtime by classification. The buckets are
// mutually exclusive and exhaustive: Total always equals
// Diurnal + Nocturnal + Holiday.
type OvertimeBreakdown struct {
	Total     Hours
	Diurnal   Hours
	Nocturnal Hours
	Holiday   Hours
}

// HoursCalculation is the materialized result for one collaborator-day.
// It is always recomputed wholesale from its underlying punch; it is
// never patched in place.
type HoursCalculation struct {
	CollaboratorID  CollaboratorID
	Department      string
	Date            Date
	WorkedHours     Hours
	ContractedHours Hours
	Overtime        OvertimeBreakdown
	LatenessMinutes int
	IsHoliday       bool
	IsWeekend       bool
	Absent          bool
}

// Delta returns worked minus contracted hours: the day's contribution
// to the time bank. Negative for undertime and absences.
func (c HoursCalculation) Delta() Hours {
	return c.WorkedHours.Sub(c.ContractedHours)
}

// =============================================================================
// TIME BANK SNAPSHOT - Cumulative balance over a period
// =============================================================================

// TimeBankSnapshot is a derived view over a collaborator's calculation
// series. It is recomputed from scratch for every read; storing it as an
// incrementally-mutated ledger would drift when punches or limits change
// retroactively.
//
// JSON field names keep the domain terms the payroll collaborators use.
type TimeBankSnapshot struct {
	CollaboratorID CollaboratorID `json:"collaborator_id"`
	Period         Period         `json:"period"`
	Credit         Hours          `json:"positivo"`
	Debit          Hours          `json:"negativo"`
	Balance        Hours          `json:"saldo"`
}
