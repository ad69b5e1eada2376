/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

WIRE CONVENTIONS:
  Dates travel as "YYYY-MM-DD", clock times as "HH:MM", hour quantities
  as decimal strings. Time-bank responses use the payroll-facing field
  names (positivo/negativo/saldo) the downstream reports expect.

SEE ALSO:
  - handlers.go: Uses these types
  - server.go: Router setup and middleware
*/
package api

import (
	"time"

	"github.com/warp/timeclock-engine/timeclock"
)

// =============================================================================
// PUNCHES
// =============================================================================

// PunchDTO represents a punch record in API responses.
type PunchDTO struct {
	ID             string  `json:"id"`
	CollaboratorID string  `json:"collaborator_id"`
	Date           string  `json:"date"`
	Entry          string  `json:"entry"`
	Exit           *string `json:"exit,omitempty"`
	BreakStart     *string `json:"break_start,omitempty"`
	BreakEnd       *string `json:"break_end,omitempty"`
	Corrected      bool    `json:"corrected"`
	UpdatedAt      string  `json:"updated_at,omitempty"`
}

// RecordPunchRequest is the request to record a collaborator-day punch.
// A missing exit marks an absence or an open shift.
type RecordPunchRequest struct {
	CollaboratorID string  `json:"collaborator_id"`
	Date           string  `json:"date"`
	Entry          string  `json:"entry"`
	Exit           *string `json:"exit,omitempty"`
	BreakStart     *string `json:"break_start,omitempty"`
	BreakEnd       *string `json:"break_end,omitempty"`
}

// CorrectPunchRequest amends an existing punch. Reason is mandatory;
// corrections without one are rejected before anything is written.
type CorrectPunchRequest struct {
	Entry     string  `json:"entry"`
	Exit      *string `json:"exit,omitempty"`
	Reason    string  `json:"reason"`
	ActorID   string  `json:"actor_id"`
	ActorName string  `json:"actor_name"`
}

// =============================================================================
// CALCULATIONS AND TIME BANK
// =============================================================================

// CalculationDTO is one materialized collaborator-day result.
type CalculationDTO struct {
	CollaboratorID  string `json:"collaborator_id"`
	Department      string `json:"department"`
	Date            string `json:"date"`
	WorkedHours     string `json:"worked_hours"`
	ContractedHours string `json:"contracted_hours"`
	OvertimeTotal   string `json:"overtime_total"`
	Diurnal         string `json:"overtime_diurnal"`
	Nocturnal       string `json:"overtime_nocturnal"`
	Holiday         string `json:"overtime_holiday"`
	LatenessMinutes int    `json:"lateness_minutes"`
	IsHoliday       bool   `json:"is_holiday"`
	IsWeekend       bool   `json:"is_weekend"`
	Absent          bool   `json:"absent"`
	LimitStatus     string `json:"limit_status,omitempty"`
}

// TimeBankDTO is the period balance for one collaborator.
type TimeBankDTO struct {
	CollaboratorID string `json:"collaborator_id"`
	From           string `json:"from"`
	To             string `json:"to"`
	Credit         string `json:"positivo"`
	Debit          string `json:"negativo"`
	Balance        string `json:"saldo"`
}

// =============================================================================
// LIMITS
// =============================================================================

// LimitDTO represents a department overtime limit.
type LimitDTO struct {
	Department        string `json:"department"`
	DailyLimitHours   string `json:"daily_limit_hours"`
	MonthlyLimitHours string `json:"monthly_limit_hours"`
	UpdatedAt         string `json:"updated_at,omitempty"`
	UpdatedBy         string `json:"updated_by,omitempty"`
	Configured        bool   `json:"configured"`
}

// SetLimitRequest configures a department's overtime ceilings.
type SetLimitRequest struct {
	Department        string  `json:"department"`
	DailyLimitHours   float64 `json:"daily_limit_hours"`
	MonthlyLimitHours float64 `json:"monthly_limit_hours"`
	ActorID           string  `json:"actor_id"`
	ActorName         string  `json:"actor_name"`
}

// ResetLimitRequest identifies who reverted the department to defaults.
type ResetLimitRequest struct {
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name"`
}

// =============================================================================
// RECALCULATION
// =============================================================================

// RecalculateRequest schedules a department-scoped recalculation.
type RecalculateRequest struct {
	Department string `json:"department"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
}

// RunDTO reports one recalculation job.
type RunDTO struct {
	ID          string `json:"id"`
	Department  string `json:"department"`
	Status      string `json:"status"`
	Recomputed  int    `json:"recomputed"`
	Skipped     int    `json:"skipped"`
	ErrorCount  int    `json:"error_count"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// =============================================================================
// AUDIT AND EXPORTS
// =============================================================================

// AuditEntryDTO is one audit trail row, newest first.
type AuditEntryDTO struct {
	ID         string         `json:"id"`
	Timestamp  string         `json:"timestamp"`
	ActorID    string         `json:"actor_id"`
	ActorName  string         `json:"actor_name,omitempty"`
	Action     string         `json:"action"`
	EntityID   string         `json:"entity_id,omitempty"`
	Department string         `json:"department,omitempty"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
}

// ExportRequest records that a report was generated. The engine only
// audits the event; rendering happens in the reporting layer.
type ExportRequest struct {
	Kind      string         `json:"kind"`   // e.g. "timebank", "calculations"
	Format    string         `json:"format"` // e.g. "csv", "pdf"
	Filters   map[string]any `json:"filters,omitempty"`
	ActorID   string         `json:"actor_id"`
	ActorName string         `json:"actor_name"`
}

// =============================================================================
// DIRECTORY AND CALENDAR
// =============================================================================

// CollaboratorDTO represents a directory entry.
type CollaboratorDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Department      string `json:"department"`
	ContractedHours string `json:"contracted_hours"`
	ScheduledEntry  string `json:"scheduled_entry"`
	Region          string `json:"region,omitempty"`
}

// CreateCollaboratorRequest upserts a directory entry.
type CreateCollaboratorRequest struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Department      string  `json:"department"`
	ContractedHours float64 `json:"contracted_hours"`
	ScheduledEntry  string  `json:"scheduled_entry"`
	Region          string  `json:"region,omitempty"`
}

// HolidayDTO represents a calendar entry.
type HolidayDTO struct {
	ID        string `json:"id"`
	Region    string `json:"region,omitempty"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

// CreateHolidayRequest adds a calendar entry. An empty region applies
// everywhere; recurring entries match their month-day every year.
type CreateHolidayRequest struct {
	Region    string `json:"region,omitempty"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

// =============================================================================
// SHARED
// =============================================================================

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toPunchDTO(p timeclock.PunchRecord) PunchDTO {
	dto := PunchDTO{
		ID:             string(p.ID),
		CollaboratorID: string(p.CollaboratorID),
		Date:           p.Date.String(),
		Entry:          p.Entry.String(),
		Corrected:      p.Corrected,
	}
	if !p.UpdatedAt.IsZero() {
		dto.UpdatedAt = p.UpdatedAt.UTC().Format(time.RFC3339)
	}
	dto.Exit = clockString(p.Exit)
	dto.BreakStart = clockString(p.BreakStart)
	dto.BreakEnd = clockString(p.BreakEnd)
	return dto
}

func toCalculationDTO(c timeclock.HoursCalculation) CalculationDTO {
	return CalculationDTO{
		CollaboratorID:  string(c.CollaboratorID),
		Department:      c.Department,
		Date:            c.Date.String(),
		WorkedHours:     c.WorkedHours.String(),
		ContractedHours: c.ContractedHours.String(),
		OvertimeTotal:   c.Overtime.Total.String(),
		Diurnal:         c.Overtime.Diurnal.String(),
		Nocturnal:       c.Overtime.Nocturnal.String(),
		Holiday:         c.Overtime.Holiday.String(),
		LatenessMinutes: c.LatenessMinutes,
		IsHoliday:       c.IsHoliday,
		IsWeekend:       c.IsWeekend,
		Absent:          c.Absent,
	}
}

func toRunDTO(run timeclock.RecalcRun) RunDTO {
	dto := RunDTO{
		ID:         run.ID,
		Department: run.Department,
		Status:     run.Status,
		Recomputed: run.Recomputed,
		Skipped:    run.Skipped,
		ErrorCount: run.ErrorCount,
		Error:      run.Error,
		StartedAt:  run.StartedAt.UTC().Format(time.RFC3339),
	}
	if run.CompletedAt != nil {
		dto.CompletedAt = run.CompletedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toAuditDTO(e timeclock.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:         e.ID,
		Timestamp:  e.Timestamp.UTC().Format(time.RFC3339Nano),
		ActorID:    e.ActorID,
		ActorName:  e.ActorName,
		Action:     string(e.Action),
		EntityID:   e.EntityID,
		Department: e.Department,
		Before:     e.Before,
		After:      e.After,
	}
}

func clockString(c *timeclock.ClockTime) *string {
	if c == nil {
		return nil
	}
	s := c.String()
	return &s
}

func parseClockField(field, value string) (timeclock.ClockTime, error) {
	c, err := timeclock.ParseClockTime(value)
	if err != nil {
		return 0, &timeclock.ValidationError{Field: field, Reason: "expected HH:MM, got " + value}
	}
	return c, nil
}

func parseOptionalClock(field string, value *string) (*timeclock.ClockTime, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	c, err := parseClockField(field, *value)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// parsePeriodParams builds an inclusive period from from/to query
// values. Both empty means "all dates".
func parsePeriodParams(from, to string) (timeclock.Period, error) {
	if from == "" && to == "" {
		return timeclock.Period{}, nil
	}
	var (
		period timeclock.Period
		err    error
	)
	if from != "" {
		period.Start, err = timeclock.ParseDate(from)
		if err != nil {
			return timeclock.Period{}, err
		}
	}
	if to != "" {
		period.End, err = timeclock.ParseDate(to)
		if err != nil {
			return timeclock.Period{}, err
		}
	}
	if period.Start.IsZero() {
		period.Start = period.End
	}
	if period.End.IsZero() {
		period.End = period.Start
	}
	return timeclock.NewPeriod(period.Start, period.End)
}
