/*
limits.go - Overtime limits engine

PURPOSE:
  Stores and validates per-department overtime limits, answers limit
  status for calculations, and drives department-wide recomputation when
  a limit changes. Every change pairs with an audit entry and a
  limits_changed event.

RECOMPUTATION ON CHANGE:
  A limit change makes previously materialized classifications stale for
  its department, so the engine schedules a full department recompute.
  A superseding change for the same department cancels a still-running
  prior job instead of stacking conflicting recomputations (jobs.go).
*/
package engine

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/warp/timeclock-engine/timeclock"
)

// LimitsEngine manages per-department overtime ceilings.
type LimitsEngine struct {
	limits    timeclock.LimitStore
	calcs     timeclock.CalculationStore
	audit     timeclock.AuditLog
	events    timeclock.Publisher
	directory timeclock.CollaboratorDirectory
	jobs      *JobManager
	log       *slog.Logger
	timeout   time.Duration
}

// LimitsDeps wires the limits engine. Jobs may be nil; limit changes
// then skip scheduling (pure-store mode for tests).
type LimitsDeps struct {
	Limits    timeclock.LimitStore
	Calcs     timeclock.CalculationStore
	Audit     timeclock.AuditLog
	Events    timeclock.Publisher
	Directory timeclock.CollaboratorDirectory
	Jobs      *JobManager
	Logger    *slog.Logger
	Timeout   time.Duration
}

func NewLimitsEngine(deps LimitsDeps) *LimitsEngine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = DefaultStoreTimeout
	}
	return &LimitsEngine{
		limits:    deps.Limits,
		calcs:     deps.Calcs,
		audit:     deps.Audit,
		events:    deps.Events,
		directory: deps.Directory,
		jobs:      deps.Jobs,
		log:       deps.Logger,
		timeout:   deps.Timeout,
	}
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// SetLimit configures a department's daily/monthly overtime ceiling.
// On success the limit is persisted, an audit entry is appended, a
// limits_changed event is published, and recomputation of the
// department's calculations is scheduled.
func (e *LimitsEngine) SetLimit(ctx context.Context, department string, daily, monthly timeclock.Hours, actor timeclock.Actor) (timeclock.OvertimeLimit, error) {
	limit := timeclock.OvertimeLimit{
		Department:        department,
		DailyLimitHours:   daily,
		MonthlyLimitHours: monthly,
		UpdatedAt:         time.Now().UTC(),
		UpdatedBy:         actor.ID,
	}
	if err := limit.Validate(); err != nil {
		return timeclock.OvertimeLimit{}, err
	}

	previous, err := e.getLimit(ctx, department)
	if err != nil {
		return timeclock.OvertimeLimit{}, err
	}

	if err := e.saveAndRecord(ctx, limit, previous, timeclock.AuditLimitSet, actor); err != nil {
		return timeclock.OvertimeLimit{}, err
	}
	return limit, nil
}

// ResetLimit restores the factory defaults (2h daily, 40h monthly).
// Resetting a department that was never configured is a NotFoundError.
func (e *LimitsEngine) ResetLimit(ctx context.Context, department string, actor timeclock.Actor) (timeclock.OvertimeLimit, error) {
	previous, err := e.getLimit(ctx, department)
	if err != nil {
		return timeclock.OvertimeLimit{}, err
	}
	if previous == nil {
		return timeclock.OvertimeLimit{}, &timeclock.NotFoundError{Kind: "limit", ID: department}
	}

	limit := timeclock.DefaultLimit(department)
	limit.UpdatedAt = time.Now().UTC()
	limit.UpdatedBy = actor.ID

	if err := e.saveAndRecord(ctx, limit, previous, timeclock.AuditLimitReset, actor); err != nil {
		return timeclock.OvertimeLimit{}, err
	}
	return limit, nil
}

func (e *LimitsEngine) saveAndRecord(ctx context.Context, limit timeclock.OvertimeLimit, previous *timeclock.OvertimeLimit, action timeclock.AuditAction, actor timeclock.Actor) error {
	sctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if err := e.limits.SaveLimit(sctx, limit); err != nil {
		return &timeclock.PersistenceError{Op: "SaveLimit", Err: err}
	}

	entry := timeclock.AuditEntry{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Action:     action,
		EntityID:   limit.Department,
		Department: limit.Department,
		After:      limitSnapshot(limit),
	}
	if previous != nil {
		entry.Before = limitSnapshot(*previous)
	}
	actx, acancel := context.WithTimeout(ctx, e.timeout)
	defer acancel()
	if err := e.audit.Append(actx, entry); err != nil {
		return &timeclock.PersistenceError{Op: "AuditAppend", Err: err}
	}

	if e.events != nil {
		e.events.Publish(timeclock.EventLimitsChanged, map[string]any{
			"department": limit.Department,
			"daily":      limit.DailyLimitHours.Float64(),
			"monthly":    limit.MonthlyLimitHours.Float64(),
			"action":     string(action),
		})
	}

	if e.jobs != nil {
		runID := e.jobs.Schedule(limit.Department, timeclock.Period{})
		e.log.Info("limit changed, recalculation scheduled",
			"department", limit.Department,
			"action", string(action),
			"run", runID)
	}
	return nil
}

// =============================================================================
// READS AND EVALUATION
// =============================================================================

// GetLimits returns every configured limit.
func (e *LimitsEngine) GetLimits(ctx context.Context) ([]timeclock.OvertimeLimit, error) {
	sctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	limits, err := e.limits.ListLimits(sctx)
	if err != nil {
		return nil, &timeclock.PersistenceError{Op: "ListLimits", Err: err}
	}
	return limits, nil
}

// LimitFor returns the department's configured limit, or the factory
// default when none is configured.
func (e *LimitsEngine) LimitFor(ctx context.Context, department string) (timeclock.OvertimeLimit, error) {
	limit, err := e.getLimit(ctx, department)
	if err != nil {
		return timeclock.OvertimeLimit{}, err
	}
	if limit == nil {
		return timeclock.DefaultLimit(department), nil
	}
	return *limit, nil
}

// StatusFor evaluates one calculation's daily overtime and its month's
// cumulative overtime against the department limit.
func (e *LimitsEngine) StatusFor(ctx context.Context, calc timeclock.HoursCalculation) (timeclock.LimitStatus, error) {
	limit, err := e.LimitFor(ctx, calc.Department)
	if err != nil {
		return "", err
	}

	sctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	monthCalcs, err := e.calcs.ListCalculations(sctx, timeclock.CalculationFilter{
		Collaborator: calc.CollaboratorID,
		Period:       timeclock.MonthOf(calc.Date),
	})
	if err != nil {
		return "", &timeclock.PersistenceError{Op: "ListCalculations", Err: err}
	}

	monthly := timeclock.MonthlyOvertime(monthCalcs, calc.Date)
	return timeclock.EvaluateLimit(calc.Overtime.Total, monthly, limit), nil
}

// Departments enumerates configured and directory-known department
// names, sorted and de-duplicated.
func (e *LimitsEngine) Departments(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)

	limits, err := e.GetLimits(ctx)
	if err != nil {
		return nil, err
	}
	for _, limit := range limits {
		seen[limit.Department] = true
	}

	if e.directory != nil {
		sctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		infos, err := e.directory.ListCollaborators(sctx)
		if err != nil {
			return nil, &timeclock.PersistenceError{Op: "ListCollaborators", Err: err}
		}
		for _, info := range infos {
			if info.Department != "" {
				seen[info.Department] = true
			}
		}
	}

	departments := make([]string, 0, len(seen))
	for name := range seen {
		departments = append(departments, name)
	}
	sort.Strings(departments)
	return departments, nil
}

// History returns the audit trail of limit changes, newest-first.
func (e *LimitsEngine) History(ctx context.Context) ([]timeclock.AuditEntry, error) {
	sctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	entries, err := e.audit.Query(sctx, timeclock.AuditFilter{
		Actions: []timeclock.AuditAction{timeclock.AuditLimitSet, timeclock.AuditLimitReset},
	})
	if err != nil {
		return nil, &timeclock.PersistenceError{Op: "AuditQuery", Err: err}
	}
	return entries, nil
}

func (e *LimitsEngine) getLimit(ctx context.Context, department string) (*timeclock.OvertimeLimit, error) {
	sctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	limit, err := e.limits.GetLimit(sctx, department)
	if err != nil {
		return nil, &timeclock.PersistenceError{Op: "GetLimit", Err: err}
	}
	return limit, nil
}

func limitSnapshot(limit timeclock.OvertimeLimit) map[string]any {
	return map[string]any{
		"department": limit.Department,
		"daily":      limit.DailyLimitHours.String(),
		"monthly":    limit.MonthlyLimitHours.String(),
		"updated_by": limit.UpdatedBy,
	}
}
