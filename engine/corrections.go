/*
Package engine orchestrates mutations on top of the timeclock core.

PURPOSE:
  The correction orchestrator is the only writer of punch records. It
  accepts terminal punches and manual corrections, writes the paired
  audit entries, and drives recomputation of every affected
  collaborator-day. The limits engine (limits.go) manages per-department
  overtime ceilings and triggers department-wide recomputation jobs
  (jobs.go) when they change.

CONCURRENCY MODEL:
  Recomputation is serialized per (collaborator, date) key: concurrent
  corrections to the same key take turns, later writers win, and each
  write is followed by a fresh recompute of that key. Different keys
  recompute in parallel freely; the durable store is the only shared
  state. Persistence calls carry bounded timeouts and surface failures
  as PersistenceError.

SEE ALSO:
  - timeclock/calculator.go: the pure per-day computation
  - limits.go: limit configuration and status evaluation
  - jobs.go: cancellable department-scoped recalculation jobs
*/
package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/timeclock-engine/timeclock"
)

// DefaultStoreTimeout bounds every persistence call issued by the
// orchestrator. The store is the only suspension point in the engine.
const DefaultStoreTimeout = 5 * time.Second

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Deps wires the orchestrator. Punches, Calcs, Audit, and Directory are
// required; the rest default to no-op collaborators.
type Deps struct {
	Punches   timeclock.PunchStore
	Calcs     timeclock.CalculationStore
	Audit     timeclock.AuditLog
	Events    timeclock.Publisher
	Directory timeclock.CollaboratorDirectory
	Calendar  timeclock.HolidayCalendar
	Excused   timeclock.AbsenceJustifier
	Night     timeclock.NightWindow
	Logger    *slog.Logger
	Timeout   time.Duration
}

type Orchestrator struct {
	punches   timeclock.PunchStore
	calcs     timeclock.CalculationStore
	audit     timeclock.AuditLog
	events    timeclock.Publisher
	directory timeclock.CollaboratorDirectory
	calendar  timeclock.HolidayCalendar
	excused   timeclock.AbsenceJustifier
	night     timeclock.NightWindow
	log       *slog.Logger
	timeout   time.Duration

	keys keyedLocks
}

func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.Calendar == nil {
		deps.Calendar = timeclock.NoHolidays{}
	}
	if deps.Excused == nil {
		deps.Excused = timeclock.NoExcuses{}
	}
	if deps.Night == (timeclock.NightWindow{}) {
		deps.Night = timeclock.DefaultNightWindow()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = DefaultStoreTimeout
	}
	return &Orchestrator{
		punches:   deps.Punches,
		calcs:     deps.Calcs,
		audit:     deps.Audit,
		events:    deps.Events,
		directory: deps.Directory,
		calendar:  deps.Calendar,
		excused:   deps.Excused,
		night:     deps.Night,
		log:       deps.Logger,
		timeout:   deps.Timeout,
		keys:      keyedLocks{locks: make(map[string]*keyLock)},
	}
}

// NightWindow exposes the configured night window (for reporting).
func (o *Orchestrator) NightWindow() timeclock.NightWindow { return o.night }

// =============================================================================
// PUNCH INTAKE - Time-clock terminal write path
// =============================================================================

// RecordPunch stores a collaborator-day punch and computes its
// calculation. Each collaborator-day holds at most one raw punch: a
// re-record from the terminal replaces the existing record instead of
// creating a sibling row. Malformed punches are rejected before
// anything is written.
func (o *Orchestrator) RecordPunch(ctx context.Context, punch timeclock.PunchRecord) (timeclock.PunchRecord, error) {
	info, err := o.collaborator(ctx, punch.CollaboratorID)
	if err != nil {
		return timeclock.PunchRecord{}, err
	}

	// Dry-run the calculator so a malformed punch never lands in the store.
	isHoliday := o.calendar.IsHoliday(punch.Date, info.Region)
	if _, err := timeclock.Compute(punch, *info, isHoliday, o.night); err != nil {
		return timeclock.PunchRecord{}, err
	}

	unlock := o.keys.lock(punch.Key())
	defer unlock()

	day := timeclock.Period{Start: punch.Date, End: punch.Date}
	existing, err := o.listPunches(ctx, punch.CollaboratorID, day)
	if err != nil {
		return timeclock.PunchRecord{}, err
	}

	now := time.Now().UTC()
	if len(existing) > 0 {
		punch.ID = existing[0].ID
		punch.CreatedAt = existing[0].CreatedAt
	} else {
		if punch.ID == "" {
			punch.ID = timeclock.PunchID(uuid.NewString())
		}
		punch.CreatedAt = now
	}
	punch.UpdatedAt = now

	if err := o.savePunch(ctx, punch); err != nil {
		return timeclock.PunchRecord{}, err
	}
	if _, err := o.recomputeLocked(ctx, punch); err != nil {
		return timeclock.PunchRecord{}, err
	}
	return punch, nil
}

// =============================================================================
// CORRECTIONS - Recorded -> Corrected -> Recorded
// =============================================================================

// CorrectPunch replaces a punch's entry/exit times. The reason is
// mandatory; the pre-change snapshot goes into the audit log; the
// affected collaborator-day is recomputed before the call returns.
// A corrected punch is a fresh baseline that can be corrected again.
func (o *Orchestrator) CorrectPunch(ctx context.Context, id timeclock.PunchID, newEntry timeclock.ClockTime, newExit *timeclock.ClockTime, reason string, actor timeclock.Actor) (timeclock.PunchRecord, error) {
	if strings.TrimSpace(reason) == "" {
		return timeclock.PunchRecord{}, &timeclock.ValidationError{Field: "reason", Reason: "a correction reason is required"}
	}
	if !newEntry.Valid() {
		return timeclock.PunchRecord{}, &timeclock.ValidationError{Field: "entry", Reason: "entry time out of range"}
	}
	if newExit != nil && newEntry.MinutesUntil(*newExit) <= 0 {
		return timeclock.PunchRecord{}, &timeclock.ValidationError{
			Field:  "punch",
			Reason: "corrected entry " + newEntry.String() + " must be before exit " + newExit.String(),
		}
	}

	current, err := o.getPunch(ctx, id)
	if err != nil {
		return timeclock.PunchRecord{}, err
	}

	// Serialize against other writers of the same collaborator-day.
	// Reload inside the lock so the last writer corrects the freshest
	// baseline (last-write-wins).
	unlock := o.keys.lock(current.Key())
	defer unlock()

	current, err = o.getPunch(ctx, id)
	if err != nil {
		return timeclock.PunchRecord{}, err
	}

	before := punchSnapshot(*current)

	updated := *current
	updated.Entry = newEntry
	updated.Exit = newExit
	updated.Corrected = true
	updated.UpdatedAt = time.Now().UTC()

	info, err := o.collaborator(ctx, updated.CollaboratorID)
	if err != nil {
		return timeclock.PunchRecord{}, err
	}

	// Dry-run the calculator before any write. A correction can be
	// internally consistent yet invalidate the day, say when the retained
	// break falls outside the new shift; rejecting here keeps the stored
	// punch and its calculation in step.
	isHoliday := o.calendar.IsHoliday(updated.Date, info.Region)
	if _, err := timeclock.Compute(updated, *info, isHoliday, o.night); err != nil {
		return timeclock.PunchRecord{}, err
	}

	if err := o.savePunch(ctx, updated); err != nil {
		return timeclock.PunchRecord{}, err
	}

	entry := timeclock.AuditEntry{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Action:     timeclock.AuditCorrection,
		EntityID:   string(updated.ID),
		Department: info.Department,
		Before:     before,
		After:      punchSnapshot(updated),
	}
	entry.After["reason"] = reason
	if err := o.appendAudit(ctx, entry); err != nil {
		return timeclock.PunchRecord{}, err
	}

	if _, err := o.recomputeLocked(ctx, updated); err != nil {
		return timeclock.PunchRecord{}, err
	}

	o.publish(timeclock.EventRecalculationComplete, map[string]any{
		"scope":        "punch",
		"collaborator": string(updated.CollaboratorID),
		"date":         updated.Date.String(),
	})

	o.log.Info("punch corrected",
		"punch", string(updated.ID),
		"collaborator", string(updated.CollaboratorID),
		"date", updated.Date.String(),
		"actor", actor.ID)

	return updated, nil
}

// =============================================================================
// BULK RECALCULATION
// =============================================================================

// Scope bounds a bulk recalculation. Zero fields widen the scope: an
// empty department means every department, a zero period all dates.
type Scope struct {
	Department string
	Period     timeclock.Period
}

// RecalculationReport summarizes one bulk run. Per-record failures are
// collected, not propagated; Skipped counts the records they excluded.
type RecalculationReport struct {
	Recomputed int
	Skipped    int
	Errors     []timeclock.RecalculationError
}

// RecalculateAll walks every punch in scope and rebuilds its
// HoursCalculation. Running it twice with no intervening change yields
// identical output: Compute is pure and SaveCalculation replaces rows.
//
// A per-record failure is reported and processing continues. A
// persistence failure or a canceled context aborts the run; the report
// reflects the work done so far.
func (o *Orchestrator) RecalculateAll(ctx context.Context, scope Scope) (RecalculationReport, error) {
	var report RecalculationReport

	collaborators, err := o.listCollaborators(ctx)
	if err != nil {
		return report, err
	}

	for _, info := range collaborators {
		if scope.Department != "" && info.Department != scope.Department {
			continue
		}
		punches, err := o.listPunches(ctx, info.ID, scope.Period)
		if err != nil {
			return report, err
		}
		for _, punch := range punches {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			unlock := o.keys.lock(punch.Key())
			_, rerr := o.recomputeLocked(ctx, punch)
			unlock()
			switch {
			case rerr == nil:
				report.Recomputed++
			case timeclock.IsPersistence(rerr):
				return report, rerr
			default:
				report.Skipped++
				report.Errors = append(report.Errors, timeclock.RecalculationError{
					CollaboratorID: punch.CollaboratorID,
					Date:           punch.Date,
					Err:            rerr,
				})
			}
		}
	}

	o.publish(timeclock.EventRecalculationComplete, map[string]any{
		"scope":      "bulk",
		"department": scope.Department,
		"recomputed": report.Recomputed,
		"skipped":    report.Skipped,
	})

	return report, nil
}

// =============================================================================
// READ PATHS - Consumed by reports/exports/UI
// =============================================================================

func (o *Orchestrator) GetCalculations(ctx context.Context, filter timeclock.CalculationFilter) ([]timeclock.HoursCalculation, error) {
	sctx, cancel := o.storeCtx(ctx)
	defer cancel()
	calcs, err := o.calcs.ListCalculations(sctx, filter)
	if err != nil {
		return nil, &timeclock.PersistenceError{Op: "ListCalculations", Err: err}
	}
	return calcs, nil
}

// GetTimeBank recomputes the collaborator's time-bank snapshot from the
// stored calculation series. Nothing is cached: a snapshot read after a
// retroactive correction always reflects it.
func (o *Orchestrator) GetTimeBank(ctx context.Context, collaborator timeclock.CollaboratorID, period timeclock.Period) (timeclock.TimeBankSnapshot, error) {
	calcs, err := o.GetCalculations(ctx, timeclock.CalculationFilter{Collaborator: collaborator, Period: period})
	if err != nil {
		return timeclock.TimeBankSnapshot{}, err
	}
	return timeclock.AggregateTimeBank(collaborator, calcs, period, o.excused), nil
}

// RecordExport writes the audit entry for an export performed by a
// report collaborator. The export itself (PDF, spreadsheet, CSV) happens
// outside this engine.
func (o *Orchestrator) RecordExport(ctx context.Context, kind, format string, filters map[string]any, actor timeclock.Actor) error {
	return o.appendAudit(ctx, timeclock.AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Action:    timeclock.AuditExport,
		EntityID:  kind,
		After: map[string]any{
			"kind":    kind,
			"format":  format,
			"filters": filters,
		},
	})
}

// =============================================================================
// INTERNALS
// =============================================================================

// recomputeLocked rebuilds one collaborator-day. Callers hold the key
// lock.
func (o *Orchestrator) recomputeLocked(ctx context.Context, punch timeclock.PunchRecord) (timeclock.HoursCalculation, error) {
	info, err := o.collaborator(ctx, punch.CollaboratorID)
	if err != nil {
		return timeclock.HoursCalculation{}, err
	}

	isHoliday := o.calendar.IsHoliday(punch.Date, info.Region)
	calc, err := timeclock.Compute(punch, *info, isHoliday, o.night)
	if err != nil {
		return timeclock.HoursCalculation{}, err
	}

	sctx, cancel := o.storeCtx(ctx)
	defer cancel()
	if err := o.calcs.SaveCalculation(sctx, calc); err != nil {
		return timeclock.HoursCalculation{}, &timeclock.PersistenceError{Op: "SaveCalculation", Err: err}
	}
	return calc, nil
}

func (o *Orchestrator) collaborator(ctx context.Context, id timeclock.CollaboratorID) (*timeclock.CollaboratorInfo, error) {
	sctx, cancel := o.storeCtx(ctx)
	defer cancel()
	info, err := o.directory.GetCollaborator(sctx, id)
	if err != nil {
		return nil, &timeclock.PersistenceError{Op: "GetCollaborator", Err: err}
	}
	if info == nil {
		return nil, &timeclock.NotFoundError{Kind: "collaborator", ID: string(id)}
	}
	return info, nil
}

func (o *Orchestrator) getPunch(ctx context.Context, id timeclock.PunchID) (*timeclock.PunchRecord, error) {
	sctx, cancel := o.storeCtx(ctx)
	defer cancel()
	punch, err := o.punches.GetPunch(sctx, id)
	if err != nil {
		return nil, &timeclock.PersistenceError{Op: "GetPunch", Err: err}
	}
	if punch == nil {
		return nil, &timeclock.NotFoundError{Kind: "punch", ID: string(id)}
	}
	return punch, nil
}

func (o *Orchestrator) savePunch(ctx context.Context, punch timeclock.PunchRecord) error {
	sctx, cancel := o.storeCtx(ctx)
	defer cancel()
	if err := o.punches.SavePunch(sctx, punch); err != nil {
		return &timeclock.PersistenceError{Op: "SavePunch", Err: err}
	}
	return nil
}

func (o *Orchestrator) listPunches(ctx context.Context, id timeclock.CollaboratorID, period timeclock.Period) ([]timeclock.PunchRecord, error) {
	sctx, cancel := o.storeCtx(ctx)
	defer cancel()
	punches, err := o.punches.ListPunches(sctx, id, period)
	if err != nil {
		return nil, &timeclock.PersistenceError{Op: "ListPunches", Err: err}
	}
	return punches, nil
}

func (o *Orchestrator) listCollaborators(ctx context.Context) ([]timeclock.CollaboratorInfo, error) {
	sctx, cancel := o.storeCtx(ctx)
	defer cancel()
	infos, err := o.directory.ListCollaborators(sctx)
	if err != nil {
		return nil, &timeclock.PersistenceError{Op: "ListCollaborators", Err: err}
	}
	return infos, nil
}

func (o *Orchestrator) appendAudit(ctx context.Context, entry timeclock.AuditEntry) error {
	sctx, cancel := o.storeCtx(ctx)
	defer cancel()
	if err := o.audit.Append(sctx, entry); err != nil {
		return &timeclock.PersistenceError{Op: "AuditAppend", Err: err}
	}
	return nil
}

func (o *Orchestrator) publish(eventType string, payload map[string]any) {
	if o.events != nil {
		o.events.Publish(eventType, payload)
	}
}

func (o *Orchestrator) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.timeout)
}

func punchSnapshot(punch timeclock.PunchRecord) map[string]any {
	snap := map[string]any{
		"collaborator": string(punch.CollaboratorID),
		"date":         punch.Date.String(),
		"entry":        punch.Entry.String(),
		"corrected":    punch.Corrected,
	}
	if punch.Exit != nil {
		snap["exit"] = punch.Exit.String()
	}
	if punch.BreakStart != nil && punch.BreakEnd != nil {
		snap["break_start"] = punch.BreakStart.String()
		snap["break_end"] = punch.BreakEnd.String()
	}
	return snap
}

// =============================================================================
// KEYED LOCKS - At-most-one in-flight recompute per collaborator-day
// =============================================================================

type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock is reference-counted so the map only holds keys with a
// holder or a waiter; the process is long-lived and the key space
// (every collaborator-day ever touched) is unbounded.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedLocks) lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
