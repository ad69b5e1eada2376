/*
store.go - Persistence and collaborator interfaces

PURPOSE:
  Defines the contracts between the engine and the outside world: the
  durable store for punches/calculations/limits, the size-bounded audit
  log, the fire-and-forget event channel, and the read-only reference
  collaborators (directory, holiday calendar, absence justification).

STORE CONTRACT:
  The engine assumes single-key atomicity and nothing more: each Save is
  an atomic upsert of one record. No cross-record transactions are
  required because every derived record is recomputed wholesale from its
  source of truth.

  Persistence calls are the engine's only suspension points. Callers
  bound them with context timeouts; failures surface as PersistenceError
  and abort only the operation that triggered them.

AUDIT LOG:
  Append-only and size-bounded: appending past the cap evicts the oldest
  entries first. Eviction is part of the contract, not an implementation
  accident, so both the memory ring buffer and the sqlite retention
  policy are tested against it.

IMPLEMENTATIONS:
  - timeclock/store: in-memory (tests, development)
  - store/sqlite: durable SQLite store
*/
package timeclock

import (
	"context"
	"time"
)

// =============================================================================
// PUNCHES
// =============================================================================

// PunchStore persists raw punch records. Punches are mutated only by the
// correction orchestrator; SavePunch upserts by punch ID.
type PunchStore interface {
	SavePunch(ctx context.Context, punch PunchRecord) error
	GetPunch(ctx context.Context, id PunchID) (*PunchRecord, error)

	// ListPunches returns a collaborator's punches within the period,
	// ordered by date ascending.
	ListPunches(ctx context.Context, collaborator CollaboratorID, period Period) ([]PunchRecord, error)
}

// =============================================================================
// CALCULATIONS
// =============================================================================

// CalculationFilter scopes calculation reads. Zero fields match all.
type CalculationFilter struct {
	Collaborator CollaboratorID
	Department   string
	Period       Period // zero period matches all dates
}

// CalculationStore persists materialized HoursCalculation rows, keyed by
// (collaborator, date). SaveCalculation replaces the whole row.
type CalculationStore interface {
	SaveCalculation(ctx context.Context, calc HoursCalculation) error
	GetCalculation(ctx context.Context, collaborator CollaboratorID, date Date) (*HoursCalculation, error)
	ListCalculations(ctx context.Context, filter CalculationFilter) ([]HoursCalculation, error)
}

// =============================================================================
// LIMITS
// =============================================================================

// LimitStore persists per-department overtime limits.
type LimitStore interface {
	SaveLimit(ctx context.Context, limit OvertimeLimit) error

	// GetLimit returns nil (no error) when the department has no
	// configured limit.
	GetLimit(ctx context.Context, department string) (*OvertimeLimit, error)
	ListLimits(ctx context.Context) ([]OvertimeLimit, error)
}

// =============================================================================
// AUDIT LOG - Append-only, size-bounded
// =============================================================================

type AuditAction string

const (
	AuditCorrection AuditAction = "correction"
	AuditLimitSet   AuditAction = "limit_set"
	AuditLimitReset AuditAction = "limit_reset"
	AuditExport     AuditAction = "export"
)

// DefaultAuditCap is the bound on retained audit entries. When an append
// would exceed it, the oldest entries are evicted first.
const DefaultAuditCap = 10000

// AuditEntry records who changed what. Before/After hold snapshots of
// the affected entity around the mutation; once written they are never
// touched again.
type AuditEntry struct {
	ID         string
	Timestamp  time.Time
	ActorID    string
	ActorName  string
	Action     AuditAction
	EntityID   string
	Department string
	Before     map[string]any
	After      map[string]any
}

// AuditFilter narrows a query. Zero fields match all entries.
type AuditFilter struct {
	From       *time.Time
	To         *time.Time
	ActorID    string
	Actions    []AuditAction
	Department string
	FreeText   string // matched against entity ID, actor name, and snapshots
}

// AuditLog stores audit entries, newest-first on query.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
	Query(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// =============================================================================
// RECALCULATION RUNS
// =============================================================================

// RecalcRun tracks one department-scoped recalculation job, for the
// report/UI collaborators that watch bulk recomputation progress.
type RecalcRun struct {
	ID          string
	Department  string
	Period      Period
	Status      string // "running", "completed", "canceled", "failed"
	Recomputed  int
	Skipped     int
	ErrorCount  int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

type RunStore interface {
	SaveRun(ctx context.Context, run RecalcRun) error
	ListRuns(ctx context.Context, department string) ([]RecalcRun, error)
}

// =============================================================================
// EVENTS - Fire-and-forget notification channel
// =============================================================================

const (
	EventLimitsChanged         = "limits_changed"
	EventRecalculationComplete = "recalculation_complete"
)

// Publisher signals engine mutations to UI/report collaborators. Publish
// never blocks the core and its delivery is not awaited.
type Publisher interface {
	Publish(eventType string, payload map[string]any)
}

// =============================================================================
// REFERENCE COLLABORATORS - Consumed, not implemented, by the engine
// =============================================================================

// CollaboratorDirectory answers contracted hours, department, and
// scheduled shift entry for a collaborator, plus enumeration for
// department-scoped recalculation.
type CollaboratorDirectory interface {
	GetCollaborator(ctx context.Context, id CollaboratorID) (*CollaboratorInfo, error)
	ListCollaborators(ctx context.Context) ([]CollaboratorInfo, error)
}

// HolidayCalendar answers "is date D a holiday in region R".
type HolidayCalendar interface {
	IsHoliday(date Date, region string) bool
}

// NoHolidays is a calendar with no holidays at all.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(Date, string) bool { return false }

// AbsenceJustifier reports whether an absence is excused. Excused absent
// days do not charge the contracted deficit to the time bank. The
// justification workflow itself lives outside this engine.
type AbsenceJustifier interface {
	IsExcused(id CollaboratorID, date Date) bool
}

// NoExcuses treats every absence as unexcused.
type NoExcuses struct{}

func (NoExcuses) IsExcused(CollaboratorID, Date) bool { return false }
