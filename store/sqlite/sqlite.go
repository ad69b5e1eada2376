/*
Package sqlite provides the SQLite-backed implementation of the
timeclock storage interfaces.

PURPOSE:
  Implements PunchStore, CalculationStore, LimitStore, AuditLog,
  RunStore, CollaboratorDirectory, and HolidayCalendar on one SQLite
  database. The same SQL shapes port to PostgreSQL with only dialect
  changes.

KEY TABLES:
  punches:       Raw collaborator-day punch records
  calculations:  Materialized HoursCalculation rows, keyed (collaborator, date)
  limits:        Per-department overtime ceilings
  audit_log:     Append-only, size-bounded mutation history
  collaborators: Directory reference data
  holidays:      Region-aware holiday calendar
  recalc_runs:   Bulk recalculation job records

AUDIT RETENTION:
  The audit cap is enforced at append time: when an insert pushes the
  table past the cap, the oldest rows are deleted first. Eviction order
  is timestamp then insertion id, so it is deterministic under test.

AMOUNTS AND TIMES:
  Hour quantities are stored as decimal strings (never floats), clock
  times as "HH:MM", dates as "YYYY-MM-DD". Timestamps are RFC3339 UTC.

CONCURRENCY:
  WAL mode plus a sync.RWMutex. Multiple readers don't block; a single
  writer at a time matches the engine's single-logical-writer model.

USAGE:
  store, err := sqlite.New("./data/timeclock.db")
  if err != nil { ... }
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/timeclock-engine/timeclock"
)

// Store implements every timeclock storage interface using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	// AuditCap bounds retained audit entries. Change before first use.
	AuditCap int
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, AuditCap: timeclock.DefaultAuditCap}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS punches (
		id TEXT PRIMARY KEY,
		collaborator_id TEXT NOT NULL,
		date TEXT NOT NULL,
		entry TEXT NOT NULL,
		exit TEXT,
		break_start TEXT,
		break_end TEXT,
		corrected INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_punches_collaborator_date
		ON punches(collaborator_id, date);

	CREATE TABLE IF NOT EXISTS calculations (
		collaborator_id TEXT NOT NULL,
		date TEXT NOT NULL,
		department TEXT NOT NULL,
		worked_hours TEXT NOT NULL,
		contracted_hours TEXT NOT NULL,
		ot_total TEXT NOT NULL,
		ot_diurnal TEXT NOT NULL,
		ot_nocturnal TEXT NOT NULL,
		ot_holiday TEXT NOT NULL,
		lateness_minutes INTEGER NOT NULL DEFAULT 0,
		is_holiday INTEGER NOT NULL DEFAULT 0,
		is_weekend INTEGER NOT NULL DEFAULT 0,
		absent INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (collaborator_id, date)
	);

	CREATE INDEX IF NOT EXISTS idx_calculations_department_date
		ON calculations(department, date);

	CREATE TABLE IF NOT EXISTS limits (
		department TEXT PRIMARY KEY,
		daily_limit_hours TEXT NOT NULL,
		monthly_limit_hours TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		updated_by TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		ts TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_name TEXT,
		action TEXT NOT NULL,
		entity_id TEXT,
		department TEXT,
		before_json TEXT,
		after_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_log(ts DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_log(action);
	CREATE INDEX IF NOT EXISTS idx_audit_department ON audit_log(department);

	CREATE TABLE IF NOT EXISTS collaborators (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		department TEXT NOT NULL,
		contracted_hours TEXT NOT NULL,
		scheduled_entry TEXT NOT NULL,
		region TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_collaborators_department
		ON collaborators(department);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		region TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring INTEGER NOT NULL DEFAULT 0
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(region, date, name);

	CREATE TABLE IF NOT EXISTS recalc_runs (
		id TEXT PRIMARY KEY,
		department TEXT NOT NULL,
		period_start TEXT,
		period_end TEXT,
		status TEXT NOT NULL,
		recomputed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		error_count INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_recalc_runs_department
		ON recalc_runs(department, started_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PUNCH STORE
// =============================================================================

func (s *Store) SavePunch(ctx context.Context, punch timeclock.PunchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO punches
		(id, collaborator_id, date, entry, exit, break_start, break_end, corrected, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			entry = excluded.entry,
			exit = excluded.exit,
			break_start = excluded.break_start,
			break_end = excluded.break_end,
			corrected = excluded.corrected,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		punch.ID,
		punch.CollaboratorID,
		punch.Date.String(),
		punch.Entry.String(),
		clockPtr(punch.Exit),
		clockPtr(punch.BreakStart),
		clockPtr(punch.BreakEnd),
		punch.Corrected,
		punch.CreatedAt.UTC().Format(time.RFC3339),
		punch.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save punch: %w", err)
	}
	return nil
}

func (s *Store) GetPunch(ctx context.Context, id timeclock.PunchID) (*timeclock.PunchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, collaborator_id, date, entry, exit, break_start, break_end, corrected, created_at, updated_at
		FROM punches WHERE id = ?
	`, id)

	punch, err := scanPunch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return punch, nil
}

func (s *Store) ListPunches(ctx context.Context, collaborator timeclock.CollaboratorID, period timeclock.Period) ([]timeclock.PunchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, collaborator_id, date, entry, exit, break_start, break_end, corrected, created_at, updated_at
		FROM punches WHERE collaborator_id = ?
	`
	args := []any{collaborator}
	if !period.IsZero() {
		query += " AND date >= ? AND date <= ?"
		args = append(args, period.Start.String(), period.End.String())
	}
	query += " ORDER BY date ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query punches: %w", err)
	}
	defer rows.Close()

	var punches []timeclock.PunchRecord
	for rows.Next() {
		punch, err := scanPunch(rows)
		if err != nil {
			return nil, err
		}
		punches = append(punches, *punch)
	}
	return punches, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPunch(row rowScanner) (*timeclock.PunchRecord, error) {
	var (
		punch                     timeclock.PunchRecord
		date                      string
		entry                     string
		exit, brStart, brEnd      sql.NullString
		createdAt, updatedAt      string
	)
	err := row.Scan(&punch.ID, &punch.CollaboratorID, &date, &entry,
		&exit, &brStart, &brEnd, &punch.Corrected, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	punch.Date, err = timeclock.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("corrupt punch date %q: %w", date, err)
	}
	punch.Entry, err = timeclock.ParseClockTime(entry)
	if err != nil {
		return nil, fmt.Errorf("corrupt punch entry %q: %w", entry, err)
	}
	punch.Exit, err = parseClockPtr(exit)
	if err != nil {
		return nil, err
	}
	punch.BreakStart, err = parseClockPtr(brStart)
	if err != nil {
		return nil, err
	}
	punch.BreakEnd, err = parseClockPtr(brEnd)
	if err != nil {
		return nil, err
	}
	punch.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	punch.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &punch, nil
}

// =============================================================================
// CALCULATION STORE
// =============================================================================

func (s *Store) SaveCalculation(ctx context.Context, calc timeclock.HoursCalculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO calculations
		(collaborator_id, date, department, worked_hours, contracted_hours,
		 ot_total, ot_diurnal, ot_nocturnal, ot_holiday,
		 lateness_minutes, is_holiday, is_weekend, absent, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collaborator_id, date) DO UPDATE SET
			department = excluded.department,
			worked_hours = excluded.worked_hours,
			contracted_hours = excluded.contracted_hours,
			ot_total = excluded.ot_total,
			ot_diurnal = excluded.ot_diurnal,
			ot_nocturnal = excluded.ot_nocturnal,
			ot_holiday = excluded.ot_holiday,
			lateness_minutes = excluded.lateness_minutes,
			is_holiday = excluded.is_holiday,
			is_weekend = excluded.is_weekend,
			absent = excluded.absent,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		calc.CollaboratorID,
		calc.Date.String(),
		calc.Department,
		calc.WorkedHours.String(),
		calc.ContractedHours.String(),
		calc.Overtime.Total.String(),
		calc.Overtime.Diurnal.String(),
		calc.Overtime.Nocturnal.String(),
		calc.Overtime.Holiday.String(),
		calc.LatenessMinutes,
		calc.IsHoliday,
		calc.IsWeekend,
		calc.Absent,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save calculation: %w", err)
	}
	return nil
}

func (s *Store) GetCalculation(ctx context.Context, collaborator timeclock.CollaboratorID, date timeclock.Date) (*timeclock.HoursCalculation, error) {
	calcs, err := s.ListCalculations(ctx, timeclock.CalculationFilter{
		Collaborator: collaborator,
		Period:       timeclock.Period{Start: date, End: date},
	})
	if err != nil {
		return nil, err
	}
	if len(calcs) == 0 {
		return nil, nil
	}
	return &calcs[0], nil
}

func (s *Store) ListCalculations(ctx context.Context, filter timeclock.CalculationFilter) ([]timeclock.HoursCalculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT collaborator_id, date, department, worked_hours, contracted_hours,
		       ot_total, ot_diurnal, ot_nocturnal, ot_holiday,
		       lateness_minutes, is_holiday, is_weekend, absent
		FROM calculations WHERE 1=1
	`
	var args []any
	if filter.Collaborator != "" {
		query += " AND collaborator_id = ?"
		args = append(args, filter.Collaborator)
	}
	if filter.Department != "" {
		query += " AND department = ?"
		args = append(args, filter.Department)
	}
	if !filter.Period.IsZero() {
		query += " AND date >= ? AND date <= ?"
		args = append(args, filter.Period.Start.String(), filter.Period.End.String())
	}
	query += " ORDER BY collaborator_id ASC, date ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query calculations: %w", err)
	}
	defer rows.Close()

	var calcs []timeclock.HoursCalculation
	for rows.Next() {
		var (
			calc                              timeclock.HoursCalculation
			date                              string
			worked, contracted                string
			otTotal, otDiurnal                string
			otNocturnal, otHoliday            string
		)
		err := rows.Scan(&calc.CollaboratorID, &date, &calc.Department,
			&worked, &contracted, &otTotal, &otDiurnal, &otNocturnal, &otHoliday,
			&calc.LatenessMinutes, &calc.IsHoliday, &calc.IsWeekend, &calc.Absent)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calculation: %w", err)
		}
		calc.Date, err = timeclock.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("corrupt calculation date %q: %w", date, err)
		}
		calc.WorkedHours = parseHours(worked)
		calc.ContractedHours = parseHours(contracted)
		calc.Overtime = timeclock.OvertimeBreakdown{
			Total:     parseHours(otTotal),
			Diurnal:   parseHours(otDiurnal),
			Nocturnal: parseHours(otNocturnal),
			Holiday:   parseHours(otHoliday),
		}
		calcs = append(calcs, calc)
	}
	return calcs, rows.Err()
}

// =============================================================================
// LIMIT STORE
// =============================================================================

func (s *Store) SaveLimit(ctx context.Context, limit timeclock.OvertimeLimit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO limits (department, daily_limit_hours, monthly_limit_hours, updated_at, updated_by)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(department) DO UPDATE SET
			daily_limit_hours = excluded.daily_limit_hours,
			monthly_limit_hours = excluded.monthly_limit_hours,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by
	`
	_, err := s.db.ExecContext(ctx, query,
		limit.Department,
		limit.DailyLimitHours.String(),
		limit.MonthlyLimitHours.String(),
		limit.UpdatedAt.UTC().Format(time.RFC3339),
		limit.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save limit: %w", err)
	}
	return nil
}

func (s *Store) GetLimit(ctx context.Context, department string) (*timeclock.OvertimeLimit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT department, daily_limit_hours, monthly_limit_hours, updated_at, updated_by
		FROM limits WHERE department = ?
	`, department)

	limit, err := scanLimit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return limit, nil
}

func (s *Store) ListLimits(ctx context.Context) ([]timeclock.OvertimeLimit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT department, daily_limit_hours, monthly_limit_hours, updated_at, updated_by
		FROM limits ORDER BY department ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query limits: %w", err)
	}
	defer rows.Close()

	var limits []timeclock.OvertimeLimit
	for rows.Next() {
		limit, err := scanLimit(rows)
		if err != nil {
			return nil, err
		}
		limits = append(limits, *limit)
	}
	return limits, rows.Err()
}

func scanLimit(row rowScanner) (*timeclock.OvertimeLimit, error) {
	var (
		limit          timeclock.OvertimeLimit
		daily, monthly string
		updatedAt      string
	)
	if err := row.Scan(&limit.Department, &daily, &monthly, &updatedAt, &limit.UpdatedBy); err != nil {
		return nil, err
	}
	limit.DailyLimitHours = parseHours(daily)
	limit.MonthlyLimitHours = parseHours(monthly)
	limit.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &limit, nil
}

// =============================================================================
// AUDIT LOG - Append-only, cap enforced at append time
// =============================================================================

func (s *Store) Append(ctx context.Context, entry timeclock.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	beforeJSON, _ := json.Marshal(entry.Before)
	afterJSON, _ := json.Marshal(entry.After)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, ts, actor_id, actor_name, action, entity_id, department, before_json, after_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		entry.ActorID,
		entry.ActorName,
		entry.Action,
		entry.EntityID,
		entry.Department,
		string(beforeJSON),
		string(afterJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	// Retention: evict oldest rows beyond the cap, FIFO.
	_, err = s.db.ExecContext(ctx, `
		DELETE FROM audit_log WHERE seq NOT IN (
			SELECT seq FROM audit_log ORDER BY seq DESC LIMIT ?
		)
	`, s.AuditCap)
	if err != nil {
		return fmt.Errorf("failed to apply audit retention: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, filter timeclock.AuditFilter) ([]timeclock.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, ts, actor_id, actor_name, action, entity_id, department, before_json, after_json
		FROM audit_log WHERE 1=1
	`
	var args []any
	if filter.From != nil {
		query += " AND ts >= ?"
		args = append(args, filter.From.UTC().Format(time.RFC3339Nano))
	}
	if filter.To != nil {
		query += " AND ts <= ?"
		args = append(args, filter.To.UTC().Format(time.RFC3339Nano))
	}
	if filter.ActorID != "" {
		query += " AND actor_id = ?"
		args = append(args, filter.ActorID)
	}
	if filter.Department != "" {
		query += " AND department = ?"
		args = append(args, filter.Department)
	}
	if len(filter.Actions) > 0 {
		query += " AND action IN (?" + repeat(",?", len(filter.Actions)-1) + ")"
		for _, action := range filter.Actions {
			args = append(args, action)
		}
	}
	if filter.FreeText != "" {
		query += " AND (entity_id LIKE ? OR actor_name LIKE ? OR before_json LIKE ? OR after_json LIKE ?)"
		needle := "%" + filter.FreeText + "%"
		args = append(args, needle, needle, needle, needle)
	}
	query += " ORDER BY seq DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []timeclock.AuditEntry
	for rows.Next() {
		var (
			entry                  timeclock.AuditEntry
			ts                     string
			beforeJSON, afterJSON  sql.NullString
		)
		err := rows.Scan(&entry.ID, &ts, &entry.ActorID, &entry.ActorName,
			&entry.Action, &entry.EntityID, &entry.Department, &beforeJSON, &afterJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		if beforeJSON.Valid && beforeJSON.String != "" && beforeJSON.String != "null" {
			json.Unmarshal([]byte(beforeJSON.String), &entry.Before)
		}
		if afterJSON.Valid && afterJSON.String != "" && afterJSON.String != "null" {
			json.Unmarshal([]byte(afterJSON.String), &entry.After)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// AuditCount reports retained audit entries (for retention tests).
func (s *Store) AuditCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log").Scan(&count)
	return count, err
}

// =============================================================================
// COLLABORATOR DIRECTORY
// =============================================================================

func (s *Store) SaveCollaborator(ctx context.Context, info timeclock.CollaboratorInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO collaborators (id, name, department, contracted_hours, scheduled_entry, region, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			department = excluded.department,
			contracted_hours = excluded.contracted_hours,
			scheduled_entry = excluded.scheduled_entry,
			region = excluded.region
	`
	_, err := s.db.ExecContext(ctx, query,
		info.ID,
		info.Name,
		info.Department,
		info.ContractedHours.String(),
		info.ScheduledEntry.String(),
		info.Region,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save collaborator: %w", err)
	}
	return nil
}

func (s *Store) GetCollaborator(ctx context.Context, id timeclock.CollaboratorID) (*timeclock.CollaboratorInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, department, contracted_hours, scheduled_entry, region
		FROM collaborators WHERE id = ?
	`, id)

	info, err := scanCollaborator(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (s *Store) ListCollaborators(ctx context.Context) ([]timeclock.CollaboratorInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, department, contracted_hours, scheduled_entry, region
		FROM collaborators ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query collaborators: %w", err)
	}
	defer rows.Close()

	var infos []timeclock.CollaboratorInfo
	for rows.Next() {
		info, err := scanCollaborator(rows)
		if err != nil {
			return nil, err
		}
		infos = append(infos, *info)
	}
	return infos, rows.Err()
}

func scanCollaborator(row rowScanner) (*timeclock.CollaboratorInfo, error) {
	var (
		info       timeclock.CollaboratorInfo
		contracted string
		scheduled  string
	)
	if err := row.Scan(&info.ID, &info.Name, &info.Department, &contracted, &scheduled, &info.Region); err != nil {
		return nil, err
	}
	info.ContractedHours = parseHours(contracted)
	entry, err := timeclock.ParseClockTime(scheduled)
	if err != nil {
		return nil, fmt.Errorf("corrupt scheduled entry %q: %w", scheduled, err)
	}
	info.ScheduledEntry = entry
	return &info, nil
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// Holiday is one calendar entry. A recurring holiday matches its
// month-day every year; an empty region applies everywhere.
type Holiday struct {
	ID        string
	Region    string
	Date      timeclock.Date
	Name      string
	Recurring bool
}

func (s *Store) SaveHoliday(ctx context.Context, h Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, region, date, name, recurring)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(region, date, name) DO NOTHING
	`, h.ID, h.Region, h.Date.String(), h.Name, h.Recurring)
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	return err
}

func (s *Store) ListHolidays(ctx context.Context, region string) ([]Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, region, date, name, recurring FROM holidays
		WHERE region = '' OR region = ?
		ORDER BY date ASC
	`, region)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []Holiday
	for rows.Next() {
		var (
			h    Holiday
			date string
		)
		if err := rows.Scan(&h.ID, &h.Region, &date, &h.Name, &h.Recurring); err != nil {
			return nil, err
		}
		h.Date, err = timeclock.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("corrupt holiday date %q: %w", date, err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// IsHoliday implements timeclock.HolidayCalendar. Recurring holidays
// match on month and day regardless of year.
func (s *Store) IsHoliday(date timeclock.Date, region string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM holidays
		WHERE (region = '' OR region = ?)
		  AND (date = ? OR (recurring = 1 AND substr(date, 6) = substr(?, 6)))
	`, region, date.String(), date.String()).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

// =============================================================================
// RECALCULATION RUNS
// =============================================================================

func (s *Store) SaveRun(ctx context.Context, run timeclock.RecalcRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completedAt any
	if run.CompletedAt != nil {
		completedAt = run.CompletedAt.UTC().Format(time.RFC3339)
	}

	query := `
		INSERT INTO recalc_runs
		(id, department, period_start, period_end, status, recomputed, skipped, error_count, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			recomputed = excluded.recomputed,
			skipped = excluded.skipped,
			error_count = excluded.error_count,
			error = excluded.error,
			completed_at = excluded.completed_at
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Department,
		periodBound(run.Period.Start),
		periodBound(run.Period.End),
		run.Status,
		run.Recomputed,
		run.Skipped,
		run.ErrorCount,
		run.Error,
		run.StartedAt.UTC().Format(time.RFC3339),
		completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save recalculation run: %w", err)
	}
	return nil
}

func (s *Store) ListRuns(ctx context.Context, department string) ([]timeclock.RecalcRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, department, period_start, period_end, status, recomputed, skipped, error_count, error, started_at, completed_at
		FROM recalc_runs
	`
	var args []any
	if department != "" {
		query += " WHERE department = ?"
		args = append(args, department)
	}
	query += " ORDER BY started_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recalculation runs: %w", err)
	}
	defer rows.Close()

	var runs []timeclock.RecalcRun
	for rows.Next() {
		var (
			run                     timeclock.RecalcRun
			periodStart, periodEnd  sql.NullString
			errText                 sql.NullString
			startedAt               string
			completedAt             sql.NullString
		)
		err := rows.Scan(&run.ID, &run.Department, &periodStart, &periodEnd,
			&run.Status, &run.Recomputed, &run.Skipped, &run.ErrorCount,
			&errText, &startedAt, &completedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recalculation run: %w", err)
		}
		if periodStart.Valid && periodStart.String != "" {
			run.Period.Start, _ = timeclock.ParseDate(periodStart.String)
		}
		if periodEnd.Valid && periodEnd.String != "" {
			run.Period.End, _ = timeclock.ParseDate(periodEnd.String)
		}
		run.Error = errText.String
		run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339, completedAt.String)
			run.CompletedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func clockPtr(c *timeclock.ClockTime) any {
	if c == nil {
		return nil
	}
	return c.String()
}

func parseClockPtr(ns sql.NullString) (*timeclock.ClockTime, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	c, err := timeclock.ParseClockTime(ns.String)
	if err != nil {
		return nil, fmt.Errorf("corrupt clock time %q: %w", ns.String, err)
	}
	return &c, nil
}

func parseHours(value string) timeclock.Hours {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return timeclock.ZeroHours()
	}
	return timeclock.Hours{Value: d}
}

func periodBound(d timeclock.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
