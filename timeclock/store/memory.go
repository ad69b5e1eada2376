// Package store provides in-memory implementations of the timeclock
// persistence and collaborator interfaces, used in tests and development.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/warp/timeclock-engine/timeclock"
)

// =============================================================================
// MEMORY STORE - Punches, calculations, limits, runs
// =============================================================================

type calcKey struct {
	Collaborator timeclock.CollaboratorID
	Date         string
}

// Memory implements PunchStore, CalculationStore, LimitStore, and
// RunStore with map-backed state behind a single RWMutex.
type Memory struct {
	mu           sync.RWMutex
	punches      map[timeclock.PunchID]timeclock.PunchRecord
	calculations map[calcKey]timeclock.HoursCalculation
	limits       map[string]timeclock.OvertimeLimit
	runs         map[string]timeclock.RecalcRun
}

func NewMemory() *Memory {
	return &Memory{
		punches:      make(map[timeclock.PunchID]timeclock.PunchRecord),
		calculations: make(map[calcKey]timeclock.HoursCalculation),
		limits:       make(map[string]timeclock.OvertimeLimit),
		runs:         make(map[string]timeclock.RecalcRun),
	}
}

func (m *Memory) SavePunch(_ context.Context, punch timeclock.PunchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.punches[punch.ID] = punch
	return nil
}

func (m *Memory) GetPunch(_ context.Context, id timeclock.PunchID) (*timeclock.PunchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	punch, ok := m.punches[id]
	if !ok {
		return nil, nil
	}
	p := punch
	return &p, nil
}

func (m *Memory) ListPunches(_ context.Context, collaborator timeclock.CollaboratorID, period timeclock.Period) ([]timeclock.PunchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []timeclock.PunchRecord
	for _, punch := range m.punches {
		if punch.CollaboratorID != collaborator {
			continue
		}
		if !period.IsZero() && !period.Contains(punch.Date) {
			continue
		}
		result = append(result, punch)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *Memory) SaveCalculation(_ context.Context, calc timeclock.HoursCalculation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calculations[calcKey{calc.CollaboratorID, calc.Date.String()}] = calc
	return nil
}

func (m *Memory) GetCalculation(_ context.Context, collaborator timeclock.CollaboratorID, date timeclock.Date) (*timeclock.HoursCalculation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calc, ok := m.calculations[calcKey{collaborator, date.String()}]
	if !ok {
		return nil, nil
	}
	c := calc
	return &c, nil
}

func (m *Memory) ListCalculations(_ context.Context, filter timeclock.CalculationFilter) ([]timeclock.HoursCalculation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []timeclock.HoursCalculation
	for _, calc := range m.calculations {
		if filter.Collaborator != "" && calc.CollaboratorID != filter.Collaborator {
			continue
		}
		if filter.Department != "" && calc.Department != filter.Department {
			continue
		}
		if !filter.Period.IsZero() && !filter.Period.Contains(calc.Date) {
			continue
		}
		result = append(result, calc)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CollaboratorID != result[j].CollaboratorID {
			return result[i].CollaboratorID < result[j].CollaboratorID
		}
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

func (m *Memory) SaveLimit(_ context.Context, limit timeclock.OvertimeLimit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits[limit.Department] = limit
	return nil
}

func (m *Memory) GetLimit(_ context.Context, department string) (*timeclock.OvertimeLimit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	limit, ok := m.limits[department]
	if !ok {
		return nil, nil
	}
	l := limit
	return &l, nil
}

func (m *Memory) ListLimits(_ context.Context) ([]timeclock.OvertimeLimit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]timeclock.OvertimeLimit, 0, len(m.limits))
	for _, limit := range m.limits {
		result = append(result, limit)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Department < result[j].Department })
	return result, nil
}

func (m *Memory) SaveRun(_ context.Context, run timeclock.RecalcRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *Memory) ListRuns(_ context.Context, department string) ([]timeclock.RecalcRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []timeclock.RecalcRun
	for _, run := range m.runs {
		if department != "" && run.Department != department {
			continue
		}
		result = append(result, run)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartedAt.After(result[j].StartedAt) })
	return result, nil
}

// =============================================================================
// RING AUDIT LOG - Bounded, FIFO eviction
// =============================================================================

// RingAuditLog keeps at most cap entries; appending past the cap drops
// the oldest entry first.
type RingAuditLog struct {
	mu      sync.RWMutex
	entries []timeclock.AuditEntry
	cap     int
}

func NewRingAuditLog(cap int) *RingAuditLog {
	if cap <= 0 {
		cap = timeclock.DefaultAuditCap
	}
	return &RingAuditLog{cap: cap}
}

func (r *RingAuditLog) Append(_ context.Context, entry timeclock.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	if len(r.entries) > r.cap {
		r.entries = r.entries[len(r.entries)-r.cap:]
	}
	return nil
}

// Query returns matching entries newest-first.
func (r *RingAuditLog) Query(_ context.Context, filter timeclock.AuditFilter) ([]timeclock.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []timeclock.AuditEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if MatchAuditFilter(r.entries[i], filter) {
			result = append(result, r.entries[i])
		}
	}
	return result, nil
}

// Len reports the number of retained entries.
func (r *RingAuditLog) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// MatchAuditFilter reports whether an entry passes a filter. Shared by
// the memory ring and by tests asserting on eviction behavior.
func MatchAuditFilter(entry timeclock.AuditEntry, filter timeclock.AuditFilter) bool {
	if filter.From != nil && entry.Timestamp.Before(*filter.From) {
		return false
	}
	if filter.To != nil && entry.Timestamp.After(*filter.To) {
		return false
	}
	if filter.ActorID != "" && entry.ActorID != filter.ActorID {
		return false
	}
	if filter.Department != "" && entry.Department != filter.Department {
		return false
	}
	if len(filter.Actions) > 0 {
		found := false
		for _, action := range filter.Actions {
			if entry.Action == action {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.FreeText != "" {
		needle := strings.ToLower(filter.FreeText)
		haystack := strings.ToLower(entry.EntityID + " " + entry.ActorName + " " + snapshotText(entry.Before) + " " + snapshotText(entry.After))
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

func snapshotText(snapshot map[string]any) string {
	var sb strings.Builder
	for k, v := range snapshot {
		sb.WriteString(k)
		sb.WriteByte(' ')
		if s, ok := v.(string); ok {
			sb.WriteString(s)
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// =============================================================================
// FAN-OUT PUBLISHER - Enumerable, testable event channel
// =============================================================================

// Event is one published notification.
type Event struct {
	Type    string
	Payload map[string]any
}

// FanoutPublisher delivers events to registered subscriber channels and
// keeps a bounded history for inspection. Delivery never blocks: a
// subscriber with a full channel misses the event.
type FanoutPublisher struct {
	mu          sync.Mutex
	subscribers []chan Event
	history     []Event
}

func NewFanoutPublisher() *FanoutPublisher { return &FanoutPublisher{} }

func (p *FanoutPublisher) Publish(eventType string, payload map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	event := Event{Type: eventType, Payload: payload}
	p.history = append(p.history, event)
	if len(p.history) > 1000 {
		p.history = p.history[len(p.history)-1000:]
	}
	for _, sub := range p.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// Subscribe registers a buffered channel receiving future events.
func (p *FanoutPublisher) Subscribe() <-chan Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan Event, 64)
	p.subscribers = append(p.subscribers, ch)
	return ch
}

// Events returns a copy of the published history.
func (p *FanoutPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.history...)
}

// =============================================================================
// STATIC REFERENCE DATA - Directory, calendar, excused absences
// =============================================================================

// StaticDirectory is a fixed in-memory collaborator directory.
type StaticDirectory struct {
	mu            sync.RWMutex
	collaborators map[timeclock.CollaboratorID]timeclock.CollaboratorInfo
}

func NewStaticDirectory(infos ...timeclock.CollaboratorInfo) *StaticDirectory {
	d := &StaticDirectory{collaborators: make(map[timeclock.CollaboratorID]timeclock.CollaboratorInfo)}
	for _, info := range infos {
		d.collaborators[info.ID] = info
	}
	return d
}

func (d *StaticDirectory) Add(info timeclock.CollaboratorInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.collaborators[info.ID] = info
}

func (d *StaticDirectory) GetCollaborator(_ context.Context, id timeclock.CollaboratorID) (*timeclock.CollaboratorInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	info, ok := d.collaborators[id]
	if !ok {
		return nil, nil
	}
	c := info
	return &c, nil
}

func (d *StaticDirectory) ListCollaborators(_ context.Context) ([]timeclock.CollaboratorInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	result := make([]timeclock.CollaboratorInfo, 0, len(d.collaborators))
	for _, info := range d.collaborators {
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// MapCalendar marks specific dates as holidays, optionally per region.
// An entry under the empty region applies everywhere.
type MapCalendar struct {
	mu       sync.RWMutex
	holidays map[string]map[string]bool // region -> date -> true
}

func NewMapCalendar() *MapCalendar {
	return &MapCalendar{holidays: make(map[string]map[string]bool)}
}

func (c *MapCalendar) AddHoliday(date timeclock.Date, region string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.holidays[region] == nil {
		c.holidays[region] = make(map[string]bool)
	}
	c.holidays[region][date.String()] = true
}

func (c *MapCalendar) IsHoliday(date timeclock.Date, region string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.holidays[""][date.String()] || c.holidays[region][date.String()]
}

// ExcusedSet excuses specific (collaborator, date) absences.
type ExcusedSet struct {
	mu      sync.RWMutex
	excused map[string]bool
}

func NewExcusedSet() *ExcusedSet { return &ExcusedSet{excused: make(map[string]bool)} }

func (e *ExcusedSet) Excuse(id timeclock.CollaboratorID, date timeclock.Date) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.excused[string(id)+"@"+date.String()] = true
}

func (e *ExcusedSet) IsExcused(id timeclock.CollaboratorID, date timeclock.Date) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.excused[string(id)+"@"+date.String()]
}
