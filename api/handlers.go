/*
handlers.go - HTTP API handlers for the time accounting engine

PURPOSE:
  Exposes the punch/overtime/time-bank engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Punches:
    GET    /api/punches                 List punches for a collaborator
    POST   /api/punches                 Record a punch
    GET    /api/punches/{id}            Get one punch
    POST   /api/punches/{id}/correct    Correct a punch (reason required)

  Calculations:
    GET    /api/calculations            List materialized results
    GET    /api/timebank/{id}           Time-bank balance for a period

  Limits:
    GET    /api/limits                  Effective limits per department
    POST   /api/limits                  Set a department limit
    POST   /api/limits/{dept}/reset     Revert to defaults
    GET    /api/limits/history          Audit trail of limit changes

  Admin:
    POST   /api/recalculate             Schedule department recalculation
    GET    /api/recalc/runs             Recalculation job history
    POST   /api/exports                 Record an export event
    GET    /api/audit                   Query the audit trail

  Reference data:
    /api/collaborators, /api/holidays, /api/departments

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (orchestrator, limits engine, jobs)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal/persistence errors

SECURITY NOTE:
  No authentication middleware. Actor identity travels in request
  bodies; authenticating it is the deployment's concern.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/timeclock-engine/engine"
	"github.com/warp/timeclock-engine/store/sqlite"
	"github.com/warp/timeclock-engine/timeclock"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        *sqlite.Store
	Orchestrator *engine.Orchestrator
	Limits       *engine.LimitsEngine
	Jobs         *engine.JobManager
}

// NewHandler creates a new handler around the wired engine.
func NewHandler(store *sqlite.Store, orch *engine.Orchestrator, limits *engine.LimitsEngine, jobs *engine.JobManager) *Handler {
	return &Handler{
		Store:        store,
		Orchestrator: orch,
		Limits:       limits,
		Jobs:         jobs,
	}
}

// =============================================================================
// PUNCH HANDLERS
// =============================================================================

// RecordPunch records (or upserts) a collaborator-day punch.
func (h *Handler) RecordPunch(w http.ResponseWriter, r *http.Request) {
	var req RecordPunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	punch, err := punchFromRequest(req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	saved, err := h.Orchestrator.RecordPunch(r.Context(), punch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPunchDTO(saved))
}

func punchFromRequest(req RecordPunchRequest) (timeclock.PunchRecord, error) {
	if req.CollaboratorID == "" {
		return timeclock.PunchRecord{}, &timeclock.ValidationError{Field: "collaborator_id", Reason: "required"}
	}
	date, err := timeclock.ParseDate(req.Date)
	if err != nil {
		return timeclock.PunchRecord{}, err
	}
	entry, err := parseClockField("entry", req.Entry)
	if err != nil {
		return timeclock.PunchRecord{}, err
	}
	exit, err := parseOptionalClock("exit", req.Exit)
	if err != nil {
		return timeclock.PunchRecord{}, err
	}
	breakStart, err := parseOptionalClock("break_start", req.BreakStart)
	if err != nil {
		return timeclock.PunchRecord{}, err
	}
	breakEnd, err := parseOptionalClock("break_end", req.BreakEnd)
	if err != nil {
		return timeclock.PunchRecord{}, err
	}

	return timeclock.PunchRecord{
		CollaboratorID: timeclock.CollaboratorID(req.CollaboratorID),
		Date:           date,
		Entry:          entry,
		Exit:           exit,
		BreakStart:     breakStart,
		BreakEnd:       breakEnd,
	}, nil
}

// ListPunches returns a collaborator's punches, optionally bounded by
// from/to date query parameters.
func (h *Handler) ListPunches(w http.ResponseWriter, r *http.Request) {
	collaborator := r.URL.Query().Get("collaborator")
	if collaborator == "" {
		writeError(w, http.StatusBadRequest, "Missing collaborator query parameter", nil)
		return
	}
	period, err := parsePeriodParams(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	punches, err := h.Store.ListPunches(r.Context(), timeclock.CollaboratorID(collaborator), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list punches", err)
		return
	}

	dtos := make([]PunchDTO, len(punches))
	for i, p := range punches {
		dtos[i] = toPunchDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPunch returns a single punch record.
func (h *Handler) GetPunch(w http.ResponseWriter, r *http.Request) {
	id := timeclock.PunchID(chi.URLParam(r, "id"))

	punch, err := h.Store.GetPunch(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get punch", err)
		return
	}
	if punch == nil {
		writeError(w, http.StatusNotFound, "Punch not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toPunchDTO(*punch))
}

// CorrectPunch amends an existing punch and re-derives its calculation.
// The reason is mandatory and lands in the audit trail.
func (h *Handler) CorrectPunch(w http.ResponseWriter, r *http.Request) {
	id := timeclock.PunchID(chi.URLParam(r, "id"))

	var req CorrectPunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := parseClockField("entry", req.Entry)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	exit, err := parseOptionalClock("exit", req.Exit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	actor := timeclock.Actor{ID: req.ActorID, Name: req.ActorName}
	corrected, err := h.Orchestrator.CorrectPunch(r.Context(), id, entry, exit, req.Reason, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPunchDTO(corrected))
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// ListCalculations returns materialized collaborator-day results,
// filtered by collaborator, department, and period. with_status=true
// annotates each row with its overtime limit status.
func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, err := parsePeriodParams(q.Get("from"), q.Get("to"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	filter := timeclock.CalculationFilter{
		Collaborator: timeclock.CollaboratorID(q.Get("collaborator")),
		Department:   q.Get("department"),
		Period:       period,
	}

	calcs, err := h.Orchestrator.GetCalculations(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	withStatus := q.Get("with_status") == "true"
	dtos := make([]CalculationDTO, len(calcs))
	for i, calc := range calcs {
		dtos[i] = toCalculationDTO(calc)
		if withStatus {
			status, err := h.Limits.StatusFor(r.Context(), calc)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			dtos[i].LimitStatus = string(status)
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTimeBank returns the time-bank balance for a collaborator over a
// period (default: the current month).
func (h *Handler) GetTimeBank(w http.ResponseWriter, r *http.Request) {
	collaborator := timeclock.CollaboratorID(chi.URLParam(r, "id"))

	period, err := parsePeriodParams(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if period.IsZero() {
		period = timeclock.MonthOf(timeclock.Today())
	}

	snapshot, err := h.Orchestrator.GetTimeBank(r.Context(), collaborator, period)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TimeBankDTO{
		CollaboratorID: string(snapshot.CollaboratorID),
		From:           period.Start.String(),
		To:             period.End.String(),
		Credit:         snapshot.Credit.String(),
		Debit:          snapshot.Debit.String(),
		Balance:        snapshot.Balance.String(),
	})
}

// =============================================================================
// LIMIT HANDLERS
// =============================================================================

// ListLimits returns the effective limit for every known department,
// defaults included.
func (h *Handler) ListLimits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	departments, err := h.Limits.Departments(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	configured, err := h.Limits.GetLimits(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	configuredSet := make(map[string]bool, len(configured))
	for _, l := range configured {
		configuredSet[l.Department] = true
	}

	dtos := make([]LimitDTO, 0, len(departments))
	for _, dept := range departments {
		limit, err := h.Limits.LimitFor(ctx, dept)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		dtos = append(dtos, toLimitDTO(limit, configuredSet[dept]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SetLimit configures a department's overtime ceilings.
func (h *Handler) SetLimit(w http.ResponseWriter, r *http.Request) {
	var req SetLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Department == "" {
		writeError(w, http.StatusBadRequest, "Missing department", nil)
		return
	}

	actor := timeclock.Actor{ID: req.ActorID, Name: req.ActorName}
	limit, err := h.Limits.SetLimit(r.Context(), req.Department,
		timeclock.HoursOf(req.DailyLimitHours),
		timeclock.HoursOf(req.MonthlyLimitHours),
		actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLimitDTO(limit, true))
}

// ResetLimit reverts a department to the default ceilings.
func (h *Handler) ResetLimit(w http.ResponseWriter, r *http.Request) {
	department := chi.URLParam(r, "department")

	var req ResetLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	actor := timeclock.Actor{ID: req.ActorID, Name: req.ActorName}
	limit, err := h.Limits.ResetLimit(r.Context(), department, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLimitDTO(limit, false))
}

// LimitHistory returns the audit trail of limit changes, newest first.
func (h *Handler) LimitHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Limits.History(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListDepartments returns every department known to limits or the
// directory.
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.Limits.Departments(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, departments)
}

func toLimitDTO(limit timeclock.OvertimeLimit, configured bool) LimitDTO {
	dto := LimitDTO{
		Department:        limit.Department,
		DailyLimitHours:   limit.DailyLimitHours.String(),
		MonthlyLimitHours: limit.MonthlyLimitHours.String(),
		UpdatedBy:         limit.UpdatedBy,
		Configured:        configured,
	}
	if !limit.UpdatedAt.IsZero() {
		dto.UpdatedAt = limit.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// RECALCULATION HANDLERS
// =============================================================================

// TriggerRecalculation schedules a department-scoped recalculation job.
// Scheduling the same department again supersedes the in-flight job.
func (h *Handler) TriggerRecalculation(w http.ResponseWriter, r *http.Request) {
	var req RecalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Department == "" {
		writeError(w, http.StatusBadRequest, "Missing department", nil)
		return
	}
	period, err := parsePeriodParams(req.From, req.To)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	runID := h.Jobs.Schedule(req.Department, period)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id":     runID,
		"department": req.Department,
		"status":     "scheduled",
	})
}

// ListRuns returns recalculation job history, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Jobs.Runs(r.Context(), r.URL.Query().Get("department"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// AUDIT AND EXPORT HANDLERS
// =============================================================================

// RecordExport audits a report export event.
func (h *Handler) RecordExport(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Kind == "" {
		writeError(w, http.StatusBadRequest, "Missing export kind", nil)
		return
	}

	actor := timeclock.Actor{ID: req.ActorID, Name: req.ActorName}
	if err := h.Orchestrator.RecordExport(r.Context(), req.Kind, req.Format, req.Filters, actor); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

// QueryAudit returns audit entries, newest first. Supported filters:
// from, to (RFC3339), actor, action (repeatable), department, q.
func (h *Handler) QueryAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := timeclock.AuditFilter{
		ActorID:    q.Get("actor"),
		Department: q.Get("department"),
		FreeText:   q.Get("q"),
	}
	for _, action := range q["action"] {
		filter.Actions = append(filter.Actions, timeclock.AuditAction(action))
	}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from timestamp (use RFC3339)", err)
			return
		}
		filter.From = &t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to timestamp (use RFC3339)", err)
			return
		}
		filter.To = &t
	}

	entries, err := h.Store.Query(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query audit log", err)
		return
	}
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// DIRECTORY HANDLERS
// =============================================================================

// ListCollaborators returns the directory.
func (h *Handler) ListCollaborators(w http.ResponseWriter, r *http.Request) {
	infos, err := h.Store.ListCollaborators(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list collaborators", err)
		return
	}
	dtos := make([]CollaboratorDTO, len(infos))
	for i, info := range infos {
		dtos[i] = toCollaboratorDTO(info)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCollaborator returns one directory entry.
func (h *Handler) GetCollaborator(w http.ResponseWriter, r *http.Request) {
	id := timeclock.CollaboratorID(chi.URLParam(r, "id"))

	info, err := h.Store.GetCollaborator(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get collaborator", err)
		return
	}
	if info == nil {
		writeError(w, http.StatusNotFound, "Collaborator not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toCollaboratorDTO(*info))
}

// CreateCollaborator upserts a directory entry.
func (h *Handler) CreateCollaborator(w http.ResponseWriter, r *http.Request) {
	var req CreateCollaboratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" || req.Department == "" {
		writeError(w, http.StatusBadRequest, "id, name, and department are required", nil)
		return
	}
	scheduled, err := parseClockField("scheduled_entry", req.ScheduledEntry)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	info := timeclock.CollaboratorInfo{
		ID:              timeclock.CollaboratorID(req.ID),
		Name:            req.Name,
		Department:      req.Department,
		ContractedHours: timeclock.HoursOf(req.ContractedHours),
		ScheduledEntry:  scheduled,
		Region:          req.Region,
	}
	if err := h.Store.SaveCollaborator(r.Context(), info); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save collaborator", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCollaboratorDTO(info))
}

func toCollaboratorDTO(info timeclock.CollaboratorInfo) CollaboratorDTO {
	return CollaboratorDTO{
		ID:              string(info.ID),
		Name:            info.Name,
		Department:      info.Department,
		ContractedHours: info.ContractedHours.String(),
		ScheduledEntry:  info.ScheduledEntry.String(),
		Region:          info.Region,
	}
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns calendar entries for a region (global entries
// included).
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.ListHolidays(r.Context(), r.URL.Query().Get("region"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}
	dtos := make([]HolidayDTO, len(holidays))
	for i, hd := range holidays {
		dtos[i] = HolidayDTO{
			ID:        hd.ID,
			Region:    hd.Region,
			Date:      hd.Date.String(),
			Name:      hd.Name,
			Recurring: hd.Recurring,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds a calendar entry.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Missing holiday name", nil)
		return
	}
	date, err := timeclock.ParseDate(req.Date)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	holiday := sqlite.Holiday{
		ID:        uuid.New().String(),
		Region:    req.Region,
		Date:      date,
		Name:      req.Name,
		Recurring: req.Recurring,
	}
	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, HolidayDTO{
		ID:        holiday.ID,
		Region:    holiday.Region,
		Date:      holiday.Date.String(),
		Name:      holiday.Name,
		Recurring: holiday.Recurring,
	})
}

// DeleteHoliday removes a calendar entry.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteHoliday(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case timeclock.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case timeclock.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
