/*
handlers.go - HTTP API handlers for the attendance engine

PURPOSE:
  Exposes the attendance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees              List directory records
    POST   /api/employees              Register/update an employee

  Punching:
    POST   /api/record                 Record a punch for the caller
    GET    /api/state                  Caller's live status + incomplete days
    GET    /api/records                Raw punch log (own; all for reviewers)

  Summaries:
    GET    /api/summaries              Per-day aggregates
    GET    /api/summary                Semimonthly period totals

  Corrections:
    POST   /api/corrections            Submit a correction request
    GET    /api/corrections            List (own; filtered for reviewers)
    POST   /api/corrections/{id}/approve
    POST   /api/corrections/{id}/deny
    POST   /api/corrections/{id}/cancel

  Export:
    GET    /api/export                 Excel workbook (summaries + records)

IDENTITY:
  The caller arrives pre-authenticated; the X-Employee header names the
  acting employee and is resolved against the directory for role and
  group. There is no session or credential handling here.

ERROR HANDLING:
  Domain errors map onto HTTP status by kind:
  - 400: validation, illegal clock sequence
  - 403: authorization
  - 404: unknown correction/employee
  - 409: conflict (duplicate live request, already decided, contention)
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - attendance/service.go: The operations these handlers call
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/attendance-engine/attendance"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service   *attendance.Service
	Directory attendance.EmployeeDirectory
}

// NewHandler creates a new handler around the service.
func NewHandler(svc *attendance.Service, directory attendance.EmployeeDirectory) *Handler {
	return &Handler{Service: svc, Directory: directory}
}

// identity resolves the acting employee from the X-Employee header. An
// unknown or absent header yields a zero identity; the service rejects
// operations that need one.
func (h *Handler) identity(r *http.Request) attendance.Identity {
	id := attendance.EmployeeID(strings.TrimSpace(r.Header.Get("X-Employee")))
	if id == "" {
		return attendance.Identity{}
	}

	ident := attendance.Identity{
		EmployeeID: id,
		Role:       attendance.RoleEmployee,
		Group:      attendance.GroupNonTherapist,
	}
	if emp, err := h.Directory.GetEmployee(r.Context(), id); err == nil && emp != nil {
		ident.Role = emp.Role
		ident.Group = emp.Group
	}
	return ident
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all directory records.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Directory.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee registers or updates a directory record.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	role := attendance.Role(req.Role)
	if role == "" {
		role = attendance.RoleEmployee
	}
	emp := attendance.Employee{
		ID:        attendance.EmployeeID(req.ID),
		Name:      req.Name,
		Role:      role,
		Group:     attendance.NormalizeGroup(req.Group),
		CreatedAt: time.Now(),
	}

	if err := h.Directory.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// =============================================================================
// PUNCH HANDLERS
// =============================================================================

// RecordPunch records a punch for the caller.
func (h *Handler) RecordPunch(w http.ResponseWriter, r *http.Request) {
	var req RecordPunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var at time.Time
	if req.At != "" {
		parsed, err := time.Parse(time.RFC3339, req.At)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid timestamp (use RFC3339)", err)
			return
		}
		at = parsed
	}

	err := h.Service.RecordPunch(r.Context(), h.identity(r), attendance.PunchType(req.Type), at)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

// GetState returns the caller's live status, or another employee's for
// reviewers via ?employee=.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	ident := h.identity(r)
	target := ident.EmployeeID
	if q := r.URL.Query().Get("employee"); q != "" {
		if attendance.EmployeeID(q) != ident.EmployeeID && !ident.CanReview() {
			writeError(w, http.StatusForbidden, "Cannot view another employee's state", nil)
			return
		}
		target = attendance.EmployeeID(q)
	}
	if target == "" {
		writeError(w, http.StatusForbidden, "Caller has no personal timesheet", nil)
		return
	}

	st, err := h.Service.State(r.Context(), target, time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStateDTO(st))
}

// ListRecords returns the raw punch log: the caller's own, or all
// employees (optionally ?employee= filtered) for reviewers.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	ident := h.identity(r)
	filter := attendance.EmployeeID(r.URL.Query().Get("employee"))

	var events []attendance.PunchEvent
	var err error
	switch {
	case ident.CanReview() && filter == "":
		events, err = h.Service.Punches.LoadAll(r.Context())
	case ident.CanReview():
		events, err = h.Service.Punches.LoadByEmployee(r.Context(), filter)
	default:
		if filter != "" && filter != ident.EmployeeID {
			writeError(w, http.StatusForbidden, "Cannot view another employee's records", nil)
			return
		}
		if ident.EmployeeID == "" {
			writeError(w, http.StatusForbidden, "Caller has no personal timesheet", nil)
			return
		}
		events, err = h.Service.Punches.LoadByEmployee(r.Context(), ident.EmployeeID)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]PunchDTO, len(events))
	for i, e := range events {
		dtos[i] = toPunchDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SUMMARY HANDLERS
// =============================================================================

// ListSummaries returns per-day aggregates for the caller (or ?employee=
// for reviewers), optionally restricted by ?from= and ?to=.
func (h *Handler) ListSummaries(w http.ResponseWriter, r *http.Request) {
	ident := h.identity(r)
	target := ident.EmployeeID
	if q := r.URL.Query().Get("employee"); q != "" {
		if attendance.EmployeeID(q) != ident.EmployeeID && !ident.CanReview() {
			writeError(w, http.StatusForbidden, "Cannot view another employee's summaries", nil)
			return
		}
		target = attendance.EmployeeID(q)
	}
	if target == "" {
		writeError(w, http.StatusForbidden, "Caller has no personal timesheet", nil)
		return
	}

	from, err := parseDateParam(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return
	}

	summaries, err := h.Service.DailySummaries(r.Context(), target, from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]DailySummaryDTO, len(summaries))
	for i, ds := range summaries {
		dtos[i] = toDailySummaryDTO(ds)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPeriodTotals returns the semimonthly totals for the pay period
// containing ?date= (default today).
func (h *Handler) GetPeriodTotals(w http.ResponseWriter, r *http.Request) {
	ident := h.identity(r)
	target := ident.EmployeeID
	if q := r.URL.Query().Get("employee"); q != "" {
		if attendance.EmployeeID(q) != ident.EmployeeID && !ident.CanReview() {
			writeError(w, http.StatusForbidden, "Cannot view another employee's totals", nil)
			return
		}
		target = attendance.EmployeeID(q)
	}
	if target == "" {
		writeError(w, http.StatusForbidden, "Caller has no personal timesheet", nil)
		return
	}

	containing := attendance.DateOf(time.Now())
	if q := r.URL.Query().Get("date"); q != "" {
		d, err := attendance.ParseDate(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
		containing = d
	}

	totals, err := h.Service.PeriodTotals(r.Context(), target, containing)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PeriodTotalsDTO{
		PeriodStart:       totals.Period.Start.String(),
		PeriodEnd:         totals.Period.End.String(),
		TotalPayableHours: totals.TotalPayableHours.StringFixed(2),
		TotalBreakHours:   totals.TotalBreakHours.StringFixed(2),
	})
}

// =============================================================================
// CORRECTION HANDLERS
// =============================================================================

// SubmitCorrection files a correction request for the caller.
func (h *Handler) SubmitCorrection(w http.ResponseWriter, r *http.Request) {
	var req SubmitCorrectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := toCorrectionInput(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid correction request", err)
		return
	}

	created, err := h.Service.SubmitCorrection(r.Context(), h.identity(r), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCorrectionDTO(created))
}

// ListCorrections returns matching requests, newest first.
func (h *Handler) ListCorrections(w http.ResponseWriter, r *http.Request) {
	f := attendance.CorrectionFilter{
		EmployeeID: attendance.EmployeeID(r.URL.Query().Get("employee")),
		Status:     attendance.CorrectionStatus(r.URL.Query().Get("status")),
	}
	var err error
	if f.From, err = parseDateParam(r, "from"); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	if f.To, err = parseDateParam(r, "to"); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return
	}

	corrections, err := h.Service.ListCorrections(r.Context(), h.identity(r), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]CorrectionDTO, len(corrections))
	for i, c := range corrections {
		dtos[i] = toCorrectionDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveCorrection approves a pending request, applying the
// reconciliation to the punch log first.
func (h *Handler) ApproveCorrection(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, attendance.ReviewApprove)
}

// DenyCorrection denies a pending request.
func (h *Handler) DenyCorrection(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, attendance.ReviewDeny)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, action attendance.ReviewAction) {
	id := attendance.CorrectionID(chi.URLParam(r, "id"))

	var req ReviewRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	if err := h.Service.ReviewCorrection(r.Context(), h.identity(r), id, action, req.Note); err != nil {
		writeDomainError(w, err)
		return
	}

	decided, err := h.Service.Corrections.Get(r.Context(), id)
	if err != nil || decided == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": string(action)})
		return
	}
	writeJSON(w, http.StatusOK, toCorrectionDTO(decided))
}

// CancelCorrection withdraws the caller's own pending request.
func (h *Handler) CancelCorrection(w http.ResponseWriter, r *http.Request) {
	id := attendance.CorrectionID(chi.URLParam(r, "id"))

	if err := h.Service.CancelCorrection(r.Context(), h.identity(r), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// =============================================================================
// HELPERS
// =============================================================================

func toCorrectionInput(req SubmitCorrectionRequest) (attendance.CorrectionInput, error) {
	in := attendance.CorrectionInput{
		EmployeeID: attendance.EmployeeID(req.EmployeeID),
		Note:       req.Note,
	}

	if req.Date != "" {
		d, err := attendance.ParseDate(req.Date)
		if err != nil {
			return in, err
		}
		in.Date = d
	}

	parse := func(s string, dst **attendance.TimeOfDay) error {
		if s == "" {
			return nil
		}
		t, err := attendance.ParseTimeOfDay(s)
		if err != nil {
			return err
		}
		*dst = &t
		return nil
	}

	for _, f := range []struct {
		s   string
		dst **attendance.TimeOfDay
	}{
		{req.ClockIn, &in.ClockIn},
		{req.ClockOut, &in.ClockOut},
		{req.MealIn, &in.MealIn},
		{req.MealOut, &in.MealOut},
		{req.RestIn, &in.RestIn},
		{req.RestOut, &in.RestOut},
	} {
		if err := parse(f.s, f.dst); err != nil {
			return in, err
		}
	}
	return in, nil
}

func parseDateParam(r *http.Request, name string) (attendance.Date, error) {
	q := r.URL.Query().Get(name)
	if q == "" {
		return attendance.Date{}, nil
	}
	return attendance.ParseDate(q)
}

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

// writeDomainError maps domain error kinds onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, attendance.ErrValidation), errors.Is(err, attendance.ErrIllegalTransition):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, attendance.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, attendance.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, attendance.ErrConflict), errors.Is(err, attendance.ErrDuplicateLiveCorrection):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
