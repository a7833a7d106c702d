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

TYPES:
  Employee:
    EmployeeDTO, CreateEmployeeRequest

  Punches:
    PunchDTO, RecordPunchRequest, StateDTO

  Summaries:
    DailySummaryDTO, PeriodTotalsDTO

  Corrections:
    CorrectionDTO, SubmitCorrectionRequest, ReviewRequest

VALIDATION:
  Validation is done in handlers and the domain layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - attendance/types.go: Domain types these mirror
*/
package api

import (
	"time"

	"github.com/warp/attendance-engine/attendance"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents a directory record in API responses.
type EmployeeDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Group     string `json:"group"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the request to register an employee.
type CreateEmployeeRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Group string `json:"group"`
}

func toEmployeeDTO(e attendance.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:    string(e.ID),
		Name:  e.Name,
		Role:  string(e.Role),
		Group: string(e.Group),
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// PUNCHES AND STATE
// =============================================================================

// RecordPunchRequest is the request to record a punch. At is optional;
// when absent the server clock is used.
type RecordPunchRequest struct {
	Type string `json:"type"`
	At   string `json:"at,omitempty"`
}

// PunchDTO represents one punch event in API responses.
type PunchDTO struct {
	ID           string `json:"id"`
	EmployeeID   string `json:"employee_id"`
	Type         string `json:"type"`
	Timestamp    string `json:"timestamp"`
	Date         string `json:"date"`
	Provenance   string `json:"provenance"`
	CorrectionID string `json:"correction_id,omitempty"`
}

func toPunchDTO(e attendance.PunchEvent) PunchDTO {
	return PunchDTO{
		ID:           string(e.ID),
		EmployeeID:   string(e.EmployeeID),
		Type:         string(e.Type),
		Timestamp:    e.Timestamp.Format(time.RFC3339),
		Date:         e.Day().String(),
		Provenance:   string(e.Provenance),
		CorrectionID: string(e.CorrectionID),
	}
}

// IncompleteDayDTO lists a day's missing closing punches.
type IncompleteDayDTO struct {
	Date    string   `json:"date"`
	Missing []string `json:"missing"`
}

// StateDTO is the employee's live attendance status.
type StateDTO struct {
	ClockedIn      bool               `json:"clocked_in"`
	InMeal         bool               `json:"in_meal"`
	InRest         bool               `json:"in_rest"`
	IncompleteDays []IncompleteDayDTO `json:"incomplete_days"`
}

func toStateDTO(st attendance.AttendanceState) StateDTO {
	dto := StateDTO{
		ClockedIn:      st.ClockedIn,
		InMeal:         st.InMeal,
		InRest:         st.InRest,
		IncompleteDays: []IncompleteDayDTO{},
	}
	for _, d := range st.IncompleteDays {
		missing := make([]string, len(d.Missing))
		for i, t := range d.Missing {
			missing[i] = string(t)
		}
		dto.IncompleteDays = append(dto.IncompleteDays, IncompleteDayDTO{
			Date:    d.Date.String(),
			Missing: missing,
		})
	}
	return dto
}

// =============================================================================
// SUMMARIES AND TOTALS
// =============================================================================

// DailySummaryDTO is one day's aggregates. Hours are decimal strings
// rounded to two places.
type DailySummaryDTO struct {
	EmployeeID   string `json:"employee_id"`
	Date         string `json:"date"`
	FirstIn      string `json:"first_in,omitempty"`
	LastOut      string `json:"last_out,omitempty"`
	WorkHours    string `json:"work_hours"`
	LunchHours   string `json:"lunch_hours"`
	RestHours    string `json:"rest_hours"`
	PayableHours string `json:"payable_hours"`
}

func toDailySummaryDTO(ds attendance.DailySummary) DailySummaryDTO {
	dto := DailySummaryDTO{
		EmployeeID:   string(ds.EmployeeID),
		Date:         ds.Date.String(),
		WorkHours:    ds.WorkHours.StringFixed(2),
		LunchHours:   ds.LunchHours.StringFixed(2),
		RestHours:    ds.RestHours.StringFixed(2),
		PayableHours: ds.PayableHours.StringFixed(2),
	}
	if !ds.FirstIn.IsZero() {
		dto.FirstIn = ds.FirstIn.Format(time.RFC3339)
	}
	if !ds.LastOut.IsZero() {
		dto.LastOut = ds.LastOut.Format(time.RFC3339)
	}
	return dto
}

// PeriodTotalsDTO is the semimonthly pay-period aggregate.
type PeriodTotalsDTO struct {
	PeriodStart       string `json:"period_start"`
	PeriodEnd         string `json:"period_end"`
	TotalPayableHours string `json:"total_payable_hours"`
	TotalBreakHours   string `json:"total_break_hours"`
}

// =============================================================================
// CORRECTIONS
// =============================================================================

// SubmitCorrectionRequest is the request to file a correction. Times are
// "HH:MM" wall-clock strings; meal and rest pairs are optional but must
// come complete.
type SubmitCorrectionRequest struct {
	EmployeeID string `json:"employee_id,omitempty"`
	Date       string `json:"date"`
	ClockIn    string `json:"clock_in"`
	ClockOut   string `json:"clock_out"`
	MealIn     string `json:"meal_in,omitempty"`
	MealOut    string `json:"meal_out,omitempty"`
	RestIn     string `json:"rest_in,omitempty"`
	RestOut    string `json:"rest_out,omitempty"`
	Note       string `json:"note,omitempty"`
}

// ReviewRequest carries an optional decision note.
type ReviewRequest struct {
	Note string `json:"note,omitempty"`
}

// CorrectionAuditDTO summarizes what an approval did to the punch log.
type CorrectionAuditDTO struct {
	RemovedCount  int    `json:"removed_count"`
	InsertedCount int    `json:"inserted_count"`
	WorkHours     string `json:"work_hours"`
	LunchHours    string `json:"lunch_hours"`
	RestHours     string `json:"rest_hours"`
	PayableHours  string `json:"payable_hours"`
}

// CorrectionDTO represents a correction request in API responses.
type CorrectionDTO struct {
	ID           string              `json:"id"`
	EmployeeID   string              `json:"employee_id"`
	Date         string              `json:"date"`
	ClockIn      string              `json:"clock_in"`
	ClockOut     string              `json:"clock_out"`
	MealIn       string              `json:"meal_in,omitempty"`
	MealOut      string              `json:"meal_out,omitempty"`
	RestIn       string              `json:"rest_in,omitempty"`
	RestOut      string              `json:"rest_out,omitempty"`
	Note         string              `json:"note,omitempty"`
	Status       string              `json:"status"`
	SubmittedAt  string              `json:"submitted_at"`
	ReviewedAt   string              `json:"reviewed_at,omitempty"`
	ReviewedBy   string              `json:"reviewed_by,omitempty"`
	DecisionNote string              `json:"decision_note,omitempty"`
	Audit        *CorrectionAuditDTO `json:"audit,omitempty"`
}

func toCorrectionDTO(c *attendance.CorrectionRequest) CorrectionDTO {
	timeStr := func(t *attendance.TimeOfDay) string {
		if t == nil {
			return ""
		}
		return t.String()
	}

	dto := CorrectionDTO{
		ID:           string(c.ID),
		EmployeeID:   string(c.EmployeeID),
		Date:         c.Date.String(),
		ClockIn:      c.ClockIn.String(),
		ClockOut:     c.ClockOut.String(),
		MealIn:       timeStr(c.MealIn),
		MealOut:      timeStr(c.MealOut),
		RestIn:       timeStr(c.RestIn),
		RestOut:      timeStr(c.RestOut),
		Note:         c.Note,
		Status:       string(c.Status),
		SubmittedAt:  c.SubmittedAt.Format(time.RFC3339),
		ReviewedBy:   string(c.ReviewedBy),
		DecisionNote: c.DecisionNote,
	}
	if c.ReviewedAt != nil {
		dto.ReviewedAt = c.ReviewedAt.Format(time.RFC3339)
	}
	if c.Audit != nil {
		dto.Audit = &CorrectionAuditDTO{
			RemovedCount:  len(c.Audit.Removed),
			InsertedCount: len(c.Audit.Inserted),
			WorkHours:     c.Audit.WorkHours.StringFixed(2),
			LunchHours:    c.Audit.LunchHours.StringFixed(2),
			RestHours:     c.Audit.RestHours.StringFixed(2),
			PayableHours:  c.Audit.PayableHours.StringFixed(2),
		}
	}
	return dto
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
