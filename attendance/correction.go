/*
correction.go - Correction request lifecycle

PURPOSE:
  An employee who missed a punch (or punched wrong) submits a
  replacement set of times for one calendar day: a clock-in/out pair,
  optionally a meal pair, optionally a rest pair. The request sits
  pending until a reviewer approves or denies it; the employee may
  cancel it while still pending.

REQUEST FLOW:

  Employee submits ──▶ validate ──▶ pending ──▶ reviewer approves ──▶ applied
                                       │                 │
                                       │                 └──▶ denies  (log untouched)
                                       └──▶ employee cancels

  Exactly one terminal transition. A new request for the same
  employee+day is allowed only once the latest existing one is denied
  or cancelled: at most one live (pending-or-approved) request per day.

VALIDATION ORDER (first failure wins):
  1. date and clock-in/out well-formed and present
  2. meal and rest pairs both-present or both-absent
  3. therapists may not submit rest fields
  4. derived durations within sane bounds (work ≤ 20h, lunch ≤ 6h,
     rest ≤ 3h, all strictly positive where present)
  5. no live request already exists for the day (enforced atomically
     by the correction store at create time)

SEE ALSO:
  - reconcile.go: Turns an approved request into canonical punches
  - service.go: Submit/Cancel/Review/Query orchestration
*/
package attendance

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CORRECTION REQUEST
// =============================================================================

type CorrectionStatus string

const (
	CorrectionPending   CorrectionStatus = "pending"
	CorrectionApproved  CorrectionStatus = "approved"
	CorrectionDenied    CorrectionStatus = "denied"
	CorrectionCancelled CorrectionStatus = "cancelled"
)

// Live reports whether the status still occupies the employee+day slot.
func (s CorrectionStatus) Live() bool {
	return s == CorrectionPending || s == CorrectionApproved
}

// CorrectionInput is an employee-submitted replacement for one day's
// punches. Meal and rest pairs are optional but must come as pairs.
type CorrectionInput struct {
	EmployeeID EmployeeID
	Date       Date
	ClockIn    *TimeOfDay
	ClockOut   *TimeOfDay
	MealIn     *TimeOfDay
	MealOut    *TimeOfDay
	RestIn     *TimeOfDay
	RestOut    *TimeOfDay
	Note       string
}

// CorrectionRequest is a stored correction with its lifecycle state.
// Once non-pending it is immutable.
type CorrectionRequest struct {
	ID         CorrectionID
	EmployeeID EmployeeID
	Date       Date

	ClockIn  TimeOfDay
	ClockOut TimeOfDay
	MealIn   *TimeOfDay
	MealOut  *TimeOfDay
	RestIn   *TimeOfDay
	RestOut  *TimeOfDay
	Note     string

	Status       CorrectionStatus
	SubmittedAt  time.Time
	ReviewedAt   *time.Time
	ReviewedBy   EmployeeID
	DecisionNote string

	// Audit is present only after approval.
	Audit *CorrectionAudit
}

// CorrectionAudit records exactly what an approval did to the punch log.
type CorrectionAudit struct {
	Removed      []PunchEvent    `json:"removed"`
	Inserted     []PunchEvent    `json:"inserted"`
	WorkHours    decimal.Decimal `json:"work_hours"`
	LunchHours   decimal.Decimal `json:"lunch_hours"`
	RestHours    decimal.Decimal `json:"rest_hours"`
	PayableHours decimal.Decimal `json:"payable_hours"`
}

// =============================================================================
// DERIVED DURATIONS
// =============================================================================

// Duration bounds for a single day's correction. Shifts are expected to
// fit the same day; the 24h wrap below is a defensive fallback, and these
// caps keep a fat-fingered wrap from crediting absurd hours.
const (
	maxWorkSpan  = 20 * time.Hour
	maxLunchSpan = 6 * time.Hour
	maxRestSpan  = 3 * time.Hour
)

// span computes to − from, wrapping forward 24h if negative.
func span(from, to TimeOfDay) time.Duration {
	d := time.Duration(to-from) * time.Minute
	if d < 0 {
		d += 24 * time.Hour
	}
	return d
}

// correctionSpans holds the derived work/lunch/rest durations.
type correctionSpans struct {
	Work  time.Duration
	Lunch time.Duration
	Rest  time.Duration
}

// Payable returns work minus lunch, floored at zero, in decimal hours.
func (s correctionSpans) Payable() decimal.Decimal {
	p := Hours(s.Work).Sub(Hours(s.Lunch))
	if p.IsNegative() {
		return decimal.Zero
	}
	return p.Round(2)
}

// spans derives and bounds-checks the request's durations. It is called
// at submit time and again, defensively, at apply time.
func (c *CorrectionRequest) spans() (correctionSpans, error) {
	var s correctionSpans

	s.Work = span(c.ClockIn, c.ClockOut)
	if s.Work <= 0 || s.Work > maxWorkSpan {
		return s, &ValidationError{Field: "clock_out", Message: "work span must be positive and at most 20 hours"}
	}
	if c.MealIn != nil && c.MealOut != nil {
		s.Lunch = span(*c.MealIn, *c.MealOut)
		if s.Lunch <= 0 || s.Lunch > maxLunchSpan {
			return s, &ValidationError{Field: "meal_out", Message: "meal span must be positive and at most 6 hours"}
		}
	}
	if c.RestIn != nil && c.RestOut != nil {
		s.Rest = span(*c.RestIn, *c.RestOut)
		if s.Rest <= 0 || s.Rest > maxRestSpan {
			return s, &ValidationError{Field: "rest_out", Message: "rest span must be positive and at most 3 hours"}
		}
	}
	return s, nil
}

// =============================================================================
// SUBMIT VALIDATION
// =============================================================================

// validateCorrectionInput runs steps 1-4 of the submit validation for an
// employee of the given group. Step 5 (the one-live-request conflict
// check) belongs to the store, where it can be made atomic with the
// insert.
func validateCorrectionInput(in CorrectionInput, group Group) (*CorrectionRequest, error) {
	if in.EmployeeID == "" {
		return nil, &ValidationError{Field: "employee", Message: "employee is required"}
	}
	if in.Date.IsZero() {
		return nil, &ValidationError{Field: "date", Message: "date is required"}
	}
	if in.ClockIn == nil || in.ClockOut == nil {
		return nil, &ValidationError{Field: "clock_in", Message: "clock-in and clock-out are both required"}
	}
	if (in.MealIn == nil) != (in.MealOut == nil) {
		return nil, &ValidationError{Field: "meal_in", Message: "meal times must be provided as a pair"}
	}
	if (in.RestIn == nil) != (in.RestOut == nil) {
		return nil, &ValidationError{Field: "rest_in", Message: "rest times must be provided as a pair"}
	}
	if group == GroupTherapist && (in.RestIn != nil || in.RestOut != nil) {
		return nil, &ValidationError{Field: "rest_in", Message: "rest breaks are disabled for therapists"}
	}

	req := &CorrectionRequest{
		EmployeeID: in.EmployeeID,
		Date:       in.Date,
		ClockIn:    *in.ClockIn,
		ClockOut:   *in.ClockOut,
		MealIn:     in.MealIn,
		MealOut:    in.MealOut,
		RestIn:     in.RestIn,
		RestOut:    in.RestOut,
		Note:       in.Note,
		Status:     CorrectionPending,
	}
	if _, err := req.spans(); err != nil {
		return nil, err
	}
	return req, nil
}
