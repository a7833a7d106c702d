/*
Package attendance provides the core attendance state machine and
missed-punch reconciliation engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking
  employee work-shift punches: folding a punch log into live on/off
  status, detecting days that were never closed out, validating and
  applying manual corrections, and aggregating payable hours over
  semimonthly pay periods.

KEY CONCEPTS IN THIS FILE (types.go):
  - PunchEvent: A single timestamped clock/meal/rest event
  - Employee/Identity: Who punched and who is calling
  - Date: A naive local calendar day (the partition key for everything)
  - TimeOfDay: A wall-clock time used by correction requests

DESIGN PRINCIPLES:
  1. Derivation over storage: status and summaries are always recomputed
     from the full punch log, never cached with a cursor
  2. Precision: decimal.Decimal for all hour totals, rounded to 2 places
  3. Naive local time: no timezone handling anywhere; a punch at 09:00
     is 09:00, full stop

SEE ALSO:
  - state.go: Fold events into AttendanceState
  - summary.go: Fold one day's events into a DailySummary
  - correction.go: Correction request lifecycle
  - reconcile.go: Applying approved corrections to the punch log
*/
package attendance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type PunchID string
type CorrectionID string

// =============================================================================
// PUNCH EVENTS
// =============================================================================

// PunchType is the kind of attendance event.
type PunchType string

const (
	ClockIn  PunchType = "CLOCK_IN"
	ClockOut PunchType = "CLOCK_OUT"
	MealIn   PunchType = "MEAL_IN"
	MealOut  PunchType = "MEAL_OUT"
	RestIn   PunchType = "REST_IN"
	RestOut  PunchType = "REST_OUT"
)

// Valid reports whether t is one of the six known punch types.
func (t PunchType) Valid() bool {
	switch t {
	case ClockIn, ClockOut, MealIn, MealOut, RestIn, RestOut:
		return true
	}
	return false
}

// Provenance records how a punch entered the log.
type Provenance string

const (
	// ProvenanceDirect marks a punch recorded live by the employee.
	ProvenanceDirect Provenance = "direct"

	// ProvenanceCorrection marks a punch synthesized from an approved
	// correction request. Such punches carry the request's CorrectionID.
	ProvenanceCorrection Provenance = "correction"
)

// PunchEvent is a single timestamped attendance event. Events are
// immutable once written; an approved correction supersedes a day's
// events by replacing them wholesale, never by editing in place.
type PunchEvent struct {
	ID           PunchID
	EmployeeID   EmployeeID
	Type         PunchType
	Timestamp    time.Time
	Provenance   Provenance
	CorrectionID CorrectionID // set only when Provenance == ProvenanceCorrection
}

// Day returns the local calendar day the punch belongs to.
func (e PunchEvent) Day() Date {
	return DateOf(e.Timestamp)
}

// =============================================================================
// EMPLOYEES AND CALLER IDENTITY
// =============================================================================

// Group determines which punch rules apply to an employee.
type Group string

const (
	GroupTherapist    Group = "therapist"
	GroupNonTherapist Group = "non-therapist"
	GroupAdmin        Group = "admin"
)

// NormalizeGroup collapses free-form group input to a known group.
// Anything that is not recognizably "therapist" is non-therapist.
func NormalizeGroup(s string) Group {
	switch s {
	case "therapist", "Therapist":
		return GroupTherapist
	case string(GroupAdmin):
		return GroupAdmin
	default:
		return GroupNonTherapist
	}
}

// Role determines what operations a caller may perform.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleReviewer Role = "reviewer"
	RoleAdmin    Role = "admin"
)

// Employee is a directory record. The engine does not manage credentials;
// authentication happens in the caller, which resolves an Identity per
// request.
type Employee struct {
	ID        EmployeeID
	Name      string
	Role      Role
	Group     Group
	CreatedAt time.Time
}

// Identity is the authenticated caller of an operation.
type Identity struct {
	EmployeeID EmployeeID
	Role       Role
	Group      Group
}

// CanReview reports whether the identity may decide correction requests
// and query other employees' data.
func (id Identity) CanReview() bool {
	return id.Role == RoleReviewer || id.Role == RoleAdmin
}

// =============================================================================
// DATE - Naive local calendar day
// =============================================================================

// Date identifies one local calendar day. It is the unit of grouping for
// daily summaries, incomplete-day detection, and correction requests.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf returns the local calendar day containing t.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool { return d == Date{} }

// Time returns midnight at the start of the day, local time.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.Local)
}

// EndTime returns the last instant of the day (exclusive upper bound is
// the next midnight; this is one nanosecond before it).
func (d Date) EndTime() time.Time {
	return d.AddDays(1).Time().Add(-time.Nanosecond)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) Before(other Date) bool { return d.Time().Before(other.Time()) }
func (d Date) After(other Date) bool  { return d.Time().After(other.Time()) }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// EndOfMonth returns the last day of the given month.
func EndOfMonth(year int, month time.Month) Date {
	// Day zero of the next month is the last day of this one.
	return DateOf(time.Date(year, month+1, 0, 0, 0, 0, 0, time.Local))
}

// =============================================================================
// TIME OF DAY - Wall-clock time used by correction requests
// =============================================================================

// TimeOfDay is minutes since local midnight.
type TimeOfDay int

// ParseTimeOfDay parses an HH:MM wall-clock time.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q (use HH:MM)", s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// At anchors the wall-clock time on a calendar day.
func (t TimeOfDay) At(d Date) time.Time {
	return d.Time().Add(time.Duration(t) * time.Minute)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// =============================================================================
// HOUR ARITHMETIC
// =============================================================================

var sixty = decimal.NewFromInt(60)

// Hours converts an elapsed duration to decimal hours rounded to 2 places.
func Hours(d time.Duration) decimal.Decimal {
	return decimal.NewFromFloat(d.Minutes()).Div(sixty).Round(2)
}
