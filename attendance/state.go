/*
state.go - Punch state reducer

PURPOSE:
  Folds an employee's full punch log into live status (clocked in, in
  meal, in rest) plus the set of days left incomplete by an unterminated
  punch. This is the read-side twin of the write-boundary check in
  service.go: the reducer silently ignores illegal events so that a log
  containing historical garbage still folds to a sane state, while
  RecordPunch rejects illegal transitions before they are ever appended.

DAY BOUNDARIES:
  A shift that opens a state and never closes it must not poison the
  next day. Whenever the fold crosses a calendar-day boundary with any
  state still open, the previous day is recorded as incomplete (with
  which closing punches are missing) and all flags are force-reset
  before the fold continues. The same check runs once more against
  "now" at the end, so a day with a lone morning CLOCK_IN shows up as
  incomplete the moment the clock rolls past midnight, with no new
  events required.

IDEMPOTENCY:
  The reducer holds no cursor and recomputes from scratch on every
  call. Appending future events never changes how past days were
  classified, so it is safe to call repeatedly on a growing log.
*/
package attendance

import "sort"

// =============================================================================
// ATTENDANCE STATE - Derived, never stored
// =============================================================================

// IncompleteDay marks a calendar day on which a punch opened a state that
// was never closed before day-end.
type IncompleteDay struct {
	Date    Date
	Missing []PunchType // the closing punches that never arrived
}

// AttendanceState is the live status derived from the full punch log.
// Invariant: at most one of InMeal/InRest is true, and either implies
// ClockedIn.
type AttendanceState struct {
	ClockedIn      bool
	InMeal         bool
	InRest         bool
	IncompleteDays []IncompleteDay // ordered by date
}

// allows reports whether a punch of type t is legal in the current state
// for an employee of the given group. Therapists never take rest breaks;
// the rule is enforced here as well as at the write boundary because
// historical data may predate it.
func (st AttendanceState) allows(t PunchType, group Group) bool {
	switch t {
	case ClockIn:
		return !st.ClockedIn && !st.InMeal && !st.InRest
	case ClockOut:
		return st.ClockedIn && !st.InMeal && !st.InRest
	case MealIn:
		return st.ClockedIn && !st.InMeal && !st.InRest
	case MealOut:
		return st.InMeal
	case RestIn:
		return st.ClockedIn && !st.InMeal && !st.InRest && group != GroupTherapist
	case RestOut:
		return st.InRest
	}
	return false
}

// apply mutates the open/closed flags for a legal event and silently
// drops an illegal one.
func (st *AttendanceState) apply(t PunchType, group Group) {
	if !st.allows(t, group) {
		return
	}
	switch t {
	case ClockIn:
		st.ClockedIn = true
	case ClockOut:
		st.ClockedIn = false
	case MealIn:
		st.InMeal = true
	case MealOut:
		st.InMeal = false
	case RestIn:
		st.InRest = true
	case RestOut:
		st.InRest = false
	}
}

// openKinds returns the closing punches still owed, in CLOCK_OUT,
// MEAL_OUT, REST_OUT order.
func (st AttendanceState) openKinds() []PunchType {
	var missing []PunchType
	if st.ClockedIn {
		missing = append(missing, ClockOut)
	}
	if st.InMeal {
		missing = append(missing, MealOut)
	}
	if st.InRest {
		missing = append(missing, RestOut)
	}
	return missing
}

// =============================================================================
// REDUCER
// =============================================================================

// ReduceState folds events chronologically into an AttendanceState as of
// now. The input need not be sorted; the reducer orders it defensively.
func ReduceState(events []PunchEvent, group Group, now Date) AttendanceState {
	sorted := make([]PunchEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var st AttendanceState
	var current Date

	// softReset closes out a day: anything still open marks the day
	// incomplete, then all flags drop so the next day starts clean.
	softReset := func(day Date) {
		if missing := st.openKinds(); len(missing) > 0 {
			st.IncompleteDays = append(st.IncompleteDays, IncompleteDay{Date: day, Missing: missing})
		}
		st.ClockedIn, st.InMeal, st.InRest = false, false, false
	}

	for _, e := range sorted {
		day := e.Day()
		if !current.IsZero() && current.Before(day) {
			softReset(current)
		}
		current = day
		st.apply(e.Type, group)
	}

	// The final day may already be in the past relative to now.
	if !current.IsZero() && current.Before(now) {
		softReset(current)
	}

	return st
}
