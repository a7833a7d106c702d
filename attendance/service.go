/*
service.go - The engine's typed operations

PURPOSE:
  The single entry point the surrounding application calls. Wraps the
  reducer, aggregator, period calculator, correction manager, and
  reconciliation applier behind typed operations, and owns the two
  concerns that cut across them:

  SERIALIZATION: every operation that mutates one employee's punch log
  or correction requests runs under that employee's mutex, so no
  partial interleaving is ever visible to callers. Reads recompute from
  committed state and need no lock.

  RETRY: a store signalling ErrConcurrentModification (a lost
  read-modify-write race) is retried a small bounded number of times,
  then surfaced as a ConflictError. No other error is retried; every
  other rejection is deterministic.

OPERATIONS:
  RecordPunch        validate legality against current state, append
  State              fold the full log into live status + incomplete days
  DailySummaries     per-day aggregates, approved corrections override
  PeriodTotals       semimonthly payable/break totals
  SubmitCorrection   validate, store pending
  CancelCorrection   owner, pending only
  ListCorrections    filtered, newest first, employees see only their own
  ReviewCorrection   reviewer decides; approve applies reconciliation first
*/
package attendance

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// contentionRetries bounds how often a lost storage race is retried
// before surfacing a ConflictError.
const contentionRetries = 3

// Service exposes the attendance engine to its caller. All fields are
// required except Now, which defaults to time.Now.
type Service struct {
	Punches     PunchStore
	Corrections CorrectionStore
	Directory   EmployeeDirectory
	Now         func() time.Time

	mu    sync.Mutex
	locks map[EmployeeID]*sync.Mutex
}

func NewService(punches PunchStore, corrections CorrectionStore, directory EmployeeDirectory) *Service {
	return &Service{
		Punches:     punches,
		Corrections: corrections,
		Directory:   directory,
		Now:         time.Now,
		locks:       make(map[EmployeeID]*sync.Mutex),
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// lockEmployee serializes mutations per employee. Serializing more
// coarsely would also be correct; per-employee is enough and keeps
// unrelated employees independent.
func (s *Service) lockEmployee(id EmployeeID) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// withRetry retries fn on storage contention, bounded.
func withRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < contentionRetries; attempt++ {
		err = fn()
		if err == nil || !IsRetryable(err) {
			return err
		}
	}
	return &ConflictError{Reason: "storage contention persisted: " + err.Error()}
}

// groupOf resolves an employee's group, defaulting to non-therapist for
// records that predate groups.
func (s *Service) groupOf(ctx context.Context, id EmployeeID) Group {
	emp, err := s.Directory.GetEmployee(ctx, id)
	if err != nil || emp == nil || emp.Group == "" {
		return GroupNonTherapist
	}
	return emp.Group
}

// =============================================================================
// PUNCHING
// =============================================================================

// RecordPunch validates a punch against the caller's current state and
// appends it. This is the enforcement point: the reducer downstream
// tolerates illegal events, but none should get past here.
func (s *Service) RecordPunch(ctx context.Context, actor Identity, t PunchType, at time.Time) error {
	if actor.EmployeeID == "" {
		return &AuthorizationError{Reason: "caller has no personal timesheet"}
	}
	if !t.Valid() {
		return &ValidationError{Field: "type", Message: "unknown record type"}
	}
	if at.IsZero() {
		at = s.now()
	}

	unlock := s.lockEmployee(actor.EmployeeID)
	defer unlock()

	events, err := s.Punches.LoadByEmployee(ctx, actor.EmployeeID)
	if err != nil {
		return err
	}

	group := s.groupOf(ctx, actor.EmployeeID)
	st := ReduceState(events, group, DateOf(at))

	if t == RestIn && group == GroupTherapist {
		return &IllegalTransitionError{Type: t, Reason: "rest break is disabled for therapists"}
	}
	if !st.allows(t, group) {
		return &IllegalTransitionError{Type: t, Reason: "invalid clock sequence"}
	}

	return s.Punches.Append(ctx, PunchEvent{
		ID:         PunchID(uuid.NewString()),
		EmployeeID: actor.EmployeeID,
		Type:       t,
		Timestamp:  at,
		Provenance: ProvenanceDirect,
	})
}

// State folds the employee's full log into live status as of now.
// Calling it twice without new events yields identical results.
func (s *Service) State(ctx context.Context, employeeID EmployeeID, now time.Time) (AttendanceState, error) {
	events, err := s.Punches.LoadByEmployee(ctx, employeeID)
	if err != nil {
		return AttendanceState{}, err
	}
	return ReduceState(events, s.groupOf(ctx, employeeID), DateOf(now)), nil
}

// =============================================================================
// SUMMARIES AND TOTALS
// =============================================================================

// DailySummaries returns per-day aggregates for the employee, restricted
// to [from, to] when either bound is set. Days with an approved
// correction report the correction's synthesized hours instead of
// whatever raw punches said.
func (s *Service) DailySummaries(ctx context.Context, employeeID EmployeeID, from, to Date) ([]DailySummary, error) {
	var events []PunchEvent
	var err error
	if from.IsZero() && to.IsZero() {
		events, err = s.Punches.LoadByEmployee(ctx, employeeID)
	} else {
		lo, hi := rangeBounds(from, to)
		events, err = s.Punches.LoadRange(ctx, employeeID, lo, hi)
	}
	if err != nil {
		return nil, err
	}

	summaries := SummarizeDays(employeeID, events)

	approved, err := s.Corrections.Query(ctx, CorrectionFilter{
		EmployeeID: employeeID,
		Status:     CorrectionApproved,
		From:       from,
		To:         to,
	})
	if err != nil {
		return nil, err
	}
	if len(approved) == 0 {
		return summaries, nil
	}

	// Replace, don't merge: the correction is authoritative for its day.
	byDay := make(map[Date]int, len(summaries))
	for i, ds := range summaries {
		byDay[ds.Date] = i
	}
	for _, c := range approved {
		override := c.Summary()
		if i, ok := byDay[c.Date]; ok {
			summaries[i] = override
		} else {
			summaries = insertByDate(summaries, override)
		}
	}
	return summaries, nil
}

// PeriodTotals aggregates the semimonthly pay period containing the
// given day. Breaks count lunch and rest together; payable hours never
// go negative.
type PeriodTotals struct {
	Period            Period
	TotalPayableHours decimal.Decimal
	TotalBreakHours   decimal.Decimal
}

func (s *Service) PeriodTotals(ctx context.Context, employeeID EmployeeID, containing Date) (PeriodTotals, error) {
	period := PayPeriodFor(containing)
	summaries, err := s.DailySummaries(ctx, employeeID, period.Start, period.End)
	if err != nil {
		return PeriodTotals{}, err
	}

	payable, breaks := decimal.Zero, decimal.Zero
	for _, ds := range summaries {
		payable = payable.Add(ds.PayableHours)
		breaks = breaks.Add(ds.LunchHours).Add(ds.RestHours)
	}
	return PeriodTotals{
		Period:            period,
		TotalPayableHours: payable.Round(2),
		TotalBreakHours:   breaks.Round(2),
	}, nil
}

// =============================================================================
// CORRECTIONS
// =============================================================================

// SubmitCorrection validates and stores a pending correction request.
func (s *Service) SubmitCorrection(ctx context.Context, actor Identity, in CorrectionInput) (*CorrectionRequest, error) {
	if in.EmployeeID == "" {
		in.EmployeeID = actor.EmployeeID
	}
	if in.EmployeeID != actor.EmployeeID && !actor.CanReview() {
		return nil, &AuthorizationError{Reason: "corrections may only be submitted for your own timesheet"}
	}

	req, err := validateCorrectionInput(in, s.groupOf(ctx, in.EmployeeID))
	if err != nil {
		return nil, err
	}
	req.ID = CorrectionID(uuid.NewString())
	req.SubmittedAt = s.now()

	unlock := s.lockEmployee(in.EmployeeID)
	defer unlock()

	err = withRetry(func() error { return s.Corrections.Create(ctx, req) })
	if errors.Is(err, ErrDuplicateLiveCorrection) {
		return nil, &ConflictError{Reason: ErrDuplicateLiveCorrection.Error()}
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// CancelCorrection withdraws a pending request. Only the submitting
// employee may cancel, and only while the request is still pending.
func (s *Service) CancelCorrection(ctx context.Context, actor Identity, id CorrectionID) error {
	req, err := s.Corrections.Get(ctx, id)
	if err != nil {
		return err
	}
	if req == nil {
		return &NotFoundError{Kind: "correction", ID: string(id)}
	}
	if req.EmployeeID != actor.EmployeeID {
		return &AuthorizationError{Reason: "only the submitting employee may cancel"}
	}

	unlock := s.lockEmployee(req.EmployeeID)
	defer unlock()

	// Re-read under the lock; a reviewer may have decided it meanwhile.
	req, err = s.Corrections.Get(ctx, id)
	if err != nil {
		return err
	}
	if req == nil {
		return &NotFoundError{Kind: "correction", ID: string(id)}
	}
	if req.Status != CorrectionPending {
		return &ConflictError{Reason: "only pending requests can be cancelled"}
	}

	req.Status = CorrectionCancelled
	return withRetry(func() error { return s.Corrections.Update(ctx, req) })
}

// ListCorrections returns matching requests, newest-submitted-first.
// Employees may only query their own; reviewers may query any.
func (s *Service) ListCorrections(ctx context.Context, actor Identity, f CorrectionFilter) ([]*CorrectionRequest, error) {
	if !actor.CanReview() {
		if f.EmployeeID != "" && f.EmployeeID != actor.EmployeeID {
			return nil, &AuthorizationError{Reason: "employees may only list their own corrections"}
		}
		f.EmployeeID = actor.EmployeeID
	}
	return s.Corrections.Query(ctx, f)
}

// ReviewAction is a reviewer's decision on a pending request.
type ReviewAction string

const (
	ReviewApprove ReviewAction = "approve"
	ReviewDeny    ReviewAction = "deny"
)

// ReviewCorrection decides a pending request. Approval applies the
// reconciliation first; if that fails the request stays pending and the
// punch log is untouched.
func (s *Service) ReviewCorrection(ctx context.Context, actor Identity, id CorrectionID, action ReviewAction, note string) error {
	if !actor.CanReview() {
		return &AuthorizationError{Reason: "only reviewers may decide correction requests"}
	}
	if action != ReviewApprove && action != ReviewDeny {
		return &ValidationError{Field: "action", Message: "action must be approve or deny"}
	}

	req, err := s.Corrections.Get(ctx, id)
	if err != nil {
		return err
	}
	if req == nil {
		return &NotFoundError{Kind: "correction", ID: string(id)}
	}

	unlock := s.lockEmployee(req.EmployeeID)
	defer unlock()

	req, err = s.Corrections.Get(ctx, id)
	if err != nil {
		return err
	}
	if req == nil {
		return &NotFoundError{Kind: "correction", ID: string(id)}
	}
	if req.Status != CorrectionPending {
		return &ConflictError{Reason: "request has already been decided"}
	}

	if action == ReviewApprove {
		var audit *CorrectionAudit
		err = withRetry(func() error {
			audit, err = ApplyCorrection(ctx, s.Punches, req)
			return err
		})
		if err != nil {
			return err
		}
		req.Audit = audit
		req.Status = CorrectionApproved
	} else {
		req.Status = CorrectionDenied
	}

	at := s.now()
	req.ReviewedAt = &at
	req.ReviewedBy = actor.EmployeeID
	req.DecisionNote = note

	return withRetry(func() error { return s.Corrections.Update(ctx, req) })
}

// =============================================================================
// HELPERS
// =============================================================================

// rangeBounds widens half-open date filters to concrete instants.
func rangeBounds(from, to Date) (time.Time, time.Time) {
	lo := time.Time{}
	hi := time.Date(9999, time.December, 31, 23, 59, 59, 0, time.Local)
	if !from.IsZero() {
		lo = from.Time()
	}
	if !to.IsZero() {
		hi = to.EndTime()
	}
	return lo, hi
}

// insertByDate inserts keeping the slice ordered by date.
func insertByDate(summaries []DailySummary, ds DailySummary) []DailySummary {
	i := 0
	for i < len(summaries) && summaries[i].Date.Before(ds.Date) {
		i++
	}
	summaries = append(summaries, DailySummary{})
	copy(summaries[i+1:], summaries[i:])
	summaries[i] = ds
	return summaries
}
