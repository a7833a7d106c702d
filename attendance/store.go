/*
store.go - Persistence interfaces for punches, corrections, and employees

PURPOSE:
  Defines the boundary between the engine and storage. The engine only
  ever reads full per-employee ordered copies of the punch log and, for
  reconciliation, issues an atomic replace-for-day; it never edits
  individual punches in place.

ATOMICITY CONTRACT:
  Two operations are correctness-critical and must be indivisible:

  - PunchStore.ReplaceDay: the read-partition-write that swaps one
    employee+day's punches for a synthesized set. A concurrent append
    must land entirely before or entirely after the swap.
  - CorrectionStore.Create: the one-live-request-per-employee+day check
    and the insert of the new pending record are one step. A
    read-then-write race here would allow duplicate live requests.

  Implementations signal a lost race with ErrConcurrentModification;
  the service retries a small bounded number of times.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite (transactions + partial unique index)
  - attendance/store: in-memory (mutex-guarded) for tests and dev
*/
package attendance

import (
	"context"
	"time"
)

// =============================================================================
// PUNCH STORE
// =============================================================================

// PunchStore persists the append-only punch log. The only mutation
// besides append is ReplaceDay, which reconciliation uses to supersede
// a day wholesale.
type PunchStore interface {
	// Append persists one punch event.
	Append(ctx context.Context, e PunchEvent) error

	// AppendBatch persists several punch events atomically.
	AppendBatch(ctx context.Context, events []PunchEvent) error

	// LoadByEmployee returns the employee's full log ordered by timestamp.
	LoadByEmployee(ctx context.Context, employeeID EmployeeID) ([]PunchEvent, error)

	// LoadRange returns the employee's events with from <= timestamp <= to,
	// ordered by timestamp.
	LoadRange(ctx context.Context, employeeID EmployeeID, from, to time.Time) ([]PunchEvent, error)

	// LoadAll returns every event in the store, ordered by employee then
	// timestamp. Used by reviewer-facing listings and exports.
	LoadAll(ctx context.Context) ([]PunchEvent, error)

	// ReplaceDay atomically removes every event for employee+day and
	// inserts the given events in their place, returning the removed set.
	ReplaceDay(ctx context.Context, employeeID EmployeeID, day Date, insert []PunchEvent) (removed []PunchEvent, err error)
}

// =============================================================================
// CORRECTION STORE
// =============================================================================

// CorrectionFilter narrows a correction query. Zero values match all.
type CorrectionFilter struct {
	EmployeeID EmployeeID
	Status     CorrectionStatus
	From       Date
	To         Date
}

// CorrectionStore persists correction requests.
type CorrectionStore interface {
	// Create stores a new pending request. It must atomically enforce the
	// one-live-request-per-employee+day invariant, returning
	// ErrDuplicateLiveCorrection when the latest existing request for the
	// day is still pending or approved.
	Create(ctx context.Context, c *CorrectionRequest) error

	// Get returns the request, or nil when the ID is unknown.
	Get(ctx context.Context, id CorrectionID) (*CorrectionRequest, error)

	// Update persists lifecycle changes (status, review fields, audit).
	Update(ctx context.Context, c *CorrectionRequest) error

	// Query returns matching requests, newest-submitted-first.
	Query(ctx context.Context, f CorrectionFilter) ([]*CorrectionRequest, error)
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

// EmployeeDirectory stores directory records: display name, role, group.
// Credentials and sessions live with the caller, not here.
type EmployeeDirectory interface {
	// GetEmployee returns the employee, or nil when unknown.
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)

	// ListEmployees returns all employees ordered by name.
	ListEmployees(ctx context.Context) ([]Employee, error)

	// SaveEmployee inserts or updates a directory record.
	SaveEmployee(ctx context.Context, e Employee) error
}
