/*
Package sqlite provides a SQLite-backed implementation of the attendance
storage interfaces.

PURPOSE:
  Implements PunchStore, CorrectionStore, and EmployeeDirectory on a
  single SQLite database. The same patterns apply to PostgreSQL; only
  minor SQL dialect differences.

KEY TABLES:
  punches:     The per-employee punch log. Each row carries its local
               calendar day (local_date), derived once at write time, so
               replace-for-day and export queries never re-derive it.
  corrections: Correction requests with lifecycle state and, once
               approved, the JSON audit trail of what the apply did.
  employees:   Directory records (name, role, group). No credentials.

INVARIANTS IN THE SCHEMA:
  idx_corrections_live is a partial unique index on (employee_id, day)
  WHERE status IN ('pending','approved'). It makes the one-live-request
  per-employee+day rule atomic with the insert: a losing writer gets a
  constraint violation, not a silently duplicated live request.

ATOMIC REPLACE:
  ReplaceDay runs SELECT + DELETE + INSERT inside one database
  transaction, so a day's punches are swapped all-or-nothing.

WAL MODE:
  The database is opened with WAL for better concurrency: readers don't
  block, single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil { log.Fatal(err) }
  defer store.Close()
  svc := attendance.NewService(store, store, store)

SEE ALSO:
  - attendance/store.go: Interface definitions and atomicity contract
  - attendance/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/attendance-engine/attendance"
)

// Store implements all attendance storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Punch log
	CREATE TABLE IF NOT EXISTS punches (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		punch_type TEXT NOT NULL,
		ts TEXT NOT NULL,
		local_date TEXT NOT NULL,
		provenance TEXT NOT NULL DEFAULT 'direct',
		correction_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_punches_employee_ts
		ON punches(employee_id, ts);

	-- Replace-for-day and export hot path
	CREATE INDEX IF NOT EXISTS idx_punches_employee_date
		ON punches(employee_id, local_date);

	-- Correction requests
	CREATE TABLE IF NOT EXISTS corrections (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		day TEXT NOT NULL,
		clock_in TEXT NOT NULL,
		clock_out TEXT NOT NULL,
		meal_in TEXT,
		meal_out TEXT,
		rest_in TEXT,
		rest_out TEXT,
		note TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		submitted_at TEXT NOT NULL,
		reviewed_at TEXT,
		reviewed_by TEXT,
		decision_note TEXT,
		audit_json TEXT
	);

	-- CRITICAL: at most one live (pending or approved) request per
	-- employee+day. Enforced here so the conflict check is atomic with
	-- the insert.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_corrections_live
		ON corrections(employee_id, day)
		WHERE status IN ('pending', 'approved');

	CREATE INDEX IF NOT EXISTS idx_corrections_employee
		ON corrections(employee_id);
	CREATE INDEX IF NOT EXISTS idx_corrections_status
		ON corrections(status);
	CREATE INDEX IF NOT EXISTS idx_corrections_submitted
		ON corrections(submitted_at DESC);

	-- Employee directory
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'employee',
		emp_group TEXT NOT NULL DEFAULT 'non-therapist',
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PUNCH STORE (attendance.PunchStore interface)
// =============================================================================

// Append adds a punch event to the log.
func (s *Store) Append(ctx context.Context, e attendance.PunchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertPunch(ctx, s.db, e)
}

// AppendBatch adds multiple punch events atomically.
func (s *Store) AppendBatch(ctx context.Context, events []attendance.PunchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range events {
		if err := s.insertPunch(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) insertPunch(ctx context.Context, db execer, e attendance.PunchEvent) error {
	query := `
		INSERT INTO punches
		(id, employee_id, punch_type, ts, local_date, provenance, correction_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		e.ID,
		e.EmployeeID,
		e.Type,
		e.Timestamp.Format(time.RFC3339),
		e.Day().String(),
		e.Provenance,
		nullString(string(e.CorrectionID)),
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert punch: %w", err)
	}
	return nil
}

// LoadByEmployee returns the employee's full log ordered by timestamp.
func (s *Store) LoadByEmployee(ctx context.Context, employeeID attendance.EmployeeID) ([]attendance.PunchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectPunches + `
		WHERE employee_id = ?
		ORDER BY ts ASC, created_at ASC
	`
	return queryPunches(ctx, s.db, query, employeeID)
}

// LoadRange returns the employee's events in [from, to].
func (s *Store) LoadRange(ctx context.Context, employeeID attendance.EmployeeID, from, to time.Time) ([]attendance.PunchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectPunches + `
		WHERE employee_id = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC, created_at ASC
	`
	return queryPunches(ctx, s.db, query, employeeID,
		from.Format(time.RFC3339), to.Format(time.RFC3339))
}

// LoadAll returns every punch ordered by employee then timestamp.
func (s *Store) LoadAll(ctx context.Context) ([]attendance.PunchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectPunches + `
		ORDER BY employee_id ASC, ts ASC, created_at ASC
	`
	return queryPunches(ctx, s.db, query)
}

// ReplaceDay swaps every punch for employee+day with the given events
// inside one database transaction, returning the removed set.
func (s *Store) ReplaceDay(ctx context.Context, employeeID attendance.EmployeeID, day attendance.Date, insert []attendance.PunchEvent) ([]attendance.PunchEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	removed, err := queryPunches(ctx, tx, selectPunches+`
		WHERE employee_id = ? AND local_date = ?
		ORDER BY ts ASC, created_at ASC
	`, employeeID, day.String())
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM punches WHERE employee_id = ? AND local_date = ?",
		employeeID, day.String(),
	); err != nil {
		return nil, fmt.Errorf("failed to clear day: %w", err)
	}

	for _, e := range insert {
		if err := s.insertPunch(ctx, tx, e); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit replace: %w", err)
	}
	return removed, nil
}

const selectPunches = `
	SELECT id, employee_id, punch_type, ts, provenance, correction_id
	FROM punches
`

func queryPunches(ctx context.Context, db querier, query string, args ...any) ([]attendance.PunchEvent, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query punches: %w", err)
	}
	defer rows.Close()

	var events []attendance.PunchEvent
	for rows.Next() {
		var (
			e            attendance.PunchEvent
			ts           string
			correctionID sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.Type, &ts, &e.Provenance, &correctionID); err != nil {
			return nil, fmt.Errorf("failed to scan punch: %w", err)
		}
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse punch timestamp: %w", err)
		}
		e.Timestamp = t.Local()
		e.CorrectionID = attendance.CorrectionID(correctionID.String)
		events = append(events, e)
	}
	return events, rows.Err()
}

// =============================================================================
// CORRECTION STORE (attendance.CorrectionStore interface)
// =============================================================================

// Create stores a new pending request. The partial unique index on live
// requests makes the one-live-per-employee+day check atomic with the
// insert.
func (s *Store) Create(ctx context.Context, c *attendance.CorrectionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	auditJSON, err := marshalAudit(c.Audit)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO corrections
		(id, employee_id, day, clock_in, clock_out, meal_in, meal_out,
		 rest_in, rest_out, note, status, submitted_at, reviewed_at,
		 reviewed_by, decision_note, audit_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		c.ID,
		c.EmployeeID,
		c.Date.String(),
		c.ClockIn.String(),
		c.ClockOut.String(),
		nullTimeOfDay(c.MealIn),
		nullTimeOfDay(c.MealOut),
		nullTimeOfDay(c.RestIn),
		nullTimeOfDay(c.RestOut),
		c.Note,
		c.Status,
		c.SubmittedAt.Format(time.RFC3339),
		nullTime(c.ReviewedAt),
		nullString(string(c.ReviewedBy)),
		c.DecisionNote,
		auditJSON,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return attendance.ErrDuplicateLiveCorrection
		}
		return fmt.Errorf("failed to insert correction: %w", err)
	}
	return nil
}

// Get returns the request, or nil when the ID is unknown.
func (s *Store) Get(ctx context.Context, id attendance.CorrectionID) (*attendance.CorrectionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectCorrections+" WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query correction: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanCorrection(rows)
}

// Update persists lifecycle changes.
func (s *Store) Update(ctx context.Context, c *attendance.CorrectionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	auditJSON, err := marshalAudit(c.Audit)
	if err != nil {
		return err
	}

	query := `
		UPDATE corrections
		SET status = ?, reviewed_at = ?, reviewed_by = ?, decision_note = ?, audit_json = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		c.Status,
		nullTime(c.ReviewedAt),
		nullString(string(c.ReviewedBy)),
		c.DecisionNote,
		auditJSON,
		c.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return attendance.ErrDuplicateLiveCorrection
		}
		return fmt.Errorf("failed to update correction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attendance.ErrNotFound
	}
	return nil
}

// Query returns matching requests, newest-submitted-first.
func (s *Store) Query(ctx context.Context, f attendance.CorrectionFilter) ([]*attendance.CorrectionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectCorrections + " WHERE 1=1"
	var args []any
	if f.EmployeeID != "" {
		query += " AND employee_id = ?"
		args = append(args, f.EmployeeID)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	if !f.From.IsZero() {
		query += " AND day >= ?"
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		query += " AND day <= ?"
		args = append(args, f.To.String())
	}
	query += " ORDER BY submitted_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer rows.Close()

	var result []*attendance.CorrectionRequest
	for rows.Next() {
		c, err := scanCorrection(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

const selectCorrections = `
	SELECT id, employee_id, day, clock_in, clock_out, meal_in, meal_out,
	       rest_in, rest_out, note, status, submitted_at, reviewed_at,
	       reviewed_by, decision_note, audit_json
	FROM corrections
`

func scanCorrection(rows *sql.Rows) (*attendance.CorrectionRequest, error) {
	var (
		c                      attendance.CorrectionRequest
		day, clockIn, clockOut string
		mealIn, mealOut        sql.NullString
		restIn, restOut        sql.NullString
		note, decisionNote     sql.NullString
		submittedAt            string
		reviewedAt, reviewedBy sql.NullString
		auditJSON              sql.NullString
	)

	err := rows.Scan(
		&c.ID, &c.EmployeeID, &day, &clockIn, &clockOut,
		&mealIn, &mealOut, &restIn, &restOut, &note, &c.Status,
		&submittedAt, &reviewedAt, &reviewedBy, &decisionNote, &auditJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan correction: %w", err)
	}

	if c.Date, err = attendance.ParseDate(day); err != nil {
		return nil, err
	}
	if c.ClockIn, err = attendance.ParseTimeOfDay(clockIn); err != nil {
		return nil, err
	}
	if c.ClockOut, err = attendance.ParseTimeOfDay(clockOut); err != nil {
		return nil, err
	}
	if c.MealIn, err = parseTimeOfDayPtr(mealIn); err != nil {
		return nil, err
	}
	if c.MealOut, err = parseTimeOfDayPtr(mealOut); err != nil {
		return nil, err
	}
	if c.RestIn, err = parseTimeOfDayPtr(restIn); err != nil {
		return nil, err
	}
	if c.RestOut, err = parseTimeOfDayPtr(restOut); err != nil {
		return nil, err
	}

	c.Note = note.String
	c.DecisionNote = decisionNote.String
	c.ReviewedBy = attendance.EmployeeID(reviewedBy.String)

	if c.SubmittedAt, err = parseTimestamp(submittedAt); err != nil {
		return nil, err
	}
	if reviewedAt.Valid {
		t, err := parseTimestamp(reviewedAt.String)
		if err != nil {
			return nil, err
		}
		c.ReviewedAt = &t
	}
	if auditJSON.Valid && auditJSON.String != "" {
		var audit attendance.CorrectionAudit
		if err := json.Unmarshal([]byte(auditJSON.String), &audit); err != nil {
			return nil, fmt.Errorf("failed to decode audit: %w", err)
		}
		c.Audit = &audit
	}

	return &c, nil
}

// =============================================================================
// EMPLOYEE DIRECTORY (attendance.EmployeeDirectory interface)
// =============================================================================

// SaveEmployee inserts or updates a directory record.
func (s *Store) SaveEmployee(ctx context.Context, e attendance.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, role, emp_group, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			emp_group = excluded.emp_group
	`

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.Name, e.Role, e.Group, createdAt.Format(time.RFC3339))
	return err
}

// GetEmployee retrieves a directory record, or nil when unknown.
func (s *Store) GetEmployee(ctx context.Context, id attendance.EmployeeID) (*attendance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		e         attendance.Employee
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, role, emp_group, created_at FROM employees WHERE id = ?",
		id,
	).Scan(&e.ID, &e.Name, &e.Role, &e.Group, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.CreatedAt, _ = parseTimestamp(createdAt)
	return &e, nil
}

// ListEmployees returns all directory records ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]attendance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, role, emp_group, created_at FROM employees ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []attendance.Employee
	for rows.Next() {
		var (
			e         attendance.Employee
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Role, &e.Group, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = parseTimestamp(createdAt)
		result = append(result, e)
	}
	return result, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func marshalAudit(a *attendance.CorrectionAudit) (any, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit: %w", err)
	}
	return string(b), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func nullTimeOfDay(t *attendance.TimeOfDay) any {
	if t == nil {
		return nil
	}
	return t.String()
}

func parseTimeOfDayPtr(s sql.NullString) (*attendance.TimeOfDay, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := attendance.ParseTimeOfDay(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t.Local(), nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
