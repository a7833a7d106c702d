// Package store provides in-memory implementations of the attendance
// storage interfaces, for tests and development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/attendance-engine/attendance"
)

// =============================================================================
// MEMORY STORE - Implements PunchStore, CorrectionStore, EmployeeDirectory
// =============================================================================

// Memory is a mutex-guarded in-memory store. One instance satisfies all
// three storage interfaces, which mirrors how the production store keeps
// everything in a single database.
type Memory struct {
	mu          sync.RWMutex
	punches     map[attendance.EmployeeID][]attendance.PunchEvent
	corrections map[attendance.CorrectionID]*attendance.CorrectionRequest
	employees   map[attendance.EmployeeID]attendance.Employee
}

func NewMemory() *Memory {
	return &Memory{
		punches:     make(map[attendance.EmployeeID][]attendance.PunchEvent),
		corrections: make(map[attendance.CorrectionID]*attendance.CorrectionRequest),
		employees:   make(map[attendance.EmployeeID]attendance.Employee),
	}
}

// =============================================================================
// PUNCH STORE
// =============================================================================

func (m *Memory) Append(_ context.Context, e attendance.PunchEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLocked(e)
	return nil
}

func (m *Memory) AppendBatch(_ context.Context, events []attendance.PunchEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range events {
		m.appendLocked(e)
	}
	return nil
}

// appendLocked inserts keeping each employee's log ordered by timestamp.
func (m *Memory) appendLocked(e attendance.PunchEvent) {
	log := m.punches[e.EmployeeID]
	i := sort.Search(len(log), func(i int) bool {
		return log[i].Timestamp.After(e.Timestamp)
	})
	log = append(log, attendance.PunchEvent{})
	copy(log[i+1:], log[i:])
	log[i] = e
	m.punches[e.EmployeeID] = log
}

func (m *Memory) LoadByEmployee(_ context.Context, employeeID attendance.EmployeeID) ([]attendance.PunchEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]attendance.PunchEvent, len(m.punches[employeeID]))
	copy(result, m.punches[employeeID])
	return result, nil
}

func (m *Memory) LoadRange(_ context.Context, employeeID attendance.EmployeeID, from, to time.Time) ([]attendance.PunchEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []attendance.PunchEvent
	for _, e := range m.punches[employeeID] {
		if !e.Timestamp.Before(from) && !e.Timestamp.After(to) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *Memory) LoadAll(_ context.Context) ([]attendance.PunchEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]attendance.EmployeeID, 0, len(m.punches))
	for id := range m.punches {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var result []attendance.PunchEvent
	for _, id := range ids {
		result = append(result, m.punches[id]...)
	}
	return result, nil
}

// ReplaceDay removes every event for employee+day and inserts the given
// events in their place, all under one lock acquisition.
func (m *Memory) ReplaceDay(_ context.Context, employeeID attendance.EmployeeID, day attendance.Date, insert []attendance.PunchEvent) ([]attendance.PunchEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed, kept []attendance.PunchEvent
	for _, e := range m.punches[employeeID] {
		if e.Day() == day {
			removed = append(removed, e)
		} else {
			kept = append(kept, e)
		}
	}

	m.punches[employeeID] = kept
	for _, e := range insert {
		m.appendLocked(e)
	}
	return removed, nil
}

// =============================================================================
// CORRECTION STORE
// =============================================================================

func (m *Memory) Create(_ context.Context, c *attendance.CorrectionRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check-and-insert under one lock: the latest request for this
	// employee+day must not still be live.
	if latest := m.latestForDayLocked(c.EmployeeID, c.Date); latest != nil && latest.Status.Live() {
		return attendance.ErrDuplicateLiveCorrection
	}

	stored := *c
	m.corrections[c.ID] = &stored
	return nil
}

func (m *Memory) latestForDayLocked(employeeID attendance.EmployeeID, day attendance.Date) *attendance.CorrectionRequest {
	var latest *attendance.CorrectionRequest
	for _, c := range m.corrections {
		if c.EmployeeID != employeeID || c.Date != day {
			continue
		}
		if latest == nil || c.SubmittedAt.After(latest.SubmittedAt) {
			latest = c
		}
	}
	return latest
}

func (m *Memory) Get(_ context.Context, id attendance.CorrectionID) (*attendance.CorrectionRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.corrections[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) Update(_ context.Context, c *attendance.CorrectionRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.corrections[c.ID]; !ok {
		return attendance.ErrNotFound
	}
	stored := *c
	m.corrections[c.ID] = &stored
	return nil
}

func (m *Memory) Query(_ context.Context, f attendance.CorrectionFilter) ([]*attendance.CorrectionRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*attendance.CorrectionRequest
	for _, c := range m.corrections {
		if f.EmployeeID != "" && c.EmployeeID != f.EmployeeID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && c.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && c.Date.After(f.To) {
			continue
		}
		cp := *c
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SubmittedAt.After(result[j].SubmittedAt)
	})
	return result, nil
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

func (m *Memory) GetEmployee(_ context.Context, id attendance.EmployeeID) (*attendance.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]attendance.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]attendance.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) SaveEmployee(_ context.Context, e attendance.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
	return nil
}
