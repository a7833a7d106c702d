/*
monitor.go - Missed-punch monitor

PURPOSE:
  Periodically recomputes every employee's attendance state and logs
  incomplete days the moment they appear, so missed closing punches
  surface without waiting for someone to open their timesheet.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Folds each employee's log and diffs incomplete days against the
    previous sweep
  - Only newly observed days are logged; known ones are skipped

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether the monitor is active (default: true)

USAGE:
  monitor := NewMissedPunchMonitor(svc, directory)
  monitor.Start()
  // ... later
  monitor.Stop()

SEE ALSO:
  - attendance/state.go: The reducer whose incomplete days are watched
  - cmd/server/main.go: Wiring and interval flag
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/attendance-engine/attendance"
)

// MissedPunchMonitor sweeps employee states for incomplete days.
type MissedPunchMonitor struct {
	Service       *attendance.Service
	Directory     attendance.EmployeeDirectory
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex

	// employee+date pairs already reported
	seen map[string]bool
}

// NewMissedPunchMonitor creates a new monitor.
func NewMissedPunchMonitor(svc *attendance.Service, directory attendance.EmployeeDirectory) *MissedPunchMonitor {
	return &MissedPunchMonitor{
		Service:       svc,
		Directory:     directory,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
		seen:          make(map[string]bool),
	}
}

// Start begins the monitor.
func (m *MissedPunchMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Enabled {
		log.Println("[Monitor] Disabled, not starting")
		return
	}

	m.ticker = time.NewTicker(m.CheckInterval)
	m.wg.Add(1)

	go m.run()

	log.Printf("[Monitor] Started with check interval: %v", m.CheckInterval)
}

// Stop stops the monitor.
func (m *MissedPunchMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ticker != nil {
		m.ticker.Stop()
		close(m.stop)
		m.wg.Wait()
		log.Println("[Monitor] Stopped")
	}
}

func (m *MissedPunchMonitor) run() {
	defer m.wg.Done()

	// Sweep immediately on start
	m.sweep()

	for {
		select {
		case <-m.ticker.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

func (m *MissedPunchMonitor) sweep() {
	ctx := context.Background()
	now := time.Now()

	employees, err := m.Directory.ListEmployees(ctx)
	if err != nil {
		log.Printf("[Monitor] Error listing employees: %v", err)
		return
	}

	newCount := 0
	for _, emp := range employees {
		st, err := m.Service.State(ctx, emp.ID, now)
		if err != nil {
			log.Printf("[Monitor] Error computing state for %s: %v", emp.ID, err)
			continue
		}

		for _, day := range st.IncompleteDays {
			key := string(emp.ID) + "|" + day.Date.String()

			m.mu.Lock()
			known := m.seen[key]
			if !known {
				m.seen[key] = true
			}
			m.mu.Unlock()

			if known {
				continue
			}
			newCount++
			log.Printf("[Monitor] Incomplete day for %s (%s) on %s: missing %v",
				emp.Name, emp.ID, day.Date, day.Missing)
		}
	}

	if newCount > 0 {
		log.Printf("[Monitor] Sweep completed: %d new incomplete days", newCount)
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (m *MissedPunchMonitor) RunNow() {
	m.sweep()
}
