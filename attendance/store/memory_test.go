package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/attendance/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func event(id, emp string, t attendance.PunchType, ts time.Time) attendance.PunchEvent {
	return attendance.PunchEvent{
		ID:         attendance.PunchID(id),
		EmployeeID: attendance.EmployeeID(emp),
		Type:       t,
		Timestamp:  ts,
		Provenance: attendance.ProvenanceDirect,
	}
}

func correction(id, emp string, d attendance.Date, status attendance.CorrectionStatus, submitted time.Time) *attendance.CorrectionRequest {
	return &attendance.CorrectionRequest{
		ID:          attendance.CorrectionID(id),
		EmployeeID:  attendance.EmployeeID(emp),
		Date:        d,
		ClockIn:     attendance.TimeOfDay(9 * 60),
		ClockOut:    attendance.TimeOfDay(17 * 60),
		Status:      status,
		SubmittedAt: submitted,
	}
}

// =============================================================================
// PUNCH LOG TESTS
// =============================================================================

func TestMemory_Append_KeepsTimestampOrder(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	base := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.Local)
	require.NoError(t, mem.Append(ctx, event("p2", "emp-1", attendance.ClockOut, base.Add(8*time.Hour))))
	require.NoError(t, mem.Append(ctx, event("p1", "emp-1", attendance.ClockIn, base)))

	events, err := mem.LoadByEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, attendance.PunchID("p1"), events[0].ID)
	assert.Equal(t, attendance.PunchID("p2"), events[1].ID)
}

func TestMemory_LoadRange_InclusiveBounds(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	base := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.Local)
	require.NoError(t, mem.Append(ctx, event("p1", "emp-1", attendance.ClockIn, base)))
	require.NoError(t, mem.Append(ctx, event("p2", "emp-1", attendance.ClockOut, base.Add(8*time.Hour))))
	require.NoError(t, mem.Append(ctx, event("p3", "emp-1", attendance.ClockIn, base.AddDate(0, 0, 1))))

	events, err := mem.LoadRange(ctx, "emp-1", base, base.Add(8*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestMemory_LoadAll_GroupedByEmployee(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	base := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.Local)
	require.NoError(t, mem.Append(ctx, event("pz", "zed", attendance.ClockIn, base)))
	require.NoError(t, mem.Append(ctx, event("pa", "ann", attendance.ClockIn, base.Add(time.Hour))))

	events, err := mem.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, attendance.EmployeeID("ann"), events[0].EmployeeID)
	assert.Equal(t, attendance.EmployeeID("zed"), events[1].EmployeeID)
}

func TestMemory_ReplaceDay_OnlyTargetDay(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	base := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.Local)
	require.NoError(t, mem.Append(ctx, event("p1", "emp-1", attendance.ClockIn, base)))
	require.NoError(t, mem.Append(ctx, event("p2", "emp-1", attendance.ClockIn, base.AddDate(0, 0, 1))))

	inserted := event("c1", "emp-1", attendance.ClockIn, base.Add(-time.Hour))
	removed, err := mem.ReplaceDay(ctx, "emp-1", attendance.NewDate(2024, time.March, 4), []attendance.PunchEvent{inserted})
	require.NoError(t, err)

	require.Len(t, removed, 1)
	assert.Equal(t, attendance.PunchID("p1"), removed[0].ID)

	events, err := mem.LoadByEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, attendance.PunchID("c1"), events[0].ID)
	assert.Equal(t, attendance.PunchID("p2"), events[1].ID)
}

// =============================================================================
// CORRECTION STORE TESTS
// =============================================================================

func TestMemory_Create_DuplicateLiveRejected(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	d := attendance.NewDate(2024, time.March, 4)
	base := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.Local)

	require.NoError(t, mem.Create(ctx, correction("c1", "emp-1", d, attendance.CorrectionPending, base)))

	err := mem.Create(ctx, correction("c2", "emp-1", d, attendance.CorrectionPending, base.Add(time.Minute)))
	assert.ErrorIs(t, err, attendance.ErrDuplicateLiveCorrection)

	// Other employees and other days are unaffected.
	require.NoError(t, mem.Create(ctx, correction("c3", "tia", d, attendance.CorrectionPending, base)))
	require.NoError(t, mem.Create(ctx, correction("c4", "emp-1", d.AddDays(1), attendance.CorrectionPending, base)))
}

func TestMemory_Create_LatestDecidesLiveness(t *testing.T) {
	// GIVEN: The latest request for the day is denied
	// WHEN: Creating a new one
	// THEN: Accepted; a dead latest request does not block

	ctx := context.Background()
	mem := store.NewMemory()
	d := attendance.NewDate(2024, time.March, 4)
	base := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.Local)

	require.NoError(t, mem.Create(ctx, correction("c1", "emp-1", d, attendance.CorrectionDenied, base)))
	require.NoError(t, mem.Create(ctx, correction("c2", "emp-1", d, attendance.CorrectionPending, base.Add(time.Hour))))
}

func TestMemory_Query_FiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	base := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.Local)

	require.NoError(t, mem.Create(ctx, correction("c1", "emp-1", attendance.NewDate(2024, time.March, 4), attendance.CorrectionDenied, base)))
	require.NoError(t, mem.Create(ctx, correction("c2", "emp-1", attendance.NewDate(2024, time.March, 6), attendance.CorrectionPending, base.Add(time.Hour))))
	require.NoError(t, mem.Create(ctx, correction("c3", "tia", attendance.NewDate(2024, time.March, 6), attendance.CorrectionPending, base.Add(2*time.Hour))))

	// Newest first
	all, err := mem.Query(ctx, attendance.CorrectionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, attendance.CorrectionID("c3"), all[0].ID)

	byEmployee, err := mem.Query(ctx, attendance.CorrectionFilter{EmployeeID: "emp-1"})
	require.NoError(t, err)
	assert.Len(t, byEmployee, 2)

	byStatus, err := mem.Query(ctx, attendance.CorrectionFilter{Status: attendance.CorrectionPending})
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)

	byRange, err := mem.Query(ctx, attendance.CorrectionFilter{
		From: attendance.NewDate(2024, time.March, 5),
		To:   attendance.NewDate(2024, time.March, 7),
	})
	require.NoError(t, err)
	assert.Len(t, byRange, 2)
}

func TestMemory_UpdateUnknown_NotFound(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	err := mem.Update(ctx, correction("ghost", "emp-1", attendance.NewDate(2024, time.March, 4), attendance.CorrectionPending, time.Now()))
	assert.ErrorIs(t, err, attendance.ErrNotFound)
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	d := attendance.NewDate(2024, time.March, 4)
	require.NoError(t, mem.Create(ctx, correction("c1", "emp-1", d, attendance.CorrectionPending, time.Now())))

	first, err := mem.Get(ctx, "c1")
	require.NoError(t, err)
	first.Status = attendance.CorrectionApproved

	second, err := mem.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, attendance.CorrectionPending, second.Status)
}

// =============================================================================
// DIRECTORY TESTS
// =============================================================================

func TestMemory_Directory(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	require.NoError(t, mem.SaveEmployee(ctx, attendance.Employee{ID: "zed", Name: "Zed", Role: attendance.RoleEmployee, Group: attendance.GroupNonTherapist}))
	require.NoError(t, mem.SaveEmployee(ctx, attendance.Employee{ID: "ann", Name: "Ann", Role: attendance.RoleAdmin, Group: attendance.GroupAdmin}))

	got, err := mem.GetEmployee(ctx, "ann")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, attendance.RoleAdmin, got.Role)

	missing, err := mem.GetEmployee(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := mem.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ann", list[0].Name)
	assert.Equal(t, "Zed", list[1].Name)
}
