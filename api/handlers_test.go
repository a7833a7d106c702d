package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/attendance/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *attendance.Service) {
	ctx := context.Background()
	mem := store.NewMemory()

	for _, e := range []attendance.Employee{
		{ID: "emp-1", Name: "Avery", Role: attendance.RoleEmployee, Group: attendance.GroupNonTherapist},
		{ID: "tia", Name: "Tia", Role: attendance.RoleEmployee, Group: attendance.GroupTherapist},
		{ID: "boss", Name: "Morgan", Role: attendance.RoleAdmin, Group: attendance.GroupAdmin},
	} {
		require.NoError(t, mem.SaveEmployee(ctx, e))
	}

	svc := attendance.NewService(mem, mem, mem)
	svc.Now = func() time.Time {
		return time.Date(2024, time.March, 4, 10, 0, 0, 0, time.Local)
	}

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(svc, mem)))
	t.Cleanup(srv.Close)
	return srv, svc
}

func doJSON(t *testing.T, method, url, employee string, body any) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if employee != "" {
		req.Header.Set("X-Employee", employee)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// =============================================================================
// EMPLOYEE ENDPOINTS
// =============================================================================

func TestAPI_Employees_ListAndCreate(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/employees", "boss", map[string]string{
		"id": "newbie", "name": "Noor", "group": "therapist",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[map[string]any](t, resp)
	assert.Equal(t, "therapist", created["group"])
	assert.Equal(t, "employee", created["role"])

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/employees", "boss", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]map[string]any](t, resp)
	assert.Len(t, list, 4)
}

func TestAPI_Employees_CreateRequiresIDAndName(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/employees", "boss", map[string]string{"name": "No ID"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// PUNCH ENDPOINTS
// =============================================================================

func TestAPI_Record_HappyPath(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/record", "emp-1", map[string]string{"type": "CLOCK_IN"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestAPI_Record_IllegalSequence_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/record", "emp-1", map[string]string{"type": "MEAL_IN"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_Record_TherapistRest_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/record", "tia", map[string]string{"type": "CLOCK_IN"})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/record", "tia", map[string]string{"type": "REST_IN"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Contains(t, body["error"], "rest break is disabled for therapists")
}

func TestAPI_Record_NoIdentity_Forbidden(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/record", "", map[string]string{"type": "CLOCK_IN"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_State_ReflectsPunches(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/record", "emp-1", map[string]string{"type": "CLOCK_IN"})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/state", "emp-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[map[string]any](t, resp)
	assert.Equal(t, true, st["clocked_in"])
}

func TestAPI_State_OtherEmployee_ReviewerOnly(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/state?employee=tia", "emp-1", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/state?employee=tia", "boss", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_Records_ScopedByRole(t *testing.T) {
	srv, svc := newTestServer(t)
	ctx := context.Background()

	worker := attendance.Identity{EmployeeID: "emp-1", Role: attendance.RoleEmployee}
	other := attendance.Identity{EmployeeID: "tia", Role: attendance.RoleEmployee, Group: attendance.GroupTherapist}
	require.NoError(t, svc.RecordPunch(ctx, worker, attendance.ClockIn, time.Date(2024, time.March, 4, 9, 0, 0, 0, time.Local)))
	require.NoError(t, svc.RecordPunch(ctx, other, attendance.ClockIn, time.Date(2024, time.March, 4, 9, 30, 0, 0, time.Local)))

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/records", "emp-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	own := decode[[]map[string]any](t, resp)
	require.Len(t, own, 1)
	assert.Equal(t, "emp-1", own[0]["employee_id"])

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/records?employee=tia", "emp-1", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/records", "boss", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decode[[]map[string]any](t, resp)
	assert.Len(t, all, 2)
}

// =============================================================================
// SUMMARY ENDPOINTS
// =============================================================================

func seedDay(t *testing.T, svc *attendance.Service, emp string, d int) {
	ctx := context.Background()
	ident := attendance.Identity{EmployeeID: attendance.EmployeeID(emp), Role: attendance.RoleEmployee}
	at := func(hh, mm int) time.Time {
		return time.Date(2024, time.March, d, hh, mm, 0, 0, time.Local)
	}
	require.NoError(t, svc.RecordPunch(ctx, ident, attendance.ClockIn, at(9, 0)))
	require.NoError(t, svc.RecordPunch(ctx, ident, attendance.MealIn, at(12, 0)))
	require.NoError(t, svc.RecordPunch(ctx, ident, attendance.MealOut, at(12, 30)))
	require.NoError(t, svc.RecordPunch(ctx, ident, attendance.ClockOut, at(17, 0)))
}

func TestAPI_Summaries(t *testing.T) {
	srv, svc := newTestServer(t)
	seedDay(t, svc, "emp-1", 4)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/summaries", "emp-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]map[string]any](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "2024-03-04", list[0]["date"])
	assert.Equal(t, "7.50", list[0]["payable_hours"])
}

func TestAPI_PeriodTotals(t *testing.T) {
	srv, svc := newTestServer(t)
	seedDay(t, svc, "emp-1", 4)
	seedDay(t, svc, "emp-1", 5)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/summary?date=2024-03-10", "emp-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	totals := decode[map[string]string](t, resp)
	assert.Equal(t, "2024-03-01", totals["period_start"])
	assert.Equal(t, "2024-03-15", totals["period_end"])
	assert.Equal(t, "15.00", totals["total_payable_hours"])
	assert.Equal(t, "1.00", totals["total_break_hours"])
}

// =============================================================================
// CORRECTION ENDPOINTS
// =============================================================================

func submitCorrection(t *testing.T, srv *httptest.Server, employee string) map[string]any {
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/corrections", employee, map[string]string{
		"date":      "2024-03-04",
		"clock_in":  "09:00",
		"clock_out": "17:00",
		"meal_in":   "12:00",
		"meal_out":  "12:30",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[map[string]any](t, resp)
}

func TestAPI_Corrections_SubmitAndList(t *testing.T) {
	srv, _ := newTestServer(t)
	created := submitCorrection(t, srv, "emp-1")

	assert.Equal(t, "pending", created["status"])
	assert.NotEmpty(t, created["id"])

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/corrections", "emp-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]map[string]any](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, created["id"], list[0]["id"])
}

func TestAPI_Corrections_DuplicateLive_Conflict(t *testing.T) {
	srv, _ := newTestServer(t)
	submitCorrection(t, srv, "emp-1")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/corrections", "emp-1", map[string]string{
		"date":      "2024-03-04",
		"clock_in":  "08:00",
		"clock_out": "16:00",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_Corrections_InvalidTimes_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/corrections", "emp-1", map[string]string{
		"date":      "2024-03-04",
		"clock_in":  "quarter past nine",
		"clock_out": "17:00",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_Corrections_ApproveFlow(t *testing.T) {
	srv, svc := newTestServer(t)
	seedDay(t, svc, "emp-1", 4)
	created := submitCorrection(t, srv, "emp-1")
	id := created["id"].(string)

	// Employees cannot decide
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/corrections/"+id+"/approve", "emp-1", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/corrections/"+id+"/approve", "boss", map[string]string{"note": "ok"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decided := decode[map[string]any](t, resp)
	assert.Equal(t, "approved", decided["status"])
	assert.Equal(t, "boss", decided["reviewed_by"])
	require.NotNil(t, decided["audit"])
	audit := decided["audit"].(map[string]any)
	assert.Equal(t, "7.50", audit["payable_hours"])

	// Second decision conflicts
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/corrections/"+id+"/deny", "boss", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_Corrections_CancelFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	created := submitCorrection(t, srv, "emp-1")
	id := created["id"].(string)

	// Only the owner cancels
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/corrections/"+id+"/cancel", "tia", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/corrections/"+id+"/cancel", "emp-1", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_Corrections_UnknownID_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/corrections/ghost/deny", "boss", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// EXPORT ENDPOINT
// =============================================================================

func TestAPI_Export_ReturnsWorkbook(t *testing.T) {
	srv, svc := newTestServer(t)
	seedDay(t, svc, "emp-1", 4)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/export?range=current", "boss", nil)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "All_Employees_Summary")
}

func TestAPI_Export_CustomRangeValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/export?range=custom&start=notadate&end=2024-03-15", "boss", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
