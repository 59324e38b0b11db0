package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/leave/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// API tests run the full router over the in-memory store with the clock
// pinned to Monday 2026-03-02.
func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()

	managerID := leave.EmployeeID("mgr-1")
	require.NoError(t, mem.SaveEmployee(ctx, leave.Employee{
		ID:       managerID,
		Name:     "Dana Whitfield",
		HireDate: mustDate(t, "2019-03-11"),
		Active:   true,
	}))
	require.NoError(t, mem.SaveEmployee(ctx, leave.Employee{
		ID:        "emp-1",
		Name:      "Priya Raman",
		HireDate:  mustDate(t, "2022-06-01"),
		ManagerID: &managerID,
		Active:    true,
	}))
	require.NoError(t, mem.SaveLeaveType(ctx, leave.LeaveType{
		ID:                 "vacation",
		Name:               "Vacation",
		Paid:               true,
		RequiresApproval:   true,
		DefaultDaysPerYear: 20,
		MaxConsecutiveDays: 15,
		Active:             true,
	}))

	engine := leave.NewEngine(mem, leave.WithClock(func() time.Time {
		return time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	}))
	handler := api.NewHandler(mem, engine)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := api.NewRouter(handler, logger, []string{"*"})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, mem
}

func mustDate(t *testing.T, s string) leave.Date {
	t.Helper()
	d, err := leave.ParseDate(s)
	require.NoError(t, err)
	return d
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func submitVacation(t *testing.T, srv *httptest.Server, start, end string) string {
	t.Helper()
	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/api/employees/emp-1/requests", map[string]any{
		"leave_type_id": "vacation",
		"start_date":    start,
		"end_date":      end,
		"reason":        "trip",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var dto struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &dto))
	return dto.ID
}

// =============================================================================
// SUBMISSION
// =============================================================================

func TestAPI_SubmitRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/api/employees/emp-1/requests", map[string]any{
		"leave_type_id": "vacation",
		"start_date":    "2026-03-04",
		"end_date":      "2026-03-06",
		"reason":        "trip",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var dto map[string]any
	require.NoError(t, json.Unmarshal(raw, &dto))
	assert.Equal(t, "pending", dto["status"])
	assert.Equal(t, float64(3), dto["chargeable_days"])
	assert.NotContains(t, dto, "decision")
}

func TestAPI_SubmitRequest_ValidationRejectionIs400(t *testing.T) {
	srv, _ := newTestServer(t)

	// Starts tomorrow: insufficient notice.
	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/api/employees/emp-1/requests", map[string]any{
		"leave_type_id": "vacation",
		"start_date":    "2026-03-03",
		"end_date":      "2026-03-03",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(raw))
}

func TestAPI_SubmitRequest_OverlapIs409(t *testing.T) {
	srv, _ := newTestServer(t)
	submitVacation(t, srv, "2026-03-04", "2026-03-06")

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/api/employees/emp-1/requests", map[string]any{
		"leave_type_id": "vacation",
		"start_date":    "2026-03-06",
		"end_date":      "2026-03-10",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(raw))
}

func TestAPI_SubmitRequest_UnknownEmployeeIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/employees/ghost/requests", map[string]any{
		"leave_type_id": "vacation",
		"start_date":    "2026-03-04",
		"end_date":      "2026-03-06",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_SubmitRequest_MalformedBodyIs400(t *testing.T) {
	srv, _ := newTestServer(t)

	// Missing required fields fails DTO validation before the engine runs.
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/employees/emp-1/requests", map[string]any{
		"start_date": "2026-03-04",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// DECISIONS
// =============================================================================

func TestAPI_ApproveRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	id := submitVacation(t, srv, "2026-03-04", "2026-03-06")

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/api/requests/"+id+"/approve", map[string]any{
		"decider_id": "mgr-1",
		"remarks":    "enjoy",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var dto map[string]any
	require.NoError(t, json.Unmarshal(raw, &dto))
	assert.Equal(t, "approved", dto["status"])

	decision, ok := dto["decision"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "mgr-1", decision["decider_id"])
}

func TestAPI_RejectWithoutRemarksIs400(t *testing.T) {
	srv, _ := newTestServer(t)
	id := submitVacation(t, srv, "2026-03-04", "2026-03-06")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/requests/"+id+"/reject", map[string]any{
		"decider_id": "mgr-1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_DoubleDecideIs409(t *testing.T) {
	srv, _ := newTestServer(t)
	id := submitVacation(t, srv, "2026-03-04", "2026-03-06")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/requests/"+id+"/approve", map[string]any{
		"decider_id": "mgr-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/requests/"+id+"/reject", map[string]any{
		"decider_id": "mgr-1",
		"remarks":    "on second thought",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_CancelOwnRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	id := submitVacation(t, srv, "2026-03-04", "2026-03-06")

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/api/requests/"+id+"/cancel", map[string]any{
		"employee_id": "emp-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var dto map[string]any
	require.NoError(t, json.Unmarshal(raw, &dto))
	assert.Equal(t, "cancelled", dto["status"])
}

func TestAPI_CancelSomeoneElsesRequestIs403(t *testing.T) {
	srv, _ := newTestServer(t)
	id := submitVacation(t, srv, "2026-03-04", "2026-03-06")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/requests/"+id+"/cancel", map[string]any{
		"employee_id": "mgr-1",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// =============================================================================
// QUERIES
// =============================================================================

func TestAPI_GetBalance(t *testing.T) {
	srv, _ := newTestServer(t)
	submitVacation(t, srv, "2026-03-04", "2026-03-06")

	resp, raw := doJSON(t, http.MethodGet,
		srv.URL+"/api/employees/emp-1/balance?leave_type_id=vacation&year=2026", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var dto map[string]any
	require.NoError(t, json.Unmarshal(raw, &dto))
	assert.Equal(t, float64(20), dto["total"])
	assert.Equal(t, float64(3), dto["pending"])
	assert.Equal(t, float64(17), dto["remaining"])
}

func TestAPI_GetBalance_RequiresLeaveType(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1/balance", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GetRequests(t *testing.T) {
	srv, _ := newTestServer(t)
	submitVacation(t, srv, "2026-03-04", "2026-03-06")
	submitVacation(t, srv, "2026-03-09", "2026-03-10")

	resp, raw := doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1/requests", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dtos []map[string]any
	require.NoError(t, json.Unmarshal(raw, &dtos))
	assert.Len(t, dtos, 2)
}

func TestAPI_GetDashboard(t *testing.T) {
	srv, _ := newTestServer(t)
	submitVacation(t, srv, "2026-03-04", "2026-03-06")

	resp, raw := doJSON(t, http.MethodGet,
		srv.URL+"/api/employees/emp-1/dashboard?year=2026", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var dto map[string]any
	require.NoError(t, json.Unmarshal(raw, &dto))
	assert.Equal(t, float64(1), dto["pending_requests"])
	assert.Equal(t, float64(0), dto["total_days_taken"])
}

func TestAPI_TeamReport(t *testing.T) {
	srv, _ := newTestServer(t)
	id := submitVacation(t, srv, "2026-03-04", "2026-03-06")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/requests/"+id+"/approve", map[string]any{
		"decider_id": "mgr-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := doJSON(t, http.MethodGet, srv.URL+"/api/managers/mgr-1/report", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var dto map[string]any
	require.NoError(t, json.Unmarshal(raw, &dto))
	assert.Equal(t, float64(1), dto["total"])
	assert.Equal(t, float64(1), dto["approved"])
	assert.Equal(t, "100.00", dto["approval_rate"])
}

// =============================================================================
// PROVISIONING
// =============================================================================

func TestAPI_ProvisionEmployeeAndLeaveType(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/employees", map[string]any{
		"id":        "emp-9",
		"name":      "New Hire",
		"hire_date": "2026-01-05",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/leave-types", map[string]any{
		"id":                    "parental",
		"name":                  "Parental Leave",
		"default_days_per_year": 90,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, raw := doJSON(t, http.MethodGet, srv.URL+"/api/leave-types", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var types []map[string]any
	require.NoError(t, json.Unmarshal(raw, &types))
	assert.Len(t, types, 2)
}

func TestAPI_DeactivateLeaveTypeBlocksNewSubmissions(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodDelete, srv.URL+"/api/leave-types/vacation", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/employees/emp-1/requests", map[string]any{
		"leave_type_id": "vacation",
		"start_date":    "2026-03-04",
		"end_date":      "2026-03-06",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_HolidayAffectsChargeableDays(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/holidays", map[string]any{
		"date": "2026-03-05",
		"name": "Founders Day",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/api/employees/emp-1/requests", map[string]any{
		"leave_type_id": "vacation",
		"start_date":    "2026-03-04",
		"end_date":      "2026-03-06",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var dto map[string]any
	require.NoError(t, json.Unmarshal(raw, &dto))
	assert.Equal(t, float64(2), dto["chargeable_days"], "holiday does not charge")
}

// =============================================================================
// SEED
// =============================================================================

func TestSeed_PopulatesEmptyStoreOnce(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, api.Seed(ctx, mem))

	employees, err := mem.ListEmployees(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, employees)

	types, err := mem.ListLeaveTypes(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, types)

	year := time.Now().UTC().Year()
	holidays, err := mem.HolidaySet(ctx, year)
	require.NoError(t, err)
	assert.NotEmpty(t, holidays)

	// Second run is a no-op.
	before := len(employees)
	require.NoError(t, api.Seed(ctx, mem))
	after, err := mem.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, len(after))
}
