/*
handlers.go - HTTP API handlers for the leave accounting engine

PURPOSE:
  Exposes the leave engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic. Handlers never re-implement
  admission rules; they translate typed engine errors into HTTP statuses.

ENDPOINTS:
  Employees:
    GET    /api/employees                    List all employees
    POST   /api/employees                    Provision employee
    GET    /api/employees/{id}               Get employee details
    GET    /api/employees/{id}/balance       Computed balance for one type/year
    GET    /api/employees/{id}/requests      Request history
    POST   /api/employees/{id}/requests      Submit leave request
    GET    /api/employees/{id}/dashboard     Per-employee summary

  Requests:
    POST   /api/requests/{id}/approve        Approve pending request
    POST   /api/requests/{id}/reject         Reject pending request (remarks required)
    POST   /api/requests/{id}/cancel         Withdraw own pending request

  Managers:
    GET    /api/managers/{id}/requests       Team request history
    GET    /api/managers/{id}/report         Aggregate team report

  Admin:
    GET    /api/leave-types                  List leave types
    POST   /api/leave-types                  Provision leave type
    DELETE /api/leave-types/{id}             Soft-deactivate leave type
    POST   /api/holidays                     Register public holiday

ERROR HANDLING:
  Typed engine errors map to HTTP statuses:
  - 400: Validation rejections (range, notice, balance, limits), bad input
  - 403: Cancelling someone else's request
  - 404: Unknown employee, leave type, or request
  - 409: Overlap conflicts and lost decide/cancel races
  - 500: Infrastructure faults

SECURITY NOTE:
  Caller identity comes from request bodies, not from authentication.
  Deployments front this API with their identity layer.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - leave/engine.go: The orchestrator handlers delegate to
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/report"
)

// =============================================================================
// STORE SURFACE
// =============================================================================

// Store is the persistence surface handlers need: the engine's repository
// plus provisioning and team queries. Both the sqlite and postgres stores
// satisfy it.
type Store interface {
	leave.Repository

	SaveEmployee(ctx context.Context, emp leave.Employee) error
	SaveLeaveType(ctx context.Context, lt leave.LeaveType) error
	DeactivateLeaveType(ctx context.Context, id leave.LeaveTypeID) error
	SaveHoliday(ctx context.Context, date leave.Date, name string) error
	ListEmployees(ctx context.Context) ([]leave.Employee, error)
	ListLeaveTypes(ctx context.Context) ([]leave.LeaveType, error)
	TeamRequests(ctx context.Context, managerID leave.EmployeeID) ([]leave.LeaveRequest, error)
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  Store
	Engine *leave.Engine
}

// NewHandler creates a handler over a store and an engine built on it.
func NewHandler(store Store, engine *leave.Engine) *Handler {
	return &Handler{Store: store, Engine: engine}
}

// =============================================================================
// REQUEST LIFECYCLE
// =============================================================================

// SubmitRequest submits a leave request for the employee in the URL.
// POST /api/employees/{id}/requests
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	employeeID := leave.EmployeeID(chi.URLParam(r, "id"))

	var body SubmitRequestBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := leave.ParseDate(body.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}
	end, err := leave.ParseDate(body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
		return
	}

	req, err := h.Engine.Submit(r.Context(), employeeID,
		leave.LeaveTypeID(body.LeaveTypeID), start, end, body.Reason, body.Emergency)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRequestDTO(req))
}

// ApproveRequest approves a pending request.
// POST /api/requests/{id}/approve
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, leave.DecideApprove)
}

// RejectRequest rejects a pending request; remarks are mandatory.
// POST /api/requests/{id}/reject
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, leave.DecideReject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, outcome leave.DecisionOutcome) {
	requestID := leave.RequestID(chi.URLParam(r, "id"))

	var body DecisionBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	req, err := h.Engine.Decide(r.Context(), requestID,
		leave.EmployeeID(body.DeciderID), outcome, body.Remarks)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// CancelRequest withdraws the caller's own pending request.
// POST /api/requests/{id}/cancel
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	requestID := leave.RequestID(chi.URLParam(r, "id"))

	var body CancelBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	req, err := h.Engine.Cancel(r.Context(), requestID, leave.EmployeeID(body.EmployeeID))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// =============================================================================
// QUERIES
// =============================================================================

// GetBalance returns the computed balance for one (employee, type, year).
// GET /api/employees/{id}/balance?leave_type_id=vacation&year=2026
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	employeeID := leave.EmployeeID(chi.URLParam(r, "id"))
	leaveTypeID := leave.LeaveTypeID(r.URL.Query().Get("leave_type_id"))
	if leaveTypeID == "" {
		writeError(w, http.StatusBadRequest, "leave_type_id query parameter is required", nil)
		return
	}
	year := queryYear(r)

	bal, err := h.Engine.GetBalance(r.Context(), employeeID, leaveTypeID, year)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBalanceDTO(bal))
}

// GetRequests returns the employee's full request history.
// GET /api/employees/{id}/requests
func (h *Handler) GetRequests(w http.ResponseWriter, r *http.Request) {
	employeeID := leave.EmployeeID(chi.URLParam(r, "id"))

	reqs, err := h.Engine.Requests(r.Context(), employeeID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTOs(reqs))
}

// GetDashboard returns the employee summary: activity counters plus a
// balance per active leave type for the requested year.
// GET /api/employees/{id}/dashboard?year=2026
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID := leave.EmployeeID(chi.URLParam(r, "id"))
	year := queryYear(r)

	reqs, err := h.Engine.Requests(ctx, employeeID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	types, err := h.Store.ListLeaveTypes(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list leave types", err)
		return
	}

	var balances []leave.Balance
	for _, lt := range types {
		if !lt.Active {
			continue
		}
		bal, err := h.Engine.GetBalance(ctx, employeeID, lt.ID, year)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		balances = append(balances, bal)
	}

	dash := report.BuildEmployeeDashboard(employeeID, reqs, balances)

	dto := DashboardDTO{
		EmployeeID:      string(dash.EmployeeID),
		TotalDaysTaken:  dash.TotalDaysTaken,
		PendingRequests: dash.PendingRequests,
		Balances:        make([]BalanceDTO, len(dash.Balances)),
	}
	for i, b := range dash.Balances {
		dto.Balances[i] = toBalanceDTO(b)
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// MANAGER VIEWS
// =============================================================================

// GetTeamRequests returns all requests of the manager's direct reports.
// GET /api/managers/{id}/requests
func (h *Handler) GetTeamRequests(w http.ResponseWriter, r *http.Request) {
	managerID := leave.EmployeeID(chi.URLParam(r, "id"))

	if _, err := h.Store.Employee(r.Context(), managerID); err != nil {
		writeEngineError(w, err)
		return
	}

	reqs, err := h.Store.TeamRequests(r.Context(), managerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load team requests", err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTOs(reqs))
}

// GetTeamReport returns the aggregate report over the manager's team.
// GET /api/managers/{id}/report
func (h *Handler) GetTeamReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	managerID := leave.EmployeeID(chi.URLParam(r, "id"))

	if _, err := h.Store.Employee(ctx, managerID); err != nil {
		writeEngineError(w, err)
		return
	}

	reqs, err := h.Store.TeamRequests(ctx, managerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load team requests", err)
		return
	}

	types, err := h.Store.ListLeaveTypes(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list leave types", err)
		return
	}
	typeIndex := make(map[leave.LeaveTypeID]leave.LeaveType, len(types))
	for _, lt := range types {
		typeIndex[lt.ID] = lt
	}

	employees, err := h.Store.ListEmployees(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}
	empIndex := make(map[leave.EmployeeID]leave.Employee, len(employees))
	for _, e := range employees {
		empIndex[e.ID] = e
	}

	rep := report.BuildManagerReport(reqs, typeIndex, empIndex)
	writeJSON(w, http.StatusOK, toManagerReportDTO(rep))
}

// =============================================================================
// PROVISIONING
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := leave.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.Store.Employee(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee provisions (or updates) an employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var body CreateEmployeeRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	hireDate, err := leave.ParseDate(body.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hire_date format (use YYYY-MM-DD)", err)
		return
	}

	emp := leave.Employee{
		ID:         leave.EmployeeID(body.ID),
		Name:       body.Name,
		Email:      body.Email,
		Department: body.Department,
		HireDate:   hireDate,
		Active:     true,
	}
	if body.ManagerID != nil {
		m := leave.EmployeeID(*body.ManagerID)
		emp.ManagerID = &m
	}
	if body.Active != nil {
		emp.Active = *body.Active
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// ListLeaveTypes returns all leave types, active and inactive.
func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.ListLeaveTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list leave types", err)
		return
	}

	dtos := make([]LeaveTypeDTO, len(types))
	for i, lt := range types {
		dtos[i] = toLeaveTypeDTO(lt)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateLeaveType provisions (or updates) a leave type.
func (h *Handler) CreateLeaveType(w http.ResponseWriter, r *http.Request) {
	var body CreateLeaveTypeRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	lt := leave.LeaveType{
		ID:                 leave.LeaveTypeID(body.ID),
		Name:               body.Name,
		Description:        body.Description,
		Paid:               true,
		RequiresApproval:   true,
		DefaultDaysPerYear: body.DefaultDaysPerYear,
		MaxConsecutiveDays: body.MaxConsecutiveDays,
		Active:             true,
	}
	if body.Paid != nil {
		lt.Paid = *body.Paid
	}
	if body.RequiresApproval != nil {
		lt.RequiresApproval = *body.RequiresApproval
	}

	if err := h.Store.SaveLeaveType(r.Context(), lt); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save leave type", err)
		return
	}

	writeJSON(w, http.StatusCreated, toLeaveTypeDTO(lt))
}

// DeactivateLeaveType soft-deactivates a leave type. Existing requests keep
// their reference; new submissions for the type are rejected.
func (h *Handler) DeactivateLeaveType(w http.ResponseWriter, r *http.Request) {
	id := leave.LeaveTypeID(chi.URLParam(r, "id"))

	if err := h.Store.DeactivateLeaveType(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateHoliday registers one public holiday.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var body CreateHolidayRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := leave.ParseDate(body.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	if err := h.Store.SaveHoliday(r.Context(), date, body.Name); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

func queryYear(r *http.Request) int {
	if y := r.URL.Query().Get("year"); y != "" {
		if t, err := time.Parse("2006", y); err == nil {
			return t.Year()
		}
	}
	return time.Now().UTC().Year()
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps typed engine errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case leave.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, leave.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, leave.ErrOverlappingRequest),
		errors.Is(err, leave.ErrInvalidTransition),
		errors.Is(err, leave.ErrConflict):
		status = http.StatusConflict
	case leave.IsValidationRejection(err), errors.Is(err, leave.ErrMissingRemarks):
		status = http.StatusBadRequest
	case errors.Is(err, leave.ErrTransient):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}
	writeError(w, status, err.Error(), nil)
}
