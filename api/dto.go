/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request / *Body: Request body types from clients

VALIDATION:
  Request bodies carry validator struct tags; handlers run them through a
  shared validator instance before touching the engine. Engine-level rules
  (notice, overlap, balance) are never duplicated here - the engine is the
  single authority and handlers only translate its rejections.

SEE ALSO:
  - handlers.go: Uses these types
  - leave/validator.go: The actual admission rules
*/
package api

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/report"
)

var validate = validator.New()

// =============================================================================
// REQUEST TYPES
// =============================================================================

// SubmitRequestBody is the payload for submitting a leave request.
type SubmitRequestBody struct {
	LeaveTypeID string `json:"leave_type_id" validate:"required"`
	StartDate   string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason      string `json:"reason"`
	Emergency   bool   `json:"emergency"`
}

// DecisionBody is the payload for approving or rejecting a request.
type DecisionBody struct {
	DeciderID string `json:"decider_id" validate:"required"`
	Remarks   string `json:"remarks"`
}

// CancelBody identifies who is withdrawing the request.
type CancelBody struct {
	EmployeeID string `json:"employee_id" validate:"required"`
}

// CreateEmployeeRequest is the provisioning payload for an employee.
type CreateEmployeeRequest struct {
	ID         string  `json:"id" validate:"required"`
	Name       string  `json:"name" validate:"required"`
	Email      string  `json:"email" validate:"omitempty,email"`
	Department string  `json:"department"`
	HireDate   string  `json:"hire_date" validate:"required,datetime=2006-01-02"`
	ManagerID  *string `json:"manager_id"`
	Active     *bool   `json:"active"`
}

// CreateLeaveTypeRequest is the provisioning payload for a leave type.
type CreateLeaveTypeRequest struct {
	ID                 string `json:"id" validate:"required"`
	Name               string `json:"name" validate:"required"`
	Description        string `json:"description"`
	Paid               *bool  `json:"paid"`
	RequiresApproval   *bool  `json:"requires_approval"`
	DefaultDaysPerYear int    `json:"default_days_per_year" validate:"required,min=1"`
	MaxConsecutiveDays int    `json:"max_consecutive_days" validate:"min=0"`
}

// CreateHolidayRequest registers one public holiday.
type CreateHolidayRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Name string `json:"name" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// RequestDTO represents a leave request in API responses.
type RequestDTO struct {
	ID             string       `json:"id"`
	EmployeeID     string       `json:"employee_id"`
	LeaveTypeID    string       `json:"leave_type_id"`
	StartDate      string       `json:"start_date"`
	EndDate        string       `json:"end_date"`
	Reason         string       `json:"reason,omitempty"`
	Emergency      bool         `json:"emergency"`
	Status         string       `json:"status"`
	ChargeableDays int          `json:"chargeable_days"`
	AppliedAt      string       `json:"applied_at"`
	Decision       *DecisionDTO `json:"decision,omitempty"`
}

// DecisionDTO carries decision metadata in responses.
type DecisionDTO struct {
	DeciderID string `json:"decider_id"`
	DecidedAt string `json:"decided_at"`
	Remarks   string `json:"remarks,omitempty"`
}

// BalanceDTO represents a computed balance.
type BalanceDTO struct {
	EmployeeID  string `json:"employee_id"`
	LeaveTypeID string `json:"leave_type_id"`
	Year        int    `json:"year"`
	Total       int    `json:"total"`
	Used        int    `json:"used"`
	Pending     int    `json:"pending"`
	Remaining   int    `json:"remaining"`
}

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email,omitempty"`
	Department string  `json:"department,omitempty"`
	HireDate   string  `json:"hire_date"`
	ManagerID  *string `json:"manager_id,omitempty"`
	Active     bool    `json:"active"`
}

// LeaveTypeDTO represents a leave type in API responses.
type LeaveTypeDTO struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	Paid               bool   `json:"paid"`
	RequiresApproval   bool   `json:"requires_approval"`
	DefaultDaysPerYear int    `json:"default_days_per_year"`
	MaxConsecutiveDays int    `json:"max_consecutive_days"`
	Active             bool   `json:"active"`
}

// DashboardDTO is the per-employee summary view.
type DashboardDTO struct {
	EmployeeID      string       `json:"employee_id"`
	TotalDaysTaken  int          `json:"total_days_taken"`
	PendingRequests int          `json:"pending_requests"`
	Balances        []BalanceDTO `json:"balances"`
}

// TypeShareDTO is one leave type's slice of a team's request set.
type TypeShareDTO struct {
	LeaveTypeID string `json:"leave_type_id"`
	Name        string `json:"name"`
	Count       int    `json:"count"`
	Share       string `json:"share"`
}

// EmployeeCountDTO summarizes one employee's activity in a report.
type EmployeeCountDTO struct {
	EmployeeID   string `json:"employee_id"`
	Name         string `json:"name"`
	Requests     int    `json:"requests"`
	ApprovedDays int    `json:"approved_days"`
}

// ManagerReportDTO is the aggregate view over a team's request set.
type ManagerReportDTO struct {
	Total        int                `json:"total"`
	Pending      int                `json:"pending"`
	Approved     int                `json:"approved"`
	Rejected     int                `json:"rejected"`
	Cancelled    int                `json:"cancelled"`
	Distribution []TypeShareDTO     `json:"distribution"`
	ByEmployee   []EmployeeCountDTO `json:"by_employee"`
	ApprovalRate string             `json:"approval_rate"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toRequestDTO(req *leave.LeaveRequest) RequestDTO {
	dto := RequestDTO{
		ID:             string(req.ID),
		EmployeeID:     string(req.EmployeeID),
		LeaveTypeID:    string(req.LeaveTypeID),
		StartDate:      req.Start.String(),
		EndDate:        req.End.String(),
		Reason:         req.Reason,
		Emergency:      req.Emergency,
		Status:         string(req.Status),
		ChargeableDays: req.ChargeableDays,
		AppliedAt:      req.AppliedAt.UTC().Format(time.RFC3339),
	}
	if req.Decision != nil {
		dto.Decision = &DecisionDTO{
			DeciderID: string(req.Decision.DeciderID),
			DecidedAt: req.Decision.DecidedAt.UTC().Format(time.RFC3339),
			Remarks:   req.Decision.Remarks,
		}
	}
	return dto
}

func toRequestDTOs(reqs []leave.LeaveRequest) []RequestDTO {
	dtos := make([]RequestDTO, len(reqs))
	for i := range reqs {
		dtos[i] = toRequestDTO(&reqs[i])
	}
	return dtos
}

func toBalanceDTO(b leave.Balance) BalanceDTO {
	return BalanceDTO{
		EmployeeID:  string(b.EmployeeID),
		LeaveTypeID: string(b.LeaveTypeID),
		Year:        b.Year,
		Total:       b.Total,
		Used:        b.Used,
		Pending:     b.Pending,
		Remaining:   b.Remaining,
	}
}

func toEmployeeDTO(e leave.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:         string(e.ID),
		Name:       e.Name,
		Email:      e.Email,
		Department: e.Department,
		HireDate:   e.HireDate.String(),
		Active:     e.Active,
	}
	if e.ManagerID != nil {
		m := string(*e.ManagerID)
		dto.ManagerID = &m
	}
	return dto
}

func toLeaveTypeDTO(lt leave.LeaveType) LeaveTypeDTO {
	return LeaveTypeDTO{
		ID:                 string(lt.ID),
		Name:               lt.Name,
		Description:        lt.Description,
		Paid:               lt.Paid,
		RequiresApproval:   lt.RequiresApproval,
		DefaultDaysPerYear: lt.DefaultDaysPerYear,
		MaxConsecutiveDays: lt.MaxConsecutiveDays,
		Active:             lt.Active,
	}
}

func toManagerReportDTO(rep report.ManagerReport) ManagerReportDTO {
	dto := ManagerReportDTO{
		Total:        rep.Counts.Total,
		Pending:      rep.Counts.Pending,
		Approved:     rep.Counts.Approved,
		Rejected:     rep.Counts.Rejected,
		Cancelled:    rep.Counts.Cancelled,
		ApprovalRate: rep.ApprovalRate.StringFixed(2),
		Distribution: make([]TypeShareDTO, len(rep.Distribution)),
		ByEmployee:   make([]EmployeeCountDTO, len(rep.ByEmployee)),
	}
	for i, ts := range rep.Distribution {
		dto.Distribution[i] = TypeShareDTO{
			LeaveTypeID: string(ts.LeaveTypeID),
			Name:        ts.Name,
			Count:       ts.Count,
			Share:       ts.Share.StringFixed(2),
		}
	}
	for i, ec := range rep.ByEmployee {
		dto.ByEmployee[i] = EmployeeCountDTO{
			EmployeeID:   string(ec.EmployeeID),
			Name:         ec.Name,
			Requests:     ec.Requests,
			ApprovedDays: ec.ApprovedDays,
		}
	}
	return dto
}
