/*
Package leave provides the core leave accounting engine.

PURPOSE:
  This package contains the domain types and algorithms for leave-request
  validation and balance accounting: deciding whether a requested date range
  is admissible, how many chargeable days it consumes, and how a per-employee,
  per-leave-type balance is maintained across a ledger of requests whose
  status changes over time.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee:     Identity, department, hire date, optional manager reference
  - LeaveType:    Policy definition (paid, approval, yearly allotment, limits)
  - LeaveRequest: The ledger entry with a frozen chargeable-day count
  - Balance:      Derived per-year entitlement/used/pending/remaining view

DESIGN PRINCIPLES:
  1. Derived balances: Balance is always recomputed from the request set;
     no cached running total that can drift from ledger truth.
  2. Frozen charges: ChargeableDays is computed at submission and never
     recomputed, even if policy changes later (audit stability).
  3. Closed states: RequestStatus is a closed set with an explicit state
     machine; invalid transitions are unrepresentable as writes.
  4. Type safety: Strong typing for IDs prevents mixing employee/type/request
     identifiers.

SEE ALSO:
  - calendar.go:  Date arithmetic and chargeable-day counting
  - validator.go: Admission rules applied before a request is accepted
  - ledger.go:    Balance derivation from the request set
  - engine.go:    Submit/decide/cancel orchestration
*/
package leave

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type LeaveTypeID string
type RequestID string

// SystemDeciderID marks decisions made by the engine itself, such as
// auto-approval of leave types that do not require approval.
const SystemDeciderID EmployeeID = "system"

// =============================================================================
// EMPLOYEE - Provisioned externally, read by the engine
// =============================================================================

// Employee is an entity that accrues and consumes leave. The manager link is
// a weak reference: an ID to look up, not ownership. HireDate is immutable
// after provisioning; the manager reference may be reassigned.
type Employee struct {
	ID         EmployeeID
	Name       string
	Email      string
	Department string
	HireDate   Date
	ManagerID  *EmployeeID
	Active     bool
}

// =============================================================================
// LEAVE TYPE - Policy definition owned by the catalog
// =============================================================================

// LeaveType defines the policy for one category of leave. Types are
// soft-deactivated, never physically removed while historical requests
// reference them.
type LeaveType struct {
	ID                 LeaveTypeID
	Name               string
	Description        string
	Paid               bool
	RequiresApproval   bool
	DefaultDaysPerYear int
	MaxConsecutiveDays int
	Active             bool
}

// =============================================================================
// REQUEST STATUS - Closed state machine
// =============================================================================

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
// There is no resurrection from a terminal state.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// CanTransitionTo reports whether the state machine permits moving from s to
// next. Only pending requests move anywhere.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	if s != StatusPending {
		return false
	}
	return next == StatusApproved || next == StatusRejected || next == StatusCancelled
}

// Valid reports whether s is one of the closed set of statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// HoldsBalance reports whether the status counts against balance: pending
// requests hold balance optimistically, approved ones consume it.
func (s RequestStatus) HoldsBalance() bool {
	return s == StatusPending || s == StatusApproved
}

// =============================================================================
// DECISION METADATA
// =============================================================================

// DecisionMeta records who resolved a request, when, and why. It is absent
// exactly while the request is pending, and immutable once written.
type DecisionMeta struct {
	DeciderID EmployeeID
	DecidedAt time.Time
	Remarks   string
}

// =============================================================================
// LEAVE REQUEST - The ledger entry
// =============================================================================

// LeaveRequest is one entry in the per-employee leave ledger.
//
// INVARIANTS:
//   - Start <= End
//   - ChargeableDays >= 1 once computed, and frozen at creation
//   - Decision is nil iff Status == pending
//   - No two live (pending/approved) requests for one employee overlap
type LeaveRequest struct {
	ID             RequestID
	EmployeeID     EmployeeID
	LeaveTypeID    LeaveTypeID
	Start          Date
	End            Date
	Reason         string
	Emergency      bool
	Status         RequestStatus
	ChargeableDays int
	AppliedAt      time.Time
	Decision       *DecisionMeta
}

// Overlaps reports whether the request's [Start, End] range intersects the
// given inclusive range.
func (r *LeaveRequest) Overlaps(start, end Date) bool {
	return !r.End.Before(start) && !r.Start.After(end)
}

// HoldsBalance reports whether this request currently counts against the
// employee's balance.
func (r *LeaveRequest) HoldsBalance() bool {
	return r.Status.HoldsBalance()
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// mutate persisted state through a shared pointer.
func (r *LeaveRequest) Clone() *LeaveRequest {
	cp := *r
	if r.Decision != nil {
		meta := *r.Decision
		cp.Decision = &meta
	}
	return &cp
}

// =============================================================================
// BALANCE - Derived view, never stored
// =============================================================================

// Balance is the per-year leave position for one employee and leave type.
// It is recomputed from the request set on every query.
type Balance struct {
	EmployeeID  EmployeeID
	LeaveTypeID LeaveTypeID
	Year        int

	// Total is the yearly entitlement from policy as of the call. Entitlement
	// is not prorated for mid-year hires.
	Total int

	// Used is the sum of chargeable days over approved requests starting in
	// the year.
	Used int

	// Pending is the same sum over pending requests: an optimistic hold that
	// prevents double-booking while a decision is outstanding.
	Pending int

	// Remaining is max(0, Total - Used - Pending). A historical policy change
	// can push Used+Pending past Total; Remaining reports 0, never negative.
	Remaining int
}
