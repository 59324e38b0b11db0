/*
Package report aggregates request sets into manager and employee views.

PURPOSE:
  Reporting is a pure fold over data the engine already owns: request slices,
  leave types, employees, and balances. Nothing here touches storage or keeps
  state; hosts fetch the inputs and hand them over, so report figures can
  never drift from ledger truth.

RATIOS:
  Shares and approval rates use decimal arithmetic rather than floats so that
  distribution percentages sum exactly and display rounding is explicit.
*/
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MANAGER REPORT
// =============================================================================

// StatusCounts tallies a request set by status.
type StatusCounts struct {
	Total     int
	Pending   int
	Approved  int
	Rejected  int
	Cancelled int
}

// TypeShare is one leave type's slice of the request set.
type TypeShare struct {
	LeaveTypeID leave.LeaveTypeID
	Name        string
	Count       int
	// Share of total requests, in percent with two decimal places.
	Share decimal.Decimal
}

// EmployeeCount summarizes one employee's activity in the set.
type EmployeeCount struct {
	EmployeeID   leave.EmployeeID
	Name         string
	Requests     int
	ApprovedDays int
}

// ManagerReport is the aggregate view over a team's request set.
type ManagerReport struct {
	Counts       StatusCounts
	Distribution []TypeShare
	ByEmployee   []EmployeeCount
	// ApprovalRate is approved / (approved + rejected) in percent, two
	// decimal places; zero when no request has been decided.
	ApprovalRate decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// BuildManagerReport folds a request set into a ManagerReport. Unknown leave
// types or employees are reported under their raw IDs rather than dropped.
func BuildManagerReport(requests []leave.LeaveRequest, types map[leave.LeaveTypeID]leave.LeaveType, employees map[leave.EmployeeID]leave.Employee) ManagerReport {
	var rep ManagerReport
	rep.Counts.Total = len(requests)

	typeCounts := make(map[leave.LeaveTypeID]int)
	empRequests := make(map[leave.EmployeeID]int)
	empApprovedDays := make(map[leave.EmployeeID]int)

	for i := range requests {
		req := &requests[i]
		switch req.Status {
		case leave.StatusPending:
			rep.Counts.Pending++
		case leave.StatusApproved:
			rep.Counts.Approved++
			empApprovedDays[req.EmployeeID] += req.ChargeableDays
		case leave.StatusRejected:
			rep.Counts.Rejected++
		case leave.StatusCancelled:
			rep.Counts.Cancelled++
		}
		typeCounts[req.LeaveTypeID]++
		empRequests[req.EmployeeID]++
	}

	total := decimal.NewFromInt(int64(rep.Counts.Total))
	for id, count := range typeCounts {
		share := decimal.Zero
		if rep.Counts.Total > 0 {
			share = decimal.NewFromInt(int64(count)).Mul(hundred).DivRound(total, 2)
		}
		name := string(id)
		if lt, ok := types[id]; ok {
			name = lt.Name
		}
		rep.Distribution = append(rep.Distribution, TypeShare{
			LeaveTypeID: id,
			Name:        name,
			Count:       count,
			Share:       share,
		})
	}
	sort.Slice(rep.Distribution, func(i, j int) bool {
		if rep.Distribution[i].Count != rep.Distribution[j].Count {
			return rep.Distribution[i].Count > rep.Distribution[j].Count
		}
		return rep.Distribution[i].LeaveTypeID < rep.Distribution[j].LeaveTypeID
	})

	for id, count := range empRequests {
		name := string(id)
		if emp, ok := employees[id]; ok {
			name = emp.Name
		}
		rep.ByEmployee = append(rep.ByEmployee, EmployeeCount{
			EmployeeID:   id,
			Name:         name,
			Requests:     count,
			ApprovedDays: empApprovedDays[id],
		})
	}
	sort.Slice(rep.ByEmployee, func(i, j int) bool {
		if rep.ByEmployee[i].ApprovedDays != rep.ByEmployee[j].ApprovedDays {
			return rep.ByEmployee[i].ApprovedDays > rep.ByEmployee[j].ApprovedDays
		}
		return rep.ByEmployee[i].EmployeeID < rep.ByEmployee[j].EmployeeID
	})

	decided := rep.Counts.Approved + rep.Counts.Rejected
	rep.ApprovalRate = decimal.Zero
	if decided > 0 {
		rep.ApprovalRate = decimal.NewFromInt(int64(rep.Counts.Approved)).
			Mul(hundred).
			DivRound(decimal.NewFromInt(int64(decided)), 2)
	}

	return rep
}

// =============================================================================
// EMPLOYEE DASHBOARD
// =============================================================================

// EmployeeDashboard is the per-employee summary view: balances per leave
// type plus activity counters.
type EmployeeDashboard struct {
	EmployeeID      leave.EmployeeID
	TotalDaysTaken  int
	PendingRequests int
	Balances        []leave.Balance
}

// BuildEmployeeDashboard combines an employee's request history with
// engine-computed balances. Balances are passed in rather than recomputed so
// the ledger stays the single authority on balance math.
func BuildEmployeeDashboard(employeeID leave.EmployeeID, requests []leave.LeaveRequest, balances []leave.Balance) EmployeeDashboard {
	dash := EmployeeDashboard{
		EmployeeID: employeeID,
		Balances:   balances,
	}
	for i := range requests {
		req := &requests[i]
		switch req.Status {
		case leave.StatusApproved:
			dash.TotalDaysTaken += req.ChargeableDays
		case leave.StatusPending:
			dash.PendingRequests++
		}
	}
	return dash
}
