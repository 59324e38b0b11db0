/*
ledger.go - Balance derivation from the request set

PURPOSE:
  Answers "how many days does this employee have?" for one leave type and
  year. The balance is a pure derived read: it is recomputed from the
  authoritative request set on every call, never cached or stored.

WHY NO CACHED TOTAL?
  A persisted running balance can drift from the requests that justify it -
  a whole class of bugs (double decrements, missed releases on rejection,
  stale UI arithmetic). Deriving fresh from the ledger makes drift
  impossible: the requests ARE the balance.

OPTIMISTIC HOLD:
  Pending requests are held against the balance before approval. This
  prevents overbooking while a decision is outstanding; the hold is released
  when the request is rejected or cancelled, simply by the request no longer
  counting.

ATTRIBUTION:
  A request charges the year its start date falls in. Used and Pending sum
  the frozen ChargeableDays of approved and pending requests respectively;
  counts are never recomputed from dates after submission.

SEE ALSO:
  - validator.go: Consumes Remaining for the balance admission rule
  - engine.go:    Exposes ComputeBalance to hosts as GetBalance
*/
package leave

import "context"

// =============================================================================
// BALANCE LEDGER
// =============================================================================

// Ledger derives balances from the request set.
type Ledger struct {
	repo    Repository
	catalog *Catalog
}

func NewLedger(repo Repository, catalog *Catalog) *Ledger {
	return &Ledger{repo: repo, catalog: catalog}
}

// ComputeBalance returns the balance for (employee, leave type, year).
// Entitlement is the leave type's yearly allotment as of the call; it is not
// prorated for mid-year hires. Remaining is floored at 0.
func (l *Ledger) ComputeBalance(ctx context.Context, employeeID EmployeeID, leaveTypeID LeaveTypeID, year int) (Balance, error) {
	if _, err := l.repo.Employee(ctx, employeeID); err != nil {
		return Balance{}, err
	}

	lt, err := l.catalog.Get(ctx, leaveTypeID)
	if err != nil {
		return Balance{}, err
	}

	requests, err := l.repo.RequestsForEmployee(ctx, employeeID)
	if err != nil {
		return Balance{}, err
	}

	bal := Balance{
		EmployeeID:  employeeID,
		LeaveTypeID: leaveTypeID,
		Year:        year,
		Total:       lt.DefaultDaysPerYear,
	}

	for i := range requests {
		req := &requests[i]
		if req.LeaveTypeID != leaveTypeID || req.Start.Year() != year {
			continue
		}
		switch req.Status {
		case StatusApproved:
			bal.Used += req.ChargeableDays
		case StatusPending:
			bal.Pending += req.ChargeableDays
		}
	}

	bal.Remaining = bal.Total - bal.Used - bal.Pending
	if bal.Remaining < 0 {
		bal.Remaining = 0
	}
	return bal, nil
}
