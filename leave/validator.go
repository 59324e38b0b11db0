/*
validator.go - Admission rules for candidate leave requests

PURPOSE:
  The single authority for whether a candidate request is admissible. Rules
  that used to live scattered across UI screens (with inconsistent weekend
  handling and hardcoded lead times) are centralized here; hosts only display
  outcomes, they never re-implement rules.

RULE ORDER (fixed, first failure reported):
  1. Leave type unknown or inactive
  2. End before start
  3. Insufficient notice (non-emergency only; configurable lead time)
  4. Zero chargeable days (range entirely on weekends/holidays)
  5. Chargeable days exceed the type's consecutive-day limit
  6. Range overlaps an existing pending/approved request
  7. Chargeable days exceed remaining balance

  The order is a defined contract, not emergent behavior: cheap structural
  checks run before the day-set enumeration, and the overlap scan runs before
  the balance computation (overlap is a precondition for any balance model).

OUTCOME:
  Validate returns a typed Outcome - Admitted with the frozen chargeable-day
  count, or Rejected carrying the first failing rule's reason. Rejections are
  values, never panics; the error return is reserved for infrastructure
  failures (repository faults).

SEE ALSO:
  - calendar.go: ChargeableDayCount used identically by the ledger
  - ledger.go:   Remaining-balance input to rule 7
*/
package leave

import (
	"context"
	"fmt"
)

// DefaultNoticeDays is the lead time required before a non-emergency
// request's start date, in calendar days.
const DefaultNoticeDays = 2

// =============================================================================
// CANDIDATE & OUTCOME
// =============================================================================

// Candidate is a request under evaluation, before it has an ID or a status.
type Candidate struct {
	EmployeeID  EmployeeID
	LeaveTypeID LeaveTypeID
	Start       Date
	End         Date
	Reason      string
	Emergency   bool
}

// Outcome is the result of validation. Exactly one of Admitted/Reason is
// meaningful: an admitted candidate carries its chargeable-day count, a
// rejected one carries the first failing rule's typed reason.
type Outcome struct {
	Admitted       bool
	ChargeableDays int
	Reason         error
}

func admitted(days int) Outcome     { return Outcome{Admitted: true, ChargeableDays: days} }
func rejected(reason error) Outcome { return Outcome{Reason: reason} }

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator applies the admission rules to a candidate against the
// employee's existing requests. It is stateless and safe for concurrent use.
type Validator struct {
	catalog    *Catalog
	ledger     *Ledger
	repo       Repository
	noticeDays int
	today      func() Date
}

func NewValidator(repo Repository, catalog *Catalog, ledger *Ledger, noticeDays int, today func() Date) *Validator {
	if noticeDays < 0 {
		noticeDays = DefaultNoticeDays
	}
	return &Validator{
		catalog:    catalog,
		ledger:     ledger,
		repo:       repo,
		noticeDays: noticeDays,
		today:      today,
	}
}

// Validate runs the admission rules in order. The returned error is non-nil
// only for infrastructure failures; business rejections come back inside the
// Outcome.
func (v *Validator) Validate(ctx context.Context, c Candidate, existing []LeaveRequest) (Outcome, error) {
	// Rule 1: leave type must exist and be active.
	lt, err := v.catalog.Get(ctx, c.LeaveTypeID)
	if err != nil {
		if IsNotFound(err) {
			return rejected(ErrLeaveTypeNotFound), nil
		}
		return Outcome{}, fmt.Errorf("validate: load leave type: %w", err)
	}
	if !lt.Active {
		return rejected(ErrLeaveTypeNotFound), nil
	}

	// Rule 2: structural range check.
	if c.End.Before(c.Start) {
		return rejected(ErrInvalidRange), nil
	}

	// Rule 3: lead time. Emergencies skip notice entirely.
	if !c.Emergency {
		earliest := v.today().AddDays(v.noticeDays)
		if c.Start.Before(earliest) {
			return rejected(ErrInsufficientNotice), nil
		}
	}

	// Rule 4: chargeable-day computation (weekends and holidays excluded).
	holidays, err := v.holidaysForRange(ctx, c.Start, c.End)
	if err != nil {
		return Outcome{}, fmt.Errorf("validate: load holidays: %w", err)
	}
	days, err := ChargeableDayCount(c.Start, c.End, true, holidays)
	if err != nil {
		return rejected(ErrInvalidRange), nil
	}
	if days == 0 {
		return rejected(ErrZeroChargeableDays), nil
	}

	// Rule 5: per-request consecutive limit.
	if lt.MaxConsecutiveDays > 0 && days > lt.MaxConsecutiveDays {
		return rejected(&ConsecutiveLimitError{Limit: lt.MaxConsecutiveDays, Requested: days}), nil
	}

	// Rule 6: no intersection with live requests.
	for i := range existing {
		req := &existing[i]
		if !req.HoldsBalance() {
			continue
		}
		if req.Overlaps(c.Start, c.End) {
			return rejected(&OverlapError{
				ConflictingID: req.ID,
				Start:         req.Start,
				End:           req.End,
			}), nil
		}
	}

	// Rule 7: balance. The request charges the year its start date falls in,
	// so that is the entitlement year checked. Applies to every leave type,
	// whether or not it requires approval.
	bal, err := v.ledger.ComputeBalance(ctx, c.EmployeeID, c.LeaveTypeID, c.Start.Year())
	if err != nil {
		return Outcome{}, fmt.Errorf("validate: compute balance: %w", err)
	}
	if days > bal.Remaining {
		return rejected(&InsufficientBalanceError{Remaining: bal.Remaining, Requested: days}), nil
	}

	return admitted(days), nil
}

// holidaysForRange unions the holiday sets of every year the range touches.
func (v *Validator) holidaysForRange(ctx context.Context, start, end Date) (HolidaySet, error) {
	holidays, err := v.repo.HolidaySet(ctx, start.Year())
	if err != nil {
		return nil, err
	}
	if end.Year() != start.Year() {
		next, err := v.repo.HolidaySet(ctx, end.Year())
		if err != nil {
			return nil, err
		}
		holidays = holidays.Merge(next)
	}
	return holidays, nil
}
