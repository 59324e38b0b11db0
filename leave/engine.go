/*
engine.go - Leave accounting orchestrator

PURPOSE:
  The public surface of the engine: submit, decide, cancel, and balance
  queries. Wires the validator, catalog, and ledger over one repository and
  enforces the request state machine.

STATE MACHINE:
  pending --approve--> approved
  pending --reject---> rejected   (remarks mandatory)
  pending --cancel---> cancelled  (owner only)
  Everything else fails with ErrInvalidTransition. Terminal states never
  resurrect.

CONCURRENCY:
  The engine is stateless and safe for concurrent use by construction: no
  shared mutable fields, every figure recomputed from the repository. The
  repository supplies atomicity - overlap-constrained inserts and
  compare-and-swap status updates. A decide that loses the race reports
  ErrInvalidTransition to the loser, never a silent overwrite.

  The engine never retries on its own. Blind resubmission without an
  idempotency key could double-book; retry policy belongs to the caller,
  which can distinguish transient faults (IsRetryable) from definitive
  rejections.

ERROR PROPAGATION:
  No logging, no recovery: every failure is returned to the caller as a
  typed value. Nothing is fatal inside the engine.

SEE ALSO:
  - validator.go: Admission rules run by Submit
  - repository.go: Atomicity contract the engine relies on
*/
package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// DECISION OUTCOME
// =============================================================================

// DecisionOutcome is a manager's verdict on a pending request.
type DecisionOutcome string

const (
	DecideApprove DecisionOutcome = "approved"
	DecideReject  DecisionOutcome = "rejected"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine orchestrates the leave-request lifecycle over a Repository.
type Engine struct {
	repo      Repository
	catalog   *Catalog
	ledger    *Ledger
	validator *Validator

	now   func() time.Time
	newID func() RequestID
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	noticeDays int
	now        func() time.Time
	newID      func() RequestID
}

// WithNoticeDays overrides the default lead time for non-emergency requests.
func WithNoticeDays(days int) Option {
	return func(c *engineConfig) { c.noticeDays = days }
}

// WithClock injects a time source. Tests pin this to a fixed instant.
func WithClock(now func() time.Time) Option {
	return func(c *engineConfig) { c.now = now }
}

// WithIDGenerator overrides request ID generation.
func WithIDGenerator(gen func() RequestID) Option {
	return func(c *engineConfig) { c.newID = gen }
}

// NewEngine builds an engine over the given repository.
func NewEngine(repo Repository, opts ...Option) *Engine {
	cfg := engineConfig{
		noticeDays: DefaultNoticeDays,
		now:        time.Now,
		newID:      func() RequestID { return RequestID(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	catalog := NewCatalog(repo)
	ledger := NewLedger(repo, catalog)
	today := func() Date { return DateOf(cfg.now().UTC()) }

	return &Engine{
		repo:      repo,
		catalog:   catalog,
		ledger:    ledger,
		validator: NewValidator(repo, catalog, ledger, cfg.noticeDays, today),
		now:       cfg.now,
		newID:     cfg.newID,
	}
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit validates a candidate request and, if admitted, persists it with a
// frozen chargeable-day count. Leave types that do not require approval are
// approved immediately with system decision metadata; everything else starts
// pending.
//
// Duplicate submissions from client retries are only caught by the overlap
// rule when date ranges coincide; the engine guarantees no idempotency of
// its own.
func (e *Engine) Submit(ctx context.Context, employeeID EmployeeID, leaveTypeID LeaveTypeID, start, end Date, reason string, emergency bool) (*LeaveRequest, error) {
	if _, err := e.repo.Employee(ctx, employeeID); err != nil {
		return nil, err
	}

	existing, err := e.repo.RequestsForEmployee(ctx, employeeID)
	if err != nil {
		return nil, &TransientError{Op: "submit: load requests", Err: err}
	}

	candidate := Candidate{
		EmployeeID:  employeeID,
		LeaveTypeID: leaveTypeID,
		Start:       start,
		End:         end,
		Reason:      reason,
		Emergency:   emergency,
	}

	outcome, err := e.validator.Validate(ctx, candidate, existing)
	if err != nil {
		return nil, err
	}
	if !outcome.Admitted {
		return nil, outcome.Reason
	}

	lt, err := e.catalog.Get(ctx, leaveTypeID)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	req := &LeaveRequest{
		ID:             e.newID(),
		EmployeeID:     employeeID,
		LeaveTypeID:    leaveTypeID,
		Start:          start,
		End:            end,
		Reason:         reason,
		Emergency:      emergency,
		Status:         StatusPending,
		ChargeableDays: outcome.ChargeableDays,
		AppliedAt:      now,
	}

	if !lt.RequiresApproval {
		req.Status = StatusApproved
		req.Decision = &DecisionMeta{
			DeciderID: SystemDeciderID,
			DecidedAt: now,
			Remarks:   "auto-approved: leave type does not require approval",
		}
	}

	if err := e.repo.InsertRequest(ctx, req); err != nil {
		// A concurrent submit may have won the range; report it as the same
		// rejection the validator would have produced.
		if IsValidationRejection(err) {
			return nil, err
		}
		return nil, fmt.Errorf("submit: persist request: %w", err)
	}

	return req, nil
}

// =============================================================================
// DECIDE
// =============================================================================

// Decide resolves a pending request as approved or rejected. Rejection must
// carry remarks. The status change and decision metadata are written in one
// atomic compare-and-swap; a second decider racing on the same request loses
// with ErrInvalidTransition.
func (e *Engine) Decide(ctx context.Context, requestID RequestID, deciderID EmployeeID, outcome DecisionOutcome, remarks string) (*LeaveRequest, error) {
	var next RequestStatus
	switch outcome {
	case DecideApprove:
		next = StatusApproved
	case DecideReject:
		if strings.TrimSpace(remarks) == "" {
			return nil, ErrMissingRemarks
		}
		next = StatusRejected
	default:
		return nil, fmt.Errorf("decide: unknown outcome %q", outcome)
	}

	req, err := e.repo.Request(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, &TransitionError{RequestID: requestID, From: req.Status, To: next}
	}

	meta := &DecisionMeta{
		DeciderID: deciderID,
		DecidedAt: e.now().UTC(),
		Remarks:   remarks,
	}

	updated, err := e.repo.UpdateRequestStatus(ctx, requestID, StatusPending, next, meta)
	if err != nil {
		if IsRetryable(err) {
			// Lost the race: someone else decided first.
			return nil, e.transitionConflict(ctx, requestID, next)
		}
		return nil, err
	}
	return updated, nil
}

// transitionConflict reports a lost optimistic race with the status that won.
func (e *Engine) transitionConflict(ctx context.Context, requestID RequestID, attempted RequestStatus) error {
	from := StatusPending
	if current, err := e.repo.Request(ctx, requestID); err == nil {
		from = current.Status
	}
	return &TransitionError{RequestID: requestID, From: from, To: attempted}
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel withdraws a pending request. Only the request's own employee may
// cancel, and only while it is still pending.
func (e *Engine) Cancel(ctx context.Context, requestID RequestID, requesterID EmployeeID) (*LeaveRequest, error) {
	req, err := e.repo.Request(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.EmployeeID != requesterID {
		return nil, ErrForbidden
	}
	if req.Status != StatusPending {
		return nil, &TransitionError{RequestID: requestID, From: req.Status, To: StatusCancelled}
	}

	meta := &DecisionMeta{
		DeciderID: requesterID,
		DecidedAt: e.now().UTC(),
		Remarks:   "cancelled by employee",
	}

	updated, err := e.repo.UpdateRequestStatus(ctx, requestID, StatusPending, StatusCancelled, meta)
	if err != nil {
		if IsRetryable(err) {
			return nil, e.transitionConflict(ctx, requestID, StatusCancelled)
		}
		return nil, err
	}
	return updated, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// GetBalance recomputes the balance for (employee, leave type, year) from
// the request set. Two calls with no intervening writes return identical
// results.
func (e *Engine) GetBalance(ctx context.Context, employeeID EmployeeID, leaveTypeID LeaveTypeID, year int) (Balance, error) {
	return e.ledger.ComputeBalance(ctx, employeeID, leaveTypeID, year)
}

// Requests returns the employee's full request history.
func (e *Engine) Requests(ctx context.Context, employeeID EmployeeID) ([]LeaveRequest, error) {
	if _, err := e.repo.Employee(ctx, employeeID); err != nil {
		return nil, err
	}
	return e.repo.RequestsForEmployee(ctx, employeeID)
}
