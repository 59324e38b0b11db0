/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  All error values in one place for consistency and discoverability. Hosts
  translate these into their own surface (HTTP statuses, CLI exit codes).

ERROR CATEGORIES:
  1. Validation rejections - expected, user-facing outcomes of Submit
  2. State errors          - caller misuse or authorization failure
  3. Conflict errors       - optimistic-concurrency losers
  4. Transient errors      - infrastructure faults, retryable with backoff

USAGE:
  Rejections and state errors are returned as typed values, never panics:

    if errors.Is(err, leave.ErrOverlappingRequest) {
        // surface to the user; do not retry
    }
    if leave.IsRetryable(err) {
        // re-read, re-validate, re-write
    }
*/
package leave

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// Validation rejections. Expected outcomes of submission, not faults.

	// ErrInvalidRange is returned when a range's end precedes its start.
	ErrInvalidRange = errors.New("invalid range: end before start")

	// ErrInsufficientNotice is returned when a non-emergency request starts
	// sooner than the configured lead time allows.
	ErrInsufficientNotice = errors.New("insufficient notice")

	// ErrZeroChargeableDays is returned when the requested range lands
	// entirely on weekends and holidays.
	ErrZeroChargeableDays = errors.New("no chargeable days in range")

	// ErrExceedsConsecutiveLimit is returned when the chargeable-day count
	// exceeds the leave type's per-request maximum.
	ErrExceedsConsecutiveLimit = errors.New("exceeds consecutive day limit")

	// ErrOverlappingRequest is returned when the range intersects an existing
	// pending or approved request for the same employee.
	ErrOverlappingRequest = errors.New("overlapping request")

	// ErrInsufficientBalance is returned when the chargeable days exceed the
	// remaining balance for the year.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// Lookup failures.

	ErrLeaveTypeNotFound = errors.New("leave type not found")
	ErrEmployeeNotFound  = errors.New("employee not found")
	ErrRequestNotFound   = errors.New("leave request not found")

	// State errors.

	// ErrInvalidTransition is returned for any state change not permitted by
	// the request state machine, including losing an optimistic race to
	// decide the same request.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrForbidden is returned when a caller acts on a request they do not own.
	ErrForbidden = errors.New("forbidden")

	// ErrMissingRemarks is returned when a rejection carries no remarks.
	// Rejections must always state a reason; that is policy, not UX.
	ErrMissingRemarks = errors.New("rejection requires remarks")

	// Concurrency and infrastructure.

	// ErrConflict is returned by repositories when an optimistic check fails:
	// the state read is no longer the state stored. Callers should retry the
	// whole operation from scratch, never just the write.
	ErrConflict = errors.New("conflicting concurrent update")

	// ErrTransient marks repository timeouts and unavailability. Distinct
	// from definitive rejections so hosts may retry with backoff.
	ErrTransient = errors.New("transient repository error")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// OverlapError identifies which existing request a candidate collides with.
type OverlapError struct {
	ConflictingID RequestID
	Start         Date
	End           Date
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("overlapping request: %s already covers %s..%s",
		e.ConflictingID, e.Start, e.End)
}

func (e *OverlapError) Unwrap() error { return ErrOverlappingRequest }

// InsufficientBalanceError reports the shortfall behind a balance rejection.
type InsufficientBalanceError struct {
	Remaining int
	Requested int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: %d days remaining, %d requested",
		e.Remaining, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// ConsecutiveLimitError reports the exceeded per-request limit.
type ConsecutiveLimitError struct {
	Limit     int
	Requested int
}

func (e *ConsecutiveLimitError) Error() string {
	return fmt.Sprintf("exceeds consecutive day limit: %d requested, %d allowed",
		e.Requested, e.Limit)
}

func (e *ConsecutiveLimitError) Unwrap() error { return ErrExceedsConsecutiveLimit }

// TransitionError reports a disallowed state change.
type TransitionError struct {
	RequestID RequestID
	From      RequestStatus
	To        RequestStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition for %s: %s -> %s", e.RequestID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// TransientError wraps an infrastructure fault with the operation that hit it.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() []error { return []error{ErrTransient, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidationRejection reports whether err is an expected submission
// rejection that should be shown to the user, not retried.
func IsValidationRejection(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInsufficientNotice) ||
		errors.Is(err, ErrZeroChargeableDays) ||
		errors.Is(err, ErrExceedsConsecutiveLimit) ||
		errors.Is(err, ErrOverlappingRequest) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrLeaveTypeNotFound)
}

// IsNotFound reports whether the error indicates a missing reference.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLeaveTypeNotFound) ||
		errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrRequestNotFound)
}

// IsRetryable reports whether the whole operation might succeed if replayed
// from scratch (re-read, re-validate, re-write).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrTransient)
}
