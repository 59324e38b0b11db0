/*
repository.go - Persistence interface between the engine and storage

PURPOSE:
  Defines the collaborator the engine reads and writes through. The engine
  holds no mutable state of its own; every consistency guarantee lives here.

CONCURRENCY CONTRACT:
  InsertRequest must be atomic with respect to the overlap invariant: the
  check for conflicting live requests and the write must observe a single
  consistent snapshot (serializable transaction, or a uniqueness constraint
  on the employee's live date ranges). Two concurrent inserts for
  intersecting ranges must not both commit; the loser gets an OverlapError.

  UpdateRequestStatus is a compare-and-swap on status: the write applies only
  if the stored status still equals expected. On mismatch it returns
  ErrConflict and writes nothing. This is what prevents two managers from
  double-deciding the same request.

IMPLEMENTATIONS:
  - leave/store:     In-memory (testing/dev)
  - store/sqlite:    SQLite, transaction-per-insert
  - store/postgres:  PostgreSQL, serializable transactions + range exclusion

SEE ALSO:
  - engine.go: The only caller of the write methods
*/
package leave

import "context"

// Repository is the authoritative source of requests, policy definitions,
// employees, and holiday data. Implementations must be safe for concurrent
// use; repository calls are expected to respect ctx deadlines and surface
// timeouts as transient errors.
type Repository interface {
	// RequestsForEmployee returns every request for the employee, all
	// statuses, ordered by start date.
	RequestsForEmployee(ctx context.Context, id EmployeeID) ([]LeaveRequest, error)

	// Request returns a single request or ErrRequestNotFound.
	Request(ctx context.Context, id RequestID) (*LeaveRequest, error)

	// InsertRequest persists a new request atomically. Returns an
	// OverlapError when the range collides with a live request for the same
	// employee.
	InsertRequest(ctx context.Context, req *LeaveRequest) error

	// UpdateRequestStatus transitions a request from expected to next,
	// writing decision metadata in the same atomic unit. Returns ErrConflict
	// when the stored status no longer equals expected, and
	// ErrRequestNotFound when the request does not exist.
	UpdateRequestStatus(ctx context.Context, id RequestID, expected, next RequestStatus, meta *DecisionMeta) (*LeaveRequest, error)

	// LeaveType returns a leave type (active or not) or ErrLeaveTypeNotFound.
	LeaveType(ctx context.Context, id LeaveTypeID) (*LeaveType, error)

	// Employee returns an employee or ErrEmployeeNotFound.
	Employee(ctx context.Context, id EmployeeID) (*Employee, error)

	// HolidaySet returns the public holidays for a year. Holidays are input
	// data; an empty set is a valid answer.
	HolidaySet(ctx context.Context, year int) (HolidaySet, error)
}
