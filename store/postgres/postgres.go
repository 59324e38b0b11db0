/*
Package postgres provides a PostgreSQL-backed implementation of
leave.Repository over a pgx connection pool.

PURPOSE:
  Multi-writer persistence for the leave engine. Unlike the SQLite store,
  which serializes writers with a process-level mutex, this store leans on
  the database for every concurrency guarantee, so it is safe across
  processes.

ATOMICITY:
  InsertRequest relies on an exclusion constraint (no_live_overlap, a gist
  index over daterange) rather than a check-then-insert: the database itself
  rejects a second live request intersecting an employee's existing range,
  regardless of how many writers race. A constraint violation is surfaced as
  *leave.OverlapError after re-reading the winner.

  UpdateRequestStatus is the same compare-and-swap as everywhere else:
  UPDATE ... WHERE id = $1 AND status = $2.

MIGRATIONS:
  Schema is embedded and applied with goose on New(). Versioned .sql files
  live under migrations/.

SEE ALSO:
  - leave/repository.go: Interface and atomicity contract
  - store/sqlite:        Same contract for single-process deployments
*/
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/warp/leave-engine/leave"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	pgExclusionViolation   = "23P01"
	pgSerializationFailure = "40001"
	pgUniqueViolation      = "23505"
	overlapConstraintName  = "no_live_overlap"
)

// Store implements leave.Repository plus the provisioning surface on
// PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ leave.Repository = (*Store)(nil)

// New connects, runs migrations, and returns a ready store.
func New(ctx context.Context, dsn string) (*Store, error) {
	if err := runMigrations(dsn); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dsn: %w", err)
	}
	config.MaxConns = 25
	config.MinConns = 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// =============================================================================
// REPOSITORY - Reads
// =============================================================================

const requestColumns = `id, employee_id, leave_type_id, start_date, end_date,
	reason, emergency, status, chargeable_days, applied_at,
	decider_id, decided_at, remarks`

func (s *Store) RequestsForEmployee(ctx context.Context, id leave.EmployeeID) ([]leave.LeaveRequest, error) {
	query := `SELECT ` + requestColumns + `
		FROM leave_requests WHERE employee_id = $1 ORDER BY start_date ASC`
	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (s *Store) Request(ctx context.Context, id leave.RequestID) (*leave.LeaveRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM leave_requests WHERE id = $1`
	row := s.pool.QueryRow(ctx, query, id)

	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, leave.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Store) LeaveType(ctx context.Context, id leave.LeaveTypeID) (*leave.LeaveType, error) {
	var lt leave.LeaveType
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, description, paid, requires_approval,
		       default_days_per_year, max_consecutive_days, active
		FROM leave_types WHERE id = $1`, id,
	).Scan(&lt.ID, &lt.Name, &lt.Description, &lt.Paid, &lt.RequiresApproval,
		&lt.DefaultDaysPerYear, &lt.MaxConsecutiveDays, &lt.Active)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, leave.ErrLeaveTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load leave type: %w", err)
	}
	return &lt, nil
}

func (s *Store) Employee(ctx context.Context, id leave.EmployeeID) (*leave.Employee, error) {
	var (
		emp       leave.Employee
		hireDate  time.Time
		managerID *string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, department, hire_date, manager_id, active
		FROM employees WHERE id = $1`, id,
	).Scan(&emp.ID, &emp.Name, &emp.Email, &emp.Department, &hireDate, &managerID, &emp.Active)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, leave.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}

	emp.HireDate = leave.DateOf(hireDate)
	if managerID != nil {
		mid := leave.EmployeeID(*managerID)
		emp.ManagerID = &mid
	}
	return &emp, nil
}

func (s *Store) HolidaySet(ctx context.Context, year int) (leave.HolidaySet, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT date, name FROM holidays WHERE year = $1", year)
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", err)
	}
	defer rows.Close()

	set := make(leave.HolidaySet)
	for rows.Next() {
		var (
			date time.Time
			name string
		)
		if err := rows.Scan(&date, &name); err != nil {
			return nil, err
		}
		set.Add(leave.DateOf(date), name)
	}
	return set, rows.Err()
}

// =============================================================================
// REPOSITORY - Writes
// =============================================================================

// InsertRequest persists a request. The no_live_overlap exclusion constraint
// enforces the overlap invariant at the database level; on violation the
// winning request is re-read to populate the OverlapError.
func (s *Store) InsertRequest(ctx context.Context, req *leave.LeaveRequest) error {
	var deciderID, remarks *string
	var decidedAt *time.Time
	if req.Decision != nil {
		d := string(req.Decision.DeciderID)
		deciderID = &d
		t := req.Decision.DecidedAt.UTC()
		decidedAt = &t
		remarks = &req.Decision.Remarks
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO leave_requests
		(id, employee_id, leave_type_id, start_date, end_date, reason,
		 emergency, status, chargeable_days, applied_at, decider_id, decided_at, remarks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		req.ID, req.EmployeeID, req.LeaveTypeID,
		req.Start.Time(), req.End.Time(), req.Reason,
		req.Emergency, req.Status, req.ChargeableDays,
		req.AppliedAt.UTC(), deciderID, decidedAt, remarks,
	)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgExclusionViolation && pgErr.ConstraintName == overlapConstraintName:
			return s.overlapError(ctx, req)
		case pgErr.Code == pgUniqueViolation:
			return leave.ErrConflict
		case pgErr.Code == pgSerializationFailure:
			return leave.ErrConflict
		}
	}
	return fmt.Errorf("failed to insert request: %w", err)
}

// overlapError finds the live request that won the range and wraps it.
func (s *Store) overlapError(ctx context.Context, req *leave.LeaveRequest) error {
	var (
		id    string
		start time.Time
		end   time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, start_date, end_date FROM leave_requests
		WHERE employee_id = $1
		  AND status IN ('pending', 'approved')
		  AND start_date <= $2 AND end_date >= $3
		LIMIT 1`,
		req.EmployeeID, req.End.Time(), req.Start.Time(),
	).Scan(&id, &start, &end)
	if err != nil {
		// The winner may have been decided away already; report the bare
		// sentinel rather than fail the error path.
		return leave.ErrOverlappingRequest
	}
	return &leave.OverlapError{
		ConflictingID: leave.RequestID(id),
		Start:         leave.DateOf(start),
		End:           leave.DateOf(end),
	}
}

// UpdateRequestStatus performs the compare-and-swap status transition.
func (s *Store) UpdateRequestStatus(ctx context.Context, id leave.RequestID, expected, next leave.RequestStatus, meta *leave.DecisionMeta) (*leave.LeaveRequest, error) {
	var deciderID, remarks *string
	var decidedAt *time.Time
	if meta != nil {
		d := string(meta.DeciderID)
		deciderID = &d
		t := meta.DecidedAt.UTC()
		decidedAt = &t
		remarks = &meta.Remarks
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE leave_requests
		SET status = $1, decider_id = $2, decided_at = $3, remarks = $4
		WHERE id = $5 AND status = $6`,
		next, deciderID, decidedAt, remarks, id, expected,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, lookupErr := s.Request(ctx, id); lookupErr != nil {
			return nil, lookupErr
		}
		return nil, leave.ErrConflict
	}

	return s.Request(ctx, id)
}

// =============================================================================
// PROVISIONING
// =============================================================================

func (s *Store) SaveEmployee(ctx context.Context, emp leave.Employee) error {
	var managerID *string
	if emp.ManagerID != nil {
		m := string(*emp.ManagerID)
		managerID = &m
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO employees (id, name, email, department, hire_date, manager_id, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			department = EXCLUDED.department,
			manager_id = EXCLUDED.manager_id,
			active = EXCLUDED.active`,
		emp.ID, emp.Name, emp.Email, emp.Department,
		emp.HireDate.Time(), managerID, emp.Active,
	)
	return err
}

func (s *Store) SaveLeaveType(ctx context.Context, lt leave.LeaveType) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO leave_types
		(id, name, description, paid, requires_approval,
		 default_days_per_year, max_consecutive_days, active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			paid = EXCLUDED.paid,
			requires_approval = EXCLUDED.requires_approval,
			default_days_per_year = EXCLUDED.default_days_per_year,
			max_consecutive_days = EXCLUDED.max_consecutive_days,
			active = EXCLUDED.active,
			updated_at = now()`,
		lt.ID, lt.Name, lt.Description, lt.Paid, lt.RequiresApproval,
		lt.DefaultDaysPerYear, lt.MaxConsecutiveDays, lt.Active,
	)
	return err
}

func (s *Store) DeactivateLeaveType(ctx context.Context, id leave.LeaveTypeID) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE leave_types SET active = FALSE, updated_at = now() WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return leave.ErrLeaveTypeNotFound
	}
	return nil
}

func (s *Store) SaveHoliday(ctx context.Context, date leave.Date, name string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO holidays (date, name, year) VALUES ($1, $2, $3)
		ON CONFLICT (date, name) DO NOTHING`,
		date.Time(), name, date.Year())
	return err
}

func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, department, hire_date, manager_id, active
		FROM employees ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var result []leave.Employee
	for rows.Next() {
		var (
			emp       leave.Employee
			hireDate  time.Time
			managerID *string
		)
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.Email, &emp.Department,
			&hireDate, &managerID, &emp.Active); err != nil {
			return nil, err
		}
		emp.HireDate = leave.DateOf(hireDate)
		if managerID != nil {
			mid := leave.EmployeeID(*managerID)
			emp.ManagerID = &mid
		}
		result = append(result, emp)
	}
	return result, rows.Err()
}

func (s *Store) ListLeaveTypes(ctx context.Context) ([]leave.LeaveType, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, paid, requires_approval,
		       default_days_per_year, max_consecutive_days, active
		FROM leave_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave types: %w", err)
	}
	defer rows.Close()

	var result []leave.LeaveType
	for rows.Next() {
		var lt leave.LeaveType
		if err := rows.Scan(&lt.ID, &lt.Name, &lt.Description, &lt.Paid,
			&lt.RequiresApproval, &lt.DefaultDaysPerYear,
			&lt.MaxConsecutiveDays, &lt.Active); err != nil {
			return nil, err
		}
		result = append(result, lt)
	}
	return result, rows.Err()
}

func (s *Store) TeamRequests(ctx context.Context, managerID leave.EmployeeID) ([]leave.LeaveRequest, error) {
	query := `SELECT r.id, r.employee_id, r.leave_type_id, r.start_date, r.end_date,
		r.reason, r.emergency, r.status, r.chargeable_days, r.applied_at,
		r.decider_id, r.decided_at, r.remarks
		FROM leave_requests r
		JOIN employees e ON e.id = r.employee_id
		WHERE e.manager_id = $1
		ORDER BY r.applied_at DESC`
	rows, err := s.pool.Query(ctx, query, managerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query team requests: %w", err)
	}
	defer rows.Close()
	return collectRequests(rows)
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

func collectRequests(rows pgx.Rows) ([]leave.LeaveRequest, error) {
	var result []leave.LeaveRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func scanRequest(row pgx.Row) (*leave.LeaveRequest, error) {
	var (
		req       leave.LeaveRequest
		start     time.Time
		end       time.Time
		reason    *string
		deciderID *string
		decidedAt *time.Time
		remarks   *string
	)

	err := row.Scan(&req.ID, &req.EmployeeID, &req.LeaveTypeID,
		&start, &end, &reason, &req.Emergency, &req.Status,
		&req.ChargeableDays, &req.AppliedAt, &deciderID, &decidedAt, &remarks)
	if err != nil {
		return nil, err
	}

	req.Start = leave.DateOf(start)
	req.End = leave.DateOf(end)
	if reason != nil {
		req.Reason = *reason
	}

	if deciderID != nil {
		meta := leave.DecisionMeta{DeciderID: leave.EmployeeID(*deciderID)}
		if decidedAt != nil {
			meta.DecidedAt = *decidedAt
		}
		if remarks != nil {
			meta.Remarks = *remarks
		}
		req.Decision = &meta
	}

	return &req, nil
}
