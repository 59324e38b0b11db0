/*
Package sqlite provides a SQLite-backed implementation of leave.Repository.

PURPOSE:
  Production-shape persistence for the leave engine. The same patterns apply
  to PostgreSQL (see store/postgres) - only dialect and locking differ.

ATOMICITY:
  The two write paths carry the engine's consistency guarantees:

  InsertRequest runs the overlap check and the insert inside one database
  transaction, serialized by a store-level mutex (SQLite allows a single
  writer). Two concurrent submissions for intersecting ranges cannot both
  commit.

  UpdateRequestStatus is a compare-and-swap: UPDATE ... WHERE id = ? AND
  status = ?. Zero rows affected means the expected status no longer holds
  and the caller lost an optimistic race.

REFERENTIAL INVARIANT:
  Leave types are soft-deactivated, never deleted. There is no DELETE path
  for leave_types at all; historical requests always resolve their type.

WAL MODE:
  The database is opened with WAL so readers do not block during writes.

USAGE:
  store, err := sqlite.New("./data/leave.db")   // or ":memory:"
  engine := leave.NewEngine(store)

SEE ALSO:
  - leave/repository.go: Interface and atomicity contract
  - store/postgres:      Same contract on PostgreSQL
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/leave-engine/leave"
)

// Store implements leave.Repository plus the provisioning surface used by
// hosts (employees, leave types, holidays, team queries).
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ leave.Repository = (*Store)(nil)

// New opens (and migrates) a SQLite database. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		department TEXT,
		hire_date TEXT NOT NULL,
		manager_id TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_manager
		ON employees(manager_id) WHERE manager_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		paid BOOLEAN NOT NULL DEFAULT TRUE,
		requires_approval BOOLEAN NOT NULL DEFAULT TRUE,
		default_days_per_year INTEGER NOT NULL,
		max_consecutive_days INTEGER NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS holidays (
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		year INTEGER NOT NULL,
		PRIMARY KEY (date, name)
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_year ON holidays(year);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		leave_type_id TEXT NOT NULL REFERENCES leave_types(id),
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		reason TEXT,
		emergency BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL DEFAULT 'pending',
		chargeable_days INTEGER NOT NULL,
		applied_at TEXT NOT NULL,
		decider_id TEXT,
		decided_at TEXT,
		remarks TEXT,
		CHECK (start_date <= end_date),
		CHECK (chargeable_days >= 1)
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON leave_requests(employee_id, start_date);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON leave_requests(status);
	-- Hot path for the overlap scan: live requests per employee by range.
	CREATE INDEX IF NOT EXISTS idx_requests_employee_live
		ON leave_requests(employee_id, start_date, end_date)
		WHERE status IN ('pending', 'approved');
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REPOSITORY - Reads
// =============================================================================

const requestColumns = `id, employee_id, leave_type_id, start_date, end_date,
	reason, emergency, status, chargeable_days, applied_at,
	decider_id, decided_at, remarks`

func (s *Store) RequestsForEmployee(ctx context.Context, id leave.EmployeeID) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + requestColumns + `
		FROM leave_requests WHERE employee_id = ? ORDER BY start_date ASC`
	return s.queryRequests(ctx, query, id)
}

func (s *Store) Request(ctx context.Context, id leave.RequestID) (*leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getRequest(ctx, id)
}

func (s *Store) getRequest(ctx context.Context, id leave.RequestID) (*leave.LeaveRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM leave_requests WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, id)

	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Store) LeaveType(ctx context.Context, id leave.LeaveTypeID) (*leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lt leave.LeaveType
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, paid, requires_approval,
		       default_days_per_year, max_consecutive_days, active
		FROM leave_types WHERE id = ?`, id,
	).Scan(&lt.ID, &lt.Name, &lt.Description, &lt.Paid, &lt.RequiresApproval,
		&lt.DefaultDaysPerYear, &lt.MaxConsecutiveDays, &lt.Active)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrLeaveTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load leave type: %w", err)
	}
	return &lt, nil
}

func (s *Store) Employee(ctx context.Context, id leave.EmployeeID) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		emp       leave.Employee
		hireDate  string
		managerID sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, department, hire_date, manager_id, active
		FROM employees WHERE id = ?`, id,
	).Scan(&emp.ID, &emp.Name, &emp.Email, &emp.Department, &hireDate, &managerID, &emp.Active)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}

	emp.HireDate, err = leave.ParseDate(hireDate)
	if err != nil {
		return nil, fmt.Errorf("corrupt hire_date for %s: %w", id, err)
	}
	if managerID.Valid {
		mid := leave.EmployeeID(managerID.String)
		emp.ManagerID = &mid
	}
	return &emp, nil
}

func (s *Store) HolidaySet(ctx context.Context, year int) (leave.HolidaySet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT date, name FROM holidays WHERE year = ?", year)
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", err)
	}
	defer rows.Close()

	set := make(leave.HolidaySet)
	for rows.Next() {
		var dateStr, name string
		if err := rows.Scan(&dateStr, &name); err != nil {
			return nil, err
		}
		date, err := leave.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt holiday date %q: %w", dateStr, err)
		}
		set.Add(date, name)
	}
	return set, rows.Err()
}

// =============================================================================
// REPOSITORY - Writes
// =============================================================================

// InsertRequest checks the overlap invariant and inserts in one transaction.
// The store mutex serializes writers, so the check and the insert observe a
// consistent snapshot.
func (s *Store) InsertRequest(ctx context.Context, req *leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if req.Status.HoldsBalance() {
		var conflictID, conflictStart, conflictEnd string
		err := tx.QueryRowContext(ctx, `
			SELECT id, start_date, end_date FROM leave_requests
			WHERE employee_id = ?
			  AND status IN ('pending', 'approved')
			  AND start_date <= ? AND end_date >= ?
			LIMIT 1`,
			req.EmployeeID, req.End.String(), req.Start.String(),
		).Scan(&conflictID, &conflictStart, &conflictEnd)

		switch {
		case err == nil:
			start, _ := leave.ParseDate(conflictStart)
			end, _ := leave.ParseDate(conflictEnd)
			return &leave.OverlapError{
				ConflictingID: leave.RequestID(conflictID),
				Start:         start,
				End:           end,
			}
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to check overlap: %w", err)
		}
	}

	var deciderID, decidedAt, remarks any
	if req.Decision != nil {
		deciderID = string(req.Decision.DeciderID)
		decidedAt = req.Decision.DecidedAt.UTC().Format(time.RFC3339)
		remarks = req.Decision.Remarks
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO leave_requests
		(id, employee_id, leave_type_id, start_date, end_date, reason,
		 emergency, status, chargeable_days, applied_at, decider_id, decided_at, remarks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.EmployeeID, req.LeaveTypeID,
		req.Start.String(), req.End.String(), req.Reason,
		req.Emergency, req.Status, req.ChargeableDays,
		req.AppliedAt.UTC().Format(time.RFC3339),
		deciderID, decidedAt, remarks,
	)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}

	return tx.Commit()
}

// UpdateRequestStatus performs the compare-and-swap status transition,
// writing decision metadata in the same statement.
func (s *Store) UpdateRequestStatus(ctx context.Context, id leave.RequestID, expected, next leave.RequestStatus, meta *leave.DecisionMeta) (*leave.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deciderID, decidedAt, remarks any
	if meta != nil {
		deciderID = string(meta.DeciderID)
		decidedAt = meta.DecidedAt.UTC().Format(time.RFC3339)
		remarks = meta.Remarks
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE leave_requests
		SET status = ?, decider_id = ?, decided_at = ?, remarks = ?
		WHERE id = ? AND status = ?`,
		next, deciderID, decidedAt, remarks, id, expected,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update request status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Either the request is missing or the expected status no longer
		// holds; distinguish so callers can report accurately.
		if _, lookupErr := s.getRequest(ctx, id); lookupErr != nil {
			return nil, lookupErr
		}
		return nil, leave.ErrConflict
	}

	return s.getRequest(ctx, id)
}

// =============================================================================
// PROVISIONING
// =============================================================================

func (s *Store) SaveEmployee(ctx context.Context, emp leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var managerID any
	if emp.ManagerID != nil {
		managerID = string(*emp.ManagerID)
	}

	// Hire date is written on first insert only; it never changes after
	// provisioning.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, email, department, hire_date, manager_id, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			department = excluded.department,
			manager_id = excluded.manager_id,
			active = excluded.active`,
		emp.ID, emp.Name, emp.Email, emp.Department,
		emp.HireDate.String(), managerID, emp.Active,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) SaveLeaveType(ctx context.Context, lt leave.LeaveType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_types
		(id, name, description, paid, requires_approval,
		 default_days_per_year, max_consecutive_days, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			paid = excluded.paid,
			requires_approval = excluded.requires_approval,
			default_days_per_year = excluded.default_days_per_year,
			max_consecutive_days = excluded.max_consecutive_days,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		lt.ID, lt.Name, lt.Description, lt.Paid, lt.RequiresApproval,
		lt.DefaultDaysPerYear, lt.MaxConsecutiveDays, lt.Active, now, now,
	)
	return err
}

// DeactivateLeaveType soft-deactivates a leave type. There is no physical
// delete: historical requests must keep resolving their type.
func (s *Store) DeactivateLeaveType(ctx context.Context, id leave.LeaveTypeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE leave_types SET active = FALSE, updated_at = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return leave.ErrLeaveTypeNotFound
	}
	return nil
}

func (s *Store) SaveHoliday(ctx context.Context, date leave.Date, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (date, name, year) VALUES (?, ?, ?)
		ON CONFLICT(date, name) DO NOTHING`,
		date.String(), name, date.Year())
	return err
}

func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
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
			hireDate  string
			managerID sql.NullString
		)
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.Email, &emp.Department,
			&hireDate, &managerID, &emp.Active); err != nil {
			return nil, err
		}
		emp.HireDate, err = leave.ParseDate(hireDate)
		if err != nil {
			return nil, fmt.Errorf("corrupt hire_date for %s: %w", emp.ID, err)
		}
		if managerID.Valid {
			mid := leave.EmployeeID(managerID.String)
			emp.ManagerID = &mid
		}
		result = append(result, emp)
	}
	return result, rows.Err()
}

func (s *Store) ListLeaveTypes(ctx context.Context) ([]leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
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

// TeamRequests returns all requests of employees reporting to managerID,
// newest application first.
func (s *Store) TeamRequests(ctx context.Context, managerID leave.EmployeeID) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT r.id, r.employee_id, r.leave_type_id, r.start_date, r.end_date,
		r.reason, r.emergency, r.status, r.chargeable_days, r.applied_at,
		r.decider_id, r.decided_at, r.remarks
		FROM leave_requests r
		JOIN employees e ON e.id = r.employee_id
		WHERE e.manager_id = ?
		ORDER BY r.applied_at DESC`
	return s.queryRequests(ctx, query, managerID)
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]leave.LeaveRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*leave.LeaveRequest, error) {
	var (
		req       leave.LeaveRequest
		startDate string
		endDate   string
		reason    sql.NullString
		appliedAt string
		deciderID sql.NullString
		decidedAt sql.NullString
		remarks   sql.NullString
	)

	err := row.Scan(&req.ID, &req.EmployeeID, &req.LeaveTypeID,
		&startDate, &endDate, &reason, &req.Emergency, &req.Status,
		&req.ChargeableDays, &appliedAt, &deciderID, &decidedAt, &remarks)
	if err != nil {
		return nil, err
	}

	if req.Start, err = leave.ParseDate(startDate); err != nil {
		return nil, fmt.Errorf("corrupt start_date: %w", err)
	}
	if req.End, err = leave.ParseDate(endDate); err != nil {
		return nil, fmt.Errorf("corrupt end_date: %w", err)
	}
	req.Reason = reason.String

	if t, err := time.Parse(time.RFC3339, appliedAt); err == nil {
		req.AppliedAt = t
	}

	if deciderID.Valid {
		meta := leave.DecisionMeta{
			DeciderID: leave.EmployeeID(deciderID.String),
			Remarks:   remarks.String,
		}
		if decidedAt.Valid {
			if t, err := time.Parse(time.RFC3339, decidedAt.String); err == nil {
				meta.DecidedAt = t
			}
		}
		req.Decision = &meta
	}

	return &req, nil
}
