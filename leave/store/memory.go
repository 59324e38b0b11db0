// Package store provides an in-memory Repository implementation for tests
// and development. All invariant enforcement (overlap constraint, CAS status
// updates) happens under a single lock, so the atomicity contract matches
// what the SQL-backed stores provide transactionally.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	employees  map[leave.EmployeeID]leave.Employee
	leaveTypes map[leave.LeaveTypeID]leave.LeaveType
	requests   map[leave.RequestID]*leave.LeaveRequest
	byEmployee map[leave.EmployeeID][]leave.RequestID
	holidays   map[int]leave.HolidaySet
}

func NewMemory() *Memory {
	return &Memory{
		employees:  make(map[leave.EmployeeID]leave.Employee),
		leaveTypes: make(map[leave.LeaveTypeID]leave.LeaveType),
		requests:   make(map[leave.RequestID]*leave.LeaveRequest),
		byEmployee: make(map[leave.EmployeeID][]leave.RequestID),
		holidays:   make(map[int]leave.HolidaySet),
	}
}

var _ leave.Repository = (*Memory)(nil)

// =============================================================================
// REPOSITORY - Reads
// =============================================================================

func (m *Memory) RequestsForEmployee(_ context.Context, id leave.EmployeeID) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byEmployee[id]
	result := make([]leave.LeaveRequest, 0, len(ids))
	for _, reqID := range ids {
		result = append(result, *m.requests[reqID].Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Start.Before(result[j].Start)
	})
	return result, nil
}

func (m *Memory) Request(_ context.Context, id leave.RequestID) (*leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, leave.ErrRequestNotFound
	}
	return req.Clone(), nil
}

func (m *Memory) LeaveType(_ context.Context, id leave.LeaveTypeID) (*leave.LeaveType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lt, ok := m.leaveTypes[id]
	if !ok {
		return nil, leave.ErrLeaveTypeNotFound
	}
	return &lt, nil
}

func (m *Memory) Employee(_ context.Context, id leave.EmployeeID) (*leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emp, ok := m.employees[id]
	if !ok {
		return nil, leave.ErrEmployeeNotFound
	}
	return &emp, nil
}

func (m *Memory) HolidaySet(_ context.Context, year int) (leave.HolidaySet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := make(leave.HolidaySet, len(m.holidays[year]))
	for d, name := range m.holidays[year] {
		set[d] = name
	}
	return set, nil
}

// =============================================================================
// REPOSITORY - Writes (atomic under one lock)
// =============================================================================

// InsertRequest checks the overlap invariant and inserts under a single
// write lock, so concurrent overlapping submissions cannot both commit.
func (m *Memory) InsertRequest(_ context.Context, req *leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if req.Status.HoldsBalance() {
		for _, existingID := range m.byEmployee[req.EmployeeID] {
			existing := m.requests[existingID]
			if !existing.HoldsBalance() {
				continue
			}
			if existing.Overlaps(req.Start, req.End) {
				return &leave.OverlapError{
					ConflictingID: existing.ID,
					Start:         existing.Start,
					End:           existing.End,
				}
			}
		}
	}

	m.requests[req.ID] = req.Clone()
	m.byEmployee[req.EmployeeID] = append(m.byEmployee[req.EmployeeID], req.ID)
	return nil
}

// UpdateRequestStatus applies a compare-and-swap on status. The write
// happens only if the stored status still equals expected.
func (m *Memory) UpdateRequestStatus(_ context.Context, id leave.RequestID, expected, next leave.RequestStatus, meta *leave.DecisionMeta) (*leave.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, leave.ErrRequestNotFound
	}
	if req.Status != expected {
		return nil, leave.ErrConflict
	}

	req.Status = next
	if meta != nil {
		metaCopy := *meta
		req.Decision = &metaCopy
	}
	return req.Clone(), nil
}

// =============================================================================
// PROVISIONING - Admin writes outside the engine's surface
// =============================================================================

func (m *Memory) SaveEmployee(_ context.Context, emp leave.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[emp.ID] = emp
	return nil
}

func (m *Memory) SaveLeaveType(_ context.Context, lt leave.LeaveType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveTypes[lt.ID] = lt
	return nil
}

// DeactivateLeaveType soft-deactivates. Types are never physically removed;
// historical requests keep a resolvable reference.
func (m *Memory) DeactivateLeaveType(_ context.Context, id leave.LeaveTypeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lt, ok := m.leaveTypes[id]
	if !ok {
		return leave.ErrLeaveTypeNotFound
	}
	lt.Active = false
	m.leaveTypes[id] = lt
	return nil
}

func (m *Memory) SaveHoliday(_ context.Context, date leave.Date, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.holidays[date.Year()]
	if !ok {
		set = make(leave.HolidaySet)
		m.holidays[date.Year()] = set
	}
	set.Add(date, name)
	return nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]leave.Employee, 0, len(m.employees))
	for _, emp := range m.employees {
		result = append(result, emp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) ListLeaveTypes(_ context.Context) ([]leave.LeaveType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]leave.LeaveType, 0, len(m.leaveTypes))
	for _, lt := range m.leaveTypes {
		result = append(result, lt)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// TeamRequests returns all requests belonging to employees managed by the
// given manager, newest application first.
func (m *Memory) TeamRequests(_ context.Context, managerID leave.EmployeeID) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []leave.LeaveRequest
	for _, emp := range m.employees {
		if emp.ManagerID == nil || *emp.ManagerID != managerID {
			continue
		}
		for _, reqID := range m.byEmployee[emp.ID] {
			result = append(result, *m.requests[reqID].Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AppliedAt.After(result[j].AppliedAt)
	})
	return result, nil
}
