package leave_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/leave/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*leave.Ledger, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.SaveEmployee(ctx, leave.Employee{
		ID:       "emp-1",
		Name:     "Priya Raman",
		HireDate: mustParse(t, "2022-06-01"),
		Active:   true,
	}))
	require.NoError(t, mem.SaveLeaveType(ctx, leave.LeaveType{
		ID:                 "vacation",
		Name:               "Vacation",
		DefaultDaysPerYear: 20,
		RequiresApproval:   true,
		Active:             true,
	}))
	require.NoError(t, mem.SaveLeaveType(ctx, leave.LeaveType{
		ID:                 "sick",
		Name:               "Sick Leave",
		DefaultDaysPerYear: 10,
		Active:             true,
	}))

	catalog := leave.NewCatalog(mem)
	return leave.NewLedger(mem, catalog), mem
}

func insertRequest(t *testing.T, mem *store.Memory, id string, typeID leave.LeaveTypeID, start, end string, status leave.RequestStatus, days int) {
	t.Helper()
	require.NoError(t, mem.InsertRequest(context.Background(), &leave.LeaveRequest{
		ID:             leave.RequestID(id),
		EmployeeID:     "emp-1",
		LeaveTypeID:    typeID,
		Start:          mustParse(t, start),
		End:            mustParse(t, end),
		Status:         status,
		ChargeableDays: days,
	}))
}

// =============================================================================
// BALANCE DERIVATION
// =============================================================================

func TestComputeBalance_FreshEmployee(t *testing.T) {
	ledger, _ := newTestLedger(t)

	bal, err := ledger.ComputeBalance(context.Background(), "emp-1", "vacation", 2026)
	require.NoError(t, err)

	assert.Equal(t, 20, bal.Total)
	assert.Equal(t, 0, bal.Used)
	assert.Equal(t, 0, bal.Pending)
	assert.Equal(t, 20, bal.Remaining)
}

func TestComputeBalance_ApprovedChargesUsed(t *testing.T) {
	ledger, mem := newTestLedger(t)
	insertRequest(t, mem, "req-1", "vacation", "2026-03-04", "2026-03-06", leave.StatusApproved, 3)

	bal, err := ledger.ComputeBalance(context.Background(), "emp-1", "vacation", 2026)
	require.NoError(t, err)

	assert.Equal(t, 3, bal.Used)
	assert.Equal(t, 0, bal.Pending)
	assert.Equal(t, 17, bal.Remaining)
}

func TestComputeBalance_PendingHoldsOptimistically(t *testing.T) {
	// GIVEN: One pending request
	// THEN: Its days are held against the balance before any decision

	ledger, mem := newTestLedger(t)
	insertRequest(t, mem, "req-1", "vacation", "2026-03-04", "2026-03-06", leave.StatusPending, 3)

	bal, err := ledger.ComputeBalance(context.Background(), "emp-1", "vacation", 2026)
	require.NoError(t, err)

	assert.Equal(t, 0, bal.Used)
	assert.Equal(t, 3, bal.Pending)
	assert.Equal(t, 17, bal.Remaining)
}

func TestComputeBalance_RejectedAndCancelledReleaseHold(t *testing.T) {
	ledger, mem := newTestLedger(t)
	insertRequest(t, mem, "req-1", "vacation", "2026-03-04", "2026-03-06", leave.StatusRejected, 3)
	insertRequest(t, mem, "req-2", "vacation", "2026-04-06", "2026-04-08", leave.StatusCancelled, 3)

	bal, err := ledger.ComputeBalance(context.Background(), "emp-1", "vacation", 2026)
	require.NoError(t, err)

	assert.Equal(t, 20, bal.Remaining, "terminal non-approved requests do not charge")
}

func TestComputeBalance_IsolatedPerLeaveType(t *testing.T) {
	// GIVEN: Approved sick leave
	ledger, mem := newTestLedger(t)
	insertRequest(t, mem, "req-1", "sick", "2026-03-04", "2026-03-06", leave.StatusApproved, 3)

	// THEN: Vacation balance is untouched
	vac, err := ledger.ComputeBalance(context.Background(), "emp-1", "vacation", 2026)
	require.NoError(t, err)
	assert.Equal(t, 20, vac.Remaining)

	sick, err := ledger.ComputeBalance(context.Background(), "emp-1", "sick", 2026)
	require.NoError(t, err)
	assert.Equal(t, 7, sick.Remaining)
}

func TestComputeBalance_ChargesStartYear(t *testing.T) {
	// GIVEN: A request charged to 2025 by its start date
	ledger, mem := newTestLedger(t)
	insertRequest(t, mem, "req-1", "vacation", "2025-12-29", "2026-01-02", leave.StatusApproved, 4)

	// THEN: 2025 carries the charge, 2026 does not
	prev, err := ledger.ComputeBalance(context.Background(), "emp-1", "vacation", 2025)
	require.NoError(t, err)
	assert.Equal(t, 4, prev.Used)

	next, err := ledger.ComputeBalance(context.Background(), "emp-1", "vacation", 2026)
	require.NoError(t, err)
	assert.Equal(t, 0, next.Used)
}

func TestComputeBalance_RemainingFlooredAtZero(t *testing.T) {
	// GIVEN: More days approved than the yearly total (entitlement was
	// lowered after approval)
	ledger, mem := newTestLedger(t)
	insertRequest(t, mem, "req-1", "vacation", "2026-03-02", "2026-04-03", leave.StatusApproved, 25)

	bal, err := ledger.ComputeBalance(context.Background(), "emp-1", "vacation", 2026)
	require.NoError(t, err)

	assert.Equal(t, 25, bal.Used)
	assert.Equal(t, 0, bal.Remaining, "never negative")
}

func TestComputeBalance_UnknownEmployee(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.ComputeBalance(context.Background(), "ghost", "vacation", 2026)
	assert.ErrorIs(t, err, leave.ErrEmployeeNotFound)
}

func TestComputeBalance_UnknownLeaveType(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.ComputeBalance(context.Background(), "emp-1", "sabbatical", 2026)
	assert.ErrorIs(t, err, leave.ErrLeaveTypeNotFound)
}

func TestComputeBalance_DeterministicWithoutWrites(t *testing.T) {
	ledger, mem := newTestLedger(t)
	insertRequest(t, mem, "req-1", "vacation", "2026-03-04", "2026-03-06", leave.StatusPending, 3)

	first, err := ledger.ComputeBalance(context.Background(), "emp-1", "vacation", 2026)
	require.NoError(t, err)
	second, err := ledger.ComputeBalance(context.Background(), "emp-1", "vacation", 2026)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
