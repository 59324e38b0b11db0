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

// All validator tests run against a pinned "today" of Monday 2026-03-02 with
// the default two-day notice, so the earliest admissible non-emergency start
// is Wednesday 2026-03-04.
const testToday = "2026-03-02"

func newTestValidator(t *testing.T) (*leave.Validator, *store.Memory) {
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
		Paid:               true,
		RequiresApproval:   true,
		DefaultDaysPerYear: 20,
		MaxConsecutiveDays: 15,
		Active:             true,
	}))

	catalog := leave.NewCatalog(mem)
	ledger := leave.NewLedger(mem, catalog)
	today := func() leave.Date { return mustParse(t, testToday) }
	return leave.NewValidator(mem, catalog, ledger, leave.DefaultNoticeDays, today), mem
}

func mustParse(t *testing.T, s string) leave.Date {
	t.Helper()
	d, err := leave.ParseDate(s)
	require.NoError(t, err)
	return d
}

func candidate(start, end string, t *testing.T) leave.Candidate {
	return leave.Candidate{
		EmployeeID:  "emp-1",
		LeaveTypeID: "vacation",
		Start:       mustParse(t, start),
		End:         mustParse(t, end),
		Reason:      "trip",
	}
}

func existingRequests(t *testing.T, mem *store.Memory) []leave.LeaveRequest {
	t.Helper()
	reqs, err := mem.RequestsForEmployee(context.Background(), "emp-1")
	require.NoError(t, err)
	return reqs
}

// =============================================================================
// ADMISSION
// =============================================================================

func TestValidate_AdmitsWithFrozenDayCount(t *testing.T) {
	// GIVEN: A fresh employee with 20 vacation days
	// WHEN: Requesting Wed-Fri with sufficient notice
	// THEN: Admitted with 3 chargeable days

	v, _ := newTestValidator(t)

	outcome, err := v.Validate(context.Background(), candidate("2026-03-04", "2026-03-06", t), nil)
	require.NoError(t, err)

	assert.True(t, outcome.Admitted)
	assert.Equal(t, 3, outcome.ChargeableDays)
	assert.NoError(t, outcome.Reason)
}

func TestValidate_WeekendsDoNotCharge(t *testing.T) {
	// GIVEN: A nine-calendar-day range spanning one weekend
	v, _ := newTestValidator(t)

	outcome, err := v.Validate(context.Background(), candidate("2026-03-04", "2026-03-12", t), nil)
	require.NoError(t, err)

	assert.True(t, outcome.Admitted)
	assert.Equal(t, 7, outcome.ChargeableDays)
}

func TestValidate_HolidaysDoNotCharge(t *testing.T) {
	// GIVEN: A holiday in the middle of the requested range
	v, mem := newTestValidator(t)
	require.NoError(t, mem.SaveHoliday(context.Background(), mustParse(t, "2026-03-05"), "Founders Day"))

	outcome, err := v.Validate(context.Background(), candidate("2026-03-04", "2026-03-06", t), nil)
	require.NoError(t, err)

	assert.True(t, outcome.Admitted)
	assert.Equal(t, 2, outcome.ChargeableDays)
}

// =============================================================================
// REJECTION RULES
// =============================================================================

func TestValidate_UnknownLeaveType_Rejected(t *testing.T) {
	v, _ := newTestValidator(t)

	c := candidate("2026-03-04", "2026-03-06", t)
	c.LeaveTypeID = "sabbatical"

	outcome, err := v.Validate(context.Background(), c, nil)
	require.NoError(t, err)

	assert.False(t, outcome.Admitted)
	assert.ErrorIs(t, outcome.Reason, leave.ErrLeaveTypeNotFound)
}

func TestValidate_InactiveLeaveType_Rejected(t *testing.T) {
	// GIVEN: A leave type that has been soft-deactivated
	v, mem := newTestValidator(t)
	require.NoError(t, mem.DeactivateLeaveType(context.Background(), "vacation"))

	outcome, err := v.Validate(context.Background(), candidate("2026-03-04", "2026-03-06", t), nil)
	require.NoError(t, err)

	assert.False(t, outcome.Admitted)
	assert.ErrorIs(t, outcome.Reason, leave.ErrLeaveTypeNotFound)
}

func TestValidate_EndBeforeStart_Rejected(t *testing.T) {
	v, _ := newTestValidator(t)

	outcome, err := v.Validate(context.Background(), candidate("2026-03-06", "2026-03-04", t), nil)
	require.NoError(t, err)

	assert.False(t, outcome.Admitted)
	assert.ErrorIs(t, outcome.Reason, leave.ErrInvalidRange)
}

func TestValidate_InsufficientNotice_Rejected(t *testing.T) {
	// GIVEN: Today is Monday and the default notice is two days
	// WHEN: Requesting leave starting tomorrow
	// THEN: Rejected for insufficient notice

	v, _ := newTestValidator(t)

	outcome, err := v.Validate(context.Background(), candidate("2026-03-03", "2026-03-03", t), nil)
	require.NoError(t, err)

	assert.False(t, outcome.Admitted)
	assert.ErrorIs(t, outcome.Reason, leave.ErrInsufficientNotice)
}

func TestValidate_EmergencyBypassesNotice(t *testing.T) {
	// GIVEN: A same-day request flagged as an emergency
	v, _ := newTestValidator(t)

	c := candidate("2026-03-02", "2026-03-02", t)
	c.Emergency = true

	outcome, err := v.Validate(context.Background(), c, nil)
	require.NoError(t, err)

	assert.True(t, outcome.Admitted)
	assert.Equal(t, 1, outcome.ChargeableDays)
}

func TestValidate_WeekendOnlyRange_Rejected(t *testing.T) {
	// GIVEN: A Saturday-Sunday range with zero chargeable days
	v, _ := newTestValidator(t)

	outcome, err := v.Validate(context.Background(), candidate("2026-03-07", "2026-03-08", t), nil)
	require.NoError(t, err)

	assert.False(t, outcome.Admitted)
	assert.ErrorIs(t, outcome.Reason, leave.ErrZeroChargeableDays)
}

func TestValidate_ConsecutiveLimit_Rejected(t *testing.T) {
	// GIVEN: Vacation allows at most 15 consecutive chargeable days
	// WHEN: Requesting a month off (22 working days)
	// THEN: Rejected with the limit and the requested count

	v, _ := newTestValidator(t)

	outcome, err := v.Validate(context.Background(), candidate("2026-03-04", "2026-04-02", t), nil)
	require.NoError(t, err)

	assert.False(t, outcome.Admitted)
	var limitErr *leave.ConsecutiveLimitError
	require.ErrorAs(t, outcome.Reason, &limitErr)
	assert.Equal(t, 15, limitErr.Limit)
	assert.ErrorIs(t, outcome.Reason, leave.ErrExceedsConsecutiveLimit)
}

func TestValidate_Overlap_Rejected(t *testing.T) {
	// GIVEN: An approved request for Mar 4-6
	v, mem := newTestValidator(t)
	ctx := context.Background()

	require.NoError(t, mem.InsertRequest(ctx, &leave.LeaveRequest{
		ID:             "req-1",
		EmployeeID:     "emp-1",
		LeaveTypeID:    "vacation",
		Start:          mustParse(t, "2026-03-04"),
		End:            mustParse(t, "2026-03-06"),
		Status:         leave.StatusApproved,
		ChargeableDays: 3,
	}))

	// WHEN: A new candidate shares even one day with it
	outcome, err := v.Validate(ctx, candidate("2026-03-06", "2026-03-10", t), existingRequests(t, mem))
	require.NoError(t, err)

	// THEN: Rejected, naming the conflicting request
	assert.False(t, outcome.Admitted)
	var overlapErr *leave.OverlapError
	require.ErrorAs(t, outcome.Reason, &overlapErr)
	assert.Equal(t, leave.RequestID("req-1"), overlapErr.ConflictingID)
}

func TestValidate_CancelledRequestDoesNotBlockRange(t *testing.T) {
	// GIVEN: A cancelled request over the same range
	v, mem := newTestValidator(t)
	ctx := context.Background()

	require.NoError(t, mem.InsertRequest(ctx, &leave.LeaveRequest{
		ID:             "req-1",
		EmployeeID:     "emp-1",
		LeaveTypeID:    "vacation",
		Start:          mustParse(t, "2026-03-04"),
		End:            mustParse(t, "2026-03-06"),
		Status:         leave.StatusCancelled,
		ChargeableDays: 3,
	}))

	// THEN: The range is free again
	outcome, err := v.Validate(ctx, candidate("2026-03-04", "2026-03-06", t), existingRequests(t, mem))
	require.NoError(t, err)
	assert.True(t, outcome.Admitted)
}

func TestValidate_InsufficientBalance_Rejected(t *testing.T) {
	// GIVEN: 18 of 20 days already approved this year
	v, mem := newTestValidator(t)
	ctx := context.Background()

	require.NoError(t, mem.InsertRequest(ctx, &leave.LeaveRequest{
		ID:             "req-1",
		EmployeeID:     "emp-1",
		LeaveTypeID:    "vacation",
		Start:          mustParse(t, "2026-06-01"),
		End:            mustParse(t, "2026-06-24"),
		Status:         leave.StatusApproved,
		ChargeableDays: 18,
	}))

	// WHEN: Requesting 3 more days
	outcome, err := v.Validate(ctx, candidate("2026-03-04", "2026-03-06", t), existingRequests(t, mem))
	require.NoError(t, err)

	// THEN: Rejected with remaining=2 requested=3
	assert.False(t, outcome.Admitted)
	var balErr *leave.InsufficientBalanceError
	require.ErrorAs(t, outcome.Reason, &balErr)
	assert.Equal(t, 2, balErr.Remaining)
	assert.Equal(t, 3, balErr.Requested)
}

func TestValidate_PendingHoldCountsAgainstBalance(t *testing.T) {
	// GIVEN: A pending request already holds 18 days
	v, mem := newTestValidator(t)
	ctx := context.Background()

	require.NoError(t, mem.InsertRequest(ctx, &leave.LeaveRequest{
		ID:             "req-1",
		EmployeeID:     "emp-1",
		LeaveTypeID:    "vacation",
		Start:          mustParse(t, "2026-06-01"),
		End:            mustParse(t, "2026-06-24"),
		Status:         leave.StatusPending,
		ChargeableDays: 18,
	}))

	// THEN: The optimistic hold blocks a 3-day request
	outcome, err := v.Validate(ctx, candidate("2026-03-04", "2026-03-06", t), existingRequests(t, mem))
	require.NoError(t, err)

	assert.False(t, outcome.Admitted)
	assert.ErrorIs(t, outcome.Reason, leave.ErrInsufficientBalance)
}

func TestValidate_RuleOrder_TypeCheckBeforeRange(t *testing.T) {
	// GIVEN: A candidate failing both the type rule and the range rule
	v, _ := newTestValidator(t)

	c := candidate("2026-03-06", "2026-03-04", t)
	c.LeaveTypeID = "nope"

	// THEN: The earlier rule wins
	outcome, err := v.Validate(context.Background(), c, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, outcome.Reason, leave.ErrLeaveTypeNotFound)
}
