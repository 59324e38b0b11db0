/*
seed.go - Development seed data

PURPOSE:
  Populates an empty database with a small, realistic org so the API is
  usable immediately after first start: one manager, two reports, three
  leave types, and the fixed public holidays of the current year.

  Seeding is idempotent in effect - it only runs when no employees exist -
  so restarting a dev server never duplicates data.

NOTE:
  Only wired up when the server runs with seeding enabled. Production
  deployments provision through the API instead.

SEE ALSO:
  - handlers.go: The provisioning endpoints used for real data
  - cmd/server/main.go: Enables seeding via configuration
*/
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/leave-engine/leave"
)

// Seed populates an empty store with demo data. A store that already has
// employees is left untouched.
func Seed(ctx context.Context, store Store) error {
	existing, err := store.ListEmployees(ctx)
	if err != nil {
		return fmt.Errorf("seed: list employees: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	leaveTypes := []leave.LeaveType{
		{
			ID:                 "vacation",
			Name:               "Vacation",
			Description:        "Annual paid vacation",
			Paid:               true,
			RequiresApproval:   true,
			DefaultDaysPerYear: 20,
			MaxConsecutiveDays: 15,
			Active:             true,
		},
		{
			ID:                 "sick",
			Name:               "Sick Leave",
			Description:        "Paid sick leave, auto-approved",
			Paid:               true,
			RequiresApproval:   false,
			DefaultDaysPerYear: 10,
			Active:             true,
		},
		{
			ID:                 "unpaid",
			Name:               "Unpaid Leave",
			Description:        "Unpaid personal leave",
			Paid:               false,
			RequiresApproval:   true,
			DefaultDaysPerYear: 30,
			Active:             true,
		},
	}
	for _, lt := range leaveTypes {
		if err := store.SaveLeaveType(ctx, lt); err != nil {
			return fmt.Errorf("seed: save leave type %s: %w", lt.ID, err)
		}
	}

	managerID := leave.EmployeeID("emp-001")
	employees := []leave.Employee{
		{
			ID:         managerID,
			Name:       "Dana Whitfield",
			Email:      "dana@example.com",
			Department: "Engineering",
			HireDate:   mustDate("2019-03-11"),
			Active:     true,
		},
		{
			ID:         "emp-002",
			Name:       "Priya Raman",
			Email:      "priya@example.com",
			Department: "Engineering",
			HireDate:   mustDate("2022-06-01"),
			ManagerID:  &managerID,
			Active:     true,
		},
		{
			ID:         "emp-003",
			Name:       "Marcus Okafor",
			Email:      "marcus@example.com",
			Department: "Engineering",
			HireDate:   mustDate("2024-01-15"),
			ManagerID:  &managerID,
			Active:     true,
		},
	}
	for _, emp := range employees {
		if err := store.SaveEmployee(ctx, emp); err != nil {
			return fmt.Errorf("seed: save employee %s: %w", emp.ID, err)
		}
	}

	year := time.Now().UTC().Year()
	holidays := map[string]string{
		fmt.Sprintf("%d-01-01", year): "New Year's Day",
		fmt.Sprintf("%d-07-04", year): "Independence Day",
		fmt.Sprintf("%d-12-25", year): "Christmas Day",
	}
	for dateStr, name := range holidays {
		if err := store.SaveHoliday(ctx, mustDate(dateStr), name); err != nil {
			return fmt.Errorf("seed: save holiday %s: %w", name, err)
		}
	}

	return nil
}

func mustDate(s string) leave.Date {
	d, err := leave.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
