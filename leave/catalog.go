package leave

import "context"

// =============================================================================
// POLICY CATALOG - Read-only view of leave-type definitions
// =============================================================================

// Catalog is the engine's read-only view of leave-type policy. Admin
// mutation (create, update, deactivate) happens outside the engine; the
// catalog only observes the result via the repository.
type Catalog struct {
	repo Repository
}

func NewCatalog(repo Repository) *Catalog {
	return &Catalog{repo: repo}
}

// Get returns the leave type, active or not. Balance computation needs
// deactivated types for historical requests; activity checks are separate.
func (c *Catalog) Get(ctx context.Context, id LeaveTypeID) (*LeaveType, error) {
	return c.repo.LeaveType(ctx, id)
}

// IsActive reports whether the leave type exists and is currently active.
func (c *Catalog) IsActive(ctx context.Context, id LeaveTypeID) (bool, error) {
	lt, err := c.repo.LeaveType(ctx, id)
	if err != nil {
		return false, err
	}
	return lt.Active, nil
}
