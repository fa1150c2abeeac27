package shared

import "fmt"

// Role is the closed set of user roles known to the system.
type Role string

const (
	// RoleAdmin may perform every operation, including approvals.
	RoleAdmin Role = "admin"
	// RoleManager runs a branch: approvals and shipments.
	RoleManager Role = "manager"
	// RoleSales creates sales and may cancel only its own drafts.
	RoleSales Role = "sales"
	// RoleWarehouse operates the central warehouse: shipments and direct adjustments.
	RoleWarehouse Role = "warehouse"
)

// Valid reports whether the role belongs to the closed enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSales, RoleWarehouse:
		return true
	}
	return false
}

// Decision is the typed outcome of an authorization policy.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision        { return Decision{Allowed: true} }
func deny(r string) Decision { return Decision{Allowed: false, Reason: r} }

// Err converts a denial into ErrForbidden carrying the policy reason, nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == "" {
		return ErrForbidden
	}
	return fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
}

// CanApproveAdjustment gates the approve/reject transition of stock adjustments.
func CanApproveAdjustment(actor Actor) Decision {
	if actor.Role == RoleAdmin || actor.Role == RoleManager {
		return allow()
	}
	return deny("stock adjustments require admin or manager approval")
}

// CanDirectAdjust gates ad-hoc inventory corrections that bypass the approval workflow.
// Only warehouse staff and admins may do so, and only against the warehouse branch;
// branch stock moves through shipments, never hand edits.
func CanDirectAdjust(actor Actor, branchIsWarehouse bool) Decision {
	if !branchIsWarehouse {
		return deny("direct adjustments are restricted to the warehouse branch")
	}
	if actor.Role == RoleAdmin || actor.Role == RoleWarehouse {
		return allow()
	}
	return deny("direct adjustments require admin or warehouse role")
}

// CanCreateShipment gates warehouse-to-branch transfers.
func CanCreateShipment(actor Actor) Decision {
	switch actor.Role {
	case RoleAdmin, RoleManager, RoleWarehouse:
		return allow()
	}
	return deny("shipments require admin, manager or warehouse role")
}

// CanCancelSale gates the completed/draft -> cancelled transition. The sales role may
// cancel only its own draft sales; managers and admins may also cancel completed ones.
func CanCancelSale(actor Actor, saleUserID int64, saleIsDraft bool) Decision {
	switch actor.Role {
	case RoleAdmin, RoleManager:
		return allow()
	case RoleSales:
		if saleUserID == actor.UserID && saleIsDraft {
			return allow()
		}
		return deny("sales role may cancel only its own draft sales")
	}
	return deny("role may not cancel sales")
}
