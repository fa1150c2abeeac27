package adjustments

import "time"

// Type classifies why stock is being corrected.
type Type string

const (
	TypeWriteoff   Type = "writeoff"
	TypeDefective  Type = "defective"
	TypeTransfer   Type = "transfer"
	TypeAdjustment Type = "adjustment"
)

// Valid reports whether the type belongs to the closed set.
func (t Type) Valid() bool {
	switch t {
	case TypeWriteoff, TypeDefective, TypeTransfer, TypeAdjustment:
		return true
	}
	return false
}

// Status is the adjustment state machine: pending -> approved | rejected, terminal
// either way. Inventory is touched only on the approved transition.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Adjustment is a proposed signed stock correction awaiting approval.
type Adjustment struct {
	ID         int64      `json:"id"`
	ProductID  int64      `json:"product_id"`
	BranchID   int64      `json:"branch_id"`
	Qty        int64      `json:"qty"`
	Type       Type       `json:"type"`
	Status     Status     `json:"status"`
	Reason     string     `json:"reason,omitempty"`
	CreatedBy  int64      `json:"created_by"`
	ApprovedBy *int64     `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
