package inventory

import (
	"errors"
	"time"
)

// MovementContext tags every quantity delta with its business cause so reporting can
// distinguish sale-driven shrinkage from administrative correction.
type MovementContext string

const (
	// ContextSale marks decrements caused by a completed sale.
	ContextSale MovementContext = "sale"
	// ContextShipmentSent marks warehouse decrements when a shipment leaves.
	ContextShipmentSent MovementContext = "shipment_sent"
	// ContextShipmentReceived marks branch increments on shipment receipt.
	ContextShipmentReceived MovementContext = "shipment_received"
	// ContextAdjustment marks approved stock adjustments.
	ContextAdjustment MovementContext = "adjustment"
	// ContextWarehouseAdjust marks direct ad-hoc warehouse corrections.
	ContextWarehouseAdjust MovementContext = "warehouse_adjust"
)

// LowStockEligible reports whether the context participates in low-stock detection.
// Only sale-driven consumption raises alerts; administrative moves do not.
func (c MovementContext) LowStockEligible() bool {
	return c == ContextSale
}

// Row is the current quantity of one (product, branch) pair. Quantity never goes
// negative; the Mutator is the only writer.
type Row struct {
	ProductID int64     `json:"product_id"`
	BranchID  int64     `json:"branch_id"`
	Quantity  int64     `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Movement is one entry of the append-only quantity delta log, the system of record
// for reconstructing stock history.
type Movement struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	BranchID  int64           `json:"branch_id"`
	Delta     int64           `json:"delta"`
	Context   MovementContext `json:"context"`
	ActorID   int64           `json:"actor_id"`
	Reason    string          `json:"reason,omitempty"`
	RefCode   string          `json:"ref_code,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Delta describes one quantity mutation request.
type Delta struct {
	ProductID int64
	BranchID  int64
	Qty       int64
	Context   MovementContext
	ActorID   int64
	Reason    string
	RefCode   string
}

// Applied reports the outcome of a mutation.
type Applied struct {
	PrevQty         int64
	NewQty          int64
	MinStock        int64
	LowStockCrossed bool
}

// MovementFilter filters the movement log.
type MovementFilter struct {
	ProductID int64
	BranchID  int64
	Context   MovementContext
	From      time.Time
	To        time.Time
	Limit     int
}

// ErrRowNotFound indicates no inventory row exists for the (product, branch) pair.
// Rows are provisioned at product creation, never implicitly.
var ErrRowNotFound = errors.New("inventory: row not found for product/branch")
