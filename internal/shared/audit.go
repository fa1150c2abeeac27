package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Audit action types written by the core. Meta payload schema per action:
//
//	ActionSaleCreated:         sale_id, branch_id, total, discount, item_count
//	ActionSaleCancelled:       sale_id, old_status, new_status
//	ActionDiscountApplied:     sale_id, total_before, total_after, percent
//	ActionLowStock:            product_id, branch_id, prev_qty, new_qty, min_stock, context
//	ActionAdjustmentCreated:   adjustment_id, product_id, qty, type, new_status
//	ActionAdjustmentApproved:  adjustment_id, product_id, qty, type, old_status, new_status
//	ActionAdjustmentRejected:  adjustment_id, old_status, new_status, note
//	ActionShipmentCreated:     shipment_id, dest_branch_id, lines, new_status
//	ActionShipmentReceived:    shipment_id, request_id, lines, old_status, new_status
//	ActionShipmentCancelled:   shipment_id, old_status, new_status
const (
	ActionSaleCreated        = "SALE_CREATED"
	ActionSaleCancelled      = "SALE_CANCELLED"
	ActionDiscountApplied    = "DISCOUNT_APPLIED"
	ActionLowStock           = "LOW_STOCK"
	ActionAdjustmentCreated  = "ADJUSTMENT_CREATED"
	ActionAdjustmentApproved = "ADJUSTMENT_APPROVED"
	ActionAdjustmentRejected = "ADJUSTMENT_REJECTED"
	ActionShipmentCreated    = "SHIPMENT_CREATED"
	ActionShipmentReceived   = "SHIPMENT_RECEIVED"
	ActionShipmentCancelled  = "SHIPMENT_CANCELLED"
)

// AuditEntry represents a record stored in audit_log. The table is append only.
type AuditEntry struct {
	ActorID  int64
	BranchID int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

type auditExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// RecordAuditTx persists the entry within an open transaction so the audit row commits
// or rolls back together with the operation that produced it.
func RecordAuditTx(ctx context.Context, tx pgx.Tx, entry AuditEntry) error {
	return recordAudit(ctx, tx, entry)
}

func recordAudit(ctx context.Context, db auditExecer, entry AuditEntry) error {
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return errors.New("audit entry requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	var branch any
	if entry.BranchID != 0 {
		branch = entry.BranchID
	}
	var at any
	if !entry.At.IsZero() {
		at = entry.At
	}
	_, err = db.Exec(ctx, `INSERT INTO audit_log (actor_id, branch_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))`,
		entry.ActorID, branch, entry.Action, entry.Entity, entry.EntityID, metaJSON, at)
	return err
}
