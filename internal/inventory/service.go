package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/optica-erp/optica-backend/internal/masterdata/products"
	"github.com/optica-erp/optica-backend/internal/shared"
)

// TxRepository exposes the transactional operations the Mutator needs. It always runs
// inside the caller's transaction so the availability check and the write see the
// same locked row image.
type TxRepository interface {
	GetRowForUpdate(ctx context.Context, productID, branchID int64) (Row, error)
	UpdateQuantity(ctx context.Context, productID, branchID, quantity int64) error
	InsertMovement(ctx context.Context, m Movement) (int64, error)
	// ProductStockInfo returns the min-stock threshold and the aggregate quantity
	// across all branches, as visible to the current transaction.
	ProductStockInfo(ctx context.Context, productID int64) (minStock, total int64, err error)
	SetProductStatus(ctx context.Context, productID int64, status products.Status) error
	RecordAudit(ctx context.Context, entry shared.AuditEntry) error
}

// RepositoryPort abstracts repository usage for standalone mutations and reads.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	StockLevels(ctx context.Context, branchID int64) ([]Row, error)
	Movements(ctx context.Context, filter MovementFilter) ([]Movement, error)
}

// Mutator is the single choke point for changing a (product, branch) quantity.
// Every write emits a movement record, maintains the product lifecycle status and
// performs low-stock detection.
type Mutator struct{}

// NewMutator builds a Mutator.
func NewMutator() *Mutator {
	return &Mutator{}
}

// ApplyDelta mutates one (product, branch) quantity inside the caller's transaction.
//
// The row must already exist; newQty must not go negative; a movement row is always
// appended; product status is recomputed from the aggregate quantity; a LOW_STOCK
// audit entry is emitted exactly once per downward threshold crossing for
// sale-driven consumption.
func (m *Mutator) ApplyDelta(ctx context.Context, tx TxRepository, d Delta) (Applied, error) {
	if d.Qty == 0 {
		return Applied{}, shared.Validationf("quantity delta must be non-zero")
	}
	if d.ProductID <= 0 || d.BranchID <= 0 {
		return Applied{}, shared.Validationf("product and branch are required")
	}
	if d.ActorID == 0 {
		return Applied{}, shared.Validationf("acting user is required")
	}

	row, err := tx.GetRowForUpdate(ctx, d.ProductID, d.BranchID)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return Applied{}, fmt.Errorf("%w: product %d branch %d", shared.ErrNotFound, d.ProductID, d.BranchID)
		}
		return Applied{}, err
	}

	newQty := row.Quantity + d.Qty
	if newQty < 0 {
		return Applied{}, &shared.InsufficientStockError{
			ProductID: d.ProductID,
			BranchID:  d.BranchID,
			Requested: -d.Qty,
			Available: row.Quantity,
		}
	}

	if err := tx.UpdateQuantity(ctx, d.ProductID, d.BranchID, newQty); err != nil {
		return Applied{}, err
	}

	if _, err := tx.InsertMovement(ctx, Movement{
		ProductID: d.ProductID,
		BranchID:  d.BranchID,
		Delta:     d.Qty,
		Context:   d.Context,
		ActorID:   d.ActorID,
		Reason:    d.Reason,
		RefCode:   d.RefCode,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return Applied{}, err
	}

	minStock, total, err := tx.ProductStockInfo(ctx, d.ProductID)
	if err != nil {
		return Applied{}, err
	}

	status := products.StatusInStock
	if total <= 0 {
		status = products.StatusSold
	}
	if err := tx.SetProductStatus(ctx, d.ProductID, status); err != nil {
		return Applied{}, err
	}

	applied := Applied{PrevQty: row.Quantity, NewQty: newQty, MinStock: minStock}

	// One alert per crossing, not one per unit sold below the threshold.
	if d.Context.LowStockEligible() && row.Quantity >= minStock && newQty < minStock {
		applied.LowStockCrossed = true
		if err := tx.RecordAudit(ctx, shared.AuditEntry{
			ActorID:  d.ActorID,
			BranchID: d.BranchID,
			Action:   shared.ActionLowStock,
			Entity:   "product",
			EntityID: fmt.Sprintf("%d", d.ProductID),
			Meta: map[string]any{
				"product_id": d.ProductID,
				"branch_id":  d.BranchID,
				"prev_qty":   row.Quantity,
				"new_qty":    newQty,
				"min_stock":  minStock,
				"context":    string(d.Context),
			},
		}); err != nil {
			return Applied{}, err
		}
	}

	return applied, nil
}

// Service answers read queries over inventory rows and the movement log.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// StockLevels lists current quantities at a branch.
func (s *Service) StockLevels(ctx context.Context, branchID int64) ([]Row, error) {
	if branchID <= 0 {
		return nil, shared.Validationf("branch is required")
	}
	return s.repo.StockLevels(ctx, branchID)
}

// Movements lists the movement log.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return s.repo.Movements(ctx, filter)
}
