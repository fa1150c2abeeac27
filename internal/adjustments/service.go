package adjustments

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/optica-erp/optica-backend/internal/inventory"
	"github.com/optica-erp/optica-backend/internal/masterdata/branches"
	"github.com/optica-erp/optica-backend/internal/shared"
)

// TxRepository exposes the transactional operations of the approval workflow.
type TxRepository interface {
	Insert(ctx context.Context, adj Adjustment) (int64, error)
	// GetForUpdate locks the adjustment row so the pending check and the status
	// transition cannot race a concurrent approve/reject.
	GetForUpdate(ctx context.Context, id int64) (*Adjustment, error)
	SetApproval(ctx context.Context, id int64, status Status, approverID int64, at time.Time) error
	Inventory() inventory.TxRepository
	RecordAudit(ctx context.Context, entry shared.AuditEntry) error
}

// RepositoryPort abstracts persistence for the adjustment service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Adjustment, error)
	List(ctx context.Context, req ListAdjustmentsRequest) ([]Adjustment, error)
}

// BranchDirectory resolves branches for the warehouse gate.
type BranchDirectory interface {
	Get(ctx context.Context, id int64) (branches.Branch, error)
}

// ListAdjustmentsRequest filters the adjustment listing.
type ListAdjustmentsRequest struct {
	BranchID int64
	Status   Status
	Limit    int
	Offset   int
}

// Service drives the stock adjustment workflow: proposals are created pending and
// inventory moves only when an approver confirms them.
type Service struct {
	repo      RepositoryPort
	branches  BranchDirectory
	mutator   *inventory.Mutator
	approvals *shared.ApprovalRecorder
	validate  *validator.Validate
}

// NewService builds Service.
func NewService(repo RepositoryPort, dir BranchDirectory, mutator *inventory.Mutator, approvals *shared.ApprovalRecorder) *Service {
	return &Service{
		repo:      repo,
		branches:  dir,
		mutator:   mutator,
		approvals: approvals,
		validate:  validator.New(),
	}
}

// Create records a pending adjustment. No stock moves yet.
func (s *Service) Create(ctx context.Context, actor shared.Actor, req CreateAdjustmentRequest) (*Adjustment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if !req.Type.Valid() {
		return nil, shared.Validationf("unknown adjustment type %q", req.Type)
	}
	if req.Qty == 0 {
		return nil, shared.Validationf("quantity must be non-zero")
	}
	if _, err := s.branches.Get(ctx, req.BranchID); err != nil {
		return nil, err
	}

	adj := Adjustment{
		ProductID: req.ProductID,
		BranchID:  req.BranchID,
		Qty:       req.Qty,
		Type:      req.Type,
		Status:    StatusPending,
		Reason:    req.Reason,
		CreatedBy: actor.UserID,
		CreatedAt: time.Now().UTC(),
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.Insert(ctx, adj)
		if err != nil {
			return err
		}
		adj.ID = id
		return tx.RecordAudit(ctx, shared.AuditEntry{
			ActorID:  actor.UserID,
			BranchID: req.BranchID,
			Action:   shared.ActionAdjustmentCreated,
			Entity:   "adjustment",
			EntityID: fmt.Sprintf("%d", id),
			Meta: map[string]any{
				"adjustment_id": id,
				"product_id":    req.ProductID,
				"qty":           req.Qty,
				"type":          string(req.Type),
				"new_status":    string(StatusPending),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.approvals != nil {
		_ = s.approvals.Record(ctx, shared.ApprovalLog{
			Module:  "adjustments",
			RefID:   adj.ID,
			ActorID: actor.UserID,
			Action:  shared.ApprovalSubmit,
			Note:    req.Reason,
		})
	}
	return &adj, nil
}

// Approve applies a pending adjustment: the status transition and the stock delta
// commit atomically or not at all.
func (s *Service) Approve(ctx context.Context, actor shared.Actor, id int64) (*Adjustment, error) {
	if err := shared.CanApproveAdjustment(actor).Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		adj, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if adj.Status != StatusPending {
			return fmt.Errorf("%w: adjustment %d is %s", shared.ErrInvalidState, id, adj.Status)
		}

		if _, err := s.mutator.ApplyDelta(ctx, tx.Inventory(), inventory.Delta{
			ProductID: adj.ProductID,
			BranchID:  adj.BranchID,
			Qty:       adj.Qty,
			Context:   inventory.ContextAdjustment,
			ActorID:   actor.UserID,
			Reason:    adj.Reason,
			RefCode:   fmt.Sprintf("ADJ-%d", adj.ID),
		}); err != nil {
			return err
		}

		if err := tx.SetApproval(ctx, id, StatusApproved, actor.UserID, now); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditEntry{
			ActorID:  actor.UserID,
			BranchID: adj.BranchID,
			Action:   shared.ActionAdjustmentApproved,
			Entity:   "adjustment",
			EntityID: fmt.Sprintf("%d", id),
			Meta: map[string]any{
				"adjustment_id": id,
				"product_id":    adj.ProductID,
				"qty":           adj.Qty,
				"type":          string(adj.Type),
				"old_status":    string(StatusPending),
				"new_status":    string(StatusApproved),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.approvals != nil {
		_ = s.approvals.Record(ctx, shared.ApprovalLog{
			Module:  "adjustments",
			RefID:   id,
			ActorID: actor.UserID,
			Action:  shared.ApprovalApprove,
		})
	}
	return s.repo.Get(ctx, id)
}

// Reject closes a pending adjustment without touching inventory.
func (s *Service) Reject(ctx context.Context, actor shared.Actor, id int64, note string) (*Adjustment, error) {
	if err := shared.CanApproveAdjustment(actor).Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		adj, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if adj.Status != StatusPending {
			return fmt.Errorf("%w: adjustment %d is %s", shared.ErrInvalidState, id, adj.Status)
		}
		if err := tx.SetApproval(ctx, id, StatusRejected, actor.UserID, now); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditEntry{
			ActorID:  actor.UserID,
			BranchID: adj.BranchID,
			Action:   shared.ActionAdjustmentRejected,
			Entity:   "adjustment",
			EntityID: fmt.Sprintf("%d", id),
			Meta: map[string]any{
				"adjustment_id": id,
				"old_status":    string(StatusPending),
				"new_status":    string(StatusRejected),
				"note":          note,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.approvals != nil {
		_ = s.approvals.Record(ctx, shared.ApprovalLog{
			Module:  "adjustments",
			RefID:   id,
			ActorID: actor.UserID,
			Action:  shared.ApprovalReject,
			Note:    note,
		})
	}
	return s.repo.Get(ctx, id)
}

// DirectAdjust corrects warehouse stock immediately, bypassing the approval queue.
// It is refused for ordinary branches regardless of role.
func (s *Service) DirectAdjust(ctx context.Context, actor shared.Actor, branchID int64, req DirectAdjustRequest) (inventory.Applied, error) {
	if err := s.validate.Struct(req); err != nil {
		return inventory.Applied{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	branch, err := s.branches.Get(ctx, branchID)
	if err != nil {
		return inventory.Applied{}, err
	}
	if err := shared.CanDirectAdjust(actor, branch.IsWarehouse).Err(); err != nil {
		return inventory.Applied{}, err
	}

	var applied inventory.Applied
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		applied, err = s.mutator.ApplyDelta(ctx, tx.Inventory(), inventory.Delta{
			ProductID: req.ProductID,
			BranchID:  branchID,
			Qty:       req.Qty,
			Context:   inventory.ContextWarehouseAdjust,
			ActorID:   actor.UserID,
			Reason:    req.Reason,
		})
		return err
	})
	if err != nil {
		return inventory.Applied{}, err
	}
	return applied, nil
}

// Get loads one adjustment.
func (s *Service) Get(ctx context.Context, id int64) (*Adjustment, error) {
	return s.repo.Get(ctx, id)
}

// List returns adjustments matching the filter.
func (s *Service) List(ctx context.Context, req ListAdjustmentsRequest) ([]Adjustment, error) {
	if req.Status != "" && req.Status != StatusPending && req.Status != StatusApproved && req.Status != StatusRejected {
		return nil, shared.Validationf("unknown status %q", req.Status)
	}
	return s.repo.List(ctx, req)
}
