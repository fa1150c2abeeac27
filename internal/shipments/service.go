package shipments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/optica-erp/optica-backend/internal/inventory"
	"github.com/optica-erp/optica-backend/internal/masterdata/branches"
	"github.com/optica-erp/optica-backend/internal/shared"
)

// errDuplicateReceive is returned by InsertReceiveOp when another request with the
// same (shipment, request id) pair committed first.
var errDuplicateReceive = errors.New("shipments: duplicate receive operation")

// TxRepository exposes the transactional operations of the transfer workflow.
type TxRepository interface {
	InsertShipment(ctx context.Context, sh Shipment) (int64, error)
	InsertItems(ctx context.Context, shipmentID int64, items []Item) error
	// GetForUpdate locks the shipment header so concurrent receipts serialize.
	GetForUpdate(ctx context.Context, id int64) (*Shipment, error)
	UpdateItemReceived(ctx context.Context, itemID, qtyReceived int64) error
	SetStatus(ctx context.Context, id int64, status Status, completedAt *time.Time) error
	ReceiveOpExists(ctx context.Context, shipmentID int64, requestID string) (bool, error)
	// InsertReceiveOp records the idempotency marker; errDuplicateReceive on replay.
	InsertReceiveOp(ctx context.Context, shipmentID int64, requestID string, actorID int64) error
	Inventory() inventory.TxRepository
	RecordAudit(ctx context.Context, entry shared.AuditEntry) error
}

// RepositoryPort abstracts persistence for the shipment service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Shipment, error)
	List(ctx context.Context, req ListShipmentsRequest) ([]Shipment, error)
}

// WarehouseDirectory resolves the central warehouse branch.
type WarehouseDirectory interface {
	Get(ctx context.Context, id int64) (branches.Branch, error)
	Warehouse(ctx context.Context) (branches.Branch, error)
}

// Service drives warehouse-to-branch transfers. Stock leaves the warehouse when the
// shipment is created and arrives at the destination only on confirmed receipts, so
// in-transit goods are sellable nowhere.
type Service struct {
	repo     RepositoryPort
	branches WarehouseDirectory
	mutator  *inventory.Mutator
	validate *validator.Validate
}

// NewService builds Service.
func NewService(repo RepositoryPort, dir WarehouseDirectory, mutator *inventory.Mutator) *Service {
	return &Service{
		repo:     repo,
		branches: dir,
		mutator:  mutator,
		validate: validator.New(),
	}
}

// Create opens a shipment and decrements warehouse stock for every line. The source
// is always the warehouse branch, resolved here rather than trusted from the client.
func (s *Service) Create(ctx context.Context, actor shared.Actor, req CreateShipmentRequest) (*Shipment, error) {
	if err := shared.CanCreateShipment(actor).Err(); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	seen := make(map[int64]bool, len(req.Items))
	for _, line := range req.Items {
		if seen[line.ProductID] {
			return nil, shared.Validationf("duplicate product %d in shipment", line.ProductID)
		}
		seen[line.ProductID] = true
	}

	warehouse, err := s.branches.Warehouse(ctx)
	if err != nil {
		return nil, err
	}
	if req.DestBranchID == warehouse.ID {
		return nil, shared.Validationf("destination must not be the warehouse branch")
	}
	if _, err := s.branches.Get(ctx, req.DestBranchID); err != nil {
		return nil, err
	}

	sh := Shipment{
		SourceBranch: warehouse.ID,
		DestBranch:   req.DestBranchID,
		Status:       StatusPending,
		CreatedBy:    actor.UserID,
		CreatedAt:    time.Now().UTC(),
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertShipment(ctx, sh)
		if err != nil {
			return err
		}
		sh.ID = id

		items := make([]Item, 0, len(req.Items))
		for _, line := range req.Items {
			items = append(items, Item{ShipmentID: id, ProductID: line.ProductID, QtySent: line.Qty})
		}
		if err := tx.InsertItems(ctx, id, items); err != nil {
			return err
		}

		for _, line := range req.Items {
			if _, err := s.mutator.ApplyDelta(ctx, tx.Inventory(), inventory.Delta{
				ProductID: line.ProductID,
				BranchID:  warehouse.ID,
				Qty:       -line.Qty,
				Context:   inventory.ContextShipmentSent,
				ActorID:   actor.UserID,
				RefCode:   fmt.Sprintf("SHIP-%d", id),
			}); err != nil {
				return err
			}
		}

		return tx.RecordAudit(ctx, shared.AuditEntry{
			ActorID:  actor.UserID,
			BranchID: warehouse.ID,
			Action:   shared.ActionShipmentCreated,
			Entity:   "shipment",
			EntityID: fmt.Sprintf("%d", id),
			Meta: map[string]any{
				"shipment_id":    id,
				"dest_branch_id": req.DestBranchID,
				"lines":          len(req.Items),
				"new_status":     string(StatusPending),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, sh.ID)
}

// Receive confirms arrival of shipment lines at the destination branch. The operation
// is idempotent on (shipment, request id): a replay returns the stored state without
// moving stock again.
func (s *Service) Receive(ctx context.Context, actor shared.Actor, shipmentID int64, req ReceiveShipmentRequest) (*Shipment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	// Canonical form, so a replay differing only in case still matches the marker.
	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		return nil, shared.Validationf("request_id must be a UUID")
	}
	req.RequestID = requestID.String()

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sh, err := tx.GetForUpdate(ctx, shipmentID)
		if err != nil {
			return err
		}

		// Replay of an already committed receive: leave everything untouched and
		// fall through to return the stored state.
		done, err := tx.ReceiveOpExists(ctx, shipmentID, req.RequestID)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if sh.Status.Terminal() {
			return fmt.Errorf("%w: shipment %d is %s", shared.ErrInvalidState, shipmentID, sh.Status)
		}

		byProduct := make(map[int64]*Item, len(sh.Items))
		for i := range sh.Items {
			byProduct[sh.Items[i].ProductID] = &sh.Items[i]
		}

		for _, line := range req.Items {
			item, ok := byProduct[line.ProductID]
			if !ok {
				return shared.Validationf("product %d is not part of shipment %d", line.ProductID, shipmentID)
			}
			remaining := item.QtySent - item.QtyReceived
			if line.Qty > remaining {
				return shared.Validationf("product %d: receiving %d exceeds outstanding %d", line.ProductID, line.Qty, remaining)
			}

			if _, err := s.mutator.ApplyDelta(ctx, tx.Inventory(), inventory.Delta{
				ProductID: line.ProductID,
				BranchID:  sh.DestBranch,
				Qty:       line.Qty,
				Context:   inventory.ContextShipmentReceived,
				ActorID:   actor.UserID,
				RefCode:   fmt.Sprintf("SHIP-%d", shipmentID),
			}); err != nil {
				return err
			}

			item.QtyReceived += line.Qty
			if err := tx.UpdateItemReceived(ctx, item.ID, item.QtyReceived); err != nil {
				return err
			}
		}

		status := StatusPartiallyReceived
		var completedAt *time.Time
		if sh.FullyReceived() {
			status = StatusReceived
			now := time.Now().UTC()
			completedAt = &now
		}
		if err := tx.SetStatus(ctx, shipmentID, status, completedAt); err != nil {
			return err
		}

		// Marker last: a concurrent duplicate hits the unique index here and the
		// whole transaction, stock deltas included, rolls back.
		if err := tx.InsertReceiveOp(ctx, shipmentID, req.RequestID, actor.UserID); err != nil {
			return err
		}

		return tx.RecordAudit(ctx, shared.AuditEntry{
			ActorID:  actor.UserID,
			BranchID: sh.DestBranch,
			Action:   shared.ActionShipmentReceived,
			Entity:   "shipment",
			EntityID: fmt.Sprintf("%d", shipmentID),
			Meta: map[string]any{
				"shipment_id": shipmentID,
				"request_id":  req.RequestID,
				"lines":       len(req.Items),
				"old_status":  string(sh.Status),
				"new_status":  string(status),
			},
		})
	})
	if err != nil {
		if errors.Is(err, errDuplicateReceive) {
			return s.repo.Get(ctx, shipmentID)
		}
		return nil, err
	}
	return s.repo.Get(ctx, shipmentID)
}

// Cancel aborts a pending shipment and returns its stock to the warehouse. Shipments
// with any confirmed receipt cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, actor shared.Actor, shipmentID int64) (*Shipment, error) {
	if err := shared.CanCreateShipment(actor).Err(); err != nil {
		return nil, err
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sh, err := tx.GetForUpdate(ctx, shipmentID)
		if err != nil {
			return err
		}
		if sh.Status != StatusPending {
			return fmt.Errorf("%w: shipment %d is %s", shared.ErrInvalidState, shipmentID, sh.Status)
		}

		for _, item := range sh.Items {
			if _, err := s.mutator.ApplyDelta(ctx, tx.Inventory(), inventory.Delta{
				ProductID: item.ProductID,
				BranchID:  sh.SourceBranch,
				Qty:       item.QtySent,
				Context:   inventory.ContextAdjustment,
				ActorID:   actor.UserID,
				Reason:    "shipment cancelled",
				RefCode:   fmt.Sprintf("SHIP-%d", shipmentID),
			}); err != nil {
				return err
			}
		}

		if err := tx.SetStatus(ctx, shipmentID, StatusCancelled, nil); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditEntry{
			ActorID:  actor.UserID,
			BranchID: sh.SourceBranch,
			Action:   shared.ActionShipmentCancelled,
			Entity:   "shipment",
			EntityID: fmt.Sprintf("%d", shipmentID),
			Meta: map[string]any{
				"shipment_id": shipmentID,
				"old_status":  string(StatusPending),
				"new_status":  string(StatusCancelled),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, shipmentID)
}

// Get loads one shipment with items.
func (s *Service) Get(ctx context.Context, id int64) (*Shipment, error) {
	return s.repo.Get(ctx, id)
}

// List returns shipments matching the filter.
func (s *Service) List(ctx context.Context, req ListShipmentsRequest) ([]Shipment, error) {
	return s.repo.List(ctx, req)
}
