package sales

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/optica-erp/optica-backend/internal/inventory"
	"github.com/optica-erp/optica-backend/internal/masterdata/branches"
	"github.com/optica-erp/optica-backend/internal/masterdata/products"
	"github.com/optica-erp/optica-backend/internal/shared"
)

// ProductCatalog supplies authoritative product records; prices are always read from
// here, never from client input.
type ProductCatalog interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]products.Product, error)
}

// CategoryGate reports which categories require a registered client on the sale.
type CategoryGate interface {
	RequiresClient(ctx context.Context, ids []int64) (map[int64]bool, error)
}

// BranchDirectory resolves branches and their discount limits.
type BranchDirectory interface {
	Get(ctx context.Context, id int64) (branches.Branch, error)
}

// LowStockNotifier is invoked after commit for every threshold crossing a sale
// caused. Implementations enqueue background alerts; failures are not fatal.
type LowStockNotifier interface {
	NotifyLowStock(ctx context.Context, event LowStockEvent)
}

// RepositoryPort abstracts sale persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Sale, error)
	List(ctx context.Context, req ListSalesRequest) ([]Sale, int, error)
	ClientExists(ctx context.Context, id int64) (bool, error)
	KPI(ctx context.Context, userID int64, month, year int) ([]KPIEntry, error)
}

// TxRepository exposes the transactional writes of a sale commit.
type TxRepository interface {
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	InsertItems(ctx context.Context, saleID int64, items []Item) error
	InsertPayments(ctx context.Context, saleID int64, payments []Payment) error
	UpdateStatus(ctx context.Context, saleID int64, status Status) error
	GetForUpdate(ctx context.Context, saleID int64) (*Sale, error)
	UpsertKPI(ctx context.Context, entry KPIEntry) error
	Inventory() inventory.TxRepository
	RecordAudit(ctx context.Context, entry shared.AuditEntry) error
}

// Service orchestrates sale creation and cancellation. Every operation is one
// atomic transaction: any failure leaves state exactly as before the call.
type Service struct {
	repo       RepositoryPort
	catalog    ProductCatalog
	categories CategoryGate
	branches   BranchDirectory
	mutator    *inventory.Mutator
	notifier   LowStockNotifier
	validate   *validator.Validate
}

// NewService builds Service. notifier may be nil.
func NewService(repo RepositoryPort, catalog ProductCatalog, categories CategoryGate, dir BranchDirectory, mutator *inventory.Mutator, notifier LowStockNotifier) *Service {
	return &Service{
		repo:       repo,
		catalog:    catalog,
		categories: categories,
		branches:   dir,
		mutator:    mutator,
		notifier:   notifier,
		validate:   validator.New(),
	}
}

var hundred = decimal.NewFromInt(100)

// CreateSale validates and commits a complete sale. Validation fails fast: the first
// violation wins. On success the returned sale is completed with all derived rows
// persisted; on any error nothing is committed.
func (s *Service) CreateSale(ctx context.Context, actor shared.Actor, req CreateSaleRequest) (*Sale, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.Validationf("%v", err)
	}
	if actor.UserID == 0 {
		return nil, shared.Validationf("acting user is required")
	}

	productIDs := make([]int64, 0, len(req.Items))
	seen := make(map[int64]bool, len(req.Items))
	for _, item := range req.Items {
		if seen[item.ProductID] {
			return nil, shared.Validationf("duplicate product %d in items", item.ProductID)
		}
		seen[item.ProductID] = true
		productIDs = append(productIDs, item.ProductID)
	}

	catalog, err := s.catalog.GetMany(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	for _, id := range productIDs {
		if _, ok := catalog[id]; !ok {
			return nil, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
		}
	}

	if err := s.checkClientRequirement(ctx, req, catalog); err != nil {
		return nil, err
	}

	branch, err := s.branches.Get(ctx, req.BranchID)
	if err != nil {
		return nil, fmt.Errorf("load branch: %w", err)
	}
	if req.DiscountPercent.IsNegative() {
		return nil, shared.Validationf("discount percent must not be negative")
	}
	if req.DiscountPercent.GreaterThan(branch.DiscountLimitPercent) {
		return nil, shared.Validationf("discount %s%% exceeds branch limit %s%%",
			req.DiscountPercent.String(), branch.DiscountLimitPercent.String())
	}

	items := make([]Item, 0, len(req.Items))
	subtotal := decimal.Zero
	for _, in := range req.Items {
		product := catalog[in.ProductID]
		lineTotal := product.SalePrice.Mul(decimal.NewFromInt(in.Qty))
		items = append(items, Item{
			ProductID: in.ProductID,
			Qty:       in.Qty,
			UnitPrice: product.SalePrice,
			LineTotal: lineTotal,
			Discount:  shared.Round2(lineTotal.Mul(req.DiscountPercent).Div(hundred)),
		})
		subtotal = subtotal.Add(lineTotal)
	}
	discountAmount := shared.Round2(subtotal.Mul(req.DiscountPercent).Div(hundred))
	total := shared.Round2(subtotal.Sub(discountAmount))

	// Stock availability is enforced later, inside the transaction against locked
	// rows; a request that fails both checks therefore reports the payment error.
	payments, err := reconcilePayments(req, total)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var saleID int64
	var crossings []LowStockEvent

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertSale(ctx, Sale{
			BranchID:        req.BranchID,
			ClientID:        req.ClientID,
			UserID:          actor.UserID,
			Total:           total,
			DiscountPercent: req.DiscountPercent,
			DiscountAmount:  discountAmount,
			Status:          StatusDraft,
			CreatedAt:       now,
		})
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		saleID = id

		if err := tx.InsertPayments(ctx, saleID, payments); err != nil {
			return fmt.Errorf("insert payments: %w", err)
		}
		if err := tx.InsertItems(ctx, saleID, items); err != nil {
			return fmt.Errorf("insert items: %w", err)
		}

		// Availability is checked against the same locked row the decrement writes;
		// a stale pre-transaction snapshot can never oversell.
		for _, item := range items {
			applied, err := s.mutator.ApplyDelta(ctx, tx.Inventory(), inventory.Delta{
				ProductID: item.ProductID,
				BranchID:  req.BranchID,
				Qty:       -item.Qty,
				Context:   inventory.ContextSale,
				ActorID:   actor.UserID,
				RefCode:   fmt.Sprintf("SALE-%d", saleID),
			})
			if err != nil {
				return err
			}
			if applied.LowStockCrossed {
				crossings = append(crossings, LowStockEvent{
					ProductID: item.ProductID,
					BranchID:  req.BranchID,
					NewQty:    applied.NewQty,
					MinStock:  applied.MinStock,
				})
			}
		}

		if err := tx.UpdateStatus(ctx, saleID, StatusCompleted); err != nil {
			return fmt.Errorf("complete sale: %w", err)
		}

		if err := tx.UpsertKPI(ctx, KPIEntry{
			UserID:   actor.UserID,
			BranchID: req.BranchID,
			Month:    int(now.Month()),
			Year:     now.Year(),
			Total:    total,
		}); err != nil {
			return fmt.Errorf("accrue kpi: %w", err)
		}

		if err := tx.RecordAudit(ctx, shared.AuditEntry{
			ActorID:  actor.UserID,
			BranchID: req.BranchID,
			Action:   shared.ActionSaleCreated,
			Entity:   "sale",
			EntityID: fmt.Sprintf("%d", saleID),
			Meta: map[string]any{
				"sale_id":    saleID,
				"branch_id":  req.BranchID,
				"total":      total.String(),
				"discount":   discountAmount.String(),
				"item_count": len(items),
			},
		}); err != nil {
			return err
		}
		if discountAmount.IsPositive() {
			if err := tx.RecordAudit(ctx, shared.AuditEntry{
				ActorID:  actor.UserID,
				BranchID: req.BranchID,
				Action:   shared.ActionDiscountApplied,
				Entity:   "sale",
				EntityID: fmt.Sprintf("%d", saleID),
				Meta: map[string]any{
					"sale_id":      saleID,
					"total_before": subtotal.String(),
					"total_after":  total.String(),
					"percent":      req.DiscountPercent.String(),
				},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		for _, event := range crossings {
			s.notifier.NotifyLowStock(ctx, event)
		}
	}
	return s.repo.Get(ctx, saleID)
}

// checkClientRequirement rejects sales of client-bound categories (prescription
// goods) without a registered client.
func (s *Service) checkClientRequirement(ctx context.Context, req CreateSaleRequest, catalog map[int64]products.Product) error {
	categoryIDs := make([]int64, 0, len(catalog))
	seen := make(map[int64]bool)
	for _, p := range catalog {
		if !seen[p.CategoryID] {
			seen[p.CategoryID] = true
			categoryIDs = append(categoryIDs, p.CategoryID)
		}
	}
	required, err := s.categories.RequiresClient(ctx, categoryIDs)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	needsClient := false
	for _, id := range categoryIDs {
		if required[id] {
			needsClient = true
			break
		}
	}
	if needsClient && req.ClientID == nil {
		return shared.Validationf("a client is required for prescription items")
	}
	if req.ClientID != nil {
		exists, err := s.repo.ClientExists(ctx, *req.ClientID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: client %d", shared.ErrNotFound, *req.ClientID)
		}
	}
	return nil
}

// reconcilePayments enforces the payment contract: exactly one of the legacy single
// method or the payments array; entries merged by method; the merged sum must equal
// the post-discount total within the 0.01 tolerance band.
func reconcilePayments(req CreateSaleRequest, total decimal.Decimal) ([]Payment, error) {
	hasLegacy := req.PaymentMethod != ""
	hasList := len(req.Payments) > 0
	switch {
	case hasLegacy && hasList:
		return nil, shared.Validationf("provide either payment_method or payments, not both")
	case !hasLegacy && !hasList:
		return nil, shared.Validationf("a payment method is required")
	case hasLegacy:
		return []Payment{{Method: req.PaymentMethod, Amount: total}}, nil
	}

	merged := make(map[string]decimal.Decimal)
	order := make([]string, 0, len(req.Payments))
	for _, p := range req.Payments {
		if !p.Amount.IsPositive() {
			return nil, shared.Validationf("payment amounts must be positive")
		}
		if _, ok := merged[p.Method]; !ok {
			order = append(order, p.Method)
		}
		merged[p.Method] = merged[p.Method].Add(p.Amount)
	}

	sum := decimal.Zero
	payments := make([]Payment, 0, len(merged))
	for _, method := range order {
		payments = append(payments, Payment{Method: method, Amount: merged[method]})
		sum = sum.Add(merged[method])
	}
	if !shared.WithinTolerance(sum, total) {
		return nil, &shared.PaymentMismatchError{Expected: shared.Round2(total), Paid: shared.Round2(sum)}
	}
	return payments, nil
}

// Cancel transitions a sale to cancelled under the role matrix. Cancelling a
// completed sale returns its items to branch stock.
func (s *Service) Cancel(ctx context.Context, actor shared.Actor, saleID int64) (*Sale, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status == StatusCancelled {
			return fmt.Errorf("%w: sale already cancelled", shared.ErrInvalidState)
		}
		if err := shared.CanCancelSale(actor, sale.UserID, sale.Status == StatusDraft).Err(); err != nil {
			return err
		}

		if sale.Status == StatusCompleted {
			for _, item := range sale.Items {
				if _, err := s.mutator.ApplyDelta(ctx, tx.Inventory(), inventory.Delta{
					ProductID: item.ProductID,
					BranchID:  sale.BranchID,
					Qty:       item.Qty,
					Context:   inventory.ContextAdjustment,
					ActorID:   actor.UserID,
					Reason:    "sale cancelled",
					RefCode:   fmt.Sprintf("SALE-%d", saleID),
				}); err != nil {
					return err
				}
			}
		}

		if err := tx.UpdateStatus(ctx, saleID, StatusCancelled); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditEntry{
			ActorID:  actor.UserID,
			BranchID: sale.BranchID,
			Action:   shared.ActionSaleCancelled,
			Entity:   "sale",
			EntityID: fmt.Sprintf("%d", saleID),
			Meta: map[string]any{
				"sale_id":    saleID,
				"old_status": string(sale.Status),
				"new_status": string(StatusCancelled),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, saleID)
}

// Get returns one sale with items and payments.
func (s *Service) Get(ctx context.Context, id int64) (*Sale, error) {
	return s.repo.Get(ctx, id)
}

// List returns sales matching the filter.
func (s *Service) List(ctx context.Context, req ListSalesRequest) ([]Sale, int, error) {
	return s.repo.List(ctx, req)
}

// KPI returns monthly accumulators for a user, most recent branch first.
func (s *Service) KPI(ctx context.Context, userID int64, month, year int) ([]KPIEntry, error) {
	entries, err := s.repo.KPI(ctx, userID, month, year)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].BranchID < entries[j].BranchID })
	return entries, nil
}
