package products

import (
	"context"

	"github.com/shopspring/decimal"

	mdshared "github.com/optica-erp/optica-backend/internal/masterdata/shared"
	"github.com/optica-erp/optica-backend/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// GetMany loads products by id, keyed by id. Missing ids are absent from the map.
func (s *Service) GetMany(ctx context.Context, ids []int64) (map[int64]Product, error) {
	if len(ids) == 0 {
		return map[int64]Product{}, nil
	}
	return s.repo.GetMany(ctx, ids)
}

// Create registers a product and provisions inventory rows for the given branches.
func (s *Service) Create(ctx context.Context, product Product, branchIDs []int64) (Product, error) {
	if err := s.validate(product); err != nil {
		return Product{}, err
	}
	return s.repo.Create(ctx, product, branchIDs)
}

// UpdatePricing changes sale/cost prices, appending the old values to price history.
func (s *Service) UpdatePricing(ctx context.Context, id int64, salePrice, costPrice decimal.Decimal, actorID int64) error {
	if salePrice.IsNegative() || costPrice.IsNegative() {
		return shared.Validationf("prices must not be negative")
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.UpdatePricing(ctx, id, PriceChange{
		ProductID:    id,
		OldSalePrice: current.SalePrice,
		NewSalePrice: salePrice,
		OldCostPrice: current.CostPrice,
		NewCostPrice: costPrice,
		ChangedBy:    actorID,
	})
}

func (s *Service) PriceHistory(ctx context.Context, id int64) ([]PriceChange, error) {
	if id <= 0 {
		return nil, shared.ErrNotFound
	}
	return s.repo.PriceHistory(ctx, id)
}
