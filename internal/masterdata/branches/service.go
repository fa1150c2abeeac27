package branches

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/optica-erp/optica-backend/internal/shared"
)

const (
	warehouseCacheKey = "branches:warehouse_id"
	warehouseCacheTTL = 5 * time.Minute
)

type Service struct {
	repo  Repository
	cache *redis.Client
}

// NewService builds Service. The cache client is optional; when present the resolved
// warehouse branch id is cached to keep shipment and adjustment hot paths off the
// branches table.
func NewService(repo Repository, cache *redis.Client) *Service {
	return &Service{repo: repo, cache: cache}
}

func (s *Service) List(ctx context.Context) ([]Branch, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Branch, error) {
	if id <= 0 {
		return Branch{}, shared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Warehouse resolves the central warehouse branch. The id is cached briefly; the full
// row is always read from the store so discount limits stay fresh.
func (s *Service) Warehouse(ctx context.Context) (Branch, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, warehouseCacheKey).Result(); err == nil {
			if id, err := strconv.ParseInt(cached, 10, 64); err == nil {
				if b, err := s.repo.Get(ctx, id); err == nil && b.IsWarehouse {
					return b, nil
				}
			}
		}
	}
	warehouse, err := s.repo.Warehouse(ctx)
	if err != nil {
		return Branch{}, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, warehouseCacheKey, strconv.FormatInt(warehouse.ID, 10), warehouseCacheTTL).Err()
	}
	return warehouse, nil
}

// VerifyWarehouseInvariant is called at startup; the server must not serve unless
// exactly one warehouse branch exists.
func (s *Service) VerifyWarehouseInvariant(ctx context.Context) error {
	_, err := s.repo.Warehouse(ctx)
	return err
}

func (s *Service) Create(ctx context.Context, branch Branch) (Branch, error) {
	if err := s.validate(branch); err != nil {
		return Branch{}, err
	}
	return s.repo.Create(ctx, branch)
}

func (s *Service) Update(ctx context.Context, id int64, branch Branch) error {
	if id <= 0 {
		return shared.ErrNotFound
	}
	if err := s.validate(branch); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, branch)
}

func (s *Service) validate(b Branch) error {
	if strings.TrimSpace(b.Code) == "" {
		return &shared.ValidationError{Field: "code", Reason: "branch code is required"}
	}
	if strings.TrimSpace(b.Name) == "" {
		return &shared.ValidationError{Field: "name", Reason: "branch name is required"}
	}
	if b.DiscountLimitPercent.IsNegative() {
		return &shared.ValidationError{Field: "discount_limit_percent", Reason: "discount limit must not be negative"}
	}
	return nil
}
