package categories

import (
	"context"
	"strings"

	"github.com/optica-erp/optica-backend/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	if id <= 0 {
		return Category{}, shared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// RequiresClient reports which of the given category ids demand a registered client.
func (s *Service) RequiresClient(ctx context.Context, ids []int64) (map[int64]bool, error) {
	if len(ids) == 0 {
		return map[int64]bool{}, nil
	}
	return s.repo.RequiresClient(ctx, ids)
}

func (s *Service) Create(ctx context.Context, category Category) (Category, error) {
	if strings.TrimSpace(category.Name) == "" {
		return Category{}, &shared.ValidationError{Field: "name", Reason: "category name is required"}
	}
	return s.repo.Create(ctx, category)
}
