package products

import (
	"strings"

	"github.com/optica-erp/optica-backend/internal/shared"
)

func (s *Service) validate(p Product) error {
	if strings.TrimSpace(p.Code) == "" {
		return &shared.ValidationError{Field: "code", Reason: "product code is required"}
	}
	if strings.TrimSpace(p.Name) == "" {
		return &shared.ValidationError{Field: "name", Reason: "product name is required"}
	}
	if p.CategoryID <= 0 {
		return &shared.ValidationError{Field: "category_id", Reason: "category is required"}
	}
	if p.SalePrice.IsNegative() || p.CostPrice.IsNegative() {
		return &shared.ValidationError{Field: "sale_price", Reason: "prices must not be negative"}
	}
	if p.MinStock < 0 {
		return &shared.ValidationError{Field: "min_stock", Reason: "minimum stock must not be negative"}
	}
	return nil
}
