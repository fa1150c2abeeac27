package products

import "github.com/shopspring/decimal"

type CreateProductRequest struct {
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	CategoryID int64           `json:"category_id"`
	Unit       string          `json:"unit"`
	SalePrice  decimal.Decimal `json:"sale_price"`
	CostPrice  decimal.Decimal `json:"cost_price"`
	MinStock   int64           `json:"min_stock"`
	BranchIDs  []int64         `json:"branch_ids"`
}

type UpdatePricingRequest struct {
	SalePrice decimal.Decimal `json:"sale_price"`
	CostPrice decimal.Decimal `json:"cost_price"`
}
