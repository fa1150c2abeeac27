package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the product lifecycle status derived from aggregate inventory.
type Status string

const (
	// StatusInStock means the product has positive quantity somewhere.
	StatusInStock Status = "in_stock"
	// StatusSold means aggregate quantity across branches is zero or below.
	StatusSold Status = "sold"
	// StatusDefective marks products written off as defective.
	StatusDefective Status = "defective"
	// StatusTransferred marks products moved out of circulation.
	StatusTransferred Status = "transferred"
)

// Product represents an item sold by the optics store.
type Product struct {
	ID         int64           `json:"id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	CategoryID int64           `json:"category_id"`
	Unit       string          `json:"unit"`
	SalePrice  decimal.Decimal `json:"sale_price"`
	CostPrice  decimal.Decimal `json:"cost_price"`
	MinStock   int64           `json:"min_stock"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// PriceChange is one entry of the append-only price history.
type PriceChange struct {
	ID           int64           `json:"id"`
	ProductID    int64           `json:"product_id"`
	OldSalePrice decimal.Decimal `json:"old_sale_price"`
	NewSalePrice decimal.Decimal `json:"new_sale_price"`
	OldCostPrice decimal.Decimal `json:"old_cost_price"`
	NewCostPrice decimal.Decimal `json:"new_cost_price"`
	ChangedBy    int64           `json:"changed_by"`
	ChangedAt    time.Time       `json:"changed_at"`
}
