package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

// LowStockRow is a (product, branch) pair whose quantity sits below the product's
// minimum stock threshold.
type LowStockRow struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	BranchID    int64  `json:"branch_id"`
	Quantity    int64  `json:"quantity"`
	MinStock    int64  `json:"min_stock"`
}

// PaymentMethodTotal aggregates completed sale payments by method.
type PaymentMethodTotal struct {
	Method string          `json:"method"`
	Total  decimal.Decimal `json:"total"`
}

// Period bounds a reporting window. Zero values mean unbounded.
type Period struct {
	From time.Time
	To   time.Time
}

// Dashboard is the combined overview a branch manager sees.
type Dashboard struct {
	BranchID     int64                `json:"branch_id,omitempty"`
	SalesCount   int64                `json:"sales_count"`
	SalesTotal   decimal.Decimal      `json:"sales_total"`
	WriteoffLoss decimal.Decimal      `json:"writeoff_loss"`
	Payments     []PaymentMethodTotal `json:"payments"`
	LowStock     []LowStockRow        `json:"low_stock"`
}
