package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateSaleRequest carries caller input for a new sale. Note there is no price
// field on items: pricing always comes from the product record server-side.
type CreateSaleRequest struct {
	BranchID        int64           `json:"branch_id" validate:"required,gt=0"`
	ClientID        *int64          `json:"client_id,omitempty" validate:"omitempty,gt=0"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Items           []SaleItemInput `json:"items" validate:"required,min=1,dive"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	Payments        []PaymentInput  `json:"payments,omitempty" validate:"omitempty,dive"`
}

type SaleItemInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Qty       int64 `json:"qty" validate:"required,gt=0"`
}

type PaymentInput struct {
	Method string          `json:"method" validate:"required,max=32"`
	Amount decimal.Decimal `json:"amount"`
}

// ListSalesRequest filters the sales listing.
type ListSalesRequest struct {
	BranchID int64      `json:"branch_id"`
	Status   Status     `json:"status"`
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`
	Limit    int        `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int        `json:"offset" validate:"gte=0"`
}
