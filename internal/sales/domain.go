package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates the sale lifecycle. A sale is created as draft and flipped to
// completed in the same transaction once every check has passed; completed sales are
// immutable apart from an authorized transition to cancelled.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Sale is the header row of a retail sale.
type Sale struct {
	ID              int64           `json:"id"`
	BranchID        int64           `json:"branch_id"`
	ClientID        *int64          `json:"client_id,omitempty"`
	UserID          int64           `json:"user_id"`
	Total           decimal.Decimal `json:"total"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []Item          `json:"items,omitempty"`
	Payments        []Payment       `json:"payments,omitempty"`
}

// Item is one sale line. UnitPrice is a snapshot of the authoritative product price
// at sale time; client-submitted prices are never stored. Discount is this line's
// share of the sale discount; LineTotal is the gross amount before it.
type Item struct {
	ID        int64           `json:"id"`
	SaleID    int64           `json:"sale_id"`
	ProductID int64           `json:"product_id"`
	Qty       int64           `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	Discount  decimal.Decimal `json:"discount"`
}

// Payment is one tender of a possibly mixed-payment sale.
type Payment struct {
	ID     int64           `json:"id"`
	SaleID int64           `json:"sale_id"`
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// KPIEntry is the per-user-per-branch monthly accumulator of completed sale value,
// used for commission payout.
type KPIEntry struct {
	UserID   int64           `json:"user_id"`
	BranchID int64           `json:"branch_id"`
	Month    int             `json:"month"`
	Year     int             `json:"year"`
	Total    decimal.Decimal `json:"total"`
}

// LowStockEvent describes a threshold crossing observed while committing a sale.
type LowStockEvent struct {
	ProductID int64
	BranchID  int64
	NewQty    int64
	MinStock  int64
}
