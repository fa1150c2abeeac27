package branches

import (
	"time"

	"github.com/shopspring/decimal"
)

// Branch represents a retail location. Exactly one branch system-wide is the central
// warehouse; it originates shipments and is the only place direct stock adjustments
// are allowed.
type Branch struct {
	ID                   int64           `json:"id"`
	Code                 string          `json:"code"`
	Name                 string          `json:"name"`
	Address              string          `json:"address"`
	DiscountLimitPercent decimal.Decimal `json:"discount_limit_percent"`
	IsWarehouse          bool            `json:"is_warehouse"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}
