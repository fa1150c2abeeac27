package categories

import "time"

// Category groups products. RequiresClient marks categories whose sale must be tied
// to a registered client (prescription lenses, contact lenses, prescription glasses,
// medical devices).
type Category struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	RequiresClient bool      `json:"requires_client"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
