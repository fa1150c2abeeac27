package shipments

import "time"

// Status is the shipment state machine. pending may move to partially_received,
// received or cancelled; partially_received may move to received; received and
// cancelled are terminal.
type Status string

const (
	StatusPending           Status = "pending"
	StatusPartiallyReceived Status = "partially_received"
	StatusReceived          Status = "received"
	StatusCancelled         Status = "cancelled"
)

// Terminal reports whether the status admits no further receipts.
func (s Status) Terminal() bool {
	return s == StatusReceived || s == StatusCancelled
}

// Shipment is a stock transfer from the central warehouse to a branch. The warehouse
// side is decremented at creation; the destination side is incremented per receipt.
type Shipment struct {
	ID           int64      `json:"id"`
	SourceBranch int64      `json:"source_branch_id"`
	DestBranch   int64      `json:"dest_branch_id"`
	Status       Status     `json:"status"`
	CreatedBy    int64      `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Items        []Item     `json:"items,omitempty"`
}

// Item is one product line of a shipment. QtyReceived accumulates across partial
// receipts and never exceeds QtySent.
type Item struct {
	ID          int64 `json:"id"`
	ShipmentID  int64 `json:"shipment_id"`
	ProductID   int64 `json:"product_id"`
	QtySent     int64 `json:"qty_sent"`
	QtyReceived int64 `json:"qty_received"`
}

// FullyReceived reports whether every line has arrived in full.
func (s *Shipment) FullyReceived() bool {
	for _, item := range s.Items {
		if item.QtyReceived < item.QtySent {
			return false
		}
	}
	return len(s.Items) > 0
}
