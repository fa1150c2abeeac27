package jobs

import (
	"context"
	"log/slog"

	"github.com/optica-erp/optica-backend/internal/sales"
)

// LowStockNotifier bridges post-commit low-stock crossings onto the job queue.
// Alerts are best effort: an enqueue failure is logged, never surfaced to the sale.
type LowStockNotifier struct {
	client *Client
	logger *slog.Logger
}

// NewLowStockNotifier constructs LowStockNotifier.
func NewLowStockNotifier(client *Client, logger *slog.Logger) *LowStockNotifier {
	return &LowStockNotifier{client: client, logger: logger}
}

func (n *LowStockNotifier) NotifyLowStock(ctx context.Context, event sales.LowStockEvent) {
	if n == nil || n.client == nil {
		return
	}
	_, err := n.client.EnqueueLowStockAlert(ctx, LowStockAlertPayload{
		ProductID: event.ProductID,
		BranchID:  event.BranchID,
		NewQty:    event.NewQty,
		MinStock:  event.MinStock,
	})
	if err != nil && n.logger != nil {
		n.logger.Error("enqueue low stock alert", slog.Any("error", err))
	}
}
