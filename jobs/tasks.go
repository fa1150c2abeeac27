package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeLowStockAlert fans out a low-stock threshold crossing to staff.
	TaskTypeLowStockAlert = "stock:low_alert"
	// TaskTypeReceiveOpsCleanup prunes old shipment receive idempotency markers.
	TaskTypeReceiveOpsCleanup = "shipments:receive_ops_cleanup"
)

// LowStockAlertPayload describes one threshold crossing.
type LowStockAlertPayload struct {
	ProductID int64 `json:"product_id"`
	BranchID  int64 `json:"branch_id"`
	NewQty    int64 `json:"new_qty"`
	MinStock  int64 `json:"min_stock"`
}

// NewLowStockAlertTask constructs an Asynq task.
func NewLowStockAlertTask(payload LowStockAlertPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLowStockAlert, data), nil
}

// NewLowStockAlertHandler processes TaskTypeLowStockAlert tasks. Delivery is a
// structured log entry today; messaging integrations hang off this handler.
func NewLowStockAlertHandler(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload LowStockAlertPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		logger.Warn("low stock alert",
			slog.Int64("product_id", payload.ProductID),
			slog.Int64("branch_id", payload.BranchID),
			slog.Int64("new_qty", payload.NewQty),
			slog.Int64("min_stock", payload.MinStock))
		return nil
	}
}

// receiveOpRetention bounds how long receive idempotency markers are kept. Replays
// older than this window are indistinguishable from new requests.
const receiveOpRetention = "90 days"

// NewReceiveOpsCleanupHandler prunes expired shipment receive markers.
func NewReceiveOpsCleanupHandler(pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tag, err := pool.Exec(ctx, `DELETE FROM shipment_receive_ops WHERE received_at < NOW() - INTERVAL '`+receiveOpRetention+`'`)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			logger.Info("receive ops cleanup", slog.Int64("deleted", tag.RowsAffected()))
		}
		return nil
	}
}

// NewReceiveOpsCleanupTask constructs the cron task.
func NewReceiveOpsCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeReceiveOpsCleanup, nil)
}
