package shipments

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optica-erp/optica-backend/internal/inventory"
	"github.com/optica-erp/optica-backend/internal/platform/db"
	"github.com/optica-erp/optica-backend/internal/shared"
)

// Repository persists shipments in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const shipmentColumns = `id, source_branch_id, dest_branch_id, status, created_by, created_at, completed_at`

func scanShipment(row pgx.Row) (*Shipment, error) {
	var sh Shipment
	err := row.Scan(&sh.ID, &sh.SourceBranch, &sh.DestBranch, &sh.Status, &sh.CreatedBy, &sh.CreatedAt, &sh.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, db querier, shipmentID int64) ([]Item, error) {
	rows, err := db.Query(ctx, `SELECT id, shipment_id, product_id, qty_sent, qty_received FROM shipment_items WHERE shipment_id = $1 ORDER BY id`, shipmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.ShipmentID, &item.ProductID, &item.QtySent, &item.QtyReceived); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Get loads one shipment with items.
func (r *Repository) Get(ctx context.Context, id int64) (*Shipment, error) {
	sh, err := scanShipment(r.pool.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	sh.Items, err = loadItems(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	return sh, nil
}

// List returns shipment headers matching the filter, newest first.
func (r *Repository) List(ctx context.Context, req ListShipmentsRequest) ([]Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE 1=1`
	args := []any{}
	argCount := 0

	if req.DestBranchID > 0 {
		argCount++
		query += ` AND dest_branch_id = $` + strconv.Itoa(argCount)
		args = append(args, req.DestBranchID)
	}
	if req.Status != "" {
		argCount++
		query += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, string(req.Status))
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	argCount++
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *sh)
	}
	return list, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertShipment(ctx context.Context, sh Shipment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO shipments (source_branch_id, dest_branch_id, status, created_by, created_at)
VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		sh.SourceBranch, sh.DestBranch, string(sh.Status), sh.CreatedBy, sh.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepository) InsertItems(ctx context.Context, shipmentID int64, items []Item) error {
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO shipment_items (shipment_id, product_id, qty_sent, qty_received) VALUES ($1,$2,$3,$4)`,
			shipmentID, item.ProductID, item.QtySent, item.QtyReceived); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (*Shipment, error) {
	sh, err := scanShipment(r.tx.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	sh.Items, err = loadItems(ctx, r.tx, id)
	if err != nil {
		return nil, err
	}
	return sh, nil
}

func (r *txRepository) UpdateItemReceived(ctx context.Context, itemID, qtyReceived int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE shipment_items SET qty_received = $1 WHERE id = $2`, qtyReceived, itemID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) SetStatus(ctx context.Context, id int64, status Status, completedAt *time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE shipments SET status = $1, completed_at = $2 WHERE id = $3`, string(status), completedAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) ReceiveOpExists(ctx context.Context, shipmentID int64, requestID string) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM shipment_receive_ops WHERE shipment_id = $1 AND request_id = $2)`,
		shipmentID, requestID).Scan(&exists)
	return exists, err
}

func (r *txRepository) InsertReceiveOp(ctx context.Context, shipmentID int64, requestID string, actorID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO shipment_receive_ops (shipment_id, request_id, actor_id, received_at) VALUES ($1,$2,$3,NOW())`,
		shipmentID, requestID, actorID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return errDuplicateReceive
	}
	return err
}

func (r *txRepository) Inventory() inventory.TxRepository {
	return inventory.NewTxRepository(r.tx)
}

func (r *txRepository) RecordAudit(ctx context.Context, entry shared.AuditEntry) error {
	return shared.RecordAuditTx(ctx, r.tx, entry)
}
