package adjustments

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optica-erp/optica-backend/internal/inventory"
	"github.com/optica-erp/optica-backend/internal/platform/db"
	"github.com/optica-erp/optica-backend/internal/shared"
)

// Repository persists adjustments in PostgreSQL.
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

const adjustmentColumns = `id, product_id, branch_id, qty, type, status, reason, created_by, approved_by, approved_at, created_at`

func scanAdjustment(row pgx.Row) (*Adjustment, error) {
	var a Adjustment
	err := row.Scan(&a.ID, &a.ProductID, &a.BranchID, &a.Qty, &a.Type, &a.Status, &a.Reason, &a.CreatedBy, &a.ApprovedBy, &a.ApprovedAt, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Get loads one adjustment.
func (r *Repository) Get(ctx context.Context, id int64) (*Adjustment, error) {
	return scanAdjustment(r.pool.QueryRow(ctx, `SELECT `+adjustmentColumns+` FROM stock_adjustments WHERE id = $1`, id))
}

// List returns adjustments matching the filter, newest first.
func (r *Repository) List(ctx context.Context, req ListAdjustmentsRequest) ([]Adjustment, error) {
	query := `SELECT ` + adjustmentColumns + ` FROM stock_adjustments WHERE 1=1`
	args := []any{}
	argCount := 0

	if req.BranchID > 0 {
		argCount++
		query += ` AND branch_id = $` + strconv.Itoa(argCount)
		args = append(args, req.BranchID)
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

	var list []Adjustment
	for rows.Next() {
		adj, err := scanAdjustment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *adj)
	}
	return list, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) Insert(ctx context.Context, adj Adjustment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_adjustments (product_id, branch_id, qty, type, status, reason, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		adj.ProductID, adj.BranchID, adj.Qty, string(adj.Type), string(adj.Status), adj.Reason, adj.CreatedBy, adj.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (*Adjustment, error) {
	return scanAdjustment(r.tx.QueryRow(ctx, `SELECT `+adjustmentColumns+` FROM stock_adjustments WHERE id = $1 FOR UPDATE`, id))
}

func (r *txRepository) SetApproval(ctx context.Context, id int64, status Status, approverID int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE stock_adjustments SET status = $1, approved_by = $2, approved_at = $3 WHERE id = $4`,
		string(status), approverID, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) Inventory() inventory.TxRepository {
	return inventory.NewTxRepository(r.tx)
}

func (r *txRepository) RecordAudit(ctx context.Context, entry shared.AuditEntry) error {
	return shared.RecordAuditTx(ctx, r.tx, entry)
}
