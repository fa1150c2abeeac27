package inventory

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optica-erp/optica-backend/internal/masterdata/products"
	"github.com/optica-erp/optica-backend/internal/platform/db"
	"github.com/optica-erp/optica-backend/internal/shared"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

// StockLevels lists current quantities at one branch.
func (r *Repository) StockLevels(ctx context.Context, branchID int64) ([]Row, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, branch_id, quantity, updated_at FROM inventory WHERE branch_id = $1 ORDER BY product_id`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.ProductID, &row.BranchID, &row.Quantity, &row.UpdatedAt); err != nil {
			return nil, err
		}
		levels = append(levels, row)
	}
	return levels, rows.Err()
}

// Movements lists movement log entries, newest first.
func (r *Repository) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	query := `SELECT id, product_id, branch_id, delta, context, actor_id, reason, ref_code, created_at FROM inventory_movements WHERE 1=1`
	args := []any{}
	argCount := 0

	if filter.ProductID > 0 {
		argCount++
		query += ` AND product_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.ProductID)
	}
	if filter.BranchID > 0 {
		argCount++
		query += ` AND branch_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.BranchID)
	}
	if filter.Context != "" {
		argCount++
		query += ` AND context = $` + strconv.Itoa(argCount)
		args = append(args, string(filter.Context))
	}
	if !filter.From.IsZero() {
		argCount++
		query += ` AND created_at >= $` + strconv.Itoa(argCount)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		query += ` AND created_at <= $` + strconv.Itoa(argCount)
		args = append(args, filter.To)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	argCount++
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.BranchID, &m.Delta, &m.Context, &m.ActorID, &m.Reason, &m.RefCode, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository wraps an open transaction so other domains (sales, adjustments,
// shipments) can route inventory writes through the Mutator within their own
// transaction boundary.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

func (r *txRepository) GetRowForUpdate(ctx context.Context, productID, branchID int64) (Row, error) {
	var row Row
	err := r.tx.QueryRow(ctx, `SELECT product_id, branch_id, quantity, updated_at FROM inventory WHERE product_id = $1 AND branch_id = $2 FOR UPDATE`,
		productID, branchID).Scan(&row.ProductID, &row.BranchID, &row.Quantity, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrRowNotFound
	}
	return row, err
}

func (r *txRepository) UpdateQuantity(ctx context.Context, productID, branchID, quantity int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE inventory SET quantity = $1, updated_at = NOW() WHERE product_id = $2 AND branch_id = $3`,
		quantity, productID, branchID)
	return err
}

func (r *txRepository) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_movements (product_id, branch_id, delta, context, actor_id, reason, ref_code, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		m.ProductID, m.BranchID, m.Delta, string(m.Context), m.ActorID, m.Reason, m.RefCode, m.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepository) ProductStockInfo(ctx context.Context, productID int64) (int64, int64, error) {
	var minStock, total int64
	err := r.tx.QueryRow(ctx, `SELECT p.min_stock, COALESCE(SUM(i.quantity), 0)
FROM products p
LEFT JOIN inventory i ON i.product_id = p.id
WHERE p.id = $1
GROUP BY p.min_stock`, productID).Scan(&minStock, &total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, shared.ErrNotFound
	}
	return minStock, total, err
}

func (r *txRepository) SetProductStatus(ctx context.Context, productID int64, status products.Status) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), productID)
	return err
}

func (r *txRepository) RecordAudit(ctx context.Context, entry shared.AuditEntry) error {
	return shared.RecordAuditTx(ctx, r.tx, entry)
}
