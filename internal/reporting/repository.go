package reporting

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository answers aggregate queries straight from PostgreSQL. Reporting reads are
// not transactional; slight skew against concurrent writes is acceptable.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LowStock lists rows under their product's minimum threshold. branchID zero means
// all branches.
func (r *Repository) LowStock(ctx context.Context, branchID int64) ([]LowStockRow, error) {
	query := `SELECT i.product_id, p.name, i.branch_id, i.quantity, p.min_stock
FROM inventory i
JOIN products p ON p.id = i.product_id
WHERE i.quantity < p.min_stock`
	args := []any{}
	if branchID > 0 {
		query += ` AND i.branch_id = $1`
		args = append(args, branchID)
	}
	query += ` ORDER BY i.quantity - p.min_stock ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []LowStockRow
	for rows.Next() {
		var row LowStockRow
		if err := rows.Scan(&row.ProductID, &row.ProductName, &row.BranchID, &row.Quantity, &row.MinStock); err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	return list, rows.Err()
}

// WriteoffLoss sums cost-price value of approved writeoff adjustments in the period.
func (r *Repository) WriteoffLoss(ctx context.Context, branchID int64, period Period) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(ABS(a.qty) * p.cost_price), 0)
FROM stock_adjustments a
JOIN products p ON p.id = a.product_id
WHERE a.status = 'approved' AND a.type = 'writeoff'`
	args := []any{}
	argCount := 0

	if branchID > 0 {
		argCount++
		query += ` AND a.branch_id = $` + strconv.Itoa(argCount)
		args = append(args, branchID)
	}
	if !period.From.IsZero() {
		argCount++
		query += ` AND a.approved_at >= $` + strconv.Itoa(argCount)
		args = append(args, period.From)
	}
	if !period.To.IsZero() {
		argCount++
		query += ` AND a.approved_at <= $` + strconv.Itoa(argCount)
		args = append(args, period.To)
	}

	var loss decimal.Decimal
	err := r.pool.QueryRow(ctx, query, args...).Scan(&loss)
	return loss, err
}

// PaymentBreakdown aggregates completed sale payments by method in the period.
func (r *Repository) PaymentBreakdown(ctx context.Context, branchID int64, period Period) ([]PaymentMethodTotal, error) {
	query := `SELECT p.method, COALESCE(SUM(p.amount), 0)
FROM sale_payments p
JOIN sales s ON s.id = p.sale_id
WHERE s.status = 'completed'`
	args := []any{}
	argCount := 0

	if branchID > 0 {
		argCount++
		query += ` AND s.branch_id = $` + strconv.Itoa(argCount)
		args = append(args, branchID)
	}
	if !period.From.IsZero() {
		argCount++
		query += ` AND s.created_at >= $` + strconv.Itoa(argCount)
		args = append(args, period.From)
	}
	if !period.To.IsZero() {
		argCount++
		query += ` AND s.created_at <= $` + strconv.Itoa(argCount)
		args = append(args, period.To)
	}
	query += ` GROUP BY p.method ORDER BY p.method`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []PaymentMethodTotal
	for rows.Next() {
		var t PaymentMethodTotal
		if err := rows.Scan(&t.Method, &t.Total); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// SalesTotals returns completed sale count and revenue in the period.
func (r *Repository) SalesTotals(ctx context.Context, branchID int64, period Period) (int64, decimal.Decimal, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(total), 0) FROM sales WHERE status = 'completed'`
	args := []any{}
	argCount := 0

	if branchID > 0 {
		argCount++
		query += ` AND branch_id = $` + strconv.Itoa(argCount)
		args = append(args, branchID)
	}
	if !period.From.IsZero() {
		argCount++
		query += ` AND created_at >= $` + strconv.Itoa(argCount)
		args = append(args, period.From)
	}
	if !period.To.IsZero() {
		argCount++
		query += ` AND created_at <= $` + strconv.Itoa(argCount)
		args = append(args, period.To)
	}

	var count int64
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, query, args...).Scan(&count, &total)
	return count, total, err
}
