package sales

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optica-erp/optica-backend/internal/inventory"
	"github.com/optica-erp/optica-backend/internal/platform/db"
	"github.com/optica-erp/optica-backend/internal/shared"
)

// Repository persists sales in PostgreSQL.
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

const saleColumns = `id, branch_id, client_id, user_id, total, discount_percent, discount_amount, status, created_at`

func scanSale(row pgx.Row) (*Sale, error) {
	var s Sale
	err := row.Scan(&s.ID, &s.BranchID, &s.ClientID, &s.UserID, &s.Total, &s.DiscountPercent, &s.DiscountAmount, &s.Status, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Get loads one sale with items and payments.
func (r *Repository) Get(ctx context.Context, id int64) (*Sale, error) {
	sale, err := scanSale(r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	sale.Items, err = loadItems(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	sale.Payments, err = loadPayments(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	return sale, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func loadItems(ctx context.Context, db querier, saleID int64) ([]Item, error) {
	rows, err := db.Query(ctx, `SELECT id, sale_id, product_id, qty, unit_price, line_total, discount FROM sale_items WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Qty, &item.UnitPrice, &item.LineTotal, &item.Discount); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func loadPayments(ctx context.Context, db querier, saleID int64) ([]Payment, error) {
	rows, err := db.Query(ctx, `SELECT id, sale_id, method, amount FROM sale_payments WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.SaleID, &p.Method, &p.Amount); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// List returns sale headers matching the filter.
func (r *Repository) List(ctx context.Context, req ListSalesRequest) ([]Sale, int, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM sales WHERE 1=1`
	args := []any{}
	argCount := 0

	if req.BranchID > 0 {
		argCount++
		cond := ` AND branch_id = $` + strconv.Itoa(argCount)
		query += cond
		countQuery += cond
		args = append(args, req.BranchID)
	}
	if req.Status != "" {
		argCount++
		cond := ` AND status = $` + strconv.Itoa(argCount)
		query += cond
		countQuery += cond
		args = append(args, string(req.Status))
	}
	if req.DateFrom != nil {
		argCount++
		cond := ` AND created_at >= $` + strconv.Itoa(argCount)
		query += cond
		countQuery += cond
		args = append(args, *req.DateFrom)
	}
	if req.DateTo != nil {
		argCount++
		cond := ` AND created_at <= $` + strconv.Itoa(argCount)
		query += cond
		countQuery += cond
		args = append(args, *req.DateTo)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
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
		return nil, 0, err
	}
	defer rows.Close()

	var list []Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *sale)
	}
	return list, total, rows.Err()
}

// ClientExists reports whether a client record exists.
func (r *Repository) ClientExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// KPI lists monthly accumulators for one user.
func (r *Repository) KPI(ctx context.Context, userID int64, month, year int) ([]KPIEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, branch_id, month, year, total FROM employee_kpi WHERE user_id = $1 AND month = $2 AND year = $3`, userID, month, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []KPIEntry
	for rows.Next() {
		var e KPIEntry
		if err := rows.Scan(&e.UserID, &e.BranchID, &e.Month, &e.Year, &e.Total); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales (branch_id, client_id, user_id, total, discount_percent, discount_amount, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		sale.BranchID, sale.ClientID, sale.UserID, sale.Total, sale.DiscountPercent, sale.DiscountAmount, string(sale.Status), sale.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepository) InsertItems(ctx context.Context, saleID int64, items []Item) error {
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO sale_items (sale_id, product_id, qty, unit_price, line_total, discount) VALUES ($1,$2,$3,$4,$5,$6)`,
			saleID, item.ProductID, item.Qty, item.UnitPrice, item.LineTotal, item.Discount); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) InsertPayments(ctx context.Context, saleID int64, payments []Payment) error {
	for _, p := range payments {
		if _, err := r.tx.Exec(ctx, `INSERT INTO sale_payments (sale_id, method, amount) VALUES ($1,$2,$3)`,
			saleID, p.Method, p.Amount); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) UpdateStatus(ctx context.Context, saleID int64, status Status) error {
	tag, err := r.tx.Exec(ctx, `UPDATE sales SET status = $1 WHERE id = $2`, string(status), saleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, saleID int64) (*Sale, error) {
	sale, err := scanSale(r.tx.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, saleID))
	if err != nil {
		return nil, err
	}
	sale.Items, err = loadItems(ctx, r.tx, saleID)
	if err != nil {
		return nil, err
	}
	return sale, nil
}

func (r *txRepository) UpsertKPI(ctx context.Context, entry KPIEntry) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO employee_kpi (user_id, branch_id, month, year, total)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id, branch_id, month, year) DO UPDATE SET total = employee_kpi.total + EXCLUDED.total`,
		entry.UserID, entry.BranchID, entry.Month, entry.Year, entry.Total)
	return err
}

func (r *txRepository) Inventory() inventory.TxRepository {
	return inventory.NewTxRepository(r.tx)
}

func (r *txRepository) RecordAudit(ctx context.Context, entry shared.AuditEntry) error {
	return shared.RecordAuditTx(ctx, r.tx, entry)
}
