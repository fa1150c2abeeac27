package products

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optica-erp/optica-backend/internal/masterdata/shared"
	core "github.com/optica-erp/optica-backend/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	GetMany(ctx context.Context, ids []int64) (map[int64]Product, error)
	Create(ctx context.Context, product Product, branchIDs []int64) (Product, error)
	UpdatePricing(ctx context.Context, id int64, change PriceChange) error
	PriceHistory(ctx context.Context, id int64) ([]PriceChange, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const productColumns = `id, code, name, category_id, unit, sale_price, cost_price, min_stock, status, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.CategoryID, &p.Unit, &p.SalePrice, &p.CostPrice, &p.MinStock, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, core.ErrNotFound
	}
	return p, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM products WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.CategoryID != nil {
		argCount++
		cond := ` AND category_id = $` + strconv.Itoa(argCount)
		query += cond
		countQuery += cond
		args = append(args, *filters.CategoryID)
	}
	if filters.Search != "" {
		argCount++
		cond := ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR code ILIKE $` + strconv.Itoa(argCount) + `)`
		query += cond
		countQuery += cond
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.Status != "" {
		argCount++
		cond := ` AND status = $` + strconv.Itoa(argCount)
		query += cond
		countQuery += cond
		args = append(args, filters.Status)
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset())
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, p)
	}
	return list, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (r *repository) GetMany(ctx context.Context, ids []int64) (map[int64]Product, error) {
	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64]Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	return result, rows.Err()
}

// Create inserts the product and provisions a zero-quantity inventory row per branch.
// Inventory rows exist only from this point on; nothing creates them implicitly later.
func (r *repository) Create(ctx context.Context, product Product, branchIDs []int64) (Product, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Product{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	err = tx.QueryRow(ctx, `INSERT INTO products (code, name, category_id, unit, sale_price, cost_price, min_stock, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9) RETURNING id`,
		product.Code, product.Name, product.CategoryID, product.Unit, product.SalePrice, product.CostPrice, product.MinStock, string(StatusSold), now).Scan(&product.ID)
	if err != nil {
		return Product{}, err
	}
	for _, branchID := range branchIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO inventory (product_id, branch_id, quantity, updated_at) VALUES ($1,$2,0,$3)`, product.ID, branchID, now); err != nil {
			return Product{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Product{}, err
	}
	product.Status = StatusSold
	product.CreatedAt = now
	product.UpdatedAt = now
	return product, nil
}

// UpdatePricing writes new prices and appends the change to price history atomically.
func (r *repository) UpdatePricing(ctx context.Context, id int64, change PriceChange) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `UPDATE products SET sale_price = $1, cost_price = $2, updated_at = NOW() WHERE id = $3`,
		change.NewSalePrice, change.NewCostPrice, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	_, err = tx.Exec(ctx, `INSERT INTO product_price_history (product_id, old_sale_price, new_sale_price, old_cost_price, new_cost_price, changed_by, changed_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW())`,
		id, change.OldSalePrice, change.NewSalePrice, change.OldCostPrice, change.NewCostPrice, change.ChangedBy)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *repository) PriceHistory(ctx context.Context, id int64) ([]PriceChange, error) {
	rows, err := r.db.Query(ctx, `SELECT id, product_id, old_sale_price, new_sale_price, old_cost_price, new_cost_price, changed_by, changed_at
FROM product_price_history WHERE product_id = $1 ORDER BY changed_at DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []PriceChange
	for rows.Next() {
		var c PriceChange
		if err := rows.Scan(&c.ID, &c.ProductID, &c.OldSalePrice, &c.NewSalePrice, &c.OldCostPrice, &c.NewCostPrice, &c.ChangedBy, &c.ChangedAt); err != nil {
			return nil, err
		}
		history = append(history, c)
	}
	return history, rows.Err()
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == shared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "code":
		return "code " + dir
	case "name":
		return "name " + dir
	case "sale_price":
		return "sale_price " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
