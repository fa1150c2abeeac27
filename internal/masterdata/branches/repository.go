package branches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	core "github.com/optica-erp/optica-backend/internal/shared"
)

// ErrWarehouseInvariant is returned when the branch table does not hold exactly one
// warehouse branch. The server refuses to start in that state.
var ErrWarehouseInvariant = errors.New("branches: exactly one warehouse branch must exist")

type Repository interface {
	List(ctx context.Context) ([]Branch, error)
	Get(ctx context.Context, id int64) (Branch, error)
	Warehouse(ctx context.Context) (Branch, error)
	Create(ctx context.Context, branch Branch) (Branch, error)
	Update(ctx context.Context, id int64, branch Branch) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const branchColumns = `id, code, name, address, discount_limit_percent, is_warehouse, created_at, updated_at`

func scanBranch(row pgx.Row) (Branch, error) {
	var b Branch
	err := row.Scan(&b.ID, &b.Code, &b.Name, &b.Address, &b.DiscountLimitPercent, &b.IsWarehouse, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Branch{}, core.ErrNotFound
	}
	return b, err
}

func (r *repository) List(ctx context.Context) ([]Branch, error) {
	rows, err := r.db.Query(ctx, `SELECT `+branchColumns+` FROM branches ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Branch, error) {
	return scanBranch(r.db.QueryRow(ctx, `SELECT `+branchColumns+` FROM branches WHERE id = $1`, id))
}

// Warehouse resolves the single warehouse branch, failing unless exactly one exists.
func (r *repository) Warehouse(ctx context.Context) (Branch, error) {
	rows, err := r.db.Query(ctx, `SELECT `+branchColumns+` FROM branches WHERE is_warehouse`)
	if err != nil {
		return Branch{}, err
	}
	defer rows.Close()

	var warehouses []Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return Branch{}, err
		}
		warehouses = append(warehouses, b)
	}
	if err := rows.Err(); err != nil {
		return Branch{}, err
	}
	if len(warehouses) != 1 {
		return Branch{}, fmt.Errorf("%w: found %d", ErrWarehouseInvariant, len(warehouses))
	}
	return warehouses[0], nil
}

func (r *repository) Create(ctx context.Context, branch Branch) (Branch, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, `INSERT INTO branches (code, name, address, discount_limit_percent, is_warehouse, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$6) RETURNING id`,
		branch.Code, branch.Name, branch.Address, branch.DiscountLimitPercent, branch.IsWarehouse, now).Scan(&branch.ID)
	if err != nil {
		return Branch{}, err
	}
	branch.CreatedAt = now
	branch.UpdatedAt = now
	return branch, nil
}

func (r *repository) Update(ctx context.Context, id int64, branch Branch) error {
	tag, err := r.db.Exec(ctx, `UPDATE branches SET code = $1, name = $2, address = $3, discount_limit_percent = $4, updated_at = NOW() WHERE id = $5`,
		branch.Code, branch.Name, branch.Address, branch.DiscountLimitPercent, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
