package categories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	core "github.com/optica-erp/optica-backend/internal/shared"
)

type Repository interface {
	List(ctx context.Context) ([]Category, error)
	Get(ctx context.Context, id int64) (Category, error)
	RequiresClient(ctx context.Context, ids []int64) (map[int64]bool, error)
	Create(ctx context.Context, category Category) (Category, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, requires_client, created_at, updated_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.RequiresClient, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := r.db.QueryRow(ctx, `SELECT id, name, requires_client, created_at, updated_at FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.RequiresClient, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, core.ErrNotFound
	}
	return c, err
}

// RequiresClient reports the requires_client flag for each given category id.
func (r *repository) RequiresClient(ctx context.Context, ids []int64) (map[int64]bool, error) {
	rows, err := r.db.Query(ctx, `SELECT id, requires_client FROM categories WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		var required bool
		if err := rows.Scan(&id, &required); err != nil {
			return nil, err
		}
		result[id] = required
	}
	return result, rows.Err()
}

func (r *repository) Create(ctx context.Context, category Category) (Category, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, `INSERT INTO categories (name, requires_client, created_at, updated_at) VALUES ($1,$2,$3,$3) RETURNING id`,
		category.Name, category.RequiresClient, now).Scan(&category.ID)
	if err != nil {
		return Category{}, err
	}
	category.CreatedAt = now
	category.UpdatedAt = now
	return category, nil
}
