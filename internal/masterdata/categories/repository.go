package categories

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	mdshared "github.com/stockline-erp/stockline/internal/masterdata/shared"
	"github.com/stockline-erp/stockline/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters mdshared.ListFilters) ([]Category, int, error)
	Get(ctx context.Context, id int64) (Category, error)
	FindByName(ctx context.Context, name string) (Category, error)
	Create(ctx context.Context, category Category) (Category, error)
	Update(ctx context.Context, id int64, category Category) error
	Delete(ctx context.Context, id int64) error
	CountStockRefs(ctx context.Context, id int64) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters mdshared.ListFilters) ([]Category, int, error) {
	query := `SELECT id, name FROM categories WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM categories WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		query += ` AND name ILIKE $` + strconv.Itoa(argCount)
		countQuery += ` AND name ILIKE $1`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if filters.SortDir == mdshared.SortDesc {
		dir = "DESC"
	}
	query += ` ORDER BY name ` + dir

	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, 0, err
		}
		categories = append(categories, c)
	}
	return categories, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM categories WHERE id=$1`, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, &shared.NotFoundError{Entity: "category", ID: id}
	}
	return c, err
}

func (r *repository) FindByName(ctx context.Context, name string) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM categories WHERE name_folded=$1`, shared.NormalizeName(name)).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, shared.ErrNotFound
	}
	return c, err
}

func (r *repository) Create(ctx context.Context, category Category) (Category, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO categories (name, name_folded, created_at, updated_at) VALUES ($1,$2,NOW(),NOW()) RETURNING id`,
		category.Name, shared.NormalizeName(category.Name)).Scan(&category.ID)
	if err != nil {
		return Category{}, mapDuplicate(err, category.Name)
	}
	return category, nil
}

func (r *repository) Update(ctx context.Context, id int64, category Category) error {
	tag, err := r.pool.Exec(ctx, `UPDATE categories SET name=$1, name_folded=$2, updated_at=NOW() WHERE id=$3`,
		category.Name, shared.NormalizeName(category.Name), id)
	if err != nil {
		return mapDuplicate(err, category.Name)
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "category", ID: id}
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "category", ID: id}
	}
	return nil
}

func (r *repository) CountStockRefs(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_entries WHERE category_id=$1`, id).Scan(&count)
	return count, err
}

// mapDuplicate turns the unique-index violation on name_folded into the
// domain conflict error. The service's folded-name lookup catches most
// duplicates first; this is the backstop for concurrent inserts.
func mapDuplicate(err error, name string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &shared.DuplicateError{Entity: "category", Name: name}
	}
	return err
}
