package products

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
	List(ctx context.Context, filters mdshared.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	FindByName(ctx context.Context, name string) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	Delete(ctx context.Context, id int64) error
	CountStockRefs(ctx context.Context, id int64) (int64, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `id, name, category_id, price, quantity, sold`

func (r *repository) List(ctx context.Context, filters mdshared.ListFilters) ([]Product, int, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM products WHERE 1=1`
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

	order := "name"
	if filters.SortBy == "quantity" {
		order = "quantity"
	}
	dir := "ASC"
	if filters.SortDir == mdshared.SortDesc {
		dir = "DESC"
	}
	query += ` ORDER BY ` + order + ` ` + dir

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

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.CategoryID, &p.Price, &p.Quantity, &p.Sold); err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.CategoryID, &p.Price, &p.Quantity, &p.Sold)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, &shared.NotFoundError{Entity: "product", ID: id}
	}
	return p, err
}

func (r *repository) FindByName(ctx context.Context, name string) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE name_folded=$1`, shared.NormalizeName(name)).
		Scan(&p.ID, &p.Name, &p.CategoryID, &p.Price, &p.Quantity, &p.Sold)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

// Create stores the product with zeroed counters; only the ledger moves them.
func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO products (name, name_folded, category_id, price, quantity, sold, created_at, updated_at)
VALUES ($1,$2,$3,$4,0,0,NOW(),NOW()) RETURNING id`,
		product.Name, shared.NormalizeName(product.Name), product.CategoryID, product.Price).Scan(&product.ID)
	if err != nil {
		return Product{}, mapDuplicate(err, product.Name)
	}
	product.Quantity = 0
	product.Sold = 0
	return product, nil
}

func (r *repository) Update(ctx context.Context, id int64, product Product) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET name=$1, name_folded=$2, category_id=$3, price=$4, updated_at=NOW() WHERE id=$5`,
		product.Name, shared.NormalizeName(product.Name), product.CategoryID, product.Price, id)
	if err != nil {
		return mapDuplicate(err, product.Name)
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "product", ID: id}
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "product", ID: id}
	}
	return nil
}

func (r *repository) CountStockRefs(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_entries WHERE product_id=$1`, id).Scan(&count)
	return count, err
}

func (r *repository) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id=$1)`, id).Scan(&ok)
	return ok, err
}

func mapDuplicate(err error, name string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &shared.DuplicateError{Entity: "product", Name: name}
	}
	return err
}
