package warehouses

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
	List(ctx context.Context, filters mdshared.ListFilters) ([]Warehouse, int, error)
	Get(ctx context.Context, id int64) (Warehouse, error)
	FindByName(ctx context.Context, name string) (Warehouse, error)
	Create(ctx context.Context, warehouse Warehouse) (Warehouse, error)
	Update(ctx context.Context, id int64, warehouse Warehouse) error
	Delete(ctx context.Context, id int64) error
	CountStockRefs(ctx context.Context, id int64) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters mdshared.ListFilters) ([]Warehouse, int, error) {
	query := `SELECT id, name, COALESCE(location, '') FROM warehouses WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM warehouses WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		query += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR location ILIKE $` + strconv.Itoa(argCount) + `)`
		countQuery += ` AND (name ILIKE $1 OR location ILIKE $1)`
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

	var warehouses []Warehouse
	for rows.Next() {
		var wh Warehouse
		if err := rows.Scan(&wh.ID, &wh.Name, &wh.Location); err != nil {
			return nil, 0, err
		}
		warehouses = append(warehouses, wh)
	}
	return warehouses, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Warehouse, error) {
	var wh Warehouse
	err := r.pool.QueryRow(ctx, `SELECT id, name, COALESCE(location, '') FROM warehouses WHERE id=$1`, id).
		Scan(&wh.ID, &wh.Name, &wh.Location)
	if errors.Is(err, pgx.ErrNoRows) {
		return Warehouse{}, &shared.NotFoundError{Entity: "warehouse", ID: id}
	}
	return wh, err
}

func (r *repository) FindByName(ctx context.Context, name string) (Warehouse, error) {
	var wh Warehouse
	err := r.pool.QueryRow(ctx, `SELECT id, name, COALESCE(location, '') FROM warehouses WHERE name_folded=$1`, shared.NormalizeName(name)).
		Scan(&wh.ID, &wh.Name, &wh.Location)
	if errors.Is(err, pgx.ErrNoRows) {
		return Warehouse{}, shared.ErrNotFound
	}
	return wh, err
}

func (r *repository) Create(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO warehouses (name, name_folded, location, created_at, updated_at) VALUES ($1,$2,$3,NOW(),NOW()) RETURNING id`,
		warehouse.Name, shared.NormalizeName(warehouse.Name), nullIfEmpty(warehouse.Location)).Scan(&warehouse.ID)
	if err != nil {
		return Warehouse{}, mapDuplicate(err, warehouse.Name)
	}
	return warehouse, nil
}

func (r *repository) Update(ctx context.Context, id int64, warehouse Warehouse) error {
	tag, err := r.pool.Exec(ctx, `UPDATE warehouses SET name=$1, name_folded=$2, location=$3, updated_at=NOW() WHERE id=$4`,
		warehouse.Name, shared.NormalizeName(warehouse.Name), nullIfEmpty(warehouse.Location), id)
	if err != nil {
		return mapDuplicate(err, warehouse.Name)
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "warehouse", ID: id}
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM warehouses WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "warehouse", ID: id}
	}
	return nil
}

func (r *repository) CountStockRefs(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_entries WHERE warehouse_id=$1`, id).Scan(&count)
	return count, err
}

func mapDuplicate(err error, name string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &shared.DuplicateError{Entity: "warehouse", Name: name}
	}
	return err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
