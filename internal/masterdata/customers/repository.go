package customers

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
	List(ctx context.Context, filters mdshared.ListFilters) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
	FindByName(ctx context.Context, name string) (Customer, error)
	Create(ctx context.Context, customer Customer) (Customer, error)
	Update(ctx context.Context, id int64, customer Customer) error
	Delete(ctx context.Context, id int64) error
	CountSaleRefs(ctx context.Context, id int64) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const customerColumns = `id, name, COALESCE(phone, ''), COALESCE(address, '')`

func (r *repository) List(ctx context.Context, filters mdshared.ListFilters) ([]Customer, int, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM customers WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		query += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR phone ILIKE $` + strconv.Itoa(argCount) + `)`
		countQuery += ` AND (name ILIKE $1 OR phone ILIKE $1)`
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

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Address); err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Address)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, &shared.NotFoundError{Entity: "customer", ID: id}
	}
	return c, err
}

func (r *repository) FindByName(ctx context.Context, name string) (Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE name_folded=$1`, shared.NormalizeName(name)).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Address)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, shared.ErrNotFound
	}
	return c, err
}

func (r *repository) Create(ctx context.Context, customer Customer) (Customer, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO customers (name, name_folded, phone, address, created_at, updated_at)
VALUES ($1,$2,$3,$4,NOW(),NOW()) RETURNING id`,
		customer.Name, shared.NormalizeName(customer.Name), nullIfEmpty(customer.Phone), nullIfEmpty(customer.Address)).Scan(&customer.ID)
	if err != nil {
		return Customer{}, mapDuplicate(err, customer.Name)
	}
	return customer, nil
}

func (r *repository) Update(ctx context.Context, id int64, customer Customer) error {
	tag, err := r.pool.Exec(ctx, `UPDATE customers SET name=$1, name_folded=$2, phone=$3, address=$4, updated_at=NOW() WHERE id=$5`,
		customer.Name, shared.NormalizeName(customer.Name), nullIfEmpty(customer.Phone), nullIfEmpty(customer.Address), id)
	if err != nil {
		return mapDuplicate(err, customer.Name)
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "customer", ID: id}
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "customer", ID: id}
	}
	return nil
}

func (r *repository) CountSaleRefs(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales WHERE customer_id=$1`, id).Scan(&count)
	return count, err
}

func mapDuplicate(err error, name string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &shared.DuplicateError{Entity: "customer", Name: name}
	}
	return err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
