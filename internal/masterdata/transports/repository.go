package transports

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
	List(ctx context.Context, filters mdshared.ListFilters) ([]Transport, int, error)
	Get(ctx context.Context, id int64) (Transport, error)
	FindByName(ctx context.Context, name string) (Transport, error)
	Create(ctx context.Context, transport Transport) (Transport, error)
	Update(ctx context.Context, id int64, transport Transport) error
	Delete(ctx context.Context, id int64) error
	CountEventRefs(ctx context.Context, id int64) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters mdshared.ListFilters) ([]Transport, int, error) {
	query := `SELECT id, name FROM transports WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM transports WHERE 1=1`
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

	var transports []Transport
	for rows.Next() {
		var t Transport
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, 0, err
		}
		transports = append(transports, t)
	}
	return transports, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Transport, error) {
	var t Transport
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM transports WHERE id=$1`, id).Scan(&t.ID, &t.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transport{}, &shared.NotFoundError{Entity: "transport", ID: id}
	}
	return t, err
}

func (r *repository) FindByName(ctx context.Context, name string) (Transport, error) {
	var t Transport
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM transports WHERE name_folded=$1`, shared.NormalizeName(name)).Scan(&t.ID, &t.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transport{}, shared.ErrNotFound
	}
	return t, err
}

func (r *repository) Create(ctx context.Context, transport Transport) (Transport, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO transports (name, name_folded, created_at, updated_at) VALUES ($1,$2,NOW(),NOW()) RETURNING id`,
		transport.Name, shared.NormalizeName(transport.Name)).Scan(&transport.ID)
	if err != nil {
		return Transport{}, mapDuplicate(err, transport.Name)
	}
	return transport, nil
}

func (r *repository) Update(ctx context.Context, id int64, transport Transport) error {
	tag, err := r.pool.Exec(ctx, `UPDATE transports SET name=$1, name_folded=$2, updated_at=NOW() WHERE id=$3`,
		transport.Name, shared.NormalizeName(transport.Name), id)
	if err != nil {
		return mapDuplicate(err, transport.Name)
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "transport", ID: id}
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transports WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "transport", ID: id}
	}
	return nil
}

// CountEventRefs totals purchases and sales that name the transport.
func (r *repository) CountEventRefs(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT
  (SELECT COUNT(*) FROM purchases WHERE transport_id=$1) +
  (SELECT COUNT(*) FROM sales WHERE transport_id=$1)`, id).Scan(&count)
	return count, err
}

func mapDuplicate(err error, name string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &shared.DuplicateError{Entity: "transport", Name: name}
	}
	return err
}
