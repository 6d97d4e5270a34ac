package exchanges

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockline-erp/stockline/internal/shared"
	"github.com/stockline-erp/stockline/internal/stock"
)

// TxRepository binds the ledger store and the exchange record writes to one
// transaction.
type TxRepository interface {
	stock.Store

	InsertExchange(ctx context.Context, e Exchange) (int64, error)
	GetExchangeForUpdate(ctx context.Context, id int64) (Exchange, error)
	UpdateExchange(ctx context.Context, e Exchange) error
	DeleteExchange(ctx context.Context, id int64) error
}

// Repository owns exchange persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside one repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(ctx, &txRepo{TxStore: stock.NewTxStore(tx)}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txRepo struct {
	*stock.TxStore
}

const exchangeColumns = `id, reference, warehouse_id, source_product_id, source_category_id, dest_product_id, dest_category_id, quantity, remark, created_at, updated_at`

func (r *txRepo) InsertExchange(ctx context.Context, e Exchange) (int64, error) {
	var id int64
	err := r.Tx().QueryRow(ctx, `INSERT INTO product_exchanges (reference, warehouse_id, source_product_id, source_category_id, dest_product_id, dest_category_id, quantity, remark, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW()) RETURNING id`,
		e.Reference, e.WarehouseID, e.SourceProductID, e.SourceCategoryID, e.DestProductID, e.DestCategoryID, e.Quantity, e.Remark).Scan(&id)
	return id, err
}

func (r *txRepo) GetExchangeForUpdate(ctx context.Context, id int64) (Exchange, error) {
	var e Exchange
	err := r.Tx().QueryRow(ctx, `SELECT `+exchangeColumns+` FROM product_exchanges WHERE id=$1 FOR UPDATE`, id).
		Scan(&e.ID, &e.Reference, &e.WarehouseID, &e.SourceProductID, &e.SourceCategoryID, &e.DestProductID, &e.DestCategoryID, &e.Quantity, &e.Remark, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Exchange{}, &shared.NotFoundError{Entity: "product exchange", ID: id}
		}
		return Exchange{}, err
	}
	return e, nil
}

func (r *txRepo) UpdateExchange(ctx context.Context, e Exchange) error {
	tag, err := r.Tx().Exec(ctx, `UPDATE product_exchanges SET warehouse_id=$1, source_product_id=$2, source_category_id=$3, dest_product_id=$4, dest_category_id=$5, quantity=$6, remark=$7, updated_at=NOW() WHERE id=$8`,
		e.WarehouseID, e.SourceProductID, e.SourceCategoryID, e.DestProductID, e.DestCategoryID, e.Quantity, e.Remark, e.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "product exchange", ID: e.ID}
	}
	return nil
}

func (r *txRepo) DeleteExchange(ctx context.Context, id int64) error {
	tag, err := r.Tx().Exec(ctx, `DELETE FROM product_exchanges WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "product exchange", ID: id}
	}
	return nil
}

// List returns an exchange page; search matches the reference.
func (r *Repository) List(ctx context.Context, page, limit int, search string) ([]Exchange, int, error) {
	query := `SELECT ` + exchangeColumns + ` FROM product_exchanges WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM product_exchanges WHERE 1=1`
	args := []any{}

	if search != "" {
		args = append(args, "%"+search+"%")
		cond := ` AND reference ILIKE $1`
		query += cond
		countQuery += cond
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY created_at DESC, id DESC`
	argCount := len(args)
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, (page-1)*limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exchanges []Exchange
	for rows.Next() {
		var e Exchange
		if err := rows.Scan(&e.ID, &e.Reference, &e.WarehouseID, &e.SourceProductID, &e.SourceCategoryID, &e.DestProductID, &e.DestCategoryID, &e.Quantity, &e.Remark, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		exchanges = append(exchanges, e)
	}
	return exchanges, total, rows.Err()
}

// Get loads one exchange.
func (r *Repository) Get(ctx context.Context, id int64) (Exchange, error) {
	var e Exchange
	err := r.pool.QueryRow(ctx, `SELECT `+exchangeColumns+` FROM product_exchanges WHERE id=$1`, id).
		Scan(&e.ID, &e.Reference, &e.WarehouseID, &e.SourceProductID, &e.SourceCategoryID, &e.DestProductID, &e.DestCategoryID, &e.Quantity, &e.Remark, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Exchange{}, &shared.NotFoundError{Entity: "product exchange", ID: id}
		}
		return Exchange{}, err
	}
	return e, nil
}
