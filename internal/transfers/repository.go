package transfers

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockline-erp/stockline/internal/shared"
	"github.com/stockline-erp/stockline/internal/stock"
)

// TxRepository binds the ledger store and the transfer record writes to one
// transaction.
type TxRepository interface {
	stock.Store

	InsertTransfer(ctx context.Context, t Transfer) (int64, error)
	GetTransferForUpdate(ctx context.Context, id int64) (Transfer, error)
	UpdateTransfer(ctx context.Context, t Transfer) error
	DeleteTransfer(ctx context.Context, id int64) error
}

// Repository owns transfer persistence.
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

func (r *txRepo) InsertTransfer(ctx context.Context, t Transfer) (int64, error) {
	var id int64
	err := r.Tx().QueryRow(ctx, `INSERT INTO stock_transfers (reference, source_warehouse_id, dest_warehouse_id, remark, total_quantity, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW(),NOW()) RETURNING id`,
		t.Reference, t.SourceWarehouseID, t.DestWarehouseID, t.Remark, t.TotalQuantity).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, insertItems(ctx, r.Tx(), id, t.Items)
}

func (r *txRepo) GetTransferForUpdate(ctx context.Context, id int64) (Transfer, error) {
	var t Transfer
	err := r.Tx().QueryRow(ctx, `SELECT id, reference, source_warehouse_id, dest_warehouse_id, remark, total_quantity, created_at, updated_at
FROM stock_transfers WHERE id=$1 FOR UPDATE`, id).
		Scan(&t.ID, &t.Reference, &t.SourceWarehouseID, &t.DestWarehouseID, &t.Remark, &t.TotalQuantity, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transfer{}, &shared.NotFoundError{Entity: "stock transfer", ID: id}
		}
		return Transfer{}, err
	}
	t.Items, err = scanItems(ctx, r.Tx(), id)
	return t, err
}

func (r *txRepo) UpdateTransfer(ctx context.Context, t Transfer) error {
	tag, err := r.Tx().Exec(ctx, `UPDATE stock_transfers SET source_warehouse_id=$1, dest_warehouse_id=$2, remark=$3, total_quantity=$4, updated_at=NOW() WHERE id=$5`,
		t.SourceWarehouseID, t.DestWarehouseID, t.Remark, t.TotalQuantity, t.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "stock transfer", ID: t.ID}
	}
	if _, err := r.Tx().Exec(ctx, `DELETE FROM stock_transfer_items WHERE transfer_id=$1`, t.ID); err != nil {
		return err
	}
	return insertItems(ctx, r.Tx(), t.ID, t.Items)
}

func (r *txRepo) DeleteTransfer(ctx context.Context, id int64) error {
	if _, err := r.Tx().Exec(ctx, `DELETE FROM stock_transfer_items WHERE transfer_id=$1`, id); err != nil {
		return err
	}
	tag, err := r.Tx().Exec(ctx, `DELETE FROM stock_transfers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "stock transfer", ID: id}
	}
	return nil
}

func insertItems(ctx context.Context, tx pgx.Tx, id int64, items []TransferItem) error {
	for _, item := range items {
		_, err := tx.Exec(ctx, `INSERT INTO stock_transfer_items (transfer_id, product_id, category_id, quantity)
VALUES ($1,$2,$3,$4)`, id, item.ProductID, item.CategoryID, item.Quantity)
		if err != nil {
			return err
		}
	}
	return nil
}

func scanItems(ctx context.Context, tx pgx.Tx, id int64) ([]TransferItem, error) {
	rows, err := tx.Query(ctx, `SELECT product_id, category_id, quantity FROM stock_transfer_items WHERE transfer_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TransferItem
	for rows.Next() {
		var item TransferItem
		if err := rows.Scan(&item.ProductID, &item.CategoryID, &item.Quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// List returns a transfer page; search matches the reference.
func (r *Repository) List(ctx context.Context, page, limit int, search string) ([]Transfer, int, error) {
	query := `SELECT id, reference, source_warehouse_id, dest_warehouse_id, remark, total_quantity, created_at, updated_at FROM stock_transfers WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM stock_transfers WHERE 1=1`
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

	var transfers []Transfer
	for rows.Next() {
		var t Transfer
		if err := rows.Scan(&t.ID, &t.Reference, &t.SourceWarehouseID, &t.DestWarehouseID, &t.Remark, &t.TotalQuantity, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range transfers {
		items, err := r.readItems(ctx, transfers[i].ID)
		if err != nil {
			return nil, 0, err
		}
		transfers[i].Items = items
	}
	return transfers, total, nil
}

// Get loads one transfer with its items.
func (r *Repository) Get(ctx context.Context, id int64) (Transfer, error) {
	var t Transfer
	err := r.pool.QueryRow(ctx, `SELECT id, reference, source_warehouse_id, dest_warehouse_id, remark, total_quantity, created_at, updated_at
FROM stock_transfers WHERE id=$1`, id).
		Scan(&t.ID, &t.Reference, &t.SourceWarehouseID, &t.DestWarehouseID, &t.Remark, &t.TotalQuantity, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transfer{}, &shared.NotFoundError{Entity: "stock transfer", ID: id}
		}
		return Transfer{}, err
	}
	t.Items, err = r.readItems(ctx, id)
	return t, err
}

func (r *Repository) readItems(ctx context.Context, id int64) ([]TransferItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, category_id, quantity FROM stock_transfer_items WHERE transfer_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TransferItem
	for rows.Next() {
		var item TransferItem
		if err := rows.Scan(&item.ProductID, &item.CategoryID, &item.Quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
