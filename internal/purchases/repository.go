package purchases

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockline-erp/stockline/internal/shared"
	"github.com/stockline-erp/stockline/internal/stock"
)

// TxRepository is the transactional surface a purchase mutation runs
// against: the stock ledger store plus the purchase record writes, all bound
// to one transaction.
type TxRepository interface {
	stock.Store

	InsertPurchase(ctx context.Context, p Purchase) (int64, error)
	GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error)
	UpdatePurchase(ctx context.Context, p Purchase) error
	DeletePurchase(ctx context.Context, id int64) error

	InsertReturn(ctx context.Context, r Return) (int64, error)
	GetReturnForUpdate(ctx context.Context, id int64) (Return, error)
	UpdateReturn(ctx context.Context, r Return) error
	DeleteReturn(ctx context.Context, id int64) error

	TransportExists(ctx context.Context, id int64) (bool, error)
}

// Repository owns purchase persistence: the read side on the pool and the
// write side through WithTx.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn against a TxRepository bound to one repeatable-read
// transaction; the ledger rows and the purchase record commit or roll back
// together.
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

func (r *txRepo) InsertPurchase(ctx context.Context, p Purchase) (int64, error) {
	var id int64
	err := r.Tx().QueryRow(ctx, `INSERT INTO purchases (reference, supplier_name, transport_id, remark, total_quantity, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW(),NOW()) RETURNING id`,
		p.Reference, p.SupplierName, nullID(p.TransportID), p.Remark, p.TotalQuantity).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, insertItems(ctx, r.Tx(), "purchase_items", "purchase_id", id, p.Items)
}

func (r *txRepo) GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error) {
	var p Purchase
	var transportID *int64
	err := r.Tx().QueryRow(ctx, `SELECT id, reference, supplier_name, transport_id, remark, total_quantity, created_at, updated_at
FROM purchases WHERE id=$1 FOR UPDATE`, id).
		Scan(&p.ID, &p.Reference, &p.SupplierName, &transportID, &p.Remark, &p.TotalQuantity, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, &shared.NotFoundError{Entity: "purchase", ID: id}
		}
		return Purchase{}, err
	}
	if transportID != nil {
		p.TransportID = *transportID
	}
	p.Items, err = scanItems(ctx, r.Tx(), "purchase_items", "purchase_id", id)
	return p, err
}

func (r *txRepo) UpdatePurchase(ctx context.Context, p Purchase) error {
	tag, err := r.Tx().Exec(ctx, `UPDATE purchases SET supplier_name=$1, transport_id=$2, remark=$3, total_quantity=$4, updated_at=NOW() WHERE id=$5`,
		p.SupplierName, nullID(p.TransportID), p.Remark, p.TotalQuantity, p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "purchase", ID: p.ID}
	}
	if _, err := r.Tx().Exec(ctx, `DELETE FROM purchase_items WHERE purchase_id=$1`, p.ID); err != nil {
		return err
	}
	return insertItems(ctx, r.Tx(), "purchase_items", "purchase_id", p.ID, p.Items)
}

func (r *txRepo) DeletePurchase(ctx context.Context, id int64) error {
	if _, err := r.Tx().Exec(ctx, `DELETE FROM purchase_items WHERE purchase_id=$1`, id); err != nil {
		return err
	}
	tag, err := r.Tx().Exec(ctx, `DELETE FROM purchases WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "purchase", ID: id}
	}
	return nil
}

func (r *txRepo) InsertReturn(ctx context.Context, ret Return) (int64, error) {
	var id int64
	err := r.Tx().QueryRow(ctx, `INSERT INTO purchase_returns (reference, supplier_name, transport_id, remark, total_quantity, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW(),NOW()) RETURNING id`,
		ret.Reference, ret.SupplierName, nullID(ret.TransportID), ret.Remark, ret.TotalQuantity).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, insertItems(ctx, r.Tx(), "purchase_return_items", "return_id", id, ret.Items)
}

func (r *txRepo) GetReturnForUpdate(ctx context.Context, id int64) (Return, error) {
	var ret Return
	var transportID *int64
	err := r.Tx().QueryRow(ctx, `SELECT id, reference, supplier_name, transport_id, remark, total_quantity, created_at, updated_at
FROM purchase_returns WHERE id=$1 FOR UPDATE`, id).
		Scan(&ret.ID, &ret.Reference, &ret.SupplierName, &transportID, &ret.Remark, &ret.TotalQuantity, &ret.CreatedAt, &ret.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Return{}, &shared.NotFoundError{Entity: "purchase return", ID: id}
		}
		return Return{}, err
	}
	if transportID != nil {
		ret.TransportID = *transportID
	}
	ret.Items, err = scanItems(ctx, r.Tx(), "purchase_return_items", "return_id", id)
	return ret, err
}

func (r *txRepo) UpdateReturn(ctx context.Context, ret Return) error {
	tag, err := r.Tx().Exec(ctx, `UPDATE purchase_returns SET supplier_name=$1, transport_id=$2, remark=$3, total_quantity=$4, updated_at=NOW() WHERE id=$5`,
		ret.SupplierName, nullID(ret.TransportID), ret.Remark, ret.TotalQuantity, ret.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "purchase return", ID: ret.ID}
	}
	if _, err := r.Tx().Exec(ctx, `DELETE FROM purchase_return_items WHERE return_id=$1`, ret.ID); err != nil {
		return err
	}
	return insertItems(ctx, r.Tx(), "purchase_return_items", "return_id", ret.ID, ret.Items)
}

func (r *txRepo) DeleteReturn(ctx context.Context, id int64) error {
	if _, err := r.Tx().Exec(ctx, `DELETE FROM purchase_return_items WHERE return_id=$1`, id); err != nil {
		return err
	}
	tag, err := r.Tx().Exec(ctx, `DELETE FROM purchase_returns WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "purchase return", ID: id}
	}
	return nil
}

func (r *txRepo) TransportExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.Tx().QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transports WHERE id=$1)`, id).Scan(&ok)
	return ok, err
}

func insertItems(ctx context.Context, tx pgx.Tx, table, fkColumn string, id int64, items []stock.LineItem) error {
	for _, item := range items {
		_, err := tx.Exec(ctx, `INSERT INTO `+table+` (`+fkColumn+`, product_id, category_id, warehouse_id, quantity)
VALUES ($1,$2,$3,$4,$5)`, id, item.ProductID, item.CategoryID, item.WarehouseID, item.Quantity)
		if err != nil {
			return err
		}
	}
	return nil
}

func scanItems(ctx context.Context, tx pgx.Tx, table, fkColumn string, id int64) ([]stock.LineItem, error) {
	rows, err := tx.Query(ctx, `SELECT product_id, category_id, warehouse_id, quantity FROM `+table+` WHERE `+fkColumn+`=$1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []stock.LineItem
	for rows.Next() {
		var item stock.LineItem
		if err := rows.Scan(&item.ProductID, &item.CategoryID, &item.WarehouseID, &item.Quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// List returns a purchase page; search matches reference or supplier name.
func (r *Repository) List(ctx context.Context, page, limit int, search string) ([]Purchase, int, error) {
	query := `SELECT id, reference, supplier_name, transport_id, remark, total_quantity, created_at, updated_at FROM purchases WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM purchases WHERE 1=1`
	args := []any{}

	if search != "" {
		args = append(args, "%"+search+"%")
		cond := ` AND (reference ILIKE $1 OR supplier_name ILIKE $1)`
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

	var purchases []Purchase
	for rows.Next() {
		var p Purchase
		var transportID *int64
		if err := rows.Scan(&p.ID, &p.Reference, &p.SupplierName, &transportID, &p.Remark, &p.TotalQuantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if transportID != nil {
			p.TransportID = *transportID
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range purchases {
		items, err := r.readItems(ctx, "purchase_items", "purchase_id", purchases[i].ID)
		if err != nil {
			return nil, 0, err
		}
		purchases[i].Items = items
	}
	return purchases, total, nil
}

// Get loads one purchase with its items.
func (r *Repository) Get(ctx context.Context, id int64) (Purchase, error) {
	var p Purchase
	var transportID *int64
	err := r.pool.QueryRow(ctx, `SELECT id, reference, supplier_name, transport_id, remark, total_quantity, created_at, updated_at
FROM purchases WHERE id=$1`, id).
		Scan(&p.ID, &p.Reference, &p.SupplierName, &transportID, &p.Remark, &p.TotalQuantity, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, &shared.NotFoundError{Entity: "purchase", ID: id}
		}
		return Purchase{}, err
	}
	if transportID != nil {
		p.TransportID = *transportID
	}
	p.Items, err = r.readItems(ctx, "purchase_items", "purchase_id", id)
	return p, err
}

// ListReturns returns a purchase-return page.
func (r *Repository) ListReturns(ctx context.Context, page, limit int, search string) ([]Return, int, error) {
	query := `SELECT id, reference, supplier_name, transport_id, remark, total_quantity, created_at, updated_at FROM purchase_returns WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM purchase_returns WHERE 1=1`
	args := []any{}

	if search != "" {
		args = append(args, "%"+search+"%")
		cond := ` AND (reference ILIKE $1 OR supplier_name ILIKE $1)`
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

	var returns []Return
	for rows.Next() {
		var ret Return
		var transportID *int64
		if err := rows.Scan(&ret.ID, &ret.Reference, &ret.SupplierName, &transportID, &ret.Remark, &ret.TotalQuantity, &ret.CreatedAt, &ret.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if transportID != nil {
			ret.TransportID = *transportID
		}
		returns = append(returns, ret)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range returns {
		items, err := r.readItems(ctx, "purchase_return_items", "return_id", returns[i].ID)
		if err != nil {
			return nil, 0, err
		}
		returns[i].Items = items
	}
	return returns, total, nil
}

// GetReturn loads one purchase return with its items.
func (r *Repository) GetReturn(ctx context.Context, id int64) (Return, error) {
	var ret Return
	var transportID *int64
	err := r.pool.QueryRow(ctx, `SELECT id, reference, supplier_name, transport_id, remark, total_quantity, created_at, updated_at
FROM purchase_returns WHERE id=$1`, id).
		Scan(&ret.ID, &ret.Reference, &ret.SupplierName, &transportID, &ret.Remark, &ret.TotalQuantity, &ret.CreatedAt, &ret.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Return{}, &shared.NotFoundError{Entity: "purchase return", ID: id}
		}
		return Return{}, err
	}
	if transportID != nil {
		ret.TransportID = *transportID
	}
	ret.Items, err = r.readItems(ctx, "purchase_return_items", "return_id", id)
	return ret, err
}

func (r *Repository) readItems(ctx context.Context, table, fkColumn string, id int64) ([]stock.LineItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, category_id, warehouse_id, quantity FROM `+table+` WHERE `+fkColumn+`=$1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []stock.LineItem
	for rows.Next() {
		var item stock.LineItem
		if err := rows.Scan(&item.ProductID, &item.CategoryID, &item.WarehouseID, &item.Quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
