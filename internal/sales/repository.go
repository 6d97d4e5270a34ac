package sales

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/stockline-erp/stockline/internal/shared"
	"github.com/stockline-erp/stockline/internal/stock"
)

// TxRepository binds the ledger store and the sale record writes to one
// transaction.
type TxRepository interface {
	stock.Store

	InsertSale(ctx context.Context, s Sale) (int64, error)
	GetSaleForUpdate(ctx context.Context, id int64) (Sale, error)
	UpdateSale(ctx context.Context, s Sale) error
	DeleteSale(ctx context.Context, id int64) error

	InsertReturn(ctx context.Context, r Return) (int64, error)
	GetReturnForUpdate(ctx context.Context, id int64) (Return, error)
	UpdateReturn(ctx context.Context, r Return) error
	DeleteReturn(ctx context.Context, id int64) error

	CustomerExists(ctx context.Context, id int64) (bool, error)
	TransportExists(ctx context.Context, id int64) (bool, error)
	PriceTotal(ctx context.Context, items []stock.LineItem) (decimal.Decimal, error)
}

// Repository owns sale persistence.
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

func (r *txRepo) InsertSale(ctx context.Context, s Sale) (int64, error) {
	var id int64
	err := r.Tx().QueryRow(ctx, `INSERT INTO sales (reference, customer_id, transport_id, remark, total_quantity, total_amount, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW()) RETURNING id`,
		s.Reference, s.CustomerID, nullID(s.TransportID), s.Remark, s.TotalQuantity, s.TotalAmount).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, insertItems(ctx, r.Tx(), "sale_items", "sale_id", id, s.Items)
}

func (r *txRepo) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	var s Sale
	var transportID *int64
	err := r.Tx().QueryRow(ctx, `SELECT id, reference, customer_id, transport_id, remark, total_quantity, total_amount, created_at, updated_at
FROM sales WHERE id=$1 FOR UPDATE`, id).
		Scan(&s.ID, &s.Reference, &s.CustomerID, &transportID, &s.Remark, &s.TotalQuantity, &s.TotalAmount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, &shared.NotFoundError{Entity: "sale", ID: id}
		}
		return Sale{}, err
	}
	if transportID != nil {
		s.TransportID = *transportID
	}
	s.Items, err = scanItems(ctx, r.Tx(), "sale_items", "sale_id", id)
	return s, err
}

func (r *txRepo) UpdateSale(ctx context.Context, s Sale) error {
	tag, err := r.Tx().Exec(ctx, `UPDATE sales SET customer_id=$1, transport_id=$2, remark=$3, total_quantity=$4, total_amount=$5, updated_at=NOW() WHERE id=$6`,
		s.CustomerID, nullID(s.TransportID), s.Remark, s.TotalQuantity, s.TotalAmount, s.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "sale", ID: s.ID}
	}
	if _, err := r.Tx().Exec(ctx, `DELETE FROM sale_items WHERE sale_id=$1`, s.ID); err != nil {
		return err
	}
	return insertItems(ctx, r.Tx(), "sale_items", "sale_id", s.ID, s.Items)
}

func (r *txRepo) DeleteSale(ctx context.Context, id int64) error {
	if _, err := r.Tx().Exec(ctx, `DELETE FROM sale_items WHERE sale_id=$1`, id); err != nil {
		return err
	}
	tag, err := r.Tx().Exec(ctx, `DELETE FROM sales WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "sale", ID: id}
	}
	return nil
}

func (r *txRepo) InsertReturn(ctx context.Context, ret Return) (int64, error) {
	var id int64
	err := r.Tx().QueryRow(ctx, `INSERT INTO sale_returns (reference, customer_id, transport_id, remark, total_quantity, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW(),NOW()) RETURNING id`,
		ret.Reference, ret.CustomerID, nullID(ret.TransportID), ret.Remark, ret.TotalQuantity).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, insertItems(ctx, r.Tx(), "sale_return_items", "return_id", id, ret.Items)
}

func (r *txRepo) GetReturnForUpdate(ctx context.Context, id int64) (Return, error) {
	var ret Return
	var transportID *int64
	err := r.Tx().QueryRow(ctx, `SELECT id, reference, customer_id, transport_id, remark, total_quantity, created_at, updated_at
FROM sale_returns WHERE id=$1 FOR UPDATE`, id).
		Scan(&ret.ID, &ret.Reference, &ret.CustomerID, &transportID, &ret.Remark, &ret.TotalQuantity, &ret.CreatedAt, &ret.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Return{}, &shared.NotFoundError{Entity: "sale return", ID: id}
		}
		return Return{}, err
	}
	if transportID != nil {
		ret.TransportID = *transportID
	}
	ret.Items, err = scanItems(ctx, r.Tx(), "sale_return_items", "return_id", id)
	return ret, err
}

func (r *txRepo) UpdateReturn(ctx context.Context, ret Return) error {
	tag, err := r.Tx().Exec(ctx, `UPDATE sale_returns SET customer_id=$1, transport_id=$2, remark=$3, total_quantity=$4, updated_at=NOW() WHERE id=$5`,
		ret.CustomerID, nullID(ret.TransportID), ret.Remark, ret.TotalQuantity, ret.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "sale return", ID: ret.ID}
	}
	if _, err := r.Tx().Exec(ctx, `DELETE FROM sale_return_items WHERE return_id=$1`, ret.ID); err != nil {
		return err
	}
	return insertItems(ctx, r.Tx(), "sale_return_items", "return_id", ret.ID, ret.Items)
}

func (r *txRepo) DeleteReturn(ctx context.Context, id int64) error {
	if _, err := r.Tx().Exec(ctx, `DELETE FROM sale_return_items WHERE return_id=$1`, id); err != nil {
		return err
	}
	tag, err := r.Tx().Exec(ctx, `DELETE FROM sale_returns WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "sale return", ID: id}
	}
	return nil
}

func (r *txRepo) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.Tx().QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id=$1)`, id).Scan(&ok)
	return ok, err
}

func (r *txRepo) TransportExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.Tx().QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transports WHERE id=$1)`, id).Scan(&ok)
	return ok, err
}

// PriceTotal sums quantity * current product price over the line items.
func (r *txRepo) PriceTotal(ctx context.Context, items []stock.LineItem) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, item := range items {
		var price decimal.Decimal
		err := r.Tx().QueryRow(ctx, `SELECT price FROM products WHERE id=$1`, item.ProductID).Scan(&price)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return decimal.Zero, &shared.NotFoundError{Entity: "product", ID: item.ProductID}
			}
			return decimal.Zero, err
		}
		total = total.Add(price.Mul(decimal.NewFromInt(item.Quantity)))
	}
	return total, nil
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

// List returns a sale page with customer names joined; search matches the
// reference or customer name.
func (r *Repository) List(ctx context.Context, page, limit int, search string) ([]Sale, int, error) {
	query := `SELECT s.id, s.reference, s.customer_id, cu.name, s.transport_id, s.remark, s.total_quantity, s.total_amount, s.created_at, s.updated_at
FROM sales s
JOIN customers cu ON cu.id = s.customer_id
WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM sales s JOIN customers cu ON cu.id = s.customer_id WHERE 1=1`
	args := []any{}

	if search != "" {
		args = append(args, "%"+search+"%")
		cond := ` AND (s.reference ILIKE $1 OR cu.name ILIKE $1)`
		query += cond
		countQuery += cond
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY s.created_at DESC, s.id DESC`
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

	var sales []Sale
	for rows.Next() {
		var s Sale
		var transportID *int64
		if err := rows.Scan(&s.ID, &s.Reference, &s.CustomerID, &s.CustomerName, &transportID, &s.Remark, &s.TotalQuantity, &s.TotalAmount, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if transportID != nil {
			s.TransportID = *transportID
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range sales {
		items, err := r.readItems(ctx, "sale_items", "sale_id", sales[i].ID)
		if err != nil {
			return nil, 0, err
		}
		sales[i].Items = items
	}
	return sales, total, nil
}

// Get loads one sale with its items.
func (r *Repository) Get(ctx context.Context, id int64) (Sale, error) {
	var s Sale
	var transportID *int64
	err := r.pool.QueryRow(ctx, `SELECT s.id, s.reference, s.customer_id, cu.name, s.transport_id, s.remark, s.total_quantity, s.total_amount, s.created_at, s.updated_at
FROM sales s JOIN customers cu ON cu.id = s.customer_id WHERE s.id=$1`, id).
		Scan(&s.ID, &s.Reference, &s.CustomerID, &s.CustomerName, &transportID, &s.Remark, &s.TotalQuantity, &s.TotalAmount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, &shared.NotFoundError{Entity: "sale", ID: id}
		}
		return Sale{}, err
	}
	if transportID != nil {
		s.TransportID = *transportID
	}
	s.Items, err = r.readItems(ctx, "sale_items", "sale_id", id)
	return s, err
}

// ListReturns returns a sale-return page.
func (r *Repository) ListReturns(ctx context.Context, page, limit int, search string) ([]Return, int, error) {
	query := `SELECT s.id, s.reference, s.customer_id, cu.name, s.transport_id, s.remark, s.total_quantity, s.created_at, s.updated_at
FROM sale_returns s
JOIN customers cu ON cu.id = s.customer_id
WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM sale_returns s JOIN customers cu ON cu.id = s.customer_id WHERE 1=1`
	args := []any{}

	if search != "" {
		args = append(args, "%"+search+"%")
		cond := ` AND (s.reference ILIKE $1 OR cu.name ILIKE $1)`
		query += cond
		countQuery += cond
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY s.created_at DESC, s.id DESC`
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
		if err := rows.Scan(&ret.ID, &ret.Reference, &ret.CustomerID, &ret.CustomerName, &transportID, &ret.Remark, &ret.TotalQuantity, &ret.CreatedAt, &ret.UpdatedAt); err != nil {
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
		items, err := r.readItems(ctx, "sale_return_items", "return_id", returns[i].ID)
		if err != nil {
			return nil, 0, err
		}
		returns[i].Items = items
	}
	return returns, total, nil
}

// GetReturn loads one sale return with its items.
func (r *Repository) GetReturn(ctx context.Context, id int64) (Return, error) {
	var ret Return
	var transportID *int64
	err := r.pool.QueryRow(ctx, `SELECT s.id, s.reference, s.customer_id, cu.name, s.transport_id, s.remark, s.total_quantity, s.created_at, s.updated_at
FROM sale_returns s JOIN customers cu ON cu.id = s.customer_id WHERE s.id=$1`, id).
		Scan(&ret.ID, &ret.Reference, &ret.CustomerID, &ret.CustomerName, &transportID, &ret.Remark, &ret.TotalQuantity, &ret.CreatedAt, &ret.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Return{}, &shared.NotFoundError{Entity: "sale return", ID: id}
		}
		return Return{}, err
	}
	if transportID != nil {
		ret.TransportID = *transportID
	}
	ret.Items, err = r.readItems(ctx, "sale_return_items", "return_id", id)
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
