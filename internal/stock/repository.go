package stock

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxStore implements Store on top of an open pgx transaction. Event
// repositories embed it so ledger mutations and event-record writes share
// one transaction.
type TxStore struct {
	tx pgx.Tx
}

// NewTxStore wraps a transaction.
func NewTxStore(tx pgx.Tx) *TxStore {
	return &TxStore{tx: tx}
}

// Tx exposes the underlying transaction for sibling repositories.
func (s *TxStore) Tx() pgx.Tx { return s.tx }

func (s *TxStore) GetEntryForUpdate(ctx context.Context, productID, warehouseID int64) (Entry, error) {
	var entry Entry
	var purchaseID *int64
	err := s.tx.QueryRow(ctx, `SELECT id, product_id, category_id, warehouse_id, quantity, purchase_id, updated_at
FROM stock_entries WHERE product_id=$1 AND warehouse_id=$2 FOR UPDATE`, productID, warehouseID).
		Scan(&entry.ID, &entry.ProductID, &entry.CategoryID, &entry.WarehouseID, &entry.Quantity, &purchaseID, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{ProductID: productID, WarehouseID: warehouseID}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	if purchaseID != nil {
		entry.PurchaseID = *purchaseID
	}
	return entry, nil
}

func (s *TxStore) InsertEntry(ctx context.Context, entry Entry) error {
	var purchaseID any
	if entry.PurchaseID != 0 {
		purchaseID = entry.PurchaseID
	}
	_, err := s.tx.Exec(ctx, `INSERT INTO stock_entries (product_id, category_id, warehouse_id, quantity, purchase_id, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW())`, entry.ProductID, entry.CategoryID, entry.WarehouseID, entry.Quantity, purchaseID)
	return err
}

func (s *TxStore) SetEntryQuantity(ctx context.Context, entryID, quantity int64) error {
	_, err := s.tx.Exec(ctx, `UPDATE stock_entries SET quantity=$1, updated_at=NOW() WHERE id=$2`, quantity, entryID)
	return err
}

func (s *TxStore) DeleteEntry(ctx context.Context, entryID int64) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM stock_entries WHERE id=$1`, entryID)
	return err
}

func (s *TxStore) AdjustProduct(ctx context.Context, productID, qtyDelta, soldDelta int64) error {
	tag, err := s.tx.Exec(ctx, `UPDATE products SET quantity = quantity + $1, sold = sold + $2, updated_at=NOW() WHERE id=$3`,
		qtyDelta, soldDelta, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound("product", productID)
	}
	return nil
}

func (s *TxStore) ProductExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id=$1)`, id)
}

func (s *TxStore) CategoryExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id=$1)`, id)
}

func (s *TxStore) WarehouseExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM warehouses WHERE id=$1)`, id)
}

func (s *TxStore) exists(ctx context.Context, query string, id int64) (bool, error) {
	var ok bool
	err := s.tx.QueryRow(ctx, query, id).Scan(&ok)
	return ok, err
}

// Repository serves the read side of the stock grid.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn against a Store bound to one repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(ctx, NewTxStore(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// List returns the stock grid with joined reference names.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]EntryView, int, error) {
	query := `SELECT s.id, s.product_id, p.name, s.category_id, c.name, s.warehouse_id, w.name, s.quantity
FROM stock_entries s
JOIN products p ON p.id = s.product_id
JOIN categories c ON c.id = s.category_id
JOIN warehouses w ON w.id = s.warehouse_id
WHERE 1=1`
	countQuery := `SELECT COUNT(*)
FROM stock_entries s
JOIN products p ON p.id = s.product_id
WHERE 1=1`
	args := []any{}
	countArgs := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		query += ` AND p.name ILIKE $` + strconv.Itoa(argCount)
		args = append(args, "%"+filters.Search+"%")
		countArgs = append(countArgs, "%"+filters.Search+"%")
		countQuery += ` AND p.name ILIKE $` + strconv.Itoa(len(countArgs))
	}
	if filters.WarehouseID > 0 {
		argCount++
		query += ` AND s.warehouse_id = $` + strconv.Itoa(argCount)
		args = append(args, filters.WarehouseID)
		countArgs = append(countArgs, filters.WarehouseID)
		countQuery += ` AND s.warehouse_id = $` + strconv.Itoa(len(countArgs))
	}
	if filters.CategoryID > 0 {
		argCount++
		query += ` AND s.category_id = $` + strconv.Itoa(argCount)
		args = append(args, filters.CategoryID)
		countArgs = append(countArgs, filters.CategoryID)
		countQuery += ` AND s.category_id = $` + strconv.Itoa(len(countArgs))
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY p.name ASC, w.name ASC`
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

	var views []EntryView
	for rows.Next() {
		var v EntryView
		if err := rows.Scan(&v.ID, &v.ProductID, &v.ProductName, &v.CategoryID, &v.CategoryName, &v.WarehouseID, &v.WarehouseName, &v.Quantity); err != nil {
			return nil, 0, err
		}
		views = append(views, v)
	}
	return views, total, rows.Err()
}

// ProductTotals compares the denormalised product counter with the summed
// ledger entries; used by the reconciliation job.
type ProductTotals struct {
	ProductID   int64
	ProductName string
	Counter     int64
	LedgerSum   int64
}

// ListProductTotals returns every product alongside its ledger sum.
func (r *Repository) ListProductTotals(ctx context.Context) ([]ProductTotals, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.name, p.quantity, COALESCE(SUM(s.quantity), 0)
FROM products p
LEFT JOIN stock_entries s ON s.product_id = p.id
GROUP BY p.id, p.name, p.quantity
ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []ProductTotals
	for rows.Next() {
		var t ProductTotals
		if err := rows.Scan(&t.ProductID, &t.ProductName, &t.Counter, &t.LedgerSum); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
