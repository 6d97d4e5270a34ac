package sales

import (
	"context"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/stockline-erp/stockline/internal/shared"
	"github.com/stockline-erp/stockline/internal/stock"
)

type pair struct{ product, warehouse int64 }

type counters struct {
	quantity, sold int64
	price          decimal.Decimal
}

type memState struct {
	nextEntryID int64
	entries     map[pair]stock.Entry
	products    map[int64]*counters
	categories  map[int64]bool
	warehouses  map[int64]bool
	customers   map[int64]bool
	transports  map[int64]bool

	nextID  int64
	sales   map[int64]Sale
	returns map[int64]Return
}

func newMemState() *memState {
	return &memState{
		entries:    make(map[pair]stock.Entry),
		products:   make(map[int64]*counters),
		categories: make(map[int64]bool),
		warehouses: make(map[int64]bool),
		customers:  make(map[int64]bool),
		transports: make(map[int64]bool),
		sales:      make(map[int64]Sale),
		returns:    make(map[int64]Return),
	}
}

func (m *memState) clone() *memState {
	c := newMemState()
	c.nextEntryID = m.nextEntryID
	c.nextID = m.nextID
	for k, v := range m.entries {
		c.entries[k] = v
	}
	for k, v := range m.products {
		cp := *v
		c.products[k] = &cp
	}
	for k, v := range m.categories {
		c.categories[k] = v
	}
	for k, v := range m.warehouses {
		c.warehouses[k] = v
	}
	for k, v := range m.customers {
		c.customers[k] = v
	}
	for k, v := range m.transports {
		c.transports[k] = v
	}
	for k, v := range m.sales {
		c.sales[k] = v
	}
	for k, v := range m.returns {
		c.returns[k] = v
	}
	return c
}

type fakeRepo struct {
	st *memState
}

func (f *fakeRepo) WithTx(_ context.Context, fn func(context.Context, TxRepository) error) error {
	working := f.st.clone()
	if err := fn(context.Background(), &fakeTx{st: working}); err != nil {
		return err
	}
	f.st = working
	return nil
}

func (f *fakeRepo) List(_ context.Context, _, _ int, _ string) ([]Sale, int, error) {
	out := make([]Sale, 0, len(f.st.sales))
	for _, s := range f.st.sales {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Sale, error) {
	s, ok := f.st.sales[id]
	if !ok {
		return Sale{}, &shared.NotFoundError{Entity: "sale", ID: id}
	}
	return s, nil
}

func (f *fakeRepo) ListReturns(_ context.Context, _, _ int, _ string) ([]Return, int, error) {
	out := make([]Return, 0, len(f.st.returns))
	for _, r := range f.st.returns {
		out = append(out, r)
	}
	return out, len(out), nil
}

func (f *fakeRepo) GetReturn(_ context.Context, id int64) (Return, error) {
	r, ok := f.st.returns[id]
	if !ok {
		return Return{}, &shared.NotFoundError{Entity: "sale return", ID: id}
	}
	return r, nil
}

type fakeTx struct {
	st *memState
}

func (t *fakeTx) GetEntryForUpdate(_ context.Context, productID, warehouseID int64) (stock.Entry, error) {
	if e, ok := t.st.entries[pair{productID, warehouseID}]; ok {
		return e, nil
	}
	return stock.Entry{ProductID: productID, WarehouseID: warehouseID}, stock.ErrEntryNotFound
}

func (t *fakeTx) InsertEntry(_ context.Context, entry stock.Entry) error {
	t.st.nextEntryID++
	entry.ID = t.st.nextEntryID
	t.st.entries[pair{entry.ProductID, entry.WarehouseID}] = entry
	return nil
}

func (t *fakeTx) SetEntryQuantity(_ context.Context, entryID, quantity int64) error {
	for k, e := range t.st.entries {
		if e.ID == entryID {
			e.Quantity = quantity
			t.st.entries[k] = e
			return nil
		}
	}
	return stock.ErrEntryNotFound
}

func (t *fakeTx) DeleteEntry(_ context.Context, entryID int64) error {
	for k, e := range t.st.entries {
		if e.ID == entryID {
			delete(t.st.entries, k)
			return nil
		}
	}
	return nil
}

func (t *fakeTx) AdjustProduct(_ context.Context, productID, qtyDelta, soldDelta int64) error {
	p, ok := t.st.products[productID]
	if !ok {
		return &shared.NotFoundError{Entity: "product", ID: productID}
	}
	p.quantity += qtyDelta
	p.sold += soldDelta
	return nil
}

func (t *fakeTx) ProductExists(_ context.Context, id int64) (bool, error) {
	_, ok := t.st.products[id]
	return ok, nil
}

func (t *fakeTx) CategoryExists(_ context.Context, id int64) (bool, error) {
	return t.st.categories[id], nil
}

func (t *fakeTx) WarehouseExists(_ context.Context, id int64) (bool, error) {
	return t.st.warehouses[id], nil
}

func (t *fakeTx) InsertSale(_ context.Context, s Sale) (int64, error) {
	t.st.nextID++
	s.ID = t.st.nextID
	t.st.sales[s.ID] = s
	return s.ID, nil
}

func (t *fakeTx) GetSaleForUpdate(_ context.Context, id int64) (Sale, error) {
	s, ok := t.st.sales[id]
	if !ok {
		return Sale{}, &shared.NotFoundError{Entity: "sale", ID: id}
	}
	return s, nil
}

func (t *fakeTx) UpdateSale(_ context.Context, s Sale) error {
	if _, ok := t.st.sales[s.ID]; !ok {
		return &shared.NotFoundError{Entity: "sale", ID: s.ID}
	}
	t.st.sales[s.ID] = s
	return nil
}

func (t *fakeTx) DeleteSale(_ context.Context, id int64) error {
	if _, ok := t.st.sales[id]; !ok {
		return &shared.NotFoundError{Entity: "sale", ID: id}
	}
	delete(t.st.sales, id)
	return nil
}

func (t *fakeTx) InsertReturn(_ context.Context, r Return) (int64, error) {
	t.st.nextID++
	r.ID = t.st.nextID
	t.st.returns[r.ID] = r
	return r.ID, nil
}

func (t *fakeTx) GetReturnForUpdate(_ context.Context, id int64) (Return, error) {
	r, ok := t.st.returns[id]
	if !ok {
		return Return{}, &shared.NotFoundError{Entity: "sale return", ID: id}
	}
	return r, nil
}

func (t *fakeTx) UpdateReturn(_ context.Context, r Return) error {
	if _, ok := t.st.returns[r.ID]; !ok {
		return &shared.NotFoundError{Entity: "sale return", ID: r.ID}
	}
	t.st.returns[r.ID] = r
	return nil
}

func (t *fakeTx) DeleteReturn(_ context.Context, id int64) error {
	if _, ok := t.st.returns[id]; !ok {
		return &shared.NotFoundError{Entity: "sale return", ID: id}
	}
	delete(t.st.returns, id)
	return nil
}

func (t *fakeTx) CustomerExists(_ context.Context, id int64) (bool, error) {
	return t.st.customers[id], nil
}

func (t *fakeTx) TransportExists(_ context.Context, id int64) (bool, error) {
	return t.st.transports[id], nil
}

func (t *fakeTx) PriceTotal(_ context.Context, items []stock.LineItem) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, item := range items {
		p, ok := t.st.products[item.ProductID]
		if !ok {
			return decimal.Zero, &shared.NotFoundError{Entity: "product", ID: item.ProductID}
		}
		total = total.Add(p.price.Mul(decimal.NewFromInt(item.Quantity)))
	}
	return total, nil
}

func testService() (*Service, *fakeRepo) {
	st := newMemState()
	st.products[1] = &counters{quantity: 10, price: decimal.NewFromFloat(2.50)}
	st.categories[10] = true
	st.warehouses[100] = true
	st.customers[7] = true
	st.transports[5] = true
	st.entries[pair{1, 100}] = stock.Entry{ID: 1, ProductID: 1, CategoryID: 10, WarehouseID: 100, Quantity: 10}
	st.nextEntryID = 1
	repo := &fakeRepo{st: st}
	svc := NewService(slog.Default(), repo, stock.NewLedger(slog.Default(), nil), nil, nil, nil)
	return svc, repo
}

func lineItem(qty int64) stock.LineItem {
	return stock.LineItem{ProductID: 1, CategoryID: 10, WarehouseID: 100, Quantity: qty}
}

func TestCreateSaleDecreasesStockAndPricesItems(t *testing.T) {
	svc, repo := testService()

	sale, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 7,
		Items:      []stock.LineItem{lineItem(4)},
	})
	require.NoError(t, err)
	require.Equal(t, int64(4), sale.TotalQuantity)
	require.True(t, sale.TotalAmount.Equal(decimal.NewFromInt(10)), "4 units at 2.50 each")

	require.Equal(t, int64(6), repo.st.entries[pair{1, 100}].Quantity)
	require.Equal(t, int64(6), repo.st.products[1].quantity)
	require.Equal(t, int64(4), repo.st.products[1].sold)
}

func TestCreateSaleShortageRejected(t *testing.T) {
	svc, repo := testService()

	_, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 7,
		Items:      []stock.LineItem{lineItem(12)},
	})
	var shortage *shared.ShortageError
	require.ErrorAs(t, err, &shortage)
	require.Equal(t, int64(10), shortage.Available)
	require.Equal(t, int64(12), shortage.Required)
	require.Equal(t, int64(2), shortage.Shortage)

	require.Equal(t, int64(10), repo.st.entries[pair{1, 100}].Quantity)
	require.Empty(t, repo.st.sales)
}

func TestCreateSaleUnknownCustomerRollsBack(t *testing.T) {
	svc, repo := testService()

	_, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 999,
		Items:      []stock.LineItem{lineItem(1)},
	})
	var notFound *shared.NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "customer", notFound.Entity)
	require.Equal(t, int64(10), repo.st.entries[pair{1, 100}].Quantity)
	require.Empty(t, repo.st.sales)
}

func TestDeleteSaleRestoresStockAndSoldCounter(t *testing.T) {
	svc, repo := testService()
	ctx := context.Background()

	sale, err := svc.Create(ctx, CreateInput{CustomerID: 7, Items: []stock.LineItem{lineItem(4)}})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, sale.ID))
	require.Equal(t, int64(10), repo.st.entries[pair{1, 100}].Quantity)
	require.Equal(t, int64(10), repo.st.products[1].quantity)
	require.Equal(t, int64(0), repo.st.products[1].sold)
	require.Empty(t, repo.st.sales)
}

func TestUpdateSaleReversesThenReapplies(t *testing.T) {
	svc, repo := testService()
	ctx := context.Background()

	sale, err := svc.Create(ctx, CreateInput{CustomerID: 7, Items: []stock.LineItem{lineItem(4)}})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, sale.ID, CreateInput{CustomerID: 7, Items: []stock.LineItem{lineItem(9)}})
	require.NoError(t, err)
	require.Equal(t, int64(9), updated.TotalQuantity)
	require.Equal(t, int64(1), repo.st.entries[pair{1, 100}].Quantity)
	require.Equal(t, int64(9), repo.st.products[1].sold)
}

func TestCreateReturnRestocksAndUncountsSold(t *testing.T) {
	svc, repo := testService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{CustomerID: 7, Items: []stock.LineItem{lineItem(6)}})
	require.NoError(t, err)

	ret, err := svc.CreateReturn(ctx, CreateInput{CustomerID: 7, Items: []stock.LineItem{lineItem(2)}})
	require.NoError(t, err)
	require.Equal(t, int64(2), ret.TotalQuantity)
	require.Equal(t, int64(6), repo.st.entries[pair{1, 100}].Quantity)
	require.Equal(t, int64(4), repo.st.products[1].sold)

	// Deleting the return takes the goods back out and re-counts them as sold.
	require.NoError(t, svc.DeleteReturn(ctx, ret.ID))
	require.Equal(t, int64(4), repo.st.entries[pair{1, 100}].Quantity)
	require.Equal(t, int64(6), repo.st.products[1].sold)
}

func TestSellToZeroDeletesEntryThenReturnRecreatesIt(t *testing.T) {
	svc, repo := testService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{CustomerID: 7, Items: []stock.LineItem{lineItem(10)}})
	require.NoError(t, err)
	_, ok := repo.st.entries[pair{1, 100}]
	require.False(t, ok, "a drained pair loses its row")

	_, err = svc.CreateReturn(ctx, CreateInput{CustomerID: 7, Items: []stock.LineItem{lineItem(3)}})
	require.NoError(t, err)
	require.Equal(t, int64(3), repo.st.entries[pair{1, 100}].Quantity)
	require.Equal(t, int64(7), repo.st.products[1].sold)
}
