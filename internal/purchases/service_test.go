package purchases

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stockline-erp/stockline/internal/shared"
	"github.com/stockline-erp/stockline/internal/stock"
)

type pair struct{ product, warehouse int64 }

type counters struct{ quantity, sold int64 }

type memState struct {
	nextEntryID int64
	entries     map[pair]stock.Entry
	products    map[int64]*counters
	categories  map[int64]bool
	warehouses  map[int64]bool
	transports  map[int64]bool

	nextID    int64
	purchases map[int64]Purchase
	returns   map[int64]Return
}

func newMemState() *memState {
	return &memState{
		entries:    make(map[pair]stock.Entry),
		products:   make(map[int64]*counters),
		categories: make(map[int64]bool),
		warehouses: make(map[int64]bool),
		transports: make(map[int64]bool),
		purchases:  make(map[int64]Purchase),
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
	for k, v := range m.transports {
		c.transports[k] = v
	}
	for k, v := range m.purchases {
		c.purchases[k] = v
	}
	for k, v := range m.returns {
		c.returns[k] = v
	}
	return c
}

type fakeRepo struct {
	st *memState
}

// WithTx mimics transactional semantics: a failed fn leaves state untouched.
func (f *fakeRepo) WithTx(_ context.Context, fn func(context.Context, TxRepository) error) error {
	working := f.st.clone()
	if err := fn(context.Background(), &fakeTx{st: working}); err != nil {
		return err
	}
	f.st = working
	return nil
}

func (f *fakeRepo) List(_ context.Context, _, _ int, _ string) ([]Purchase, int, error) {
	out := make([]Purchase, 0, len(f.st.purchases))
	for _, p := range f.st.purchases {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Purchase, error) {
	p, ok := f.st.purchases[id]
	if !ok {
		return Purchase{}, &shared.NotFoundError{Entity: "purchase", ID: id}
	}
	return p, nil
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
		return Return{}, &shared.NotFoundError{Entity: "purchase return", ID: id}
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

func (t *fakeTx) TransportExists(_ context.Context, id int64) (bool, error) {
	return t.st.transports[id], nil
}

func (t *fakeTx) InsertPurchase(_ context.Context, p Purchase) (int64, error) {
	t.st.nextID++
	p.ID = t.st.nextID
	t.st.purchases[p.ID] = p
	return p.ID, nil
}

func (t *fakeTx) GetPurchaseForUpdate(_ context.Context, id int64) (Purchase, error) {
	p, ok := t.st.purchases[id]
	if !ok {
		return Purchase{}, &shared.NotFoundError{Entity: "purchase", ID: id}
	}
	return p, nil
}

func (t *fakeTx) UpdatePurchase(_ context.Context, p Purchase) error {
	if _, ok := t.st.purchases[p.ID]; !ok {
		return &shared.NotFoundError{Entity: "purchase", ID: p.ID}
	}
	existing := t.st.purchases[p.ID]
	p.Reference = existing.Reference
	t.st.purchases[p.ID] = p
	return nil
}

func (t *fakeTx) DeletePurchase(_ context.Context, id int64) error {
	if _, ok := t.st.purchases[id]; !ok {
		return &shared.NotFoundError{Entity: "purchase", ID: id}
	}
	delete(t.st.purchases, id)
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
		return Return{}, &shared.NotFoundError{Entity: "purchase return", ID: id}
	}
	return r, nil
}

func (t *fakeTx) UpdateReturn(_ context.Context, r Return) error {
	if _, ok := t.st.returns[r.ID]; !ok {
		return &shared.NotFoundError{Entity: "purchase return", ID: r.ID}
	}
	t.st.returns[r.ID] = r
	return nil
}

func (t *fakeTx) DeleteReturn(_ context.Context, id int64) error {
	if _, ok := t.st.returns[id]; !ok {
		return &shared.NotFoundError{Entity: "purchase return", ID: id}
	}
	delete(t.st.returns, id)
	return nil
}

func testService() (*Service, *fakeRepo) {
	st := newMemState()
	st.products[1] = &counters{}
	st.products[2] = &counters{}
	st.categories[10] = true
	st.warehouses[100] = true
	st.transports[5] = true
	repo := &fakeRepo{st: st}
	svc := NewService(slog.Default(), repo, stock.NewLedger(slog.Default(), nil), nil, nil, nil)
	return svc, repo
}

func lineItem(productID, qty int64) stock.LineItem {
	return stock.LineItem{ProductID: productID, CategoryID: 10, WarehouseID: 100, Quantity: qty}
}

func TestCreatePurchaseAppliesIncrease(t *testing.T) {
	svc, repo := testService()

	p, err := svc.Create(context.Background(), CreateInput{
		SupplierName: "Acme Traders",
		TransportID:  5,
		Items:        []stock.LineItem{lineItem(1, 10), lineItem(2, 4)},
	})
	require.NoError(t, err)
	require.NotEmpty(t, p.Reference)
	require.Equal(t, int64(14), p.TotalQuantity)

	require.Equal(t, int64(10), repo.st.entries[pair{1, 100}].Quantity)
	require.Equal(t, int64(4), repo.st.entries[pair{2, 100}].Quantity)
	require.Equal(t, int64(10), repo.st.products[1].quantity)
	require.Equal(t, p.ID, repo.st.entries[pair{1, 100}].PurchaseID)
}

func TestCreatePurchaseRequiresSupplier(t *testing.T) {
	svc, _ := testService()
	_, err := svc.Create(context.Background(), CreateInput{Items: []stock.LineItem{lineItem(1, 1)}})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestCreatePurchaseUnknownTransport(t *testing.T) {
	svc, repo := testService()
	_, err := svc.Create(context.Background(), CreateInput{
		SupplierName: "Acme Traders",
		TransportID:  99,
		Items:        []stock.LineItem{lineItem(1, 1)},
	})
	var notFoundErr *shared.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
	require.Equal(t, "transport", notFoundErr.Entity)
	require.Empty(t, repo.st.entries)
	require.Empty(t, repo.st.purchases)
}

func TestUpdatePurchaseReversesThenReapplies(t *testing.T) {
	svc, repo := testService()
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateInput{SupplierName: "Acme Traders", Items: []stock.LineItem{lineItem(1, 10)}})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, p.ID, CreateInput{SupplierName: "Acme Traders", Items: []stock.LineItem{lineItem(1, 3)}})
	require.NoError(t, err)
	require.Equal(t, int64(3), updated.TotalQuantity)
	require.Equal(t, int64(3), repo.st.entries[pair{1, 100}].Quantity)
	require.Equal(t, int64(3), repo.st.products[1].quantity)
}

func TestUpdatePurchaseBlockedWhenStockConsumed(t *testing.T) {
	svc, repo := testService()
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateInput{SupplierName: "Acme Traders", Items: []stock.LineItem{lineItem(1, 10)}})
	require.NoError(t, err)

	// Something else drained the stock this purchase brought in; the edit's
	// reversal would now drive the entry negative and must be rejected whole.
	entry := repo.st.entries[pair{1, 100}]
	entry.Quantity = 2
	repo.st.entries[pair{1, 100}] = entry
	repo.st.products[1].quantity = 2

	_, err = svc.Update(ctx, p.ID, CreateInput{SupplierName: "Acme Traders", Items: []stock.LineItem{lineItem(1, 1)}})
	var shortage *shared.ShortageError
	require.ErrorAs(t, err, &shortage)
	require.Equal(t, int64(2), shortage.Available)
	require.Equal(t, int64(10), shortage.Required)

	require.Equal(t, int64(2), repo.st.entries[pair{1, 100}].Quantity)
	require.Equal(t, int64(10), repo.st.purchases[p.ID].TotalQuantity)
}

func TestDeletePurchaseReversesStock(t *testing.T) {
	svc, repo := testService()
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateInput{SupplierName: "Acme Traders", Items: []stock.LineItem{lineItem(1, 6)}})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, ok := repo.st.entries[pair{1, 100}]
	require.False(t, ok)
	require.Equal(t, int64(0), repo.st.products[1].quantity)
	require.Empty(t, repo.st.purchases)
}

func TestCreateReturnDecreasesStockAndCountsSold(t *testing.T) {
	svc, repo := testService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{SupplierName: "Acme Traders", Items: []stock.LineItem{lineItem(1, 10)}})
	require.NoError(t, err)

	ret, err := svc.CreateReturn(ctx, CreateInput{SupplierName: "Acme Traders", Items: []stock.LineItem{lineItem(1, 4)}})
	require.NoError(t, err)
	require.Equal(t, int64(4), ret.TotalQuantity)

	require.Equal(t, int64(6), repo.st.entries[pair{1, 100}].Quantity)
	require.Equal(t, int64(6), repo.st.products[1].quantity)
	require.Equal(t, int64(4), repo.st.products[1].sold)

	require.NoError(t, svc.DeleteReturn(ctx, ret.ID))
	require.Equal(t, int64(10), repo.st.entries[pair{1, 100}].Quantity)
	require.Equal(t, int64(0), repo.st.products[1].sold)
}

func TestCreateReturnShortageRejected(t *testing.T) {
	svc, repo := testService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{SupplierName: "Acme Traders", Items: []stock.LineItem{lineItem(1, 3)}})
	require.NoError(t, err)

	_, err = svc.CreateReturn(ctx, CreateInput{SupplierName: "Acme Traders", Items: []stock.LineItem{lineItem(1, 5)}})
	var shortage *shared.ShortageError
	require.ErrorAs(t, err, &shortage)
	require.Equal(t, int64(2), shortage.Shortage)
	require.Equal(t, int64(3), repo.st.entries[pair{1, 100}].Quantity)
	require.Empty(t, repo.st.returns)
}
