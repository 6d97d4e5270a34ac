package exchanges

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

	nextID    int64
	exchanges map[int64]Exchange
}

func newMemState() *memState {
	return &memState{
		entries:    make(map[pair]stock.Entry),
		products:   make(map[int64]*counters),
		categories: make(map[int64]bool),
		warehouses: make(map[int64]bool),
		exchanges:  make(map[int64]Exchange),
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
	for k, v := range m.exchanges {
		c.exchanges[k] = v
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

func (f *fakeRepo) List(_ context.Context, _, _ int, _ string) ([]Exchange, int, error) {
	out := make([]Exchange, 0, len(f.st.exchanges))
	for _, e := range f.st.exchanges {
		out = append(out, e)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Exchange, error) {
	e, ok := f.st.exchanges[id]
	if !ok {
		return Exchange{}, &shared.NotFoundError{Entity: "product exchange", ID: id}
	}
	return e, nil
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

func (t *fakeTx) InsertExchange(_ context.Context, e Exchange) (int64, error) {
	t.st.nextID++
	e.ID = t.st.nextID
	t.st.exchanges[e.ID] = e
	return e.ID, nil
}

func (t *fakeTx) GetExchangeForUpdate(_ context.Context, id int64) (Exchange, error) {
	e, ok := t.st.exchanges[id]
	if !ok {
		return Exchange{}, &shared.NotFoundError{Entity: "product exchange", ID: id}
	}
	return e, nil
}

func (t *fakeTx) UpdateExchange(_ context.Context, e Exchange) error {
	if _, ok := t.st.exchanges[e.ID]; !ok {
		return &shared.NotFoundError{Entity: "product exchange", ID: e.ID}
	}
	t.st.exchanges[e.ID] = e
	return nil
}

func (t *fakeTx) DeleteExchange(_ context.Context, id int64) error {
	if _, ok := t.st.exchanges[id]; !ok {
		return &shared.NotFoundError{Entity: "product exchange", ID: id}
	}
	delete(t.st.exchanges, id)
	return nil
}

func testService() (*Service, *fakeRepo) {
	st := newMemState()
	st.products[1] = &counters{quantity: 10}
	st.products[2] = &counters{quantity: 3}
	st.categories[10] = true
	st.warehouses[100] = true
	st.entries[pair{1, 100}] = stock.Entry{ID: 1, ProductID: 1, CategoryID: 10, WarehouseID: 100, Quantity: 10}
	st.entries[pair{2, 100}] = stock.Entry{ID: 2, ProductID: 2, CategoryID: 10, WarehouseID: 100, Quantity: 3}
	st.nextEntryID = 2
	repo := &fakeRepo{st: st}
	svc := NewService(slog.Default(), repo, stock.NewLedger(slog.Default(), nil), nil, nil, nil)
	return svc, repo
}

func exchangeInput(qty int64) CreateInput {
	return CreateInput{
		WarehouseID:      100,
		SourceProductID:  1,
		SourceCategoryID: 10,
		DestProductID:    2,
		DestCategoryID:   10,
		Quantity:         qty,
	}
}

func TestCreateExchangeSwapsQuantities(t *testing.T) {
	svc, repo := testService()

	e, err := svc.Create(context.Background(), exchangeInput(4))
	require.NoError(t, err)
	require.Equal(t, int64(4), e.Quantity)

	require.Equal(t, int64(6), repo.st.entries[pair{1, 100}].Quantity)
	require.Equal(t, int64(7), repo.st.entries[pair{2, 100}].Quantity)
	require.Equal(t, int64(6), repo.st.products[1].quantity)
	require.Equal(t, int64(7), repo.st.products[2].quantity)
	require.Equal(t, int64(0), repo.st.products[1].sold)
}

func TestCreateExchangeSameProductRejected(t *testing.T) {
	svc, _ := testService()
	input := exchangeInput(1)
	input.DestProductID = input.SourceProductID
	_, err := svc.Create(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestCreateExchangeShortageRejected(t *testing.T) {
	svc, repo := testService()
	_, err := svc.Create(context.Background(), exchangeInput(11))
	var shortage *shared.ShortageError
	require.ErrorAs(t, err, &shortage)
	require.Equal(t, int64(10), shortage.Available)
	require.Equal(t, int64(1), shortage.Shortage)

	require.Equal(t, int64(10), repo.st.entries[pair{1, 100}].Quantity)
	require.Equal(t, int64(3), repo.st.entries[pair{2, 100}].Quantity)
}

func TestDeleteExchangeSwapsBack(t *testing.T) {
	svc, repo := testService()
	ctx := context.Background()

	e, err := svc.Create(ctx, exchangeInput(4))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, e.ID))
	require.Equal(t, int64(10), repo.st.entries[pair{1, 100}].Quantity)
	require.Equal(t, int64(3), repo.st.entries[pair{2, 100}].Quantity)
	require.Empty(t, repo.st.exchanges)
}

func TestDeleteExchangeBlockedWhenSwappedStockConsumed(t *testing.T) {
	svc, repo := testService()
	ctx := context.Background()

	e, err := svc.Create(ctx, exchangeInput(4))
	require.NoError(t, err)

	// The destination product's stock was sold down below the swapped amount.
	entry := repo.st.entries[pair{2, 100}]
	entry.Quantity = 2
	repo.st.entries[pair{2, 100}] = entry

	err = svc.Delete(ctx, e.ID)
	var shortage *shared.ShortageError
	require.ErrorAs(t, err, &shortage)
	require.Equal(t, int64(2), shortage.Available)
	require.Equal(t, int64(4), shortage.Required)
	require.Contains(t, repo.st.exchanges, e.ID)
}

func TestUpdateExchangeReversesThenReapplies(t *testing.T) {
	svc, repo := testService()
	ctx := context.Background()

	e, err := svc.Create(ctx, exchangeInput(4))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, e.ID, exchangeInput(1))
	require.NoError(t, err)
	require.Equal(t, int64(1), updated.Quantity)
	require.Equal(t, int64(9), repo.st.entries[pair{1, 100}].Quantity)
	require.Equal(t, int64(4), repo.st.entries[pair{2, 100}].Quantity)
	require.Equal(t, int64(9), repo.st.products[1].quantity)
	require.Equal(t, int64(4), repo.st.products[2].quantity)
}
