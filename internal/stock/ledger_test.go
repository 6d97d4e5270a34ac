package stock

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stockline-erp/stockline/internal/shared"
)

type memProduct struct {
	quantity int64
	sold     int64
}

type memStore struct {
	nextID     int64
	entries    map[int64]Entry
	products   map[int64]*memProduct
	categories map[int64]bool
	warehouses map[int64]bool
}

func newMemStore() *memStore {
	return &memStore{
		entries:    make(map[int64]Entry),
		products:   make(map[int64]*memProduct),
		categories: make(map[int64]bool),
		warehouses: make(map[int64]bool),
	}
}

func (m *memStore) addProduct(id int64)   { m.products[id] = &memProduct{} }
func (m *memStore) addCategory(id int64)  { m.categories[id] = true }
func (m *memStore) addWarehouse(id int64) { m.warehouses[id] = true }

func (m *memStore) entryFor(productID, warehouseID int64) (Entry, bool) {
	for _, e := range m.entries {
		if e.ProductID == productID && e.WarehouseID == warehouseID {
			return e, true
		}
	}
	return Entry{}, false
}

func (m *memStore) GetEntryForUpdate(_ context.Context, productID, warehouseID int64) (Entry, error) {
	if e, ok := m.entryFor(productID, warehouseID); ok {
		return e, nil
	}
	return Entry{ProductID: productID, WarehouseID: warehouseID}, ErrEntryNotFound
}

func (m *memStore) InsertEntry(_ context.Context, entry Entry) error {
	m.nextID++
	entry.ID = m.nextID
	m.entries[entry.ID] = entry
	return nil
}

func (m *memStore) SetEntryQuantity(_ context.Context, entryID, quantity int64) error {
	e, ok := m.entries[entryID]
	if !ok {
		return ErrEntryNotFound
	}
	e.Quantity = quantity
	m.entries[entryID] = e
	return nil
}

func (m *memStore) DeleteEntry(_ context.Context, entryID int64) error {
	delete(m.entries, entryID)
	return nil
}

func (m *memStore) AdjustProduct(_ context.Context, productID, qtyDelta, soldDelta int64) error {
	p, ok := m.products[productID]
	if !ok {
		return &shared.NotFoundError{Entity: "product", ID: productID}
	}
	p.quantity += qtyDelta
	p.sold += soldDelta
	return nil
}

func (m *memStore) ProductExists(_ context.Context, id int64) (bool, error) {
	_, ok := m.products[id]
	return ok, nil
}

func (m *memStore) CategoryExists(_ context.Context, id int64) (bool, error) {
	return m.categories[id], nil
}

func (m *memStore) WarehouseExists(_ context.Context, id int64) (bool, error) {
	return m.warehouses[id], nil
}

func seededStore() *memStore {
	st := newMemStore()
	st.addProduct(1)
	st.addProduct(2)
	st.addCategory(10)
	st.addWarehouse(100)
	st.addWarehouse(101)
	return st
}

func testLedger() *Ledger {
	return NewLedger(slog.Default(), nil)
}

func item(productID, warehouseID, qty int64) LineItem {
	return LineItem{ProductID: productID, CategoryID: 10, WarehouseID: warehouseID, Quantity: qty}
}

func TestApplyIncreaseCreatesEntryAndCounters(t *testing.T) {
	st := seededStore()
	ledger := testLedger()

	mv := Movement{Event: "purchase", Items: []LineItem{item(1, 100, 10)}, Direction: Increase, Class: ClassStock, PurchaseID: 7}
	require.NoError(t, ledger.Apply(context.Background(), st, mv))

	entry, ok := st.entryFor(1, 100)
	require.True(t, ok)
	require.Equal(t, int64(10), entry.Quantity)
	require.Equal(t, int64(10), entry.CategoryID)
	require.Equal(t, int64(7), entry.PurchaseID)
	require.Equal(t, int64(10), st.products[1].quantity)
	require.Equal(t, int64(0), st.products[1].sold)
}

func TestSellThenDeleteRestoresState(t *testing.T) {
	st := seededStore()
	ledger := testLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Apply(ctx, st, Movement{Event: "purchase", Items: []LineItem{item(1, 100, 10)}, Direction: Increase, Class: ClassStock}))

	sale := Movement{Event: "sale", Items: []LineItem{item(1, 100, 4)}, Direction: Decrease, Class: ClassSale}
	require.NoError(t, ledger.Apply(ctx, st, sale))

	entry, ok := st.entryFor(1, 100)
	require.True(t, ok)
	require.Equal(t, int64(6), entry.Quantity)
	require.Equal(t, int64(6), st.products[1].quantity)
	require.Equal(t, int64(4), st.products[1].sold)

	require.NoError(t, ledger.Reverse(ctx, st, sale))

	entry, ok = st.entryFor(1, 100)
	require.True(t, ok)
	require.Equal(t, int64(10), entry.Quantity)
	require.Equal(t, int64(10), st.products[1].quantity)
	require.Equal(t, int64(0), st.products[1].sold)
}

func TestDecreaseShortageRejectsWholeMovement(t *testing.T) {
	st := seededStore()
	ledger := testLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Apply(ctx, st, Movement{Event: "purchase", Items: []LineItem{item(1, 100, 5), item(2, 100, 5)}, Direction: Increase, Class: ClassStock}))

	// First line is satisfiable; second is short. Nothing must change.
	mv := Movement{Event: "sale", Items: []LineItem{item(1, 100, 3), item(2, 100, 8)}, Direction: Decrease, Class: ClassSale}
	err := ledger.Apply(ctx, st, mv)

	var shortage *shared.ShortageError
	require.ErrorAs(t, err, &shortage)
	require.Equal(t, int64(2), shortage.ProductID)
	require.Equal(t, int64(5), shortage.Available)
	require.Equal(t, int64(8), shortage.Required)
	require.Equal(t, int64(3), shortage.Shortage)

	entry, _ := st.entryFor(1, 100)
	require.Equal(t, int64(5), entry.Quantity)
	entry, _ = st.entryFor(2, 100)
	require.Equal(t, int64(5), entry.Quantity)
	require.Equal(t, int64(5), st.products[1].quantity)
	require.Equal(t, int64(0), st.products[1].sold)
}

func TestDecreaseAggregatesRequirementPerPair(t *testing.T) {
	st := seededStore()
	ledger := testLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Apply(ctx, st, Movement{Event: "purchase", Items: []LineItem{item(1, 100, 5)}, Direction: Increase, Class: ClassStock}))

	// Two lines on one pair need 7 in total against 5 on hand.
	mv := Movement{Event: "sale", Items: []LineItem{item(1, 100, 3), item(1, 100, 4)}, Direction: Decrease, Class: ClassSale}
	err := ledger.Apply(ctx, st, mv)

	var shortage *shared.ShortageError
	require.ErrorAs(t, err, &shortage)
	require.Equal(t, int64(5), shortage.Available)
	require.Equal(t, int64(7), shortage.Required)
	require.Equal(t, int64(2), shortage.Shortage)
}

func TestDecreaseToZeroDeletesEntry(t *testing.T) {
	st := seededStore()
	ledger := testLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Apply(ctx, st, Movement{Event: "purchase", Items: []LineItem{item(1, 100, 4)}, Direction: Increase, Class: ClassStock}))
	require.NoError(t, ledger.Apply(ctx, st, Movement{Event: "sale", Items: []LineItem{item(1, 100, 4)}, Direction: Decrease, Class: ClassSale}))

	_, ok := st.entryFor(1, 100)
	require.False(t, ok)
	require.Equal(t, int64(0), st.products[1].quantity)
	require.Equal(t, int64(4), st.products[1].sold)
}

func TestReversalRecreatesDeletedEntry(t *testing.T) {
	st := seededStore()
	ledger := testLedger()
	ctx := context.Background()

	purchase := Movement{Event: "purchase", Items: []LineItem{item(1, 100, 4)}, Direction: Increase, Class: ClassStock}
	require.NoError(t, ledger.Apply(ctx, st, purchase))

	sale := Movement{Event: "sale", Items: []LineItem{item(1, 100, 4)}, Direction: Decrease, Class: ClassSale}
	require.NoError(t, ledger.Apply(ctx, st, sale))
	require.NoError(t, ledger.Reverse(ctx, st, sale))

	entry, ok := st.entryFor(1, 100)
	require.True(t, ok)
	require.Equal(t, int64(4), entry.Quantity)
	require.Equal(t, int64(0), st.products[1].sold)
}

func TestEditIsStockNoOpWithSameItems(t *testing.T) {
	st := seededStore()
	ledger := testLedger()
	ctx := context.Background()

	purchase := Movement{Event: "purchase", Items: []LineItem{item(1, 100, 9)}, Direction: Increase, Class: ClassStock}
	require.NoError(t, ledger.Apply(ctx, st, purchase))

	// Edit with identical items: full reverse then reapply.
	require.NoError(t, ledger.Reverse(ctx, st, purchase))
	require.NoError(t, ledger.Apply(ctx, st, purchase))

	entry, ok := st.entryFor(1, 100)
	require.True(t, ok)
	require.Equal(t, int64(9), entry.Quantity)
	require.Equal(t, int64(9), st.products[1].quantity)
}

func TestApplyRejectsMissingReferences(t *testing.T) {
	st := seededStore()
	ledger := testLedger()
	ctx := context.Background()

	err := ledger.Apply(ctx, st, Movement{Event: "purchase", Items: []LineItem{item(99, 100, 1)}, Direction: Increase, Class: ClassStock})
	var notFoundErr *shared.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
	require.Equal(t, "product", notFoundErr.Entity)

	err = ledger.Apply(ctx, st, Movement{Event: "purchase", Items: []LineItem{item(1, 999, 1)}, Direction: Increase, Class: ClassStock})
	require.ErrorAs(t, err, &notFoundErr)
	require.Equal(t, "warehouse", notFoundErr.Entity)
}

func TestApplyRejectsInvalidInput(t *testing.T) {
	st := seededStore()
	ledger := testLedger()
	ctx := context.Background()

	err := ledger.Apply(ctx, st, Movement{Event: "purchase", Direction: Increase, Class: ClassStock})
	require.True(t, errors.Is(err, shared.ErrInvalidInput))

	err = ledger.Apply(ctx, st, Movement{Event: "purchase", Items: []LineItem{item(1, 100, 0)}, Direction: Increase, Class: ClassStock})
	require.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestConservationAcrossMixedEvents(t *testing.T) {
	st := seededStore()
	ledger := testLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Apply(ctx, st, Movement{Event: "purchase", Items: []LineItem{item(1, 100, 12)}, Direction: Increase, Class: ClassStock}))
	require.NoError(t, ledger.Apply(ctx, st, Movement{Event: "transfer", Items: []LineItem{item(1, 100, 5)}, Direction: Decrease, Class: ClassStock}))
	require.NoError(t, ledger.Apply(ctx, st, Movement{Event: "transfer", Items: []LineItem{item(1, 101, 5)}, Direction: Increase, Class: ClassStock}))
	require.NoError(t, ledger.Apply(ctx, st, Movement{Event: "sale", Items: []LineItem{item(1, 101, 2)}, Direction: Decrease, Class: ClassSale}))

	var ledgerSum int64
	for _, e := range st.entries {
		ledgerSum += e.Quantity
	}
	require.Equal(t, st.products[1].quantity, ledgerSum)
	require.Equal(t, int64(10), ledgerSum)
	require.Equal(t, int64(2), st.products[1].sold)
}
