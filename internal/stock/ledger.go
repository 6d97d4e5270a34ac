package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/stockline-erp/stockline/internal/shared"
)

// Store is the transactional surface the ledger mutates through. A Store is
// only valid inside the database transaction that produced it; GetEntryForUpdate
// must lock the row until that transaction ends.
type Store interface {
	GetEntryForUpdate(ctx context.Context, productID, warehouseID int64) (Entry, error)
	InsertEntry(ctx context.Context, entry Entry) error
	SetEntryQuantity(ctx context.Context, entryID, quantity int64) error
	DeleteEntry(ctx context.Context, entryID int64) error
	AdjustProduct(ctx context.Context, productID, qtyDelta, soldDelta int64) error
	ProductExists(ctx context.Context, id int64) (bool, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)
	WarehouseExists(ctx context.Context, id int64) (bool, error)
}

// MovementCounter receives one tick per applied movement.
type MovementCounter interface {
	CountMovement(event, direction string)
}

// Ledger applies directional stock movements while holding the two
// invariants every business event relies on: no entry quantity ever goes
// negative, and product counters always move by the same amounts as the
// entries they summarise.
type Ledger struct {
	logger  *slog.Logger
	metrics MovementCounter
}

// NewLedger constructs a Ledger.
func NewLedger(logger *slog.Logger, metrics MovementCounter) *Ledger {
	return &Ledger{logger: logger, metrics: metrics}
}

type pairKey struct {
	productID   int64
	warehouseID int64
}

type pairState struct {
	entry    Entry
	found    bool
	quantity int64
	category int64
}

// Apply validates and executes one movement against the given Store. For
// decreases the availability of every line item is checked, aggregated per
// (product, warehouse) pair, before anything is mutated; a shortage rejects
// the whole movement.
func (l *Ledger) Apply(ctx context.Context, st Store, mv Movement) error {
	if len(mv.Items) == 0 {
		return fmt.Errorf("%w: %s requires at least one line item", shared.ErrInvalidInput, mv.Event)
	}
	if mv.Direction != Increase && mv.Direction != Decrease {
		return fmt.Errorf("%w: movement direction required", shared.ErrInvalidInput)
	}
	for i, item := range mv.Items {
		if item.ProductID <= 0 || item.WarehouseID <= 0 || item.CategoryID <= 0 {
			return fmt.Errorf("%w: %s line %d: product, category and warehouse required", shared.ErrInvalidInput, mv.Event, i+1)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: %s line %d: quantity must be positive", shared.ErrInvalidInput, mv.Event, i+1)
		}
	}
	if err := checkRefs(ctx, st, mv.Items); err != nil {
		return err
	}

	states, keys, err := lockPairs(ctx, st, mv.Items)
	if err != nil {
		return err
	}

	if mv.Direction == Decrease {
		if err := checkAvailability(mv.Items, states); err != nil {
			return err
		}
	}

	for _, item := range mv.Items {
		state := states[pairKey{item.ProductID, item.WarehouseID}]
		qtyDelta := item.Quantity
		soldDelta := int64(0)
		if mv.Direction == Decrease {
			qtyDelta = -item.Quantity
		}
		if mv.Class == ClassSale {
			// A sale-class decrease counts as sold; its reversal uncounts it.
			soldDelta = -qtyDelta
		}
		state.quantity += qtyDelta
		if err := st.AdjustProduct(ctx, item.ProductID, qtyDelta, soldDelta); err != nil {
			return err
		}
	}

	for _, key := range keys {
		state := states[key]
		switch {
		case !state.found && state.quantity > 0:
			err = st.InsertEntry(ctx, Entry{
				ProductID:   key.productID,
				CategoryID:  state.category,
				WarehouseID: key.warehouseID,
				Quantity:    state.quantity,
				PurchaseID:  mv.PurchaseID,
			})
		case state.found && state.quantity == 0:
			// Delete-at-zero policy: a drained pair loses its row.
			err = st.DeleteEntry(ctx, state.entry.ID)
		case state.found:
			err = st.SetEntryQuantity(ctx, state.entry.ID, state.quantity)
		default:
			// Pair that never existed netted back to zero; nothing to write.
		}
		if err != nil {
			return err
		}
	}

	if l.metrics != nil {
		l.metrics.CountMovement(mv.Event, mv.Direction.String())
	}
	if l.logger != nil {
		l.logger.Debug("stock movement applied",
			slog.String("event", mv.Event),
			slog.String("direction", mv.Direction.String()),
			slog.Int("lines", len(mv.Items)))
	}
	return nil
}

// Reverse applies the exact opposite of a previously applied movement,
// recreating deleted entries at their original quantity. It runs through the
// same validation as Apply, so a reversal can never drive an entry negative.
func (l *Ledger) Reverse(ctx context.Context, st Store, mv Movement) error {
	return l.Apply(ctx, st, mv.Reversed())
}

// lockPairs takes row locks for every distinct (product, warehouse) pair in
// deterministic order so two concurrent events cannot deadlock each other.
func lockPairs(ctx context.Context, st Store, items []LineItem) (map[pairKey]*pairState, []pairKey, error) {
	states := make(map[pairKey]*pairState)
	var keys []pairKey
	for _, item := range items {
		key := pairKey{item.ProductID, item.WarehouseID}
		if _, ok := states[key]; !ok {
			states[key] = &pairState{category: item.CategoryID}
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].productID != keys[j].productID {
			return keys[i].productID < keys[j].productID
		}
		return keys[i].warehouseID < keys[j].warehouseID
	})
	for _, key := range keys {
		entry, err := st.GetEntryForUpdate(ctx, key.productID, key.warehouseID)
		if err != nil && !errors.Is(err, ErrEntryNotFound) {
			return nil, nil, err
		}
		state := states[key]
		if err == nil {
			state.entry = entry
			state.found = true
			state.quantity = entry.Quantity
		}
	}
	return states, keys, nil
}

// checkAvailability verifies on-hand quantity per pair against the summed
// requirement of all line items touching that pair. The first short line in
// submission order decides the reported error.
func checkAvailability(items []LineItem, states map[pairKey]*pairState) error {
	required := make(map[pairKey]int64)
	for _, item := range items {
		required[pairKey{item.ProductID, item.WarehouseID}] += item.Quantity
	}
	for _, item := range items {
		key := pairKey{item.ProductID, item.WarehouseID}
		need := required[key]
		have := states[key].quantity
		if have < need {
			return &shared.ShortageError{
				ProductID:   item.ProductID,
				WarehouseID: item.WarehouseID,
				Available:   have,
				Required:    need,
				Shortage:    need - have,
			}
		}
	}
	return nil
}

func notFound(entity string, id int64) error {
	return &shared.NotFoundError{Entity: entity, ID: id}
}

func checkRefs(ctx context.Context, st Store, items []LineItem) error {
	seenProducts := make(map[int64]bool)
	seenCategories := make(map[int64]bool)
	seenWarehouses := make(map[int64]bool)
	for _, item := range items {
		if !seenProducts[item.ProductID] {
			seenProducts[item.ProductID] = true
			ok, err := st.ProductExists(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if !ok {
				return notFound("product", item.ProductID)
			}
		}
		if !seenCategories[item.CategoryID] {
			seenCategories[item.CategoryID] = true
			ok, err := st.CategoryExists(ctx, item.CategoryID)
			if err != nil {
				return err
			}
			if !ok {
				return notFound("category", item.CategoryID)
			}
		}
		if !seenWarehouses[item.WarehouseID] {
			seenWarehouses[item.WarehouseID] = true
			ok, err := st.WarehouseExists(ctx, item.WarehouseID)
			if err != nil {
				return err
			}
			if !ok {
				return notFound("warehouse", item.WarehouseID)
			}
		}
	}
	return nil
}
