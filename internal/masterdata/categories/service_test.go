package categories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	mdshared "github.com/stockline-erp/stockline/internal/masterdata/shared"
	"github.com/stockline-erp/stockline/internal/shared"
)

type memRepo struct {
	nextID    int64
	byID      map[int64]Category
	stockRefs map[int64]int64
}

func newMemRepo() *memRepo {
	return &memRepo{byID: make(map[int64]Category), stockRefs: make(map[int64]int64)}
}

func (m *memRepo) List(_ context.Context, _ mdshared.ListFilters) ([]Category, int, error) {
	out := make([]Category, 0, len(m.byID))
	for _, c := range m.byID {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memRepo) Get(_ context.Context, id int64) (Category, error) {
	c, ok := m.byID[id]
	if !ok {
		return Category{}, &shared.NotFoundError{Entity: "category", ID: id}
	}
	return c, nil
}

func (m *memRepo) FindByName(_ context.Context, name string) (Category, error) {
	folded := shared.NormalizeName(name)
	for _, c := range m.byID {
		if shared.NormalizeName(c.Name) == folded {
			return c, nil
		}
	}
	return Category{}, shared.ErrNotFound
}

func (m *memRepo) Create(_ context.Context, category Category) (Category, error) {
	m.nextID++
	category.ID = m.nextID
	m.byID[category.ID] = category
	return category, nil
}

func (m *memRepo) Update(_ context.Context, id int64, category Category) error {
	if _, ok := m.byID[id]; !ok {
		return &shared.NotFoundError{Entity: "category", ID: id}
	}
	category.ID = id
	m.byID[id] = category
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.byID[id]; !ok {
		return &shared.NotFoundError{Entity: "category", ID: id}
	}
	delete(m.byID, id)
	return nil
}

func (m *memRepo) CountStockRefs(_ context.Context, id int64) (int64, error) {
	return m.stockRefs[id], nil
}

func TestCreateTrimsAndStoresName(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	c, err := svc.Create(context.Background(), Category{Name: "  Electronics  "})
	require.NoError(t, err)
	require.Equal(t, "Electronics", c.Name)
	require.NotZero(t, c.ID)
}

func TestCreateRejectsBlankName(t *testing.T) {
	svc := NewService(newMemRepo())
	_, err := svc.Create(context.Background(), Category{Name: "   "})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestCreateDuplicateNameIsCaseInsensitive(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, Category{Name: "Electronics"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, Category{Name: "ELECTRONICS"})
	var dup *shared.DuplicateError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "category", dup.Entity)
}

func TestUpdateAllowsKeepingOwnName(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	c, err := svc.Create(ctx, Category{Name: "Hardware"})
	require.NoError(t, err)

	require.NoError(t, svc.Update(ctx, c.ID, Category{Name: "hardware"}))
}

func TestUpdateRejectsTakenName(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, Category{Name: "Hardware"})
	require.NoError(t, err)
	c, err := svc.Create(ctx, Category{Name: "Software"})
	require.NoError(t, err)

	err = svc.Update(ctx, c.ID, Category{Name: "Hardware"})
	var dup *shared.DuplicateError
	require.ErrorAs(t, err, &dup)
}

func TestDeleteBlockedWhileStockReferencesCategory(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	c, err := svc.Create(ctx, Category{Name: "Hardware"})
	require.NoError(t, err)
	repo.stockRefs[c.ID] = 3

	err = svc.Delete(ctx, c.ID)
	var guard *shared.ReferentialGuardError
	require.ErrorAs(t, err, &guard)
	require.Equal(t, int64(3), guard.Count)
	require.Contains(t, repo.byID, c.ID)

	repo.stockRefs[c.ID] = 0
	require.NoError(t, svc.Delete(ctx, c.ID))
}
