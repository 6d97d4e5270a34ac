package stock

import (
	"context"
	"fmt"
)

// ReadRepository is the query surface for the stock grid.
type ReadRepository interface {
	List(ctx context.Context, filters ListFilters) ([]EntryView, int, error)
	ListProductTotals(ctx context.Context) ([]ProductTotals, error)
}

// Service serves stock listings through the cache.
type Service struct {
	repo  ReadRepository
	cache *Cache
}

// NewService builds Service.
func NewService(repo ReadRepository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

type listResult struct {
	Entries []EntryView `json:"entries"`
	Total   int         `json:"total"`
}

// List returns a stock grid page, cached per filter combination.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]EntryView, int, error) {
	key, err := s.cache.BuildKey(ctx, "stock", "list",
		fmt.Sprintf("p%d", filters.Page),
		fmt.Sprintf("l%d", filters.Limit),
		fmt.Sprintf("w%d", filters.WarehouseID),
		fmt.Sprintf("c%d", filters.CategoryID),
		filters.Search)
	if err != nil {
		return nil, 0, err
	}
	var result listResult
	err = s.cache.FetchJSON(ctx, key, &result, func(ctx context.Context) (any, error) {
		entries, total, err := s.repo.List(ctx, filters)
		if err != nil {
			return nil, err
		}
		return listResult{Entries: entries, Total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return result.Entries, result.Total, nil
}

// ListAll returns the grid without pagination, capped at limit rows.
func (s *Service) ListAll(ctx context.Context, limit int) ([]EntryView, error) {
	entries, _, err := s.repo.List(ctx, ListFilters{Page: 1, Limit: limit})
	return entries, err
}

// Invalidate drops cached pages after a stock mutation.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// ProductTotals exposes the reconciliation query.
func (s *Service) ProductTotals(ctx context.Context) ([]ProductTotals, error) {
	return s.repo.ListProductTotals(ctx)
}
