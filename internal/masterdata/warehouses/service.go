package warehouses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mdshared "github.com/stockline-erp/stockline/internal/masterdata/shared"
	"github.com/stockline-erp/stockline/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Warehouse, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Warehouse, error) {
	if id <= 0 {
		return Warehouse{}, fmt.Errorf("%w: invalid warehouse ID", shared.ErrInvalidInput)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	warehouse.Name = strings.TrimSpace(warehouse.Name)
	warehouse.Location = strings.TrimSpace(warehouse.Location)
	if warehouse.Name == "" {
		return Warehouse{}, fmt.Errorf("%w: warehouse name is required", shared.ErrInvalidInput)
	}
	if err := s.ensureNameFree(ctx, warehouse.Name, 0); err != nil {
		return Warehouse{}, err
	}
	return s.repo.Create(ctx, warehouse)
}

func (s *Service) Update(ctx context.Context, id int64, warehouse Warehouse) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid warehouse ID", shared.ErrInvalidInput)
	}
	warehouse.Name = strings.TrimSpace(warehouse.Name)
	warehouse.Location = strings.TrimSpace(warehouse.Location)
	if warehouse.Name == "" {
		return fmt.Errorf("%w: warehouse name is required", shared.ErrInvalidInput)
	}
	if err := s.ensureNameFree(ctx, warehouse.Name, id); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, warehouse)
}

// Delete refuses while any stock entry still lives in the warehouse.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid warehouse ID", shared.ErrInvalidInput)
	}
	refs, err := s.repo.CountStockRefs(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return &shared.ReferentialGuardError{Entity: "warehouse", ReferencedBy: "stock rows", Count: refs}
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ensureNameFree(ctx context.Context, name string, selfID int64) error {
	existing, err := s.repo.FindByName(ctx, name)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return &shared.DuplicateError{Entity: "warehouse", Name: name}
	}
	return nil
}
