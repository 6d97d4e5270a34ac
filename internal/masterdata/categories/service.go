package categories

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

func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Category, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	if id <= 0 {
		return Category{}, fmt.Errorf("%w: invalid category ID", shared.ErrInvalidInput)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, category Category) (Category, error) {
	category.Name = strings.TrimSpace(category.Name)
	if err := s.validate(category); err != nil {
		return Category{}, err
	}
	if err := s.ensureNameFree(ctx, category.Name, 0); err != nil {
		return Category{}, err
	}
	return s.repo.Create(ctx, category)
}

func (s *Service) Update(ctx context.Context, id int64, category Category) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid category ID", shared.ErrInvalidInput)
	}
	category.Name = strings.TrimSpace(category.Name)
	if err := s.validate(category); err != nil {
		return err
	}
	if err := s.ensureNameFree(ctx, category.Name, id); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, category)
}

// Delete refuses while any stock entry still references the category.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid category ID", shared.ErrInvalidInput)
	}
	refs, err := s.repo.CountStockRefs(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return &shared.ReferentialGuardError{Entity: "category", ReferencedBy: "stock rows", Count: refs}
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) validate(c Category) error {
	if c.Name == "" {
		return fmt.Errorf("%w: category name is required", shared.ErrInvalidInput)
	}
	return nil
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
		return &shared.DuplicateError{Entity: "category", Name: name}
	}
	return nil
}
