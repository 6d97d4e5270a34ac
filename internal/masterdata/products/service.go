package products

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

func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: invalid product ID", shared.ErrInvalidInput)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, product Product) (Product, error) {
	if err := s.validate(ctx, &product); err != nil {
		return Product{}, err
	}
	if err := s.ensureNameFree(ctx, product.Name, 0); err != nil {
		return Product{}, err
	}
	return s.repo.Create(ctx, product)
}

func (s *Service) Update(ctx context.Context, id int64, product Product) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid product ID", shared.ErrInvalidInput)
	}
	if err := s.validate(ctx, &product); err != nil {
		return err
	}
	if err := s.ensureNameFree(ctx, product.Name, id); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, product)
}

// Delete refuses while any stock entry still references the product.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid product ID", shared.ErrInvalidInput)
	}
	refs, err := s.repo.CountStockRefs(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return &shared.ReferentialGuardError{Entity: "product", ReferencedBy: "stock rows", Count: refs}
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) validate(ctx context.Context, product *Product) error {
	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" {
		return fmt.Errorf("%w: product name is required", shared.ErrInvalidInput)
	}
	if product.CategoryID <= 0 {
		return fmt.Errorf("%w: product category is required", shared.ErrInvalidInput)
	}
	if product.Price.IsNegative() {
		return fmt.Errorf("%w: product price must not be negative", shared.ErrInvalidInput)
	}
	ok, err := s.repo.CategoryExists(ctx, product.CategoryID)
	if err != nil {
		return err
	}
	if !ok {
		return &shared.NotFoundError{Entity: "category", ID: product.CategoryID}
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
		return &shared.DuplicateError{Entity: "product", Name: name}
	}
	return nil
}
