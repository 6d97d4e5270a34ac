package customers

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

func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Customer, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	if id <= 0 {
		return Customer{}, fmt.Errorf("%w: invalid customer ID", shared.ErrInvalidInput)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, customer Customer) (Customer, error) {
	customer.Name = strings.TrimSpace(customer.Name)
	if customer.Name == "" {
		return Customer{}, fmt.Errorf("%w: customer name is required", shared.ErrInvalidInput)
	}
	if err := s.ensureNameFree(ctx, customer.Name, 0); err != nil {
		return Customer{}, err
	}
	return s.repo.Create(ctx, customer)
}

func (s *Service) Update(ctx context.Context, id int64, customer Customer) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid customer ID", shared.ErrInvalidInput)
	}
	customer.Name = strings.TrimSpace(customer.Name)
	if customer.Name == "" {
		return fmt.Errorf("%w: customer name is required", shared.ErrInvalidInput)
	}
	if err := s.ensureNameFree(ctx, customer.Name, id); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, customer)
}

// Delete refuses while any sale still references the customer.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid customer ID", shared.ErrInvalidInput)
	}
	refs, err := s.repo.CountSaleRefs(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return &shared.ReferentialGuardError{Entity: "customer", ReferencedBy: "sales", Count: refs}
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
		return &shared.DuplicateError{Entity: "customer", Name: name}
	}
	return nil
}
