package transports

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

func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Transport, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Transport, error) {
	if id <= 0 {
		return Transport{}, fmt.Errorf("%w: invalid transport ID", shared.ErrInvalidInput)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, transport Transport) (Transport, error) {
	transport.Name = strings.TrimSpace(transport.Name)
	if transport.Name == "" {
		return Transport{}, fmt.Errorf("%w: transport name is required", shared.ErrInvalidInput)
	}
	if err := s.ensureNameFree(ctx, transport.Name, 0); err != nil {
		return Transport{}, err
	}
	return s.repo.Create(ctx, transport)
}

func (s *Service) Update(ctx context.Context, id int64, transport Transport) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid transport ID", shared.ErrInvalidInput)
	}
	transport.Name = strings.TrimSpace(transport.Name)
	if transport.Name == "" {
		return fmt.Errorf("%w: transport name is required", shared.ErrInvalidInput)
	}
	if err := s.ensureNameFree(ctx, transport.Name, id); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, transport)
}

// Delete refuses while any purchase or sale still names the transport.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid transport ID", shared.ErrInvalidInput)
	}
	refs, err := s.repo.CountEventRefs(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return &shared.ReferentialGuardError{Entity: "transport", ReferencedBy: "purchases or sales", Count: refs}
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
		return &shared.DuplicateError{Entity: "transport", Name: name}
	}
	return nil
}
