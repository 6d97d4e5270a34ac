package sales

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/stockline-erp/stockline/internal/shared"
	"github.com/stockline-erp/stockline/internal/stock"
)

// Repo is the persistence surface the service drives.
type Repo interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, page, limit int, search string) ([]Sale, int, error)
	Get(ctx context.Context, id int64) (Sale, error)
	ListReturns(ctx context.Context, page, limit int, search string) ([]Return, int, error)
	GetReturn(ctx context.Context, id int64) (Return, error)
}

// Invalidator drops cached stock pages after a mutation.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Auditor records stock-mutating events.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyChecker rejects replayed submissions.
type IdempotencyChecker interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service orchestrates sale and sale-return events.
type Service struct {
	logger *slog.Logger
	repo   Repo
	ledger *stock.Ledger
	stocks Invalidator
	audit  Auditor
	idem   IdempotencyChecker
}

// NewService constructs Service.
func NewService(logger *slog.Logger, repo Repo, ledger *stock.Ledger, stocks Invalidator, audit Auditor, idem IdempotencyChecker) *Service {
	return &Service{logger: logger, repo: repo, ledger: ledger, stocks: stocks, audit: audit, idem: idem}
}

// CreateInput carries a sale or sale-return submission.
type CreateInput struct {
	CustomerID     int64
	TransportID    int64
	Remark         string
	Items          []stock.LineItem
	IdempotencyKey string
}

// Create ships goods: every line item's availability is checked before any
// mutation, then the ledger decrease and the sale record commit together.
func (s *Service) Create(ctx context.Context, input CreateInput) (Sale, error) {
	if input.CustomerID <= 0 {
		return Sale{}, fmt.Errorf("%w: customer required", shared.ErrInvalidInput)
	}
	if err := s.claimKey(ctx, input.IdempotencyKey, "sales"); err != nil {
		return Sale{}, err
	}

	sale := Sale{
		Reference:     uuid.NewString(),
		CustomerID:    input.CustomerID,
		TransportID:   input.TransportID,
		Remark:        input.Remark,
		TotalQuantity: totalQuantity(input.Items),
		Items:         input.Items,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := checkRefs(ctx, tx, input.CustomerID, input.TransportID); err != nil {
			return err
		}
		if err := s.ledger.Apply(ctx, tx, sale.movement()); err != nil {
			return err
		}
		amount, err := tx.PriceTotal(ctx, input.Items)
		if err != nil {
			return err
		}
		sale.TotalAmount = amount
		id, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		sale.ID = id
		return nil
	})
	if err != nil {
		s.releaseKey(ctx, input.IdempotencyKey)
		return Sale{}, err
	}
	s.afterMutation(ctx, "create", "sale", sale.ID, map[string]any{"reference": sale.Reference, "totalQuantity": sale.TotalQuantity})
	return s.repo.Get(ctx, sale.ID)
}

// Update replaces a sale with reverse-then-reapply in one transaction.
func (s *Service) Update(ctx context.Context, id int64, input CreateInput) (Sale, error) {
	if input.CustomerID <= 0 {
		return Sale{}, fmt.Errorf("%w: customer required", shared.ErrInvalidInput)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetSaleForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := checkRefs(ctx, tx, input.CustomerID, input.TransportID); err != nil {
			return err
		}
		if err := s.ledger.Reverse(ctx, tx, existing.movement()); err != nil {
			return err
		}
		replacement := Sale{
			ID:            id,
			CustomerID:    input.CustomerID,
			TransportID:   input.TransportID,
			Remark:        input.Remark,
			TotalQuantity: totalQuantity(input.Items),
			Items:         input.Items,
		}
		if err := s.ledger.Apply(ctx, tx, replacement.movement()); err != nil {
			return err
		}
		amount, err := tx.PriceTotal(ctx, input.Items)
		if err != nil {
			return err
		}
		replacement.TotalAmount = amount
		return tx.UpdateSale(ctx, replacement)
	})
	if err != nil {
		return Sale{}, err
	}
	s.afterMutation(ctx, "update", "sale", id, map[string]any{"totalQuantity": totalQuantity(input.Items)})
	return s.repo.Get(ctx, id)
}

// Delete removes a sale, returning its stock and uncounting its sold
// quantities in the same transaction.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetSaleForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.ledger.Reverse(ctx, tx, existing.movement()); err != nil {
			return err
		}
		return tx.DeleteSale(ctx, id)
	})
	if err != nil {
		return err
	}
	s.afterMutation(ctx, "delete", "sale", id, nil)
	return nil
}

// Get loads one sale.
func (s *Service) Get(ctx context.Context, id int64) (Sale, error) {
	return s.repo.Get(ctx, id)
}

// List returns a sale page.
func (s *Service) List(ctx context.Context, page, limit int, search string) ([]Sale, int, error) {
	return s.repo.List(ctx, page, limit, search)
}

// ListAll returns sales without pagination, capped at limit rows, for the
// Excel export.
func (s *Service) ListAll(ctx context.Context, limit int) ([]Sale, error) {
	sales, _, err := s.repo.List(ctx, 1, limit, "")
	return sales, err
}

// CreateReturn takes goods back from a customer.
func (s *Service) CreateReturn(ctx context.Context, input CreateInput) (Return, error) {
	if input.CustomerID <= 0 {
		return Return{}, fmt.Errorf("%w: customer required", shared.ErrInvalidInput)
	}
	if err := s.claimKey(ctx, input.IdempotencyKey, "sale_returns"); err != nil {
		return Return{}, err
	}

	ret := Return{
		Reference:     uuid.NewString(),
		CustomerID:    input.CustomerID,
		TransportID:   input.TransportID,
		Remark:        input.Remark,
		TotalQuantity: totalQuantity(input.Items),
		Items:         input.Items,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := checkRefs(ctx, tx, input.CustomerID, input.TransportID); err != nil {
			return err
		}
		if err := s.ledger.Apply(ctx, tx, ret.movement()); err != nil {
			return err
		}
		id, err := tx.InsertReturn(ctx, ret)
		if err != nil {
			return err
		}
		ret.ID = id
		return nil
	})
	if err != nil {
		s.releaseKey(ctx, input.IdempotencyKey)
		return Return{}, err
	}
	s.afterMutation(ctx, "create", "sale_return", ret.ID, map[string]any{"reference": ret.Reference, "totalQuantity": ret.TotalQuantity})
	return s.repo.GetReturn(ctx, ret.ID)
}

// UpdateReturn replaces a sale return with reverse-then-reapply.
func (s *Service) UpdateReturn(ctx context.Context, id int64, input CreateInput) (Return, error) {
	if input.CustomerID <= 0 {
		return Return{}, fmt.Errorf("%w: customer required", shared.ErrInvalidInput)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetReturnForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := checkRefs(ctx, tx, input.CustomerID, input.TransportID); err != nil {
			return err
		}
		if err := s.ledger.Reverse(ctx, tx, existing.movement()); err != nil {
			return err
		}
		replacement := Return{
			ID:            id,
			CustomerID:    input.CustomerID,
			TransportID:   input.TransportID,
			Remark:        input.Remark,
			TotalQuantity: totalQuantity(input.Items),
			Items:         input.Items,
		}
		if err := s.ledger.Apply(ctx, tx, replacement.movement()); err != nil {
			return err
		}
		return tx.UpdateReturn(ctx, replacement)
	})
	if err != nil {
		return Return{}, err
	}
	s.afterMutation(ctx, "update", "sale_return", id, map[string]any{"totalQuantity": totalQuantity(input.Items)})
	return s.repo.GetReturn(ctx, id)
}

// DeleteReturn removes a sale return, taking its stock back out.
func (s *Service) DeleteReturn(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetReturnForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.ledger.Reverse(ctx, tx, existing.movement()); err != nil {
			return err
		}
		return tx.DeleteReturn(ctx, id)
	})
	if err != nil {
		return err
	}
	s.afterMutation(ctx, "delete", "sale_return", id, nil)
	return nil
}

// GetReturn loads one sale return.
func (s *Service) GetReturn(ctx context.Context, id int64) (Return, error) {
	return s.repo.GetReturn(ctx, id)
}

// ListReturns returns a sale-return page.
func (s *Service) ListReturns(ctx context.Context, page, limit int, search string) ([]Return, int, error) {
	return s.repo.ListReturns(ctx, page, limit, search)
}

func checkRefs(ctx context.Context, tx TxRepository, customerID, transportID int64) error {
	ok, err := tx.CustomerExists(ctx, customerID)
	if err != nil {
		return err
	}
	if !ok {
		return &shared.NotFoundError{Entity: "customer", ID: customerID}
	}
	if transportID != 0 {
		ok, err := tx.TransportExists(ctx, transportID)
		if err != nil {
			return err
		}
		if !ok {
			return &shared.NotFoundError{Entity: "transport", ID: transportID}
		}
	}
	return nil
}

func (s *Service) claimKey(ctx context.Context, key, module string) error {
	if key == "" || s.idem == nil {
		return nil
	}
	return s.idem.CheckAndInsert(ctx, key, module)
}

func (s *Service) releaseKey(ctx context.Context, key string) {
	if key == "" || s.idem == nil {
		return
	}
	if err := s.idem.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to release idempotency key", slog.Any("error", err))
	}
}

func (s *Service) afterMutation(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	if s.stocks != nil {
		if err := s.stocks.Invalidate(ctx); err != nil {
			s.logger.Warn("stock cache invalidation failed", slog.Any("error", err))
		}
	}
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: entity, EntityID: strconv.FormatInt(id, 10), Meta: meta})
		if err != nil {
			s.logger.Warn("audit record failed", slog.Any("error", err))
		}
	}
}
