package purchases

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/stockline-erp/stockline/internal/shared"
	"github.com/stockline-erp/stockline/internal/stock"
)

// Repo is the persistence surface the service drives. *Repository satisfies
// it; tests substitute a memory fake.
type Repo interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, page, limit int, search string) ([]Purchase, int, error)
	Get(ctx context.Context, id int64) (Purchase, error)
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

// Service orchestrates purchase and purchase-return events: validate,
// pre-check, mutate the ledger and persist the record inside one
// transaction.
type Service struct {
	logger *slog.Logger
	repo   Repo
	ledger *stock.Ledger
	stocks Invalidator
	audit  Auditor
	idem   IdempotencyChecker
}

// NewService constructs Service. audit and idem may be nil; stocks may be
// nil when no cache is configured.
func NewService(logger *slog.Logger, repo Repo, ledger *stock.Ledger, stocks Invalidator, audit Auditor, idem IdempotencyChecker) *Service {
	return &Service{logger: logger, repo: repo, ledger: ledger, stocks: stocks, audit: audit, idem: idem}
}

// CreateInput carries a purchase or purchase-return submission.
type CreateInput struct {
	SupplierName   string
	TransportID    int64
	Remark         string
	Items          []stock.LineItem
	IdempotencyKey string
}

// Create receives goods: applies the ledger increase and persists the
// purchase record in one transaction.
func (s *Service) Create(ctx context.Context, input CreateInput) (Purchase, error) {
	if input.SupplierName == "" {
		return Purchase{}, fmt.Errorf("%w: supplier name required", shared.ErrInvalidInput)
	}
	if err := s.claimKey(ctx, input.IdempotencyKey, "purchases"); err != nil {
		return Purchase{}, err
	}

	p := Purchase{
		Reference:     uuid.NewString(),
		SupplierName:  input.SupplierName,
		TransportID:   input.TransportID,
		Remark:        input.Remark,
		TotalQuantity: totalQuantity(input.Items),
		Items:         input.Items,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := checkTransport(ctx, tx, input.TransportID); err != nil {
			return err
		}
		id, err := tx.InsertPurchase(ctx, p)
		if err != nil {
			return err
		}
		p.ID = id
		return s.ledger.Apply(ctx, tx, p.movement())
	})
	if err != nil {
		s.releaseKey(ctx, input.IdempotencyKey)
		return Purchase{}, err
	}
	s.afterMutation(ctx, "create", "purchase", p.ID, map[string]any{"reference": p.Reference, "totalQuantity": p.TotalQuantity})
	return s.repo.Get(ctx, p.ID)
}

// Update replaces a purchase: the original line items are fully reversed,
// then the replacements validated and applied, then the record overwritten,
// all in one transaction.
func (s *Service) Update(ctx context.Context, id int64, input CreateInput) (Purchase, error) {
	if input.SupplierName == "" {
		return Purchase{}, fmt.Errorf("%w: supplier name required", shared.ErrInvalidInput)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetPurchaseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := checkTransport(ctx, tx, input.TransportID); err != nil {
			return err
		}
		if err := s.ledger.Reverse(ctx, tx, existing.movement()); err != nil {
			return err
		}
		replacement := Purchase{
			ID:            id,
			SupplierName:  input.SupplierName,
			TransportID:   input.TransportID,
			Remark:        input.Remark,
			TotalQuantity: totalQuantity(input.Items),
			Items:         input.Items,
		}
		if err := s.ledger.Apply(ctx, tx, replacement.movement()); err != nil {
			return err
		}
		return tx.UpdatePurchase(ctx, replacement)
	})
	if err != nil {
		return Purchase{}, err
	}
	s.afterMutation(ctx, "update", "purchase", id, map[string]any{"totalQuantity": totalQuantity(input.Items)})
	return s.repo.Get(ctx, id)
}

// Delete removes a purchase, reversing its stock effect in the same
// transaction.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetPurchaseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.ledger.Reverse(ctx, tx, existing.movement()); err != nil {
			return err
		}
		return tx.DeletePurchase(ctx, id)
	})
	if err != nil {
		return err
	}
	s.afterMutation(ctx, "delete", "purchase", id, nil)
	return nil
}

// Get loads one purchase.
func (s *Service) Get(ctx context.Context, id int64) (Purchase, error) {
	return s.repo.Get(ctx, id)
}

// List returns a purchase page.
func (s *Service) List(ctx context.Context, page, limit int, search string) ([]Purchase, int, error) {
	return s.repo.List(ctx, page, limit, search)
}

// CreateReturn sends goods back to the supplier: a sale-class decrease with
// the full availability pre-check.
func (s *Service) CreateReturn(ctx context.Context, input CreateInput) (Return, error) {
	if input.SupplierName == "" {
		return Return{}, fmt.Errorf("%w: supplier name required", shared.ErrInvalidInput)
	}
	if err := s.claimKey(ctx, input.IdempotencyKey, "purchase_returns"); err != nil {
		return Return{}, err
	}

	ret := Return{
		Reference:     uuid.NewString(),
		SupplierName:  input.SupplierName,
		TransportID:   input.TransportID,
		Remark:        input.Remark,
		TotalQuantity: totalQuantity(input.Items),
		Items:         input.Items,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := checkTransport(ctx, tx, input.TransportID); err != nil {
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
	s.afterMutation(ctx, "create", "purchase_return", ret.ID, map[string]any{"reference": ret.Reference, "totalQuantity": ret.TotalQuantity})
	return s.repo.GetReturn(ctx, ret.ID)
}

// UpdateReturn replaces a purchase return with reverse-then-reapply.
func (s *Service) UpdateReturn(ctx context.Context, id int64, input CreateInput) (Return, error) {
	if input.SupplierName == "" {
		return Return{}, fmt.Errorf("%w: supplier name required", shared.ErrInvalidInput)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetReturnForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := checkTransport(ctx, tx, input.TransportID); err != nil {
			return err
		}
		if err := s.ledger.Reverse(ctx, tx, existing.movement()); err != nil {
			return err
		}
		replacement := Return{
			ID:            id,
			SupplierName:  input.SupplierName,
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
	s.afterMutation(ctx, "update", "purchase_return", id, map[string]any{"totalQuantity": totalQuantity(input.Items)})
	return s.repo.GetReturn(ctx, id)
}

// DeleteReturn removes a purchase return, restoring the stock it took out.
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
	s.afterMutation(ctx, "delete", "purchase_return", id, nil)
	return nil
}

// GetReturn loads one purchase return.
func (s *Service) GetReturn(ctx context.Context, id int64) (Return, error) {
	return s.repo.GetReturn(ctx, id)
}

// ListReturns returns a purchase-return page.
func (s *Service) ListReturns(ctx context.Context, page, limit int, search string) ([]Return, int, error) {
	return s.repo.ListReturns(ctx, page, limit, search)
}

func checkTransport(ctx context.Context, tx TxRepository, transportID int64) error {
	if transportID == 0 {
		return nil
	}
	ok, err := tx.TransportExists(ctx, transportID)
	if err != nil {
		return err
	}
	if !ok {
		return &shared.NotFoundError{Entity: "transport", ID: transportID}
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
