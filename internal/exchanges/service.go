package exchanges

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
	List(ctx context.Context, page, limit int, search string) ([]Exchange, int, error)
	Get(ctx context.Context, id int64) (Exchange, error)
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

// Service orchestrates product exchanges.
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

// CreateInput carries an exchange submission.
type CreateInput struct {
	WarehouseID      int64
	SourceProductID  int64
	SourceCategoryID int64
	DestProductID    int64
	DestCategoryID   int64
	Quantity         int64
	Remark           string
	IdempotencyKey   string
}

func (input CreateInput) validate() error {
	if input.SourceProductID == input.DestProductID {
		return fmt.Errorf("%w: source and destination product must differ", shared.ErrInvalidInput)
	}
	if input.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", shared.ErrInvalidInput)
	}
	return nil
}

// Create swaps stock between two products at one warehouse. The source
// decrease is availability-checked before the destination side is touched.
func (s *Service) Create(ctx context.Context, input CreateInput) (Exchange, error) {
	if err := input.validate(); err != nil {
		return Exchange{}, err
	}
	if err := s.claimKey(ctx, input.IdempotencyKey); err != nil {
		return Exchange{}, err
	}

	e := Exchange{
		Reference:        uuid.NewString(),
		WarehouseID:      input.WarehouseID,
		SourceProductID:  input.SourceProductID,
		SourceCategoryID: input.SourceCategoryID,
		DestProductID:    input.DestProductID,
		DestCategoryID:   input.DestCategoryID,
		Quantity:         input.Quantity,
		Remark:           input.Remark,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.applyExchange(ctx, tx, e); err != nil {
			return err
		}
		id, err := tx.InsertExchange(ctx, e)
		if err != nil {
			return err
		}
		e.ID = id
		return nil
	})
	if err != nil {
		s.releaseKey(ctx, input.IdempotencyKey)
		return Exchange{}, err
	}
	s.afterMutation(ctx, "create", e.ID, map[string]any{"reference": e.Reference, "quantity": e.Quantity})
	return s.repo.Get(ctx, e.ID)
}

// Update replaces an exchange with reverse-then-reapply in one transaction.
func (s *Service) Update(ctx context.Context, id int64, input CreateInput) (Exchange, error) {
	if err := input.validate(); err != nil {
		return Exchange{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetExchangeForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.reverseExchange(ctx, tx, existing); err != nil {
			return err
		}
		replacement := Exchange{
			ID:               id,
			WarehouseID:      input.WarehouseID,
			SourceProductID:  input.SourceProductID,
			SourceCategoryID: input.SourceCategoryID,
			DestProductID:    input.DestProductID,
			DestCategoryID:   input.DestCategoryID,
			Quantity:         input.Quantity,
			Remark:           input.Remark,
		}
		if err := s.applyExchange(ctx, tx, replacement); err != nil {
			return err
		}
		return tx.UpdateExchange(ctx, replacement)
	})
	if err != nil {
		return Exchange{}, err
	}
	s.afterMutation(ctx, "update", id, map[string]any{"quantity": input.Quantity})
	return s.repo.Get(ctx, id)
}

// Delete removes an exchange, swapping the stock back.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetExchangeForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.reverseExchange(ctx, tx, existing); err != nil {
			return err
		}
		return tx.DeleteExchange(ctx, id)
	})
	if err != nil {
		return err
	}
	s.afterMutation(ctx, "delete", id, nil)
	return nil
}

// Get loads one exchange.
func (s *Service) Get(ctx context.Context, id int64) (Exchange, error) {
	return s.repo.Get(ctx, id)
}

// List returns an exchange page.
func (s *Service) List(ctx context.Context, page, limit int, search string) ([]Exchange, int, error) {
	return s.repo.List(ctx, page, limit, search)
}

func (s *Service) applyExchange(ctx context.Context, tx TxRepository, e Exchange) error {
	out, in := e.movements()
	if err := s.ledger.Apply(ctx, tx, out); err != nil {
		return err
	}
	return s.ledger.Apply(ctx, tx, in)
}

func (s *Service) reverseExchange(ctx context.Context, tx TxRepository, e Exchange) error {
	out, in := e.movements()
	if err := s.ledger.Reverse(ctx, tx, in); err != nil {
		return err
	}
	return s.ledger.Reverse(ctx, tx, out)
}

func (s *Service) claimKey(ctx context.Context, key string) error {
	if key == "" || s.idem == nil {
		return nil
	}
	return s.idem.CheckAndInsert(ctx, key, "exchanges")
}

func (s *Service) releaseKey(ctx context.Context, key string) {
	if key == "" || s.idem == nil {
		return
	}
	if err := s.idem.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to release idempotency key", slog.Any("error", err))
	}
}

func (s *Service) afterMutation(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.stocks != nil {
		if err := s.stocks.Invalidate(ctx); err != nil {
			s.logger.Warn("stock cache invalidation failed", slog.Any("error", err))
		}
	}
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "product_exchange", EntityID: strconv.FormatInt(id, 10), Meta: meta})
		if err != nil {
			s.logger.Warn("audit record failed", slog.Any("error", err))
		}
	}
}
