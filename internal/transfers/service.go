package transfers

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
	List(ctx context.Context, page, limit int, search string) ([]Transfer, int, error)
	Get(ctx context.Context, id int64) (Transfer, error)
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

// Service orchestrates warehouse-to-warehouse transfers.
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

// CreateInput carries a transfer submission.
type CreateInput struct {
	SourceWarehouseID int64
	DestWarehouseID   int64
	Remark            string
	Items             []TransferItem
	IdempotencyKey    string
}

func (input CreateInput) validate() error {
	if input.SourceWarehouseID <= 0 || input.DestWarehouseID <= 0 {
		return fmt.Errorf("%w: source and destination warehouse required", shared.ErrInvalidInput)
	}
	if input.SourceWarehouseID == input.DestWarehouseID {
		return fmt.Errorf("%w: source and destination warehouse must differ", shared.ErrInvalidInput)
	}
	return nil
}

// Create moves stock: the outbound decrease is availability-checked at the
// source before the inbound increase lands at the destination, all in one
// transaction.
func (s *Service) Create(ctx context.Context, input CreateInput) (Transfer, error) {
	if err := input.validate(); err != nil {
		return Transfer{}, err
	}
	if err := s.claimKey(ctx, input.IdempotencyKey); err != nil {
		return Transfer{}, err
	}

	t := Transfer{
		Reference:         uuid.NewString(),
		SourceWarehouseID: input.SourceWarehouseID,
		DestWarehouseID:   input.DestWarehouseID,
		Remark:            input.Remark,
		TotalQuantity:     totalQuantity(input.Items),
		Items:             input.Items,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.applyTransfer(ctx, tx, t); err != nil {
			return err
		}
		id, err := tx.InsertTransfer(ctx, t)
		if err != nil {
			return err
		}
		t.ID = id
		return nil
	})
	if err != nil {
		s.releaseKey(ctx, input.IdempotencyKey)
		return Transfer{}, err
	}
	s.afterMutation(ctx, "create", t.ID, map[string]any{"reference": t.Reference, "totalQuantity": t.TotalQuantity})
	return s.repo.Get(ctx, t.ID)
}

// Update replaces a transfer: the original movement is reversed in full,
// then the replacement applied, then the record overwritten.
func (s *Service) Update(ctx context.Context, id int64, input CreateInput) (Transfer, error) {
	if err := input.validate(); err != nil {
		return Transfer{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetTransferForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.reverseTransfer(ctx, tx, existing); err != nil {
			return err
		}
		replacement := Transfer{
			ID:                id,
			SourceWarehouseID: input.SourceWarehouseID,
			DestWarehouseID:   input.DestWarehouseID,
			Remark:            input.Remark,
			TotalQuantity:     totalQuantity(input.Items),
			Items:             input.Items,
		}
		if err := s.applyTransfer(ctx, tx, replacement); err != nil {
			return err
		}
		return tx.UpdateTransfer(ctx, replacement)
	})
	if err != nil {
		return Transfer{}, err
	}
	s.afterMutation(ctx, "update", id, map[string]any{"totalQuantity": totalQuantity(input.Items)})
	return s.repo.Get(ctx, id)
}

// Delete removes a transfer, pulling the stock back from the destination to
// the source in the same transaction.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetTransferForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.reverseTransfer(ctx, tx, existing); err != nil {
			return err
		}
		return tx.DeleteTransfer(ctx, id)
	})
	if err != nil {
		return err
	}
	s.afterMutation(ctx, "delete", id, nil)
	return nil
}

// Get loads one transfer.
func (s *Service) Get(ctx context.Context, id int64) (Transfer, error) {
	return s.repo.Get(ctx, id)
}

// List returns a transfer page.
func (s *Service) List(ctx context.Context, page, limit int, search string) ([]Transfer, int, error) {
	return s.repo.List(ctx, page, limit, search)
}

func (s *Service) applyTransfer(ctx context.Context, tx TxRepository, t Transfer) error {
	out, in := t.movements()
	if err := s.ledger.Apply(ctx, tx, out); err != nil {
		return err
	}
	return s.ledger.Apply(ctx, tx, in)
}

// reverseTransfer undoes a transfer. The destination side is reversed first;
// its decrease is availability-checked like any other, so a transfer whose
// destination stock has since been consumed cannot be reversed into
// negative quantities.
func (s *Service) reverseTransfer(ctx context.Context, tx TxRepository, t Transfer) error {
	out, in := t.movements()
	if err := s.ledger.Reverse(ctx, tx, in); err != nil {
		return err
	}
	return s.ledger.Reverse(ctx, tx, out)
}

func (s *Service) claimKey(ctx context.Context, key string) error {
	if key == "" || s.idem == nil {
		return nil
	}
	return s.idem.CheckAndInsert(ctx, key, "transfers")
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
		err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "stock_transfer", EntityID: strconv.FormatInt(id, 10), Meta: meta})
		if err != nil {
			s.logger.Warn("audit record failed", slog.Any("error", err))
		}
	}
}
