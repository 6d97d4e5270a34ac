package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a case-insensitive name collision.
	ErrDuplicate = errors.New("duplicate name")
	// ErrInvalidInput indicates a missing or malformed field.
	ErrInvalidInput = errors.New("invalid input")
)

// NotFoundError identifies which entity failed to resolve.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// DuplicateError carries the conflicting name for reference entities.
type DuplicateError struct {
	Entity string
	Name   string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s with name %q already exists", e.Entity, e.Name)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

// ErrInsufficientStock is the sentinel behind every ShortageError.
var ErrInsufficientStock = errors.New("insufficient stock")

// ShortageError reports an attempted decrease past the on-hand quantity.
// The available/required/shortage field names are relied on by clients.
type ShortageError struct {
	ProductID   int64 `json:"productId"`
	WarehouseID int64 `json:"warehouseId"`
	Available   int64 `json:"available"`
	Required    int64 `json:"required"`
	Shortage    int64 `json:"shortage"`
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d in warehouse %d: available %d, required %d, shortage %d",
		e.ProductID, e.WarehouseID, e.Available, e.Required, e.Shortage)
}

func (e *ShortageError) Unwrap() error { return ErrInsufficientStock }

// ReferentialGuardError blocks deletion of an entity that is still referenced.
type ReferentialGuardError struct {
	Entity       string
	ReferencedBy string
	Count        int64
}

func (e *ReferentialGuardError) Error() string {
	return fmt.Sprintf("%s is referenced by %d %s, cannot delete", e.Entity, e.Count, e.ReferencedBy)
}

// UserSafeMessage returns a message suitable for API consumers, hiding
// storage internals behind a generic text.
func UserSafeMessage(err error) string {
	var nf *NotFoundError
	var dup *DuplicateError
	var guard *ReferentialGuardError
	var short *ShortageError
	switch {
	case errors.As(err, &nf):
		return nf.Error()
	case errors.As(err, &dup):
		return dup.Error()
	case errors.As(err, &guard):
		return guard.Error()
	case errors.As(err, &short):
		return short.Error()
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNotFound), errors.Is(err, ErrDuplicate):
		return err.Error()
	default:
		return "internal error"
	}
}
