package service

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrBatchNotFound       = errors.New("batch not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrGrantNotFound       = errors.New("sharing grant not found")
	ErrSaleNotFound        = errors.New("sale not found")

	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrInvalidPriceUnit     = errors.New("price unit must be M2 or FT2")
	ErrBatchInactive        = errors.New("batch is inactive")
	ErrBatchHasReservations = errors.New("batch has reserved slabs")

	ErrExpiryInPast               = errors.New("expiry must be in the future")
	ErrReservationNotActive       = errors.New("reservation is not active")
	ErrReservationNotApproved     = errors.New("reservation is not approved")
	ErrQuantityExceedsReservation = errors.New("quantity exceeds reserved quantity")
	ErrAlreadyConverted           = errors.New("reservation already converted to a sale")

	// ErrInvariantViolation means the slab counters desynchronized. It is
	// a bug, not a user error: the mutation is halted, never clamped.
	ErrInvariantViolation = errors.New("ledger invariant violation")
)

// InsufficientStockError carries the actual availability so callers can
// offer a reduced quantity.
type InsufficientStockError struct {
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d", e.Requested, e.Available)
}

// IsInsufficientStock reports whether err is an InsufficientStockError.
func IsInsufficientStock(err error) bool {
	var ise *InsufficientStockError
	return errors.As(err, &ise)
}
