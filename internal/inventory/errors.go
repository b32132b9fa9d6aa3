package inventory

import (
	"errors"
	"fmt"
)

// InsufficientStockError rejects a sale whose quantity exceeds the product's
// current stock. Available carries the stock level observed inside the
// transaction so the caller can report it verbatim.
type InsufficientStockError struct {
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock available. Only %d units left.", e.Available)
}

// AsInsufficientStock unwraps err into an InsufficientStockError if it is one.
func AsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return ise, true
	}
	return nil, false
}

var (
	// ErrInvalidQuantity rejects non-positive sale quantities before any
	// state is touched.
	ErrInvalidQuantity = errors.New("sale quantity must be a positive integer")

	// ErrNegativeUnitPrice rejects caller-supplied unit price overrides
	// below zero.
	ErrNegativeUnitPrice = errors.New("unit price must not be negative")
)
