package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrEmptyCart              = errors.New("order must contain at least one item")
	ErrInvalidQuantity        = errors.New("quantity must be at least 1")
	ErrDuplicateProductInCart = errors.New("product appears more than once in cart")
	ErrNotCancellable         = errors.New("order cannot be cancelled")
	ErrOrderCannotBeModified  = errors.New("order cannot be modified in its current state")
	ErrForbidden              = errors.New("caller is neither the order owner nor an administrator")
)

type DuplicateProductError struct {
	ProductID uuid.UUID
}

func (e *DuplicateProductError) Error() string {
	return fmt.Sprintf("product %s appears more than once in cart", e.ProductID)
}

func (e *DuplicateProductError) Is(target error) bool {
	return target == ErrDuplicateProductInCart
}

type NotCancellableError struct {
	Status OrderStatus
}

func (e *NotCancellableError) Error() string {
	return fmt.Sprintf("order with status %q cannot be cancelled", e.Status)
}

func (e *NotCancellableError) Is(target error) bool {
	return target == ErrNotCancellable
}
