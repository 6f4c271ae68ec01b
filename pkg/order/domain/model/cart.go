package model

import "github.com/google/uuid"

// CartLine is one requested product in a new order.
type CartLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// ValidateCart checks the shape of a cart. It does not touch storage.
func ValidateCart(lines []CartLine) error {
	if len(lines) == 0 {
		return ErrEmptyCart
	}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return ErrInvalidQuantity
		}
		if _, ok := seen[line.ProductID]; ok {
			return &DuplicateProductError{ProductID: line.ProductID}
		}
		seen[line.ProductID] = struct{}{}
	}
	return nil
}
