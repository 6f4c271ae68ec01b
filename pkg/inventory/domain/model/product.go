package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrInsufficientStock    = errors.New("insufficient stock quantity")
	ErrInvalidStockQuantity = errors.New("stock quantity must be a positive number")
	ErrInvalidPrice         = errors.New("price must be positive with at most two decimal places")
	ErrProductInUse         = errors.New("product is referenced by order items")
)

// PriceScale is the number of fractional digits kept for money values.
const PriceScale = 2

type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InsufficientStockError is returned when a reservation asks for more than the product holds.
// It matches ErrInsufficientStock with errors.Is.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: available %d, requested %d", e.ProductName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func ValidatePrice(price decimal.Decimal) error {
	if !price.IsPositive() || !price.Equal(price.Round(PriceScale)) {
		return ErrInvalidPrice
	}
	return nil
}

// ProductRepository is bound to the caller's storage handle. Inside a unit of work
// FindForUpdate holds an exclusive lock on the product row until the transaction ends.
type ProductRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, product *Product) error
	Find(ctx context.Context, id uuid.UUID) (*Product, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}
