package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	commondomain "orderservice/pkg/common/domain"
	"orderservice/pkg/inventory/domain/model"
)

// Ledger is the only writer of product stock. Both operations run inside the
// caller's unit of work: the repository it is built with must be transaction-scoped,
// and the row lock taken by FindForUpdate is held until that transaction ends.
type Ledger interface {
	// Reserve decrements stock and returns the locked product so the caller can
	// snapshot its price under the same lock.
	Reserve(ctx context.Context, productID uuid.UUID, quantity int) (*model.Product, error)
	Release(ctx context.Context, productID uuid.UUID, quantity int) (*model.Product, error)
}

func NewLedger(repo model.ProductRepository, dispatcher commondomain.EventDispatcher) Ledger {
	return &ledger{repo: repo, dispatcher: dispatcher}
}

type ledger struct {
	repo       model.ProductRepository
	dispatcher commondomain.EventDispatcher
}

func (l *ledger) Reserve(ctx context.Context, productID uuid.UUID, quantity int) (*model.Product, error) {
	if quantity <= 0 {
		return nil, model.ErrInvalidStockQuantity
	}
	return l.changeStock(ctx, productID, -quantity)
}

func (l *ledger) Release(ctx context.Context, productID uuid.UUID, quantity int) (*model.Product, error) {
	if quantity <= 0 {
		return nil, model.ErrInvalidStockQuantity
	}
	return l.changeStock(ctx, productID, quantity)
}

func (l *ledger) changeStock(ctx context.Context, productID uuid.UUID, amount int) (*model.Product, error) {
	product, err := l.repo.FindForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Stock+amount < 0 {
		return nil, &model.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   product.Stock,
			Requested:   -amount,
		}
	}

	product.Stock += amount
	product.UpdatedAt = time.Now().UTC()

	if err := l.repo.Update(ctx, product); err != nil {
		return nil, err
	}

	_ = l.dispatcher.Dispatch(model.ProductStockChanged{
		ProductID:    productID,
		ChangeAmount: amount,
		NewQuantity:  product.Stock,
	})
	return product, nil
}
