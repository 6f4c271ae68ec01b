// Package storage defines the explicit transaction handle shared by the inventory and order contexts.
package storage

import (
	"context"

	inventorymodel "orderservice/pkg/inventory/domain/model"
	ordermodel "orderservice/pkg/order/domain/model"
)

type RepositoryProvider interface {
	ProductRepository() inventorymodel.ProductRepository
	OrderRepository() ordermodel.OrderRepository
}

// UnitOfWork runs fn inside one database transaction. The provider passed to fn is
// bound to that transaction; it commits when fn returns nil and rolls back otherwise.
// The embedded RepositoryProvider reads outside any transaction and takes no locks.
type UnitOfWork interface {
	RepositoryProvider
	Execute(ctx context.Context, fn func(provider RepositoryProvider) error) error
}
