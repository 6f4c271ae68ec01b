package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inventorymodel "orderservice/pkg/inventory/domain/model"
	ordermodel "orderservice/pkg/order/domain/model"
	"orderservice/pkg/storage"
)

func newProduct(t *testing.T, s *Store, stock int) *inventorymodel.Product {
	t.Helper()
	product := &inventorymodel.Product{ID: uuid.New(), Name: "Chair", Price: decimal.RequireFromString("49.90"), Stock: stock}
	require.NoError(t, s.ProductRepository().Create(context.Background(), product))
	return product
}

func TestExecuteCommits(t *testing.T) {
	s := New()
	ctx := context.Background()
	product := newProduct(t, s, 5)
	orderID := uuid.New()

	err := s.Execute(ctx, func(provider storage.RepositoryProvider) error {
		p, err := provider.ProductRepository().FindForUpdate(ctx, product.ID)
		require.NoError(t, err)
		p.Stock = 2
		require.NoError(t, provider.ProductRepository().Update(ctx, p))

		order := &ordermodel.Order{ID: orderID, UserID: uuid.New(), Status: ordermodel.Pending, CreatedAt: time.Now()}
		require.NoError(t, provider.OrderRepository().Create(ctx, order))
		return provider.OrderRepository().AddItem(ctx, orderID, &ordermodel.Item{
			ID: uuid.New(), ProductID: product.ID, Quantity: 3, Price: p.Price,
		})
	})
	require.NoError(t, err)

	stored, err := s.ProductRepository().Find(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Stock)

	order, err := s.OrderRepository().Find(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Chair", order.Items[0].ProductName)
}

func TestExecuteRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	product := newProduct(t, s, 5)
	orderID := uuid.New()
	failure := errors.New("boom")

	err := s.Execute(ctx, func(provider storage.RepositoryProvider) error {
		p, _ := provider.ProductRepository().FindForUpdate(ctx, product.ID)
		p.Stock = 1
		require.NoError(t, provider.ProductRepository().Update(ctx, p))
		require.NoError(t, provider.OrderRepository().Create(ctx, &ordermodel.Order{ID: orderID, Status: ordermodel.Pending}))
		require.NoError(t, provider.OrderRepository().AddItem(ctx, orderID, &ordermodel.Item{ID: uuid.New(), ProductID: product.ID, Quantity: 4}))
		return failure
	})
	require.ErrorIs(t, err, failure)

	stored, err := s.ProductRepository().Find(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Stock)

	_, err = s.OrderRepository().Find(ctx, orderID)
	assert.ErrorIs(t, err, ordermodel.ErrOrderNotFound)
}

func TestExecuteRollsBackOnPanic(t *testing.T) {
	s := New()
	ctx := context.Background()
	product := newProduct(t, s, 5)

	assert.Panics(t, func() {
		_ = s.Execute(ctx, func(provider storage.RepositoryProvider) error {
			p, _ := provider.ProductRepository().FindForUpdate(ctx, product.ID)
			p.Stock = 0
			_ = provider.ProductRepository().Update(ctx, p)
			panic("unexpected")
		})
	})

	stored, err := s.ProductRepository().Find(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Stock)
}

func TestConstraints(t *testing.T) {
	s := New()
	ctx := context.Background()
	product := newProduct(t, s, 5)
	orderID := uuid.New()
	orders := s.OrderRepository()

	require.NoError(t, orders.Create(ctx, &ordermodel.Order{ID: orderID, Status: ordermodel.Pending}))
	require.NoError(t, orders.AddItem(ctx, orderID, &ordermodel.Item{ID: uuid.New(), ProductID: product.ID, Quantity: 1}))

	t.Run("Duplicate product in one order", func(t *testing.T) {
		err := orders.AddItem(ctx, orderID, &ordermodel.Item{ID: uuid.New(), ProductID: product.ID, Quantity: 1})
		assert.ErrorIs(t, err, ordermodel.ErrDuplicateProductInCart)
	})

	t.Run("Referenced product cannot be deleted", func(t *testing.T) {
		err := s.ProductRepository().Delete(ctx, product.ID)
		assert.ErrorIs(t, err, inventorymodel.ErrProductInUse)
	})

	t.Run("Stock cannot become negative", func(t *testing.T) {
		p, _ := s.ProductRepository().Find(ctx, product.ID)
		p.Stock = -1
		assert.Error(t, s.ProductRepository().Update(ctx, p))
	})
}

func TestListOrdersNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now()
	older := &ordermodel.Order{ID: uuid.New(), UserID: userID, CreatedAt: now.Add(-time.Minute)}
	newer := &ordermodel.Order{ID: uuid.New(), UserID: userID, CreatedAt: now}
	other := &ordermodel.Order{ID: uuid.New(), UserID: uuid.New(), CreatedAt: now}
	for _, o := range []*ordermodel.Order{older, newer, other} {
		require.NoError(t, s.OrderRepository().Create(ctx, o))
	}

	orders, err := s.OrderRepository().ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, newer.ID, orders[0].ID)
	assert.Equal(t, older.ID, orders[1].ID)

	all, err := s.OrderRepository().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
