package tests

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	commondomain "orderservice/pkg/common/domain"
	catalogservice "orderservice/pkg/inventory/application/service"
	inventorymodel "orderservice/pkg/inventory/domain/model"
	"orderservice/pkg/order/application/service"
	"orderservice/pkg/order/domain/model"
	"orderservice/pkg/storage"
	"orderservice/pkg/storage/memstore"
)

type fixture struct {
	orders     service.OrderService
	catalog    catalogservice.CatalogService
	dispatcher *recordingDispatcher
	logs       *logtest.Hook
}

func setup(t *testing.T) *fixture {
	t.Helper()
	return newFixture(memstore.New(), &recordingDispatcher{})
}

func newFixture(uow storage.UnitOfWork, dispatcher *recordingDispatcher) *fixture {
	logger, hook := logtest.NewNullLogger()
	f := &fixture{
		orders:     service.NewOrderService(uow, dispatcher, logger),
		dispatcher: dispatcher,
		logs:       hook,
	}
	if store, ok := uow.(*memstore.Store); ok {
		f.catalog = catalogservice.NewCatalogService(store, &commondomain.EventBuffer{}, logger)
	}
	return f
}

func (f *fixture) product(t testing.TB, name, price string, stock int) *inventorymodel.Product {
	t.Helper()
	product, err := f.catalog.CreateProduct(context.Background(), name, "", decimal.RequireFromString(price), stock)
	require.NoError(t, err)
	return product
}

func (f *fixture) stock(t testing.TB, productID uuid.UUID) int {
	t.Helper()
	product, err := f.catalog.FindProduct(context.Background(), productID)
	require.NoError(t, err)
	return product.Stock
}

func TestOrderLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := model.Principal{UserID: uuid.New()}
	p := f.product(t, "P", "10.00", 5)

	order, err := f.orders.CreateOrder(ctx, owner.UserID, []model.CartLine{{ProductID: p.ID, Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, model.Pending, order.Status)
	assert.Equal(t, "30.00", order.Total.StringFixed(2))
	assert.Equal(t, 2, f.stock(t, p.ID))
	assert.Equal(t, []string{"ProductStockChanged", "OrderCreated"}, f.dispatcher.types())

	f.dispatcher.reset()
	cancelled, err := f.orders.CancelOrder(ctx, order.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, model.Cancelled, cancelled.Status)
	assert.Equal(t, 5, f.stock(t, p.ID))
	assert.Equal(t, []string{"ProductStockChanged", "OrderCancelled"}, f.dispatcher.types())

	_, err = f.orders.CancelOrder(ctx, order.ID, owner)
	var notCancellable *model.NotCancellableError
	require.ErrorAs(t, err, &notCancellable)
	assert.Equal(t, model.Cancelled, notCancellable.Status)
	assert.Equal(t, 5, f.stock(t, p.ID))
}

func TestCreateOrderValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	userID := uuid.New()
	p := f.product(t, "P", "10.00", 5)

	t.Run("Empty cart", func(t *testing.T) {
		_, err := f.orders.CreateOrder(ctx, userID, nil)
		assert.ErrorIs(t, err, model.ErrEmptyCart)
	})

	t.Run("Duplicate product", func(t *testing.T) {
		_, err := f.orders.CreateOrder(ctx, userID, []model.CartLine{
			{ProductID: p.ID, Quantity: 1},
			{ProductID: p.ID, Quantity: 2},
		})
		assert.ErrorIs(t, err, model.ErrDuplicateProductInCart)
	})

	t.Run("Unknown product", func(t *testing.T) {
		_, err := f.orders.CreateOrder(ctx, userID, []model.CartLine{{ProductID: uuid.New(), Quantity: 1}})
		assert.ErrorIs(t, err, inventorymodel.ErrProductNotFound)
	})

	t.Run("Insufficient stock is caught before the transaction", func(t *testing.T) {
		_, err := f.orders.CreateOrder(ctx, userID, []model.CartLine{{ProductID: p.ID, Quantity: 6}})
		var stockErr *inventorymodel.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, 5, stockErr.Available)
		assert.Equal(t, 6, stockErr.Requested)
	})

	orders, err := f.orders.ListOrders(ctx, model.Principal{UserID: userID})
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, 5, f.stock(t, p.ID))
	assert.Empty(t, f.dispatcher.types())
}

// racingUnitOfWork lets another buyer take stock after the advisory check has passed.
type racingUnitOfWork struct {
	*memstore.Store
	before func()
}

func (u *racingUnitOfWork) Execute(ctx context.Context, fn func(provider storage.RepositoryProvider) error) error {
	if u.before != nil {
		u.before()
		u.before = nil
	}
	return u.Store.Execute(ctx, fn)
}

func TestCreateOrderRollsBackWholeCart(t *testing.T) {
	store := memstore.New()
	seed := newFixture(store, &recordingDispatcher{})
	a := seed.product(t, "A", "1.00", 5)
	b := seed.product(t, "B", "2.00", 5)

	uow := &racingUnitOfWork{Store: store, before: func() {
		product, err := store.ProductRepository().Find(context.Background(), b.ID)
		require.NoError(t, err)
		product.Stock = 1
		require.NoError(t, store.ProductRepository().Update(context.Background(), product))
	}}
	f := newFixture(uow, &recordingDispatcher{})
	userID := uuid.New()

	_, err := f.orders.CreateOrder(context.Background(), userID, []model.CartLine{
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 3},
	})
	var stockErr *inventorymodel.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, b.ID, stockErr.ProductID)
	assert.Equal(t, 1, stockErr.Available)

	assert.Equal(t, 5, seed.stock(t, a.ID))
	assert.Equal(t, 1, seed.stock(t, b.ID))
	orders, err := f.orders.ListOrders(context.Background(), model.Principal{UserID: userID})
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, f.dispatcher.types())
}

func TestConcurrentOrdersForLastUnit(t *testing.T) {
	f := setup(t)
	p := f.product(t, "Last", "99.00", 1)
	const buyers = 10

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []*model.Order
		failed    []error
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := f.orders.CreateOrder(context.Background(), uuid.New(), []model.CartLine{{ProductID: p.ID, Quantity: 1}})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, err)
				return
			}
			succeeded = append(succeeded, order)
		}()
	}
	wg.Wait()

	require.Len(t, succeeded, 1)
	require.Len(t, failed, buyers-1)
	for _, err := range failed {
		var stockErr *inventorymodel.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, 1, stockErr.Requested)
		assert.LessOrEqual(t, stockErr.Available, 1)
	}
	assert.Equal(t, 0, f.stock(t, p.ID))

	all, err := f.orders.ListOrders(context.Background(), model.Principal{UserID: uuid.New(), IsAdmin: true})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConcurrentCancelReleasesOnce(t *testing.T) {
	f := setup(t)
	p := f.product(t, "P", "5.00", 4)
	owner := model.Principal{UserID: uuid.New()}
	order, err := f.orders.CreateOrder(context.Background(), owner.UserID, []model.CartLine{{ProductID: p.ID, Quantity: 4}})
	require.NoError(t, err)

	const attempts = 5
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.orders.CancelOrder(context.Background(), order.ID, owner)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, model.ErrNotCancellable)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 4, f.stock(t, p.ID))
}

func TestAuthorization(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.product(t, "P", "3.00", 10)
	owner := model.Principal{UserID: uuid.New()}
	stranger := model.Principal{UserID: uuid.New()}
	admin := model.Principal{UserID: uuid.New(), IsAdmin: true}

	order, err := f.orders.CreateOrder(ctx, owner.UserID, []model.CartLine{{ProductID: p.ID, Quantity: 2}})
	require.NoError(t, err)

	t.Run("Stranger cannot read or cancel", func(t *testing.T) {
		_, err := f.orders.GetOrder(ctx, order.ID, stranger)
		assert.ErrorIs(t, err, model.ErrForbidden)
		_, err = f.orders.CancelOrder(ctx, order.ID, stranger)
		assert.ErrorIs(t, err, model.ErrForbidden)
		assert.Equal(t, 8, f.stock(t, p.ID))
	})

	t.Run("Unknown order", func(t *testing.T) {
		_, err := f.orders.CancelOrder(ctx, uuid.New(), admin)
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
	})

	t.Run("Only administrators change status", func(t *testing.T) {
		_, err := f.orders.ConfirmOrder(ctx, order.ID, owner)
		assert.ErrorIs(t, err, model.ErrForbidden)

		confirmed, err := f.orders.ConfirmOrder(ctx, order.ID, admin)
		require.NoError(t, err)
		assert.Equal(t, model.Confirmed, confirmed.Status)
	})

	t.Run("Administrator cancels a confirmed order", func(t *testing.T) {
		cancelled, err := f.orders.CancelOrder(ctx, order.ID, admin)
		require.NoError(t, err)
		assert.Equal(t, model.Cancelled, cancelled.Status)
		assert.Equal(t, 10, f.stock(t, p.ID))

		_, err = f.orders.CompleteOrder(ctx, order.ID, admin)
		assert.ErrorIs(t, err, model.ErrOrderCannotBeModified)
	})

	t.Run("Listing", func(t *testing.T) {
		_, err := f.orders.CreateOrder(ctx, stranger.UserID, []model.CartLine{{ProductID: p.ID, Quantity: 1}})
		require.NoError(t, err)

		own, err := f.orders.ListOrders(ctx, owner)
		require.NoError(t, err)
		assert.Len(t, own, 1)

		all, err := f.orders.ListOrders(ctx, admin)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestPriceChangeDoesNotAffectPlacedOrders(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := model.Principal{UserID: uuid.New()}
	p := f.product(t, "P", "10.00", 5)

	order, err := f.orders.CreateOrder(ctx, owner.UserID, []model.CartLine{{ProductID: p.ID, Quantity: 2}})
	require.NoError(t, err)

	_, err = f.catalog.ChangePrice(ctx, p.ID, decimal.RequireFromString("12.50"))
	require.NoError(t, err)

	stored, err := f.orders.GetOrder(ctx, order.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "10.00", stored.Items[0].Price.StringFixed(2))
	assert.Equal(t, "20.00", stored.Total.StringFixed(2))

	next, err := f.orders.CreateOrder(ctx, owner.UserID, []model.CartLine{{ProductID: p.ID, Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, "25.00", next.Total.StringFixed(2))
}

func TestNotificationFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture(memstore.New(), &recordingDispatcher{err: errors.New("sink unavailable")})
	p := f.product(t, "P", "10.00", 5)

	order, err := f.orders.CreateOrder(context.Background(), uuid.New(), []model.CartLine{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, model.Pending, order.Status)
	assert.Equal(t, 4, f.stock(t, p.ID))

	var logged bool
	for _, entry := range f.logs.AllEntries() {
		if entry.Level == logrus.ErrorLevel && entry.Message == "failed to dispatch event" {
			logged = true
		}
	}
	assert.True(t, logged)
}

func TestOrderTotalProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := newFixture(memstore.New(), &recordingDispatcher{})
		ctx := context.Background()

		count := rapid.IntRange(1, 6).Draw(t, "products")
		lines := make([]model.CartLine, 0, count)
		expected := decimal.Zero
		for i := 0; i < count; i++ {
			cents := rapid.Int64Range(1, 1_000_000).Draw(t, "cents")
			quantity := rapid.IntRange(1, 50).Draw(t, "quantity")
			price := decimal.New(cents, -2)

			product, err := f.catalog.CreateProduct(ctx, "P", "", price, quantity)
			if err != nil {
				t.Fatalf("create product: %v", err)
			}
			lines = append(lines, model.CartLine{ProductID: product.ID, Quantity: quantity})
			expected = expected.Add(price.Mul(decimal.NewFromInt(int64(quantity))))
		}

		order, err := f.orders.CreateOrder(ctx, uuid.New(), lines)
		if err != nil {
			t.Fatalf("create order: %v", err)
		}
		if !order.Total.Equal(expected) {
			t.Fatalf("total %s, expected %s", order.Total, expected)
		}
		if !order.Total.Equal(order.CalculateTotal()) {
			t.Fatalf("total %s differs from item sum %s", order.Total, order.CalculateTotal())
		}
		for _, line := range lines {
			product, err := f.catalog.FindProduct(ctx, line.ProductID)
			if err != nil || product.Stock != 0 {
				t.Fatalf("product %s: stock %v, err %v", line.ProductID, product, err)
			}
		}
	})
}

type recordingDispatcher struct {
	mu     sync.Mutex
	err    error
	events []commondomain.Event
}

func (d *recordingDispatcher) Dispatch(event commondomain.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return d.err
}

func (d *recordingDispatcher) types() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	result := make([]string, 0, len(d.events))
	for _, event := range d.events {
		result = append(result, event.Type())
	}
	return result
}

func (d *recordingDispatcher) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = nil
}
