package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	inventorymodel "orderservice/pkg/inventory/domain/model"
	ordermodel "orderservice/pkg/order/domain/model"
)

type productRepository struct {
	session
}

func (r *productRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *productRepository) Create(_ context.Context, product *inventorymodel.Product) error {
	defer r.write()()

	if _, exists := r.store.products[product.ID]; exists {
		return errors.Errorf("product %s already exists", product.ID)
	}
	r.store.products[product.ID] = *product
	r.record(func() { delete(r.store.products, product.ID) })
	return nil
}

func (r *productRepository) Find(_ context.Context, id uuid.UUID) (*inventorymodel.Product, error) {
	defer r.read()()

	product, ok := r.store.products[id]
	if !ok {
		return nil, errors.Wrapf(inventorymodel.ErrProductNotFound, "product %s", id)
	}
	return &product, nil
}

func (r *productRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*inventorymodel.Product, error) {
	return r.Find(ctx, id)
}

func (r *productRepository) Update(_ context.Context, product *inventorymodel.Product) error {
	defer r.write()()

	previous, ok := r.store.products[product.ID]
	if !ok {
		return errors.Wrapf(inventorymodel.ErrProductNotFound, "product %s", product.ID)
	}
	if product.Stock < 0 {
		return errors.Errorf("stock of product %s would become negative", product.ID)
	}
	r.store.products[product.ID] = *product
	r.record(func() { r.store.products[product.ID] = previous })
	return nil
}

func (r *productRepository) Delete(_ context.Context, id uuid.UUID) error {
	defer r.write()()

	previous, ok := r.store.products[id]
	if !ok {
		return errors.Wrapf(inventorymodel.ErrProductNotFound, "product %s", id)
	}
	for _, items := range r.store.items {
		for _, item := range items {
			if item.ProductID == id {
				return errors.Wrapf(inventorymodel.ErrProductInUse, "product %s", id)
			}
		}
	}
	delete(r.store.products, id)
	r.record(func() { r.store.products[id] = previous })
	return nil
}

type orderRepository struct {
	session
}

func (r *orderRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *orderRepository) Create(_ context.Context, order *ordermodel.Order) error {
	defer r.write()()

	if _, exists := r.store.orders[order.ID]; exists {
		return errors.Errorf("order %s already exists", order.ID)
	}
	stored := *order
	stored.Items = nil
	r.store.orders[order.ID] = stored
	r.record(func() {
		delete(r.store.orders, order.ID)
		delete(r.store.items, order.ID)
	})
	return nil
}

func (r *orderRepository) AddItem(_ context.Context, orderID uuid.UUID, item *ordermodel.Item) error {
	defer r.write()()

	if _, ok := r.store.orders[orderID]; !ok {
		return errors.Wrapf(ordermodel.ErrOrderNotFound, "order %s", orderID)
	}
	if _, ok := r.store.products[item.ProductID]; !ok {
		return errors.Wrapf(inventorymodel.ErrProductNotFound, "product %s", item.ProductID)
	}
	items := r.store.items[orderID]
	for _, existing := range items {
		if existing.ProductID == item.ProductID {
			return &ordermodel.DuplicateProductError{ProductID: item.ProductID}
		}
	}
	r.store.items[orderID] = append(items, *item)
	r.record(func() { r.store.items[orderID] = items })
	return nil
}

func (r *orderRepository) Update(_ context.Context, order *ordermodel.Order) error {
	defer r.write()()

	previous, ok := r.store.orders[order.ID]
	if !ok {
		return errors.Wrapf(ordermodel.ErrOrderNotFound, "order %s", order.ID)
	}
	updated := previous
	updated.Status = order.Status
	updated.Total = order.Total
	updated.UpdatedAt = order.UpdatedAt
	r.store.orders[order.ID] = updated
	r.record(func() { r.store.orders[order.ID] = previous })
	return nil
}

func (r *orderRepository) Find(_ context.Context, id uuid.UUID) (*ordermodel.Order, error) {
	defer r.read()()

	if _, ok := r.store.orders[id]; !ok {
		return nil, errors.Wrapf(ordermodel.ErrOrderNotFound, "order %s", id)
	}
	return r.load(id), nil
}

func (r *orderRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*ordermodel.Order, error) {
	return r.Find(ctx, id)
}

func (r *orderRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]*ordermodel.Order, error) {
	defer r.read()()

	return r.collect(func(order ordermodel.Order) bool { return order.UserID == userID }), nil
}

func (r *orderRepository) List(_ context.Context) ([]*ordermodel.Order, error) {
	defer r.read()()

	return r.collect(func(ordermodel.Order) bool { return true }), nil
}

func (r *orderRepository) collect(match func(order ordermodel.Order) bool) []*ordermodel.Order {
	result := make([]*ordermodel.Order, 0)
	for id, order := range r.store.orders {
		if match(order) {
			result = append(result, r.load(id))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// load copies an order with its items; product names are read live, like a join.
func (r *orderRepository) load(id uuid.UUID) *ordermodel.Order {
	order := r.store.orders[id]
	items := r.store.items[id]
	order.Items = make([]ordermodel.Item, len(items))
	for i, item := range items {
		if product, ok := r.store.products[item.ProductID]; ok {
			item.ProductName = product.Name
		}
		order.Items[i] = item
	}
	return &order
}
