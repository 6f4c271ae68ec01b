package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	inventorymodel "orderservice/pkg/inventory/domain/model"
	"orderservice/pkg/order/domain/model"
)

const orderColumns = `id, user_id, status, total, created_at, updated_at`

type sqlxOrder struct {
	ID        uuid.UUID       `db:"id"`
	UserID    uuid.UUID       `db:"user_id"`
	Status    string          `db:"status"`
	Total     decimal.Decimal `db:"total"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

type sqlxItem struct {
	ID          uuid.UUID       `db:"id"`
	OrderID     uuid.UUID       `db:"order_id"`
	ProductID   uuid.UUID       `db:"product_id"`
	ProductName string          `db:"product_name"`
	Quantity    int             `db:"quantity"`
	Price       decimal.Decimal `db:"price"`
}

func (o sqlxOrder) toModel(items []sqlxItem) *model.Order {
	order := &model.Order{
		ID:        o.ID,
		UserID:    o.UserID,
		Status:    model.OrderStatus(o.Status),
		Items:     make([]model.Item, 0, len(items)),
		Total:     o.Total,
		CreatedAt: o.CreatedAt.UTC(),
		UpdatedAt: o.UpdatedAt.UTC(),
	}
	for _, item := range items {
		order.Items = append(order.Items, model.Item{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}
	return order
}

type orderRepository struct {
	db sqlx.ExtContext
}

func (r *orderRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`),
		order.ID,
		order.UserID,
		string(order.Status),
		order.Total,
		order.CreatedAt,
		order.UpdatedAt,
	)
	return errors.Wrap(err, "failed to insert order")
}

func (r *orderRepository) AddItem(ctx context.Context, orderID uuid.UUID, item *model.Item) error {
	var position int
	err := sqlx.GetContext(ctx, r.db, &position, r.db.Rebind(`SELECT COUNT(*) FROM order_item WHERE order_id = ?`), orderID)
	if err != nil {
		return errors.Wrapf(err, "failed to count items of order %s", orderID)
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO order_item (id, order_id, product_id, position, quantity, price)
		VALUES (?, ?, ?, ?, ?, ?)`),
		item.ID,
		orderID,
		item.ProductID,
		position,
		item.Quantity,
		item.Price,
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return &model.DuplicateProductError{ProductID: item.ProductID}
	case isForeignKeyViolation(err):
		return errors.Wrapf(inventorymodel.ErrProductNotFound, "product %s", item.ProductID)
	}
	return errors.Wrapf(err, "failed to insert item of order %s", orderID)
}

func (r *orderRepository) Update(ctx context.Context, order *model.Order) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE orders
		SET status = ?, total = ?, updated_at = ?
		WHERE id = ?`),
		string(order.Status),
		order.Total,
		order.UpdatedAt,
		order.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update order %s", order.ID)
	}
	return expectAffected(result, errors.Wrapf(model.ErrOrderNotFound, "order %s", order.ID))
}

func (r *orderRepository) Find(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.find(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
}

func (r *orderRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.find(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ? FOR UPDATE`, id)
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

func (r *orderRepository) List(ctx context.Context) ([]*model.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (r *orderRepository) find(ctx context.Context, query string, id uuid.UUID) (*model.Order, error) {
	var order sqlxOrder
	err := sqlx.GetContext(ctx, r.db, &order, r.db.Rebind(query), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(model.ErrOrderNotFound, "order %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to select order %s", id)
	}

	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	return order.toModel(items[id]), nil
}

func (r *orderRepository) list(ctx context.Context, query string, args ...interface{}) ([]*model.Order, error) {
	var orders []sqlxOrder
	if err := sqlx.SelectContext(ctx, r.db, &orders, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "failed to select orders")
	}

	result := make([]*model.Order, 0, len(orders))
	if len(orders) == 0 {
		return result, nil
	}

	ids := make([]uuid.UUID, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}
	items, err := r.items(ctx, ids...)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		result = append(result, order.toModel(items[order.ID]))
	}
	return result, nil
}

// items loads line items grouped by order, joined with the current product name.
func (r *orderRepository) items(ctx context.Context, orderIDs ...uuid.UUID) (map[uuid.UUID][]sqlxItem, error) {
	query, args, err := sqlx.In(`
		SELECT oi.id, oi.order_id, oi.product_id, p.name AS product_name, oi.quantity, oi.price
		FROM order_item oi
		INNER JOIN product p ON p.id = oi.product_id
		WHERE oi.order_id IN (?)
		ORDER BY oi.order_id, oi.position`, orderIDs)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var items []sqlxItem
	if err := sqlx.SelectContext(ctx, r.db, &items, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "failed to select order items")
	}

	grouped := make(map[uuid.UUID][]sqlxItem, len(orderIDs))
	for _, item := range items {
		grouped[item.OrderID] = append(grouped[item.OrderID], item)
	}
	return grouped, nil
}
