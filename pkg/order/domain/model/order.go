package model

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	Pending   OrderStatus = "pending"
	Confirmed OrderStatus = "confirmed"
	Cancelled OrderStatus = "cancelled"
	Completed OrderStatus = "completed"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case Pending, Confirmed, Cancelled, Completed:
		return true
	}
	return false
}

type Order struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Status    OrderStatus
	Items     []Item
	Total     decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is a line of an order. Price is the unit price captured when the order was created.
type Item struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (o *Order) CalculateTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (o *Order) CanBeCancelled() bool {
	return o.Status == Pending || o.Status == Confirmed
}

func (o *Order) OwnedBy(userID uuid.UUID) bool {
	return o.UserID == userID
}

// Principal is the authenticated caller, resolved outside this service.
type Principal struct {
	UserID  uuid.UUID
	IsAdmin bool
}

func (p Principal) CanAccess(order *Order) bool {
	return p.IsAdmin || order.OwnedBy(p.UserID)
}

// OrderRepository has no delete: orders are kept for purchase history.
type OrderRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, order *Order) error
	AddItem(ctx context.Context, orderID uuid.UUID, item *Item) error
	// Update persists status, total and updated_at only.
	Update(ctx context.Context, order *Order) error
	Find(ctx context.Context, id uuid.UUID) (*Order, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error)
	List(ctx context.Context) ([]*Order, error)
}
