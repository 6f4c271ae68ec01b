package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	commondomain "orderservice/pkg/common/domain"
	inventoryservice "orderservice/pkg/inventory/domain/service"
	"orderservice/pkg/order/domain/model"
)

// OrderService runs the order workflow against transaction-scoped repositories.
// An error from any method means the enclosing unit of work must be rolled back.
type OrderService interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, lines []model.CartLine) (*model.Order, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error)
	ConfirmOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error)
	CompleteOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error)
}

func NewOrderService(
	repo model.OrderRepository,
	ledger inventoryservice.Ledger,
	dispatcher commondomain.EventDispatcher,
) OrderService {
	return &orderService{repo: repo, ledger: ledger, dispatcher: dispatcher}
}

type orderService struct {
	repo       model.OrderRepository
	ledger     inventoryservice.Ledger
	dispatcher commondomain.EventDispatcher
}

func (s *orderService) CreateOrder(ctx context.Context, userID uuid.UUID, lines []model.CartLine) (*model.Order, error) {
	if err := model.ValidateCart(lines); err != nil {
		return nil, err
	}

	orderID, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	order := &model.Order{
		ID:        orderID,
		UserID:    userID,
		Status:    model.Pending,
		Total:     decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, line := range lines {
		product, err := s.ledger.Reserve(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, err
		}

		itemID, err := s.repo.NextID()
		if err != nil {
			return nil, err
		}
		item := model.Item{
			ID:          itemID,
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			Price:       product.Price,
		}
		if err := s.repo.AddItem(ctx, order.ID, &item); err != nil {
			return nil, err
		}

		order.Items = append(order.Items, item)
		total = total.Add(item.Subtotal())
	}

	order.Total = total
	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.OrderCreated{
		OrderID:     order.ID,
		UserID:      userID,
		TotalAmount: total,
		ItemCount:   len(order.Items),
	})
	return order, nil
}

func (s *orderService) CancelOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.repo.FindForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// the caller's check ran without the lock; a concurrent cancel may have won since
	if !order.CanBeCancelled() {
		return nil, &model.NotCancellableError{Status: order.Status}
	}

	for _, item := range order.Items {
		if _, err := s.ledger.Release(ctx, item.ProductID, item.Quantity); err != nil {
			return nil, errors.Wrapf(err, "release stock of product %s", item.ProductID)
		}
	}

	order.Status = model.Cancelled
	if err := s.updateOrder(ctx, order); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.OrderCancelled{OrderID: order.ID, UserID: order.UserID})
	return order, nil
}

func (s *orderService) ConfirmOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	return s.changeStatus(ctx, orderID, model.Pending, model.Confirmed)
}

func (s *orderService) CompleteOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	return s.changeStatus(ctx, orderID, model.Confirmed, model.Completed)
}

func (s *orderService) changeStatus(ctx context.Context, orderID uuid.UUID, from, to model.OrderStatus) (*model.Order, error) {
	order, err := s.repo.FindForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != from {
		return nil, errors.Wrapf(model.ErrOrderCannotBeModified, "order is %s", order.Status)
	}

	order.Status = to
	if err := s.updateOrder(ctx, order); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.OrderStatusChanged{OrderID: orderID, OldStatus: from, NewStatus: to})
	return order, nil
}

func (s *orderService) updateOrder(ctx context.Context, order *model.Order) error {
	order.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, order)
}
