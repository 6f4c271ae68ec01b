package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	commondomain "orderservice/pkg/common/domain"
	inventorymodel "orderservice/pkg/inventory/domain/model"
	inventoryservice "orderservice/pkg/inventory/domain/service"
	"orderservice/pkg/order/domain/model"
	domainservice "orderservice/pkg/order/domain/service"
	"orderservice/pkg/storage"
)

var tracer = otel.Tracer("orderservice/pkg/order")

type OrderService interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, lines []model.CartLine) (*model.Order, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, caller model.Principal) (*model.Order, error)
	ConfirmOrder(ctx context.Context, orderID uuid.UUID, caller model.Principal) (*model.Order, error)
	CompleteOrder(ctx context.Context, orderID uuid.UUID, caller model.Principal) (*model.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, caller model.Principal) (*model.Order, error)
	ListOrders(ctx context.Context, caller model.Principal) ([]*model.Order, error)
}

func NewOrderService(uow storage.UnitOfWork, dispatcher commondomain.EventDispatcher, logger logrus.FieldLogger) OrderService {
	return &orderService{uow: uow, dispatcher: dispatcher, logger: logger}
}

type orderService struct {
	uow        storage.UnitOfWork
	dispatcher commondomain.EventDispatcher
	logger     logrus.FieldLogger
}

func (s *orderService) CreateOrder(ctx context.Context, userID uuid.UUID, lines []model.CartLine) (order *model.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.CreateOrder", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int("cart.lines", len(lines)),
	))
	defer func() { endSpan(span, err) }()

	if err := model.ValidateCart(lines); err != nil {
		return nil, err
	}
	if err := s.checkAvailability(ctx, lines); err != nil {
		return nil, err
	}

	events := &commondomain.EventBuffer{}
	err = s.uow.Execute(ctx, func(provider storage.RepositoryProvider) error {
		var err error
		order, err = s.workflow(provider, events).CreateOrder(ctx, userID, lines)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dispatchEvents(events)
	s.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  userID,
		"total":    order.Total.StringFixed(inventorymodel.PriceScale),
		"items":    len(order.Items),
	}).Info("order created")
	return order, nil
}

func (s *orderService) CancelOrder(ctx context.Context, orderID uuid.UUID, caller model.Principal) (order *model.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.CancelOrder", trace.WithAttributes(attribute.String("order.id", orderID.String())))
	defer func() { endSpan(span, err) }()

	current, err := s.findAccessible(ctx, orderID, caller)
	if err != nil {
		return nil, err
	}
	if !current.CanBeCancelled() {
		return nil, &model.NotCancellableError{Status: current.Status}
	}

	events := &commondomain.EventBuffer{}
	err = s.uow.Execute(ctx, func(provider storage.RepositoryProvider) error {
		var err error
		order, err = s.workflow(provider, events).CancelOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dispatchEvents(events)
	s.logger.WithFields(logrus.Fields{"order_id": orderID, "caller_id": caller.UserID}).Info("order cancelled")
	return order, nil
}

func (s *orderService) ConfirmOrder(ctx context.Context, orderID uuid.UUID, caller model.Principal) (*model.Order, error) {
	return s.transition(ctx, "OrderService.ConfirmOrder", orderID, caller, domainservice.OrderService.ConfirmOrder)
}

func (s *orderService) CompleteOrder(ctx context.Context, orderID uuid.UUID, caller model.Principal) (*model.Order, error) {
	return s.transition(ctx, "OrderService.CompleteOrder", orderID, caller, domainservice.OrderService.CompleteOrder)
}

func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID, caller model.Principal) (*model.Order, error) {
	return s.findAccessible(ctx, orderID, caller)
}

func (s *orderService) ListOrders(ctx context.Context, caller model.Principal) ([]*model.Order, error) {
	if caller.IsAdmin {
		return s.uow.OrderRepository().List(ctx)
	}
	return s.uow.OrderRepository().ListByUser(ctx, caller.UserID)
}

type transitionFunc func(svc domainservice.OrderService, ctx context.Context, orderID uuid.UUID) (*model.Order, error)

func (s *orderService) transition(
	ctx context.Context,
	spanName string,
	orderID uuid.UUID,
	caller model.Principal,
	action transitionFunc,
) (order *model.Order, err error) {
	ctx, span := tracer.Start(ctx, spanName, trace.WithAttributes(attribute.String("order.id", orderID.String())))
	defer func() { endSpan(span, err) }()

	if !caller.IsAdmin {
		return nil, model.ErrForbidden
	}

	events := &commondomain.EventBuffer{}
	err = s.uow.Execute(ctx, func(provider storage.RepositoryProvider) error {
		var err error
		order, err = action(s.workflow(provider, events), ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dispatchEvents(events)
	s.logger.WithFields(logrus.Fields{"order_id": orderID, "status": order.Status}).Info("order status changed")
	return order, nil
}

// checkAvailability fails fast on unknown products or visibly short stock. It reads
// without locks, so it is advisory: the ledger repeats the stock check under the row lock.
func (s *orderService) checkAvailability(ctx context.Context, lines []model.CartLine) error {
	products := s.uow.ProductRepository()
	for _, line := range lines {
		product, err := products.Find(ctx, line.ProductID)
		if err != nil {
			return err
		}
		if product.Stock < line.Quantity {
			return &inventorymodel.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Available:   product.Stock,
				Requested:   line.Quantity,
			}
		}
	}
	return nil
}

func (s *orderService) findAccessible(ctx context.Context, orderID uuid.UUID, caller model.Principal) (*model.Order, error) {
	order, err := s.uow.OrderRepository().Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(order) {
		return nil, model.ErrForbidden
	}
	return order, nil
}

func (s *orderService) workflow(provider storage.RepositoryProvider, events commondomain.EventDispatcher) domainservice.OrderService {
	ledger := inventoryservice.NewLedger(provider.ProductRepository(), events)
	return domainservice.NewOrderService(provider.OrderRepository(), ledger, events)
}

func (s *orderService) dispatchEvents(events *commondomain.EventBuffer) {
	for _, event := range events.Events() {
		if err := s.dispatcher.Dispatch(event); err != nil {
			s.logger.WithError(err).WithField("event", event.Type()).Error("failed to dispatch event")
		}
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
