package rpc

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"orderservice/pkg/order/application/service"
	"orderservice/pkg/order/domain/model"
	"orderservice/pkg/transport"
)

// Metadata keys carrying the caller identity; gRPC lowercases header names.
const (
	UserIDKey   = "x-user-id"
	UserRoleKey = "x-user-role"
)

func NewServer(orders service.OrderService, logger logrus.FieldLogger) OrderServiceServer {
	return &server{orders: orders, logger: logger}
}

type server struct {
	orders service.OrderService
	logger logrus.FieldLogger
}

func (s *server) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderReply, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, s.toStatus(err)
	}
	lines := make([]model.CartLine, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid product id %q", item.ProductID)
		}
		lines = append(lines, model.CartLine{ProductID: productID, Quantity: item.Quantity})
	}

	order, err := s.orders.CreateOrder(ctx, caller.UserID, lines)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &OrderReply{Order: transport.NewOrderResponse(order)}, nil
}

func (s *server) GetOrder(ctx context.Context, req *OrderRequest) (*OrderReply, error) {
	return s.orderCall(ctx, req, s.orders.GetOrder)
}

func (s *server) ListOrders(ctx context.Context, _ *ListOrdersRequest) (*ListOrdersReply, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, s.toStatus(err)
	}
	orders, err := s.orders.ListOrders(ctx, caller)
	if err != nil {
		return nil, s.toStatus(err)
	}
	reply := &ListOrdersReply{Orders: make([]transport.OrderResponse, 0, len(orders))}
	for _, order := range orders {
		reply.Orders = append(reply.Orders, transport.NewOrderResponse(order))
	}
	return reply, nil
}

func (s *server) CancelOrder(ctx context.Context, req *OrderRequest) (*OrderReply, error) {
	return s.orderCall(ctx, req, s.orders.CancelOrder)
}

func (s *server) ConfirmOrder(ctx context.Context, req *OrderRequest) (*OrderReply, error) {
	return s.orderCall(ctx, req, s.orders.ConfirmOrder)
}

func (s *server) CompleteOrder(ctx context.Context, req *OrderRequest) (*OrderReply, error) {
	return s.orderCall(ctx, req, s.orders.CompleteOrder)
}

func (s *server) orderCall(
	ctx context.Context,
	req *OrderRequest,
	action func(ctx context.Context, orderID uuid.UUID, caller model.Principal) (*model.Order, error),
) (*OrderReply, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, s.toStatus(err)
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, s.toStatus(model.ErrOrderNotFound)
	}

	order, err := action(ctx, orderID, caller)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &OrderReply{Order: transport.NewOrderResponse(order)}, nil
}

func (s *server) toStatus(err error) error {
	code := codeOf(err)
	if code == codes.Internal {
		s.logger.WithError(err).Error("rpc failed")
	}
	return status.Error(code, transport.NewErrorResponse(err).Message)
}

func codeOf(err error) codes.Code {
	switch transport.HTTPStatus(err) {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.FailedPrecondition
	}
	return codes.Internal
}

func callerFromContext(ctx context.Context) (model.Principal, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	return transport.ParsePrincipal(first(md.Get(UserIDKey)), first(md.Get(UserRoleKey)))
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// UnaryLoggingInterceptor logs every call the way the HTTP middleware logs requests.
func UnaryLoggingInterceptor(logger logrus.FieldLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.WithFields(logrus.Fields{
			"method":   info.FullMethod,
			"code":     status.Code(err).String(),
			"duration": time.Since(start).String(),
		}).Info("handled rpc")
		return resp, err
	}
}
