package rpc_test

import (
	"context"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	commondomain "orderservice/pkg/common/domain"
	inventoryservice "orderservice/pkg/inventory/application/service"
	inventorymodel "orderservice/pkg/inventory/domain/model"
	orderservice "orderservice/pkg/order/application/service"
	"orderservice/pkg/storage/memstore"
	"orderservice/pkg/transport"
	"orderservice/pkg/transport/rpc"
)

const bufSize = 1024 * 1024

type OrderServiceSuite struct {
	suite.Suite
	listener *bufconn.Listener
	server   *grpc.Server
	conn     *grpc.ClientConn
	client   *rpc.Client
	catalog  inventoryservice.CatalogService
	owner    uuid.UUID
}

func (s *OrderServiceSuite) SetupTest() {
	logger, _ := logtest.NewNullLogger()
	store := memstore.New()
	dispatcher := &commondomain.EventBuffer{}
	s.catalog = inventoryservice.NewCatalogService(store, dispatcher, logger)
	s.owner = uuid.New()

	s.listener = bufconn.Listen(bufSize)
	s.server = grpc.NewServer(grpc.UnaryInterceptor(rpc.UnaryLoggingInterceptor(logger)))
	rpc.RegisterOrderServiceServer(s.server, rpc.NewServer(orderservice.NewOrderService(store, dispatcher, logger), logger))
	go func() { _ = s.server.Serve(s.listener) }()

	var err error
	s.conn, err = grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return s.listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	s.Require().NoError(err)
	s.client = rpc.NewClient(s.conn)
}

func (s *OrderServiceSuite) TearDownTest() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.server.GracefulStop()
	_ = s.listener.Close()
}

func (s *OrderServiceSuite) product(price string, stock int) *inventorymodel.Product {
	product, err := s.catalog.CreateProduct(context.Background(), "Mug", "", decimal.RequireFromString(price), stock)
	s.Require().NoError(err)
	return product
}

func (s *OrderServiceSuite) ownerContext() context.Context {
	return rpc.WithCaller(context.Background(), s.owner, "")
}

func (s *OrderServiceSuite) createOrder(productID uuid.UUID, quantity int) transport.OrderResponse {
	reply, err := s.client.CreateOrder(s.ownerContext(), &rpc.CreateOrderRequest{
		Items: []rpc.CartLine{{ProductID: productID.String(), Quantity: quantity}},
	})
	s.Require().NoError(err)
	return reply.Order
}

func (s *OrderServiceSuite) requireCode(err error, code codes.Code) {
	s.Require().Error(err)
	s.Equal(code, status.Code(err), err.Error())
}

func (s *OrderServiceSuite) TestCreateAndCancel() {
	product := s.product("10.00", 5)
	order := s.createOrder(product.ID, 3)
	s.Equal("30.00", order.Total)
	s.Equal("pending", order.Status)

	stored, err := s.catalog.FindProduct(context.Background(), product.ID)
	s.Require().NoError(err)
	s.Equal(2, stored.Stock)

	reply, err := s.client.CancelOrder(s.ownerContext(), order.ID)
	s.Require().NoError(err)
	s.Equal("cancelled", reply.Order.Status)

	stored, err = s.catalog.FindProduct(context.Background(), product.ID)
	s.Require().NoError(err)
	s.Equal(5, stored.Stock)

	_, err = s.client.CancelOrder(s.ownerContext(), order.ID)
	s.requireCode(err, codes.FailedPrecondition)
}

func (s *OrderServiceSuite) TestErrorCodes() {
	product := s.product("2.00", 1)

	_, err := s.client.CreateOrder(context.Background(), &rpc.CreateOrderRequest{})
	s.requireCode(err, codes.Unauthenticated)

	_, err = s.client.CreateOrder(s.ownerContext(), &rpc.CreateOrderRequest{})
	s.requireCode(err, codes.InvalidArgument)

	_, err = s.client.CreateOrder(s.ownerContext(), &rpc.CreateOrderRequest{
		Items: []rpc.CartLine{{ProductID: product.ID.String(), Quantity: 2}},
	})
	s.requireCode(err, codes.FailedPrecondition)

	_, err = s.client.GetOrder(s.ownerContext(), uuid.NewString())
	s.requireCode(err, codes.NotFound)

	order := s.createOrder(product.ID, 1)
	_, err = s.client.GetOrder(rpc.WithCaller(context.Background(), uuid.New(), ""), order.ID)
	s.requireCode(err, codes.PermissionDenied)

	_, err = s.client.ConfirmOrder(s.ownerContext(), order.ID)
	s.requireCode(err, codes.PermissionDenied)
}

func (s *OrderServiceSuite) TestAdminLifecycle() {
	product := s.product("4.25", 3)
	order := s.createOrder(product.ID, 2)
	admin := rpc.WithCaller(context.Background(), uuid.New(), transport.AdminRole)

	reply, err := s.client.ConfirmOrder(admin, order.ID)
	s.Require().NoError(err)
	s.Equal("confirmed", reply.Order.Status)

	reply, err = s.client.CompleteOrder(admin, order.ID)
	s.Require().NoError(err)
	s.Equal("completed", reply.Order.Status)

	list, err := s.client.ListOrders(admin)
	s.Require().NoError(err)
	s.Len(list.Orders, 1)

	own, err := s.client.ListOrders(s.ownerContext())
	s.Require().NoError(err)
	s.Len(own.Orders, 1)
	s.Equal("8.50", own.Orders[0].Total)
}

func TestOrderServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceSuite))
}
