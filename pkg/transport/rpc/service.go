package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "orderservice.v1.OrderService"

type OrderServiceServer interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderReply, error)
	GetOrder(ctx context.Context, req *OrderRequest) (*OrderReply, error)
	ListOrders(ctx context.Context, req *ListOrdersRequest) (*ListOrdersReply, error)
	CancelOrder(ctx context.Context, req *OrderRequest) (*OrderReply, error)
	ConfirmOrder(ctx context.Context, req *OrderRequest) (*OrderReply, error)
	CompleteOrder(ctx context.Context, req *OrderRequest) (*OrderReply, error)
}

// ServiceDesc describes OrderService for messages carried by the JSON codec.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateOrder", Handler: unaryHandler("CreateOrder", OrderServiceServer.CreateOrder)},
		{MethodName: "GetOrder", Handler: unaryHandler("GetOrder", OrderServiceServer.GetOrder)},
		{MethodName: "ListOrders", Handler: unaryHandler("ListOrders", OrderServiceServer.ListOrders)},
		{MethodName: "CancelOrder", Handler: unaryHandler("CancelOrder", OrderServiceServer.CancelOrder)},
		{MethodName: "ConfirmOrder", Handler: unaryHandler("ConfirmOrder", OrderServiceServer.ConfirmOrder)},
		{MethodName: "CompleteOrder", Handler: unaryHandler("CompleteOrder", OrderServiceServer.CompleteOrder)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orderservice/v1/order_service",
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + serviceName + "/" + method
}

func unaryHandler[Req, Reply any](
	method string,
	call func(OrderServiceServer, context.Context, *Req) (*Reply, error),
) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OrderServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(OrderServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
