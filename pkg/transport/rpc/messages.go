package rpc

import "orderservice/pkg/transport"

type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderRequest struct {
	Items []CartLine `json:"items"`
}

type OrderRequest struct {
	OrderID string `json:"order_id"`
}

type ListOrdersRequest struct{}

type OrderReply struct {
	Order transport.OrderResponse `json:"order"`
}

type ListOrdersReply struct {
	Orders []transport.OrderResponse `json:"orders"`
}
