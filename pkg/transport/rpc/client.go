package rpc

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// WithCaller attaches the caller identity to outgoing calls made with ctx.
func WithCaller(ctx context.Context, userID uuid.UUID, role string) context.Context {
	pairs := []string{UserIDKey, userID.String()}
	if role != "" {
		pairs = append(pairs, UserRoleKey, role)
	}
	return metadata.AppendToOutgoingContext(ctx, pairs...)
}

func (c *Client) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderReply, error) {
	return call[OrderReply](ctx, c, "CreateOrder", req)
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*OrderReply, error) {
	return call[OrderReply](ctx, c, "GetOrder", &OrderRequest{OrderID: orderID})
}

func (c *Client) ListOrders(ctx context.Context) (*ListOrdersReply, error) {
	return call[ListOrdersReply](ctx, c, "ListOrders", &ListOrdersRequest{})
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) (*OrderReply, error) {
	return call[OrderReply](ctx, c, "CancelOrder", &OrderRequest{OrderID: orderID})
}

func (c *Client) ConfirmOrder(ctx context.Context, orderID string) (*OrderReply, error) {
	return call[OrderReply](ctx, c, "ConfirmOrder", &OrderRequest{OrderID: orderID})
}

func (c *Client) CompleteOrder(ctx context.Context, orderID string) (*OrderReply, error) {
	return call[OrderReply](ctx, c, "CompleteOrder", &OrderRequest{OrderID: orderID})
}

func call[Reply any](ctx context.Context, c *Client, method string, req interface{}) (*Reply, error) {
	reply := new(Reply)
	if err := c.conn.Invoke(ctx, fullMethod(method), req, reply, grpc.CallContentSubtype(CodecName)); err != nil {
		return nil, err
	}
	return reply, nil
}
