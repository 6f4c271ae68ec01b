package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	inventorymodel "orderservice/pkg/inventory/domain/model"
	"orderservice/pkg/order/domain/model"
)

var ErrInvalidRequest = errors.New("invalid request")

type createOrderRequest struct {
	Items []cartLineRequest `json:"items"`
}

type cartLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (r createOrderRequest) cartLines() ([]model.CartLine, error) {
	lines := make([]model.CartLine, 0, len(r.Items))
	for _, item := range r.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidRequest, "invalid product id %q", item.ProductID)
		}
		lines = append(lines, model.CartLine{ProductID: productID, Quantity: item.Quantity})
	}
	return lines, nil
}

type OrderResponse struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Status    string         `json:"status"`
	Total     string         `json:"total"`
	Items     []ItemResponse `json:"items"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type ItemResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	Subtotal    string `json:"subtotal"`
}

type orderEnvelope struct {
	Message string        `json:"message"`
	Order   OrderResponse `json:"order"`
}

// NewOrderResponse renders money with exactly two fractional digits.
func NewOrderResponse(order *model.Order) OrderResponse {
	items := make([]ItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, ItemResponse{
			ID:          item.ID.String(),
			ProductID:   item.ProductID.String(),
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price.StringFixed(inventorymodel.PriceScale),
			Subtotal:    item.Subtotal().StringFixed(inventorymodel.PriceScale),
		})
	}
	return OrderResponse{
		ID:        order.ID.String(),
		UserID:    order.UserID.String(),
		Status:    string(order.Status),
		Total:     order.Total.StringFixed(inventorymodel.PriceScale),
		Items:     items,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
}
