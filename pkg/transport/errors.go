package transport

import (
	"net/http"

	"github.com/pkg/errors"

	inventorymodel "orderservice/pkg/inventory/domain/model"
	ordermodel "orderservice/pkg/order/domain/model"
)

type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HTTPStatus maps domain errors to the status returned to API clients.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ordermodel.ErrEmptyCart),
		errors.Is(err, ordermodel.ErrInvalidQuantity),
		errors.Is(err, ordermodel.ErrDuplicateProductInCart),
		errors.Is(err, inventorymodel.ErrProductNotFound),
		errors.Is(err, inventorymodel.ErrInvalidPrice),
		errors.Is(err, inventorymodel.ErrInvalidStockQuantity):
		return http.StatusBadRequest
	case errors.Is(err, ordermodel.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ordermodel.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, inventorymodel.ErrInsufficientStock),
		errors.Is(err, ordermodel.ErrNotCancellable),
		errors.Is(err, ordermodel.ErrOrderCannotBeModified),
		errors.Is(err, inventorymodel.ErrProductInUse):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// NewErrorResponse builds the client-facing body. Internal failures are reported
// without their cause.
func NewErrorResponse(err error) ErrorResponse {
	var (
		stockErr     *inventorymodel.InsufficientStockError
		statusErr    *ordermodel.NotCancellableError
		duplicateErr *ordermodel.DuplicateProductError
	)
	switch {
	case errors.As(err, &stockErr):
		return ErrorResponse{
			Error:   "insufficient_stock",
			Message: stockErr.Error(),
			Details: map[string]interface{}{
				"product_id":   stockErr.ProductID.String(),
				"product_name": stockErr.ProductName,
				"available":    stockErr.Available,
				"requested":    stockErr.Requested,
			},
		}
	case errors.As(err, &statusErr):
		return ErrorResponse{
			Error:   "not_cancellable",
			Message: statusErr.Error(),
			Details: map[string]interface{}{"status": string(statusErr.Status)},
		}
	case errors.As(err, &duplicateErr):
		return ErrorResponse{
			Error:   "duplicate_product_in_cart",
			Message: duplicateErr.Error(),
			Details: map[string]interface{}{"product_id": duplicateErr.ProductID.String()},
		}
	}

	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		return ErrorResponse{Error: "internal", Message: "internal server error"}
	}
	return ErrorResponse{Error: errorCode(err), Message: err.Error()}
}

func errorCode(err error) string {
	codes := []struct {
		target error
		code   string
	}{
		{ErrUnauthenticated, "unauthenticated"},
		{ErrInvalidRequest, "invalid_request"},
		{ordermodel.ErrEmptyCart, "empty_cart"},
		{ordermodel.ErrInvalidQuantity, "invalid_quantity"},
		{inventorymodel.ErrProductNotFound, "product_not_found"},
		{inventorymodel.ErrInvalidPrice, "invalid_price"},
		{inventorymodel.ErrInvalidStockQuantity, "invalid_quantity"},
		{ordermodel.ErrForbidden, "forbidden"},
		{ordermodel.ErrOrderNotFound, "not_found"},
		{inventorymodel.ErrInsufficientStock, "insufficient_stock"},
		{ordermodel.ErrNotCancellable, "not_cancellable"},
		{ordermodel.ErrOrderCannotBeModified, "order_cannot_be_modified"},
		{inventorymodel.ErrProductInUse, "product_in_use"},
	}
	for _, c := range codes {
		if errors.Is(err, c.target) {
			return c.code
		}
	}
	return "error"
}
