package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"orderservice/pkg/order/application/service"
	"orderservice/pkg/order/domain/model"
)

func NewRouter(orders service.OrderService, logger logrus.FieldLogger) http.Handler {
	h := &orderHandler{orders: orders, logger: logger}

	r := mux.NewRouter()
	r.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)
	r.NotFoundHandler = http.HandlerFunc(h.notFound)

	s := r.PathPrefix("/api/v1").Subrouter()
	s.HandleFunc("/orders", h.createOrder).Methods(http.MethodPost)
	s.HandleFunc("/orders", h.listOrders).Methods(http.MethodGet)
	s.HandleFunc("/orders/{ID}", h.getOrder).Methods(http.MethodGet)
	s.HandleFunc("/orders/{ID}", h.immutableOrder).Methods(http.MethodPut, http.MethodPatch, http.MethodDelete)
	s.HandleFunc("/orders/{ID}/cancel", h.cancelOrder).Methods(http.MethodPost)
	s.HandleFunc("/orders/{ID}/confirm", h.confirmOrder).Methods(http.MethodPost)
	s.HandleFunc("/orders/{ID}/complete", h.completeOrder).Methods(http.MethodPost)

	return otelhttp.NewHandler(logMiddleware(r, logger), "orderservice")
}

type orderHandler struct {
	orders service.OrderService
	logger logrus.FieldLogger
}

func (h *orderHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	caller, err := principalFromRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var request createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, ErrInvalidRequest)
		return
	}
	lines, err := request.cartLines()
	if err != nil {
		h.writeError(w, err)
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), caller.UserID, lines)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, orderEnvelope{Message: "Order created successfully", Order: NewOrderResponse(order)})
}

func (h *orderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	caller, err := principalFromRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), caller)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		response = append(response, NewOrderResponse(order))
	}
	h.writeJSON(w, http.StatusOK, response)
}

func (h *orderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	caller, orderID, err := h.orderRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	order, err := h.orders.GetOrder(r.Context(), orderID, caller)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, NewOrderResponse(order))
}

func (h *orderHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	h.changeOrder(w, r, h.orders.CancelOrder, "Order cancelled successfully")
}

func (h *orderHandler) confirmOrder(w http.ResponseWriter, r *http.Request) {
	h.changeOrder(w, r, h.orders.ConfirmOrder, "Order confirmed successfully")
}

func (h *orderHandler) completeOrder(w http.ResponseWriter, r *http.Request) {
	h.changeOrder(w, r, h.orders.CompleteOrder, "Order completed successfully")
}

type orderAction func(ctx context.Context, orderID uuid.UUID, caller model.Principal) (*model.Order, error)

func (h *orderHandler) changeOrder(w http.ResponseWriter, r *http.Request, action orderAction, message string) {
	caller, orderID, err := h.orderRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	order, err := action(r.Context(), orderID, caller)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orderEnvelope{Message: message, Order: NewOrderResponse(order)})
}

func (h *orderHandler) immutableOrder(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Error:   "method_not_allowed",
		Message: "orders cannot be updated or deleted, use the cancel endpoint instead",
	})
}

func (h *orderHandler) methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method_not_allowed", Message: "method not allowed"})
}

func (h *orderHandler) notFound(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "resource not found"})
}

func (h *orderHandler) orderRequest(r *http.Request) (model.Principal, uuid.UUID, error) {
	caller, err := principalFromRequest(r)
	if err != nil {
		return model.Principal{}, uuid.Nil, err
	}
	orderID, err := uuid.Parse(mux.Vars(r)["ID"])
	if err != nil {
		// An id that cannot exist is reported like any other unknown order.
		return model.Principal{}, uuid.Nil, model.ErrOrderNotFound
	}
	return caller, orderID, nil
}

func (h *orderHandler) writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).Error("request failed")
	}
	h.writeJSON(w, status, NewErrorResponse(err))
}

func (h *orderHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.WithError(err).Error("write response")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logMiddleware(h http.Handler, logger logrus.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(recorder, r)
		logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"url":        r.URL.String(),
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
			"status":     recorder.status,
			"duration":   time.Since(start).String(),
		}).Info("handled request")
	})
}
