package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/SergeyBogomolovv/purchase-order-service/internal/entities"
	"github.com/SergeyBogomolovv/purchase-order-service/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type OrderService interface {
	CreateOrder(ctx context.Context, req entities.OrderCreationRequest) (int64, error)
	GetOrderByID(ctx context.Context, orderID int64) (entities.OrderDetails, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]entities.OrderDetails, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
	DeleteOrder(ctx context.Context, orderID int64) error
}

type HTTPHandler struct {
	logger   *slog.Logger
	validate *validator.Validate
	svc      OrderService
}

func NewHTTPHandler(logger *slog.Logger, svc OrderService) *HTTPHandler {
	return &HTTPHandler{
		logger:   logger.With(slog.String("handler", "http")),
		validate: validator.New(),
		svc:      svc,
	}
}

func (h *HTTPHandler) Init(r chi.Router) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/{order_id}", h.GetOrderByID)
		r.Get("/user/{user_id}", h.GetOrdersByUserID)
		r.Put("/{order_id}/status", h.UpdateOrderStatus)
		r.Delete("/{order_id}", h.DeleteOrder)
	})
}

// CreateOrder places a new order.
// @Summary      Place an order
// @Description  Validates the user and the product against their services, commits the order and decrements inventory
// @Tags         orders
// @Accept       json
// @Param        request  body  CreateOrderRequest  true  "order creation request"
// @Success      201  {object}  CreateOrderResponse
// @Failure      400  {object}  utils.ValidationErrorResponse "malformed request"
// @Failure      404  {object}  utils.ErrorResponse "user or product not found"
// @Failure      422  {object}  utils.ErrorResponse "business rule violation"
// @Failure      500  {object}  utils.ErrorResponse "internal error or failed inventory adjustment"
// @Failure      503  {object}  utils.ErrorResponse "a dependency is unavailable"
// @Router       /api/orders [post]
func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateOrderRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		ordersRejected.WithLabelValues("bad_request").Inc()
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		ordersRejected.WithLabelValues("bad_request").Inc()
		utils.WriteValidationError(w, err)
		return
	}

	orderID, err := h.svc.CreateOrder(ctx, CreateOrderJSONToEntity(req))
	if err != nil {
		h.writeCreateError(ctx, w, err)
		return
	}

	ordersCreated.Inc()
	utils.WriteJSON(w, CreateOrderResponse{OrderID: orderID}, http.StatusCreated)
}

func (h *HTTPHandler) writeCreateError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entities.ErrInvalidOrder):
		ordersRejected.WithLabelValues("bad_request").Inc()
		utils.WriteError(w, "invalid order request", http.StatusBadRequest)
	case errors.Is(err, entities.ErrUserNotFound):
		ordersRejected.WithLabelValues("user_not_found").Inc()
		utils.WriteError(w, "user not found", http.StatusNotFound)
	case errors.Is(err, entities.ErrProductNotFound):
		ordersRejected.WithLabelValues("product_not_found").Inc()
		utils.WriteError(w, "product not found", http.StatusNotFound)
	case errors.Is(err, entities.ErrServiceUnavailable):
		ordersRejected.WithLabelValues("unavailable").Inc()
		utils.WriteError(w, "dependency unavailable, try again later", http.StatusServiceUnavailable)
	case errors.Is(err, entities.ErrPriceMismatch):
		ordersRejected.WithLabelValues("price_mismatch").Inc()
		utils.WriteError(w, "price does not match catalog", http.StatusUnprocessableEntity)
	case errors.Is(err, entities.ErrInsufficientStock):
		ordersRejected.WithLabelValues("insufficient_stock").Inc()
		utils.WriteError(w, "not enough stock", http.StatusUnprocessableEntity)
	case errors.Is(err, entities.ErrOrderNotCommitted):
		ordersRejected.WithLabelValues("not_committed").Inc()
		utils.WriteError(w, "order was not committed", http.StatusUnprocessableEntity)
	case errors.Is(err, entities.ErrCompensationFailed):
		compensationFailures.Inc()
		h.logger.ErrorContext(ctx, "compensation failed", slog.Any("error", err))
		utils.WriteError(w, "order created but inventory update failed", http.StatusInternalServerError)
	default:
		ordersRejected.WithLabelValues("internal").Inc()
		h.logger.ErrorContext(ctx, "failed to create order", slog.Any("error", err))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
	}
}

// GetOrderByID returns one order with its owner's display name.
// @Summary      Get order by id
// @Tags         orders
// @Param        order_id  path  int  true  "order id"
// @Success      200  {object}  OrderDetails
// @Failure      400  {object}  utils.ErrorResponse "invalid id"
// @Failure      404  {object}  utils.ErrorResponse "order not found"
// @Failure      500  {object}  utils.ErrorResponse "internal error"
// @Router       /api/orders/{order_id} [get]
func (h *HTTPHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, ok := pathID(w, r, "order_id")
	if !ok {
		return
	}

	details, err := h.svc.GetOrderByID(ctx, orderID)
	if errors.Is(err, entities.ErrOrderNotFound) {
		utils.WriteError(w, "order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get order", slog.Any("error", err), slog.Int64("order_id", orderID))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, OrderDetailsEntityToJSON(details), http.StatusOK)
}

// GetOrdersByUserID returns all orders of a user.
// @Summary      Get orders by user id
// @Tags         orders
// @Param        user_id  path  int  true  "user id"
// @Success      200  {array}   OrderDetails
// @Failure      400  {object}  utils.ErrorResponse "invalid id"
// @Failure      404  {object}  utils.ErrorResponse "no orders for user"
// @Failure      500  {object}  utils.ErrorResponse "internal error"
// @Router       /api/orders/user/{user_id} [get]
func (h *HTTPHandler) GetOrdersByUserID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := pathID(w, r, "user_id")
	if !ok {
		return
	}

	details, err := h.svc.GetOrdersByUserID(ctx, userID)
	if errors.Is(err, entities.ErrOrderNotFound) {
		utils.WriteError(w, "no orders for user", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get user orders", slog.Any("error", err), slog.Int64("user_id", userID))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	list := make([]OrderDetails, 0, len(details))
	for _, d := range details {
		list = append(list, OrderDetailsEntityToJSON(d))
	}
	utils.WriteJSON(w, list, http.StatusOK)
}

// UpdateOrderStatus sets a new status on an order.
// @Summary      Update order status
// @Tags         orders
// @Accept       json
// @Param        order_id  path  int                  true  "order id"
// @Param        request   body  UpdateStatusRequest  true  "new status"
// @Success      200  {object}  utils.MessageResponse
// @Failure      400  {object}  utils.ErrorResponse "unknown status or order"
// @Failure      500  {object}  utils.ErrorResponse "internal error"
// @Router       /api/orders/{order_id}/status [put]
func (h *HTTPHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, ok := pathID(w, r, "order_id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	err := h.svc.UpdateOrderStatus(ctx, orderID, req.Status)
	switch {
	case errors.Is(err, entities.ErrInvalidStatus):
		utils.WriteError(w, "unknown order status", http.StatusBadRequest)
	case errors.Is(err, entities.ErrOrderNotFound):
		// mirrors the write-path contract: an unknown id in a status update
		// is a caller mistake
		utils.WriteError(w, "order does not exist", http.StatusBadRequest)
	case err != nil:
		h.logger.ErrorContext(ctx, "failed to update status", slog.Any("error", err), slog.Int64("order_id", orderID))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
	default:
		utils.WriteMessage(w, "order status updated", http.StatusOK)
	}
}

// DeleteOrder removes an order with its lines.
// @Summary      Delete order
// @Tags         orders
// @Param        order_id  path  int  true  "order id"
// @Success      200  {object}  utils.MessageResponse
// @Failure      400  {object}  utils.ErrorResponse "invalid id"
// @Failure      404  {object}  utils.ErrorResponse "order not found"
// @Failure      500  {object}  utils.ErrorResponse "internal error"
// @Router       /api/orders/{order_id} [delete]
func (h *HTTPHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, ok := pathID(w, r, "order_id")
	if !ok {
		return
	}

	err := h.svc.DeleteOrder(ctx, orderID)
	if errors.Is(err, entities.ErrOrderNotFound) {
		utils.WriteError(w, "order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to delete order", slog.Any("error", err), slog.Int64("order_id", orderID))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	utils.WriteMessage(w, "order deleted", http.StatusOK)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		utils.WriteError(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
