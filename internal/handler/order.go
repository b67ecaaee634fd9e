package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/order-fulfillment/internal/order"
)

type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type CreateOrderRequest struct {
	UserID string             `json:"user_id" validate:"required,uuid"`
	Items  []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderHandler translates HTTP requests into engine calls. All stock and
// status decisions live in the order service; this layer only decodes,
// validates shape, and maps errors to status codes.
type OrderHandler struct {
	svc      order.Service
	validate *validator.Validate
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Get("/orders", h.ListOrders)
	router.Post("/orders", h.CreateOrder)
	router.Get("/orders/{id}", h.GetOrderByID)
	router.Get("/orders/{id}/status", h.GetOrderStatus)
	router.Patch("/orders/{id}/status", h.UpdateOrderStatus)
	router.Post("/orders/{id}/cancel", h.CancelOrder)
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, err := uuid.FromString(req.UserID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "user_id must be a valid UUID")
		return
	}

	lines := make([]order.LineInput, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.FromString(item.ProductID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "product_id must be a valid UUID")
			return
		}
		lines = append(lines, order.LineInput{ProductID: productID, Quantity: item.Quantity})
	}

	created, err := h.svc.CreateOrder(r.Context(), userID, lines)
	if err != nil {
		log.Info().Err(err).Stringer("user_id", userID).Msg("handler: failed to create order")
		respondWithOrderError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	if rawUserID := r.URL.Query().Get("user_id"); rawUserID != "" {
		userID, err := uuid.FromString(rawUserID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "user_id must be a valid UUID")
			return
		}
		orders, err := h.svc.GetOrdersByUserID(r.Context(), userID)
		if err != nil {
			respondWithOrderError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, orders)
		return
	}

	orders, err := h.svc.ListOrders(r.Context())
	if err != nil {
		respondWithOrderError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	id, ok := orderIDFromURL(w, r)
	if !ok {
		return
	}

	o, err := h.svc.GetOrderByID(r.Context(), id)
	if err != nil {
		respondWithOrderError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) GetOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderIDFromURL(w, r)
	if !ok {
		return
	}

	status, err := h.svc.GetOrderStatus(r.Context(), id)
	if err != nil {
		respondWithOrderError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": status.String()})
}

func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderIDFromURL(w, r)
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.svc.UpdateOrderStatus(r.Context(), id, order.OrderStatus(req.Status))
	if err != nil {
		log.Info().Err(err).Stringer("order_id", id).Str("status", req.Status).
			Msg("handler: failed to update order status")
		respondWithOrderError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderIDFromURL(w, r)
	if !ok {
		return
	}

	cancelled, err := h.svc.CancelOrder(r.Context(), id)
	if err != nil {
		log.Info().Err(err).Stringer("order_id", id).Msg("handler: failed to cancel order")
		respondWithOrderError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, cancelled)
}

func orderIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
