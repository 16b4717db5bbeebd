package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ethioshop/marketplace/internal/api/requestctx"
	"github.com/ethioshop/marketplace/internal/repository"
	"github.com/ethioshop/marketplace/internal/service"
)

// Order serves order creation, listing and fulfillment endpoints.
type Order struct {
	orders service.OrderService
	logger *slog.Logger
}

func NewOrder(orders service.OrderService, logger *slog.Logger) *Order {
	if logger == nil {
		logger = slog.Default()
	}
	return &Order{orders: orders, logger: logger}
}

type createOrderRequest struct {
	SellerID        string                 `json:"seller_id"`
	Items           []repository.OrderItem `json:"items"`
	PaymentMethod   string                 `json:"payment_method"`
	ShippingAddress string                 `json:"shipping_address"`
}

// Create handles POST /api/v1/orders.
func (h *Order) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	claims, _ := requestctx.UserFrom(r.Context())

	order, err := h.orders.Create(r.Context(), service.CreateOrderInput{
		BuyerID:         claims.ID,
		SellerID:        req.SellerID,
		Items:           req.Items,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		respondServiceError(w, "create order", err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

// Get handles GET /api/v1/orders/{orderID}.
func (h *Order) Get(w http.ResponseWriter, r *http.Request) {
	claims, _ := requestctx.UserFrom(r.Context())
	order, err := h.orders.Get(r.Context(), claims.ID, chi.URLParam(r, "orderID"))
	if err != nil {
		respondServiceError(w, "get order", err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// List handles GET /api/v1/orders. Sellers see orders addressed to
// them, everyone else sees their purchases.
func (h *Order) List(w http.ResponseWriter, r *http.Request) {
	claims, _ := requestctx.UserFrom(r.Context())
	limit, offset := pageParams(r)

	var (
		orders []*repository.Order
		err    error
	)
	if r.URL.Query().Get("as") == "seller" {
		orders, err = h.orders.ListBySeller(r.Context(), claims.ID, limit, offset)
	} else {
		orders, err = h.orders.ListByBuyer(r.Context(), claims.ID, limit, offset)
	}
	if err != nil {
		respondServiceError(w, "list orders", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// Confirm handles POST /api/v1/orders/{orderID}/confirm.
func (h *Order) Confirm(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Confirm(r.Context(), chi.URLParam(r, "orderID")); err != nil {
		respondServiceError(w, "confirm order", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": repository.OrderStatusConfirmed})
}

type shipRequest struct {
	TrackingNumber string `json:"tracking_number"`
}

// Ship handles POST /api/v1/orders/{orderID}/ship.
func (h *Order) Ship(w http.ResponseWriter, r *http.Request) {
	var req shipRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.orders.Ship(r.Context(), chi.URLParam(r, "orderID"), req.TrackingNumber); err != nil {
		respondServiceError(w, "ship order", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": repository.OrderStatusShipped})
}

// Deliver handles POST /api/v1/orders/{orderID}/deliver.
func (h *Order) Deliver(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Deliver(r.Context(), chi.URLParam(r, "orderID")); err != nil {
		respondServiceError(w, "deliver order", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": repository.OrderStatusDelivered})
}

func pageParams(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
