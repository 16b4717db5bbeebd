package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ethioshop/marketplace/internal/api/requestctx"
	"github.com/ethioshop/marketplace/internal/cache"
	"github.com/ethioshop/marketplace/internal/service"
)

// Payment serves the capture, verify, refund and escrow endpoints.
type Payment struct {
	payments  service.PaymentService
	escrow    service.EscrowService
	orders    service.OrderService
	replay    cache.Store
	replayTTL time.Duration
	logger    *slog.Logger
}

// NewPayment builds the payment handler. The replay store deduplicates
// capture attempts carrying the same Idempotency-Key.
func NewPayment(payments service.PaymentService, escrow service.EscrowService, orders service.OrderService, replay cache.Store, replayTTL time.Duration, logger *slog.Logger) *Payment {
	if logger == nil {
		logger = slog.Default()
	}
	if replayTTL <= 0 {
		replayTTL = 24 * time.Hour
	}
	return &Payment{
		payments:  payments,
		escrow:    escrow,
		orders:    orders,
		replay:    replay.Namespace("capture-replay"),
		replayTTL: replayTTL,
		logger:    logger,
	}
}

type captureRequest struct {
	OrderID        string `json:"order_id"`
	AmountCents    int64  `json:"amount_cents"`
	PayerReference string `json:"payer_reference"`
	Method         string `json:"payment_method"`
}

// Capture handles POST /api/v1/payments/capture.
func (h *Payment) Capture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if !decodeBody(w, r, &req) {
		return
	}

	replayKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if replayKey != "" {
		var cached service.CaptureResult
		if found, err := h.replay.GetJSON(r.Context(), replayKey, &cached); err == nil && found {
			w.Header().Set("X-Idempotent-Replay", "true")
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	result, err := h.payments.CapturePayment(r.Context(), service.CaptureInput{
		OrderID:        req.OrderID,
		AmountCents:    req.AmountCents,
		PayerReference: req.PayerReference,
		Method:         req.Method,
	})
	if err != nil {
		respondServiceError(w, "capture payment", err)
		return
	}

	if replayKey != "" {
		if err := h.replay.SetJSON(r.Context(), replayKey, result, h.replayTTL); err != nil {
			h.logger.Warn("store capture replay entry", "error", err)
		}
	}
	respondJSON(w, http.StatusOK, result)
}

// Status handles GET /api/v1/payments/{orderID}/status.
func (h *Payment) Status(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	claims, _ := requestctx.UserFrom(r.Context())

	// Ownership check rides on the order read.
	if _, err := h.orders.Get(r.Context(), claims.ID, orderID); err != nil {
		respondServiceError(w, "verify payment", err)
		return
	}

	view, err := h.payments.VerifyPayment(r.Context(), orderID)
	if err != nil {
		respondServiceError(w, "verify payment", err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

type refundRequest struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// Refund handles POST /api/v1/payments/refund.
func (h *Payment) Refund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.payments.RequestRefund(r.Context(), service.RefundInput{
		OrderID: req.OrderID,
		Reason:  req.Reason,
	})
	if err != nil {
		respondServiceError(w, "request refund", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type releaseRequest struct {
	OrderID string `json:"order_id"`
}

// Release handles POST /api/v1/payments/escrow/release.
func (h *Payment) Release(w http.ResponseWriter, r *http.Request) {
	var req releaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.escrow.Release(r.Context(), req.OrderID)
	if err != nil {
		respondServiceError(w, "release escrow", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
