package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ethioshop/marketplace/internal/notifier"
	"github.com/ethioshop/marketplace/internal/payment"
	"github.com/ethioshop/marketplace/internal/repository"
)

// PaymentService drives the payment side of the order lifecycle: capture,
// verification and refund.
type PaymentService interface {
	CapturePayment(ctx context.Context, input CaptureInput) (*CaptureResult, error)
	VerifyPayment(ctx context.Context, orderID string) (*PaymentStatusView, error)
	RequestRefund(ctx context.Context, input RefundInput) (*RefundResult, error)
}

// CaptureInput carries one client-initiated capture attempt.
type CaptureInput struct {
	OrderID        string
	AmountCents    int64
	PayerReference string
	Method         string
}

// CaptureResult reports a committed capture. NotifyDegraded is true when
// the transition committed but the seller notification could not be
// emitted.
type CaptureResult struct {
	OrderID        string `json:"order_id"`
	PaymentID      string `json:"payment_id"`
	NotifyDegraded bool   `json:"notify_degraded,omitempty"`
}

// PaymentStatusView is the read-only payment projection of an order.
type PaymentStatusView struct {
	OrderID            string `json:"order_id"`
	PaymentStatus      string `json:"payment_status"`
	PaymentMethod      string `json:"payment_method,omitempty"`
	PaymentID          string `json:"payment_id,omitempty"`
	PaymentCompletedAt *int64 `json:"payment_completed_at,omitempty"`
	EscrowReleased     bool   `json:"escrow_released"`
}

// RefundInput carries one refund request.
type RefundInput struct {
	OrderID string
	Reason  string
}

// RefundResult reports a committed refund.
type RefundResult struct {
	OrderID        string `json:"order_id"`
	NotifyDegraded bool   `json:"notify_degraded,omitempty"`
}

type paymentService struct {
	orders    repository.OrderRepository
	gateways  *payment.Registry
	emitter   notifier.Emitter
	metrics   *Metrics
	logger    *slog.Logger
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// NewPaymentService assembles the payment side of the lifecycle controller.
func NewPaymentService(orders repository.OrderRepository, gateways *payment.Registry, emitter notifier.Emitter, metrics *Metrics, logger *slog.Logger) PaymentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &paymentService{
		orders:    orders,
		gateways:  gateways,
		emitter:   emitter,
		metrics:   metrics,
		logger:    logger,
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

// CapturePayment charges the buyer through the provider for the order's
// method and flips payment_status pending→paid. The gateway is called at
// most once per invocation; retries belong to the caller.
func (s *paymentService) CapturePayment(ctx context.Context, input CaptureInput) (*CaptureResult, error) {
	if s == nil || s.orders == nil || s.gateways == nil {
		return nil, fmt.Errorf("payment service not configured")
	}
	if strings.TrimSpace(input.OrderID) == "" {
		return nil, fmt.Errorf("%w: order_id is required", ErrInvalidArgument)
	}
	if input.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	if strings.TrimSpace(input.PayerReference) == "" {
		return nil, fmt.Errorf("%w: payer reference is required", ErrInvalidArgument)
	}
	method := strings.ToLower(strings.TrimSpace(input.Method))
	if method == "" {
		return nil, fmt.Errorf("%w: payment method is required", ErrInvalidArgument)
	}

	gateway, err := s.gateways.Resolve(method)
	if err != nil {
		if errors.Is(err, payment.ErrUnsupportedMethod) {
			return nil, fmt.Errorf("%w: method %q is not chargeable", ErrInvalidArgument, method)
		}
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, input.OrderID)
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order.PaymentStatus != repository.PaymentStatusPending {
		return nil, fmt.Errorf("%w: payment_status is %s", ErrPreconditionFailed, order.PaymentStatus)
	}
	if input.AmountCents != order.TotalCents {
		s.metrics.ObserveCapture(method, "declined")
		return nil, fmt.Errorf("%w: amount does not match order total", ErrPaymentDeclined)
	}

	// One provider call, no lock held across it. The conditional write
	// below re-checks the precondition.
	charge, err := gateway.Charge(ctx, payment.ChargeRequest{
		OrderID:        order.ID,
		AmountCents:    input.AmountCents,
		PayerReference: input.PayerReference,
		Method:         method,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway charge: %w", err)
	}
	if !charge.OK {
		s.metrics.ObserveCapture(method, "declined")
		return nil, fmt.Errorf("%w: %s", ErrPaymentDeclined, charge.Reason)
	}

	ok, err := s.orders.MarkPaid(ctx, order.ID, method, charge.ProviderTxnID, s.now().Unix())
	if err != nil {
		return nil, fmt.Errorf("mark paid: %w", err)
	}
	if !ok {
		// A concurrent writer moved the order out of pending between our
		// read and the conditional write.
		s.logger.WarnContext(ctx, "capture lost the write race", "order_id", order.ID, "txn_id", charge.ProviderTxnID)
		return nil, fmt.Errorf("%w: payment_status changed concurrently", ErrPreconditionFailed)
	}
	s.metrics.ObserveCapture(method, "captured")
	s.logger.InfoContext(ctx, "payment captured",
		"order_id", order.ID,
		"method", method,
		"payment_id", charge.ProviderTxnID,
		"amount_cents", input.AmountCents,
	)

	result := &CaptureResult{OrderID: order.ID, PaymentID: charge.ProviderTxnID}
	emitErr := s.emitter.Emit(ctx, notifier.Request{
		RecipientID: order.SellerID,
		Type:        repository.NotificationTypePayment,
		Title:       "Payment Received",
		Body:        fmt.Sprintf("Payment of %s received via %s", notifier.FormatETB(input.AmountCents), methodLabel(method)),
	})
	if emitErr != nil {
		s.metrics.ObserveNotifyDegraded()
		s.logger.ErrorContext(ctx, "seller notification failed after capture", "order_id", order.ID, "error", emitErr)
		result.NotifyDegraded = true
	}
	return result, nil
}

// VerifyPayment returns the current payment fields without mutating anything.
func (s *paymentService) VerifyPayment(ctx context.Context, orderID string) (*PaymentStatusView, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("%w: order_id is required", ErrInvalidArgument)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	return &PaymentStatusView{
		OrderID:            order.ID,
		PaymentStatus:      order.PaymentStatus,
		PaymentMethod:      order.PaymentMethod,
		PaymentID:          order.PaymentID,
		PaymentCompletedAt: order.PaymentCompletedAt,
		EscrowReleased:     order.EscrowReleased,
	}, nil
}

// RequestRefund flips payment_status paid→refunded. Refund is terminal.
func (s *paymentService) RequestRefund(ctx context.Context, input RefundInput) (*RefundResult, error) {
	if strings.TrimSpace(input.OrderID) == "" {
		return nil, fmt.Errorf("%w: order_id is required", ErrInvalidArgument)
	}
	reason := strings.TrimSpace(s.sanitizer.Sanitize(input.Reason))

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, input.OrderID)
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	switch order.PaymentStatus {
	case repository.PaymentStatusRefunded:
		return nil, ErrAlreadyRefunded
	case repository.PaymentStatusPaid:
	default:
		return nil, fmt.Errorf("%w: payment_status is %s", ErrPreconditionFailed, order.PaymentStatus)
	}
	if order.EscrowReleased {
		return nil, fmt.Errorf("%w: escrow already released to seller", ErrPreconditionFailed)
	}

	ok, err := s.orders.MarkRefunded(ctx, order.ID, reason, s.now().Unix())
	if err != nil {
		return nil, fmt.Errorf("mark refunded: %w", err)
	}
	if !ok {
		refreshed, readErr := s.orders.FindByID(ctx, order.ID)
		if readErr == nil && refreshed.PaymentStatus == repository.PaymentStatusRefunded {
			return nil, ErrAlreadyRefunded
		}
		return nil, fmt.Errorf("%w: payment_status changed concurrently", ErrPreconditionFailed)
	}
	s.metrics.ObserveRefund()
	s.logger.InfoContext(ctx, "refund initiated", "order_id", order.ID, "reason", reason)

	result := &RefundResult{OrderID: order.ID}
	emitErr := s.emitter.Emit(ctx, notifier.Request{
		RecipientID: order.BuyerID,
		Type:        repository.NotificationTypeSystem,
		Title:       "Refund Initiated",
		Body:        "Your refund has been initiated. It will be processed within 5-7 business days.",
	})
	if emitErr != nil {
		s.metrics.ObserveNotifyDegraded()
		s.logger.ErrorContext(ctx, "buyer notification failed after refund", "order_id", order.ID, "error", emitErr)
		result.NotifyDegraded = true
	}
	return result, nil
}

func methodLabel(method string) string {
	switch method {
	case repository.PaymentMethodTelebirr:
		return "Telebirr"
	case repository.PaymentMethodCBEBirr:
		return "CBE Birr"
	case repository.PaymentMethodCash:
		return "Cash"
	default:
		return method
	}
}
