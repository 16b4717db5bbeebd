package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethioshop/marketplace/internal/notifier"
	"github.com/ethioshop/marketplace/internal/repository"
)

// EscrowService releases held funds to the seller once the order is
// delivered.
type EscrowService interface {
	Release(ctx context.Context, orderID string) (*ReleaseResult, error)
}

// ReleaseResult reports a committed escrow release.
type ReleaseResult struct {
	OrderID        string `json:"order_id"`
	NotifyDegraded bool   `json:"notify_degraded,omitempty"`
}

type escrowService struct {
	orders  repository.OrderRepository
	emitter notifier.Emitter
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewEscrowService assembles the escrow side of the lifecycle controller.
func NewEscrowService(orders repository.OrderRepository, emitter notifier.Emitter, metrics *Metrics, logger *slog.Logger) EscrowService {
	if logger == nil {
		logger = slog.Default()
	}
	return &escrowService{
		orders:  orders,
		emitter: emitter,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Release flips escrow_released false→true for a delivered, paid order.
// The precondition check and the write are one conditional update, so two
// concurrent calls cannot both release.
func (s *escrowService) Release(ctx context.Context, orderID string) (*ReleaseResult, error) {
	if s == nil || s.orders == nil {
		return nil, fmt.Errorf("escrow service not configured")
	}
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
	if order.EscrowReleased {
		return nil, ErrAlreadyReleased
	}
	if order.Status != repository.OrderStatusDelivered {
		return nil, fmt.Errorf("%w: order is %s, not delivered", ErrPreconditionFailed, order.Status)
	}
	if order.PaymentStatus != repository.PaymentStatusPaid {
		return nil, fmt.Errorf("%w: payment_status is %s", ErrPreconditionFailed, order.PaymentStatus)
	}

	ok, err := s.orders.ReleaseEscrow(ctx, order.ID, s.now().Unix())
	if err != nil {
		return nil, fmt.Errorf("release escrow: %w", err)
	}
	if !ok {
		// The conditional write found the flag already set or the order
		// state changed. Re-read to report the accurate guard.
		refreshed, readErr := s.orders.FindByID(ctx, order.ID)
		if readErr == nil && refreshed.EscrowReleased {
			return nil, ErrAlreadyReleased
		}
		return nil, fmt.Errorf("%w: order state changed concurrently", ErrPreconditionFailed)
	}
	s.metrics.ObserveRelease()
	s.logger.InfoContext(ctx, "escrow released", "order_id", order.ID, "seller_id", order.SellerID)

	result := &ReleaseResult{OrderID: order.ID}
	sellerErr := s.emitter.Emit(ctx, notifier.Request{
		RecipientID: order.SellerID,
		Type:        repository.NotificationTypePayment,
		Title:       "Payment Released",
		Body:        fmt.Sprintf("Payment of %s has been released to your account", notifier.FormatETB(order.TotalCents)),
	})
	buyerErr := s.emitter.Emit(ctx, notifier.Request{
		RecipientID: order.BuyerID,
		Type:        repository.NotificationTypeSystem,
		Title:       "Payment Released",
		Body:        "Payment has been released to the seller",
	})
	if sellerErr != nil || buyerErr != nil {
		s.metrics.ObserveNotifyDegraded()
		s.logger.ErrorContext(ctx, "notification failed after escrow release",
			"order_id", order.ID,
			"seller_error", sellerErr,
			"buyer_error", buyerErr,
		)
		result.NotifyDegraded = true
	}
	return result, nil
}
