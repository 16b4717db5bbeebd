package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ethioshop/marketplace/internal/notifier"
	"github.com/ethioshop/marketplace/internal/repository"
)

// OrderService covers order creation, lookup and the externally-driven
// fulfilment progression pending→confirmed→shipped→delivered.
type OrderService interface {
	Create(ctx context.Context, input CreateOrderInput) (*repository.Order, error)
	Get(ctx context.Context, callerID, orderID string) (*repository.Order, error)
	ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]*repository.Order, error)
	ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*repository.Order, error)
	Confirm(ctx context.Context, orderID string) error
	Ship(ctx context.Context, orderID, trackingNumber string) error
	Deliver(ctx context.Context, orderID string) error
}

// CreateOrderInput carries a new order request. The total is derived from
// the items, never trusted from the client.
type CreateOrderInput struct {
	BuyerID         string
	SellerID        string
	Items           []repository.OrderItem
	PaymentMethod   string
	ShippingAddress string
}

type orderService struct {
	orders    repository.OrderRepository
	users     repository.UserRepository
	emitter   notifier.Emitter
	logger    *slog.Logger
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// NewOrderService assembles the order service dependencies.
func NewOrderService(orders repository.OrderRepository, users repository.UserRepository, emitter notifier.Emitter, logger *slog.Logger) OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &orderService{
		orders:    orders,
		users:     users,
		emitter:   emitter,
		logger:    logger,
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

func (s *orderService) Create(ctx context.Context, input CreateOrderInput) (*repository.Order, error) {
	if strings.TrimSpace(input.BuyerID) == "" || strings.TrimSpace(input.SellerID) == "" {
		return nil, fmt.Errorf("%w: buyer and seller are required", ErrInvalidArgument)
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: order needs at least one item", ErrInvalidArgument)
	}
	method := strings.ToLower(strings.TrimSpace(input.PaymentMethod))
	switch method {
	case repository.PaymentMethodTelebirr, repository.PaymentMethodCBEBirr, repository.PaymentMethodCash:
	default:
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidArgument, input.PaymentMethod)
	}

	var total int64
	for _, item := range input.Items {
		if item.Quantity <= 0 || item.PriceCents <= 0 {
			return nil, fmt.Errorf("%w: item quantity and price must be positive", ErrInvalidArgument)
		}
		total += item.PriceCents * int64(item.Quantity)
	}

	if s.users != nil {
		if _, err := s.users.FindByID(ctx, input.SellerID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: seller %s", ErrUserNotFound, input.SellerID)
			}
			return nil, fmt.Errorf("load seller: %w", err)
		}
	}

	order := &repository.Order{
		ID:              uuid.NewString(),
		BuyerID:         input.BuyerID,
		SellerID:        input.SellerID,
		Items:           input.Items,
		TotalCents:      total,
		Currency:        "ETB",
		Status:          repository.OrderStatusPending,
		PaymentStatus:   repository.PaymentStatusPending,
		PaymentMethod:   method,
		ShippingAddress: strings.TrimSpace(s.sanitizer.Sanitize(input.ShippingAddress)),
		CreatedAt:       s.now().Unix(),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.logger.InfoContext(ctx, "order created",
		"order_id", order.ID,
		"buyer_id", order.BuyerID,
		"seller_id", order.SellerID,
		"total_cents", order.TotalCents,
	)
	return order, nil
}

func (s *orderService) Get(ctx context.Context, callerID, orderID string) (*repository.Order, error) {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if callerID != "" && order.BuyerID != callerID && order.SellerID != callerID {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *orderService) ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]*repository.Order, error) {
	limit, offset = normalizePage(limit, offset)
	return s.orders.ListByBuyer(ctx, buyerID, limit, offset)
}

func (s *orderService) ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*repository.Order, error) {
	limit, offset = normalizePage(limit, offset)
	return s.orders.ListBySeller(ctx, sellerID, limit, offset)
}

// Confirm moves pending→confirmed.
func (s *orderService) Confirm(ctx context.Context, orderID string) error {
	return s.advance(ctx, orderID, repository.OrderStatusPending, repository.OrderStatusConfirmed, "")
}

// Ship moves confirmed→shipped and records the tracking number.
func (s *orderService) Ship(ctx context.Context, orderID, trackingNumber string) error {
	tracking := strings.TrimSpace(s.sanitizer.Sanitize(trackingNumber))
	if err := s.advance(ctx, orderID, repository.OrderStatusConfirmed, repository.OrderStatusShipped, tracking); err != nil {
		return err
	}
	s.notifyBuyer(ctx, orderID, "Order Shipped", fmt.Sprintf("Your order is on the way. Tracking number: %s", tracking))
	return nil
}

// Deliver moves shipped→delivered, opening the escrow release window.
func (s *orderService) Deliver(ctx context.Context, orderID string) error {
	if err := s.advance(ctx, orderID, repository.OrderStatusShipped, repository.OrderStatusDelivered, ""); err != nil {
		return err
	}
	s.notifyBuyer(ctx, orderID, "Order Delivered", "Your order has been delivered. Thank you for shopping with us.")
	return nil
}

func (s *orderService) advance(ctx context.Context, orderID, from, to, tracking string) error {
	if strings.TrimSpace(orderID) == "" {
		return fmt.Errorf("%w: order_id is required", ErrInvalidArgument)
	}
	order, err := s.find(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != from {
		return fmt.Errorf("%w: order is %s, expected %s", ErrPreconditionFailed, order.Status, from)
	}
	ok, err := s.orders.AdvanceStatus(ctx, orderID, from, to, s.now().Unix(), tracking)
	if err != nil {
		return fmt.Errorf("advance order status: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: order state changed concurrently", ErrPreconditionFailed)
	}
	s.logger.InfoContext(ctx, "order status advanced", "order_id", orderID, "from", from, "to", to)
	return nil
}

func (s *orderService) find(ctx context.Context, orderID string) (*repository.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	return order, nil
}

func (s *orderService) notifyBuyer(ctx context.Context, orderID, title, body string) {
	if s.emitter == nil {
		return
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		s.logger.WarnContext(ctx, "buyer notification skipped", "order_id", orderID, "error", err)
		return
	}
	if err := s.emitter.Emit(ctx, notifier.Request{
		RecipientID: order.BuyerID,
		Type:        repository.NotificationTypeSystem,
		Title:       title,
		Body:        body,
	}); err != nil {
		s.logger.WarnContext(ctx, "buyer notification failed", "order_id", orderID, "error", err)
	}
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
