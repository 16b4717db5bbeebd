package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethioshop/marketplace/internal/repository"
	"github.com/ethioshop/marketplace/internal/repository/memory"
)

func seedSeller(users *memory.UserRepo) {
	users.Seed(repository.User{
		ID:    "seller-1",
		Name:  "Tigist Haile",
		Email: "tigist@example.com",
		Role:  repository.UserRoleSeller,
	})
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("total is derived from the items", func(t *testing.T) {
		orders := memory.NewOrderRepo()
		users := memory.NewUserRepo()
		seedSeller(users)
		svc := NewOrderService(orders, users, nil, nil)

		order, err := svc.Create(ctx, CreateOrderInput{
			BuyerID:       "buyer-1",
			SellerID:      "seller-1",
			PaymentMethod: "telebirr",
			Items: []repository.OrderItem{
				{ProductID: "p1", ProductName: "Habesha dress", PriceCents: 250000, Quantity: 1},
				{ProductID: "p2", ProductName: "Coffee beans 1kg", PriceCents: 45000, Quantity: 2},
			},
			ShippingAddress: "Bole, Addis Ababa",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(340000), order.TotalCents)
		assert.Equal(t, "ETB", order.Currency)
		assert.Equal(t, repository.OrderStatusPending, order.Status)
		assert.Equal(t, repository.PaymentStatusPending, order.PaymentStatus)
		assert.False(t, order.EscrowReleased)
	})

	t.Run("invalid input is rejected", func(t *testing.T) {
		users := memory.NewUserRepo()
		seedSeller(users)
		svc := NewOrderService(memory.NewOrderRepo(), users, nil, nil)

		item := repository.OrderItem{ProductID: "p1", PriceCents: 1000, Quantity: 1}
		tests := []struct {
			name  string
			input CreateOrderInput
		}{
			{"missing buyer", CreateOrderInput{SellerID: "seller-1", PaymentMethod: "cash", Items: []repository.OrderItem{item}}},
			{"no items", CreateOrderInput{BuyerID: "b", SellerID: "seller-1", PaymentMethod: "cash"}},
			{"bad method", CreateOrderInput{BuyerID: "b", SellerID: "seller-1", PaymentMethod: "paypal", Items: []repository.OrderItem{item}}},
			{"zero quantity", CreateOrderInput{BuyerID: "b", SellerID: "seller-1", PaymentMethod: "cash", Items: []repository.OrderItem{{ProductID: "p1", PriceCents: 1000}}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.Create(ctx, tt.input)
				assert.ErrorIs(t, err, ErrInvalidArgument)
			})
		}
	})

	t.Run("unknown seller is rejected", func(t *testing.T) {
		svc := NewOrderService(memory.NewOrderRepo(), memory.NewUserRepo(), nil, nil)
		_, err := svc.Create(ctx, CreateOrderInput{
			BuyerID:       "b",
			SellerID:      "ghost",
			PaymentMethod: "cash",
			Items:         []repository.OrderItem{{ProductID: "p1", PriceCents: 1000, Quantity: 1}},
		})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestOrderProgression(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*memory.OrderRepo, OrderService) {
		t.Helper()
		orders := memory.NewOrderRepo()
		users := memory.NewUserRepo()
		seedSeller(users)
		orders.Seed(pendingOrder("o1"))
		return orders, NewOrderService(orders, users, nil, nil)
	}

	t.Run("confirm ship deliver stamps each step once", func(t *testing.T) {
		orders, svc := setup(t)

		require.NoError(t, svc.Confirm(ctx, "o1"))
		stored, _ := orders.Snapshot("o1")
		assert.Equal(t, repository.OrderStatusConfirmed, stored.Status)
		require.NotNil(t, stored.ConfirmedAt)

		require.NoError(t, svc.Ship(ctx, "o1", "ETH-TRACK-42"))
		stored, _ = orders.Snapshot("o1")
		assert.Equal(t, repository.OrderStatusShipped, stored.Status)
		assert.Equal(t, "ETH-TRACK-42", stored.TrackingNumber)
		require.NotNil(t, stored.ShippedAt)

		require.NoError(t, svc.Deliver(ctx, "o1"))
		stored, _ = orders.Snapshot("o1")
		assert.Equal(t, repository.OrderStatusDelivered, stored.Status)
		require.NotNil(t, stored.DeliveredAt)
	})

	t.Run("skipping a step fails the precondition", func(t *testing.T) {
		_, svc := setup(t)
		assert.ErrorIs(t, svc.Ship(ctx, "o1", "x"), ErrPreconditionFailed)
		assert.ErrorIs(t, svc.Deliver(ctx, "o1"), ErrPreconditionFailed)
	})

	t.Run("repeating a step fails the precondition", func(t *testing.T) {
		_, svc := setup(t)
		require.NoError(t, svc.Confirm(ctx, "o1"))
		assert.ErrorIs(t, svc.Confirm(ctx, "o1"), ErrPreconditionFailed)
	})
}

func TestOrderGetOwnership(t *testing.T) {
	ctx := context.Background()
	orders := memory.NewOrderRepo()
	orders.Seed(pendingOrder("o1"))
	svc := NewOrderService(orders, memory.NewUserRepo(), nil, nil)

	_, err := svc.Get(ctx, "buyer-1", "o1")
	assert.NoError(t, err)
	_, err = svc.Get(ctx, "seller-1", "o1")
	assert.NoError(t, err)
	_, err = svc.Get(ctx, "stranger", "o1")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Get(ctx, "buyer-1", "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
