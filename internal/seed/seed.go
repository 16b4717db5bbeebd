// Package seed loads Ethiopian sample data for local development.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethioshop/marketplace/internal/repository"
	"github.com/ethioshop/marketplace/internal/support/hash"
)

// Run inserts the sample accounts and orders. Existing rows are kept,
// so running it twice is safe.
func Run(ctx context.Context, store repository.Store, hasher hash.Hasher, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now().Unix()

	password, err := hasher.Hash("password123")
	if err != nil {
		return fmt.Errorf("hash sample password: %w", err)
	}

	users := []repository.User{
		{ID: "buyer1", Name: "Abebe Tesfaye", Email: "abebe@example.com", Phone: "+251911123456", Role: repository.UserRoleBuyer, Verified: true, Location: "Addis Ababa"},
		{ID: "buyer2", Name: "Lidya Mekonnen", Email: "lidya@example.com", Phone: "+251911234567", Role: repository.UserRoleBuyer, Verified: true, Location: "Hawassa"},
		{ID: "buyer3", Name: "Samuel Bekele", Email: "samuel@example.com", Phone: "+251911345678", Role: repository.UserRoleBuyer, Location: "Bahir Dar"},
		{ID: "buyer4", Name: "Hana Alemu", Email: "hana@example.com", Phone: "+251911456789", Role: repository.UserRoleBuyer, Verified: true, Location: "Dire Dawa"},
		{ID: "buyer5", Name: "Yonas Tadesse", Email: "yonas@example.com", Phone: "+251911567890", Role: repository.UserRoleBuyer, Verified: true, Location: "Mekelle"},
		{ID: "seller1", Name: "Addis Electronics", Email: "addiselec@example.com", Phone: "+251922123456", Role: repository.UserRoleSeller, Verified: true, Location: "Addis Ababa"},
		{ID: "seller2", Name: "Hawassa Fashion", Email: "hawassafash@example.com", Phone: "+251922234567", Role: repository.UserRoleSeller, Verified: true, Location: "Hawassa"},
		{ID: "seller3", Name: "Bahir Dar Furniture", Email: "bahirdarfurn@example.com", Phone: "+251922345678", Role: repository.UserRoleSeller, Verified: true, Location: "Bahir Dar"},
		{ID: "seller4", Name: "Mekelle Auto Parts", Email: "mekelleauto@example.com", Phone: "+251922456789", Role: repository.UserRoleSeller, Verified: true, Location: "Mekelle"},
		{ID: "admin1", Name: "Admin Ethioshop", Email: "admin@ethioshop.com", Phone: "+251900000000", Role: repository.UserRoleAdmin, Verified: true, Location: "Addis Ababa"},
	}

	created := 0
	for _, u := range users {
		u.PasswordHash = password
		u.CreatedAt = now
		u.UpdatedAt = now
		if err := store.Users().Create(ctx, &u); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				continue
			}
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		created++
	}
	logger.Info("seeded users", "created", created, "total", len(users))

	created = 0
	for _, o := range sampleOrders(now) {
		if _, err := store.Orders().FindByID(ctx, o.ID); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("check order %s: %w", o.ID, err)
		}
		if err := store.Orders().Create(ctx, &o); err != nil {
			return fmt.Errorf("seed order %s: %w", o.ID, err)
		}
		created++
	}
	logger.Info("seeded orders", "created", created)
	return nil
}

func sampleOrders(now int64) []repository.Order {
	day := int64(24 * 60 * 60)
	confirmed := now - 6*day
	shipped := now - 4*day
	delivered := now - 2*day
	paid := now - 7*day
	released := now - day

	return []repository.Order{
		{
			ID:      "order1",
			BuyerID: "buyer1", SellerID: "seller1",
			Items: []repository.OrderItem{
				{ProductID: "prod1", ProductName: "Samsung Galaxy A12", PriceCents: 1200000, Quantity: 1},
			},
			TotalCents: 1200000, Currency: "ETB",
			Status:          repository.OrderStatusPending,
			PaymentStatus:   repository.PaymentStatusPending,
			PaymentMethod:   repository.PaymentMethodTelebirr,
			ShippingAddress: "Bole, Addis Ababa",
			CreatedAt:       now - 8*day,
		},
		{
			ID:      "order2",
			BuyerID: "buyer2", SellerID: "seller2",
			Items: []repository.OrderItem{
				{ProductID: "prod2", ProductName: "Traditional Coffee Set", PriceCents: 250000, Quantity: 1},
				{ProductID: "prod15", ProductName: "Ethiopian Spices Set", PriceCents: 45000, Quantity: 2},
			},
			TotalCents: 340000, Currency: "ETB",
			Status:             repository.OrderStatusConfirmed,
			PaymentStatus:      repository.PaymentStatusPaid,
			PaymentMethod:      repository.PaymentMethodCBEBirr,
			PaymentID:          "CBE3F2A9D1B4E7",
			ShippingAddress:    "Kazanchis, Addis Ababa",
			CreatedAt:          now - 7*day,
			ConfirmedAt:        &confirmed,
			PaymentCompletedAt: &paid,
		},
		{
			ID:      "order3",
			BuyerID: "buyer3", SellerID: "seller3",
			Items: []repository.OrderItem{
				{ProductID: "prod5", ProductName: "Wooden Dining Table", PriceCents: 1800000, Quantity: 1},
			},
			TotalCents: 1800000, Currency: "ETB",
			Status:             repository.OrderStatusShipped,
			PaymentStatus:      repository.PaymentStatusPaid,
			PaymentMethod:      repository.PaymentMethodTelebirr,
			PaymentID:          "TB8C1D4E7F2A9B",
			ShippingAddress:    "Megenagna, Addis Ababa",
			TrackingNumber:     "ETH-TRK-1042",
			CreatedAt:          now - 7*day,
			ConfirmedAt:        &confirmed,
			ShippedAt:          &shipped,
			PaymentCompletedAt: &paid,
		},
		{
			ID:      "order4",
			BuyerID: "buyer4", SellerID: "seller4",
			Items: []repository.OrderItem{
				{ProductID: "prod10", ProductName: "Car Battery", PriceCents: 850000, Quantity: 1},
			},
			TotalCents: 850000, Currency: "ETB",
			Status:             repository.OrderStatusDelivered,
			PaymentStatus:      repository.PaymentStatusPaid,
			PaymentMethod:      repository.PaymentMethodTelebirr,
			PaymentID:          "TB5B9E2C7A4D1F",
			ShippingAddress:    "Piassa, Addis Ababa",
			TrackingNumber:     "ETH-TRK-1043",
			CreatedAt:          now - 9*day,
			ConfirmedAt:        &confirmed,
			ShippedAt:          &shipped,
			DeliveredAt:        &delivered,
			PaymentCompletedAt: &paid,
		},
		{
			ID:      "order5",
			BuyerID: "buyer5", SellerID: "seller1",
			Items: []repository.OrderItem{
				{ProductID: "prod6", ProductName: "Laptop HP Pavilion", PriceCents: 2500000, Quantity: 1},
			},
			TotalCents: 2500000, Currency: "ETB",
			Status:             repository.OrderStatusDelivered,
			PaymentStatus:      repository.PaymentStatusPaid,
			PaymentMethod:      repository.PaymentMethodCBEBirr,
			PaymentID:          "CBE7D4A1F8B2E5",
			EscrowReleased:     true,
			ShippingAddress:    "Bole, Addis Ababa",
			TrackingNumber:     "ETH-TRK-1044",
			CreatedAt:          now - 10*day,
			ConfirmedAt:        &confirmed,
			ShippedAt:          &shipped,
			DeliveredAt:        &delivered,
			PaymentCompletedAt: &paid,
			EscrowReleasedAt:   &released,
		},
		{
			ID:      "order6",
			BuyerID: "buyer1", SellerID: "seller2",
			Items: []repository.OrderItem{
				{ProductID: "prod4", ProductName: "Ethiopian Dress", PriceCents: 450000, Quantity: 1},
			},
			TotalCents: 450000, Currency: "ETB",
			Status:          repository.OrderStatusPending,
			PaymentStatus:   repository.PaymentStatusPending,
			PaymentMethod:   repository.PaymentMethodCash,
			ShippingAddress: "Kazanchis, Addis Ababa",
			CreatedAt:       now - day,
		},
	}
}
