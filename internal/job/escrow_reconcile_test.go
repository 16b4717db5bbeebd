package job

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethioshop/marketplace/internal/repository"
	"github.com/ethioshop/marketplace/internal/repository/memory"
	"github.com/ethioshop/marketplace/internal/service"
)

func TestEscrowReconcileFindsOverdueHolds(t *testing.T) {
	orders := memory.NewOrderRepo()
	now := time.Now()
	oldDelivery := now.Add(-96 * time.Hour).Unix()
	recentDelivery := now.Add(-1 * time.Hour).Unix()

	orders.Seed(repository.Order{
		ID:            "overdue",
		SellerID:      "seller-1",
		Status:        repository.OrderStatusDelivered,
		PaymentStatus: repository.PaymentStatusPaid,
		DeliveredAt:   &oldDelivery,
	})
	orders.Seed(repository.Order{
		ID:            "fresh",
		SellerID:      "seller-1",
		Status:        repository.OrderStatusDelivered,
		PaymentStatus: repository.PaymentStatusPaid,
		DeliveredAt:   &recentDelivery,
	})
	orders.Seed(repository.Order{
		ID:               "released",
		SellerID:         "seller-2",
		Status:           repository.OrderStatusDelivered,
		PaymentStatus:    repository.PaymentStatusPaid,
		EscrowReleased:   true,
		DeliveredAt:      &oldDelivery,
		EscrowReleasedAt: &recentDelivery,
	})

	metrics := service.NewMetrics(prometheus.NewRegistry())
	j := NewEscrowReconcileJob(orders, metrics, nil, 72*time.Hour)
	j.now = func() time.Time { return now }

	require.NoError(t, j.Run(context.Background()))

	overdue, err := orders.ListUnreleasedDelivered(context.Background(), now.Add(-72*time.Hour).Unix())
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "overdue", overdue[0].ID)
}

func TestEscrowReconcileRequiresOrders(t *testing.T) {
	j := &EscrowReconcileJob{}
	assert.Error(t, j.Run(context.Background()))
}
