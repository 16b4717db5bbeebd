package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethioshop/marketplace/internal/repository"
	"github.com/ethioshop/marketplace/internal/service"
)

// EscrowReconcileJob scans for delivered, paid orders whose escrow has been
// held past the configured window. It only observes and reports; release
// stays an explicit operation.
type EscrowReconcileJob struct {
	Orders    repository.OrderRepository
	Metrics   *service.Metrics
	Logger    *slog.Logger
	HoldAfter time.Duration

	now func() time.Time
}

// NewEscrowReconcileJob constructs the reconcile scan.
func NewEscrowReconcileJob(orders repository.OrderRepository, metrics *service.Metrics, logger *slog.Logger, holdAfter time.Duration) *EscrowReconcileJob {
	if logger == nil {
		logger = slog.Default()
	}
	if holdAfter <= 0 {
		holdAfter = 72 * time.Hour
	}
	return &EscrowReconcileJob{
		Orders:    orders,
		Metrics:   metrics,
		Logger:    logger,
		HoldAfter: holdAfter,
		now:       time.Now,
	}
}

// Name returns the job identifier.
func (j *EscrowReconcileJob) Name() string { return "escrow.reconcile" }

// Run logs every overdue escrow hold and records the backlog gauge.
func (j *EscrowReconcileJob) Run(ctx context.Context) error {
	if j == nil || j.Orders == nil {
		return fmt.Errorf("escrow reconcile job dependencies not configured")
	}
	cutoff := j.now().Add(-j.HoldAfter).Unix()
	overdue, err := j.Orders.ListUnreleasedDelivered(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("scan unreleased escrow: %w", err)
	}
	if j.Metrics != nil {
		j.Metrics.SetEscrowBacklog(len(overdue))
	}
	for _, order := range overdue {
		j.Logger.Warn("escrow held past window",
			"order_id", order.ID,
			"seller_id", order.SellerID,
			"delivered_at", derefInt64(order.DeliveredAt),
			"held_for", j.now().Sub(time.Unix(derefInt64(order.DeliveredAt), 0)).Round(time.Minute).String(),
		)
	}
	if len(overdue) > 0 {
		j.Logger.Info("escrow reconcile pass", "overdue", len(overdue))
	}
	return nil
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
