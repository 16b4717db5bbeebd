package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethioshop/marketplace/internal/repository"
)

// orderRepo implements the orders table access.
type orderRepo struct {
	db *sql.DB
}

const orderColumns = `id, buyer_id, seller_id, items, total_cents, currency,
	status, payment_status, payment_method, payment_id, escrow_released,
	shipping_address, tracking_number, refund_reason,
	created_at, confirmed_at, shipped_at, delivered_at,
	payment_completed_at, escrow_released_at, refund_requested_at`

func (r *orderRepo) FindByID(ctx context.Context, id string) (*repository.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	return scanOrder(row)
}

func (r *orderRepo) Create(ctx context.Context, order *repository.Order) error {
	const stmt = `INSERT INTO orders(
		id, buyer_id, seller_id, items, total_cents, currency,
		status, payment_status, payment_method, payment_id, escrow_released,
		shipping_address, tracking_number, refund_reason,
		created_at, confirmed_at, shipped_at, delivered_at,
		payment_completed_at, escrow_released_at, refund_requested_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if order.CreatedAt == 0 {
		order.CreatedAt = time.Now().Unix()
	}
	items, err := encodeItems(order.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}
	_, err = r.db.ExecContext(ctx, stmt,
		order.ID,
		order.BuyerID,
		order.SellerID,
		items,
		order.TotalCents,
		order.Currency,
		order.Status,
		order.PaymentStatus,
		order.PaymentMethod,
		order.PaymentID,
		boolToInt(order.EscrowReleased),
		order.ShippingAddress,
		order.TrackingNumber,
		order.RefundReason,
		order.CreatedAt,
		nullableInt64(order.ConfirmedAt),
		nullableInt64(order.ShippedAt),
		nullableInt64(order.DeliveredAt),
		nullableInt64(order.PaymentCompletedAt),
		nullableInt64(order.EscrowReleasedAt),
		nullableInt64(order.RefundRequestedAt),
	)
	return err
}

func (r *orderRepo) ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]*repository.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE buyer_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`, buyerID, limit, offset)
}

func (r *orderRepo) ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*repository.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE seller_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`, sellerID, limit, offset)
}

func (r *orderRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count)
	return count, err
}

// MarkPaid performs the pending→paid transition as one conditional update.
// A zero row count means the precondition no longer held when the write
// landed, which the service layer turns into a precondition failure.
func (r *orderRepo) MarkPaid(ctx context.Context, id, method, paymentID string, completedAt int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET payment_status = ?, payment_method = ?, payment_id = ?, payment_completed_at = ?
		 WHERE id = ? AND payment_status = ?`,
		repository.PaymentStatusPaid, method, paymentID, completedAt,
		id, repository.PaymentStatusPending,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *orderRepo) MarkRefunded(ctx context.Context, id, reason string, requestedAt int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET payment_status = ?, refund_reason = ?, refund_requested_at = ?
		 WHERE id = ? AND payment_status = ?`,
		repository.PaymentStatusRefunded, reason, requestedAt,
		id, repository.PaymentStatusPaid,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *orderRepo) ReleaseEscrow(ctx context.Context, id string, releasedAt int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET escrow_released = 1, escrow_released_at = ?
		 WHERE id = ? AND status = ? AND payment_status = ? AND escrow_released = 0`,
		releasedAt, id, repository.OrderStatusDelivered, repository.PaymentStatusPaid,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *orderRepo) AdvanceStatus(ctx context.Context, id, from, to string, at int64, trackingNumber string) (bool, error) {
	stampColumn, ok := statusStampColumn(to)
	if !ok {
		return false, fmt.Errorf("no transition stamp for status %q", to)
	}
	// The stamp column is only written when still NULL, keeping the
	// write-once property even if two transitions race.
	stmt := fmt.Sprintf(
		`UPDATE orders SET status = ?, %s = COALESCE(%s, ?), tracking_number = CASE WHEN ? != '' THEN ? ELSE tracking_number END
		 WHERE id = ? AND status = ?`,
		stampColumn, stampColumn,
	)
	res, err := r.db.ExecContext(ctx, stmt, to, at, trackingNumber, trackingNumber, id, from)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *orderRepo) ListUnreleasedDelivered(ctx context.Context, cutoffUnix int64) ([]*repository.Order, error) {
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE status = ? AND payment_status = ? AND escrow_released = 0
		   AND delivered_at IS NOT NULL AND delivered_at <= ?
		 ORDER BY delivered_at ASC`,
		repository.OrderStatusDelivered, repository.PaymentStatusPaid, cutoffUnix,
	)
}

func (r *orderRepo) list(ctx context.Context, query string, args ...any) ([]*repository.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*repository.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func statusStampColumn(status string) (string, bool) {
	switch status {
	case repository.OrderStatusConfirmed:
		return "confirmed_at", true
	case repository.OrderStatusShipped:
		return "shipped_at", true
	case repository.OrderStatusDelivered:
		return "delivered_at", true
	default:
		return "", false
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*repository.Order, error) {
	var (
		order        repository.Order
		items        string
		escrow       int
		confirmedAt  sql.NullInt64
		shippedAt    sql.NullInt64
		deliveredAt  sql.NullInt64
		paidAt       sql.NullInt64
		releasedAt   sql.NullInt64
		refundReqAt  sql.NullInt64
	)
	err := row.Scan(
		&order.ID,
		&order.BuyerID,
		&order.SellerID,
		&items,
		&order.TotalCents,
		&order.Currency,
		&order.Status,
		&order.PaymentStatus,
		&order.PaymentMethod,
		&order.PaymentID,
		&escrow,
		&order.ShippingAddress,
		&order.TrackingNumber,
		&order.RefundReason,
		&order.CreatedAt,
		&confirmedAt,
		&shippedAt,
		&deliveredAt,
		&paidAt,
		&releasedAt,
		&refundReqAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	order.EscrowReleased = escrow != 0
	order.ConfirmedAt = int64Ptr(confirmedAt)
	order.ShippedAt = int64Ptr(shippedAt)
	order.DeliveredAt = int64Ptr(deliveredAt)
	order.PaymentCompletedAt = int64Ptr(paidAt)
	order.EscrowReleasedAt = int64Ptr(releasedAt)
	order.RefundRequestedAt = int64Ptr(refundReqAt)

	decoded, err := decodeItems(items)
	if err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	order.Items = decoded
	return &order, nil
}
