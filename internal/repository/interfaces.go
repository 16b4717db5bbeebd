package repository

import "context"

// Store exposes the repository for each aggregate root.
type Store interface {
	Users() UserRepository
	Orders() OrderRepository
	Notifications() NotificationRepository
}

// OrderRepository defines order persistence. All state transitions are
// single conditional updates: the WHERE clause re-checks the precondition
// and the boolean result reports whether a row actually changed, so a
// concurrent writer that got there first is detected instead of silently
// overwritten.
type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*Order, error)
	Create(ctx context.Context, order *Order) error
	ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]*Order, error)
	ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*Order, error)
	Count(ctx context.Context) (int64, error)

	// MarkPaid flips payment_status pending→paid, recording the provider
	// transaction id and completion stamp.
	MarkPaid(ctx context.Context, id, method, paymentID string, completedAt int64) (bool, error)
	// MarkRefunded flips payment_status paid→refunded with the sanitized
	// refund reason. Refund is terminal.
	MarkRefunded(ctx context.Context, id, reason string, requestedAt int64) (bool, error)
	// ReleaseEscrow flips escrow_released false→true, only while the order
	// is delivered.
	ReleaseEscrow(ctx context.Context, id string, releasedAt int64) (bool, error)
	// AdvanceStatus moves order status from→to and stamps the matching
	// transition timestamp. A tracking number may be set when shipping.
	AdvanceStatus(ctx context.Context, id, from, to string, at int64, trackingNumber string) (bool, error)

	// ListUnreleasedDelivered returns delivered, paid orders whose escrow is
	// still held and whose delivery stamp is older than cutoff.
	ListUnreleasedDelivered(ctx context.Context, cutoffUnix int64) ([]*Order, error)
}

// NotificationRepository defines notification inbox persistence.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]*Notification, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
	// MarkRead transitions unread→read; returns false when the record does
	// not belong to the recipient or is already read.
	MarkRead(ctx context.Context, recipientID, id string) (bool, error)
}

// UserRepository defines user account persistence.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, user *User) error
	SetPushToken(ctx context.Context, id, token string) error
	Count(ctx context.Context) (int64, error)
}
