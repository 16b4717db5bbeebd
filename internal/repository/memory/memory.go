// Package memory provides mutex-guarded in-memory repositories. Tests use
// them in place of SQLite; the conditional updates hold the same
// check-and-write atomicity as the SQL implementations.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ethioshop/marketplace/internal/repository"
)

// Store aggregates the in-memory repositories.
type Store struct {
	users         *UserRepo
	orders        *OrderRepo
	notifications *NotificationRepo
}

// NewStore builds an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:         &UserRepo{items: make(map[string]repository.User)},
		orders:        &OrderRepo{items: make(map[string]repository.Order)},
		notifications: &NotificationRepo{items: make(map[string]repository.Notification)},
	}
}

func (s *Store) Users() repository.UserRepository                 { return s.users }
func (s *Store) Orders() repository.OrderRepository               { return s.orders }
func (s *Store) Notifications() repository.NotificationRepository { return s.notifications }

// OrderRepo is the in-memory order repository.
type OrderRepo struct {
	mu    sync.Mutex
	items map[string]repository.Order
}

// NewOrderRepo builds an empty order repository.
func NewOrderRepo() *OrderRepo {
	return &OrderRepo{items: make(map[string]repository.Order)}
}

// Seed inserts or replaces an order directly, for test setup.
func (r *OrderRepo) Seed(order repository.Order) {
	r.mu.Lock()
	r.items[order.ID] = order
	r.mu.Unlock()
}

// Snapshot returns a copy of the stored order, for test assertions.
func (r *OrderRepo) Snapshot(id string) (repository.Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.items[id]
	return order, ok
}

func (r *OrderRepo) FindByID(_ context.Context, id string) (*repository.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := order
	return &copied, nil
}

func (r *OrderRepo) Create(_ context.Context, order *repository.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[order.ID]; exists {
		return repository.ErrConflict
	}
	r.items[order.ID] = *order
	return nil
}

func (r *OrderRepo) ListByBuyer(_ context.Context, buyerID string, limit, offset int) ([]*repository.Order, error) {
	return r.list(func(o repository.Order) bool { return o.BuyerID == buyerID }, limit, offset), nil
}

func (r *OrderRepo) ListBySeller(_ context.Context, sellerID string, limit, offset int) ([]*repository.Order, error) {
	return r.list(func(o repository.Order) bool { return o.SellerID == sellerID }, limit, offset), nil
}

func (r *OrderRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

func (r *OrderRepo) MarkPaid(_ context.Context, id, method, paymentID string, completedAt int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.items[id]
	if !ok || order.PaymentStatus != repository.PaymentStatusPending {
		return false, nil
	}
	order.PaymentStatus = repository.PaymentStatusPaid
	order.PaymentMethod = method
	order.PaymentID = paymentID
	order.PaymentCompletedAt = &completedAt
	r.items[id] = order
	return true, nil
}

func (r *OrderRepo) MarkRefunded(_ context.Context, id, reason string, requestedAt int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.items[id]
	if !ok || order.PaymentStatus != repository.PaymentStatusPaid {
		return false, nil
	}
	order.PaymentStatus = repository.PaymentStatusRefunded
	order.RefundReason = reason
	order.RefundRequestedAt = &requestedAt
	r.items[id] = order
	return true, nil
}

func (r *OrderRepo) ReleaseEscrow(_ context.Context, id string, releasedAt int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.items[id]
	if !ok || order.Status != repository.OrderStatusDelivered ||
		order.PaymentStatus != repository.PaymentStatusPaid || order.EscrowReleased {
		return false, nil
	}
	order.EscrowReleased = true
	order.EscrowReleasedAt = &releasedAt
	r.items[id] = order
	return true, nil
}

func (r *OrderRepo) AdvanceStatus(_ context.Context, id, from, to string, at int64, trackingNumber string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.items[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	switch to {
	case repository.OrderStatusConfirmed:
		if order.ConfirmedAt == nil {
			order.ConfirmedAt = &at
		}
	case repository.OrderStatusShipped:
		if order.ShippedAt == nil {
			order.ShippedAt = &at
		}
	case repository.OrderStatusDelivered:
		if order.DeliveredAt == nil {
			order.DeliveredAt = &at
		}
	}
	if trackingNumber != "" {
		order.TrackingNumber = trackingNumber
	}
	r.items[id] = order
	return true, nil
}

func (r *OrderRepo) ListUnreleasedDelivered(_ context.Context, cutoffUnix int64) ([]*repository.Order, error) {
	return r.list(func(o repository.Order) bool {
		return o.Status == repository.OrderStatusDelivered &&
			o.PaymentStatus == repository.PaymentStatusPaid &&
			!o.EscrowReleased &&
			o.DeliveredAt != nil && *o.DeliveredAt <= cutoffUnix
	}, len(r.items)+1, 0), nil
}

func (r *OrderRepo) list(match func(repository.Order) bool, limit, offset int) []*repository.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []repository.Order
	for _, order := range r.items {
		if match(order) {
			matched = append(matched, order)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt > matched[j].CreatedAt })
	if offset >= len(matched) {
		return nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	result := make([]*repository.Order, len(matched))
	for i := range matched {
		copied := matched[i]
		result[i] = &copied
	}
	return result
}

// NotificationRepo is the in-memory notification repository.
type NotificationRepo struct {
	mu    sync.Mutex
	items map[string]repository.Notification
}

// NewNotificationRepo builds an empty notification repository.
func NewNotificationRepo() *NotificationRepo {
	return &NotificationRepo{items: make(map[string]repository.Notification)}
}

// All returns every stored notification, for test assertions.
func (r *NotificationRepo) All() []repository.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]repository.Notification, 0, len(r.items))
	for _, n := range r.items {
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt < result[j].CreatedAt })
	return result
}

func (r *NotificationRepo) Create(_ context.Context, n *repository.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[n.ID]; exists {
		return repository.ErrConflict
	}
	r.items[n.ID] = *n
	return nil
}

func (r *NotificationRepo) ListByRecipient(_ context.Context, recipientID string, limit, offset int) ([]*repository.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []repository.Notification
	for _, n := range r.items {
		if n.RecipientID == recipientID {
			matched = append(matched, n)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt > matched[j].CreatedAt })
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	result := make([]*repository.Notification, len(matched))
	for i := range matched {
		copied := matched[i]
		result[i] = &copied
	}
	return result, nil
}

func (r *NotificationRepo) CountUnread(_ context.Context, recipientID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.items {
		if n.RecipientID == recipientID && n.Status == repository.NotificationStatusUnread {
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepo) MarkRead(_ context.Context, recipientID, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.RecipientID != recipientID || n.Status != repository.NotificationStatusUnread {
		return false, nil
	}
	n.Status = repository.NotificationStatusRead
	r.items[id] = n
	return true, nil
}

// UserRepo is the in-memory user repository.
type UserRepo struct {
	mu    sync.Mutex
	items map[string]repository.User
}

// NewUserRepo builds an empty user repository.
func NewUserRepo() *UserRepo {
	return &UserRepo{items: make(map[string]repository.User)}
}

// Seed inserts or replaces a user directly, for test setup.
func (r *UserRepo) Seed(user repository.User) {
	r.mu.Lock()
	r.items[user.ID] = user
	r.mu.Unlock()
}

func (r *UserRepo) FindByID(_ context.Context, id string) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := user
	return &copied, nil
}

func (r *UserRepo) FindByEmail(_ context.Context, email string) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(email)
	for _, user := range r.items {
		if user.Email == email {
			copied := user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepo) Create(_ context.Context, user *repository.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.Email == user.Email {
			return repository.ErrConflict
		}
	}
	r.items[user.ID] = *user
	return nil
}

func (r *UserRepo) SetPushToken(_ context.Context, id, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PushToken = token
	r.items[id] = user
	return nil
}

func (r *UserRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}
