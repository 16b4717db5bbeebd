package repository

// Order status values. Order status tracks physical fulfilment and is
// independent of payment status.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
)

// Payment status values.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// Payment method tags. Cash is pay-on-delivery and never goes through a
// gateway charge.
const (
	PaymentMethodTelebirr = "telebirr"
	PaymentMethodCBEBirr  = "cbe_birr"
	PaymentMethodCash     = "cash"
)

// Notification types.
const (
	NotificationTypePayment = "payment"
	NotificationTypeSystem  = "system"
	NotificationTypeMessage = "message"
)

// Notification read status.
const (
	NotificationStatusUnread = "unread"
	NotificationStatusRead   = "read"
)

// User roles.
const (
	UserRoleBuyer  = "buyer"
	UserRoleSeller = "seller"
	UserRoleAdmin  = "admin"
)

// Order is a purchase between a buyer and a seller. Monetary amounts are
// integer cents of the fixed currency (ETB). Timestamp fields are unix
// seconds; optional stamps are nil until their transition happens and are
// write-once afterwards.
type Order struct {
	ID              string
	BuyerID         string
	SellerID        string
	Items           []OrderItem
	TotalCents      int64
	Currency        string
	Status          string
	PaymentStatus   string
	PaymentMethod   string
	PaymentID       string
	EscrowReleased  bool
	ShippingAddress string
	TrackingNumber  string
	RefundReason    string

	CreatedAt          int64
	ConfirmedAt        *int64
	ShippedAt          *int64
	DeliveredAt        *int64
	PaymentCompletedAt *int64
	EscrowReleasedAt   *int64
	RefundRequestedAt  *int64
}

// OrderItem is a product line within an order.
type OrderItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	PriceCents  int64  `json:"price_cents"`
	Quantity    int64  `json:"quantity"`
}

// Notification is an inbox record addressed to a user. Immutable after
// creation except the unread→read status transition.
type Notification struct {
	ID          string
	RecipientID string
	Type        string
	Title       string
	Body        string
	Status      string
	CreatedAt   int64
}

// User is a marketplace account. Orders hold weak references to users;
// deleting a user does not cascade into orders.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         string
	Verified     bool
	Location     string
	PushToken    string
	CreatedAt    int64
	UpdatedAt    int64
}
