package service

import "errors"

var (
	// ErrInvalidArgument indicates missing or malformed input; no state change.
	ErrInvalidArgument = errors.New("service: invalid argument")
	// ErrOrderNotFound indicates the order does not exist.
	ErrOrderNotFound = errors.New("service: order not found")
	// ErrUserNotFound indicates the user does not exist.
	ErrUserNotFound = errors.New("service: user not found")
	// ErrNotificationNotFound indicates the notification does not exist or is not the caller's.
	ErrNotificationNotFound = errors.New("service: notification not found")
	// ErrPreconditionFailed indicates the order exists but is in the wrong
	// state for the requested transition; no state change.
	ErrPreconditionFailed = errors.New("service: precondition failed")
	// ErrPaymentDeclined indicates the gateway rejected the charge; safe to retry.
	ErrPaymentDeclined = errors.New("service: payment declined")
	// ErrAlreadyReleased is the idempotency guard for a second escrow release.
	ErrAlreadyReleased = errors.New("service: escrow already released")
	// ErrAlreadyRefunded is the idempotency guard for a second refund request.
	ErrAlreadyRefunded = errors.New("service: payment already refunded")
	// ErrInvalidCredentials indicates provided credentials are wrong.
	ErrInvalidCredentials = errors.New("service: invalid credentials")
	// ErrUnauthorized indicates missing or invalid auth tokens.
	ErrUnauthorized = errors.New("service: unauthorized")
	// ErrEmailExists indicates email already registered.
	ErrEmailExists = errors.New("service: email already exists")
	// ErrForbidden indicates the caller does not own the resource.
	ErrForbidden = errors.New("service: forbidden")
)
