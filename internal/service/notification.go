package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethioshop/marketplace/internal/cache"
	"github.com/ethioshop/marketplace/internal/repository"
)

// NotificationService exposes the recipient-facing notification inbox.
type NotificationService interface {
	List(ctx context.Context, recipientID string, limit, offset int) ([]*repository.Notification, error)
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) error
}

type notificationService struct {
	notifications repository.NotificationRepository
	cache         cache.Store
	logger        *slog.Logger
}

const unreadCountTTL = 30 * time.Second

// NewNotificationService assembles the inbox service. cacheStore may be
// nil to disable the unread-count cache.
func NewNotificationService(notifications repository.NotificationRepository, cacheStore cache.Store, logger *slog.Logger) NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheStore != nil {
		cacheStore = cacheStore.Namespace("unread")
	}
	return &notificationService{
		notifications: notifications,
		cache:         cacheStore,
		logger:        logger,
	}
}

func (s *notificationService) List(ctx context.Context, recipientID string, limit, offset int) ([]*repository.Notification, error) {
	if strings.TrimSpace(recipientID) == "" {
		return nil, fmt.Errorf("%w: recipient is required", ErrInvalidArgument)
	}
	limit, offset = normalizePage(limit, offset)
	return s.notifications.ListByRecipient(ctx, recipientID, limit, offset)
}

func (s *notificationService) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	if strings.TrimSpace(recipientID) == "" {
		return 0, fmt.Errorf("%w: recipient is required", ErrInvalidArgument)
	}
	if s.cache != nil {
		var cached int64
		if ok, err := s.cache.GetJSON(ctx, recipientID, &cached); err == nil && ok {
			return cached, nil
		}
	}
	count, err := s.notifications.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, recipientID, count, unreadCountTTL); err != nil {
			s.logger.WarnContext(ctx, "unread count cache write failed", "recipient_id", recipientID, "error", err)
		}
	}
	return count, nil
}

func (s *notificationService) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	if strings.TrimSpace(recipientID) == "" || strings.TrimSpace(notificationID) == "" {
		return fmt.Errorf("%w: recipient and notification id are required", ErrInvalidArgument)
	}
	ok, err := s.notifications.MarkRead(ctx, recipientID, notificationID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotificationNotFound, notificationID)
	}
	if s.cache != nil {
		s.cache.Delete(ctx, recipientID)
	}
	return nil
}
