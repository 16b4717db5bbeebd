package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethioshop/marketplace/internal/cache"
	"github.com/ethioshop/marketplace/internal/repository"
	"github.com/ethioshop/marketplace/internal/repository/memory"
)

func seedInbox(t *testing.T, repo repository.NotificationRepository) {
	t.Helper()
	ctx := context.Background()
	for i, n := range []repository.Notification{
		{ID: "n1", RecipientID: "u1", Type: repository.NotificationTypePayment, Title: "Payment Received", Status: repository.NotificationStatusUnread},
		{ID: "n2", RecipientID: "u1", Type: repository.NotificationTypeSystem, Title: "Order Shipped", Status: repository.NotificationStatusUnread},
		{ID: "n3", RecipientID: "u2", Type: repository.NotificationTypeSystem, Title: "Refund Initiated", Status: repository.NotificationStatusUnread},
	} {
		n.CreatedAt = int64(1700000000 + i)
		require.NoError(t, repo.Create(ctx, &n))
	}
}

func TestNotificationInbox(t *testing.T) {
	ctx := context.Background()

	t.Run("list returns only the recipient's rows", func(t *testing.T) {
		repo := memory.NewNotificationRepo()
		seedInbox(t, repo)
		svc := NewNotificationService(repo, nil, nil)

		items, err := svc.List(ctx, "u1", 10, 0)
		require.NoError(t, err)
		assert.Len(t, items, 2)
		for _, n := range items {
			assert.Equal(t, "u1", n.RecipientID)
		}
	})

	t.Run("mark read flips unread once and rejects foreign rows", func(t *testing.T) {
		repo := memory.NewNotificationRepo()
		seedInbox(t, repo)
		svc := NewNotificationService(repo, nil, nil)

		require.NoError(t, svc.MarkRead(ctx, "u1", "n1"))
		assert.ErrorIs(t, svc.MarkRead(ctx, "u1", "n1"), ErrNotificationNotFound)
		assert.ErrorIs(t, svc.MarkRead(ctx, "u1", "n3"), ErrNotificationNotFound)

		count, err := svc.UnreadCount(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("unread count cache is invalidated by mark read", func(t *testing.T) {
		repo := memory.NewNotificationRepo()
		seedInbox(t, repo)
		store := cache.NewStore(cache.Options{DefaultTTL: time.Minute})
		svc := NewNotificationService(repo, store, nil)

		count, err := svc.UnreadCount(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		require.NoError(t, svc.MarkRead(ctx, "u1", "n1"))

		count, err = svc.UnreadCount(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "stale cached count must not survive a mark read")
	})
}
