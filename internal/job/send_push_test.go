package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethioshop/marketplace/internal/async"
	"github.com/ethioshop/marketplace/internal/notifier"
)

type fakePushClient struct {
	mu        sync.Mutex
	delivered []notifier.PushTask
	failWith  error
}

func (c *fakePushClient) Send(_ context.Context, task notifier.PushTask) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}
	c.delivered = append(c.delivered, task)
	return nil
}

func (c *fakePushClient) deliveredCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.delivered)
}

func TestSendPushJobDelivers(t *testing.T) {
	queue := async.NewPushQueue()
	queue.EnqueuePush(notifier.PushTask{RecipientID: "seller-1", Title: "Payment Received", Body: "Payment of ETB 1,000.00 received via Telebirr"})
	queue.EnqueuePush(notifier.PushTask{RecipientID: "buyer-1", Title: "Order Shipped", Body: "Your order is on the way"})

	client := &fakePushClient{}
	j := NewSendPushJob(queue, client, nil, 3, time.Second)

	require.NoError(t, j.Run(context.Background()))
	assert.Equal(t, 2, client.deliveredCount())
	assert.Equal(t, 0, queue.Pending())
}

func TestSendPushJobSkipsMissingToken(t *testing.T) {
	queue := async.NewPushQueue()
	queue.EnqueuePush(notifier.PushTask{RecipientID: "no-device", Title: "Refund Initiated"})

	client := &fakePushClient{failWith: notifier.ErrNoDeviceToken}
	j := NewSendPushJob(queue, client, nil, 3, 50*time.Millisecond)

	require.NoError(t, j.Run(context.Background()))
	// No retries and no requeue for a recipient without a device token.
	assert.Equal(t, 0, queue.Pending())
	assert.Equal(t, 0, client.deliveredCount())
}

func TestSendPushJobRequeuesTransientFailure(t *testing.T) {
	queue := async.NewPushQueue()
	queue.EnqueuePush(notifier.PushTask{RecipientID: "seller-1", Title: "Payment Released"})

	client := &fakePushClient{failWith: errors.New("provider unavailable")}
	j := NewSendPushJob(queue, client, nil, 3, 50*time.Millisecond)

	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, 1, queue.Pending())

	tasks := queue.Drain()
	assert.Equal(t, 1, tasks[0].Attempts)
}

func TestSendPushJobDropsAfterRetryBudget(t *testing.T) {
	queue := async.NewPushQueue()
	queue.EnqueuePush(notifier.PushTask{RecipientID: "seller-1", Title: "Payment Released", Attempts: 2})

	client := &fakePushClient{failWith: errors.New("provider unavailable")}
	j := NewSendPushJob(queue, client, nil, 3, 50*time.Millisecond)

	require.NoError(t, j.Run(context.Background()))
	assert.Equal(t, 0, queue.Pending())
}
