package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ethioshop/marketplace/internal/async"
	"github.com/ethioshop/marketplace/internal/notifier"
)

// SendPushJob drains the push queue and delivers each task with bounded
// exponential backoff. Tasks that keep failing go back to the queue for
// the next pass until their attempt budget runs out.
type SendPushJob struct {
	Queue       *async.PushQueue
	Client      notifier.PushClient
	Logger      *slog.Logger
	MaxRetries  int
	MaxInterval time.Duration
}

// NewSendPushJob constructs the push dispatch task.
func NewSendPushJob(queue *async.PushQueue, client notifier.PushClient, logger *slog.Logger, maxRetries int, maxInterval time.Duration) *SendPushJob {
	if logger == nil {
		logger = slog.Default()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if maxInterval <= 0 {
		maxInterval = time.Minute
	}
	return &SendPushJob{
		Queue:       queue,
		Client:      client,
		Logger:      logger,
		MaxRetries:  maxRetries,
		MaxInterval: maxInterval,
	}
}

// Name returns the job identifier.
func (j *SendPushJob) Name() string { return "notify.push" }

// Run delivers all buffered push tasks.
func (j *SendPushJob) Run(ctx context.Context) error {
	if j == nil || j.Queue == nil || j.Client == nil {
		return fmt.Errorf("push dispatch job dependencies not configured")
	}
	tasks := j.Queue.Drain()
	if len(tasks) == 0 {
		return nil
	}
	for _, task := range tasks {
		if err := j.send(ctx, task); err != nil {
			if errors.Is(err, notifier.ErrNoDeviceToken) {
				j.Logger.Debug("push skipped", "recipient_id", task.RecipientID, "reason", err)
				continue
			}
			task.Attempts++
			if task.Attempts >= j.MaxRetries {
				j.Logger.Warn("push dropped after retries", "recipient_id", task.RecipientID, "attempts", task.Attempts, "error", err)
				continue
			}
			j.Queue.Requeue(task)
			j.Logger.Warn("push requeued", "recipient_id", task.RecipientID, "attempts", task.Attempts, "error", err)
		}
	}
	j.Logger.Debug("push tasks dispatched", "count", len(tasks))
	return nil
}

func (j *SendPushJob) send(ctx context.Context, task notifier.PushTask) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = j.MaxInterval
	policy.MaxElapsedTime = j.MaxInterval

	operation := func() error {
		err := j.Client.Send(ctx, task)
		if errors.Is(err, notifier.ErrNoDeviceToken) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}
