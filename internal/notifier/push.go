package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ethioshop/marketplace/internal/repository"
)

// PushClient delivers a push message to the device registered for a user.
type PushClient interface {
	Send(ctx context.Context, task PushTask) error
}

// ErrNoDeviceToken reports that the recipient has no registered device.
// The dispatch job treats it as permanent and does not retry.
var ErrNoDeviceToken = errors.New("notifier: no device token")

// LogPushClient resolves the recipient's device token and logs the
// delivery. It stands in for a real push provider behind the same
// interface.
type LogPushClient struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewLogPushClient builds the log-backed push client.
func NewLogPushClient(users repository.UserRepository, logger *slog.Logger) *LogPushClient {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogPushClient{users: users, logger: logger}
}

func (c *LogPushClient) Send(ctx context.Context, task PushTask) error {
	user, err := c.users.FindByID(ctx, task.RecipientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoDeviceToken
		}
		return fmt.Errorf("resolve push recipient: %w", err)
	}
	if strings.TrimSpace(user.PushToken) == "" {
		return ErrNoDeviceToken
	}
	c.logger.InfoContext(ctx, "push delivered",
		"recipient_id", task.RecipientID,
		"token_prefix", tokenPrefix(user.PushToken),
		"title", task.Title,
	)
	return nil
}

func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
