package notifier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ethioshop/marketplace/internal/repository"
)

// Request describes one in-app notification to deliver.
type Request struct {
	RecipientID string
	Type        string
	Title       string
	Body        string
}

// Emitter delivers notifications. Callers treat Emit failures as degraded
// delivery, never as a reason to roll back a committed order transition.
type Emitter interface {
	Emit(ctx context.Context, req Request) error
}

// PushEnqueuer accepts push dispatch tasks for background delivery.
type PushEnqueuer interface {
	EnqueuePush(task PushTask)
}

// PushTask is one device push waiting for dispatch.
type PushTask struct {
	RecipientID string
	Title       string
	Body        string
	Attempts    int
}

// StoreEmitter persists the notification row and hands a push task to the
// background queue.
type StoreEmitter struct {
	notifications repository.NotificationRepository
	queue         PushEnqueuer
	logger        *slog.Logger
	now           func() time.Time
}

// NewStoreEmitter wires the store-backed emitter. queue may be nil when
// push dispatch is disabled.
func NewStoreEmitter(notifications repository.NotificationRepository, queue PushEnqueuer, logger *slog.Logger) *StoreEmitter {
	if notifications == nil {
		panic("notifier: notification repository is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &StoreEmitter{
		notifications: notifications,
		queue:         queue,
		logger:        logger,
		now:           time.Now,
	}
}

// Emit writes the unread notification and enqueues the push.
func (e *StoreEmitter) Emit(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.RecipientID) == "" {
		return fmt.Errorf("notifier: recipient is required")
	}
	if strings.TrimSpace(req.Title) == "" {
		return fmt.Errorf("notifier: title is required")
	}
	notifType := req.Type
	if notifType == "" {
		notifType = repository.NotificationTypeSystem
	}

	record := &repository.Notification{
		ID:          uuid.NewString(),
		RecipientID: req.RecipientID,
		Type:        notifType,
		Title:       req.Title,
		Body:        req.Body,
		Status:      repository.NotificationStatusUnread,
		CreatedAt:   e.now().Unix(),
	}
	if err := e.notifications.Create(ctx, record); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}

	if e.queue != nil {
		e.queue.EnqueuePush(PushTask{
			RecipientID: req.RecipientID,
			Title:       req.Title,
			Body:        req.Body,
		})
	}
	e.logger.InfoContext(ctx, "notification emitted",
		"notification_id", record.ID,
		"recipient_id", req.RecipientID,
		"type", notifType,
	)
	return nil
}

// LoggerEmitter records the delivery intent without persisting anything.
// Used in tests and during bootstrap before the store is ready.
type LoggerEmitter struct {
	logger *slog.Logger
}

// NewLoggerEmitter creates a log-only emitter.
func NewLoggerEmitter(logger *slog.Logger) *LoggerEmitter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LoggerEmitter{logger: logger}
}

func (e *LoggerEmitter) Emit(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.RecipientID) == "" {
		return fmt.Errorf("notifier: recipient is required")
	}
	e.logger.InfoContext(ctx, "notification", "recipient_id", req.RecipientID, "type", req.Type, "title", req.Title)
	return nil
}

var etbPrinter = message.NewPrinter(language.English)

// FormatETB renders an integer-cent amount as a birr string for
// notification bodies, with thousands separators.
func FormatETB(amountCents int64) string {
	return etbPrinter.Sprintf("ETB %.2f", float64(amountCents)/100)
}
