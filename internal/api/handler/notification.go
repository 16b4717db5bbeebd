package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ethioshop/marketplace/internal/api/requestctx"
	"github.com/ethioshop/marketplace/internal/service"
)

// Notification serves the per-user notification inbox.
type Notification struct {
	notifications service.NotificationService
	logger        *slog.Logger
}

func NewNotification(notifications service.NotificationService, logger *slog.Logger) *Notification {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notification{notifications: notifications, logger: logger}
}

// List handles GET /api/v1/notifications.
func (h *Notification) List(w http.ResponseWriter, r *http.Request) {
	claims, _ := requestctx.UserFrom(r.Context())
	limit, offset := pageParams(r)

	items, err := h.notifications.List(r.Context(), claims.ID, limit, offset)
	if err != nil {
		respondServiceError(w, "list notifications", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"notifications": items})
}

// UnreadCount handles GET /api/v1/notifications/unread-count.
func (h *Notification) UnreadCount(w http.ResponseWriter, r *http.Request) {
	claims, _ := requestctx.UserFrom(r.Context())
	count, err := h.notifications.UnreadCount(r.Context(), claims.ID)
	if err != nil {
		respondServiceError(w, "count unread notifications", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"unread": count})
}

// MarkRead handles POST /api/v1/notifications/{notificationID}/read.
func (h *Notification) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, _ := requestctx.UserFrom(r.Context())
	err := h.notifications.MarkRead(r.Context(), claims.ID, chi.URLParam(r, "notificationID"))
	if err != nil {
		respondServiceError(w, "mark notification read", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
