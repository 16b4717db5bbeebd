package handler

import (
	"log/slog"
	"net/http"

	"github.com/ethioshop/marketplace/internal/api/requestctx"
	"github.com/ethioshop/marketplace/internal/service"
)

// User serves profile and device token endpoints.
type User struct {
	users  service.UserService
	logger *slog.Logger
}

func NewUser(users service.UserService, logger *slog.Logger) *User {
	if logger == nil {
		logger = slog.Default()
	}
	return &User{users: users, logger: logger}
}

// Me handles GET /api/v1/users/me.
func (h *User) Me(w http.ResponseWriter, r *http.Request) {
	claims, _ := requestctx.UserFrom(r.Context())
	view, err := h.users.Me(r.Context(), claims.ID)
	if err != nil {
		respondServiceError(w, "load profile", err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

type pushTokenRequest struct {
	PushToken string `json:"push_token"`
}

// RegisterPushToken handles PUT /api/v1/users/me/push-token.
func (h *User) RegisterPushToken(w http.ResponseWriter, r *http.Request) {
	var req pushTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	claims, _ := requestctx.UserFrom(r.Context())
	if err := h.users.RegisterPushToken(r.Context(), claims.ID, req.PushToken); err != nil {
		respondServiceError(w, "register push token", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
