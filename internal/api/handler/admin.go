package handler

import (
	"log/slog"
	"net/http"

	"github.com/ethioshop/marketplace/internal/service"
)

// Admin serves operator-only endpoints.
type Admin struct {
	system *service.AdminSystemService
	logger *slog.Logger
}

func NewAdmin(system *service.AdminSystemService, logger *slog.Logger) *Admin {
	if logger == nil {
		logger = slog.Default()
	}
	return &Admin{system: system, logger: logger}
}

// SystemStatus handles GET /api/v1/admin/system/status.
func (h *Admin) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.system.Status(r.Context())
	if err != nil {
		respondServiceError(w, "system status", err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}
