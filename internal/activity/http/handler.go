// Package activityhttp serves the authenticated activity feed.
package activityhttp

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/invoiceflow/invoiceflow/internal/activity"
	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

// Handler serves the activity feed endpoints.
type Handler struct {
	logger  *slog.Logger
	service *activity.Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *activity.Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers activity routes. The caller mounts them behind the
// bearer middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	authUser := shared.UserFromContext(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.service.List(r.Context(), authUser.ID, limit)
	if err != nil {
		httpx.RespondError(w, h.logger, shared.ServerError("ACTIVITY_ERROR", err))
		return
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	httpx.Success(w, "", map[string]any{"activities": entries})
}
