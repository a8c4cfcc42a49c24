package users

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

// Handler wires the protected profile endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers user routes. The caller mounts them behind the bearer
// middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
	r.Get("/settings", h.handleGetSettings)
	r.Put("/settings", h.handleUpdateSettings)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	authUser := shared.UserFromContext(r.Context())
	user, err := h.service.Get(r.Context(), authUser.ID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Success(w, "", map[string]any{"user": user})
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	authUser := shared.UserFromContext(r.Context())
	settings, err := h.service.GetSettings(r.Context(), authUser.ID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Success(w, "", map[string]any{"settings": settings})
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	authUser := shared.UserFromContext(r.Context())

	var patch json.RawMessage
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.RespondError(w, h.logger, shared.ValidationError([]string{"Request body must be valid JSON"}))
		return
	}

	merged, err := h.service.UpdateSettings(r.Context(), authUser, patch, shared.ClientInfoFromRequest(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Success(w, "Settings updated successfully", map[string]any{"settings": merged})
}
