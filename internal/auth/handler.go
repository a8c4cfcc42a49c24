package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

// MetricsRecorder counts auth flow outcomes.
type MetricsRecorder interface {
	RecordAuthEvent(event, outcome string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	metrics   MetricsRecorder
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// WithMetrics attaches an auth event counter.
func (h *Handler) WithMetrics(metrics MetricsRecorder) *Handler {
	h.metrics = metrics
	return h
}

func (h *Handler) countEvent(event string, err error) {
	if h.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	h.metrics.RecordAuthEvent(event, outcome)
}

// decode parses and validates a request body. Email format violations map to
// INVALID_EMAIL; everything else becomes a VALIDATION_ERROR detail list.
func (h *Handler) decode(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return shared.ValidationError([]string{"Request body must be valid JSON"})
	}
	if err := h.validator.Struct(target); err != nil {
		var details []string
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return shared.ValidationError([]string{err.Error()})
		}
		for _, fieldErr := range validationErrors {
			if fieldErr.Tag() == "email" {
				return shared.ErrInvalidEmail
			}
			details = append(details, fieldErr.Error())
		}
		return shared.ValidationError(details)
	}
	return nil
}

// HandleRegister creates a new account.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}

	result, err := h.service.Register(r.Context(), req, shared.ClientInfoFromRequest(r))
	h.countEvent("register", err)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}

	httpx.SuccessStatus(w, http.StatusCreated, "Account created successfully", result)
}

// HandleLogin authenticates credentials and issues a token pair.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}

	result, err := h.service.Login(r.Context(), req, shared.ClientInfoFromRequest(r))
	h.countEvent("login", err)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}

	httpx.Success(w, "Login successful", result)
}

// HandleLogout records the logout. Requires bearer authentication.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user := shared.UserFromContext(r.Context())
	if user == nil {
		httpx.RespondError(w, h.logger, shared.ErrMissingToken)
		return
	}

	h.service.Logout(r.Context(), user, shared.ClientInfoFromRequest(r))

	httpx.Success(w, "Logout successful", map[string]any{
		"loggedOut": true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleRefresh exchanges a refresh token for a new pair.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}

	result, err := h.service.Refresh(r.Context(), req.RefreshToken, shared.ClientInfoFromRequest(r))
	h.countEvent("refresh", err)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}

	httpx.Success(w, "Token refreshed successfully", result)
}

// HandleForgotPassword starts a password reset. The success payload is the
// same whether or not the account exists.
func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email, shared.ClientInfoFromRequest(r)); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}

	httpx.Success(w, "If an account with this email exists, a password reset link has been sent.", map[string]any{
		"emailSent": true,
		"email":     NormalizeEmail(req.Email),
	})
}

// HandleResetPassword completes a password reset.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}

	strength, err := h.service.ResetPassword(r.Context(), req, shared.ClientInfoFromRequest(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}

	httpx.Success(w, "Password has been reset successfully", map[string]any{
		"passwordReset":    true,
		"email":            NormalizeEmail(req.Email),
		"passwordStrength": strength,
	})
}
