package auth

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
)

const (
	credentialRateLimit  = 10
	credentialRateWindow = time.Minute
)

// MountRoutes registers auth routes on the provided router. Login and the
// password reset endpoints carry a tighter per-IP rate limit than the global
// one.
func (h *Handler) MountRoutes(r chi.Router, authn *Middleware) {
	limiter := httprate.Limit(credentialRateLimit, credentialRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(httpx.RateLimitHandler(h.logger)),
	)

	r.Post("/register", h.HandleRegister)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Post("/login", h.HandleLogin)
		gr.Post("/forgot-password", h.HandleForgotPassword)
		gr.Post("/reset-password", h.HandleResetPassword)
	})
	r.Post("/refresh", h.HandleRefresh)
	r.With(authn.RequireAuth).Post("/logout", h.HandleLogout)
}
