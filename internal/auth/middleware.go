package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
	"github.com/invoiceflow/invoiceflow/internal/shared"
	"github.com/invoiceflow/invoiceflow/internal/token"
)

// ExtractBearerToken reads the token from an Authorization header. Returns ""
// when the header is absent or not Bearer-scheme.
func ExtractBearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Middleware authenticates requests with a bearer access token, loads the
// account and attaches it to the request context. Routes mounted behind it can
// assume shared.UserFromContext returns a non-nil user.
type Middleware struct {
	logger *slog.Logger
	tokens *token.Service
	repo   Repository
}

// NewMiddleware constructs the bearer auth middleware.
func NewMiddleware(logger *slog.Logger, tokens *token.Service, repo Repository) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{logger: logger, tokens: tokens, repo: repo}
}

// RequireAuth is the http middleware enforcing bearer authentication.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.authenticate(r)
		if err != nil {
			httpx.RespondError(w, m.logger, err)
			return
		}
		ctx := shared.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) authenticate(r *http.Request) (*shared.AuthUser, error) {
	raw := ExtractBearerToken(r.Header.Get("Authorization"))
	if raw == "" {
		return nil, shared.ErrMissingToken
	}

	claims, err := m.tokens.VerifyAccessToken(raw)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, shared.ErrExpiredToken
		}
		return nil, shared.ErrInvalidToken
	}

	user, err := m.repo.FindByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUserNotFound
		}
		return nil, shared.ServerError("AUTH_ERROR", err)
	}
	if !user.IsActive {
		return nil, shared.ErrAccountInactive
	}

	// Touch last_activity without delaying the request. login_count is only
	// ever incremented by the login path.
	go func(id int64) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.repo.TouchActivity(ctx, id); err != nil {
			m.logger.Warn("touch last activity", slog.Any("error", err))
		}
	}(user.ID)

	return &shared.AuthUser{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}, nil
}
