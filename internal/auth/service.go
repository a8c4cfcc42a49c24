package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/invoiceflow/invoiceflow/internal/activity"
	"github.com/invoiceflow/invoiceflow/internal/shared"
	"github.com/invoiceflow/invoiceflow/internal/token"
)

// Mailer delivers transactional auth emails. The server wires an Asynq-backed
// enqueuer; tests use an in-memory fake.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, name, resetToken string) error
	SendPasswordResetConfirmation(ctx context.Context, to, name string) error
}

// ActivityRecorder appends auth events to the activity log.
type ActivityRecorder interface {
	Record(ctx context.Context, entry activity.Entry) error
}

// Service wraps the authentication business rules.
type Service struct {
	repo            Repository
	tokens          *token.Service
	activities      ActivityRecorder
	mailer          Mailer
	logger          *slog.Logger
	resetTTL        time.Duration
	verificationTTL time.Duration
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *token.Service, activities ActivityRecorder, mailer Mailer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:            repo,
		tokens:          tokens,
		activities:      activities,
		mailer:          mailer,
		logger:          logger,
		resetTTL:        time.Hour,
		verificationTTL: 24 * time.Hour,
	}
}

// RegisterResult bundles the register response payload.
type RegisterResult struct {
	User             Profile     `json:"user"`
	Tokens           token.Pair  `json:"tokens"`
	PasswordStrength string      `json:"passwordStrength"`
	Session          SessionInfo `json:"-"`
}

// LoginResult bundles the login response payload.
type LoginResult struct {
	User       Profile     `json:"user"`
	Tokens     token.Pair  `json:"tokens"`
	Session    SessionInfo `json:"session"`
	RememberMe bool        `json:"rememberMe"`
}

// RefreshResult bundles the refresh response payload.
type RefreshResult struct {
	Tokens  token.Pair  `json:"tokens"`
	Session SessionInfo `json:"session"`
}

// NormalizeEmail lowercases and trims an address for case-insensitive
// uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// Register creates a new account and issues its first token pair.
func (s *Service) Register(ctx context.Context, req RegisterRequest, client shared.ClientInfo) (*RegisterResult, error) {
	var details []string
	strength := ValidatePasswordStrength(req.Password)
	if !strength.Valid {
		details = append(details, strength.Errors...)
	}
	if req.Password != req.ConfirmPassword {
		details = append(details, "Passwords do not match")
	}
	if !req.AcceptTerms {
		details = append(details, "You must accept the terms and conditions")
	}
	if len(details) > 0 {
		return nil, shared.ValidationError(details)
	}

	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		return nil, shared.ServerError("REGISTRATION_ERROR", err)
	}

	verificationToken, err := token.GenerateSecureToken(32)
	if err != nil {
		return nil, shared.ServerError("REGISTRATION_ERROR", err)
	}
	verificationHash := token.HashToken(verificationToken)
	verificationExpires := time.Now().Add(s.verificationTTL)

	now := time.Now()
	user, err := s.repo.Create(ctx, &User{
		Name:                     normalizeName(req.Name),
		Email:                    NormalizeEmail(req.Email),
		PasswordHash:             passwordHash,
		Role:                     "user",
		IsActive:                 true,
		LastLogin:                &now,
		LoginCount:               1,
		EmailVerificationToken:   &verificationHash,
		EmailVerificationExpires: &verificationExpires,
	})
	if err != nil {
		if _, ok := shared.AsError(err); ok {
			return nil, err
		}
		return nil, shared.ServerError("REGISTRATION_ERROR", err)
	}

	pair, err := s.tokens.GeneratePair(subjectFor(user))
	if err != nil {
		return nil, shared.ServerError("REGISTRATION_ERROR", err)
	}

	session := s.newSession(user, client)
	s.logActivity(activity.Entry{
		UserID:      user.ID,
		Type:        activity.TypeRegistered,
		Title:       "Account created",
		IPAddress:   client.IPAddress,
		UserAgent:   client.UserAgent,
		Description: "New account registration",
	})

	return &RegisterResult{
		User:             user.Profile(),
		Tokens:           pair,
		PasswordStrength: strength.Strength,
		Session:          session,
	}, nil
}

// Login validates credentials and issues a token pair. Unknown email and wrong
// password return the identical error so responses carry no enumeration
// signal.
func (s *Service) Login(ctx context.Context, req LoginRequest, client shared.ClientInfo) (*LoginResult, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, shared.ServerError("LOGIN_ERROR", err)
	}
	if !user.IsActive {
		return nil, shared.ErrAccountInactive
	}
	if !ComparePassword(req.Password, user.PasswordHash) {
		return nil, shared.ErrInvalidCredentials
	}

	user, err = s.repo.RecordLogin(ctx, user.ID)
	if err != nil {
		return nil, shared.ServerError("LOGIN_ERROR", err)
	}

	pair, err := s.tokens.GeneratePair(subjectFor(user))
	if err != nil {
		return nil, shared.ServerError("LOGIN_ERROR", err)
	}

	session := s.newSession(user, client)
	s.logActivity(activity.Entry{
		UserID:      user.ID,
		Type:        activity.TypeLoggedIn,
		Title:       "Signed in",
		IPAddress:   client.IPAddress,
		UserAgent:   client.UserAgent,
		Description: "Session " + session.SessionID,
	})

	return &LoginResult{
		User:       user.Profile(),
		Tokens:     pair,
		Session:    session,
		RememberMe: req.RememberMe,
	}, nil
}

// Logout records the event. Tokens are stateless, so no server-side
// revocation happens here; the client discards its cached pair.
func (s *Service) Logout(ctx context.Context, user *shared.AuthUser, client shared.ClientInfo) {
	s.logActivity(activity.Entry{
		UserID:    user.ID,
		Type:      activity.TypeLoggedOut,
		Title:     "Signed out",
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	})
}

// Refresh exchanges a valid refresh token for a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string, client shared.ClientInfo) (*RefreshResult, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrExpired):
			return nil, shared.ErrExpiredRefreshToken
		default:
			return nil, shared.ErrInvalidRefreshToken
		}
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUserNotFound
		}
		return nil, shared.ServerError("TOKEN_REFRESH_ERROR", err)
	}
	if !user.IsActive {
		return nil, shared.ErrAccountInactive
	}

	pair, err := s.tokens.GeneratePair(subjectFor(user))
	if err != nil {
		return nil, shared.ServerError("TOKEN_REFRESH_ERROR", err)
	}

	if err := s.repo.TouchActivity(ctx, user.ID); err != nil {
		s.logger.Warn("touch last activity", slog.Any("error", err))
	}

	session := s.newSession(user, client)
	s.logActivity(activity.Entry{
		UserID:      user.ID,
		Type:        activity.TypeTokenRefreshed,
		Action:      "token_refresh",
		Title:       "Session refreshed",
		IPAddress:   client.IPAddress,
		UserAgent:   client.UserAgent,
		Description: "Session " + session.SessionID,
	})

	return &RefreshResult{Tokens: pair, Session: session}, nil
}

// ForgotPassword starts the reset flow. The returned payload is identical for
// unknown and inactive accounts to prevent enumeration; only an outstanding
// unexpired reset token produces a distinct (429) result.
func (s *Service) ForgotPassword(ctx context.Context, email string, client shared.ClientInfo) error {
	normalized := NormalizeEmail(email)
	user, err := s.repo.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return shared.ServerError("PASSWORD_RESET_ERROR", err)
	}
	if !user.IsActive {
		s.logger.Info("password reset requested for inactive account", slog.Int64("user_id", user.ID))
		return nil
	}

	if user.PasswordResetExpires != nil && !token.IsExpired(*user.PasswordResetExpires) {
		return shared.ErrRecentResetRequest.WithDetails(map[string]any{
			"canRequestAt": user.PasswordResetExpires,
		})
	}

	rawToken, err := token.GenerateSecureToken(32)
	if err != nil {
		return shared.ServerError("PASSWORD_RESET_ERROR", err)
	}
	expiresAt := time.Now().Add(s.resetTTL)
	if err := s.repo.SetResetToken(ctx, user.ID, token.HashToken(rawToken), expiresAt); err != nil {
		return shared.ServerError("PASSWORD_RESET_ERROR", err)
	}

	// A crash after this point leaves the token persisted with the email
	// unsent; the user can simply re-request after it expires.
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, rawToken); err != nil {
		s.logger.Warn("send password reset email", slog.Any("error", err))
	}

	s.logActivity(activity.Entry{
		UserID:    user.ID,
		Type:      activity.TypePasswordReset,
		Action:    "requested",
		Title:     "Password reset requested",
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	})
	return nil
}

// ResetPassword completes the reset flow with a one-time token.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest, client shared.ClientInfo) (string, error) {
	strength := ValidatePasswordStrength(req.Password)
	if !strength.Valid {
		return "", shared.ErrWeakPassword.WithDetails(strength.Errors)
	}

	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", shared.ErrResetUserNotFound
		}
		return "", shared.ServerError("PASSWORD_RESET_ERROR", err)
	}
	if !user.IsActive {
		return "", shared.ErrAccountInactive
	}
	if user.PasswordResetToken == nil || user.PasswordResetExpires == nil {
		return "", shared.ErrNoResetRequest
	}
	if token.IsExpired(*user.PasswordResetExpires) {
		return "", shared.ErrExpiredResetToken
	}
	if !token.VerifyTokenHash(req.Token, *user.PasswordResetToken) {
		return "", shared.ErrInvalidResetToken
	}

	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		return "", shared.ServerError("PASSWORD_RESET_ERROR", err)
	}
	if err := s.repo.ResetPassword(ctx, user.ID, passwordHash); err != nil {
		return "", shared.ServerError("PASSWORD_RESET_ERROR", err)
	}

	s.logActivity(activity.Entry{
		UserID:    user.ID,
		Type:      activity.TypePasswordReset,
		Action:    "completed",
		Title:     "Password reset",
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	})

	// Confirmation email failure never rolls the reset back.
	if err := s.mailer.SendPasswordResetConfirmation(ctx, user.Email, user.Name); err != nil {
		s.logger.Warn("send password reset confirmation", slog.Any("error", err))
	}

	return strength.Strength, nil
}

func (s *Service) newSession(user *User, client shared.ClientInfo) SessionInfo {
	return SessionInfo{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		SessionID: uuid.NewString(),
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		LoginTime: time.Now().UTC(),
	}
}

// logActivity appends an activity entry without blocking or failing the
// calling flow. All auth flows use this one policy.
func (s *Service) logActivity(entry activity.Entry) {
	if s.activities == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.activities.Record(ctx, entry); err != nil {
			s.logger.Warn("record activity", slog.String("type", string(entry.Type)), slog.Any("error", err))
		}
	}()
}

func subjectFor(user *User) token.Subject {
	return token.Subject{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Role:     user.Role,
		IsActive: user.IsActive,
	}
}
