package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoiceflow/invoiceflow/internal/activity"
	"github.com/invoiceflow/invoiceflow/internal/auth"
	"github.com/invoiceflow/invoiceflow/internal/shared"
	"github.com/invoiceflow/invoiceflow/internal/token"
	_ "github.com/invoiceflow/invoiceflow/testing"
)

type stubRepo struct {
	mu     sync.Mutex
	users  map[string]*auth.User
	nextID int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: map[string]*auth.User{}, nextID: 1}
}

func (s *stubRepo) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return nil, shared.ErrEmailExists
	}
	clone := *user
	clone.ID = s.nextID
	s.nextID++
	clone.CreatedAt = time.Now()
	clone.UpdatedAt = clone.CreatedAt
	s.users[clone.Email] = &clone
	result := clone
	return &result, nil
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.ID == id {
			clone := *user
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) RecordLogin(ctx context.Context, id int64) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.ID == id {
			now := time.Now()
			user.LastLogin = &now
			user.LoginCount++
			user.LastActivity = &now
			clone := *user
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) TouchActivity(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.ID == id {
			now := time.Now()
			user.LastActivity = &now
			return nil
		}
	}
	return shared.ErrNotFound
}

func (s *stubRepo) SetResetToken(ctx context.Context, id int64, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.ID == id {
			user.PasswordResetToken = &tokenHash
			user.PasswordResetExpires = &expiresAt
			return nil
		}
	}
	return shared.ErrNotFound
}

func (s *stubRepo) ResetPassword(ctx context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.ID == id {
			user.PasswordHash = passwordHash
			user.PasswordResetToken = nil
			user.PasswordResetExpires = nil
			return nil
		}
	}
	return shared.ErrNotFound
}

type stubMailer struct {
	mu            sync.Mutex
	resetTokens   []string
	confirmations int
}

func (m *stubMailer) SendPasswordReset(ctx context.Context, to, name, resetToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetTokens = append(m.resetTokens, resetToken)
	return nil
}

func (m *stubMailer) SendPasswordResetConfirmation(ctx context.Context, to, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations++
	return nil
}

func (m *stubMailer) lastResetToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.resetTokens) == 0 {
		return ""
	}
	return m.resetTokens[len(m.resetTokens)-1]
}

type stubRecorder struct {
	mu      sync.Mutex
	entries []activity.Entry
}

func (r *stubRecorder) Record(ctx context.Context, entry activity.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func newTestService(t *testing.T) (*auth.Service, *stubRepo, *stubMailer) {
	t.Helper()
	tokens, err := token.NewService("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	require.NoError(t, err)
	repo := newStubRepo()
	mail := &stubMailer{}
	service := auth.NewService(repo, tokens, &stubRecorder{}, mail, nil)
	return service, repo, mail
}

func registerUser(t *testing.T, service *auth.Service) *auth.RegisterResult {
	t.Helper()
	result, err := service.Register(context.Background(), auth.RegisterRequest{
		Name:            "Ada Lovelace",
		Email:           "Ada@Example.com",
		Password:        "Sup3rSecret",
		ConfirmPassword: "Sup3rSecret",
		AcceptTerms:     true,
	}, shared.ClientInfo{IPAddress: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	return result
}

func TestRegisterIssuesTokensAndStripsPassword(t *testing.T) {
	service, _, _ := newTestService(t)

	result := registerUser(t, service)

	assert.Equal(t, "ada@example.com", result.User.Email)
	assert.Equal(t, "user", result.User.Role)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)
	assert.NotEmpty(t, result.PasswordStrength)
	assert.EqualValues(t, 1, result.User.LoginCount)
}

func TestRegisterRejectsWeakOrMismatchedPassword(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Register(context.Background(), auth.RegisterRequest{
		Name:            "Ada",
		Email:           "ada@example.com",
		Password:        "short",
		ConfirmPassword: "different",
		AcceptTerms:     false,
	}, shared.ClientInfo{})

	appErr, ok := shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Equal(t, 400, appErr.Status)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	service, _, _ := newTestService(t)
	registerUser(t, service)

	_, err := service.Register(context.Background(), auth.RegisterRequest{
		Name:            "Ada Again",
		Email:           "ada@example.com",
		Password:        "Sup3rSecret",
		ConfirmPassword: "Sup3rSecret",
		AcceptTerms:     true,
	}, shared.ClientInfo{})

	appErr, ok := shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, 409, appErr.Status)
	assert.Equal(t, "EMAIL_EXISTS", appErr.Code)
}

func TestLoginUnknownAndWrongPasswordAreIndistinguishable(t *testing.T) {
	service, _, _ := newTestService(t)
	registerUser(t, service)

	_, unknownErr := service.Login(context.Background(), auth.LoginRequest{
		Email:    "nobody@example.com",
		Password: "Sup3rSecret",
	}, shared.ClientInfo{})
	_, wrongErr := service.Login(context.Background(), auth.LoginRequest{
		Email:    "ada@example.com",
		Password: "WrongPassw0rd",
	}, shared.ClientInfo{})

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.Equal(t, unknownErr, wrongErr)
	assert.ErrorIs(t, wrongErr, shared.ErrInvalidCredentials)
}

func TestLoginInactiveAccount(t *testing.T) {
	service, repo, _ := newTestService(t)
	registerUser(t, service)
	repo.users["ada@example.com"].IsActive = false

	_, err := service.Login(context.Background(), auth.LoginRequest{
		Email:    "ada@example.com",
		Password: "Sup3rSecret",
	}, shared.ClientInfo{})

	assert.ErrorIs(t, err, shared.ErrAccountInactive)
}

func TestLoginIncrementsLoginCount(t *testing.T) {
	service, repo, _ := newTestService(t)
	registerUser(t, service)

	result, err := service.Login(context.Background(), auth.LoginRequest{
		Email:    "ada@example.com",
		Password: "Sup3rSecret",
	}, shared.ClientInfo{IPAddress: "10.0.0.9"})
	require.NoError(t, err)

	assert.EqualValues(t, 2, result.User.LoginCount)
	assert.EqualValues(t, 2, repo.users["ada@example.com"].LoginCount)
	assert.NotEmpty(t, result.Session.SessionID)
	assert.Equal(t, "10.0.0.9", result.Session.IPAddress)
}

func TestRefreshRotatesPair(t *testing.T) {
	service, _, _ := newTestService(t)
	registered := registerUser(t, service)

	result, err := service.Refresh(context.Background(), registered.Tokens.RefreshToken, shared.ClientInfo{})
	require.NoError(t, err)

	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)
	assert.Equal(t, registered.User.ID, result.Session.UserID)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	service, _, _ := newTestService(t)
	registered := registerUser(t, service)

	_, err := service.Refresh(context.Background(), registered.Tokens.AccessToken, shared.ClientInfo{})

	assert.ErrorIs(t, err, shared.ErrInvalidRefreshToken)
}

func TestRefreshInactiveAccount(t *testing.T) {
	service, repo, _ := newTestService(t)
	registered := registerUser(t, service)
	repo.users["ada@example.com"].IsActive = false

	_, err := service.Refresh(context.Background(), registered.Tokens.RefreshToken, shared.ClientInfo{})

	assert.ErrorIs(t, err, shared.ErrAccountInactive)
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	service, _, mail := newTestService(t)

	err := service.ForgotPassword(context.Background(), "nobody@example.com", shared.ClientInfo{})

	require.NoError(t, err)
	assert.Empty(t, mail.resetTokens)
}

func TestForgotPasswordThrottlesRepeatRequests(t *testing.T) {
	service, _, mail := newTestService(t)
	registerUser(t, service)

	require.NoError(t, service.ForgotPassword(context.Background(), "ada@example.com", shared.ClientInfo{}))
	require.Len(t, mail.resetTokens, 1)

	err := service.ForgotPassword(context.Background(), "ada@example.com", shared.ClientInfo{})

	appErr, ok := shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, 429, appErr.Status)
	assert.Equal(t, "RECENT_RESET_REQUEST", appErr.Code)
	assert.Len(t, mail.resetTokens, 1)
}

func TestResetPasswordRoundTrip(t *testing.T) {
	service, repo, mail := newTestService(t)
	registerUser(t, service)

	require.NoError(t, service.ForgotPassword(context.Background(), "ada@example.com", shared.ClientInfo{}))
	rawToken := mail.lastResetToken()
	require.NotEmpty(t, rawToken)

	strength, err := service.ResetPassword(context.Background(), auth.ResetPasswordRequest{
		Token:    rawToken,
		Email:    "ada@example.com",
		Password: "N3wSecret",
	}, shared.ClientInfo{})
	require.NoError(t, err)
	assert.NotEmpty(t, strength)

	// The token is single-use.
	assert.Nil(t, repo.users["ada@example.com"].PasswordResetToken)

	_, err = service.Login(context.Background(), auth.LoginRequest{
		Email:    "ada@example.com",
		Password: "N3wSecret",
	}, shared.ClientInfo{})
	assert.NoError(t, err)

	_, err = service.Login(context.Background(), auth.LoginRequest{
		Email:    "ada@example.com",
		Password: "Sup3rSecret",
	}, shared.ClientInfo{})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestResetPasswordWithoutRequest(t *testing.T) {
	service, _, _ := newTestService(t)
	registerUser(t, service)

	_, err := service.ResetPassword(context.Background(), auth.ResetPasswordRequest{
		Token:    "deadbeef",
		Email:    "ada@example.com",
		Password: "N3wSecret",
	}, shared.ClientInfo{})

	appErr, ok := shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "NO_RESET_REQUEST", appErr.Code)
}

func TestResetPasswordWrongToken(t *testing.T) {
	service, _, _ := newTestService(t)
	registerUser(t, service)
	require.NoError(t, service.ForgotPassword(context.Background(), "ada@example.com", shared.ClientInfo{}))

	_, err := service.ResetPassword(context.Background(), auth.ResetPasswordRequest{
		Token:    "deadbeefdeadbeef",
		Email:    "ada@example.com",
		Password: "N3wSecret",
	}, shared.ClientInfo{})

	appErr, ok := shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_TOKEN", appErr.Code)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	service, repo, mail := newTestService(t)
	registerUser(t, service)
	require.NoError(t, service.ForgotPassword(context.Background(), "ada@example.com", shared.ClientInfo{}))

	expired := time.Now().Add(-time.Minute)
	repo.users["ada@example.com"].PasswordResetExpires = &expired

	_, err := service.ResetPassword(context.Background(), auth.ResetPasswordRequest{
		Token:    mail.lastResetToken(),
		Email:    "ada@example.com",
		Password: "N3wSecret",
	}, shared.ClientInfo{})

	appErr, ok := shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "EXPIRED_TOKEN", appErr.Code)
}

func TestResetPasswordUnknownEmail(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.ResetPassword(context.Background(), auth.ResetPasswordRequest{
		Token:    "deadbeef",
		Email:    "nobody@example.com",
		Password: "N3wSecret",
	}, shared.ClientInfo{})

	appErr, ok := shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.Status)
	assert.Equal(t, "USER_NOT_FOUND", appErr.Code)
}
