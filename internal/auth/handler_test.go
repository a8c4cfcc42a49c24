package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoiceflow/invoiceflow/internal/auth"
	"github.com/invoiceflow/invoiceflow/internal/token"
	_ "github.com/invoiceflow/invoiceflow/testing"
)

func newTestRouter(t *testing.T) (http.Handler, *stubRepo, *stubMailer) {
	t.Helper()
	tokens, err := token.NewService("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	require.NoError(t, err)
	repo := newStubRepo()
	mail := &stubMailer{}
	service := auth.NewService(repo, tokens, &stubRecorder{}, mail, nil)
	handler := auth.NewHandler(nil, service)
	authn := auth.NewMiddleware(nil, tokens, repo)

	r := chi.NewRouter()
	r.Route("/api/auth", func(ar chi.Router) {
		handler.MountRoutes(ar, authn)
	})
	return r, repo, mail
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func decodeEnvelope(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &envelope))
	return envelope
}

func errorCode(t *testing.T, res *httptest.ResponseRecorder) string {
	t.Helper()
	envelope := decodeEnvelope(t, res)
	require.Equal(t, false, envelope["success"])
	errBody, ok := envelope["error"].(map[string]any)
	require.True(t, ok)
	code, _ := errBody["code"].(string)
	return code
}

func TestRegisterEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	res := doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]any{
		"name":            "Ada Lovelace",
		"email":           "ada@example.com",
		"password":        "Sup3rSecret",
		"confirmPassword": "Sup3rSecret",
		"acceptTerms":     true,
	}, "")

	require.Equal(t, http.StatusCreated, res.Code)
	envelope := decodeEnvelope(t, res)
	assert.Equal(t, true, envelope["success"])

	data := envelope["data"].(map[string]any)
	user := data["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	tokens := data["tokens"].(map[string]any)
	assert.NotEmpty(t, tokens["accessToken"])
	assert.NotEmpty(t, tokens["refreshToken"])
	assert.NotEmpty(t, data["passwordStrength"])

	// Credential material must never appear in a response body.
	assert.NotContains(t, strings.ToLower(res.Body.String()), "passwordhash")
	assert.NotContains(t, res.Body.String(), "Sup3rSecret")
}

func TestRegisterInvalidEmail(t *testing.T) {
	router, _, _ := newTestRouter(t)

	res := doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]any{
		"name":            "Ada",
		"email":           "not-an-email",
		"password":        "Sup3rSecret",
		"confirmPassword": "Sup3rSecret",
		"acceptTerms":     true,
	}, "")

	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "INVALID_EMAIL", errorCode(t, res))
}

func TestLoginLogoutFlow(t *testing.T) {
	router, _, _ := newTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]any{
		"name":            "Ada Lovelace",
		"email":           "ada@example.com",
		"password":        "Sup3rSecret",
		"confirmPassword": "Sup3rSecret",
		"acceptTerms":     true,
	}, "")

	res := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "ada@example.com",
		"password": "Sup3rSecret",
	}, "")
	require.Equal(t, http.StatusOK, res.Code)

	data := decodeEnvelope(t, res)["data"].(map[string]any)
	session := data["session"].(map[string]any)
	assert.NotEmpty(t, session["sessionId"])
	access := data["tokens"].(map[string]any)["accessToken"].(string)

	logoutRes := doJSON(t, router, http.MethodPost, "/api/auth/logout", nil, access)
	require.Equal(t, http.StatusOK, logoutRes.Code)
	logoutData := decodeEnvelope(t, logoutRes)["data"].(map[string]any)
	assert.Equal(t, true, logoutData["loggedOut"])
}

func TestLoginWrongPassword(t *testing.T) {
	router, _, _ := newTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]any{
		"name":            "Ada Lovelace",
		"email":           "ada@example.com",
		"password":        "Sup3rSecret",
		"confirmPassword": "Sup3rSecret",
		"acceptTerms":     true,
	}, "")

	res := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "ada@example.com",
		"password": "WrongPassw0rd",
	}, "")

	require.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, res))
}

func TestLogoutWithoutToken(t *testing.T) {
	router, _, _ := newTestRouter(t)

	res := doJSON(t, router, http.MethodPost, "/api/auth/logout", nil, "")

	require.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "MISSING_TOKEN", errorCode(t, res))
}

func TestRefreshEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)
	registerRes := doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]any{
		"name":            "Ada Lovelace",
		"email":           "ada@example.com",
		"password":        "Sup3rSecret",
		"confirmPassword": "Sup3rSecret",
		"acceptTerms":     true,
	}, "")
	refresh := decodeEnvelope(t, registerRes)["data"].(map[string]any)["tokens"].(map[string]any)["refreshToken"].(string)

	res := doJSON(t, router, http.MethodPost, "/api/auth/refresh", map[string]any{
		"refreshToken": refresh,
	}, "")

	require.Equal(t, http.StatusOK, res.Code)
	data := decodeEnvelope(t, res)["data"].(map[string]any)
	assert.NotEmpty(t, data["tokens"].(map[string]any)["accessToken"])

	garbageRes := doJSON(t, router, http.MethodPost, "/api/auth/refresh", map[string]any{
		"refreshToken": "garbage",
	}, "")
	require.Equal(t, http.StatusUnauthorized, garbageRes.Code)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", errorCode(t, garbageRes))
}

func TestForgotPasswordAlwaysSucceeds(t *testing.T) {
	router, _, mail := newTestRouter(t)

	res := doJSON(t, router, http.MethodPost, "/api/auth/forgot-password", map[string]any{
		"email": "nobody@example.com",
	}, "")

	require.Equal(t, http.StatusOK, res.Code)
	envelope := decodeEnvelope(t, res)
	assert.Equal(t, true, envelope["success"])
	data := envelope["data"].(map[string]any)
	assert.Equal(t, true, data["emailSent"])
	assert.Empty(t, mail.resetTokens)
}

func TestResetPasswordEndpointFlow(t *testing.T) {
	router, _, mail := newTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]any{
		"name":            "Ada Lovelace",
		"email":           "ada@example.com",
		"password":        "Sup3rSecret",
		"confirmPassword": "Sup3rSecret",
		"acceptTerms":     true,
	}, "")
	doJSON(t, router, http.MethodPost, "/api/auth/forgot-password", map[string]any{
		"email": "ada@example.com",
	}, "")
	rawToken := mail.lastResetToken()
	require.NotEmpty(t, rawToken)

	res := doJSON(t, router, http.MethodPost, "/api/auth/reset-password", map[string]any{
		"token":    rawToken,
		"email":    "ada@example.com",
		"password": "N3wSecret",
	}, "")
	require.Equal(t, http.StatusOK, res.Code)
	data := decodeEnvelope(t, res)["data"].(map[string]any)
	assert.Equal(t, true, data["passwordReset"])

	loginRes := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "ada@example.com",
		"password": "N3wSecret",
	}, "")
	assert.Equal(t, http.StatusOK, loginRes.Code)
}
