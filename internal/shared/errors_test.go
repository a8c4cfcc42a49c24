package shared_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoiceflow/invoiceflow/internal/shared"
	_ "github.com/invoiceflow/invoiceflow/testing"
)

func TestAsErrorUnwrapsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("login: %w", shared.ErrInvalidCredentials)

	domainErr, ok := shared.AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, domainErr.Status)
	assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)

	_, ok = shared.AsError(errors.New("plain"))
	assert.False(t, ok)
}

func TestWithDetailsDoesNotMutateSentinel(t *testing.T) {
	detailed := shared.ErrRecentResetRequest.WithDetails(map[string]any{"canRequestAt": "later"})

	assert.NotNil(t, detailed.Details)
	assert.Nil(t, shared.ErrRecentResetRequest.Details)
	assert.Equal(t, shared.ErrRecentResetRequest.Code, detailed.Code)
}

func TestServerErrorKeepsCauseOutOfMessage(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := shared.ServerError("LOGIN_ERROR", cause)

	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, "LOGIN_ERROR", err.Code)
	assert.NotContains(t, err.Message, "connection refused")
	assert.ErrorIs(t, err, cause)
}

func TestValidationErrorCarriesDetails(t *testing.T) {
	err := shared.ValidationError([]string{"Name is required"})

	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "VALIDATION_ERROR", err.Code)
	assert.Equal(t, []string{"Name is required"}, err.Details)
}
