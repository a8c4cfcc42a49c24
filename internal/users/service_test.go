package users_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoiceflow/invoiceflow/internal/activity"
	"github.com/invoiceflow/invoiceflow/internal/shared"
	"github.com/invoiceflow/invoiceflow/internal/users"
	_ "github.com/invoiceflow/invoiceflow/testing"
)

type stubRepo struct {
	user     *users.User
	settings map[string]any
}

func (s *stubRepo) GetByID(ctx context.Context, id int64) (*users.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) GetSettings(ctx context.Context, id int64) (json.RawMessage, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return json.Marshal(s.settings)
}

func (s *stubRepo) MergeSettings(ctx context.Context, id int64, patch json.RawMessage) (json.RawMessage, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	var incoming map[string]any
	if err := json.Unmarshal(patch, &incoming); err != nil {
		return nil, err
	}
	if s.settings == nil {
		s.settings = map[string]any{}
	}
	for k, v := range incoming {
		s.settings[k] = v
	}
	return json.Marshal(s.settings)
}

type recorderSpy struct {
	entries []activity.Entry
}

func (r *recorderSpy) Record(ctx context.Context, entry activity.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func TestGetReturnsProfile(t *testing.T) {
	repo := &stubRepo{user: &users.User{ID: 1, Name: "Ada", Email: "ada@example.com"}}
	service := users.NewService(repo, &recorderSpy{}, nil)

	user, err := service.Get(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)

	_, err = service.Get(t.Context(), 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateSettingsMergesAndRecords(t *testing.T) {
	repo := &stubRepo{user: &users.User{ID: 1}, settings: map[string]any{"theme": "light", "locale": "en"}}
	spy := &recorderSpy{}
	service := users.NewService(repo, spy, nil)

	merged, err := service.UpdateSettings(t.Context(), &shared.AuthUser{ID: 1}, json.RawMessage(`{"theme":"dark"}`), shared.ClientInfo{IPAddress: "10.0.0.1"})
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal(merged, &result))
	assert.Equal(t, "dark", result["theme"])
	assert.Equal(t, "en", result["locale"])

	require.Len(t, spy.entries, 1)
	assert.Equal(t, activity.TypeSettingsUpdated, spy.entries[0].Type)
	assert.Equal(t, "10.0.0.1", spy.entries[0].IPAddress)
}

func TestUpdateSettingsRejectsInvalidJSON(t *testing.T) {
	service := users.NewService(&stubRepo{user: &users.User{ID: 1}}, &recorderSpy{}, nil)

	_, err := service.UpdateSettings(t.Context(), &shared.AuthUser{ID: 1}, json.RawMessage(`{broken`), shared.ClientInfo{})

	appErr, ok := shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)

	_, err = service.UpdateSettings(t.Context(), &shared.AuthUser{ID: 1}, nil, shared.ClientInfo{})
	require.Error(t, err)
}

func TestUpdateSettingsRejectsNonObjectPatch(t *testing.T) {
	service := users.NewService(&stubRepo{user: &users.User{ID: 1}}, &recorderSpy{}, nil)

	for _, patch := range []string{`"oops"`, `[1,2,3]`, `42`, `null`, `true`} {
		_, err := service.UpdateSettings(t.Context(), &shared.AuthUser{ID: 1}, json.RawMessage(patch), shared.ClientInfo{})

		appErr, ok := shared.AsError(err)
		require.True(t, ok, patch)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code, patch)
	}
}
