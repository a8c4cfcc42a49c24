package users

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/invoiceflow/invoiceflow/internal/activity"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

// ActivityRecorder appends settings events to the activity log.
type ActivityRecorder interface {
	Record(ctx context.Context, entry activity.Entry) error
}

// Service handles user profile business logic.
type Service struct {
	repo       RepositoryPort
	activities ActivityRecorder
	logger     *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, activities ActivityRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, activities: activities, logger: logger}
}

// Get returns the profile for a user.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetSettings returns the settings document for a user.
func (s *Service) GetSettings(ctx context.Context, id int64) (json.RawMessage, error) {
	return s.repo.GetSettings(ctx, id)
}

// UpdateSettings merges a settings patch and records the change. Activity
// recording is best-effort, same policy as the auth flows.
func (s *Service) UpdateSettings(ctx context.Context, user *shared.AuthUser, patch json.RawMessage, client shared.ClientInfo) (json.RawMessage, error) {
	// Non-object operands make jsonb || replace the settings document
	// instead of merging, so only accept objects.
	var fields map[string]json.RawMessage
	if len(patch) == 0 || json.Unmarshal(patch, &fields) != nil || fields == nil {
		return nil, shared.ValidationError([]string{"Settings must be a valid JSON object"})
	}
	merged, err := s.repo.MergeSettings(ctx, user.ID, patch)
	if err != nil {
		return nil, err
	}
	if s.activities != nil {
		if err := s.activities.Record(ctx, activity.Entry{
			UserID:    user.ID,
			Type:      activity.TypeSettingsUpdated,
			Title:     "Settings updated",
			IPAddress: client.IPAddress,
			UserAgent: client.UserAgent,
		}); err != nil {
			s.logger.Warn("record settings activity", slog.Any("error", err))
		}
	}
	return merged, nil
}
