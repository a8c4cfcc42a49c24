package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/invoiceflow/invoiceflow/internal/mailer"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeActivityPurge is the task type for the retention purge.
	TaskTypeActivityPurge = "activity:purge"
)

// Email kinds understood by the send handler.
const (
	EmailPasswordReset             = "password_reset"
	EmailPasswordResetConfirmation = "password_reset_confirmation"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	Kind  string `json:"kind"`
	To    string `json:"to"`
	Name  string `json:"name,omitempty"`
	Token string `json:"token,omitempty"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewActivityPurgeTask constructs the retention purge task.
func NewActivityPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskTypeActivityPurge, nil)
}

// NewSendEmailHandler processes TaskTypeSendEmail tasks through the SMTP
// mailer.
func NewSendEmailHandler(m *mailer.Mailer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		switch payload.Kind {
		case EmailPasswordReset:
			return m.SendPasswordReset(ctx, payload.To, payload.Name, payload.Token)
		case EmailPasswordResetConfirmation:
			return m.SendPasswordResetConfirmation(ctx, payload.To, payload.Name)
		default:
			logger.Warn("unknown email kind", slog.String("kind", payload.Kind))
			return asynq.SkipRetry
		}
	}
}

// ActivityPurger removes activity entries past retention.
type ActivityPurger interface {
	Purge(ctx context.Context) (int64, error)
}

// NewActivityPurgeHandler processes TaskTypeActivityPurge tasks.
func NewActivityPurgeHandler(purger ActivityPurger, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		removed, err := purger.Purge(ctx)
		if err != nil {
			return err
		}
		logger.Info("activity retention purge", slog.Int64("removed", removed))
		return nil
	}
}
