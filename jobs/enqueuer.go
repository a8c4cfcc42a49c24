package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// MailEnqueuer implements the auth mailer contract by pushing delivery onto
// the background queue instead of blocking the request on SMTP.
type MailEnqueuer struct {
	client *asynq.Client
}

// NewMailEnqueuer constructs a MailEnqueuer.
func NewMailEnqueuer(client *asynq.Client) *MailEnqueuer {
	return &MailEnqueuer{client: client}
}

func (e *MailEnqueuer) enqueue(ctx context.Context, payload SendEmailPayload) error {
	task, err := NewSendEmailTask(payload)
	if err != nil {
		return fmt.Errorf("jobs: build email task: %w", err)
	}
	if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("jobs: enqueue email task: %w", err)
	}
	return nil
}

// SendPasswordReset queues the reset email.
func (e *MailEnqueuer) SendPasswordReset(ctx context.Context, to, name, resetToken string) error {
	return e.enqueue(ctx, SendEmailPayload{Kind: EmailPasswordReset, To: to, Name: name, Token: resetToken})
}

// SendPasswordResetConfirmation queues the confirmation email.
func (e *MailEnqueuer) SendPasswordResetConfirmation(ctx context.Context, to, name string) error {
	return e.enqueue(ctx, SendEmailPayload{Kind: EmailPasswordResetConfirmation, To: to, Name: name})
}
