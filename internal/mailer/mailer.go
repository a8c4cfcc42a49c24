// Package mailer sends transactional auth emails over SMTP. Messages are
// plain text: reset links carry the raw one-time token, which exists nowhere
// else once sent.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"net/url"
	"strings"
)

// Mailer sends email through a single SMTP relay.
type Mailer struct {
	addr   string
	from   string
	appURL string
	send   func(addr, from string, to []string, msg []byte) error
}

// New constructs a Mailer targeting host:port. appURL is the public base URL
// used to build reset links.
func New(host string, port int, from, appURL string) *Mailer {
	return &Mailer{
		addr:   fmt.Sprintf("%s:%d", host, port),
		from:   from,
		appURL: strings.TrimRight(appURL, "/"),
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// WithSendFunc overrides the SMTP delivery function, used by tests.
func (m *Mailer) WithSendFunc(send func(addr, from string, to []string, msg []byte) error) *Mailer {
	m.send = send
	return m
}

func (m *Mailer) deliver(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)
	if err := m.send(m.addr, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	return nil
}

// ResetLink builds the link emailed during the forgot-password flow.
func (m *Mailer) ResetLink(email, resetToken string) string {
	return fmt.Sprintf("%s/auth/reset-password?token=%s&email=%s", m.appURL, resetToken, url.QueryEscape(email))
}

// SendPasswordReset emails the raw reset token to the account address.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, name, resetToken string) error {
	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + name
	}
	body := fmt.Sprintf(`%s,

We received a request to reset the password for your InvoiceFlow account.

Reset your password using the link below. The link expires in 1 hour and can
only be used once:

%s

If you did not request a password reset, you can safely ignore this email.

The InvoiceFlow Team
`, greeting, m.ResetLink(to, resetToken))
	return m.deliver(ctx, to, "Reset your InvoiceFlow password", body)
}

// SendPasswordResetConfirmation notifies the account that its password
// changed.
func (m *Mailer) SendPasswordResetConfirmation(ctx context.Context, to, name string) error {
	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + name
	}
	body := fmt.Sprintf(`%s,

The password for your InvoiceFlow account was just changed.

If this was not you, reset your password immediately and contact support.

The InvoiceFlow Team
`, greeting)
	return m.deliver(ctx, to, "Your InvoiceFlow password was changed", body)
}
