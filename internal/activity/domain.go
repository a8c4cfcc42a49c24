// Package activity keeps the append-only audit trail of account-security
// events: registrations, logins, logouts, token refreshes and password
// resets. Entries are retained for one year.
package activity

import "time"

// Type classifies an activity entry.
type Type string

// Activity types recorded by the auth flows.
const (
	TypeRegistered      Type = "registered"
	TypeLoggedIn        Type = "logged-in"
	TypeLoggedOut       Type = "logged-out"
	TypeTokenRefreshed  Type = "token-refreshed"
	TypePasswordReset   Type = "password-reset"
	TypeSettingsUpdated Type = "settings-updated"
)

// RetentionPeriod is how long entries are kept before the purge job removes
// them.
const RetentionPeriod = 365 * 24 * time.Hour

// Entry is an immutable activity record.
type Entry struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"userId"`
	Type        Type      `json:"type"`
	Action      string    `json:"action,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IPAddress   string    `json:"ipAddress,omitempty"`
	UserAgent   string    `json:"userAgent,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
