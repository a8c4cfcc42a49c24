package auth

import (
	"encoding/json"
	"time"
)

// User represents a stored account record. PasswordHash and the one-time token
// hashes never leave the repository/service layer.
type User struct {
	ID                       int64
	Name                     string
	Email                    string
	PasswordHash             string
	Phone                    string
	Role                     string
	IsActive                 bool
	EmailVerified            bool
	LastLogin                *time.Time
	LoginCount               int64
	LastActivity             *time.Time
	PasswordResetToken       *string
	PasswordResetExpires     *time.Time
	EmailVerificationToken   *string
	EmailVerificationExpires *time.Time
	Settings                 json.RawMessage
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// Profile is the client-facing projection of a user. It deliberately has no
// password or token hash fields, so serializing it can never leak them.
type Profile struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Role          string          `json:"role"`
	IsActive      bool            `json:"isActive"`
	EmailVerified bool            `json:"emailVerified"`
	LastLogin     *time.Time      `json:"lastLogin,omitempty"`
	LoginCount    int64           `json:"loginCount"`
	Settings      json.RawMessage `json:"settings,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Profile projects the user for API responses.
func (u *User) Profile() Profile {
	return Profile{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		Role:          u.Role,
		IsActive:      u.IsActive,
		EmailVerified: u.EmailVerified,
		LastLogin:     u.LastLogin,
		LoginCount:    u.LoginCount,
		Settings:      u.Settings,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// SessionInfo is ephemeral metadata describing a login or refresh event. It is
// returned to the client and recorded with activity, never persisted.
type SessionInfo struct {
	UserID    int64     `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	SessionID string    `json:"sessionId"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	LoginTime time.Time `json:"loginTime"`
}
