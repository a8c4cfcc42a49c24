package users

import (
	"encoding/json"
	"time"
)

// User is the account projection served by the profile endpoints. It has no
// password or token hash fields.
type User struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Role          string          `json:"role"`
	IsActive      bool            `json:"isActive"`
	EmailVerified bool            `json:"emailVerified"`
	LastLogin     *time.Time      `json:"lastLogin,omitempty"`
	LoginCount    int64           `json:"loginCount"`
	Settings      json.RawMessage `json:"settings"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}
