package client

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Session is the locally persisted authentication state. Tokens are written
// back to disk on every successful login, register and refresh, and wiped on
// logout. Rehydration trusts the cached tokens without a server round-trip;
// an expired access token surfaces on the next API call.
type Session struct {
	User         *User     `json:"user,omitempty"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	LoggedIn     bool      `json:"logged_in"`
	SavedAt      time.Time `json:"saved_at"`
}

// User mirrors the profile shape returned by the API.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAuthenticated reports whether the session holds a usable identity:
// an access token must be present and the logged-in flag set.
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != "" && s.LoggedIn
}

// SessionCache persists a Session to a JSON file and guards it for
// concurrent use.
type SessionCache struct {
	mu   sync.Mutex
	path string
	sess Session
}

// NewSessionCache binds the cache to the given file path and rehydrates
// any previously saved session. A missing file yields an empty session.
func NewSessionCache(path string) (*SessionCache, error) {
	c := &SessionCache{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &c.sess); err != nil {
		// A corrupt cache file is treated as no session.
		c.sess = Session{}
	}
	return c, nil
}

// Current returns a copy of the cached session.
func (c *SessionCache) Current() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// Store replaces the cached session and mirrors it to disk.
func (c *SessionCache) Store(sess Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess.SavedAt = time.Now().UTC()
	c.sess = sess
	return c.flush()
}

// UpdateTokens swaps the token pair after a refresh, keeping the cached user.
func (c *SessionCache) UpdateTokens(access, refresh, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess.AccessToken = access
	c.sess.RefreshToken = refresh
	if sessionID != "" {
		c.sess.SessionID = sessionID
	}
	c.sess.SavedAt = time.Now().UTC()
	return c.flush()
}

// Clear wipes the session in memory and removes the cache file.
func (c *SessionCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess = Session{}
	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (c *SessionCache) flush() error {
	data, err := json.MarshalIndent(c.sess, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o600)
}
