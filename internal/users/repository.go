package users

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/invoiceflow/invoiceflow/internal/shared"
)

// RepositoryPort defines data access methods for user profiles.
type RepositoryPort interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetSettings(ctx context.Context, id int64) (json.RawMessage, error)
	// MergeSettings shallow-merges the patch into the stored settings object
	// and returns the merged document.
	MergeSettings(ctx context.Context, id int64, patch json.RawMessage) (json.RawMessage, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a user profile.
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, role, is_active, email_verified,
			last_login, login_count, settings, created_at, updated_at
		FROM users WHERE id = $1`, id)
	var user User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &user.Role,
		&user.IsActive, &user.EmailVerified, &user.LastLogin, &user.LoginCount,
		&user.Settings, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetSettings returns the settings document.
func (r *Repository) GetSettings(ctx context.Context, id int64) (json.RawMessage, error) {
	var settings json.RawMessage
	err := r.pool.QueryRow(ctx, `SELECT settings FROM users WHERE id = $1`, id).Scan(&settings)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return settings, nil
}

// MergeSettings merges the patch into the stored settings with jsonb
// concatenation.
func (r *Repository) MergeSettings(ctx context.Context, id int64, patch json.RawMessage) (json.RawMessage, error) {
	var merged json.RawMessage
	err := r.pool.QueryRow(ctx, `
		UPDATE users SET settings = settings || $2::jsonb, updated_at = NOW()
		WHERE id = $1
		RETURNING settings`, id, patch).Scan(&merged)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return merged, nil
}

var _ RepositoryPort = (*Repository)(nil)
