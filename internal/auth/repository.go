package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/invoiceflow/invoiceflow/internal/platform/db"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	// RecordLogin updates the login activity fields in a single statement so
	// concurrent logins cannot lose a login_count increment.
	RecordLogin(ctx context.Context, id int64) (*User, error)
	TouchActivity(ctx context.Context, id int64) error
	SetResetToken(ctx context.Context, id int64, tokenHash string, expiresAt time.Time) error
	// ResetPassword stores the new hash and clears the reset token fields in
	// one statement, making the token single-use.
	ResetPassword(ctx context.Context, id int64, passwordHash string) error
}

const userColumns = `id, name, email, password_hash, phone, role, is_active, email_verified,
	last_login, login_count, last_activity,
	password_reset_token, password_reset_expires,
	email_verification_token, email_verification_expires,
	settings, created_at, updated_at`

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Phone, &user.Role,
		&user.IsActive, &user.EmailVerified,
		&user.LastLogin, &user.LoginCount, &user.LastActivity,
		&user.PasswordResetToken, &user.PasswordResetExpires,
		&user.EmailVerificationToken, &user.EmailVerificationExpires,
		&user.Settings, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user record. A duplicate email maps to EMAIL_EXISTS.
func (r *PGRepository) Create(ctx context.Context, user *User) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, phone, role, is_active, last_login, login_count,
			email_verification_token, email_verification_expires)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+userColumns,
		user.Name, user.Email, user.PasswordHash, user.Phone, user.Role, user.IsActive,
		user.LastLogin, user.LoginCount,
		user.EmailVerificationToken, user.EmailVerificationExpires,
	)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrEmailExists
		}
		return nil, err
	}
	return created, nil
}

// FindByEmail fetches a user by lowercased email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	return scanUser(row)
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// RecordLogin bumps last_login, login_count and last_activity atomically and
// returns the updated record.
func (r *PGRepository) RecordLogin(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET last_login = NOW(), login_count = login_count + 1, last_activity = NOW(), updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, id)
	return scanUser(row)
}

// TouchActivity updates last_activity only.
func (r *PGRepository) TouchActivity(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_activity = NOW() WHERE id = $1`, id)
	return err
}

// SetResetToken stores the hashed reset token and its expiry.
func (r *PGRepository) SetResetToken(ctx context.Context, id int64, tokenHash string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password_reset_token = $2, password_reset_expires = $3, updated_at = NOW()
		WHERE id = $1`, id, tokenHash, expiresAt.UTC())
	return err
}

// ResetPassword stores the new password hash and clears the reset token
// fields. The row is locked first so two racing requests cannot both consume
// the same token.
func (r *PGRepository) ResetPassword(ctx context.Context, id int64, passwordHash string) error {
	return db.WithTx(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, func(tx pgx.Tx) error {
		var tokenHash *string
		err := tx.QueryRow(ctx, `SELECT password_reset_token FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&tokenHash)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		if tokenHash == nil {
			return shared.ErrNoResetRequest
		}
		_, err = tx.Exec(ctx, `
			UPDATE users
			SET password_hash = $2, password_reset_token = NULL, password_reset_expires = NULL, updated_at = NOW()
			WHERE id = $1`, id, passwordHash)
		return err
	})
}

var _ Repository = (*PGRepository)(nil)
