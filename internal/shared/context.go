package shared

import "context"

type userContextKey struct{}

// AuthUser is the authenticated identity the bearer middleware attaches to the
// request context for downstream handlers.
type AuthUser struct {
	ID    int64
	Email string
	Name  string
	Role  string
}

// ContextWithUser stores the authenticated user in context.
func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the authenticated user from context.
func UserFromContext(ctx context.Context) *AuthUser {
	user, _ := ctx.Value(userContextKey{}).(*AuthUser)
	return user
}
