package auth

import "context"

type contextKey struct{}

var userIDKey contextKey

// SetUserID returns a child context carrying the authenticated user id.
func SetUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID returns the authenticated user id set by the auth middleware.
func GetUserID(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(userIDKey).(int)
	return userID, ok
}
