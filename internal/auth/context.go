package auth

import "context"

type contextKey string

const userIDKey contextKey = "stridecoach-user-id"

// WithUserID stores the authenticated user id on the context.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFrom retrieves the user id stored by WithUserID.
func UserIDFrom(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(userIDKey).(int)
	return userID, ok
}

// MustUserID is for handlers behind the auth middleware, where a missing
// user id means a broken middleware chain, not a client error.
func MustUserID(ctx context.Context) int {
	userID, ok := UserIDFrom(ctx)
	if !ok {
		panic("auth: no user id on request context")
	}
	return userID
}
