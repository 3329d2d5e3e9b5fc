// Package requestctx carries request-scoped identity through context.
package requestctx

import "context"

// userIDContextKey is the context key for the authenticated user.
type userIDContextKey struct{}

// WithUserID stores the authenticated user id in context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// UserIDFromContext returns the authenticated user id and whether one is set.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	value, ok := ctx.Value(userIDContextKey{}).(int64)
	return value, ok
}
