package usage

import "context"

type attemptIDKey struct{}

// WithAttemptID returns a context carrying the refresh attempt ID, so the
// API client can tag its request with it.
func WithAttemptID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, attemptIDKey{}, id)
}

// AttemptID returns the attempt ID stored in ctx, or "".
func AttemptID(ctx context.Context) string {
	id, _ := ctx.Value(attemptIDKey{}).(string)
	return id
}
