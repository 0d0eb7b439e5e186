package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextActorKey ctxKey = "actorID"

// ActorIDFromContext returns the id of the authenticated user performing the
// request, or nil when the request is anonymous (CLI, seeding).
func ActorIDFromContext(ctx context.Context) *int64 {
	if ctx == nil {
		return nil
	}
	if id, ok := ctx.Value(ContextActorKey).(int64); ok && id > 0 {
		return &id
	}
	return nil
}

func ContextWithActorID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ContextActorKey, userID)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
