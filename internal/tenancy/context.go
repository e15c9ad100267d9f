package tenancy

import "context"

type ctxKey string

const actorKey ctxKey = "aba.actor"

// Actor is the authenticated caller of a dashboard or admin request.
// ProfileID doubles as the tenant boundary: every owned record hangs off it.
type Actor struct {
	ProfileID string
	Email     string
	IsAdmin   bool
}

// WithActor stores the actor in context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext extracts the actor if present.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok && actor.ProfileID != ""
}

// ProfileIDFromContext is a shorthand for handlers that only need the tenant id.
func ProfileIDFromContext(ctx context.Context) (string, bool) {
	actor, ok := ActorFromContext(ctx)
	return actor.ProfileID, ok
}
