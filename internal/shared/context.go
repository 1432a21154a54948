package shared

import "context"

type actorContextKey struct{}

// ContextWithActor stores the acting admin's identifier in context. The
// identifier arrives pre-authenticated from the upstream proxy.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the acting admin's identifier, if any.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorContextKey{}).(string)
	return actor
}
