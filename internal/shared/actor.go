package shared

import "context"

// Actor identifies the authenticated user performing a core operation. Identity and
// role are supplied by the upstream auth collaborator; every core call takes the actor
// explicitly, there is no implicit system identity.
type Actor struct {
	UserID   int64
	Role     Role
	BranchID int64
}

type actorContextKey struct{}

// ContextWithActor stores the acting user in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the acting user from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
