package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/wanterio/wanterio-backend/pkg/enums"
)

// Actor is the signed-in caller as seen by RequireSession.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

type actorKey struct{}

func withActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext reports false outside RequireSession-guarded routes.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
