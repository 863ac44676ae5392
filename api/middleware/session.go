package middleware

import (
	"net/http"

	"github.com/wanterio/wanterio-backend/api/responses"
	"github.com/wanterio/wanterio-backend/internal/session"
	"github.com/wanterio/wanterio-backend/pkg/enums"
	pkgerrors "github.com/wanterio/wanterio-backend/pkg/errors"
	"github.com/wanterio/wanterio-backend/pkg/logger"
)

// SessionReader exposes the published session state.
type SessionReader interface {
	Current() session.Snapshot
}

// RequireSession rejects requests until the session is authenticated and
// seeds the context with the user id and primary role.
func RequireSession(sessions SessionReader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if sessions == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
				return
			}

			snap := sessions.Current()
			switch {
			case snap.State == enums.SessionStateResolving:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "session is still resolving"))
				return
			case !snap.Authenticated():
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required"))
				return
			}

			actor := Actor{UserID: snap.User.ID, Role: session.PrimaryRole(snap.Roles)}
			ctx = withActor(ctx, actor)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    actor.UserID.String(),
					"actor_role": string(actor.Role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles admits requests whose session holds any of allowed. It must
// run after RequireSession.
func RequireRoles(sessions SessionReader, logg *logger.Logger, allowed ...enums.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if sessions == nil || len(allowed) == 0 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "role gate misconfigured"))
				return
			}
			snap := sessions.Current()
			if !snap.Authenticated() {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required"))
				return
			}
			for _, held := range snap.Roles {
				for _, role := range allowed {
					if held == role {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role"))
		})
	}
}
