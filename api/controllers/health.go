package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/wanterio/wanterio-backend/api/responses"
	"github.com/wanterio/wanterio-backend/pkg/config"
	pkgerrors "github.com/wanterio/wanterio-backend/pkg/errors"
	"github.com/wanterio/wanterio-backend/pkg/logger"
	"go.uber.org/multierr"
)

const readyTimeout = 3 * time.Second

// Pinger is a dependency probed by the readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Wanterio-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every configured dependency. A missing backend is
// reported as demo mode rather than a failure.
func HealthReady(cfg *config.Config, logg *logger.Logger, demo bool, checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Wanterio-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		names := make([]string, 0, len(checks))
		for name, pinger := range checks {
			if pinger != nil {
				names = append(names, name)
			}
		}
		sort.Strings(names)

		var combined error
		status := map[string]string{}
		for _, name := range names {
			if err := checks[name].Ping(ctx); err != nil {
				status[name] = "down"
				combined = multierr.Append(combined, err)
				continue
			}
			status[name] = "up"
		}

		if combined != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, combined, "dependencies unavailable").WithDetails(map[string]any{"checks": status}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "demo": demo, "checks": status})
	}
}
