// Package platform implements the backend contract over the application's own
// datastore: GORM on Postgres or SQLite, Argon2id credentials and HS256 access
// tokens persisted in the profile's local storage.
package platform

import (
	"fmt"
	"time"

	authsession "github.com/wanterio/wanterio-backend/pkg/auth/session"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/config"
	"github.com/wanterio/wanterio-backend/pkg/db"
	"github.com/wanterio/wanterio-backend/pkg/logger"
	"github.com/wanterio/wanterio-backend/pkg/observer"
	"github.com/wanterio/wanterio-backend/pkg/security"
	"github.com/wanterio/wanterio-backend/pkg/storage"
)

// AuthTokenKey is the local storage key of the persisted access token.
const AuthTokenKey = "wanterio_auth_token"

// Backend is the datastore-backed Identity and Records implementation.
type Backend struct {
	db       *db.Client
	hasher   *security.Hasher
	sessions *authsession.Manager
	local    storage.Store
	jwtCfg   config.JWTConfig
	logg     *logger.Logger
	changes  *observer.Hub[backend.SessionChange]
	now      func() time.Time
}

var (
	_ backend.Identity = (*Backend)(nil)
	_ backend.Records  = (*Backend)(nil)
)

// Params bundles the dependencies required to build a Backend.
type Params struct {
	DB       *db.Client
	Hasher   *security.Hasher
	Sessions *authsession.Manager
	Local    storage.Store
	JWT      config.JWTConfig
	Logger   *logger.Logger
	Clock    func() time.Time
}

// New constructs the platform backend.
func New(params Params) (*Backend, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Local == nil {
		return nil, fmt.Errorf("local storage is required")
	}
	if params.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &Backend{
		db:       params.DB,
		hasher:   params.Hasher,
		sessions: params.Sessions,
		local:    params.Local,
		jwtCfg:   params.JWT,
		logg:     logg,
		changes:  observer.NewHub[backend.SessionChange](),
		now:      now,
	}, nil
}
