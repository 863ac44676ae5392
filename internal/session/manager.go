package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/enums"
	pkgerrors "github.com/wanterio/wanterio-backend/pkg/errors"
	"github.com/wanterio/wanterio-backend/pkg/logger"
	"github.com/wanterio/wanterio-backend/pkg/metrics"
	"github.com/wanterio/wanterio-backend/pkg/observer"
)

const defaultTimeout = 10 * time.Second

// Navigator is the routing collaborator.
type Navigator interface {
	CurrentPath() string
	Navigate(path string)
}

// Records is the part of the record store the bootstrap needs.
type Records interface {
	UpsertUser(ctx context.Context, user backend.User) error
	ListUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
	AssignDefaultPatientRole(ctx context.Context, userID uuid.UUID) error
}

// Snapshot is the published session state.
type Snapshot struct {
	User  *backend.User
	Roles []enums.Role
	State enums.SessionState
	Err   error
}

// Authenticated reports whether the snapshot carries a resolved identity.
func (s Snapshot) Authenticated() bool {
	return s.State == enums.SessionStateAuthenticated && s.User != nil
}

// ManagerParams bundles the dependencies required to build a Manager.
type ManagerParams struct {
	Identity  backend.Identity
	Records   Records
	Navigator Navigator
	Logger    *logger.Logger
	Metrics   *metrics.SessionMetrics
	Timeout   time.Duration
}

// Manager owns the authenticated identity and its resolved roles.
type Manager struct {
	identity backend.Identity
	records  Records
	nav      Navigator
	logg     *logger.Logger
	metrics  *metrics.SessionMetrics
	timeout  time.Duration
	hub      *observer.Hub[observer.Revision[Snapshot]]

	// seq orders bootstraps; a resolution whose token is no longer current
	// when it finishes is dropped.
	seq atomic.Uint64

	mu       sync.Mutex
	notifyMu sync.Mutex
	current  Snapshot
	rev      uint64
	last     attempt
	stop     func()
}

// attempt is the result of the most recent bootstrap that was not discarded.
type attempt struct {
	token  uint64
	userID uuid.UUID
	err    error
}

// NewManager builds the session manager in the unauthenticated state.
func NewManager(params ManagerParams) (*Manager, error) {
	if params.Identity == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if params.Records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if params.Navigator == nil {
		return nil, fmt.Errorf("navigator is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Manager{
		identity: params.Identity,
		records:  params.Records,
		nav:      params.Navigator,
		logg:     logg,
		metrics:  params.Metrics,
		timeout:  timeout,
		hub:      observer.NewHub[observer.Revision[Snapshot]](),
		current:  Snapshot{State: enums.SessionStateUnauthenticated},
	}, nil
}

// Start listens for identity changes and restores an existing session.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.stop == nil {
		m.stop = m.identity.OnSessionChange(m.handleChange)
	}
	m.mu.Unlock()

	var sess *backend.Session
	err := m.call(ctx, func(ctx context.Context) error {
		var err error
		sess, err = m.identity.GetCurrentSession(ctx)
		return err
	})
	if err != nil {
		m.metrics.ObserveBootstrap(metrics.BootstrapFailed, 0)
		return mapIdentityError(err)
	}
	if sess == nil {
		return nil
	}
	return m.Bootstrap(ctx, sess.User)
}

// Close stops listening for identity changes.
func (m *Manager) Close() {
	m.mu.Lock()
	stop := m.stop
	m.stop = nil
	m.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (m *Manager) handleChange(change backend.SessionChange) {
	ctx := m.logg.WithField(context.Background(), "auth_event", string(change.Event))
	switch change.Event {
	case backend.EventSignedOut:
		m.clear()
	case backend.EventSignedIn, backend.EventTokenRefreshed, backend.EventInitialSession:
		if change.Session == nil {
			return
		}
		if err := m.Bootstrap(ctx, change.Session.User); err != nil {
			m.logg.Error(ctx, "session bootstrap failed", err)
		}
	}
}

// Bootstrap resolves roles for user and enters the authenticated state. A
// fatal error leaves the session unauthenticated with Err set.
func (m *Manager) Bootstrap(ctx context.Context, user backend.User) error {
	if user.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	token := m.seq.Add(1)
	started := time.Now()
	ctx = m.logg.WithUserID(ctx, user.ID.String())

	resolvedUser := user
	m.publish(token, Snapshot{User: &resolvedUser, State: enums.SessionStateResolving}, attempt{})

	if err := m.call(ctx, func(ctx context.Context) error { return m.records.UpsertUser(ctx, user) }); err != nil {
		m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "profile sync failed; continuing")
	}

	roles, outcome, err := m.resolveRoles(ctx, user.ID)
	if err != nil {
		if !m.publish(token, Snapshot{State: enums.SessionStateUnauthenticated, Err: err}, attempt{token: token, userID: user.ID, err: err}) {
			m.metrics.ObserveBootstrap(metrics.BootstrapStale, time.Since(started))
			return nil
		}
		m.metrics.ObserveBootstrap(metrics.BootstrapFailed, time.Since(started))
		return err
	}

	if !m.publish(token, Snapshot{User: &resolvedUser, Roles: roles, State: enums.SessionStateAuthenticated}, attempt{token: token, userID: user.ID}) {
		m.metrics.ObserveBootstrap(metrics.BootstrapStale, time.Since(started))
		m.logg.Debug(ctx, "discarding stale session bootstrap")
		return nil
	}
	m.metrics.ObserveBootstrap(outcome, time.Since(started))

	if ShouldRedirect(m.nav.CurrentPath()) {
		m.nav.Navigate(LandingRoute(PrimaryRole(roles)))
	}
	return nil
}

func (m *Manager) resolveRoles(ctx context.Context, userID uuid.UUID) ([]enums.Role, string, error) {
	var raw []string
	err := m.call(ctx, func(ctx context.Context) error {
		var err error
		raw, err = m.records.ListUserRoles(ctx, userID)
		return err
	})
	switch {
	case err == nil:
	case pkgerrors.HasCode(err, pkgerrors.CodeDependency):
		return nil, "", err
	case backend.IsNotConfigured(err):
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeNotConfigured, err, "backend not configured")
	case backend.IsRelationMissing(err):
		m.logg.Warn(ctx, "user_roles relation missing; falling back to patient")
		return []enums.Role{enums.RolePatient}, metrics.BootstrapFallback, nil
	default:
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "unable to resolve user roles")
	}

	roles := make([]enums.Role, 0, len(raw))
	for _, value := range raw {
		role, err := enums.ParseRole(value)
		if err != nil {
			m.logg.Warn(m.logg.WithField(ctx, "role", value), "ignoring unknown role")
			continue
		}
		roles = append(roles, role)
	}
	if len(roles) > 0 {
		return roles, metrics.BootstrapAuthenticated, nil
	}

	err = m.call(ctx, func(ctx context.Context) error { return m.records.AssignDefaultPatientRole(ctx, userID) })
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
			return nil, "", err
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "default role assignment failed")
	}
	return []enums.Role{enums.RolePatient}, metrics.BootstrapDefaulted, nil
}

// SignIn authenticates with email and password and bootstraps the session.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	since := m.seq.Load()
	var sess *backend.Session
	err := m.call(ctx, func(ctx context.Context) error {
		var err error
		sess, err = m.identity.SignInWithPassword(ctx, email, password)
		return err
	})
	if err != nil {
		return mapIdentityError(err)
	}
	return m.settle(ctx, sess, since)
}

// SignUp registers a new account and bootstraps its session.
func (m *Manager) SignUp(ctx context.Context, email, password, fullName string) error {
	since := m.seq.Load()
	var sess *backend.Session
	err := m.call(ctx, func(ctx context.Context) error {
		var err error
		sess, err = m.identity.SignUp(ctx, backend.SignUpInput{Email: email, Password: password, FullName: fullName})
		return err
	})
	if err != nil {
		return mapIdentityError(err)
	}
	return m.settle(ctx, sess, since)
}

// settle makes sure the session produced by a sign-in was bootstrapped. The
// identity provider usually triggers the bootstrap through its change event;
// since marks the sequence token taken before the sign-in call.
func (m *Manager) settle(ctx context.Context, sess *backend.Session, since uint64) error {
	if sess == nil {
		return nil
	}
	m.mu.Lock()
	last := m.last
	m.mu.Unlock()
	if last.token > since && last.userID == sess.User.ID {
		return last.err
	}
	return m.Bootstrap(ctx, sess.User)
}

// SignOut ends the session. On failure the state is left untouched.
func (m *Manager) SignOut(ctx context.Context) error {
	err := m.call(ctx, func(ctx context.Context) error { return m.identity.SignOut(ctx) })
	if err != nil {
		m.metrics.ObserveSignOut(false)
		return mapIdentityError(err)
	}
	m.metrics.ObserveSignOut(true)
	m.clear()
	m.nav.Navigate(HomePath)
	return nil
}

func (m *Manager) clear() {
	token := m.seq.Add(1)
	m.publish(token, Snapshot{State: enums.SessionStateUnauthenticated}, attempt{})
}

// Current returns a copy of the session state.
func (m *Manager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySnapshot(m.current)
}

// Subscribe registers fn, calls it with the current state and then on every
// change. fn may itself subscribe.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	deliver := observer.Monotonic(fn)
	m.mu.Lock()
	current := observer.Revision[Snapshot]{Value: copySnapshot(m.current), Seq: m.rev}
	unsubscribe := m.hub.Subscribe(deliver)
	m.mu.Unlock()

	deliver(current)
	return unsubscribe
}

// HasRole reports whether the authenticated user holds role.
func (m *Manager) HasRole(role enums.Role) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.State != enums.SessionStateAuthenticated {
		return false
	}
	for _, candidate := range m.current.Roles {
		if candidate == role {
			return true
		}
	}
	return false
}

// Landing returns the dashboard route for the current primary role.
func (m *Manager) Landing() string {
	snap := m.Current()
	if !snap.Authenticated() {
		return HomePath
	}
	return LandingRoute(PrimaryRole(snap.Roles))
}

// publish installs snap when token is still the newest bootstrap token. A
// non-zero result is remembered as the latest bootstrap outcome.
func (m *Manager) publish(token uint64, snap Snapshot, result attempt) bool {
	m.mu.Lock()
	if m.seq.Load() != token {
		m.mu.Unlock()
		return false
	}
	if result.token != 0 {
		m.last = result
	}
	if snap.State == enums.SessionStateUnauthenticated && snap.Err == nil &&
		m.current.State == enums.SessionStateUnauthenticated && m.current.User == nil && m.current.Err == nil {
		m.mu.Unlock()
		return true
	}
	m.current = snap
	m.rev++
	out := observer.Revision[Snapshot]{Value: copySnapshot(snap), Seq: m.rev}
	m.notifyMu.Lock()
	m.mu.Unlock()
	defer m.notifyMu.Unlock()
	m.hub.Publish(out)
	return true
}

// call bounds fn by the manager timeout. Expiry becomes a retryable
// dependency error even when fn ignores its context.
func (m *Manager) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		if err != nil && ctx.Err() == context.DeadlineExceeded {
			return timeoutError(err)
		}
		return err
	case <-ctx.Done():
		return timeoutError(ctx.Err())
	}
}

func copySnapshot(s Snapshot) Snapshot {
	out := s
	if s.User != nil {
		user := *s.User
		out.User = &user
	}
	if s.Roles != nil {
		out.Roles = append([]enums.Role(nil), s.Roles...)
	}
	return out
}
