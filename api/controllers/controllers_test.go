package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanterio/wanterio-backend/internal/admin"
	"github.com/wanterio/wanterio-backend/internal/cart"
	"github.com/wanterio/wanterio-backend/internal/catalog"
	"github.com/wanterio/wanterio-backend/internal/session"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/config"
	"github.com/wanterio/wanterio-backend/pkg/enums"
	pkgerrors "github.com/wanterio/wanterio-backend/pkg/errors"
	"github.com/wanterio/wanterio-backend/pkg/logger"
	"github.com/wanterio/wanterio-backend/pkg/pagination"
	"github.com/wanterio/wanterio-backend/pkg/storage"
	"github.com/wanterio/wanterio-backend/pkg/types"
)

func newCart(t *testing.T) *cart.Manager {
	t.Helper()
	m, err := cart.NewManager(cart.ManagerParams{Storage: storage.NewMemoryStore(0)})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func demoCatalog(t *testing.T) *catalog.Service {
	t.Helper()
	svc, err := catalog.NewService(backend.Unconfigured{}, logger.Nop(), 0)
	require.NoError(t, err)
	return svc
}

func do(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var envelope types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope.Error
}

type cartView struct {
	Items []struct {
		ID       string `json:"id"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
	Total     string `json:"total"`
	ItemCount int    `json:"itemCount"`
}

func cartRouter(store CartStore, items ItemResolver) http.Handler {
	r := chi.NewRouter()
	r.Get("/cart", CartGet(store))
	r.Delete("/cart", CartClear(store))
	r.Post("/cart/items", CartAddItem(store, items, logger.Nop()))
	r.Patch("/cart/items/{itemId}", CartUpdateItem(store, logger.Nop()))
	r.Delete("/cart/items/{itemId}", CartRemoveItem(store))
	r.Post("/cart/validate", CartValidate(store))
	return r
}

func TestCartEndpoints(t *testing.T) {
	router := cartRouter(newCart(t), demoCatalog(t))

	rec := do(t, router, http.MethodPost, "/cart/items", map[string]any{"medicine_id": "2", "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	view := decodeData[cartView](t, rec)
	assert.Equal(t, "50", view.Total)
	assert.Equal(t, 2, view.ItemCount)

	rec = do(t, router, http.MethodPost, "/cart/items", map[string]any{"medicine_id": "6", "quantity": 1})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodPatch, "/cart/items/2", map[string]any{"quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeData[cartView](t, rec)
	assert.Equal(t, "84.99", view.Total)
	assert.Equal(t, 4, view.ItemCount)

	rec = do(t, router, http.MethodPatch, "/cart/items/6", map[string]any{"quantity": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeData[cartView](t, rec)
	require.Len(t, view.Items, 1)

	rec = do(t, router, http.MethodDelete, "/cart/items/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decodeData[cartView](t, rec).ItemCount)
}

func TestCartAddRejectsOverStock(t *testing.T) {
	router := cartRouter(newCart(t), demoCatalog(t))

	rec := do(t, router, http.MethodPost, "/cart/items", map[string]any{"medicine_id": "2", "quantity": 51})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, string(pkgerrors.CodeValidation), apiErr.Code)
	assert.Equal(t, map[string]any{"available": float64(50), "in_cart": float64(0)}, apiErr.Details)

	rec = do(t, router, http.MethodPost, "/cart/items", map[string]any{"medicine_id": "2", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/cart/items", map[string]any{"medicine_id": "404", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartUpdateUnknownItem(t *testing.T) {
	router := cartRouter(newCart(t), demoCatalog(t))

	rec := do(t, router, http.MethodPatch, "/cart/items/9", map[string]any{"quantity": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPatch, "/cart/items/9", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartValidate(t *testing.T) {
	store := newCart(t)
	router := cartRouter(store, demoCatalog(t))
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/cart/items", map[string]any{"medicine_id": "1", "quantity": 5}).Code)
	store.RefreshStock(map[string]int{"1": 2})

	rec := do(t, router, http.MethodPost, "/cart/validate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeData[cart.StockValidation](t, rec)
	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 1)
}

func TestMedicinesListDemo(t *testing.T) {
	handler := MedicinesList(demoCatalog(t), logger.Nop())
	rec := do(t, handler, http.MethodGet, "/api/v1/medicines?category=Pain+Relief", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	listing := decodeData[struct {
		Medicines []backend.Medicine `json:"medicines"`
		Demo      bool               `json:"demo"`
	}](t, rec)
	assert.True(t, listing.Demo)
	assert.Len(t, listing.Medicines, 3)
}

type stubSessions struct {
	snap      session.Snapshot
	signInErr error
	signedOut bool
}

func (s *stubSessions) Current() session.Snapshot { return s.snap }

func (s *stubSessions) SignIn(_ context.Context, email, _ string) error {
	if s.signInErr != nil {
		return s.signInErr
	}
	user := backend.User{ID: uuid.New(), Email: email}
	s.snap = session.Snapshot{User: &user, Roles: []enums.Role{enums.RoleDoctor}, State: enums.SessionStateAuthenticated}
	return nil
}

func (s *stubSessions) SignUp(ctx context.Context, email, password, _ string) error {
	return s.SignIn(ctx, email, password)
}

func (s *stubSessions) SignOut(context.Context) error {
	s.signedOut = true
	s.snap = session.Snapshot{State: enums.SessionStateUnauthenticated}
	return nil
}

func TestAuthEndpoints(t *testing.T) {
	sessions := &stubSessions{snap: session.Snapshot{State: enums.SessionStateUnauthenticated}}

	rec := do(t, AuthSignIn(sessions, logger.Nop()), http.MethodPost, "/", map[string]any{"email": "doc@example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeData[sessionResponse](t, rec)
	assert.Equal(t, enums.SessionStateAuthenticated, resp.State)
	assert.Equal(t, enums.RoleDoctor, resp.PrimaryRole)
	assert.Equal(t, "/dashboard/doctor", resp.Landing)

	rec = do(t, AuthSignOut(sessions, logger.Nop()), http.MethodPost, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, sessions.signedOut)
	assert.Empty(t, decodeData[sessionResponse](t, rec).Roles)
}

func TestAuthSignInErrors(t *testing.T) {
	sessions := &stubSessions{signInErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "Invalid login credentials")}

	rec := do(t, AuthSignIn(sessions, logger.Nop()), http.MethodPost, "/", map[string]any{"email": "doc@example.com", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid login credentials", decodeError(t, rec).Message)

	rec = do(t, AuthSignUp(sessions, logger.Nop()), http.MethodPost, "/", map[string]any{"email": "not-an-email", "password": "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]any{"email": "must be a valid email", "full_name": "is required"}, decodeError(t, rec).Details)
}

func TestSessionCurrentReportsFailure(t *testing.T) {
	sessions := &stubSessions{snap: session.Snapshot{
		State: enums.SessionStateUnauthenticated,
		Err:   pkgerrors.New(pkgerrors.CodeForbidden, "unable to resolve user roles"),
	}}
	rec := do(t, SessionCurrent(sessions), http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unable to resolve user roles", decodeData[sessionResponse](t, rec).Error)
}

type stubCare struct {
	CareService
	updated enums.AppointmentStatus
	err     error
}

func (s *stubCare) UpdateAppointmentStatus(_ context.Context, _ uuid.UUID, next enums.AppointmentStatus) error {
	s.updated = next
	return s.err
}

func TestAppointmentStatusEndpoint(t *testing.T) {
	svc := &stubCare{}
	r := chi.NewRouter()
	r.Patch("/appointments/{appointmentId}/status", AppointmentsUpdateStatus(svc, logger.Nop()))

	rec := do(t, r, http.MethodPatch, "/appointments/"+uuid.NewString()+"/status", map[string]any{"status": "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, enums.AppointmentStatusConfirmed, svc.updated)

	rec = do(t, r, http.MethodPatch, "/appointments/not-a-uuid/status", map[string]any{"status": "confirmed"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPatch, "/appointments/"+uuid.NewString()+"/status", map[string]any{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.err = pkgerrors.New(pkgerrors.CodeStateConflict, "appointment status cannot change")
	rec = do(t, r, http.MethodPatch, "/appointments/"+uuid.NewString()+"/status", map[string]any{"status": "confirmed"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

type stubAdmin struct {
	AdminService
	stats   admin.SystemStats
	page    pagination.Params
	removed enums.Role
}

func (s *stubAdmin) SystemStats(context.Context) (admin.SystemStats, error) { return s.stats, nil }

func (s *stubAdmin) ListUsers(_ context.Context, page pagination.Params) (*admin.UserPage, error) {
	s.page = page
	return &admin.UserPage{Users: []backend.UserWithRoles{}, Meta: page.MetaFor(0)}, nil
}

func (s *stubAdmin) RemoveRole(_ context.Context, _ uuid.UUID, role enums.Role) error {
	s.removed = role
	return nil
}

func TestAdminEndpoints(t *testing.T) {
	svc := &stubAdmin{stats: admin.SystemStats{TotalUsers: 4, TotalOrders: 2}}
	r := chi.NewRouter()
	r.Get("/stats", AdminStats(svc, logger.Nop()))
	r.Get("/users", AdminUsersList(svc, logger.Nop()))
	r.Delete("/users/{userId}/roles/{role}", AdminRemoveRole(svc, logger.Nop()))

	rec := do(t, r, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, svc.stats, decodeData[admin.SystemStats](t, rec))

	rec = do(t, r, http.MethodGet, "/users?page=2&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pagination.Params{Page: 2, Limit: 10}, svc.page)

	rec = do(t, r, http.MethodDelete, "/users/"+uuid.NewString()+"/roles/doctor", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, enums.RoleDoctor, svc.removed)

	rec = do(t, r, http.MethodDelete, "/users/"+uuid.NewString()+"/roles/wizard", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type failingPinger struct{ err error }

func (p failingPinger) Ping(context.Context) error { return p.err }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	rec := do(t, HealthReady(cfg, logger.Nop(), true, map[string]Pinger{"db": nil, "redis": failingPinger{}}), http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeData[map[string]any](t, rec)
	assert.Equal(t, true, body["demo"])
	assert.Equal(t, map[string]any{"redis": "up"}, body["checks"])

	rec = do(t, HealthReady(cfg, logger.Nop(), false, map[string]Pinger{"db": failingPinger{err: context.DeadlineExceeded}}), http.MethodGet, "/", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeDependency), decodeError(t, rec).Code)

	rec = do(t, HealthLive(cfg), http.MethodGet, "/", nil)
	assert.Equal(t, "test", rec.Header().Get("X-Wanterio-Env"))
}
