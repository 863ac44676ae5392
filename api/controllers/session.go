package controllers

import (
	"context"
	"net/http"

	"github.com/wanterio/wanterio-backend/api/responses"
	"github.com/wanterio/wanterio-backend/api/validators"
	"github.com/wanterio/wanterio-backend/internal/session"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/enums"
	pkgerrors "github.com/wanterio/wanterio-backend/pkg/errors"
	"github.com/wanterio/wanterio-backend/pkg/logger"
)

type sessionReader interface {
	Current() session.Snapshot
}

// SessionService is the session surface used by the auth endpoints.
type SessionService interface {
	sessionReader
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password, fullName string) error
	SignOut(ctx context.Context) error
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name" validate:"required,max=200"`
}

type sessionResponse struct {
	State       enums.SessionState `json:"state"`
	User        *backend.User      `json:"user"`
	Roles       []enums.Role       `json:"roles"`
	PrimaryRole enums.Role         `json:"primary_role,omitempty"`
	Landing     string             `json:"landing,omitempty"`
	Error       string             `json:"error,omitempty"`
}

func newSessionResponse(snap session.Snapshot) sessionResponse {
	roles := snap.Roles
	if roles == nil {
		roles = []enums.Role{}
	}
	resp := sessionResponse{State: snap.State, User: snap.User, Roles: roles}
	if snap.Authenticated() {
		resp.PrimaryRole = session.PrimaryRole(snap.Roles)
		resp.Landing = session.LandingRoute(resp.PrimaryRole)
	}
	if snap.Err != nil {
		if typed := pkgerrors.As(snap.Err); typed != nil {
			resp.Error = typed.Message()
		} else {
			resp.Error = "session error"
		}
	}
	return resp
}

func SessionCurrent(sessions sessionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, newSessionResponse(sessions.Current()))
	}
}

func AuthSignIn(sessions SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body signInRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := sessions.SignIn(r.Context(), body.Email, body.Password); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(sessions.Current()))
	}
}

func AuthSignUp(sessions SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body signUpRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fullName := validators.SanitizeString(body.FullName, 200)
		if err := sessions.SignUp(r.Context(), body.Email, body.Password, fullName); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newSessionResponse(sessions.Current()))
	}
}

func AuthSignOut(sessions SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.SignOut(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(sessions.Current()))
	}
}
