package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/wanterio/wanterio-backend/api/responses"
	"github.com/wanterio/wanterio-backend/api/validators"
	"github.com/wanterio/wanterio-backend/internal/admin"
	"github.com/wanterio/wanterio-backend/pkg/enums"
	pkgerrors "github.com/wanterio/wanterio-backend/pkg/errors"
	"github.com/wanterio/wanterio-backend/pkg/logger"
	"github.com/wanterio/wanterio-backend/pkg/pagination"
)

// AdminService is the admin dashboard surface.
type AdminService interface {
	CreateSuperAdmin(ctx context.Context, input admin.SetupInput) error
	ListUsers(ctx context.Context, page pagination.Params) (*admin.UserPage, error)
	AssignRole(ctx context.Context, userID uuid.UUID, role enums.Role) error
	RemoveRole(ctx context.Context, userID uuid.UUID, role enums.Role) error
	SystemStats(ctx context.Context) (admin.SystemStats, error)
	ListOrders(ctx context.Context, page pagination.Params) (*admin.OrderPage, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
}

type roleRequest struct {
	Role string `json:"role" validate:"required"`
}

// AdminSetup creates the first super admin. It is reachable without a
// session and refuses once a super admin exists.
func AdminSetup(svc AdminService, sessions sessionReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body admin.SetupInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.CreateSuperAdmin(r.Context(), body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newSessionResponse(sessions.Current()))
	}
}

func AdminUsersList(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.ListUsers(r.Context(), pagination.FromQuery(r.URL.Query()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminAssignRole(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body roleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := enums.ParseRole(body.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
			return
		}
		if err := svc.AssignRole(r.Context(), userID, role); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"user_id": userID, "role": role})
	}
}

func AdminRemoveRole(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := enums.ParseRole(chi.URLParam(r, "role"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
			return
		}
		if err := svc.RemoveRole(r.Context(), userID, role); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func AdminStats(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.SystemStats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func AdminOrdersList(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.ListOrders(r.Context(), pagination.FromQuery(r.URL.Query()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminUpdateOrderStatus(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body statusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}
		if err := svc.UpdateOrderStatus(r.Context(), orderID, status); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": orderID, "status": status})
	}
}
