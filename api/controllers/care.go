package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/wanterio/wanterio-backend/api/responses"
	"github.com/wanterio/wanterio-backend/api/validators"
	"github.com/wanterio/wanterio-backend/internal/care"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/enums"
	pkgerrors "github.com/wanterio/wanterio-backend/pkg/errors"
	"github.com/wanterio/wanterio-backend/pkg/logger"
)

// CareService books appointments and ambulance requests.
type CareService interface {
	BookAppointment(ctx context.Context, input care.BookAppointmentInput) (*backend.Appointment, error)
	ListAppointments(ctx context.Context) ([]backend.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, next enums.AppointmentStatus) error
	RequestAmbulance(ctx context.Context, input care.AmbulanceInput) (*backend.AmbulanceRequest, error)
	ListAmbulanceRequests(ctx context.Context) ([]backend.AmbulanceRequest, error)
	UpdateAmbulanceStatus(ctx context.Context, id uuid.UUID, next enums.AmbulanceStatus) error
}

func AppointmentsCreate(svc CareService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body care.BookAppointmentInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		appt, err := svc.BookAppointment(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, appt)
	}
}

func AppointmentsList(svc CareService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, err := svc.ListAppointments(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, appts)
	}
}

func AppointmentsUpdateStatus(svc CareService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "appointmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body statusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next, err := enums.ParseAppointmentStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid appointment status"))
			return
		}
		if err := svc.UpdateAppointmentStatus(r.Context(), id, next); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "status": next})
	}
}

func AmbulanceCreate(svc CareService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body care.AmbulanceInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := svc.RequestAmbulance(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, req)
	}
}

func AmbulanceList(svc CareService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqs, err := svc.ListAmbulanceRequests(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reqs)
	}
}

func AmbulanceUpdateStatus(svc CareService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body statusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next, err := enums.ParseAmbulanceStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid ambulance status"))
			return
		}
		if err := svc.UpdateAmbulanceStatus(r.Context(), id, next); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "status": next})
	}
}
