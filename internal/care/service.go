package care

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/wanterio/wanterio-backend/internal/session"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/enums"
	pkgerrors "github.com/wanterio/wanterio-backend/pkg/errors"
	"github.com/wanterio/wanterio-backend/pkg/logger"
)

const defaultTimeout = 10 * time.Second

type sessionReader interface {
	Current() session.Snapshot
}

// ServiceParams bundles the dependencies required to build a Service.
type ServiceParams struct {
	Session sessionReader
	Records backend.Care
	Logger  *logger.Logger
	Timeout time.Duration
}

// Service books appointments and dispatches ambulance requests for the
// signed-in user.
type Service struct {
	session  sessionReader
	records  backend.Care
	logg     *logger.Logger
	timeout  time.Duration
	validate *validator.Validate
}

// NewService builds the care service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Session == nil {
		return nil, fmt.Errorf("session reader required")
	}
	if params.Records == nil {
		return nil, fmt.Errorf("care records required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		session:  params.Session,
		records:  params.Records,
		logg:     logg,
		timeout:  timeout,
		validate: newValidator(),
	}, nil
}

// BookAppointmentInput is the booking form.
type BookAppointmentInput struct {
	DoctorID *uuid.UUID `json:"doctor_id"`
	ClinicID *uuid.UUID `json:"clinic_id"`
	Date     string     `json:"appointment_date" validate:"required,datetime=2006-01-02"`
	Time     string     `json:"appointment_time" validate:"required,datetime=15:04"`
	Notes    string     `json:"notes" validate:"max=1000"`
}

// AmbulanceInput is the emergency request form.
type AmbulanceInput struct {
	PickupLocation string `json:"pickup_location" validate:"required,max=500"`
	Destination    string `json:"destination" validate:"max=500"`
	EmergencyType  string `json:"emergency_type" validate:"max=120"`
}

// BookAppointment records a pending appointment for the current user.
func (s *Service) BookAppointment(ctx context.Context, input BookAppointmentInput) (*backend.Appointment, error) {
	snap, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	input.Date = strings.TrimSpace(input.Date)
	input.Time = strings.TrimSpace(input.Time)
	if err := s.validateInput(input, "invalid appointment"); err != nil {
		return nil, err
	}
	if input.DoctorID == nil && input.ClinicID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "choose a doctor or a clinic")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	appt, err := s.records.CreateAppointment(callCtx, backend.Appointment{
		PatientID:       snap.User.ID,
		DoctorID:        input.DoctorID,
		ClinicID:        input.ClinicID,
		AppointmentDate: input.Date,
		AppointmentTime: input.Time,
		Status:          enums.AppointmentStatusPending,
		Notes:           strings.TrimSpace(input.Notes),
	})
	if err != nil {
		return nil, recordError(err, "book appointment")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id":        snap.User.ID.String(),
		"appointment_id": appt.ID.String(),
	}), "appointment booked")
	return appt, nil
}

// ListAppointments returns the caller's appointments. Doctors, clinics and
// administrators see every appointment.
func (s *Service) ListAppointments(ctx context.Context) ([]backend.Appointment, error) {
	snap, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	appts, err := s.records.ListAppointments(callCtx, filterFor(snap, appointmentStaff))
	if err != nil {
		return nil, recordError(err, "list appointments")
	}
	return appts, nil
}

// UpdateAppointmentStatus moves an appointment along its lifecycle. Patients
// may only cancel their own appointments.
func (s *Service) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, next enums.AppointmentStatus) error {
	snap, err := s.requireSession()
	if err != nil {
		return err
	}
	if !next.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid appointment status")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	appt, err := s.records.GetAppointment(callCtx, id)
	if err != nil {
		return recordError(err, "load appointment")
	}
	if !hasAny(snap, appointmentStaff) {
		if appt.PatientID != snap.User.ID || next != enums.AppointmentStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to update this appointment")
		}
	}
	if !appt.Status.CanTransitionTo(next) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "appointment status cannot change").
			WithDetails(map[string]any{"from": appt.Status, "to": next})
	}
	if err := s.records.UpdateAppointmentStatus(callCtx, id, next); err != nil {
		return recordError(err, "update appointment")
	}
	return nil
}

// RequestAmbulance records a pending ambulance request for the current user.
func (s *Service) RequestAmbulance(ctx context.Context, input AmbulanceInput) (*backend.AmbulanceRequest, error) {
	snap, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	input.PickupLocation = strings.TrimSpace(input.PickupLocation)
	if err := s.validateInput(input, "invalid ambulance request"); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	req, err := s.records.CreateAmbulanceRequest(callCtx, backend.AmbulanceRequest{
		PatientID:      snap.User.ID,
		PickupLocation: input.PickupLocation,
		Destination:    strings.TrimSpace(input.Destination),
		EmergencyType:  strings.TrimSpace(input.EmergencyType),
		Status:         enums.AmbulanceStatusPending,
	})
	if err != nil {
		return nil, recordError(err, "request ambulance")
	}
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"user_id":    snap.User.ID.String(),
		"request_id": req.ID.String(),
	}), "ambulance requested")
	return req, nil
}

// ListAmbulanceRequests returns the caller's requests. Drivers and
// administrators see every request.
func (s *Service) ListAmbulanceRequests(ctx context.Context) ([]backend.AmbulanceRequest, error) {
	snap, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	reqs, err := s.records.ListAmbulanceRequests(callCtx, filterFor(snap, dispatchStaff))
	if err != nil {
		return nil, recordError(err, "list ambulance requests")
	}
	return reqs, nil
}

// UpdateAmbulanceStatus moves a request along its lifecycle. Patients may
// only cancel their own requests.
func (s *Service) UpdateAmbulanceStatus(ctx context.Context, id uuid.UUID, next enums.AmbulanceStatus) error {
	snap, err := s.requireSession()
	if err != nil {
		return err
	}
	if !next.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid ambulance status")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	req, err := s.records.GetAmbulanceRequest(callCtx, id)
	if err != nil {
		return recordError(err, "load ambulance request")
	}
	if !hasAny(snap, dispatchStaff) {
		if req.PatientID != snap.User.ID || next != enums.AmbulanceStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to update this request")
		}
	}
	if !req.Status.CanTransitionTo(next) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "ambulance status cannot change").
			WithDetails(map[string]any{"from": req.Status, "to": next})
	}
	if err := s.records.UpdateAmbulanceStatus(callCtx, id, next); err != nil {
		return recordError(err, "update ambulance request")
	}
	return nil
}

var (
	appointmentStaff = []enums.Role{enums.RoleDoctor, enums.RoleClinic, enums.RoleAdmin, enums.RoleSuperAdmin}
	dispatchStaff    = []enums.Role{enums.RoleDriver, enums.RoleAdmin, enums.RoleSuperAdmin}
)

func (s *Service) requireSession() (session.Snapshot, error) {
	snap := s.session.Current()
	if !snap.Authenticated() {
		return snap, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	return snap, nil
}

func filterFor(snap session.Snapshot, staff []enums.Role) backend.CareFilter {
	if hasAny(snap, staff) {
		return backend.CareFilter{}
	}
	id := snap.User.ID
	return backend.CareFilter{PatientID: &id}
}

func hasAny(snap session.Snapshot, roles []enums.Role) bool {
	for _, held := range snap.Roles {
		for _, role := range roles {
			if held == role {
				return true
			}
		}
	}
	return false
}

func recordError(err error, step string) error {
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "record not found")
	case backend.IsNotConfigured(err):
		return pkgerrors.Wrap(pkgerrors.CodeNotConfigured, err, step)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step)
	}
}

func (s *Service) validateInput(input any, message string) error {
	if err := s.validate.Struct(input); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			details := map[string]string{}
			for _, fieldErr := range errs {
				details[fieldErr.Field()] = fieldErr.Tag()
			}
			return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, message)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}
