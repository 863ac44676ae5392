package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/db/models"
	"github.com/wanterio/wanterio-backend/pkg/enums"
	"gorm.io/gorm"
)

func (b *Backend) CreateAppointment(ctx context.Context, appt backend.Appointment) (*backend.Appointment, error) {
	row := models.Appointment{
		PatientID:       appt.PatientID,
		DoctorID:        appt.DoctorID,
		ClinicID:        appt.ClinicID,
		AppointmentDate: appt.AppointmentDate,
		AppointmentTime: appt.AppointmentTime,
		Status:          enums.AppointmentStatusPending,
		Notes:           optional(appt.Notes),
	}
	if err := b.db.DB().WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	out := appointmentFromModel(row)
	return &out, nil
}

func (b *Backend) GetAppointment(ctx context.Context, id uuid.UUID) (*backend.Appointment, error) {
	var row models.Appointment
	if err := b.db.DB().WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "appointment")
	}
	out := appointmentFromModel(row)
	return &out, nil
}

func (b *Backend) ListAppointments(ctx context.Context, filter backend.CareFilter) ([]backend.Appointment, error) {
	query := b.db.DB().WithContext(ctx).Model(&models.Appointment{})
	if filter.PatientID != nil {
		query = query.Where("patient_id = ?", *filter.PatientID)
	}
	var rows []models.Appointment
	if err := query.Order("appointment_date ASC, appointment_time ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	out := make([]backend.Appointment, 0, len(rows))
	for _, row := range rows {
		out = append(out, appointmentFromModel(row))
	}
	return out, nil
}

func (b *Backend) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status enums.AppointmentStatus) error {
	return b.updateStatus(ctx, &models.Appointment{}, id, status)
}

func (b *Backend) CreateAmbulanceRequest(ctx context.Context, req backend.AmbulanceRequest) (*backend.AmbulanceRequest, error) {
	row := models.AmbulanceRequest{
		PatientID:      req.PatientID,
		PickupLocation: req.PickupLocation,
		Destination:    optional(req.Destination),
		EmergencyType:  optional(req.EmergencyType),
		Status:         enums.AmbulanceStatusPending,
	}
	if err := b.db.DB().WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("insert ambulance request: %w", err)
	}
	out := ambulanceFromModel(row)
	return &out, nil
}

func (b *Backend) GetAmbulanceRequest(ctx context.Context, id uuid.UUID) (*backend.AmbulanceRequest, error) {
	var row models.AmbulanceRequest
	if err := b.db.DB().WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "ambulance request")
	}
	out := ambulanceFromModel(row)
	return &out, nil
}

func (b *Backend) ListAmbulanceRequests(ctx context.Context, filter backend.CareFilter) ([]backend.AmbulanceRequest, error) {
	query := b.db.DB().WithContext(ctx).Model(&models.AmbulanceRequest{})
	if filter.PatientID != nil {
		query = query.Where("patient_id = ?", *filter.PatientID)
	}
	var rows []models.AmbulanceRequest
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list ambulance requests: %w", err)
	}
	out := make([]backend.AmbulanceRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, ambulanceFromModel(row))
	}
	return out, nil
}

func (b *Backend) UpdateAmbulanceStatus(ctx context.Context, id uuid.UUID, status enums.AmbulanceStatus) error {
	return b.updateStatus(ctx, &models.AmbulanceRequest{}, id, status)
}

func (b *Backend) updateStatus(ctx context.Context, model any, id uuid.UUID, status any) error {
	res := b.db.DB().WithContext(ctx).
		Model(model).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": b.now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("update status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return backend.ErrNotFound
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return backend.ErrNotFound
	}
	return fmt.Errorf("load %s: %w", what, err)
}

func appointmentFromModel(row models.Appointment) backend.Appointment {
	return backend.Appointment{
		ID:              row.ID,
		PatientID:       row.PatientID,
		DoctorID:        row.DoctorID,
		ClinicID:        row.ClinicID,
		AppointmentDate: row.AppointmentDate,
		AppointmentTime: row.AppointmentTime,
		Status:          row.Status,
		Notes:           deref(row.Notes),
		CreatedAt:       row.CreatedAt,
	}
}

func ambulanceFromModel(row models.AmbulanceRequest) backend.AmbulanceRequest {
	return backend.AmbulanceRequest{
		ID:             row.ID,
		PatientID:      row.PatientID,
		DriverID:       row.DriverID,
		PickupLocation: row.PickupLocation,
		Destination:    deref(row.Destination),
		EmergencyType:  deref(row.EmergencyType),
		Status:         row.Status,
		CreatedAt:      row.CreatedAt,
	}
}
