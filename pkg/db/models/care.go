package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/wanterio/wanterio-backend/pkg/enums"
)

type Appointment struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	PatientID       uuid.UUID               `gorm:"column:patient_id;type:uuid;not null;index"`
	DoctorID        *uuid.UUID              `gorm:"column:doctor_id;type:uuid"`
	ClinicID        *uuid.UUID              `gorm:"column:clinic_id;type:uuid"`
	AppointmentDate string                  `gorm:"column:appointment_date;not null"`
	AppointmentTime string                  `gorm:"column:appointment_time;not null"`
	Status          enums.AppointmentStatus `gorm:"column:status;type:text;not null;default:pending"`
	Notes           *string                 `gorm:"column:notes"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

type AmbulanceRequest struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	PatientID      uuid.UUID             `gorm:"column:patient_id;type:uuid;not null;index"`
	DriverID       *uuid.UUID            `gorm:"column:driver_id;type:uuid"`
	PickupLocation string                `gorm:"column:pickup_location;not null"`
	Destination    *string               `gorm:"column:destination"`
	EmergencyType  *string               `gorm:"column:emergency_type"`
	Status         enums.AmbulanceStatus `gorm:"column:status;type:text;not null;default:pending"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
