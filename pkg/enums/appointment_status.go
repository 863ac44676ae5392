package enums

import "fmt"

// AppointmentStatus tracks a booked consultation.
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

var validAppointmentStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
	AppointmentStatusCompleted,
	AppointmentStatusCancelled,
}

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:   {AppointmentStatusConfirmed, AppointmentStatusCancelled},
	AppointmentStatusConfirmed: {AppointmentStatusCompleted, AppointmentStatusCancelled},
}

// String implements fmt.Stringer.
func (a AppointmentStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AppointmentStatus.
func (a AppointmentStatus) IsValid() bool {
	for _, candidate := range validAppointmentStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether moving from a to next is allowed.
func (a AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, candidate := range appointmentTransitions[a] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseAppointmentStatus converts raw input into an AppointmentStatus.
func ParseAppointmentStatus(value string) (AppointmentStatus, error) {
	for _, candidate := range validAppointmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid appointment status %q", value)
}
