package enums

import "fmt"

// AmbulanceStatus tracks an emergency dispatch request.
type AmbulanceStatus string

const (
	AmbulanceStatusPending   AmbulanceStatus = "pending"
	AmbulanceStatusAssigned  AmbulanceStatus = "assigned"
	AmbulanceStatusEnRoute   AmbulanceStatus = "en_route"
	AmbulanceStatusArrived   AmbulanceStatus = "arrived"
	AmbulanceStatusCompleted AmbulanceStatus = "completed"
	AmbulanceStatusCancelled AmbulanceStatus = "cancelled"
)

var validAmbulanceStatuses = []AmbulanceStatus{
	AmbulanceStatusPending,
	AmbulanceStatusAssigned,
	AmbulanceStatusEnRoute,
	AmbulanceStatusArrived,
	AmbulanceStatusCompleted,
	AmbulanceStatusCancelled,
}

var ambulanceTransitions = map[AmbulanceStatus][]AmbulanceStatus{
	AmbulanceStatusPending:  {AmbulanceStatusAssigned, AmbulanceStatusCancelled},
	AmbulanceStatusAssigned: {AmbulanceStatusEnRoute, AmbulanceStatusCancelled},
	AmbulanceStatusEnRoute:  {AmbulanceStatusArrived, AmbulanceStatusCancelled},
	AmbulanceStatusArrived:  {AmbulanceStatusCompleted},
}

// String implements fmt.Stringer.
func (a AmbulanceStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AmbulanceStatus.
func (a AmbulanceStatus) IsValid() bool {
	for _, candidate := range validAmbulanceStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether moving from a to next is allowed.
func (a AmbulanceStatus) CanTransitionTo(next AmbulanceStatus) bool {
	for _, candidate := range ambulanceTransitions[a] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseAmbulanceStatus converts raw input into an AmbulanceStatus.
func ParseAmbulanceStatus(value string) (AmbulanceStatus, error) {
	for _, candidate := range validAmbulanceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ambulance status %q", value)
}
