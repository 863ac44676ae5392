package backend

import (
	"context"

	"github.com/google/uuid"
	"github.com/wanterio/wanterio-backend/pkg/enums"
	"github.com/wanterio/wanterio-backend/pkg/pagination"
)

// Unconfigured satisfies Identity and Records when no datastore is configured.
// Every call fails with ErrNotConfigured except GetCurrentSession, which reports
// a signed-out user.
type Unconfigured struct{}

var (
	_ Identity = Unconfigured{}
	_ Records  = Unconfigured{}
)

func (Unconfigured) GetCurrentSession(context.Context) (*Session, error) { return nil, nil }

func (Unconfigured) OnSessionChange(func(SessionChange)) func() { return func() {} }

func (Unconfigured) SignInWithPassword(context.Context, string, string) (*Session, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) SignUp(context.Context, SignUpInput) (*Session, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) SignOut(context.Context) error { return ErrNotConfigured }

func (Unconfigured) RefreshSession(context.Context) (*Session, error) { return nil, ErrNotConfigured }

func (Unconfigured) UpsertUser(context.Context, User) error { return ErrNotConfigured }

func (Unconfigured) ListUsers(context.Context, pagination.Params) ([]UserWithRoles, int64, error) {
	return nil, 0, ErrNotConfigured
}

func (Unconfigured) ListUserRoles(context.Context, uuid.UUID) ([]string, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) AssignRole(context.Context, uuid.UUID, enums.Role) error { return ErrNotConfigured }

func (Unconfigured) RemoveRole(context.Context, uuid.UUID, enums.Role) error { return ErrNotConfigured }

func (Unconfigured) AssignDefaultPatientRole(context.Context, uuid.UUID) error {
	return ErrNotConfigured
}

func (Unconfigured) CreateSuperAdmin(context.Context, uuid.UUID) error { return ErrNotConfigured }

func (Unconfigured) ListMedicines(context.Context, MedicineFilter) ([]Medicine, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) GetMedicine(context.Context, string) (*Medicine, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) StockLevels(context.Context, []string) (map[string]int, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) CreateOrder(context.Context, NewOrder) (*Order, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) ListOrders(context.Context, OrderFilter) ([]Order, int64, error) {
	return nil, 0, ErrNotConfigured
}

func (Unconfigured) UpdateOrderStatus(context.Context, uuid.UUID, enums.OrderStatus) error {
	return ErrNotConfigured
}

func (Unconfigured) CreateAppointment(context.Context, Appointment) (*Appointment, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) GetAppointment(context.Context, uuid.UUID) (*Appointment, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) ListAppointments(context.Context, CareFilter) ([]Appointment, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) UpdateAppointmentStatus(context.Context, uuid.UUID, enums.AppointmentStatus) error {
	return ErrNotConfigured
}

func (Unconfigured) CreateAmbulanceRequest(context.Context, AmbulanceRequest) (*AmbulanceRequest, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) GetAmbulanceRequest(context.Context, uuid.UUID) (*AmbulanceRequest, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) ListAmbulanceRequests(context.Context, CareFilter) ([]AmbulanceRequest, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) UpdateAmbulanceStatus(context.Context, uuid.UUID, enums.AmbulanceStatus) error {
	return ErrNotConfigured
}

func (Unconfigured) CountRows(context.Context, Table) (int64, error) { return 0, ErrNotConfigured }

func (Unconfigured) SaveCartSnapshot(context.Context, uuid.UUID, CartSnapshot) error {
	return ErrNotConfigured
}

func (Unconfigured) LoadCartSnapshot(context.Context, uuid.UUID) (*CartSnapshot, error) {
	return nil, ErrNotConfigured
}
