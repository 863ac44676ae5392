// Package backend defines the hosted data and identity collaborator consumed by
// the client core. Implementations live in subpackages; Unconfigured stands in
// when no datastore is configured.
package backend

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wanterio/wanterio-backend/pkg/enums"
	"github.com/wanterio/wanterio-backend/pkg/pagination"
)

// AuthEvent names an identity transition.
type AuthEvent string

const (
	EventInitialSession AuthEvent = "INITIAL_SESSION"
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// User is the raw identity returned by the identity provider.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name,omitempty"`
}

// Session is an authenticated identity plus its access token.
type Session struct {
	User        User      `json:"user"`
	AccessToken string    `json:"-"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// SessionChange is delivered to OnSessionChange listeners. Session is nil on sign-out.
type SessionChange struct {
	Event   AuthEvent
	Session *Session
}

// SignUpInput carries the credentials and profile of a new account.
type SignUpInput struct {
	Email    string
	Password string
	FullName string
}

// Identity is the identity provider contract.
type Identity interface {
	// GetCurrentSession returns the restored session, or nil when signed out.
	GetCurrentSession(ctx context.Context) (*Session, error)
	OnSessionChange(fn func(SessionChange)) (unsubscribe func())
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, input SignUpInput) (*Session, error)
	SignOut(ctx context.Context) error
	RefreshSession(ctx context.Context) (*Session, error)
}

// UserWithRoles is a profile row joined with its raw role tags.
type UserWithRoles struct {
	User
	Phone     string    `json:"phone,omitempty"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// Medicine is a catalogue entry.
type Medicine struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Category      string          `json:"category,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
}

// MedicineFilter narrows a catalogue listing. Empty fields match everything.
type MedicineFilter struct {
	Category string
	Search   string
}

// ShippingInfo is the delivery contact recorded on an order.
type ShippingInfo struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	ZipCode  string `json:"zip_code"`
}

// OrderItem is one priced order line.
type OrderItem struct {
	MedicineID string          `json:"medicine_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

// NewOrder is the insert payload of CreateOrder.
type NewOrder struct {
	UserID        uuid.UUID
	PaymentMethod enums.PaymentMethod
	Shipping      ShippingInfo
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	ShippingCost  decimal.Decimal
	Total         decimal.Decimal
	Items         []OrderItem
}

// Order is a persisted order.
type Order struct {
	ID            uuid.UUID           `json:"id"`
	UserID        uuid.UUID           `json:"user_id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Shipping      ShippingInfo        `json:"shipping"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Tax           decimal.Decimal     `json:"tax"`
	ShippingCost  decimal.Decimal     `json:"shipping_cost"`
	Total         decimal.Decimal     `json:"total_amount"`
	Items         []OrderItem         `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderFilter narrows an order listing. A nil UserID lists every user's orders.
type OrderFilter struct {
	UserID *uuid.UUID
	Page   pagination.Params
}

// Appointment is a booked consultation.
type Appointment struct {
	ID              uuid.UUID               `json:"id"`
	PatientID       uuid.UUID               `json:"patient_id"`
	DoctorID        *uuid.UUID              `json:"doctor_id,omitempty"`
	ClinicID        *uuid.UUID              `json:"clinic_id,omitempty"`
	AppointmentDate string                  `json:"appointment_date"`
	AppointmentTime string                  `json:"appointment_time"`
	Status          enums.AppointmentStatus `json:"status"`
	Notes           string                  `json:"notes,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
}

// AmbulanceRequest is an emergency transport request.
type AmbulanceRequest struct {
	ID             uuid.UUID             `json:"id"`
	PatientID      uuid.UUID             `json:"patient_id"`
	DriverID       *uuid.UUID            `json:"driver_id,omitempty"`
	PickupLocation string                `json:"pickup_location"`
	Destination    string                `json:"destination,omitempty"`
	EmergencyType  string                `json:"emergency_type,omitempty"`
	Status         enums.AmbulanceStatus `json:"status"`
	CreatedAt      time.Time             `json:"created_at"`
}

// CareFilter narrows appointment and ambulance listings. A nil PatientID lists all rows.
type CareFilter struct {
	PatientID *uuid.UUID
}

// CartSnapshot is the synced cart document of a user.
type CartSnapshot struct {
	Payload     string
	LastUpdated time.Time
}

// Table names the record store exposes to CountRows.
type Table string

const (
	TableUsers             Table = "users"
	TableUserRoles         Table = "user_roles"
	TableMedicines         Table = "medicines"
	TableOrders            Table = "orders"
	TableOrderItems        Table = "order_items"
	TableAppointments      Table = "appointments"
	TableAmbulanceRequests Table = "ambulance_requests"
)

// Profiles manages the users table.
type Profiles interface {
	UpsertUser(ctx context.Context, user User) error
	ListUsers(ctx context.Context, page pagination.Params) ([]UserWithRoles, int64, error)
}

// Roles manages user_roles and the privileged role functions.
type Roles interface {
	// ListUserRoles returns raw role tags; unknown tags are the caller's concern.
	ListUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
	AssignRole(ctx context.Context, userID uuid.UUID, role enums.Role) error
	RemoveRole(ctx context.Context, userID uuid.UUID, role enums.Role) error
	AssignDefaultPatientRole(ctx context.Context, userID uuid.UUID) error
	CreateSuperAdmin(ctx context.Context, userID uuid.UUID) error
}

// Catalog reads medicines.
type Catalog interface {
	ListMedicines(ctx context.Context, filter MedicineFilter) ([]Medicine, error)
	// GetMedicine returns ErrNotFound for an unknown id.
	GetMedicine(ctx context.Context, id string) (*Medicine, error)
	// StockLevels returns current stock by medicine id; unknown ids are absent.
	StockLevels(ctx context.Context, ids []string) (map[string]int, error)
}

// Orders manages orders and order_items.
type Orders interface {
	CreateOrder(ctx context.Context, order NewOrder) (*Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, int64, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
}

// Care manages appointments and ambulance requests.
type Care interface {
	CreateAppointment(ctx context.Context, appt Appointment) (*Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, filter CareFilter) ([]Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status enums.AppointmentStatus) error
	CreateAmbulanceRequest(ctx context.Context, req AmbulanceRequest) (*AmbulanceRequest, error)
	GetAmbulanceRequest(ctx context.Context, id uuid.UUID) (*AmbulanceRequest, error)
	ListAmbulanceRequests(ctx context.Context, filter CareFilter) ([]AmbulanceRequest, error)
	UpdateAmbulanceStatus(ctx context.Context, id uuid.UUID, status enums.AmbulanceStatus) error
}

// Stats counts rows for the admin dashboard.
type Stats interface {
	CountRows(ctx context.Context, table Table) (int64, error)
}

// CartSnapshots stores the remote copy of a user's cart.
type CartSnapshots interface {
	SaveCartSnapshot(ctx context.Context, userID uuid.UUID, snapshot CartSnapshot) error
	// LoadCartSnapshot returns nil when the user has no snapshot.
	LoadCartSnapshot(ctx context.Context, userID uuid.UUID) (*CartSnapshot, error)
}

// Records is the full record-store contract.
type Records interface {
	Profiles
	Roles
	Catalog
	Orders
	Care
	Stats
	CartSnapshots
}
