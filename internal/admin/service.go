package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wanterio/wanterio-backend/internal/session"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/enums"
	pkgerrors "github.com/wanterio/wanterio-backend/pkg/errors"
	"github.com/wanterio/wanterio-backend/pkg/logger"
	"github.com/wanterio/wanterio-backend/pkg/pagination"
	"golang.org/x/sync/errgroup"
)

const defaultTimeout = 10 * time.Second

type sessionManager interface {
	Current() session.Snapshot
	SignUp(ctx context.Context, email, password, fullName string) error
	Bootstrap(ctx context.Context, user backend.User) error
}

type records interface {
	backend.Profiles
	backend.Stats
	ListOrders(ctx context.Context, filter backend.OrderFilter) ([]backend.Order, int64, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
	AssignRole(ctx context.Context, userID uuid.UUID, role enums.Role) error
	RemoveRole(ctx context.Context, userID uuid.UUID, role enums.Role) error
	CreateSuperAdmin(ctx context.Context, userID uuid.UUID) error
}

// ServiceParams bundles the dependencies required to build a Service.
type ServiceParams struct {
	Session sessionManager
	Records records
	Logger  *logger.Logger
	Timeout time.Duration
}

// Service exposes the administrative operations of the admin dashboard.
type Service struct {
	session sessionManager
	records records
	logg    *logger.Logger
	timeout time.Duration
}

// SystemStats summarises platform activity.
type SystemStats struct {
	TotalUsers             int64 `json:"totalUsers"`
	TotalOrders            int64 `json:"totalOrders"`
	TotalAppointments      int64 `json:"totalAppointments"`
	TotalEmergencyRequests int64 `json:"totalEmergencyRequests"`
}

// UserPage is one page of users with their roles.
type UserPage struct {
	Users []backend.UserWithRoles `json:"users"`
	Meta  pagination.Meta         `json:"meta"`
}

// OrderPage is one page of orders across all users.
type OrderPage struct {
	Orders []backend.Order `json:"orders"`
	Meta   pagination.Meta `json:"meta"`
}

// SetupInput creates the first super administrator.
type SetupInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name" validate:"required,max=200"`
}

// NewService builds the admin service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Session == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if params.Records == nil {
		return nil, fmt.Errorf("admin records required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{session: params.Session, records: params.Records, logg: logg, timeout: timeout}, nil
}

// CreateSuperAdmin registers a new account and promotes it to super admin.
// It succeeds only while no super admin exists.
func (s *Service) CreateSuperAdmin(ctx context.Context, input SetupInput) error {
	if err := s.session.SignUp(ctx, strings.TrimSpace(input.Email), input.Password, strings.TrimSpace(input.FullName)); err != nil {
		return err
	}
	snap := s.session.Current()
	if snap.User == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "account created without a session")
	}
	user := *snap.User

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err := s.records.CreateSuperAdmin(callCtx, user.ID)
	cancel()
	if errors.Is(err, backend.ErrSuperAdminExists) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a super admin already exists")
	}
	if err != nil {
		return recordError(err, "create super admin")
	}

	s.logg.Warn(s.logg.WithUserID(ctx, user.ID.String()), "super admin created")
	return s.session.Bootstrap(ctx, user)
}

// ListUsers returns a page of users with their roles, newest first.
func (s *Service) ListUsers(ctx context.Context, page pagination.Params) (*UserPage, error) {
	if err := s.requireAdmin(); err != nil {
		return nil, err
	}
	page = page.Normalize()
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	users, total, err := s.records.ListUsers(callCtx, page)
	if err != nil {
		return nil, recordError(err, "list users")
	}
	return &UserPage{Users: users, Meta: page.MetaFor(total)}, nil
}

// AssignRole grants role to userID. Granting super_admin needs a super admin.
func (s *Service) AssignRole(ctx context.Context, userID uuid.UUID, role enums.Role) error {
	if err := s.authorizeRoleChange(role); err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.records.AssignRole(callCtx, userID, role); err != nil {
		return recordError(err, "assign role")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"target_user_id": userID.String(), "role": role}), "role assigned")
	return nil
}

// RemoveRole revokes role from userID. Revoking super_admin needs a super admin.
func (s *Service) RemoveRole(ctx context.Context, userID uuid.UUID, role enums.Role) error {
	if err := s.authorizeRoleChange(role); err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.records.RemoveRole(callCtx, userID, role); err != nil {
		return recordError(err, "remove role")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"target_user_id": userID.String(), "role": role}), "role removed")
	return nil
}

// SystemStats counts users, orders, appointments and ambulance requests.
// Any failure is logged and reported as all zeros.
func (s *Service) SystemStats(ctx context.Context) (SystemStats, error) {
	if err := s.requireAdmin(); err != nil {
		return SystemStats{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var stats SystemStats
	targets := []struct {
		table backend.Table
		dst   *int64
	}{
		{backend.TableUsers, &stats.TotalUsers},
		{backend.TableOrders, &stats.TotalOrders},
		{backend.TableAppointments, &stats.TotalAppointments},
		{backend.TableAmbulanceRequests, &stats.TotalEmergencyRequests},
	}
	group, groupCtx := errgroup.WithContext(callCtx)
	for _, target := range targets {
		target := target
		group.Go(func() error {
			count, err := s.records.CountRows(groupCtx, target.table)
			if err != nil {
				return fmt.Errorf("count %s: %w", target.table, err)
			}
			*target.dst = count
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		s.logg.Error(ctx, "failed to load system stats", err)
		return SystemStats{}, nil
	}
	return stats, nil
}

// ListOrders returns a page of orders across all users, newest first.
func (s *Service) ListOrders(ctx context.Context, page pagination.Params) (*OrderPage, error) {
	if err := s.requireAdmin(); err != nil {
		return nil, err
	}
	page = page.Normalize()
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	orders, total, err := s.records.ListOrders(callCtx, backend.OrderFilter{Page: page})
	if err != nil {
		return nil, recordError(err, "list orders")
	}
	return &OrderPage{Orders: orders, Meta: page.MetaFor(total)}, nil
}

// UpdateOrderStatus sets the status of an order.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.records.UpdateOrderStatus(callCtx, orderID, status); err != nil {
		return recordError(err, "update order status")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"order_id": orderID.String(), "status": status}), "order status updated")
	return nil
}

func (s *Service) requireAdmin() error {
	snap := s.session.Current()
	if !snap.Authenticated() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	for _, role := range snap.Roles {
		if role.IsAdministrative() {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
}

func (s *Service) authorizeRoleChange(role enums.Role) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	if !role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if role != enums.RoleSuperAdmin {
		return nil
	}
	for _, held := range s.session.Current().Roles {
		if held == enums.RoleSuperAdmin {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "super admin role required")
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
