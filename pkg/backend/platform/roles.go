package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/db"
	"github.com/wanterio/wanterio-backend/pkg/db/models"
	"github.com/wanterio/wanterio-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListUserRoles returns the raw role tags granted to userID. Errors keep their
// driver cause so callers can detect a missing relation.
func (b *Backend) ListUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var roles []string
	err := b.db.DB().WithContext(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Pluck("role", &roles).Error
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	return roles, nil
}

func (b *Backend) AssignRole(ctx context.Context, userID uuid.UUID, role enums.Role) error {
	if !role.IsValid() {
		return fmt.Errorf("invalid role %q", role)
	}
	return b.grant(b.db.DB().WithContext(ctx), userID, role)
}

func (b *Backend) RemoveRole(ctx context.Context, userID uuid.UUID, role enums.Role) error {
	return b.db.DB().WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		Delete(&models.UserRole{}).Error
}

// AssignDefaultPatientRole calls the assign_default_patient_role function on
// Postgres. SQLite has no stored functions, so the grant is inserted directly.
func (b *Backend) AssignDefaultPatientRole(ctx context.Context, userID uuid.UUID) error {
	if b.db.IsSQLite() {
		return b.grant(b.db.DB().WithContext(ctx), userID, enums.RolePatient)
	}
	if err := b.db.Exec(ctx, "SELECT assign_default_patient_role(?)", userID).Error; err != nil {
		return fmt.Errorf("assign_default_patient_role: %w", err)
	}
	return nil
}

// CreateSuperAdmin grants super_admin to userID when no super admin exists yet.
func (b *Backend) CreateSuperAdmin(ctx context.Context, userID uuid.UUID) error {
	if !b.db.IsSQLite() {
		err := b.db.Exec(ctx, "SELECT create_super_admin(?)", userID).Error
		if db.IsUniqueViolation(err, "") {
			return backend.ErrSuperAdminExists
		}
		if err != nil {
			return fmt.Errorf("create_super_admin: %w", err)
		}
		return nil
	}

	return b.db.WithTx(ctx, func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.UserRole{}).Where("role = ?", enums.RoleSuperAdmin).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return backend.ErrSuperAdminExists
		}
		return b.grant(tx, userID, enums.RoleSuperAdmin)
	})
}

func (b *Backend) grant(conn *gorm.DB, userID uuid.UUID, role enums.Role) error {
	err := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "role"}},
		DoNothing: true,
	}).Create(&models.UserRole{UserID: userID, Role: role}).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("grant %s: %w", role, err)
	}
	return nil
}
