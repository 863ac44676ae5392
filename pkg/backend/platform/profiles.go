package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/db/models"
	"github.com/wanterio/wanterio-backend/pkg/pagination"
	"gorm.io/gorm/clause"
)

// UpsertUser mirrors the identity into the users table keyed by id.
func (b *Backend) UpsertUser(ctx context.Context, user backend.User) error {
	row := models.User{ID: user.ID, Email: user.Email}
	if name := strings.TrimSpace(user.FullName); name != "" {
		row.FullName = &name
	}
	return b.db.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "full_name", "updated_at"}),
		}).
		Create(&row).Error
}

// ListUsers returns one page of profiles, newest first, with their role tags.
func (b *Backend) ListUsers(ctx context.Context, page pagination.Params) ([]backend.UserWithRoles, int64, error) {
	page = page.Normalize()
	conn := b.db.DB().WithContext(ctx)

	var total int64
	if err := conn.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	var rows []models.User
	if err := conn.Order("created_at DESC").Offset(page.Offset()).Limit(page.Limit).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	if len(rows) == 0 {
		return []backend.UserWithRoles{}, total, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var grants []models.UserRole
	if err := conn.Where("user_id IN ?", ids).Order("created_at ASC").Find(&grants).Error; err != nil {
		return nil, 0, fmt.Errorf("list user roles: %w", err)
	}
	rolesByUser := make(map[uuid.UUID][]string, len(rows))
	for _, grant := range grants {
		rolesByUser[grant.UserID] = append(rolesByUser[grant.UserID], string(grant.Role))
	}

	out := make([]backend.UserWithRoles, 0, len(rows))
	for _, row := range rows {
		item := backend.UserWithRoles{
			User:      backend.User{ID: row.ID, Email: row.Email, FullName: deref(row.FullName)},
			Phone:     deref(row.Phone),
			Roles:     rolesByUser[row.ID],
			CreatedAt: row.CreatedAt,
		}
		if item.Roles == nil {
			item.Roles = []string{}
		}
		out = append(out, item)
	}
	return out, total, nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
