package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/wanterio/wanterio-backend/pkg/enums"
)

// User is the public profile row mirrored from the identity provider.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email     string    `gorm:"column:email;type:text;not null"`
	FullName  *string   `gorm:"column:full_name"`
	Phone     *string   `gorm:"column:phone"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// AuthUser holds credentials for the built-in identity provider.
type AuthUser struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email        string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	FullName     *string    `gorm:"column:full_name"`
	LastSignInAt *time.Time `gorm:"column:last_sign_in_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// UserRole grants one role to one user.
type UserRole struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:user_roles_user_id_role_key"`
	Role      enums.Role `gorm:"column:role;type:text;not null;uniqueIndex:user_roles_user_id_role_key"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (AuthUser) TableName() string { return "auth_users" }
func (UserRole) TableName() string { return "user_roles" }
