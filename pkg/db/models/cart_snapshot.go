package models

import (
	"time"

	"github.com/google/uuid"
)

// CartSnapshot is the last cart document synced for a user.
type CartSnapshot struct {
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	Payload     string    `gorm:"column:payload;type:text;not null"`
	LastUpdated time.Time `gorm:"column:last_updated;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
