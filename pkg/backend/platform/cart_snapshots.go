package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (b *Backend) SaveCartSnapshot(ctx context.Context, userID uuid.UUID, snapshot backend.CartSnapshot) error {
	row := models.CartSnapshot{
		UserID:      userID,
		Payload:     snapshot.Payload,
		LastUpdated: snapshot.LastUpdated.UTC(),
	}
	err := b.db.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "last_updated", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save cart snapshot: %w", err)
	}
	return nil
}

func (b *Backend) LoadCartSnapshot(ctx context.Context, userID uuid.UUID) (*backend.CartSnapshot, error) {
	var row models.CartSnapshot
	err := b.db.DB().WithContext(ctx).First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart snapshot: %w", err)
	}
	return &backend.CartSnapshot{Payload: row.Payload, LastUpdated: row.LastUpdated}, nil
}
