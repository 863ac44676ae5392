package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/wanterio/wanterio-backend/pkg/db/models"
	"github.com/wanterio/wanterio-backend/pkg/enums"
)

// PruneCartSnapshots deletes remote carts untouched since cutoff.
func (b *Backend) PruneCartSnapshots(ctx context.Context, cutoff time.Time) (int64, error) {
	res := b.db.DB().WithContext(ctx).
		Where("last_updated < ?", cutoff.UTC()).
		Delete(&models.CartSnapshot{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune cart snapshots: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ExpireAppointments cancels pending appointments dated before day
// (YYYY-MM-DD).
func (b *Backend) ExpireAppointments(ctx context.Context, day string) (int64, error) {
	res := b.db.DB().WithContext(ctx).
		Model(&models.Appointment{}).
		Where("status = ? AND appointment_date < ?", enums.AppointmentStatusPending, day).
		Updates(map[string]any{"status": enums.AppointmentStatusCancelled, "updated_at": b.now().UTC()})
	if res.Error != nil {
		return 0, fmt.Errorf("expire appointments: %w", res.Error)
	}
	return res.RowsAffected, nil
}
