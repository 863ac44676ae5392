package platform

import (
	"context"
	"fmt"

	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/db/models"
)

var countable = map[backend.Table]any{
	backend.TableUsers:             &models.User{},
	backend.TableUserRoles:         &models.UserRole{},
	backend.TableMedicines:         &models.Medicine{},
	backend.TableOrders:            &models.Order{},
	backend.TableOrderItems:        &models.OrderItem{},
	backend.TableAppointments:      &models.Appointment{},
	backend.TableAmbulanceRequests: &models.AmbulanceRequest{},
}

func (b *Backend) CountRows(ctx context.Context, table backend.Table) (int64, error) {
	model, ok := countable[table]
	if !ok {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var count int64
	if err := b.db.DB().WithContext(ctx).Model(model).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}
