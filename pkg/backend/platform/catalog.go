package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/db/models"
)

func (b *Backend) ListMedicines(ctx context.Context, filter backend.MedicineFilter) ([]backend.Medicine, error) {
	query := b.db.DB().WithContext(ctx).Model(&models.Medicine{})
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category = ?", category)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?", like, like)
	}

	var rows []models.Medicine
	if err := query.Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	out := make([]backend.Medicine, 0, len(rows))
	for _, row := range rows {
		out = append(out, medicineFromModel(row))
	}
	return out, nil
}

func (b *Backend) GetMedicine(ctx context.Context, id string) (*backend.Medicine, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, backend.ErrNotFound
	}
	var row models.Medicine
	if err := b.db.DB().WithContext(ctx).First(&row, "id = ?", parsed).Error; err != nil {
		return nil, notFound(err, "medicine")
	}
	medicine := medicineFromModel(row)
	return &medicine, nil
}

// StockLevels skips ids that are not medicine uuids; they are reported absent.
func (b *Backend) StockLevels(ctx context.Context, ids []string) (map[string]int, error) {
	parsed := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if u, err := uuid.Parse(id); err == nil {
			parsed = append(parsed, u)
		}
	}
	levels := make(map[string]int, len(parsed))
	if len(parsed) == 0 {
		return levels, nil
	}

	var rows []models.Medicine
	if err := b.db.DB().WithContext(ctx).Select("id", "stock_quantity").Where("id IN ?", parsed).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("stock levels: %w", err)
	}
	for _, row := range rows {
		levels[row.ID.String()] = row.StockQuantity
	}
	return levels, nil
}

func medicineFromModel(row models.Medicine) backend.Medicine {
	return backend.Medicine{
		ID:            row.ID.String(),
		Name:          row.Name,
		Description:   deref(row.Description),
		Category:      deref(row.Category),
		ImageURL:      deref(row.ImageURL),
		Price:         row.Price,
		StockQuantity: row.StockQuantity,
	}
}
