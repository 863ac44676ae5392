package platform

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/db/models"
	"github.com/wanterio/wanterio-backend/pkg/enums"
	"gorm.io/gorm"
)

// CreateOrder inserts the order and its lines in one transaction.
func (b *Backend) CreateOrder(ctx context.Context, order backend.NewOrder) (*backend.Order, error) {
	row := models.Order{
		UserID:          order.UserID,
		Subtotal:        order.Subtotal,
		Tax:             order.Tax,
		ShippingCost:    order.ShippingCost,
		TotalAmount:     order.Total,
		Status:          enums.OrderStatusPending,
		PaymentMethod:   order.PaymentMethod,
		ShippingName:    order.Shipping.FullName,
		ShippingEmail:   order.Shipping.Email,
		ShippingPhone:   order.Shipping.Phone,
		ShippingAddress: order.Shipping.Address,
		ShippingCity:    order.Shipping.City,
		ShippingZip:     order.Shipping.ZipCode,
	}
	err := b.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(&row).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		lines := make([]models.OrderItem, 0, len(order.Items))
		for _, item := range order.Items {
			lines = append(lines, models.OrderItem{
				OrderID:    row.ID,
				MedicineID: item.MedicineID,
				Name:       item.Name,
				Quantity:   item.Quantity,
				Price:      item.Price,
			})
		}
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return fmt.Errorf("insert order items: %w", err)
			}
		}
		row.Items = lines
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := orderFromModel(row)
	return &out, nil
}

func (b *Backend) ListOrders(ctx context.Context, filter backend.OrderFilter) ([]backend.Order, int64, error) {
	page := filter.Page.Normalize()
	query := b.db.DB().WithContext(ctx).Model(&models.Order{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	var rows []models.Order
	if err := query.Preload("Items").Order("created_at DESC").Offset(page.Offset()).Limit(page.Limit).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	out := make([]backend.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, orderFromModel(row))
	}
	return out, total, nil
}

func (b *Backend) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	res := b.db.DB().WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{"status": status, "updated_at": b.now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return backend.ErrNotFound
	}
	return nil
}

func orderFromModel(row models.Order) backend.Order {
	items := make([]backend.OrderItem, 0, len(row.Items))
	for _, item := range row.Items {
		items = append(items, backend.OrderItem{
			MedicineID: item.MedicineID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Price:      item.Price,
		})
	}
	return backend.Order{
		ID:            row.ID,
		UserID:        row.UserID,
		Status:        row.Status,
		PaymentMethod: row.PaymentMethod,
		Shipping: backend.ShippingInfo{
			FullName: row.ShippingName,
			Email:    row.ShippingEmail,
			Phone:    row.ShippingPhone,
			Address:  row.ShippingAddress,
			City:     row.ShippingCity,
			ZipCode:  row.ShippingZip,
		},
		Subtotal:     row.Subtotal,
		Tax:          row.Tax,
		ShippingCost: row.ShippingCost,
		Total:        row.TotalAmount,
		Items:        items,
		CreatedAt:    row.CreatedAt,
	}
}
