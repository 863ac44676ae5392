package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wanterio/wanterio-backend/pkg/enums"
)

// Order is a placed pharmacy order. Payment is recorded, never processed.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Subtotal        decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax             decimal.Decimal     `gorm:"column:tax;type:numeric(12,2);not null"`
	ShippingCost    decimal.Decimal     `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	TotalAmount     decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null;default:pending"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	ShippingName    string              `gorm:"column:shipping_name;not null"`
	ShippingEmail   string              `gorm:"column:shipping_email;not null"`
	ShippingPhone   string              `gorm:"column:shipping_phone;not null"`
	ShippingAddress string              `gorm:"column:shipping_address;not null"`
	ShippingCity    string              `gorm:"column:shipping_city;not null"`
	ShippingZip     string              `gorm:"column:shipping_zip;not null"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is one priced line of an order.
type OrderItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	MedicineID string          `gorm:"column:medicine_id;type:text;not null"`
	Name       string          `gorm:"column:name;not null"`
	Quantity   int             `gorm:"column:quantity;not null"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
