package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Medicine is a pharmacy catalogue entry.
type Medicine struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name          string          `gorm:"column:name;not null"`
	Description   *string         `gorm:"column:description"`
	Category      *string         `gorm:"column:category"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	StockQuantity int             `gorm:"column:stock_quantity;not null;default:0"`
	ImageURL      *string         `gorm:"column:image_url"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
