package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercatohq/barter-backend/pkg/enums"
)

// ExchangeItem is a frozen snapshot of a traded product captured when the
// exchange is created. Snapshot fields are never re-synced with the live
// catalog.
type ExchangeItem struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ExchangeID  uuid.UUID          `gorm:"column:exchange_id;type:uuid;not null;index"`
	Side        enums.ExchangeSide `gorm:"column:side;type:text;not null"`
	ProductID   uuid.UUID          `gorm:"column:product_id;type:uuid;not null"`
	ProductName string             `gorm:"column:product_name;not null"`
	ImageURL    *string            `gorm:"column:image_url"`
	SKU         *string            `gorm:"column:sku"`
	Quantity    int                `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal    `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice  decimal.Decimal    `gorm:"column:total_price;type:numeric(12,2);not null"`
	IsLocked    bool               `gorm:"column:is_locked;not null;default:false"`
	LockedAt    *time.Time         `gorm:"column:locked_at"`
	ReleasedAt  *time.Time         `gorm:"column:released_at"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
