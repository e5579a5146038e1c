package models

import (
	"time"

	"github.com/google/uuid"
)

// HoldReasonExchange marks holds created on behalf of an exchange approval.
const HoldReasonExchange = "exchange"

// InventoryHold reserves traded stock while an exchange is in flight. At most
// one active hold exists per exchange item.
type InventoryHold struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ExchangeItemID uuid.UUID  `gorm:"column:exchange_item_id;type:uuid;not null;index"`
	OwnerUserID    uuid.UUID  `gorm:"column:owner_user_id;type:uuid;not null"`
	QuantityHeld   int        `gorm:"column:quantity_held;not null"`
	Reason         string     `gorm:"column:reason;not null;default:'exchange'"`
	IsActive       bool       `gorm:"column:is_active;not null;default:true"`
	ReleasedAt     *time.Time `gorm:"column:released_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
