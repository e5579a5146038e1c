package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercatohq/barter-backend/pkg/enums"
)

// SellerRegistration records the administrative review of a seller. Only
// users with an approved registration may participate in exchanges.
type SellerRegistration struct {
	ID         uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	Status     enums.RegistrationStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	ApprovedAt *time.Time               `gorm:"column:approved_at"`
	CreatedAt  time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
