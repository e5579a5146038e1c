package models

import (
	"time"

	"github.com/google/uuid"
)

// User holds the identity fields this service reads. Account management lives
// in the identity platform; this table is a read-side projection.
type User struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email       string    `gorm:"column:email;not null;uniqueIndex"`
	DisplayName string    `gorm:"column:display_name;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
