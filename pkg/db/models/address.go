package models

import (
	"time"

	"github.com/google/uuid"
)

// Address is a user-owned shipping address. At most one active address per
// user carries IsDefault; deletes are soft.
type Address struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	Label      *string    `gorm:"column:label"`
	Line1      string     `gorm:"column:line1;not null"`
	Line2      *string    `gorm:"column:line2"`
	City       string     `gorm:"column:city;not null"`
	State      string     `gorm:"column:state;not null"`
	PostalCode string     `gorm:"column:postal_code;not null"`
	Country    string     `gorm:"column:country;not null;default:'US'"`
	Phone      *string    `gorm:"column:phone"`
	IsDefault  bool       `gorm:"column:is_default;not null;default:false"`
	IsActive   bool       `gorm:"column:is_active;not null;default:true"`
	DeletedAt  *time.Time `gorm:"column:deleted_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
