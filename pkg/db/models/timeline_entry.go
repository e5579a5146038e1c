package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercatohq/barter-backend/pkg/enums"
)

// TimelineEntry is an immutable audit record of a transition on an exchange.
// Rows are only ever inserted; reads return newest-first.
type TimelineEntry struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ExchangeID  uuid.UUID            `gorm:"column:exchange_id;type:uuid;not null;index"`
	Action      enums.TimelineAction `gorm:"column:action;type:text;not null"`
	Description string               `gorm:"column:description;not null"`
	ActorID     *uuid.UUID           `gorm:"column:actor_id;type:uuid"`
	ActorName   string               `gorm:"column:actor_name;not null"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}
