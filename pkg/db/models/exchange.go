package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercatohq/barter-backend/pkg/enums"
)

// Exchange represents a proposed barter trade between two approved sellers.
// PriceDifference is always recomputed server-side as the receiver item total
// minus the initiator item total.
type Exchange struct {
	ID                      uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	InitiatorID             uuid.UUID            `gorm:"column:initiator_id;type:uuid;not null;index"`
	ReceiverID              uuid.UUID            `gorm:"column:receiver_id;type:uuid;not null;index"`
	Status                  enums.ExchangeStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus           enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PriceDifference         decimal.Decimal      `gorm:"column:price_difference;type:numeric(12,2);not null"`
	InitiatorAddressID      *uuid.UUID           `gorm:"column:initiator_address_id;type:uuid"`
	ReceiverAddressID       *uuid.UUID           `gorm:"column:receiver_address_id;type:uuid"`
	InitiatorNotes          *string              `gorm:"column:initiator_notes"`
	CancellationReason      *string              `gorm:"column:cancellation_reason"`
	InitiatorDeliveryStatus enums.DeliveryStatus `gorm:"column:initiator_delivery_status;type:text;not null;default:'pending'"`
	ReceiverDeliveryStatus  enums.DeliveryStatus `gorm:"column:receiver_delivery_status;type:text;not null;default:'pending'"`
	InitiatorTrackingNumber *string              `gorm:"column:initiator_tracking_number"`
	ReceiverTrackingNumber  *string              `gorm:"column:receiver_tracking_number"`
	ApprovedAt              *time.Time           `gorm:"column:approved_at"`
	ShippedAt               *time.Time           `gorm:"column:shipped_at"`
	DeliveredAt             *time.Time           `gorm:"column:delivered_at"`
	CompletedAt             *time.Time           `gorm:"column:completed_at"`
	CancelledAt             *time.Time           `gorm:"column:cancelled_at"`
	Items                   []ExchangeItem       `gorm:"foreignKey:ExchangeID;constraint:OnDelete:CASCADE"`
	CreatedAt               time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// SideOf resolves which side of the exchange the given user is on. The second
// return value is false when the user is not a party.
func (e *Exchange) SideOf(userID uuid.UUID) (enums.ExchangeSide, bool) {
	switch userID {
	case e.InitiatorID:
		return enums.ExchangeSideInitiator, true
	case e.ReceiverID:
		return enums.ExchangeSideReceiver, true
	}
	return "", false
}
