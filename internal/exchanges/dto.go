package exchanges

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercatohq/barter-backend/pkg/db/models"
	"github.com/mercatohq/barter-backend/pkg/enums"
	"github.com/mercatohq/barter-backend/pkg/pagination"
)

// ItemInput is the client-submitted snapshot of a traded product. The total
// is always recomputed server-side from quantity and unit price.
type ItemInput struct {
	ProductID   uuid.UUID       `json:"product_id" validate:"required"`
	ProductName string          `json:"product_name" validate:"required"`
	ImageURL    *string         `json:"image_url"`
	SKU         *string         `json:"sku"`
	Quantity    int             `json:"quantity" validate:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateExchangeInput carries the data required to propose an exchange.
type CreateExchangeInput struct {
	ReceiverID         uuid.UUID   `json:"receiver_id" validate:"required"`
	InitiatorAddressID *uuid.UUID  `json:"initiator_address_id"`
	InitiatorNotes     *string     `json:"initiator_notes"`
	InitiatorItems     []ItemInput `json:"initiator_items" validate:"required,min=1,dive"`
	ReceiverItems      []ItemInput `json:"receiver_items" validate:"required,min=1,dive"`
}

// DeliveryUpdateInput carries one side's shipment update.
type DeliveryUpdateInput struct {
	DeliveryStatus enums.DeliveryStatus `json:"delivery_status" validate:"required"`
	TrackingNumber *string              `json:"tracking_number"`
}

// ListFilters narrows an exchange listing.
type ListFilters struct {
	Role   *enums.ExchangeSide
	Status *enums.ExchangeStatus
}

// ExchangeList is one page of exchanges plus the cursor for the next page.
type ExchangeList struct {
	Exchanges  []models.Exchange `json:"exchanges"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// ListParams bundles filters and pagination for the read path.
type ListParams struct {
	Filters    ListFilters
	Pagination pagination.Params
}

// ExchangeDetail is the full aggregate returned to a party of the exchange.
type ExchangeDetail struct {
	Exchange         models.Exchange        `json:"exchange"`
	Timeline         []models.TimelineEntry `json:"timeline"`
	InitiatorAddress *models.Address        `json:"initiator_address,omitempty"`
	ReceiverAddress  *models.Address        `json:"receiver_address,omitempty"`
}
