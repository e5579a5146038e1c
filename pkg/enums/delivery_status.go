package enums

import "fmt"

// DeliveryStatus tracks one side's shipment progress within an exchange.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusPreparing DeliveryStatus = "preparing"
	DeliveryStatusShipped   DeliveryStatus = "shipped"
	DeliveryStatusInTransit DeliveryStatus = "in_transit"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusPending,
	DeliveryStatusPreparing,
	DeliveryStatusShipped,
	DeliveryStatusInTransit,
	DeliveryStatusDelivered,
}

// String implements fmt.Stringer.
func (d DeliveryStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryStatus.
func (d DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// MarksShipment reports whether the status moves the parent exchange into
// transit.
func (d DeliveryStatus) MarksShipment() bool {
	return d == DeliveryStatusShipped || d == DeliveryStatusInTransit
}

// ParseDeliveryStatus converts raw input into a DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
