package enums

import "fmt"

// ExchangeStatus tracks the lifecycle of a retailer-to-retailer exchange.
type ExchangeStatus string

const (
	ExchangeStatusPending   ExchangeStatus = "pending"
	ExchangeStatusApproved  ExchangeStatus = "approved"
	ExchangeStatusRejected  ExchangeStatus = "rejected"
	ExchangeStatusCancelled ExchangeStatus = "cancelled"
	ExchangeStatusInTransit ExchangeStatus = "in_transit"
	ExchangeStatusCompleted ExchangeStatus = "completed"
)

var validExchangeStatuses = []ExchangeStatus{
	ExchangeStatusPending,
	ExchangeStatusApproved,
	ExchangeStatusRejected,
	ExchangeStatusCancelled,
	ExchangeStatusInTransit,
	ExchangeStatusCompleted,
}

// String implements fmt.Stringer.
func (e ExchangeStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known ExchangeStatus.
func (e ExchangeStatus) IsValid() bool {
	for _, candidate := range validExchangeStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from the status.
func (e ExchangeStatus) IsTerminal() bool {
	switch e {
	case ExchangeStatusRejected, ExchangeStatusCancelled, ExchangeStatusCompleted:
		return true
	}
	return false
}

// ParseExchangeStatus converts raw input into an ExchangeStatus.
func ParseExchangeStatus(value string) (ExchangeStatus, error) {
	for _, candidate := range validExchangeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid exchange status %q", value)
}
