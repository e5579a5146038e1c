package enums

import "fmt"

// TimelineAction codes the transition recorded by a timeline entry.
type TimelineAction string

const (
	TimelineActionExchangeCreated   TimelineAction = "exchange_created"
	TimelineActionExchangeApproved  TimelineAction = "exchange_approved"
	TimelineActionExchangeRejected  TimelineAction = "exchange_rejected"
	TimelineActionExchangeCancelled TimelineAction = "exchange_cancelled"
	TimelineActionDeliveryUpdated   TimelineAction = "delivery_updated"
	TimelineActionExchangeCompleted TimelineAction = "exchange_completed"
)

var validTimelineActions = []TimelineAction{
	TimelineActionExchangeCreated,
	TimelineActionExchangeApproved,
	TimelineActionExchangeRejected,
	TimelineActionExchangeCancelled,
	TimelineActionDeliveryUpdated,
	TimelineActionExchangeCompleted,
}

// String implements fmt.Stringer.
func (t TimelineAction) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TimelineAction.
func (t TimelineAction) IsValid() bool {
	for _, candidate := range validTimelineActions {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTimelineAction converts raw input into a TimelineAction.
func ParseTimelineAction(value string) (TimelineAction, error) {
	for _, candidate := range validTimelineActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid timeline action %q", value)
}
