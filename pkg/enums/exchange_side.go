package enums

import "fmt"

// ExchangeSide identifies which party of an exchange an item or delivery
// update belongs to.
type ExchangeSide string

const (
	ExchangeSideInitiator ExchangeSide = "initiator"
	ExchangeSideReceiver  ExchangeSide = "receiver"
)

var validExchangeSides = []ExchangeSide{
	ExchangeSideInitiator,
	ExchangeSideReceiver,
}

// String implements fmt.Stringer.
func (e ExchangeSide) String() string {
	return string(e)
}

// IsValid reports whether the value is a known ExchangeSide.
func (e ExchangeSide) IsValid() bool {
	for _, candidate := range validExchangeSides {
		if candidate == e {
			return true
		}
	}
	return false
}

// Opposite returns the other side of the exchange.
func (e ExchangeSide) Opposite() ExchangeSide {
	if e == ExchangeSideInitiator {
		return ExchangeSideReceiver
	}
	return ExchangeSideInitiator
}

// ParseExchangeSide converts raw input into an ExchangeSide.
func ParseExchangeSide(value string) (ExchangeSide, error) {
	for _, candidate := range validExchangeSides {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid exchange side %q", value)
}
