package enums

import "fmt"

// EventType is the routing key for published domain events.
type EventType string

const (
	EventVoteCast               EventType = "vote.cast"
	EventWaitlistJoined         EventType = "waitlist.joined"
	EventCheckoutSessionCreated EventType = "checkout.session_created"
	EventOrderDepositPaid       EventType = "order.deposit_paid"
)

var validEventTypes = []EventType{
	EventVoteCast,
	EventWaitlistJoined,
	EventCheckoutSessionCreated,
	EventOrderDepositPaid,
}

// String implements fmt.Stringer.
func (e EventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EventType.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventType converts raw input into an EventType.
func ParseEventType(value string) (EventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
