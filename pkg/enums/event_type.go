package enums

import "fmt"

// EventType names the realtime and webhook notification kinds.
type EventType string

const (
	EventTypeNewOrder                EventType = "NEW_ORDER"
	EventTypeOrderStatusUpdate       EventType = "ORDER_STATUS_UPDATE"
	EventTypeOrderAssigned           EventType = "ORDER_ASSIGNED"
	EventTypeDriverLocationUpdate    EventType = "DRIVER_LOCATION_UPDATE"
	EventTypeTicketOpened            EventType = "TICKET_OPENED"
	EventTypeTicketStatusUpdate      EventType = "TICKET_STATUS_UPDATE"
	EventTypeNewTicketMessage        EventType = "NEW_TICKET_MESSAGE"
	EventTypeScheduledOrderProcessed EventType = "SCHEDULED_ORDER_PROCESSED"
	EventTypeNewSystemLog            EventType = "NEW_SYSTEM_LOG"
)

var validEventTypes = []EventType{
	EventTypeNewOrder,
	EventTypeOrderStatusUpdate,
	EventTypeOrderAssigned,
	EventTypeDriverLocationUpdate,
	EventTypeTicketOpened,
	EventTypeTicketStatusUpdate,
	EventTypeNewTicketMessage,
	EventTypeScheduledOrderProcessed,
	EventTypeNewSystemLog,
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
