package enums

import "fmt"

// TicketStatus tracks the lifecycle of an incident ticket.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "abierto"
	TicketStatusInProgress TicketStatus = "en_progreso"
	TicketStatusResolved   TicketStatus = "resuelto"
	TicketStatusClosed     TicketStatus = "cerrado"
)

var validTicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// String implements fmt.Stringer.
func (t TicketStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TicketStatus.
func (t TicketStatus) IsValid() bool {
	for _, candidate := range validTicketStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsFinal reports whether the ticket no longer accepts messages.
func (t TicketStatus) IsFinal() bool {
	return t == TicketStatusResolved || t == TicketStatusClosed
}

// ParseTicketStatus converts raw input into a TicketStatus.
func ParseTicketStatus(value string) (TicketStatus, error) {
	for _, candidate := range validTicketStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ticket status %q", value)
}
