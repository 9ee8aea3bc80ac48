package enums

import "fmt"

// ScheduledStatus tracks a queued future order through the release sweep.
type ScheduledStatus string

const (
	ScheduledStatusPending   ScheduledStatus = "pendiente"
	ScheduledStatusProcessed ScheduledStatus = "procesado"
	ScheduledStatusError     ScheduledStatus = "error"
)

var validScheduledStatuses = []ScheduledStatus{
	ScheduledStatusPending,
	ScheduledStatusProcessed,
	ScheduledStatusError,
}

// String implements fmt.Stringer.
func (s ScheduledStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ScheduledStatus.
func (s ScheduledStatus) IsValid() bool {
	for _, candidate := range validScheduledStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the sweep will never claim the row again.
func (s ScheduledStatus) IsTerminal() bool {
	return s == ScheduledStatusProcessed || s == ScheduledStatusError
}

// ParseScheduledStatus converts raw input into a ScheduledStatus.
func ParseScheduledStatus(value string) (ScheduledStatus, error) {
	for _, candidate := range validScheduledStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid scheduled status %q", value)
}
