package enums

import "fmt"

// LogLevel classifies operational audit entries.
type LogLevel string

const (
	LogLevelInfo     LogLevel = "INFO"
	LogLevelWarning  LogLevel = "WARNING"
	LogLevelError    LogLevel = "ERROR"
	LogLevelCritical LogLevel = "CRITICAL"
)

var validLogLevels = []LogLevel{
	LogLevelInfo,
	LogLevelWarning,
	LogLevelError,
	LogLevelCritical,
}

// String implements fmt.Stringer.
func (l LogLevel) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LogLevel.
func (l LogLevel) IsValid() bool {
	for _, candidate := range validLogLevels {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLogLevel converts raw input into a LogLevel.
func ParseLogLevel(value string) (LogLevel, error) {
	for _, candidate := range validLogLevels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid log level %q", value)
}
