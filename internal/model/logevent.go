package model

import (
	"time"

	"github.com/rs/zerolog"
)

// LogEvent is one log record handed to the appender by the host.
// The appender never mutates it; it is read by the layout and then discarded.
// Exception carries a rendered error or stack, if any.
type LogEvent struct {
	Timestamp  time.Time         `json:"timestamp"`
	Level      zerolog.Level     `json:"level"`
	Logger     string            `json:"logger" validate:"required"`
	Message    string            `json:"message" validate:"required"`
	Properties map[string]string `json:"properties,omitempty"`
	Exception  string            `json:"exception,omitempty"`
}

// Property returns the named property or "" when absent.
func (e *LogEvent) Property(key string) string {
	if e.Properties == nil {
		return ""
	}
	return e.Properties[key]
}
