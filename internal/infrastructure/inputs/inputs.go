// Package inputs defines the host side of the appender: inputs receive log
// events from the outside world and push them into an EventSink.
package inputs

import (
	"net/http"

	"github.com/akave-ai/appendlog/internal/model"
)

// EventSink receives parsed log events. Accept must not block on I/O; it
// returns false when the sink no longer takes events.
type EventSink interface {
	Accept(ev model.LogEvent) bool
}

// Config is a key-value map for input-type-specific configuration.
type Config map[string]any

// String returns the string value of key, or "" if absent or not a string.
func (c Config) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// MessageInput is the minimal interface implemented by all input types.
type MessageInput interface {
	Start() error
	Stop() error
}

// HTTPEndpointInput is implemented by inputs that expose an HTTP endpoint.
type HTTPEndpointInput interface {
	MessageInput
	Path() string
	Handler() http.Handler
}

// Factory creates a MessageInput writing into sink. Each input type
// registers one.
type Factory interface {
	Name() string
	ConfigSpec() InputTypeInfo
	Create(cfg Config, sink EventSink) (MessageInput, error)
}

// ConfigField describes one configuration field for an input type.
type ConfigField struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "string", "number", "bool"
	Required    bool   `json:"required"`
	Description string `json:"description"`
	Example     string `json:"example,omitempty"`
}

// InputTypeInfo is served by GET /inputs/types.
type InputTypeInfo struct {
	Type        string        `json:"type"`
	Description string        `json:"description"`
	Fields      []ConfigField `json:"fields"`
}

// InputSpec describes an input instance to be created at startup.
type InputSpec struct {
	Type   string
	Config Config
}
