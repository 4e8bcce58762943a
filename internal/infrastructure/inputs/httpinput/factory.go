package httpinput

import (
	"fmt"

	"github.com/akave-ai/appendlog/internal/infrastructure/inputs"
)

func init() {
	inputs.GlobalRegistry.Register(&Factory{})
}

// Factory creates HTTP ingest inputs. Registers as "http".
type Factory struct{}

func (f *Factory) Name() string {
	return "http"
}

func (f *Factory) ConfigSpec() inputs.InputTypeInfo {
	return inputs.InputTypeInfo{
		Type:        "http",
		Description: "HTTP ingest endpoint. Accepts a JSON event, a JSON array of events or plain-text lines and hands them to the appender.",
		Fields: []inputs.ConfigField{
			{Name: "description", Type: "string", Required: true, Description: "Path segment for the endpoint (e.g. 'app' → /ingest/app)", Example: "app"},
			{Name: "base_path", Type: "string", Required: false, Description: "Base path prefix", Example: "/ingest"},
			{Name: "logger", Type: "string", Required: false, Description: "Logger name for events that do not carry one; defaults to description", Example: "web"},
			{Name: "listen", Type: "string", Required: false, Description: "Optional host:port to bind instead of being mounted on the main server", Example: ":9001"},
		},
	}
}

func (f *Factory) Create(cfg inputs.Config, sink inputs.EventSink) (inputs.MessageInput, error) {
	description := cfg.String("description")
	if description == "" {
		return nil, fmt.Errorf("missing 'description' for http input")
	}
	if sink == nil {
		return nil, fmt.Errorf("http input %s: nil sink", description)
	}
	basePath := cfg.String("base_path")
	if basePath == "" {
		basePath = "/ingest"
	}
	logger := cfg.String("logger")
	if logger == "" {
		logger = description
	}
	return NewInput(basePath, description, logger, sink, cfg.String("listen")), nil
}
