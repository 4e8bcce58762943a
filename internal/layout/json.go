package layout

import (
	"encoding/json"
	"fmt"

	"github.com/akave-ai/appendlog/internal/model"
)

// JSON renders each event as one compact JSON object.
type JSON struct{}

func (JSON) Format(ev *model.LogEvent) (string, error) {
	if ev == nil {
		return "", fmt.Errorf("layout: nil event")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("layout: json: %w", err)
	}
	return string(raw), nil
}
