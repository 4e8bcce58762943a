// Package layout renders a LogEvent into the single text line the appender writes.
package layout

import (
	"fmt"

	"github.com/akave-ai/appendlog/internal/model"
)

const (
	TypePattern = "pattern"
	TypeJSON    = "json"
)

// DefaultPattern carries no trailing %newline: the appender writes its own
// line separator between events.
const DefaultPattern = "%date [%level] %logger - %message"

// Layout formats one event.
type Layout interface {
	Format(ev *model.LogEvent) (string, error)
}

// Func adapts a plain function to Layout.
type Func func(ev *model.LogEvent) (string, error)

func (f Func) Format(ev *model.LogEvent) (string, error) { return f(ev) }

// New builds the layout named by typ. pattern is only used by the pattern layout.
func New(typ, pattern string) (Layout, error) {
	switch typ {
	case "", TypePattern:
		if pattern == "" {
			pattern = DefaultPattern
		}
		return NewPattern(pattern)
	case TypeJSON:
		return JSON{}, nil
	default:
		return nil, fmt.Errorf("layout: unknown type %q", typ)
	}
}
