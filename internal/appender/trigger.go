package appender

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/akave-ai/appendlog/internal/model"
)

// DefaultBufferSize is used when the configured buffer size is zero.
const DefaultBufferSize = 512

// Trigger decides, after each accepted event, whether a flush is due.
// Time-based flushing is handled by the appender's flush loop.
type Trigger interface {
	ShouldFlush(ev *model.LogEvent, buffered int) bool
}

// TriggerFunc adapts a function to Trigger.
type TriggerFunc func(ev *model.LogEvent, buffered int) bool

func (f TriggerFunc) ShouldFlush(ev *model.LogEvent, buffered int) bool { return f(ev, buffered) }

// SizeTrigger fires once size events are buffered. A size of 1 or less
// flushes every event.
func SizeTrigger(size int) Trigger {
	return TriggerFunc(func(_ *model.LogEvent, buffered int) bool {
		return buffered >= size
	})
}

// LevelTrigger fires on any event at or above min.
func LevelTrigger(min zerolog.Level) Trigger {
	return TriggerFunc(func(ev *model.LogEvent, _ int) bool {
		if ev.Level == zerolog.NoLevel || ev.Level == zerolog.Disabled {
			return false
		}
		return ev.Level >= min
	})
}

// AnyTrigger fires when any of ts fires. Nil entries are ignored.
func AnyTrigger(ts ...Trigger) Trigger {
	return TriggerFunc(func(ev *model.LogEvent, buffered int) bool {
		for _, t := range ts {
			if t != nil && t.ShouldFlush(ev, buffered) {
				return true
			}
		}
		return false
	})
}

// ParseFlushLevel parses the flush_level setting. "" and "none" disable
// level-triggered flushing (ok is false).
func ParseFlushLevel(s string) (level zerolog.Level, ok bool, err error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "none" {
		return zerolog.NoLevel, false, nil
	}
	level, err = zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, false, fmt.Errorf("flush level %q: %w", s, err)
	}
	if level == zerolog.NoLevel || level == zerolog.Disabled {
		return zerolog.NoLevel, false, fmt.Errorf("flush level %q is not a severity", s)
	}
	return level, true, nil
}
