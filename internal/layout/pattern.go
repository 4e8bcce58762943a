package layout

import (
	"fmt"
	"strings"
	"time"

	"github.com/akave-ai/appendlog/internal/datefmt"
	"github.com/akave-ai/appendlog/internal/model"
)

// defaultDatePattern matches the ISO8601 rendering of %date.
const defaultDatePattern = "yyyy-MM-dd HH:mm:ss,fff"

type segment func(b *strings.Builder, ev *model.LogEvent)

// Pattern is a conversion-pattern layout.
//
//	%date{fmt} %d{fmt}     event time in local time (fmt uses datefmt tokens)
//	%utcdate{fmt}          event time in UTC
//	%level %p              severity
//	%logger %c             logger name
//	%message %m            message
//	%property{key} %P{key} event property
//	%exception             exception text
//	%newline %n            "\n"
//	%%                     literal percent
type Pattern struct {
	source   string
	segments []segment
}

// NewPattern parses pattern once; Format only walks the parsed segments.
func NewPattern(pattern string) (*Pattern, error) {
	p := &Pattern{source: pattern}
	var lit strings.Builder
	flushLiteral := func() {
		if lit.Len() == 0 {
			return
		}
		s := lit.String()
		p.segments = append(p.segments, func(b *strings.Builder, _ *model.LogEvent) { b.WriteString(s) })
		lit.Reset()
	}

	for i := 0; i < len(pattern); {
		c := pattern[i]
		if c != '%' {
			lit.WriteByte(c)
			i++
			continue
		}
		if i+1 < len(pattern) && pattern[i+1] == '%' {
			lit.WriteByte('%')
			i += 2
			continue
		}
		j := i + 1
		for j < len(pattern) && isNameByte(pattern[j]) {
			j++
		}
		name := pattern[i+1 : j]
		if name == "" {
			return nil, fmt.Errorf("layout: dangling %% at offset %d in %q", i, pattern)
		}
		var option string
		hasOption := false
		if j < len(pattern) && pattern[j] == '{' {
			end := strings.IndexByte(pattern[j:], '}')
			if end < 0 {
				return nil, fmt.Errorf("layout: unterminated option for %%%s in %q", name, pattern)
			}
			option = pattern[j+1 : j+end]
			hasOption = true
			j += end + 1
		}
		seg, err := conversion(name, option, hasOption)
		if err != nil {
			return nil, err
		}
		flushLiteral()
		p.segments = append(p.segments, seg)
		i = j
	}
	flushLiteral()
	return p, nil
}

func (p *Pattern) String() string { return p.source }

func (p *Pattern) Format(ev *model.LogEvent) (string, error) {
	if ev == nil {
		return "", fmt.Errorf("layout: nil event")
	}
	var b strings.Builder
	for _, seg := range p.segments {
		seg(&b, ev)
	}
	return b.String(), nil
}

func conversion(name, option string, hasOption bool) (segment, error) {
	switch name {
	case "date", "d", "utcdate":
		pattern := defaultDatePattern
		if hasOption && option != "" {
			pattern = option
		}
		layout, err := datefmt.Layout(pattern)
		if err != nil {
			return nil, fmt.Errorf("layout: %%%s: %w", name, err)
		}
		utc := name == "utcdate"
		return func(b *strings.Builder, ev *model.LogEvent) {
			ts := ev.Timestamp
			if ts.IsZero() {
				ts = time.Now()
			}
			if utc {
				ts = ts.UTC()
			} else {
				ts = ts.Local()
			}
			b.WriteString(ts.Format(layout))
		}, nil
	case "level", "p":
		return func(b *strings.Builder, ev *model.LogEvent) {
			b.WriteString(strings.ToUpper(ev.Level.String()))
		}, nil
	case "logger", "c":
		return func(b *strings.Builder, ev *model.LogEvent) { b.WriteString(ev.Logger) }, nil
	case "message", "m":
		return func(b *strings.Builder, ev *model.LogEvent) { b.WriteString(ev.Message) }, nil
	case "property", "P":
		if !hasOption || option == "" {
			return nil, fmt.Errorf("layout: %%%s needs a {key} option", name)
		}
		return func(b *strings.Builder, ev *model.LogEvent) { b.WriteString(ev.Property(option)) }, nil
	case "exception":
		return func(b *strings.Builder, ev *model.LogEvent) { b.WriteString(ev.Exception) }, nil
	case "newline", "n":
		return func(b *strings.Builder, _ *model.LogEvent) { b.WriteByte('\n') }, nil
	default:
		return nil, fmt.Errorf("layout: unknown conversion %%%s", name)
	}
}

func isNameByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
