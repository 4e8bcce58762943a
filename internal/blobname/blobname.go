// Package blobname resolves the dated append-blob name events are written to.
package blobname

import (
	"fmt"
	"strings"
	"time"

	"github.com/akave-ai/appendlog/internal/datefmt"
)

// DefaultSuffix is appended to the dated prefix when no suffix is configured.
const DefaultSuffix = ".entry.log"

// Namer builds "{directory}/{date}{suffix}" names. It holds no clock: the
// caller passes the instant so the name is a pure function of config and date.
type Namer struct {
	directory string
	layout    string
	suffix    string
	utc       bool
}

// New returns a Namer. An empty datePattern or suffix selects the defaults.
func New(directory, datePattern, suffix string, utc bool) (*Namer, error) {
	directory = strings.Trim(strings.TrimSpace(directory), "/")
	if directory == "" {
		return nil, fmt.Errorf("blobname: directory is required")
	}
	if datePattern == "" {
		datePattern = datefmt.Default
	}
	if suffix == "" {
		suffix = DefaultSuffix
	}
	layout, err := datefmt.Layout(datePattern)
	if err != nil {
		return nil, fmt.Errorf("blobname: %w", err)
	}
	return &Namer{directory: directory, layout: layout, suffix: suffix, utc: utc}, nil
}

// Name returns the blob name for the calendar day containing t.
func (n *Namer) Name(t time.Time) string {
	if n.utc {
		t = t.UTC()
	}
	return n.directory + "/" + t.Format(n.layout) + n.suffix
}

// Prefix is the listing prefix shared by every name this Namer produces.
func (n *Namer) Prefix() string {
	return n.directory + "/"
}
