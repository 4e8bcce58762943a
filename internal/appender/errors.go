package appender

import (
	"errors"
	"fmt"
)

var (
	ErrConfig = errors.New("appender: invalid configuration")
	ErrFlush  = errors.New("appender: flush failed")
)

// ConfigError is returned by Validate and Activate before any storage call.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("appender: invalid configuration: %s %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// Stage names the flush step that failed.
type Stage string

const (
	StageResolve Stage = "resolve" // existence check of the target blob
	StageCreate  Stage = "create"
	StageFormat  Stage = "format"
	StageAppend  Stage = "append"
)

// FlushError aborts the remainder of a batch. The first Appended events of
// the batch are durable; Index is the event that failed, or -1 when the
// flush failed before reaching any event.
type FlushError struct {
	Stage    Stage
	Blob     string
	Index    int
	Appended int
	Err      error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("appender: flush %s %s (event %d, %d appended): %v", e.Stage, e.Blob, e.Index, e.Appended, e.Err)
}

func (e *FlushError) Unwrap() error { return e.Err }

func (e *FlushError) Is(target error) bool { return target == ErrFlush }
