// Package appender buffers log events and flushes them, one append-block per
// event, to a date-named append blob.
package appender

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/akave-ai/appendlog/internal/blobname"
	"github.com/akave-ai/appendlog/internal/config"
	"github.com/akave-ai/appendlog/internal/layout"
	"github.com/akave-ai/appendlog/internal/model"
	"github.com/akave-ai/appendlog/internal/storage"
)

type options struct {
	logger  zerolog.Logger
	now     func() time.Time
	newline string
	trigger Trigger
	onError func(error)
	onFlush func(FlushReport)
}

type Option func(*options)

func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.logger = l } }

// WithClock replaces time.Now for blob naming.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithNewline overrides the platform line separator.
func WithNewline(nl string) Option { return func(o *options) { o.newline = nl } }

// WithTrigger replaces the size/level trigger derived from configuration.
func WithTrigger(t Trigger) Option { return func(o *options) { o.trigger = t } }

// WithErrorHandler receives failures of background flushes. By default they
// are logged at error level.
func WithErrorHandler(fn func(error)) Option { return func(o *options) { o.onError = fn } }

// WithOnFlush is called after every non-empty flush, failed or not.
func WithOnFlush(fn func(FlushReport)) Option { return func(o *options) { o.onFlush = fn } }

// Appender owns one buffer, one flush engine and the loop that drives
// size, level and interval triggered flushes.
type Appender struct {
	container string
	namer     *blobname.Namer
	engine    *Engine
	buffer    *Buffer
	trigger   Trigger
	interval  time.Duration
	now       func() time.Time
	logger    zerolog.Logger
	onError   func(error)
	onFlush   func(FlushReport)

	flushMu    sync.Mutex
	loopCtx    context.Context
	cancelLoop context.CancelFunc
	wake       chan struct{}
	stop       chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
	closeErr   error
	dropped    atomic.Uint64
}

// Validate checks cfg without touching storage.
func Validate(cfg config.AppenderConfig) error {
	switch {
	case strings.TrimSpace(cfg.ConnectionString) == "":
		if cfg.ConnectionStringName != "" {
			return &ConfigError{Field: "connection_string", Reason: fmt.Sprintf("is not set and %q did not resolve", cfg.ConnectionStringName)}
		}
		return &ConfigError{Field: "connection_string", Reason: "must be set"}
	case strings.TrimSpace(cfg.ContainerName) == "":
		return &ConfigError{Field: "container_name", Reason: "must be set"}
	case strings.Trim(strings.TrimSpace(cfg.DirectoryName), "/") == "":
		return &ConfigError{Field: "directory_name", Reason: "must be set"}
	case cfg.BufferSize < 0:
		return &ConfigError{Field: "buffer_size", Reason: "must not be negative"}
	case cfg.FlushInterval < 0:
		return &ConfigError{Field: "flush_interval", Reason: "must not be negative"}
	}
	if _, err := blobname.New(cfg.DirectoryName, cfg.DatePattern, cfg.FileNameSuffix, cfg.UTC); err != nil {
		return &ConfigError{Field: "date_pattern", Reason: err.Error()}
	}
	if _, _, err := ParseFlushLevel(cfg.FlushLevel); err != nil {
		return &ConfigError{Field: "flush_level", Reason: err.Error()}
	}
	return nil
}

// Activate validates cfg, lower-cases the container name, creates the
// container if needed and starts the flush loop. Configuration errors are
// returned before any storage call.
func Activate(ctx context.Context, cfg config.AppenderConfig, store storage.AppendStore, lay layout.Layout, opts ...Option) (*Appender, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, &ConfigError{Field: "store", Reason: "must be provided"}
	}
	if lay == nil {
		return nil, &ConfigError{Field: "layout", Reason: "must be provided"}
	}

	o := options{logger: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	size := cfg.BufferSize
	if size == 0 {
		size = DefaultBufferSize
	}
	trigger := o.trigger
	if trigger == nil {
		triggers := []Trigger{SizeTrigger(size)}
		if level, ok, _ := ParseFlushLevel(cfg.FlushLevel); ok {
			triggers = append(triggers, LevelTrigger(level))
		}
		trigger = AnyTrigger(triggers...)
	}

	container := strings.ToLower(strings.TrimSpace(cfg.ContainerName))
	namer, _ := blobname.New(cfg.DirectoryName, cfg.DatePattern, cfg.FileNameSuffix, cfg.UTC)
	logger := o.logger.With().Str("component", "appender").Str("container", container).Logger()

	if err := store.EnsureContainer(ctx, container); err != nil {
		return nil, fmt.Errorf("appender: ensure container %s: %w", container, err)
	}

	a := &Appender{
		container: container,
		namer:     namer,
		engine: NewEngine(EngineConfig{
			Store:     store,
			Layout:    lay,
			Namer:     namer,
			Container: container,
			Now:       o.now,
			Newline:   o.newline,
			Logger:    logger,
		}),
		buffer:   NewBuffer(size),
		trigger:  trigger,
		interval: cfg.FlushInterval,
		now:      o.now,
		logger:   logger,
		onError:  o.onError,
		onFlush:  o.onFlush,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	a.loopCtx, a.cancelLoop = context.WithCancel(context.Background())
	if a.onError == nil {
		a.onError = func(err error) { a.logger.Error().Err(err).Msg("flush failed") }
	}
	go a.run()

	logger.Info().
		Int("buffer_size", size).
		Dur("flush_interval", a.interval).
		Str("blob", a.CurrentBlob()).
		Msg("appender activated")
	return a, nil
}

// Accept buffers ev. It never performs I/O: a due flush is handed to the
// flush loop. It returns false if the appender is closed.
func (a *Appender) Accept(ev model.LogEvent) bool {
	n, ok := a.buffer.Accept(ev)
	if !ok {
		a.dropped.Add(1)
		return false
	}
	if a.trigger.ShouldFlush(&ev, n) {
		select {
		case a.wake <- struct{}{}:
		default:
		}
	}
	return true
}

// Flush drains the buffer and persists the batch before returning.
// Flushes are serialized, so batches reach storage in drain order.
func (a *Appender) Flush(ctx context.Context) (FlushReport, error) {
	a.flushMu.Lock()
	defer a.flushMu.Unlock()

	batch := a.buffer.Drain()
	if len(batch) == 0 {
		return FlushReport{}, nil
	}
	rep, err := a.engine.Flush(ctx, batch)
	if err != nil {
		a.logger.Warn().
			Err(err).
			Int("events", rep.Events).
			Int("appended", rep.Appended).
			Msg("flush aborted, remaining events dropped")
	}
	if a.onFlush != nil {
		a.onFlush(rep)
	}
	return rep, err
}

// Close stops accepting events, stops the flush loop and flushes what is left.
// If ctx ends while a background flush is still running, that flush is
// cancelled and the events still buffered are counted in Dropped and
// reported in the returned error. Only the first call does any work; later
// calls return its result.
func (a *Appender) Close(ctx context.Context) error {
	a.closeOnce.Do(func() { a.closeErr = a.close(ctx) })
	return a.closeErr
}

func (a *Appender) close(ctx context.Context) error {
	defer a.cancelLoop()
	a.buffer.Seal()
	close(a.stop)

	var err error
	select {
	case <-a.done:
		_, err = a.Flush(ctx)
	case <-ctx.Done():
		a.cancelLoop()
		err = fmt.Errorf("appender: waiting for flush loop: %w", ctx.Err())
		if n := len(a.buffer.Drain()); n > 0 {
			a.dropped.Add(uint64(n))
			err = fmt.Errorf("%w: %d buffered events not flushed", err, n)
		}
	}
	if n := a.dropped.Load(); n > 0 {
		a.logger.Warn().Uint64("dropped", n).Msg("events not written")
	}
	a.logger.Info().Msg("appender closed")
	return err
}

// Pending is the number of buffered, not yet flushed events.
func (a *Appender) Pending() int { return a.buffer.Len() }

// Dropped counts events rejected after Close and events abandoned because
// Close timed out.
func (a *Appender) Dropped() uint64 { return a.dropped.Load() }

// Container is the normalized container name.
func (a *Appender) Container() string { return a.container }

// CurrentBlob is the blob a flush started now would write to.
func (a *Appender) CurrentBlob() string { return a.namer.Name(a.now()) }

// BlobPrefix is the listing prefix of every blob this appender writes.
func (a *Appender) BlobPrefix() string { return a.namer.Prefix() }

func (a *Appender) run() {
	defer close(a.done)
	var tick <-chan time.Time
	if a.interval > 0 {
		t := time.NewTicker(a.interval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-a.stop:
			return
		case <-a.wake:
		case <-tick:
		}
		select {
		case <-a.stop:
			return
		default:
		}
		if _, err := a.Flush(a.loopCtx); err != nil {
			a.onError(err)
		}
	}
}
