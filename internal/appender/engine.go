package appender

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/akave-ai/appendlog/internal/blobname"
	"github.com/akave-ai/appendlog/internal/layout"
	"github.com/akave-ai/appendlog/internal/storage"
)

// EngineConfig wires the flush engine to its collaborators.
type EngineConfig struct {
	Store     storage.AppendStore
	Layout    layout.Layout
	Namer     *blobname.Namer
	Container string
	Now       func() time.Time // defaults to time.Now
	Newline   string           // defaults to the platform line separator
	Logger    zerolog.Logger
}

// Engine persists drained batches to the append blob named for "now".
// It is not safe for overlapping Flush calls; the Appender serializes them.
type Engine struct {
	store     storage.AppendStore
	layout    layout.Layout
	namer     *blobname.Namer
	container string
	now       func() time.Time
	newline   string
	logger    zerolog.Logger
}

func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		store:     cfg.Store,
		layout:    cfg.Layout,
		namer:     cfg.Namer,
		container: cfg.Container,
		now:       cfg.Now,
		newline:   cfg.Newline,
		logger:    cfg.Logger,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newline == "" {
		e.newline = platformNewline
	}
	return e
}

// FlushReport summarizes one flush call.
type FlushReport struct {
	Events   int           `json:"events"`
	Appended int           `json:"appended"`
	Blobs    []string      `json:"blobs"`
	Created  []string      `json:"created,omitempty"`
	Started  time.Time     `json:"started_at"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// target is the blob currently being appended to and the separator owed
// before its next line.
type target struct {
	name      string
	separator string
}

// Flush appends every event of batch, one append-block per event, in batch
// order. The blob name is re-resolved before each event, so events formatted
// after midnight go to the next day's blob. Any failure aborts the rest of
// the batch; events already appended stay durable and are not retried.
func (e *Engine) Flush(ctx context.Context, batch Batch) (rep FlushReport, err error) {
	start := time.Now()
	rep.Events = len(batch)
	rep.Started = e.now()
	defer func() {
		rep.Duration = time.Since(start)
		rep.Err = err
	}()
	if len(batch) == 0 {
		return rep, nil
	}

	tgt, ferr := e.prepare(ctx, e.namer.Name(e.now()), &rep)
	if ferr != nil {
		ferr.Index = -1
		return rep, ferr
	}

	for i := range batch {
		if name := e.namer.Name(e.now()); name != tgt.name {
			if tgt, ferr = e.prepare(ctx, name, &rep); ferr != nil {
				ferr.Index = i
				return rep, ferr
			}
		}

		line, err := e.layout.Format(&batch[i])
		if err != nil {
			return rep, &FlushError{Stage: StageFormat, Blob: tgt.name, Index: i, Appended: rep.Appended, Err: err}
		}
		if err := e.store.AppendBlock(ctx, e.container, tgt.name, []byte(tgt.separator+line)); err != nil {
			return rep, &FlushError{Stage: StageAppend, Blob: tgt.name, Index: i, Appended: rep.Appended, Err: err}
		}
		tgt.separator = e.newline
		rep.Appended++
	}

	e.logger.Debug().
		Strs("blobs", rep.Blobs).
		Int("events", rep.Appended).
		Msg("batch appended")
	return rep, nil
}

// prepare makes sure name exists. A blob created here gets no leading
// separator on its first line; a pre-existing one does.
func (e *Engine) prepare(ctx context.Context, name string, rep *FlushReport) (target, *FlushError) {
	rep.Blobs = append(rep.Blobs, name)
	exists, err := e.store.Exists(ctx, e.container, name)
	if err != nil {
		return target{}, &FlushError{Stage: StageResolve, Blob: name, Appended: rep.Appended, Err: err}
	}
	if exists {
		return target{name: name, separator: e.newline}, nil
	}
	if err := e.store.CreateEmpty(ctx, e.container, name); err != nil {
		return target{}, &FlushError{Stage: StageCreate, Blob: name, Appended: rep.Appended, Err: err}
	}
	rep.Created = append(rep.Created, name)
	e.logger.Info().Str("container", e.container).Str("blob", name).Msg("created append blob")
	return target{name: name, separator: ""}, nil
}
