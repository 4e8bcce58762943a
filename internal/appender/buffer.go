package appender

import (
	"sync"

	"github.com/akave-ai/appendlog/internal/model"
)

// Batch is an ordered set of events drained from a Buffer. Once drained it
// is owned by a single flush and never modified.
type Batch []model.LogEvent

// Buffer accumulates accepted events until they are drained. Accept and
// Drain share one lock, so every accepted event lands in exactly one batch.
type Buffer struct {
	mu     sync.Mutex
	events []model.LogEvent
	hint   int
	sealed bool
}

// NewBuffer returns a Buffer that preallocates room for hint events per cycle.
func NewBuffer(hint int) *Buffer {
	if hint < 0 {
		hint = 0
	}
	return &Buffer{hint: hint, events: make([]model.LogEvent, 0, hint)}
}

// Accept appends ev and returns the number of buffered events. It returns
// false without buffering once the buffer is sealed.
func (b *Buffer) Accept(ev model.LogEvent) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed {
		return len(b.events), false
	}
	b.events = append(b.events, ev)
	return len(b.events), true
}

// Drain hands over everything buffered so far and starts a new cycle.
func (b *Buffer) Drain() Batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return nil
	}
	out := b.events
	b.events = make([]model.LogEvent, 0, b.hint)
	return Batch(out)
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Seal rejects further events. Events already buffered can still be drained.
func (b *Buffer) Seal() {
	b.mu.Lock()
	b.sealed = true
	b.mu.Unlock()
}
