package server

import (
	"net/http"
	"strings"
	"sync"
)

// IngestDispatcher routes /ingest/<path> to the handlers of mounted inputs.
type IngestDispatcher struct {
	mu       sync.RWMutex
	handlers map[string]http.Handler
}

func NewIngestDispatcher() *IngestDispatcher {
	return &IngestDispatcher{handlers: make(map[string]http.Handler)}
}

// Handle registers h for the full request path (e.g. "/ingest/app").
func (d *IngestDispatcher) Handle(path string, h http.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[normalize(path)] = h
}

// Paths returns the mounted paths.
func (d *IngestDispatcher) Paths() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.handlers))
	for p := range d.handlers {
		out = append(out, p)
	}
	return out
}

func (d *IngestDispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.RLock()
	h, ok := d.handlers[normalize(r.URL.Path)]
	d.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.ServeHTTP(w, r)
}

func normalize(path string) string {
	path = strings.TrimSuffix(path, "/")
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	return path
}
