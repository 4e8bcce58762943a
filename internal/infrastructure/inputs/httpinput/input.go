package httpinput

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/akave-ai/appendlog/internal/infrastructure/inputs"
	"github.com/akave-ai/appendlog/internal/model"
)

const (
	maxBodyBytes  = 4 << 20
	maxLoggedBody = 512
)

var validate = validator.New()

// Input is an HTTP ingest endpoint that turns request bodies into log events.
type Input struct {
	path       string
	logger     string
	listenAddr string
	sink       inputs.EventSink
	server     *http.Server
	listener   net.Listener
	now        func() time.Time
}

// NewInput creates an HTTP input. listenAddr is optional; if set, Start() binds to that address.
func NewInput(basePath, description, logger string, sink inputs.EventSink, listenAddr string) *Input {
	basePath = "/" + strings.Trim(strings.TrimSpace(basePath), "/")
	desc := strings.Trim(strings.TrimSpace(description), "/")
	return &Input{
		path:       strings.TrimSuffix(basePath, "/") + "/" + desc,
		logger:     logger,
		listenAddr: listenAddr,
		sink:       sink,
		now:        time.Now,
	}
}

func (i *Input) Path() string { return i.path }

// payload is the wire form of one event; level is a name such as "warn".
type payload struct {
	Timestamp  time.Time         `json:"timestamp"`
	Level      string            `json:"level"`
	Logger     string            `json:"logger"`
	Message    string            `json:"message"`
	Properties map[string]string `json:"properties"`
	Exception  string            `json:"exception"`
}

func (i *Input) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			w.Header().Set("Allow", "POST, PUT")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil {
			http.Error(w, "read error", http.StatusBadRequest)
			return
		}
		if len(body) > maxBodyBytes {
			http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
			return
		}
		body = bytes.TrimSpace(body)
		if len(body) == 0 {
			http.Error(w, "empty body", http.StatusBadRequest)
			return
		}

		events, err := i.decode(r.Header.Get("Content-Type"), body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Debug().
			Str("path", i.path).
			Int("events", len(events)).
			Str("preview", preview(body)).
			Msg("ingest received")

		accepted := 0
		for _, ev := range events {
			if !i.sink.Accept(ev) {
				break
			}
			accepted++
		}
		if accepted < len(events) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]int{"accepted": accepted, "rejected": len(events) - accepted})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]int{"accepted": accepted})
	})
}

func (i *Input) decode(contentType string, body []byte) ([]model.LogEvent, error) {
	isJSON := strings.HasPrefix(contentType, "application/json") || body[0] == '{' || body[0] == '['
	if !isJSON {
		return i.decodeLines(body), nil
	}

	var payloads []payload
	if body[0] == '[' {
		if err := json.Unmarshal(body, &payloads); err != nil {
			return nil, fmt.Errorf("invalid JSON array: %w", err)
		}
	} else {
		var p payload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("invalid JSON object: %w", err)
		}
		payloads = append(payloads, p)
	}

	events := make([]model.LogEvent, 0, len(payloads))
	for n, p := range payloads {
		ev, err := i.toEvent(p)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", n, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// decodeLines turns every non-blank line of a text body into an info event.
func (i *Input) decodeLines(body []byte) []model.LogEvent {
	var events []model.LogEvent
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), maxBodyBytes)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		events = append(events, model.LogEvent{
			Timestamp: i.now(),
			Level:     zerolog.InfoLevel,
			Logger:    i.logger,
			Message:   line,
		})
	}
	return events
}

func (i *Input) toEvent(p payload) (model.LogEvent, error) {
	level := zerolog.InfoLevel
	if p.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(p.Level))
		if err != nil || parsed == zerolog.NoLevel || parsed == zerolog.Disabled {
			return model.LogEvent{}, fmt.Errorf("unknown level %q", p.Level)
		}
		level = parsed
	}
	ev := model.LogEvent{
		Timestamp:  p.Timestamp,
		Level:      level,
		Logger:     p.Logger,
		Message:    p.Message,
		Properties: p.Properties,
		Exception:  p.Exception,
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = i.now()
	}
	if ev.Logger == "" {
		ev.Logger = i.logger
	}
	if err := validate.Struct(&ev); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return model.LogEvent{}, fmt.Errorf("%s is required", strings.ToLower(verrs[0].Field()))
		}
		return model.LogEvent{}, err
	}
	return ev, nil
}

// Start binds the input's own listener when a listen address is set.
// Without one the input only serves through Handler.
func (i *Input) Start() error {
	if i.listenAddr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", i.listenAddr)
	if err != nil {
		return fmt.Errorf("http input %s: listen %s: %w", i.path, i.listenAddr, err)
	}
	mux := http.NewServeMux()
	mux.Handle(i.path, i.Handler())
	i.listener = ln
	i.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := i.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("listen", ln.Addr().String()).Msg("ingest listener failed")
		}
	}()
	log.Info().Str("listen", ln.Addr().String()).Str("path", i.path).Msg("ingest listening")
	return nil
}

// Addr is the bound address of the input's own listener, or "" when the
// input is mounted on the main server.
func (i *Input) Addr() string {
	if i.listener == nil {
		return ""
	}
	return i.listener.Addr().String()
}

func (i *Input) Stop() error {
	if i.server != nil {
		return i.server.Close()
	}
	return nil
}

func preview(body []byte) string {
	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody]) + "..."
	}
	return string(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
