package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/akave-ai/appendlog/internal/appender"
	"github.com/akave-ai/appendlog/internal/config"
	"github.com/akave-ai/appendlog/internal/infrastructure/inputs"
	_ "github.com/akave-ai/appendlog/internal/infrastructure/inputs/httpinput"
	"github.com/akave-ai/appendlog/internal/response"
	"github.com/akave-ai/appendlog/internal/storage"
)

const defaultShutdownTimeout = 10 * time.Second

// Server is the HTTP host in front of one appender.
type Server struct {
	Echo     *echo.Echo
	Config   *config.Config
	appender *appender.Appender
	store    storage.AppendStore
	status   *FlushStatusStore
	inputs   []inputs.MessageInput
	logger   zerolog.Logger
}

// New builds the Echo server, mounts the configured ingest inputs and
// registers routes. status may be nil when flush reports are not recorded.
func New(cfg *config.Config, app *appender.Appender, store storage.AppendStore, status *FlushStatusStore, logger zerolog.Logger) (*Server, error) {
	if status == nil {
		status = &FlushStatusStore{}
	}
	logger = logger.With().Str("component", "server").Logger()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(
		middleware.Recover(),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}),
		middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			LogMethod:    true,
			LogURI:       true,
			LogStatus:    true,
			LogLatency:   true,
			LogRequestID: true,
			LogError:     true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				ev := logger.Debug()
				if v.Error != nil || v.Status >= http.StatusInternalServerError {
					ev = logger.Warn().Err(v.Error)
				}
				ev.Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("request_id", v.RequestID).
					Msg("request")
				return nil
			},
		}),
	)

	ingestD := NewIngestDispatcher()
	specs := make([]inputs.InputSpec, 0, len(cfg.Server.IngestPaths))
	for _, p := range cfg.Server.IngestPaths {
		p = strings.Trim(strings.TrimSpace(p), "/")
		if p == "" {
			continue
		}
		inCfg := inputs.Config{"description": p, "base_path": "/ingest"}
		if addr := strings.TrimSpace(cfg.Server.IngestListen[strings.ToLower(p)]); addr != "" {
			inCfg["listen"] = addr
		}
		specs = append(specs, inputs.InputSpec{Type: "http", Config: inCfg})
	}
	started, err := inputs.GlobalRegistry.MountHTTPEndpoints(ingestD, specs, app)
	if err != nil {
		for _, in := range started {
			_ = in.Stop()
		}
		return nil, fmt.Errorf("mount ingest inputs: %w", err)
	}

	s := &Server{
		Echo:     e,
		Config:   cfg,
		appender: app,
		store:    store,
		status:   status,
		inputs:   started,
		logger:   logger,
	}

	e.GET("/inputs/types", func(c echo.Context) error {
		return response.OK(c, map[string]any{"types": inputs.GlobalRegistry.AllTypesInfo()}, "")
	})
	e.Any("/ingest/*", echo.WrapHandler(ingestD))
	e.POST("/flush", s.flush)
	e.GET("/status", s.getStatus)
	e.GET("/blobs", s.listBlobs)
	e.GET("/blobs/content", s.blobContent)

	logger.Info().Strs("ingest", ingestD.Paths()).Msg("routes registered")
	return s, nil
}

func (s *Server) flush(c echo.Context) error {
	rep, err := s.appender.Flush(c.Request().Context())
	if err != nil {
		return response.InternalError(c, "flush failed", err, rep)
	}
	return response.OK(c, rep, "")
}

func (s *Server) getStatus(c echo.Context) error {
	return response.OK(c, map[string]any{
		"container":    s.appender.Container(),
		"current_blob": s.appender.CurrentBlob(),
		"pending":      s.appender.Pending(),
		"dropped":      s.appender.Dropped(),
		"flush":        s.status.Get(),
	}, "")
}

// listBlobs lists blobs under ?prefix=, defaulting to the appender's directory.
func (s *Server) listBlobs(c echo.Context) error {
	lister, ok := s.store.(storage.Lister)
	if !ok {
		return response.BadRequest(c, "listing not supported by this backend", nil)
	}
	prefix := c.QueryParam("prefix")
	if prefix == "" {
		prefix = s.appender.BlobPrefix()
	}
	list, err := lister.ListBlobs(c.Request().Context(), s.appender.Container(), prefix)
	if err != nil {
		return response.InternalError(c, "list blobs failed", err, nil)
	}
	if list == nil {
		list = []storage.BlobInfo{}
	}
	return response.OK(c, map[string]any{"blobs": list}, "")
}

// blobContent returns the lines of ?name=, defaulting to today's blob.
func (s *Server) blobContent(c echo.Context) error {
	reader, ok := s.store.(storage.Reader)
	if !ok {
		return response.BadRequest(c, "reading not supported by this backend", nil)
	}
	name := c.QueryParam("name")
	if name == "" {
		name = s.appender.CurrentBlob()
	}
	data, err := reader.ReadBlob(c.Request().Context(), s.appender.Container(), name)
	if errors.Is(err, storage.ErrBlobNotFound) {
		return response.NotFound(c, "blob not found", err)
	}
	if err != nil {
		return response.InternalError(c, "read blob failed", err, nil)
	}
	lines := []string{}
	if len(data) > 0 {
		lines = strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	}
	return response.OK(c, map[string]any{"name": name, "lines": lines}, "")
}

// Start serves HTTP until ctx is cancelled or the listener fails. On
// cancel, Shutdown runs and Start returns once the appender has flushed.
func (s *Server) Start(ctx context.Context) error {
	timeout := s.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownDone := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		shutdownDone <- s.Shutdown(shutdownCtx)
	}()

	addr := ":" + s.Config.Server.Port
	s.logger.Info().Str("addr", addr).Msg("listening")
	if err := s.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownDone
}

// Shutdown stops taking requests, stops the inputs and closes the appender,
// flushing the remaining events.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)
	for _, in := range s.inputs {
		if stopErr := in.Stop(); stopErr != nil {
			s.logger.Warn().Err(stopErr).Msg("stop input")
		}
	}
	if closeErr := s.appender.Close(ctx); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	return err
}
