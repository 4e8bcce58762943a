package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/akave-ai/appendlog/internal/appender"
	"github.com/akave-ai/appendlog/internal/config"
	"github.com/akave-ai/appendlog/internal/layout"
	"github.com/akave-ai/appendlog/internal/server"
	"github.com/akave-ai/appendlog/internal/storage"
)

func main() {
	boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// A missing .env is fine; variables may come from the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		boot.Fatal().Err(err).Msg("could not read .env")
	}

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("could not load config")
	}
	logger := newLogger(cfg)

	store, err := openStore(cfg.Appender)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Appender.Backend).Msg("could not open storage")
	}
	lay, err := layout.New(cfg.Appender.Layout, cfg.Appender.Pattern)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid layout")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	status := &server.FlushStatusStore{}
	app, err := appender.Activate(ctx, cfg.Appender, store, lay,
		appender.WithLogger(logger),
		appender.WithOnFlush(status.Record),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not activate appender")
	}

	srv, err := server.New(cfg, app, store, status, logger)
	if err != nil {
		_ = app.Close(context.Background())
		logger.Fatal().Err(err).Msg("could not build server")
	}
	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
	logger.Info().Msg("stopped")
}

// openStore validates the appender settings before the backend sees the
// connection string.
func openStore(cfg config.AppenderConfig) (storage.AppendStore, error) {
	if err := appender.Validate(cfg); err != nil {
		return nil, err
	}
	return storage.Open(cfg.Backend, cfg.ConnectionString)
}

// newLogger writes JSON in production and console output elsewhere.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var l zerolog.Logger
	if cfg.IsProduction() {
		l = zerolog.New(os.Stdout)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
	}
	return l.Level(level).With().Timestamp().Str("env", cfg.Primary.Env).Logger()
}
