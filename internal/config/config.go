package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every recognized environment variable. A double
// underscore separates nesting levels: APPENDLOG_APPENDER__CONTAINER_NAME.
const EnvPrefix = "APPENDLOG_"

type Config struct {
	Primary  Primary        `koanf:"primary" validate:"required"`
	Server   ServerConfig   `koanf:"server" validate:"required"`
	Appender AppenderConfig `koanf:"appender" validate:"required"`
	// ConnectionStrings holds named connection strings that
	// appender.connection_string_name can refer to.
	ConnectionStrings map[string]string `koanf:"connection_strings"`
	LogLevel          string            `koanf:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port            string        `koanf:"port" validate:"required"`
	IngestPaths     []string      `koanf:"ingest_paths"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`

	// IngestListen binds an ingest path to its own host:port instead of
	// mounting it under /ingest on the main server.
	IngestListen map[string]string `koanf:"ingest_listen"`
}

// AppenderConfig is the appender's static configuration. Presence of the
// connection string, container and directory is checked at activation.
type AppenderConfig struct {
	Backend              string        `koanf:"backend" validate:"omitempty,oneof=azure o3 memory"`
	ConnectionString     string        `koanf:"connection_string"`
	ConnectionStringName string        `koanf:"connection_string_name"`
	ContainerName        string        `koanf:"container_name"`
	DirectoryName        string        `koanf:"directory_name"`
	DatePattern          string        `koanf:"date_pattern"`
	FileNameSuffix       string        `koanf:"file_name_suffix"`
	UTC                  bool          `koanf:"utc"`
	BufferSize           int           `koanf:"buffer_size" validate:"gte=0"`
	FlushInterval        time.Duration `koanf:"flush_interval" validate:"gte=0"`
	FlushLevel           string        `koanf:"flush_level" validate:"omitempty,oneof=trace debug info warn error fatal panic none"`
	Layout               string        `koanf:"layout" validate:"omitempty,oneof=pattern json"`
	Pattern              string        `koanf:"pattern"`
}

func defaults() map[string]any {
	return map[string]any{
		"primary.env":               "development",
		"server.port":               "8080",
		"server.ingest_paths":       []string{"app"},
		"server.shutdown_timeout":   "10s",
		"appender.backend":          "azure",
		"appender.date_pattern":     "yyyy_MM_dd",
		"appender.file_name_suffix": ".entry.log",
		"appender.buffer_size":      512,
		"appender.flush_level":      "error",
		"appender.layout":           "pattern",
		"appender.pattern":          "%date [%level] %logger - %message",
		"log_level":                 "info",
	}
}

// Load reads defaults, then APPENDLOG_* environment variables, validates the
// result and resolves the named connection string.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}

	cfg := &Config{}
	err = k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           cfg,
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	cfg.resolveConnectionString()
	return cfg, nil
}

// resolveConnectionString prefers the named reference when it resolves and
// falls back to the direct string otherwise.
func (c *Config) resolveConnectionString() {
	name := strings.ToLower(strings.TrimSpace(c.Appender.ConnectionStringName))
	if name == "" {
		return
	}
	if cs := c.ConnectionStrings[name]; cs != "" {
		c.Appender.ConnectionString = cs
	}
}

// IsProduction reports whether logs should be emitted as JSON.
func (c *Config) IsProduction() bool {
	return c.Primary.Env == "production"
}
