package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"record-mapper/ingest"
	"record-mapper/store"
)

// Environment variables overriding the file.
const (
	EnvDriver   = "RECORD_MAPPER_DRIVER"
	EnvDSN      = "RECORD_MAPPER_DSN"
	EnvWorkers  = "RECORD_MAPPER_WORKERS"
	EnvLogLevel = "RECORD_MAPPER_LOG_LEVEL"
)

// Config is the application configuration.
type Config struct {
	// Storage selects the database.
	Storage store.Config `yaml:"storage"`

	// Namespace is the PostgreSQL schema or MySQL database of the tables.
	Namespace string `yaml:"namespace,omitempty"`

	// Mapping is an optional source-mapping file applied to the record types.
	Mapping string `yaml:"mapping,omitempty"`

	// Units is an optional unit table replacing the embedded one.
	Units string `yaml:"units,omitempty"`

	// Booleans are the raw tokens of boolean fields.
	Booleans Booleans `yaml:"booleans,omitempty"`

	// OptionalErrors also reports conversion failures of optional fields.
	OptionalErrors bool `yaml:"optional_errors,omitempty"`

	// Workers bounds concurrent ingestion; 0 means GOMAXPROCS.
	Workers int `yaml:"workers,omitempty"`

	// BatchSize is the number of rows committed per transaction.
	BatchSize int `yaml:"batch_size,omitempty"`

	Logging Logging `yaml:"logging,omitempty"`
}

// Booleans lists boolean tokens. Empty lists fall back to the defaults.
type Booleans struct {
	True  []string `yaml:"true,omitempty"`
	False []string `yaml:"false,omitempty"`
	Null  []string `yaml:"null,omitempty"`
}

// Logging configures the slog handler.
type Logging struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level,omitempty"`
	// Format is text or json.
	Format string `yaml:"format,omitempty"`
}

const defaultBatchSize = 500

// Default returns the configuration used without a file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)

	return cfg
}

// Load reads the file at path, or starts from Default when path is empty,
// and applies the environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		var err error

		cfg, err = LoadFile(path)
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile loads and parses a YAML config file from the given path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses YAML data into a Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = store.DefaultDriver
	}

	if cfg.Storage.Driver == store.DefaultDriver && cfg.Storage.DSN == "" {
		cfg.Storage.DSN = store.DefaultDSN
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// ApplyEnv overrides the configuration from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDriver); ok && v != "" {
		c.Storage.Driver = v
	}

	if v, ok := lookup(EnvDSN); ok && v != "" {
		c.Storage.DSN = v
	}

	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", EnvWorkers, err)
		}

		c.Workers = n
	}

	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}

	return c.Validate()
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("invalid config: workers must not be negative, got %d", c.Workers)
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid config: unknown log format %q", c.Logging.Format)
	}

	return nil
}

// BooleanCases returns the ingestion token sets.
func (c *Config) BooleanCases() ingest.BooleanCases {
	b := c.Booleans
	if len(b.True) == 0 && len(b.False) == 0 {
		def := ingest.DefaultBooleanCases()
		def.Null = ingest.NewBooleanCases(nil, nil, b.Null).Null

		return def
	}

	return ingest.NewBooleanCases(b.True, b.False, b.Null)
}

// EngineOptions returns the ingestion options of the configuration.
func (c *Config) EngineOptions() []ingest.Option {
	opts := []ingest.Option{ingest.WithBooleanCases(c.BooleanCases())}
	if c.OptionalErrors {
		opts = append(opts, ingest.WithOptionalErrors())
	}

	return opts
}

// LogLevel parses the configured level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("invalid config: %w", err)
	}

	return level, nil
}

// NewLogger builds the slog logger writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}
