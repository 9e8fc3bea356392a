// Package config loads the optional viewmodel.yaml that tunes an engine
// instance: worker count, workload driver, and logging.
package config

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/viewmodel/pkg/driver"
	"github.com/go-drift/viewmodel/pkg/engine"
	"github.com/go-drift/viewmodel/pkg/errors"
)

// FileName is the configuration file looked up by LoadOptional.
const FileName = "viewmodel.yaml"

// DefaultWorkers is used when the file does not set engine.workers.
const DefaultWorkers = 4

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config represents the optional viewmodel.yaml configuration.
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Driver DriverConfig `yaml:"driver"`
	Log    LogConfig    `yaml:"log"`
	Debug  DebugConfig  `yaml:"debug"`
}

// EngineConfig contains engine settings.
type EngineConfig struct {
	Workers     *int   `yaml:"workers,omitempty" validate:"omitempty,gte=0"`
	MaxWorkers  int    `yaml:"max_workers,omitempty" validate:"gte=0"`
	ValuePrefix string `yaml:"value_prefix,omitempty" validate:"omitempty,max=64,printascii"`
}

// DriverConfig configures the randomized workload.
type DriverConfig struct {
	BaseDelay *time.Duration `yaml:"base_delay,omitempty" validate:"omitempty,gte=0"`
	Jitter    *time.Duration `yaml:"jitter,omitempty" validate:"omitempty,gte=0"`
	Weights   *WeightsConfig `yaml:"weights,omitempty"`
	Seed      uint64         `yaml:"seed,omitempty"`
	// RatePerSecond caps the combined mutation rate of all workers.
	// Zero disables the cap.
	RatePerSecond float64 `yaml:"rate_per_second,omitempty" validate:"gte=0"`
	Burst         int     `yaml:"burst,omitempty" validate:"gte=0"`
}

// WeightsConfig sets the relative likelihood of each mutation kind.
type WeightsConfig struct {
	Insert int `yaml:"insert" validate:"gte=0"`
	Remove int `yaml:"remove" validate:"gte=0"`
	Modify int `yaml:"modify" validate:"gte=0"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format,omitempty" validate:"omitempty,oneof=text json"`
}

// DebugConfig enables the per-handle inspection server.
type DebugConfig struct {
	// Addr is a listen address such as "localhost:0". Every handle binds its
	// own server, so a fixed port only suits a single handle.
	Addr string `yaml:"addr,omitempty"`
}

// Resolved contains configuration with every default applied.
type Resolved struct {
	Workers     int
	MaxWorkers  int
	ValuePrefix string
	Random      driver.RandomConfig
	Rate        rate.Limit
	Burst       int
	LogLevel    slog.Level
	LogFormat   string
	DebugAddr   string
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.New("config.Parse", errors.KindConfig, fmt.Errorf("failed to parse %s: %w", FileName, err))
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, errors.New("config.Parse", errors.KindConfig, fmt.Errorf("invalid %s: %w", FileName, err))
	}
	return &cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("config.Load", errors.KindConfig, fmt.Errorf("failed to read %s: %w", path, err))
	}
	return Parse(data)
}

// LoadOptional reads viewmodel.yaml from dir if present.
func LoadOptional(dir string) (*Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	return cfg, nil
}

// Resolve loads viewmodel.yaml (if present) from dir and applies defaults.
func Resolve(dir string) (*Resolved, error) {
	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}
	return cfg.Resolve()
}

// Resolve applies defaults to c.
func (c *Config) Resolve() (*Resolved, error) {
	r := &Resolved{
		Workers:     DefaultWorkers,
		MaxWorkers:  engine.DefaultMaxWorkers,
		ValuePrefix: engine.DefaultValuePrefix,
		Random:      driver.DefaultRandomConfig(),
		LogLevel:    slog.LevelInfo,
		LogFormat:   "text",
	}

	if c.Engine.Workers != nil {
		r.Workers = *c.Engine.Workers
	}
	if c.Engine.MaxWorkers > 0 {
		r.MaxWorkers = c.Engine.MaxWorkers
	}
	if r.Workers > r.MaxWorkers {
		return nil, errors.New("config.Resolve", errors.KindConfig,
			fmt.Errorf("engine.workers (%d) exceeds engine.max_workers (%d)", r.Workers, r.MaxWorkers))
	}
	if p := strings.TrimSpace(c.Engine.ValuePrefix); p != "" {
		r.ValuePrefix = p
	}

	if c.Driver.BaseDelay != nil {
		r.Random.BaseDelay = *c.Driver.BaseDelay
	}
	if c.Driver.Jitter != nil {
		r.Random.Jitter = *c.Driver.Jitter
	}
	if w := c.Driver.Weights; w != nil {
		if w.Insert+w.Remove+w.Modify == 0 {
			return nil, errors.New("config.Resolve", errors.KindConfig,
				stderrors.New("driver.weights must not all be zero"))
		}
		r.Random.InsertWeight = w.Insert
		r.Random.RemoveWeight = w.Remove
		r.Random.ModifyWeight = w.Modify
	}
	r.Random.Seed = c.Driver.Seed

	if c.Driver.RatePerSecond > 0 {
		r.Rate = rate.Limit(c.Driver.RatePerSecond)
		r.Burst = max(c.Driver.Burst, 1)
	}

	if c.Log.Level != "" {
		if err := r.LogLevel.UnmarshalText([]byte(c.Log.Level)); err != nil {
			return nil, errors.New("config.Resolve", errors.KindConfig, err)
		}
	}
	if c.Log.Format != "" {
		r.LogFormat = c.Log.Format
	}
	r.DebugAddr = strings.TrimSpace(c.Debug.Addr)
	return r, nil
}

// Logger builds a structured logger writing to w.
func (r *Resolved) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: r.LogLevel}
	if r.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// DriverFactory returns the workload factory described by r. When a rate
// is configured, all workers share one limiter.
func (r *Resolved) DriverFactory() driver.Factory {
	f := driver.RandomFactory(r.Random)
	if r.Rate > 0 {
		f = driver.PacedFactory(f, rate.NewLimiter(r.Rate, r.Burst))
	}
	return f
}

// Options returns the engine options described by r. The logger is passed
// in so callers control where output goes.
func (r *Resolved) Options(logger *slog.Logger) []engine.Option {
	return []engine.Option{
		engine.WithDriver(r.DriverFactory()),
		engine.WithMaxWorkers(r.MaxWorkers),
		engine.WithValuePrefix(r.ValuePrefix),
		engine.WithLogger(logger),
		engine.WithDebugAddr(r.DebugAddr),
	}
}
