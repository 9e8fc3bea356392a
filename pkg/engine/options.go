package engine

import (
	"log/slog"
	"time"

	"github.com/go-drift/viewmodel/pkg/driver"
)

// DefaultMaxWorkers bounds the thread count accepted by New.
const DefaultMaxWorkers = 1024

// DefaultValuePrefix tags values inserted by workers, as in "go-worker-3".
const DefaultValuePrefix = "go-worker"

// Option configures a Handle at construction time.
type Option func(*options)

type options struct {
	driver     driver.Factory
	logger     *slog.Logger
	prefix     string
	maxWorkers int
	debugAddr  string

	traceSamples int
	slowCallback time.Duration
}

func defaultOptions() options {
	return options{
		driver:     driver.RandomFactory(driver.DefaultRandomConfig()),
		logger:     slog.Default(),
		prefix:     DefaultValuePrefix,
		maxWorkers: DefaultMaxWorkers,
	}
}

// WithDriver sets the factory that builds each worker's driver.
// A nil factory keeps the default randomized workload.
func WithDriver(f driver.Factory) Option {
	return func(o *options) {
		if f != nil {
			o.driver = f
		}
	}
}

// WithLogger sets the structured logger. Nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithValuePrefix sets the tag for inserted values.
func WithValuePrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithMaxWorkers sets the largest thread count New accepts.
// Values <= 0 keep DefaultMaxWorkers.
func WithMaxWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxWorkers = n
		}
	}
}

// WithDebugAddr serves the handle's inspection endpoints on addr (for
// example "localhost:0") for as long as the handle is alive. Empty disables
// the server.
func WithDebugAddr(addr string) Option {
	return func(o *options) {
		o.debugAddr = addr
	}
}

// WithMutationTrace sizes the recent-mutation buffer and sets the duration
// above which an observer callback counts as slow. Zero keeps the defaults.
func WithMutationTrace(samples int, slowCallback time.Duration) Option {
	return func(o *options) {
		o.traceSamples = samples
		o.slowCallback = slowCallback
	}
}
