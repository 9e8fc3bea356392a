package config

import (
	"bytes"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/viewmodel/pkg/driver"
	"github.com/go-drift/viewmodel/pkg/engine"
	"github.com/go-drift/viewmodel/pkg/errors"
	"github.com/go-drift/viewmodel/pkg/viewmodel"
)

func TestResolveMissingFileUsesDefaults(t *testing.T) {
	r, err := Resolve(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultWorkers, r.Workers)
	assert.Equal(t, engine.DefaultMaxWorkers, r.MaxWorkers)
	assert.Equal(t, engine.DefaultValuePrefix, r.ValuePrefix)
	assert.Equal(t, driver.DefaultRandomConfig(), r.Random)
	assert.Zero(t, r.Rate)
	assert.Equal(t, slog.LevelInfo, r.LogLevel)
	assert.Equal(t, "text", r.LogFormat)
}

func TestResolveEmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), nil, 0o644))

	r, err := Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkers, r.Workers)
}

func TestResolveFromFile(t *testing.T) {
	dir := t.TempDir()
	doc := `
engine:
  workers: 0
  max_workers: 16
  value_prefix: swift-thread
driver:
  base_delay: 10ms
  jitter: 5ms
  weights:
    insert: 1
    remove: 0
    modify: 3
  seed: 42
  rate_per_second: 20
log:
  level: debug
  format: json
debug:
  addr: localhost:0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(doc), 0o644))

	r, err := Resolve(dir)
	require.NoError(t, err)

	assert.Equal(t, 0, r.Workers, "an explicit zero is kept")
	assert.Equal(t, 16, r.MaxWorkers)
	assert.Equal(t, "swift-thread", r.ValuePrefix)
	assert.Equal(t, driver.RandomConfig{
		BaseDelay:    10 * time.Millisecond,
		Jitter:       5 * time.Millisecond,
		InsertWeight: 1,
		RemoveWeight: 0,
		ModifyWeight: 3,
		Seed:         42,
	}, r.Random)
	assert.InDelta(t, 20.0, float64(r.Rate), 0)
	assert.Equal(t, 1, r.Burst, "burst defaults to one when a rate is set")
	assert.Equal(t, slog.LevelDebug, r.LogLevel)
	assert.Equal(t, "json", r.LogFormat)
	assert.Equal(t, "localhost:0", r.DebugAddr)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "engine:\n  threads: 3\n"},
		{"negative workers", "engine:\n  workers: -1\n"},
		{"negative weight", "driver:\n  weights:\n    insert: -1\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"bad format", "log:\n  format: xml\n"},
		{"bad duration", "driver:\n  base_delay: soon\n"},
		{"negative rate", "driver:\n  rate_per_second: -3\n"},
		{"not yaml", "engine: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)

			var eerr *errors.EngineError
			require.True(t, stderrors.As(err, &eerr))
			assert.Equal(t, errors.KindConfig, eerr.Kind)
		})
	}
}

func TestResolveRejectsInconsistentValues(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"workers above max", "engine:\n  workers: 9\n  max_workers: 8\n"},
		{"all weights zero", "driver:\n  weights:\n    insert: 0\n    remove: 0\n    modify: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.doc))
			require.NoError(t, err)
			_, err = cfg.Resolve()
			require.Error(t, err)
		})
	}
}

func TestLoadOptionalPropagatesReadErrors(t *testing.T) {
	dir := t.TempDir()
	// A directory where the file should be makes ReadFile fail with
	// something other than ErrNotExist.
	require.NoError(t, os.Mkdir(filepath.Join(dir, FileName), 0o755))

	_, err := LoadOptional(dir)
	require.Error(t, err)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := &Resolved{LogLevel: slog.LevelWarn, LogFormat: "json"}
	logger := r.Logger(&buf)

	logger.Info("dropped")
	logger.Warn("kept", "worker.id", 3)

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"kept"`)
	assert.Contains(t, out, `"worker.id":3`)
}

func TestOptionsDriveEngine(t *testing.T) {
	cfg, err := Parse([]byte("engine:\n  value_prefix: cfg\ndriver:\n  base_delay: 1h\n  jitter: 0s\n"))
	require.NoError(t, err)
	r, err := cfg.Resolve()
	require.NoError(t, err)

	var inserted []string
	obs := engine.ObserverFuncs{
		OnInsert: func(vm viewmodel.ViewModel, index int) {
			inserted = append(inserted, vm.Values()[index])
		},
	}
	h, initial, err := engine.New(1, obs, r.Options(slog.New(slog.DiscardHandler))...)
	require.NoError(t, err)
	assert.Equal(t, 0, initial.Len())

	require.Eventually(t, func() bool {
		s := h.Snapshot()
		return s.Len() == 1
	}, 5*time.Second, time.Millisecond)
	h.Destroy()
	require.NoError(t, h.JoinAll(t.Context()))

	assert.Equal(t, []string{"cfg-0"}, inserted)
}

func TestDriverFactoryPaced(t *testing.T) {
	r := &Resolved{Random: driver.DefaultRandomConfig(), Rate: 1, Burst: 1}
	d := r.DriverFactory()(0)
	_, ok := d.(*driver.Paced)
	assert.True(t, ok, "a configured rate wraps the random driver")

	r.Rate = 0
	_, ok = r.DriverFactory()(0).(*driver.Random)
	assert.True(t, ok)
}
