package engine

import (
	"sync"
	"time"
)

const (
	mutationTraceSamplesDefault = 256
	defaultSlowCallback         = 16667 * time.Microsecond
)

// MutationSample is one worker turn as seen by the trace buffer.
type MutationSample struct {
	Timestamp  int64   `json:"ts"`
	Worker     int     `json:"worker"`
	Kind       string  `json:"kind"`
	Result     string  `json:"result"`
	Index      int     `json:"index"`
	CallbackMs float64 `json:"callbackMs"`
}

// MutationTimeline is the /mutations response shape.
type MutationTimeline struct {
	Samples       []MutationSample `json:"samples"`
	SlowCallbacks int              `json:"slowCallbacks"`
	ThresholdMs   float64          `json:"thresholdMs"`
}

// MutationTraceBuffer stores recent worker turns in a ring buffer.
type MutationTraceBuffer struct {
	mu        sync.RWMutex
	samples   []MutationSample
	index     int
	count     int
	slow      int
	threshold time.Duration
}

// NewMutationTraceBuffer creates a buffer keeping the last capacity turns.
// Callbacks slower than threshold are counted as slow.
func NewMutationTraceBuffer(capacity int, threshold time.Duration) *MutationTraceBuffer {
	if capacity <= 0 {
		capacity = mutationTraceSamplesDefault
	}
	if threshold <= 0 {
		threshold = defaultSlowCallback
	}
	return &MutationTraceBuffer{
		samples:   make([]MutationSample, capacity),
		threshold: threshold,
	}
}

// Add records a sample. callback is the time spent in the observer.
func (b *MutationTraceBuffer) Add(sample MutationSample, callback time.Duration) {
	sample.CallbackMs = durationToMillis(callback)
	b.mu.Lock()
	b.samples[b.index] = sample
	b.index = (b.index + 1) % len(b.samples)
	if b.count < len(b.samples) {
		b.count++
	}
	if callback > b.threshold {
		b.slow++
	}
	b.mu.Unlock()
}

// Snapshot returns a chronological copy of samples and stats.
func (b *MutationTraceBuffer) Snapshot() MutationTimeline {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := MutationTimeline{
		Samples:       make([]MutationSample, b.count),
		SlowCallbacks: b.slow,
		ThresholdMs:   durationToMillis(b.threshold),
	}
	if b.count < len(b.samples) {
		copy(out.Samples, b.samples[:b.count])
	} else {
		copy(out.Samples, b.samples[b.index:])
		copy(out.Samples[len(b.samples)-b.index:], b.samples[:b.index])
	}
	return out
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
