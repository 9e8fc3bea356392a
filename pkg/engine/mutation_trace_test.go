package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutationTraceBufferWrapsInOrder(t *testing.T) {
	b := NewMutationTraceBuffer(3, time.Millisecond)
	for i := range 5 {
		b.Add(MutationSample{Worker: i}, 0)
	}

	tl := b.Snapshot()
	require.Len(t, tl.Samples, 3)
	assert.Equal(t, 2, tl.Samples[0].Worker)
	assert.Equal(t, 3, tl.Samples[1].Worker)
	assert.Equal(t, 4, tl.Samples[2].Worker)
}

func TestMutationTraceBufferCountsSlowCallbacks(t *testing.T) {
	b := NewMutationTraceBuffer(0, 10*time.Millisecond)
	assert.Equal(t, mutationTraceSamplesDefault, len(b.samples))

	b.Add(MutationSample{Kind: "insert"}, 5*time.Millisecond)
	b.Add(MutationSample{Kind: "modify"}, 20*time.Millisecond)

	tl := b.Snapshot()
	assert.Equal(t, 1, tl.SlowCallbacks)
	assert.InDelta(t, 10.0, tl.ThresholdMs, 1e-9)
	require.Len(t, tl.Samples, 2)
	assert.InDelta(t, 20.0, tl.Samples[1].CallbackMs, 1e-9)
}

func TestMutationTraceBufferEmpty(t *testing.T) {
	tl := NewMutationTraceBuffer(4, 0).Snapshot()
	assert.Empty(t, tl.Samples)
	assert.NotNil(t, tl.Samples, "encodes as [] rather than null")
	assert.InDelta(t, durationToMillis(defaultSlowCallback), tl.ThresholdMs, 1e-9)
}
