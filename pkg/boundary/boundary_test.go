package boundary

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/viewmodel/pkg/driver"
	"github.com/go-drift/viewmodel/pkg/engine"
	"github.com/go-drift/viewmodel/pkg/errors"
	"github.com/go-drift/viewmodel/pkg/viewmodel"
)

const waitFor = 5 * time.Second

type delivery struct {
	kind  string
	snap  *Snapshot
	index int
}

// host mimics an embedding application: it keeps every snapshot it is
// handed and releases them itself.
type host struct {
	mu         sync.Mutex
	deliveries []delivery
	destroyed  int
	user       unsafe.Pointer
	badUser    bool
}

func (h *host) record(kind string) ItemFunc {
	return func(user unsafe.Pointer, s *Snapshot, index int) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if user != h.user {
			h.badUser = true
		}
		h.deliveries = append(h.deliveries, delivery{kind: kind, snap: s, index: index})
	}
}

func (h *host) observer() ObserverRecord {
	return ObserverRecord{
		User: h.user,
		DestroyUser: func(user unsafe.Pointer) {
			h.mu.Lock()
			defer h.mu.Unlock()
			if user != h.user {
				h.badUser = true
			}
			h.destroyed++
		},
		InsertedItem: h.record("insert"),
		RemovedItem:  h.record("remove"),
		ModifiedItem: h.record("modify"),
	}
}

func (h *host) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.deliveries)
}

func (h *host) all() []delivery {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]delivery(nil), h.deliveries...)
}

func newHost() *host {
	ctx := new(int)
	return &host{user: unsafe.Pointer(ctx)}
}

func quiet(t *testing.T) {
	t.Helper()
	old := errors.SetHandler(&errors.LogHandler{Logger: slog.New(slog.DiscardHandler)})
	t.Cleanup(func() { errors.SetHandler(old) })
}

func opts(d driver.Driver) []engine.Option {
	return []engine.Option{
		engine.WithDriver(driver.Fixed(d)),
		engine.WithLogger(slog.New(slog.DiscardHandler)),
	}
}

func TestCreateRejectsIncompleteRecord(t *testing.T) {
	rec := newHost().observer()
	rec.RemovedItem = nil

	h, s, err := Create(1, rec)
	require.Error(t, err)
	assert.Nil(t, h)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrIncompleteObserver)

	var eerr *errors.EngineError
	require.True(t, stderrors.As(err, &eerr))
	assert.Equal(t, errors.KindBoundary, eerr.Kind)
}

func TestCreateSurfacesEngineErrors(t *testing.T) {
	_, _, err := Create(-2, newHost().observer())
	assert.ErrorIs(t, err, engine.ErrThreadCount)
}

func TestSingleWorkerLifecycle(t *testing.T) {
	hst := newHost()
	script := driver.NewScripted(
		driver.Step{Kind: driver.Remove, Index: 0},
		driver.Step{Kind: driver.Remove, Index: 0},
	)

	h, initial, err := Create(1, hst.observer(), opts(script)...)
	require.NoError(t, err)
	assert.Equal(t, 0, initial.Len())
	initial.Destroy()

	require.Eventually(t, func() bool { return hst.count() == 2 }, waitFor, time.Millisecond)
	<-script.Exhausted()

	h.Destroy()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, h.Join(ctx))

	got := hst.all()
	require.Len(t, got, 2)

	assert.Equal(t, "insert", got[0].kind)
	assert.Equal(t, 0, got[0].index)
	require.Equal(t, 1, got[0].snap.Len())
	assert.Equal(t, "go-worker-0", string(got[0].snap.ValueAt(0)))

	assert.Equal(t, "remove", got[1].kind)
	assert.Equal(t, 0, got[1].index)
	assert.Equal(t, 0, got[1].snap.Len())

	assert.Equal(t, int64(2), h.LiveSnapshots())
	for _, d := range got {
		d.snap.Destroy()
	}
	assert.Equal(t, int64(0), h.LiveSnapshots())

	assert.Equal(t, 1, hst.destroyed)
	assert.False(t, hst.badUser, "user context must be passed through untouched")
}

func TestDestroyingOneSnapshotLeavesOthersIntact(t *testing.T) {
	hst := newHost()
	script := driver.NewScripted(
		driver.Step{Kind: driver.Modify, Index: 0},
		driver.Step{Kind: driver.Insert},
	)
	h, initial, err := Create(1, hst.observer(), opts(script)...)
	require.NoError(t, err)
	defer initial.Destroy()

	require.Eventually(t, func() bool { return hst.count() == 3 }, waitFor, time.Millisecond)
	h.Destroy()

	got := hst.all()
	got[1].snap.Destroy()

	assert.Equal(t, "go-worker-0", string(got[0].snap.ValueAt(0)))
	assert.Equal(t, []string{"go-worker-0-0", "go-worker-0"}, got[2].snap.ViewModel().Values())
	assert.Equal(t, "go-worker-0-0", string(got[2].snap.ValueAt(0)))

	got[0].snap.Destroy()
	got[2].snap.Destroy()
	assert.Equal(t, int64(1), h.LiveSnapshots(), "only the initial snapshot remains")
}

func TestSnapshotContractViolations(t *testing.T) {
	quiet(t)

	hst := newHost()
	h, initial, err := Create(0, hst.observer(), opts(driver.NewScripted())...)
	require.NoError(t, err)

	assertViolation(t, func() { initial.ValueAt(0) }, "out of range")

	initial.Destroy()
	assertViolation(t, func() { initial.Len() }, "read after destroy")
	assertViolation(t, func() { initial.ValueAt(0) }, "value after destroy")
	assertViolation(t, func() { initial.Destroy() }, "double destroy")

	h.Destroy()
	assert.Equal(t, 1, hst.destroyed)
	assertViolation(t, func() { h.Destroy() }, "double handle destroy")
	assert.Equal(t, 1, hst.destroyed, "teardown still ran exactly once")
}

func TestValueAtEmptyString(t *testing.T) {
	s := newSnapshot(viewmodel.New(""), new(atomic.Int64))
	defer s.Destroy()
	assert.Empty(t, s.ValueAt(0))
}

func assertViolation(t *testing.T, fn func(), msg string) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		_, ok := r.(*errors.ContractError)
		assert.True(t, ok, "%s: recovered %T, want *errors.ContractError", msg, r)
	}()
	fn()
}
