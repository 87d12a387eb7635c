package rooms

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/privatevc/internal/models"
)

func newTestReconciler(gw RoomGateway, interval time.Duration) (*Reconciler, *MonitorStore) {
	monitors := NewMonitorStore()
	return NewReconciler(monitors, gw, ReconcilerConfig{Interval: interval}, nil), monitors
}

func TestCountRoomsByConvention(t *testing.T) {
	t.Parallel()

	r, _ := newTestReconciler(newFakeGateway(), 0)
	list := []models.RoomInfo{
		{Name: "VC-1234"},
		{Name: "VC-5678"},
		{Name: "VC-9999"},
		{Name: "General"},
	}
	assert.Equal(t, 3, r.CountRooms(list))
}

func TestReconcileRenamesOnlyOnChange(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	scope, category := uuid.New(), uuid.New()
	display := gw.addChannel(scope, category, "Private VC count:0", true)
	for _, name := range []string{"VC-1234", "VC-5678", "VC-9999", "General"} {
		gw.addChannel(scope, category, name, false)
	}
	r, monitors := newTestReconciler(gw, 0)
	monitors.Set(scope, display)
	ctx := context.Background()

	require.NoError(t, r.ReconcileScope(ctx, scope))
	assert.Equal(t, "Private VC count:3", gw.label(display))
	assert.Equal(t, 1, gw.renameCount())

	require.NoError(t, r.ReconcileScope(ctx, scope))
	assert.Equal(t, 1, gw.renameCount(), "label already encodes 3")
}

func TestReconcileUnboundScopeIsNoop(t *testing.T) {
	t.Parallel()

	r, _ := newTestReconciler(newFakeGateway(), 0)
	assert.NoError(t, r.ReconcileScope(context.Background(), uuid.New()))
}

func TestReconcileMissingDisplayIsSkipped(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	r, monitors := newTestReconciler(gw, 0)
	scope := uuid.New()
	monitors.Set(scope, uuid.New())

	assert.NoError(t, r.ReconcileScope(context.Background(), scope))
	assert.Equal(t, 0, gw.renameCount())
}

func TestTickIsolatesScopeFailures(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	scopeA, scopeB := uuid.New(), uuid.New()
	catA, catB := uuid.New(), uuid.New()
	displayA := gw.addChannel(scopeA, catA, "Private VC count:0", true)
	displayB := gw.addChannel(scopeB, catB, "Private VC count:0", true)
	gw.addChannel(scopeA, catA, "VC-1000", false)
	gw.addChannel(scopeB, catB, "VC-2000", false)
	gw.addChannel(scopeB, catB, "VC-3000", false)
	gw.renameErr[displayA] = &GatewayError{Op: "rename_display", Err: errors.New("rate limited")}

	r, monitors := newTestReconciler(gw, 0)
	monitors.Set(scopeA, displayA)
	monitors.Set(scopeB, displayB)

	r.Tick(context.Background())

	assert.Equal(t, "Private VC count:0", gw.label(displayA))
	assert.Equal(t, "Private VC count:2", gw.label(displayB))
	assert.Equal(t, uint64(1), r.Ticks())
}

func TestStartIsIdempotentAndStopHalts(t *testing.T) {
	t.Parallel()

	r, _ := newTestReconciler(newFakeGateway(), 20*time.Millisecond)
	r.Start()
	r.Start()

	require.Eventually(t, func() bool { return r.Ticks() >= 3 }, 2*time.Second, 5*time.Millisecond)
	r.Stop()
	stopped := r.Ticks()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, stopped, r.Ticks(), "no ticks after Stop")
	r.Stop()
}

func TestStartRunsFirstPassImmediately(t *testing.T) {
	t.Parallel()

	r, _ := newTestReconciler(newFakeGateway(), time.Hour)
	r.Start()
	defer r.Stop()

	require.Eventually(t, func() bool { return r.Ticks() == 1 }, time.Second, 5*time.Millisecond)
}

func TestBindRejectsForeignDisplay(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	display := gw.addChannel(uuid.New(), uuid.New(), "Private VC count:0", true)
	r, monitors := newTestReconciler(gw, 0)
	scope := uuid.New()

	_, err := r.Bind(context.Background(), scope, display)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	_, ok := monitors.Get(scope)
	assert.False(t, ok)
}

func TestBindReplacesEarlierBinding(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	scope := uuid.New()
	first := gw.addChannel(scope, uuid.New(), "Private VC count:0", true)
	second := gw.addChannel(scope, uuid.New(), "Private VC count:0", true)
	r, monitors := newTestReconciler(gw, 0)
	ctx := context.Background()

	_, err := r.Bind(ctx, scope, first)
	require.NoError(t, err)
	_, err = r.Bind(ctx, scope, second)
	require.NoError(t, err)

	b, ok := monitors.Get(scope)
	require.True(t, ok)
	assert.Equal(t, second, b.DisplayID)
}

func TestSetupCreatesDisplayAndRefreshes(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	scope, category := uuid.New(), uuid.New()
	gw.addChannel(scope, category, "VC-4444", false)
	r, _ := newTestReconciler(gw, 0)

	b, err := r.Setup(context.Background(), scope, category)
	require.NoError(t, err)
	assert.Equal(t, "Private VC count:1", gw.label(b.DisplayID))
}

func TestSetupReusesExistingDisplay(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	scope, category := uuid.New(), uuid.New()
	existing := gw.addChannel(scope, category, "Private VC count:7", true)
	r, _ := newTestReconciler(gw, 0)

	b, err := r.Setup(context.Background(), scope, category)
	require.NoError(t, err)
	assert.Equal(t, existing, b.DisplayID)
	assert.Equal(t, "Private VC count:0", gw.label(existing))
}

func TestStopWaitsForRenameInFlight(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	scope, category := uuid.New(), uuid.New()
	display := gw.addChannel(scope, category, "Private VC count:0", true)
	gw.addChannel(scope, category, "VC-1234", false)

	started := make(chan struct{})
	var finished atomic.Bool
	var renameCtxErr error
	gw.onRename = func(ctx context.Context) {
		close(started)
		time.Sleep(100 * time.Millisecond)
		renameCtxErr = ctx.Err()
		finished.Store(true)
	}

	r, monitors := newTestReconciler(gw, time.Hour)
	monitors.Set(scope, display)
	r.Start()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("rename never started")
	}
	r.Stop()

	assert.True(t, finished.Load(), "Stop returned before the rename finished")
	assert.NoError(t, renameCtxErr)
	assert.Equal(t, "Private VC count:1", gw.label(display))
}
