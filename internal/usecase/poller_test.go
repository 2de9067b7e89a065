package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"SignalDeck/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPoller(t *testing.T, gw *fakeGateway) (*Poller, *Store) {
	t.Helper()
	store := newTestStore(t, 20)
	sy := NewSyncer(gw, store, nil, testLogger(t), nopMetrics{}, 20)
	return NewPoller(sy, time.Hour, time.Hour, testLogger(t)), store
}

func TestPullAllFetchesEveryResource(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	gw.signals = []models.Signal{sig("s1", models.StatusValidated)}
	gw.stats = models.Stats{TotalSignals: 7}
	p, store := newTestPoller(t, gw)

	p.PullAll(context.Background())

	assert.Equal(t, 1, gw.callCount("signals"))
	assert.Equal(t, 1, gw.callCount("positions"))
	assert.Equal(t, 1, gw.callCount("stats"))
	assert.Equal(t, 1, gw.callCount("account"))
	assert.Equal(t, 1, gw.callCount("settings"))

	assert.Len(t, store.Signals(), 1)
	assert.Equal(t, 7, store.Stats().TotalSignals)
}

func TestVisibilityRegainedTriggersImmediatePull(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	p, _ := newTestPoller(t, gw)

	var woke atomic.Bool
	p.SetWake(func() { woke.Store(true) })

	p.SetVisible(false)
	require.False(t, p.Visible())
	assert.Zero(t, gw.callCount("signals"))

	p.SetVisible(true)
	require.Eventually(t, func() bool {
		return gw.callCount("signals") == 1 && gw.callCount("channel_status") == 1
	}, time.Second, 5*time.Millisecond)
	assert.True(t, woke.Load(), "transport nudged on visibility regained")
}

// The handler that flips visibility returns immediately and its request
// context dies with it. The pull must still finish: it runs on the poller's
// own context, so a slow gateway completes even though the caller is gone.
func TestVisibilityPullOutlivesCaller(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	gw.delay = 30 * time.Millisecond
	p, _ := newTestPoller(t, gw)

	p.SetVisible(false)
	p.SetVisible(true)

	require.Eventually(t, func() bool {
		return gw.callCount("signals") == 1 &&
			gw.callCount("positions") == 1 &&
			gw.callCount("stats") == 1 &&
			gw.callCount("account") == 1 &&
			gw.callCount("settings") == 1 &&
			gw.callCount("channel_status") == 1
	}, time.Second, 5*time.Millisecond)
}

// Once Run installs the app context, visibility pulls are bound to it:
// cancelling the app stops them instead of leaking fetches past shutdown.
func TestVisibilityPullStopsWithAppContext(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	gw.delay = 20 * time.Millisecond
	p, _ := newTestPoller(t, gw)

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.ctx == ctx
	}, time.Second, time.Millisecond)
	cancel()

	p.SetVisible(false)
	p.SetVisible(true)

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, gw.callCount("signals"))
	assert.Zero(t, gw.callCount("channel_status"))
}

func TestSetVisibleAlreadyVisibleDoesNotPull(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	p, _ := newTestPoller(t, gw)

	p.SetVisible(true)
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, gw.callCount("signals"))
}
