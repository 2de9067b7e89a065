package usecase

import (
	"context"
	"testing"

	"SignalDeck/internal/domain/models"
	"SignalDeck/internal/service/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSignalsMergesAndCaches(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	gw.signals = []models.Signal{sig("s1", models.StatusValidated)}
	store := newTestStore(t, 20)
	snapshots := cache.NewSnapshotCache(nil)
	sy := NewSyncer(gw, store, snapshots, testLogger(t), nopMetrics{}, 20)

	require.NoError(t, sy.FetchSignals(context.Background()))
	require.Len(t, store.Signals(), 1)

	var cached []models.Signal
	require.True(t, snapshots.Get(context.Background(), cache.KeySignals, &cached))
	assert.Equal(t, "s1", cached[0].ID)
}

func TestWarmStartRestoresCachedSnapshots(t *testing.T) {
	t.Parallel()
	snapshots := cache.NewSnapshotCache(nil)
	ctx := context.Background()
	require.NoError(t, snapshots.Put(ctx, cache.KeySignals, []models.Signal{sig("s1", models.StatusExecuted)}))
	require.NoError(t, snapshots.Put(ctx, cache.KeyStats, models.Stats{TotalSignals: 3}))
	require.NoError(t, snapshots.Put(ctx, cache.KeyAccount, models.AccountSnapshot{Balance: 500}))

	gw := newFakeGateway()
	store := newTestStore(t, 20)
	sy := NewSyncer(gw, store, snapshots, testLogger(t), nopMetrics{}, 20)

	sy.WarmStart(ctx)

	assert.Len(t, store.Signals(), 1)
	assert.Equal(t, 3, store.Stats().TotalSignals)
	assert.Equal(t, 500.0, store.Account().Balance)
	assert.Zero(t, gw.callCount("signals"), "warm start never hits the gateway")
}

func TestWarmStartEmptyCacheIsNoOp(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	store := newTestStore(t, 20)
	sy := NewSyncer(gw, store, cache.NewSnapshotCache(nil), testLogger(t), nopMetrics{}, 20)

	sy.WarmStart(context.Background())
	assert.Empty(t, store.Signals())
}

func TestFetchChannelHealth(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	gw.health = models.ChannelHealth{Connected: true, ChannelName: "gold-signals"}
	store := newTestStore(t, 20)
	sy := NewSyncer(gw, store, nil, testLogger(t), nopMetrics{}, 20)

	require.NoError(t, sy.FetchChannelHealth(context.Background()))
	assert.True(t, store.ChannelHealth().Connected)
	assert.Equal(t, "gold-signals", store.ChannelHealth().ChannelName)
}
