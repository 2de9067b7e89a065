package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"SignalDeck/internal/domain/models"
	applogger "SignalDeck/pkg/logger"

	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	return l
}

// nopMetrics satisfies repository.Metrics without touching the Prometheus
// registry, which would collide across parallel tests.
type nopMetrics struct{}

func (nopMetrics) RecordEvent(string)                    {}
func (nopMetrics) RecordError(string)                    {}
func (nopMetrics) RecordReconnect()                      {}
func (nopMetrics) RecordAction(string, string)           {}
func (nopMetrics) RecordLatency(string, float64)         {}
func (nopMetrics) SetConnectionStatus(models.ConnStatus) {}
func (nopMetrics) SetVisibleSignals(int)                 {}

// fakeGateway counts completed calls and returns the injected error for
// mutations. A non-zero delay makes snapshot reads honor their context the
// way a real HTTP client does: a cancelled context aborts the call and it is
// never counted.
type fakeGateway struct {
	mu sync.Mutex

	signals   []models.Signal
	positions []models.Position
	stats     models.Stats
	account   models.AccountSnapshot
	settings  models.Settings
	health    models.ChannelHealth

	delay       time.Duration
	mutationErr error
	calls       map[string]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{calls: make(map[string]int)}
}

func (g *fakeGateway) record(op string) {
	g.mu.Lock()
	g.calls[op]++
	g.mu.Unlock()
}

func (g *fakeGateway) callCount(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *fakeGateway) wait(ctx context.Context) error {
	if g.delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(g.delay):
		return nil
	}
}

func (g *fakeGateway) Stats(ctx context.Context) (models.Stats, error) {
	if err := g.wait(ctx); err != nil {
		return models.Stats{}, err
	}
	g.record("stats")
	return g.stats, nil
}

func (g *fakeGateway) Signals(ctx context.Context, _ int) ([]models.Signal, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	g.record("signals")
	return g.signals, nil
}

func (g *fakeGateway) Positions(ctx context.Context) ([]models.Position, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	g.record("positions")
	return g.positions, nil
}

func (g *fakeGateway) Account(ctx context.Context) (models.AccountSnapshot, error) {
	if err := g.wait(ctx); err != nil {
		return models.AccountSnapshot{}, err
	}
	g.record("account")
	return g.account, nil
}

func (g *fakeGateway) Settings(ctx context.Context) (models.Settings, error) {
	if err := g.wait(ctx); err != nil {
		return models.Settings{}, err
	}
	g.record("settings")
	return g.settings, nil
}

func (g *fakeGateway) ChannelStatus(ctx context.Context) (models.ChannelHealth, error) {
	if err := g.wait(ctx); err != nil {
		return models.ChannelHealth{}, err
	}
	g.record("channel_status")
	return g.health, nil
}

func (g *fakeGateway) LotPresets(context.Context, string) ([]float64, error) {
	g.record("lot_presets")
	return []float64{0.01, 0.1}, nil
}

func (g *fakeGateway) LastTradeLot(context.Context) (float64, error) {
	g.record("last_trade_lot")
	return 0.1, nil
}

func (g *fakeGateway) ConfirmSignal(context.Context, string, *float64) error {
	g.record("confirm")
	return g.mutationErr
}

func (g *fakeGateway) RejectSignal(context.Context, string, string) error {
	g.record("reject")
	return g.mutationErr
}

func (g *fakeGateway) CorrectSignal(context.Context, string, models.Direction) error {
	g.record("correct")
	return g.mutationErr
}

func (g *fakeGateway) DismissSignal(context.Context, string) error {
	g.record("dismiss")
	return g.mutationErr
}

func (g *fakeGateway) DismissCompleted(context.Context) error {
	g.record("dismiss_completed")
	return g.mutationErr
}

func (g *fakeGateway) Pause(context.Context) error {
	g.record("pause")
	return g.mutationErr
}

func (g *fakeGateway) Resume(context.Context) error {
	g.record("resume")
	return g.mutationErr
}

// recordingNotifier captures notification calls for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	succeeded []models.ActionType
	failed    []models.ActionType
}

func (n *recordingNotifier) SignalTransition(models.Signal, models.SignalStatus, models.SignalStatus) {
}

func (n *recordingNotifier) ActionSucceeded(action models.ActionType, _ string) {
	n.mu.Lock()
	n.succeeded = append(n.succeeded, action)
	n.mu.Unlock()
}

func (n *recordingNotifier) ActionFailed(action models.ActionType, _ string, _ error) {
	n.mu.Lock()
	n.failed = append(n.failed, action)
	n.mu.Unlock()
}

func (n *recordingNotifier) ConnectionChanged(models.ConnStatus) {}

func newTestStore(t *testing.T, limit int) *Store {
	t.Helper()
	return NewStore(limit, testLogger(t), nopMetrics{})
}

func sig(id string, status models.SignalStatus) models.Signal {
	return models.Signal{
		ID:         id,
		Symbol:     "XAUUSD",
		Direction:  models.DirectionBuy,
		Status:     status,
		ReceivedAt: time.Now(),
	}
}
