package usecase

import (
	"context"
	"sync"
	"time"

	applogger "SignalDeck/pkg/logger"
)

// Poller is the periodic snapshot fetcher. Each resource pulls on a fixed
// interval, all in parallel, with per-resource failure isolation. Polling
// pauses entirely while the display is not visible and resumes with an
// immediate pull when visibility returns. A faster loop polls the upstream
// channel health.
type Poller struct {
	sy             *Syncer
	log            *applogger.Logger
	interval       time.Duration
	healthInterval time.Duration

	mu      sync.Mutex
	visible bool
	wake    func()          // transport nudge on visibility regained; may be nil
	ctx     context.Context // app-scoped; installed by Run
}

func NewPoller(sy *Syncer, interval, healthInterval time.Duration, log *applogger.Logger) *Poller {
	return &Poller{
		sy:             sy,
		log:            log,
		interval:       interval,
		healthInterval: healthInterval,
		visible:        true,
		ctx:            context.Background(),
	}
}

// SetWake registers the transport wake hook invoked when the display
// becomes visible again.
func (p *Poller) SetWake(wake func()) { p.wake = wake }

// Visible reports whether polling is active.
func (p *Poller) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

// SetVisible updates visibility. Becoming visible triggers an immediate
// full pull and a transport liveness check instead of waiting for the next
// tick. The pulls run on the app context, not the caller's: the request
// that flipped visibility returns long before the fetches finish.
func (p *Poller) SetVisible(visible bool) {
	p.mu.Lock()
	was := p.visible
	p.visible = visible
	ctx := p.ctx
	p.mu.Unlock()

	if visible && !was {
		if p.wake != nil {
			p.wake()
		}
		go p.PullAll(ctx)
		go p.pullHealth(ctx)
	}
}

// Run blocks until ctx is cancelled. ctx also scopes the pulls triggered by
// visibility changes.
func (p *Poller) Run(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	health := time.NewTicker(p.healthInterval)
	defer ticker.Stop()
	defer health.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.Visible() {
				p.PullAll(ctx)
			}
		case <-health.C:
			if p.Visible() {
				p.pullHealth(ctx)
			}
		}
	}
}

// PullAll fetches every resource in parallel. One resource failing never
// blocks the others; failures are logged and retried at the next tick.
func (p *Poller) PullAll(ctx context.Context) {
	fetches := []func(context.Context) error{
		p.sy.FetchSignals,
		p.sy.FetchPositions,
		p.sy.FetchStats,
		p.sy.FetchAccount,
		p.sy.FetchSettings,
	}

	var wg sync.WaitGroup
	for _, fetch := range fetches {
		wg.Add(1)
		go func(fn func(context.Context) error) {
			defer wg.Done()
			if err := fn(ctx); err != nil && ctx.Err() == nil {
				p.log.Warn("snapshot pull failed", applogger.Error(err))
			}
		}(fetch)
	}
	wg.Wait()
}

func (p *Poller) pullHealth(ctx context.Context) {
	if err := p.sy.FetchChannelHealth(ctx); err != nil && ctx.Err() == nil {
		p.log.Debug("channel health pull failed", applogger.Error(err))
	}
}
