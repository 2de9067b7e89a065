package usecase

import (
	"context"
	"sync"
	"time"

	"SignalDeck/internal/domain/models"
	applogger "SignalDeck/pkg/logger"
)

// Windows holds the per-resource trailing-debounce durations. The event
// path already gives near-instant feedback; the backstop fetch only has to
// bound backend load.
type Windows struct {
	Signals   time.Duration
	Positions time.Duration
	Stats     time.Duration
}

// Reconciler turns bursts of events into a single backstop fetch per
// resource. Each resource key keeps one scheduled task; a qualifying event
// resets its timer, and an event arriving while a fetch is in flight queues
// one fresh debounce cycle for after the fetch resolves, so no event is
// lost to a stale fetch.
type Reconciler struct {
	log   *applogger.Logger
	tasks map[models.Resource]*debounceTask
}

// NewReconciler builds the per-resource task map over the syncer's fetchers.
func NewReconciler(ctx context.Context, sy *Syncer, w Windows, log *applogger.Logger) *Reconciler {
	r := &Reconciler{
		log: log,
		tasks: map[models.Resource]*debounceTask{
			models.ResourceSignals:   newDebounceTask(ctx, w.Signals, sy.FetchSignals, log),
			models.ResourcePositions: newDebounceTask(ctx, w.Positions, sy.FetchPositions, log),
			models.ResourceStats:     newDebounceTask(ctx, w.Stats, sy.FetchStats, log),
		},
	}
	return r
}

// Kick reschedules the backstop fetch for one resource.
func (r *Reconciler) Kick(res models.Resource) {
	if t, ok := r.tasks[res]; ok {
		t.kick()
	}
}

// KickForEvent schedules backstop fetches for every resource the event
// touches.
func (r *Reconciler) KickForEvent(eventType string) {
	for _, res := range models.ResourcesForEvent(eventType) {
		r.Kick(res)
	}
}

// Stop cancels all scheduled tasks. In-flight fetches finish; nothing new
// is scheduled afterwards.
func (r *Reconciler) Stop() {
	for _, t := range r.tasks {
		t.stop()
	}
}

type debounceTask struct {
	ctx    context.Context
	window time.Duration
	fetch  func(context.Context) error
	log    *applogger.Logger

	mu       sync.Mutex
	timer    *time.Timer
	inflight bool
	queued   bool
	stopped  bool
}

func newDebounceTask(ctx context.Context, window time.Duration, fetch func(context.Context) error, log *applogger.Logger) *debounceTask {
	return &debounceTask{ctx: ctx, window: window, fetch: fetch, log: log}
}

func (t *debounceTask) kick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if t.inflight {
		t.queued = true
		return
	}
	if t.timer == nil {
		t.timer = time.AfterFunc(t.window, t.fire)
		return
	}
	t.timer.Reset(t.window)
}

func (t *debounceTask) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.inflight = true
	t.mu.Unlock()

	if err := t.fetch(t.ctx); err != nil && t.ctx.Err() == nil {
		// Stale-but-available wins over a blank screen; the next poll or
		// kick retries.
		t.log.Warn("backstop fetch failed", applogger.Error(err))
	}

	t.mu.Lock()
	t.inflight = false
	rearm := t.queued && !t.stopped
	t.queued = false
	if rearm {
		if t.timer == nil {
			t.timer = time.AfterFunc(t.window, t.fire)
		} else {
			t.timer.Reset(t.window)
		}
	}
	t.mu.Unlock()
}

func (t *debounceTask) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
}
