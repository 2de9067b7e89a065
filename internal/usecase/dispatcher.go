package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"SignalDeck/internal/domain/models"
	drepo "SignalDeck/internal/domain/repository"
	applogger "SignalDeck/pkg/logger"

	"github.com/go-playground/validator/v10"
)

const historyCap = 100

// Dispatcher parses raw stream frames into typed events, validates them at
// the boundary, filters keepalive echoes, and publishes the rest in arrival
// order to exactly one subscriber. A bounded ring of recent events is kept
// for the dashboard's event feed.
type Dispatcher struct {
	log      *applogger.Logger
	metrics  drepo.Metrics
	validate *validator.Validate
	sink     drepo.EventSink

	sub func(models.Event)

	mu      sync.Mutex
	history []models.Event // ring, oldest first
}

// NewDispatcher creates a dispatcher. sink may be nil when auditing is off.
func NewDispatcher(log *applogger.Logger, metrics drepo.Metrics, sink drepo.EventSink) *Dispatcher {
	return &Dispatcher{
		log:      log,
		metrics:  metrics,
		validate: validator.New(),
		sink:     sink,
	}
}

// Subscribe registers the single active subscriber. Must be called before
// Run; there is deliberately no fan-out at this layer.
func (d *Dispatcher) Subscribe(fn func(models.Event)) { d.sub = fn }

// Run consumes frames until the channel closes or ctx is cancelled. Frames
// are processed strictly in the order received; no reordering or coalescing.
func (d *Dispatcher) Run(ctx context.Context, frames <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-frames:
			if !ok {
				return
			}
			d.HandleFrame(b)
		}
	}
}

// HandleFrame processes one raw frame. Malformed payloads are dropped
// silently: logged and counted, never surfaced.
func (d *Dispatcher) HandleFrame(b []byte) {
	var env models.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		d.metrics.RecordError("dispatch_parse")
		d.log.Debug("dropping malformed frame", applogger.Error(err))
		return
	}
	if err := d.validate.Struct(&env); err != nil {
		d.metrics.RecordError("dispatch_envelope")
		d.log.Debug("dropping invalid envelope", applogger.Error(err))
		return
	}

	// Keepalive echoes refresh liveness at the transport and carry no state.
	if env.Type == models.EventPong || env.Type == models.EventPing {
		return
	}

	ev, err := models.DecodeEvent(env, time.Now())
	if err != nil {
		d.metrics.RecordError("dispatch_decode")
		d.log.Debug("dropping undecodable event", applogger.String("type", env.Type), applogger.Error(err))
		return
	}
	if ev.Signal != nil {
		if err := d.validate.Struct(ev.Signal); err != nil {
			d.metrics.RecordError("dispatch_payload")
			d.log.Debug("dropping invalid signal payload", applogger.String("type", env.Type), applogger.Error(err))
			return
		}
	}

	d.mu.Lock()
	d.history = append(d.history, ev)
	if len(d.history) > historyCap {
		d.history = d.history[1:]
	}
	d.mu.Unlock()

	d.metrics.RecordEvent(ev.Type)
	if d.sink != nil {
		d.sink.Publish(ev)
	}
	if d.sub != nil {
		d.sub(ev)
	}
}

// Recent returns a copy of the retained event history, oldest first.
func (d *Dispatcher) Recent() []models.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.Event, len(d.history))
	copy(out, d.history)
	return out
}
