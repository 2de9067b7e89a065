package repository

import (
	"context"

	"SignalDeck/internal/domain/models"
)

// EventStream is the persistent duplex connection to the gateway. It owns
// connect/reconnect/keepalive; callers only consume frames and status.
type EventStream interface {
	Start(ctx context.Context)
	Frames() <-chan []byte
	Status() models.ConnStatus
	// Wake forces an immediate reconnect check; called when the display
	// collaborator reports the page became visible again.
	Wake()
	Close() error
}

// GatewayAPI is the request/response side of the gateway: authoritative
// snapshots and user-initiated mutations.
type GatewayAPI interface {
	Stats(ctx context.Context) (models.Stats, error)
	Signals(ctx context.Context, limit int) ([]models.Signal, error)
	Positions(ctx context.Context) ([]models.Position, error)
	Account(ctx context.Context) (models.AccountSnapshot, error)
	Settings(ctx context.Context) (models.Settings, error)
	ChannelStatus(ctx context.Context) (models.ChannelHealth, error)
	LotPresets(ctx context.Context, symbol string) ([]float64, error)
	LastTradeLot(ctx context.Context) (float64, error)

	ConfirmSignal(ctx context.Context, id string, lotSize *float64) error
	RejectSignal(ctx context.Context, id, reason string) error
	CorrectSignal(ctx context.Context, id string, newDirection models.Direction) error
	DismissSignal(ctx context.Context, id string) error
	DismissCompleted(ctx context.Context) error

	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

// Notifier receives state-transition cues for audible/visual notification.
type Notifier interface {
	SignalTransition(sig models.Signal, from, to models.SignalStatus)
	ActionSucceeded(action models.ActionType, id string)
	ActionFailed(action models.ActionType, id string, err error)
	ConnectionChanged(status models.ConnStatus)
}

// EventSink mirrors dispatched events to an audit backend. Publish must
// never block the dispatch path.
type EventSink interface {
	Publish(ev models.Event)
	Close() error
}

// PrefStore persists small dashboard preferences (sound-enabled,
// sidebar-collapsed). No schema versioning; read at startup, written on
// change.
type PrefStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Metrics records operational counters for the sync core.
type Metrics interface {
	RecordEvent(eventType string)
	RecordError(kind string)
	RecordReconnect()
	RecordAction(action, outcome string)
	RecordLatency(op string, seconds float64)
	SetConnectionStatus(status models.ConnStatus)
	SetVisibleSignals(n int)
}
