package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event type tags as emitted by the gateway over the stream connection.
const (
	EventPing    = "ping"
	EventPong    = "pong"
	EventAccount = "account.updated"

	EventSignalReceived  = "signal.received"
	EventSignalParsed    = "signal.parsed"
	EventSignalValidated = "signal.validated"
	EventSignalPending   = "signal.pending_confirmation"
	EventSignalExecuted  = "signal.executed"
	EventSignalFailed    = "signal.failed"
	EventSignalSkipped   = "signal.skipped"

	EventTradeOpened  = "trade.opened"
	EventTradeClosed  = "trade.closed"
	EventTradeUpdated = "trade.updated"
)

// Envelope is the raw wire shape of a stream message.
type Envelope struct {
	Type string          `json:"type" validate:"required"`
	Data json.RawMessage `json:"data,omitempty"`
}

// TradeEvent is the payload of trade.* events. It only identifies what
// changed; the authoritative position list comes from the backstop fetch.
type TradeEvent struct {
	PositionID string    `json:"position_id"`
	SignalID   string    `json:"signal_id,omitempty"`
	Symbol     string    `json:"symbol"`
	Profit     float64   `json:"profit,omitempty"`
	ClosedAt   time.Time `json:"closed_at,omitempty"`
}

// Event is one decoded, validated stream event. Exactly one of the payload
// pointers is set, matching Type. Immutable once dispatched.
type Event struct {
	Type       string
	ReceivedAt time.Time

	Signal  *Signal
	Account *AccountSnapshot
	Trade   *TradeEvent
}

// SignalStatusForEvent maps a signal.* event type to the pipeline status it
// declares. ok is false for non-signal events.
func SignalStatusForEvent(eventType string) (SignalStatus, bool) {
	switch eventType {
	case EventSignalReceived:
		return StatusReceived, true
	case EventSignalParsed:
		return StatusParsed, true
	case EventSignalValidated:
		return StatusValidated, true
	case EventSignalPending:
		return StatusPendingConfirmation, true
	case EventSignalExecuted:
		return StatusExecuted, true
	case EventSignalFailed:
		return StatusFailed, true
	case EventSignalSkipped:
		return StatusSkipped, true
	}
	return "", false
}

// Resource is a reconciliation key. Each resource debounces and fetches
// independently.
type Resource string

const (
	ResourceSignals   Resource = "signals"
	ResourcePositions Resource = "positions"
	ResourceStats     Resource = "stats"
)

// ResourcesForEvent lists the resources whose backstop fetch an event of the
// given type should schedule. account.updated carries the full entity and
// needs no backstop.
func ResourcesForEvent(eventType string) []Resource {
	if _, ok := SignalStatusForEvent(eventType); ok {
		return []Resource{ResourceSignals, ResourceStats}
	}
	switch eventType {
	case EventTradeOpened, EventTradeClosed, EventTradeUpdated:
		return []Resource{ResourcePositions, ResourceStats}
	}
	return nil
}

// DecodeEvent parses an envelope payload into a typed Event. It returns an
// error for unknown types and undecodable payloads; keepalive frames are the
// caller's concern.
func DecodeEvent(env Envelope, receivedAt time.Time) (Event, error) {
	ev := Event{Type: env.Type, ReceivedAt: receivedAt}

	if _, ok := SignalStatusForEvent(env.Type); ok {
		var sig Signal
		if err := json.Unmarshal(env.Data, &sig); err != nil {
			return Event{}, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		ev.Signal = &sig
		return ev, nil
	}

	switch env.Type {
	case EventAccount:
		var acc AccountSnapshot
		if err := json.Unmarshal(env.Data, &acc); err != nil {
			return Event{}, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		ev.Account = &acc
	case EventTradeOpened, EventTradeClosed, EventTradeUpdated:
		var tr TradeEvent
		if err := json.Unmarshal(env.Data, &tr); err != nil {
			return Event{}, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		ev.Trade = &tr
	default:
		return Event{}, fmt.Errorf("unknown event type %q", env.Type)
	}
	return ev, nil
}
