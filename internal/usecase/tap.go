package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SignalDeck/internal/domain/models"
	drepo "SignalDeck/internal/domain/repository"
	pkgch "SignalDeck/pkg/clickhouse"
	pkgkafka "SignalDeck/pkg/kafka"
	applogger "SignalDeck/pkg/logger"
)

// EventTap mirrors dispatched events to a configurable audit backend. The
// dispatch path only does a non-blocking buffered send; a full buffer drops
// the event and counts it, so auditing can never stall the read-model.
type EventTap struct {
	backend string
	topic   string
	table   string

	producer *pkgkafka.Producer
	ch       *pkgch.Client

	buf     chan models.Event
	log     *applogger.Logger
	metrics drepo.Metrics
}

// TapOption configures EventTap.
type TapOption func(*EventTap)

// WithKafkaSink routes events to a Kafka topic.
func WithKafkaSink(p *pkgkafka.Producer, topic string) TapOption {
	return func(t *EventTap) {
		t.backend = "kafka"
		t.producer = p
		t.topic = topic
	}
}

// WithClickHouseSink routes events to a ClickHouse table.
func WithClickHouseSink(c *pkgch.Client, table string) TapOption {
	return func(t *EventTap) {
		t.backend = "clickhouse"
		t.ch = c
		t.table = table
	}
}

// NewEventTap creates a tap. With no sink option it is a no-op.
func NewEventTap(buffer int, log *applogger.Logger, metrics drepo.Metrics, opts ...TapOption) *EventTap {
	if buffer <= 0 {
		buffer = 1000
	}
	t := &EventTap{
		backend: "none",
		buf:     make(chan models.Event, buffer),
		log:     log,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Publish enqueues an event for the audit sink without blocking.
func (t *EventTap) Publish(ev models.Event) {
	if t.backend == "none" {
		return
	}
	select {
	case t.buf <- ev:
	default:
		t.metrics.RecordError("audit_buffer_full")
	}
}

// Run drains the buffer until ctx is cancelled. Sink errors are logged and
// counted; the event is dropped rather than retried, the authoritative
// record lives upstream.
func (t *EventTap) Run(ctx context.Context) {
	if t.backend == "none" {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-t.buf:
			if err := t.write(ctx, ev); err != nil && ctx.Err() == nil {
				t.metrics.RecordError("audit_write")
				t.log.Warn("audit write failed", applogger.String("backend", t.backend), applogger.Error(err))
			}
		}
	}
}

func (t *EventTap) write(ctx context.Context, ev models.Event) error {
	switch t.backend {
	case "kafka":
		return t.producer.Publish(ctx, t.topic, []byte(eventKey(ev)), auditRecord(ev))
	case "clickhouse":
		rec := auditRecord(ev)
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal audit record: %w", err)
		}
		q := fmt.Sprintf("INSERT INTO %s (event_type, signal_id, symbol, status, received_at, payload) VALUES (?, ?, ?, ?, ?, ?)", t.table)
		_, err = t.ch.DB().ExecContext(ctx, q,
			rec.EventType, rec.SignalID, rec.Symbol, rec.Status, ev.ReceivedAt, string(payload))
		if err != nil {
			return fmt.Errorf("clickhouse insert: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown audit backend: %s", t.backend)
	}
}

// Close shuts the tap's sink clients.
func (t *EventTap) Close() error {
	if t.producer != nil {
		return t.producer.Close()
	}
	if t.ch != nil {
		return t.ch.Close()
	}
	return nil
}

// AuditRecord is the flattened event shape written to the sink.
type AuditRecord struct {
	EventType  string    `json:"event_type"`
	SignalID   string    `json:"signal_id,omitempty"`
	Symbol     string    `json:"symbol,omitempty"`
	Status     string    `json:"status,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

func auditRecord(ev models.Event) AuditRecord {
	rec := AuditRecord{EventType: ev.Type, ReceivedAt: ev.ReceivedAt}
	switch {
	case ev.Signal != nil:
		rec.SignalID = ev.Signal.ID
		rec.Symbol = ev.Signal.Symbol
		if st, ok := models.SignalStatusForEvent(ev.Type); ok {
			rec.Status = string(st)
		}
	case ev.Trade != nil:
		rec.SignalID = ev.Trade.SignalID
		rec.Symbol = ev.Trade.Symbol
	}
	return rec
}

func eventKey(ev models.Event) string {
	if ev.Signal != nil {
		return ev.Signal.ID
	}
	if ev.Trade != nil {
		return ev.Trade.PositionID
	}
	return ev.Type
}
