package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalStatusForEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		eventType string
		want      SignalStatus
		ok        bool
	}{
		{EventSignalReceived, StatusReceived, true},
		{EventSignalParsed, StatusParsed, true},
		{EventSignalValidated, StatusValidated, true},
		{EventSignalPending, StatusPendingConfirmation, true},
		{EventSignalExecuted, StatusExecuted, true},
		{EventSignalFailed, StatusFailed, true},
		{EventSignalSkipped, StatusSkipped, true},
		{EventAccount, "", false},
		{EventTradeOpened, "", false},
		{EventPing, "", false},
		{"signal.unknown", "", false},
	}
	for _, tt := range tests {
		got, ok := SignalStatusForEvent(tt.eventType)
		assert.Equal(t, tt.ok, ok, tt.eventType)
		assert.Equal(t, tt.want, got, tt.eventType)
	}
}

func TestResourcesForEvent(t *testing.T) {
	t.Parallel()

	assert.ElementsMatch(t, []Resource{ResourceSignals, ResourceStats}, ResourcesForEvent(EventSignalPending))
	assert.ElementsMatch(t, []Resource{ResourcePositions, ResourceStats}, ResourcesForEvent(EventTradeClosed))
	assert.Empty(t, ResourcesForEvent(EventAccount))
	assert.Empty(t, ResourcesForEvent(EventPong))
}

func TestDecodeEventSignal(t *testing.T) {
	t.Parallel()

	now := time.Now()
	env := Envelope{
		Type: EventSignalPending,
		Data: json.RawMessage(`{"id":"s1","symbol":"EURUSD","direction":"sell","entry_price":1.08}`),
	}
	ev, err := DecodeEvent(env, now)
	require.NoError(t, err)
	require.NotNil(t, ev.Signal)
	assert.Equal(t, "s1", ev.Signal.ID)
	assert.Equal(t, DirectionSell, ev.Signal.Direction)
	assert.Equal(t, now, ev.ReceivedAt)
	assert.Nil(t, ev.Account)
	assert.Nil(t, ev.Trade)
}

func TestDecodeEventTrade(t *testing.T) {
	t.Parallel()

	env := Envelope{
		Type: EventTradeClosed,
		Data: json.RawMessage(`{"position_id":"p1","signal_id":"s1","symbol":"XAUUSD","profit":12.5}`),
	}
	ev, err := DecodeEvent(env, time.Now())
	require.NoError(t, err)
	require.NotNil(t, ev.Trade)
	assert.Equal(t, "p1", ev.Trade.PositionID)
	assert.Equal(t, 12.5, ev.Trade.Profit)
}

func TestDecodeEventErrors(t *testing.T) {
	t.Parallel()

	_, err := DecodeEvent(Envelope{Type: "mystery.event"}, time.Now())
	assert.Error(t, err)

	_, err = DecodeEvent(Envelope{Type: EventSignalReceived, Data: json.RawMessage(`"nope"`)}, time.Now())
	assert.Error(t, err)

	_, err = DecodeEvent(Envelope{Type: EventAccount, Data: json.RawMessage(`[]`)}, time.Now())
	assert.Error(t, err)
}

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	for _, s := range []SignalStatus{StatusExecuted, StatusRejected, StatusFailed, StatusSkipped} {
		assert.True(t, s.Terminal(), string(s))
	}
	for _, s := range []SignalStatus{StatusReceived, StatusParsed, StatusValidated, StatusPendingConfirmation, StatusDismissed} {
		assert.False(t, s.Terminal(), string(s))
	}
}
