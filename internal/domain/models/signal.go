package models

import (
	"time"

	"github.com/google/uuid"
)

// SignalStatus is the server-declared pipeline state of a signal. The client
// never invents transitions; it projects whatever the last authoritative
// event or snapshot said, plus the optimistic overlay while an action is in
// flight.
type SignalStatus string

const (
	StatusReceived            SignalStatus = "received"
	StatusParsed              SignalStatus = "parsed"
	StatusValidated           SignalStatus = "validated"
	StatusPendingConfirmation SignalStatus = "pending_confirmation"
	StatusExecuted            SignalStatus = "executed"
	StatusRejected            SignalStatus = "rejected"
	StatusFailed              SignalStatus = "failed"
	StatusSkipped             SignalStatus = "skipped"
	StatusDismissed           SignalStatus = "dismissed"
)

// Terminal reports whether the status ends the pipeline. Terminal signals
// are eligible for bulk dismissal.
func (s SignalStatus) Terminal() bool {
	switch s {
	case StatusExecuted, StatusRejected, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// Valid reports whether s is a known pipeline status.
func (s SignalStatus) Valid() bool {
	switch s {
	case StatusReceived, StatusParsed, StatusValidated, StatusPendingConfirmation,
		StatusExecuted, StatusRejected, StatusFailed, StatusSkipped, StatusDismissed:
		return true
	}
	return false
}

type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Channel identifies the upstream source channel a signal came from.
type Channel struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Signal is a detected trade instruction moving through the execution
// pipeline. Identity is ID; the in-memory collection never holds two entries
// with the same ID.
type Signal struct {
	ID            string       `json:"id" validate:"required"`
	Symbol        string       `json:"symbol"`
	Direction     Direction    `json:"direction"`
	Status        SignalStatus `json:"status"`
	EntryPrice    float64      `json:"entry_price"`
	StopLoss      float64      `json:"stop_loss"`
	TakeProfits   []float64    `json:"take_profits,omitempty"`
	Confidence    float64      `json:"confidence"`
	Warnings      []string     `json:"warnings,omitempty"`
	FailureReason string       `json:"failure_reason,omitempty"`
	RawMessage    string       `json:"raw_message,omitempty"`
	ReceivedAt    time.Time    `json:"received_at"`
	Channel       Channel      `json:"channel"`
}

// Position is an open trade. The server is the sole writer, so positions are
// fully replaced on each authoritative update.
type Position struct {
	ID           string    `json:"id"`
	SignalID     string    `json:"signal_id,omitempty"`
	Symbol       string    `json:"symbol"`
	Direction    Direction `json:"direction"`
	Volume       float64   `json:"volume"`
	OpenPrice    float64   `json:"open_price"`
	CurrentPrice float64   `json:"current_price"`
	Profit       float64   `json:"profit"`
	OpenedAt     time.Time `json:"opened_at"`
}

// AccountSnapshot is the broker account state, replaced wholesale.
type AccountSnapshot struct {
	Balance    float64   `json:"balance"`
	Equity     float64   `json:"equity"`
	Margin     float64   `json:"margin"`
	FreeMargin float64   `json:"free_margin"`
	Currency   string    `json:"currency"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Stats is the aggregate performance summary, replaced wholesale.
type Stats struct {
	TotalSignals int     `json:"total_signals"`
	Executed     int     `json:"executed"`
	Rejected     int     `json:"rejected"`
	Failed       int     `json:"failed"`
	WinRate      float64 `json:"win_rate"`
	ProfitToday  float64 `json:"profit_today"`
}

// Settings is the server-side execution configuration, replaced wholesale.
type Settings struct {
	AutoConfirm         bool    `json:"auto_confirm"`
	DefaultLotSize      float64 `json:"default_lot_size"`
	MaxConcurrentTrades int     `json:"max_concurrent_trades"`
	Paused              bool    `json:"paused"`
}

// ChannelHealth is the upstream channel connection status polled from the
// auxiliary health endpoint.
type ChannelHealth struct {
	Connected     bool      `json:"connected"`
	ChannelName   string    `json:"channel_name,omitempty"`
	LastMessageAt time.Time `json:"last_message_at,omitempty"`
}

// ActionType names a user-initiated mutation.
type ActionType string

const (
	ActionConfirm          ActionType = "confirm"
	ActionReject           ActionType = "reject"
	ActionCorrect          ActionType = "correct"
	ActionDismiss          ActionType = "dismiss"
	ActionDismissCompleted ActionType = "dismiss_completed"
)

// PendingAction tracks one optimistic mutation between local application and
// network resolution. At most one open PendingAction exists per signal id;
// Prior holds the captured signal copies needed for rollback. It is discarded
// on resolution whether the mutation succeeded or failed.
type PendingAction struct {
	ID          uuid.UUID
	Type        ActionType
	TargetIDs   []string
	SubmittedAt time.Time
	Prior       []Signal
}
