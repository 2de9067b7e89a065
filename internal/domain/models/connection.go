package models

// ConnStatus is the stream connection lifecycle state, owned exclusively by
// the transport.
type ConnStatus string

const (
	ConnConnecting   ConnStatus = "connecting"
	ConnOpen         ConnStatus = "open"
	ConnReconnecting ConnStatus = "reconnecting"
	ConnClosed       ConnStatus = "closed"
)
