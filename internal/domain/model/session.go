package model

import "time"

type SessionState string

const (
	SessionDisconnected    SessionState = "disconnected"
	SessionPairingRequired SessionState = "pairing_required"
	SessionConnected       SessionState = "connected"
)

// SessionSnapshot is a read-only copy of the transport session.
type SessionSnapshot struct {
	State             SessionState `json:"state"`
	Since             time.Time    `json:"state_since"`
	LastActivity      time.Time    `json:"last_activity"`
	ReconnectAttempts int          `json:"reconnect_attempts"`
}

func (s SessionSnapshot) Connected() bool { return s.State == SessionConnected }
