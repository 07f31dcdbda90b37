package models

import "time"

// Activity event types.
const (
	EventConnect        = "CONNECT"
	EventConnectFailed  = "CONNECT_FAILED"
	EventDisconnect     = "DISCONNECT"
	EventConnectionLost = "CONNECTION_LOST"
	EventPublish        = "PUBLISH"
	EventSimulationOn   = "SIMULATION_START"
	EventSimulationOff  = "SIMULATION_END"
	EventClear          = "CLEAR"
)

// ActivityEvent is a single operator-visible log entry.
type ActivityEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
