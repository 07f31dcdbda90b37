package models

import "time"

// SimulationState is the lifecycle of one simulated stream.
type SimulationState string

const (
	SimulationIdle      SimulationState = "idle"
	SimulationRunning   SimulationState = "running"
	SimulationCompleted SimulationState = "completed"
	SimulationCancelled SimulationState = "cancelled"
)

// SimulationProgress is what the dashboard polls while a stream runs.
type SimulationProgress struct {
	State      SimulationState `json:"state"`
	Topic      string          `json:"topic,omitempty"`
	Sent       uint            `json:"sent"`
	Count      uint            `json:"count"` // 0 = continuous
	Attempts   uint            `json:"attempts"`
	Failures   uint            `json:"failures"`
	LastError  string          `json:"last_error,omitempty"`
	StartedAt  time.Time       `json:"started_at,omitempty"`
	FinishedAt time.Time       `json:"finished_at,omitempty"`
}
