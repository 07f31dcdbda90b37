package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by publish and simulation calls without a live connection.
	ErrNotConnected = errors.New("not connected to a broker")
	// ErrInvalidTopic rejects empty or wildcard publish topics.
	ErrInvalidTopic = errors.New("invalid topic: must be non-empty and contain no wildcards")
	// ErrSimulationRunning rejects a second concurrent simulated stream.
	ErrSimulationRunning = errors.New("a simulation is already running")

	errDecode           = errors.New("payload is not a JSON object")
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
)

// ConnectError reports why a connect attempt left the manager disconnected.
type ConnectError struct {
	Reason string
	// Invalid marks argument validation failures (as opposed to broker failures).
	Invalid bool
	Err     error
}

func (e *ConnectError) Error() string { return "connect failed: " + e.Reason }
func (e *ConnectError) Unwrap() error { return e.Err }

// TransportError is a failed send; the message is dropped.
type TransportError struct {
	Detail string
	Err    error
}

func (e *TransportError) Error() string { return "failed to publish message: " + e.Detail }
func (e *TransportError) Unwrap() error { return e.Err }

func newTransportError(format string, err error) *TransportError {
	return &TransportError{Detail: fmt.Sprintf(format, err), Err: err}
}
