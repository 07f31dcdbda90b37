package models

import (
	"fmt"
	"time"
)

// Reading field names used on the wire.
const (
	FieldDevice      = "device"
	FieldSensor      = "sensor"
	FieldSensorValue = "sensor_value"
	FieldTimestamp   = "timestamp"
	FieldReceivedAt  = "received_at"
	FieldBattery     = "battery_level"
)

// TimeLayout is the format of received_at and timestamp ("YYYY-MM-DD HH:MM:SS").
const TimeLayout = "2006-01-02 15:04:05"

// Reading is one structured sensor record. Unknown fields pass through unchanged.
type Reading map[string]any

// Device returns the device identifier; ok is false for unassigned readings.
func (r Reading) Device() (string, bool) {
	return r.text(FieldDevice)
}

// Sensor returns the sensor/category name.
func (r Reading) Sensor() (string, bool) {
	return r.text(FieldSensor)
}

// Value returns sensor_value as decoded (float64, bool, string, ...).
func (r Reading) Value() (any, bool) {
	v, ok := r[FieldSensorValue]
	return v, ok
}

// ReceivedAt returns the raw received_at field.
func (r Reading) ReceivedAt() (any, bool) {
	v, ok := r[FieldReceivedAt]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// HasTimestamp reports whether the reading carries a logical timestamp.
func (r Reading) HasTimestamp() bool {
	_, ok := r[FieldTimestamp]
	return ok
}

// StampReceivedAt sets received_at to now unless it is already present.
// It returns true when the field was written.
func (r Reading) StampReceivedAt(now time.Time) bool {
	if _, ok := r.ReceivedAt(); ok {
		return false
	}
	r[FieldReceivedAt] = now.Format(TimeLayout)
	return true
}

// Clone returns a shallow copy; nested values are shared.
func (r Reading) Clone() Reading {
	out := make(Reading, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// text renders a field as a string, treating nil and missing the same way.
func (r Reading) text(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}
