package service

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"mqtt_dashboard/internal/models"
)

// ErrInvalidCustomFields is returned when the custom field text is not a JSON object.
var ErrInvalidCustomFields = errors.New("invalid JSON in custom fields")

// ValueRange is an inclusive [Min, Max] interval.
type ValueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// sensorRange holds the allowed and preselected random range of a numeric sensor type.
type sensorRange struct {
	bounds, preset ValueRange
}

var sensorRanges = map[string]sensorRange{
	"temperature": {bounds: ValueRange{-20, 50}, preset: ValueRange{15, 25}},
	"humidity":    {bounds: ValueRange{0, 100}, preset: ValueRange{30, 70}},
	"pressure":    {bounds: ValueRange{980, 1050}, preset: ValueRange{1000, 1020}},
}

// MessageDraft is the form-style description of a reading to publish.
type MessageDraft struct {
	Device           string
	Sensor           string
	SensorValue      any
	IncludeTimestamp bool
	BatteryLevel     *int
	CustomFields     string
	// RandomValue replaces SensorValue with a uniform draw. Only numeric
	// sensor types support it; a nil Range selects the preset.
	RandomValue bool
	Range       *ValueRange
}

// BuildReading assembles a reading from d. Custom fields are merged last and
// may override any generated field.
func BuildReading(d MessageDraft, now time.Time, rnd func() float64) (models.Reading, error) {
	sensor := strings.TrimSpace(d.Sensor)
	if sensor == "" {
		return nil, errors.New("sensor must not be empty")
	}

	value := d.SensorValue
	if d.RandomValue {
		v, err := randomValue(sensor, d.Range, rnd)
		if err != nil {
			return nil, err
		}
		value = v
	}

	r := models.Reading{
		models.FieldDevice:      d.Device,
		models.FieldSensor:      sensor,
		models.FieldSensorValue: value,
	}
	if d.IncludeTimestamp {
		r[models.FieldTimestamp] = now.Format(models.TimeLayout)
	}
	if d.BatteryLevel != nil {
		if *d.BatteryLevel < 0 || *d.BatteryLevel > 100 {
			return nil, fmt.Errorf("battery level %d out of range [0, 100]", *d.BatteryLevel)
		}
		r[models.FieldBattery] = *d.BatteryLevel
	}
	if strings.TrimSpace(d.CustomFields) != "" {
		extra, err := parseCustomFields(d.CustomFields)
		if err != nil || extra == nil {
			return nil, ErrInvalidCustomFields
		}
		for k, v := range extra {
			r[k] = v
		}
	}
	return r, nil
}

func randomValue(sensor string, want *ValueRange, rnd func() float64) (float64, error) {
	sr, ok := sensorRanges[sensor]
	if !ok {
		return 0, fmt.Errorf("random values are not supported for sensor %q", sensor)
	}
	rg := sr.preset
	if want != nil {
		rg = *want
	}
	if rg.Min > rg.Max || rg.Min < sr.bounds.Min || rg.Max > sr.bounds.Max {
		return 0, fmt.Errorf("range [%g, %g] outside [%g, %g] for %s", rg.Min, rg.Max, sr.bounds.Min, sr.bounds.Max, sensor)
	}
	return roundTenth(rg.Min + rnd()*(rg.Max-rg.Min)), nil
}

// NewReading builds a reading stamped with the current time.
func NewReading(d MessageDraft) (models.Reading, error) {
	return BuildReading(d, time.Now(), rand.Float64)
}
