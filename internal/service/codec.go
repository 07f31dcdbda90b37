package service

import (
	"fmt"

	"mqtt_dashboard/internal/models"

	jsoniter "github.com/json-iterator/go"
)

// wire is the JSON codec for payloads in both directions. Numbers decode as
// json.Number so integers beyond float64 precision pass through unchanged.
var wire = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// decodeReading parses an inbound payload; anything but a JSON object is errDecode.
func decodeReading(payload []byte) (models.Reading, error) {
	var r models.Reading
	if err := wire.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", errDecode, err)
	}
	if r == nil {
		return nil, errDecode
	}
	return r, nil
}

func encodeReading(r models.Reading) ([]byte, error) {
	return wire.Marshal(r)
}

// parseCustomFields decodes the operator's free-form JSON merge object.
func parseCustomFields(raw string) (map[string]any, error) {
	var m map[string]any
	if err := wire.UnmarshalFromString(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
