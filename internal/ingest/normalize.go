package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/lumenfield/growcore/internal/rules"
)

// webhookPayload is the loosely-typed body of an inbound webhook event.
// IFTTT sends its values as strings ("24.5"), other services as numbers,
// so every value field is kept raw and parsed leniently.
type webhookPayload struct {
	DeviceID   string          `json:"device_id"`
	SensorType string          `json:"sensor_type"`
	Value1     json.RawMessage `json:"value1"`
	Value      json.RawMessage `json:"value"`
	Reading    json.RawMessage `json:"reading"`
}

// webhookMapping pins a known webhook event to a reading source and type.
type webhookMapping struct {
	Source string
	Type   string
}

// webhookMappings maps webhook event names to sensor reading shapes.
// The "sensor_reading" event takes its type from the payload instead.
var webhookMappings = map[string]webhookMapping{
	"weather_temp_change":     {Source: "ifttt-weather", Type: "temperature"},
	"weather_humidity_change": {Source: "ifttt-weather", Type: "humidity"},
	"sensor_reading":          {Source: "ifttt-sensor"},
	"schedule_trigger":        {Source: "ifttt-schedule", Type: "schedule"},
	"motion_detected":         {Source: "ifttt-security", Type: "motion"},
	"light_level_change":      {Source: "ifttt-ambient", Type: "light"},
}

// normalizeWebhook converts a webhook event into a sensor reading.
// The originating event name and raw payload ride along in the reading
// metadata so rules and sinks can see where a value came from.
// Returns false for events outside the mapping table.
func normalizeWebhook(event string, p webhookPayload, raw map[string]any) (rules.SensorReading, bool) {
	mapping, ok := webhookMappings[event]
	if !ok {
		return rules.SensorReading{}, false
	}

	readingType := mapping.Type
	if readingType == "" {
		readingType = p.SensorType
	}

	deviceID := p.DeviceID
	if deviceID == "" {
		deviceID = fmt.Sprintf("ifttt-%s", event)
	}

	metadata := map[string]any{"webhookEvent": event}
	if len(raw) > 0 {
		metadata["payload"] = raw
	}

	return rules.SensorReading{
		Source:   mapping.Source,
		DeviceID: deviceID,
		Type:     readingType,
		Value:    firstNumeric(p.Value1, p.Value, p.Reading),
		Metadata: metadata,
	}, true
}

// firstNumeric returns the first candidate that parses as a number,
// accepting both JSON numbers and numeric strings. Zero when none do.
func firstNumeric(candidates ...json.RawMessage) float64 {
	for _, raw := range candidates {
		if len(raw) == 0 {
			continue
		}

		var num float64
		if err := json.Unmarshal(raw, &num); err == nil {
			return num
		}

		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if num, err := strconv.ParseFloat(s, 64); err == nil {
				return num
			}
		}
	}
	return 0
}
