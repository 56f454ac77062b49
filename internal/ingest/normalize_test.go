package ingest

import (
	"encoding/json"
	"testing"
)

func TestFirstNumeric(t *testing.T) {
	raw := func(s string) json.RawMessage {
		if s == "" {
			return nil
		}
		return json.RawMessage(s)
	}

	tests := []struct {
		name       string
		candidates []string
		want       float64
	}{
		{"json number", []string{`24.5`}, 24.5},
		{"numeric string", []string{`"24.5"`}, 24.5},
		{"first candidate wins", []string{`1`, `2`, `3`}, 1},
		{"skips empty", []string{``, `"7"`}, 7},
		{"skips non-numeric string", []string{`"high"`, `42`}, 42},
		{"all missing", []string{``, ``, ``}, 0},
		{"all unparseable", []string{`"on"`, `"off"`}, 0},
		{"negative string", []string{`"-3.5"`}, -3.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := make([]json.RawMessage, len(tt.candidates))
			for i, s := range tt.candidates {
				candidates[i] = raw(s)
			}
			if got := firstNumeric(candidates...); got != tt.want {
				t.Errorf("firstNumeric() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeWebhook_MappingTable(t *testing.T) {
	tests := []struct {
		event      string
		payload    webhookPayload
		wantSource string
		wantType   string
	}{
		{"weather_temp_change", webhookPayload{}, "ifttt-weather", "temperature"},
		{"weather_humidity_change", webhookPayload{}, "ifttt-weather", "humidity"},
		{"schedule_trigger", webhookPayload{}, "ifttt-schedule", "schedule"},
		{"motion_detected", webhookPayload{}, "ifttt-security", "motion"},
		{"light_level_change", webhookPayload{}, "ifttt-ambient", "light"},
		{"sensor_reading", webhookPayload{SensorType: "co2"}, "ifttt-sensor", "co2"},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			got, ok := normalizeWebhook(tt.event, tt.payload, nil)
			if !ok {
				t.Fatalf("normalizeWebhook(%q) not mapped", tt.event)
			}
			if got.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", got.Source, tt.wantSource)
			}
			if got.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", got.Type, tt.wantType)
			}
		})
	}
}

func TestNormalizeWebhook_Unknown(t *testing.T) {
	if _, ok := normalizeWebhook("doorbell_pressed", webhookPayload{}, nil); ok {
		t.Error("normalizeWebhook() mapped an unknown event")
	}
}

func TestNormalizeWebhook_DeviceID(t *testing.T) {
	got, ok := normalizeWebhook("motion_detected", webhookPayload{DeviceID: "porch-cam"}, nil)
	if !ok {
		t.Fatal("normalizeWebhook() not mapped")
	}
	if got.DeviceID != "porch-cam" {
		t.Errorf("DeviceID = %q, want payload value to win", got.DeviceID)
	}
}

func TestNormalizeWebhook_Metadata(t *testing.T) {
	raw := map[string]any{"value1": "24.5", "device_id": "balcony"}
	got, ok := normalizeWebhook("weather_temp_change", webhookPayload{}, raw)
	if !ok {
		t.Fatal("normalizeWebhook() not mapped")
	}
	if got.Metadata == nil {
		t.Fatal("Metadata not set")
	}
	if got.Metadata["webhookEvent"] != "weather_temp_change" {
		t.Errorf("webhookEvent = %v", got.Metadata["webhookEvent"])
	}
	payload, ok := got.Metadata["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload metadata = %T, want map", got.Metadata["payload"])
	}
	if payload["device_id"] != "balcony" {
		t.Errorf("payload device_id = %v", payload["device_id"])
	}
}
