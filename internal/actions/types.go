package actions

import (
	"encoding/json"
	"fmt"
)

// Type discriminates the action union. The string values are the wire
// format used in rule and scenario documents.
type Type string

// Supported action kinds.
const (
	TypeKasaControl      Type = "kasa_control"
	TypeSwitchBotControl Type = "switchbot_control"
	TypeIFTTTTrigger     Type = "ifttt_trigger"
	TypeNotification     Type = "notification"
	TypeScenario         Type = "scenario"
)

// Action is the closed union of everything a rule can do. Concrete variants
// are KasaControl, SwitchBotControl, IFTTTTrigger, Notification and
// ScenarioRef; no other implementations exist.
type Action interface {
	// ActionType returns the discriminator for this variant.
	ActionType() Type

	// isAction restricts implementations to this package.
	isAction()
}

// KasaControl switches a Kasa device through the local proxy.
type KasaControl struct {
	DeviceID   string         `json:"deviceId"`
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// SwitchBotControl drives a SwitchBot device through the local proxy.
type SwitchBotControl struct {
	DeviceID  string `json:"deviceId"`
	Command   string `json:"command"`
	Parameter string `json:"parameter,omitempty"`
}

// IFTTTTrigger fires a named webhook event. Data keys override the
// value1/value2/value3 fields derived from the triggering sensor reading.
type IFTTTTrigger struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// Notification is an operator-facing message. The message template supports
// {value}, {deviceId}, {type} and {source} placeholders filled from the
// triggering reading. When IFTTTEvent is set, a webhook fires as a side
// channel carrying the rendered message.
type Notification struct {
	Title      string `json:"title"`
	Message    string `json:"message"`
	IFTTTEvent string `json:"iftttEvent,omitempty"`
}

// ScenarioRef expands a named multi-step sequence from the Library.
// Parameters are shallow-merged over each step before dispatch.
type ScenarioRef struct {
	ScenarioID string         `json:"scenarioId"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

func (KasaControl) ActionType() Type      { return TypeKasaControl }
func (SwitchBotControl) ActionType() Type { return TypeSwitchBotControl }
func (IFTTTTrigger) ActionType() Type     { return TypeIFTTTTrigger }
func (Notification) ActionType() Type     { return TypeNotification }
func (ScenarioRef) ActionType() Type      { return TypeScenario }

func (KasaControl) isAction()      {}
func (SwitchBotControl) isAction() {}
func (IFTTTTrigger) isAction()     {}
func (Notification) isAction()     {}
func (ScenarioRef) isAction()      {}

// Decode parses a single action object, selecting the variant by its
// "type" field. An unrecognised type is a hard error so malformed rule
// documents fail at load time, not mid-dispatch.
func Decode(data []byte) (Action, error) {
	var envelope struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decoding action envelope: %w", err)
	}

	var (
		action Action
		err    error
	)

	switch envelope.Type {
	case TypeKasaControl:
		var a KasaControl
		err = json.Unmarshal(data, &a)
		action = a
	case TypeSwitchBotControl:
		var a SwitchBotControl
		err = json.Unmarshal(data, &a)
		action = a
	case TypeIFTTTTrigger:
		var a IFTTTTrigger
		err = json.Unmarshal(data, &a)
		action = a
	case TypeNotification:
		var a Notification
		err = json.Unmarshal(data, &a)
		action = a
	case TypeScenario:
		var a ScenarioRef
		err = json.Unmarshal(data, &a)
		action = a
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionType, envelope.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("decoding %s action: %w", envelope.Type, err)
	}
	return action, nil
}

// Encode renders an action as a generic map including its "type"
// discriminator. Used for scenario parameter merging and for persisting
// rule documents.
func Encode(action Action) (map[string]any, error) {
	raw, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("encoding %s action: %w", action.ActionType(), err)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encoding %s action: %w", action.ActionType(), err)
	}

	m["type"] = string(action.ActionType())
	return m, nil
}

// List is a slice of actions that decodes from a JSON array of tagged
// objects, as stored in rule documents.
type List []Action

// UnmarshalJSON decodes each element through Decode.
func (l *List) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	decoded := make(List, 0, len(raws))
	for i, raw := range raws {
		action, err := Decode(raw)
		if err != nil {
			return fmt.Errorf("action[%d]: %w", i, err)
		}
		decoded = append(decoded, action)
	}

	*l = decoded
	return nil
}

// MarshalJSON encodes each element through Encode.
func (l List) MarshalJSON() ([]byte, error) {
	encoded := make([]map[string]any, 0, len(l))
	for i, action := range l {
		m, err := Encode(action)
		if err != nil {
			return nil, fmt.Errorf("action[%d]: %w", i, err)
		}
		encoded = append(encoded, m)
	}
	return json.Marshal(encoded)
}

// TriggerContext carries the sensor reading fields an action may reference:
// webhook value1/value2/value3 payloads and notification placeholders.
type TriggerContext struct {
	Source   string
	DeviceID string
	Type     string
	Value    float64
}
