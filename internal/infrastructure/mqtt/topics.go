package mqtt

import "fmt"

// TopicPrefix is the root of the Grow Core topic tree.
//
// Sensor traffic uses the flat scheme: growcore/sensor/{source}/{device}/{type}
// matching what the SwitchBot and Kasa pollers publish.
const (
	// TopicPrefixSensor is the base for sensor reading topics.
	TopicPrefixSensor = "growcore/sensor"

	// TopicPrefixWebhook is the base for inbound webhook event topics.
	TopicPrefixWebhook = "growcore/webhook"

	// TopicPrefixCore is the base for engine-published topics.
	TopicPrefixCore = "growcore/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "growcore/system"
)

// Topics provides builders for Grow Core MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	readingTopic := topics.SensorReading("switchbot", "meter-01", "temperature")
//	// Returns: "growcore/sensor/switchbot/meter-01/temperature"
type Topics struct{}

// SensorReading returns the topic a single sensor measurement is
// published on.
//
// Example: growcore/sensor/switchbot/meter-01/temperature
func (Topics) SensorReading(source, deviceID, sensorType string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefixSensor, source, deviceID, sensorType)
}

// WebhookEvent returns the topic an inbound webhook event is relayed on.
//
// Example: growcore/webhook/motion_detected
func (Topics) WebhookEvent(event string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixWebhook, event)
}

// RuleFired returns the topic for rule execution notifications.
//
// Example: growcore/core/automation/high-temp-exhaust/fired
func (Topics) RuleFired(ruleID string) string {
	return fmt.Sprintf("%s/automation/%s/fired", TopicPrefixCore, ruleID)
}

// ExecutorTick returns the topic for schedule executor tick summaries.
//
// Example: growcore/core/executor/tick
func (Topics) ExecutorTick() string {
	return fmt.Sprintf("%s/executor/tick", TopicPrefixCore)
}

// SystemStatus returns the system status topic. Online/offline
// presence (including the LWT) is published here.
//
// Example: growcore/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllSensorReadings returns a pattern matching every sensor reading.
//
// Pattern: growcore/sensor/+/+/+
func (Topics) AllSensorReadings() string {
	return TopicPrefixSensor + "/+/+/+"
}

// AllWebhookEvents returns a pattern matching every webhook event.
//
// Pattern: growcore/webhook/+
func (Topics) AllWebhookEvents() string {
	return TopicPrefixWebhook + "/+"
}
