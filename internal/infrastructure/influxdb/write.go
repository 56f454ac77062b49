package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorReading writes a single sensor measurement to InfluxDB.
//
// This is the primary method for recording environmental telemetry as
// readings arrive from the pollers. The write is non-blocking; data is
// batched and sent asynchronously.
//
// Parameters:
//   - source: The integration that produced the reading (e.g., "govee")
//   - deviceID: Unique identifier for the sensor (e.g., "tent-sensor-01")
//   - readingType: The reading kind (e.g., "temperature", "humidity")
//   - value: The numeric value to record
//   - timestamp: When the reading was taken (zero time means now)
//
// Example:
//
//	client.WriteSensorReading("govee", "tent-sensor-01", "temperature", 24.5, time.Time{})
func (c *Client) WriteSensorReading(source, deviceID, readingType string, value float64, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	point := write.NewPoint(
		"sensor_readings",
		map[string]string{
			"source":    source,
			"device_id": deviceID,
			"type":      readingType,
		},
		map[string]interface{}{
			"value": value,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteRuleExecution records the outcome of one automation rule firing.
//
// Used for dashboards showing rule activity over time and for spotting
// rules that fail repeatedly.
//
// Parameters:
//   - ruleID: Rule identifier
//   - ruleName: Human-readable rule name
//   - status: Execution status ("executed" or "error")
//   - actionCount: Number of actions the rule dispatched
//   - failedCount: Number of those actions that failed
//   - timestamp: When the rule fired (zero time means now)
func (c *Client) WriteRuleExecution(ruleID, ruleName, status string, actionCount, failedCount int, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	point := write.NewPoint(
		"rule_executions",
		map[string]string{
			"rule_id": ruleID,
			"status":  status,
		},
		map[string]interface{}{
			"rule_name":    ruleName,
			"action_count": actionCount,
			"failed_count": failedCount,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteTickSummary records an aggregate view of one schedule executor tick.
//
// Parameters:
//   - groupCount: Number of grow groups the tick attempted
//   - errorCount: Number of groups that failed
//   - timestamp: When the tick ran (zero time means now)
func (c *Client) WriteTickSummary(groupCount, errorCount int, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	point := write.NewPoint(
		"executor_ticks",
		map[string]string{},
		map[string]interface{}{
			"group_count": groupCount,
			"error_count": errorCount,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteGroupState records the lighting state applied to one grow group.
//
// Each point captures whether the group was inside its photoperiod and,
// when active, the hex payload pushed to the lights.
//
// Parameters:
//   - group: Group name
//   - plan: Plan label the recipe came from
//   - active: Whether the schedule was inside its on window
//   - hexPayload: The 12-character payload, empty when the group was off
//   - timestamp: When the state was applied (zero time means now)
func (c *Client) WriteGroupState(group, plan string, active bool, hexPayload string, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	fields := map[string]interface{}{
		"active": active,
	}
	if hexPayload != "" {
		fields["hex_payload"] = hexPayload
	}

	point := write.NewPoint(
		"group_states",
		map[string]string{
			"group": group,
			"plan":  plan,
		},
		fields,
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
