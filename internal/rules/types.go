package rules

import (
	"time"

	"github.com/lumenfield/growcore/internal/actions"
)

// Logger is the minimal logging interface the engine needs. The
// infrastructure logging package satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is provided.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Rule pairs a trigger with the actions to run when it fires.
type Rule struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Trigger     Trigger       `json:"trigger"`
	Conditions  *Conditions   `json:"conditions,omitempty"`
	Schedule    *RuleSchedule `json:"schedule,omitempty"`
	Actions     actions.List  `json:"actions"`
	Options     Options       `json:"options,omitempty"`
	CreatedAt   time.Time     `json:"createdAt,omitempty"`
}

// Trigger describes which sensor readings a rule reacts to. Empty filter
// fields match any value.
type Trigger struct {
	Source    string          `json:"source,omitempty"`
	DeviceID  string          `json:"deviceId,omitempty"`
	Type      string          `json:"type,omitempty"`
	Condition *ValueCondition `json:"value,omitempty"`
}

// ValueCondition compares a reading's numeric value against a threshold
// or range. Supported operators: gt, gte, lt, lte, eq, neq, between,
// outside. Unknown operators match unconditionally.
type ValueCondition struct {
	Operator  string  `json:"operator"`
	Threshold float64 `json:"threshold,omitempty"`
	Range     *Range  `json:"range,omitempty"`
}

// Range is an inclusive numeric interval for between/outside operators.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Conditions gate rule execution beyond the trigger match.
type Conditions struct {
	TimeRange *TimeRange `json:"timeRange,omitempty"`
}

// TimeRange restricts execution to hours of the day. Start is inclusive,
// End exclusive.
type TimeRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// RuleSchedule restricts execution to an hour window and specific
// weekdays. Hours follow the same overnight logic as timeRange; Days use
// 0 for Sunday through 6 for Saturday; an empty list matches every day.
type RuleSchedule struct {
	Hours *TimeRange `json:"hours,omitempty"`
	Days  []int      `json:"days,omitempty"`
}

// Options carries per-rule tuning knobs.
type Options struct {
	// DebounceMS is the minimum interval between firings of this rule
	// in milliseconds. Zero selects the 30 second default.
	DebounceMS int64 `json:"debounceMs,omitempty"`
}

// DefaultDebounce is the per-rule firing interval applied when a rule
// does not set its own.
const DefaultDebounce = 30 * time.Second

// Debounce returns the effective debounce interval for the rule.
func (r *Rule) Debounce() time.Duration {
	if r.Options.DebounceMS > 0 {
		return time.Duration(r.Options.DebounceMS) * time.Millisecond
	}
	return DefaultDebounce
}

// SensorReading is a single measurement entering the engine.
// Metadata carries source-specific context, e.g. the original webhook
// event and payload for normalized readings.
type SensorReading struct {
	Source    string         `json:"source"`
	DeviceID  string         `json:"deviceId"`
	Type      string         `json:"type"`
	Value     float64        `json:"value"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
}

// CachedReading is the last reading seen for a source/device/type tuple.
type CachedReading struct {
	SensorReading
	CachedAt time.Time `json:"cachedAt"`
}

// Execution record statuses.
const (
	StatusExecuted = "executed"
	StatusError    = "error"
)

// ActionResult records the outcome of a single action within a rule
// execution.
type ActionResult struct {
	Action string `json:"action"`
	Status string `json:"status"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ExecutionRecord is one entry in the engine's execution history.
type ExecutionRecord struct {
	ID        string         `json:"id"`
	RuleID    string         `json:"ruleId"`
	RuleName  string         `json:"ruleName"`
	Status    string         `json:"status"`
	Trigger   SensorReading  `json:"trigger"`
	Results   []ActionResult `json:"results,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// RuleInfo is the introspection view of a registered rule.
type RuleInfo struct {
	Rule      Rule       `json:"rule"`
	Enabled   bool       `json:"enabled"`
	LastFired *time.Time `json:"lastFired,omitempty"`
}
