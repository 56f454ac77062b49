package rules

import "time"

// Matches reports whether the trigger applies to the reading. Empty
// filter fields match any value; a missing condition matches any value.
func (t *Trigger) Matches(r SensorReading) bool {
	if t.Source != "" && t.Source != r.Source {
		return false
	}
	if t.DeviceID != "" && t.DeviceID != r.DeviceID {
		return false
	}
	if t.Type != "" && t.Type != r.Type {
		return false
	}
	if t.Condition == nil {
		return true
	}
	return t.Condition.Matches(r.Value)
}

// Matches evaluates the value comparison. Range operators with no range
// configured never match. Unknown operators match unconditionally so a
// typo in a rule fails open rather than silently disabling it.
func (c *ValueCondition) Matches(value float64) bool {
	switch c.Operator {
	case "gt":
		return value > c.Threshold
	case "gte":
		return value >= c.Threshold
	case "lt":
		return value < c.Threshold
	case "lte":
		return value <= c.Threshold
	case "eq":
		return value == c.Threshold
	case "neq":
		return value != c.Threshold
	case "between":
		return c.Range != nil && value >= c.Range.Min && value <= c.Range.Max
	case "outside":
		return c.Range != nil && (value < c.Range.Min || value > c.Range.Max)
	default:
		return true
	}
}

// met reports whether the rule's conditions allow execution at the given
// time. Nil conditions always pass.
func (c *Conditions) met(now time.Time) bool {
	if c == nil || c.TimeRange == nil {
		return true
	}
	return c.TimeRange.contains(now.Hour())
}

// contains reports whether the hour falls inside the window.
func (tr *TimeRange) contains(hour int) bool {
	start, end := tr.Start, tr.End
	if start <= end {
		return hour >= start && hour < end
	}
	// Overnight window. This rejection shape is carried over from the
	// legacy rule format; existing configs depend on it.
	if hour < start && hour >= end {
		return false
	}
	return true
}

// active reports whether the schedule allows execution at the given time.
// Nil schedules, a nil hour window and an empty day list always pass.
func (s *RuleSchedule) active(now time.Time) bool {
	if s == nil {
		return true
	}
	if s.Hours != nil && !s.Hours.contains(now.Hour()) {
		return false
	}
	if len(s.Days) > 0 && !containsInt(s.Days, int(now.Weekday())) {
		return false
	}
	return true
}

func containsInt(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
