package rules

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateID returns a unique identifier for rules and execution records.
func GenerateID() string {
	return uuid.New().String()
}

// ValidateRule checks structural constraints before registration.
func ValidateRule(r *Rule) error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRule)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidRule)
	}
	if len(r.Actions) == 0 {
		return fmt.Errorf("%w: rule %q has no actions", ErrInvalidRule, r.ID)
	}
	if r.Options.DebounceMS < 0 {
		return fmt.Errorf("%w: rule %q has negative debounce", ErrInvalidRule, r.ID)
	}
	if c := r.Trigger.Condition; c != nil {
		if c.Operator == "between" || c.Operator == "outside" {
			if c.Range == nil {
				return fmt.Errorf("%w: rule %q operator %s requires a range", ErrInvalidRule, r.ID, c.Operator)
			}
			if c.Range.Min > c.Range.Max {
				return fmt.Errorf("%w: rule %q has inverted range", ErrInvalidRule, r.ID)
			}
		}
	}
	if r.Conditions != nil && r.Conditions.TimeRange != nil {
		tr := r.Conditions.TimeRange
		if tr.Start < 0 || tr.Start > 23 || tr.End < 0 || tr.End > 23 {
			return fmt.Errorf("%w: rule %q timeRange hours must be 0-23", ErrInvalidRule, r.ID)
		}
	}
	if r.Schedule != nil {
		if hrs := r.Schedule.Hours; hrs != nil {
			if hrs.Start < 0 || hrs.Start > 23 || hrs.End < 0 || hrs.End > 23 {
				return fmt.Errorf("%w: rule %q schedule hours must be 0-23", ErrInvalidRule, r.ID)
			}
		}
		for _, d := range r.Schedule.Days {
			if d < 0 || d > 6 {
				return fmt.Errorf("%w: rule %q schedule day %d out of range", ErrInvalidRule, r.ID, d)
			}
		}
	}
	return nil
}
