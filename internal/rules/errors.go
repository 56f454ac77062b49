package rules

import "errors"

// Sentinel errors returned by the rule engine.
var (
	// ErrRuleNotFound is returned when the requested rule ID is not
	// registered with the engine.
	ErrRuleNotFound = errors.New("rules: rule not found")

	// ErrInvalidRule is returned when a rule fails validation on
	// registration.
	ErrInvalidRule = errors.New("rules: invalid rule")

	// ErrNoExecutor indicates the engine was constructed without an
	// action executor.
	ErrNoExecutor = errors.New("rules: no action executor configured")
)
