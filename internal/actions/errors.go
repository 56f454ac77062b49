package actions

import "errors"

// Domain errors for the actions package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, actions.ErrScenarioNotFound) {
//	    // the rule references an unregistered scenario
//	}
var (
	// ErrUnknownActionType is returned when decoding an action whose type
	// discriminator is not one of the supported kinds.
	ErrUnknownActionType = errors.New("action: unknown action type")

	// ErrScenarioNotFound is returned when a scenario ID is not registered
	// in the library.
	ErrScenarioNotFound = errors.New("scenario: not found")

	// ErrHTTPStatus is returned when an outbound device or webhook call
	// answers with a non-2xx status.
	ErrHTTPStatus = errors.New("action: request failed")
)
