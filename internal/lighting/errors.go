package lighting

import "errors"

// Domain errors for the lighting package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, lighting.ErrMissingDayTable) {
//	    // plan document is malformed
//	}
var (
	// ErrMissingDayTable is returned when a plan has no env.days array.
	ErrMissingDayTable = errors.New("plan: missing env.days array")

	// ErrMissingAnchor is returned when a plan config has neither an
	// explicit DPS value nor a seed date.
	ErrMissingAnchor = errors.New("plan: config must have either dps or seedDate")

	// ErrInvalidSeedDate is returned when a seed date cannot be parsed.
	ErrInvalidSeedDate = errors.New("plan: invalid seed date")
)
