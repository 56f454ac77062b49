package lighting

import (
	"fmt"
	"time"
)

// Plan is a named lighting programme: a day-indexed table of recipes where
// days[i] is the recipe active on day offset i. Plans whose crop outlives
// the table cycle back to day 0.
type Plan struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Env  PlanEnv `json:"env"`
}

// PlanEnv holds the environment section of a plan document.
type PlanEnv struct {
	Days []Recipe `json:"days"`
}

// AnchorModeDPS selects direct day-offset anchoring in a PlanConfig.
const AnchorModeDPS = "dps"

// PlanConfig anchors a plan to the calendar for one group. Either an
// explicit day offset (DPS, days post seed) or a seed date from which the
// offset is derived.
type PlanConfig struct {
	AnchorMode string `json:"anchorMode,omitempty"`
	DPS        *int   `json:"dps,omitempty"`
	SeedDate   string `json:"seedDate,omitempty"`
}

// seedDateLayouts are the accepted seed date formats, tried in order.
var seedDateLayouts = []string{"2006-01-02", time.RFC3339}

// CalculateDPS returns the number of whole calendar days elapsed between
// the seed date and now, both taken at local midnight. The result is never
// negative: a seed date in the future clamps to 0.
func CalculateDPS(seedDate, now time.Time) int {
	seed := atMidnight(seedDate)
	current := atMidnight(now)

	days := int(current.Sub(seed) / (24 * time.Hour))
	if days < 0 {
		return 0
	}
	return days
}

// CurrentRecipe resolves the recipe active for a plan at the given time.
//
// When config.anchorMode is "dps" with a numeric dps, that value is the day
// index directly. Otherwise a seed date is required and the index is
// CalculateDPS(seedDate, now). Indexes past the end of the day table wrap
// modulo its length.
//
// Returns nil (without error) when the day table is empty or the index has
// no entry. A plan with no env.days array at all is a hard error.
func CurrentRecipe(plan Plan, config PlanConfig, now time.Time) (*Recipe, error) {
	if plan.Env.Days == nil {
		return nil, ErrMissingDayTable
	}

	var dayIndex int
	switch {
	case config.AnchorMode == AnchorModeDPS && config.DPS != nil:
		dayIndex = *config.DPS
	case config.SeedDate != "":
		seed, err := parseSeedDate(config.SeedDate)
		if err != nil {
			return nil, err
		}
		dayIndex = CalculateDPS(seed, now)
	default:
		return nil, ErrMissingAnchor
	}

	days := plan.Env.Days
	if len(days) == 0 || dayIndex < 0 {
		return nil, nil
	}
	if dayIndex >= len(days) {
		dayIndex %= len(days)
	}

	recipe := days[dayIndex]
	return &recipe, nil
}

// parseSeedDate parses a seed date in plain date or RFC 3339 form.
func parseSeedDate(value string) (time.Time, error) {
	for _, layout := range seedDateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			// DPS counts local calendar days, so anchor the seed in local time.
			return t.In(time.Local), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSeedDate, value)
}

// atMidnight truncates a time to local midnight.
func atMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
