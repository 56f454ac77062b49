package lighting

import (
	"strconv"
	"strings"
	"time"
)

// Schedule defines when a group's lights are on: one or more on/off cycles
// in HH:MM local time. A cycle whose off time is numerically earlier than
// its on time crosses midnight (e.g. on 22:00, off 06:00).
type Schedule struct {
	ID      string  `json:"id"`
	Name    string  `json:"name,omitempty"`
	GroupID string  `json:"groupId,omitempty"`
	Cycles  []Cycle `json:"cycles"`
}

// Cycle is a single on/off window within a schedule.
type Cycle struct {
	On  string `json:"on"`
	Off string `json:"off"`
}

// IsScheduleActive reports whether the current minute of day falls inside
// any cycle's [on, off) window. Cycles missing either endpoint are ignored.
// A schedule with no cycles is never active.
func IsScheduleActive(schedule Schedule, now time.Time) bool {
	currentMinutes := now.Hour()*60 + now.Minute()

	for _, cycle := range schedule.Cycles {
		if cycle.On == "" || cycle.Off == "" {
			continue
		}

		onMinutes := timeToMinutes(cycle.On)
		offMinutes := timeToMinutes(cycle.Off)

		if offMinutes < onMinutes {
			// Crosses midnight, e.g. on 22:00, off 06:00.
			if currentMinutes >= onMinutes || currentMinutes < offMinutes {
				return true
			}
		} else {
			if currentMinutes >= onMinutes && currentMinutes < offMinutes {
				return true
			}
		}
	}

	return false
}

// timeToMinutes parses an HH:MM string into minutes since midnight.
// Malformed components parse as 0, matching the tolerant handling of
// hand-edited schedule documents.
func timeToMinutes(value string) int {
	if value == "" {
		return 0
	}

	parts := strings.SplitN(value, ":", 2)
	hours, _ := strconv.Atoi(parts[0])

	minutes := 0
	if len(parts) == 2 {
		minutes, _ = strconv.Atoi(parts[1])
	}

	return hours*60 + minutes
}
