package lighting

import (
	"testing"
	"time"
)

func clock(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.Local)
}

func TestIsScheduleActive(t *testing.T) {
	daytime := Schedule{ID: "day", Cycles: []Cycle{{On: "08:00", Off: "20:00"}}}
	overnight := Schedule{ID: "night", Cycles: []Cycle{{On: "22:00", Off: "06:00"}}}

	tests := []struct {
		name     string
		schedule Schedule
		now      time.Time
		want     bool
	}{
		{"daytime window mid-morning", daytime, clock(10, 0), true},
		{"daytime window at on boundary", daytime, clock(8, 0), true},
		{"daytime window at off boundary", daytime, clock(20, 0), false},
		{"daytime window before on", daytime, clock(7, 59), false},
		{"overnight window late evening", overnight, clock(23, 30), true},
		{"overnight window early morning", overnight, clock(2, 0), true},
		{"overnight window midday", overnight, clock(12, 0), false},
		{"overnight window at off boundary", overnight, clock(6, 0), false},
		{"no cycles", Schedule{ID: "empty"}, clock(12, 0), false},
		{
			"cycle missing off is ignored",
			Schedule{Cycles: []Cycle{{On: "08:00"}}},
			clock(10, 0),
			false,
		},
		{
			"second cycle matches",
			Schedule{Cycles: []Cycle{
				{On: "06:00", Off: "10:00"},
				{On: "16:00", Off: "22:00"},
			}},
			clock(18, 0),
			true,
		},
		{
			"gap between cycles",
			Schedule{Cycles: []Cycle{
				{On: "06:00", Off: "10:00"},
				{On: "16:00", Off: "22:00"},
			}},
			clock(12, 0),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsScheduleActive(tt.schedule, tt.now)
			if got != tt.want {
				t.Errorf("IsScheduleActive(%s at %s) = %v, want %v",
					tt.schedule.ID, tt.now.Format("15:04"), got, tt.want)
			}
		})
	}
}

func TestTimeToMinutes(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"00:00", 0},
		{"06:00", 360},
		{"22:30", 1350},
		{"8", 480},
		{"", 0},
		{"garbage", 0},
	}

	for _, tt := range tests {
		if got := timeToMinutes(tt.value); got != tt.want {
			t.Errorf("timeToMinutes(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}
}
