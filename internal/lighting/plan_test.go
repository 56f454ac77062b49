package lighting

import (
	"errors"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestCalculateDPS(t *testing.T) {
	tests := []struct {
		name string
		seed time.Time
		now  time.Time
		want int
	}{
		{"same day", date(2026, 3, 1), date(2026, 3, 1), 0},
		{"same day later hour", date(2026, 3, 1), time.Date(2026, 3, 1, 23, 59, 0, 0, time.Local), 0},
		{"one day elapsed", date(2026, 3, 1), date(2026, 3, 2), 1},
		{"partial day still counts midnights", date(2026, 3, 1), time.Date(2026, 3, 2, 0, 5, 0, 0, time.Local), 1},
		{"thirty days", date(2026, 3, 1), date(2026, 3, 31), 30},
		{"seed in the future clamps to zero", date(2026, 3, 10), date(2026, 3, 1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateDPS(tt.seed, tt.now)
			if got != tt.want {
				t.Errorf("CalculateDPS() = %d, want %d", got, tt.want)
			}
			if got < 0 {
				t.Errorf("CalculateDPS() = %d, must never be negative", got)
			}
		})
	}
}

func TestCurrentRecipe(t *testing.T) {
	plan := Plan{
		ID:   "lettuce-21",
		Name: "Lettuce 21 Day",
		Env: PlanEnv{Days: []Recipe{
			{CW: 10, WW: 10},
			{CW: 20, WW: 20},
			{CW: 30, WW: 30},
		}},
	}

	tests := []struct {
		name   string
		plan   Plan
		config PlanConfig
		now    time.Time
		want   *Recipe
		Err    error
	}{
		{
			name:   "direct dps mode",
			plan:   plan,
			config: PlanConfig{AnchorMode: AnchorModeDPS, DPS: intPtr(1)},
			want:   &Recipe{CW: 20, WW: 20},
		},
		{
			name:   "dps wraps past table end",
			plan:   plan,
			config: PlanConfig{AnchorMode: AnchorModeDPS, DPS: intPtr(7)},
			want:   &Recipe{CW: 20, WW: 20}, // 7 % 3 == 1
		},
		{
			name:   "seed date anchoring",
			plan:   plan,
			config: PlanConfig{SeedDate: "2026-03-01"},
			now:    date(2026, 3, 3),
			want:   &Recipe{CW: 30, WW: 30},
		},
		{
			name:   "seed date wraps",
			plan:   plan,
			config: PlanConfig{SeedDate: "2026-03-01"},
			now:    date(2026, 3, 5), // DPS 4, 4 % 3 == 1
			want:   &Recipe{CW: 20, WW: 20},
		},
		{
			name:   "missing anchor",
			plan:   plan,
			config: PlanConfig{},
			Err:    ErrMissingAnchor,
		},
		{
			name:   "unparseable seed date",
			plan:   plan,
			config: PlanConfig{SeedDate: "yesterday"},
			Err:    ErrInvalidSeedDate,
		},
		{
			name:   "missing day table",
			plan:   Plan{ID: "broken"},
			config: PlanConfig{AnchorMode: AnchorModeDPS, DPS: intPtr(0)},
			Err:    ErrMissingDayTable,
		},
		{
			name:   "empty day table yields nil",
			plan:   Plan{ID: "empty", Env: PlanEnv{Days: []Recipe{}}},
			config: PlanConfig{AnchorMode: AnchorModeDPS, DPS: intPtr(0)},
			want:   nil,
		},
		{
			name:   "negative dps yields nil",
			plan:   plan,
			config: PlanConfig{AnchorMode: AnchorModeDPS, DPS: intPtr(-2)},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CurrentRecipe(tt.plan, tt.config, tt.now)

			if tt.Err != nil {
				if !errors.Is(err, tt.Err) {
					t.Fatalf("CurrentRecipe() error = %v, want %v", err, tt.Err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CurrentRecipe() unexpected error: %v", err)
			}

			switch {
			case tt.want == nil && got != nil:
				t.Errorf("CurrentRecipe() = %+v, want nil", got)
			case tt.want != nil && got == nil:
				t.Errorf("CurrentRecipe() = nil, want %+v", tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Errorf("CurrentRecipe() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCurrentRecipeRFC3339SeedDate(t *testing.T) {
	plan := Plan{Env: PlanEnv{Days: []Recipe{{CW: 10}, {CW: 20}}}}
	config := PlanConfig{SeedDate: "2026-03-01T08:30:00Z"}

	got, err := CurrentRecipe(plan, config, date(2026, 3, 2))
	if err != nil {
		t.Fatalf("CurrentRecipe() error: %v", err)
	}
	if got == nil || got.CW != 20 {
		t.Errorf("CurrentRecipe() = %+v, want CW 20", got)
	}
}
