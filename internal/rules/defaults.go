package rules

import "github.com/lumenfield/growcore/internal/actions"

// DefaultRules returns the starter rule set covering the common grow
// room scenarios. Sites override or disable them through the rules API.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:   "high-temp-exhaust",
			Name: "High Temperature → Exhaust Fans",
			Trigger: Trigger{
				Type:      "temperature",
				Condition: &ValueCondition{Operator: "gt", Threshold: 28},
			},
			Actions: actions.List{
				actions.KasaControl{DeviceID: "exhaust-fan-kasa", Command: "turnOn"},
				actions.IFTTTTrigger{
					Event: "farm_alert_high_temp",
					Data:  map[string]any{"value1": "High temperature detected"},
				},
			},
			Options: Options{DebounceMS: 300000},
		},
		{
			ID:   "low-humidity-misters",
			Name: "Low Humidity → Activate Misters",
			Trigger: Trigger{
				Type:      "humidity",
				Condition: &ValueCondition{Operator: "lt", Threshold: 60},
			},
			Actions: actions.List{
				actions.SwitchBotControl{DeviceID: "mister-switchbot", Command: "turnOn"},
			},
			Conditions: &Conditions{
				TimeRange: &TimeRange{Start: 6, End: 20},
			},
			Options: Options{DebounceMS: 600000},
		},
		{
			ID:   "motion-security-lights",
			Name: "Motion Detection → Security Lights",
			Trigger: Trigger{
				Type:      "motion",
				Condition: &ValueCondition{Operator: "eq", Threshold: 1},
			},
			Actions: actions.List{
				actions.ScenarioRef{
					ScenarioID: "security-lighting",
					Parameters: map[string]any{"duration": 600000},
				},
			},
			Conditions: &Conditions{
				TimeRange: &TimeRange{Start: 20, End: 6},
			},
			Options: Options{DebounceMS: 30000},
		},
	}
}
