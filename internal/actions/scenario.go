package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Scenario is a named, ordered sequence of actions executed as a unit.
type Scenario struct {
	Steps []Step `json:"steps"`
}

// Step is one action within a scenario, with optional inter-step delay and
// abort-on-failure behaviour.
type Step struct {
	Action Action

	// Name labels the step in results; defaults to the action type.
	Name string

	// DelayMS is slept after the step completes, before the next one starts.
	DelayMS int

	// Critical aborts the remaining steps when this one fails.
	Critical bool
}

// stepEnvelope carries the step-level fields that live alongside the action
// fields in scenario documents.
type stepEnvelope struct {
	Name     string `json:"name,omitempty"`
	Delay    int    `json:"delay,omitempty"`
	Critical bool   `json:"critical,omitempty"`
}

// UnmarshalJSON decodes a step: the action fields and the step-level
// delay/critical/name fields share one flat object.
func (s *Step) UnmarshalJSON(data []byte) error {
	var env stepEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	action, err := Decode(data)
	if err != nil {
		return err
	}

	s.Action = action
	s.Name = env.Name
	s.DelayMS = env.Delay
	s.Critical = env.Critical
	return nil
}

// MarshalJSON flattens the step back into a single tagged object.
func (s Step) MarshalJSON() ([]byte, error) {
	m, err := Encode(s.Action)
	if err != nil {
		return nil, err
	}
	if s.Name != "" {
		m["name"] = s.Name
	}
	if s.DelayMS != 0 {
		m["delay"] = s.DelayMS
	}
	if s.Critical {
		m["critical"] = true
	}
	return json.Marshal(m)
}

// label returns the step's result label.
func (s Step) label() string {
	if s.Name != "" {
		return s.Name
	}
	return string(s.Action.ActionType())
}

// Library is the scenario registry. It is seeded with the built-in farm
// scenarios and can be extended from configuration at startup.
//
// All methods are thread-safe.
type Library struct {
	mu        sync.RWMutex
	scenarios map[string]Scenario
}

// NewLibrary creates a library preloaded with the default scenarios.
func NewLibrary() *Library {
	l := &Library{scenarios: make(map[string]Scenario)}
	for id, sc := range defaultScenarios() {
		l.scenarios[id] = sc
	}
	return l
}

// Register adds or replaces a scenario by ID.
func (l *Library) Register(id string, scenario Scenario) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scenarios[id] = scenario
}

// Get retrieves a scenario by ID.
func (l *Library) Get(id string) (Scenario, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	sc, ok := l.scenarios[id]
	return sc, ok
}

// IDs returns the registered scenario identifiers.
func (l *Library) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.scenarios))
	for id := range l.scenarios {
		ids = append(ids, id)
	}
	return ids
}

// defaultScenarios returns the built-in scenarios.
func defaultScenarios() map[string]Scenario {
	return map[string]Scenario{
		"security-lighting": {
			Steps: []Step{
				{Action: KasaControl{DeviceID: "security-light-1", Command: "turnOn"}},
				{Action: KasaControl{DeviceID: "security-light-2", Command: "turnOn"}},
				{Action: IFTTTTrigger{
					Event: "security_motion_alert",
					Data:  map[string]any{"value1": "Motion detected"},
				}},
			},
		},
	}
}

// StepResult records the outcome of a single scenario step.
type StepResult struct {
	Step    string `json:"step"`
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ScenarioResult aggregates per-step outcomes for one scenario execution.
type ScenarioResult struct {
	Scenario string       `json:"scenario"`
	Steps    []StepResult `json:"steps"`
}

// ExecuteScenario looks up a scenario and executes its steps in array order.
//
// The scenario-level parameters map is shallow-merged over each step's
// fields before dispatch, so a parameter silently overrides a step field of
// the same name. This precedence is load-bearing: existing scenario
// documents rely on it to retarget steps at activation time.
//
// A step's delay is slept after the step completes. A failed step marked
// critical aborts the remaining steps; the result still carries every step
// already run. Non-critical failures are recorded and execution continues.
//
// An unknown scenario ID is fatal to this call.
func (d *Dispatcher) ExecuteScenario(ctx context.Context, scenarioID string, parameters map[string]any, trig TriggerContext) (ScenarioResult, error) {
	if d.library == nil {
		return ScenarioResult{}, fmt.Errorf("%w: %q (no library configured)", ErrScenarioNotFound, scenarioID)
	}

	scenario, ok := d.library.Get(scenarioID)
	if !ok {
		return ScenarioResult{}, fmt.Errorf("%w: %q", ErrScenarioNotFound, scenarioID)
	}

	result := ScenarioResult{Scenario: scenarioID}

	for _, step := range scenario.Steps {
		stepAction, err := mergeStepAction(step.Action, parameters)
		if err != nil {
			result.Steps = append(result.Steps, StepResult{Step: step.label(), Error: err.Error()})
			if step.Critical {
				break
			}
			continue
		}

		stepResult, err := d.Execute(ctx, stepAction, trig)
		if err != nil {
			d.logger.Error("scenario step failed",
				"scenario", scenarioID,
				"step", step.label(),
				"error", err,
			)
			result.Steps = append(result.Steps, StepResult{Step: step.label(), Error: err.Error()})
			if step.Critical {
				break
			}
			continue
		}

		result.Steps = append(result.Steps, StepResult{Step: step.label(), Success: true, Result: stepResult})

		if step.DelayMS > 0 {
			select {
			case <-time.After(time.Duration(step.DelayMS) * time.Millisecond):
			case <-ctx.Done():
				return result, fmt.Errorf("scenario %q interrupted: %w", scenarioID, ctx.Err())
			}
		}
	}

	return result, nil
}

// mergeStepAction overlays scenario parameters onto a step's action fields.
// Returns the step action unchanged when there is nothing to merge.
func mergeStepAction(action Action, parameters map[string]any) (Action, error) {
	if len(parameters) == 0 {
		return action, nil
	}

	m, err := Encode(action)
	if err != nil {
		return nil, err
	}
	for k, v := range parameters {
		m[k] = v
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("merging step parameters: %w", err)
	}
	return Decode(raw)
}
