package rules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lumenfield/growcore/internal/actions"
)

// ActionExecutor dispatches a single action. The actions package's
// Dispatcher satisfies it.
type ActionExecutor interface {
	Execute(ctx context.Context, action actions.Action, trig actions.TriggerContext) (any, error)
}

// ExecutionSink receives every execution record the engine produces, in
// addition to the in-memory history. The audit store and the telemetry
// writer implement it.
type ExecutionSink interface {
	RecordExecution(ctx context.Context, record ExecutionRecord) error
}

// Engine evaluates sensor readings against registered rules and
// dispatches matched rules' actions.
type Engine struct {
	executor ActionExecutor
	logger   Logger
	history  *History
	nowFunc  func() time.Time

	mu      sync.RWMutex
	rules   []Rule
	enabled map[string]bool
	sinks   []ExecutionSink

	debounceMu sync.Mutex
	lastFired  map[string]time.Time

	cacheMu     sync.RWMutex
	sensorCache map[string]CachedReading
}

// NewEngine creates an engine dispatching through the given executor.
// A nil logger disables engine logging.
func NewEngine(executor ActionExecutor, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		executor:    executor,
		logger:      logger,
		history:     NewHistory(),
		nowFunc:     time.Now,
		enabled:     make(map[string]bool),
		lastFired:   make(map[string]time.Time),
		sensorCache: make(map[string]CachedReading),
	}
}

// AddSink registers an additional destination for execution records.
// Sink failures are logged, never propagated.
func (e *Engine) AddSink(sink ExecutionSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, sink)
}

// LoadDefaults registers the built-in starter rules. Rules already
// registered under the same ID are left untouched.
func (e *Engine) LoadDefaults() {
	for _, rule := range DefaultRules() {
		if _, err := e.Get(rule.ID); err == nil {
			continue
		}
		if err := e.Register(rule); err != nil {
			e.logger.Error("default rule rejected", "rule_id", rule.ID, "error", err)
			continue
		}
		e.logger.Info("default rule registered", "rule_id", rule.ID, "name", rule.Name)
	}
}

// Register adds or replaces a rule and enables it. The rule must pass
// validation.
func (e *Engine) Register(rule Rule) error {
	if err := ValidateRule(&rule); err != nil {
		return err
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = e.nowFunc()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	replaced := false
	for i := range e.rules {
		if e.rules[i].ID == rule.ID {
			e.rules[i] = rule
			replaced = true
			break
		}
	}
	if !replaced {
		e.rules = append(e.rules, rule)
	}
	e.enabled[rule.ID] = true
	return nil
}

// Remove deletes a rule and clears its debounce state.
func (e *Engine) Remove(id string) error {
	e.mu.Lock()
	found := false
	for i := range e.rules {
		if e.rules[i].ID == id {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			found = true
			break
		}
	}
	delete(e.enabled, id)
	e.mu.Unlock()

	if !found {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}

	e.debounceMu.Lock()
	delete(e.lastFired, id)
	e.debounceMu.Unlock()
	return nil
}

// SetEnabled toggles a rule without removing it.
func (e *Engine) SetEnabled(id string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.rules {
		if e.rules[i].ID == id {
			e.enabled[id] = enabled
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
}

// Get returns a registered rule by ID.
func (e *Engine) Get(id string) (Rule, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for i := range e.rules {
		if e.rules[i].ID == id {
			return e.rules[i], nil
		}
	}
	return Rule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
}

// Rules returns the introspection view of all registered rules in
// registration order.
func (e *Engine) Rules() []RuleInfo {
	e.mu.RLock()
	rules := make([]Rule, len(e.rules))
	copy(rules, e.rules)
	enabled := make(map[string]bool, len(e.enabled))
	for id, on := range e.enabled {
		enabled[id] = on
	}
	e.mu.RUnlock()

	e.debounceMu.Lock()
	fired := make(map[string]time.Time, len(e.lastFired))
	for id, at := range e.lastFired {
		fired[id] = at
	}
	e.debounceMu.Unlock()

	infos := make([]RuleInfo, 0, len(rules))
	for _, rule := range rules {
		info := RuleInfo{Rule: rule, Enabled: enabled[rule.ID]}
		if at, ok := fired[rule.ID]; ok {
			t := at
			info.LastFired = &t
		}
		infos = append(infos, info)
	}
	return infos
}

// History returns up to limit execution records, newest first.
func (e *Engine) History(limit int) []ExecutionRecord {
	return e.history.Recent(limit)
}

// SensorCache returns a copy of the last reading seen per
// source/device/type tuple.
func (e *Engine) SensorCache() map[string]CachedReading {
	e.cacheMu.RLock()
	defer e.cacheMu.RUnlock()
	out := make(map[string]CachedReading, len(e.sensorCache))
	for k, v := range e.sensorCache {
		out[k] = v
	}
	return out
}

// Evaluate runs the reading through every enabled rule. Matched rules
// clear their gates synchronously and then execute concurrently; the
// call returns once all dispatched rules have finished.
func (e *Engine) Evaluate(ctx context.Context, reading SensorReading) {
	now := e.nowFunc()
	if reading.Timestamp.IsZero() {
		reading.Timestamp = now
	}
	e.cacheReading(reading, now)

	e.mu.RLock()
	matched := make([]Rule, 0, 4)
	for i := range e.rules {
		rule := e.rules[i]
		if !e.enabled[rule.ID] {
			continue
		}
		if rule.Trigger.Matches(reading) {
			matched = append(matched, rule)
		}
	}
	e.mu.RUnlock()

	var wg sync.WaitGroup
	for _, rule := range matched {
		if !e.clearGates(rule, now) {
			continue
		}
		wg.Add(1)
		go func(r Rule) {
			defer wg.Done()
			e.runRule(ctx, r, reading)
		}(rule)
	}
	wg.Wait()
}

// clearGates checks debounce, conditions and schedule. The debounce
// timestamp is set as soon as the rule clears all gates, before any
// action dispatches, so slow or failing actions still suppress repeats.
// The lock is held across check and set so concurrent readings cannot
// both clear the gate.
func (e *Engine) clearGates(rule Rule, now time.Time) bool {
	e.debounceMu.Lock()
	defer e.debounceMu.Unlock()

	last, fired := e.lastFired[rule.ID]
	if fired && now.Sub(last) < rule.Debounce() {
		e.logger.Debug("rule debounced", "rule_id", rule.ID, "since", now.Sub(last))
		return false
	}
	if !rule.Conditions.met(now) {
		e.logger.Debug("rule conditions not met", "rule_id", rule.ID)
		return false
	}
	if !rule.Schedule.active(now) {
		e.logger.Debug("rule outside schedule", "rule_id", rule.ID)
		return false
	}

	e.lastFired[rule.ID] = now
	return true
}

// runRule dispatches every action of a matched rule and records the
// outcome. Panics from an executor are converted into error records so
// one rule cannot take down evaluation of a reading.
func (e *Engine) runRule(ctx context.Context, rule Rule, reading SensorReading) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("rule execution panicked", "rule_id", rule.ID, "panic", r)
			e.record(ctx, ExecutionRecord{
				ID:        GenerateID(),
				RuleID:    rule.ID,
				RuleName:  rule.Name,
				Status:    StatusError,
				Trigger:   reading,
				Error:     fmt.Sprintf("panic: %v", r),
				Timestamp: e.nowFunc(),
			})
		}
	}()

	if e.executor == nil {
		e.record(ctx, ExecutionRecord{
			ID:        GenerateID(),
			RuleID:    rule.ID,
			RuleName:  rule.Name,
			Status:    StatusError,
			Trigger:   reading,
			Error:     ErrNoExecutor.Error(),
			Timestamp: e.nowFunc(),
		})
		return
	}

	trig := actions.TriggerContext{
		Source:   reading.Source,
		DeviceID: reading.DeviceID,
		Type:     reading.Type,
		Value:    reading.Value,
	}

	results := make([]ActionResult, 0, len(rule.Actions))
	failed := 0
	for _, action := range rule.Actions {
		result, err := e.executor.Execute(ctx, action, trig)
		if err != nil {
			failed++
			results = append(results, ActionResult{
				Action: string(action.ActionType()),
				Status: StatusError,
				Error:  err.Error(),
			})
			e.logger.Warn("action failed",
				"rule_id", rule.ID, "action", string(action.ActionType()), "error", err)
			continue
		}
		results = append(results, ActionResult{
			Action: string(action.ActionType()),
			Status: StatusExecuted,
			Result: result,
		})
	}

	status := StatusExecuted
	var errMsg string
	if failed == len(rule.Actions) && failed > 0 {
		status = StatusError
		errMsg = "all actions failed"
	}
	e.record(ctx, ExecutionRecord{
		ID:        GenerateID(),
		RuleID:    rule.ID,
		RuleName:  rule.Name,
		Status:    status,
		Trigger:   reading,
		Results:   results,
		Error:     errMsg,
		Timestamp: e.nowFunc(),
	})
	e.logger.Info("rule executed",
		"rule_id", rule.ID, "name", rule.Name, "status", status,
		"actions", len(results), "failed", failed)
}

func (e *Engine) record(ctx context.Context, record ExecutionRecord) {
	e.history.Append(record)

	e.mu.RLock()
	sinks := make([]ExecutionSink, len(e.sinks))
	copy(sinks, e.sinks)
	e.mu.RUnlock()

	for _, sink := range sinks {
		if err := sink.RecordExecution(ctx, record); err != nil {
			e.logger.Warn("execution sink failed", "record_id", record.ID, "error", err)
		}
	}
}

func (e *Engine) cacheReading(reading SensorReading, now time.Time) {
	key := reading.Source + "-" + reading.DeviceID + "-" + reading.Type
	e.cacheMu.Lock()
	e.sensorCache[key] = CachedReading{SensorReading: reading, CachedAt: now}
	e.cacheMu.Unlock()
}
