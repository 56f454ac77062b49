package rules

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lumenfield/growcore/internal/actions"
)

type executedCall struct {
	action actions.Action
	trig   actions.TriggerContext
}

// mockExecutor records dispatched actions and optionally fails or
// panics for selected action types.
type mockExecutor struct {
	mu      sync.Mutex
	calls   []executedCall
	failOn  map[actions.Type]error
	panicOn actions.Type
}

func (m *mockExecutor) Execute(_ context.Context, action actions.Action, trig actions.TriggerContext) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panicOn != "" && action.ActionType() == m.panicOn {
		panic("executor blew up")
	}
	m.calls = append(m.calls, executedCall{action: action, trig: trig})
	if err, ok := m.failOn[action.ActionType()]; ok {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}

func (m *mockExecutor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockExecutor) callTypes() []actions.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]actions.Type, 0, len(m.calls))
	for _, c := range m.calls {
		out = append(out, c.action.ActionType())
	}
	return out
}

type mockSink struct {
	mu      sync.Mutex
	records []ExecutionRecord
	err     error
}

func (m *mockSink) RecordExecution(_ context.Context, record ExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return m.err
}

// newTestEngine returns an engine with a frozen clock. The returned
// advance func moves the clock forward.
func newTestEngine(t *testing.T, exec ActionExecutor) (*Engine, func(time.Duration)) {
	t.Helper()
	e := NewEngine(exec, nil)
	// Daytime so default rule conditions pass if loaded.
	now := time.Date(2026, 8, 29, 14, 0, 0, 0, time.Local)
	var mu sync.Mutex
	e.nowFunc = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	return e, func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
}

func simpleRule(id, sensorType string, cond *ValueCondition) Rule {
	return Rule{
		ID:      id,
		Name:    id,
		Trigger: Trigger{Type: sensorType, Condition: cond},
		Actions: actions.List{&actions.KasaControl{DeviceID: "plug-" + id, Command: "turnOn"}},
	}
}

func TestEngineRegisterValidation(t *testing.T) {
	e, _ := newTestEngine(t, &mockExecutor{})

	if err := e.Register(Rule{ID: "no-actions", Name: "x"}); !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("Register without actions: got %v, want ErrInvalidRule", err)
	}
	if err := e.Register(simpleRule("ok", "temperature", nil)); err != nil {
		t.Fatalf("Register valid rule: %v", err)
	}
	if _, err := e.Get("ok"); err != nil {
		t.Fatalf("Get after register: %v", err)
	}

	// Re-registering replaces in place and keeps it enabled.
	updated := simpleRule("ok", "humidity", nil)
	if err := e.Register(updated); err != nil {
		t.Fatalf("Register replacement: %v", err)
	}
	got, _ := e.Get("ok")
	if got.Trigger.Type != "humidity" {
		t.Errorf("replacement trigger type = %q, want humidity", got.Trigger.Type)
	}
	if infos := e.Rules(); len(infos) != 1 || !infos[0].Enabled {
		t.Errorf("expected single enabled rule, got %+v", infos)
	}
}

func TestEngineEvaluateDispatchesMatchedRule(t *testing.T) {
	exec := &mockExecutor{}
	e, _ := newTestEngine(t, exec)
	if err := e.Register(simpleRule("hot", "temperature", &ValueCondition{Operator: "gt", Threshold: 28})); err != nil {
		t.Fatal(err)
	}

	e.Evaluate(context.Background(), SensorReading{Type: "temperature", DeviceID: "sensor-1", Value: 29})
	if exec.callCount() != 1 {
		t.Fatalf("call count = %d, want 1", exec.callCount())
	}
	exec.mu.Lock()
	trig := exec.calls[0].trig
	exec.mu.Unlock()
	if trig.DeviceID != "sensor-1" || trig.Value != 29 {
		t.Errorf("trigger context = %+v", trig)
	}

	// Below threshold: no dispatch.
	e.Evaluate(context.Background(), SensorReading{Type: "temperature", Value: 27})
	if exec.callCount() != 1 {
		t.Errorf("call count after non-match = %d, want 1", exec.callCount())
	}

	records := e.History(0)
	if len(records) != 1 {
		t.Fatalf("history length = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.Status != StatusExecuted || rec.RuleID != "hot" {
		t.Errorf("record = %+v", rec)
	}
	if rec.ID == "" {
		t.Error("record missing generated ID")
	}
	if len(rec.Results) != 1 || rec.Results[0].Status != StatusExecuted {
		t.Errorf("results = %+v", rec.Results)
	}
}

func TestEngineDebounce(t *testing.T) {
	exec := &mockExecutor{}
	e, advance := newTestEngine(t, exec)

	rule := simpleRule("hot", "temperature", &ValueCondition{Operator: "gt", Threshold: 28})
	rule.Options.DebounceMS = 300000
	if err := e.Register(rule); err != nil {
		t.Fatal(err)
	}

	reading := SensorReading{Type: "temperature", Value: 30}
	e.Evaluate(context.Background(), reading)
	e.Evaluate(context.Background(), reading)
	if exec.callCount() != 1 {
		t.Fatalf("calls within debounce window = %d, want 1", exec.callCount())
	}

	advance(4 * time.Minute)
	e.Evaluate(context.Background(), reading)
	if exec.callCount() != 1 {
		t.Fatalf("calls at 4m = %d, want still 1", exec.callCount())
	}

	advance(90 * time.Second)
	e.Evaluate(context.Background(), reading)
	if exec.callCount() != 2 {
		t.Fatalf("calls after debounce expiry = %d, want 2", exec.callCount())
	}
}

func TestEngineDebounceSetBeforeDispatch(t *testing.T) {
	// A failing action must still arm the debounce window.
	exec := &mockExecutor{failOn: map[actions.Type]error{actions.TypeKasaControl: errors.New("device offline")}}
	e, _ := newTestEngine(t, exec)
	if err := e.Register(simpleRule("hot", "temperature", nil)); err != nil {
		t.Fatal(err)
	}

	reading := SensorReading{Type: "temperature", Value: 30}
	e.Evaluate(context.Background(), reading)
	e.Evaluate(context.Background(), reading)
	if exec.callCount() != 1 {
		t.Fatalf("calls = %d, want 1: failed dispatch must not reopen the gate", exec.callCount())
	}
	records := e.History(0)
	if len(records) != 1 || records[0].Status != StatusError {
		t.Fatalf("records = %+v, want single error record", records)
	}
	if records[0].Results[0].Error != "device offline" {
		t.Errorf("result error = %q", records[0].Results[0].Error)
	}
}

func TestEngineErrorIsolation(t *testing.T) {
	exec := &mockExecutor{failOn: map[actions.Type]error{actions.TypeSwitchBotControl: errors.New("boom")}}
	e, _ := newTestEngine(t, exec)

	failing := Rule{
		ID: "failing", Name: "failing",
		Trigger: Trigger{Type: "temperature"},
		Actions: actions.List{&actions.SwitchBotControl{DeviceID: "bot-1", Command: "turnOn"}},
	}
	healthy := simpleRule("healthy", "temperature", nil)
	if err := e.Register(failing); err != nil {
		t.Fatal(err)
	}
	if err := e.Register(healthy); err != nil {
		t.Fatal(err)
	}

	e.Evaluate(context.Background(), SensorReading{Type: "temperature", Value: 22})

	if exec.callCount() != 2 {
		t.Fatalf("call count = %d, want both rules dispatched", exec.callCount())
	}
	byRule := map[string]string{}
	for _, rec := range e.History(0) {
		byRule[rec.RuleID] = rec.Status
	}
	if byRule["failing"] != StatusError {
		t.Errorf("failing rule status = %q, want error", byRule["failing"])
	}
	if byRule["healthy"] != StatusExecuted {
		t.Errorf("healthy rule status = %q, want executed", byRule["healthy"])
	}
}

func TestEnginePanicRecovery(t *testing.T) {
	exec := &mockExecutor{panicOn: actions.TypeKasaControl}
	e, _ := newTestEngine(t, exec)
	if err := e.Register(simpleRule("angry", "temperature", nil)); err != nil {
		t.Fatal(err)
	}

	e.Evaluate(context.Background(), SensorReading{Type: "temperature", Value: 22})

	records := e.History(0)
	if len(records) != 1 {
		t.Fatalf("history length = %d, want 1", len(records))
	}
	if records[0].Status != StatusError || !strings.Contains(records[0].Error, "panic") {
		t.Errorf("record = %+v, want panic error record", records[0])
	}
}

func TestEnginePartialActionFailureStillExecuted(t *testing.T) {
	exec := &mockExecutor{failOn: map[actions.Type]error{actions.TypeIFTTTTrigger: errors.New("webhook down")}}
	e, _ := newTestEngine(t, exec)

	rule := Rule{
		ID: "mixed", Name: "mixed",
		Trigger: Trigger{Type: "temperature"},
		Actions: actions.List{
			&actions.KasaControl{DeviceID: "fan-1", Command: "turnOn"},
			&actions.IFTTTTrigger{Event: "alert"},
		},
	}
	if err := e.Register(rule); err != nil {
		t.Fatal(err)
	}

	e.Evaluate(context.Background(), SensorReading{Type: "temperature", Value: 22})

	rec := e.History(0)[0]
	if rec.Status != StatusExecuted {
		t.Errorf("status = %q, want executed when at least one action succeeds", rec.Status)
	}
	if len(rec.Results) != 2 {
		t.Fatalf("results = %+v", rec.Results)
	}
	if rec.Results[0].Status != StatusExecuted || rec.Results[1].Status != StatusError {
		t.Errorf("per-action statuses = %+v", rec.Results)
	}
}

func TestEngineSetEnabledAndRemove(t *testing.T) {
	exec := &mockExecutor{}
	e, advance := newTestEngine(t, exec)
	if err := e.Register(simpleRule("hot", "temperature", nil)); err != nil {
		t.Fatal(err)
	}

	if err := e.SetEnabled("hot", false); err != nil {
		t.Fatal(err)
	}
	e.Evaluate(context.Background(), SensorReading{Type: "temperature", Value: 30})
	if exec.callCount() != 0 {
		t.Fatalf("disabled rule dispatched %d times", exec.callCount())
	}

	if err := e.SetEnabled("hot", true); err != nil {
		t.Fatal(err)
	}
	e.Evaluate(context.Background(), SensorReading{Type: "temperature", Value: 30})
	if exec.callCount() != 1 {
		t.Fatalf("re-enabled rule calls = %d, want 1", exec.callCount())
	}

	// Removing clears debounce state: re-registering fires immediately.
	if err := e.Remove("hot"); err != nil {
		t.Fatal(err)
	}
	advance(time.Second)
	if err := e.Register(simpleRule("hot", "temperature", nil)); err != nil {
		t.Fatal(err)
	}
	e.Evaluate(context.Background(), SensorReading{Type: "temperature", Value: 30})
	if exec.callCount() != 2 {
		t.Fatalf("calls after remove and re-register = %d, want 2", exec.callCount())
	}

	if err := e.Remove("missing"); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Remove missing: got %v, want ErrRuleNotFound", err)
	}
	if err := e.SetEnabled("missing", true); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("SetEnabled missing: got %v, want ErrRuleNotFound", err)
	}
}

func TestEngineSensorCache(t *testing.T) {
	e, _ := newTestEngine(t, &mockExecutor{})

	e.Evaluate(context.Background(), SensorReading{Source: "switchbot", DeviceID: "s1", Type: "temperature", Value: 21})
	e.Evaluate(context.Background(), SensorReading{Source: "switchbot", DeviceID: "s1", Type: "temperature", Value: 24})
	e.Evaluate(context.Background(), SensorReading{Source: "switchbot", DeviceID: "s1", Type: "humidity", Value: 55})

	cache := e.SensorCache()
	if len(cache) != 2 {
		t.Fatalf("cache size = %d, want 2", len(cache))
	}
	if got := cache["switchbot-s1-temperature"].Value; got != 24 {
		t.Errorf("cached temperature = %v, want latest reading 24", got)
	}
	if cache["switchbot-s1-temperature"].CachedAt.IsZero() {
		t.Error("cache entry missing timestamp")
	}
}

func TestEngineSinksReceiveRecords(t *testing.T) {
	sink := &mockSink{}
	broken := &mockSink{err: errors.New("disk full")}
	e, _ := newTestEngine(t, &mockExecutor{})
	e.AddSink(sink)
	e.AddSink(broken)
	if err := e.Register(simpleRule("hot", "temperature", nil)); err != nil {
		t.Fatal(err)
	}

	e.Evaluate(context.Background(), SensorReading{Type: "temperature", Value: 30})

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.records) != 1 {
		t.Fatalf("sink records = %d, want 1", len(sink.records))
	}
	if sink.records[0].RuleID != "hot" {
		t.Errorf("sink record = %+v", sink.records[0])
	}
	// Broken sink must not prevent delivery or history append.
	if e.history.Len() != 1 {
		t.Errorf("history length = %d, want 1", e.history.Len())
	}
}

func TestEngineDefaultRulesEndToEnd(t *testing.T) {
	exec := &mockExecutor{}
	e, advance := newTestEngine(t, exec)
	e.LoadDefaults()

	if len(e.Rules()) != 3 {
		t.Fatalf("default rule count = %d, want 3", len(e.Rules()))
	}

	reading := SensorReading{Source: "switchbot", DeviceID: "greenhouse-1", Type: "temperature", Value: 29}
	e.Evaluate(context.Background(), reading)

	types := exec.callTypes()
	if len(types) != 2 {
		t.Fatalf("dispatched actions = %v, want kasa_control and ifttt_trigger", types)
	}
	seen := map[actions.Type]bool{}
	for _, at := range types {
		seen[at] = true
	}
	if !seen[actions.TypeKasaControl] || !seen[actions.TypeIFTTTTrigger] {
		t.Errorf("dispatched types = %v", types)
	}

	// Repeat within the 5 minute debounce: suppressed.
	advance(time.Minute)
	e.Evaluate(context.Background(), reading)
	if exec.callCount() != 2 {
		t.Errorf("calls after repeat = %d, want 2", exec.callCount())
	}

	advance(5 * time.Minute)
	e.Evaluate(context.Background(), reading)
	if exec.callCount() != 4 {
		t.Errorf("calls after expiry = %d, want 4", exec.callCount())
	}
}

func TestEngineLoadDefaultsKeepsExistingRule(t *testing.T) {
	e, _ := newTestEngine(t, &mockExecutor{})
	custom := simpleRule("high-temp-exhaust", "temperature", &ValueCondition{Operator: "gt", Threshold: 35})
	if err := e.Register(custom); err != nil {
		t.Fatal(err)
	}

	e.LoadDefaults()

	got, err := e.Get("high-temp-exhaust")
	if err != nil {
		t.Fatal(err)
	}
	if got.Trigger.Condition.Threshold != 35 {
		t.Errorf("existing rule was overwritten: %+v", got.Trigger.Condition)
	}
}

func TestHistoryBound(t *testing.T) {
	h := NewHistory()
	for i := 0; i < maxHistoryEntries+50; i++ {
		h.Append(ExecutionRecord{ID: fmt.Sprintf("rec-%d", i)})
	}
	if h.Len() != maxHistoryEntries {
		t.Fatalf("history length = %d, want %d", h.Len(), maxHistoryEntries)
	}
	recent := h.Recent(1)
	if len(recent) != 1 || recent[0].ID != fmt.Sprintf("rec-%d", maxHistoryEntries+49) {
		t.Errorf("Recent(1) = %+v, want newest record", recent)
	}
	all := h.Recent(0)
	if all[len(all)-1].ID != "rec-50" {
		t.Errorf("oldest surviving record = %s, want rec-50", all[len(all)-1].ID)
	}
}

// TestEngineDefaultRulesRealDispatcher drives the default rule set
// through the HTTP dispatcher to check the default actions resolve to
// real endpoints rather than the unknown-type branch.
func TestEngineDefaultRulesRealDispatcher(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success": true}`)
	}))
	defer server.Close()

	dispatcher := actions.NewDispatcher(server.URL, time.Second, actions.NewLibrary(), nil)
	e, _ := newTestEngine(t, dispatcher)
	e.LoadDefaults()

	e.Evaluate(context.Background(), SensorReading{
		Source: "switchbot", DeviceID: "greenhouse-1", Type: "temperature", Value: 29,
	})

	mu.Lock()
	got := append([]string(nil), paths...)
	mu.Unlock()
	want := map[string]bool{
		"/api/kasa/devices/exhaust-fan-kasa/control": false,
		"/integrations/ifttt/trigger/farm_alert_high_temp": false,
	}
	for _, p := range got {
		if _, ok := want[p]; !ok {
			t.Errorf("unexpected request path %q", p)
			continue
		}
		want[p] = true
	}
	for p, hit := range want {
		if !hit {
			t.Errorf("no request to %s", p)
		}
	}

	history := e.History(0)
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	if history[0].Status != StatusExecuted {
		t.Errorf("history status = %q, want %q (results: %+v)",
			history[0].Status, StatusExecuted, history[0].Results)
	}
}

// TestEngineConcurrentEvaluateSingleFire sends the same matching
// reading from many goroutines at the same instant. The debounce gate
// must admit exactly one of them.
func TestEngineConcurrentEvaluateSingleFire(t *testing.T) {
	exec := &mockExecutor{}
	e, _ := newTestEngine(t, exec)
	if err := e.Register(simpleRule("race", "temperature", &ValueCondition{Operator: "gt", Threshold: 25})); err != nil {
		t.Fatal(err)
	}

	reading := SensorReading{Type: "temperature", Value: 30}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Evaluate(context.Background(), reading)
		}()
	}
	wg.Wait()

	if got := exec.callCount(); got != 1 {
		t.Errorf("action dispatched %d times, want 1", got)
	}
}
