package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lumenfield/growcore/internal/lighting"
	"github.com/lumenfield/growcore/internal/store"
)

// Defaults matching the dashboard deployment.
const (
	DefaultInterval = time.Minute
	DefaultBaseURL  = "http://127.0.0.1:8091"

	maxErrorBodyBytes = 512
)

// DefaultRegistry maps the stock fixture IDs to their Grow3 controller
// device IDs.
func DefaultRegistry() map[string]int {
	return map[string]int{
		"F00001": 2,
		"F00002": 3,
		"F00003": 4,
		"F00004": 6,
		"F00005": 5,
	}
}

// Options configures an Executor. Zero values select the defaults.
type Options struct {
	Interval time.Duration
	BaseURL  string
	Enabled  *bool // nil means enabled
	Timeout  time.Duration
	Registry map[string]int

	// OnTick, when set, is called after every completed tick with the
	// per-group results. Invoked from the tick goroutine.
	OnTick func(results []GroupResult)
}

// Executor periodically applies plans and schedules to light groups.
type Executor struct {
	interval time.Duration
	baseURL  string
	enabled  bool
	client   *http.Client
	docs     DocumentStore
	logger   Logger
	nowFunc  func() time.Time
	onTick   func(results []GroupResult)

	mu      sync.Mutex
	cron    *cron.Cron
	running bool

	lastExecution  *time.Time
	executionCount int64
	errorCount     int64

	registryMu sync.RWMutex
	registry   map[string]int
}

// New creates an executor reading documents from docs and applying
// commands through the device proxy at opts.BaseURL.
func New(docs DocumentStore, logger Logger, opts Options) *Executor {
	if logger == nil {
		logger = noopLogger{}
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	registry := DefaultRegistry()
	for id, device := range opts.Registry {
		registry[id] = device
	}
	enabled := true
	if opts.Enabled != nil {
		enabled = *opts.Enabled
	}
	return &Executor{
		interval: opts.Interval,
		baseURL:  opts.BaseURL,
		enabled:  enabled,
		client:   &http.Client{Timeout: opts.Timeout},
		docs:     docs,
		logger:   logger,
		nowFunc:  time.Now,
		onTick:   opts.OnTick,
		registry: registry,
	}
}

// Start begins periodic execution. An immediate tick runs first, then
// one per interval. Calling Start while running is a logged no-op.
func (e *Executor) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		e.logger.Warn("executor already running")
		return
	}
	if !e.enabled {
		e.logger.Info("executor disabled, not starting")
		return
	}

	e.logger.Info("executor starting", "interval", e.interval)
	e.running = true

	// One wrapped job serves both the immediate tick and the schedule,
	// so SkipIfStillRunning covers the startup overlap too.
	job := cron.NewChain(
		cron.Recover(cronLogger{e.logger}),
		cron.SkipIfStillRunning(cronLogger{e.logger}),
	).Then(cron.FuncJob(func() {
		if _, err := e.Tick(ctx); err != nil {
			e.logger.Error("tick failed", "error", err)
		}
	}))

	c := cron.New()
	spec := "@every " + e.interval.String()
	if _, err := c.AddJob(spec, job); err != nil {
		// "@every" with a positive duration always parses.
		e.logger.Error("schedule registration failed", "spec", spec, "error", err)
		e.running = false
		return
	}
	e.cron = c

	go job.Run()
	c.Start()
}

// Stop halts periodic execution, waiting for an in-flight tick to
// finish. Calling Stop while stopped is a logged no-op.
func (e *Executor) Stop() {
	e.mu.Lock()
	c := e.cron
	wasRunning := e.running
	e.running = false
	e.cron = nil
	e.mu.Unlock()

	if !wasRunning {
		e.logger.Warn("executor not running")
		return
	}
	if c != nil {
		<-c.Stop().Done()
	}
	e.logger.Info("executor stopped")
}

// Tick runs one execution pass over all groups. Per-group failures are
// counted and skipped; only a wholesale failure to load documents
// returns an error.
func (e *Executor) Tick(ctx context.Context) ([]GroupResult, error) {
	started := e.nowFunc()
	now := started

	groups := e.loadGroups()
	plans := e.loadPlans()
	schedules := e.loadSchedules()
	maxByte := e.loadChannelScale()

	e.logger.Debug("tick loaded documents",
		"groups", len(groups), "plans", len(plans), "schedules", len(schedules))

	results := make([]GroupResult, 0, len(groups))
	for _, group := range groups {
		result, err := e.processGroup(ctx, group, plans, schedules, maxByte, now)
		if err != nil {
			e.logger.Error("group processing failed", "group", group.ID, "error", err)
			e.mu.Lock()
			e.errorCount++
			e.mu.Unlock()
			continue
		}
		if result != nil {
			results = append(results, *result)
		}
	}

	e.mu.Lock()
	t := now
	e.lastExecution = &t
	e.executionCount++
	e.mu.Unlock()

	e.logger.Info("tick completed",
		"duration", e.nowFunc().Sub(started), "processed", len(results))

	if e.onTick != nil {
		e.onTick(results)
	}
	return results, nil
}

// processGroup resolves the group's plan and schedule and applies the
// resulting state to every light. A nil result means the group was
// skipped (unconfigured, or plan/schedule/recipe missing).
func (e *Executor) processGroup(ctx context.Context, group Group, plans []lighting.Plan, schedules []lighting.Schedule, maxByte int, now time.Time) (*GroupResult, error) {
	if group.Plan == "" || group.Schedule == "" {
		return nil, nil
	}
	if len(group.Lights) == 0 {
		return nil, nil
	}

	plan := findPlan(plans, group.Plan)
	if plan == nil {
		e.logger.Warn("plan not found", "plan", group.Plan, "group", group.ID)
		return nil, nil
	}
	schedule := findSchedule(schedules, group.Schedule, group.ID)
	if schedule == nil {
		e.logger.Warn("schedule not found", "schedule", group.Schedule, "group", group.ID)
		return nil, nil
	}

	active := lighting.IsScheduleActive(*schedule, now)

	planConfig := lighting.PlanConfig{}
	if group.PlanConfig != nil {
		planConfig = *group.PlanConfig
	}
	recipe, err := lighting.CurrentRecipe(*plan, planConfig, now)
	if err != nil {
		e.logger.Warn("recipe resolution failed", "group", group.ID, "error", err)
		recipe = nil
	}
	if recipe == nil && !active {
		return nil, nil
	}

	var hexPayload *string
	status := "off"
	if active {
		// An active group with no resolvable recipe is driven to the
		// safe default rather than left dark.
		hex := lighting.SafeDefaultHex(maxByte)
		if recipe != nil {
			hex = lighting.RecipeToHex(*recipe, maxByte)
		} else {
			e.logger.Warn("no recipe for group, applying safe default", "group", group.ID)
		}
		hexPayload = &hex
		status = "on"
	}
	e.logger.Debug("applying group state",
		"group", group.ID, "status", status, "active", active)

	deviceResults := make([]LightResult, 0, len(group.Lights))
	for _, light := range group.Lights {
		result, err := e.controlLight(ctx, light, status, hexPayload)
		if err != nil {
			e.logger.Error("light control failed", "light", light.Key(), "error", err)
			deviceResults = append(deviceResults, LightResult{
				Light: light.Key(), Success: false, Error: err.Error(),
			})
			continue
		}
		deviceResults = append(deviceResults, LightResult{
			Light: light.Key(), Success: true, Result: result,
		})
	}

	out := &GroupResult{
		Group:      group.ID,
		Plan:       planLabel(plan),
		Schedule:   scheduleLabel(schedule),
		Active:     active,
		HexPayload: hexPayload,
		Devices:    deviceResults,
		Timestamp:  now,
	}
	if active && recipe != nil {
		out.Recipe = recipe
	}
	return out, nil
}

// controlLight PATCHes one light's controller through the device proxy.
// Lights absent from the device registry are skipped with a nil result.
func (e *Executor) controlLight(ctx context.Context, light GroupLight, status string, hexPayload *string) (any, error) {
	key := light.Key()

	e.registryMu.RLock()
	deviceID, ok := e.registry[key]
	e.registryMu.RUnlock()
	if !ok {
		e.logger.Warn("light not in device registry, skipping", "light", key)
		return nil, nil
	}

	payload := map[string]any{
		"status": status,
		"value":  hexPayload,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	url := fmt.Sprintf("%s/api/grow3/devicedatas/device/%d", e.baseURL, deviceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending command: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(detail))
	}

	var result any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return result, nil
}

// UpdateRegistry merges additional light to controller mappings into
// the device registry.
func (e *Executor) UpdateRegistry(registry map[string]int) {
	e.registryMu.Lock()
	for id, device := range registry {
		e.registry[id] = device
	}
	size := len(e.registry)
	e.registryMu.Unlock()
	e.logger.Info("device registry updated", "devices", size)
}

// Status reports the executor's current state and counters.
func (e *Executor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registryMu.RLock()
	registrySize := len(e.registry)
	e.registryMu.RUnlock()

	status := Status{
		Enabled:        e.enabled,
		Running:        e.running,
		Interval:       e.interval,
		ExecutionCount: e.executionCount,
		ErrorCount:     e.errorCount,
		RegistrySize:   registrySize,
	}
	if e.lastExecution != nil {
		t := *e.lastExecution
		status.LastExecution = &t
	}
	return status
}

func (e *Executor) loadGroups() []Group {
	var doc groupsDocument
	if err := e.docs.Load("groups", &doc); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Error("loading groups failed", "error", err)
		}
		return nil
	}
	return doc.Groups
}

func (e *Executor) loadPlans() []lighting.Plan {
	var doc plansDocument
	if err := e.docs.Load("plans", &doc); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Error("loading plans failed", "error", err)
		}
		return nil
	}
	return doc.Plans
}

func (e *Executor) loadSchedules() []lighting.Schedule {
	var doc schedulesDocument
	if err := e.docs.Load("schedules", &doc); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Error("loading schedules failed", "error", err)
		}
		return nil
	}
	return doc.Schedules
}

func (e *Executor) loadChannelScale() int {
	var doc channelScaleDocument
	if err := e.docs.Load("channel-scale", &doc); err != nil || doc.MaxByte <= 0 {
		return lighting.DefaultMaxByte
	}
	return doc.MaxByte
}

func findPlan(plans []lighting.Plan, ref string) *lighting.Plan {
	for i := range plans {
		if plans[i].ID == ref || plans[i].Name == ref {
			return &plans[i]
		}
	}
	return nil
}

func findSchedule(schedules []lighting.Schedule, ref, groupID string) *lighting.Schedule {
	for i := range schedules {
		if schedules[i].ID == ref || schedules[i].GroupID == groupID {
			return &schedules[i]
		}
	}
	return nil
}

func planLabel(p *lighting.Plan) string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

func scheduleLabel(s *lighting.Schedule) string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// cronLogger adapts the executor's logger to the cron scheduler's
// logging interface.
type cronLogger struct {
	l Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
