package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the local device proxy all outbound calls go through.
const DefaultBaseURL = "http://127.0.0.1:8091"

// maxErrorBodyBytes bounds how much of an error response body is read into
// the returned error message.
const maxErrorBodyBytes = 512

// Logger defines the logging interface used by the Dispatcher.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Dispatcher executes actions by issuing one outbound HTTP call per
// primitive action. Scenario actions expand through the Library and recurse
// back into the dispatcher per step.
//
// Thread Safety: Execute is safe for concurrent use.
type Dispatcher struct {
	baseURL string
	client  *http.Client
	library *Library
	logger  Logger
}

// NewDispatcher creates a dispatcher targeting the given base URL.
//
// Parameters:
//   - baseURL: Device proxy root (DefaultBaseURL when empty)
//   - timeout: Per-call HTTP timeout; 0 disables the timeout, matching the
//     historical behaviour where a hung downstream holds only its own call
//   - library: Scenario library for scenario expansion (may be nil when no
//     scenario actions are configured)
//   - logger: Logger instance (nil for no logging)
func NewDispatcher(baseURL string, timeout time.Duration, library *Library, logger Logger) *Dispatcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		library: library,
		logger:  logger,
	}
}

// Execute runs a single action. The trigger context supplies sensor fields
// for webhook payloads and notification placeholders.
//
// Returns the decoded response body (or an action-specific result map) and
// an error that is fatal for this action only; callers isolate failures per
// action.
func (d *Dispatcher) Execute(ctx context.Context, action Action, trig TriggerContext) (any, error) {
	switch a := action.(type) {
	case KasaControl:
		return d.executeKasa(ctx, a)
	case SwitchBotControl:
		return d.executeSwitchBot(ctx, a)
	case IFTTTTrigger:
		return d.executeIFTTT(ctx, a, trig)
	case Notification:
		return d.executeNotification(ctx, a, trig)
	case ScenarioRef:
		return d.ExecuteScenario(ctx, a.ScenarioID, a.Parameters, trig)
	default:
		// Unreachable for actions built through Decode; guards hand-built values.
		return nil, fmt.Errorf("%w: %T", ErrUnknownActionType, action)
	}
}

func (d *Dispatcher) executeKasa(ctx context.Context, a KasaControl) (any, error) {
	url := fmt.Sprintf("%s/api/kasa/devices/%s/control", d.baseURL, a.DeviceID)

	payload := map[string]any{"action": a.Command}
	for k, v := range a.Parameters {
		payload[k] = v
	}

	result, err := d.call(ctx, http.MethodPost, url, payload)
	if err != nil {
		return nil, fmt.Errorf("kasa control: %w", err)
	}
	return result, nil
}

func (d *Dispatcher) executeSwitchBot(ctx context.Context, a SwitchBotControl) (any, error) {
	url := fmt.Sprintf("%s/api/switchbot/devices/%s/commands", d.baseURL, a.DeviceID)

	parameter := a.Parameter
	if parameter == "" {
		parameter = "default"
	}
	payload := map[string]any{
		"command":   a.Command,
		"parameter": parameter,
	}

	result, err := d.call(ctx, http.MethodPost, url, payload)
	if err != nil {
		return nil, fmt.Errorf("switchbot control: %w", err)
	}
	return result, nil
}

func (d *Dispatcher) executeIFTTT(ctx context.Context, a IFTTTTrigger, trig TriggerContext) (any, error) {
	url := fmt.Sprintf("%s/integrations/ifttt/trigger/%s", d.baseURL, a.Event)

	// Sensor context fills value1-value3; explicit data keys win.
	payload := map[string]any{
		"value1": trig.Value,
		"value2": trig.DeviceID,
		"value3": trig.Type,
	}
	for k, v := range a.Data {
		payload[k] = v
	}

	result, err := d.call(ctx, http.MethodPost, url, payload)
	if err != nil {
		return nil, fmt.Errorf("ifttt trigger: %w", err)
	}
	return result, nil
}

func (d *Dispatcher) executeNotification(ctx context.Context, a Notification, trig TriggerContext) (any, error) {
	message := interpolate(a.Message, trig)
	d.logger.Info("notification", "title", a.Title, "message", message)

	// Optional webhook side channel carrying the rendered message.
	if a.IFTTTEvent != "" {
		return d.executeIFTTT(ctx, IFTTTTrigger{
			Event: a.IFTTTEvent,
			Data: map[string]any{
				"value1": a.Title,
				"value2": message,
				"value3": trig.DeviceID,
			},
		}, trig)
	}

	return map[string]any{"sent": true, "message": message}, nil
}

// call issues one JSON request and decodes the JSON response.
// A non-2xx status is an error carrying the status code and the response
// body (or status text when the body is empty).
func (d *Dispatcher) call(ctx context.Context, method, url string, body any) (any, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		msg := strings.TrimSpace(string(detail))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrHTTPStatus, resp.StatusCode, msg)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return result, nil
}

// interpolate substitutes {value}, {deviceId}, {type} and {source}
// placeholders in a notification template.
func interpolate(template string, trig TriggerContext) string {
	replacer := strings.NewReplacer(
		"{value}", strconv.FormatFloat(trig.Value, 'f', -1, 64),
		"{deviceId}", trig.DeviceID,
		"{type}", trig.Type,
		"{source}", trig.Source,
	)
	return replacer.Replace(template)
}
