package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lumenfield/growcore/internal/infrastructure/mqtt"
	"github.com/lumenfield/growcore/internal/rules"
)

const (
	// subscribeQoS is the QoS level for reading subscriptions. At-least-once
	// delivery; the engine's debounce gate absorbs duplicates.
	subscribeQoS = 1

	// sensorTopicParts is the segment count of a sensor reading topic
	// (growcore/sensor/{source}/{device}/{type}).
	sensorTopicParts = 5

	// webhookTopicParts is the segment count of a webhook event topic
	// (growcore/webhook/{event}).
	webhookTopicParts = 3
)

// Logger is the minimal logging interface the bridge needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Subscriber is the slice of the MQTT client the bridge uses.
// Satisfied by *mqtt.Client; allows mocking in tests.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Evaluator receives decoded sensor readings. Satisfied by *rules.Engine.
type Evaluator interface {
	Evaluate(ctx context.Context, reading rules.SensorReading)
}

// Stats is a snapshot of the bridge's message counters.
type Stats struct {
	Readings uint64 `json:"readings"`
	Webhooks uint64 `json:"webhooks"`
	Dropped  uint64 `json:"dropped"`
}

// Bridge subscribes to the sensor and webhook topic families and feeds
// decoded readings into the rule engine.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	sub    Subscriber
	eval   Evaluator
	logger Logger
	topics mqtt.Topics

	mu        sync.Mutex
	started   bool
	ctx       context.Context
	ctxCancel context.CancelFunc

	statsMu sync.Mutex
	stats   Stats
}

// NewBridge creates a bridge. Call Start() to begin receiving messages.
func NewBridge(sub Subscriber, eval Evaluator, logger Logger) (*Bridge, error) {
	if sub == nil {
		return nil, ErrNoSubscriber
	}
	if eval == nil {
		return nil, ErrNoEvaluator
	}
	if logger == nil {
		logger = noopLogger{}
	}

	return &Bridge{
		sub:    sub,
		eval:   eval,
		logger: logger,
	}, nil
}

// Start subscribes to the sensor reading and webhook event topics.
//
// The supplied context bounds all evaluations triggered by received
// messages; Stop() cancels it early.
//
// Parameters:
//   - ctx: Lifetime context for the bridge
//
// Returns:
//   - error: If either subscription fails
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		b.logger.Warn("ingest bridge already started")
		return nil
	}

	b.ctx, b.ctxCancel = context.WithCancel(ctx)

	readingTopic := b.topics.AllSensorReadings()
	if err := b.sub.Subscribe(readingTopic, subscribeQoS, b.handleSensorMessage); err != nil {
		b.ctxCancel()
		return fmt.Errorf("subscribe to sensor readings: %w", err)
	}

	webhookTopic := b.topics.AllWebhookEvents()
	if err := b.sub.Subscribe(webhookTopic, subscribeQoS, b.handleWebhookMessage); err != nil {
		_ = b.sub.Unsubscribe(readingTopic)
		b.ctxCancel()
		return fmt.Errorf("subscribe to webhook events: %w", err)
	}

	b.started = true
	b.logger.Info("ingest bridge started",
		"reading_topic", readingTopic,
		"webhook_topic", webhookTopic)

	return nil
}

// Stop unsubscribes from both topic families and cancels in-flight
// evaluations. Safe to call more than once.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return
	}

	if err := b.sub.Unsubscribe(b.topics.AllSensorReadings()); err != nil {
		b.logger.Warn("unsubscribe sensor readings failed", "error", err)
	}
	if err := b.sub.Unsubscribe(b.topics.AllWebhookEvents()); err != nil {
		b.logger.Warn("unsubscribe webhook events failed", "error", err)
	}

	b.ctxCancel()
	b.started = false
	b.logger.Info("ingest bridge stopped")
}

// Stats returns a snapshot of the message counters.
func (b *Bridge) Stats() Stats {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	return b.stats
}

// readingPayload is the object form of a sensor reading payload. Pollers
// may also publish a bare JSON number.
type readingPayload struct {
	Value     float64        `json:"value"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
}

// handleSensorMessage decodes one sensor reading and evaluates it.
func (b *Bridge) handleSensorMessage(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) != sensorTopicParts {
		b.countDrop()
		return fmt.Errorf("%w: %q", ErrBadTopic, topic)
	}

	var body readingPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		// Fall back to a bare number payload.
		var value float64
		if numErr := json.Unmarshal(payload, &value); numErr != nil {
			b.countDrop()
			return fmt.Errorf("%w: %s", ErrBadPayload, err)
		}
		body = readingPayload{Value: value}
	}

	reading := rules.SensorReading{
		Source:    parts[2],
		DeviceID:  parts[3],
		Type:      parts[4],
		Value:     body.Value,
		Metadata:  body.Metadata,
		Timestamp: body.Timestamp,
	}

	b.statsMu.Lock()
	b.stats.Readings++
	b.statsMu.Unlock()

	b.logger.Debug("sensor reading received",
		"source", reading.Source,
		"device_id", reading.DeviceID,
		"type", reading.Type,
		"value", reading.Value)

	b.eval.Evaluate(b.ctx, reading)
	return nil
}

// handleWebhookMessage normalizes one webhook event and evaluates it.
// Events outside the mapping table are dropped quietly.
func (b *Bridge) handleWebhookMessage(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) != webhookTopicParts {
		b.countDrop()
		return fmt.Errorf("%w: %q", ErrBadTopic, topic)
	}
	event := parts[2]

	var body webhookPayload
	var raw map[string]any
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &body); err != nil {
			b.countDrop()
			return fmt.Errorf("%w: %s", ErrBadPayload, err)
		}
		_ = json.Unmarshal(payload, &raw)
	}

	reading, ok := normalizeWebhook(event, body, raw)
	if !ok {
		b.countDrop()
		b.logger.Debug("unmapped webhook event dropped", "event", event)
		return nil
	}

	b.statsMu.Lock()
	b.stats.Webhooks++
	b.statsMu.Unlock()

	b.logger.Debug("webhook event normalized",
		"event", event,
		"source", reading.Source,
		"device_id", reading.DeviceID,
		"type", reading.Type,
		"value", reading.Value)

	b.eval.Evaluate(b.ctx, reading)
	return nil
}

func (b *Bridge) countDrop() {
	b.statsMu.Lock()
	b.stats.Dropped++
	b.statsMu.Unlock()
}
