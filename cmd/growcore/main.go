// Grow Core - Horticultural Automation Service
//
// This is the main entry point for the Grow Core application. Grow Core
// runs the automation layer of a grow-room dashboard:
//   - Rule engine reacting to sensor readings and webhook events
//   - Action dispatcher driving devices through the local proxy
//   - Schedule executor applying lighting plans to grow groups
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lumenfield/growcore/internal/actions"
	"github.com/lumenfield/growcore/internal/audit"
	"github.com/lumenfield/growcore/internal/executor"
	"github.com/lumenfield/growcore/internal/infrastructure/config"
	"github.com/lumenfield/growcore/internal/infrastructure/influxdb"
	"github.com/lumenfield/growcore/internal/infrastructure/logging"
	"github.com/lumenfield/growcore/internal/infrastructure/mqtt"
	"github.com/lumenfield/growcore/internal/ingest"
	"github.com/lumenfield/growcore/internal/rules"
	"github.com/lumenfield/growcore/internal/store"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Grow Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the document store (groups, plans, schedules, rules)
	docs, err := store.NewFileStore(cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("opening document store: %w", err)
	}
	log.Info("document store ready", "dir", cfg.Data.Dir)

	// Action dispatcher with the built-in scenario library
	library := actions.NewLibrary()
	dispatcher := actions.NewDispatcher(cfg.Dispatcher.BaseURL, cfg.GetDispatcherTimeout(), library, log)
	log.Info("dispatcher ready", "base_url", cfg.Dispatcher.BaseURL)

	// Rule engine
	engine := rules.NewEngine(dispatcher, log)
	if cfg.Rules.LoadDefaults {
		engine.LoadDefaults()
	}
	if err := loadPersistedRules(docs, engine, log); err != nil {
		return fmt.Errorf("loading persisted rules: %w", err)
	}

	// Durable execution audit log (optional)
	if cfg.Audit.Enabled {
		auditLog, openErr := audit.Open(cfg.Audit.Path)
		if openErr != nil {
			return fmt.Errorf("opening audit log: %w", openErr)
		}
		defer func() {
			log.Info("closing audit log")
			if closeErr := auditLog.Close(); closeErr != nil {
				log.Error("error closing audit log", "error", closeErr)
			}
		}()
		engine.AddSink(auditLog)
		log.Info("audit log enabled", "path", cfg.Audit.Path)

		if retention := cfg.GetAuditRetention(); retention > 0 {
			pruned, pruneErr := auditLog.Prune(ctx, retention)
			if pruneErr != nil {
				log.Warn("audit prune failed", "error", pruneErr)
			} else if pruned > 0 {
				log.Info("audit log pruned", "removed", pruned)
			}
		}
	} else {
		log.Info("audit log disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		engine.AddSink(&telemetrySink{client: influxClient})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Connect to MQTT broker and start the ingest bridge (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		var eval ingest.Evaluator = engine
		if influxClient != nil {
			eval = &telemetryEvaluator{engine: engine, writer: influxClient}
		}
		bridge, bridgeErr := ingest.NewBridge(mqttClient, eval, log)
		if bridgeErr != nil {
			return fmt.Errorf("creating ingest bridge: %w", bridgeErr)
		}
		if startErr := bridge.Start(ctx); startErr != nil {
			return fmt.Errorf("starting ingest bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping ingest bridge")
			bridge.Stop()
		}()

		// Announce rule firings on the broker for dashboards
		engine.AddSink(&ruleFiredPublisher{client: mqttClient})
	} else {
		log.Info("MQTT disabled")
	}

	// Schedule executor
	exec := executor.New(docs, log, executor.Options{
		Interval: cfg.GetExecutorInterval(),
		BaseURL:  cfg.ExecutorBaseURL(),
		Enabled:  &cfg.Executor.Enabled,
		Timeout:  cfg.GetExecutorTimeout(),
		Registry: cfg.Executor.Registry,
		OnTick:   tickObserver(mqttClient, influxClient, log),
	})
	exec.Start(ctx)
	defer func() {
		log.Info("stopping executor")
		exec.Stop()
	}()

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. Executor
	// 2. Ingest bridge, then MQTT (if enabled)
	// 3. InfluxDB (if enabled)
	// 4. Audit log (if enabled)

	log.Info("Grow Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GROWCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GROWCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadPersistedRules registers rules from the rules.json document.
// A missing document is normal on first start.
func loadPersistedRules(docs *store.FileStore, engine *rules.Engine, log *logging.Logger) error {
	var persisted []rules.Rule
	if err := docs.Load("rules", &persisted); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Debug("no persisted rules document")
			return nil
		}
		return err
	}

	for _, rule := range persisted {
		if err := engine.Register(rule); err != nil {
			log.Error("persisted rule rejected", "rule_id", rule.ID, "error", err)
			continue
		}
	}
	log.Info("persisted rules loaded", "count", len(persisted))
	return nil
}

// healthCheck verifies the optional infrastructure connections.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// tickObserver fans executor tick results out to MQTT and InfluxDB.
// Either destination may be nil.
func tickObserver(mqttClient *mqtt.Client, influxClient *influxdb.Client, log *logging.Logger) func([]executor.GroupResult) {
	if mqttClient == nil && influxClient == nil {
		return nil
	}

	topics := mqtt.Topics{}
	return func(results []executor.GroupResult) {
		if influxClient != nil {
			errored := 0
			for _, result := range results {
				hex := ""
				if result.HexPayload != nil {
					hex = *result.HexPayload
				}
				influxClient.WriteGroupState(result.Group, result.Plan, result.Active, hex, result.Timestamp)
				for _, device := range result.Devices {
					if !device.Success {
						errored++
						break
					}
				}
			}
			influxClient.WriteTickSummary(len(results), errored, tickTime(results))
		}

		if mqttClient != nil {
			payload, err := json.Marshal(results)
			if err != nil {
				log.Error("tick summary encode failed", "error", err)
				return
			}
			if err := mqttClient.Publish(topics.ExecutorTick(), payload, 0, false); err != nil {
				log.Warn("tick summary publish failed", "error", err)
			}
		}
	}
}

// tickTime returns the timestamp shared by a tick's results, or the
// zero time when the tick processed no groups.
func tickTime(results []executor.GroupResult) (t time.Time) {
	if len(results) > 0 {
		t = results[0].Timestamp
	}
	return t
}

// readingWriter is the slice of the InfluxDB client the ingest path
// writes sensor measurements through.
type readingWriter interface {
	WriteSensorReading(source, deviceID, readingType string, value float64, timestamp time.Time)
}

// telemetryEvaluator mirrors every inbound reading into InfluxDB before
// handing it to the rule engine. Implements ingest.Evaluator.
type telemetryEvaluator struct {
	engine *rules.Engine
	writer readingWriter
}

func (t *telemetryEvaluator) Evaluate(ctx context.Context, reading rules.SensorReading) {
	t.writer.WriteSensorReading(reading.Source, reading.DeviceID, reading.Type, reading.Value, reading.Timestamp)
	t.engine.Evaluate(ctx, reading)
}

// telemetrySink forwards rule execution records to InfluxDB.
// Implements rules.ExecutionSink.
type telemetrySink struct {
	client *influxdb.Client
}

func (s *telemetrySink) RecordExecution(_ context.Context, rec rules.ExecutionRecord) error {
	failed := 0
	for _, result := range rec.Results {
		if result.Status == rules.StatusError {
			failed++
		}
	}
	s.client.WriteRuleExecution(rec.RuleID, rec.RuleName, rec.Status, len(rec.Results), failed, rec.Timestamp)
	return nil
}

// ruleFiredPublisher announces rule executions on the broker.
// Implements rules.ExecutionSink.
type ruleFiredPublisher struct {
	client *mqtt.Client
}

func (p *ruleFiredPublisher) RecordExecution(_ context.Context, rec rules.ExecutionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding execution record: %w", err)
	}
	topics := mqtt.Topics{}
	return p.client.Publish(topics.RuleFired(rec.RuleID), payload, 0, false)
}
