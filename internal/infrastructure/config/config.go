package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Grow Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Data       DataConfig       `yaml:"data"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Executor   ExecutorConfig   `yaml:"executor"`
	Rules      RulesConfig      `yaml:"rules"`
	Audit      AuditConfig      `yaml:"audit"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DataConfig contains document store settings.
type DataConfig struct {
	// Dir holds the JSON documents (groups, plans, schedules, rules).
	Dir string `yaml:"dir"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	// TopicPrefix is the root of the sensor topic tree.
	TopicPrefix string `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// DispatcherConfig contains action dispatch settings.
type DispatcherConfig struct {
	// BaseURL is the device proxy all action HTTP calls route through.
	BaseURL string `yaml:"base_url"`
	// Timeout is the per-request HTTP timeout in seconds. 0 disables it.
	Timeout int `yaml:"timeout"`
}

// ExecutorConfig contains schedule executor settings.
type ExecutorConfig struct {
	Enabled bool `yaml:"enabled"`
	// Interval between execution ticks in seconds.
	Interval int `yaml:"interval"`
	// BaseURL is the device proxy used for light control. Defaults to
	// the dispatcher base URL when empty.
	BaseURL string `yaml:"base_url"`
	// Timeout is the per-request HTTP timeout in seconds. 0 disables it.
	Timeout int `yaml:"timeout"`
	// Registry maps light IDs to Grow3 controller device IDs, merged
	// over the built-in defaults.
	Registry map[string]int `yaml:"registry"`
}

// RulesConfig contains rule engine settings.
type RulesConfig struct {
	// LoadDefaults registers the built-in starter rules at startup.
	LoadDefaults bool `yaml:"load_defaults"`
}

// AuditConfig contains the durable execution log settings.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	// RetentionDays prunes execution records older than this on
	// startup. 0 disables pruning.
	RetentionDays int `yaml:"retention_days"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GROWCORE_SECTION_KEY
// For example: GROWCORE_MQTT_HOST, GROWCORE_AUDIT_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "farm-001",
			Name:     "Grow Core",
			Timezone: "UTC",
		},
		Data: DataConfig{
			Dir: "./data",
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "growcore",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			TopicPrefix: "growcore",
		},
		Dispatcher: DispatcherConfig{
			BaseURL: "http://127.0.0.1:8091",
			Timeout: 0,
		},
		Executor: ExecutorConfig{
			Enabled:  true,
			Interval: 60,
		},
		Rules: RulesConfig{
			LoadDefaults: true,
		},
		Audit: AuditConfig{
			Enabled:       true,
			Path:          "./data/audit.db",
			RetentionDays: 90,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GROWCORE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Data
	if v := os.Getenv("GROWCORE_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}

	// MQTT
	if v := os.Getenv("GROWCORE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GROWCORE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GROWCORE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Dispatcher / executor proxy
	if v := os.Getenv("GROWCORE_DISPATCHER_BASE_URL"); v != "" {
		cfg.Dispatcher.BaseURL = v
	}
	if v := os.Getenv("GROWCORE_EXECUTOR_BASE_URL"); v != "" {
		cfg.Executor.BaseURL = v
	}
	if v := os.Getenv("GROWCORE_EXECUTOR_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Executor.Interval = n
		}
	}

	// Audit
	if v := os.Getenv("GROWCORE_AUDIT_PATH"); v != "" {
		cfg.Audit.Path = v
	}

	// InfluxDB
	if v := os.Getenv("GROWCORE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if c.Data.Dir == "" {
		errs = append(errs, "data.dir is required")
	}

	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
			errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
		}
	}

	if c.Dispatcher.BaseURL == "" {
		errs = append(errs, "dispatcher.base_url is required")
	}
	if c.Dispatcher.Timeout < 0 {
		errs = append(errs, "dispatcher.timeout must not be negative")
	}

	if c.Executor.Interval < 1 {
		errs = append(errs, "executor.interval must be at least 1 second")
	}

	if c.Audit.Enabled && c.Audit.Path == "" {
		errs = append(errs, "audit.path is required when audit is enabled")
	}
	if c.Audit.RetentionDays < 0 {
		errs = append(errs, "audit.retention_days must not be negative")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required (set GROWCORE_INFLUXDB_TOKEN environment variable)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ExecutorBaseURL returns the executor's proxy URL, falling back to the
// dispatcher's.
func (c *Config) ExecutorBaseURL() string {
	if c.Executor.BaseURL != "" {
		return c.Executor.BaseURL
	}
	return c.Dispatcher.BaseURL
}

// GetDispatcherTimeout returns the dispatcher HTTP timeout as a Duration.
func (c *Config) GetDispatcherTimeout() time.Duration {
	return time.Duration(c.Dispatcher.Timeout) * time.Second
}

// GetExecutorInterval returns the executor tick interval as a Duration.
func (c *Config) GetExecutorInterval() time.Duration {
	return time.Duration(c.Executor.Interval) * time.Second
}

// GetExecutorTimeout returns the executor HTTP timeout as a Duration.
func (c *Config) GetExecutorTimeout() time.Duration {
	return time.Duration(c.Executor.Timeout) * time.Second
}

// GetAuditRetention returns the audit retention window as a Duration.
func (c *Config) GetAuditRetention() time.Duration {
	return time.Duration(c.Audit.RetentionDays) * 24 * time.Hour
}
