// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// TelemetryEndpoint is the ingestion URL batches are POSTed to (e.g. http://localhost:8090/api/analytics/batch).
	TelemetryEndpoint string `mapstructure:"TELEMETRY_ENDPOINT"`
	// TelemetryAuthToken is sent as a bearer token with each batch when set.
	TelemetryAuthToken string `mapstructure:"TELEMETRY_AUTH_TOKEN"`
	// FlushIntervalRaw is the automatic flush period (e.g. "3s").
	FlushIntervalRaw string `mapstructure:"TELEMETRY_FLUSH_INTERVAL"`
	// MaxBatchSize caps events per request; 0 sends the whole queue at once.
	MaxBatchSize int `mapstructure:"TELEMETRY_MAX_BATCH_SIZE"`
	// RequestTimeoutRaw bounds one ingestion request (e.g. "10s").
	RequestTimeoutRaw string `mapstructure:"TELEMETRY_REQUEST_TIMEOUT"`
	// RetryBackoffBaseRaw is the first retry delay after a failed send; "0s" retries on the next tick.
	RetryBackoffBaseRaw string `mapstructure:"TELEMETRY_RETRY_BACKOFF_BASE"`
	// RetryBackoffMaxRaw caps the retry delay.
	RetryBackoffMaxRaw string `mapstructure:"TELEMETRY_RETRY_BACKOFF_MAX"`

	// NotifyEnabled turns badge notifications on or off globally.
	NotifyEnabled bool `mapstructure:"NOTIFY_ENABLED"`
	// NotifyTTLRaw is how long a notification lives without dismissal.
	NotifyTTLRaw string `mapstructure:"NOTIFY_TTL"`
	// NotifySweepIntervalRaw is how often expired notifications are removed.
	NotifySweepIntervalRaw string `mapstructure:"NOTIFY_SWEEP_INTERVAL"`
	// NotifyStaggerRaw spaces notifications from one response apart.
	NotifyStaggerRaw string `mapstructure:"NOTIFY_STAGGER"`

	// OTLPEndpoint is the OpenTelemetry collector address; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext gRPC to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is reported as service.name.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Mock ingestion server (development only).
	// IngestAddr is the listen address of the mock ingestion endpoint.
	IngestAddr string `mapstructure:"INGEST_ADDR"`
	// IngestJWTSecret, when set, makes the mock endpoint require an HS256 bearer token.
	IngestJWTSecret string `mapstructure:"INGEST_JWT_SECRET"`
	// IngestScript is a YAML file of scripted badge responses.
	IngestScript string `mapstructure:"INGEST_SCRIPT"`

	// Kafka fan-out of received batches (optional). Comma-separated broker list.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// KafkaTopic is the topic mock-ingested events are written to.
	KafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group of the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is where the worker pushes events (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("TELEMETRY_ENDPOINT", "http://localhost:8090/api/analytics/batch")
	v.SetDefault("TELEMETRY_AUTH_TOKEN", "")
	v.SetDefault("TELEMETRY_FLUSH_INTERVAL", "3s")
	v.SetDefault("TELEMETRY_MAX_BATCH_SIZE", 10)
	v.SetDefault("TELEMETRY_REQUEST_TIMEOUT", "10s")
	v.SetDefault("TELEMETRY_RETRY_BACKOFF_BASE", "0s")
	v.SetDefault("TELEMETRY_RETRY_BACKOFF_MAX", "60s")
	v.SetDefault("NOTIFY_ENABLED", true)
	v.SetDefault("NOTIFY_TTL", "30s")
	v.SetDefault("NOTIFY_SWEEP_INTERVAL", "5s")
	v.SetDefault("NOTIFY_STAGGER", "500ms")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "linkbio-telemetry")
	v.SetDefault("INGEST_ADDR", ":8090")
	v.SetDefault("INGEST_JWT_SECRET", "")
	v.SetDefault("INGEST_SCRIPT", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "linkbio-telemetry")
	v.SetDefault("KAFKA_GROUP_ID", "linkbio-telemetry-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("APP_ENV", "")
	return v
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	return load(newViper())
}

// LoadWithFlags is Load with command-line flags layered on top. flagKeys maps a flag name to
// the config key it overrides; flags the user did not set leave env values alone.
func LoadWithFlags(fs *pflag.FlagSet, flagKeys map[string]string) (*Config, error) {
	v := newViper()
	for flagName, key := range flagKeys {
		f := fs.Lookup(flagName)
		if f == nil {
			return nil, errors.New("config: unknown flag " + flagName)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, err
		}
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.TelemetryEndpoint) == "" {
		return nil, errors.New("config: TELEMETRY_ENDPOINT must be set")
	}
	if cfg.MaxBatchSize < 0 {
		return nil, errors.New("config: TELEMETRY_MAX_BATCH_SIZE must not be negative")
	}
	if cfg.Env == "production" && cfg.TelemetryAuthToken == "" {
		return nil, errors.New("config: TELEMETRY_AUTH_TOKEN must be set when APP_ENV=production")
	}

	return &cfg, nil
}

// parseDuration returns raw as a duration, or def if raw is unset or invalid.
// allowZero keeps an explicit "0s".
func parseDuration(raw string, def time.Duration, allowZero bool) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return def
	}
	return d
}

// FlushInterval parses FlushIntervalRaw. Returns 3s if unset or invalid.
func (c *Config) FlushInterval() time.Duration {
	return parseDuration(c.FlushIntervalRaw, 3*time.Second, false)
}

// RequestTimeout parses RequestTimeoutRaw. Returns 10s if unset or invalid.
func (c *Config) RequestTimeout() time.Duration {
	return parseDuration(c.RequestTimeoutRaw, 10*time.Second, false)
}

// RetryBackoffBase parses RetryBackoffBaseRaw. Returns 0 (backoff off) if unset or invalid.
func (c *Config) RetryBackoffBase() time.Duration {
	return parseDuration(c.RetryBackoffBaseRaw, 0, true)
}

// RetryBackoffMax parses RetryBackoffMaxRaw. Returns 60s if unset or invalid.
func (c *Config) RetryBackoffMax() time.Duration {
	return parseDuration(c.RetryBackoffMaxRaw, 60*time.Second, false)
}

// NotifyTTL parses NotifyTTLRaw. Returns 30s if unset or invalid.
func (c *Config) NotifyTTL() time.Duration {
	return parseDuration(c.NotifyTTLRaw, 30*time.Second, false)
}

// NotifySweepInterval parses NotifySweepIntervalRaw. Returns 5s if unset or invalid.
func (c *Config) NotifySweepInterval() time.Duration {
	return parseDuration(c.NotifySweepIntervalRaw, 5*time.Second, false)
}

// NotifyStagger parses NotifyStaggerRaw. Returns 500ms if unset or invalid; "0s" disables staggering.
func (c *Config) NotifyStagger() time.Duration {
	return parseDuration(c.NotifyStaggerRaw, 500*time.Millisecond, true)
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list means Kafka fan-out is disabled.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
