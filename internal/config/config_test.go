package config

import (
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear environment
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.TelemetryEndpoint != "http://localhost:8090/api/analytics/batch" {
		t.Errorf("TelemetryEndpoint = %q, want default", cfg.TelemetryEndpoint)
	}
	if cfg.MaxBatchSize != 10 {
		t.Errorf("MaxBatchSize = %d, want 10", cfg.MaxBatchSize)
	}
	if !cfg.NotifyEnabled {
		t.Error("NotifyEnabled should default to true")
	}
	if cfg.ServiceName != "linkbio-telemetry" {
		t.Errorf("ServiceName = %q, want %q", cfg.ServiceName, "linkbio-telemetry")
	}
	if cfg.IngestAddr != ":8090" {
		t.Errorf("IngestAddr = %q, want %q", cfg.IngestAddr, ":8090")
	}
	if cfg.KafkaTopic != "linkbio-telemetry" {
		t.Errorf("KafkaTopic = %q, want %q", cfg.KafkaTopic, "linkbio-telemetry")
	}
	if cfg.KafkaGroupID != "linkbio-telemetry-worker" {
		t.Errorf("KafkaGroupID = %q, want %q", cfg.KafkaGroupID, "linkbio-telemetry-worker")
	}
	if cfg.FlushInterval() != 3*time.Second {
		t.Errorf("FlushInterval = %v, want 3s", cfg.FlushInterval())
	}
	if cfg.RequestTimeout() != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout())
	}
	if cfg.RetryBackoffBase() != 0 {
		t.Errorf("RetryBackoffBase = %v, want 0", cfg.RetryBackoffBase())
	}
	if cfg.RetryBackoffMax() != time.Minute {
		t.Errorf("RetryBackoffMax = %v, want 1m", cfg.RetryBackoffMax())
	}
	if cfg.NotifyTTL() != 30*time.Second {
		t.Errorf("NotifyTTL = %v, want 30s", cfg.NotifyTTL())
	}
	if cfg.NotifySweepInterval() != 5*time.Second {
		t.Errorf("NotifySweepInterval = %v, want 5s", cfg.NotifySweepInterval())
	}
	if cfg.NotifyStagger() != 500*time.Millisecond {
		t.Errorf("NotifyStagger = %v, want 500ms", cfg.NotifyStagger())
	}
	if cfg.KafkaBrokersList() != nil {
		t.Errorf("KafkaBrokersList = %v, want nil", cfg.KafkaBrokersList())
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("TELEMETRY_ENDPOINT", "https://api.example.com/api/analytics/batch")
	os.Setenv("TELEMETRY_AUTH_TOKEN", "tok")
	os.Setenv("TELEMETRY_MAX_BATCH_SIZE", "25")
	os.Setenv("NOTIFY_ENABLED", "false")
	os.Setenv("TELEMETRY_FLUSH_INTERVAL", "1500ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TelemetryEndpoint != "https://api.example.com/api/analytics/batch" {
		t.Errorf("TelemetryEndpoint = %q", cfg.TelemetryEndpoint)
	}
	if cfg.TelemetryAuthToken != "tok" {
		t.Errorf("TelemetryAuthToken = %q, want %q", cfg.TelemetryAuthToken, "tok")
	}
	if cfg.MaxBatchSize != 25 {
		t.Errorf("MaxBatchSize = %d, want 25", cfg.MaxBatchSize)
	}
	if cfg.NotifyEnabled {
		t.Error("NotifyEnabled should be false")
	}
	if cfg.FlushInterval() != 1500*time.Millisecond {
		t.Errorf("FlushInterval = %v, want 1.5s", cfg.FlushInterval())
	}
}

func TestLoad_EndpointRequired(t *testing.T) {
	os.Clearenv()
	os.Setenv("TELEMETRY_ENDPOINT", "   ")

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load should return error for blank TELEMETRY_ENDPOINT")
	}
	if cfg != nil {
		t.Error("Load should return nil config on error")
	}
}

func TestLoad_NegativeBatchSize(t *testing.T) {
	os.Clearenv()
	os.Setenv("TELEMETRY_MAX_BATCH_SIZE", "-1")

	if _, err := Load(); err == nil {
		t.Fatal("Load should return error for negative TELEMETRY_MAX_BATCH_SIZE")
	}
}

func TestLoad_ProductionRequiresToken(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "production")

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load should return error when APP_ENV=production without TELEMETRY_AUTH_TOKEN")
	}
	if cfg != nil {
		t.Error("Load should return nil config on error")
	}
	if err.Error() != "config: TELEMETRY_AUTH_TOKEN must be set when APP_ENV=production" {
		t.Errorf("error = %q, want production token message", err.Error())
	}

	os.Setenv("TELEMETRY_AUTH_TOKEN", "tok")
	if _, err := Load(); err != nil {
		t.Fatalf("Load with token: %v", err)
	}
}

func TestLoadWithFlags(t *testing.T) {
	os.Clearenv()
	os.Setenv("TELEMETRY_ENDPOINT", "http://env/api/analytics/batch")
	os.Setenv("INGEST_ADDR", ":9999")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("endpoint", "", "ingestion endpoint")
	fs.String("addr", "", "listen address")
	if err := fs.Parse([]string{"--endpoint", "http://flag/api/analytics/batch"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := LoadWithFlags(fs, map[string]string{
		"endpoint": "TELEMETRY_ENDPOINT",
		"addr":     "INGEST_ADDR",
	})
	if err != nil {
		t.Fatalf("LoadWithFlags: %v", err)
	}
	if cfg.TelemetryEndpoint != "http://flag/api/analytics/batch" {
		t.Errorf("TelemetryEndpoint = %q, want flag value", cfg.TelemetryEndpoint)
	}
	if cfg.IngestAddr != ":9999" {
		t.Errorf("IngestAddr = %q, want env value for unset flag", cfg.IngestAddr)
	}
}

func TestLoadWithFlags_UnknownFlag(t *testing.T) {
	os.Clearenv()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if _, err := LoadWithFlags(fs, map[string]string{"missing": "INGEST_ADDR"}); err == nil {
		t.Fatal("LoadWithFlags should fail for an unregistered flag")
	}
}

func TestDurations(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		get  func(*Config) time.Duration
		set  func(*Config, string)
		want time.Duration
	}{
		{"flush valid", "5s", (*Config).FlushInterval, func(c *Config, s string) { c.FlushIntervalRaw = s }, 5 * time.Second},
		{"flush invalid", "soon", (*Config).FlushInterval, func(c *Config, s string) { c.FlushIntervalRaw = s }, 3 * time.Second},
		{"flush zero", "0s", (*Config).FlushInterval, func(c *Config, s string) { c.FlushIntervalRaw = s }, 3 * time.Second},
		{"flush negative", "-1s", (*Config).FlushInterval, func(c *Config, s string) { c.FlushIntervalRaw = s }, 3 * time.Second},
		{"timeout valid", "2s", (*Config).RequestTimeout, func(c *Config, s string) { c.RequestTimeoutRaw = s }, 2 * time.Second},
		{"backoff base zero", "0s", (*Config).RetryBackoffBase, func(c *Config, s string) { c.RetryBackoffBaseRaw = s }, 0},
		{"backoff base valid", "2s", (*Config).RetryBackoffBase, func(c *Config, s string) { c.RetryBackoffBaseRaw = s }, 2 * time.Second},
		{"backoff max invalid", "x", (*Config).RetryBackoffMax, func(c *Config, s string) { c.RetryBackoffMaxRaw = s }, time.Minute},
		{"ttl valid", "1m", (*Config).NotifyTTL, func(c *Config, s string) { c.NotifyTTLRaw = s }, time.Minute},
		{"sweep invalid", "", (*Config).NotifySweepInterval, func(c *Config, s string) { c.NotifySweepIntervalRaw = s }, 5 * time.Second},
		{"stagger zero", "0s", (*Config).NotifyStagger, func(c *Config, s string) { c.NotifyStaggerRaw = s }, 0},
		{"stagger invalid", "later", (*Config).NotifyStagger, func(c *Config, s string) { c.NotifyStaggerRaw = s }, 500 * time.Millisecond},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			tc.set(cfg, tc.raw)
			if got := tc.get(cfg); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestKafkaBrokersList(t *testing.T) {
	cfg := &Config{KafkaBrokers: " kafka-1:9092, ,kafka-2:9092 "}
	want := []string{"kafka-1:9092", "kafka-2:9092"}
	if got := cfg.KafkaBrokersList(); !reflect.DeepEqual(got, want) {
		t.Errorf("KafkaBrokersList = %v, want %v", got, want)
	}
	var nilCfg *Config
	if nilCfg.KafkaBrokersList() != nil {
		t.Error("nil config should return nil broker list")
	}
}
