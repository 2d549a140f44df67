package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points config file discovery at an empty directory and clears
// the variables the tests depend on.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, v := range []string{
		"MEETING_SUMMARY_CONFIG", "SERVICE_PRINCIPAL", "GRPC_PORT", "HTTP_ADDR", "LOG_LEVEL",
		"STT_PROVIDER", "STT_LANGUAGE", "STT_TIMEOUT", "STT_API_KEY", "OPENAI_API_KEY",
		"RELAY_ENDPOINT", "CHUNK_SIZE_THRESHOLD_BYTES", "CHUNK_SECONDS",
		"RETRY_MAX_ATTEMPTS", "KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_PRINCIPAL",
	} {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Service.Principal != "svc-meeting-summary" {
		t.Errorf("expected default principal 'svc-meeting-summary', got %s", cfg.Service.Principal)
	}
	if cfg.Service.GRPCPort != "50051" {
		t.Errorf("expected default port '50051', got %s", cfg.Service.GRPCPort)
	}
	if cfg.STT.Provider != "whisper" {
		t.Errorf("expected default STT provider 'whisper', got %s", cfg.STT.Provider)
	}
	if cfg.STT.Language != "ko" {
		t.Errorf("expected default language 'ko', got %s", cfg.STT.Language)
	}
	if cfg.STT.Timeout != 900*time.Second {
		t.Errorf("expected default STT timeout 900s, got %v", cfg.STT.Timeout)
	}
	if cfg.Relay.Timeout != 900*time.Second {
		t.Errorf("expected default relay timeout 900s, got %v", cfg.Relay.Timeout)
	}
	if cfg.Chunking.SizeThresholdBytes != 20*1024*1024 {
		t.Errorf("expected default threshold 20 MiB, got %d", cfg.Chunking.SizeThresholdBytes)
	}
	if cfg.Chunking.ChunkSeconds != 600 {
		t.Errorf("expected default chunk length 600s, got %v", cfg.Chunking.ChunkSeconds)
	}
	if cfg.Retry.MaxAttempts != 1 {
		t.Errorf("expected retries disabled by default, got %d attempts", cfg.Retry.MaxAttempts)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	isolate(t)
	t.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	t.Setenv("GRPC_PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STT_PROVIDER", "google")
	t.Setenv("STT_TIMEOUT", "30s")
	t.Setenv("RELAY_ENDPOINT", "https://relay.example/hook")
	t.Setenv("CHUNK_SIZE_THRESHOLD_BYTES", "1048576")
	t.Setenv("CHUNK_SECONDS", "120.5")
	t.Setenv("RETRY_MAX_ATTEMPTS", "3")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.GRPCPort != "9999" {
		t.Errorf("expected port '9999', got %s", cfg.Service.GRPCPort)
	}
	if cfg.STT.Provider != "google" {
		t.Errorf("expected STT provider 'google', got %s", cfg.STT.Provider)
	}
	if cfg.STT.Timeout != 30*time.Second {
		t.Errorf("expected STT timeout 30s, got %v", cfg.STT.Timeout)
	}
	if cfg.Relay.Endpoint != "https://relay.example/hook" {
		t.Errorf("unexpected relay endpoint %s", cfg.Relay.Endpoint)
	}
	if cfg.Chunking.SizeThresholdBytes != 1048576 {
		t.Errorf("expected threshold 1048576, got %d", cfg.Chunking.SizeThresholdBytes)
	}
	if cfg.Chunking.ChunkSeconds != 120.5 {
		t.Errorf("expected chunk length 120.5, got %v", cfg.Chunking.ChunkSeconds)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.Retry.MaxAttempts)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("unexpected kafka config %+v", cfg.Kafka)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("STT_TIMEOUT", "soon")
	t.Setenv("CHUNK_SIZE_THRESHOLD_BYTES", "invalid")
	t.Setenv("CHUNK_SECONDS", "-5")
	t.Setenv("RETRY_MAX_ATTEMPTS", "0")
	t.Setenv("KAFKA_ENABLED", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.STT.Timeout != 900*time.Second {
		t.Errorf("expected default timeout on invalid input, got %v", cfg.STT.Timeout)
	}
	if cfg.Chunking.SizeThresholdBytes != 20*1024*1024 {
		t.Errorf("expected default threshold on invalid input, got %d", cfg.Chunking.SizeThresholdBytes)
	}
	if cfg.Chunking.ChunkSeconds != 600 {
		t.Errorf("expected default chunk length on invalid input, got %v", cfg.Chunking.ChunkSeconds)
	}
	if cfg.Retry.MaxAttempts != 1 {
		t.Errorf("expected default attempts on invalid input, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected default Kafka flag on invalid input")
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	isolate(t)
	t.Setenv("SERVICE_PRINCIPAL", "my-service")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[stt]
provider = "openai"
timeout = "2m"

[relay]
endpoint = "https://relay.example/from-file"

[chunking]
size_threshold_bytes = 4096
chunk_seconds = 300.0

[kafka]
enabled = true
brokers = ["kafka:9092"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MEETING_SUMMARY_CONFIG", path)
	t.Setenv("STT_PROVIDER", "mock")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.STT.Provider != "mock" {
		t.Errorf("expected environment to override file, got %s", cfg.STT.Provider)
	}
	if cfg.STT.Timeout != 2*time.Minute {
		t.Errorf("expected file timeout 2m, got %v", cfg.STT.Timeout)
	}
	if cfg.Relay.Endpoint != "https://relay.example/from-file" {
		t.Errorf("unexpected relay endpoint %s", cfg.Relay.Endpoint)
	}
	if cfg.Chunking.SizeThresholdBytes != 4096 || cfg.Chunking.ChunkSeconds != 300 {
		t.Errorf("unexpected chunking config %+v", cfg.Chunking)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 1 {
		t.Errorf("unexpected kafka config %+v", cfg.Kafka)
	}
}

func TestLoad_MalformedConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[stt\nprovider = "), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MEETING_SUMMARY_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Error("expected error for malformed config file")
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			t.Setenv(key, tt.envValue)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a:1 ,,b:2 ")
	if len(got) != 2 || got[0] != "a:1" || got[1] != "b:2" {
		t.Errorf("unexpected split %v", got)
	}
}
