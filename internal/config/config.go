// Package config loads service configuration from defaults, an optional
// TOML file, a .env file and the environment, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Configuration is the complete service configuration.
type Configuration struct {
	Service       ServiceConfig
	Capture       CaptureConfig
	STT           STTConfig
	Relay         RelayConfig
	Chunking      ChunkingConfig
	Retry         RetryConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name      string
	Principal string
	HTTPAddr  string
	GRPCPort  string
	TempDir   string
}

type CaptureConfig struct {
	FFmpeg      string
	FFprobe     string
	FFplay      string
	InputFormat string
	Device      string
	SampleRate  int
	Bitrate     string
	// AuthMode is "file" (prompt once, persist the answer) or "granted".
	AuthMode      string
	AuthStateFile string
}

type STTConfig struct {
	Provider string
	Endpoint string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration

	// Google provider
	LanguageCode    string
	SampleRateHz    int
	AudioEncoding   string
	CredentialsFile string
}

type RelayConfig struct {
	Endpoint string
	Timeout  time.Duration
}

type ChunkingConfig struct {
	SizeThresholdBytes int64
	ChunkSeconds       float64
}

type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	TopicStatus    string
	TopicCompleted string
	Principal      string
	OutboxSize     int
}

type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsPort string
}

// fileConfig mirrors the TOML layout. Zero values leave defaults in place.
type fileConfig struct {
	Service struct {
		Principal string `toml:"principal"`
		HTTPAddr  string `toml:"http_addr"`
		GRPCPort  string `toml:"grpc_port"`
		TempDir   string `toml:"temp_dir"`
	} `toml:"service"`
	Capture struct {
		InputFormat   string `toml:"input_format"`
		Device        string `toml:"device"`
		AuthMode      string `toml:"auth_mode"`
		AuthStateFile string `toml:"auth_state_file"`
	} `toml:"capture"`
	STT struct {
		Provider string `toml:"provider"`
		Endpoint string `toml:"endpoint"`
		APIKey   string `toml:"api_key"`
		Model    string `toml:"model"`
		Language string `toml:"language"`
		Timeout  string `toml:"timeout"`
	} `toml:"stt"`
	Relay struct {
		Endpoint string `toml:"endpoint"`
		Timeout  string `toml:"timeout"`
	} `toml:"relay"`
	Chunking struct {
		SizeThresholdBytes int64   `toml:"size_threshold_bytes"`
		ChunkSeconds       float64 `toml:"chunk_seconds"`
	} `toml:"chunking"`
	Retry struct {
		MaxAttempts int `toml:"max_attempts"`
	} `toml:"retry"`
	Kafka struct {
		Enabled bool     `toml:"enabled"`
		Brokers []string `toml:"brokers"`
	} `toml:"kafka"`
}

// Defaults returns the built-in configuration.
func Defaults() *Configuration {
	return &Configuration{
		Service: ServiceConfig{
			Name:      "meeting-summary-service",
			Principal: "svc-meeting-summary",
			HTTPAddr:  ":8080",
			GRPCPort:  "50051",
			TempDir:   os.TempDir(),
		},
		Capture: CaptureConfig{
			FFmpeg:        "ffmpeg",
			FFprobe:       "ffprobe",
			FFplay:        "ffplay",
			InputFormat:   "avfoundation",
			Device:        ":default",
			SampleRate:    44100,
			Bitrate:       "192k",
			AuthMode:      "file",
			AuthStateFile: defaultStatePath("microphone"),
		},
		STT: STTConfig{
			Provider:      "whisper",
			Endpoint:      "https://api.openai.com/v1/audio/transcriptions",
			Model:         "whisper-1",
			Language:      "ko",
			Timeout:       900 * time.Second,
			LanguageCode:  "ko-KR",
			SampleRateHz:  16000,
			AudioEncoding: "LINEAR16",
		},
		Relay: RelayConfig{
			Timeout: 900 * time.Second,
		},
		Chunking: ChunkingConfig{
			SizeThresholdBytes: 20 * 1024 * 1024,
			ChunkSeconds:       600,
		},
		Retry: RetryConfig{
			MaxAttempts:    1,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     30 * time.Second,
		},
		Kafka: KafkaConfig{
			TopicStatus:    "meeting.session.status",
			TopicCompleted: "meeting.session.completed",
			OutboxSize:     256,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsPort: "9090",
		},
	}
}

// Load builds the configuration. A missing config file or .env file is not
// an error; a config file that exists but does not parse is.
func Load() (*Configuration, error) {
	cfg := Defaults()

	if path := FilePath(); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	// godotenv never overrides variables that are already set.
	_ = godotenv.Load()

	applyEnv(cfg)
	return cfg, nil
}

// FilePath returns the config file to read, or "" when there is none.
func FilePath() string {
	if p := os.Getenv("MEETING_SUMMARY_CONFIG"); p != "" {
		return p
	}
	var dir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dir = filepath.Join(xdg, "meeting-summary")
	} else if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".config", "meeting-summary")
	} else {
		return ""
	}
	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func applyFile(cfg *Configuration, path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	setString(&cfg.Service.Principal, fc.Service.Principal)
	setString(&cfg.Service.HTTPAddr, fc.Service.HTTPAddr)
	setString(&cfg.Service.GRPCPort, fc.Service.GRPCPort)
	setString(&cfg.Service.TempDir, expandTilde(fc.Service.TempDir))

	setString(&cfg.Capture.InputFormat, fc.Capture.InputFormat)
	setString(&cfg.Capture.Device, fc.Capture.Device)
	setString(&cfg.Capture.AuthMode, fc.Capture.AuthMode)
	setString(&cfg.Capture.AuthStateFile, expandTilde(fc.Capture.AuthStateFile))

	setString(&cfg.STT.Provider, fc.STT.Provider)
	setString(&cfg.STT.Endpoint, fc.STT.Endpoint)
	setString(&cfg.STT.APIKey, fc.STT.APIKey)
	setString(&cfg.STT.Model, fc.STT.Model)
	setString(&cfg.STT.Language, fc.STT.Language)
	setDuration(&cfg.STT.Timeout, fc.STT.Timeout)

	setString(&cfg.Relay.Endpoint, fc.Relay.Endpoint)
	setDuration(&cfg.Relay.Timeout, fc.Relay.Timeout)

	if fc.Chunking.SizeThresholdBytes > 0 {
		cfg.Chunking.SizeThresholdBytes = fc.Chunking.SizeThresholdBytes
	}
	if fc.Chunking.ChunkSeconds > 0 {
		cfg.Chunking.ChunkSeconds = fc.Chunking.ChunkSeconds
	}
	if fc.Retry.MaxAttempts > 0 {
		cfg.Retry.MaxAttempts = fc.Retry.MaxAttempts
	}
	if fc.Kafka.Enabled {
		cfg.Kafka.Enabled = true
	}
	if len(fc.Kafka.Brokers) > 0 {
		cfg.Kafka.Brokers = fc.Kafka.Brokers
	}
	return nil
}

func applyEnv(cfg *Configuration) {
	cfg.Service.Principal = envOrDefault("SERVICE_PRINCIPAL", cfg.Service.Principal)
	cfg.Service.HTTPAddr = envOrDefault("HTTP_ADDR", cfg.Service.HTTPAddr)
	cfg.Service.GRPCPort = envOrDefault("GRPC_PORT", cfg.Service.GRPCPort)
	cfg.Service.TempDir = envOrDefault("TEMP_DIR", cfg.Service.TempDir)

	cfg.Capture.FFmpeg = envOrDefault("FFMPEG_PATH", cfg.Capture.FFmpeg)
	cfg.Capture.FFprobe = envOrDefault("FFPROBE_PATH", cfg.Capture.FFprobe)
	cfg.Capture.FFplay = envOrDefault("FFPLAY_PATH", cfg.Capture.FFplay)
	cfg.Capture.InputFormat = envOrDefault("CAPTURE_INPUT_FORMAT", cfg.Capture.InputFormat)
	cfg.Capture.Device = envOrDefault("CAPTURE_DEVICE", cfg.Capture.Device)
	cfg.Capture.SampleRate = envOrDefaultInt("CAPTURE_SAMPLE_RATE", cfg.Capture.SampleRate)
	cfg.Capture.AuthMode = envOrDefault("MIC_AUTH_MODE", cfg.Capture.AuthMode)
	cfg.Capture.AuthStateFile = envOrDefault("MIC_AUTH_STATE_FILE", cfg.Capture.AuthStateFile)

	cfg.STT.Provider = envOrDefault("STT_PROVIDER", cfg.STT.Provider)
	cfg.STT.Endpoint = envOrDefault("STT_ENDPOINT", cfg.STT.Endpoint)
	cfg.STT.APIKey = envOrDefault("STT_API_KEY", envOrDefault("OPENAI_API_KEY", cfg.STT.APIKey))
	cfg.STT.Model = envOrDefault("STT_MODEL", cfg.STT.Model)
	cfg.STT.Language = envOrDefault("STT_LANGUAGE", cfg.STT.Language)
	cfg.STT.Timeout = envOrDefaultDuration("STT_TIMEOUT", cfg.STT.Timeout)
	cfg.STT.LanguageCode = envOrDefault("STT_LANGUAGE_CODE", cfg.STT.LanguageCode)
	cfg.STT.SampleRateHz = envOrDefaultInt("STT_SAMPLE_RATE_HZ", cfg.STT.SampleRateHz)
	cfg.STT.AudioEncoding = envOrDefault("STT_AUDIO_ENCODING", cfg.STT.AudioEncoding)
	cfg.STT.CredentialsFile = envOrDefault("GOOGLE_APPLICATION_CREDENTIALS", cfg.STT.CredentialsFile)

	cfg.Relay.Endpoint = envOrDefault("RELAY_ENDPOINT", cfg.Relay.Endpoint)
	cfg.Relay.Timeout = envOrDefaultDuration("RELAY_TIMEOUT", cfg.Relay.Timeout)

	cfg.Chunking.SizeThresholdBytes = envOrDefaultInt64("CHUNK_SIZE_THRESHOLD_BYTES", cfg.Chunking.SizeThresholdBytes)
	cfg.Chunking.ChunkSeconds = envOrDefaultFloat("CHUNK_SECONDS", cfg.Chunking.ChunkSeconds)

	cfg.Retry.MaxAttempts = envOrDefaultInt("RETRY_MAX_ATTEMPTS", cfg.Retry.MaxAttempts)
	cfg.Retry.InitialBackoff = envOrDefaultDuration("RETRY_INITIAL_BACKOFF", cfg.Retry.InitialBackoff)
	cfg.Retry.MaxBackoff = envOrDefaultDuration("RETRY_MAX_BACKOFF", cfg.Retry.MaxBackoff)

	cfg.Kafka.Enabled = envOrDefaultBool("KAFKA_ENABLED", cfg.Kafka.Enabled)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	cfg.Kafka.TopicStatus = envOrDefault("KAFKA_TOPIC_STATUS", cfg.Kafka.TopicStatus)
	cfg.Kafka.TopicCompleted = envOrDefault("KAFKA_TOPIC_COMPLETED", cfg.Kafka.TopicCompleted)
	cfg.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", cfg.Service.Principal)
	cfg.Kafka.OutboxSize = envOrDefaultInt("KAFKA_OUTBOX_SIZE", cfg.Kafka.OutboxSize)

	cfg.Observability.LogLevel = envOrDefault("LOG_LEVEL", cfg.Observability.LogLevel)
	cfg.Observability.LogFormat = envOrDefault("LOG_FORMAT", cfg.Observability.LogFormat)
	cfg.Observability.MetricsPort = envOrDefault("METRICS_PORT", cfg.Observability.MetricsPort)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil && i > 0 {
			return i
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) {
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		*dst = d
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultStatePath(name string) string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "meeting-summary", name)
	}
	return filepath.Join(os.TempDir(), "meeting-summary", name)
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
