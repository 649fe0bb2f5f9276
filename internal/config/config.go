package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the DataPeek server.
type Config struct {
	Port       int
	Version    string
	SessionTTL time.Duration
	// MaxUploadBytes bounds how much of an upload is read into memory.
	MaxUploadBytes int64
	Summarizer     SummarizerConfig
	Telemetry      TelemetryConfig
	CORS           CORSConfig
}

type SummarizerConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:           envInt("DATAPEEK_PORT", 8080),
		Version:        envStr("DATAPEEK_VERSION", "0.1.0"),
		SessionTTL:     envDuration("DATAPEEK_SESSION_TTL", time.Hour),
		MaxUploadBytes: int64(envInt("DATAPEEK_MAX_UPLOAD_MB", 50)) << 20,
		Summarizer: SummarizerConfig{
			APIKey:  envStr("OPENAI_API_KEY", ""),
			Model:   envStr("DATAPEEK_OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL: envStr("DATAPEEK_OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Timeout: envDuration("DATAPEEK_OPENAI_TIMEOUT", 60*time.Second),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "datapeek"),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{envStr("DATAPEEK_CORS_ORIGIN", "*")},
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
