// Package config provides environment-based configuration for FlowGraph.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	Engine   EngineConfig
	Logging  LoggingConfig
	Database DatabaseConfig
	Tracing  TracingConfig
	Observer ObserverConfig
	OpenAI   OpenAIConfig
}

// EngineConfig holds execution limits.
type EngineConfig struct {
	MaxConcurrency    int
	NodeTimeout       time.Duration
	MaxOutputSize     int
	CancelGracePeriod time.Duration
	StrictTemplates   bool
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// DatabaseConfig holds Postgres connection settings for the persistence
// collaborator.
type DatabaseConfig struct {
	DSN            string
	MaxConnections int
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Insecure    bool
	SampleRate  float64
}

// ObserverConfig toggles the bundled observers.
type ObserverConfig struct {
	EnableLogger  bool
	EnableMetrics bool
	BufferSize    int
}

// OpenAIConfig holds the default key for llm nodes.
type OpenAIConfig struct {
	APIKey string
}

// Load reads configuration from the environment, loading the given .env
// file first when it exists.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("loading %s: %w", envFile, err)
			}
		}
	}

	cfg := &Config{
		Engine: EngineConfig{
			MaxConcurrency:    envInt("FLOWGRAPH_MAX_CONCURRENCY", 10),
			NodeTimeout:       envDuration("FLOWGRAPH_NODE_TIMEOUT", 2*time.Minute),
			MaxOutputSize:     envInt("FLOWGRAPH_MAX_OUTPUT_SIZE", 100_000),
			CancelGracePeriod: envDuration("FLOWGRAPH_CANCEL_GRACE", 5*time.Second),
			StrictTemplates:   envBool("FLOWGRAPH_STRICT_TEMPLATES", false),
		},
		Logging: LoggingConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			DSN:            envString("DATABASE_URL", ""),
			MaxConnections: envInt("DATABASE_MAX_CONNECTIONS", 10),
		},
		Tracing: TracingConfig{
			Enabled:     envBool("OTEL_ENABLED", false),
			ServiceName: envString("OTEL_SERVICE_NAME", "flowgraph"),
			Endpoint:    envString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			Insecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRate:  envFloat("OTEL_SAMPLE_RATE", 1.0),
		},
		Observer: ObserverConfig{
			EnableLogger:  envBool("OBSERVER_LOGGER", true),
			EnableMetrics: envBool("OBSERVER_METRICS", false),
			BufferSize:    envInt("OBSERVER_BUFFER_SIZE", 256),
		},
		OpenAI: OpenAIConfig{
			APIKey: envString("OPENAI_API_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Engine.MaxConcurrency <= 0 {
		return fmt.Errorf("FLOWGRAPH_MAX_CONCURRENCY must be positive")
	}
	if c.Engine.MaxOutputSize <= 0 {
		return fmt.Errorf("FLOWGRAPH_MAX_OUTPUT_SIZE must be positive")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Logging.Format)
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
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

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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
