package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/topgen/pkg/observability"
)

// Runner kinds accepted by TOPGEN_RUNNER
const (
	RunnerLocal  = "local"
	RunnerDocker = "docker"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Validation configuration
	Validation ValidationConfig

	// Generator configuration
	Generator GeneratorConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	CORSOrigins  []string
	MaxBodyBytes int64
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// ValidationConfig selects the schema used by the schema gate
type ValidationConfig struct {
	// SchemaPath overrides the embedded schema when set
	SchemaPath string
}

// GeneratorConfig holds RTL generation settings
type GeneratorConfig struct {
	OutputDir   string
	Runner      string
	FloogenBin  string
	DockerImage string
	Timeout     time.Duration

	JobCacheSize  int
	JobRetention  time.Duration
	SweepSchedule string

	S3Bucket string
	S3Region string
	S3Prefix string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       logrus.Level
	MetricsEnabled bool

	// OTel exports traces over OTLP/gRPC when enabled
	OTel observability.OTelConfig
}

// LoadConfig loads configuration from environment variables. When
// TOPGEN_ENV_FILE is set the named dotenv file is loaded first; variables
// already present in the environment win.
func LoadConfig() (*Config, error) {
	if envFile := os.Getenv("TOPGEN_ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	obs, err := loadObservabilityConfig()
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	cfg := &Config{
		Server:        loadServerConfig(),
		Validation:    ValidationConfig{SchemaPath: getEnv("TOPGEN_SCHEMA_PATH", "")},
		Generator:     loadGeneratorConfig(),
		Observability: obs,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("TOPGEN_HOST", "0.0.0.0"),
		Port:            getEnv("TOPGEN_PORT", "5000"),
		ReadTimeout:     getEnvDuration("TOPGEN_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:    getEnvDuration("TOPGEN_WRITE_TIMEOUT", 6*time.Minute),
		IdleTimeout:     getEnvDuration("TOPGEN_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("TOPGEN_SHUTDOWN_TIMEOUT", 30*time.Second),
		CORSOrigins:     getEnvList("TOPGEN_CORS_ORIGINS", []string{"*"}),
		MaxBodyBytes:    getEnvInt64("TOPGEN_MAX_BODY_BYTES", 10<<20),
	}
}

func loadGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		OutputDir:     getEnv("TOPGEN_OUTPUT_DIR", "./output"),
		Runner:        strings.ToLower(getEnv("TOPGEN_RUNNER", RunnerLocal)),
		FloogenBin:    getEnv("TOPGEN_FLOOGEN_BIN", "floogen"),
		DockerImage:   getEnv("TOPGEN_DOCKER_IMAGE", ""),
		Timeout:       getEnvDuration("TOPGEN_GENERATE_TIMEOUT", 5*time.Minute),
		JobCacheSize:  getEnvInt("TOPGEN_JOB_CACHE_SIZE", 1024),
		JobRetention:  getEnvDuration("TOPGEN_JOB_RETENTION", 24*time.Hour),
		SweepSchedule: getEnv("TOPGEN_SWEEP_SCHEDULE", "@hourly"),
		S3Bucket:      getEnv("TOPGEN_S3_BUCKET", ""),
		S3Region:      getEnv("TOPGEN_S3_REGION", ""),
		S3Prefix:      strings.Trim(getEnv("TOPGEN_S3_PREFIX", ""), "/"),
	}
}

func loadObservabilityConfig() (ObservabilityConfig, error) {
	level, err := observability.ParseLevel(getEnv("TOPGEN_LOG_LEVEL", "info"))
	if err != nil {
		return ObservabilityConfig{}, err
	}
	return ObservabilityConfig{
		LogLevel:       level,
		MetricsEnabled: getEnvBool("TOPGEN_METRICS_ENABLED", true),
		OTel: observability.OTelConfig{
			Enabled:        getEnvBool("TOPGEN_OTEL_ENABLED", false),
			Endpoint:       getEnv("TOPGEN_OTEL_ENDPOINT", "localhost:4317"),
			ServiceName:    getEnv("TOPGEN_OTEL_SERVICE_NAME", "topgen-server"),
			ServiceVersion: getEnv("TOPGEN_OTEL_SERVICE_VERSION", "dev"),
			Insecure:       getEnvBool("TOPGEN_OTEL_INSECURE", true),
		},
	}, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid server port: %s", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("max body bytes must be positive")
	}

	g := c.Generator
	if g.OutputDir == "" {
		return errors.New("output directory is required")
	}
	switch g.Runner {
	case RunnerLocal:
		if g.FloogenBin == "" {
			return errors.New("floogen binary is required for the local runner")
		}
	case RunnerDocker:
		if g.DockerImage == "" {
			return errors.New("docker image is required for the docker runner")
		}
	default:
		return fmt.Errorf("invalid runner: %s (must be local or docker)", g.Runner)
	}
	if g.Timeout <= 0 {
		return errors.New("generate timeout must be positive")
	}
	if g.JobCacheSize <= 0 {
		return errors.New("job cache size must be positive")
	}
	if g.JobRetention <= 0 {
		return errors.New("job retention must be positive")
	}
	if g.S3Bucket != "" && g.S3Region == "" {
		return errors.New("S3 region is required when an S3 bucket is set")
	}

	if c.Observability.OTel.Enabled && c.Observability.OTel.Endpoint == "" {
		return errors.New("OTel endpoint is required when tracing is enabled")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
