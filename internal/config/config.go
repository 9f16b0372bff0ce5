package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DataSourceCSV    = "csv"
	DataSourceSample = "sample"

	LabelStrategyIndex  = "index"
	LabelStrategyRanked = "ranked"

	// DefaultSeed drives both the sample generator and k-means seeding.
	DefaultSeed = 42
)

type Config struct {
	Server       ServerConfig
	Data         DataConfig
	Segmentation SegmentationConfig
	Logger       LoggerConfig
	Security     SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	LoadTimeout     time.Duration
}

type DataConfig struct {
	Source      string
	CSVFile     string
	SampleUsers int
	SampleDays  int
}

type SegmentationConfig struct {
	Seed          uint64
	NInit         int
	MaxIterations int
	LabelStrategy string
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; real environment
// variables always win over it. A .env that exists but cannot be parsed is
// an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			LoadTimeout:     getEnvDuration("SERVER_LOAD_TIMEOUT", 30*time.Second),
		},
		Data: DataConfig{
			Source:      getEnvString("DATA_SOURCE", DataSourceCSV),
			CSVFile:     getEnvString("CSV_FILE", "clickstream.csv"),
			SampleUsers: getEnvInt("SAMPLE_USERS", 100),
			SampleDays:  getEnvInt("SAMPLE_DAYS", 30),
		},
		Segmentation: SegmentationConfig{
			Seed:          uint64(getEnvInt("RANDOM_SEED", DefaultSeed)),
			NInit:         getEnvInt("SEGMENT_N_INIT", 10),
			MaxIterations: getEnvInt("SEGMENT_MAX_ITER", 300),
			LabelStrategy: getEnvString("SEGMENT_LABEL_STRATEGY", LabelStrategyIndex),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	validSources := []string{DataSourceCSV, DataSourceSample}
	if !slices.Contains(validSources, c.Data.Source) {
		return fmt.Errorf("invalid data source %q, must be one of: %s", c.Data.Source, strings.Join(validSources, ", "))
	}

	if c.Data.Source == DataSourceCSV && c.Data.CSVFile == "" {
		return fmt.Errorf("CSV file path cannot be empty")
	}

	if c.Data.SampleUsers <= 0 || c.Data.SampleDays <= 0 {
		return fmt.Errorf("sample users and days must be positive")
	}

	if c.Segmentation.NInit < 1 || c.Segmentation.MaxIterations < 1 {
		return fmt.Errorf("segment n_init and max iterations must be positive")
	}

	validStrategies := []string{LabelStrategyIndex, LabelStrategyRanked}
	if !slices.Contains(validStrategies, c.Segmentation.LabelStrategy) {
		return fmt.Errorf("invalid label strategy %q, must be one of: %s", c.Segmentation.LabelStrategy, strings.Join(validStrategies, ", "))
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
