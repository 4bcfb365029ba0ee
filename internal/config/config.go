package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultBoundaryURL = "https://raw.githubusercontent.com/nvkelso/natural-earth-vector/master/geojson/ne_110m_admin_0_countries.geojson"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Dataset    DatasetConfig    `yaml:"dataset"`
	Logger     LoggerConfig     `yaml:"logger"`
	Security   SecurityConfig   `yaml:"security"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatasetConfig locates the inputs. The orders and geolocation files are independent.
type DatasetConfig struct {
	OrdersCSV       string        `yaml:"orders_csv"`
	GeolocationCSV  string        `yaml:"geolocation_csv"`
	BoundaryURL     string        `yaml:"boundary_url"`
	BoundaryCountry string        `yaml:"boundary_country"`
	BoundaryTimeout time.Duration `yaml:"boundary_timeout"`
	LoadTimeout     time.Duration `yaml:"load_timeout"`
}

type LoggerConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
	Service   string `yaml:"service"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `yaml:"enable_rate_limit"`
	RateLimitRPS    int      `yaml:"rate_limit_rps"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	TrustedProxies  []string `yaml:"trusted_proxies"`
}

// ResilienceConfig tunes retries and the circuit breaker around remote fetches.
type ResilienceConfig struct {
	RetryMaxAttempts    int           `yaml:"retry_max_attempts"`
	RetryInitialBackoff time.Duration `yaml:"retry_initial_backoff"`
	RetryMaxBackoff     time.Duration `yaml:"retry_max_backoff"`
	BreakerEnabled      bool          `yaml:"breaker_enabled"`
	BreakerOpenTimeout  time.Duration `yaml:"breaker_open_timeout"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8084,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Dataset: DatasetConfig{
			OrdersCSV:       "data/all_data_df.csv",
			GeolocationCSV:  "data/geolocation_dataset.csv",
			BoundaryURL:     defaultBoundaryURL,
			BoundaryCountry: "Brazil",
			BoundaryTimeout: 15 * time.Second,
			LoadTimeout:     60 * time.Second,
		},
		Logger: LoggerConfig{
			Level:   "info",
			Format:  "json",
			Service: "ecommerce-dashboard",
		},
		Security: SecurityConfig{
			EnableRateLimit: true,
			RateLimitRPS:    100,
			RateLimitBurst:  20,
			AllowedOrigins:  []string{"http://localhost:8084"},
			TrustedProxies:  []string{"127.0.0.1"},
		},
		Resilience: ResilienceConfig{
			RetryMaxAttempts:    3,
			RetryInitialBackoff: 200 * time.Millisecond,
			RetryMaxBackoff:     2 * time.Second,
			BreakerEnabled:      true,
			BreakerOpenTimeout:  30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load builds the configuration from built-in defaults, an optional YAML file named by
// CONFIG_FILE, an optional .env file and finally the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnvString("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("SERVER_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Dataset.OrdersCSV = getEnvString("ORDERS_CSV_FILE", c.Dataset.OrdersCSV)
	c.Dataset.GeolocationCSV = getEnvString("GEOLOCATION_CSV_FILE", c.Dataset.GeolocationCSV)
	c.Dataset.BoundaryURL = getEnvString("BOUNDARY_GEOJSON_URL", c.Dataset.BoundaryURL)
	c.Dataset.BoundaryCountry = getEnvString("BOUNDARY_COUNTRY", c.Dataset.BoundaryCountry)
	c.Dataset.BoundaryTimeout = getEnvDuration("BOUNDARY_TIMEOUT", c.Dataset.BoundaryTimeout)
	c.Dataset.LoadTimeout = getEnvDuration("DATASET_LOAD_TIMEOUT", c.Dataset.LoadTimeout)

	c.Logger.Level = getEnvString("LOG_LEVEL", c.Logger.Level)
	c.Logger.Format = getEnvString("LOG_FORMAT", c.Logger.Format)
	c.Logger.AddSource = getEnvBool("LOG_ADD_SOURCE", c.Logger.AddSource)

	c.Security.EnableRateLimit = getEnvBool("SECURITY_RATE_LIMIT_ENABLED", c.Security.EnableRateLimit)
	c.Security.RateLimitRPS = getEnvInt("SECURITY_RATE_LIMIT_RPS", c.Security.RateLimitRPS)
	c.Security.RateLimitBurst = getEnvInt("SECURITY_RATE_LIMIT_BURST", c.Security.RateLimitBurst)
	c.Security.AllowedOrigins = getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", c.Security.AllowedOrigins)
	c.Security.TrustedProxies = getEnvStringSlice("SECURITY_TRUSTED_PROXIES", c.Security.TrustedProxies)

	c.Resilience.RetryMaxAttempts = getEnvInt("RETRY_MAX_ATTEMPTS", c.Resilience.RetryMaxAttempts)
	c.Resilience.RetryInitialBackoff = getEnvDuration("RETRY_INITIAL_BACKOFF", c.Resilience.RetryInitialBackoff)
	c.Resilience.RetryMaxBackoff = getEnvDuration("RETRY_MAX_BACKOFF", c.Resilience.RetryMaxBackoff)
	c.Resilience.BreakerEnabled = getEnvBool("BREAKER_ENABLED", c.Resilience.BreakerEnabled)
	c.Resilience.BreakerOpenTimeout = getEnvDuration("BREAKER_OPEN_TIMEOUT", c.Resilience.BreakerOpenTimeout)

	c.Metrics.Enabled = getEnvBool("METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Path = getEnvString("METRICS_PATH", c.Metrics.Path)
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

	if c.Dataset.OrdersCSV == "" {
		return fmt.Errorf("orders CSV path cannot be empty")
	}

	if c.Dataset.GeolocationCSV == "" {
		return fmt.Errorf("geolocation CSV path cannot be empty")
	}

	if c.Dataset.BoundaryURL != "" && c.Dataset.BoundaryCountry == "" {
		return fmt.Errorf("boundary country is required when a boundary URL is set")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.Resilience.RetryMaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1")
	}

	if c.Resilience.RetryMaxBackoff < c.Resilience.RetryInitialBackoff {
		return fmt.Errorf("retry max backoff %v is below the initial backoff %v",
			c.Resilience.RetryMaxBackoff, c.Resilience.RetryInitialBackoff)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with '/', got %q", c.Metrics.Path)
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
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
