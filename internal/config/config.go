// Package config provides configuration management for the vocabulary service.
// It supports environment variable-based configuration with validation and
// default values for all service components including server, database, Redis,
// session, cache, assistant, security, and logging settings.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// MinPortNumber is the minimum valid port number.
	MinPortNumber = 1
	// MaxPortNumber is the maximum valid port number.
	MaxPortNumber = 65535
)

// Config represents the complete configuration for the vocabulary service,
// aggregating all component-specific configurations.
type Config struct {
	// Server contains HTTP server configuration including ports, timeouts, and TLS settings.
	Server ServerConfig `envconfig:"SERVER"`
	// Database contains PostgreSQL database configuration.
	Database DatabaseConfig `envconfig:"POSTGRES"`
	// Redis contains Redis connection configuration used for rate limiting.
	Redis RedisConfig `envconfig:"REDIS"`
	// Session contains sliding-window session store settings.
	Session SessionConfig `envconfig:"SESSION"`
	// Cache contains client response cache settings.
	Cache CacheConfig `envconfig:"CACHE"`
	// Monitor contains client session monitor settings.
	Monitor MonitorConfig `envconfig:"MONITOR"`
	// Assistant contains AI text-generation and speech upstream settings.
	Assistant AssistantConfig `envconfig:"ASSISTANT"`
	// Security contains security-related settings like CORS and rate limiting.
	Security SecurityConfig `envconfig:"SECURITY"`
	// Logging contains logging configuration.
	Logging LoggingConfig `envconfig:"LOGGING"`
	// Prompts contains default prompt template seeding configuration.
	Prompts PromptsConfig `envconfig:"PROMPTS"`
}

// ServerConfig holds HTTP server configuration including network settings,
// timeouts, and TLS certificate paths.
type ServerConfig struct {
	// Port is the HTTP server listening port.
	Port int `envconfig:"PORT"             default:"8080"`
	// Host is the network interface to bind to.
	Host string `envconfig:"HOST"             default:"0.0.0.0"`
	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `envconfig:"READ_TIMEOUT"     default:"15s"`
	// WriteTimeout is the maximum duration before timing out writes.
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT"    default:"30s"`
	// IdleTimeout is the maximum amount of time to wait for keep-alive connections.
	IdleTimeout time.Duration `envconfig:"IDLE_TIMEOUT"     default:"60s"`
	// ShutdownTimeout is the maximum time to wait for graceful server shutdown.
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	// TLSCert is the path to the TLS certificate file for HTTPS.
	TLSCert string `envconfig:"TLS_CERT"`
	// TLSKey is the path to the TLS private key file for HTTPS.
	TLSKey string `envconfig:"TLS_KEY"`
}

// DatabaseConfig contains PostgreSQL database connection configuration
// including connection pool settings and health check parameters.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `envconfig:"HOST"                default:"localhost"`
	// Port is the PostgreSQL server port.
	Port int `envconfig:"PORT"                default:"5432"`
	// Database is the PostgreSQL database name.
	Database string `envconfig:"DB"                  default:"lexivault"`
	// Schema is the PostgreSQL schema name.
	Schema string `envconfig:"SCHEMA"              default:"lexivault"`
	// User is the database username.
	User string `envconfig:"VOCAB_DB_USER"`
	// Password is the database password.
	Password string `envconfig:"VOCAB_DB_PASSWORD"`
	// SSLMode is the SSL connection mode (disable, require, verify-ca, verify-full).
	SSLMode string `envconfig:"SSL_MODE"            default:"require"`
	// MaxConn is the maximum number of connections in the pool.
	MaxConn int32 `envconfig:"MAX_CONN"            default:"25"`
	// MinConn is the minimum number of connections in the pool.
	MinConn int32 `envconfig:"MIN_CONN"            default:"5"`
	// MaxConnLifetime is the maximum lifetime of a connection.
	MaxConnLifetime time.Duration `envconfig:"MAX_CONN_LIFETIME"   default:"1h"`
	// MaxConnIdleTime is the maximum idle time for a connection.
	MaxConnIdleTime time.Duration `envconfig:"MAX_CONN_IDLE_TIME"  default:"30m"`
	// HealthCheckPeriod is how often to check database connectivity.
	HealthCheckPeriod time.Duration `envconfig:"HEALTH_CHECK_PERIOD" default:"30s"`
	// ConnectTimeout is the timeout for establishing connections.
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT"     default:"10s"`
}

// RedisConfig contains Redis connection configuration including
// connection pool settings and timeouts. Redis backs per-client
// rate limiting; the service degrades gracefully without it.
type RedisConfig struct {
	// URL is the Redis connection URL.
	URL string `envconfig:"URL"           default:"redis://localhost:6379"`
	// Password is the Redis authentication password.
	Password string `envconfig:"PASSWORD"`
	// DB is the Redis database number to use.
	DB int `envconfig:"DB"            default:"0"`
	// MaxRetries is the maximum number of retry attempts for failed operations.
	MaxRetries int `envconfig:"MAX_RETRIES"   default:"3"`
	// PoolSize is the maximum number of socket connections.
	PoolSize int `envconfig:"POOL_SIZE"     default:"10"`
	// MinIdleConn is the minimum number of idle connections.
	MinIdleConn int `envconfig:"MIN_IDLE_CONN" default:"5"`
	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration `envconfig:"DIAL_TIMEOUT"  default:"5s"`
	// ReadTimeout is the timeout for socket reads.
	ReadTimeout time.Duration `envconfig:"READ_TIMEOUT"  default:"3s"`
	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
	// PoolTimeout is the amount of time client waits for connection.
	PoolTimeout time.Duration `envconfig:"POOL_TIMEOUT"  default:"4s"`
}

// SessionConfig contains sliding-window session store settings.
type SessionConfig struct {
	// Window is how far each successful validation pushes the session
	// expiration forward from "now".
	Window time.Duration `envconfig:"WINDOW"           default:"24h"`
	// CleanupInterval is how often the janitor sweeps expired sessions.
	CleanupInterval time.Duration `envconfig:"CLEANUP_INTERVAL" default:"1h"`
}

// CacheConfig contains client response cache settings.
type CacheConfig struct {
	// TTL is the maximum age after which a cached response is treated as absent.
	TTL time.Duration `envconfig:"TTL"            default:"5m"`
	// SweepInterval is how often the cache sweeper removes stale entries.
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"10m"`
}

// MonitorConfig contains client session monitor settings.
type MonitorConfig struct {
	// HealthCheckInterval is the period of the liveness probe.
	HealthCheckInterval time.Duration `envconfig:"HEALTH_CHECK_INTERVAL" default:"5m"`
	// FailureThreshold is the consecutive failure count at which
	// ShouldAutoLogout becomes true.
	FailureThreshold int `envconfig:"FAILURE_THRESHOLD"     default:"3"`
}

// AssistantConfig contains AI text-generation and speech synthesis
// upstream configuration.
type AssistantConfig struct {
	// BaseURL is the OpenAI-compatible API base URL.
	BaseURL string `envconfig:"BASE_URL" default:"https://api.openai.com/v1"`
	// APIKey authenticates requests to the upstream.
	APIKey string `envconfig:"API_KEY"`
	// Model is the chat model used for definitions, examples, and synonyms.
	Model string `envconfig:"MODEL"    default:"gpt-4o-mini"`
	// SpeechModel is the model used for text-to-speech synthesis.
	SpeechModel string `envconfig:"SPEECH_MODEL" default:"tts-1"`
	// Voice is the synthesized voice name.
	Voice string `envconfig:"VOICE"    default:"alloy"`
	// Timeout is the HTTP timeout for upstream calls.
	Timeout time.Duration `envconfig:"TIMEOUT"  default:"60s"`
}

// SecurityConfig contains security-related settings including
// rate limiting and CORS configuration.
type SecurityConfig struct {
	// RateLimitRPS is the maximum requests per second per client.
	RateLimitRPS int `envconfig:"RATE_LIMIT_RPS"    default:"50"`
	// AllowedOrigins are the CORS allowed origins.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"   default:"*"`
	// AllowedMethods are the CORS allowed HTTP methods.
	AllowedMethods []string `envconfig:"ALLOWED_METHODS"   default:"GET,POST,PUT,DELETE,OPTIONS"`
	// AllowedHeaders are the CORS allowed headers.
	AllowedHeaders []string `envconfig:"ALLOWED_HEADERS"   default:"*"`
	// AllowCredentials determines if CORS allows credentials.
	AllowCredentials bool `envconfig:"ALLOW_CREDENTIALS" default:"true"`
	// MaxAge is the CORS preflight cache duration in seconds.
	MaxAge int `envconfig:"MAX_AGE"           default:"86400"`
	// TrustedProxies are the trusted proxy IP addresses.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`
}

// LoggingConfig contains logging configuration including
// log level, format, and output destination.
type LoggingConfig struct {
	// Level is the logging level (debug, info, warn, error).
	Level string `envconfig:"LEVEL"  default:"info"`
	// Format is the log output format (json, text).
	Format string `envconfig:"FORMAT" default:"json"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `envconfig:"OUTPUT" default:"stdout"`
}

// PromptsConfig contains default prompt template seeding configuration.
type PromptsConfig struct {
	// SeedEnabled determines whether missing prompt templates are
	// seeded from the YAML config at startup.
	SeedEnabled bool `envconfig:"SEED_ENABLED" default:"true"`
	// ConfigName is the viper config name searched under ./configs.
	ConfigName string `envconfig:"CONFIG_NAME"  default:"prompts"`
}

// Load reads configuration from environment variables and returns
// a validated Config instance. It returns an error if configuration
// is invalid or required values are missing.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate performs validation of all configuration values, ensuring
// they meet security and operational requirements.
func (c *Config) Validate() error {
	if c.Server.Port < MinPortNumber || c.Server.Port > MaxPortNumber {
		return errors.New("server port must be between 1 and 65535")
	}

	if c.Session.Window < time.Minute {
		return errors.New("session window must be at least 1 minute")
	}

	if c.Cache.TTL <= 0 {
		return errors.New("cache TTL must be positive")
	}

	if c.Monitor.FailureThreshold < 1 {
		return errors.New("monitor failure threshold must be at least 1")
	}

	return nil
}

// ServerAddr returns the formatted server address string in host:port format.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsTLSEnabled returns true if both TLS certificate and key paths are configured.
func (c *Config) IsTLSEnabled() bool {
	return c.Server.TLSCert != "" && c.Server.TLSKey != ""
}

// DatabaseDSN returns the PostgreSQL connection string (Data Source Name).
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s search_path=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.User,
		c.Database.Password,
		c.Database.SSLMode,
		c.Database.Schema,
	)
}

// IsDatabaseConfigured returns true if database user and password are configured.
func (c *Config) IsDatabaseConfigured() bool {
	return c.Database.User != "" && c.Database.Password != ""
}
