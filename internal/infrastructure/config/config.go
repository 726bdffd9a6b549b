package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Sale          SaleConfig          `mapstructure:"sale"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Terminal      TerminalConfig      `mapstructure:"terminal"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	RateLimit       int           `mapstructure:"rate_limit"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTExpiry time.Duration `mapstructure:"jwt_expiry"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// SaleConfig tunes the sale-creation endpoint.
type SaleConfig struct {
	LockTTL        time.Duration `mapstructure:"lock_ttl"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

type WorkerConfig struct {
	BatchSize          int64         `mapstructure:"batch_size"`
	BlockDuration      time.Duration `mapstructure:"block_duration"`
	OutboxPollInterval time.Duration `mapstructure:"outbox_poll_interval"`
	OutboxBatchSize    int           `mapstructure:"outbox_batch_size"`
	ConsumerGroup      string        `mapstructure:"consumer_group"`
	Stream             string        `mapstructure:"stream"`
	ClaimMinIdle       time.Duration `mapstructure:"claim_min_idle"`
	IdempotencyCleanup time.Duration `mapstructure:"idempotency_cleanup"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

// TerminalConfig configures the POS terminal agent.
type TerminalConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	DBPath          string        `mapstructure:"db_path"`
	RemoteURL       string        `mapstructure:"remote_url"`
	Token           string        `mapstructure:"token"`
	UserID          string        `mapstructure:"user_id"`
	TenantID        string        `mapstructure:"tenant_id"`
	PosNumber       int           `mapstructure:"pos_number"`
	TenantPolicy    string        `mapstructure:"tenant_policy"`
	RemoteTimeout   time.Duration `mapstructure:"remote_timeout"`
	ProbeInterval   time.Duration `mapstructure:"probe_interval"`
	ProbeTimeout    time.Duration `mapstructure:"probe_timeout"`
	CaptureAttempts uint          `mapstructure:"capture_attempts"`

	CircuitBreakerThreshold uint32        `mapstructure:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration `mapstructure:"circuit_breaker_timeout"`
}

// Load reads the full configuration used by the API and worker binaries.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTerminal reads the configuration for the terminal binary. Only the
// terminal and observability sections are validated.
func LoadTerminal() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateTerminal(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func read() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables, e.g. POS_TERMINAL_REMOTE_URL
	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pos")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port must be positive"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.Sale.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("sale.lock_ttl must be positive"))
	}
	if c.Worker.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("worker.batch_size must be positive"))
	}

	// Production environment checks
	env := os.Getenv("ENV")
	if env == "production" || env == "prod" {
		if c.Database.Password == "" {
			errs = append(errs, fmt.Errorf("database.password required in production"))
		}
		if c.Auth.JWTSecret == "" {
			errs = append(errs, fmt.Errorf("auth.jwt_secret required in production"))
		}
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least 32 characters"))
	}

	return errors.Join(errs...)
}

func (c *Config) ValidateTerminal() error {
	var errs []error
	t := c.Terminal

	if t.DBPath == "" {
		errs = append(errs, fmt.Errorf("terminal.db_path is required"))
	}
	if t.RemoteURL == "" {
		errs = append(errs, fmt.Errorf("terminal.remote_url is required"))
	}
	if t.PosNumber < 0 {
		errs = append(errs, fmt.Errorf("terminal.pos_number must not be negative"))
	}
	if t.RemoteTimeout < 0 {
		errs = append(errs, fmt.Errorf("terminal.remote_timeout must not be negative"))
	}
	if t.ProbeInterval <= 0 {
		errs = append(errs, fmt.Errorf("terminal.probe_interval must be positive"))
	}
	switch t.TenantPolicy {
	case "session", "queued":
	default:
		errs = append(errs, fmt.Errorf("terminal.tenant_policy must be session or queued, got %q", t.TenantPolicy))
	}
	if c.Observability.LogLevel == "" {
		errs = append(errs, fmt.Errorf("observability.log_level is required"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "pos")
	v.SetDefault("database.database", "pos")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Sale defaults
	v.SetDefault("sale.lock_ttl", "30s")
	v.SetDefault("sale.idempotency_ttl", "72h")

	// Worker defaults
	v.SetDefault("worker.batch_size", 10)
	v.SetDefault("worker.block_duration", "1s")
	v.SetDefault("worker.outbox_poll_interval", "2s")
	v.SetDefault("worker.outbox_batch_size", 50)
	v.SetDefault("worker.consumer_group", "sale-rankers")
	v.SetDefault("worker.stream", "sales:created")
	v.SetDefault("worker.claim_min_idle", "1m")
	v.SetDefault("worker.idempotency_cleanup", "1h")

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", false)

	// Auth defaults
	v.SetDefault("auth.jwt_expiry", "24h")

	// Terminal defaults
	v.SetDefault("terminal.listen_addr", "127.0.0.1:8090")
	v.SetDefault("terminal.db_path", "pending.db")
	v.SetDefault("terminal.remote_url", "http://localhost:8080")
	v.SetDefault("terminal.token", "")
	v.SetDefault("terminal.user_id", "")
	v.SetDefault("terminal.tenant_id", "")
	v.SetDefault("terminal.pos_number", 0)
	v.SetDefault("terminal.tenant_policy", "session")
	v.SetDefault("terminal.remote_timeout", "30s")
	v.SetDefault("terminal.probe_interval", "5s")
	v.SetDefault("terminal.probe_timeout", "3s")
	v.SetDefault("terminal.capture_attempts", 1)
	v.SetDefault("terminal.circuit_breaker_threshold", 5)
	v.SetDefault("terminal.circuit_breaker_timeout", "30s")

	// Instance ID
	v.SetDefault("instance_id", "pos-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// DatabaseURL is the URL form expected by golang-migrate.
func (c *DatabaseConfig) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
