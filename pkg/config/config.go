// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Finder, Postgres, Kafka, Redis, RateLimit, etc.).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	RPC       RPCConfig       `yaml:"rpc"`
	Finder    FinderConfig    `yaml:"finder"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
}

// RPCConfig controls the JSON-over-TCP find endpoint.
type RPCConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// FinderConfig controls grid limits, the default strategy and the shared
// worker pool.
type FinderConfig struct {
	MaxDimension int           `yaml:"maxDimension"`
	Strategy     string        `yaml:"strategy"`
	Workers      int           `yaml:"workers"`
	FindTimeout  time.Duration `yaml:"findTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	FindEvents string `yaml:"findEvents"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// RateLimitConfig controls per-client request limits on the find endpoint.
// Backend is "redis" or "memory".
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Backend  string        `yaml:"backend"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// AnalyticsConfig controls find-event collection and snapshotting.
type AnalyticsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	BufferSize       int           `yaml:"bufferSize"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
	TopWords         int           `yaml:"topWords"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values. The result is not validated; call Validate.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be positive, got %d", c.Server.Port))
	}
	if c.RPC.Enabled && (c.RPC.Port <= 0 || c.RPC.Port == c.Server.Port) {
		errs = append(errs, fmt.Errorf("rpc.port must be positive and differ from server.port, got %d", c.RPC.Port))
	}
	if c.Finder.MaxDimension <= 0 {
		errs = append(errs, fmt.Errorf("finder.maxDimension must be positive, got %d", c.Finder.MaxDimension))
	}
	if c.Finder.Workers <= 0 {
		errs = append(errs, fmt.Errorf("finder.workers must be positive, got %d", c.Finder.Workers))
	}
	if c.Finder.FindTimeout < 0 {
		errs = append(errs, fmt.Errorf("finder.findTimeout must not be negative, got %v", c.Finder.FindTimeout))
	}
	switch strings.ToLower(strings.TrimSpace(c.Finder.Strategy)) {
	case "recursive", "sequential", "secuential", "range", "index":
	default:
		errs = append(errs, fmt.Errorf("finder.strategy %q is not one of recursive, range, index", c.Finder.Strategy))
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Requests <= 0 {
			errs = append(errs, fmt.Errorf("rateLimit.requests must be positive, got %d", c.RateLimit.Requests))
		}
		if c.RateLimit.Window <= 0 {
			errs = append(errs, fmt.Errorf("rateLimit.window must be positive, got %v", c.RateLimit.Window))
		}
		if c.RateLimit.Backend != "redis" && c.RateLimit.Backend != "memory" {
			errs = append(errs, fmt.Errorf("rateLimit.backend %q is not one of redis, memory", c.RateLimit.Backend))
		}
	}
	if c.Analytics.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("analytics requires at least one kafka broker"))
	}
	return errors.Join(errs...)
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		RPC: RPCConfig{
			Enabled: false,
			Port:    9000,
		},
		Finder: FinderConfig{
			MaxDimension: 64,
			Strategy:     "range",
			Workers:      4,
			FindTimeout:  5 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "wordfinder",
			User:            "wordfinder",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "wordfinder-analytics",
			Topics: KafkaTopics{
				FindEvents: "find-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Backend:  "memory",
			Requests: 60,
			Window:   time.Minute,
		},
		Analytics: AnalyticsConfig{
			Enabled:          false,
			BufferSize:       10000,
			SnapshotInterval: time.Minute,
			TopWords:         10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads WF_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt("WF_SERVER_PORT", &cfg.Server.Port)
	setBool("WF_RPC_ENABLED", &cfg.RPC.Enabled)
	setInt("WF_RPC_PORT", &cfg.RPC.Port)
	setInt("WF_FINDER_MAX_DIMENSION", &cfg.Finder.MaxDimension)
	setString("WF_FINDER_STRATEGY", &cfg.Finder.Strategy)
	setInt("WF_FINDER_WORKERS", &cfg.Finder.Workers)
	setDuration("WF_FINDER_TIMEOUT", &cfg.Finder.FindTimeout)

	setString("WF_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("WF_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("WF_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("WF_POSTGRES_USER", &cfg.Postgres.User)
	setString("WF_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("WF_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)

	if v := os.Getenv("WF_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	setString("WF_KAFKA_TOPIC_FIND_EVENTS", &cfg.Kafka.Topics.FindEvents)

	setString("WF_REDIS_ADDR", &cfg.Redis.Addr)
	setString("WF_REDIS_PASSWORD", &cfg.Redis.Password)

	setBool("WF_RATELIMIT_ENABLED", &cfg.RateLimit.Enabled)
	setString("WF_RATELIMIT_BACKEND", &cfg.RateLimit.Backend)
	setInt("WF_RATELIMIT_REQUESTS", &cfg.RateLimit.Requests)
	setDuration("WF_RATELIMIT_WINDOW", &cfg.RateLimit.Window)

	setBool("WF_ANALYTICS_ENABLED", &cfg.Analytics.Enabled)

	setString("WF_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("WF_LOGGING_FORMAT", &cfg.Logging.Format)

	setBool("WF_METRICS_ENABLED", &cfg.Metrics.Enabled)
	setInt("WF_METRICS_PORT", &cfg.Metrics.Port)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
