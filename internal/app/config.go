package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// Config represents the runtime configuration for the Insyd backend.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Cache         CacheConfig        `mapstructure:"cache"`
	Email         EmailConfig        `mapstructure:"email"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Events        EventsConfig       `mapstructure:"events"`
	Monitoring    MonitoringConfig   `mapstructure:"monitoring"`
}

// AppConfig holds product level settings used in outbound content.
type AppConfig struct {
	Name      string `mapstructure:"name"`
	PublicURL string `mapstructure:"public_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int             `mapstructure:"port"`
	LogLevel  string          `mapstructure:"log_level"`
	LogFormat string          `mapstructure:"log_format"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig bounds requests per client IP.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	Postgres        DBAuthConfig  `mapstructure:"postgres"`
	MySQL           DBAuthConfig  `mapstructure:"mysql"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Database string            `mapstructure:"database"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	Options  map[string]string `mapstructure:"options"`
}

// CacheConfig describes cache backends.
type CacheConfig struct {
	Redis RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TLS      bool          `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	SMTP  SMTPConfig       `mapstructure:"smtp"`
	Queue EmailQueueConfig `mapstructure:"queue"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// EmailQueueConfig controls how queued email is buffered and delivered.
type EmailQueueConfig struct {
	Driver   string `mapstructure:"driver"`
	Workers  int    `mapstructure:"workers"`
	Buffer   int    `mapstructure:"buffer"`
	RedisKey string `mapstructure:"redis_key"`
}

// NotificationConfig selects fan-out policies and inbox housekeeping.
type NotificationConfig struct {
	Audience          string        `mapstructure:"audience"`
	LikePolicy        string        `mapstructure:"like_policy"`
	NotifyOnDelete    bool          `mapstructure:"notify_on_delete"`
	InboxLimit        int           `mapstructure:"inbox_limit"`
	Retention         time.Duration `mapstructure:"retention"`
	PruneSchedule     string        `mapstructure:"prune_schedule"`
	KeepaliveSchedule string        `mapstructure:"keepalive_schedule"`
}

// EventsConfig configures the activity event stream.
type EventsConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// KafkaConfig holds Kafka producer options.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
// Values from a local .env file are exported first so they participate in env overrides.
func LoadConfig(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("INSYD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &config, nil
}

// Validate reports every invalid policy or backend selection at once.
func (c *Config) Validate() error {
	var errs error

	switch c.Notifications.Audience {
	case "followers", "broadcast":
	default:
		errs = multierr.Append(errs, fmt.Errorf("notifications.audience must be followers or broadcast, got %q", c.Notifications.Audience))
	}

	switch c.Notifications.LikePolicy {
	case "toggle", "reject":
	default:
		errs = multierr.Append(errs, fmt.Errorf("notifications.like_policy must be toggle or reject, got %q", c.Notifications.LikePolicy))
	}

	switch c.Email.Queue.Driver {
	case "memory":
	case "redis":
		if !c.Cache.Redis.Enabled {
			errs = multierr.Append(errs, errors.New("email.queue.driver redis requires cache.redis.enabled"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("email.queue.driver must be memory or redis, got %q", c.Email.Queue.Driver))
	}

	switch c.Server.LogFormat {
	case "", "json", "console":
	default:
		errs = multierr.Append(errs, fmt.Errorf("server.log_format must be json or console, got %q", c.Server.LogFormat))
	}

	if c.Events.Kafka.Enabled {
		if len(c.Events.Kafka.Brokers) == 0 {
			errs = multierr.Append(errs, errors.New("events.kafka.brokers is required when kafka is enabled"))
		}
		if strings.TrimSpace(c.Events.Kafka.Topic) == "" {
			errs = multierr.Append(errs, errors.New("events.kafka.topic is required when kafka is enabled"))
		}
	}

	return errs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Insyd")
	v.SetDefault("app.public_url", "http://localhost:3000")

	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit.enabled", false)
	v.SetDefault("server.rate_limit.requests", 120)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/insyd.sqlite")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.max_idle_conns", 0)
	v.SetDefault("database.conn_max_lifetime", "0s")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")

	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.username", "")
	v.SetDefault("email.smtp.password", "")
	v.SetDefault("email.smtp.from", "")
	v.SetDefault("email.smtp.use_tls", false)
	v.SetDefault("email.smtp.timeout", "10s")
	v.SetDefault("email.queue.driver", "memory")
	v.SetDefault("email.queue.workers", 4)
	v.SetDefault("email.queue.buffer", 256)
	v.SetDefault("email.queue.redis_key", "insyd:email:queue")

	v.SetDefault("notifications.audience", "followers")
	v.SetDefault("notifications.like_policy", "toggle")
	v.SetDefault("notifications.notify_on_delete", false)
	v.SetDefault("notifications.inbox_limit", 20)
	v.SetDefault("notifications.retention", "720h") // 30 days
	v.SetDefault("notifications.prune_schedule", "@daily")
	v.SetDefault("notifications.keepalive_schedule", "@every 5m")

	v.SetDefault("events.kafka.enabled", false)
	v.SetDefault("events.kafka.brokers", []string{})
	v.SetDefault("events.kafka.topic", "insyd.activity")
	v.SetDefault("events.kafka.write_timeout", "5s")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
