package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, []string{"https://insyd.example.com", "https://admin.insyd.example.com"}, cfg.Server.CORS.AllowedOrigins)
	require.True(t, cfg.Server.RateLimit.Enabled)
	require.Equal(t, 30, cfg.Server.RateLimit.Requests)
	require.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)
	require.Equal(t, "require", cfg.Database.Postgres.Options["sslmode"])

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "redis.example.com:6380", cfg.Cache.Redis.Address)
	require.Equal(t, 2*time.Second, cfg.Cache.Redis.Timeout)

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, "smtp-user", cfg.Email.SMTP.Username)
	require.Equal(t, "smtp-pass", cfg.Email.SMTP.Password)
	require.Equal(t, "no-reply@example.com", cfg.Email.SMTP.From)
	require.True(t, cfg.Email.SMTP.UseTLS)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)
	require.Equal(t, "redis", cfg.Email.Queue.Driver)
	require.Equal(t, 8, cfg.Email.Queue.Workers)
	require.Equal(t, 256, cfg.Email.Queue.Buffer)

	require.Equal(t, "broadcast", cfg.Notifications.Audience)
	require.Equal(t, "reject", cfg.Notifications.LikePolicy)
	require.True(t, cfg.Notifications.NotifyOnDelete)
	require.Equal(t, 20, cfg.Notifications.InboxLimit)
	require.Equal(t, 168*time.Hour, cfg.Notifications.Retention)

	require.True(t, cfg.Events.Kafka.Enabled)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.Kafka.Brokers)
	require.Equal(t, "insyd.activity.v1", cfg.Events.Kafka.Topic)

	require.Equal(t, "https://insyd.example.com", cfg.App.PublicURL)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "followers", cfg.Notifications.Audience)
	require.Equal(t, "toggle", cfg.Notifications.LikePolicy)
	require.False(t, cfg.Notifications.NotifyOnDelete)
	require.Equal(t, "memory", cfg.Email.Queue.Driver)
	require.Equal(t, 4, cfg.Email.Queue.Workers)
	require.False(t, cfg.Events.Kafka.Enabled)
	require.Equal(t, 720*time.Hour, cfg.Notifications.Retention)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("INSYD_NOTIFICATIONS_LIKE_POLICY", "reject")
	t.Setenv("INSYD_SERVER_PORT", "7070")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "reject", cfg.Notifications.LikePolicy)
	require.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadConfigRejectsUnknownPolicy(t *testing.T) {
	t.Setenv("INSYD_NOTIFICATIONS_AUDIENCE", "everyone")

	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "notifications.audience")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Config{
		Notifications: NotificationConfig{Audience: "all", LikePolicy: "sometimes"},
		Email:         EmailConfig{Queue: EmailQueueConfig{Driver: "redis"}},
		Events:        EventsConfig{Kafka: KafkaConfig{Enabled: true}},
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, fragment := range []string{
		"notifications.audience",
		"notifications.like_policy",
		"cache.redis.enabled",
		"events.kafka.brokers",
		"events.kafka.topic",
	} {
		require.Contains(t, err.Error(), fragment)
	}
}

func TestAdapters(t *testing.T) {
	cfg := Config{
		Cache: CacheConfig{Redis: RedisCacheConfig{Address: " redis:6379 ", Username: " app ", Timeout: time.Second}},
		Email: EmailConfig{SMTP: SMTPConfig{Enabled: true, Host: " smtp.example.com ", Port: 587, From: "a@example.com"}},
	}

	redisCfg := cfg.Cache.RedisClientConfig()
	require.Equal(t, "redis:6379", redisCfg.Address)
	require.Equal(t, "app", redisCfg.Username)
	require.Equal(t, time.Second, redisCfg.Timeout)

	smtp := cfg.Email.SMTPSettings()
	require.True(t, smtp.Enabled)
	require.Equal(t, "smtp.example.com", smtp.Host)
	require.Equal(t, 587, smtp.Port)
}

func TestKafkaPublisherConfig(t *testing.T) {
	cfg := KafkaConfig{Brokers: []string{"k1:9092"}, Topic: " insyd.activity ", WriteTimeout: 3 * time.Second}

	pub := cfg.PublisherConfig()
	require.Equal(t, []string{"k1:9092"}, pub.Brokers)
	require.Equal(t, "insyd.activity", pub.Topic)
	require.Equal(t, 3*time.Second, pub.WriteTimeout)
}

func TestDatabaseConnectionConfig(t *testing.T) {
	cfg := DatabaseConfig{
		Driver:       " PostgreSQL ",
		MaxOpenConns: 8,
		Postgres: DBAuthConfig{
			Host:     "db.internal",
			Port:     5432,
			Database: "insyd",
			Username: "insyd",
			Password: "secret",
			Options:  map[string]string{"sslmode": "disable"},
		},
	}

	dbCfg := cfg.ConnectionConfig()
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, "db.internal", dbCfg.Host)
	require.Equal(t, 5432, dbCfg.Port)
	require.Equal(t, "insyd", dbCfg.Name)
	require.Equal(t, "insyd", dbCfg.User)
	require.Equal(t, "secret", dbCfg.Password)
	require.Equal(t, "disable", dbCfg.Options["sslmode"])
	require.Equal(t, 8, dbCfg.MaxOpenConns)

	cfg.Driver = ""
	require.Equal(t, "sqlite", cfg.ConnectionConfig().Driver)

	cfg.Driver = "MariaDB"
	cfg.MySQL = DBAuthConfig{Host: "mysql", Port: 3306, Database: "insyd", Username: "root"}
	mysqlCfg := cfg.ConnectionConfig()
	require.Equal(t, "mysql", mysqlCfg.Driver)
	require.Equal(t, "mysql", mysqlCfg.Host)
	require.Equal(t, 3306, mysqlCfg.Port)

	cfg.Driver = "oracle"
	require.Equal(t, "oracle", cfg.ConnectionConfig().Driver)
}
