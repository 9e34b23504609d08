package app

import (
	"strings"

	"github.com/insyd/insyd/internal/cache"
	"github.com/insyd/insyd/internal/database"
	"github.com/insyd/insyd/internal/events"
	"github.com/insyd/insyd/pkg/mail"
)

// Conversions from configuration sections to the option structs of the
// packages they configure.

// RedisClientConfig converts the cache section for cache.NewRedisClient.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:  strings.TrimSpace(c.Redis.Address),
		Username: strings.TrimSpace(c.Redis.Username),
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TLS:      c.Redis.TLS,
		Timeout:  c.Redis.Timeout,
	}
}

// SMTPSettings converts the email section for mail.NewSMTPMailer.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.SMTP.Enabled,
		Host:     strings.TrimSpace(c.SMTP.Host),
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     strings.TrimSpace(c.SMTP.From),
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// PublisherConfig converts the Kafka section for events.NewKafkaPublisher.
func (c KafkaConfig) PublisherConfig() events.KafkaConfig {
	return events.KafkaConfig{
		Brokers:      c.Brokers,
		Topic:        strings.TrimSpace(c.Topic),
		WriteTimeout: c.WriteTimeout,
	}
}

// ConnectionConfig resolves the driver name and picks the matching host
// credentials. Unknown drivers pass through so database.Open reports them.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	dbCfg := database.Config{
		Driver:          strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:            strings.TrimSpace(c.Path),
		DSN:             strings.TrimSpace(c.DSN),
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}

	var auth DBAuthConfig
	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
		return dbCfg
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		auth = c.Postgres
	case "mysql", "mariadb":
		dbCfg.Driver = "mysql"
		auth = c.MySQL
	default:
		return dbCfg
	}

	dbCfg.Host = strings.TrimSpace(auth.Host)
	dbCfg.Port = auth.Port
	dbCfg.Name = strings.TrimSpace(auth.Database)
	dbCfg.User = strings.TrimSpace(auth.Username)
	dbCfg.Password = auth.Password
	dbCfg.Options = auth.Options
	return dbCfg
}
