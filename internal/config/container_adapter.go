package config

import (
	"github.com/garyjia/expense-manager/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// Validate must have passed, so the evaluator options are known to parse.
func (c *Config) ToContainerConfig(version string) *container.Config {
	opts, _ := c.Evaluator.Options()

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
			SlowQuery:       c.Database.SlowQuery,
			LogQueries:      c.Database.LogQueries,
		},
		Auth: container.AuthConfig{
			JWTSecret:  c.Auth.JWTSecret,
			Issuer:     c.Auth.Issuer,
			TokenTTL:   c.Auth.TokenTTL,
			BcryptCost: c.Auth.BcryptCost,
		},
		Evaluator: opts,
		Storage: container.StorageConfig{
			ReceiptDir: c.Storage.ReceiptDir,
			URLPrefix:  c.Storage.URLPrefix,
			MaxSize:    c.Storage.MaxSize,
			MaxPages:   c.Storage.MaxPages,
		},
		AMQP: container.AMQPConfig{
			Enabled:        c.AMQP.Enabled,
			URL:            c.AMQP.URL,
			Exchange:       c.AMQP.Exchange,
			Queue:          c.AMQP.Queue,
			PublishTimeout: c.AMQP.PublishTimeout,
		},
		Server: container.ServerConfig{
			Host:             c.Server.Host,
			Port:             c.Server.Port,
			ReadTimeout:      c.Server.ReadTimeout,
			WriteTimeout:     c.Server.WriteTimeout,
			MaxUploadBytes:   c.Server.MaxUploadBytes,
			SessionCookie:    c.Server.SessionCookie,
			SecureCookie:     c.Server.SecureCookie,
			Version:          version,
			DemoOrganization: c.Server.DemoOrganization,
		},
		AsyncTimeout:    c.Events.AsyncTimeout,
		DefaultPassword: c.Team.DefaultPassword,
	}
}
