// Package container provides dependency injection and lifecycle management
// for the expense management service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/expense-manager/internal/application/policy"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Session token and password hashing
	Auth AuthConfig

	// Policy evaluation options
	Evaluator policy.Options

	// Receipt storage configuration
	Storage StorageConfig

	// Broker configuration
	AMQP AMQPConfig

	// Server configuration
	Server ServerConfig

	// AsyncTimeout bounds each background event handler run
	AsyncTimeout time.Duration

	// DefaultPassword is assigned to members added without one
	DefaultPassword string
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long SQLite waits on a locked database
	BusyTimeout time.Duration

	// SlowQuery is the threshold above which gorm logs a query
	SlowQuery time.Duration

	// LogQueries logs every statement
	LogQueries bool
}

// AuthConfig holds session settings.
type AuthConfig struct {
	// JWTSecret signs session tokens
	JWTSecret string

	// Issuer is written into every token
	Issuer string

	// TokenTTL is the session lifetime
	TokenTTL time.Duration

	// BcryptCost for password hashes
	BcryptCost int
}

// StorageConfig holds receipt storage settings.
type StorageConfig struct {
	// ReceiptDir is the base directory for receipts
	ReceiptDir string

	// URLPrefix is prepended to stored receipt URLs
	URLPrefix string

	// MaxSize is the largest accepted receipt in bytes
	MaxSize int64

	// MaxPages limits PDF receipts, 0 disables the limit
	MaxPages int
}

// AMQPConfig holds broker settings.
type AMQPConfig struct {
	// Enabled turns event publishing on
	Enabled bool

	URL            string
	Exchange       string
	Queue          string
	PublishTimeout time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration

	// MaxUploadBytes caps multipart receipt uploads
	MaxUploadBytes int64

	// SessionCookie names the cookie carrying the session token
	SessionCookie string

	// SecureCookie marks the session cookie Secure
	SecureCookie bool

	// Version is reported by the health endpoint
	Version string

	// DemoOrganization enables the demo sign-in listing for that slug
	DemoOrganization string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/expenses.db",
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: time.Hour,
			BusyTimeout:     5 * time.Second,
			SlowQuery:       200 * time.Millisecond,
		},
		Auth: AuthConfig{
			Issuer:     "expense-manager",
			TokenTTL:   24 * time.Hour,
			BcryptCost: 10,
		},
		Evaluator: policy.Options{
			Scope:       policy.ScopeOrganization,
			WindowBasis: policy.WindowCreatedAt,
		},
		Storage: StorageConfig{
			ReceiptDir: "uploads",
			URLPrefix:  "/uploads",
			MaxSize:    10 << 20,
			MaxPages:   20,
		},
		AMQP: AMQPConfig{
			Exchange:       "expense.events",
			Queue:          "expense.audit",
			PublishTimeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxUploadBytes: 10 << 20,
			SessionCookie:  "expense_session",
			Version:        "1.0.0",
		},
		AsyncTimeout:    30 * time.Second,
		DefaultPassword: "changeme",
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// Validate session configuration
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}

	if err := c.Evaluator.Validate(); err != nil {
		return fmt.Errorf("evaluator: %w", err)
	}

	// Validate storage configuration
	if c.Storage.ReceiptDir == "" {
		return fmt.Errorf("storage.receipt_dir is required")
	}

	if c.AMQP.Enabled && c.AMQP.URL == "" {
		return fmt.Errorf("amqp.url is required when amqp is enabled")
	}

	return nil
}
