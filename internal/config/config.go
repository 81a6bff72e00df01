package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/expense-manager/internal/application/policy"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Evaluator EvaluatorConfig `mapstructure:"evaluator"`
	Storage   StorageConfig   `mapstructure:"storage"`
	AMQP      AMQPConfig      `mapstructure:"amqp"`
	Events    EventsConfig    `mapstructure:"events"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Team      TeamConfig      `mapstructure:"team"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	SessionCookie  string        `mapstructure:"session_cookie"`
	SecureCookie   bool          `mapstructure:"secure_cookie"`
	// DemoOrganization is the slug whose seeded sign-ins the login page may list
	DemoOrganization string `mapstructure:"demo_organization"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
	SlowQuery       time.Duration `mapstructure:"slow_query"`
	LogQueries      bool          `mapstructure:"log_queries"`
}

// AuthConfig holds session token and password settings
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	Issuer     string        `mapstructure:"issuer"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

// EvaluatorConfig holds policy evaluation options
type EvaluatorConfig struct {
	Scope           string `mapstructure:"scope"`
	ExcludeRejected bool   `mapstructure:"exclude_rejected"`
	WindowBasis     string `mapstructure:"window_basis"`
	Timezone        string `mapstructure:"timezone"` // empty means server local time
}

// StorageConfig holds receipt storage configuration
type StorageConfig struct {
	ReceiptDir string `mapstructure:"receipt_dir"`
	URLPrefix  string `mapstructure:"url_prefix"`
	MaxSize    int64  `mapstructure:"max_size"`
	MaxPages   int    `mapstructure:"max_pages"`
}

// AMQPConfig holds broker configuration
type AMQPConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	URL            string        `mapstructure:"url"`
	Exchange       string        `mapstructure:"exchange"`
	Queue          string        `mapstructure:"queue"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// EventsConfig holds in-process dispatcher configuration
type EventsConfig struct {
	AsyncTimeout time.Duration `mapstructure:"async_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// TeamConfig holds member management defaults
type TeamConfig struct {
	DefaultPassword string `mapstructure:"default_password"`
}

// Load loads configuration from file and environment variables. A .env file
// in the working directory is applied first; variables already set win.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.max_upload_bytes", 10<<20)
	v.SetDefault("server.session_cookie", "expense_session")
	v.SetDefault("server.secure_cookie", false)
	v.SetDefault("server.demo_organization", "")

	// Database defaults
	v.SetDefault("database.path", "data/expenses.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.busy_timeout", 5*time.Second)
	v.SetDefault("database.slow_query", 200*time.Millisecond)
	v.SetDefault("database.log_queries", false)

	// Auth defaults
	v.SetDefault("auth.issuer", "expense-manager")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 10)

	// Evaluator defaults
	v.SetDefault("evaluator.scope", string(policy.ScopeOrganization))
	v.SetDefault("evaluator.exclude_rejected", false)
	v.SetDefault("evaluator.window_basis", string(policy.WindowCreatedAt))
	v.SetDefault("evaluator.timezone", "")

	// Storage defaults
	v.SetDefault("storage.receipt_dir", "uploads")
	v.SetDefault("storage.url_prefix", "/uploads")
	v.SetDefault("storage.max_size", 10<<20)
	v.SetDefault("storage.max_pages", 20)

	// AMQP defaults
	v.SetDefault("amqp.enabled", false)
	v.SetDefault("amqp.exchange", "expense.events")
	v.SetDefault("amqp.queue", "expense.audit")
	v.SetDefault("amqp.publish_timeout", 5*time.Second)

	v.SetDefault("events.async_timeout", 30*time.Second)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("team.default_password", "changeme")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"auth.jwt_secret": "EXPENSE_JWT_SECRET",
		"amqp.url":        "EXPENSE_AMQP_URL",
		"database.path":   "EXPENSE_DB_PATH",
		"server.port":     "EXPENSE_PORT",
		"logger.level":    "EXPENSE_LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// Validate session secret
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}

	if _, err := c.Evaluator.Options(); err != nil {
		return fmt.Errorf("evaluator: %w", err)
	}

	if c.Storage.ReceiptDir == "" {
		return fmt.Errorf("storage.receipt_dir is required")
	}

	if c.AMQP.Enabled && c.AMQP.URL == "" {
		return fmt.Errorf("amqp.url is required when amqp is enabled")
	}

	if len(c.Team.DefaultPassword) < 6 {
		return fmt.Errorf("team.default_password must be at least 6 characters")
	}

	return nil
}

// Options converts the evaluator section into policy options
func (e EvaluatorConfig) Options() (policy.Options, error) {
	opts := policy.Options{
		Scope:           policy.Scope(e.Scope),
		ExcludeRejected: e.ExcludeRejected,
		WindowBasis:     policy.WindowBasis(e.WindowBasis),
	}
	if e.Timezone != "" {
		loc, err := time.LoadLocation(e.Timezone)
		if err != nil {
			return opts, fmt.Errorf("unknown timezone %q", e.Timezone)
		}
		opts.Location = loc
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}
