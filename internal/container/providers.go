package container

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/garyjia/expense-manager/internal/application/dispatcher"
	"github.com/garyjia/expense-manager/internal/application/policy"
	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/application/service"
	"github.com/garyjia/expense-manager/internal/infrastructure/export"
	"github.com/garyjia/expense-manager/internal/infrastructure/lock"
	"github.com/garyjia/expense-manager/internal/infrastructure/messaging/amqp"
	"github.com/garyjia/expense-manager/internal/infrastructure/persistence/repository"
	"github.com/garyjia/expense-manager/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-manager/internal/infrastructure/security"
	"github.com/garyjia/expense-manager/internal/infrastructure/storage"
	httpapi "github.com/garyjia/expense-manager/internal/interfaces/http"
	"github.com/garyjia/expense-manager/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Gorm           *gorm.DB
	TransactionMgr *sqlite.DB
}

// SecurityBundle holds session and password components.
type SecurityBundle struct {
	Hasher port.PasswordHasher
	Tokens port.TokenIssuer
}

// ProvideDatabase applies pending migrations, opens the connection pool and
// wraps it in the transaction manager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	dbCfg := database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
		SlowQuery:       cfg.SlowQuery,
		LogQueries:      cfg.LogQueries,
	}

	gormDB, err := database.Open(dbCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.RunMigrations(dbCfg, logger); err != nil {
		database.Close(gormDB)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Gorm:           gormDB,
		TransactionMgr: sqlite.NewDB(gormDB, logger),
	}, nil
}

// ProvideRepositories creates all repositories on top of the transaction manager.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Organization: repository.NewOrganizationRepository(db, logger),
		User:         repository.NewUserRepository(db, logger),
		Category:     repository.NewCategoryRepository(db, logger),
		Store:        repository.NewStoreRepository(db, logger),
		Policy:       repository.NewPolicyRepository(db, logger),
		Budget:       repository.NewBudgetRepository(db, logger),
		Expense:      repository.NewExpenseRepository(db, logger),
		Notification: repository.NewNotificationRepository(db, logger),
		AuditLog:     repository.NewAuditLogRepository(db, logger),
	}, nil
}

// ProvideSecurity creates the password hasher and session token issuer.
func ProvideSecurity(cfg *AuthConfig) (*SecurityBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth config is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	return &SecurityBundle{
		Hasher: security.NewBcryptHasher(cfg.BcryptCost),
		Tokens: security.NewJWTIssuer(cfg.JWTSecret, cfg.Issuer, cfg.TokenTTL),
	}, nil
}

// ProvideReceiptStorage creates the receipt directory and the local store.
func ProvideReceiptStorage(cfg *StorageConfig, logger *zap.Logger) (port.ReceiptStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := os.MkdirAll(cfg.ReceiptDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create receipt directory: %w", err)
	}

	inspector := storage.NewInspector(storage.DefaultReceiptTypes, cfg.MaxPages, logger)
	return storage.NewLocalReceiptStorage(cfg.ReceiptDir, cfg.URLPrefix, cfg.MaxSize, inspector, logger), nil
}

// ProvidePublisher dials the broker when enabled, otherwise returns a
// publisher that drops events.
func ProvidePublisher(cfg *AMQPConfig, logger *zap.Logger) (port.EventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("amqp config is required")
	}
	if !cfg.Enabled {
		logger.Info("AMQP publishing disabled")
		return amqp.NoopPublisher{}, nil
	}

	publisher, err := amqp.NewPublisher(amqp.Config{
		URL:            cfg.URL,
		Exchange:       cfg.Exchange,
		Queue:          cfg.Queue,
		PublishTimeout: cfg.PublishTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	return publisher, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(cfg *Config, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []dispatcher.Option{
		dispatcher.WithLogger(&dispatcherLoggerAdapter{logger: logger}),
	}
	if cfg != nil && cfg.AsyncTimeout > 0 {
		opts = append(opts, dispatcher.WithAsyncTimeout(cfg.AsyncTimeout))
	}
	return dispatcher.NewDispatcher(opts...), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Config     *Config
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Security   *SecurityBundle
	Receipts   port.ReceiptStorage
	Publisher  port.EventPublisher
	Dispatcher dispatcher.Dispatcher
	Clock      port.Clock
	Logger     *zap.Logger
}

// ProvideServices creates all application services and subscribes the
// notification and broker handlers to the dispatcher.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Security == nil {
		return nil, fmt.Errorf("security components are required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = port.SystemClock{}
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = amqp.NoopPublisher{}
	}

	// Create logger adapter for services
	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}
	repos := deps.Repos
	loc := deps.Config.Evaluator.Location
	if loc == nil {
		loc = time.Local
	}

	evaluator := policy.NewEvaluator(repos.Policy, repos.Budget, repos.Expense, clock, deps.Config.Evaluator)

	notifications := service.NewNotificationService(repos.Notification, repos.User, deps.Dispatcher, clock, serviceLogger)

	bundle := &ServiceBundle{
		Evaluator: evaluator,
		Auth: service.NewAuthService(
			repos.User,
			repos.Organization,
			deps.Security.Hasher,
			deps.Security.Tokens,
			serviceLogger,
		),
		Expense: service.NewExpenseService(service.ExpenseDeps{
			Expenses:      repos.Expense,
			Categories:    repos.Category,
			Stores:        repos.Store,
			Organizations: repos.Organization,
			AuditLogs:     repos.AuditLog,
			Receipts:      deps.Receipts,
			Evaluator:     evaluator,
			Locker:        lock.NewKeyedLocker(),
			TxManager:     deps.TxManager,
			Dispatcher:    deps.Dispatcher,
			Clock:         clock,
		}, serviceLogger),
		Catalog: service.NewCatalogService(
			repos.Category,
			repos.Policy,
			repos.Budget,
			repos.Store,
			clock,
			serviceLogger,
		),
		Team: service.NewTeamService(
			repos.User,
			repos.AuditLog,
			deps.Security.Hasher,
			deps.TxManager,
			clock,
			deps.Config.DefaultPassword,
			serviceLogger,
		),
		Organization: service.NewOrganizationService(
			repos.Organization,
			repos.AuditLog,
			deps.TxManager,
			clock,
			serviceLogger,
		),
		Notification: notifications,
		Report: service.NewReportService(
			repos.Expense,
			[]port.ReportWriter{export.CSVWriter{}, export.XLSXWriter{}},
			loc,
			serviceLogger,
		),
		Dashboard: service.NewDashboardService(
			repos.Expense,
			repos.Notification,
			clock,
			loc,
			serviceLogger,
		),
	}

	service.RegisterEventHandlers(deps.Dispatcher, notifications, publisher)

	return bundle, nil
}

// ProvideServer creates the HTTP server over the service bundle.
func ProvideServer(cfg *Config, services *ServiceBundle, logger *zap.Logger) (*httpapi.Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if services == nil {
		return nil, fmt.Errorf("services are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serverCfg := httpapi.DefaultServerConfig()
	serverCfg.Host = cfg.Server.Host
	serverCfg.Port = cfg.Server.Port
	if cfg.Server.ReadTimeout > 0 {
		serverCfg.ReadTimeout = cfg.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout > 0 {
		serverCfg.WriteTimeout = cfg.Server.WriteTimeout
	}
	if cfg.Server.MaxUploadBytes > 0 {
		serverCfg.MaxUploadBytes = cfg.Server.MaxUploadBytes
	}
	if cfg.Server.SessionCookie != "" {
		serverCfg.SessionCookie = cfg.Server.SessionCookie
	}
	if cfg.Server.Version != "" {
		serverCfg.Version = cfg.Server.Version
	}
	serverCfg.SecureCookie = cfg.Server.SecureCookie
	serverCfg.DemoOrganization = cfg.Server.DemoOrganization
	serverCfg.ReceiptDir = cfg.Storage.ReceiptDir

	return httpapi.NewServer(serverCfg, httpapi.Services{
		Auth:          services.Auth,
		Expenses:      services.Expense,
		Catalog:       services.Catalog,
		Team:          services.Team,
		Organization:  services.Organization,
		Notifications: services.Notification,
		Reports:       services.Report,
		Dashboard:     services.Dashboard,
	}, &zapLoggerAdapter{logger: logger}), nil
}
