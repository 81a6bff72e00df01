// Package http exposes the expense services as a JSON API.
// Handlers are thin: they decode the request, call one service operation with
// the caller's principal and map the outcome to a response.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-manager/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
	// ReceiptDir is where receipts are stored; they are served under /uploads
	ReceiptDir    string
	SessionCookie string
	SecureCookie  bool
	Version       string
	// DemoOrganization enables GET /api/v1/auth/demo-users for that slug
	DemoOrganization string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxUploadBytes: 10 << 20,
		ReceiptDir:     "data/uploads",
		SessionCookie:  "session",
		Version:        "1.0.0",
	}
}

// Services are the application services the API fronts
type Services struct {
	Auth          service.AuthService
	Expenses      service.ExpenseService
	Catalog       service.CatalogService
	Team          service.TeamService
	Organization  service.OrganizationService
	Notifications service.NotificationService
	Reports       service.ReportService
	Dashboard     service.DashboardService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, logger Logger) *Server {
	router := gin.New()
	router.MaxMultipartMemory = config.MaxUploadBytes

	server := &Server{
		config:   config,
		router:   router,
		services: services,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(loggingMiddleware(s.logger))
	s.router.Use(corsMiddleware())
}

func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.config, s.logger)

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api/v1")
	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout)
	if s.config.DemoOrganization != "" {
		api.GET("/auth/demo-users", h.DemoUsers)
	}

	authed := api.Group("")
	authed.Use(authMiddleware(s.services.Auth, s.config.SessionCookie))
	{
		authed.GET("/auth/me", h.Me)

		authed.GET("/expenses", h.ListExpenses)
		authed.POST("/expenses", h.SubmitExpense)
		authed.GET("/expenses/options", h.SubmissionOptions)
		authed.GET("/expenses/limits", h.ExpenseLimits)
		authed.GET("/expenses/pending", h.ListPendingExpenses)
		authed.GET("/expenses/approved", h.ListApprovedExpenses)
		authed.GET("/expenses/:id", h.GetExpense)
		authed.POST("/expenses/:id/approve", h.ApproveExpense)
		authed.POST("/expenses/:id/reject", h.RejectExpense)
		authed.POST("/expenses/:id/reimburse", h.ReimburseExpense)

		authed.GET("/categories", h.ListCategories)
		authed.POST("/categories", h.CreateCategory)
		authed.DELETE("/categories/:id", h.DeleteCategory)
		authed.GET("/policies", h.ListPolicies)
		authed.POST("/policies", h.CreatePolicy)
		authed.DELETE("/policies/:id", h.DeletePolicy)
		authed.GET("/budgets", h.ListBudgets)
		authed.POST("/budgets", h.CreateBudget)
		authed.DELETE("/budgets/:id", h.DeleteBudget)
		authed.GET("/stores", h.ListStores)
		authed.POST("/stores", h.CreateStore)
		authed.DELETE("/stores/:id", h.DeleteStore)

		authed.GET("/team", h.ListMembers)
		authed.POST("/team", h.AddMember)
		authed.PUT("/team/:id", h.UpdateMember)

		authed.GET("/organization", h.GetOrganization)
		authed.PUT("/organization", h.UpdateOrganization)

		authed.GET("/notifications", h.ListNotifications)
		authed.POST("/notifications/broadcast", h.BroadcastNotification)
		authed.POST("/notifications/:id/read", h.MarkNotificationRead)

		authed.GET("/reports/summary", h.ReportSummary)
		authed.GET("/reports/export", h.ExportReport)
		authed.GET("/dashboard", h.Dashboard)
	}

	uploads := s.router.Group("/uploads")
	uploads.Use(authMiddleware(s.services.Auth, s.config.SessionCookie))
	uploads.GET("/:org/:name", h.ServeReceipt)
}

// Start starts the HTTP server and blocks until ctx is done or serving fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}
	s.httpServer = nil

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
