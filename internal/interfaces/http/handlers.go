package http

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-manager/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	config   ServerConfig
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, config ServerConfig, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		config:   config,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{Success: false, Error: message})
}

// queryInt reads a positive integer query parameter, returning def when unset
// or malformed
func queryInt(c *gin.Context, name string, def int) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	ok(c, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.config.Version,
	})
}

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}

	result, err := h.services.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if h.config.SessionCookie != "" {
		maxAge := int(time.Until(result.ExpiresAt).Seconds())
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.config.SessionCookie, result.Token, maxAge, "/", "", h.config.SecureCookie, true)
	}

	ok(c, http.StatusOK, result)
}

// Logout handles POST /api/v1/auth/logout
func (h *Handlers) Logout(c *gin.Context) {
	if h.config.SessionCookie != "" {
		c.SetCookie(h.config.SessionCookie, "", -1, "/", "", h.config.SecureCookie, true)
	}
	ok(c, http.StatusOK, nil)
}

// DemoUsers handles GET /api/v1/auth/demo-users
func (h *Handlers) DemoUsers(c *gin.Context) {
	accounts, err := h.services.Auth.DemoAccounts(c.Request.Context(), h.config.DemoOrganization)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, accounts)
}

// Me handles GET /api/v1/auth/me
func (h *Handlers) Me(c *gin.Context) {
	profile, err := h.services.Auth.Me(c.Request.Context(), principal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, profile)
}

// ServeReceipt handles GET /uploads/:org/:name. Receipts are only served to
// members of the owning organization.
func (h *Handlers) ServeReceipt(c *gin.Context) {
	p := principal(c)
	org := c.Param("org")
	if org != utils.SanitizeFilename(p.OrganizationID()) {
		c.AbortWithStatusJSON(http.StatusNotFound, Response{Success: false, Error: "not found"})
		return
	}

	name := utils.SanitizeFilename(c.Param("name"))
	fullPath := filepath.Join(h.config.ReceiptDir, org, name)
	if info, err := os.Stat(fullPath); err != nil || info.IsDir() {
		c.AbortWithStatusJSON(http.StatusNotFound, Response{Success: false, Error: "not found"})
		return
	}

	c.File(fullPath)
}

// SubmissionOptions handles GET /api/v1/expenses/options
func (h *Handlers) SubmissionOptions(c *gin.Context) {
	opts, err := h.services.Catalog.SubmissionOptions(c.Request.Context(), principal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, opts)
}
