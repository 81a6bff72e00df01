package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-manager/internal/application/policy"
	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/application/service"
	"github.com/garyjia/expense-manager/internal/domain/authz"
	"github.com/garyjia/expense-manager/internal/domain/workflow"
)

// ErrorResponse carries a rejection code next to the message when a policy
// refused the request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	var rejection *policy.RejectionError
	var validation *service.ValidationError

	switch {
	case errors.As(err, &rejection):
		return http.StatusUnprocessableEntity
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, authz.ErrUnauthenticated), errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, authz.ErrDenied):
		return http.StatusForbidden
	case errors.Is(err, port.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, port.ErrConflict), errors.Is(err, workflow.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes the error response; internal failures are logged and
// their details hidden from the client
func (h *Handlers) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Success: false, Error: err.Error()}

	var rejection *policy.RejectionError
	var validation *service.ValidationError
	switch {
	case errors.As(err, &rejection):
		resp.Code = string(rejection.Code)
		resp.Error = rejection.Message
	case errors.As(err, &validation):
		resp.Field = validation.Field
	case status == http.StatusNotFound:
		resp.Error = "not found"
	case status == http.StatusForbidden:
		resp.Error = "permission denied"
	case status == http.StatusUnauthorized && errors.Is(err, authz.ErrUnauthenticated):
		resp.Error = "authentication required"
	case status == http.StatusInternalServerError:
		h.logger.Error("Request failed", "error", err, "method", c.Request.Method, "path", c.FullPath())
		resp.Error = "internal server error"
	}

	c.AbortWithStatusJSON(status, resp)
}
