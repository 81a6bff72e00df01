package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-manager/internal/application/service"
)

// BroadcastBody is the body of POST /notifications/broadcast
type BroadcastBody struct {
	Message string `json:"message"`
}

// ListMembers handles GET /api/v1/team
func (h *Handlers) ListMembers(c *gin.Context) {
	members, err := h.services.Team.ListMembers(c.Request.Context(), principal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, members)
}

// AddMember handles POST /api/v1/team
func (h *Handlers) AddMember(c *gin.Context) {
	var req service.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid member body")
		return
	}

	user, err := h.services.Team.AddMember(c.Request.Context(), principal(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, user)
}

// UpdateMember handles PUT /api/v1/team/:id
func (h *Handlers) UpdateMember(c *gin.Context) {
	var req service.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid member body")
		return
	}

	user, err := h.services.Team.UpdateMember(c.Request.Context(), principal(c), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, user)
}

// GetOrganization handles GET /api/v1/organization
func (h *Handlers) GetOrganization(c *gin.Context) {
	org, err := h.services.Organization.Get(c.Request.Context(), principal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, org)
}

// UpdateOrganization handles PUT /api/v1/organization
func (h *Handlers) UpdateOrganization(c *gin.Context) {
	var req service.UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid settings body")
		return
	}

	org, err := h.services.Organization.UpdateSettings(c.Request.Context(), principal(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, org)
}

// ListNotifications handles GET /api/v1/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	list, err := h.services.Notifications.List(c.Request.Context(), principal(c), queryInt(c, "limit", 50))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}

// BroadcastNotification handles POST /api/v1/notifications/broadcast
func (h *Handlers) BroadcastNotification(c *gin.Context) {
	var body BroadcastBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid broadcast body")
		return
	}

	count, err := h.services.Notifications.Broadcast(c.Request.Context(), principal(c), body.Message)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"recipients": count})
}

// MarkNotificationRead handles POST /api/v1/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	if err := h.services.Notifications.MarkRead(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, nil)
}
