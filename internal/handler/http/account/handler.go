package account

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pbxconnect-backend/internal/service/notify"
	"pbxconnect-backend/internal/service/sipaccount"
	"pbxconnect-backend/pkg/response"
)

// Handler exposes SIP account and notification endpoints
type Handler struct {
	accountService *sipaccount.Service
	notifyService  *notify.Service
}

// NewHandler creates a new account handler
func NewHandler(accountService *sipaccount.Service, notifyService *notify.Service) *Handler {
	return &Handler{
		accountService: accountService,
		notifyService:  notifyService,
	}
}

// RegisterRoutes registers account routes on the authenticated group
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/config", h.GetClientConfig)
	r.GET("/account", h.GetAccount)

	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.ListNotifications)
		notifications.POST("/:id/read", h.MarkNotificationRead)
	}
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	val, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "Authentication required")
		return uuid.Nil, false
	}
	userID, ok := val.(uuid.UUID)
	if !ok {
		response.InternalError(c, "Invalid user identity")
		return uuid.Nil, false
	}
	return userID, true
}

// GetClientConfig returns the softphone configuration document, credentials
// included, for the caller's active SIP account
func (h *Handler) GetClientConfig(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	cfg, err := h.accountService.GetClientConfig(c.Request.Context(), userID)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, cfg)
}

// GetAccount returns the caller's active SIP account without credentials
func (h *Handler) GetAccount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	acct, err := h.accountService.GetAccount(c.Request.Context(), userID)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, acct)
}

// ListNotifications returns the caller's unread notifications
func (h *Handler) ListNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	notifications, err := h.notifyService.ListUnread(c.Request.Context(), userID, 50)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, notifications)
}

// MarkNotificationRead acknowledges one notification
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid notification id")
		return
	}

	if err := h.notifyService.MarkRead(c.Request.Context(), notificationID, userID); err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"read": true})
}
