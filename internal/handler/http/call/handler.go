package call

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pbxconnect-backend/internal/domain"
	"pbxconnect-backend/internal/service/call"
	"pbxconnect-backend/pkg/pagination"
	"pbxconnect-backend/pkg/response"
)

// Handler exposes call session endpoints
type Handler struct {
	callService *call.Service
}

// NewHandler creates a new call handler
func NewHandler(callService *call.Service) *Handler {
	return &Handler{callService: callService}
}

// RegisterRoutes registers call routes on the authenticated group
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	calls := r.Group("/calls")
	{
		calls.POST("", h.CreateCall)
		calls.GET("", h.ListCalls)
		calls.GET("/stats", h.GetStats)
		calls.GET("/:id", h.GetCall)
		calls.PATCH("/:id/state", h.UpdateState)
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

// CreateCallRequest is the payload for opening a call session
type CreateCallRequest struct {
	SIPCallID  string     `json:"sip_call_id"`
	Direction  string     `json:"direction" binding:"required"`
	FromNumber string     `json:"from_number" binding:"required"`
	ToNumber   string     `json:"to_number" binding:"required"`
	StartTime  *time.Time `json:"start_time"`
}

// CreateCall opens a new call session in the ringing state
func (h *Handler) CreateCall(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	created, err := h.callService.Create(c.Request.Context(), userID, &call.CreateCallInput{
		SIPCallID:  req.SIPCallID,
		Direction:  domain.CallDirection(req.Direction),
		FromNumber: req.FromNumber,
		ToNumber:   req.ToNumber,
		StartTime:  req.StartTime,
	})
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, created)
}

// UpdateStateRequest is the payload for a state transition
type UpdateStateRequest struct {
	State        string     `json:"state" binding:"required"`
	Timestamp    *time.Time `json:"timestamp"`
	HangupReason string     `json:"hangup_reason"`
}

// UpdateState applies a lifecycle transition to a call
func (h *Handler) UpdateState(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid call id")
		return
	}

	var req UpdateStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	updated, err := h.callService.UpdateState(c.Request.Context(), userID, callID, &call.UpdateStateInput{
		State:        req.State,
		Timestamp:    req.Timestamp,
		HangupReason: req.HangupReason,
	})
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, updated)
}

// GetCall returns one call session
func (h *Handler) GetCall(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid call id")
		return
	}

	found, err := h.callService.Get(c.Request.Context(), userID, callID)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, found)
}

// ListCalls returns the caller's call history
func (h *Handler) ListCalls(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params, err := pagination.Parse(c.Query("page"), c.Query("limit"))
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	input := &call.ListInput{
		State:     c.Query("state"),
		Direction: c.Query("direction"),
		Limit:     params.Limit,
		Offset:    params.Offset,
	}

	calls, total, err := h.callService.List(c.Request.Context(), userID, input)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, pagination.Build(params, total, calls))
}

// GetStats returns aggregated call history figures
func (h *Handler) GetStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.callService.GetStats(c.Request.Context(), userID)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}
