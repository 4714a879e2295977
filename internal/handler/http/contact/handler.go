package contact

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pbxconnect-backend/internal/service/directory"
	"pbxconnect-backend/pkg/pagination"
	"pbxconnect-backend/pkg/response"
)

// Handler exposes directory endpoints
type Handler struct {
	directoryService *directory.Service
}

// NewHandler creates a new contact handler
func NewHandler(directoryService *directory.Service) *Handler {
	return &Handler{directoryService: directoryService}
}

// RegisterRoutes registers directory routes on the authenticated group
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	contacts := r.Group("/contacts")
	{
		contacts.GET("", h.ListContacts)
		contacts.GET("/search", h.SearchContacts)
		contacts.GET("/resolve", h.ResolveNumber)
	}
}

// ResolveNumber matches a phone number against the directory. An unknown
// number is a successful lookup with a null contact.
func (h *Handler) ResolveNumber(c *gin.Context) {
	number := c.Query("number")
	if number == "" {
		response.ValidationError(c, "number query parameter is required")
		return
	}

	contact, err := h.directoryService.ResolveNumber(c.Request.Context(), number)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"contact": contact})
}

// SearchContacts matches contacts by name or number fragment
func (h *Handler) SearchContacts(c *gin.Context) {
	contacts, err := h.directoryService.Search(c.Request.Context(), c.Query("q"), pagination.DefaultLimit)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, contacts)
}

// ListContacts returns dialable directory entries
func (h *Handler) ListContacts(c *gin.Context) {
	params, err := pagination.Parse(c.Query("page"), c.Query("limit"))
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	contacts, total, err := h.directoryService.List(c.Request.Context(), params.Limit, params.Offset)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, pagination.Build(params, total, contacts))
}
