package recording

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pbxconnect-backend/internal/domain"
	"pbxconnect-backend/internal/service/recording"
	"pbxconnect-backend/pkg/pagination"
	"pbxconnect-backend/pkg/response"
)

// Uploads are bounded; a one hour webm capture stays well under this.
const maxUploadBytes = 512 << 20

// Handler exposes call recording endpoints
type Handler struct {
	recordingService *recording.Service
}

// NewHandler creates a new recording handler
func NewHandler(recordingService *recording.Service) *Handler {
	return &Handler{recordingService: recordingService}
}

// RegisterRoutes registers recording routes on the authenticated group
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/calls/:id/recordings", h.OpenRecording)
	r.GET("/calls/:id/recordings", h.ListByCall)

	recordings := r.Group("/recordings")
	{
		recordings.GET("", h.ListRecordings)
		recordings.GET("/:id", h.GetRecording)
		recordings.POST("/:id/upload", h.Upload)
		recordings.POST("/:id/fail", h.Fail)
		recordings.GET("/:id/download-url", h.DownloadURL)
		recordings.POST("/:id/share", h.Share)
		recordings.DELETE("/:id/shares/:user_id", h.Unshare)
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

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.ValidationError(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// OpenRecordingRequest is the payload for attaching a recording to a call
type OpenRecordingRequest struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Format string `json:"format"`
}

// OpenRecording attaches a new recording to a live call
func (h *Handler) OpenRecording(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	callID, ok := pathID(c, "id")
	if !ok {
		return
	}

	// Body is optional; an empty request opens a manual webm recording.
	var req OpenRecordingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ValidationError(c, err.Error())
			return
		}
	}

	rec, err := h.recordingService.Open(c.Request.Context(), userID, callID, &recording.OpenInput{
		Name:   req.Name,
		Type:   domain.RecordingType(req.Type),
		Format: domain.RecordingFormat(req.Format),
	})
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, rec)
}

// Upload receives the captured payload as multipart form data and completes
// the recording. The duration_seconds field is the capture client's declared
// playback length.
func (h *Handler) Upload(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	recordingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.ValidationError(c, "Recording file is required")
		return
	}

	duration := 0.0
	if raw := c.PostForm("duration_seconds"); raw != "" {
		duration, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			response.ValidationError(c, "Invalid duration_seconds")
			return
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, "Failed to read upload")
		return
	}
	defer file.Close()

	rec, err := h.recordingService.CompleteUpload(c.Request.Context(), userID, recordingID, &recording.UploadInput{
		Reader:          file,
		Size:            fileHeader.Size,
		Filename:        fileHeader.Filename,
		ContentType:     fileHeader.Header.Get("Content-Type"),
		DurationSeconds: duration,
	})
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, rec)
}

// Fail closes a recording whose capture was aborted
func (h *Handler) Fail(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	recordingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.recordingService.Fail(c.Request.Context(), userID, recordingID); err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": domain.RecordingStateFailed})
}

// GetRecording returns one recording
func (h *Handler) GetRecording(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	recordingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	rec, err := h.recordingService.Get(c.Request.Context(), userID, recordingID)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, rec)
}

// DownloadURL returns a short-lived link to the recording payload
func (h *Handler) DownloadURL(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	recordingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	url, err := h.recordingService.DownloadURL(c.Request.Context(), userID, recordingID)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"download_url": url})
}

// ShareRequest is the payload for granting recording access
type ShareRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" binding:"required"`
}

// Share grants other users access to a recording
func (h *Handler) Share(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	recordingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	rec, err := h.recordingService.Share(c.Request.Context(), userID, recordingID, req.UserIDs)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, rec)
}

// Unshare revokes a user's access to a recording
func (h *Handler) Unshare(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	recordingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	targetID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	rec, err := h.recordingService.Unshare(c.Request.Context(), userID, recordingID, targetID)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, rec)
}

// ListByCall returns the recordings attached to one call
func (h *Handler) ListByCall(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	callID, ok := pathID(c, "id")
	if !ok {
		return
	}

	recordings, err := h.recordingService.ListByCall(c.Request.Context(), userID, callID)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, recordings)
}

// ListRecordings returns recordings the caller owns or was granted
func (h *Handler) ListRecordings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params, err := pagination.Parse(c.Query("page"), c.Query("limit"))
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	recordings, total, err := h.recordingService.List(c.Request.Context(), userID, params.Limit, params.Offset)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, pagination.Build(params, total, recordings))
}
