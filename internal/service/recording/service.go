package recording

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pbxconnect-backend/internal/domain"
	apperrors "pbxconnect-backend/pkg/errors"
	"pbxconnect-backend/pkg/logger"
	"pbxconnect-backend/pkg/metrics"
	"pbxconnect-backend/pkg/sanitize"
)

// Download URLs are short-lived; clients request a fresh one per download.
const downloadURLExpiry = time.Hour

// RecordingRepository persists recording metadata and shares
type RecordingRepository interface {
	Create(ctx context.Context, rec *domain.Recording) error
	GetByID(ctx context.Context, recordingID uuid.UUID) (*domain.Recording, error)
	Complete(ctx context.Context, recordingID uuid.UUID, objectKey, filename string, fileSize int64, durationSeconds float64) (*domain.Recording, error)
	MarkFailed(ctx context.Context, recordingID uuid.UUID) error
	AddShares(ctx context.Context, recordingID uuid.UUID, userIDs []uuid.UUID) error
	RemoveShare(ctx context.Context, recordingID, userID uuid.UUID) error
	ListByCall(ctx context.Context, callID uuid.UUID) ([]*domain.Recording, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Recording, int64, error)
}

// CallProvider looks up the call a recording belongs to
type CallProvider interface {
	GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error)
}

// Notifier delivers share notifications to affected users
type Notifier interface {
	RecordingShared(ctx context.Context, rec *domain.Recording, ownerID uuid.UUID, targets []uuid.UUID)
	RecordingUnshared(ctx context.Context, rec *domain.Recording, ownerID, target uuid.UUID)
}

// Service handles call recording business logic
type Service struct {
	recordingRepo RecordingRepository
	calls         CallProvider
	sink          Sink
	notifier      Notifier
	metrics       *metrics.Metrics
}

// NewService creates a new recording service. The notifier and metrics
// dependencies are optional.
func NewService(recordingRepo RecordingRepository, calls CallProvider, sink Sink, notifier Notifier, m *metrics.Metrics) *Service {
	return &Service{
		recordingRepo: recordingRepo,
		calls:         calls,
		sink:          sink,
		notifier:      notifier,
		metrics:       m,
	}
}

// OpenInput contains recording creation data
type OpenInput struct {
	Name   string
	Type   domain.RecordingType
	Format domain.RecordingFormat
}

// Open attaches a new recording to a live call. The recording starts in the
// recording state and holds no payload until the capture client uploads one.
func (s *Service) Open(ctx context.Context, userID, callID uuid.UUID, input *OpenInput) (*domain.Recording, error) {
	call, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call.UserID != userID {
		return nil, apperrors.AccessDeniedError("call belongs to another user")
	}
	if call.State.Terminal() {
		return nil, apperrors.UserError("Cannot start a recording on an ended call")
	}

	recordingType := input.Type
	if recordingType == "" {
		recordingType = domain.RecordingTypeManual
	}
	if recordingType != domain.RecordingTypeManual && recordingType != domain.RecordingTypeAutomatic {
		return nil, apperrors.ValidationError(fmt.Sprintf("invalid recording type %q", recordingType))
	}

	format := input.Format
	if format == "" {
		format = domain.FormatWebM
	}
	if !format.Valid() {
		return nil, apperrors.ValidationError(fmt.Sprintf("invalid recording format %q", format))
	}

	name := input.Name
	if name == "" {
		name = fmt.Sprintf("Call %s %s", call.ExternalNumber(), time.Now().Format("2006-01-02 15:04"))
	}

	rec := &domain.Recording{
		RecordingID: uuid.New(),
		CallID:      call.CallID,
		UserID:      userID,
		Name:        name,
		State:       domain.RecordingStateRecording,
		Type:        recordingType,
		Format:      format,
	}

	if err := s.recordingRepo.Create(ctx, rec); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordRecordingCreated(string(recordingType))
	}

	logger.Info("recording opened",
		zap.String("recording_id", rec.RecordingID.String()),
		zap.String("call_id", call.CallID.String()),
		zap.String("type", string(recordingType)))

	return rec, nil
}

// UploadInput contains the captured payload and its client-declared metadata.
// The duration is reported by the capture client and stored as declared; it is
// not derived from the call timestamps.
type UploadInput struct {
	Reader          io.Reader
	Size            int64
	Filename        string
	ContentType     string
	DurationSeconds float64
}

// CompleteUpload stores the payload and closes the recording. Completion is
// all or nothing: if the payload cannot be stored the recording is marked
// failed, and if the metadata write loses the state race the stored object is
// removed again.
func (s *Service) CompleteUpload(ctx context.Context, userID, recordingID uuid.UUID, input *UploadInput) (*domain.Recording, error) {
	rec, err := s.recordingRepo.GetByID(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, apperrors.AccessDeniedError("recording belongs to another user")
	}
	if rec.State != domain.RecordingStateRecording {
		return nil, apperrors.ConflictError("recording is not open for upload")
	}
	if input.Size <= 0 {
		return nil, apperrors.ValidationError("recording payload is empty")
	}
	if input.DurationSeconds < 0 {
		return nil, apperrors.ValidationError("recording duration cannot be negative")
	}

	filename := sanitize.Filename(input.Filename)
	if filename == "" {
		filename = fmt.Sprintf("%s.%s", rec.RecordingID, rec.Format)
	}

	objectKey := fmt.Sprintf("recordings/%s/%s.%s", rec.UserID, rec.RecordingID, rec.Format)

	if err := s.sink.Put(ctx, objectKey, input.Reader, input.Size, input.ContentType); err != nil {
		if failErr := s.recordingRepo.MarkFailed(ctx, recordingID); failErr != nil {
			logger.Error("failed to mark recording failed after storage error",
				zap.String("recording_id", recordingID.String()),
				zap.Error(failErr))
		}
		if s.metrics != nil {
			s.metrics.RecordRecordingUploadFailed()
		}
		return nil, apperrors.StorageError(err)
	}

	updated, err := s.recordingRepo.Complete(ctx, recordingID, objectKey, filename, input.Size, input.DurationSeconds)
	if err != nil {
		if removeErr := s.sink.Remove(ctx, objectKey); removeErr != nil {
			logger.Error("failed to remove orphaned recording payload",
				zap.String("object_key", objectKey),
				zap.Error(removeErr))
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordRecordingUpload(input.Size)
	}

	logger.Info("recording completed",
		zap.String("recording_id", updated.RecordingID.String()),
		zap.Int64("file_size", updated.FileSize))

	return updated, nil
}

// Fail closes a recording without a payload, for capture clients that aborted
func (s *Service) Fail(ctx context.Context, userID, recordingID uuid.UUID) error {
	rec, err := s.recordingRepo.GetByID(ctx, recordingID)
	if err != nil {
		return err
	}
	if rec.UserID != userID {
		return apperrors.AccessDeniedError("recording belongs to another user")
	}
	if rec.State.Terminal() {
		return apperrors.ConflictError("recording is not open")
	}

	if err := s.recordingRepo.MarkFailed(ctx, recordingID); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordRecordingUploadFailed()
	}

	return nil
}

// Get retrieves a recording the user owns or has been granted access to
func (s *Service) Get(ctx context.Context, userID, recordingID uuid.UUID) (*domain.Recording, error) {
	rec, err := s.recordingRepo.GetByID(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID && !rec.IsSharedWith(userID) {
		return nil, apperrors.AccessDeniedError("recording is not shared with this user")
	}
	return rec, nil
}

// DownloadURL generates a short-lived download link for a recording payload
func (s *Service) DownloadURL(ctx context.Context, userID, recordingID uuid.UUID) (string, error) {
	rec, err := s.Get(ctx, userID, recordingID)
	if err != nil {
		return "", err
	}
	if !rec.HasPayload() {
		return "", apperrors.UserError("No recording file available")
	}

	return s.sink.PresignedDownloadURL(ctx, rec.ObjectKey, rec.Filename, downloadURLExpiry)
}

// Share grants other users access to a recording. Re-granting an existing
// share is a no-op, so retries are safe.
func (s *Service) Share(ctx context.Context, ownerID, recordingID uuid.UUID, userIDs []uuid.UUID) (*domain.Recording, error) {
	if len(userIDs) == 0 {
		return nil, apperrors.MissingFieldError("user_ids")
	}

	rec, err := s.recordingRepo.GetByID(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != ownerID {
		return nil, apperrors.AccessDeniedError("only the owner can share a recording")
	}

	targets := make([]uuid.UUID, 0, len(userIDs))
	for _, id := range userIDs {
		if id == ownerID {
			continue
		}
		targets = append(targets, id)
	}
	if len(targets) == 0 {
		return rec, nil
	}

	if err := s.recordingRepo.AddShares(ctx, recordingID, targets); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		for range targets {
			s.metrics.RecordRecordingShare()
		}
	}
	if s.notifier != nil {
		s.notifier.RecordingShared(ctx, rec, ownerID, targets)
	}

	return s.recordingRepo.GetByID(ctx, recordingID)
}

// Unshare revokes a user's access to a recording
func (s *Service) Unshare(ctx context.Context, ownerID, recordingID, targetID uuid.UUID) (*domain.Recording, error) {
	rec, err := s.recordingRepo.GetByID(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != ownerID {
		return nil, apperrors.AccessDeniedError("only the owner can unshare a recording")
	}

	if err := s.recordingRepo.RemoveShare(ctx, recordingID, targetID); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.RecordingUnshared(ctx, rec, ownerID, targetID)
	}

	return s.recordingRepo.GetByID(ctx, recordingID)
}

// ListByCall returns the recordings on a call that the user may access
func (s *Service) ListByCall(ctx context.Context, userID, callID uuid.UUID) ([]*domain.Recording, error) {
	recordings, err := s.recordingRepo.ListByCall(ctx, callID)
	if err != nil {
		return nil, err
	}

	accessible := make([]*domain.Recording, 0, len(recordings))
	for _, rec := range recordings {
		if rec.UserID == userID || rec.IsSharedWith(userID) {
			accessible = append(accessible, rec)
		}
	}

	return accessible, nil
}

// List returns recordings the user owns or has access to, newest first
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Recording, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.recordingRepo.ListForUser(ctx, userID, limit, offset)
}
