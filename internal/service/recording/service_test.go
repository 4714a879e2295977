package recording

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pbxconnect-backend/internal/domain"
	apperrors "pbxconnect-backend/pkg/errors"
)

// MockRecordingRepository is a mock implementation of RecordingRepository
type MockRecordingRepository struct {
	mock.Mock
}

func (m *MockRecordingRepository) Create(ctx context.Context, rec *domain.Recording) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRecordingRepository) GetByID(ctx context.Context, recordingID uuid.UUID) (*domain.Recording, error) {
	args := m.Called(ctx, recordingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Recording), args.Error(1)
}

func (m *MockRecordingRepository) Complete(ctx context.Context, recordingID uuid.UUID, objectKey, filename string, fileSize int64, durationSeconds float64) (*domain.Recording, error) {
	args := m.Called(ctx, recordingID, objectKey, filename, fileSize, durationSeconds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Recording), args.Error(1)
}

func (m *MockRecordingRepository) MarkFailed(ctx context.Context, recordingID uuid.UUID) error {
	args := m.Called(ctx, recordingID)
	return args.Error(0)
}

func (m *MockRecordingRepository) AddShares(ctx context.Context, recordingID uuid.UUID, userIDs []uuid.UUID) error {
	args := m.Called(ctx, recordingID, userIDs)
	return args.Error(0)
}

func (m *MockRecordingRepository) RemoveShare(ctx context.Context, recordingID, userID uuid.UUID) error {
	args := m.Called(ctx, recordingID, userID)
	return args.Error(0)
}

func (m *MockRecordingRepository) ListByCall(ctx context.Context, callID uuid.UUID) ([]*domain.Recording, error) {
	args := m.Called(ctx, callID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Recording), args.Error(1)
}

func (m *MockRecordingRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Recording, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Recording), args.Get(1).(int64), args.Error(2)
}

// MockCallProvider is a mock implementation of CallProvider
type MockCallProvider struct {
	mock.Mock
}

func (m *MockCallProvider) GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	args := m.Called(ctx, callID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Call), args.Error(1)
}

// MockSink is a mock implementation of Sink
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, objectKey, reader, size, contentType)
	return args.Error(0)
}

func (m *MockSink) PresignedDownloadURL(ctx context.Context, objectKey, filename string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectKey, filename, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockSink) Remove(ctx context.Context, objectKey string) error {
	args := m.Called(ctx, objectKey)
	return args.Error(0)
}

func liveCall(userID uuid.UUID) *domain.Call {
	answer := time.Now()
	return &domain.Call{
		CallID:     uuid.New(),
		UserID:     userID,
		Direction:  domain.DirectionOutbound,
		State:      domain.CallStateInProgress,
		FromNumber: "1001",
		ToNumber:   "+15551234567",
		StartTime:  answer.Add(-5 * time.Second),
		AnswerTime: &answer,
	}
}

// TestOpen tests attaching a recording to a live call
func TestOpen(t *testing.T) {
	mockRepo := new(MockRecordingRepository)
	mockCalls := new(MockCallProvider)
	service := NewService(mockRepo, mockCalls, new(MockSink), nil, nil)

	userID := uuid.New()
	call := liveCall(userID)

	mockCalls.On("GetByID", mock.Anything, call.CallID).Return(call, nil)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Recording")).Return(nil)

	rec, err := service.Open(context.Background(), userID, call.CallID, &OpenInput{
		Type: domain.RecordingTypeManual,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RecordingStateRecording, rec.State)
	assert.Equal(t, domain.FormatWebM, rec.Format)
	assert.NotEmpty(t, rec.Name)
	assert.False(t, rec.HasPayload())
	mockRepo.AssertExpectations(t)
}

// TestOpen_EndedCall tests that recordings cannot start on terminated calls
func TestOpen_EndedCall(t *testing.T) {
	mockRepo := new(MockRecordingRepository)
	mockCalls := new(MockCallProvider)
	service := NewService(mockRepo, mockCalls, new(MockSink), nil, nil)

	userID := uuid.New()
	call := liveCall(userID)
	call.State = domain.CallStateCompleted

	mockCalls.On("GetByID", mock.Anything, call.CallID).Return(call, nil)

	_, err := service.Open(context.Background(), userID, call.CallID, &OpenInput{})

	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUserError))
	mockRepo.AssertNotCalled(t, "Create")
}

// TestCompleteUpload tests the happy path of storing a payload
func TestCompleteUpload(t *testing.T) {
	mockRepo := new(MockRecordingRepository)
	mockSink := new(MockSink)
	service := NewService(mockRepo, new(MockCallProvider), mockSink, nil, nil)

	userID := uuid.New()
	rec := &domain.Recording{
		RecordingID: uuid.New(),
		CallID:      uuid.New(),
		UserID:      userID,
		State:       domain.RecordingStateRecording,
		Format:      domain.FormatWebM,
	}
	completed := &domain.Recording{
		RecordingID: rec.RecordingID,
		UserID:      userID,
		State:       domain.RecordingStateCompleted,
		FileSize:    1024,
	}

	payload := strings.NewReader("audio-bytes")

	mockRepo.On("GetByID", mock.Anything, rec.RecordingID).Return(rec, nil)
	mockSink.On("Put", mock.Anything, mock.AnythingOfType("string"), payload, int64(1024), "audio/webm").Return(nil)
	mockRepo.On("Complete", mock.Anything, rec.RecordingID, mock.AnythingOfType("string"), "capture.webm", int64(1024), 42.5).
		Return(completed, nil)

	result, err := service.CompleteUpload(context.Background(), userID, rec.RecordingID, &UploadInput{
		Reader:          payload,
		Size:            1024,
		Filename:        "capture.webm",
		ContentType:     "audio/webm",
		DurationSeconds: 42.5,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RecordingStateCompleted, result.State)
	mockRepo.AssertExpectations(t)
	mockSink.AssertExpectations(t)
}

// TestCompleteUpload_SinkFailure tests that a storage failure marks the
// recording failed and surfaces a storage error
func TestCompleteUpload_SinkFailure(t *testing.T) {
	mockRepo := new(MockRecordingRepository)
	mockSink := new(MockSink)
	service := NewService(mockRepo, new(MockCallProvider), mockSink, nil, nil)

	userID := uuid.New()
	rec := &domain.Recording{
		RecordingID: uuid.New(),
		UserID:      userID,
		State:       domain.RecordingStateRecording,
		Format:      domain.FormatWebM,
	}

	mockRepo.On("GetByID", mock.Anything, rec.RecordingID).Return(rec, nil)
	mockSink.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(assert.AnError)
	mockRepo.On("MarkFailed", mock.Anything, rec.RecordingID).Return(nil)

	_, err := service.CompleteUpload(context.Background(), userID, rec.RecordingID, &UploadInput{
		Reader: strings.NewReader("x"),
		Size:   1,
	})

	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStorage))
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "Complete")
}

// TestCompleteUpload_AlreadyCompleted tests that double completion is rejected
func TestCompleteUpload_AlreadyCompleted(t *testing.T) {
	mockRepo := new(MockRecordingRepository)
	mockSink := new(MockSink)
	service := NewService(mockRepo, new(MockCallProvider), mockSink, nil, nil)

	userID := uuid.New()
	rec := &domain.Recording{
		RecordingID: uuid.New(),
		UserID:      userID,
		State:       domain.RecordingStateCompleted,
		ObjectKey:   "recordings/x/y.webm",
	}

	mockRepo.On("GetByID", mock.Anything, rec.RecordingID).Return(rec, nil)

	_, err := service.CompleteUpload(context.Background(), userID, rec.RecordingID, &UploadInput{
		Reader: strings.NewReader("x"),
		Size:   1,
	})

	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
	mockSink.AssertNotCalled(t, "Put")
}

// TestCompleteUpload_MetadataRace tests that the stored object is removed when
// the metadata write loses the completion race
func TestCompleteUpload_MetadataRace(t *testing.T) {
	mockRepo := new(MockRecordingRepository)
	mockSink := new(MockSink)
	service := NewService(mockRepo, new(MockCallProvider), mockSink, nil, nil)

	userID := uuid.New()
	rec := &domain.Recording{
		RecordingID: uuid.New(),
		UserID:      userID,
		State:       domain.RecordingStateRecording,
		Format:      domain.FormatWebM,
	}

	mockRepo.On("GetByID", mock.Anything, rec.RecordingID).Return(rec, nil)
	mockSink.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("Complete", mock.Anything, rec.RecordingID, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.ConflictError("recording is not open for upload"))
	mockSink.On("Remove", mock.Anything, mock.AnythingOfType("string")).Return(nil)

	_, err := service.CompleteUpload(context.Background(), userID, rec.RecordingID, &UploadInput{
		Reader: strings.NewReader("x"),
		Size:   1,
	})

	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
	mockSink.AssertExpectations(t)
}

// TestDownloadURL_NoPayload tests requesting a download for a recording that
// never received a payload
func TestDownloadURL_NoPayload(t *testing.T) {
	mockRepo := new(MockRecordingRepository)
	mockSink := new(MockSink)
	service := NewService(mockRepo, new(MockCallProvider), mockSink, nil, nil)

	userID := uuid.New()
	rec := &domain.Recording{
		RecordingID: uuid.New(),
		UserID:      userID,
		State:       domain.RecordingStateFailed,
	}

	mockRepo.On("GetByID", mock.Anything, rec.RecordingID).Return(rec, nil)

	_, err := service.DownloadURL(context.Background(), userID, rec.RecordingID)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUserError))
	assert.Contains(t, err.Error(), "No recording file available")
	mockSink.AssertNotCalled(t, "PresignedDownloadURL")
}

// TestDownloadURL_SharedUser tests that a share grants download access
func TestDownloadURL_SharedUser(t *testing.T) {
	mockRepo := new(MockRecordingRepository)
	mockSink := new(MockSink)
	service := NewService(mockRepo, new(MockCallProvider), mockSink, nil, nil)

	ownerID := uuid.New()
	sharedID := uuid.New()
	rec := &domain.Recording{
		RecordingID: uuid.New(),
		UserID:      ownerID,
		State:       domain.RecordingStateCompleted,
		ObjectKey:   "recordings/o/r.webm",
		Filename:    "r.webm",
		SharedWith:  []uuid.UUID{sharedID},
	}

	mockRepo.On("GetByID", mock.Anything, rec.RecordingID).Return(rec, nil)
	mockSink.On("PresignedDownloadURL", mock.Anything, rec.ObjectKey, rec.Filename, downloadURLExpiry).
		Return("https://minio.local/signed", nil)

	url, err := service.DownloadURL(context.Background(), sharedID, rec.RecordingID)

	require.NoError(t, err)
	assert.Equal(t, "https://minio.local/signed", url)
}

// TestShare tests granting access, skipping the owner themself
func TestShare(t *testing.T) {
	mockRepo := new(MockRecordingRepository)
	service := NewService(mockRepo, new(MockCallProvider), new(MockSink), nil, nil)

	ownerID := uuid.New()
	targetID := uuid.New()
	rec := &domain.Recording{
		RecordingID: uuid.New(),
		UserID:      ownerID,
		State:       domain.RecordingStateCompleted,
	}

	mockRepo.On("GetByID", mock.Anything, rec.RecordingID).Return(rec, nil)
	mockRepo.On("AddShares", mock.Anything, rec.RecordingID, []uuid.UUID{targetID}).Return(nil)

	_, err := service.Share(context.Background(), ownerID, rec.RecordingID, []uuid.UUID{ownerID, targetID})

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

// TestShare_NotOwner tests that only the owner may share
func TestShare_NotOwner(t *testing.T) {
	mockRepo := new(MockRecordingRepository)
	service := NewService(mockRepo, new(MockCallProvider), new(MockSink), nil, nil)

	rec := &domain.Recording{
		RecordingID: uuid.New(),
		UserID:      uuid.New(),
		State:       domain.RecordingStateCompleted,
	}

	mockRepo.On("GetByID", mock.Anything, rec.RecordingID).Return(rec, nil)

	_, err := service.Share(context.Background(), uuid.New(), rec.RecordingID, []uuid.UUID{uuid.New()})

	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAccessDenied))
	mockRepo.AssertNotCalled(t, "AddShares")
}

// TestListByCall_FiltersAccess tests that a caller only sees recordings they
// own or were granted
func TestListByCall_FiltersAccess(t *testing.T) {
	mockRepo := new(MockRecordingRepository)
	service := NewService(mockRepo, new(MockCallProvider), new(MockSink), nil, nil)

	userID := uuid.New()
	callID := uuid.New()

	mine := &domain.Recording{RecordingID: uuid.New(), CallID: callID, UserID: userID}
	shared := &domain.Recording{RecordingID: uuid.New(), CallID: callID, UserID: uuid.New(), SharedWith: []uuid.UUID{userID}}
	foreign := &domain.Recording{RecordingID: uuid.New(), CallID: callID, UserID: uuid.New()}

	mockRepo.On("ListByCall", mock.Anything, callID).
		Return([]*domain.Recording{mine, shared, foreign}, nil)

	recordings, err := service.ListByCall(context.Background(), userID, callID)

	require.NoError(t, err)
	assert.Len(t, recordings, 2)
}
