package directory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pbxconnect-backend/internal/domain"
	redisrepo "pbxconnect-backend/internal/repository/redis"
	apperrors "pbxconnect-backend/pkg/errors"
)

// MockContactRepository is a mock implementation of ContactRepository
type MockContactRepository struct {
	mock.Mock
}

func (m *MockContactRepository) FindByNumber(ctx context.Context, normalized, raw string) (*domain.Contact, error) {
	args := m.Called(ctx, normalized, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contact), args.Error(1)
}

func (m *MockContactRepository) Search(ctx context.Context, term string, limit int) ([]*domain.Contact, error) {
	args := m.Called(ctx, term, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Contact), args.Error(1)
}

func (m *MockContactRepository) ListWithNumbers(ctx context.Context, limit, offset int) ([]*domain.Contact, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Contact), args.Get(1).(int64), args.Error(2)
}

// MockContactCache is a mock implementation of ContactCache
type MockContactCache struct {
	mock.Mock
}

func (m *MockContactCache) Get(ctx context.Context, normalized string) (*domain.Contact, error) {
	args := m.Called(ctx, normalized)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contact), args.Error(1)
}

func (m *MockContactCache) Set(ctx context.Context, normalized string, contact *domain.Contact) error {
	args := m.Called(ctx, normalized, contact)
	return args.Error(0)
}

// TestResolveNumber_NormalizesInput tests that formatting characters are
// stripped before matching
func TestResolveNumber_NormalizesInput(t *testing.T) {
	mockRepo := new(MockContactRepository)
	service := NewService(mockRepo, nil)

	contact := &domain.Contact{ContactID: uuid.New(), Name: "Alice Martin", Phone: "555 123-4567"}
	mockRepo.On("FindByNumber", mock.Anything, "5551234567", "(555) 123-4567").Return(contact, nil)

	result, err := service.ResolveNumber(context.Background(), "(555) 123-4567")

	require.NoError(t, err)
	assert.Equal(t, "Alice Martin", result.Name)
	mockRepo.AssertExpectations(t)
}

// TestResolveNumber_NoMatch tests that an unknown number resolves to nil
// without error
func TestResolveNumber_NoMatch(t *testing.T) {
	mockRepo := new(MockContactRepository)
	service := NewService(mockRepo, nil)

	mockRepo.On("FindByNumber", mock.Anything, "+4930123456", "+4930123456").
		Return(nil, apperrors.NotFoundError("Contact"))

	result, err := service.ResolveNumber(context.Background(), "+4930123456")

	require.NoError(t, err)
	assert.Nil(t, result)
}

// TestResolveNumber_EmptyInput tests that blank numbers short-circuit
func TestResolveNumber_EmptyInput(t *testing.T) {
	mockRepo := new(MockContactRepository)
	service := NewService(mockRepo, nil)

	result, err := service.ResolveNumber(context.Background(), "  ")

	require.NoError(t, err)
	assert.Nil(t, result)
	mockRepo.AssertNotCalled(t, "FindByNumber")
}

// TestResolveNumber_CacheHit tests that a cached resolution skips the database
func TestResolveNumber_CacheHit(t *testing.T) {
	mockRepo := new(MockContactRepository)
	mockCache := new(MockContactCache)
	service := NewService(mockRepo, mockCache)

	contact := &domain.Contact{ContactID: uuid.New(), Name: "Bob Chen"}
	mockCache.On("Get", mock.Anything, "1002").Return(contact, nil)

	result, err := service.ResolveNumber(context.Background(), "1002")

	require.NoError(t, err)
	assert.Equal(t, "Bob Chen", result.Name)
	mockRepo.AssertNotCalled(t, "FindByNumber")
}

// TestResolveNumber_CacheFailureFallsThrough tests that a cache outage does
// not break resolution
func TestResolveNumber_CacheFailureFallsThrough(t *testing.T) {
	mockRepo := new(MockContactRepository)
	mockCache := new(MockContactCache)
	service := NewService(mockRepo, mockCache)

	contact := &domain.Contact{ContactID: uuid.New(), Name: "Bob Chen"}
	mockCache.On("Get", mock.Anything, "1002").Return(nil, assert.AnError)
	mockRepo.On("FindByNumber", mock.Anything, "1002", "1002").Return(contact, nil)
	mockCache.On("Set", mock.Anything, "1002", contact).Return(nil)

	result, err := service.ResolveNumber(context.Background(), "1002")

	require.NoError(t, err)
	assert.Equal(t, "Bob Chen", result.Name)
	mockRepo.AssertExpectations(t)
}

// TestResolveNumber_CacheMissPopulates tests the cache-aside write on miss
func TestResolveNumber_CacheMissPopulates(t *testing.T) {
	mockRepo := new(MockContactRepository)
	mockCache := new(MockContactCache)
	service := NewService(mockRepo, mockCache)

	mockCache.On("Get", mock.Anything, "1003").Return(nil, redisrepo.ErrCacheMiss)
	mockRepo.On("FindByNumber", mock.Anything, "1003", "1003").
		Return(nil, apperrors.NotFoundError("Contact"))
	mockCache.On("Set", mock.Anything, "1003", (*domain.Contact)(nil)).Return(nil)

	result, err := service.ResolveNumber(context.Background(), "1003")

	require.NoError(t, err)
	assert.Nil(t, result)
	mockCache.AssertExpectations(t)
}

// TestSearch_EmptyTerm tests search term validation
func TestSearch_EmptyTerm(t *testing.T) {
	service := NewService(new(MockContactRepository), nil)

	_, err := service.Search(context.Background(), "   ", 10)

	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMissingField))
}
