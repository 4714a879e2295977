package sipaccount

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pbxconnect-backend/internal/domain"
	apperrors "pbxconnect-backend/pkg/errors"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetActiveByUserID(ctx context.Context, userID uuid.UUID) (*domain.SIPAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SIPAccount), args.Error(1)
}

func (m *MockAccountRepository) GetServer(ctx context.Context, serverID uuid.UUID) (*domain.VoIPServer, error) {
	args := m.Called(ctx, serverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VoIPServer), args.Error(1)
}

func (m *MockAccountRepository) TouchLastLogin(ctx context.Context, accountID uuid.UUID) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func testServer() *domain.VoIPServer {
	return &domain.VoIPServer{
		ServerID:     uuid.New(),
		Name:         "pbx-eu-1",
		Host:         "pbx.example.com",
		WebsocketURL: "wss://pbx.example.com:8089/ws",
		Port:         5060,
		UseTLS:       true,
		StunServer:   "stun:stun.example.com:3478",
		Active:       true,
	}
}

// TestGetClientConfig tests assembling the softphone configuration
func TestGetClientConfig(t *testing.T) {
	mockRepo := new(MockAccountRepository)
	service := NewService(mockRepo)

	userID := uuid.New()
	server := testServer()
	account := &domain.SIPAccount{
		AccountID:   uuid.New(),
		UserID:      userID,
		ServerID:    server.ServerID,
		SIPUsername: "1001",
		SIPPassword: "s3cret",
		Active:      true,
		RingTone:    domain.RingToneClassic,
	}

	mockRepo.On("GetActiveByUserID", mock.Anything, userID).Return(account, nil)
	mockRepo.On("GetServer", mock.Anything, server.ServerID).Return(server, nil)
	mockRepo.On("TouchLastLogin", mock.Anything, account.AccountID).Return(nil)

	cfg, err := service.GetClientConfig(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, "pbx.example.com", cfg.Server.Host)
	// Realm falls back to the host when the server has none configured
	assert.Equal(t, "pbx.example.com", cfg.Server.Realm)
	assert.Equal(t, "1001", cfg.User.Username)
	assert.Equal(t, "s3cret", cfg.User.Password)
	// Display name falls back to the SIP username
	assert.Equal(t, "1001", cfg.User.DisplayName)
	mockRepo.AssertExpectations(t)
}

// TestGetClientConfig_TouchFailureTolerated tests that a failed last-login
// write does not fail the request
func TestGetClientConfig_TouchFailureTolerated(t *testing.T) {
	mockRepo := new(MockAccountRepository)
	service := NewService(mockRepo)

	userID := uuid.New()
	server := testServer()
	account := &domain.SIPAccount{
		AccountID:   uuid.New(),
		UserID:      userID,
		ServerID:    server.ServerID,
		SIPUsername: "1001",
	}

	mockRepo.On("GetActiveByUserID", mock.Anything, userID).Return(account, nil)
	mockRepo.On("GetServer", mock.Anything, server.ServerID).Return(server, nil)
	mockRepo.On("TouchLastLogin", mock.Anything, account.AccountID).Return(assert.AnError)

	cfg, err := service.GetClientConfig(context.Background(), userID)

	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

// TestGetClientConfig_NoAccount tests a user without a provisioned account
func TestGetClientConfig_NoAccount(t *testing.T) {
	mockRepo := new(MockAccountRepository)
	service := NewService(mockRepo)

	userID := uuid.New()
	mockRepo.On("GetActiveByUserID", mock.Anything, userID).
		Return(nil, apperrors.AccountNotFoundError())

	_, err := service.GetClientConfig(context.Background(), userID)

	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAccountNotFound))
	mockRepo.AssertNotCalled(t, "GetServer")
}

// TestGetClientConfig_MissingConnectionDetails tests that a server row
// without a host or websocket URL is rejected as invalid configuration
func TestGetClientConfig_MissingConnectionDetails(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *domain.VoIPServer)
	}{
		{"no host", func(s *domain.VoIPServer) { s.Host = "" }},
		{"no websocket url", func(s *domain.VoIPServer) { s.WebsocketURL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockAccountRepository)
			service := NewService(mockRepo)

			userID := uuid.New()
			server := testServer()
			tt.mutate(server)
			account := &domain.SIPAccount{
				AccountID: uuid.New(),
				UserID:    userID,
				ServerID:  server.ServerID,
			}

			mockRepo.On("GetActiveByUserID", mock.Anything, userID).Return(account, nil)
			mockRepo.On("GetServer", mock.Anything, server.ServerID).Return(server, nil)

			_, err := service.GetClientConfig(context.Background(), userID)

			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
			mockRepo.AssertNotCalled(t, "TouchLastLogin")
		})
	}
}

// TestGetClientConfig_DisabledServer tests that a disabled PBX server blocks
// config delivery
func TestGetClientConfig_DisabledServer(t *testing.T) {
	mockRepo := new(MockAccountRepository)
	service := NewService(mockRepo)

	userID := uuid.New()
	server := testServer()
	server.Active = false
	account := &domain.SIPAccount{
		AccountID: uuid.New(),
		UserID:    userID,
		ServerID:  server.ServerID,
	}

	mockRepo.On("GetActiveByUserID", mock.Anything, userID).Return(account, nil)
	mockRepo.On("GetServer", mock.Anything, server.ServerID).Return(server, nil)

	_, err := service.GetClientConfig(context.Background(), userID)

	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeServiceUnavail))
}
