package sipaccount

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pbxconnect-backend/internal/domain"
	apperrors "pbxconnect-backend/pkg/errors"
	"pbxconnect-backend/pkg/logger"
)

// AccountRepository persists SIP accounts and PBX servers
type AccountRepository interface {
	GetActiveByUserID(ctx context.Context, userID uuid.UUID) (*domain.SIPAccount, error)
	GetServer(ctx context.Context, serverID uuid.UUID) (*domain.VoIPServer, error)
	TouchLastLogin(ctx context.Context, accountID uuid.UUID) error
}

// Service assembles softphone client configuration
type Service struct {
	accountRepo AccountRepository
}

// NewService creates a new SIP account service
func NewService(accountRepo AccountRepository) *Service {
	return &Service{accountRepo: accountRepo}
}

// GetClientConfig returns everything a softphone needs to register: server
// connection details plus the user's SIP credentials and preferences. The
// last-login touch is best effort and never fails the request.
func (s *Service) GetClientConfig(ctx context.Context, userID uuid.UUID) (*domain.ClientConfig, error) {
	account, err := s.accountRepo.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	server, err := s.accountRepo.GetServer(ctx, account.ServerID)
	if err != nil {
		return nil, err
	}
	if !server.Active {
		return nil, apperrors.ServiceUnavailableError("PBX server is disabled")
	}
	if server.Host == "" || server.WebsocketURL == "" {
		return nil, apperrors.ValidationError("PBX server is missing connection details")
	}

	if err := s.accountRepo.TouchLastLogin(ctx, account.AccountID); err != nil {
		logger.Warn("failed to record sip account login",
			zap.String("account_id", account.AccountID.String()),
			zap.Error(err))
	}

	return domain.BuildClientConfig(account, server), nil
}

// GetAccount returns the caller's active SIP account
func (s *Service) GetAccount(ctx context.Context, userID uuid.UUID) (*domain.SIPAccount, error) {
	return s.accountRepo.GetActiveByUserID(ctx, userID)
}
