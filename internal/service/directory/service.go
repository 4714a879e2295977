package directory

import (
	"context"

	"go.uber.org/zap"

	"pbxconnect-backend/internal/domain"
	redisrepo "pbxconnect-backend/internal/repository/redis"
	apperrors "pbxconnect-backend/pkg/errors"
	"pbxconnect-backend/pkg/logger"
	"pbxconnect-backend/pkg/phone"
	"pbxconnect-backend/pkg/sanitize"
)

// ContactRepository reads the contact directory
type ContactRepository interface {
	FindByNumber(ctx context.Context, normalized, raw string) (*domain.Contact, error)
	Search(ctx context.Context, term string, limit int) ([]*domain.Contact, error)
	ListWithNumbers(ctx context.Context, limit, offset int) ([]*domain.Contact, int64, error)
}

// ContactCache caches number resolutions
type ContactCache interface {
	Get(ctx context.Context, normalized string) (*domain.Contact, error)
	Set(ctx context.Context, normalized string, contact *domain.Contact) error
}

// Service resolves phone numbers and serves directory queries
type Service struct {
	contactRepo ContactRepository
	cache       ContactCache
}

// NewService creates a new directory service. The cache is optional; without
// one every lookup hits the database.
func NewService(contactRepo ContactRepository, cache ContactCache) *Service {
	return &Service{
		contactRepo: contactRepo,
		cache:       cache,
	}
}

// ResolveNumber matches a phone number against the directory. Returns
// (nil, nil) when no contact matches; cache failures fall through to the
// database and never fail the lookup.
func (s *Service) ResolveNumber(ctx context.Context, number string) (*domain.Contact, error) {
	normalized := phone.Normalize(number)
	if normalized == "" {
		return nil, nil
	}

	if s.cache != nil {
		contact, err := s.cache.Get(ctx, normalized)
		if err == nil {
			return contact, nil
		}
		if err != redisrepo.ErrCacheMiss {
			logger.Warn("contact cache read failed",
				zap.String("number", normalized),
				zap.Error(err))
		}
	}

	contact, err := s.contactRepo.FindByNumber(ctx, normalized, number)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			s.cacheResult(ctx, normalized, nil)
			return nil, nil
		}
		return nil, err
	}

	s.cacheResult(ctx, normalized, contact)
	return contact, nil
}

func (s *Service) cacheResult(ctx context.Context, normalized string, contact *domain.Contact) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, normalized, contact); err != nil {
		logger.Warn("contact cache write failed",
			zap.String("number", normalized),
			zap.Error(err))
	}
}

// Search matches contacts by name or number fragment for the dial pad
func (s *Service) Search(ctx context.Context, term string, limit int) ([]*domain.Contact, error) {
	term = sanitize.PhoneQuery(term)
	if term == "" {
		return nil, apperrors.MissingFieldError("q")
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	return s.contactRepo.Search(ctx, term, limit)
}

// List returns dialable contacts ordered by name
func (s *Service) List(ctx context.Context, limit, offset int) ([]*domain.Contact, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	return s.contactRepo.ListWithNumbers(ctx, limit, offset)
}
