package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pbxconnect-backend/internal/domain"
	"pbxconnect-backend/internal/handler/ws"
	"pbxconnect-backend/pkg/logger"
)

// NotificationRepository persists in-app notifications
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListUnread(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error
}

// EventPublisher pushes events to connected clients
type EventPublisher interface {
	Publish(ctx context.Context, userID uuid.UUID, event *ws.Event)
}

// Service fans out call and recording events. Every delivery is fire and
// forget: a notification failure is logged and never propagates into the
// operation that triggered it.
type Service struct {
	notificationRepo NotificationRepository
	events           EventPublisher
}

// NewService creates a new notify service. Both dependencies are optional.
func NewService(notificationRepo NotificationRepository, events EventPublisher) *Service {
	return &Service{
		notificationRepo: notificationRepo,
		events:           events,
	}
}

// PublishCallEvent pushes a call lifecycle event to the call owner's
// connected sessions. Call events are transient and not persisted.
func (s *Service) PublishCallEvent(ctx context.Context, call *domain.Call, event string) {
	if s.events == nil {
		return
	}

	data := map[string]string{
		"call_id":   call.CallID.String(),
		"state":     string(call.State),
		"direction": string(call.Direction),
		"number":    call.ExternalNumber(),
	}
	if call.ContactName != "" {
		data["contact_name"] = call.ContactName
	}

	s.events.Publish(ctx, call.UserID, &ws.Event{
		Type:      event,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// RecordingShared stores a notification for each grantee and pushes it to
// their connected sessions
func (s *Service) RecordingShared(ctx context.Context, rec *domain.Recording, ownerID uuid.UUID, targets []uuid.UUID) {
	for _, target := range targets {
		s.deliver(ctx, &domain.Notification{
			NotificationID: uuid.New(),
			UserID:         target,
			Type:           domain.NotificationRecordingShared,
			Title:          "Recording shared with you",
			Body:           fmt.Sprintf("%q was shared with you", rec.Name),
			Data: map[string]string{
				"recording_id": rec.RecordingID.String(),
				"owner_id":     ownerID.String(),
			},
		}, ws.EventRecordingShared)
	}
}

// RecordingUnshared stores and pushes a revocation notice
func (s *Service) RecordingUnshared(ctx context.Context, rec *domain.Recording, ownerID, target uuid.UUID) {
	s.deliver(ctx, &domain.Notification{
		NotificationID: uuid.New(),
		UserID:         target,
		Type:           domain.NotificationRecordingUnshared,
		Title:          "Recording access revoked",
		Body:           fmt.Sprintf("Your access to %q was revoked", rec.Name),
		Data: map[string]string{
			"recording_id": rec.RecordingID.String(),
			"owner_id":     ownerID.String(),
		},
	}, ws.EventRecordingUnshared)
}

func (s *Service) deliver(ctx context.Context, n *domain.Notification, eventType string) {
	if s.notificationRepo != nil {
		if err := s.notificationRepo.Create(ctx, n); err != nil {
			logger.Warn("failed to store notification",
				zap.String("user_id", n.UserID.String()),
				zap.String("type", string(n.Type)),
				zap.Error(err))
		}
	}

	if s.events != nil {
		s.events.Publish(ctx, n.UserID, &ws.Event{
			Type:      eventType,
			Data:      n.Data,
			Timestamp: time.Now(),
		})
	}
}

// ListUnread returns the user's pending notifications
func (s *Service) ListUnread(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	if s.notificationRepo == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.notificationRepo.ListUnread(ctx, userID, limit)
}

// MarkRead acknowledges a notification
func (s *Service) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	if s.notificationRepo == nil {
		return nil
	}
	return s.notificationRepo.MarkRead(ctx, notificationID, userID)
}
