package call

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pbxconnect-backend/internal/domain"
	"pbxconnect-backend/internal/repository/postgres"
	apperrors "pbxconnect-backend/pkg/errors"
	"pbxconnect-backend/pkg/logger"
	"pbxconnect-backend/pkg/metrics"
)

// CallRepository persists call sessions
type CallRepository interface {
	Create(ctx context.Context, call *domain.Call) error
	GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error)
	UpdateState(ctx context.Context, call *domain.Call, expectedRevision int64) (*domain.Call, error)
	List(ctx context.Context, userID uuid.UUID, filter postgres.CallFilter, limit, offset int) ([]*domain.Call, int64, error)
	Stats(ctx context.Context, userID uuid.UUID) (inbound, outbound int64, totalSeconds float64, err error)
}

// AccountProvider resolves the caller's SIP account
type AccountProvider interface {
	GetActiveByUserID(ctx context.Context, userID uuid.UUID) (*domain.SIPAccount, error)
}

// DirectoryResolver matches a phone number against the contact directory
type DirectoryResolver interface {
	ResolveNumber(ctx context.Context, number string) (*domain.Contact, error)
}

// EventPublisher pushes call lifecycle events to connected clients
type EventPublisher interface {
	PublishCallEvent(ctx context.Context, call *domain.Call, event string)
}

// Service handles call session business logic
type Service struct {
	callRepo  CallRepository
	accounts  AccountProvider
	directory DirectoryResolver
	events    EventPublisher
	metrics   *metrics.Metrics
}

// NewService creates a new call service. The directory, events and metrics
// dependencies are optional; a nil value disables that concern.
func NewService(callRepo CallRepository, accounts AccountProvider, directory DirectoryResolver, events EventPublisher, m *metrics.Metrics) *Service {
	return &Service{
		callRepo:  callRepo,
		accounts:  accounts,
		directory: directory,
		events:    events,
		metrics:   m,
	}
}

// CreateCallInput contains call creation data
type CreateCallInput struct {
	SIPCallID  string
	Direction  domain.CallDirection
	FromNumber string
	ToNumber   string
	StartTime  *time.Time
}

// Create opens a new call session in the ringing state. Directory resolution
// of the external party is best effort: a directory failure never fails call
// creation.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input *CreateCallInput) (*domain.Call, error) {
	if !input.Direction.Valid() {
		return nil, apperrors.ValidationError(fmt.Sprintf("invalid call direction %q", input.Direction))
	}
	if input.FromNumber == "" {
		return nil, apperrors.MissingFieldError("from_number")
	}
	if input.ToNumber == "" {
		return nil, apperrors.MissingFieldError("to_number")
	}

	account, err := s.accounts.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	if input.StartTime != nil {
		startTime = *input.StartTime
	}

	call := &domain.Call{
		CallID:     uuid.New(),
		AccountID:  account.AccountID,
		UserID:     userID,
		SIPCallID:  input.SIPCallID,
		Direction:  input.Direction,
		State:      domain.CallStateRinging,
		FromNumber: input.FromNumber,
		ToNumber:   input.ToNumber,
		StartTime:  startTime,
		Revision:   1,
	}

	if s.directory != nil {
		if contact, err := s.directory.ResolveNumber(ctx, call.ExternalNumber()); err != nil {
			if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
				logger.Warn("directory lookup failed, creating call without contact",
					zap.String("number", call.ExternalNumber()),
					zap.Error(err))
			}
		} else if contact != nil {
			id := contact.ContactID
			call.ContactID = &id
			call.ContactName = contact.Name
		}
	}

	if err := s.callRepo.Create(ctx, call); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordCallCreated(string(call.Direction))
	}
	s.publish(ctx, call, "call.ringing")

	logger.Info("call created",
		zap.String("call_id", call.CallID.String()),
		zap.String("direction", string(call.Direction)),
		zap.String("state", string(call.State)))

	return call, nil
}

// StateTerminated is the policy target accepted by UpdateState: the concrete
// terminal state is chosen from the call's current state, so a client can hang
// up without knowing whether the call was ever answered.
const StateTerminated = "terminated"

// UpdateStateInput contains a requested state transition
type UpdateStateInput struct {
	// State is a concrete call state or StateTerminated.
	State string

	// Timestamp is the event time reported by the signaling layer. When nil
	// the server clock is used. It becomes the answer time on transitions
	// into in_progress and the end time on transitions into a terminal
	// state.
	Timestamp *time.Time

	HangupReason string
}

// UpdateState applies a state transition to a call. Transitions are checked
// against the state machine, event timestamps must not precede the timestamps
// already recorded, and the write is committed with a compare-and-set on the
// call's revision so one of two racing updates always loses with Conflict.
func (s *Service) UpdateState(ctx context.Context, userID, callID uuid.UUID, input *UpdateStateInput) (*domain.Call, error) {
	call, err := s.callRepo.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call.UserID != userID {
		return nil, apperrors.AccessDeniedError("call belongs to another user")
	}

	target, err := s.resolveTarget(call, input.State)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(call.State, target) {
		return nil, apperrors.InvalidTransitionError(
			fmt.Sprintf("cannot transition call from %s to %s", call.State, target))
	}

	eventTime := time.Now()
	if input.Timestamp != nil {
		eventTime = *input.Timestamp
	}

	expectedRevision := call.Revision
	call.State = target

	if target == domain.CallStateInProgress {
		if eventTime.Before(call.StartTime) {
			return nil, apperrors.ValidationError("answer time precedes call start time")
		}
		call.AnswerTime = &eventTime
	}

	if target.Terminal() {
		floor := call.StartTime
		if call.AnswerTime != nil {
			floor = *call.AnswerTime
		}
		if eventTime.Before(floor) {
			return nil, apperrors.ValidationError("end time precedes recorded call timestamps")
		}
		call.EndTime = &eventTime
		call.HangupReason = input.HangupReason
	}

	updated, err := s.callRepo.UpdateState(ctx, call, expectedRevision)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeConflict) && s.metrics != nil {
			s.metrics.RecordCallUpdateConflict()
		}
		return nil, err
	}

	if updated.State.Terminal() {
		if s.metrics != nil {
			s.metrics.RecordCallTerminated(string(updated.State),
				time.Duration(updated.Duration()*float64(time.Second)))
		}
		s.publish(ctx, updated, "call.ended")
	} else {
		s.publish(ctx, updated, "call.answered")
	}

	logger.Info("call state updated",
		zap.String("call_id", updated.CallID.String()),
		zap.String("state", string(updated.State)),
		zap.Int64("revision", updated.Revision))

	return updated, nil
}

func (s *Service) resolveTarget(call *domain.Call, requested string) (domain.CallState, error) {
	if requested == StateTerminated {
		target, err := domain.TerminalStateFor(call.State)
		if err != nil {
			return "", apperrors.InvalidTransitionError(
				fmt.Sprintf("cannot terminate call in state %s", call.State))
		}
		return target, nil
	}

	target := domain.CallState(requested)
	if !target.Valid() {
		return "", apperrors.ValidationError(fmt.Sprintf("invalid call state %q", requested))
	}
	if target == domain.CallStateRinging {
		return "", apperrors.InvalidTransitionError("calls cannot return to ringing")
	}
	return target, nil
}

// Get retrieves one of the caller's calls
func (s *Service) Get(ctx context.Context, userID, callID uuid.UUID) (*domain.Call, error) {
	call, err := s.callRepo.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call.UserID != userID {
		return nil, apperrors.AccessDeniedError("call belongs to another user")
	}
	return call, nil
}

// ListInput narrows and pages call history
type ListInput struct {
	State     string
	Direction string
	Limit     int
	Offset    int
}

// List returns the caller's call history, newest first
func (s *Service) List(ctx context.Context, userID uuid.UUID, input *ListInput) ([]*domain.Call, int64, error) {
	filter := postgres.CallFilter{}

	if input.State != "" {
		state := domain.CallState(input.State)
		if !state.Valid() {
			return nil, 0, apperrors.ValidationError(fmt.Sprintf("invalid call state %q", input.State))
		}
		filter.State = state
	}
	if input.Direction != "" {
		direction := domain.CallDirection(input.Direction)
		if !direction.Valid() {
			return nil, 0, apperrors.ValidationError(fmt.Sprintf("invalid call direction %q", input.Direction))
		}
		filter.Direction = direction
	}

	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	return s.callRepo.List(ctx, userID, filter, limit, offset)
}

// Stats summarizes the caller's call history
type Stats struct {
	TotalCalls           int64   `json:"total_calls"`
	InboundCalls         int64   `json:"inbound_calls"`
	OutboundCalls        int64   `json:"outbound_calls"`
	TotalDurationSeconds float64 `json:"total_duration_seconds"`
	TotalDurationDisplay string  `json:"total_duration_display"`
}

// GetStats aggregates the caller's call history
func (s *Service) GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	inbound, outbound, totalSeconds, err := s.callRepo.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalCalls:           inbound + outbound,
		InboundCalls:         inbound,
		OutboundCalls:        outbound,
		TotalDurationSeconds: totalSeconds,
		TotalDurationDisplay: formatDuration(totalSeconds),
	}, nil
}

func formatDuration(seconds float64) string {
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

func (s *Service) publish(ctx context.Context, call *domain.Call, event string) {
	if s.events == nil {
		return
	}
	s.events.PublishCallEvent(ctx, call, event)
}
