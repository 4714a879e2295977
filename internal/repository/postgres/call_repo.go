package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pbxconnect-backend/internal/domain"
	apperrors "pbxconnect-backend/pkg/errors"
)

// CallRepository handles call session persistence.
//
// Assumed table:
//
//	voip_calls (
//	  call_id UUID PRIMARY KEY,
//	  account_id UUID NOT NULL,
//	  user_id UUID NOT NULL,
//	  sip_call_id TEXT,
//	  direction TEXT NOT NULL,
//	  state TEXT NOT NULL,
//	  from_number TEXT NOT NULL,
//	  to_number TEXT NOT NULL,
//	  contact_id UUID REFERENCES contacts(contact_id),
//	  start_time TIMESTAMPTZ NOT NULL,
//	  answer_time TIMESTAMPTZ,
//	  end_time TIMESTAMPTZ,
//	  hangup_reason TEXT,
//	  notes TEXT,
//	  revision BIGINT NOT NULL DEFAULT 1,
//	  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	)
//
// The revision column serializes concurrent state updates: writers update
// with a compare-and-set on it and the loser gets a Conflict.
type CallRepository struct {
	pool *pgxpool.Pool
}

// NewCallRepository creates a new call repository
func NewCallRepository(pool *pgxpool.Pool) *CallRepository {
	return &CallRepository{pool: pool}
}

const callColumns = `
	call_id, account_id, user_id, COALESCE(sip_call_id, ''), direction, state,
	from_number, to_number, contact_id, COALESCE(contact_name, ''),
	start_time, answer_time, end_time, COALESCE(hangup_reason, ''), COALESCE(notes, ''),
	revision,
	(SELECT EXISTS (SELECT 1 FROM voip_recordings vr WHERE vr.call_id = voip_calls.call_id)),
	created_at, updated_at
`

func scanCall(row pgx.Row) (*domain.Call, error) {
	call := &domain.Call{}
	err := row.Scan(
		&call.CallID,
		&call.AccountID,
		&call.UserID,
		&call.SIPCallID,
		&call.Direction,
		&call.State,
		&call.FromNumber,
		&call.ToNumber,
		&call.ContactID,
		&call.ContactName,
		&call.StartTime,
		&call.AnswerTime,
		&call.EndTime,
		&call.HangupReason,
		&call.Notes,
		&call.Revision,
		&call.HasRecording,
		&call.CreatedAt,
		&call.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return call, nil
}

// Create inserts a new call session row
func (r *CallRepository) Create(ctx context.Context, call *domain.Call) error {
	query := `
		INSERT INTO voip_calls (
			call_id, account_id, user_id, sip_call_id, direction, state,
			from_number, to_number, contact_id, contact_name,
			start_time, revision, created_at, updated_at
		) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, 1, now(), now())
	`

	_, err := r.pool.Exec(ctx, query,
		call.CallID,
		call.AccountID,
		call.UserID,
		call.SIPCallID,
		call.Direction,
		call.State,
		call.FromNumber,
		call.ToNumber,
		call.ContactID,
		call.ContactName,
		call.StartTime,
	)
	if err != nil {
		return apperrors.DatabaseError(fmt.Errorf("failed to create call: %w", err))
	}

	return nil
}

// GetByID retrieves a call by ID
func (r *CallRepository) GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	query := `SELECT ` + callColumns + ` FROM voip_calls WHERE call_id = $1`

	call, err := scanCall(r.pool.QueryRow(ctx, query, callID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.CallNotFoundError()
		}
		return nil, apperrors.DatabaseError(fmt.Errorf("failed to get call: %w", err))
	}

	return call, nil
}

// UpdateState commits a state transition with a compare-and-set on the
// revision the caller read. When the revision no longer matches, the row was
// changed by a concurrent writer and the update is rejected with Conflict.
func (r *CallRepository) UpdateState(ctx context.Context, call *domain.Call, expectedRevision int64) (*domain.Call, error) {
	query := `
		UPDATE voip_calls
		SET state = $3,
		    answer_time = $4,
		    end_time = $5,
		    hangup_reason = NULLIF($6, ''),
		    revision = revision + 1,
		    updated_at = now()
		WHERE call_id = $1 AND revision = $2
		RETURNING ` + callColumns

	updated, err := scanCall(r.pool.QueryRow(ctx, query,
		call.CallID,
		expectedRevision,
		call.State,
		call.AnswerTime,
		call.EndTime,
		call.HangupReason,
	))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.DatabaseError(fmt.Errorf("failed to update call state: %w", err))
	}

	// No row matched: the call either does not exist or the revision moved.
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM voip_calls WHERE call_id = $1)`, call.CallID,
	).Scan(&exists); err != nil {
		return nil, apperrors.DatabaseError(fmt.Errorf("failed to check call existence: %w", err))
	}
	if !exists {
		return nil, apperrors.CallNotFoundError()
	}
	return nil, apperrors.ConflictError("call was modified concurrently, retry with fresh state")
}

// CallFilter narrows List results.
type CallFilter struct {
	State     domain.CallState
	Direction domain.CallDirection
}

// List returns the caller's call history ordered by start time descending,
// plus the total row count for pagination.
func (r *CallRepository) List(ctx context.Context, userID uuid.UUID, filter CallFilter, limit, offset int) ([]*domain.Call, int64, error) {
	query := `SELECT ` + callColumns + ` FROM voip_calls WHERE user_id = $1`
	countQuery := `SELECT COUNT(*) FROM voip_calls WHERE user_id = $1`
	args := []interface{}{userID}

	if filter.State != "" {
		args = append(args, filter.State)
		cond := fmt.Sprintf(" AND state = $%d", len(args))
		query += cond
		countQuery += cond
	}
	if filter.Direction != "" {
		args = append(args, filter.Direction)
		cond := fmt.Sprintf(" AND direction = $%d", len(args))
		query += cond
		countQuery += cond
	}

	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.DatabaseError(fmt.Errorf("failed to count calls: %w", err))
	}

	query += fmt.Sprintf(" ORDER BY start_time DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.DatabaseError(fmt.Errorf("failed to list calls: %w", err))
	}
	defer rows.Close()

	var calls []*domain.Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, 0, apperrors.DatabaseError(fmt.Errorf("failed to scan call: %w", err))
		}
		calls = append(calls, call)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.DatabaseError(fmt.Errorf("failed to iterate calls: %w", err))
	}

	return calls, total, nil
}

// Stats aggregates the caller's call history: per-direction counts and total
// talk time. Talk time is derived from the stored timestamps, clamped at zero.
func (r *CallRepository) Stats(ctx context.Context, userID uuid.UUID) (inbound, outbound int64, totalSeconds float64, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE direction = 'inbound'),
			COUNT(*) FILTER (WHERE direction = 'outbound'),
			COALESCE(SUM(
				GREATEST(0, EXTRACT(EPOCH FROM (end_time - answer_time)))
			) FILTER (WHERE answer_time IS NOT NULL AND end_time IS NOT NULL), 0)
		FROM voip_calls
		WHERE user_id = $1
	`

	if err := r.pool.QueryRow(ctx, query, userID).Scan(&inbound, &outbound, &totalSeconds); err != nil {
		return 0, 0, 0, apperrors.DatabaseError(fmt.Errorf("failed to aggregate call stats: %w", err))
	}

	return inbound, outbound, totalSeconds, nil
}
