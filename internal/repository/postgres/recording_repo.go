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

// RecordingRepository handles call recording persistence.
//
// Assumed tables:
//
//	voip_recordings (
//	  recording_id UUID PRIMARY KEY,
//	  call_id UUID NOT NULL REFERENCES voip_calls(call_id),
//	  user_id UUID NOT NULL,
//	  name TEXT NOT NULL,
//	  state TEXT NOT NULL,
//	  recording_type TEXT NOT NULL,
//	  object_key TEXT,
//	  filename TEXT,
//	  file_size BIGINT NOT NULL DEFAULT 0,
//	  duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
//	  format TEXT NOT NULL,
//	  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	)
//
//	recording_shares (
//	  recording_id UUID NOT NULL REFERENCES voip_recordings(recording_id) ON DELETE CASCADE,
//	  user_id UUID NOT NULL,
//	  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	  PRIMARY KEY (recording_id, user_id)
//	)
type RecordingRepository struct {
	pool *pgxpool.Pool
}

// NewRecordingRepository creates a new recording repository
func NewRecordingRepository(pool *pgxpool.Pool) *RecordingRepository {
	return &RecordingRepository{pool: pool}
}

const recordingColumns = `
	r.recording_id, r.call_id, r.user_id, r.name, r.state, r.recording_type,
	COALESCE(r.object_key, ''), COALESCE(r.filename, ''), r.file_size,
	r.duration_seconds, r.format, r.created_at, r.updated_at
`

// Read paths join the owning call to resolve who was on each end of the
// recording: the external party renders as its directory name when one was
// matched, the internal party as its extension.
const recordingCallColumns = recordingColumns + `,
	CASE WHEN c.direction = 'inbound'
	     THEN COALESCE(NULLIF(c.contact_name, ''), c.from_number)
	     ELSE c.from_number END,
	CASE WHEN c.direction = 'outbound'
	     THEN COALESCE(NULLIF(c.contact_name, ''), c.to_number)
	     ELSE c.to_number END
`

const recordingCallJoin = ` FROM voip_recordings r JOIN voip_calls c ON c.call_id = r.call_id `

func scanRecording(row pgx.Row) (*domain.Recording, error) {
	rec := &domain.Recording{}
	err := row.Scan(
		&rec.RecordingID,
		&rec.CallID,
		&rec.UserID,
		&rec.Name,
		&rec.State,
		&rec.Type,
		&rec.ObjectKey,
		&rec.Filename,
		&rec.FileSize,
		&rec.DurationSeconds,
		&rec.Format,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func scanRecordingWithCall(row pgx.Row) (*domain.Recording, error) {
	rec := &domain.Recording{}
	err := row.Scan(
		&rec.RecordingID,
		&rec.CallID,
		&rec.UserID,
		&rec.Name,
		&rec.State,
		&rec.Type,
		&rec.ObjectKey,
		&rec.Filename,
		&rec.FileSize,
		&rec.DurationSeconds,
		&rec.Format,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.CallerDisplay,
		&rec.CalleeDisplay,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Create inserts a new recording row in the recording state
func (r *RecordingRepository) Create(ctx context.Context, rec *domain.Recording) error {
	query := `
		INSERT INTO voip_recordings (
			recording_id, call_id, user_id, name, state, recording_type,
			file_size, duration_seconds, format, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, 0, 0, $7, now(), now())
	`

	_, err := r.pool.Exec(ctx, query,
		rec.RecordingID,
		rec.CallID,
		rec.UserID,
		rec.Name,
		rec.State,
		rec.Type,
		rec.Format,
	)
	if err != nil {
		return apperrors.DatabaseError(fmt.Errorf("failed to create recording: %w", err))
	}

	return nil
}

// GetByID retrieves a recording with its share list
func (r *RecordingRepository) GetByID(ctx context.Context, recordingID uuid.UUID) (*domain.Recording, error) {
	query := `SELECT ` + recordingCallColumns + recordingCallJoin + `WHERE r.recording_id = $1`

	rec, err := scanRecordingWithCall(r.pool.QueryRow(ctx, query, recordingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.RecordingNotFoundError()
		}
		return nil, apperrors.DatabaseError(fmt.Errorf("failed to get recording: %w", err))
	}

	if err := r.loadShares(ctx, rec); err != nil {
		return nil, err
	}

	return rec, nil
}

func (r *RecordingRepository) loadShares(ctx context.Context, rec *domain.Recording) error {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM recording_shares WHERE recording_id = $1 ORDER BY created_at`,
		rec.RecordingID,
	)
	if err != nil {
		return apperrors.DatabaseError(fmt.Errorf("failed to load recording shares: %w", err))
	}
	defer rows.Close()

	rec.SharedWith = rec.SharedWith[:0]
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return apperrors.DatabaseError(fmt.Errorf("failed to scan recording share: %w", err))
		}
		rec.SharedWith = append(rec.SharedWith, userID)
	}
	return rows.Err()
}

// Complete attaches the uploaded payload and moves the recording to the
// completed state. The state guard makes completion single-shot: a second
// completion attempt matches no row and is rejected with Conflict.
func (r *RecordingRepository) Complete(ctx context.Context, recordingID uuid.UUID, objectKey, filename string, fileSize int64, durationSeconds float64) (*domain.Recording, error) {
	query := `
		UPDATE voip_recordings r
		SET object_key = $2,
		    filename = $3,
		    file_size = $4,
		    duration_seconds = $5,
		    state = 'completed',
		    updated_at = now()
		WHERE r.recording_id = $1 AND r.state = 'recording'
		RETURNING ` + recordingColumns

	rec, err := scanRecording(r.pool.QueryRow(ctx, query,
		recordingID, objectKey, filename, fileSize, durationSeconds,
	))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.DatabaseError(fmt.Errorf("failed to complete recording: %w", err))
	}

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM voip_recordings WHERE recording_id = $1)`, recordingID,
	).Scan(&exists); err != nil {
		return nil, apperrors.DatabaseError(fmt.Errorf("failed to check recording existence: %w", err))
	}
	if !exists {
		return nil, apperrors.RecordingNotFoundError()
	}
	return nil, apperrors.ConflictError("recording is not open for upload")
}

// MarkFailed moves an open recording to the failed state. Recordings already
// in a terminal state are left untouched.
func (r *RecordingRepository) MarkFailed(ctx context.Context, recordingID uuid.UUID) error {
	query := `
		UPDATE voip_recordings
		SET state = 'failed', updated_at = now()
		WHERE recording_id = $1 AND state = 'recording'
	`

	if _, err := r.pool.Exec(ctx, query, recordingID); err != nil {
		return apperrors.DatabaseError(fmt.Errorf("failed to mark recording failed: %w", err))
	}

	return nil
}

// AddShares grants the given users access to a recording. Already-present
// grants are skipped, making the operation idempotent.
func (r *RecordingRepository) AddShares(ctx context.Context, recordingID uuid.UUID, userIDs []uuid.UUID) error {
	query := `
		INSERT INTO recording_shares (recording_id, user_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (recording_id, user_id) DO NOTHING
	`

	for _, userID := range userIDs {
		if _, err := r.pool.Exec(ctx, query, recordingID, userID); err != nil {
			return apperrors.DatabaseError(fmt.Errorf("failed to add recording share: %w", err))
		}
	}

	return nil
}

// RemoveShare revokes a user's access to a recording
func (r *RecordingRepository) RemoveShare(ctx context.Context, recordingID, userID uuid.UUID) error {
	query := `DELETE FROM recording_shares WHERE recording_id = $1 AND user_id = $2`

	if _, err := r.pool.Exec(ctx, query, recordingID, userID); err != nil {
		return apperrors.DatabaseError(fmt.Errorf("failed to remove recording share: %w", err))
	}

	return nil
}

// ListByCall returns every recording attached to a call, newest first
func (r *RecordingRepository) ListByCall(ctx context.Context, callID uuid.UUID) ([]*domain.Recording, error) {
	query := `SELECT ` + recordingCallColumns + recordingCallJoin + `
		WHERE r.call_id = $1
		ORDER BY r.created_at DESC`

	recordings, err := r.queryRecordings(ctx, query, callID)
	if err != nil {
		return nil, err
	}
	for _, rec := range recordings {
		if err := r.loadShares(ctx, rec); err != nil {
			return nil, err
		}
	}

	return recordings, nil
}

// ListForUser returns recordings the user owns plus recordings shared with
// them, newest first, with the total count for pagination.
func (r *RecordingRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Recording, int64, error) {
	where := `
		WHERE r.user_id = $1
		   OR EXISTS (
			SELECT 1 FROM recording_shares s
			WHERE s.recording_id = r.recording_id AND s.user_id = $1
		   )
	`

	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM voip_recordings r `+where, userID,
	).Scan(&total); err != nil {
		return nil, 0, apperrors.DatabaseError(fmt.Errorf("failed to count recordings: %w", err))
	}

	query := `SELECT ` + recordingCallColumns + recordingCallJoin + where + `
		ORDER BY r.created_at DESC
		LIMIT $2 OFFSET $3`

	recordings, err := r.queryRecordings(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, rec := range recordings {
		if err := r.loadShares(ctx, rec); err != nil {
			return nil, 0, err
		}
	}

	return recordings, total, nil
}

func (r *RecordingRepository) queryRecordings(ctx context.Context, query string, args ...interface{}) ([]*domain.Recording, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.DatabaseError(fmt.Errorf("failed to list recordings: %w", err))
	}
	defer rows.Close()

	var recordings []*domain.Recording
	for rows.Next() {
		rec, err := scanRecordingWithCall(rows)
		if err != nil {
			return nil, apperrors.DatabaseError(fmt.Errorf("failed to scan recording: %w", err))
		}
		recordings = append(recordings, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.DatabaseError(fmt.Errorf("failed to iterate recordings: %w", err))
	}

	return recordings, nil
}
