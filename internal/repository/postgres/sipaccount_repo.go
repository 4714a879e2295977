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

// SIPAccountRepository handles SIP account and PBX server persistence.
//
// Assumed tables:
//
//	voip_servers (
//	  server_id UUID PRIMARY KEY,
//	  name TEXT NOT NULL,
//	  host TEXT NOT NULL,
//	  websocket_url TEXT NOT NULL,
//	  port INT NOT NULL DEFAULT 5060,
//	  secure_port INT NOT NULL DEFAULT 5061,
//	  use_tls BOOLEAN NOT NULL DEFAULT true,
//	  realm TEXT,
//	  stun_server TEXT,
//	  turn_server TEXT,
//	  turn_username TEXT,
//	  turn_password TEXT,
//	  active BOOLEAN NOT NULL DEFAULT true
//	)
//
//	sip_accounts (
//	  account_id UUID PRIMARY KEY,
//	  user_id UUID NOT NULL,
//	  server_id UUID NOT NULL REFERENCES voip_servers(server_id),
//	  sip_username TEXT NOT NULL,
//	  sip_password TEXT NOT NULL,
//	  display_name TEXT,
//	  active BOOLEAN NOT NULL DEFAULT true,
//	  auto_answer BOOLEAN NOT NULL DEFAULT false,
//	  ring_tone TEXT NOT NULL DEFAULT 'classic',
//	  enable_recording BOOLEAN NOT NULL DEFAULT true,
//	  auto_start_recording BOOLEAN NOT NULL DEFAULT false,
//	  can_control_recording BOOLEAN NOT NULL DEFAULT true,
//	  recording_quality TEXT NOT NULL DEFAULT 'medium',
//	  recording_format TEXT NOT NULL DEFAULT 'webm',
//	  last_login_at TIMESTAMPTZ
//	)
type SIPAccountRepository struct {
	pool *pgxpool.Pool
}

// NewSIPAccountRepository creates a new SIP account repository
func NewSIPAccountRepository(pool *pgxpool.Pool) *SIPAccountRepository {
	return &SIPAccountRepository{pool: pool}
}

// GetActiveByUserID returns the user's active SIP account. A user without
// one cannot place calls, so the miss is surfaced as a typed error.
func (r *SIPAccountRepository) GetActiveByUserID(ctx context.Context, userID uuid.UUID) (*domain.SIPAccount, error) {
	query := `
		SELECT account_id, user_id, server_id, sip_username, sip_password,
		       COALESCE(display_name, ''), active, auto_answer, ring_tone,
		       enable_recording, auto_start_recording, can_control_recording,
		       recording_quality, recording_format, last_login_at
		FROM sip_accounts
		WHERE user_id = $1 AND active = true
		ORDER BY last_login_at DESC NULLS LAST
		LIMIT 1
	`

	account := &domain.SIPAccount{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&account.AccountID,
		&account.UserID,
		&account.ServerID,
		&account.SIPUsername,
		&account.SIPPassword,
		&account.DisplayName,
		&account.Active,
		&account.AutoAnswer,
		&account.RingTone,
		&account.EnableRecording,
		&account.AutoStartRecording,
		&account.CanControlRecording,
		&account.RecordingQuality,
		&account.RecordingFormat,
		&account.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.AccountNotFoundError()
		}
		return nil, apperrors.DatabaseError(fmt.Errorf("failed to get sip account: %w", err))
	}

	return account, nil
}

// GetByID retrieves a SIP account by ID
func (r *SIPAccountRepository) GetByID(ctx context.Context, accountID uuid.UUID) (*domain.SIPAccount, error) {
	query := `
		SELECT account_id, user_id, server_id, sip_username, sip_password,
		       COALESCE(display_name, ''), active, auto_answer, ring_tone,
		       enable_recording, auto_start_recording, can_control_recording,
		       recording_quality, recording_format, last_login_at
		FROM sip_accounts
		WHERE account_id = $1
	`

	account := &domain.SIPAccount{}
	err := r.pool.QueryRow(ctx, query, accountID).Scan(
		&account.AccountID,
		&account.UserID,
		&account.ServerID,
		&account.SIPUsername,
		&account.SIPPassword,
		&account.DisplayName,
		&account.Active,
		&account.AutoAnswer,
		&account.RingTone,
		&account.EnableRecording,
		&account.AutoStartRecording,
		&account.CanControlRecording,
		&account.RecordingQuality,
		&account.RecordingFormat,
		&account.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.AccountNotFoundError()
		}
		return nil, apperrors.DatabaseError(fmt.Errorf("failed to get sip account: %w", err))
	}

	return account, nil
}

// GetServer retrieves a PBX server by ID
func (r *SIPAccountRepository) GetServer(ctx context.Context, serverID uuid.UUID) (*domain.VoIPServer, error) {
	query := `
		SELECT server_id, name, host, websocket_url, port, secure_port, use_tls,
		       COALESCE(realm, ''), COALESCE(stun_server, ''), COALESCE(turn_server, ''),
		       COALESCE(turn_username, ''), COALESCE(turn_password, ''), active
		FROM voip_servers
		WHERE server_id = $1
	`

	server := &domain.VoIPServer{}
	err := r.pool.QueryRow(ctx, query, serverID).Scan(
		&server.ServerID,
		&server.Name,
		&server.Host,
		&server.WebsocketURL,
		&server.Port,
		&server.SecurePort,
		&server.UseTLS,
		&server.Realm,
		&server.StunServer,
		&server.TurnServer,
		&server.TurnUsername,
		&server.TurnPassword,
		&server.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundError("PBX server")
		}
		return nil, apperrors.DatabaseError(fmt.Errorf("failed to get voip server: %w", err))
	}

	return server, nil
}

// TouchLastLogin records that the account just fetched its client config
func (r *SIPAccountRepository) TouchLastLogin(ctx context.Context, accountID uuid.UUID) error {
	query := `UPDATE sip_accounts SET last_login_at = now() WHERE account_id = $1`

	if _, err := r.pool.Exec(ctx, query, accountID); err != nil {
		return apperrors.DatabaseError(fmt.Errorf("failed to touch last login: %w", err))
	}

	return nil
}
