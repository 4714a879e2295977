package domain

import (
	"time"

	"github.com/google/uuid"
)

// VoIPServer holds the connection settings of one FreePBX server. The values
// are handed to the browser softphone as-is; STUN/TURN entries are opaque to
// this service.
type VoIPServer struct {
	ServerID     uuid.UUID `json:"server_id" db:"server_id"`
	Name         string    `json:"name" db:"name"`
	Host         string    `json:"host" db:"host"`
	WebsocketURL string    `json:"websocket_url" db:"websocket_url"`
	Port         int       `json:"port" db:"port"`
	SecurePort   int       `json:"secure_port" db:"secure_port"`
	UseTLS       bool      `json:"use_tls" db:"use_tls"`
	Realm        string    `json:"realm" db:"realm"`
	StunServer   string    `json:"stun_server" db:"stun_server"`
	TurnServer   string    `json:"turn_server" db:"turn_server"`
	TurnUsername string    `json:"turn_username" db:"turn_username"`
	TurnPassword string    `json:"-" db:"turn_password"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// RingTone options offered by the softphone UI.
const (
	RingToneDefault = "default"
	RingToneClassic = "classic"
	RingToneModern  = "modern"
	RingToneSilent  = "silent"
)

// SIPAccount binds a platform user to a SIP extension on one server.
// A user has at most one active account per server.
type SIPAccount struct {
	AccountID uuid.UUID `json:"account_id" db:"account_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ServerID  uuid.UUID `json:"server_id" db:"server_id"`

	SIPUsername string `json:"sip_username" db:"sip_username"`
	SIPPassword string `json:"-" db:"sip_password"`
	DisplayName string `json:"display_name" db:"display_name"`

	Active     bool   `json:"active" db:"active"`
	AutoAnswer bool   `json:"auto_answer" db:"auto_answer"`
	RingTone   string `json:"ring_tone" db:"ring_tone"`

	EnableRecording     bool   `json:"enable_recording" db:"enable_recording"`
	AutoStartRecording  bool   `json:"auto_start_recording" db:"auto_start_recording"`
	CanControlRecording bool   `json:"can_control_recording" db:"can_control_recording"`
	RecordingQuality    string `json:"recording_quality" db:"recording_quality"` // low, medium, high
	RecordingFormat     string `json:"recording_format" db:"recording_format"`   // webm, mp4, wav

	LastLoginAt *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ClientConfig is the configuration document handed verbatim to the browser
// softphone: server connection settings plus the user's credentials and
// preferences.
type ClientConfig struct {
	Server ClientServerConfig `json:"server"`
	User   ClientUserConfig   `json:"user"`
}

// ClientServerConfig is the server half of the softphone configuration.
type ClientServerConfig struct {
	Host         string `json:"host"`
	WebsocketURL string `json:"websocket_url"`
	Port         int    `json:"port"`
	Realm        string `json:"realm"`
	UseTLS       bool   `json:"use_tls"`
	StunServer   string `json:"stun_server"`
	TurnServer   string `json:"turn_server,omitempty"`
	TurnUsername string `json:"turn_username,omitempty"`
	TurnPassword string `json:"turn_password,omitempty"`
}

// ClientUserConfig is the per-user half of the softphone configuration.
type ClientUserConfig struct {
	Username            string `json:"username"`
	Password            string `json:"password"`
	DisplayName         string `json:"display_name"`
	AutoAnswer          bool   `json:"auto_answer"`
	RingTone            string `json:"ring_tone"`
	EnableRecording     bool   `json:"enable_recording"`
	AutoStartRecording  bool   `json:"auto_start_recording"`
	CanControlRecording bool   `json:"can_control_recording"`
	RecordingQuality    string `json:"recording_quality"`
	RecordingFormat     string `json:"recording_format"`
}

// BuildClientConfig assembles the softphone configuration from an account and
// its server. The realm falls back to the host when unset, matching PJSIP
// defaults.
func BuildClientConfig(account *SIPAccount, server *VoIPServer) *ClientConfig {
	realm := server.Realm
	if realm == "" {
		realm = server.Host
	}
	displayName := account.DisplayName
	if displayName == "" {
		displayName = account.SIPUsername
	}
	return &ClientConfig{
		Server: ClientServerConfig{
			Host:         server.Host,
			WebsocketURL: server.WebsocketURL,
			Port:         server.Port,
			Realm:        realm,
			UseTLS:       server.UseTLS,
			StunServer:   server.StunServer,
			TurnServer:   server.TurnServer,
			TurnUsername: server.TurnUsername,
			TurnPassword: server.TurnPassword,
		},
		User: ClientUserConfig{
			Username:            account.SIPUsername,
			Password:            account.SIPPassword,
			DisplayName:         displayName,
			AutoAnswer:          account.AutoAnswer,
			RingTone:            account.RingTone,
			EnableRecording:     account.EnableRecording,
			AutoStartRecording:  account.AutoStartRecording,
			CanControlRecording: account.CanControlRecording,
			RecordingQuality:    account.RecordingQuality,
			RecordingFormat:     account.RecordingFormat,
		},
	}
}
