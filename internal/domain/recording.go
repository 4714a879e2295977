package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordingState is the lifecycle state of a call recording.
type RecordingState string

const (
	RecordingStateRecording RecordingState = "recording"
	RecordingStateCompleted RecordingState = "completed"
	RecordingStateFailed    RecordingState = "failed"
)

// Terminal reports whether the recording can no longer change, apart from its
// sharing list.
func (s RecordingState) Terminal() bool {
	return s == RecordingStateCompleted || s == RecordingStateFailed
}

// RecordingType distinguishes recordings started by policy from ones started
// by the user mid-call.
type RecordingType string

const (
	RecordingTypeAutomatic RecordingType = "automatic"
	RecordingTypeManual    RecordingType = "manual"
)

// Valid reports whether the type is one of the known values.
func (t RecordingType) Valid() bool {
	return t == RecordingTypeAutomatic || t == RecordingTypeManual
}

// RecordingFormat is the container format of the captured audio.
type RecordingFormat string

const (
	FormatWAV  RecordingFormat = "wav"
	FormatMP3  RecordingFormat = "mp3"
	FormatOGG  RecordingFormat = "ogg"
	FormatWebM RecordingFormat = "webm"
	FormatMP4  RecordingFormat = "mp4"
)

// Valid reports whether the format is one of the known values.
func (f RecordingFormat) Valid() bool {
	switch f {
	case FormatWAV, FormatMP3, FormatOGG, FormatWebM, FormatMP4:
		return true
	}
	return false
}

// Recording represents one captured audio file belonging to exactly one call.
// The payload lives in object storage; only metadata is kept here. Deleting
// the call cascades to its recordings.
//
// DurationSeconds is the duration declared by the capture client, not derived
// from the call's timestamps: the call's end time may not be finalized when
// the upload arrives, and the two are independent measurements.
type Recording struct {
	RecordingID uuid.UUID `json:"recording_id" db:"recording_id"`
	CallID      uuid.UUID `json:"call_id" db:"call_id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`

	Name  string         `json:"name" db:"name"`
	State RecordingState `json:"state" db:"state"`
	Type  RecordingType  `json:"type" db:"recording_type"`

	// ObjectKey locates the payload in the recording sink. Internal.
	ObjectKey string `json:"-" db:"object_key"`

	Filename        string          `json:"filename,omitempty" db:"filename"`
	FileSize        int64           `json:"file_size" db:"file_size"`
	DurationSeconds float64         `json:"duration" db:"duration"`
	Format          RecordingFormat `json:"format" db:"format"`

	// SharedWith lists users granted access beyond the owner. Unordered.
	SharedWith []uuid.UUID `json:"shared_with,omitempty" db:"-"`

	// Display fields resolved from the owning call when listing.
	CallerDisplay string `json:"caller_display,omitempty" db:"-"`
	CalleeDisplay string `json:"callee_display,omitempty" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MarshalJSON adds the formatted duration and size to the wire form.
func (r *Recording) MarshalJSON() ([]byte, error) {
	type alias Recording
	return json.Marshal(&struct {
		*alias
		DurationDisplay string `json:"duration_display"`
		FileSizeDisplay string `json:"file_size_display"`
	}{
		alias:           (*alias)(r),
		DurationDisplay: r.DurationDisplay(),
		FileSizeDisplay: r.FileSizeDisplay(),
	})
}

// HasPayload reports whether a payload has been committed for this recording.
func (r *Recording) HasPayload() bool {
	return r.State == RecordingStateCompleted && r.ObjectKey != ""
}

// DurationDisplay formats the declared duration as MM:SS, or HH:MM:SS for
// recordings over an hour.
func (r *Recording) DurationDisplay() string {
	total := int(r.DurationSeconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// FileSizeDisplay renders the payload size with a binary unit suffix.
func (r *Recording) FileSizeDisplay() string {
	if r.FileSize <= 0 {
		return "0 B"
	}
	size := float64(r.FileSize)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024.0 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024.0
	}
	return fmt.Sprintf("%.2f TB", size)
}

// IsSharedWith reports whether the given user is on the sharing list.
func (r *Recording) IsSharedWith(userID uuid.UUID) bool {
	for _, id := range r.SharedWith {
		if id == userID {
			return true
		}
	}
	return false
}
