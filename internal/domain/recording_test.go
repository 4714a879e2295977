package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRecordingStateTerminal(t *testing.T) {
	assert.False(t, RecordingStateRecording.Terminal())
	assert.True(t, RecordingStateCompleted.Terminal())
	assert.True(t, RecordingStateFailed.Terminal())
}

func TestRecordingFormatValid(t *testing.T) {
	for _, f := range []RecordingFormat{FormatWAV, FormatMP3, FormatOGG, FormatWebM, FormatMP4} {
		assert.True(t, f.Valid(), "format %q", f)
	}
	assert.False(t, RecordingFormat("flac").Valid())
}

func TestFileSizeDisplay(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{512, "512.00 B"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
	}
	for _, tt := range tests {
		r := &Recording{FileSize: tt.size}
		assert.Equal(t, tt.want, r.FileSizeDisplay())
	}
}

func TestRecordingMarshalDerivedFields(t *testing.T) {
	r := &Recording{
		DurationSeconds: 125,
		FileSize:        2048,
		CallerDisplay:   "Alice Smith",
		CalleeDisplay:   "1001",
	}

	data, err := json.Marshal(r)
	assert.NoError(t, err)

	var payload map[string]interface{}
	assert.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "02:05", payload["duration_display"])
	assert.Equal(t, "2.00 KB", payload["file_size_display"])
	assert.Equal(t, "Alice Smith", payload["caller_display"])
	assert.Equal(t, "1001", payload["callee_display"])
}

func TestIsSharedWith(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	r := &Recording{SharedWith: []uuid.UUID{a}}
	assert.True(t, r.IsSharedWith(a))
	assert.False(t, r.IsSharedWith(b))
}

func TestHasPayload(t *testing.T) {
	r := &Recording{State: RecordingStateRecording}
	assert.False(t, r.HasPayload())

	r.State = RecordingStateCompleted
	assert.False(t, r.HasPayload(), "completed without object key")

	r.ObjectKey = "recordings/x"
	assert.True(t, r.HasPayload())
}
