package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCallStateTerminal(t *testing.T) {
	terminal := []CallState{CallStateCompleted, CallStateMissed, CallStateFailed, CallStateBusy, CallStateRejected}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "state %q should be terminal", s)
	}
	assert.False(t, CallStateRinging.Terminal())
	assert.False(t, CallStateInProgress.Terminal())
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from CallState
		to   CallState
		ok   bool
	}{
		{CallStateRinging, CallStateInProgress, true},
		{CallStateRinging, CallStateMissed, true},
		{CallStateRinging, CallStateFailed, true},
		{CallStateRinging, CallStateBusy, true},
		{CallStateRinging, CallStateRejected, true},
		{CallStateRinging, CallStateCompleted, false},
		{CallStateInProgress, CallStateCompleted, true},
		{CallStateInProgress, CallStateFailed, true},
		{CallStateInProgress, CallStateBusy, true},
		{CallStateInProgress, CallStateRejected, true},
		{CallStateInProgress, CallStateMissed, false},
		{CallStateInProgress, CallStateInProgress, false},
		{CallStateCompleted, CallStateInProgress, false},
		{CallStateCompleted, CallStateFailed, false},
		{CallStateMissed, CallStateCompleted, false},
		{CallStateRejected, CallStateRinging, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to),
			"transition %s -> %s", tt.from, tt.to)
	}
}

func TestTerminalStateFor(t *testing.T) {
	state, err := TerminalStateFor(CallStateRinging)
	assert.NoError(t, err)
	assert.Equal(t, CallStateMissed, state)

	state, err = TerminalStateFor(CallStateInProgress)
	assert.NoError(t, err)
	assert.Equal(t, CallStateCompleted, state)

	_, err = TerminalStateFor(CallStateCompleted)
	assert.Error(t, err)
}

func TestCallDuration(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	answer := start.Add(5 * time.Second)
	end := answer.Add(95 * time.Second)

	call := &Call{StartTime: start}
	assert.Equal(t, 0.0, call.Duration(), "no answer/end yet")

	call.AnswerTime = &answer
	assert.Equal(t, 0.0, call.Duration(), "no end yet")

	call.EndTime = &end
	assert.Equal(t, 95.0, call.Duration())
	assert.Equal(t, "01:35", call.DurationDisplay())

	// Clock skew must never produce a negative duration.
	early := answer.Add(-time.Second)
	call.EndTime = &early
	assert.Equal(t, 0.0, call.Duration())
}

func TestCallDurationDisplayOverAnHour(t *testing.T) {
	answer := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	end := answer.Add(time.Hour + 2*time.Minute + 3*time.Second)
	call := &Call{AnswerTime: &answer, EndTime: &end}
	assert.Equal(t, "01:02:03", call.DurationDisplay())
}

func TestCallMarshalDerivedFields(t *testing.T) {
	answer := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	end := answer.Add(95 * time.Second)
	call := &Call{
		State:      CallStateCompleted,
		StartTime:  answer.Add(-5 * time.Second),
		AnswerTime: &answer,
		EndTime:    &end,
	}

	data, err := json.Marshal(call)
	assert.NoError(t, err)

	var payload map[string]interface{}
	assert.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, 95.0, payload["duration"])
	assert.Equal(t, "01:35", payload["duration_display"])
	assert.Equal(t, false, payload["has_recording"])
}

func TestExternalNumber(t *testing.T) {
	outbound := &Call{Direction: DirectionOutbound, FromNumber: "1001", ToNumber: "5551234567"}
	assert.Equal(t, "5551234567", outbound.ExternalNumber())

	inbound := &Call{Direction: DirectionInbound, FromNumber: "5551234567", ToNumber: "1001"}
	assert.Equal(t, "5551234567", inbound.ExternalNumber())
}

func TestDirectionValid(t *testing.T) {
	assert.True(t, DirectionInbound.Valid())
	assert.True(t, DirectionOutbound.Valid())
	assert.False(t, CallDirection("sideways").Valid())
}
