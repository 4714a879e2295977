package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CallDirection indicates who originated the call. Fixed at creation.
type CallDirection string

const (
	DirectionInbound  CallDirection = "inbound"
	DirectionOutbound CallDirection = "outbound"
)

// Valid reports whether the direction is one of the known values.
func (d CallDirection) Valid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// CallState is the lifecycle state of a call session. Values are part of the
// public API and map 1:1 onto the PBX call log states.
type CallState string

const (
	CallStateRinging    CallState = "ringing"
	CallStateInProgress CallState = "in_progress"
	CallStateCompleted  CallState = "completed"
	CallStateMissed     CallState = "missed"
	CallStateFailed     CallState = "failed"
	CallStateBusy       CallState = "busy"
	CallStateRejected   CallState = "rejected"
)

// Terminal reports whether the state has no outgoing transitions.
func (s CallState) Terminal() bool {
	switch s {
	case CallStateCompleted, CallStateMissed, CallStateFailed, CallStateBusy, CallStateRejected:
		return true
	}
	return false
}

// Valid reports whether the state is one of the known values.
func (s CallState) Valid() bool {
	switch s {
	case CallStateRinging, CallStateInProgress:
		return true
	}
	return s.Terminal()
}

// Call represents one telephony call session from creation to termination.
//
// Lifecycle invariants:
//   - Direction and from/to numbers are fixed at creation.
//   - AnswerTime is set exactly once, on the ringing -> in_progress transition.
//   - EndTime is set exactly once, on the transition into a terminal state.
//   - No transition is defined out of a terminal state.
//   - Revision increments on every state change; concurrent writers are
//     serialized by compare-and-set on it.
type Call struct {
	CallID    uuid.UUID `json:"call_id" db:"call_id"`
	AccountID uuid.UUID `json:"account_id" db:"account_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`

	// SIPCallID is the correlation id supplied by the signaling layer.
	// FreePBX may reuse ids across restarts so it is not unique-indexed.
	SIPCallID string `json:"sip_call_id,omitempty" db:"sip_call_id"`

	Direction  CallDirection `json:"direction" db:"direction"`
	State      CallState     `json:"state" db:"state"`
	FromNumber string        `json:"from_number" db:"from_number"`
	ToNumber   string        `json:"to_number" db:"to_number"`

	// ContactID is the directory entry resolved from the external party's
	// number. Advisory only, not authoritative.
	ContactID   *uuid.UUID `json:"contact_id,omitempty" db:"contact_id"`
	ContactName string     `json:"contact_name,omitempty" db:"contact_name"`

	StartTime    time.Time  `json:"start_time" db:"start_time"`
	AnswerTime   *time.Time `json:"answer_time,omitempty" db:"answer_time"`
	EndTime      *time.Time `json:"end_time,omitempty" db:"end_time"`
	HangupReason string     `json:"hangup_reason,omitempty" db:"hangup_reason"`
	Notes        string     `json:"notes,omitempty" db:"notes"`

	Revision int64 `json:"revision" db:"revision"`

	// HasRecording reports whether any recording is attached to the call.
	// Derived on read, never stored.
	HasRecording bool `json:"has_recording" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MarshalJSON adds the derived duration fields to the wire form so API
// clients never compute talk time themselves.
func (c *Call) MarshalJSON() ([]byte, error) {
	type alias Call
	return json.Marshal(&struct {
		*alias
		Duration        float64 `json:"duration"`
		DurationDisplay string  `json:"duration_display"`
	}{
		alias:           (*alias)(c),
		Duration:        c.Duration(),
		DurationDisplay: c.DurationDisplay(),
	})
}

// Duration returns the talk time in seconds, derived from the answer and end
// timestamps. It is recomputed on every access, never stored, and never
// negative.
func (c *Call) Duration() float64 {
	if c.AnswerTime == nil || c.EndTime == nil {
		return 0
	}
	d := c.EndTime.Sub(*c.AnswerTime).Seconds()
	if d < 0 {
		return 0
	}
	return d
}

// DurationDisplay formats the talk time as MM:SS, or HH:MM:SS for calls over
// an hour.
func (c *Call) DurationDisplay() string {
	total := int(c.Duration())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// ExternalNumber returns the number of the party outside the PBX: the callee
// for outbound calls, the caller for inbound ones. Directory resolution keys
// off this number.
func (c *Call) ExternalNumber() string {
	if c.Direction == DirectionOutbound {
		return c.ToNumber
	}
	return c.FromNumber
}

// TerminalStateFor resolves the terminate event against the current state:
// hanging up a ringing call records it as missed, hanging up an answered call
// completes it.
func TerminalStateFor(current CallState) (CallState, error) {
	switch current {
	case CallStateRinging:
		return CallStateMissed, nil
	case CallStateInProgress:
		return CallStateCompleted, nil
	}
	return "", fmt.Errorf("no terminate transition from state %q", current)
}

// CanTransition reports whether the state machine permits moving from one
// state to another. Answering is only valid from ringing; the failure states
// (failed, busy, rejected) may be entered from either live state; terminate
// targets must agree with TerminalStateFor.
func CanTransition(from, to CallState) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case CallStateInProgress:
		return from == CallStateRinging
	case CallStateCompleted:
		return from == CallStateInProgress
	case CallStateMissed:
		return from == CallStateRinging
	case CallStateFailed, CallStateBusy, CallStateRejected:
		return from == CallStateRinging || from == CallStateInProgress
	}
	return false
}
