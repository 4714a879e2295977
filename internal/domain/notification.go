package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies in-app notifications emitted by this service.
type NotificationType string

const (
	NotificationRecordingShared   NotificationType = "recording_shared"
	NotificationRecordingUnshared NotificationType = "recording_unshared"
	NotificationCallEvent         NotificationType = "call_event"
)

// Notification is an in-app notification row. Delivery is fire-and-forget:
// a failed insert or push never fails the operation that produced it.
type Notification struct {
	NotificationID uuid.UUID         `json:"notification_id" db:"notification_id"`
	UserID         uuid.UUID         `json:"user_id" db:"user_id"`
	Type           NotificationType  `json:"type" db:"type"`
	Title          string            `json:"title" db:"title"`
	Body           string            `json:"body" db:"body"`
	Data           map[string]string `json:"data,omitempty" db:"data"`
	IsRead         bool              `json:"is_read" db:"is_read"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	ReadAt         *time.Time        `json:"read_at,omitempty" db:"read_at"`
}
