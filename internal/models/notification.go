package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// NotificationType classifies notifications.
type NotificationType string

const (
	NotificationScheduleChange NotificationType = "schedule_change"
	NotificationAttendance     NotificationType = "attendance"
	NotificationAlert          NotificationType = "alert"
	NotificationSystem         NotificationType = "system"
)

// Valid reports whether the type is known.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationScheduleChange, NotificationAttendance, NotificationAlert, NotificationSystem:
		return true
	default:
		return false
	}
}

// Notification is a message addressed to a user.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	ActionURL *string          `db:"action_url" json:"action_url,omitempty"`
	Read      bool             `db:"is_read" json:"read"`
	ReadAt    *time.Time       `db:"read_at" json:"read_at,omitempty"`
	Data      types.JSONText   `db:"data" json:"data,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter narrows a user's notification listing.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Type       NotificationType
	Page       int
	PageSize   int
}
