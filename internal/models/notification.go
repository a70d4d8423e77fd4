package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification types raised by trip activity.
const (
	NotificationMemberJoined = "member_joined"
	NotificationMemberLeft   = "member_left"
	NotificationTripUpdate   = "trip_update"
	NotificationTripDeleted  = "trip_deleted"
)

// Notification is an in-app message for one user. EventID ties it to the
// trip event that raised it; a user gets at most one notification per event.
type Notification struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	UserID    uuid.UUID      `json:"user_id" db:"user_id"`
	EventID   *uuid.UUID     `json:"-" db:"event_id"`
	Type      string         `json:"type" db:"type"`
	Title     string         `json:"title" db:"title"`
	Message   *string        `json:"message,omitempty" db:"message"`
	Data      map[string]any `json:"data,omitempty" db:"data"`
	ActionURL *string        `json:"action_url,omitempty" db:"action_url"`
	Read      bool           `json:"read" db:"read"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// NotificationFilter narrows a notification listing.
type NotificationFilter struct {
	UnreadOnly bool
	Type       string
	Limit      int
	Offset     int
}

// NotificationPage is one page of a user's notifications plus counters.
type NotificationPage struct {
	Items       []Notification
	Total       int
	UnreadCount int
}
