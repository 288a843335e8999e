package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification types emitted by the follow request engine.
const (
	NotificationFollowRequest  = "follow_request"
	NotificationMutualMatch    = "mutual_match"
	NotificationFollowAccepted = "follow_accepted"
)

// Notification represents a notification in the system
type Notification struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"user_id"` // Who receives the notification
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	ActorID   uuid.UUID `json:"actor_id"` // Who triggered the notification
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationCount represents unread notification count
type NotificationCount struct {
	UnreadCount int `json:"unread_count"`
}

// Event is a relationship change to be delivered to Recipient once its unit of work commits.
type Event struct {
	Type      string
	Recipient uuid.UUID
	Actor     uuid.UUID
	ActorName string
}

// CreateNotificationRequest represents request to create a notification
type CreateNotificationRequest struct {
	UserID  uuid.UUID
	Type    string
	Title   string
	Message string
	ActorID uuid.UUID
}
