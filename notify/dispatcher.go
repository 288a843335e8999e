package notify

import (
	"context"
	"log"

	"anketa-network/models"

	"github.com/google/uuid"
)

// Store persists notifications.
type Store interface {
	CreateNotification(ctx context.Context, req models.CreateNotificationRequest) (models.Notification, error)
	GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
}

// Dispatcher turns engine events into stored notifications and live pushes.
// Failures are logged; the relationship change they describe has already committed.
type Dispatcher struct {
	store Store
	hub   *Hub
}

func NewDispatcher(store Store, hub *Hub) *Dispatcher {
	return &Dispatcher{store: store, hub: hub}
}

// Notify implements follow.Notifier.
func (d *Dispatcher) Notify(ctx context.Context, ev models.Event) {
	req := models.CreateNotificationRequest{
		UserID:  ev.Recipient,
		Type:    ev.Type,
		ActorID: ev.Actor,
	}
	switch ev.Type {
	case models.NotificationFollowRequest:
		req.Title = "New Follow Request"
		req.Message = ev.ActorName + " wants to follow you"
	case models.NotificationMutualMatch:
		req.Title = "It's a Match"
		req.Message = "You and " + ev.ActorName + " now follow each other"
	case models.NotificationFollowAccepted:
		req.Title = "Follow Request Accepted"
		req.Message = ev.ActorName + " accepted your follow request"
	default:
		log.Printf("Error: unknown event type %q for user %s", ev.Type, ev.Recipient)
		return
	}

	n, err := d.store.CreateNotification(ctx, req)
	if err != nil {
		log.Printf("Error creating %s notification for user %s: %v", ev.Type, ev.Recipient, err)
		return
	}
	if d.hub == nil {
		return
	}
	if d.hub.SendToUser(ev.Recipient, ev.Type, n) {
		log.Printf("Broadcasted %s notification to user %s via WebSocket", ev.Type, ev.Recipient)
	}
	d.PushUnreadCount(ctx, ev.Recipient)
}

// PushUnreadCount sends the user's current unread count over the socket.
func (d *Dispatcher) PushUnreadCount(ctx context.Context, userID uuid.UUID) {
	if d.hub == nil || !d.hub.IsOnline(userID) {
		return
	}
	count, err := d.store.GetUnreadCount(ctx, userID)
	if err != nil {
		log.Printf("Error getting unread count for user %s: %v", userID, err)
		return
	}
	d.hub.SendToUser(userID, "notification_count_update", models.NotificationCount{UnreadCount: count})
}
