package api

import (
	"net/http"
	"strconv"

	"anketa-network/models"
	"anketa-network/util"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

// GetNotificationsHandler retrieves notifications for the authenticated user
func (h *Handlers) GetNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	limit := defaultNotificationLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= maxNotificationLimit {
			limit = l
		}
	}

	notifications, err := h.Store.GetNotifications(r.Context(), userID, limit)
	if err != nil {
		util.WriteError(w, err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	util.WriteJSON(w, http.StatusOK, notifications)
}

// GetUnreadCountHandler returns the count of unread notifications
func (h *Handlers) GetUnreadCountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	count, err := h.Store.GetUnreadCount(r.Context(), userID)
	if err != nil {
		util.WriteError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, models.NotificationCount{UnreadCount: count})
}

// MarkNotificationAsReadHandler marks a specific notification as read
func (h *Handlers) MarkNotificationAsReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	notificationID, err := strconv.ParseInt(r.PathValue("notificationID"), 10, 64)
	if err != nil {
		util.WriteErrorKind(w, models.KindValidation, "invalid notification ID")
		return
	}

	if err := h.Store.MarkAsRead(r.Context(), notificationID, userID); err != nil {
		util.WriteError(w, err)
		return
	}
	h.Dispatcher.PushUnreadCount(r.Context(), userID)
	util.WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// MarkAllNotificationsAsReadHandler marks all notifications as read for the user
func (h *Handlers) MarkAllNotificationsAsReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	n, err := h.Store.MarkAllAsRead(r.Context(), userID)
	if err != nil {
		util.WriteError(w, err)
		return
	}
	h.Dispatcher.PushUnreadCount(r.Context(), userID)
	util.WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "marked": n})
}
