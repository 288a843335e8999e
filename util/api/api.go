// Package api is the HTTP adapter over the follow, proximity and notification engines.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"anketa-network/database"
	"anketa-network/follow"
	"anketa-network/middleware"
	"anketa-network/models"
	"anketa-network/notify"
	"anketa-network/proximity"
	"anketa-network/util"

	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

// Handlers holds the collaborators every endpoint needs.
type Handlers struct {
	Follow         *follow.Engine
	Search         *proximity.Engine
	Store          *database.Store
	Dispatcher     *notify.Dispatcher
	Hub            *notify.Hub
	Tokens         *util.TokenIssuer
	Limiter        *middleware.RateLimiter // nil disables rate limiting
	AdminKeyHash   string
	AllowedOrigins []string
	ResetInterval  time.Duration
	PongWait       time.Duration // zero uses 60s
	Now            func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Routes registers every endpoint on mux.
func (h *Handlers) Routes(mux *http.ServeMux) {
	auth := middleware.AuthMiddleware(h.Tokens, h.Store)
	authed := func(fn http.HandlerFunc) http.Handler { return auth(fn) }
	limited := func(fn http.HandlerFunc) http.Handler {
		if h.Limiter == nil {
			return auth(fn)
		}
		return auth(h.Limiter.Middleware(fn))
	}
	admin := func(fn http.HandlerFunc) http.Handler { return middleware.AdminMiddleware(h.AdminKeyHash)(fn) }

	mux.Handle("GET /ws", authed(h.WebSocketHandler))

	// Follow requests
	mux.Handle("POST /users/{targetUserID}/follow", limited(h.RequestFollowUserHandler))
	mux.Handle("GET /follow-requests", authed(h.GetPendingFollowRequestsHandler))
	mux.Handle("PATCH /follow-requests/{requesterID}", authed(h.HandleFollowRequestHandler))
	mux.Handle("GET /users/{userID}/relationships", authed(h.GetRelationshipsHandler))
	mux.Handle("GET /me/quota", authed(h.GetQuotaHandler))

	// Profile and search
	mux.Handle("GET /me", authed(h.WhoAmIHandler))
	mux.Handle("PUT /me/location", authed(h.UpdateLocationHandler))
	mux.Handle("GET /search/nearby", limited(h.SearchNearbyHandler))
	mux.Handle("GET /search/profiles", limited(h.FilterProfilesHandler))

	// Notifications
	mux.Handle("GET /notifications", authed(h.GetNotificationsHandler))
	mux.Handle("GET /notifications/unread-count", authed(h.GetUnreadCountHandler))
	mux.Handle("PATCH /notifications/{notificationID}/read", authed(h.MarkNotificationAsReadHandler))
	mux.Handle("POST /notifications/mark-all-read", authed(h.MarkAllNotificationsAsReadHandler))

	// Administration
	mux.Handle("POST /admin/users", admin(h.CreateUserHandler))
	mux.Handle("GET /admin/users/lookup", admin(h.LookupUserHandler))
	mux.Handle("POST /admin/users/{userID}/token", admin(h.IssueTokenHandler))
	mux.Handle("PATCH /admin/users/{userID}/active", admin(h.SetActiveHandler))
	mux.Handle("POST /admin/users/{userID}/quota/replenish", admin(h.ReplenishUserQuotaHandler))
	mux.Handle("POST /admin/quotas/replenish", admin(h.ReplenishDueHandler))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		util.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "online": h.Hub.OnlineCount()})
	})
}

// actingUser returns the authenticated user. AuthMiddleware guarantees it is present.
func actingUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		util.WriteJSON(w, http.StatusUnauthorized, util.ErrorBody{Error: util.ErrorDetail{
			Kind: models.KindAuthorization, Message: "unauthorized",
		}})
	}
	return id, ok
}

func pathUserID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		util.WriteErrorKind(w, models.KindValidation, "invalid user ID in URL path")
		return uuid.Nil, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		msg := "invalid request body"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		util.WriteErrorKind(w, models.KindValidation, msg)
		return false
	}
	return true
}
