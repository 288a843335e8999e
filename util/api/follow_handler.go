package api

import (
	"net/http"

	"anketa-network/models"
	"anketa-network/util"
)

// RequestFollowUserHandler submits a follow request from the authenticated user.
// POST /users/{targetUserID}/follow
func (h *Handlers) RequestFollowUserHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, ok := actingUser(w, r)
	if !ok {
		return
	}
	targetUserID, ok := pathUserID(w, r, "targetUserID")
	if !ok {
		return
	}

	result, err := h.Follow.SubmitRequest(r.Context(), currentUserID, targetUserID)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if result.Status == models.StatusSent || result.Status == models.StatusMutualMatch {
		status = http.StatusCreated
	}
	util.WriteJSON(w, status, result)
}

// GetPendingFollowRequestsHandler lists the requests waiting for the authenticated user.
// GET /follow-requests
func (h *Handlers) GetPendingFollowRequestsHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, ok := actingUser(w, r)
	if !ok {
		return
	}
	list, err := h.Follow.ListPendingIncoming(r.Context(), currentUserID, currentUserID)
	if err != nil {
		util.WriteError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, list)
}

// HandleFollowRequestHandler accepts or declines a pending request made by {requesterID}
// to the authenticated user.
// PATCH /follow-requests/{requesterID}
func (h *Handlers) HandleFollowRequestHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, ok := actingUser(w, r)
	if !ok {
		return
	}
	requesterID, ok := pathUserID(w, r, "requesterID")
	if !ok {
		return
	}

	var req models.FollowRequestAction
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		util.WriteError(w, err)
		return
	}

	var (
		result models.ResolveResult
		err    error
	)
	if req.Action == models.ActionAccept {
		result, err = h.Follow.AcceptPendingRequest(r.Context(), currentUserID, requesterID, currentUserID)
	} else {
		result, err = h.Follow.DeclinePendingRequest(r.Context(), currentUserID, requesterID, currentUserID)
	}
	if err != nil {
		util.WriteError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, result)
}

// GetRelationshipsHandler returns a user's followers and following. Pending requests
// are only shown to their recipient.
// GET /users/{userID}/relationships
func (h *Handlers) GetRelationshipsHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, ok := actingUser(w, r)
	if !ok {
		return
	}
	userID, ok := pathUserID(w, r, "userID")
	if !ok {
		return
	}

	rec, err := h.Follow.Relationships(r.Context(), userID)
	if err != nil {
		util.WriteError(w, err)
		return
	}
	if userID != currentUserID {
		rec.PendingIncoming = models.IDSet{}
	}
	util.WriteJSON(w, http.StatusOK, rec)
}

// GetQuotaHandler returns the authenticated user's remaining request allowance.
// GET /me/quota
func (h *Handlers) GetQuotaHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, ok := actingUser(w, r)
	if !ok {
		return
	}
	quota, err := h.Follow.Quota(r.Context(), currentUserID)
	if err != nil {
		util.WriteError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, quota)
}
