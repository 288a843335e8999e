package api

import (
	"log"
	"net/http"

	"anketa-network/models"
	"anketa-network/util"
)

// CreateUserHandler adds an identity to the directory.
// POST /admin/users
func (h *Handlers) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	identity, err := h.Store.CreateUser(r.Context(), req)
	if err != nil {
		util.WriteError(w, err)
		return
	}
	log.Printf("Created user %s", identity.ID)
	util.WriteJSON(w, http.StatusCreated, identity)
}

// LookupUserHandler resolves an email address or phone number to an identity.
// GET /admin/users/lookup?identifier=..
func (h *Handlers) LookupUserHandler(w http.ResponseWriter, r *http.Request) {
	ident, err := models.ParseIdentifier(r.URL.Query().Get("identifier"))
	if err != nil {
		util.WriteError(w, err)
		return
	}
	identity, err := h.Store.FindByIdentifier(r.Context(), ident)
	if err != nil {
		util.WriteError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, identity)
}

// IssueTokenHandler signs an identity token for an active user.
// POST /admin/users/{userID}/token
func (h *Handlers) IssueTokenHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r, "userID")
	if !ok {
		return
	}
	identity, err := h.Store.Lookup(r.Context(), userID)
	if err != nil {
		util.WriteError(w, err)
		return
	}
	if !identity.Active {
		util.WriteErrorKind(w, models.KindAuthorization, "account is deactivated")
		return
	}

	token, expires, err := h.Tokens.Issue(userID)
	if err != nil {
		util.WriteError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, models.TokenResponse{UserID: userID, Token: token, ExpiresAt: expires})
}

// SetActiveHandler activates or deactivates an identity.
// PATCH /admin/users/{userID}/active
func (h *Handlers) SetActiveHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r, "userID")
	if !ok {
		return
	}
	var req struct {
		Active *bool `json:"is_active"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Active == nil {
		util.WriteErrorKind(w, models.KindValidation, "is_active is required")
		return
	}
	if err := h.Store.SetActive(r.Context(), userID, *req.Active); err != nil {
		util.WriteError(w, err)
		return
	}
	log.Printf("Set user %s active=%t", userID, *req.Active)
	identity, err := h.Store.Lookup(r.Context(), userID)
	if err != nil {
		util.WriteError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, identity)
}

// ReplenishUserQuotaHandler resets one user's allowance to the daily limit.
// POST /admin/users/{userID}/quota/replenish
func (h *Handlers) ReplenishUserQuotaHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r, "userID")
	if !ok {
		return
	}
	quota, err := h.Follow.ReplenishQuota(r.Context(), userID)
	if err != nil {
		util.WriteError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, quota)
}

// ReplenishDueHandler resets every quota not replenished within the reset interval.
// POST /admin/quotas/replenish
func (h *Handlers) ReplenishDueHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Follow.ReplenishDue(r.Context(), h.now().Add(-h.ResetInterval))
	if err != nil {
		util.WriteError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, summary)
}
