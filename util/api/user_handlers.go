package api

import (
	"log"
	"net/http"

	"anketa-network/models"
	"anketa-network/util"
)

// GET /me - the authenticated user's identity
func (h *Handlers) WhoAmIHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	identity, err := h.Store.Lookup(r.Context(), userID)
	if err != nil {
		util.WriteError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, identity)
}

// PUT /me/location - set or clear the authenticated user's coordinates.
// Sending both fields as null removes the user from proximity search.
func (h *Handlers) UpdateLocationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var req models.LocationUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	identity, err := h.Store.UpdateLocation(r.Context(), userID, models.Coordinates{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		util.WriteError(w, err)
		return
	}
	log.Printf("User %s updated location (located: %t)", userID, identity.Coordinates.Located())
	util.WriteJSON(w, http.StatusOK, identity)
}
