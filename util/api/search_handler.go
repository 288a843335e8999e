package api

import (
	"net/http"

	"anketa-network/models"
	"anketa-network/proximity"
	"anketa-network/util"
)

// SearchNearbyHandler finds located profiles around a coordinate.
// GET /search/nearby?lat=..&lon=..&radius=..&gender=..&min_age=..&max_age=..&region=..
func (h *Handlers) SearchNearbyHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := actingUser(w, r); !ok {
		return
	}
	q, err := proximity.ParseQuery(r.URL.Query())
	if err != nil {
		util.WriteError(w, err)
		return
	}
	if q.RadiusKm == 0 {
		q.RadiusKm = h.Search.DefaultRadius()
	}

	results, err := h.Search.FindNearby(r.Context(), q)
	if err != nil {
		util.WriteError(w, err)
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	util.WriteJSON(w, http.StatusOK, models.NearbyResponse{
		RadiusKm: q.RadiusKm,
		Count:    len(results),
		Results:  results,
	})
}

// FilterProfilesHandler lists active profiles by their fields, one page at a time.
// GET /search/profiles?gender=..&min_age=..&max_age=..&region=..&district=..&page=..&page_size=..
func (h *Handlers) FilterProfilesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	q, err := proximity.ParseProfileQuery(r.URL.Query())
	if err != nil {
		util.WriteError(w, err)
		return
	}
	page, err := h.Search.FilterProfiles(r.Context(), userID, q)
	if err != nil {
		util.WriteError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, page)
}
