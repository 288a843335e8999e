package util

import (
	"encoding/json"
	"log"
	"net/http"

	"anketa-network/models"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Kind    models.Kind `json:"kind"`
	Message string      `json:"message"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind models.Kind) int {
	switch kind {
	case models.KindValidation, models.KindSelfRequest:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindAuthorization:
		return http.StatusForbidden
	case models.KindQuotaExceeded, models.KindRateLimited:
		return http.StatusTooManyRequests
	case models.KindNotPending, models.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// WriteError writes err as an ErrorBody. Errors without a kind are logged and
// reported as internal without their detail.
func WriteError(w http.ResponseWriter, err error) {
	kind := models.KindOf(err)
	msg := err.Error()
	if kind == models.KindInternal {
		log.Printf("Error handling request: %v", err)
		msg = "internal server error"
	}
	WriteJSON(w, StatusFor(kind), ErrorBody{Error: ErrorDetail{Kind: kind, Message: msg}})
}

// WriteErrorKind writes an error of the given kind and message.
func WriteErrorKind(w http.ResponseWriter, kind models.Kind, msg string) {
	WriteJSON(w, StatusFor(kind), ErrorBody{Error: ErrorDetail{Kind: kind, Message: msg}})
}
