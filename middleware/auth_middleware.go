package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"

	"anketa-network/models"
	"anketa-network/util"

	"github.com/google/uuid"
)

// UserIDKey is the key used to store the acting user's ID in the request context.
type UserIDKeyType string

const UserIDKey UserIDKeyType = "userID"

// IdentityLookup resolves the user a token was issued for.
type IdentityLookup interface {
	Lookup(ctx context.Context, id uuid.UUID) (models.Identity, error)
}

// AuthMiddleware requires a valid identity token for an existing, active user and
// stores the user's ID in the request context.
func AuthMiddleware(tokens *util.TokenIssuer, directory IdentityLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := util.TokenFromRequest(r)
			if err != nil {
				unauthorized(w, r, err)
				return
			}
			userID, err := tokens.Parse(raw)
			if err != nil {
				unauthorized(w, r, err)
				return
			}

			identity, err := directory.Lookup(r.Context(), userID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					unauthorized(w, r, err)
					return
				}
				util.WriteError(w, err)
				return
			}
			if !identity.Active {
				util.WriteErrorKind(w, models.KindAuthorization, "account is deactivated")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("AuthMiddleware: unauthorized access from %s to %s: %v", r.RemoteAddr, r.URL.Path, err)
	util.WriteJSON(w, http.StatusUnauthorized, util.ErrorBody{Error: util.ErrorDetail{
		Kind:    models.KindAuthorization,
		Message: "a valid identity token is required",
	}})
}

// UserIDFromContext returns the authenticated user stored by AuthMiddleware.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return id, ok
}
