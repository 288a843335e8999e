package middleware

import (
	"log"
	"net/http"

	"anketa-network/models"
	"anketa-network/util"

	"golang.org/x/crypto/bcrypt"
)

// AdminKeyHeader carries the operator key for administrative endpoints.
const AdminKeyHeader = "X-Admin-Key"

// AdminMiddleware admits requests whose admin key matches keyHash (bcrypt).
// With an empty hash every administrative request is refused.
func AdminMiddleware(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(AdminKeyHeader)
			if keyHash == "" || key == "" {
				util.WriteErrorKind(w, models.KindAuthorization, "admin key required")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
				log.Printf("AdminMiddleware: rejected admin key from %s for %s", r.RemoteAddr, r.URL.Path)
				util.WriteErrorKind(w, models.KindAuthorization, "invalid admin key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
