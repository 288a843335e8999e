package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"anketa-network/models"
	"anketa-network/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeDirectory map[uuid.UUID]models.Identity

func (f fakeDirectory) Lookup(_ context.Context, id uuid.UUID) (models.Identity, error) {
	identity, ok := f[id]
	if !ok {
		return models.Identity{}, models.ErrNotFound
	}
	return identity, nil
}

func echoUser(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(id.String()))
	})
}

func TestAuthMiddleware(t *testing.T) {
	tokens := util.NewTokenIssuer(testSecret, time.Hour)
	active, inactive, gone := uuid.New(), uuid.New(), uuid.New()
	dir := fakeDirectory{
		active:   {ID: active, Active: true},
		inactive: {ID: inactive, Active: false},
	}
	handler := AuthMiddleware(tokens, dir)(echoUser(t))

	issue := func(id uuid.UUID) string {
		tok, _, err := tokens.Issue(id)
		require.NoError(t, err)
		return tok
	}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + issue(active), http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized},
		{"unknown user", "Bearer " + issue(gone), http.StatusUnauthorized},
		{"deactivated", "Bearer " + issue(inactive), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/me/quota", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, r)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, active.String(), rec.Body.String())
			}
		})
	}
}

func TestAdminMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("operator-key"), bcrypt.MinCost)
	require.NoError(t, err)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	serve := func(keyHash, key string) int {
		r := httptest.NewRequest(http.MethodPost, "/admin/quota/replenish", nil)
		if key != "" {
			r.Header.Set(AdminKeyHeader, key)
		}
		rec := httptest.NewRecorder()
		AdminMiddleware(keyHash)(ok).ServeHTTP(rec, r)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, serve(string(hash), "operator-key"))
	assert.Equal(t, http.StatusForbidden, serve(string(hash), "guess"))
	assert.Equal(t, http.StatusForbidden, serve(string(hash), ""))
	assert.Equal(t, http.StatusForbidden, serve("", "operator-key"), "no hash configured")
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	call := func(addr string) int {
		r := httptest.NewRequest(http.MethodGet, "/search/nearby", nil)
		r.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:1002"), "same host shares a bucket")
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000"))
}

func TestRateLimiterKeysByUser(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	a, b := uuid.New(), uuid.New()

	reqFor := func(id uuid.UUID) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		return r.WithContext(context.WithValue(r.Context(), UserIDKey, id))
	}

	assert.Equal(t, "user:"+a.String(), callerKey(reqFor(a)))
	assert.True(t, rl.Allow(callerKey(reqFor(a))))
	assert.False(t, rl.Allow(callerKey(reqFor(a))))
	assert.True(t, rl.Allow(callerKey(reqFor(b))))
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	assert.Equal(t, time.Minute, rl.idle, "refill time below the floor")
	assert.Equal(t, 2000*time.Second, NewRateLimiter(0.001, 2).idle)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.lastSweep = now

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	for i := 0; i < 100; i++ {
		rl.Allow("addr:10.0.0." + strconv.Itoa(i))
	}
	assert.Len(t, rl.buckets, 101)

	now = now.Add(30 * time.Second)
	assert.True(t, rl.Allow("busy"))
	assert.Len(t, rl.buckets, 102, "no sweep before the idle window has passed")

	now = now.Add(40 * time.Second)
	assert.True(t, rl.Allow("a"))
	assert.Len(t, rl.buckets, 2, "only buckets seen in the last window survive")
	assert.Contains(t, rl.buckets, "busy")
}

func TestLoggingMiddlewareRecordsStatus(t *testing.T) {
	var seen *statusRecorder
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.(*statusRecorder)
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, http.StatusTeapot, seen.status)

	_, _, err := seen.Hijack()
	assert.Error(t, err, "recorder cannot be hijacked")
}
