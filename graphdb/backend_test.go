package graphdb

import (
	"testing"
	"time"

	"anketa-network/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewBackendDefaultsLimit(t *testing.T) {
	b := NewBackend(nil, 0)
	assert.Equal(t, models.DefaultDailyLimit, b.dailyLimit)
	assert.Equal(t, 7, NewBackend(nil, 7).dailyLimit)
}

func TestQuotaParams(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	u := &unit{dailyLimit: 9, now: func() time.Time { return at }}
	id := uuid.New()

	p := u.quotaParams(id)
	assert.Equal(t, id.String(), p["user"])
	assert.Equal(t, int64(9), p["limit"])
	assert.Equal(t, at.Unix(), p["now"])
}

func TestLockOrderIsStable(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("ffffffff-0000-0000-0000-000000000000")

	want := []string{a.String(), b.String()}
	assert.Equal(t, want, lockOrder(a, b))
	assert.Equal(t, want, lockOrder(b, a))
}

func TestRelationshipsQueryIsAnchored(t *testing.T) {
	assert.Contains(t, relationshipsQuery, "(u:User {id: $user})")
	assert.NotContains(t, relationshipsQuery, " OR ")
}
