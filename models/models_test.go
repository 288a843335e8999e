package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDSet(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	var s IDSet
	assert.False(t, s.Has(a))
	assert.Equal(t, 0, s.Len())

	assert.True(t, s.Add(a))
	assert.False(t, s.Add(a), "second add is a no-op")
	assert.True(t, s.Add(b))
	assert.Equal(t, 2, s.Len())

	assert.True(t, s.Remove(a))
	assert.False(t, s.Remove(a))
	assert.False(t, s.Has(a))
	assert.True(t, s.Has(b))
}

func TestIDSetJSONIsSorted(t *testing.T) {
	ids := []uuid.UUID{
		uuid.MustParse("ffffffff-0000-0000-0000-000000000000"),
		uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		uuid.MustParse("88888888-0000-0000-0000-000000000000"),
	}
	s := NewIDSet(ids...)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["00000000-0000-0000-0000-000000000001","88888888-0000-0000-0000-000000000000","ffffffff-0000-0000-0000-000000000000"]`, string(data))

	var empty IDSet
	data, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	var back IDSet
	require.NoError(t, json.Unmarshal([]byte(`["00000000-0000-0000-0000-000000000001"]`), &back))
	assert.True(t, back.Has(ids[1]))
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("submit: %w", NewError(KindQuotaExceeded, "user has 0 requests left"))
	assert.True(t, errors.Is(err, ErrQuotaExceeded))
	assert.False(t, errors.Is(err, ErrSelfRequest))
	assert.Equal(t, KindQuotaExceeded, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.True(t, errors.Is(ErrInvalidCoordinates, ErrValidation))
}

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		in      string
		kind    IdentifierKind
		value   string
		wantErr bool
	}{
		{in: "Alice@Example.com", kind: IdentifierEmail, value: "alice@example.com"},
		{in: "  bob@example.org ", kind: IdentifierEmail, value: "bob@example.org"},
		{in: "+998 (90) 123-45-67", kind: IdentifierPhone, value: "+998901234567"},
		{in: "901234567", kind: IdentifierPhone, value: "901234567"},
		{in: "Alice <alice@example.com>", wantErr: true},
		{in: "12", wantErr: true},
		{in: "not-an-identifier", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			id, err := ParseIdentifier(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, KindValidation, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, id.Kind)
			assert.Equal(t, tt.value, id.Value)
		})
	}
}

func TestCoordinatesValidate(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	assert.NoError(t, Coordinates{}.Validate())
	assert.NoError(t, Coordinates{Latitude: f(41.3), Longitude: f(69.2)}.Validate())
	assert.Error(t, Coordinates{Latitude: f(41.3)}.Validate())
	assert.ErrorIs(t, Coordinates{Latitude: f(91), Longitude: f(0)}.Validate(), ErrInvalidCoordinates)
	assert.ErrorIs(t, Coordinates{Latitude: f(0), Longitude: f(math.Inf(1))}.Validate(), ErrInvalidCoordinates)
	assert.False(t, Coordinates{Latitude: f(1)}.Located())
}

func TestRelationshipRecordInvariants(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	rec := RelationshipRecord{UserID: a, Followers: NewIDSet(b), PendingIncoming: NewIDSet(b)}
	assert.Error(t, rec.Validate(), "follower and pending at once")

	rec = RelationshipRecord{UserID: a, Following: NewIDSet(a)}
	assert.Error(t, rec.Validate(), "self reference")

	ra := RelationshipRecord{UserID: a, Followers: NewIDSet(b)}
	rb := RelationshipRecord{UserID: b}
	assert.Error(t, CheckMutualConsistency(ra, rb))

	rb.Following = NewIDSet(a)
	assert.NoError(t, CheckMutualConsistency(ra, rb))
	assert.NoError(t, CheckMutualConsistency(rb, ra))
}

func TestCreateUserRequestNormalize(t *testing.T) {
	lat, lon := 41.31, 69.28
	req, err := CreateUserRequest{Name: " Ann ", Email: "Ann@Mail.com", Latitude: &lat, Longitude: &lon}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "Ann", req.Name)
	assert.Equal(t, "ann@mail.com", req.Email)

	_, err = CreateUserRequest{Name: "Ann"}.Normalize()
	assert.ErrorIs(t, err, ErrValidation)

	_, err = CreateUserRequest{Name: "Ann", Email: "+998901234567"}.Normalize()
	assert.ErrorIs(t, err, ErrValidation, "phone in the email field")
}
