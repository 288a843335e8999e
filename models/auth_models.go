package models

import (
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Coordinates holds an optional geographic position. A nil field means the position is unknown.
type Coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Located reports whether both coordinates are present.
func (c Coordinates) Located() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// Validate checks that present coordinates are finite and within range.
// A half-set pair is rejected; either both are given or neither.
func (c Coordinates) Validate() error {
	if (c.Latitude == nil) != (c.Longitude == nil) {
		return NewError(KindValidation, "latitude and longitude must be provided together")
	}
	if !c.Located() {
		return nil
	}
	if !ValidLatitude(*c.Latitude) || !ValidLongitude(*c.Longitude) {
		return ErrInvalidCoordinates
	}
	return nil
}

func ValidLatitude(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -90 && v <= 90
}

func ValidLongitude(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -180 && v <= 180
}

// Profile carries the descriptive fields used by search filters.
type Profile struct {
	BirthYear *int   `json:"birth_year,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Region    string `json:"region,omitempty"`
	District  string `json:"district,omitempty"`
	ImageURL  string `json:"image,omitempty"` // primary image reference
}

// Identity is a user as seen by the directory.
type Identity struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	Active      bool        `json:"is_active"`
	Coordinates Coordinates `json:"coordinates"`
	Profile     Profile     `json:"profile"`
	CreatedAt   time.Time   `json:"created_at"`
}

// LocatedProfile is an active identity with both coordinates present.
type LocatedProfile struct {
	ID        uuid.UUID
	Name      string
	Latitude  float64
	Longitude float64
	Profile   Profile
}

// IdentifierKind tells which channel an Identifier belongs to.
type IdentifierKind int

const (
	IdentifierEmail IdentifierKind = iota + 1
	IdentifierPhone
)

func (k IdentifierKind) String() string {
	switch k {
	case IdentifierEmail:
		return "email"
	case IdentifierPhone:
		return "phone"
	}
	return "unknown"
}

// Identifier is an email address or a phone number, decided once by ParseIdentifier.
type Identifier struct {
	Kind  IdentifierKind
	Value string
}

func EmailIdentifier(addr string) Identifier { return Identifier{Kind: IdentifierEmail, Value: addr} }
func PhoneIdentifier(num string) Identifier  { return Identifier{Kind: IdentifierPhone, Value: num} }

func (id Identifier) String() string {
	return fmt.Sprintf("%s:%s", id.Kind, id.Value)
}

// ParseIdentifier classifies raw input as an email address or a phone number and
// returns it normalised: lower-cased addresses, phone numbers reduced to an optional
// leading '+' followed by digits.
func ParseIdentifier(raw string) (Identifier, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identifier{}, NewError(KindValidation, "identifier is required")
	}
	if addr, err := mail.ParseAddress(raw); err == nil && addr.Name == "" && addr.Address == raw {
		return EmailIdentifier(strings.ToLower(addr.Address)), nil
	}
	if num, ok := normalizePhone(raw); ok {
		return PhoneIdentifier(num), nil
	}
	return Identifier{}, NewError(KindValidation, "identifier %q is neither an email address nor a phone number", raw)
}

func normalizePhone(raw string) (string, bool) {
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", false
		}
	}
	num := b.String()
	digits := len(strings.TrimPrefix(num, "+"))
	if digits < 7 || digits > 15 {
		return "", false
	}
	return num, true
}

// CreateUserRequest defines the body accepted by the admin directory endpoint.
type CreateUserRequest struct {
	Name      string   `json:"name"`
	Email     string   `json:"email,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	BirthYear *int     `json:"birth_year,omitempty"`
	Gender    string   `json:"gender,omitempty"`
	Region    string   `json:"region,omitempty"`
	District  string   `json:"district,omitempty"`
	Image     string   `json:"image,omitempty"`
}

// Normalize validates the request and returns it with parsed identifiers substituted.
func (r CreateUserRequest) Normalize() (CreateUserRequest, error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return r, NewError(KindValidation, "name is required")
	}
	if r.Email == "" && r.Phone == "" {
		return r, NewError(KindValidation, "email or phone is required")
	}
	if r.Email != "" {
		id, err := ParseIdentifier(r.Email)
		if err != nil || id.Kind != IdentifierEmail {
			return r, NewError(KindValidation, "invalid email %q", r.Email)
		}
		r.Email = id.Value
	}
	if r.Phone != "" {
		id, err := ParseIdentifier(r.Phone)
		if err != nil || id.Kind != IdentifierPhone {
			return r, NewError(KindValidation, "invalid phone %q", r.Phone)
		}
		r.Phone = id.Value
	}
	if err := (Coordinates{Latitude: r.Latitude, Longitude: r.Longitude}).Validate(); err != nil {
		return r, err
	}
	if r.BirthYear != nil && (*r.BirthYear < 1900 || *r.BirthYear > time.Now().Year()) {
		return r, NewError(KindValidation, "birth_year out of range")
	}
	return r, nil
}

// LocationUpdateRequest is the body of PUT /me/location.
type LocationUpdateRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// TokenResponse is returned when a token is issued for an identity.
type TokenResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
