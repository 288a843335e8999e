package models

import "github.com/google/uuid"

// SearchResult is one profile found within the search radius.
type SearchResult struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	DistanceKm float64   `json:"distance_km"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Image      string    `json:"image,omitempty"`
}

// SearchFilters narrows search results by profile fields. Zero values disable a filter.
type SearchFilters struct {
	Gender   string
	MinAge   int
	MaxAge   int
	Region   string
	District string
}

// NearbyQuery is a validated proximity query.
type NearbyQuery struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	Filters   SearchFilters
}

// NearbyResponse wraps search results for the HTTP adapter.
type NearbyResponse struct {
	RadiusKm float64        `json:"radius_km"`
	Count    int            `json:"count"`
	Results  []SearchResult `json:"results"`
}

// ProfileQuery is a validated request for one page of the filtered profile listing.
type ProfileQuery struct {
	Filters  SearchFilters
	Page     int
	PageSize int
}

// ProfileResult is one listed profile. Contact details are left out.
type ProfileResult struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Profile
}

// ProfilePage is one page of the filtered profile listing. Count is the total
// number of matching profiles across all pages.
type ProfilePage struct {
	Count    int             `json:"count"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Results  []ProfileResult `json:"results"`
}
