// Package proximity finds profiles within a radius of a coordinate and lists
// profiles by their fields.
package proximity

import (
	"cmp"
	"context"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"anketa-network/models"
)

// DefaultRadiusKm is used when a query does not name a radius.
const DefaultRadiusKm = 5.0

// Directory supplies the profiles that can appear in search results.
type Directory interface {
	LocatedProfiles(ctx context.Context) ([]models.LocatedProfile, error)
	// ActiveProfiles returns every active identity, located or not.
	ActiveProfiles(ctx context.Context) ([]models.Identity, error)
}

// Engine scans every located profile and keeps those within the query radius.
type Engine struct {
	directory     Directory
	defaultRadius float64
	maxRadius     float64
	now           func() time.Time
}

// NewEngine returns an Engine. Non-positive radii fall back to DefaultRadiusKm and no upper bound.
func NewEngine(directory Directory, defaultRadiusKm, maxRadiusKm float64) *Engine {
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = DefaultRadiusKm
	}
	if maxRadiusKm <= 0 {
		maxRadiusKm = math.Inf(1)
	}
	return &Engine{directory: directory, defaultRadius: defaultRadiusKm, maxRadius: maxRadiusKm, now: time.Now}
}

// DefaultRadius is the radius applied to queries that do not name one.
func (e *Engine) DefaultRadius() float64 { return e.defaultRadius }

// SetClock replaces the time source used to compute ages.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// FindNearby returns the profiles within radiusKm of (lat, lon), nearest first.
// Distances are compared unrounded and reported to two decimals.
func (e *Engine) FindNearby(ctx context.Context, q models.NearbyQuery) ([]models.SearchResult, error) {
	if !models.ValidLatitude(q.Latitude) || !models.ValidLongitude(q.Longitude) {
		return nil, models.ErrInvalidCoordinates
	}
	if q.RadiusKm == 0 {
		q.RadiusKm = e.defaultRadius
	}
	if err := e.checkRadius(q.RadiusKm); err != nil {
		return nil, err
	}

	profiles, err := e.directory.LocatedProfiles(ctx)
	if err != nil {
		return nil, err
	}

	type hit struct {
		result   models.SearchResult
		distance float64
	}
	year := e.now().Year()
	var hits []hit
	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !matches(p.Profile, q.Filters, year) {
			continue
		}
		d := Haversine(q.Latitude, q.Longitude, p.Latitude, p.Longitude)
		if d > q.RadiusKm {
			continue
		}
		hits = append(hits, hit{
			distance: d,
			result: models.SearchResult{
				ID:         p.ID,
				Name:       p.Name,
				DistanceKm: round2(d),
				Latitude:   p.Latitude,
				Longitude:  p.Longitude,
				Image:      p.Profile.ImageURL,
			},
		})
	}

	slices.SortFunc(hits, func(a, b hit) int {
		if c := cmp.Compare(a.distance, b.distance); c != 0 {
			return c
		}
		return strings.Compare(a.result.ID.String(), b.result.ID.String())
	})

	results := make([]models.SearchResult, len(hits))
	for i, h := range hits {
		results[i] = h.result
	}
	return results, nil
}

func (e *Engine) checkRadius(r float64) error {
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return models.NewError(models.KindValidation, "radius must be a positive number of kilometres")
	}
	if r > e.maxRadius {
		return models.NewError(models.KindValidation, "radius must not exceed %g km", e.maxRadius)
	}
	return nil
}

func matches(p models.Profile, f models.SearchFilters, year int) bool {
	if f.Gender != "" && !strings.EqualFold(p.Gender, f.Gender) {
		return false
	}
	if f.Region != "" && !strings.EqualFold(p.Region, f.Region) {
		return false
	}
	if f.District != "" && !strings.EqualFold(p.District, f.District) {
		return false
	}
	if f.MinAge > 0 || f.MaxAge > 0 {
		if p.BirthYear == nil {
			return false
		}
		age := year - *p.BirthYear
		if f.MinAge > 0 && age < f.MinAge {
			return false
		}
		if f.MaxAge > 0 && age > f.MaxAge {
			return false
		}
	}
	return true
}

// ParseQuery reads lat, lon, radius and the optional filters from URL query values.
// Missing or malformed coordinates are reported as invalid coordinates.
func ParseQuery(v url.Values) (models.NearbyQuery, error) {
	var q models.NearbyQuery
	var err error
	if q.Latitude, err = parseFinite(v.Get("lat")); err != nil {
		return q, models.ErrInvalidCoordinates
	}
	if q.Longitude, err = parseFinite(v.Get("lon")); err != nil {
		return q, models.ErrInvalidCoordinates
	}
	if !models.ValidLatitude(q.Latitude) || !models.ValidLongitude(q.Longitude) {
		return q, models.ErrInvalidCoordinates
	}
	if raw := v.Get("radius"); raw != "" {
		if q.RadiusKm, err = parseFinite(raw); err != nil || q.RadiusKm <= 0 {
			return q, models.NewError(models.KindValidation, "radius must be a positive number of kilometres")
		}
	}

	q.Filters, err = parseFilters(v)
	return q, err
}

// parseFilters reads gender, region, district, min_age and max_age.
func parseFilters(v url.Values) (models.SearchFilters, error) {
	var f models.SearchFilters
	var err error
	f.Gender = strings.TrimSpace(v.Get("gender"))
	f.Region = strings.TrimSpace(v.Get("region"))
	f.District = strings.TrimSpace(v.Get("district"))
	if f.MinAge, err = parseAge(v.Get("min_age")); err != nil {
		return f, models.NewError(models.KindValidation, "min_age must be a non-negative integer")
	}
	if f.MaxAge, err = parseAge(v.Get("max_age")); err != nil {
		return f, models.NewError(models.KindValidation, "max_age must be a non-negative integer")
	}
	if f.MaxAge > 0 && f.MinAge > f.MaxAge {
		return f, models.NewError(models.KindValidation, "min_age must not exceed max_age")
	}
	return f, nil
}

func parseFinite(raw string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrRange
	}
	return f, nil
}

func parseAge(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
