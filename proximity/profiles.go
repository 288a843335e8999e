package proximity

import (
	"cmp"
	"context"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"anketa-network/models"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 30
	MaxPageSize     = 100
	// ListingMaxAge is the upper age bound of the profile listing when the query sets none.
	ListingMaxAge = 100
)

// FilterProfiles returns one page of the active profiles matching q, ordered by
// name and then ID. The acting user never appears in the listing. Because the
// listing always has an age range, profiles without a birth year are left out.
// A page past the last one is empty.
func (e *Engine) FilterProfiles(ctx context.Context, acting uuid.UUID, q models.ProfileQuery) (models.ProfilePage, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	if q.Page < 1 || q.PageSize < 1 {
		return models.ProfilePage{}, models.NewError(models.KindValidation, "page and page_size must be positive")
	}
	q.PageSize = min(q.PageSize, MaxPageSize)
	if q.Filters.MaxAge == 0 {
		q.Filters.MaxAge = ListingMaxAge
	}

	identities, err := e.directory.ActiveProfiles(ctx)
	if err != nil {
		return models.ProfilePage{}, err
	}

	year := e.now().Year()
	var matched []models.ProfileResult
	for _, ident := range identities {
		if err := ctx.Err(); err != nil {
			return models.ProfilePage{}, err
		}
		if ident.ID == acting || !matches(ident.Profile, q.Filters, year) {
			continue
		}
		matched = append(matched, models.ProfileResult{ID: ident.ID, Name: ident.Name, Profile: ident.Profile})
	}

	slices.SortFunc(matched, func(a, b models.ProfileResult) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	page := models.ProfilePage{Count: len(matched), Page: q.Page, PageSize: q.PageSize, Results: []models.ProfileResult{}}
	start := (q.Page - 1) * q.PageSize
	if start < len(matched) {
		end := min(start+q.PageSize, len(matched))
		page.Results = matched[start:end]
	}
	return page, nil
}

// ParseProfileQuery reads the listing filters and page, page_size from URL query values.
func ParseProfileQuery(v url.Values) (models.ProfileQuery, error) {
	var q models.ProfileQuery
	var err error
	if q.Filters, err = parseFilters(v); err != nil {
		return q, err
	}
	if q.Page, err = parsePositive(v.Get("page")); err != nil {
		return q, models.NewError(models.KindValidation, "page must be a positive integer")
	}
	if q.PageSize, err = parsePositive(v.Get("page_size")); err != nil {
		return q, models.NewError(models.KindValidation, "page_size must be a positive integer")
	}
	return q, nil
}

func parsePositive(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
