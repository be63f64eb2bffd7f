package query

import (
	"sort"
	"strings"

	"dealer-inventory/pkg/models"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Result is one page of a filtered, sorted listing set.
type Result struct {
	Listings   []models.Listing
	Total      int
	Page       int
	PerPage    int
	TotalPages int
}

// Engine filters, sorts and paginates snapshots. It holds no state beyond
// its page size limits.
type Engine struct {
	defaultPerPage int
	maxPerPage     int
}

// New creates an Engine. Non-positive limits take defaults.
func New(defaultPerPage, maxPerPage int) *Engine {
	if maxPerPage <= 0 {
		maxPerPage = MaxPerPage
	}
	if defaultPerPage <= 0 || defaultPerPage > maxPerPage {
		defaultPerPage = min(DefaultPerPage, maxPerPage)
	}
	return &Engine{defaultPerPage: defaultPerPage, maxPerPage: maxPerPage}
}

// Apply runs criteria with the default page size limits.
func Apply(listings []models.Listing, criteria models.QueryCriteria) Result {
	return New(DefaultPerPage, MaxPerPage).Apply(listings, criteria)
}

// Apply returns the requested page and the size of the full filtered set.
// The input slice is never reordered.
func (e *Engine) Apply(listings []models.Listing, criteria models.QueryCriteria) Result {
	page, perPage := e.clamp(criteria.Page, criteria.PerPage)

	matched := make([]models.Listing, 0, len(listings))
	m := newMatcher(criteria)
	for _, l := range listings {
		if m.match(l) {
			matched = append(matched, l)
		}
	}

	sortListings(matched, criteria.Sort)

	total := len(matched)
	result := Result{
		Listings:   []models.Listing{},
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: (total + perPage - 1) / perPage,
	}

	start := (page - 1) * perPage
	if start >= total {
		return result
	}
	end := min(start+perPage, total)
	result.Listings = matched[start:end]
	return result
}

func (e *Engine) clamp(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = e.defaultPerPage
	}
	if perPage > e.maxPerPage {
		perPage = e.maxPerPage
	}
	return page, perPage
}

type matcher struct {
	model    string
	search   string
	year     int
	priceMin int
	priceMax int
}

func newMatcher(c models.QueryCriteria) matcher {
	return matcher{
		model:    strings.ToLower(strings.TrimSpace(c.Model)),
		search:   strings.ToLower(strings.TrimSpace(c.Search)),
		year:     c.Year,
		priceMin: c.PriceMin,
		priceMax: c.PriceMax,
	}
}

func (m matcher) match(l models.Listing) bool {
	if m.model != "" && !strings.Contains(strings.ToLower(l.Model), m.model) {
		return false
	}
	if m.year != 0 && l.Year != m.year {
		return false
	}
	// Unpriced listings have no price to compare and fail any price bound.
	if (m.priceMin > 0 || m.priceMax > 0) && l.Price == 0 {
		return false
	}
	if m.priceMin > 0 && l.Price < m.priceMin {
		return false
	}
	if m.priceMax > 0 && l.Price > m.priceMax {
		return false
	}
	if m.search != "" && !containsAny(m.search, l.Title, l.Model, l.ExteriorColor, l.InteriorColor, l.VIN, l.StockNumber) {
		return false
	}
	return true
}

func containsAny(needle string, fields ...string) bool {
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func sortListings(listings []models.Listing, order string) {
	var less func(a, b models.Listing) bool

	switch order {
	case models.SortPriceAsc:
		less = func(a, b models.Listing) bool { return a.Price < b.Price }
	case models.SortPriceDesc:
		less = func(a, b models.Listing) bool { return a.Price > b.Price }
	case models.SortYearAsc:
		less = func(a, b models.Listing) bool { return a.Year < b.Year }
	case models.SortYearDesc:
		less = func(a, b models.Listing) bool { return a.Year > b.Year }
	case models.SortModelAsc:
		less = func(a, b models.Listing) bool { return strings.ToLower(a.Model) < strings.ToLower(b.Model) }
	case models.SortModelDesc:
		less = func(a, b models.Listing) bool { return strings.ToLower(a.Model) > strings.ToLower(b.Model) }
	default:
		return
	}

	sort.SliceStable(listings, func(i, j int) bool {
		return less(listings[i], listings[j])
	})
}
