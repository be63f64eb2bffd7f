package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"dealer-inventory/pkg/models"
)

// synthesizedIDPrefix marks IDs hashed from listing content.
const synthesizedIDPrefix = "veh-"

var (
	whitespace    = regexp.MustCompile(`\s+`)
	numberToken   = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	nonDigits     = regexp.MustCompile(`\D`)
	vinPattern    = regexp.MustCompile(`\b[A-HJ-NPR-Z0-9]{17}\b`)
	maxParsedUnit = 1_000_000_000
)

// Normalizer turns raw candidate fields into valid, cache-ready listings.
type Normalizer struct {
	base *url.URL
	now  time.Time
}

// NewNormalizer resolves relative links against base; now bounds plausible model years.
func NewNormalizer(base string, now time.Time) *Normalizer {
	n := &Normalizer{now: now}
	if u, err := url.Parse(strings.TrimSpace(base)); err == nil && u.Scheme != "" && u.Host != "" {
		n.base = u
	}
	return n
}

// URL makes raw absolute. Non-navigable references come back empty.
func (n *Normalizer) URL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "#" {
		return ""
	}
	lower := strings.ToLower(raw)
	for _, prefix := range []string{"javascript:", "data:", "mailto:", "tel:"} {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}
	// srcset style values carry a width descriptor
	if i := strings.IndexAny(raw, " ,"); i > 0 && !strings.Contains(raw[:i], "?") {
		raw = raw[:i]
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	if n.base == nil {
		return ""
	}
	return n.base.ResolveReference(ref).String()
}

// ParseDigits strips every non-digit and parses the rest; empty or
// unparseable input yields 0.
func ParseDigits(s string) int {
	digits := nonDigits.ReplaceAllString(s, "")
	if digits == "" {
		return 0
	}
	v, err := strconv.Atoi(digits)
	if err != nil || v > maxParsedUnit {
		return 0
	}
	return v
}

// ParseAmount parses the first number in s, ignoring any fractional part, so
// "$89,995.00" is 89995 and "Call for price" is 0.
func ParseAmount(s string) int {
	token := numberToken.FindString(s)
	if token == "" {
		return 0
	}
	if i := strings.IndexByte(token, '.'); i >= 0 {
		token = token[:i]
	}
	return ParseDigits(token)
}

func cleanText(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Finish fills derived fields, assigns identities, validates, and drops
// duplicates. The input slice is not modified.
func (n *Normalizer) Finish(candidates []models.Listing) []models.Listing {
	out := make([]models.Listing, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))

	for i, c := range candidates {
		l := n.normalize(c, i)
		if !l.Valid(n.now) {
			continue
		}
		if _, dup := seen[l.ID]; dup {
			continue
		}
		seen[l.ID] = struct{}{}
		out = append(out, l)
	}
	return out
}

func (n *Normalizer) normalize(c models.Listing, index int) models.Listing {
	l := models.Listing{
		ID:             cleanText(c.ID),
		Title:          cleanText(c.Title),
		Year:           c.Year,
		Make:           cleanText(c.Make),
		Model:          cleanText(c.Model),
		Trim:           cleanText(c.Trim),
		Price:          c.Price,
		PriceDisplay:   cleanText(c.PriceDisplay),
		Mileage:        c.Mileage,
		MileageDisplay: cleanText(c.MileageDisplay),
		ExteriorColor:  cleanText(c.ExteriorColor),
		InteriorColor:  cleanText(c.InteriorColor),
		VIN:            strings.ToUpper(cleanText(c.VIN)),
		StockNumber:    cleanText(c.StockNumber),
		Image:          n.URL(c.Image),
		DetailURL:      n.URL(c.DetailURL),
	}

	if l.Title == "" {
		l.Title = cleanText(strings.Join(nonEmpty(yearString(l.Year), l.Make, l.Model, l.Trim), " "))
	}

	year, mk, model, trim := splitTitle(l.Title)
	if l.Year == 0 {
		l.Year = year
	}
	if l.Make == "" {
		l.Make = mk
	}
	if l.Model == "" {
		l.Model = model
	}
	if l.Trim == "" && strings.EqualFold(l.Model, model) {
		l.Trim = trim
	}

	if l.Price < 0 {
		l.Price = 0
	}
	if l.Price == 0 && l.PriceDisplay != "" {
		l.Price = ParseAmount(l.PriceDisplay)
	}
	if l.Mileage < 0 {
		l.Mileage = 0
	}
	if l.Mileage == 0 && l.MileageDisplay != "" {
		l.Mileage = ParseAmount(l.MileageDisplay)
	}

	if l.VIN != "" && !vinPattern.MatchString(l.VIN) {
		l.VIN = ""
	}

	if l.ID == "" {
		switch {
		case l.VIN != "":
			l.ID = l.VIN
		case l.StockNumber != "":
			l.ID = "stock-" + l.StockNumber
		default:
			l.ID = fmt.Sprintf(synthesizedIDPrefix+"%016x", xxhash.Sum64String(fmt.Sprintf("%s|%s|%d", l.Title, l.DetailURL, index)))
		}
	}

	return l
}

// mergeDuplicates folds records describing the same vehicle, such as an
// ItemList entry and a standalone Car block for one listing. The first record
// is kept and its empty fields are filled from later copies. A synthesized ID
// gives way to a source-derived one.
func mergeDuplicates(listings []models.Listing) []models.Listing {
	out := make([]models.Listing, 0, len(listings))
	seen := make(map[string]int, len(listings))
	for _, l := range listings {
		k := sameVehicleKey(l)
		i, dup := seen[k]
		if dup && (synthesized(out[i].ID) || synthesized(l.ID)) {
			out[i] = fillEmpty(out[i], l)
			continue
		}
		if !dup {
			seen[k] = len(out)
		}
		out = append(out, l)
	}
	return out
}

// sameVehicleKey identifies a vehicle by its detail page when it has one.
func sameVehicleKey(l models.Listing) string {
	parts := []string{l.Title, l.DetailURL}
	if l.DetailURL == "" {
		parts = append(parts, strconv.Itoa(l.Price), strconv.Itoa(l.Mileage), yearString(l.Year))
	}
	return strings.ToLower(strings.Join(parts, "|"))
}

func synthesized(id string) bool {
	return strings.HasPrefix(id, synthesizedIDPrefix)
}

func fillEmpty(dst, src models.Listing) models.Listing {
	if synthesized(dst.ID) && !synthesized(src.ID) {
		dst.ID = src.ID
	}
	fill := func(d *string, s string) {
		if *d == "" {
			*d = s
		}
	}
	fill(&dst.Make, src.Make)
	fill(&dst.Model, src.Model)
	fill(&dst.Trim, src.Trim)
	fill(&dst.PriceDisplay, src.PriceDisplay)
	fill(&dst.MileageDisplay, src.MileageDisplay)
	fill(&dst.ExteriorColor, src.ExteriorColor)
	fill(&dst.InteriorColor, src.InteriorColor)
	fill(&dst.VIN, src.VIN)
	fill(&dst.StockNumber, src.StockNumber)
	fill(&dst.Image, src.Image)
	return dst
}

func yearString(year int) string {
	if year == 0 {
		return ""
	}
	return strconv.Itoa(year)
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
