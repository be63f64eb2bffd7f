package models

import "time"

// Listing is one vehicle advertisement extracted from the upstream dealer site.
// Listings are never mutated after the extractor emits them.
type Listing struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Year           int    `json:"year,omitempty"`
	Make           string `json:"make"`
	Model          string `json:"model"`
	Trim           string `json:"trim"`
	Price          int    `json:"price"` // 0 means contact for price
	PriceDisplay   string `json:"priceDisplay"`
	Mileage        int    `json:"mileage"`
	MileageDisplay string `json:"mileageDisplay"`
	ExteriorColor  string `json:"exteriorColor"`
	InteriorColor  string `json:"interiorColor"`
	VIN            string `json:"vin"`
	StockNumber    string `json:"stockNumber"`
	Image          string `json:"image"`
	DetailURL      string `json:"detailUrl"`
}

// MinListingYear is the year of the first production automobile.
const MinListingYear = 1886

// Valid reports whether the listing may enter the cache: it needs a title and,
// when a year is present, a plausible one.
func (l Listing) Valid(now time.Time) bool {
	if l.Title == "" {
		return false
	}
	if l.Year == 0 {
		return true
	}
	return l.Year >= MinListingYear && l.Year <= now.Year()+1
}

// Snapshot is the full listing set captured by one successful refresh.
type Snapshot struct {
	Listings  []Listing `json:"listings"`
	FetchedAt time.Time `json:"fetched_at"`
	Source    string    `json:"source,omitempty"` // upstream URL the snapshot came from
}
