package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"dealer-inventory/pkg/models"
)

const maxStructuredDepth = 8

var vehicleTypes = map[string]bool{
	"product":          true,
	"vehicle":          true,
	"car":              true,
	"auto":             true,
	"motorizedbicycle": true,
}

// StructuredData reads schema.org records from JSON-LD script blocks.
type StructuredData struct{}

func (StructuredData) Name() string { return "structured-data" }

func (StructuredData) Extract(doc *goquery.Document, n *Normalizer) []models.Listing {
	var candidates []models.Listing
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" || !gjson.Valid(raw) {
			return
		}
		collectVehicles(gjson.Parse(raw), &candidates, 0)
	})
	return mergeDuplicates(n.Finish(candidates))
}

func collectVehicles(r gjson.Result, out *[]models.Listing, depth int) {
	if depth > maxStructuredDepth {
		return
	}

	if r.IsArray() {
		r.ForEach(func(_, item gjson.Result) bool {
			collectVehicles(item, out, depth+1)
			return true
		})
		return
	}
	if !r.IsObject() {
		return
	}

	if graph := key(r, "@graph"); graph.Exists() {
		collectVehicles(graph, out, depth+1)
	}

	if isVehicle(key(r, "@type")) {
		*out = append(*out, mapVehicle(r))
		return
	}

	if items := r.Get("itemListElement"); items.Exists() {
		items.ForEach(func(_, item gjson.Result) bool {
			if inner := item.Get("item"); inner.Exists() {
				collectVehicles(inner, out, depth+1)
			} else {
				collectVehicles(item, out, depth+1)
			}
			return true
		})
	}
}

// key reads a top-level member by exact name. gjson paths treat a leading
// '@' as a modifier, so JSON-LD keywords are looked up directly.
func key(r gjson.Result, name string) gjson.Result {
	var found gjson.Result
	r.ForEach(func(k, v gjson.Result) bool {
		if k.String() == name {
			found = v
			return false
		}
		return true
	})
	return found
}

func isVehicle(t gjson.Result) bool {
	if t.IsArray() {
		match := false
		t.ForEach(func(_, v gjson.Result) bool {
			match = isVehicle(v)
			return !match
		})
		return match
	}
	name := t.String()
	if i := strings.LastIndexAny(name, "/#:"); i >= 0 {
		name = name[i+1:]
	}
	return vehicleTypes[strings.ToLower(name)]
}

func mapVehicle(r gjson.Result) models.Listing {
	l := models.Listing{
		Title:         r.Get("name").String(),
		Make:          nameOf(first(r, "brand", "manufacturer")),
		Model:         nameOf(r.Get("model")),
		Trim:          r.Get("vehicleConfiguration").String(),
		ExteriorColor: r.Get("color").String(),
		InteriorColor: r.Get("vehicleInteriorColor").String(),
		VIN:           r.Get("vehicleIdentificationNumber").String(),
		StockNumber:   first(r, "sku", "mpn", "productID").String(),
		Image:         imageOf(r.Get("image")),
		DetailURL:     first(r, "url", "offers.url", "offers.0.url").String(),
	}

	if year := first(r, "vehicleModelDate", "modelDate", "productionDate", "releaseDate"); year.Exists() {
		l.Year = parseYear(year.String())
	}

	if price := first(r,
		"offers.price", "offers.lowPrice", "offers.priceSpecification.price",
		"offers.0.price", "offers.0.lowPrice",
	); price.Exists() {
		l.PriceDisplay = price.String()
		l.Price = ParseAmount(price.String())
	}

	if odo := r.Get("mileageFromOdometer"); odo.Exists() {
		value := odo
		if odo.IsObject() {
			value = odo.Get("value")
		}
		l.MileageDisplay = value.String()
		l.Mileage = ParseAmount(value.String())
	}

	return l
}

func first(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.String() != "" {
			return v
		}
	}
	return gjson.Result{}
}

func nameOf(v gjson.Result) string {
	if v.IsObject() {
		return v.Get("name").String()
	}
	if v.IsArray() {
		return nameOf(v.Get("0"))
	}
	return v.String()
}

func imageOf(v gjson.Result) string {
	switch {
	case v.IsArray():
		return imageOf(v.Get("0"))
	case v.IsObject():
		return first(v, "url", "contentUrl").String()
	default:
		return v.String()
	}
}

func parseYear(s string) int {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return 0
	}
	return ParseDigits(s[:4])
}
