package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dealer-inventory/pkg/models"
)

// SelectorSet names the card containers of one common inventory page layout.
type SelectorSet struct {
	Name  string
	Cards string
}

// FieldSelectors lists, per field, the selectors tried in order inside a card.
type FieldSelectors struct {
	Title         []string
	Price         []string
	Mileage       []string
	ExteriorColor []string
	InteriorColor []string
	VIN           []string
	Stock         []string
	Image         []string
	Link          []string
}

// DefaultSelectorSets covers vehicle cards, search-result cards and plain
// inventory item lists.
func DefaultSelectorSets() []SelectorSet {
	return []SelectorSet{
		{Name: "vehicle-card", Cards: ".vehicle-card, .vehicle-card-container, .vehicle-tile, [data-vehicle-id]"},
		{Name: "search-result", Cards: ".srp-list-item, .search-result-card, .result-tile, .vehicle-result, .srp-vehicle"},
		{Name: "inventory-item", Cards: ".inventory-item, .inventory-listing, .inventory-vehicle, li.vehicle, div.vehicle"},
	}
}

// DefaultFieldSelectors returns the sub-selectors shared by every set.
func DefaultFieldSelectors() FieldSelectors {
	return FieldSelectors{
		Title: []string{
			".vehicle-title", ".vehicle-name", ".title", "[class*='title']",
			"h2", "h3", "h4", "a[title]",
		},
		Price: []string{
			".final-price", ".sale-price", ".internet-price", ".primary-price",
			".price-value", ".price", "[class*='price']",
		},
		Mileage: []string{".mileage", ".odometer", "[class*='mileage']", "[data-mileage]"},
		ExteriorColor: []string{
			".exterior-color", ".ext-color", "[class*='exterior']",
		},
		InteriorColor: []string{
			".interior-color", ".int-color", "[class*='interior']",
		},
		VIN:   []string{".vin", "[class*='vin']", "[data-vin]"},
		Stock: []string{".stock-number", ".stock", "[class*='stock']", "[data-stock]"},
		Image: []string{
			"img.vehicle-image", ".vehicle-image img", ".photo img", "img[data-src]", "img",
		},
		Link: []string{
			"a.vehicle-title-link", ".vehicle-title a", "a[href*='/inventory/']",
			"a[href*='vehicle']", "a[href*='detail']", "a[href]",
		},
	}
}

var (
	currencyPattern = regexp.MustCompile(`\$\s?\d{1,3}(?:,\d{3})+(?:\.\d{2})?|\$\s?\d{4,7}(?:\.\d{2})?`)
	mileagePattern  = regexp.MustCompile(`(?i)(\d[\d,]*)\s*(?:mi\b|miles\b)`)
	stockPattern    = regexp.MustCompile(`(?i)\bstock\s*(?:#\s*:?|no\.?\s*:?|number\s*:?|:)\s*([A-Z0-9][A-Z0-9-]{2,})`)
	exteriorLabel   = regexp.MustCompile(`(?i)\b(?:exterior|ext\.?)(?:\s+colou?r)?\s*:\s*`)
	interiorLabel   = regexp.MustCompile(`(?i)\b(?:interior|int\.?)(?:\s+colou?r)?\s*:\s*`)
	nextLabel       = regexp.MustCompile(`(?i)\s(?:exterior|ext\.|interior|int\.|stock|vin|mileage|miles|engine|transmission|drivetrain|mpg|price)\b`)
)

// SelectorSets reads listing cards using known page layouts. The first set
// that matches at least one card is used.
type SelectorSets struct {
	sets   []SelectorSet
	fields FieldSelectors
}

// NewSelectorSets uses the default field selectors for every set.
func NewSelectorSets(sets []SelectorSet) SelectorSets {
	return SelectorSets{sets: sets, fields: DefaultFieldSelectors()}
}

func (SelectorSets) Name() string { return "selector-sets" }

func (s SelectorSets) Extract(doc *goquery.Document, n *Normalizer) []models.Listing {
	for _, set := range s.sets {
		cards := outermostCards(doc.Find(set.Cards), set.Cards)
		if cards.Length() == 0 {
			continue
		}

		candidates := make([]models.Listing, 0, cards.Length())
		cards.Each(func(_ int, card *goquery.Selection) {
			candidates = append(candidates, s.readCard(card))
		})
		return n.Finish(candidates)
	}
	return nil
}

// outermostCards resolves nested matches of one selector set. A match holding
// several other matches is a wrapper and is dropped. A match that is the only
// one inside its enclosing match describes the same vehicle and is dropped in
// favor of the enclosing card.
func outermostCards(cards *goquery.Selection, selector string) *goquery.Selection {
	return cards.FilterFunction(func(_ int, card *goquery.Selection) bool {
		if card.Find(selector).Length() > 1 {
			return false
		}
		parent := card.ParentsFiltered(selector).First()
		return parent.Length() == 0 || parent.Find(selector).Length() > 1
	})
}

func (s SelectorSets) readCard(card *goquery.Selection) models.Listing {
	text := blockText(card)

	l := models.Listing{
		ID:             cardAttr(card, "data-vehicle-id", "data-id", "data-listing-id"),
		Title:          firstText(card, s.fields.Title),
		PriceDisplay:   firstText(card, s.fields.Price),
		MileageDisplay: firstText(card, s.fields.Mileage),
		ExteriorColor:  firstText(card, s.fields.ExteriorColor),
		InteriorColor:  firstText(card, s.fields.InteriorColor),
		VIN:            cardAttr(card, "data-vin"),
		StockNumber:    cardAttr(card, "data-stock", "data-stock-number"),
		Image:          firstImage(card, s.fields.Image),
		DetailURL:      firstLink(card, s.fields.Link),
		Make:           attrOf(card, "data-make"),
		Model:          attrOf(card, "data-model"),
		Trim:           attrOf(card, "data-trim"),
	}

	if l.Title == "" {
		l.Title = attrOf(card, "data-title", "title")
	}
	if year := attrOf(card, "data-year"); year != "" {
		l.Year = ParseDigits(year)
	}
	if price := attrOf(card, "data-price"); price != "" {
		l.Price = ParseAmount(price)
		if l.PriceDisplay == "" {
			l.PriceDisplay = price
		}
	}
	if l.PriceDisplay == "" {
		l.PriceDisplay = currencyPattern.FindString(text)
	}

	if l.MileageDisplay == "" {
		if m := mileagePattern.FindStringSubmatch(text); m != nil {
			l.MileageDisplay = m[0]
		}
	}
	l.ExteriorColor = stripLabel(l.ExteriorColor, exteriorLabel)
	if l.ExteriorColor == "" {
		l.ExteriorColor = labelValue(text, exteriorLabel)
	}
	l.InteriorColor = stripLabel(l.InteriorColor, interiorLabel)
	if l.InteriorColor == "" {
		l.InteriorColor = labelValue(text, interiorLabel)
	}

	if l.VIN == "" {
		if v := firstText(card, s.fields.VIN); v != "" {
			l.VIN = vinPattern.FindString(strings.ToUpper(v))
		}
	}
	if l.VIN == "" {
		l.VIN = vinPattern.FindString(text)
	}

	if l.StockNumber == "" {
		if v := firstText(card, s.fields.Stock); v != "" {
			if m := stockPattern.FindStringSubmatch(v); m != nil {
				l.StockNumber = m[1]
			} else {
				l.StockNumber = v
			}
		}
	}
	if l.StockNumber == "" {
		if m := stockPattern.FindStringSubmatch(text); m != nil {
			l.StockNumber = m[1]
		}
	}

	return l
}

func firstText(sel *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		found := ""
		sel.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = cleanText(s.Text())
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func attrOf(sel *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := sel.Attr(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// cardAttr reads an identity attribute from the card or, failing that, from
// the first descendant carrying it.
func cardAttr(card *goquery.Selection, names ...string) string {
	if v := attrOf(card, names...); v != "" {
		return v
	}
	for _, name := range names {
		if v := attrOf(card.Find("["+name+"]").First(), name); v != "" {
			return v
		}
	}
	return ""
}

func firstImage(sel *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		found := ""
		sel.Find(selector).EachWithBreak(func(_ int, img *goquery.Selection) bool {
			found = imageSource(img)
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// imageSource prefers lazy-load attributes over placeholder src values.
func imageSource(img *goquery.Selection) string {
	for _, name := range []string{"data-src", "data-lazy-src", "data-original", "src", "srcset"} {
		v, ok := img.Attr(name)
		v = strings.TrimSpace(v)
		if !ok || v == "" || strings.HasPrefix(v, "data:") || strings.HasSuffix(strings.ToLower(v), ".svg") {
			continue
		}
		return v
	}
	return ""
}

func firstLink(sel *goquery.Selection, selectors []string) string {
	if goquery.NodeName(sel) == "a" {
		if href := linkHref(sel); href != "" {
			return href
		}
	}
	for _, selector := range selectors {
		found := ""
		sel.Find(selector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			found = linkHref(a)
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func linkHref(a *goquery.Selection) string {
	href, ok := a.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" || href == "#" {
		return ""
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "tel:") || strings.HasPrefix(lower, "mailto:") {
		return ""
	}
	return href
}

// labelValue returns the text following label up to the end of the line or
// the next recognised label.
func labelValue(text string, label *regexp.Regexp) string {
	loc := label.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := strings.TrimLeft(text[loc[1]:], " \t\r\n")
	if i := strings.IndexAny(rest, "\n|•;,"); i >= 0 {
		rest = rest[:i]
	}
	if loc := nextLabel.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}
	rest = cleanText(rest)
	if len(rest) > 40 {
		return ""
	}
	return rest
}

func stripLabel(value string, label *regexp.Regexp) string {
	if loc := label.FindStringIndex(value); loc != nil && loc[0] == 0 {
		return labelValue(value, label)
	}
	return value
}

// blockText joins the element's text nodes with newlines so that values in
// adjacent elements stay separated.
func blockText(sel *goquery.Selection) string {
	var parts []string
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "#text":
				if t := strings.TrimSpace(c.Text()); t != "" {
					parts = append(parts, t)
				}
			case "script", "style", "noscript", "#comment":
			default:
				walk(c)
			}
		})
	}
	walk(sel)
	return strings.Join(parts, "\n")
}
