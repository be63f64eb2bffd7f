package extractor

import (
	"github.com/PuerkitoBio/goquery"

	"dealer-inventory/pkg/models"
)

// maxCardText bounds the text size of an element considered a single listing.
const maxCardText = 4000

const headingSelectors = "h1, h2, h3, h4, h5, h6, strong, b, a, [class*='title'], [class*='name']"

// Heuristic scans for the innermost blocks that mention both a price and a
// known make. It is the last resort for pages without structured markup.
type Heuristic struct{}

func (Heuristic) Name() string { return "heuristic" }

func (Heuristic) Extract(doc *goquery.Document, n *Normalizer) []models.Listing {
	var candidates []models.Listing

	doc.Find("div, li, article, section").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if len(text) > maxCardText || !looksLikeListing(text) {
			return
		}

		innermost := true
		s.Children().EachWithBreak(func(_ int, child *goquery.Selection) bool {
			if looksLikeListing(child.Text()) {
				innermost = false
			}
			return innermost
		})
		if !innermost {
			return
		}

		candidates = append(candidates, readBlock(s, blockText(s)))
	})

	return n.Finish(candidates)
}

func looksLikeListing(text string) bool {
	return currencyPattern.MatchString(text) && brandPattern.MatchString(text)
}

func readBlock(s *goquery.Selection, text string) models.Listing {
	l := models.Listing{
		PriceDisplay: currencyPattern.FindString(text),
		VIN:          vinPattern.FindString(text),
	}

	s.Find(headingSelectors).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		t := cleanText(h.Text())
		if brandPattern.MatchString(t) || yearPattern.MatchString(t) {
			l.Title = t
			return false
		}
		return true
	})
	if l.Title == "" {
		if loc := brandPattern.FindStringIndex(text); loc != nil {
			l.Title = titleAround(text, loc[0])
		}
	}

	if m := mileagePattern.FindStringSubmatch(text); m != nil {
		l.MileageDisplay = m[0]
	}
	if m := stockPattern.FindStringSubmatch(text); m != nil {
		l.StockNumber = m[1]
	}
	l.ExteriorColor = labelValue(text, exteriorLabel)
	l.InteriorColor = labelValue(text, interiorLabel)

	s.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		l.Image = imageSource(img)
		return l.Image == ""
	})
	s.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		l.DetailURL = linkHref(a)
		return l.DetailURL == ""
	})

	return l
}

// titleAround takes the line containing the make, including a leading year.
func titleAround(text string, at int) string {
	start := at
	for start > 0 && text[start-1] != '\n' {
		start--
	}
	end := at
	for end < len(text) && text[end] != '\n' && text[end] != '$' {
		end++
	}
	return cleanText(text[start:end])
}
