package extractor

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealer-inventory/internal/config"
	"dealer-inventory/internal/logging"
	"dealer-inventory/pkg/models"
)

const pageURL = "https://dealer.example.com/inventory/new"

var fixedNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	logger, _ := logging.NewDiscardLogger()
	cfg := config.Default()
	cfg.Upstream.Origin = "https://dealer.example.com"
	return New(cfg, logger, WithClock(func() time.Time { return fixedNow }))
}

const itemListPage = `<html><head>
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"ItemList","itemListElement":[
  {"@type":"ListItem","position":1,"item":{
    "@type":"Car","name":"2021 Cadillac Escalade Premium Luxury",
    "brand":{"@type":"Brand","name":"Cadillac"},"model":"Escalade","vehicleModelDate":"2021",
    "vehicleIdentificationNumber":"1GYS4BKL5MR123456","sku":"C1234",
    "color":"Black Raven","vehicleInteriorColor":"Jet Black",
    "mileageFromOdometer":{"@type":"QuantitativeValue","value":"12,345","unitCode":"SMI"},
    "offers":{"@type":"Offer","price":"89995","priceCurrency":"USD"},
    "image":["/photos/escalade.jpg","/photos/escalade-2.jpg"],
    "url":"/inventory/escalade-1"}},
  {"@type":"ListItem","position":2,"item":{
    "@type":"Vehicle","name":"2022 Chevrolet Tahoe LT","sku":"T555",
    "mileageFromOdometer":5000,
    "offers":[{"@type":"Offer","price":61500}],
    "image":{"@type":"ImageObject","url":"https://cdn.example.com/tahoe.jpg"}}},
  {"@type":"ListItem","position":3,"item":{
    "@type":["Product","Car"],"name":"2020 Ford F-150 XLT",
    "offers":{"@type":"Offer","price":"42,000.00"}}}
]}
</script></head><body><p>Inventory</p></body></html>`

func TestExtractStructuredDataItemList(t *testing.T) {
	result, err := newTestExtractor(t).Extract(itemListPage, pageURL)
	require.NoError(t, err)
	require.Equal(t, "structured-data", result.Strategy)
	require.Len(t, result.Listings, 3)

	escalade := result.Listings[0]
	assert.Equal(t, "1GYS4BKL5MR123456", escalade.ID)
	assert.Equal(t, "2021 Cadillac Escalade Premium Luxury", escalade.Title)
	assert.Equal(t, 2021, escalade.Year)
	assert.Equal(t, "Cadillac", escalade.Make)
	assert.Equal(t, "Escalade", escalade.Model)
	assert.Equal(t, "Premium Luxury", escalade.Trim)
	assert.Equal(t, 89995, escalade.Price)
	assert.Equal(t, "89995", escalade.PriceDisplay)
	assert.Equal(t, 12345, escalade.Mileage)
	assert.Equal(t, "12,345", escalade.MileageDisplay)
	assert.Equal(t, "Black Raven", escalade.ExteriorColor)
	assert.Equal(t, "Jet Black", escalade.InteriorColor)
	assert.Equal(t, "C1234", escalade.StockNumber)
	assert.Equal(t, "https://dealer.example.com/photos/escalade.jpg", escalade.Image)
	assert.Equal(t, "https://dealer.example.com/inventory/escalade-1", escalade.DetailURL)

	tahoe := result.Listings[1]
	assert.Equal(t, "stock-T555", tahoe.ID)
	assert.Equal(t, 61500, tahoe.Price)
	assert.Equal(t, 5000, tahoe.Mileage)
	assert.Equal(t, "Chevrolet", tahoe.Make)
	assert.Equal(t, "Tahoe", tahoe.Model)
	assert.Equal(t, "https://cdn.example.com/tahoe.jpg", tahoe.Image)

	ford := result.Listings[2]
	assert.True(t, strings.HasPrefix(ford.ID, "veh-"))
	assert.Equal(t, 42000, ford.Price)
	assert.Equal(t, "42,000.00", ford.PriceDisplay)
	assert.Equal(t, "F-150", ford.Model)
}

func TestExtractStructuredDataGraphKeepsPartialResult(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
{"@context":"https://schema.org","@graph":[
  {"@type":"WebPage","name":"Used inventory"},
  {"@type":"Car","name":"2019 Toyota Camry SE","offers":{"price":"21500"}}
]}</script>
<script type="application/ld+json">{ not json </script>
</head><body></body></html>`

	result, err := newTestExtractor(t).Extract(page, pageURL)
	require.NoError(t, err)
	assert.Equal(t, "structured-data", result.Strategy)
	require.Len(t, result.Listings, 1)
	assert.Equal(t, "Toyota", result.Listings[0].Make)
	assert.Equal(t, 21500, result.Listings[0].Price)
}

const cardPage = `<html><head>
<script type="application/ld+json">{"@type":"Car","name":"2018 Honda Civic EX"}</script>
</head><body>
<div class="vehicle-card" data-vin="1GYS4BKL5MR123456">
  <a class="vehicle-title-link" href="/inventory/used-2021-cadillac-escalade"><h3 class="vehicle-title">2021 Cadillac Escalade Sport</h3></a>
  <img class="vehicle-image" src="data:image/gif;base64,R0lGOD" data-src="/img/escalade.jpg">
  <span class="price">$89,995</span>
  <ul><li>Mileage: 12,345 mi</li><li>Exterior: Black Raven</li><li>Interior: Jet Black</li><li>Stock #: C1234</li></ul>
</div>
<div class="vehicle-card">
  <a class="vehicle-title-link" href="/inventory/used-2020-gmc-yukon"><h3 class="vehicle-title">2020 GMC Yukon XL Denali</h3></a>
  <span class="price">Call for price</span>
  <ul><li>In Stock</li><li>Stock: Y2020</li></ul>
</div>
<div class="vehicle-card" data-vehicle-id="abc-3">
  <h3 class="vehicle-title">2017 Jeep Grand Cherokee Limited</h3>
  <span class="price">$24,900</span>
</div>
</body></html>`

func TestExtractFallsBackToSelectorSets(t *testing.T) {
	result, err := newTestExtractor(t).Extract(cardPage, pageURL)
	require.NoError(t, err)
	require.Equal(t, "selector-sets", result.Strategy)
	require.Len(t, result.Listings, 3)

	escalade := result.Listings[0]
	assert.Equal(t, "1GYS4BKL5MR123456", escalade.ID)
	assert.Equal(t, "2021 Cadillac Escalade Sport", escalade.Title)
	assert.Equal(t, 89995, escalade.Price)
	assert.Equal(t, "$89,995", escalade.PriceDisplay)
	assert.Equal(t, 12345, escalade.Mileage)
	assert.Equal(t, "Black Raven", escalade.ExteriorColor)
	assert.Equal(t, "Jet Black", escalade.InteriorColor)
	assert.Equal(t, "C1234", escalade.StockNumber)
	assert.Equal(t, "https://dealer.example.com/img/escalade.jpg", escalade.Image)
	assert.Equal(t, "https://dealer.example.com/inventory/used-2021-cadillac-escalade", escalade.DetailURL)

	yukon := result.Listings[1]
	assert.Equal(t, 0, yukon.Price)
	assert.Equal(t, "Y2020", yukon.StockNumber)
	assert.Equal(t, "stock-Y2020", yukon.ID)
	assert.Equal(t, "GMC", yukon.Make)
	assert.Equal(t, "Yukon XL", yukon.Model)
	assert.Equal(t, "Denali", yukon.Trim)

	jeep := result.Listings[2]
	assert.Equal(t, "abc-3", jeep.ID)
	assert.Equal(t, "Grand Cherokee", jeep.Model)
	assert.Equal(t, 2017, jeep.Year)
}

func TestExtractNestedCardsYieldOneListingEach(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i, title := range []string{"2021 Cadillac Escalade Sport", "2022 Chevrolet Tahoe LT", "2020 GMC Sierra 1500 AT4"} {
		fmt.Fprintf(&b, `<div class="vehicle-card"><div data-vehicle-id="V%d"><h3 class="vehicle-title">%s</h3><span class="price">$%d,995</span></div></div>`, i, title, 40+i)
	}
	b.WriteString("</body></html>")

	result, err := newTestExtractor(t).Extract(b.String(), pageURL)
	require.NoError(t, err)
	require.Equal(t, "selector-sets", result.Strategy)
	require.Len(t, result.Listings, 3)
	for i, l := range result.Listings {
		assert.Equal(t, fmt.Sprintf("V%d", i), l.ID)
		assert.Equal(t, (40+i)*1000+995, l.Price)
	}
}

func TestExtractWrapperCardKeepsInnerCards(t *testing.T) {
	page := `<html><body><div class="vehicle-card-container">
<div class="vehicle-card" data-stock="A1"><h3 class="vehicle-title">2021 Cadillac Escalade Sport</h3></div>
<div class="vehicle-card" data-stock="A2"><h3 class="vehicle-title">2022 Chevrolet Tahoe LT</h3></div>
<div class="vehicle-card" data-stock="A3"><h3 class="vehicle-title">2020 GMC Sierra 1500 AT4</h3></div>
</div></body></html>`

	result, err := newTestExtractor(t).Extract(page, pageURL)
	require.NoError(t, err)
	require.Equal(t, "selector-sets", result.Strategy)
	require.Len(t, result.Listings, 3)
	assert.Equal(t, []string{"stock-A1", "stock-A2", "stock-A3"},
		[]string{result.Listings[0].ID, result.Listings[1].ID, result.Listings[2].ID})
}

func TestExtractStructuredDataMergesRepeatedRecords(t *testing.T) {
	page := `<html><head>
<script type="application/ld+json">
{"@type":"ItemList","itemListElement":[
  {"@type":"ListItem","position":1,"item":{"@type":"Car","name":"2021 Cadillac Escalade Sport","url":"/inventory/escalade","offers":{"price":"89995"}}},
  {"@type":"ListItem","position":2,"item":{"@type":"Car","name":"2022 Chevrolet Tahoe LT","url":"/inventory/tahoe","offers":{"price":"61500"}}},
  {"@type":"ListItem","position":3,"item":{"@type":"Car","name":"2020 GMC Sierra 1500 AT4","url":"/inventory/sierra","offers":{"price":"52000"}}}
]}</script>
<script type="application/ld+json">{"@type":"Car","name":"2021 Cadillac Escalade Sport","url":"/inventory/escalade","color":"Black Raven","offers":{"price":"89995"}}</script>
<script type="application/ld+json">{"@type":"Car","name":"2022 Chevrolet Tahoe LT","url":"/inventory/tahoe","vehicleIdentificationNumber":"1GNSKNKD2NR123456"}</script>
<script type="application/ld+json">{"@type":"Car","name":"2020 GMC Sierra 1500 AT4","url":"/inventory/sierra"}</script>
</head><body></body></html>`

	result, err := newTestExtractor(t).Extract(page, pageURL)
	require.NoError(t, err)
	require.Equal(t, "structured-data", result.Strategy)
	require.Len(t, result.Listings, 3)

	escalade := result.Listings[0]
	assert.True(t, strings.HasPrefix(escalade.ID, "veh-"))
	assert.Equal(t, "Black Raven", escalade.ExteriorColor)
	assert.Equal(t, 89995, escalade.Price)

	tahoe := result.Listings[1]
	assert.Equal(t, "1GNSKNKD2NR123456", tahoe.ID)
	assert.Equal(t, "1GNSKNKD2NR123456", tahoe.VIN)
	assert.Equal(t, 61500, tahoe.Price)
}

func TestMergeDuplicatesKeepsDistinctSourceIDs(t *testing.T) {
	merged := mergeDuplicates([]models.Listing{
		{ID: "1GNSKNKD2NR123456", Title: "2022 Chevrolet Tahoe LT", DetailURL: "https://dealer.example.com/inventory"},
		{ID: "1GNSKNKD2NR654321", Title: "2022 Chevrolet Tahoe LT", DetailURL: "https://dealer.example.com/inventory"},
	})
	assert.Len(t, merged, 2)
}

func TestExtractFallsBackToHeuristic(t *testing.T) {
	page := `<html><body><section class="listings">
<div class="row"><p>2019 Toyota Camry SE</p><p>$21,500</p><p>45,000 miles</p><a href="/cars/1">View</a></div>
<div class="row"><p>2020 Honda Accord Sport</p><p>$24,250</p><p>31,002 miles</p><a href="/cars/2">View</a></div>
<div class="row"><p>2018 Subaru Outback Premium</p><p>$19,990</p><a href="/cars/3">View</a></div>
</section></body></html>`

	result, err := newTestExtractor(t).Extract(page, pageURL)
	require.NoError(t, err)
	require.Equal(t, "heuristic", result.Strategy)
	require.Len(t, result.Listings, 3)

	camry := result.Listings[0]
	assert.Equal(t, "2019 Toyota Camry SE", camry.Title)
	assert.Equal(t, 21500, camry.Price)
	assert.Equal(t, 45000, camry.Mileage)
	assert.Equal(t, "Toyota", camry.Make)
	assert.Equal(t, "https://dealer.example.com/cars/1", camry.DetailURL)
	assert.Equal(t, "Subaru", result.Listings[2].Make)
}

func TestExtractEmptyPageIsNotAnError(t *testing.T) {
	result, err := newTestExtractor(t).Extract("<html><body><p>No vehicles match your search.</p></body></html>", pageURL)
	require.NoError(t, err)
	assert.Equal(t, "none", result.Strategy)
	assert.NotNil(t, result.Listings)
	assert.Empty(t, result.Listings)
}

func TestExtractDropsImplausibleYears(t *testing.T) {
	page := `<script type="application/ld+json">[
{"@type":"Car","name":"2026 Ford Bronco","sku":"B1"},
{"@type":"Car","name":"2025 Ford Bronco Sport","sku":"B2"},
{"@type":"Car","name":"1850 Steam Carriage","sku":"B3","vehicleModelDate":"1850"},
{"@type":"Car","sku":"B4"}
]</script>`

	result, err := newTestExtractor(t).Extract(page, pageURL)
	require.NoError(t, err)
	require.Len(t, result.Listings, 1)
	assert.Equal(t, "stock-B2", result.Listings[0].ID)
}

func TestExtractUsesOriginWhenPageURLMissing(t *testing.T) {
	result, err := newTestExtractor(t).Extract(itemListPage, "")
	require.NoError(t, err)
	require.NotEmpty(t, result.Listings)
	assert.Equal(t, "https://dealer.example.com/inventory/escalade-1", result.Listings[0].DetailURL)
}

type stubStrategy struct {
	name    string
	records int
	calls   *int
}

func (s stubStrategy) Name() string { return s.name }

func (s stubStrategy) Extract(*goquery.Document, *Normalizer) []models.Listing {
	if s.calls != nil {
		*s.calls++
	}
	out := make([]models.Listing, s.records)
	for i := range out {
		out[i] = models.Listing{ID: s.name, Title: s.name}
	}
	return out
}

func TestChainFirstMatchWins(t *testing.T) {
	var laterCalls int
	chain := FirstMatch(3,
		stubStrategy{name: "a", records: 1},
		stubStrategy{name: "b", records: 3},
		stubStrategy{name: "c", records: 10, calls: &laterCalls},
	)

	records, name := chain.Run(nil, nil)
	assert.Equal(t, "b", name)
	assert.Len(t, records, 3)
	assert.Zero(t, laterCalls)
}

func TestChainKeepsLargestPartial(t *testing.T) {
	chain := FirstMatch(3,
		stubStrategy{name: "a", records: 1},
		stubStrategy{name: "b", records: 2},
		stubStrategy{name: "c", records: 2},
	)

	records, name := chain.Run(nil, nil)
	assert.Equal(t, "b", name)
	assert.Len(t, records, 2)
}

func TestChainNoRecords(t *testing.T) {
	records, name := FirstMatch(3, stubStrategy{name: "a"}).Run(nil, nil)
	assert.Equal(t, "none", name)
	assert.Empty(t, records)
}
