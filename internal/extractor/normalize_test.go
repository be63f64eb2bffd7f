package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"dealer-inventory/pkg/models"
)

func TestParseDigits(t *testing.T) {
	tests := map[string]int{
		"$89,995":        89995,
		"12,345 mi":      12345,
		"":               0,
		"Call for price": 0,
	}
	for input, want := range tests {
		assert.Equal(t, want, ParseDigits(input), input)
	}
}

func TestParseAmount(t *testing.T) {
	tests := map[string]int{
		"$42,000.00":             42000,
		"$89,995 MSRP $95,000":   89995,
		"12,345 miles":           12345,
		"Call for price":         0,
		"":                       0,
		"99999999999999999999 $": 0,
	}
	for input, want := range tests {
		assert.Equal(t, want, ParseAmount(input), input)
	}
}

func TestSplitTitle(t *testing.T) {
	tests := []struct {
		title string
		year  int
		mk    string
		model string
		trim  string
	}{
		{"2021 Cadillac Escalade Premium Luxury", 2021, "Cadillac", "Escalade", "Premium Luxury"},
		{"Used 2019 Land Rover Range Rover Sport HSE", 2019, "Land Rover", "Range Rover Sport", "HSE"},
		{"2020 Chevy Silverado 1500 LT", 2020, "Chevrolet", "Silverado 1500", "LT"},
		{"2023 Tesla Model Y Long Range", 2023, "Tesla", "Model Y", "Long Range"},
		{"2018 mercedes-benz GLC 300", 2018, "Mercedes-Benz", "GLC", "300"},
		{"2022 Ram 1500", 2022, "Ram", "1500", ""},
		{"Mystery Vehicle", 0, "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			year, mk, model, trim := splitTitle(tt.title)
			assert.Equal(t, tt.year, year)
			assert.Equal(t, tt.mk, mk)
			assert.Equal(t, tt.model, model)
			assert.Equal(t, tt.trim, trim)
		})
	}
}

func TestNormalizerURL(t *testing.T) {
	n := NewNormalizer("https://dealer.example.com/inventory/new", fixedNow)

	assert.Equal(t, "https://dealer.example.com/img/a.jpg", n.URL("/img/a.jpg"))
	assert.Equal(t, "https://dealer.example.com/inventory/photo.jpg", n.URL("photo.jpg"))
	assert.Equal(t, "https://cdn.example.com/a.jpg", n.URL("https://cdn.example.com/a.jpg"))
	assert.Equal(t, "https://cdn.example.com/a.jpg", n.URL("https://cdn.example.com/a.jpg 640w"))
	assert.Empty(t, n.URL("javascript:void(0)"))
	assert.Empty(t, n.URL("#"))
	assert.Empty(t, n.URL(""))

	assert.Empty(t, NewNormalizer("", fixedNow).URL("/img/a.jpg"))
}

func TestNormalizerFinish(t *testing.T) {
	n := NewNormalizer("https://dealer.example.com", fixedNow)

	candidates := []models.Listing{
		{Title: "  2021 Cadillac   Escalade  ", VIN: "1gys4bkl5mr123456", PriceDisplay: "$89,995"},
		{Title: "2021 Cadillac Escalade", VIN: "1GYS4BKL5MR123456"},
		{Title: ""},
		{Title: "2099 Ford F-150"},
		{Title: "Contact us", VIN: "NOT-A-VIN"},
		{ID: "given", Title: "2015 Lexus RX 350", Price: -5},
	}

	out := n.Finish(candidates)
	assert.Len(t, out, 3)

	assert.Equal(t, "1GYS4BKL5MR123456", out[0].ID)
	assert.Equal(t, "2021 Cadillac Escalade", out[0].Title)
	assert.Equal(t, 89995, out[0].Price)

	assert.True(t, strings.HasPrefix(out[1].ID, "veh-"))
	assert.Empty(t, out[1].VIN)

	assert.Equal(t, "given", out[2].ID)
	assert.Equal(t, 0, out[2].Price)
	assert.Equal(t, "RX", out[2].Model)

	assert.Equal(t, "  2021 Cadillac   Escalade  ", candidates[0].Title)
}

func TestNormalizerSynthesizedIDsAreStable(t *testing.T) {
	n := NewNormalizer("https://dealer.example.com", fixedNow)
	candidates := []models.Listing{{Title: "2019 Toyota Camry", DetailURL: "/cars/1"}}

	first := n.Finish(candidates)
	second := n.Finish(candidates)
	assert.Equal(t, first[0].ID, second[0].ID)
}
