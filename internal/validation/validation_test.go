package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealer-inventory/pkg/models"
)

type sample struct {
	Text string `validate:"omitempty,safe_text"`
	Sort string `validate:"omitempty,sort_key"`
}

func TestInventoryValidators(t *testing.T) {
	v := New()

	assert.NoError(t, v.Struct(sample{Text: "Escalade Premium Luxury", Sort: "price_asc"}))
	assert.NoError(t, v.Struct(sample{}))
	assert.Error(t, v.Struct(sample{Text: "esc\x00alade"}))
	assert.Error(t, v.Struct(sample{Text: "line\nbreak"}))
	assert.Error(t, v.Struct(sample{Sort: "price"}))
	assert.Error(t, v.Struct(sample{Sort: "PRICE_ASC"}))
}

func TestCriteria(t *testing.T) {
	v := New()
	base := models.QueryCriteria{Page: 1, PerPage: 20}

	require.NoError(t, Criteria(v, base))

	c := base
	c.Year = 1700
	err := Criteria(v, c)
	require.Error(t, err)
	assert.Equal(t, "Year failed min validation", err.Error())

	c = base
	c.Sort = "mileage_asc"
	err = Criteria(v, c)
	require.Error(t, err)
	assert.Equal(t, "Sort failed oneof validation", err.Error())

	c = base
	c.PriceMin, c.PriceMax = 50000, 20000
	err = Criteria(v, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "priceMin")

	c = base
	c.PriceMin = 50000
	assert.NoError(t, Criteria(v, c))
}
