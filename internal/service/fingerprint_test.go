package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealer-inventory/pkg/models"
)

func TestFingerprintIsStableAndContentSensitive(t *testing.T) {
	a := models.InventoryResponse{Success: true, Vehicles: []models.Listing{{ID: "1", Title: "2021 Cadillac Escalade"}}, TotalCount: 1}
	b := a
	b.TotalCount = 2

	first, err := Fingerprint(a)
	require.NoError(t, err)
	second, err := Fingerprint(a)
	require.NoError(t, err)
	other, err := Fingerprint(b)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Len(t, first, 18)
	assert.Equal(t, byte('"'), first[0])
}

func TestMatchesETag(t *testing.T) {
	etag := `"0123456789abcdef"`

	assert.True(t, MatchesETag(etag, etag))
	assert.True(t, MatchesETag(`W/"0123456789abcdef"`, etag))
	assert.True(t, MatchesETag(`"x", "0123456789abcdef"`, etag))
	assert.True(t, MatchesETag("*", etag))
	assert.False(t, MatchesETag("", etag))
	assert.False(t, MatchesETag(`"x"`, etag))
	assert.False(t, MatchesETag("0123456789abcdef", etag))
}
