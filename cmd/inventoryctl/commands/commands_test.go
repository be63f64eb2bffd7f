package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealer-inventory/internal/query"
	"dealer-inventory/pkg/models"
)

const page = `<html><head>
<script type="application/ld+json">
[
  {"@type":"Car","name":"2021 Cadillac Escalade Luxury","sku":"C100","offers":{"price":"89995"},"url":"/inventory/c100"},
  {"@type":"Car","name":"2022 Chevrolet Tahoe LT","sku":"T200","offers":{"price":"61500"},"url":"/inventory/t200"},
  {"@type":"Car","name":"2020 Ford F-150 XLT","sku":"F300","offers":{"price":"42000"},"url":"/inventory/f300"}
]
</script></head><body></body></html>`

func run(t *testing.T, args ...string) string {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...))
	require.NoError(t, cmd.Execute())
	return out.String()
}

func writePage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o644))
	return path
}

func TestExtractPrintsListingsAsJSON(t *testing.T) {
	out := run(t, "extract", "--file", writePage(t), "--url", "https://dealer.example.com/inventory", "--json")

	var listings []models.Listing
	require.NoError(t, json.Unmarshal([]byte(out), &listings))
	require.Len(t, listings, 3)
	assert.Equal(t, "stock-C100", listings[0].ID)
	assert.Equal(t, "https://dealer.example.com/inventory/c100", listings[0].DetailURL)
}

func TestExtractRendersTable(t *testing.T) {
	out := run(t, "extract", "--file", writePage(t), "--url", "https://dealer.example.com/inventory")

	assert.Contains(t, out, "strategy structured-data")
	assert.Contains(t, out, "Escalade")
	assert.Contains(t, out, "$61500")
}

func TestQueryOverExtractedSnapshot(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "snapshot.json")
	run(t, "extract", "--file", writePage(t), "--url", "https://dealer.example.com/inventory", "--out", snapshot)

	out := run(t, "query", "--snapshot", snapshot, "--sort", "price_asc", "--max-price", "70000", "--json")

	var result query.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Listings, 2)
	assert.Equal(t, "stock-F300", result.Listings[0].ID)
	assert.Equal(t, "stock-T200", result.Listings[1].ID)
}

func TestQueryRejectsInvalidCriteria(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, writeSnapshot(snapshot, models.Snapshot{}))

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"query", "--snapshot", snapshot, "--sort", "mileage_asc"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid criteria")
}
