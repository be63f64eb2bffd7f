package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"dealer-inventory/pkg/models"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func renderListings(out io.Writer, listings []models.Listing) {
	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Year", "Make", "Model", "Trim", "Price", "Mileage", "Stock"})
	for _, l := range listings {
		t.AppendRow(table.Row{l.ID, yearCell(l.Year), l.Make, l.Model, l.Trim, priceCell(l), mileageCell(l), l.StockNumber})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Total", len(listings)})
	t.Render()
}

func yearCell(year int) string {
	if year == 0 {
		return ""
	}
	return strconv.Itoa(year)
}

func priceCell(l models.Listing) string {
	if l.Price == 0 {
		if l.PriceDisplay != "" {
			return l.PriceDisplay
		}
		return "call"
	}
	return fmt.Sprintf("$%d", l.Price)
}

func mileageCell(l models.Listing) string {
	if l.Mileage == 0 {
		return l.MileageDisplay
	}
	return fmt.Sprintf("%d mi", l.Mileage)
}
