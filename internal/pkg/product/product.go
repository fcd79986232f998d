// Package product turns raw CSV records into typed product records. Numeric
// coercion never fails the batch: a bad cell becomes a zero, which keeps one
// malformed row from blocking the whole invoice.
package product

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nordstock/invoicepipe/internal/pkg/csvparse"
)

// Record is one typed product row. FileName is the source CSV the row came
// from; every Record of a batch shares it.
type Record struct {
	FileName        string
	ProductID       string
	Style           string
	ProductName     string
	Size            string
	TariffCode      string
	CountryOfOrigin string
	Amount          int
	Locations       []string
	PurchasePrice   decimal.Decimal
	RRP             decimal.Decimal
}

// FromCSV maps parsed CSV records to product records, preserving row order.
// Row order determines invoice row placement, so it must not change here.
func FromCSV(fileName string, rows []csvparse.Record) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record{
			FileName:        fileName,
			ProductID:       strings.TrimSpace(row["product_id"]),
			Style:           strings.TrimSpace(row["style"]),
			ProductName:     strings.TrimSpace(row["name"]),
			Size:            strings.TrimSpace(row["size"]),
			TariffCode:      strings.TrimSpace(row["tariff_code"]),
			CountryOfOrigin: strings.TrimSpace(row["country_of_origin"]),
			Amount:          parseAmount(row["amount"]),
			Locations:       splitLocations(row["locations"]),
			PurchasePrice:   parsePrice(row["purchase_price_dkk"]),
			RRP:             parsePrice(row["rrp"]),
		})
	}
	return records
}

func parseAmount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parsePrice parses a Danish-formatted decimal ("1.234,56"). Everything but
// digits and the comma decimal separator is discarded before parsing.
func parsePrice(raw string) decimal.Decimal {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == ',' {
			b.WriteRune(r)
		}
	}

	cleaned := strings.ReplaceAll(b.String(), ",", ".")
	if cleaned == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// splitLocations splits a location cell on "-" and trims each segment. An
// absent or empty cell yields an empty slice rather than an error.
func splitLocations(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}

	parts := strings.Split(raw, "-")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
