// Package importer parses offer files (CSV, XLSX) into raw offer rows and
// writes them to the price store. Parsing never aborts on a bad row; errors
// are collected per line so one typo does not sink a whole import.
package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/medcena/offer-service/internal/pricing"
)

// Row is one parsed offer line, keyed by the product name it belongs to.
type Row struct {
	ProductName string
	Offer       pricing.RawOffer
}

// RowError records a rejected source line.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Result is the outcome of parsing one file.
type Result struct {
	Rows   []Row
	Errors []RowError
}

// expected column order; a header row must name them.
var columns = []string{
	"product_name", "pharmacy", "address", "price", "price_per_g", "unit",
	"lat", "lon", "rating", "expiration", "fetched_at", "map_url",
}

// headerIndex maps column names to their position in the header row.
// Unknown columns are ignored; missing required columns are an error.
func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"product_name", "pharmacy", "price"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}
	return idx, nil
}

func cell(record []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseFloatCell(record []string, idx map[string]int, name string) (*float64, error) {
	s := cell(record, idx, name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", name, err)
	}
	return &v, nil
}

// parseRecord turns one data record into a Row.
func parseRecord(record []string, idx map[string]int) (Row, error) {
	productName := cell(record, idx, "product_name")
	if productName == "" {
		return Row{}, fmt.Errorf("empty product_name")
	}

	offer := pricing.RawOffer{
		Pharmacy:   cell(record, idx, "pharmacy"),
		Address:    cell(record, idx, "address"),
		Unit:       cell(record, idx, "unit"),
		Expiration: cell(record, idx, "expiration"),
		MapURL:     cell(record, idx, "map_url"),
	}
	if offer.Pharmacy == "" {
		return Row{}, fmt.Errorf("empty pharmacy")
	}

	var err error
	if offer.Price, err = parseFloatCell(record, idx, "price"); err != nil {
		return Row{}, err
	}
	if offer.Price == nil {
		return Row{}, fmt.Errorf("empty price")
	}
	if offer.PricePerGram, err = parseFloatCell(record, idx, "price_per_g"); err != nil {
		return Row{}, err
	}
	if offer.PharmacyLat, err = parseFloatCell(record, idx, "lat"); err != nil {
		return Row{}, err
	}
	if offer.PharmacyLon, err = parseFloatCell(record, idx, "lon"); err != nil {
		return Row{}, err
	}
	if offer.Rating, err = parseFloatCell(record, idx, "rating"); err != nil {
		return Row{}, err
	}

	if fetched := cell(record, idx, "fetched_at"); fetched != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, perr := time.Parse(layout, fetched); perr == nil {
				offer.FetchedAt = t.UTC()
				break
			}
		}
		if offer.FetchedAt.IsZero() {
			return Row{}, fmt.Errorf("column %q: unparseable timestamp %q", "fetched_at", fetched)
		}
	} else {
		offer.FetchedAt = time.Now().UTC()
	}

	return Row{ProductName: productName, Offer: offer}, nil
}
