package importer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = `product_name,pharmacy,address,price,price_per_g,unit,expiration,fetched_at
Aurora 22,Apteka Centralna,"Rynek 1, Kraków",45.50,,10 g,2026-12-01,2026-03-01 08:00:00
Aurora 22,Apteka Nowa,"Długa 5, Gdańsk",44,4.40,10 g,,2026-03-01
Canopy Hybrid,Apteka Pod Orłem,,38,,,,
`

func TestParseCSV(t *testing.T) {
	res, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Len(t, res.Rows, 3)

	first := res.Rows[0]
	assert.Equal(t, "Aurora 22", first.ProductName)
	assert.Equal(t, "Apteka Centralna", first.Offer.Pharmacy)
	require.NotNil(t, first.Offer.Price)
	assert.Equal(t, 45.50, *first.Offer.Price)
	assert.Nil(t, first.Offer.PricePerGram)
	assert.Equal(t, "2026-12-01", first.Offer.Expiration)
	assert.Equal(t, 2026, first.Offer.FetchedAt.Year())

	second := res.Rows[1]
	require.NotNil(t, second.Offer.PricePerGram)
	assert.Equal(t, 4.40, *second.Offer.PricePerGram)

	// Third row has no fetched_at; the importer stamps it.
	assert.False(t, res.Rows[2].Offer.FetchedAt.IsZero())
}

func TestParseCSVCollectsRowErrors(t *testing.T) {
	csv := `product_name,pharmacy,price
Aurora 22,Apteka Centralna,45.50
,Apteka Nowa,44
Aurora 22,,38
Aurora 22,Apteka Tania,abc
Canopy Hybrid,Apteka Pod Orłem,38
`
	res, err := ParseCSV(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, 3, res.Errors[0].Line)
	assert.Contains(t, res.Errors[0].Error(), "product_name")
	assert.Contains(t, res.Errors[1].Error(), "pharmacy")
	assert.Contains(t, res.Errors[2].Error(), "price")
}

func TestParseCSVMissingRequiredColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("product_name,address\nAurora 22,Rynek 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pharmacy")
}

func TestParseCSVCommaDecimal(t *testing.T) {
	csv := "product_name,pharmacy,price\nAurora 22,Apteka Centralna,\"45,50\"\n"
	res, err := ParseCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 45.50, *res.Rows[0].Offer.Price)
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"product_name", "pharmacy", "address", "price", "price_per_g"},
		{"Aurora 22", "Apteka Centralna", "Rynek 1, Kraków", 45.5, nil},
		{"Canopy Hybrid", "Apteka Nowa", "Długa 5, Gdańsk", 38, 3.8},
		{"", "Apteka Tania", "", 20, nil}, // bad: no product name
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	res, err := ParseXLSX(&buf)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 4, res.Errors[0].Line)

	assert.Equal(t, "Aurora 22", res.Rows[0].ProductName)
	require.NotNil(t, res.Rows[0].Offer.Price)
	assert.Equal(t, 45.5, *res.Rows[0].Offer.Price)
	require.NotNil(t, res.Rows[1].Offer.PricePerGram)
	assert.Equal(t, 3.8, *res.Rows[1].Offer.PricePerGram)
}
