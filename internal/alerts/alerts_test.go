package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcena/offer-service/internal/pricing"
	"github.com/medcena/offer-service/internal/search"
)

func corpus() []search.ProductOffers {
	return []search.ProductOffers{{
		Product: pricing.Product{ID: "p1", Name: "Aurora 22/1"},
		Offers: []pricing.Offer{
			{Pharmacy: "Apteka Centralna", Address: "Rynek 1, Kraków", Price: 32},
			{Pharmacy: "Apteka Nowa", Address: "Długa 5, Gdańsk", Price: 28},
			{Pharmacy: "Apteka Pod Orłem", Address: "Marszałkowska 10, Warszawa", Price: 45},
		},
	}}
}

func TestBestMatchPicksCheapestWithinWindow(t *testing.T) {
	e := NewEvaluator(nil, nil, 5, 0)

	m, ok := e.bestMatch(Alert{ProductName: "aurora 22/1", TargetPrice: 30}, corpus())
	require.True(t, ok)
	assert.Equal(t, "Apteka Nowa", m.Offer.Pharmacy)
	assert.Equal(t, 28.0, m.Price)
}

func TestBestMatchWindowWidensTrigger(t *testing.T) {
	e := NewEvaluator(nil, nil, 5, 0)

	// Target 25 alone matches nothing, but 28 sits inside the 5 zł window.
	m, ok := e.bestMatch(Alert{ProductName: "Aurora 22/1", TargetPrice: 25}, corpus())
	require.True(t, ok)
	assert.Equal(t, 28.0, m.Price)

	_, ok = e.bestMatch(Alert{ProductName: "Aurora 22/1", TargetPrice: 20}, corpus())
	assert.False(t, ok)
}

func TestBestMatchRespectsCity(t *testing.T) {
	e := NewEvaluator(nil, nil, 0, 0)

	m, ok := e.bestMatch(Alert{ProductName: "Aurora 22/1", TargetPrice: 50, City: "Kraków"}, corpus())
	require.True(t, ok)
	assert.Equal(t, "Apteka Centralna", m.Offer.Pharmacy)
}

func TestBestMatchUnknownProduct(t *testing.T) {
	e := NewEvaluator(nil, nil, 5, 0)
	_, ok := e.bestMatch(Alert{ProductName: "Nieznany", TargetPrice: 100}, corpus())
	assert.False(t, ok)
}
