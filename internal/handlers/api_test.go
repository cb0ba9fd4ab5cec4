package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcena/offer-service/config"
	"github.com/medcena/offer-service/internal/pricing"
	"github.com/medcena/offer-service/internal/search"
	"github.com/medcena/offer-service/internal/snapshot"
)

type stubLoader struct {
	result snapshot.LoadResult
}

func (s stubLoader) LoadCorpus(ctx context.Context) (snapshot.LoadResult, error) {
	return s.result, nil
}

func fptr(v float64) *float64 { return &v }

func fixtureResult() snapshot.LoadResult {
	day1 := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	return snapshot.LoadResult{
		Corpus: []search.ProductOffers{
			{
				Product: pricing.Product{
					ID: "p1", Name: "Aurora 22", Label: "Aurora",
					StrainType: pricing.StrainIndica, THCContent: fptr(22),
				},
				Offers: []pricing.Offer{
					{Pharmacy: "Apteka Centralna", Address: "Rynek 1, Kraków", Price: 32, FetchedAt: day2, Expiration: "2027-01-01"},
					{Pharmacy: "Apteka Nowa", Address: "Długa 5, Gdańsk", Price: 28, FetchedAt: day2},
					{Pharmacy: "Apteka Tania", Address: "Rynek 2, Kraków", Price: 2, FetchedAt: day2}, // below display floor
				},
			},
			{
				Product: pricing.Product{ID: "p2", Name: "Canopy Hybrid", StrainType: pricing.StrainHybrid},
				Offers: []pricing.Offer{
					{Pharmacy: "Apteka Centralna", Address: "Rynek 1, Kraków", Price: 45, FetchedAt: day2},
				},
			},
		},
		Trends: map[string][]pricing.TrendPoint{
			"p1": {
				{FetchedAt: day1, Price: 35},
				{FetchedAt: day2, Price: 28},
			},
		},
	}
}

func newTestAPI(t *testing.T, warm bool) (*API, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := snapshot.NewStore(stubLoader{result: fixtureResult()}, 0)
	t.Cleanup(func() { store.Close() })
	if warm {
		require.NoError(t, store.Warmup(context.Background()))
	}

	api := NewAPI(store, config.PricingConfig{MinDisplayPrice: 10, ShortExpiryDays: 30}, nil)
	router := gin.New()
	api.RegisterRoutes(router)
	return api, router
}

func doGet(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestSearchEndpoint(t *testing.T) {
	_, router := newTestAPI(t, true)

	w := doGet(router, "/search?city=Krak%C3%B3w&sort_by=price")
	require.Equal(t, http.StatusOK, w.Code)

	var res search.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, 3, res.TotalCount)
	assert.Equal(t, 2.0, res.Items[0].Price)
}

func TestSearchEndpointRejectsBadSort(t *testing.T) {
	_, router := newTestAPI(t, true)
	w := doGet(router, "/search?sort_by=bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchBeforeWarmupReturns503(t *testing.T) {
	_, router := newTestAPI(t, false)
	w := doGet(router, "/search")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetProduct(t *testing.T) {
	_, router := newTestAPI(t, true)

	w := doGet(router, "/product/aurora%2022")
	require.Equal(t, http.StatusOK, w.Code)

	var res ProductResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "p1", res.Product.ID)

	// The 2 zł glitch row is filtered by the display floor.
	require.Equal(t, 2, res.TotalCount)
	assert.Equal(t, 28.0, res.Offers[0].EffectivePrice)

	require.Len(t, res.TopOffers, 2)
	assert.Equal(t, "Apteka Nowa", res.TopOffers[0].Pharmacy)

	require.True(t, res.Trend.HasData)
	require.Len(t, res.Trend.Points, 2)
	assert.True(t, res.Trend.IsHistoricalLow)
}

func TestGetProductSortDesc(t *testing.T) {
	_, router := newTestAPI(t, true)

	w := doGet(router, "/product/Aurora%2022?sort=price&order=desc")
	require.Equal(t, http.StatusOK, w.Code)

	var res ProductResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, 2, res.TotalCount)
	assert.Equal(t, 32.0, res.Offers[0].EffectivePrice)

	// The shortlist stays cheapest-first regardless of the list order.
	require.NotEmpty(t, res.TopOffers)
	assert.Equal(t, 28.0, res.TopOffers[0].EffectivePrice)
}

func TestGetProductOffsetPastEnd(t *testing.T) {
	_, router := newTestAPI(t, true)

	w := doGet(router, "/product/Aurora%2022?offset=5")
	require.Equal(t, http.StatusOK, w.Code)

	var res ProductResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.TotalCount)
	assert.Empty(t, res.Offers)
}

func TestGetProductNotFound(t *testing.T) {
	_, router := newTestAPI(t, true)
	w := doGet(router, "/product/nieznany")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetProductCityFilter(t *testing.T) {
	_, router := newTestAPI(t, true)

	w := doGet(router, "/product/Aurora%2022?city=Krak%C3%B3w")
	require.Equal(t, http.StatusOK, w.Code)

	var res ProductResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, 1, res.TotalCount)
	assert.Equal(t, "Apteka Centralna", res.Offers[0].Pharmacy)
}

func TestBestDeals(t *testing.T) {
	_, router := newTestAPI(t, true)

	w := doGet(router, "/deals/best")
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Deals      []Deal `json:"deals"`
		TotalCount int    `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, 2, res.TotalCount)
	assert.Equal(t, "p1", res.Deals[0].ProductID)
	assert.Equal(t, 28.0, res.Deals[0].Price)
	assert.Equal(t, "p2", res.Deals[1].ProductID)
}

func TestGetStats(t *testing.T) {
	_, router := newTestAPI(t, true)

	w := doGet(router, "/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var res StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Products)
	assert.Equal(t, 4, res.Offers)
	assert.Equal(t, 3, res.TotalPharmacies)
	assert.Equal(t, 2, res.CitiesCovered)
	assert.Equal(t, 2.0, res.LowestPrice)
	assert.Equal(t, 45.0, res.HighestPrice)
}

func TestGetStatsCityFilter(t *testing.T) {
	_, router := newTestAPI(t, true)

	w := doGet(router, "/stats?city=Gda%C5%84sk")
	require.Equal(t, http.StatusOK, w.Code)

	var res StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Products)
	assert.Equal(t, 1, res.Offers)
	assert.Equal(t, 1, res.TotalPharmacies)
	assert.Equal(t, 1, res.CitiesCovered)
	assert.Equal(t, 28.0, res.AvgPrice)
}

func TestGetStatsStrainFilter(t *testing.T) {
	_, router := newTestAPI(t, true)

	w := doGet(router, "/stats?strain_type=hybrid")
	require.Equal(t, http.StatusOK, w.Code)

	var res StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Products)
	assert.Equal(t, 1, res.Offers)
	assert.Equal(t, 45.0, res.HighestPrice)
}

func TestListCities(t *testing.T) {
	_, router := newTestAPI(t, true)

	w := doGet(router, "/cities")
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Cities []string `json:"cities"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Contains(t, res.Cities, "Warszawa")
	assert.Contains(t, res.Cities, "Kraków")
}

func TestGetCitiesStats(t *testing.T) {
	_, router := newTestAPI(t, true)

	w := doGet(router, "/cities_stats")
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Cities []CityStats `json:"cities"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	// Busiest city first.
	require.Len(t, res.Cities, 2)
	assert.Equal(t, "Kraków", res.Cities[0].City)
	assert.Equal(t, 3, res.Cities[0].Offers)
	assert.Equal(t, 2, res.Cities[0].Pharmacies)
	assert.Equal(t, "Gdańsk", res.Cities[1].City)
	assert.Equal(t, 1, res.Cities[1].Offers)
	assert.Equal(t, 1, res.Cities[1].Pharmacies)
}

func TestCapabilities(t *testing.T) {
	_, router := newTestAPI(t, true)

	w := doGet(router, "/capabilities")
	require.Equal(t, http.StatusOK, w.Code)

	var res CapabilitiesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Contains(t, res.Filters, "max_price")
	assert.Contains(t, res.SortBy, "price")
	assert.Equal(t, search.MaxLimit, res.MaxLimit)
}

func TestListProducts(t *testing.T) {
	_, router := newTestAPI(t, true)

	w := doGet(router, "/products")
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Products   []ProductSummary `json:"products"`
		TotalCount int              `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, 2, res.TotalCount)
	assert.Equal(t, 3, res.Products[0].OfferCount)
	assert.Equal(t, 2.0, res.Products[0].LowestPrice)
}
