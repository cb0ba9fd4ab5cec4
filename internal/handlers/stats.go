package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medcena/offer-service/internal/cities"
	"github.com/medcena/offer-service/internal/pricing"
	"github.com/medcena/offer-service/internal/search"
)

// StatsRequest represents the optional filters on the stats endpoint
type StatsRequest struct {
	City        string `form:"city"`
	ProductName string `form:"product_name"`
	StrainType  string `form:"strain_type"`
}

// StatsResponse represents corpus-wide statistics
type StatsResponse struct {
	Products        int       `json:"products"`
	Offers          int       `json:"offers"`
	TotalPharmacies int       `json:"total_pharmacies"`
	CitiesCovered   int       `json:"cities_covered"`
	AvgPrice        float64   `json:"avg_price"`
	LowestPrice     float64   `json:"lowest_price"`
	HighestPrice    float64   `json:"highest_price"`
	SkippedRows     int       `json:"skipped_rows"`
	LastUpdated     time.Time `json:"last_updated"`
}

// GetStats returns corpus-wide offer statistics, optionally narrowed by
// city, product name, or strain type
// GET /stats?city=Kraków&strain_type=indica
func (a *API) GetStats(c *gin.Context) {
	var req StatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, ok := a.currentSnapshot(c)
	if !ok {
		return
	}

	resp := StatsResponse{
		SkippedRows: snap.SkippedRows,
		LastUpdated: snap.LoadedAt,
	}

	pharmacies := make(map[string]bool)
	covered := make(map[string]bool)
	var sum float64
	var count int
	for _, po := range snap.Corpus {
		if req.ProductName != "" && cities.Fold(po.Product.Name) != cities.Fold(req.ProductName) {
			continue
		}
		if req.StrainType != "" && req.StrainType != search.AllSentinel &&
			string(po.Product.StrainType) != req.StrainType {
			continue
		}
		matched := 0
		for _, o := range po.Offers {
			if req.City != "" && !cities.AddressMatches(o.Address, req.City) {
				continue
			}
			matched++
			pharmacies[o.Pharmacy] = true
			if city := cities.FromAddress(o.Address); city != "" {
				covered[city] = true
			}
			price := pricing.EffectivePrice(o)
			if price <= 0 {
				continue
			}
			if count == 0 || price < resp.LowestPrice {
				resp.LowestPrice = price
			}
			if price > resp.HighestPrice {
				resp.HighestPrice = price
			}
			sum += price
			count++
		}
		if matched > 0 {
			resp.Products++
			resp.Offers += matched
		}
	}
	resp.TotalPharmacies = len(pharmacies)
	resp.CitiesCovered = len(covered)
	if count > 0 {
		resp.AvgPrice = sum / float64(count)
	}

	c.JSON(http.StatusOK, resp)
}

// ProductSummary is one row in the product list.
type ProductSummary struct {
	pricing.Product
	OfferCount  int     `json:"offer_count"`
	LowestPrice float64 `json:"lowest_price"`
}

// ListProducts returns all known products with offer counts
// GET /products
func (a *API) ListProducts(c *gin.Context) {
	snap, ok := a.currentSnapshot(c)
	if !ok {
		return
	}

	products := make([]ProductSummary, 0, len(snap.Corpus))
	for _, po := range snap.Corpus {
		summary := ProductSummary{Product: po.Product, OfferCount: len(po.Offers)}
		for _, o := range po.Offers {
			price := pricing.EffectivePrice(o)
			if price <= 0 {
				continue
			}
			if summary.LowestPrice == 0 || price < summary.LowestPrice {
				summary.LowestPrice = price
			}
		}
		products = append(products, summary)
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "total_count": len(products)})
}

// ListCities returns the supported city list
// GET /cities
func (a *API) ListCities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cities": cities.Names()})
}

// CityStats is per-city offer coverage.
type CityStats struct {
	City       string  `json:"city"`
	Pharmacies int     `json:"pharmacies"`
	Offers     int     `json:"offers"`
	AvgPrice   float64 `json:"avg_price"`
}

// GetCitiesStats returns pharmacy and offer counts with average prices per
// city, busiest cities first
// GET /cities_stats
func (a *API) GetCitiesStats(c *gin.Context) {
	snap, ok := a.currentSnapshot(c)
	if !ok {
		return
	}

	stats := make([]CityStats, 0, len(cities.List))
	for _, city := range cities.List {
		pharmacies := make(map[string]bool)
		var sum float64
		var count int
		for _, po := range snap.Corpus {
			for _, o := range po.Offers {
				if !cities.AddressMatches(o.Address, city) {
					continue
				}
				pharmacies[o.Pharmacy] = true
				sum += pricing.EffectivePrice(o)
				count++
			}
		}
		if count == 0 {
			continue
		}
		stats = append(stats, CityStats{
			City:       city,
			Pharmacies: len(pharmacies),
			Offers:     count,
			AvgPrice:   sum / float64(count),
		})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Pharmacies > stats[j].Pharmacies
	})

	c.JSON(http.StatusOK, gin.H{"cities": stats})
}
