package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/medcena/offer-service/internal/cities"
	"github.com/medcena/offer-service/internal/pricing"
)

// Best-deal paging bounds.
const (
	DefaultBestDealsLimit = 10
	MaxBestDealsLimit     = 50
)

// BestDealsRequest represents query parameters for the best deals endpoint
type BestDealsRequest struct {
	City  string `form:"city"`
	Limit int    `form:"limit" binding:"min=0,max=50"`
}

// Deal is the cheapest live offer for one product.
type Deal struct {
	ProductID   string              `json:"id"`
	ProductName string              `json:"name"`
	Label       string              `json:"label"`
	StrainType  pricing.StrainType  `json:"strain_type"`
	Price       float64             `json:"price"`
	PriceBucket pricing.PriceBucket `json:"price_bucket"`
	Offer       pricing.Offer       `json:"offer"`
}

// BestDeals returns the cheapest offer per product, cheapest products first
// GET /deals/best?city=Kraków&limit=10
func (a *API) BestDeals(c *gin.Context) {
	var req BestDealsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit == 0 {
		req.Limit = DefaultBestDealsLimit
	}
	if req.Limit > MaxBestDealsLimit {
		req.Limit = MaxBestDealsLimit
	}

	snap, ok := a.currentSnapshot(c)
	if !ok {
		return
	}

	deals := make([]Deal, 0, len(snap.Corpus))
	for _, po := range snap.Corpus {
		thresholds, hasThresholds := pricing.GroupThresholds(po.Offers)

		var best *pricing.Offer
		var bestPrice float64
		for i := range po.Offers {
			o := po.Offers[i]
			price := pricing.EffectivePrice(o)
			if price < a.Pricing.MinDisplayPrice {
				continue
			}
			if req.City != "" && !cities.AddressMatches(o.Address, req.City) {
				continue
			}
			if best == nil || price < bestPrice {
				best = &po.Offers[i]
				bestPrice = price
			}
		}
		if best == nil {
			continue
		}
		deals = append(deals, Deal{
			ProductID:   po.Product.ID,
			ProductName: po.Product.Name,
			Label:       po.Product.Label,
			StrainType:  po.Product.StrainType,
			Price:       bestPrice,
			PriceBucket: pricing.ClassifyPrice(bestPrice, thresholds, hasThresholds),
			Offer:       *best,
		})
	}

	sort.SliceStable(deals, func(i, j int) bool {
		return deals[i].Price < deals[j].Price
	})
	total := len(deals)
	if len(deals) > req.Limit {
		deals = deals[:req.Limit]
	}

	c.JSON(http.StatusOK, gin.H{"deals": deals, "total_count": total})
}
