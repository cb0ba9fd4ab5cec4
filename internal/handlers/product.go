package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/medcena/offer-service/internal/cities"
	"github.com/medcena/offer-service/internal/pricing"
)

// DefaultProductOfferLimit caps the offer list on the product detail page
// unless the caller asks for fewer.
const DefaultProductOfferLimit = 50

// ProductOffer is one offer row on the product detail page.
type ProductOffer struct {
	pricing.Offer
	EffectivePrice float64             `json:"effective_price"`
	PriceBucket    pricing.PriceBucket `json:"price_bucket"`
}

// ProductResponse represents the product detail response
type ProductResponse struct {
	Product    pricing.Product      `json:"product"`
	Offers     []ProductOffer       `json:"offers"`
	TopOffers  []ProductOffer       `json:"top3"`
	Trend      pricing.TrendSummary `json:"trend"`
	TotalCount int                  `json:"total"`
	Limit      int                  `json:"limit"`
	Offset     int                  `json:"offset"`
	Sort       string               `json:"sort"`
	Order      string               `json:"order"`
}

// GetProductRequest represents query parameters for the product endpoint
type GetProductRequest struct {
	City   string `form:"city"`
	Sort   string `form:"sort" binding:"omitempty,oneof=price rating pharmacy"`
	Order  string `form:"order" binding:"omitempty,oneof=asc desc"`
	Limit  int    `form:"limit" binding:"min=0,max=500"`
	Offset int    `form:"offset" binding:"min=0"`
}

// GetProduct returns one product with its offers, best-offer shortlist, and
// price trend
// GET /product/:name?city=Kraków&sort=price&order=asc&limit=50&offset=0
func (a *API) GetProduct(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product name is required"})
		return
	}

	var req GetProductRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit == 0 {
		req.Limit = DefaultProductOfferLimit
	}
	if req.Sort == "" {
		req.Sort = "price"
	}
	if req.Order == "" {
		req.Order = "asc"
	}

	snap, ok := a.currentSnapshot(c)
	if !ok {
		return
	}

	po, found := snap.Product(name)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	thresholds, hasThresholds := pricing.GroupThresholds(po.Offers)

	offers := make([]ProductOffer, 0, len(po.Offers))
	for _, o := range po.Offers {
		effective := pricing.EffectivePrice(o)
		// Prices below the display floor are almost always scrape glitches.
		if effective < a.Pricing.MinDisplayPrice {
			continue
		}
		if req.City != "" && !cities.AddressMatches(o.Address, req.City) {
			continue
		}
		offers = append(offers, ProductOffer{
			Offer:          o,
			EffectivePrice: effective,
			PriceBucket:    pricing.ClassifyPrice(effective, thresholds, hasThresholds),
		})
	}

	sortProductOffers(offers, req.Sort, req.Order)

	// The shortlist always reflects the cheapest offers, whatever the
	// caller sorts the full list by.
	cheapest := offers
	if req.Sort != "price" || req.Order != "asc" {
		cheapest = make([]ProductOffer, len(offers))
		copy(cheapest, offers)
		sortProductOffers(cheapest, "price", "asc")
	}

	resp := ProductResponse{
		Product:    po.Product,
		TopOffers:  topOffers(cheapest, 3),
		Trend:      pricing.AggregateTrend(snap.Trend(po.Product.ID)),
		TotalCount: len(offers),
		Limit:      req.Limit,
		Offset:     req.Offset,
		Sort:       req.Sort,
		Order:      req.Order,
	}
	if req.Offset >= len(offers) {
		offers = nil
	} else {
		offers = offers[req.Offset:]
	}
	if len(offers) > req.Limit {
		offers = offers[:req.Limit]
	}
	if offers == nil {
		offers = []ProductOffer{}
	}
	resp.Offers = offers

	c.JSON(http.StatusOK, resp)
}

func sortProductOffers(offers []ProductOffer, sortBy, order string) {
	sort.SliceStable(offers, func(i, j int) bool {
		var less bool
		switch sortBy {
		case "rating":
			ri, rj := offers[i].Rating, offers[j].Rating
			if rj == nil {
				return ri != nil
			}
			if ri == nil {
				return false
			}
			if *ri == *rj {
				return false
			}
			less = *ri < *rj
		case "pharmacy":
			if offers[i].Pharmacy == offers[j].Pharmacy {
				return false
			}
			less = offers[i].Pharmacy < offers[j].Pharmacy
		default:
			if offers[i].EffectivePrice == offers[j].EffectivePrice {
				return false
			}
			less = offers[i].EffectivePrice < offers[j].EffectivePrice
		}
		if order == "desc" {
			return !less
		}
		return less
	})
}

// topOffers picks the first n offers with distinct (pharmacy, expiration)
// pairs, so the shortlist is not three rows of the same pharmacy batch.
func topOffers(sorted []ProductOffer, n int) []ProductOffer {
	type key struct {
		pharmacy   string
		expiration string
	}
	seen := make(map[key]bool, n)
	top := make([]ProductOffer, 0, n)
	for _, o := range sorted {
		k := key{o.Pharmacy, o.Expiration}
		if seen[k] {
			continue
		}
		seen[k] = true
		top = append(top, o)
		if len(top) == n {
			break
		}
	}
	return top
}
