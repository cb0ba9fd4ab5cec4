package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medcena/offer-service/internal/search"
)

// CapabilitiesResponse advertises the filters and sort keys the search API
// supports, so clients can build their UI without hardcoding them.
type CapabilitiesResponse struct {
	Filters     []string `json:"filters"`
	SortBy      []string `json:"sort_by"`
	SortOrders  []string `json:"sort_orders"`
	StrainTypes []string `json:"strain_types"`
	MaxLimit    int      `json:"max_limit"`
}

// Capabilities describes the search API surface
// GET /capabilities
func (a *API) Capabilities(c *gin.Context) {
	c.JSON(http.StatusOK, CapabilitiesResponse{
		Filters: []string{
			"city", "name", "strain_type", "max_price",
			"min_thc", "max_thc", "min_cbd", "max_cbd",
			"radius", "lat", "lon",
		},
		SortBy:      []string{search.SortByPrice, search.SortByRating, search.SortByDistance, search.SortByName},
		SortOrders:  []string{search.OrderAsc, search.OrderDesc},
		StrainTypes: []string{"indica", "sativa", "hybrid", "unknown"},
		MaxLimit:    search.MaxLimit,
	})
}
