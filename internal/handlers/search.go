package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medcena/offer-service/internal/pricing"
	"github.com/medcena/offer-service/internal/search"
)

// SearchRequest represents query parameters for the search endpoint
type SearchRequest struct {
	City      string   `form:"city"`
	Name      string   `form:"name"`
	Strain    string   `form:"strain_type"`
	MaxPrice  *float64 `form:"max_price"`
	MinTHC    *float64 `form:"min_thc"`
	MaxTHC    *float64 `form:"max_thc"`
	MinCBD    *float64 `form:"min_cbd"`
	MaxCBD    *float64 `form:"max_cbd"`
	Radius    *float64 `form:"radius"`
	Lat       *float64 `form:"lat"`
	Lon       *float64 `form:"lon"`
	SortBy    string   `form:"sort_by"`
	SortOrder string   `form:"sort_order"`
	Limit     int      `form:"limit"`
	Offset    int      `form:"offset"`
}

// Search filters and ranks offers across all products
// GET /search?city=Kraków&max_price=30&sort_by=price
func (a *API) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, ok := a.currentSnapshot(c)
	if !ok {
		return
	}

	result, err := search.Run(snap.Corpus, search.Filters{
		City:        req.City,
		ProductName: req.Name,
		StrainType:  req.Strain,
		MaxPrice:    req.MaxPrice,
		MinTHC:      req.MinTHC,
		MaxTHC:      req.MaxTHC,
		MinCBD:      req.MinCBD,
		MaxCBD:      req.MaxCBD,
		Radius:      req.Radius,
		Lat:         req.Lat,
		Lon:         req.Lon,
		SortBy:      req.SortBy,
		SortOrder:   req.SortOrder,
		Limit:       req.Limit,
		Offset:      req.Offset,
	})
	if err != nil {
		var verr pricing.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
