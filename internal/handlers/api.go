// Package handlers implements the HTTP API over the offer snapshot.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medcena/offer-service/config"
	"github.com/medcena/offer-service/internal/alerts"
	"github.com/medcena/offer-service/internal/snapshot"
)

// API bundles the snapshot store and pricing rules behind the HTTP handlers.
type API struct {
	Store   *snapshot.Store
	Pricing config.PricingConfig
	Alerts  *alerts.Store
}

// NewAPI creates the handler set.
func NewAPI(store *snapshot.Store, pricing config.PricingConfig, alertStore *alerts.Store) *API {
	return &API{Store: store, Pricing: pricing, Alerts: alertStore}
}

// RegisterRoutes attaches all public endpoints to the router.
func (a *API) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", a.HealthCheck)
	router.GET("/capabilities", a.Capabilities)

	router.GET("/search", a.Search)
	router.GET("/product/:name", a.GetProduct)
	router.GET("/products", a.ListProducts)
	router.GET("/stats", a.GetStats)
	router.GET("/cities", a.ListCities)
	router.GET("/cities_stats", a.GetCitiesStats)

	deals := router.Group("/deals")
	{
		deals.GET("/best", a.BestDeals)
	}

	if a.Alerts != nil {
		alerts := router.Group("/alerts")
		{
			alerts.POST("", a.CreateAlert)
			alerts.GET("", a.ListAlerts)
			alerts.DELETE("/:id", a.DeleteAlert)
		}
	}
}

// currentSnapshot fetches the snapshot or aborts with 503 when the corpus has
// not been loaded yet.
func (a *API) currentSnapshot(c *gin.Context) (*snapshot.Snapshot, bool) {
	snap := a.Store.Current()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Offer data not loaded yet"})
		return nil, false
	}
	return snap, true
}
