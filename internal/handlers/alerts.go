package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/medcena/offer-service/internal/alerts"
)

// CreateAlertRequest represents the body of the create alert endpoint
type CreateAlertRequest struct {
	ProductName string  `json:"product_name" binding:"required"`
	TargetPrice float64 `json:"target_price" binding:"required,gt=0"`
	City        string  `json:"city"`
}

// CreateAlert registers a price alert
// POST /alerts
func (a *API) CreateAlert(c *gin.Context) {
	var req CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alert, err := a.Alerts.Create(c.Request.Context(), alerts.Alert{
		ProductName: req.ProductName,
		TargetPrice: req.TargetPrice,
		City:        req.City,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create alert"})
		return
	}

	c.JSON(http.StatusCreated, alert)
}

// ListAlerts returns all registered alerts
// GET /alerts
func (a *API) ListAlerts(c *gin.Context) {
	list, err := a.Alerts.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list alerts"})
		return
	}
	if list == nil {
		list = []alerts.Alert{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": list, "total_count": len(list)})
}

// DeleteAlert removes an alert
// DELETE /alerts/:id
func (a *API) DeleteAlert(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	if err := a.Alerts.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, alerts.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete alert"})
		return
	}

	c.Status(http.StatusNoContent)
}
