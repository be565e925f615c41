package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"refund-billing-service/internal/models"
	"refund-billing-service/internal/services"
)

// BillingHandler handles billing read-side HTTP requests
type BillingHandler struct {
	service *services.BillingService
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(service *services.BillingService) *BillingHandler {
	return &BillingHandler{service: service}
}

// GetBillingPreview handles GET /api/v1/billing/preview
func (h *BillingHandler) GetBillingPreview(c *gin.Context) {
	merchantID := c.GetString("merchantID")

	preview, err := h.service.Preview(c.Request.Context(), merchantID)
	if err != nil {
		if errors.Is(err, models.ErrMerchantNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "Merchant not found",
				Message: err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to compute billing preview",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, preview)
}

// ListPayments handles GET /api/v1/billing/payments
func (h *BillingHandler) ListPayments(c *gin.Context) {
	merchantID := c.GetString("merchantID")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "24"))

	payments, err := h.service.Payments(c.Request.Context(), merchantID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to list payments",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payments": payments,
		"count":    len(payments),
	})
}
