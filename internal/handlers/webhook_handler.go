package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"refund-billing-service/internal/models"
	"refund-billing-service/internal/services"
)

// WebhookHandler handles gateway webhook HTTP requests
type WebhookHandler struct {
	service *services.WebhookService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(service *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// HandleRazorpayWebhook handles POST /webhooks/razorpay
func (h *WebhookHandler) HandleRazorpayWebhook(c *gin.Context) {
	signature := c.GetHeader("X-Razorpay-Signature")
	if signature == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Missing signature",
			Message: "X-Razorpay-Signature header is required",
		})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Failed to read request body",
			Message: err.Error(),
		})
		return
	}

	eventID := c.GetHeader("X-Razorpay-Event-Id")

	if err := h.service.Process(c.Request.Context(), eventID, body, signature); err != nil {
		// A failed signature check must not leak whether the event exists.
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Failed to process webhook",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Webhook processed successfully",
	})
}

// HandleStripeWebhook handles POST /webhooks/stripe
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Missing signature",
			Message: "Stripe-Signature header is required",
		})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Failed to read request body",
			Message: err.Error(),
		})
		return
	}

	if err := h.service.Process(c.Request.Context(), "", body, signature); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Failed to process webhook",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Webhook processed successfully",
	})
}
