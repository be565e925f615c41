package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"refund-billing-service/internal/billing"
	"refund-billing-service/internal/models"
	"refund-billing-service/internal/subscription"
)

// SubscriptionHandler handles subscription lifecycle HTTP requests
type SubscriptionHandler struct {
	service *subscription.Service
	poller  *subscription.Poller
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(service *subscription.Service, poller *subscription.Poller) *SubscriptionHandler {
	return &SubscriptionHandler{service: service, poller: poller}
}

// CreateSubscription handles POST /api/v1/subscription
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	merchantID := c.GetString("merchantID")

	var req models.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.service.CreateCheckout(c.Request.Context(), merchantID, req.PlanType)
	if err != nil {
		var unknownPlan billing.ErrUnknownPlan
		switch {
		case errors.As(err, &unknownPlan):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "Unknown plan",
				Message: err.Error(),
			})
		case errors.Is(err, models.ErrSubscriptionActive):
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Error:   "Subscription already active",
				Message: err.Error(),
			})
		case errors.Is(err, models.ErrMerchantNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "Merchant not found",
				Message: err.Error(),
			})
		default:
			c.JSON(http.StatusBadGateway, models.ErrorResponse{
				Error:   "Failed to create subscription",
				Message: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// UpdatePlan handles PUT /api/v1/subscription/plan
func (h *SubscriptionHandler) UpdatePlan(c *gin.Context) {
	merchantID := c.GetString("merchantID")

	var req models.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.service.ChangePlan(c.Request.Context(), merchantID, req.NewPlanType)
	if err != nil {
		var unknownPlan billing.ErrUnknownPlan
		switch {
		case errors.As(err, &unknownPlan):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "Unknown plan",
				Message: err.Error(),
			})
		case errors.Is(err, models.ErrMerchantNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "Merchant not found",
				Message: err.Error(),
			})
		case errors.Is(err, models.ErrNoGatewaySubscription):
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Error:   "No gateway subscription",
				Message: err.Error(),
			})
		default:
			c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
				Error:   "Failed to change plan",
				Message: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CancelSubscription handles DELETE /api/v1/subscription
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	merchantID := c.GetString("merchantID")

	if err := h.service.Cancel(c.Request.Context(), merchantID); err != nil {
		switch {
		case errors.Is(err, models.ErrMerchantNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "Merchant not found",
				Message: err.Error(),
			})
		case errors.Is(err, models.ErrNoGatewaySubscription):
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Error:   "No gateway subscription",
				Message: err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "Failed to cancel subscription",
				Message: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// VerifyPayment handles POST /api/v1/subscription/verify
//
// Called after the gateway checkout callback fires. The callback itself is
// untrusted, so this blocks while polling the persisted status for the
// webhook-driven activation. A timeout is reported as pending, not failure:
// the charge may still land and the status self-corrects.
func (h *SubscriptionHandler) VerifyPayment(c *gin.Context) {
	merchantID := c.GetString("merchantID")

	outcome, err := h.poller.AwaitActivation(c.Request.Context(), merchantID)
	if err != nil {
		c.JSON(http.StatusRequestTimeout, models.ErrorResponse{
			Error:   "Verification interrupted",
			Message: err.Error(),
		})
		return
	}

	switch outcome {
	case subscription.VerificationConfirmed:
		c.JSON(http.StatusOK, gin.H{"outcome": outcome, "subscriptionStatus": models.SubscriptionActive})
	default:
		c.JSON(http.StatusAccepted, gin.H{
			"outcome": outcome,
			"message": "Payment not yet confirmed; status will update when the gateway webhook arrives",
		})
	}
}

// GetSubscriptionStatus handles GET /api/v1/subscription/status
//
// Checkout completion pages poll this endpoint until the webhook flips the
// merchant active; the checkout callback itself is never trusted.
func (h *SubscriptionHandler) GetSubscriptionStatus(c *gin.Context) {
	merchantID := c.GetString("merchantID")

	status, err := h.service.Status(c.Request.Context(), merchantID)
	if err != nil {
		if errors.Is(err, models.ErrMerchantNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "Merchant not found",
				Message: err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to get subscription status",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, status)
}
