package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"refund-billing-service/internal/models"
	"refund-billing-service/internal/scoreboard"
	"refund-billing-service/internal/subscription"
)

// ForceRescueRequest carries the backfills an operator may apply during a
// rescue.
type ForceRescueRequest struct {
	PlanType  models.PlanType `json:"planType"`
	BrandName string          `json:"brandName"`
}

// AdminHandler handles operator endpoints: status overrides, rescue and
// scoreboard reconciliation. All routes behind AdminAuthMiddleware.
type AdminHandler struct {
	subscriptions *subscription.Service
	reconciler    *scoreboard.Reconciler
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(subscriptions *subscription.Service, reconciler *scoreboard.Reconciler) *AdminHandler {
	return &AdminHandler{
		subscriptions: subscriptions,
		reconciler:    reconciler,
	}
}

// SuspendMerchant handles POST /api/v1/admin/merchants/:id/suspend
func (h *AdminHandler) SuspendMerchant(c *gin.Context) {
	h.statusFlip(c, h.subscriptions.AdminSuspend, "suspended")
}

// ActivateMerchant handles POST /api/v1/admin/merchants/:id/activate
func (h *AdminHandler) ActivateMerchant(c *gin.Context) {
	h.statusFlip(c, h.subscriptions.AdminActivate, "active")
}

func (h *AdminHandler) statusFlip(c *gin.Context, flip func(ctx context.Context, merchantID string) error, result string) {
	merchantID := c.Param("id")

	if err := flip(c.Request.Context(), merchantID); err != nil {
		switch {
		case errors.Is(err, models.ErrMerchantNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "Merchant not found",
				Message: err.Error(),
			})
		default:
			var invalid subscription.ErrInvalidTransition
			if errors.As(err, &invalid) {
				c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
					Error:   "Invalid status transition",
					Message: err.Error(),
				})
				return
			}
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "Failed to update merchant status",
				Message: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": result, "merchantId": merchantID})
}

// RescueMerchant handles POST /api/v1/admin/merchants/:id/rescue
func (h *AdminHandler) RescueMerchant(c *gin.Context) {
	merchantID := c.Param("id")

	var req ForceRescueRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	err := h.subscriptions.ForceRescue(c.Request.Context(), merchantID, subscription.RescueFields{
		PlanType:  req.PlanType,
		BrandName: req.BrandName,
	})
	if err != nil {
		if errors.Is(err, models.ErrMerchantNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "Merchant not found",
				Message: err.Error(),
			})
			return
		}
		if errors.Is(err, models.ErrMissingRequiredField) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "Missing required field",
				Message: err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to rescue merchant",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "active", "merchantId": merchantID})
}

// ReconcileScoreboards handles POST /api/v1/admin/scoreboards/reconcile
func (h *AdminHandler) ReconcileScoreboards(c *gin.Context) {
	var req models.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	summary, err := h.reconciler.Reconcile(c.Request.Context(), scoreboard.ReconcileOptions{
		MerchantID: req.MerchantID,
		DryRun:     req.DryRun,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Reconciliation failed",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}
