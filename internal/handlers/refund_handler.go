package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"refund-billing-service/internal/models"
	"refund-billing-service/internal/services"
)

// RefundHandler handles refund pipeline HTTP requests
type RefundHandler struct {
	service *services.RefundService
}

// NewRefundHandler creates a new refund handler
func NewRefundHandler(service *services.RefundService) *RefundHandler {
	return &RefundHandler{service: service}
}

// CreateRefund handles POST /api/v1/refunds
func (h *RefundHandler) CreateRefund(c *gin.Context) {
	merchantID := c.GetString("merchantID")

	var req models.CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	refund, err := h.service.Create(c.Request.Context(), merchantID, &req)
	if err != nil {
		if errors.Is(err, models.ErrMerchantNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "Merchant not found",
				Message: err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to create refund",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, refund)
}

// GetRefund handles GET /api/v1/refunds/:id
func (h *RefundHandler) GetRefund(c *gin.Context) {
	merchantID := c.GetString("merchantID")

	refundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid refund ID",
			Message: err.Error(),
		})
		return
	}

	refund, err := h.service.Get(c.Request.Context(), merchantID, refundID)
	if err != nil {
		if errors.Is(err, models.ErrRefundNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "Refund not found",
				Message: err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to get refund",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, refund)
}

// ListRefunds handles GET /api/v1/refunds
func (h *RefundHandler) ListRefunds(c *gin.Context) {
	merchantID := c.GetString("merchantID")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	refunds, err := h.service.List(c.Request.Context(), merchantID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to list refunds",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"refunds": refunds,
		"count":   len(refunds),
	})
}

// UpdateRefundStatus handles PATCH /api/v1/refunds/:id/status
func (h *RefundHandler) UpdateRefundStatus(c *gin.Context) {
	merchantID := c.GetString("merchantID")

	refundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid refund ID",
			Message: err.Error(),
		})
		return
	}

	var req models.UpdateRefundStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	refund, err := h.service.UpdateStatus(c.Request.Context(), merchantID, refundID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrRefundNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "Refund not found",
				Message: err.Error(),
			})
		case errors.Is(err, models.ErrInvalidRefundStatus),
			errors.Is(err, models.ErrInvalidStatusTransition),
			errors.Is(err, models.ErrRefundAlreadyFinal):
			c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
				Error:   "Invalid status transition",
				Message: err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "Failed to update refund",
				Message: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, refund)
}

// GetScoreboard handles GET /api/v1/refunds/scoreboard
func (h *RefundHandler) GetScoreboard(c *gin.Context) {
	merchantID := c.GetString("merchantID")

	board, err := h.service.Scoreboard(c.Request.Context(), merchantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to get scoreboard",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, board)
}
