package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/refinehaus/clinic_backend/config"
	"github.com/refinehaus/clinic_backend/models"
	"gorm.io/gorm"
)

type outboxReplayRequest struct {
	RecordId int `json:"record_id"`
}

// outboxReplayHandler puts an outbox row back to PENDING. Rows being published right now are left alone.
func outboxReplayHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req outboxReplayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if req.RecordId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "record_id is required"})
			return
		}

		db := config.GetDB()
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}
		record, err := models.ReplayOutbox(c.Request.Context(), db, req.RecordId)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found or currently processing"})
			return
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"record_id":      record.ID,
			"reference_id":   record.ReferenceId,
			"publish_status": record.PublishStatus,
		})
	}
}

// outboxStatusHandler serves GET /internal/ops/outbox/status?sell_invoice_id=N.
func outboxStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		invoiceId, err := strconv.Atoi(c.Query("sell_invoice_id"))
		if err != nil || invoiceId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sell_invoice_id is required"})
			return
		}

		db := config.GetDB()
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}
		status, err := models.GetOutboxStatus(c.Request.Context(), db, models.OutboxReferenceTypeBooking, invoiceId)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no outbox record for invoice"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, status)
	}
}
