package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/langchou/fleetdash/internal/odometer"
	"github.com/langchou/fleetdash/internal/service"
)

// ListReadings 获取里程读数列表（分页，最新在前）
func (h *Handler) ListReadings(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 500 {
		perPage = 50
	}

	readings, err := h.fleet.ListReadings(c.Request.Context())
	if err != nil {
		h.respondError(c, "list odometer readings", err)
		return
	}

	total := len(readings)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"data": readings[start:end],
		"pagination": gin.H{
			"page":     page,
			"per_page": perPage,
			"total":    total,
		},
	})
}

// ListVehicleReadings 获取单车读数
func (h *Handler) ListVehicleReadings(c *gin.Context) {
	readings, err := h.fleet.ListReadingsByChassis(c.Request.Context(), c.Param("chassis"))
	if err != nil {
		h.respondError(c, "list vehicle readings", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": readings})
}

// AddReading 录入里程读数
// POST /api/odometer/readings
func (h *Handler) AddReading(c *gin.Context) {
	var input service.ReadingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	reading, err := h.fleet.AddReading(c.Request.Context(), input, currentUser(c))
	if err != nil {
		h.respondError(c, "add odometer reading", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": reading})
}

// GetSummary 按车场汇总最新里程
// GET /api/odometer/summary?period=all|day|week|month
func (h *Handler) GetSummary(c *gin.Context) {
	period, err := odometer.ParsePeriod(c.Query("period"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.fleet.Summary(c.Request.Context(), period)
	if err != nil {
		h.respondError(c, "summarize odometer readings", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}
