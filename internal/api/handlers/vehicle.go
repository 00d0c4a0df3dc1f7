package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/fleetdash/internal/service"
)

// ListVehicles 获取车辆列表
func (h *Handler) ListVehicles(c *gin.Context) {
	vehicles, err := h.fleet.ListVehicles(c.Request.Context())
	if err != nil {
		h.respondError(c, "list vehicles", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": vehicles})
}

// GetVehicle 通过底盘号获取车辆
func (h *Handler) GetVehicle(c *gin.Context) {
	vehicle, err := h.fleet.GetVehicle(c.Request.Context(), c.Param("chassis"))
	if err != nil {
		h.respondError(c, "get vehicle", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": vehicle})
}

// CreateVehicle 新增车辆
// POST /api/vehicles
func (h *Handler) CreateVehicle(c *gin.Context) {
	var input service.VehicleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	vehicle, err := h.fleet.AddVehicle(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, "create vehicle", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": vehicle})
}

// UpdateVehicle 更新车辆档案
// PUT /api/vehicles/:chassis
func (h *Handler) UpdateVehicle(c *gin.Context) {
	var input service.VehicleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	vehicle, err := h.fleet.UpdateVehicle(c.Request.Context(), c.Param("chassis"), input)
	if err != nil {
		h.respondError(c, "update vehicle", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": vehicle})
}

// ImportVehicles CSV 批量导入车辆
// POST /api/vehicles/import (multipart, 字段 file)
func (h *Handler) ImportVehicles(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(c, "import vehicles", service.ErrTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing csv file"})
		return
	}
	if header.Size > h.maxUploadBytes {
		h.respondError(c, "import vehicles", service.ErrTooLarge)
		return
	}
	f, err := header.Open()
	if err != nil {
		h.respondError(c, "open upload", err)
		return
	}
	defer f.Close()

	result, err := h.fleet.ImportVehicles(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, "import vehicles", err)
		return
	}

	h.logger.Info("Vehicles imported via API",
		zap.String("file_name", header.Filename),
		zap.Int("created", result.Created),
		zap.Int("failed", result.Failed),
	)
	c.JSON(http.StatusOK, gin.H{"data": result})
}
