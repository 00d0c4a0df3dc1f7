package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/langchou/fleetdash/internal/service"
)

// ListComplaints 投诉列表
// GET /api/complaints?status=open|cleared|all
func (h *Handler) ListComplaints(c *gin.Context) {
	complaints, err := h.complaints.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.respondError(c, "list complaints", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": complaints})
}

// ListVehicleComplaints 单车投诉列表
func (h *Handler) ListVehicleComplaints(c *gin.Context) {
	complaints, err := h.complaints.ListByChassis(c.Request.Context(), c.Param("chassis"))
	if err != nil {
		h.respondError(c, "list vehicle complaints", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": complaints})
}

// AddComplaint 新增投诉
func (h *Handler) AddComplaint(c *gin.Context) {
	var input service.ComplaintInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	complaint, err := h.complaints.Add(c.Request.Context(), input, currentUser(c))
	if err != nil {
		h.respondError(c, "add complaint", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": complaint})
}

// ClearComplaint 关闭投诉
// POST /api/complaints/:id/clear
func (h *Handler) ClearComplaint(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	complaint, err := h.complaints.Clear(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "clear complaint", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": complaint})
}

// ReopenComplaint 重新打开投诉
// POST /api/complaints/:id/reopen
func (h *Handler) ReopenComplaint(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	complaint, err := h.complaints.Reopen(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "reopen complaint", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": complaint})
}
