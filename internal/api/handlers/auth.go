package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/langchou/fleetdash/internal/service"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 登录
// POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(c, "login", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// Logout 注销当前会话
func (h *Handler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), c.GetString(ctxTokenKey)); err != nil {
		h.respondError(c, "logout", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me 当前用户
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": currentUser(c)})
}

// CreateUser 新建用户（仅管理员）
func (h *Handler) CreateUser(c *gin.Context) {
	var input service.UserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.auth.CreateUser(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, "create user", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": user})
}
