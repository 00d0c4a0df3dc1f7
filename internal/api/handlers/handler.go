package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/langchou/fleetdash/internal/models"
	"github.com/langchou/fleetdash/internal/odometer"
	"github.com/langchou/fleetdash/internal/service"
	"github.com/langchou/fleetdash/pkg/ws"
)

// FleetService 车辆与里程
type FleetService interface {
	ListVehicles(ctx context.Context) ([]*models.Vehicle, error)
	GetVehicle(ctx context.Context, chassis string) (*models.Vehicle, error)
	AddVehicle(ctx context.Context, input service.VehicleInput) (*models.Vehicle, error)
	UpdateVehicle(ctx context.Context, chassis string, input service.VehicleInput) (*models.Vehicle, error)
	ImportVehicles(ctx context.Context, r io.Reader) (*service.ImportResult, error)
	AddReading(ctx context.Context, input service.ReadingInput, user *models.User) (*models.OdometerReading, error)
	ListReadings(ctx context.Context) ([]*models.OdometerReading, error)
	ListReadingsByChassis(ctx context.Context, chassis string) ([]*models.OdometerReading, error)
	Summary(ctx context.Context, period odometer.Period) (*service.Summary, error)
}

// ComplaintService 维修投诉
type ComplaintService interface {
	List(ctx context.Context, status string) ([]*models.Complaint, error)
	ListByChassis(ctx context.Context, chassis string) ([]*models.Complaint, error)
	Add(ctx context.Context, input service.ComplaintInput, user *models.User) (*models.Complaint, error)
	Clear(ctx context.Context, id int64) (*models.Complaint, error)
	Reopen(ctx context.Context, id int64) (*models.Complaint, error)
}

// DocumentService 文档
type DocumentService interface {
	Upload(ctx context.Context, input service.DocumentInput, user *models.User) (*models.Document, error)
	List(ctx context.Context, docType, chassis string) ([]*models.Document, error)
	Get(ctx context.Context, id int64) (*models.Document, error)
	MaxBytes() int64
}

// AuthService 登录与会话
type AuthService interface {
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
	Logout(ctx context.Context, token string) error
	CreateUser(ctx context.Context, input service.UserInput) (*models.User, error)
}

// Handler HTTP 处理器
type Handler struct {
	logger     *zap.Logger
	fleet      FleetService
	complaints ComplaintService
	documents  DocumentService
	auth       AuthService
	wsHub      *ws.Hub
	upgrader   websocket.Upgrader

	// 请求体上限（CSV 导入）
	maxUploadBytes int64
}

// NewHandler 创建处理器
func NewHandler(
	logger *zap.Logger,
	fleet FleetService,
	complaints ComplaintService,
	documents DocumentService,
	auth AuthService,
	wsHub *ws.Hub,
	allowedOrigin string,
	maxUploadBytes int64,
) *Handler {
	return &Handler{
		logger:     logger,
		fleet:      fleet,
		complaints: complaints,
		documents:  documents,
		auth:       auth,
		wsHub:      wsHub,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin(allowedOrigin),
		},
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/auth/login", h.Login)

	api := r.Group("/api", h.Authenticate())
	writers := h.RequireRole(models.RoleAdmin, models.RoleUpload)
	admin := h.RequireRole(models.RoleAdmin)
	{
		// 会话与用户
		api.POST("/auth/logout", h.Logout)
		api.GET("/auth/me", h.Me)
		api.POST("/users", admin, h.CreateUser)

		// 车辆
		api.GET("/vehicles", h.ListVehicles)
		api.GET("/vehicles/:chassis", h.GetVehicle)
		api.POST("/vehicles", admin, h.CreateVehicle)
		api.POST("/vehicles/import", admin, h.ImportVehicles)
		api.PUT("/vehicles/:chassis", admin, h.UpdateVehicle)

		// 里程
		api.GET("/odometer/readings", h.ListReadings)
		api.POST("/odometer/readings", writers, h.AddReading)
		api.GET("/odometer/summary", h.GetSummary)
		api.GET("/vehicles/:chassis/readings", h.ListVehicleReadings)

		// 投诉
		api.GET("/complaints", h.ListComplaints)
		api.POST("/complaints", writers, h.AddComplaint)
		api.POST("/complaints/:id/clear", admin, h.ClearComplaint)
		api.POST("/complaints/:id/reopen", admin, h.ReopenComplaint)
		api.GET("/vehicles/:chassis/complaints", h.ListVehicleComplaints)

		// 文档
		api.GET("/documents", h.ListDocuments)
		api.POST("/documents", writers, h.UploadDocument)
		api.GET("/documents/:id/download", h.DownloadDocument)
	}

	// WebSocket（浏览器无法设置请求头，令牌走 ?token=）
	r.GET("/ws", h.HandleWebSocket)

	// 健康检查
	r.GET("/health", h.HealthCheck)
}

// HandleWebSocket WebSocket 处理，升级前校验会话
func (h *Handler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = bearerToken(c.GetHeader("Authorization"))
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing session token"})
		return
	}
	user, err := h.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		h.respondError(c, "authenticate websocket", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade websocket", zap.Error(err), zap.String("username", user.Username))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	if err := client.Register(); err != nil {
		conn.Close()
		return
	}

	// 启动读写协程
	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": h.wsHub.ClientCount(),
	})
}

// respondError 将服务错误映射为 HTTP 状态码
func (h *Handler) respondError(c *gin.Context, action string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Failed to "+action, zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(status, gin.H{"error": "Failed to " + action})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// checkOrigin "*" 或空表示不限制；非浏览器客户端不带 Origin
func checkOrigin(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if allowed == "" || allowed == "*" {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || strings.EqualFold(origin, allowed)
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}
