package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/langchou/fleetdash/internal/models"
	"github.com/langchou/fleetdash/pkg/ws"
)

// 允许上传的扩展名及其默认类型
var allowedExtensions = map[string]string{
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
	".csv":  "text/csv",
	".pdf":  "application/pdf",
}

// DocumentInput 文档上传参数
type DocumentInput struct {
	Type          string `json:"type" validate:"required,oneof=sop retro"`
	ChassisNumber string `json:"chassis_number" validate:"required_if=Type retro"`
	Title         string `json:"title" validate:"max=200"`
	Description   string `json:"description" validate:"max=2000"`
	FileName      string `json:"file_name" validate:"required"`
	Content       []byte `json:"-"`
}

// DocumentService SOP 与改装文档服务
type DocumentService struct {
	logger    *zap.Logger
	documents DocumentStore
	vehicles  VehicleStore
	notifier  Notifier
	maxBytes  int64
	validate  *validator.Validate
	now       func() time.Time
}

// NewDocumentService 创建文档服务
func NewDocumentService(logger *zap.Logger, documents DocumentStore, vehicles VehicleStore, notifier Notifier, maxBytes int64) *DocumentService {
	return &DocumentService{
		logger:    logger,
		documents: documents,
		vehicles:  vehicles,
		notifier:  notifier,
		maxBytes:  maxBytes,
		validate:  newValidator(),
		now:       time.Now,
	}
}

// MaxBytes 单个文件上限
func (s *DocumentService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload 保存文档
func (s *DocumentService) Upload(ctx context.Context, input DocumentInput, user *models.User) (*models.Document, error) {
	input.Type = strings.ToLower(strings.TrimSpace(input.Type))
	input.ChassisNumber = strings.TrimSpace(input.ChassisNumber)
	input.Title = strings.TrimSpace(input.Title)
	input.FileName = filepath.Base(strings.TrimSpace(input.FileName))
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	ext := strings.ToLower(filepath.Ext(input.FileName))
	fallbackType, ok := allowedExtensions[ext]
	if !ok {
		return nil, fmt.Errorf("%w: file type %q is not allowed", ErrInvalidInput, ext)
	}
	if len(input.Content) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	if int64(len(input.Content)) > s.maxBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrTooLarge, s.maxBytes)
	}

	doc := &models.Document{
		Type:        input.Type,
		Title:       input.Title,
		Description: strings.TrimSpace(input.Description),
		FileName:    input.FileName,
		ContentType: detectContentType(input.Content, fallbackType),
		Size:        int64(len(input.Content)),
		Content:     input.Content,
		CreatedAt:   s.now(),
	}
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(input.FileName, filepath.Ext(input.FileName))
	}

	if input.ChassisNumber != "" {
		vehicle, err := s.vehicles.GetByChassis(ctx, input.ChassisNumber)
		if err != nil {
			return nil, storeError("get vehicle", err)
		}
		doc.VehicleID = &vehicle.ID
		doc.ChassisNumber = &vehicle.ChassisNumber
	}
	if user != nil {
		doc.UserID = &user.ID
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, storeError("create document", err)
	}

	s.logger.Info("Document uploaded",
		zap.Int64("document_id", doc.ID),
		zap.String("type", doc.Type),
		zap.String("file_name", doc.FileName),
		zap.Int64("size", doc.Size),
	)
	if s.notifier != nil {
		s.notifier.BroadcastMessage(ws.MsgTypeDocumentAdded, doc)
	}
	return doc, nil
}

// List 文档列表，不含文件内容
func (s *DocumentService) List(ctx context.Context, docType, chassis string) ([]*models.Document, error) {
	docType = strings.ToLower(strings.TrimSpace(docType))
	switch docType {
	case "", models.DocumentSOP, models.DocumentRetro:
	default:
		return nil, fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, docType)
	}

	var vehicleID *int64
	if chassis = strings.TrimSpace(chassis); chassis != "" {
		vehicle, err := s.vehicles.GetByChassis(ctx, chassis)
		if err != nil {
			return nil, storeError("get vehicle", err)
		}
		vehicleID = &vehicle.ID
	}

	docs, err := s.documents.List(ctx, docType, vehicleID)
	if err != nil {
		return nil, storeError("list documents", err)
	}
	return docs, nil
}

// Get 获取文档（含内容）
func (s *DocumentService) Get(ctx context.Context, id int64) (*models.Document, error) {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("get document", err)
	}
	return doc, nil
}

// detectContentType 按内容识别类型，无法识别时按扩展名
func detectContentType(content []byte, fallback string) string {
	mt := mimetype.Detect(content)
	if mt.Is("application/octet-stream") || mt.Is("text/plain") {
		return fallback
	}
	return mt.String()
}
