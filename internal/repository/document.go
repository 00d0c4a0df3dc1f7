package repository

import (
	"context"
	"fmt"

	"github.com/langchou/fleetdash/internal/models"
)

// DocumentRepository 文档仓库
type DocumentRepository struct {
	db *DB
}

// NewDocumentRepository 创建文档仓库
func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create 保存文档
func (r *DocumentRepository) Create(ctx context.Context, d *models.Document) error {
	query := `
		INSERT INTO documents (type, vehicle_id, title, description, file_name, content_type, size, content, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	err := r.db.Pool.QueryRow(ctx, query,
		d.Type,
		d.VehicleID,
		d.Title,
		d.Description,
		d.FileName,
		d.ContentType,
		d.Size,
		d.Content,
		d.UserID,
	).Scan(&d.ID, &d.CreatedAt)

	if err != nil {
		return fmt.Errorf("insert document: %w", mapError(err))
	}
	return nil
}

// GetByID 获取文档（含文件内容）
func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	query := `
		SELECT d.id, d.type, d.vehicle_id, d.title, d.description, d.file_name, d.content_type, d.size, d.content, d.user_id, d.created_at, v.chassis_number
		FROM documents d
		LEFT JOIN vehicles v ON v.id = d.vehicle_id
		WHERE d.id = $1
	`
	d := &models.Document{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&d.ID,
		&d.Type,
		&d.VehicleID,
		&d.Title,
		&d.Description,
		&d.FileName,
		&d.ContentType,
		&d.Size,
		&d.Content,
		&d.UserID,
		&d.CreatedAt,
		&d.ChassisNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("get document by id: %w", mapError(err))
	}
	return d, nil
}

// List 获取文档列表（不含内容），docType 为空或 vehicleID 为 nil 时不过滤对应条件
func (r *DocumentRepository) List(ctx context.Context, docType string, vehicleID *int64) ([]*models.Document, error) {
	query := `
		SELECT d.id, d.type, d.vehicle_id, d.title, d.description, d.file_name, d.content_type, d.size, d.user_id, d.created_at, v.chassis_number
		FROM documents d
		LEFT JOIN vehicles v ON v.id = d.vehicle_id
		WHERE ($1 = '' OR d.type = $1) AND ($2::BIGINT IS NULL OR d.vehicle_id = $2)
		ORDER BY d.created_at DESC, d.id DESC
	`
	rows, err := r.db.Pool.Query(ctx, query, docType, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []*models.Document{}
	for rows.Next() {
		d := &models.Document{}
		err := rows.Scan(
			&d.ID,
			&d.Type,
			&d.VehicleID,
			&d.Title,
			&d.Description,
			&d.FileName,
			&d.ContentType,
			&d.Size,
			&d.UserID,
			&d.CreatedAt,
			&d.ChassisNumber,
		)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}

	return docs, rows.Err()
}
