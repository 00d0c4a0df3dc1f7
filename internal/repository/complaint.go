package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/langchou/fleetdash/internal/models"
)

// ComplaintRepository 投诉数据仓库
type ComplaintRepository struct {
	db *DB
}

// NewComplaintRepository 创建投诉仓库
func NewComplaintRepository(db *DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

const complaintSelect = `
	SELECT c.id, c.vehicle_id, c.title, c.description, c.status, c.priority, c.user_id, c.created_at, c.updated_at,
		v.chassis_number, v.registration_number, v.depot
	FROM complaints c
	JOIN vehicles v ON v.id = c.vehicle_id
`

func scanComplaint(row pgx.Row) (*models.Complaint, error) {
	c := &models.Complaint{}
	err := row.Scan(
		&c.ID,
		&c.VehicleID,
		&c.Title,
		&c.Description,
		&c.Status,
		&c.Priority,
		&c.UserID,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.ChassisNumber,
		&c.RegistrationNumber,
		&c.Depot,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create 创建投诉
func (r *ComplaintRepository) Create(ctx context.Context, c *models.Complaint) error {
	query := `
		INSERT INTO complaints (vehicle_id, title, description, status, priority, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	err := r.db.Pool.QueryRow(ctx, query,
		c.VehicleID,
		c.Title,
		c.Description,
		c.Status,
		c.Priority,
		c.UserID,
		c.CreatedAt,
		c.UpdatedAt,
	).Scan(&c.ID)

	if err != nil {
		return fmt.Errorf("insert complaint: %w", mapError(err))
	}
	return nil
}

// GetByID 获取投诉
func (r *ComplaintRepository) GetByID(ctx context.Context, id int64) (*models.Complaint, error) {
	c, err := scanComplaint(r.db.Pool.QueryRow(ctx, complaintSelect+` WHERE c.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get complaint by id: %w", mapError(err))
	}
	return c, nil
}

// List 获取投诉列表，status 为空时返回全部
func (r *ComplaintRepository) List(ctx context.Context, status string) ([]*models.Complaint, error) {
	query := complaintSelect + ` WHERE ($1 = '' OR c.status = $1) ORDER BY c.created_at DESC, c.id DESC`
	rows, err := r.db.Pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	return collectComplaints(rows)
}

// ListByVehicleID 获取单车投诉
func (r *ComplaintRepository) ListByVehicleID(ctx context.Context, vehicleID int64) ([]*models.Complaint, error) {
	query := complaintSelect + ` WHERE c.vehicle_id = $1 ORDER BY c.created_at DESC, c.id DESC`
	rows, err := r.db.Pool.Query(ctx, query, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("list complaints by vehicle: %w", err)
	}
	return collectComplaints(rows)
}

// UpdateStatus 仅当当前状态仍为 from 时更新为 to，否则返回 ErrStale
func (r *ComplaintRepository) UpdateStatus(ctx context.Context, id int64, from, to string, updatedAt time.Time) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE complaints SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, updatedAt, id, from,
	)
	if err != nil {
		return fmt.Errorf("update complaint status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update complaint status: %w", ErrStale)
	}
	return nil
}

func collectComplaints(rows pgx.Rows) ([]*models.Complaint, error) {
	defer rows.Close()

	complaints := []*models.Complaint{}
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		complaints = append(complaints, c)
	}
	return complaints, rows.Err()
}
