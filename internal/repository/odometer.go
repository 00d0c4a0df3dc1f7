package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/langchou/fleetdash/internal/models"
)

// OdometerRepository 里程读数仓库
type OdometerRepository struct {
	db *DB
}

// NewOdometerRepository 创建里程读数仓库
func NewOdometerRepository(db *DB) *OdometerRepository {
	return &OdometerRepository{db: db}
}

// Create 追加读数
func (r *OdometerRepository) Create(ctx context.Context, reading *models.OdometerReading) error {
	query := `
		INSERT INTO odometer_readings (vehicle_id, reading, date, notes, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.Pool.QueryRow(ctx, query,
		reading.VehicleID,
		reading.Reading,
		reading.Date,
		reading.Notes,
		reading.UserID,
	).Scan(&reading.ID, &reading.CreatedAt)

	if err != nil {
		return fmt.Errorf("insert odometer reading: %w", mapError(err))
	}
	return nil
}

// List 获取全部读数（按日期倒序）
func (r *OdometerRepository) List(ctx context.Context) ([]*models.OdometerReading, error) {
	query := `
		SELECT o.id, o.vehicle_id, o.reading, o.date, o.notes, o.user_id, o.created_at, v.chassis_number, v.registration_number
		FROM odometer_readings o
		JOIN vehicles v ON v.id = o.vehicle_id
		ORDER BY o.date DESC, o.id DESC
	`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list odometer readings: %w", err)
	}
	return collectReadings(rows)
}

// ListByVehicleID 获取单车读数（按日期倒序）
func (r *OdometerRepository) ListByVehicleID(ctx context.Context, vehicleID int64) ([]*models.OdometerReading, error) {
	query := `
		SELECT o.id, o.vehicle_id, o.reading, o.date, o.notes, o.user_id, o.created_at, v.chassis_number, v.registration_number
		FROM odometer_readings o
		JOIN vehicles v ON v.id = o.vehicle_id
		WHERE o.vehicle_id = $1
		ORDER BY o.date DESC, o.id DESC
	`
	rows, err := r.db.Pool.Query(ctx, query, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("list odometer readings by vehicle: %w", err)
	}
	return collectReadings(rows)
}

func collectReadings(rows pgx.Rows) ([]*models.OdometerReading, error) {
	defer rows.Close()

	readings := []*models.OdometerReading{}
	for rows.Next() {
		o := &models.OdometerReading{}
		err := rows.Scan(
			&o.ID,
			&o.VehicleID,
			&o.Reading,
			&o.Date,
			&o.Notes,
			&o.UserID,
			&o.CreatedAt,
			&o.ChassisNumber,
			&o.RegistrationNumber,
		)
		if err != nil {
			return nil, fmt.Errorf("scan odometer reading: %w", err)
		}
		readings = append(readings, o)
	}

	return readings, rows.Err()
}
