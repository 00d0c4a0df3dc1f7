package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/langchou/fleetdash/internal/models"
)

// VehicleRepository 车辆数据仓库
type VehicleRepository struct {
	db *DB
}

// NewVehicleRepository 创建车辆仓库
func NewVehicleRepository(db *DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

const vehicleColumns = `id, chassis_number, registration_number, depot, motor_number, model, colour, seating_capacity, motor_power_kw, dispatch_date, registration_date, manufacture_date, created_at, updated_at`

func scanVehicle(row pgx.Row) (*models.Vehicle, error) {
	v := &models.Vehicle{}
	err := row.Scan(
		&v.ID,
		&v.ChassisNumber,
		&v.RegistrationNumber,
		&v.Depot,
		&v.MotorNumber,
		&v.Model,
		&v.Colour,
		&v.SeatingCapacity,
		&v.MotorPowerKw,
		&v.DispatchDate,
		&v.RegistrationDate,
		&v.ManufactureDate,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Create 创建车辆
func (r *VehicleRepository) Create(ctx context.Context, v *models.Vehicle) error {
	query := `
		INSERT INTO vehicles (chassis_number, registration_number, depot, motor_number, model, colour, seating_capacity, motor_power_kw, dispatch_date, registration_date, manufacture_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	now := time.Now()
	err := r.db.Pool.QueryRow(ctx, query,
		v.ChassisNumber,
		v.RegistrationNumber,
		v.Depot,
		v.MotorNumber,
		v.Model,
		v.Colour,
		v.SeatingCapacity,
		v.MotorPowerKw,
		v.DispatchDate,
		v.RegistrationDate,
		v.ManufactureDate,
		now,
		now,
	).Scan(&v.ID)

	if err != nil {
		return fmt.Errorf("insert vehicle: %w", mapError(err))
	}

	v.CreatedAt = now
	v.UpdatedAt = now
	return nil
}

// GetByID 通过 ID 获取车辆
func (r *VehicleRepository) GetByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`
	v, err := scanVehicle(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get vehicle by id: %w", mapError(err))
	}
	return v, nil
}

// GetByChassis 通过底盘号获取车辆
func (r *VehicleRepository) GetByChassis(ctx context.Context, chassis string) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE chassis_number = $1`
	v, err := scanVehicle(r.db.Pool.QueryRow(ctx, query, chassis))
	if err != nil {
		return nil, fmt.Errorf("get vehicle by chassis: %w", mapError(err))
	}
	return v, nil
}

// List 获取所有车辆
func (r *VehicleRepository) List(ctx context.Context) ([]*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles ORDER BY depot NULLS LAST, registration_number, id`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	vehicles := []*models.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}

	return vehicles, rows.Err()
}

// Update 更新车辆（底盘号不可修改）
func (r *VehicleRepository) Update(ctx context.Context, v *models.Vehicle) error {
	query := `
		UPDATE vehicles SET registration_number = $1, depot = $2, motor_number = $3, model = $4, colour = $5,
			seating_capacity = $6, motor_power_kw = $7, dispatch_date = $8, registration_date = $9, manufacture_date = $10, updated_at = $11
		WHERE id = $12
	`
	v.UpdatedAt = time.Now()
	tag, err := r.db.Pool.Exec(ctx, query,
		v.RegistrationNumber,
		v.Depot,
		v.MotorNumber,
		v.Model,
		v.Colour,
		v.SeatingCapacity,
		v.MotorPowerKw,
		v.DispatchDate,
		v.RegistrationDate,
		v.ManufactureDate,
		v.UpdatedAt,
		v.ID,
	)
	if err != nil {
		return fmt.Errorf("update vehicle: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update vehicle: %w", ErrNotFound)
	}
	return nil
}
