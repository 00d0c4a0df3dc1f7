package models

import "time"

// OdometerReading 里程表读数，只追加不修改
type OdometerReading struct {
	ID        int64     `json:"id" db:"id"`
	VehicleID int64     `json:"vehicle_id" db:"vehicle_id"`
	Reading   float64   `json:"reading" db:"reading"` // km
	Date      time.Time `json:"date" db:"date"`       // 日历日期，零值表示缺失
	Notes     string    `json:"notes" db:"notes"`
	UserID    *int64    `json:"user_id,omitempty" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// 关联车辆信息（查询时填充）
	ChassisNumber      string  `json:"chassis_number,omitempty" db:"-"`
	RegistrationNumber *string `json:"registration_number,omitempty" db:"-"`
}
