package models

import "time"

// 投诉状态
const (
	ComplaintOpen    = "open"
	ComplaintCleared = "cleared"
)

// 投诉优先级
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Complaint 车辆维修投诉
type Complaint struct {
	ID          int64     `json:"id" db:"id"`
	VehicleID   int64     `json:"vehicle_id" db:"vehicle_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Status      string    `json:"status" db:"status"`
	Priority    string    `json:"priority" db:"priority"`
	UserID      *int64    `json:"user_id,omitempty" db:"user_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	// 关联车辆信息
	ChassisNumber      string  `json:"chassis_number" db:"-"`
	RegistrationNumber *string `json:"registration_number,omitempty" db:"-"`
	Depot              *string `json:"depot,omitempty" db:"-"`
}
