package models

import "time"

// 文档类型
const (
	DocumentSOP   = "sop"
	DocumentRetro = "retro"
)

// Document SOP / 改装文档
type Document struct {
	ID          int64     `json:"id" db:"id"`
	Type        string    `json:"type" db:"type"`
	VehicleID   *int64    `json:"vehicle_id,omitempty" db:"vehicle_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	FileName    string    `json:"file_name" db:"file_name"`
	ContentType string    `json:"content_type" db:"content_type"`
	Size        int64     `json:"size" db:"size"`
	Content     []byte    `json:"-" db:"content"`
	UserID      *int64    `json:"user_id,omitempty" db:"user_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	ChassisNumber *string `json:"chassis_number,omitempty" db:"-"`
}
