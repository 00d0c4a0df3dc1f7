package models

import (
	"strings"
	"time"
)

// UnknownLabel 缺省的车场 / 车牌显示值
const UnknownLabel = "Unknown"

// Vehicle 车辆档案（参考数据，由车辆管理导入）
type Vehicle struct {
	ID                 int64      `json:"id" db:"id"`
	ChassisNumber      string     `json:"chassis_number" db:"chassis_number"`                               // 底盘号，唯一
	RegistrationNumber *string    `json:"registration_number,omitempty" db:"registration_number"`           // 车牌号，上牌前可能为 "pending"
	Depot              *string    `json:"depot,omitempty" db:"depot"`                                       // 所属车场
	MotorNumber        *string    `json:"motor_number,omitempty" db:"motor_number"`                         // 电机号
	Model              *string    `json:"model,omitempty" db:"model"`                                       // 车型
	Colour             *string    `json:"colour,omitempty" db:"colour"`                                     // 颜色
	SeatingCapacity    *int       `json:"seating_capacity,omitempty" db:"seating_capacity"`                 // 座位数
	MotorPowerKw       *float64   `json:"motor_power_kw,omitempty" db:"motor_power_kw"`                     // 电机功率 (kW)
	DispatchDate       *time.Time `json:"dispatch_date,omitempty" db:"dispatch_date"`                       // 发车日期
	RegistrationDate   *time.Time `json:"registration_date,omitempty" db:"registration_date"`               // 上牌日期
	ManufactureDate    *time.Time `json:"manufacture_date,omitempty" db:"manufacture_date"`                 // 生产日期
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// DepotName 车场名称，未设置时归入 "Unknown"
func (v *Vehicle) DepotName() string {
	if v.Depot == nil || strings.TrimSpace(*v.Depot) == "" {
		return UnknownLabel
	}
	return *v.Depot
}

// RegistrationLabel 车牌显示值，未设置时为 "Unknown"
func (v *Vehicle) RegistrationLabel() string {
	if v.RegistrationNumber == nil || strings.TrimSpace(*v.RegistrationNumber) == "" {
		return UnknownLabel
	}
	return *v.RegistrationNumber
}
