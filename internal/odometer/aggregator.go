package odometer

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/fleetdash/internal/models"
)

// VehicleReading 车场汇总中单车的最新读数
type VehicleReading struct {
	VehicleID     int64     `json:"vehicle_id"`
	ChassisNumber string    `json:"chassis_number"`
	Registration  string    `json:"reg"`
	LastReading   float64   `json:"last_reading"` // km
	Date          time.Time `json:"date"`
	ReadingID     int64     `json:"reading_id"`
}

// DepotSummary 单个车场的里程汇总（派生数据，不落库）
type DepotSummary struct {
	Depot         string           `json:"depot"`
	TotalOdometer float64          `json:"total_odometer"`
	VehicleCount  int              `json:"vehicle_count"`
	Vehicles      []VehicleReading `json:"vehicles"`
}

// Newer 判断读数 r 是否应取代当前最新读数 cur
// 日期更晚者优先；同一日期取里程更大者；仍相同则取 ID 更大（后录入）者
func Newer(r *models.OdometerReading, cur VehicleReading) bool {
	if !r.Date.Equal(cur.Date) {
		return r.Date.After(cur.Date)
	}
	if r.Reading != cur.LastReading {
		return r.Reading > cur.LastReading
	}
	return r.ID > cur.ReadingID
}

// Aggregator 里程汇总器，无状态，可并发调用
type Aggregator struct {
	logger *zap.Logger
}

// NewAggregator 创建汇总器
func NewAggregator(logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{logger: logger}
}

// Summarize 按车场汇总每辆车的最新读数
//
// 单次遍历读数，读数顺序任意。没有有效读数的车辆不出现在结果中，
// 车场按首次出现的顺序返回。无效读数（日期缺失、数值为负、车辆未知）跳过并记录告警。
func (a *Aggregator) Summarize(vehicles []*models.Vehicle, readings []*models.OdometerReading) []DepotSummary {
	index := make(map[int64]*models.Vehicle, len(vehicles))
	for _, v := range vehicles {
		if v != nil {
			index[v.ID] = v
		}
	}

	type slot struct {
		depot *DepotSummary
		pos   int
	}

	var order []*DepotSummary
	depots := make(map[string]*DepotSummary)
	slots := make(map[int64]slot)

	for _, r := range readings {
		if r == nil {
			continue
		}
		if r.Date.IsZero() {
			a.logger.Warn("Skipping odometer reading without date",
				zap.Int64("reading_id", r.ID), zap.Int64("vehicle_id", r.VehicleID))
			continue
		}
		if r.Reading < 0 || math.IsNaN(r.Reading) || math.IsInf(r.Reading, 0) {
			a.logger.Warn("Skipping invalid odometer value",
				zap.Int64("reading_id", r.ID), zap.Float64("reading", r.Reading))
			continue
		}
		vehicle, ok := index[r.VehicleID]
		if !ok {
			a.logger.Warn("Skipping odometer reading for unknown vehicle",
				zap.Int64("reading_id", r.ID), zap.Int64("vehicle_id", r.VehicleID))
			continue
		}

		if s, seen := slots[vehicle.ID]; seen {
			cur := &s.depot.Vehicles[s.pos]
			if Newer(r, *cur) {
				s.depot.TotalOdometer += r.Reading - cur.LastReading
				cur.LastReading = r.Reading
				cur.Date = r.Date
				cur.ReadingID = r.ID
			}
			continue
		}

		name := vehicle.DepotName()
		depot, ok := depots[name]
		if !ok {
			depot = &DepotSummary{Depot: name, Vehicles: []VehicleReading{}}
			depots[name] = depot
			order = append(order, depot)
		}

		depot.Vehicles = append(depot.Vehicles, VehicleReading{
			VehicleID:     vehicle.ID,
			ChassisNumber: vehicle.ChassisNumber,
			Registration:  vehicle.RegistrationLabel(),
			LastReading:   r.Reading,
			Date:          r.Date,
			ReadingID:     r.ID,
		})
		depot.TotalOdometer += r.Reading
		depot.VehicleCount = len(depot.Vehicles)
		slots[vehicle.ID] = slot{depot: depot, pos: len(depot.Vehicles) - 1}
	}

	result := make([]DepotSummary, 0, len(order))
	for _, d := range order {
		result = append(result, *d)
	}
	return result
}
