package odometer

import (
	"fmt"
	"time"
)

// Period 汇总时间窗口
type Period string

const (
	PeriodAll   Period = "all"
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod 解析时间窗口，空字符串视为 all
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return PeriodAll, nil
	case PeriodAll, PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// Window 窗口长度，all 返回 0
func (p Period) Window() time.Duration {
	switch p {
	case PeriodDay:
		return 24 * time.Hour
	case PeriodWeek:
		return 7 * 24 * time.Hour
	case PeriodMonth:
		return 30 * 24 * time.Hour
	}
	return 0
}

// FilterByPeriod 只保留距 now 不超过窗口的读数，重新计算合计与车辆数，
// 并去掉过滤后没有车辆的车场。不修改输入。
func FilterByPeriod(summaries []DepotSummary, period Period, now time.Time) []DepotSummary {
	window := period.Window()
	result := make([]DepotSummary, 0, len(summaries))

	for _, depot := range summaries {
		kept := make([]VehicleReading, 0, len(depot.Vehicles))
		var total float64
		for _, v := range depot.Vehicles {
			if window > 0 && now.Sub(v.Date) > window {
				continue
			}
			kept = append(kept, v)
			total += v.LastReading
		}
		if len(kept) == 0 {
			continue
		}
		result = append(result, DepotSummary{
			Depot:         depot.Depot,
			TotalOdometer: total,
			VehicleCount:  len(kept),
			Vehicles:      kept,
		})
	}

	return result
}

// FleetTotals 全车队合计
type FleetTotals struct {
	TotalOdometer float64 `json:"total_odometer"`
	DepotCount    int     `json:"depot_count"`
	VehicleCount  int     `json:"vehicle_count"`
}

// Totals 汇总所有车场
func Totals(summaries []DepotSummary) FleetTotals {
	totals := FleetTotals{DepotCount: len(summaries)}
	for _, d := range summaries {
		totals.TotalOdometer += d.TotalOdometer
		totals.VehicleCount += d.VehicleCount
	}
	return totals
}
